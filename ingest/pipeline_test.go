package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"newsrag/config"
	"newsrag/feed"
	"newsrag/repository"
)

type fakeFetcher struct {
	feeds map[string][]feed.Article
	calls int
}

func (f *fakeFetcher) Fetch(ctx context.Context, feedURL string) []feed.Article {
	f.calls++
	return f.feeds[feedURL]
}

type fakeExtractor struct {
	content map[string]string
}

func (f *fakeExtractor) Extract(ctx context.Context, pageURL string) string {
	return f.content[pageURL]
}

type fakeEmbedder struct {
	calls int
	err   error
}

func (f *fakeEmbedder) GetEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = make([]float32, 768)
	}
	return vectors, nil
}

type fakeRepo struct {
	docs        []*repository.NewsDoc
	count       uint64
	countErr    error
	upsertErrOn map[uint64]error
	ensureCalls int
	resetCalls  int
}

func (r *fakeRepo) EnsureCollection(ctx context.Context) error { r.ensureCalls++; return nil }
func (r *fakeRepo) ResetCollection(ctx context.Context) error  { r.resetCalls++; return nil }

func (r *fakeRepo) Upsert(ctx context.Context, doc *repository.NewsDoc) error {
	if err := r.upsertErrOn[doc.ID]; err != nil {
		return err
	}
	r.docs = append(r.docs, doc)
	return nil
}

func (r *fakeRepo) Search(ctx context.Context, vector []float32, limit int) ([]repository.ScoredDoc, error) {
	return nil, nil
}

func (r *fakeRepo) Count(ctx context.Context) (uint64, error) {
	return r.count, r.countErr
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.ArticleDelay = 0
	cfg.SourceDelay = 0
	return cfg
}

func longContent() string {
	return strings.Repeat("news content ", 20)
}

func newTestPipeline(t *testing.T, sources []config.FeedSource, fetcher *fakeFetcher, extractor *fakeExtractor, repo *fakeRepo, cfg *Config, policy config.IngestPolicy) (*Pipeline, *fakeEmbedder) {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	embedder := &fakeEmbedder{}
	p := NewPipeline(sources, fetcher, extractor, embedder, repo, nil, cfg, false, policy, zap.NewNop())
	return p, embedder
}

func TestIngestStoresQualifyingArticles(t *testing.T) {
	// Three items: two with content above the threshold, one below.
	sources := []config.FeedSource{{URL: "https://feeds.example.com/rss"}}
	fetcher := &fakeFetcher{feeds: map[string][]feed.Article{
		"https://feeds.example.com/rss": {
			{Title: "A", Link: "https://example.com/a"},
			{Title: "B", Link: "https://example.com/b"},
			{Title: "C", Link: "https://example.com/c"},
		},
	}}
	extractor := &fakeExtractor{content: map[string]string{
		"https://example.com/a": longContent(),
		"https://example.com/b": longContent(),
		"https://example.com/c": strings.Repeat("x", 40),
	}}
	repo := &fakeRepo{}

	p, _ := newTestPipeline(t, sources, fetcher, extractor, repo, nil, config.IngestEmpty)
	stored := p.Ingest(context.Background())

	if stored != 2 {
		t.Fatalf("expected 2 stored, got %d", stored)
	}
	if len(repo.docs) != 2 {
		t.Fatalf("expected 2 docs in repo, got %d", len(repo.docs))
	}
	if repo.docs[0].ID != 1 || repo.docs[1].ID != 2 {
		t.Errorf("expected sequential ids 1,2, got %d,%d", repo.docs[0].ID, repo.docs[1].ID)
	}
	if !strings.HasPrefix(repo.docs[0].Payload.Text, "Title: A\n\nContent: ") {
		t.Errorf("unexpected document text: %q", repo.docs[0].Payload.Text)
	}
	if repo.docs[0].Payload.Category != "general" {
		t.Errorf("expected default category, got %q", repo.docs[0].Payload.Category)
	}
}

func TestIngestIsolatesFailingSource(t *testing.T) {
	sources := []config.FeedSource{
		{URL: "https://bad.example.com/rss"},
		{URL: "https://good.example.com/rss"},
	}
	fetcher := &fakeFetcher{feeds: map[string][]feed.Article{
		// bad source yields nothing, as the fetcher does on exhaustion
		"https://good.example.com/rss": {
			{Title: "Good", Link: "https://good.example.com/1"},
		},
	}}
	extractor := &fakeExtractor{content: map[string]string{
		"https://good.example.com/1": longContent(),
	}}
	repo := &fakeRepo{}

	p, _ := newTestPipeline(t, sources, fetcher, extractor, repo, nil, config.IngestEmpty)
	if stored := p.Ingest(context.Background()); stored != 1 {
		t.Fatalf("expected 1 stored despite failing source, got %d", stored)
	}
	if fetcher.calls != 2 {
		t.Errorf("expected both sources attempted, got %d calls", fetcher.calls)
	}
}

func TestIngestHonorsGlobalQuota(t *testing.T) {
	var articles []feed.Article
	content := map[string]string{}
	for i := 0; i < 5; i++ {
		link := "https://example.com/" + string(rune('a'+i))
		articles = append(articles, feed.Article{Title: "T", Link: link})
		content[link] = longContent()
	}
	sources := []config.FeedSource{
		{URL: "https://one.example.com/rss"},
		{URL: "https://two.example.com/rss"},
	}
	fetcher := &fakeFetcher{feeds: map[string][]feed.Article{
		"https://one.example.com/rss": articles,
		"https://two.example.com/rss": articles,
	}}
	repo := &fakeRepo{}

	cfg := testConfig()
	cfg.MaxArticles = 3

	// No tracker, so the overlapping links do not deduplicate here.
	p, _ := newTestPipeline(t, sources, fetcher, &fakeExtractor{content: content}, repo, cfg, config.IngestEmpty)
	if stored := p.Ingest(context.Background()); stored != 3 {
		t.Fatalf("expected quota of 3, got %d", stored)
	}
}

func TestIngestHonorsPerSourceLimit(t *testing.T) {
	var articles []feed.Article
	content := map[string]string{}
	for i := 0; i < 10; i++ {
		link := "https://example.com/" + string(rune('a'+i))
		articles = append(articles, feed.Article{Title: "T", Link: link})
		content[link] = longContent()
	}
	sources := []config.FeedSource{{URL: "https://one.example.com/rss"}}
	fetcher := &fakeFetcher{feeds: map[string][]feed.Article{
		"https://one.example.com/rss": articles,
	}}
	repo := &fakeRepo{}

	p, _ := newTestPipeline(t, sources, fetcher, &fakeExtractor{content: content}, repo, nil, config.IngestEmpty)
	if stored := p.Ingest(context.Background()); stored != 5 {
		t.Fatalf("expected per-source limit of 5, got %d", stored)
	}
}

func TestIngestSkipsInvalidLinks(t *testing.T) {
	sources := []config.FeedSource{{URL: "https://feeds.example.com/rss"}}
	fetcher := &fakeFetcher{feeds: map[string][]feed.Article{
		"https://feeds.example.com/rss": {
			{Title: "NoLink"},
			{Title: "FtpLink", Link: "ftp://example.com/x"},
			{Title: "Valid", Link: "https://example.com/v"},
		},
	}}
	extractor := &fakeExtractor{content: map[string]string{
		"https://example.com/v": longContent(),
	}}
	repo := &fakeRepo{}

	p, _ := newTestPipeline(t, sources, fetcher, extractor, repo, nil, config.IngestEmpty)
	if stored := p.Ingest(context.Background()); stored != 1 {
		t.Fatalf("expected 1 stored, got %d", stored)
	}
}

func TestIngestUpsertFailureDoesNotCountOrAbort(t *testing.T) {
	sources := []config.FeedSource{{URL: "https://feeds.example.com/rss"}}
	fetcher := &fakeFetcher{feeds: map[string][]feed.Article{
		"https://feeds.example.com/rss": {
			{Title: "A", Link: "https://example.com/a"},
			{Title: "B", Link: "https://example.com/b"},
		},
	}}
	extractor := &fakeExtractor{content: map[string]string{
		"https://example.com/a": longContent(),
		"https://example.com/b": longContent(),
	}}
	repo := &fakeRepo{upsertErrOn: map[uint64]error{1: errors.New("index unavailable")}}

	p, _ := newTestPipeline(t, sources, fetcher, extractor, repo, nil, config.IngestEmpty)
	if stored := p.Ingest(context.Background()); stored != 1 {
		t.Fatalf("expected 1 stored, got %d", stored)
	}
	// The failed upsert did not consume id 1.
	if repo.docs[0].ID != 1 {
		t.Errorf("expected id 1 reused after failure, got %d", repo.docs[0].ID)
	}
}

func TestIngestDeduplicatesAcrossSources(t *testing.T) {
	shared := feed.Article{Title: "Shared", Link: "https://example.com/shared"}
	sources := []config.FeedSource{
		{URL: "https://one.example.com/rss"},
		{URL: "https://two.example.com/rss"},
	}
	fetcher := &fakeFetcher{feeds: map[string][]feed.Article{
		"https://one.example.com/rss": {shared},
		"https://two.example.com/rss": {shared},
	}}
	extractor := &fakeExtractor{content: map[string]string{
		"https://example.com/shared": longContent(),
	}}
	repo := &fakeRepo{}

	tracker, err := NewSeenTracker(filepath.Join(t.TempDir(), "seen.db"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer tracker.Close()

	p := NewPipeline(sources, fetcher, extractor, &fakeEmbedder{}, repo, tracker,
		testConfig(), false, config.IngestEmpty, zap.NewNop())
	if stored := p.Ingest(context.Background()); stored != 1 {
		t.Fatalf("expected shared link stored once, got %d", stored)
	}
}

func TestBootstrapIdempotentOutsideDevMode(t *testing.T) {
	repo := &fakeRepo{}
	p, _ := newTestPipeline(t, nil, &fakeFetcher{}, &fakeExtractor{}, repo, nil, config.IngestEmpty)

	if err := p.Bootstrap(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Bootstrap(context.Background()); err != nil {
		t.Fatalf("unexpected error on second bootstrap: %v", err)
	}
	if repo.ensureCalls != 2 || repo.resetCalls != 0 {
		t.Errorf("expected 2 ensure calls and no resets, got %d/%d", repo.ensureCalls, repo.resetCalls)
	}
}

func TestBootstrapResetsInDevMode(t *testing.T) {
	repo := &fakeRepo{}
	p := NewPipeline(nil, &fakeFetcher{}, &fakeExtractor{}, &fakeEmbedder{}, repo, nil,
		testConfig(), true, config.IngestEmpty, zap.NewNop())

	if err := p.Bootstrap(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.resetCalls != 1 || repo.ensureCalls != 0 {
		t.Errorf("expected 1 reset and no ensure, got %d/%d", repo.resetCalls, repo.ensureCalls)
	}
}

func TestMaybeIngestPolicies(t *testing.T) {
	sources := []config.FeedSource{{URL: "https://feeds.example.com/rss"}}
	feeds := map[string][]feed.Article{
		"https://feeds.example.com/rss": {{Title: "A", Link: "https://example.com/a"}},
	}
	content := map[string]string{"https://example.com/a": longContent()}

	testCases := []struct {
		name       string
		policy     config.IngestPolicy
		count      uint64
		wantStored int
		wantFetch  int
	}{
		{"NeverSkips", config.IngestNever, 0, 0, 0},
		{"EmptyIngestsWhenEmpty", config.IngestEmpty, 0, 1, 1},
		{"EmptySkipsWhenPopulated", config.IngestEmpty, 10, 0, 0},
		{"AlwaysIngests", config.IngestAlways, 10, 1, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fetcher := &fakeFetcher{feeds: feeds}
			repo := &fakeRepo{count: tc.count}
			p, _ := newTestPipeline(t, sources, fetcher, &fakeExtractor{content: content}, repo, nil, tc.policy)

			stored, err := p.MaybeIngest(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if stored != tc.wantStored {
				t.Errorf("expected %d stored, got %d", tc.wantStored, stored)
			}
			if fetcher.calls != tc.wantFetch {
				t.Errorf("expected %d fetch calls, got %d", tc.wantFetch, fetcher.calls)
			}
		})
	}
}
