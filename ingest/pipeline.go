package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/textsplitter"
	"go.uber.org/zap"

	"newsrag/config"
	"newsrag/embedding"
	"newsrag/feed"
	"newsrag/repository"
)

type feedFetcher interface {
	Fetch(ctx context.Context, feedURL string) []feed.Article
}

type contentExtractor interface {
	Extract(ctx context.Context, pageURL string) string
}

type urlTracker interface {
	Reset() error
	Seen(url string) (bool, error)
	MarkSeen(url string) error
}

// OutcomeKind classifies what happened to a single article, so failure
// policy is visible to callers and tests instead of vanishing into logs.
type OutcomeKind int

const (
	OutcomeStored OutcomeKind = iota
	OutcomeSkipped
	OutcomeFailed
)

type Outcome struct {
	Kind   OutcomeKind
	Reason string
	Err    error
}

type Config struct {
	MaxArticles   int // global quota per run
	PerSource     int
	MinContentLen int
	MaxDocChars   int
	ArticleDelay  time.Duration
	SourceDelay   time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		MaxArticles:   30,
		PerSource:     5,
		MinContentLen: 100,
		MaxDocChars:   8000,
		ArticleDelay:  time.Second,
		SourceDelay:   2 * time.Second,
	}
}

type Pipeline struct {
	sources   []config.FeedSource
	fetcher   feedFetcher
	extractor contentExtractor
	embedder  embedding.Client
	vectors   repository.NewsVectorRepo
	tracker   urlTracker // optional
	splitter  textsplitter.RecursiveCharacter
	config    *Config
	devMode   bool
	policy    config.IngestPolicy
	logger    *zap.Logger
}

func NewPipeline(
	sources []config.FeedSource,
	fetcher feedFetcher,
	extractor contentExtractor,
	embedder embedding.Client,
	vectors repository.NewsVectorRepo,
	tracker urlTracker,
	cfg *Config,
	devMode bool,
	policy config.IngestPolicy,
	logger *zap.Logger,
) *Pipeline {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Pipeline{
		sources:   sources,
		fetcher:   fetcher,
		extractor: extractor,
		embedder:  embedder,
		vectors:   vectors,
		tracker:   tracker,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(cfg.MaxDocChars),
			textsplitter.WithChunkOverlap(0),
		),
		config:  cfg,
		devMode: devMode,
		policy:  policy,
		logger:  logger,
	}
}

// Bootstrap prepares the vector collection. In dev mode the collection
// is dropped and recreated for a clean slate; otherwise creation is
// idempotent and an existing collection is left untouched.
func (p *Pipeline) Bootstrap(ctx context.Context) error {
	if p.devMode {
		p.logger.Info("Dev mode: resetting news collection")
		return p.vectors.ResetCollection(ctx)
	}
	return p.vectors.EnsureCollection(ctx)
}

// MaybeIngest runs ingestion according to the startup policy. The
// returned error only reflects the index count check; ingestion itself
// never fails as a whole.
func (p *Pipeline) MaybeIngest(ctx context.Context) (int, error) {
	switch p.policy {
	case config.IngestNever:
		return 0, nil
	case config.IngestEmpty:
		count, err := p.vectors.Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("err count before ingest: %w", err)
		}
		if count > 0 {
			p.logger.Info("Index already populated, skipping ingestion",
				zap.Uint64("points", count))
			return 0, nil
		}
	}
	return p.Ingest(ctx), nil
}

// Ingest walks the configured sources in order until the global quota is
// reached and returns the exact count of documents stored. Per-article
// failures are logged and skipped; they never abort the run.
func (p *Pipeline) Ingest(ctx context.Context) int {
	if p.tracker != nil {
		if err := p.tracker.Reset(); err != nil {
			p.logger.Warn("Failed to reset seen tracker", zap.Error(err))
		}
	}

	stored := 0
	nextID := uint64(1)

	for _, src := range p.sources {
		if stored >= p.config.MaxArticles || ctx.Err() != nil {
			break
		}

		articles := p.fetcher.Fetch(ctx, src.URL)
		if len(articles) == 0 {
			p.logger.Info("No articles from source, continuing",
				zap.String("source", src.URL))
			continue
		}

		limit := p.config.PerSource
		if limit > len(articles) {
			limit = len(articles)
		}
		for _, article := range articles[:limit] {
			if stored >= p.config.MaxArticles || ctx.Err() != nil {
				break
			}

			outcome := p.processOne(ctx, src, article, nextID)
			switch outcome.Kind {
			case OutcomeStored:
				p.logger.Info("Stored article",
					zap.Uint64("id", nextID),
					zap.String("title", article.Title))
				stored++
				nextID++
			case OutcomeSkipped:
				p.logger.Info("Skipped article",
					zap.String("title", article.Title),
					zap.String("reason", outcome.Reason))
			case OutcomeFailed:
				p.logger.Error("Failed to process article",
					zap.String("title", article.Title),
					zap.String("reason", outcome.Reason),
					zap.Error(outcome.Err))
			}

			// Politeness delay between articles.
			p.sleep(ctx, p.config.ArticleDelay)
		}

		// Politeness delay between sources.
		p.sleep(ctx, p.config.SourceDelay)
	}

	p.logger.Info("Ingestion run completed", zap.Int("stored", stored))
	return stored
}

func (p *Pipeline) processOne(ctx context.Context, src config.FeedSource, article feed.Article, id uint64) Outcome {
	if article.Link == "" || !strings.HasPrefix(article.Link, "http") {
		return Outcome{Kind: OutcomeSkipped, Reason: "invalid link"}
	}

	if p.tracker != nil {
		seen, err := p.tracker.Seen(article.Link)
		if err != nil {
			p.logger.Warn("Seen lookup failed", zap.Error(err))
		} else if seen {
			return Outcome{Kind: OutcomeSkipped, Reason: "duplicate link"}
		}
		if err := p.tracker.MarkSeen(article.Link); err != nil {
			p.logger.Warn("Failed to mark link seen", zap.Error(err))
		}
	}

	content := p.extractor.Extract(ctx, article.Link)
	if len(content) < p.config.MinContentLen {
		return Outcome{Kind: OutcomeSkipped, Reason: "insufficient content"}
	}

	title := article.Title
	if title == "" {
		title = "Unknown Title"
	}

	text := fmt.Sprintf("Title: %s\n\nContent: %s", title, content)
	if chunks, err := p.splitter.SplitText(text); err == nil && len(chunks) > 0 {
		text = chunks[0]
	}

	embeddings, err := p.embedder.GetEmbeddings(ctx, []string{text})
	if err != nil {
		return Outcome{Kind: OutcomeFailed, Reason: "embedding failed", Err: err}
	}
	if len(embeddings) == 0 {
		return Outcome{Kind: OutcomeFailed, Reason: "embedding service returned no vector"}
	}

	published := time.Now().UTC().Format(time.RFC3339)
	if article.Published != nil {
		published = article.Published.UTC().Format(time.RFC3339)
	}
	category := article.Category
	if category == "" {
		category = src.Category
	}
	if category == "" {
		category = "general"
	}

	doc := &repository.NewsDoc{
		ID:     id,
		Vector: embeddings[0],
		Payload: repository.NewsPayload{
			Text:      text,
			Title:     title,
			URL:       article.Link,
			Published: published,
			Source:    src.URL,
			Category:  category,
			IndexedAt: time.Now().UnixMilli(),
		},
	}
	if err := p.vectors.Upsert(ctx, doc); err != nil {
		return Outcome{Kind: OutcomeFailed, Reason: "upsert failed", Err: err}
	}

	return Outcome{Kind: OutcomeStored}
}

func (p *Pipeline) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
