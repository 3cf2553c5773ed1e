package feed

import (
	"context"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
)

// Article is one entry of a syndication feed.
type Article struct {
	Title     string
	Link      string
	Published *time.Time
	Source    string
	Category  string
}

type FetcherConfig struct {
	MaxRetries  int
	BaseTimeout time.Duration // per-attempt timeout, grows with attempt number
	TimeoutStep time.Duration
	RetryDelay  time.Duration // backoff unit, multiplied by attempt number
	RetryJitter time.Duration // random extra delay, avoids thundering-herd retries
	UserAgent   string
}

func DefaultFetcherConfig() *FetcherConfig {
	return &FetcherConfig{
		MaxRetries:  3,
		BaseTimeout: 20 * time.Second,
		TimeoutStep: 5 * time.Second,
		RetryDelay:  2 * time.Second,
		RetryJitter: time.Second,
		UserAgent:   "Mozilla/5.0 (compatible; NewsBot/1.0; +https://example.com/bot)",
	}
}

type Fetcher struct {
	client *http.Client
	parser *gofeed.Parser
	config *FetcherConfig
	logger *zap.Logger
}

func NewFetcher(client *http.Client, config *FetcherConfig, logger *zap.Logger) *Fetcher {
	if config == nil {
		config = DefaultFetcherConfig()
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Fetcher{
		client: client,
		parser: gofeed.NewParser(),
		config: config,
		logger: logger,
	}
}

// Fetch retrieves and parses a feed. It retries with growing timeout and
// randomized backoff; on final failure it returns an empty slice so one
// bad source never aborts an ingestion batch.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) []Article {
	for attempt := 1; attempt <= f.config.MaxRetries; attempt++ {
		articles, err := f.fetchOnce(ctx, feedURL, attempt)
		if err == nil {
			f.logger.Info("Fetched feed",
				zap.String("url", feedURL),
				zap.Int("items", len(articles)))
			return articles
		}

		f.logger.Warn("Feed fetch attempt failed",
			zap.String("url", feedURL),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt == f.config.MaxRetries {
			break
		}
		wait := time.Duration(attempt)*f.config.RetryDelay + f.jitter()
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil
		}
	}

	f.logger.Error("All feed fetch attempts failed", zap.String("url", feedURL))
	return nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, feedURL string, attempt int) ([]Article, error) {
	timeout := f.config.BaseTimeout + time.Duration(attempt)*f.config.TimeoutStep
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &statusError{code: resp.StatusCode}
	}

	parsed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return nil, err
	}

	articles := make([]Article, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		a := Article{
			Title:     item.Title,
			Link:      item.Link,
			Published: item.PublishedParsed,
			Source:    feedURL,
		}
		if len(item.Categories) > 0 {
			a.Category = item.Categories[0]
		}
		articles = append(articles, a)
	}
	return articles, nil
}

func (f *Fetcher) jitter() time.Duration {
	if f.config.RetryJitter <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(f.config.RetryJitter)))
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return http.StatusText(e.code)
}
