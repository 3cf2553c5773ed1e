package extract

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

// Selectors tried in priority order. Article-specific containers first,
// bare paragraphs as the last resort.
var contentSelectors = []string{
	"article p",
	".story-body p",
	".entry-content p",
	".post-content p",
	".article-content p",
	".content p",
	"p",
}

var boilerplateRe = regexp.MustCompile(`(?i)^(Advertisement|Subscribe|Follow us)`)

type ExtractorConfig struct {
	MaxRetries       int
	BaseTimeout      time.Duration
	TimeoutStep      time.Duration
	RetryDelay       time.Duration
	MinParagraphLen  int
	MinContentLen    int
	TargetContentLen int
	UserAgent        string
}

func DefaultExtractorConfig() *ExtractorConfig {
	return &ExtractorConfig{
		MaxRetries:       2,
		BaseTimeout:      12 * time.Second,
		TimeoutStep:      3 * time.Second,
		RetryDelay:       time.Second,
		MinParagraphLen:  30,
		MinContentLen:    50,
		TargetContentLen: 200,
		UserAgent:        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	}
}

type Extractor struct {
	client *http.Client
	config *ExtractorConfig
	logger *zap.Logger
}

func NewExtractor(client *http.Client, config *ExtractorConfig, logger *zap.Logger) *Extractor {
	if config == nil {
		config = DefaultExtractorConfig()
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Extractor{
		client: client,
		config: config,
		logger: logger,
	}
}

// Extract fetches a page and returns its readable paragraph text. The
// fetch step is retried with linear backoff; the parse step is not.
// Returns an empty string on exhaustion.
func (e *Extractor) Extract(ctx context.Context, pageURL string) string {
	for attempt := 1; attempt <= e.config.MaxRetries; attempt++ {
		html, err := e.fetch(ctx, pageURL, attempt)
		if err == nil {
			if content := e.parse(html, pageURL); content != "" {
				return content
			}
			e.logger.Info("No usable content in page", zap.String("url", pageURL))
			return ""
		}

		if attempt == e.config.MaxRetries {
			e.logger.Warn("Failed to fetch page",
				zap.String("url", pageURL),
				zap.Error(err))
			break
		}
		select {
		case <-time.After(time.Duration(attempt) * e.config.RetryDelay):
		case <-ctx.Done():
			return ""
		}
	}
	return ""
}

func (e *Extractor) fetch(ctx context.Context, pageURL string, attempt int) (string, error) {
	timeout := e.config.BaseTimeout + time.Duration(attempt)*e.config.TimeoutStep
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", e.config.UserAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", &statusError{code: resp.StatusCode}
	}

	// News sites are not reliably UTF-8.
	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", err
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (e *Extractor) parse(html, pageURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		e.logger.Warn("Failed to parse page", zap.String("url", pageURL), zap.Error(err))
		return ""
	}

	var b strings.Builder
	for _, selector := range contentSelectors {
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if len(text) > e.config.MinParagraphLen && !boilerplateRe.MatchString(text) {
				b.WriteString(text)
				b.WriteString("\n")
			}
		})
		// Enough signal collected, no need to scan the rest of the page.
		if b.Len() > e.config.TargetContentLen {
			break
		}
	}

	content := strings.TrimSpace(b.String())
	if len(content) > e.config.MinContentLen {
		return content
	}
	return e.fallback(html, pageURL)
}

// fallback runs readability extraction for pages whose markup defeats
// the selector pass.
func (e *Extractor) fallback(html, pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return ""
	}
	content := strings.TrimSpace(article.TextContent)
	if len(content) > e.config.MinContentLen {
		return content
	}
	return ""
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return http.StatusText(e.code)
}
