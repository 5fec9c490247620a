// Package extract fetches article pages and decodes the structured data they
// embed.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pevans/coinscrape/scraper"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// StatusError reports an HTTP status the extractor cannot recover from.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s (%s)", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}

// Config holds extractor settings.
type Config struct {
	// Maximum number of article pages fetched in parallel; 0 means no limit
	Concurrency int
	// Requests per second across all fetches; 0 means no limit
	RequestsPerSecond float64
	// Timeout per page fetch
	Timeout   time.Duration
	UserAgent string
	Article   scraper.ArticleConfig
}

// DefaultConfig returns the default extractor configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency: 10,
		Timeout:     30 * time.Second,
		UserAgent:   "coinscrape/1.0 (news metadata harvester)",
		Article:     scraper.NewArticleConfig(),
	}
}

// Extractor turns article URLs into decoded articles.
type Extractor struct {
	client *resty.Client
	cfg    Config
}

// NewExtractor creates an extractor with its own HTTP client.
func NewExtractor(cfg Config) *Extractor {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml")

	if cfg.RequestsPerSecond > 0 {
		burst := max(1, int(cfg.RequestsPerSecond))
		limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}

	return &Extractor{
		client: client,
		cfg:    cfg,
	}
}

// Extract fetches every URL concurrently and returns the decoded articles in
// the order of urls. Pages without article data are logged and left out.
// The first other failure cancels the remaining fetches and is returned
// once in-flight fetches have finished.
func (e *Extractor) Extract(ctx context.Context, urls []string) ([]ScrapedArticle, error) {
	results := make([]*ScrapedArticle, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	if e.cfg.Concurrency > 0 {
		g.SetLimit(e.cfg.Concurrency)
	}

	for i, link := range urls {
		g.Go(func() error {
			a, err := e.scrape(gctx, link)
			if errors.Is(err, ErrSoftNotFound) {
				slog.WarnContext(ctx, "link led to an internal 404, skipping", "url", link)
				return nil
			}
			if err != nil {
				return err
			}
			results[i] = a
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	articles := make([]ScrapedArticle, 0, len(urls))
	for _, a := range results {
		if a != nil {
			articles = append(articles, *a)
		}
	}

	slog.InfoContext(ctx, "scraped article batch", "requested", len(urls), "extracted", len(articles))
	return articles, nil
}

// scrape fetches and decodes a single article page.
func (e *Extractor) scrape(ctx context.Context, link string) (*ScrapedArticle, error) {
	resp, err := e.client.R().SetContext(ctx).Get(link)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", link, err)
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusNotFound || code == http.StatusGone:
		return nil, fmt.Errorf("%w: %s returned %d", ErrSoftNotFound, link, code)
	case code < 200 || code >= 300:
		return nil, &StatusError{URL: link, StatusCode: code}
	}

	return DecodeArticle(resp.Body(), link, e.cfg.Article)
}
