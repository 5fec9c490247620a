// Package scrape runs a harvest: it lists article links, extracts them in
// batches and persists what the stop condition keeps.
package scrape

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/pevans/coinscrape/article"
	"github.com/pevans/coinscrape/extract"
	"github.com/pevans/coinscrape/listing"
	"github.com/pevans/coinscrape/store"
)

// Extractor turns a batch of article URLs into scraped articles.
type Extractor interface {
	Extract(ctx context.Context, urls []string) ([]extract.ScrapedArticle, error)
}

// Persister stores a batch of articles.
type Persister interface {
	Persist(ctx context.Context, articles []article.Article) (store.PersistResult, error)
}

// Config holds orchestrator settings.
type Config struct {
	// Number of article URLs extracted and persisted together
	BatchSize int
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{BatchSize: 10}
}

// Result summarizes a run. It is filled in as the run progresses, so a
// failed run reports what was done before the failure.
type Result struct {
	Listed     int
	Extracted  int
	Saved      int
	Duplicates int
	Batches    int
	// Stopped is set when the stop condition ended the run before the
	// listed links ran out.
	Stopped bool
}

// Service composes a lister, an extractor and a persister into a run.
type Service struct {
	lister    listing.Lister
	extractor Extractor
	persister Persister
	cfg       Config
	out       io.Writer
}

// NewService creates a scrape service. Kept articles are printed to out
// unless it is nil.
func NewService(lister listing.Lister, extractor Extractor, persister Persister, cfg Config, out io.Writer) *Service {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}

	return &Service{
		lister:    lister,
		extractor: extractor,
		persister: persister,
		cfg:       cfg,
		out:       out,
	}
}

// Run harvests the listing at startURL until stop is satisfied. Batches are
// processed strictly in order, and the first batch in which stop fires is
// the last one persisted.
func (s *Service) Run(ctx context.Context, startURL string, stop article.StopCondition) (*Result, error) {
	result := &Result{}

	urls, err := s.lister.List(ctx, startURL, stop)
	if err != nil {
		return result, fmt.Errorf("failed to list articles: %w", err)
	}
	result.Listed = len(urls)
	slog.InfoContext(ctx, "collected article links", "count", len(urls), "stop", stop)

	seq := 0
	for batch := range slices.Chunk(urls, s.cfg.BatchSize) {
		scraped, err := s.extractor.Extract(ctx, batch)
		if err != nil {
			return result, fmt.Errorf("failed to extract batch %d: %w", result.Batches+1, err)
		}
		result.Extracted += len(scraped)

		kept := make([]article.Article, 0, len(scraped))
		for _, sa := range scraped {
			seq++
			a := sa.ToArticle(seq)

			keep, done := stop.Evaluate(a)
			if keep {
				kept = append(kept, a)
				s.print(a)
			}
			if done {
				result.Stopped = true
				break
			}
		}

		if err := s.persist(ctx, kept, result); err != nil {
			return result, err
		}

		if result.Stopped {
			slog.InfoContext(ctx, "stop condition reached", "stop", stop, "seq", seq)
			break
		}
	}

	return result, nil
}

// persist stores one batch and adds its counts to result.
func (s *Service) persist(ctx context.Context, articles []article.Article, result *Result) error {
	result.Batches++
	if len(articles) == 0 {
		return nil
	}

	pr, err := s.persister.Persist(ctx, articles)
	result.Saved += pr.Saved
	result.Duplicates += pr.Duplicates
	if err != nil {
		return fmt.Errorf("failed to persist batch %d: %w", result.Batches, err)
	}

	slog.InfoContext(ctx, "persisted batch",
		"batch", result.Batches,
		"saved", pr.Saved,
		"duplicates", pr.Duplicates,
	)
	return nil
}

func (s *Service) print(a article.Article) {
	if s.out == nil {
		return
	}
	fmt.Fprintln(s.out, a.String())
	fmt.Fprintln(s.out)
}
