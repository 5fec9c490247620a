package listing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pevans/coinscrape/article"
	"github.com/pevans/coinscrape/scraper"
)

// Paginator drives the "load more" control of a listing page until enough
// articles are revealed for a stop condition.
type Paginator struct {
	page Page
	cfg  scraper.ListConfig
	loc  *time.Location
	now  func() time.Time
}

// NewPaginator creates a paginator for page. Relative date labels are
// resolved in loc.
func NewPaginator(page Page, cfg scraper.ListConfig, loc *time.Location) *Paginator {
	if loc == nil {
		loc = time.UTC
	}
	return &Paginator{
		page: page,
		cfg:  cfg,
		loc:  loc,
		now:  time.Now,
	}
}

// Reveal clicks the reveal control until the listing holds enough articles
// for stop. The listing usually over-reveals; the orchestrator trims the
// exact cutoff per article. A reveal control that does not appear within
// the configured timeout yields an error wrapping ErrRevealTimeout.
func (p *Paginator) Reveal(ctx context.Context, stop article.StopCondition) error {
	switch stop.Kind() {
	case article.StopByCount:
		return p.revealByCount(ctx, stop.Target())
	case article.StopByDate:
		return p.revealByDate(ctx, stop.Cutoff())
	default:
		return fmt.Errorf("unsupported stop condition: %s", stop)
	}
}

func (p *Paginator) revealByCount(ctx context.Context, target int) error {
	for {
		items, err := p.page.FindAll(ctx, p.cfg.ItemSelector)
		if err != nil {
			return fmt.Errorf("failed to count revealed articles: %w", err)
		}
		if len(items) >= target {
			slog.DebugContext(ctx, "listing revealed", "articles", len(items), "target", target)
			return nil
		}

		if err := p.revealMore(ctx); err != nil {
			return err
		}
	}
}

func (p *Paginator) revealByDate(ctx context.Context, cutoff time.Time) error {
	for {
		labels, err := p.page.FindAll(ctx, p.cfg.DateSelector)
		if err != nil {
			return fmt.Errorf("failed to read date labels: %w", err)
		}

		if len(labels) > 0 {
			text, err := labels[len(labels)-1].Text(ctx)
			if err != nil {
				return fmt.Errorf("failed to read date label: %w", err)
			}

			// Resolve against the clock at read time: a long run can cross
			// midnight.
			last, err := ParseDateLabel(text, p.now().In(p.loc), p.cfg.DateLayout)
			if err != nil {
				return fmt.Errorf("failed to parse date label %q: %w", text, err)
			}
			if !last.After(cutoff) {
				slog.DebugContext(ctx, "listing revealed",
					"last_date", last.Format(time.DateOnly),
					"cutoff", cutoff.Format(time.DateOnly))
				return nil
			}
		}

		if err := p.revealMore(ctx); err != nil {
			return err
		}
	}
}

// revealMore clicks the reveal control once and gives the page time to
// render the new previews.
func (p *Paginator) revealMore(ctx context.Context) error {
	more, err := p.page.WaitFor(ctx, p.cfg.MoreSelector, p.cfg.RevealTimeout)
	if err != nil {
		if errors.Is(err, ErrWaitTimeout) {
			return fmt.Errorf("%w: %w", ErrRevealTimeout, err)
		}
		return fmt.Errorf("failed to locate reveal control: %w", err)
	}

	if err := more.Click(ctx); err != nil {
		return fmt.Errorf("failed to click reveal control: %w", err)
	}

	if p.cfg.RevealPause <= 0 {
		return nil
	}

	timer := time.NewTimer(p.cfg.RevealPause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
