package listing

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/mmcdole/gofeed"
	"github.com/pevans/coinscrape/article"
	"github.com/pevans/coinscrape/scraper"
)

// Lister produces the ordered article URLs a run should consider.
type Lister interface {
	List(ctx context.Context, startURL string, stop article.StopCondition) ([]string, error)
}

// BrowserLister reveals a listing page in a live browser and collects its
// article links.
type BrowserLister struct {
	page      Page
	paginator *Paginator
	cfg       scraper.ListConfig
}

// NewBrowserLister creates a lister that owns page for the duration of a run.
func NewBrowserLister(page Page, paginator *Paginator, cfg scraper.ListConfig) *BrowserLister {
	return &BrowserLister{
		page:      page,
		paginator: paginator,
		cfg:       cfg,
	}
}

// List opens startURL, reveals enough of the listing for stop and returns
// the article links in document order.
func (l *BrowserLister) List(ctx context.Context, startURL string, stop article.StopCondition) ([]string, error) {
	if err := l.page.Navigate(ctx, startURL); err != nil {
		return nil, fmt.Errorf("failed to open listing page: %w", err)
	}

	if err := l.paginator.Reveal(ctx, stop); err != nil {
		return nil, err
	}

	html, err := l.page.Source(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read listing page: %w", err)
	}

	links, err := CollectLinks(html, startURL, l.cfg.StackSelector)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "scraped article urls from listing page", "count", len(links))
	return links, nil
}

// FeedLister lists article links from the site's RSS feed. It needs no
// browser but only sees as far back as the feed goes.
type FeedLister struct {
	feedURL string
	parser  *gofeed.Parser
}

// NewFeedLister creates a lister reading feedURL.
func NewFeedLister(feedURL string) *FeedLister {
	return &FeedLister{
		feedURL: feedURL,
		parser:  gofeed.NewParser(),
	}
}

// List returns feed item links in feed order. startURL is not used; the
// feed covers every category. For date conditions, items published at or
// before the cutoff are dropped.
func (l *FeedLister) List(ctx context.Context, _ string, stop article.StopCondition) ([]string, error) {
	feed, err := l.parser.ParseURLWithContext(l.feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	seen := make(map[string]bool)
	links := []string{}
	for _, item := range feed.Items {
		if item.Link == "" {
			continue
		}
		if stop.Kind() == article.StopByDate && item.PublishedParsed != nil &&
			!item.PublishedParsed.After(stop.Cutoff()) {
			continue
		}

		u, err := url.Parse(item.Link)
		if err != nil {
			continue
		}
		link := normalizeURL(u)
		if seen[link] {
			continue
		}
		seen[link] = true
		links = append(links, link)
	}

	slog.InfoContext(ctx, "scraped article urls from feed", "feed", l.feedURL, "count", len(links))
	return links, nil
}
