package listing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pevans/coinscrape/article"
	"github.com/pevans/coinscrape/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBrowserLister_List verifies navigation, reveal and link collection
func TestBrowserLister_List(t *testing.T) {
	page := newFakePage(repeat("Today", 2), repeat("Today", 2))
	page.html = listingHTML
	cfg := scraper.NewListConfig()
	cfg.RevealPause = 0
	lister := NewBrowserLister(page, NewPaginator(page, cfg, time.UTC), cfg)

	links, err := lister.List(context.Background(), "https://www.coindesk.com/news", article.ByCount(3))

	require.NoError(t, err)
	assert.Equal(t, "https://www.coindesk.com/news", page.navigated)
	assert.Equal(t, 1, page.clicks)
	assert.Len(t, links, 3)
}

// TestBrowserLister_RevealTimeout verifies reveal errors propagate
func TestBrowserLister_RevealTimeout(t *testing.T) {
	page := newFakePage(repeat("Today", 1))
	page.noMore = true
	cfg := scraper.NewListConfig()
	lister := NewBrowserLister(page, NewPaginator(page, cfg, time.UTC), cfg)

	_, err := lister.List(context.Background(), "https://www.coindesk.com/news", article.ByCount(5))

	assert.ErrorIs(t, err, ErrRevealTimeout)
}

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>CoinDesk</title>
<item><title>A</title><link>https://www.coindesk.com/markets/2021/11/10/a/</link><pubDate>Wed, 10 Nov 2021 12:00:00 +0000</pubDate></item>
<item><title>A dup</title><link>https://www.coindesk.com/markets/2021/11/10/a/#x</link><pubDate>Wed, 10 Nov 2021 12:00:00 +0000</pubDate></item>
<item><title>B</title><link>https://www.coindesk.com/tech/2021/11/08/b/</link><pubDate>Mon, 08 Nov 2021 12:00:00 +0000</pubDate></item>
<item><title>C</title><link>https://www.coindesk.com/tech/2021/11/05/c/</link><pubDate>Fri, 05 Nov 2021 12:00:00 +0000</pubDate></item>
</channel></rss>`

func serveFeed(t *testing.T) string {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(testFeed))
	}))
	t.Cleanup(server.Close)
	return server.URL
}

// TestFeedLister_ByCount verifies all feed links are listed in order
func TestFeedLister_ByCount(t *testing.T) {
	lister := NewFeedLister(serveFeed(t))

	links, err := lister.List(context.Background(), "", article.ByCount(2))

	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://www.coindesk.com/markets/2021/11/10/a/",
		"https://www.coindesk.com/tech/2021/11/08/b/",
		"https://www.coindesk.com/tech/2021/11/05/c/",
	}, links)
}

// TestFeedLister_ByDate verifies items at or before the cutoff are dropped
func TestFeedLister_ByDate(t *testing.T) {
	lister := NewFeedLister(serveFeed(t))
	cutoff := time.Date(2021, 11, 6, 0, 0, 0, 0, time.UTC)

	links, err := lister.List(context.Background(), "", article.ByDate(cutoff))

	require.NoError(t, err)
	assert.Len(t, links, 2)
}
