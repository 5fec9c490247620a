package scraper

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// DefaultBaseURL is the site every category path is resolved against.
const DefaultBaseURL = "https://www.coindesk.com"

// DefaultFeedURL is the site-wide RSS feed used when listing from the feed
// instead of the browser.
const DefaultFeedURL = DefaultBaseURL + "/arc/outboundfeeds/rss/"

// categoryPaths maps a category name accepted on the command line to the path
// of its listing page.
var categoryPaths = map[string]string{
	"latest":     "/news",
	"tech":       "/category/tech",
	"business":   "/category/business",
	"people":     "/category/people",
	"regulation": "/category/policy-regulation",
	"features":   "/features",
	"markets":    "/markets",
	"opinion":    "/opinion",
}

// Categories returns the accepted category names in sorted order.
func Categories() []string {
	names := make([]string, 0, len(categoryPaths))
	for name := range categoryPaths {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// CategoryURL returns the listing page URL of a category. The name is matched
// case-insensitively.
func CategoryURL(baseURL, category string) (string, error) {
	path, ok := categoryPaths[strings.ToLower(category)]
	if !ok {
		return "", fmt.Errorf("unknown category %q (choose from %s)",
			category, strings.Join(Categories(), ", "))
	}
	return strings.TrimRight(baseURL, "/") + path, nil
}

// ListConfig defines how the listing page is paginated and read.
type ListConfig struct {
	// StackSelector is the container holding the article previews.
	StackSelector string
	// ItemSelector matches one revealed article preview.
	ItemSelector string
	// DateSelector matches the publication-date label of a preview.
	DateSelector string
	// MoreSelector matches the "load more" control.
	MoreSelector string
	// DateLayout is the Go layout of absolute date labels.
	DateLayout    string
	RevealTimeout time.Duration
	RevealPause   time.Duration
}

// NewListConfig creates a list configuration with the CoinDesk selectors.
func NewListConfig() ListConfig {
	return ListConfig{
		StackSelector: "div.story-stack",
		ItemSelector:  ".text-content",
		DateSelector:  ".time",
		MoreSelector:  ".cta-story-stack",
		DateLayout:    "Jan 2, 2006",
		RevealTimeout: 10 * time.Second,
		RevealPause:   1 * time.Second,
	}
}

// ArticleConfig defines where the structured data lives on an article page.
type ArticleConfig struct {
	ScriptID   string
	ScriptType string
	// PublishedLayout is the Go layout of the payload's publication time.
	PublishedLayout string
}

// NewArticleConfig creates an article configuration for Next.js pages.
func NewArticleConfig() ArticleConfig {
	return ArticleConfig{
		ScriptID:        "__NEXT_DATA__",
		ScriptType:      "application/json",
		PublishedLayout: "2006-01-02T15:04:05",
	}
}
