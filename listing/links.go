package listing

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/PuerkitoBio/purell"
)

// CollectLinks returns the article URLs of a fully revealed listing. Only
// titled anchors inside the listing container whose href is a single
// absolute path segment (such as "/some-article") count as articles. Links
// are resolved against baseURL, normalized, and deduplicated in document
// order.
func CollectLinks(html, baseURL, stackSelector string) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	stack := doc.Find(stackSelector).First()
	if stack.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoListing, stackSelector)
	}

	seen := make(map[string]bool)
	links := []string{}
	stack.Find("a[title]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || !isArticlePath(href) {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}

		link := normalizeURL(base.ResolveReference(ref))
		if seen[link] {
			return
		}
		seen[link] = true
		links = append(links, link)
	})

	return links, nil
}

// isArticlePath reports whether href has exactly one path segment.
func isArticlePath(href string) bool {
	return strings.HasPrefix(href, "/") && strings.Count(href, "/") == 1 && len(href) > 1
}

func normalizeURL(u *url.URL) string {
	return purell.NormalizeURL(u, purell.FlagsSafe|purell.FlagRemoveFragment)
}
