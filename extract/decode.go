package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/coinscrape/article"
	"github.com/pevans/coinscrape/scraper"
)

// ErrSoftNotFound means the page loaded but carries no article, usually
// because the article was removed.
var ErrSoftNotFound = errors.New("page has no article data")

// DecodeError reports structured data that is present but not shaped like an
// article. It is fatal: it means the site changed, not that one article is
// missing.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed article data at %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ScrapedArticle holds the fields decoded from an article page before it is
// numbered and turned into an article.Article.
type ScrapedArticle struct {
	Link       string
	Title      string
	Summary    string
	Authors    []string
	Tags       []string
	Published  time.Time
	Categories []string
}

// ToArticle converts a scraped article into an article numbered seq.
func (s ScrapedArticle) ToArticle(seq int) article.Article {
	return article.New(seq, article.Fields{
		Title:      s.Title,
		Summary:    s.Summary,
		Authors:    s.Authors,
		Link:       s.Link,
		Tags:       s.Tags,
		Published:  s.Published,
		Categories: s.Categories,
	})
}

// nextData is the part of the Next.js page state that holds the article.
type nextData struct {
	Props *struct {
		InitialProps *struct {
			PageProps map[string]json.RawMessage `json:"pageProps"`
		} `json:"initialProps"`
	} `json:"props"`
}

// Pointer fields tell an absent key apart from an empty value.
type named struct {
	Name *string `json:"name"`
}

type payload struct {
	Headline  *string `json:"headline"`
	Excerpt   *string `json:"excerpt"`
	Authors   []named `json:"authors"`
	Tags      []named `json:"tags"`
	Published string  `json:"published"`
	Taxonomy  *struct {
		Category json.RawMessage `json:"category"`
	} `json:"taxonomy"`
}

// DecodeArticle reads the article embedded in an article page. It returns an
// error wrapping ErrSoftNotFound when the page state has no data key, and a
// *DecodeError when the state is missing or malformed.
func DecodeArticle(body []byte, link string, cfg scraper.ArticleConfig) (*ScrapedArticle, error) {
	malformed := func(format string, args ...any) error {
		return &DecodeError{URL: link, Err: fmt.Errorf(format, args...)}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, malformed("failed to parse HTML: %w", err)
	}

	selector := fmt.Sprintf(`script#%s[type=%q]`, cfg.ScriptID, cfg.ScriptType)
	script := doc.Find(selector).First()
	if script.Length() == 0 {
		return nil, malformed("no %s script", cfg.ScriptID)
	}

	var state nextData
	if err := json.Unmarshal([]byte(script.Text()), &state); err != nil {
		return nil, malformed("failed to decode page state: %w", err)
	}
	if state.Props == nil || state.Props.InitialProps == nil || state.Props.InitialProps.PageProps == nil {
		return nil, malformed("missing props.initialProps.pageProps")
	}

	data, ok := state.Props.InitialProps.PageProps["data"]
	if !ok || isNull(data) {
		return nil, fmt.Errorf("%w: %s", ErrSoftNotFound, link)
	}

	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, malformed("failed to decode article: %w", err)
	}
	if p.Headline == nil {
		return nil, malformed("missing headline")
	}
	if p.Excerpt == nil {
		return nil, malformed("missing excerpt")
	}

	if p.Authors == nil {
		return nil, malformed("missing authors")
	}
	authors, err := names(p.Authors)
	if err != nil {
		return nil, malformed("bad authors: %w", err)
	}
	if p.Tags == nil {
		return nil, malformed("missing tags")
	}
	tags, err := names(p.Tags)
	if err != nil {
		return nil, malformed("bad tags: %w", err)
	}

	published, err := time.Parse(cfg.PublishedLayout, p.Published)
	if err != nil {
		return nil, malformed("bad published time: %w", err)
	}

	if p.Taxonomy == nil || len(p.Taxonomy.Category) == 0 {
		return nil, malformed("missing taxonomy.category")
	}
	categories, err := categoryNames(p.Taxonomy.Category)
	if err != nil {
		return nil, malformed("bad taxonomy.category: %w", err)
	}

	return &ScrapedArticle{
		Link:       link,
		Title:      *p.Headline,
		Summary:    *p.Excerpt,
		Authors:    authors,
		Tags:       tags,
		Published:  published,
		Categories: categories,
	}, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

var errNoName = errors.New("entry without name")

// names returns the non-empty names, failing on an entry with no name key.
func names(items []named) ([]string, error) {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item.Name == nil {
			return nil, errNoName
		}
		if *item.Name != "" {
			out = append(out, *item.Name)
		}
	}
	return out, nil
}

// categoryNames accepts the shapes the category has taken: a single name, an
// object with a name, or a list of either.
func categoryNames(raw json.RawMessage) ([]string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}

	out := []string{}
	add := func(item any) error {
		switch x := item.(type) {
		case nil:
		case string:
			if x != "" {
				out = append(out, x)
			}
		case map[string]any:
			name, ok := x["name"].(string)
			if !ok {
				return fmt.Errorf("category object without name")
			}
			if name != "" {
				out = append(out, name)
			}
		default:
			return fmt.Errorf("unexpected category type %T", item)
		}
		return nil
	}

	if list, ok := v.([]any); ok {
		for _, item := range list {
			if err := add(item); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	if err := add(v); err != nil {
		return nil, err
	}
	return out, nil
}
