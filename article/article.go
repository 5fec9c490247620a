// Package article defines the article value produced by a scrape run and the
// stop conditions that bound a run.
package article

import (
	"slices"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// summaryWidth is the column width the summary is wrapped to when an article
// is rendered as a table.
const summaryWidth = 90

// Article is a single harvested news article. Articles are built once per
// fetched detail page and never modified afterwards.
type Article struct {
	// Seq is the position of the article within a run, starting at 1. It only
	// drives the count stop condition and is never stored.
	Seq        int
	Title      string
	Summary    string
	Authors    []string
	Link       string
	Tags       []string
	Published  time.Time
	Categories []string
}

// Fields holds the extracted values an Article is built from.
type Fields struct {
	Title      string
	Summary    string
	Authors    []string
	Link       string
	Tags       []string
	Published  time.Time
	Categories []string
}

// New builds an article with the given sequence number. Slices are copied so
// the article does not share backing arrays with the caller.
func New(seq int, f Fields) Article {
	return Article{
		Seq:        seq,
		Title:      f.Title,
		Summary:    f.Summary,
		Authors:    cloneOrEmpty(f.Authors),
		Link:       f.Link,
		Tags:       cloneOrEmpty(f.Tags),
		Published:  f.Published.Truncate(time.Minute),
		Categories: cloneOrEmpty(f.Categories),
	}
}

func cloneOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return slices.Clone(s)
}

// String renders the article as a two column table.
func (a Article) String() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", a.Seq})
	t.AppendRows([]table.Row{
		{"Title", a.Title},
		{"Summary", a.Summary},
		{"Author", strings.Join(a.Authors, ", ")},
		{"Categories", strings.Join(a.Categories, ", ")},
		{"Link", a.Link},
		{"Tags", strings.Join(a.Tags, ", ")},
		{"Date/Time Published", a.Published.Format("2006-01-02 15:04")},
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: summaryWidth, WidthMaxEnforcer: text.WrapSoft},
	})
	t.SetStyle(table.StyleLight)
	return t.Render()
}
