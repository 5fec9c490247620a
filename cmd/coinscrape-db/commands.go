package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pevans/coinscrape/store"
)

// execute runs the requested maintenance steps in a fixed order: reset,
// print, articles, runs, delete.
func execute(ctx context.Context, st *store.Store, opts *options, w io.Writer) error {
	if opts.reset {
		if err := st.Reset(ctx); err != nil {
			return err
		}
		slog.InfoContext(ctx, "tables reset")
	}

	if opts.print {
		if err := printTables(ctx, st, w); err != nil {
			return err
		}
	}

	if opts.articles > 0 {
		if err := printArticles(ctx, st, opts.articles, w); err != nil {
			return err
		}
	}

	if opts.runs > 0 {
		if err := printRuns(ctx, st, opts.runs, w); err != nil {
			return err
		}
	}

	if opts.drop {
		if err := st.Drop(ctx); err != nil {
			return err
		}
		slog.InfoContext(ctx, "stored data deleted")
	}

	return nil
}

func printTables(ctx context.Context, st *store.Store, w io.Writer) error {
	for _, name := range st.Tables() {
		columns, rows, err := st.Dump(ctx, name)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetTitle("%s (%d rows)", name, len(rows))

		header := make(table.Row, len(columns))
		for i, c := range columns {
			header[i] = c
		}
		t.AppendHeader(header)

		for _, r := range rows {
			row := make(table.Row, len(r))
			for i, v := range r {
				row[i] = v
			}
			t.AppendRow(row)
		}

		t.SetStyle(table.StyleRounded)
		t.Render()
		fmt.Fprintln(w)
	}
	return nil
}

func printArticles(ctx context.Context, st *store.Store, limit int, w io.Writer) error {
	articles, err := st.ListArticles(ctx, limit)
	if err != nil {
		return err
	}
	for _, a := range articles {
		fmt.Fprintln(w, a.String())
		fmt.Fprintln(w)
	}
	return nil
}

func printRuns(ctx context.Context, st *store.Store, limit int, w io.Writer) error {
	runs, err := st.ListRuns(ctx, limit)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Run", "Category", "Stop", "Started", "Status", "Saved", "Duplicates"})
	for _, r := range runs {
		t.AppendRow(table.Row{
			r.ID.String()[:8],
			r.Category,
			r.Stop,
			r.StartedAt.Format("2006-01-02 15:04"),
			r.Status,
			r.Stats.Saved,
			r.Stats.Duplicates,
		})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}
