package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pevans/coinscrape/article"
	"github.com/pevans/coinscrape/config"
	"github.com/pevans/coinscrape/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: a sqlite store holding two articles and one run
func createTestStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(ctx, config.StorageConfig{
		Driver: config.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	p, err := store.NewPersister(st, 10)
	require.NoError(t, err)
	_, err = p.Persist(ctx, []article.Article{
		article.New(1, article.Fields{
			Title:     "Bitcoin Rallies",
			Summary:   "Prices rose.",
			Authors:   []string{"Alice"},
			Link:      "https://www.coindesk.com/markets/rally",
			Published: time.Date(2021, 11, 7, 10, 30, 0, 0, time.UTC),
		}),
		article.New(2, article.Fields{
			Title:     "Ether Slips",
			Summary:   "Prices fell.",
			Authors:   []string{"Bob"},
			Link:      "https://www.coindesk.com/markets/slip",
			Published: time.Date(2021, 11, 6, 9, 0, 0, 0, time.UTC),
		}),
	})
	require.NoError(t, err)

	id, err := st.BeginRun(ctx, "markets", article.ByCount(2))
	require.NoError(t, err)
	require.NoError(t, st.FinishRun(ctx, id, store.RunStats{Saved: 2}, store.RunSucceeded))

	return st
}

// TestExecute_Print verifies every table is printed with its rows
func TestExecute_Print(t *testing.T) {
	st := createTestStore(t)
	var out bytes.Buffer

	require.NoError(t, execute(context.Background(), st, &options{print: true}, &out))

	for _, name := range st.Tables() {
		assert.Contains(t, out.String(), name)
	}
	assert.Contains(t, out.String(), "Alice")
	assert.Contains(t, out.String(), "https://www.coindesk.com/markets/slip")
}

// TestExecute_ArticlesAndRuns verifies recent articles and runs are shown
func TestExecute_ArticlesAndRuns(t *testing.T) {
	st := createTestStore(t)
	var out bytes.Buffer

	require.NoError(t, execute(context.Background(), st, &options{articles: 1, runs: 5}, &out))

	assert.Contains(t, out.String(), "Bitcoin Rallies")
	assert.NotContains(t, out.String(), "Ether Slips")
	assert.Contains(t, out.String(), "num=2")
	assert.Contains(t, out.String(), store.RunSucceeded)
}

// TestExecute_Reset verifies reset empties the tables before printing
func TestExecute_Reset(t *testing.T) {
	st := createTestStore(t)
	var out bytes.Buffer

	require.NoError(t, execute(context.Background(), st, &options{reset: true, print: true}, &out))

	n, err := st.CountRows(context.Background(), "articles")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.NotContains(t, out.String(), "Alice")
}

// TestExecute_Delete verifies delete removes the tables
func TestExecute_Delete(t *testing.T) {
	st := createTestStore(t)

	require.NoError(t, execute(context.Background(), st, &options{drop: true}, &bytes.Buffer{}))

	_, err := st.CountRows(context.Background(), "articles")
	assert.Error(t, err)
}

// TestParseArgs verifies flags and aliases are parsed
func TestParseArgs(t *testing.T) {
	opts, err := parseArgs([]string{"-print", "-reset", "-username", "root", "-db", "news", "-runs", "3"})

	require.NoError(t, err)
	assert.True(t, opts.print)
	assert.True(t, opts.reset)
	assert.False(t, opts.drop)
	assert.Equal(t, "root", opts.user)
	assert.Equal(t, "news", opts.database)
	assert.Equal(t, 3, opts.runs)

	_, err = parseArgs([]string{"-print", "extra"})
	assert.Error(t, err)
}
