package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/coinscrape/article"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCountRows_UnknownTable verifies only schema tables can be queried
func TestCountRows_UnknownTable(t *testing.T) {
	store := createTestStore(t)

	_, err := store.CountRows(context.Background(), "sqlite_master; DROP TABLE articles")
	assert.ErrorIs(t, err, ErrUnknownTable)
}

// TestDump verifies columns and row values are returned as text
func TestDump(t *testing.T) {
	p, store := createTestPersister(t, 10)
	_, err := p.Persist(context.Background(), testArticles(2))
	require.NoError(t, err)

	columns, rows, err := store.Dump(context.Background(), "authors")

	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, columns)
	assert.Equal(t, [][]string{{"1", "Author 1"}, {"2", "Author 2"}}, rows)
}

// TestListArticles verifies stored articles are rebuilt newest first with
// their linked names
func TestListArticles(t *testing.T) {
	p, store := createTestPersister(t, 10)
	articles := testArticles(3)
	_, err := p.Persist(context.Background(), articles)
	require.NoError(t, err)

	got, err := store.ListArticles(context.Background(), 2)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Seq)
	assert.Equal(t, articles[0].Link, got[0].Link)
	assert.Equal(t, articles[0].Summary, got[0].Summary)
	assert.Equal(t, []string{"Author 1"}, got[0].Authors)
	assert.Equal(t, []string{"Bitcoin"}, got[0].Tags)
	assert.Equal(t, []string{"Markets"}, got[0].Categories)
	assert.True(t, articles[0].Published.Equal(got[0].Published))
	assert.Equal(t, articles[1].Link, got[1].Link)
}

// TestReset verifies reset empties every table and keeps the schema usable
func TestReset(t *testing.T) {
	p, store := createTestPersister(t, 10)
	ctx := context.Background()
	_, err := p.Persist(ctx, testArticles(3))
	require.NoError(t, err)

	require.NoError(t, store.Reset(ctx))

	for _, table := range store.Tables() {
		assert.Equal(t, 0, countRows(t, store, table), table)
	}

	p.cache.Purge()
	result, err := p.Persist(ctx, testArticles(3))
	require.NoError(t, err)
	assert.Equal(t, 3, result.Saved)
}

// TestDrop verifies every table is removed
func TestDrop(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Drop(ctx))

	var n int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'").Scan(&n))
	assert.Equal(t, 0, n)
}

// TestRuns verifies a run is recorded and then finished
func TestRuns(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	stop := article.ByDate(time.Date(2021, 11, 1, 0, 0, 0, 0, time.UTC))

	id, err := store.BeginRun(ctx, "markets", stop)
	require.NoError(t, err)

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].ID)
	assert.Equal(t, RunRunning, runs[0].Status)
	assert.Equal(t, "date=2021-11-01", runs[0].Stop)
	assert.Nil(t, runs[0].FinishedAt)

	require.NoError(t, store.FinishRun(ctx, id, RunStats{Saved: 8, Duplicates: 2}, RunSucceeded))

	runs, err = store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, RunSucceeded, runs[0].Status)
	assert.Equal(t, RunStats{Saved: 8, Duplicates: 2}, runs[0].Stats)
	assert.NotNil(t, runs[0].FinishedAt)
}

// TestFinishRun_Unknown verifies finishing an unrecorded run is an error
func TestFinishRun_Unknown(t *testing.T) {
	store := createTestStore(t)

	err := store.FinishRun(context.Background(), uuid.New(), RunStats{}, RunFailed)
	assert.Error(t, err)
}
