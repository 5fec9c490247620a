package listing

import (
	"context"
	"testing"
	"time"

	"github.com/pevans/coinscrape/article"
	"github.com/pevans/coinscrape/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: a paginator with no pause and a fixed clock
func createTestPaginator(page Page, now time.Time) *Paginator {
	cfg := scraper.NewListConfig()
	cfg.RevealPause = 0
	p := NewPaginator(page, cfg, time.UTC)
	p.now = func() time.Time { return now }
	return p
}

func repeat(label string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = label
	}
	return out
}

// TestReveal_ByCount_ClicksUntilTarget verifies the count policy stops once
// enough previews are visible
func TestReveal_ByCount_ClicksUntilTarget(t *testing.T) {
	page := newFakePage(repeat("Today", 3), repeat("Today", 3), repeat("Today", 3), repeat("Today", 3))
	p := createTestPaginator(page, time.Now())

	err := p.Reveal(context.Background(), article.ByCount(7))

	require.NoError(t, err)
	assert.Equal(t, 2, page.clicks, "3 -> 6 -> 9 previews")
}

// TestReveal_ByCount_AlreadyEnough verifies no click happens when the first
// page suffices
func TestReveal_ByCount_AlreadyEnough(t *testing.T) {
	page := newFakePage(repeat("Today", 5), repeat("Today", 5))
	p := createTestPaginator(page, time.Now())

	err := p.Reveal(context.Background(), article.ByCount(5))

	require.NoError(t, err)
	assert.Equal(t, 0, page.clicks)
}

// TestReveal_ByDate_ClicksPastCutoff verifies the date policy reveals until
// the last label is at or before the cutoff
func TestReveal_ByDate_ClicksPastCutoff(t *testing.T) {
	now := time.Date(2021, 11, 10, 15, 0, 0, 0, time.UTC)
	page := newFakePage(
		[]string{"Today", "Yesterday"},
		[]string{"Nov 8, 2021", "Nov 07, 2021"},
		[]string{"Nov 5, 2021"},
		[]string{"Nov 1, 2021"},
	)
	p := createTestPaginator(page, now)

	err := p.Reveal(context.Background(), article.ByDate(time.Date(2021, 11, 6, 0, 0, 0, 0, time.UTC)))

	require.NoError(t, err)
	assert.Equal(t, 2, page.clicks, "stops once Nov 5 is visible")
}

// TestReveal_ByDate_BoundaryStops verifies a label equal to the cutoff ends
// pagination
func TestReveal_ByDate_BoundaryStops(t *testing.T) {
	now := time.Date(2021, 11, 10, 15, 0, 0, 0, time.UTC)
	page := newFakePage([]string{"Today", "Nov 9, 2021"}, []string{"Nov 8, 2021"})
	p := createTestPaginator(page, now)

	err := p.Reveal(context.Background(), article.ByDate(time.Date(2021, 11, 9, 0, 0, 0, 0, time.UTC)))

	require.NoError(t, err)
	assert.Equal(t, 0, page.clicks)
}

// TestReveal_ByDate_ResolvesAtReadTime verifies relative labels use the
// clock at each read, not at start
func TestReveal_ByDate_ResolvesAtReadTime(t *testing.T) {
	cutoff := time.Date(2021, 11, 9, 0, 0, 0, 0, time.UTC)
	page := newFakePage([]string{"Today"}, []string{"Yesterday"}, []string{"Nov 9, 2021"})
	p := createTestPaginator(page, time.Time{})

	// The run starts just before midnight and crosses into the next day, so
	// the second read sees "Yesterday" as Nov 10 rather than Nov 9.
	times := []time.Time{
		time.Date(2021, 11, 10, 23, 59, 0, 0, time.UTC),
		time.Date(2021, 11, 11, 0, 1, 0, 0, time.UTC),
	}
	calls := 0
	p.now = func() time.Time {
		calls++
		return times[min(calls, len(times))-1]
	}

	err := p.Reveal(context.Background(), article.ByDate(cutoff))

	require.NoError(t, err)
	assert.Equal(t, 2, page.clicks)
	assert.Equal(t, 3, calls, "clock read on every iteration")
}

// TestReveal_Timeout verifies a missing reveal control is reported as a
// reveal timeout
func TestReveal_Timeout(t *testing.T) {
	page := newFakePage(repeat("Today", 3))
	page.noMore = true
	p := createTestPaginator(page, time.Now())

	err := p.Reveal(context.Background(), article.ByCount(10))

	require.ErrorIs(t, err, ErrRevealTimeout)
	assert.ErrorIs(t, err, ErrWaitTimeout)
}

// TestReveal_BadLabel verifies an unparsable date label is an error
func TestReveal_BadLabel(t *testing.T) {
	page := newFakePage([]string{"sometime"})
	p := createTestPaginator(page, time.Now())

	err := p.Reveal(context.Background(), article.ByDate(time.Now().AddDate(0, 0, -3)))

	assert.ErrorContains(t, err, "failed to parse date label")
}

// TestReveal_PauseHonorsContext verifies the pause after a click stops on
// cancellation
func TestReveal_PauseHonorsContext(t *testing.T) {
	page := newFakePage(repeat("Today", 1), repeat("Today", 1))
	cfg := scraper.NewListConfig()
	cfg.RevealPause = time.Hour
	p := NewPaginator(page, cfg, time.UTC)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.Reveal(ctx, article.ByCount(2))

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
