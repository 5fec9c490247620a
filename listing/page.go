// Package listing reveals and reads the article listing of a category page.
package listing

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrWaitTimeout is returned by Page.WaitFor when nothing matched the
	// selector before the timeout.
	ErrWaitTimeout = errors.New("timed out waiting for element")
	// ErrRevealTimeout means the reveal control did not show up in time.
	// Callers treat it as fatal.
	ErrRevealTimeout = errors.New("articles did not load in time")
	// ErrNoListing means the listing container is missing from the page.
	ErrNoListing = errors.New("listing container not found")
)

// Element is a node on a live page.
type Element interface {
	Text(ctx context.Context) (string, error)
	Click(ctx context.Context) error
}

// Page is a live, stateful browser page. Implementations are not safe for
// concurrent use.
type Page interface {
	Navigate(ctx context.Context, url string) error
	// FindAll returns every element currently matching selector, possibly
	// none, without waiting.
	FindAll(ctx context.Context, selector string) ([]Element, error)
	// WaitFor blocks until an element matches selector. It returns an error
	// wrapping ErrWaitTimeout once timeout elapses.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, error)
	// Source returns the current document HTML.
	Source(ctx context.Context) (string, error)
	Close() error
}
