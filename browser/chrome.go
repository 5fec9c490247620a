// Package browser drives a headless Chrome through the DevTools protocol.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/pevans/coinscrape/listing"
)

// Options configure the Chrome process.
type Options struct {
	Headless bool
	// ExecPath overrides the Chrome binary; empty means auto-detect.
	ExecPath  string
	UserAgent string
}

// Chrome is a single browser tab implementing listing.Page.
type Chrome struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
}

var _ listing.Page = (*Chrome)(nil)

// NewChrome starts a browser and opens a blank tab.
func NewChrome(ctx context.Context, opts Options) (*Chrome, error) {
	allocOpts := append([]chromedp.ExecAllocatorOption{},
		chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts, chromedp.Flag("headless", opts.Headless))
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancel := chromedp.NewContext(allocCtx)

	// Run with no actions starts the browser so launch errors surface here.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &Chrome{
		ctx:         tabCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
	}, nil
}

// run executes actions in the tab, stopping early if ctx is done.
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(c.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	return c.run(ctx, chromedp.Navigate(url))
}

func (c *Chrome) FindAll(ctx context.Context, selector string) ([]listing.Element, error) {
	var nodes []*cdp.Node
	err := c.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
	if err != nil {
		return nil, err
	}

	elems := make([]listing.Element, len(nodes))
	for i, n := range nodes {
		elems[i] = &element{chrome: c, node: n}
	}
	return elems, nil
}

func (c *Chrome) WaitFor(ctx context.Context, selector string, timeout time.Duration) (listing.Element, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var nodes []*cdp.Node
	err := c.run(waitCtx, chromedp.Nodes(selector, &nodes, chromedp.ByQuery))
	if err != nil {
		if errors.Is(waitCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: %s after %s", listing.ErrWaitTimeout, selector, timeout)
		}
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: %s", listing.ErrWaitTimeout, selector)
	}

	return &element{chrome: c, node: nodes[0]}, nil
}

func (c *Chrome) Source(ctx context.Context) (string, error) {
	var html string
	if err := c.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// Close shuts the tab and the browser process.
func (c *Chrome) Close() error {
	c.cancel()
	c.allocCancel()
	return nil
}

type element struct {
	chrome *Chrome
	node   *cdp.Node
}

func (e *element) Text(ctx context.Context) (string, error) {
	var text string
	err := e.chrome.run(ctx, chromedp.Text([]cdp.NodeID{e.node.NodeID}, &text, chromedp.ByNodeID))
	return text, err
}

func (e *element) Click(ctx context.Context) error {
	return e.chrome.run(ctx, chromedp.MouseClickNode(e.node))
}
