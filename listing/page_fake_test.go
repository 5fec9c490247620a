package listing

import (
	"context"
	"fmt"
	"time"
)

// fakeElement is an in-memory element.
type fakeElement struct {
	text    string
	onClick func()
}

func (e *fakeElement) Text(context.Context) (string, error) { return e.text, nil }

func (e *fakeElement) Click(context.Context) error {
	if e.onClick != nil {
		e.onClick()
	}
	return nil
}

// fakePage simulates a listing that reveals one more page of previews per
// click of the reveal control.
type fakePage struct {
	navigated string
	// pages holds the date labels of each page of previews; pages[0] is
	// visible on load.
	pages    [][]string
	revealed int
	clicks   int
	noMore   bool
	html     string
	closed   bool
}

func newFakePage(pages ...[]string) *fakePage {
	return &fakePage{pages: pages, revealed: 1}
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.navigated = url
	return nil
}

func (p *fakePage) labels() []string {
	var out []string
	for _, page := range p.pages[:p.revealed] {
		out = append(out, page...)
	}
	return out
}

func (p *fakePage) FindAll(_ context.Context, selector string) ([]Element, error) {
	switch selector {
	case ".text-content", ".time":
		var out []Element
		for _, label := range p.labels() {
			out = append(out, &fakeElement{text: label})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected selector %q", selector)
	}
}

func (p *fakePage) WaitFor(_ context.Context, selector string, timeout time.Duration) (Element, error) {
	if selector != ".cta-story-stack" {
		return nil, fmt.Errorf("unexpected selector %q", selector)
	}
	if p.noMore || p.revealed >= len(p.pages) {
		return nil, fmt.Errorf("%w after %s", ErrWaitTimeout, timeout)
	}
	return &fakeElement{onClick: func() {
		p.clicks++
		p.revealed++
	}}, nil
}

func (p *fakePage) Source(context.Context) (string, error) { return p.html, nil }

func (p *fakePage) Close() error {
	p.closed = true
	return nil
}
