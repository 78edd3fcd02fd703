// Package renderer abstracts "open this url and give me its content tree".
// The scraping heuristics never talk to a transport directly; they receive
// a domtree produced by one of the implementations below.
package renderer

import (
	"context"

	"duesoon-backend/lib/domtree"
)

// Page is a rendered page handle. Close releases whatever resource backs
// it (a browser tab, a cache pin); it must always be called.
type Page interface {
	URL() string
	Root() *domtree.Node
	Close() error
}

type Renderer interface {
	Render(ctx context.Context, url string) (Page, error)
}

// WithPage renders a url, hands the page to fn and guarantees the page is
// closed even when fn fails.
func WithPage(ctx context.Context, r Renderer, url string, fn func(Page) error) error {
	page, err := r.Render(ctx, url)
	if err != nil {
		return err
	}
	defer page.Close()
	return fn(page)
}
