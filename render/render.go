// Package render defines the page-rendering capability the crawler depends
// on, plus a static HTML implementation of it.
//
// The browser-backed implementation lives in package scraper.
package render

import (
	"context"
	"errors"
	"time"

	"github.com/use-agent/profilescout/models"
	"github.com/use-agent/profilescout/tree"
)

// Script names a piece of page-side logic a Renderer knows how to run.
// Renderers without a JavaScript engine answer these natively.
type Script string

const (
	// ScriptClientState returns the page's embedded application state
	// (Nuxt, Next.js, Redux or Apollo payloads), or null when absent.
	ScriptClientState Script = "client_state"

	// ScriptDocumentHeight returns the scrollable height of the document as
	// a number.
	ScriptDocumentHeight Script = "document_height"

	// ScriptScrollToBottom scrolls the viewport to the end of the document
	// and returns null.
	ScriptScrollToBottom Script = "scroll_to_bottom"
)

var (
	// ErrUnsupportedScript is returned by Run for scripts a renderer cannot
	// evaluate.
	ErrUnsupportedScript = errors.New("render: unsupported script")

	// ErrNotInteractive is returned by Click when the element has no
	// behaviour the renderer can reproduce.
	ErrNotInteractive = errors.New("render: element is not interactive")

	// ErrNoPage is returned by page reads before the first Navigate.
	ErrNoPage = errors.New("render: no page loaded")
)

// Renderer drives a single page. Implementations are not required to be
// safe for concurrent use.
type Renderer interface {
	// Navigate loads url, replacing the current page.
	Navigate(ctx context.Context, url string) error

	// Source returns the current page's markup.
	Source(ctx context.Context) (string, error)

	// Text returns the visible body text, one block element per line.
	Text(ctx context.Context) (string, error)

	// Elements returns every element matching the CSS selector, in
	// document order.
	Elements(ctx context.Context, css string) ([]Element, error)

	// Run evaluates a named script and returns its structured result.
	Run(ctx context.Context, script Script) (*tree.Node, error)

	// CurrentURL returns the URL of the loaded page, or "" before the
	// first navigation.
	CurrentURL(ctx context.Context) string
}

// Element is a handle on one node of the current page.
type Element interface {
	Text() (string, error)
	Attribute(name string) (value string, ok bool, err error)
	Visible() bool
	Enabled() bool
	Click(ctx context.Context) error
	Elements(css string) ([]Element, error)
}

// Settle waits for d or until ctx is done, whichever comes first.
func Settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// CategorizeError wraps raw errors into typed ScrapeErrors so callers can
// tell a page-load timeout from any other navigation failure.
func CategorizeError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}
