package render

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotFound is returned by MapFetcher for URLs it has no page for.
var ErrNotFound = errors.New("render: page not found")

// Fetcher retrieves the raw markup of a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// MapFetcher serves pages from memory. It backs fixtures and tests.
type MapFetcher struct {
	// Pages maps absolute URL to HTML.
	Pages map[string]string

	// Delays optionally holds a per-URL latency. A fetch whose delay
	// outlives ctx fails with ctx's error.
	Delays map[string]time.Duration

	mu    sync.Mutex
	calls map[string]int
}

// Fetch returns the page registered for url.
func (f *MapFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[url]++
	f.mu.Unlock()

	if d := f.Delays[url]; d > 0 {
		if err := Settle(ctx, d); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page, ok := f.Pages[url]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	}
	return []byte(page), nil
}

// Calls reports how many times url was fetched.
func (f *MapFetcher) Calls(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}
