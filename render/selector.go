package render

import (
	"fmt"
	"sync"

	"github.com/andybalholm/cascadia"
)

var selectorCache sync.Map // string -> cascadia.Selector

// compileSelector parses a CSS selector group once and reuses the result.
func compileSelector(css string) (cascadia.Selector, error) {
	if cached, ok := selectorCache.Load(css); ok {
		return cached.(cascadia.Selector), nil
	}
	sel, err := cascadia.Compile(css)
	if err != nil {
		return nil, fmt.Errorf("render: invalid selector %q: %w", css, err)
	}
	selectorCache.Store(css, sel)
	return sel, nil
}
