package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/use-agent/profilescout/render"
)

type rodElement struct {
	el      *rod.Element
	timeout time.Duration
}

var _ render.Element = (*rodElement)(nil)

func (s *Session) wrap(els rod.Elements) []render.Element {
	out := make([]render.Element, 0, len(els))
	for _, el := range els {
		out = append(out, &rodElement{el: el, timeout: s.actionTimeout})
	}
	return out
}

func (e *rodElement) Text() (string, error) {
	return e.el.Text()
}

func (e *rodElement) Attribute(name string) (string, bool, error) {
	v, err := e.el.Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *rodElement) Visible() bool {
	ok, err := e.el.Visible()
	return err == nil && ok
}

func (e *rodElement) Enabled() bool {
	disabled, err := e.el.Property("disabled")
	if err != nil {
		return false
	}
	return !disabled.Bool()
}

// Click scrolls the element into view and clicks it with the mouse. When the
// element is covered or detached it falls back to a DOM click.
func (e *rodElement) Click(ctx context.Context) error {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	el := e.el.Context(ctx)

	if err := el.ScrollIntoView(); err != nil {
		slog.Debug("scroll into view failed", "error", err)
	}
	err := el.Click(proto.InputMouseButtonLeft, 1)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	slog.Debug("mouse click failed, trying DOM click", "error", err)
	if _, evalErr := el.Eval(`() => this.click()`); evalErr != nil {
		return fmt.Errorf("scraper: click: %w", evalErr)
	}
	return nil
}

func (e *rodElement) Elements(css string) ([]render.Element, error) {
	els, err := e.el.Elements(css)
	if err != nil {
		return nil, fmt.Errorf("scraper: query %q: %w", css, err)
	}
	out := make([]render.Element, 0, len(els))
	for _, el := range els {
		out = append(out, &rodElement{el: el, timeout: e.timeout})
	}
	return out, nil
}
