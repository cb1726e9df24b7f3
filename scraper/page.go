package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"github.com/use-agent/profilescout/models"
	"github.com/use-agent/profilescout/render"
	"github.com/use-agent/profilescout/tree"
)

var _ render.Renderer = (*Session)(nil)

// Navigate loads rawURL in the session's page and waits for the load event
// and a stable DOM. The navigation timeout bounds the whole sequence.
func (s *Session) Navigate(ctx context.Context, rawURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return err
	}

	if s.navTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.navTimeout)
		defer cancel()
	}

	if u, err := url.Parse(rawURL); err == nil {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(map[string]string{
				"Referer": u.Scheme + "://" + u.Host + "/",
			}),
		}.Call(s.page)
	}

	p := s.page.Context(ctx)
	if err := p.Navigate(rawURL); err != nil {
		return render.CategorizeError(err, "navigation to target URL failed")
	}
	if err := p.WaitLoad(); err != nil {
		return render.CategorizeError(err, "page did not finish loading")
	}
	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM",
			"url", rawURL,
			"error", err,
		)
	}
	return nil
}

// Source returns the rendered HTML.
func (s *Session) Source(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return "", err
	}
	html, err := s.page.Context(ctx).HTML()
	if err != nil {
		return "", render.CategorizeError(err, "failed to extract page HTML")
	}
	return html, nil
}

// Text returns the body's innerText.
func (s *Session) Text(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return "", err
	}
	res, err := s.actionPage(ctx).Eval(bodyTextJS)
	if err != nil {
		return "", fmt.Errorf("scraper: read body text: %w", err)
	}
	return res.Value.Str(), nil
}

// Elements returns the elements currently matching css. It does not wait
// for matches to appear.
func (s *Session) Elements(ctx context.Context, css string) ([]render.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return nil, err
	}
	els, err := s.page.Context(ctx).Elements(css)
	if err != nil {
		return nil, fmt.Errorf("scraper: query %q: %w", css, err)
	}
	return s.wrap(els), nil
}

// Run evaluates a named script. A client_state lookup that finds nothing
// yields a nil node.
func (s *Session) Run(ctx context.Context, script render.Script) (*tree.Node, error) {
	js, ok := scripts[script]
	if !ok {
		return nil, fmt.Errorf("%w: %s", render.ErrUnsupportedScript, script)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return nil, err
	}
	res, err := s.actionPage(ctx).Eval(js)
	if err != nil {
		return nil, fmt.Errorf("scraper: run %s: %w", script, err)
	}
	n, err := tree.Parse([]byte(res.Value.Str()))
	if err != nil {
		return nil, fmt.Errorf("scraper: decode %s result: %w", script, err)
	}
	if script == render.ScriptClientState && n.Kind == tree.Null {
		return nil, nil
	}
	return n, nil
}

// CurrentURL returns the page location, or "" when it cannot be read.
func (s *Session) CurrentURL(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.usable() != nil {
		return ""
	}
	res, err := s.actionPage(ctx).Eval(currentURLJS)
	if err != nil {
		return ""
	}
	if u := res.Value.Str(); u != "about:blank" {
		return u
	}
	return ""
}

func (s *Session) usable() error {
	if s.closed || s.page == nil {
		return models.NewScrapeError(models.ErrCodeBrowserCrash, "browser session is closed", nil)
	}
	return nil
}

// actionPage binds ctx and the action timeout to the page.
func (s *Session) actionPage(ctx context.Context) *rod.Page {
	if s.actionTimeout <= 0 {
		return s.page.Context(ctx)
	}
	return s.page.Context(ctx).Timeout(s.actionTimeout)
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
