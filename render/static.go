package render

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/use-agent/profilescout/tree"
)

// StaticRenderer renders pages without executing JavaScript. Markup comes
// from a Fetcher and is queried with goquery. Anchor clicks navigate to the
// resolved href, which is enough to follow server-rendered pagination.
type StaticRenderer struct {
	fetcher    Fetcher
	navTimeout time.Duration

	url    string
	source string
	doc    *goquery.Document
}

// NewStaticRenderer creates a renderer over fetcher. A zero navTimeout
// leaves page loads bounded only by the caller's context.
func NewStaticRenderer(fetcher Fetcher, navTimeout time.Duration) *StaticRenderer {
	return &StaticRenderer{fetcher: fetcher, navTimeout: navTimeout}
}

// Navigate fetches and parses rawURL.
func (r *StaticRenderer) Navigate(ctx context.Context, rawURL string) error {
	if r.navTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.navTimeout)
		defer cancel()
	}

	body, err := r.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return CategorizeError(err, "navigation to target URL failed")
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return CategorizeError(err, "failed to parse page HTML")
	}
	if u, err := url.Parse(rawURL); err == nil {
		doc.Url = u
	}

	r.url = rawURL
	r.source = string(body)
	r.doc = doc
	return nil
}

// Source returns the fetched markup.
func (r *StaticRenderer) Source(context.Context) (string, error) {
	if r.doc == nil {
		return "", ErrNoPage
	}
	return r.source, nil
}

// Text returns the visible text of the page.
func (r *StaticRenderer) Text(context.Context) (string, error) {
	if r.doc == nil {
		return "", ErrNoPage
	}
	if len(r.doc.Nodes) == 0 {
		return "", nil
	}
	return nodeText(r.doc.Nodes[0]), nil
}

// Elements returns the elements matching css in document order.
func (r *StaticRenderer) Elements(_ context.Context, css string) ([]Element, error) {
	if r.doc == nil {
		return nil, ErrNoPage
	}
	return r.find(r.doc.Selection, css)
}

func (r *StaticRenderer) find(scope *goquery.Selection, css string) ([]Element, error) {
	sel, err := compileSelector(css)
	if err != nil {
		return nil, err
	}
	matched := scope.FindMatcher(sel)
	out := make([]Element, 0, matched.Length())
	matched.Each(func(_ int, s *goquery.Selection) {
		out = append(out, &staticElement{r: r, sel: s})
	})
	return out, nil
}

// Run answers the named scripts from the markup.
func (r *StaticRenderer) Run(_ context.Context, script Script) (*tree.Node, error) {
	if r.doc == nil {
		return nil, ErrNoPage
	}
	switch script {
	case ScriptClientState:
		return clientState(r.doc)
	case ScriptDocumentHeight:
		return &tree.Node{Kind: tree.Number, Value: strconv.Itoa(len(r.source))}, nil
	case ScriptScrollToBottom:
		return &tree.Node{Kind: tree.Null}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScript, script)
	}
}

// CurrentURL returns the URL of the last successful navigation.
func (r *StaticRenderer) CurrentURL(context.Context) string {
	return r.url
}

type staticElement struct {
	r   *StaticRenderer
	sel *goquery.Selection
}

func (e *staticElement) node() *html.Node {
	if len(e.sel.Nodes) == 0 {
		return nil
	}
	return e.sel.Nodes[0]
}

func (e *staticElement) Text() (string, error) {
	n := e.node()
	if n == nil {
		return "", nil
	}
	return nodeText(n), nil
}

func (e *staticElement) Attribute(name string) (string, bool, error) {
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

func (e *staticElement) Visible() bool {
	n := e.node()
	return n != nil && !hiddenInTree(n)
}

func (e *staticElement) Enabled() bool {
	_, disabled := e.sel.Attr("disabled")
	return !disabled
}

// Click follows the element's own href, that of its closest enclosing
// anchor, or failing both the first anchor inside it.
func (e *staticElement) Click(ctx context.Context) error {
	link := e.sel
	if n := e.node(); n == nil || n.DataAtom != atom.A {
		link = e.sel.Closest("a[href]")
		if link.Length() == 0 {
			link = e.sel.Find("a[href]").First()
		}
	}
	href, ok := link.Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ErrNotInteractive
	}

	base, err := url.Parse(e.r.url)
	if err != nil {
		return fmt.Errorf("render: click: parse current URL: %w", err)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return fmt.Errorf("render: click: parse href %q: %w", href, err)
	}
	return e.r.Navigate(ctx, base.ResolveReference(ref).String())
}

func (e *staticElement) Elements(css string) ([]Element, error) {
	return e.r.find(e.sel, css)
}

// stateGlobals are the inline script assignments that carry application
// state, in lookup order after __NUXT__.
var stateGlobals = []string{"__INITIAL_STATE__", "__PRELOADED_STATE__", "__APOLLO_STATE__"}

var reStateAssign = regexp.MustCompile(`\b(__NUXT__|__INITIAL_STATE__|__PRELOADED_STATE__|__APOLLO_STATE__)\s*=\s*`)

// clientState mirrors the browser-side lookup: Nuxt data first, then the
// Next.js payload, then generic state globals. It returns nil when the page
// embeds none of them.
func clientState(doc *goquery.Document) (*tree.Node, error) {
	literals := make(map[string]*tree.Node)
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if _, external := s.Attr("src"); external {
			return
		}
		if id, _ := s.Attr("id"); id == "__NEXT_DATA__" {
			return
		}
		body := s.Text()
		for _, loc := range reStateAssign.FindAllStringSubmatchIndex(body, -1) {
			name := body[loc[2]:loc[3]]
			if _, seen := literals[name]; seen {
				continue
			}
			lit, ok := balancedLiteral(body[loc[1]:])
			if !ok {
				continue
			}
			if n, err := tree.ParseLenient([]byte(lit)); err == nil {
				literals[name] = n
			}
		}
	})

	if n, ok := literals["__NUXT__"]; ok {
		if data, ok := n.Get("data"); ok {
			return data, nil
		}
		return n, nil
	}

	if next := doc.Find(`script#__NEXT_DATA__`).First(); next.Length() > 0 {
		n, err := tree.Parse([]byte(next.Text()))
		if err != nil {
			return nil, fmt.Errorf("render: __NEXT_DATA__: %w", err)
		}
		if props, ok := n.Get("props"); ok {
			return props, nil
		}
		return n, nil
	}

	for _, name := range stateGlobals {
		if n, ok := literals[name]; ok {
			return n, nil
		}
	}
	return nil, nil
}

// balancedLiteral returns the object or array literal at the start of s,
// honouring nesting and quoted strings.
func balancedLiteral(s string) (string, bool) {
	if s == "" || (s[0] != '{' && s[0] != '[') {
		return "", false
	}
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}
