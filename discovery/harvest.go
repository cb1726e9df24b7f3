package discovery

import (
	"context"
	"regexp"
	"strings"

	"github.com/use-agent/profilescout/render"
)

type harvester struct {
	name string
	fn   func(ctx context.Context, r render.Renderer) ([]string, error)
}

func defaultHarvesters(opts Options) []harvester {
	marker := regexp.QuoteMeta(opts.Marker)
	detail := regexp.MustCompile(marker + `\d+`)
	quoted := regexp.MustCompile(`["']([^"']*?` + marker + `\d+)["']`)
	bare := regexp.MustCompile(marker + `(\d+)`)

	return []harvester{
		{name: "anchors", fn: func(ctx context.Context, r render.Renderer) ([]string, error) {
			return harvestAnchors(ctx, r, detail, opts.Root)
		}},
		{name: "markup", fn: func(ctx context.Context, r render.Renderer) ([]string, error) {
			return harvestMarkup(ctx, r, quoted, bare, opts)
		}},
		{name: "client-state", fn: func(ctx context.Context, r render.Renderer) ([]string, error) {
			return harvestClientState(ctx, r, opts)
		}},
	}
}

// harvestAnchors collects hrefs of live anchors that point at a detail page.
func harvestAnchors(ctx context.Context, r render.Renderer, detail *regexp.Regexp, root string) ([]string, error) {
	anchors, err := r.Elements(ctx, "a[href]")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, a := range anchors {
		href, ok, err := a.Attribute("href")
		if err != nil || !ok || !detail.MatchString(href) {
			continue
		}
		out = append(out, Normalize(href, root))
	}
	return out, nil
}

// harvestMarkup scans raw markup for quoted detail paths and bare
// marker+id occurrences, which also catches links rendered into inline
// scripts or data attributes.
func harvestMarkup(ctx context.Context, r render.Renderer, quoted, bare *regexp.Regexp, opts Options) ([]string, error) {
	src, err := r.Source(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, m := range quoted.FindAllStringSubmatch(src, -1) {
		out = append(out, Normalize(m[1], opts.Root))
	}
	for _, m := range bare.FindAllStringSubmatch(src, -1) {
		out = append(out, opts.Root+opts.Marker+m[1])
	}
	return out, nil
}

// harvestClientState turns every numeric id in the embedded state into a
// detail URL.
func harvestClientState(ctx context.Context, r render.Renderer, opts Options) ([]string, error) {
	state, err := r.Run(ctx, render.ScriptClientState)
	if err != nil || state == nil {
		return nil, err
	}
	var out []string
	for _, id := range state.IDs() {
		if isDigits(id) {
			out = append(out, opts.Root+opts.Marker+id)
		}
	}
	return out, nil
}

// Normalize makes href absolute against root: protocol-relative hrefs take
// root's scheme, root-relative paths are prefixed with root, absolute http(s)
// URLs are kept, and anything else is joined as a relative path.
func Normalize(href, root string) string {
	href = strings.TrimSpace(href)
	root = strings.TrimRight(root, "/")
	switch {
	case strings.HasPrefix(href, "//"):
		scheme := "https"
		if i := strings.Index(root, "://"); i > 0 {
			scheme = root[:i]
		}
		return scheme + ":" + href
	case strings.HasPrefix(href, "/"):
		return root + href
	case strings.HasPrefix(href, "http://"), strings.HasPrefix(href, "https://"):
		return href
	default:
		return root + "/" + href
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
