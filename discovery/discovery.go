// Package discovery walks a paginated directory and collects the detail-page
// URLs it links to.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/use-agent/profilescout/config"
	"github.com/use-agent/profilescout/render"
	"github.com/use-agent/profilescout/simhash"
)

// Options controls a discovery run.
type Options struct {
	// Root is the site origin candidate paths are resolved against.
	Root string
	// DirectoryURL is the first listing page.
	DirectoryURL string
	// Marker is the path segment that precedes a detail page's numeric id.
	Marker string

	MaxPages       int
	InitialSettle  time.Duration
	PageSettle     time.Duration
	ClickSettle    time.Duration
	ScrollSettle   time.Duration
	ScrollAttempts int
	StaleLimit     int
}

// OptionsFromConfig maps application config onto discovery options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Root:           cfg.Site.Root(),
		DirectoryURL:   cfg.Site.DirectoryURL(),
		Marker:         cfg.Site.DetailMarker,
		MaxPages:       cfg.Discovery.MaxPages,
		InitialSettle:  cfg.Discovery.InitialSettle,
		PageSettle:     cfg.Discovery.PageSettle,
		ClickSettle:    cfg.Discovery.ClickSettle,
		ScrollSettle:   cfg.Discovery.ScrollSettle,
		ScrollAttempts: cfg.Discovery.ScrollAttempts,
		StaleLimit:     cfg.Discovery.StaleLimit,
	}
}

// Discoverer collects candidate URLs through one renderer. It is not safe
// for concurrent use; the renderer is a single session.
type Discoverer struct {
	r          render.Renderer
	opts       Options
	harvesters []harvester
	tactics    []Tactic

	pages int
}

// New returns a Discoverer using the default harvesters and tactic chain.
func New(r render.Renderer, opts Options) *Discoverer {
	if opts.MaxPages <= 0 || opts.MaxPages > config.MaxDirectoryPages {
		opts.MaxPages = config.MaxDirectoryPages
	}
	opts.Root = strings.TrimRight(opts.Root, "/")
	if opts.DirectoryURL == "" {
		opts.DirectoryURL = opts.Root
	}

	return &Discoverer{
		r:          r,
		opts:       opts,
		harvesters: defaultHarvesters(opts),
		tactics:    DefaultTactics(opts),
	}
}

// Pages returns the number of directory pages visited by the last run.
func (d *Discoverer) Pages() int {
	return d.pages
}

// Discover walks the directory and returns every candidate URL found,
// deduplicated and sorted. When ctx is cancelled mid-walk it returns what
// was collected so far together with ctx's error.
func (d *Discoverer) Discover(ctx context.Context) ([]string, error) {
	d.pages = 0
	seen := make(map[string]struct{})

	if err := d.r.Navigate(ctx, d.opts.DirectoryURL); err != nil {
		return nil, fmt.Errorf("discovery: load directory %s: %w", d.opts.DirectoryURL, err)
	}
	if err := render.Settle(ctx, d.opts.InitialSettle); err != nil {
		return nil, err
	}

	stale := simhash.NewTracker(d.opts.StaleLimit, simhash.DefaultThreshold)

	for {
		if err := render.Settle(ctx, d.opts.PageSettle); err != nil {
			return sorted(seen), err
		}
		d.pages++

		added := 0
		for _, u := range d.harvest(ctx) {
			if _, ok := seen[u]; !ok {
				seen[u] = struct{}{}
				added++
			}
		}
		slog.Info("directory page processed",
			"page", d.pages,
			"new", added,
			"total", len(seen),
		)

		if d.pages >= d.opts.MaxPages {
			slog.Warn("directory page cap reached", "cap", d.opts.MaxPages)
			break
		}

		if text, err := d.r.Text(ctx); err == nil && stale.Observe(text, added > 0) {
			slog.Info("directory pages stopped changing", "page", d.pages, "streak", stale.Streak())
			break
		}

		outcome := d.advance(ctx)
		if err := ctx.Err(); err != nil {
			return sorted(seen), err
		}
		if outcome != Advanced {
			break
		}
	}

	return sorted(seen), nil
}

// harvest runs every harvester against the current page and returns the
// union of their results. A failing harvester contributes nothing.
func (d *Discoverer) harvest(ctx context.Context) []string {
	var out []string
	for _, h := range d.harvesters {
		urls, err := runHarvester(ctx, h, d.r)
		if err != nil {
			slog.Debug("harvester failed", "harvester", h.name, "error", err)
			continue
		}
		out = append(out, urls...)
	}
	return out
}

// advance tries each tactic in order until one moves the page or declares
// the directory finished.
func (d *Discoverer) advance(ctx context.Context) Outcome {
	for _, t := range d.tactics {
		outcome, err := runTactic(ctx, t, d.r)
		if err != nil {
			slog.Debug("pagination tactic failed", "tactic", t.Name(), "error", err)
			if ctx.Err() != nil {
				return NoMatch
			}
			continue
		}
		switch outcome {
		case Advanced:
			slog.Debug("pagination advanced", "tactic", t.Name(), "page", d.pages)
			return Advanced
		case Terminal:
			slog.Debug("pagination reached last page", "tactic", t.Name(), "page", d.pages)
			return Terminal
		}
	}
	return NoMatch
}

func runTactic(ctx context.Context, t Tactic, r render.Renderer) (outcome Outcome, err error) {
	defer func() {
		if p := recover(); p != nil {
			outcome, err = NoMatch, fmt.Errorf("tactic %s panicked: %v", t.Name(), p)
		}
	}()
	return t.Advance(ctx, r)
}

func runHarvester(ctx context.Context, h harvester, r render.Renderer) (urls []string, err error) {
	defer func() {
		if p := recover(); p != nil {
			urls, err = nil, fmt.Errorf("harvester %s panicked: %v", h.name, p)
		}
	}()
	return h.fn(ctx, r)
}

func sorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for u := range set {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}
