// Package extract turns a rendered detail page into a profile record by
// running a fixed sequence of best-effort extraction stages.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/use-agent/profilescout/config"
	"github.com/use-agent/profilescout/models"
	"github.com/use-agent/profilescout/render"
)

// Options controls profile extraction.
type Options struct {
	// Root is the directory site's origin; links to the same registrable
	// domain are not treated as the profile's website.
	Root string
	// Marker precedes the numeric profile id in detail URLs.
	Marker string

	Settle            time.Duration
	FullTextLimit     int
	RequestsPerSecond float64
}

// OptionsFromConfig maps application config onto extraction options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Root:              cfg.Site.Root(),
		Marker:            cfg.Site.DetailMarker,
		Settle:            cfg.Extract.Settle,
		FullTextLimit:     cfg.Extract.FullTextLimit,
		RequestsPerSecond: cfg.Extract.RequestsPerSecond,
	}
}

// Extractor reads profile pages through one renderer. It is not safe for
// concurrent use.
type Extractor struct {
	r       render.Renderer
	opts    Options
	limiter *rate.Limiter
	stages  []stage

	idPattern  *regexp.Regexp
	siteDomain string
}

// New returns an Extractor with the default stage order.
func New(r render.Renderer, opts Options) *Extractor {
	if opts.FullTextLimit <= 0 {
		opts.FullTextLimit = 3000
	}
	if opts.Marker == "" {
		opts.Marker = "/profiles/"
	}

	e := &Extractor{
		r:          r,
		opts:       opts,
		stages:     defaultStages(),
		idPattern:  regexp.MustCompile(regexp.QuoteMeta(opts.Marker) + `(\d+)`),
		siteDomain: registrableDomain(opts.Root),
	}
	if opts.RequestsPerSecond > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return e
}

// Extract loads profileURL and builds its record. A nil record always
// comes with a non-nil error: page-load timeouts carry SCRAPE_TIMEOUT,
// anything that escapes the stage guards carries EXTRACTION_FAILED.
func (e *Extractor) Extract(ctx context.Context, profileURL string) (rec *models.Record, err error) {
	defer func() {
		if p := recover(); p != nil {
			rec = nil
			err = models.NewScrapeError(models.ErrCodeExtraction, "profile extraction failed", fmt.Errorf("panic: %v", p))
		}
	}()

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, render.CategorizeError(err, "rate limiter wait aborted")
		}
	}
	if err := e.r.Navigate(ctx, profileURL); err != nil {
		return nil, err
	}
	if err := render.Settle(ctx, e.opts.Settle); err != nil {
		return nil, render.CategorizeError(err, "settle wait aborted")
	}

	rec = models.NewRecord()
	rec.Set(models.FieldURL, profileURL)
	if id := e.ProfileID(profileURL); id != "" {
		rec.Set(models.FieldProfileID, id)
	}

	pg := &page{ctx: ctx, r: e.r, rec: rec, opts: e.opts, siteDomain: e.siteDomain}
	for _, s := range e.stages {
		if err := runStage(pg, s); err != nil {
			slog.Debug("extraction stage failed", "stage", s.name, "url", profileURL, "error", err)
		}
	}
	return rec, nil
}

// ProfileID returns the digits following the detail marker in rawURL, or
// "" when there are none.
func (e *Extractor) ProfileID(rawURL string) string {
	m := e.idPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return ""
	}
	return m[1]
}

func runStage(p *page, s stage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stage %s panicked: %v", s.name, r)
		}
	}()
	return s.fn(p)
}

// page is the per-URL state shared by the stages.
type page struct {
	ctx        context.Context
	r          render.Renderer
	rec        *models.Record
	opts       Options
	siteDomain string

	textRead bool
	text     string
	textErr  error
}

// bodyText reads the visible text once per page.
func (p *page) bodyText() (string, error) {
	if !p.textRead {
		p.text, p.textErr = p.r.Text(p.ctx)
		p.textRead = true
	}
	return p.text, p.textErr
}

// registrableDomain returns the eTLD+1 of rawURL's host, or the bare host
// when the public suffix list has no answer.
func registrableDomain(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	host := strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
	if host == "" {
		return ""
	}
	if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return d
	}
	return host
}
