// Package runner drives one scrape: discover the profile URLs, then visit
// them one by one, collecting records and a run summary.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/profilescout/models"
)

// URLSource produces the detail-page URLs to visit.
type URLSource interface {
	Discover(ctx context.Context) ([]string, error)
}

// ProfileExtractor turns one detail URL into a record.
type ProfileExtractor interface {
	Extract(ctx context.Context, url string) (*models.Record, error)
}

// pageCounter is implemented by sources that know how many listing pages
// they visited.
type pageCounter interface {
	Pages() int
}

// Runner visits profiles sequentially. Both the source and the extractor
// share one renderer, so nothing here runs concurrently.
type Runner struct {
	source    URLSource
	extractor ProfileExtractor
	limit     int
}

// New creates a Runner. A positive limit caps how many discovered URLs are
// visited.
func New(source URLSource, extractor ProfileExtractor, limit int) *Runner {
	return &Runner{source: source, extractor: extractor, limit: limit}
}

// Run discovers and extracts. Failed profiles are logged, noted in the
// summary and skipped. On cancellation the records gathered so far are
// returned together with the context's error.
func (r *Runner) Run(ctx context.Context) ([]*models.Record, *models.RunSummary, error) {
	summary := &models.RunSummary{StartedAt: time.Now()}
	defer func() { summary.FinishedAt = time.Now() }()

	urls, err := r.source.Discover(ctx)
	if pc, ok := r.source.(pageCounter); ok {
		summary.Pages = pc.Pages()
	}
	summary.Discovered = len(urls)
	if err != nil {
		if ctx.Err() != nil {
			summary.Interrupted = true
			return nil, summary, ctx.Err()
		}
		return nil, summary, fmt.Errorf("runner: discover: %w", err)
	}
	slog.Info("discovery finished", "urls", len(urls), "pages", summary.Pages)

	if r.limit > 0 && len(urls) > r.limit {
		urls = urls[:r.limit]
	}
	if len(urls) == 0 {
		return nil, summary, nil
	}

	records := make([]*models.Record, 0, len(urls))
	for i, u := range urls {
		if err := ctx.Err(); err != nil {
			summary.Interrupted = true
			return records, summary, err
		}
		summary.Attempted++
		slog.Info("processing profile", "progress", fmt.Sprintf("%d/%d", i+1, len(urls)), "url", u)

		rec, err := r.extractor.Extract(ctx, u)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				summary.Attempted--
				summary.Interrupted = true
				return records, summary, ctx.Err()
			}
			slog.Warn("profile skipped", "url", u, "code", models.CodeOf(err), "error", err)
			summary.Failed = append(summary.Failed, models.FailedURL{
				URL:   u,
				Code:  models.CodeOf(err),
				Error: err.Error(),
			})
			continue
		}
		records = append(records, rec)
		summary.Succeeded++
	}
	return records, summary, nil
}
