// Package sink persists scraped records: a local file first, then any
// configured remote destinations.
package sink

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/use-agent/profilescout/models"
)

// Sink writes a complete batch of records.
type Sink interface {
	Name() string
	Write(ctx context.Context, records []*models.Record) error
}

// Table lays records out as a spreadsheet: the header is the sorted union of
// all field names and absent fields become empty cells.
func Table(records []*models.Record) (header []string, rows [][]string) {
	seen := make(map[string]struct{})
	for _, rec := range records {
		for _, k := range rec.Keys() {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				header = append(header, k)
			}
		}
	}
	sort.Strings(header)

	rows = make([][]string, 0, len(records))
	for _, rec := range records {
		row := make([]string, len(header))
		for i, k := range header {
			row[i] = rec.Value(k)
		}
		rows = append(rows, row)
	}
	return header, rows
}

// WriteAll runs sinks in order. A failing sink does not stop the ones after
// it; the failures are joined and each carries SINK_FAILED unless it already
// has a code of its own.
func WriteAll(ctx context.Context, records []*models.Record, sinks ...Sink) error {
	var errs []error
	for _, s := range sinks {
		if err := s.Write(ctx, records); err != nil {
			slog.Error("sink failed", "sink", s.Name(), "error", err)
			var se *models.ScrapeError
			if !errors.As(err, &se) {
				err = models.NewScrapeError(models.ErrCodeSink, s.Name()+" sink failed", err)
			}
			errs = append(errs, err)
			continue
		}
		slog.Info("sink written", "sink", s.Name(), "records", len(records))
	}
	return errors.Join(errs...)
}
