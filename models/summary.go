package models

import "time"

// FailedURL records a detail page that produced no record.
type FailedURL struct {
	URL   string `json:"url"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

// RunSummary describes the outcome of one discovery + extraction run.
type RunSummary struct {
	Discovered int         `json:"discovered"`
	Attempted  int         `json:"attempted"`
	Succeeded  int         `json:"succeeded"`
	Failed     []FailedURL `json:"failed"`
	Pages      int         `json:"pages"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`

	// Interrupted is set when the run stopped early because its context
	// was cancelled.
	Interrupted bool `json:"interrupted,omitempty"`
}

// Duration returns the wall-clock length of the run.
func (s *RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
