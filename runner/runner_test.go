package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/profilescout/extract"
	"github.com/use-agent/profilescout/models"
	"github.com/use-agent/profilescout/render"
)

type staticSource struct {
	urls  []string
	err   error
	pages int
}

func (s *staticSource) Discover(context.Context) ([]string, error) { return s.urls, s.err }
func (s *staticSource) Pages() int                                { return s.pages }

type funcExtractor func(ctx context.Context, url string) (*models.Record, error)

func (f funcExtractor) Extract(ctx context.Context, url string) (*models.Record, error) {
	return f(ctx, url)
}

func recordFor(url string) *models.Record {
	rec := models.NewRecord()
	rec.Set(models.FieldURL, url)
	return rec
}

func TestRun_SkipsTimedOutProfile(t *testing.T) {
	const (
		slow = "https://example.test/profiles/1"
		fast = "https://example.test/profiles/2"
	)
	f := &render.MapFetcher{
		Pages: map[string]string{
			slow: "<html><body><h1>Slow</h1></body></html>",
			fast: "<html><body><h1>Fast</h1></body></html>",
		},
		Delays: map[string]time.Duration{slow: time.Second},
	}
	ex := extract.New(render.NewStaticRenderer(f, 20*time.Millisecond), extract.Options{Root: "https://example.test"})
	src := &staticSource{urls: []string{slow, fast}, pages: 2}

	records, summary, err := New(src, ex, 0).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "Fast", records[0].Value("name"))
	assert.Equal(t, 2, summary.Discovered)
	assert.Equal(t, 2, summary.Attempted)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 2, summary.Pages)
	require.Len(t, summary.Failed, 1)
	assert.Equal(t, slow, summary.Failed[0].URL)
	assert.Equal(t, models.ErrCodeTimeout, summary.Failed[0].Code)
	assert.False(t, summary.FinishedAt.IsZero())
}

func TestRun_Limit(t *testing.T) {
	var visited []string
	ex := funcExtractor(func(_ context.Context, url string) (*models.Record, error) {
		visited = append(visited, url)
		return recordFor(url), nil
	})
	src := &staticSource{urls: []string{"a", "b", "c"}}

	records, summary, err := New(src, ex, 2).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, []string{"a", "b"}, visited)
	assert.Equal(t, 3, summary.Discovered)
	assert.Equal(t, 2, summary.Attempted)
}

func TestRun_NoURLs(t *testing.T) {
	ex := funcExtractor(func(context.Context, string) (*models.Record, error) {
		t.Fatal("extractor must not be called")
		return nil, nil
	})
	records, summary, err := New(&staticSource{}, ex, 0).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Zero(t, summary.Attempted)
}

func TestRun_DiscoveryFailure(t *testing.T) {
	boom := errors.New("root unreachable")
	_, _, err := New(&staticSource{err: boom}, funcExtractor(nil), 0).Run(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestRun_CancelKeepsPartialRecords(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ex := funcExtractor(func(ctx context.Context, url string) (*models.Record, error) {
		if url == "b" {
			cancel()
			return nil, render.CategorizeError(ctx.Err(), "navigation to target URL failed")
		}
		return recordFor(url), nil
	})
	src := &staticSource{urls: []string{"a", "b", "c"}}

	records, summary, err := New(src, ex, 0).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, records, 1)
	assert.Equal(t, "a", records[0].Value(models.FieldURL))
	assert.True(t, summary.Interrupted)
	assert.Empty(t, summary.Failed)
	assert.Equal(t, 1, summary.Attempted)
}
