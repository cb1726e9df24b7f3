package extract

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/profilescout/models"
	"github.com/use-agent/profilescout/render"
)

const profileURL = "https://example.test/profiles/12345"

func newExtractor(t *testing.T, html string) *Extractor {
	t.Helper()
	f := &render.MapFetcher{Pages: map[string]string{profileURL: html}}
	return New(render.NewStaticRenderer(f, 0), Options{Root: "https://example.test"})
}

func TestExtract_ClientStateAndLabels(t *testing.T) {
	html := `<html><body>
		<script>window.__NUXT__={"data":[{"companyName":"Acme","sector":"Fintech"}]}</script>
		<p>Founded: 2019</p>
	</body></html>`

	rec, err := newExtractor(t, html).Extract(context.Background(), profileURL)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, profileURL, rec.Value(models.FieldURL))
	assert.Equal(t, "12345", rec.Value(models.FieldProfileID))
	assert.Equal(t, "Acme", rec.Value("name"))
	assert.Equal(t, "Fintech", rec.Value("sector"))
	assert.Equal(t, "2019", rec.Value("founded"))
	assert.True(t, rec.Has(models.FieldFullText))
}

func TestExtract_EarlierStageWins(t *testing.T) {
	html := `<html><body>
		<script>window.__INITIAL_STATE__ = {"company":{"industry":"Fintech","tags":["b2b","saas"]}};</script>
		<h1>Heading Name</h1>
		<div>Industry: Healthcare</div>
		<div>Location: Singapore</div>
	</body></html>`

	rec, err := newExtractor(t, html).Extract(context.Background(), profileURL)
	require.NoError(t, err)

	assert.Equal(t, "Fintech", rec.Value("industry"))
	assert.Equal(t, "b2b, saas", rec.Value("tags"))
	assert.Equal(t, "Heading Name", rec.Value("name"))
	assert.Equal(t, "Singapore", rec.Value("location"))
}

func TestExtract_MissingNameStillYieldsRecord(t *testing.T) {
	rec, err := newExtractor(t, `<html><body><div>nothing useful</div></body></html>`).
		Extract(context.Background(), profileURL)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.False(t, rec.Has("name"))
	assert.Equal(t, "12345", rec.Value(models.FieldProfileID))
	assert.Equal(t, "nothing useful", strings.TrimSpace(rec.Value(models.FieldFullText)))
}

func TestExtract_NameSelectorOrder(t *testing.T) {
	long := strings.Repeat("x", 250)
	html := `<html><body>
		<h1>   </h1>
		<h2>` + long + `</h2>
		<div class="startup-name">Beta Labs</div>
		<div class="title">Ignored</div>
	</body></html>`

	rec, err := newExtractor(t, html).Extract(context.Background(), profileURL)
	require.NoError(t, err)
	assert.Equal(t, "Beta Labs", rec.Value("name"))
}

func TestExtract_DescriptionFromParagraphs(t *testing.T) {
	para := func(s string) string { return s + strings.Repeat(" lorem", 10) }
	html := `<html><body>
		<p>short</p>
		<p>` + para("one") + `</p>
		<p>` + para("two") + `</p>
		<p>` + para("three") + `</p>
		<p>` + para("four") + `</p>
	</body></html>`

	rec, err := newExtractor(t, html).Extract(context.Background(), profileURL)
	require.NoError(t, err)

	want := strings.Join([]string{para("one"), para("two"), para("three")}, " ")
	assert.Equal(t, want, rec.Value("description"))
}

func TestExtract_Links(t *testing.T) {
	html := `<html><body>
		<a href="https://www.example.test/about">About</a>
		<a href="/profiles/1">Relative</a>
		<a href="https://acme.io/">Website</a>
		<a href="https://other.io/">Other</a>
		<a href="mailto:hello@acme.io?subject=Hi">Mail</a>
	</body></html>`

	rec, err := newExtractor(t, html).Extract(context.Background(), profileURL)
	require.NoError(t, err)
	assert.Equal(t, "https://acme.io/", rec.Value("website"))
	assert.Equal(t, "hello@acme.io", rec.Value("email"))
}

func TestExtract_JSONScripts(t *testing.T) {
	html := `<html><body>
		<script type="application/json">{"meta":{"employees":"11-50","round":"Seed"},"ok":true}</script>
		<script type="application/json">[1,2,3]</script>
		<script type="application/json">{broken</script>
		<div>Employees: 200</div>
	</body></html>`

	rec, err := newExtractor(t, html).Extract(context.Background(), profileURL)
	require.NoError(t, err)

	assert.Equal(t, "Seed", rec.Value("meta_round"))
	assert.Equal(t, "11-50", rec.Value("meta_employees"))
	assert.Equal(t, "true", rec.Value("ok"))
	assert.Equal(t, "200", rec.Value("employees"))
}

func TestExtract_FullTextIsTruncated(t *testing.T) {
	html := `<html><body><div>` + strings.Repeat("é", 5000) + `</div></body></html>`

	rec, err := newExtractor(t, html).Extract(context.Background(), profileURL)
	require.NoError(t, err)
	assert.Equal(t, 3000, utf8.RuneCountInString(rec.Value(models.FieldFullText)))
}

func TestExtract_Timeout(t *testing.T) {
	f := &render.MapFetcher{
		Pages:  map[string]string{profileURL: "<html></html>"},
		Delays: map[string]time.Duration{profileURL: time.Second},
	}
	e := New(render.NewStaticRenderer(f, 20*time.Millisecond), Options{Root: "https://example.test"})

	rec, err := e.Extract(context.Background(), profileURL)
	assert.Nil(t, rec)
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeTimeout, models.CodeOf(err))
}

func TestExtract_StagePanicIsContained(t *testing.T) {
	e := newExtractor(t, `<html><body><h1>Acme</h1></body></html>`)
	e.stages = append([]stage{{name: "boom", fn: func(*page) error { panic("boom") }}}, e.stages...)

	rec, err := e.Extract(context.Background(), profileURL)
	require.NoError(t, err)
	assert.Equal(t, "Acme", rec.Value("name"))
}

func TestProfileID(t *testing.T) {
	e := New(nil, Options{})
	assert.Equal(t, "42", e.ProfileID("https://example.test/profiles/42?tab=team"))
	assert.Equal(t, "", e.ProfileID("https://example.test/profiles/acme"))
}

func TestRegistrableDomain(t *testing.T) {
	assert.Equal(t, "example.co.uk", registrableDomain("https://www.shop.example.co.uk/x"))
	assert.Equal(t, "example.test", registrableDomain("https://WWW.Example.test."))
	assert.Equal(t, "", registrableDomain("/relative"))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héll", truncateRunes("héllo", 4))
	assert.Equal(t, "hi", truncateRunes("hi", 4))
	assert.Equal(t, "", truncateRunes("abc", 0))
}
