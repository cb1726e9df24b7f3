package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/profilescout/config"
	"github.com/use-agent/profilescout/models"
	"github.com/use-agent/profilescout/sink"
)

func directorySite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/directory/startups", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<a href="/profiles/1">Acme</a>
			<a href="/profiles/2">Gone</a>
		</body></html>`)
	})
	mux.HandleFunc("/profiles/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><h1>Acme</h1><div>Industry: Fintech</div></body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	cfg := config.Load()
	cfg.Site.BaseURL = baseURL
	cfg.Site.DirectoryPath = "/directory/startups"
	cfg.Site.DetailMarker = "/profiles/"
	cfg.Scraper.Renderer = config.RendererHTTP
	cfg.Discovery.InitialSettle = 0
	cfg.Discovery.PageSettle = 0
	cfg.Discovery.ClickSettle = 0
	cfg.Discovery.ScrollSettle = 0
	cfg.Extract.Settle = 0
	cfg.Extract.RequestsPerSecond = 0
	cfg.Run.Limit = 0
	cfg.Output.Path = filepath.Join(t.TempDir(), "startups_data.json")
	cfg.Output.XLSXPath = ""
	cfg.Output.WebhookURL = ""
	cfg.Output.SkipUpload = true
	return cfg
}

func TestRunScrape(t *testing.T) {
	srv := directorySite(t)
	cfg := testConfig(t, srv.URL)

	var out bytes.Buffer
	require.NoError(t, runScrape(context.Background(), &out, cfg))

	assert.Contains(t, out.String(), "Successfully scraped 1 out of 2 profiles")
	assert.Contains(t, out.String(), "Skipping Google Sheets upload")

	records, err := sink.ReadFile(cfg.Output.Path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Acme", records[0].Value("name"))
	assert.Equal(t, "Fintech", records[0].Value("industry"))
	assert.Equal(t, "1", records[0].Value(models.FieldProfileID))
}

func TestRunScrape_MissingCredentialsIsNotFatal(t *testing.T) {
	srv := directorySite(t)
	cfg := testConfig(t, srv.URL)
	cfg.Output.SkipUpload = false
	cfg.Output.Credentials = filepath.Join(t.TempDir(), "missing.json")

	var out bytes.Buffer
	require.NoError(t, runScrape(context.Background(), &out, cfg))
	assert.Contains(t, out.String(), models.ErrCodeCredentialsMissing)
	assert.FileExists(t, cfg.Output.Path)
}

func TestRunDiscover(t *testing.T) {
	srv := directorySite(t)
	cfg := testConfig(t, srv.URL)

	var out bytes.Buffer
	require.NoError(t, runDiscover(context.Background(), &out, cfg))
	assert.Equal(t, srv.URL+"/profiles/1\n"+srv.URL+"/profiles/2\n", out.String())
}

func TestRunProfiles(t *testing.T) {
	srv := directorySite(t)
	cfg := testConfig(t, srv.URL)

	var out bytes.Buffer
	require.NoError(t, runProfiles(context.Background(), &out, cfg, []string{"/profiles/1", "/profiles/2"}))
	assert.Contains(t, out.String(), `"name":"Acme"`)
	assert.Contains(t, out.String(), "Failed to scrape "+srv.URL+"/profiles/2: "+models.ErrCodeNavigation)
}

func TestRunProfiles_InvalidInput(t *testing.T) {
	srv := directorySite(t)
	cfg := testConfig(t, srv.URL)

	var out bytes.Buffer
	require.NoError(t, runProfiles(context.Background(), &out, cfg, []string{"ftp://example.test/profiles/1", "  ", "/profiles/1"}))
	assert.Contains(t, out.String(), "Failed to scrape ftp://example.test/profiles/1: "+models.ErrCodeInvalidInput)
	assert.Contains(t, out.String(), "Failed to scrape : "+models.ErrCodeInvalidInput)
	assert.Contains(t, out.String(), `"name":"Acme"`)
}

func TestProfileURL(t *testing.T) {
	u, err := profileURL(" /profiles/7 ", "https://example.test/")
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/profiles/7", u)

	_, err = profileURL("javascript://alert", "https://example.test")
	assert.True(t, models.IsCode(err, models.ErrCodeInvalidInput))
}

func TestRootCmd_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t, "not a url")
	cmd := newRootCmd(cfg)
	cmd.SetArgs([]string{"discover"})
	cmd.SetOut(&bytes.Buffer{})
	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base URL")
}
