package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "https://www.startupsg.gov.sg/directory/startups", cfg.Site.DirectoryURL())
	assert.Equal(t, "/profiles/", cfg.Site.DetailMarker)
	assert.Equal(t, MaxDirectoryPages, cfg.Discovery.MaxPages)
	assert.Equal(t, RendererBrowser, cfg.Scraper.Renderer)
	assert.Equal(t, 3000, cfg.Extract.FullTextLimit)
	assert.Equal(t, "startups_data.json", cfg.Output.Path)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PROFILESCOUT_BASE_URL", "https://example.test/")
	t.Setenv("PROFILESCOUT_MAX_PAGES", "12")
	t.Setenv("PROFILESCOUT_PAGE_SETTLE", "250ms")
	t.Setenv("PROFILESCOUT_HEADLESS", "false")
	t.Setenv("PROFILESCOUT_BLOCKED_RESOURCES", "Image, Stylesheet ,")
	t.Setenv("PROFILESCOUT_RATE_RPS", "not-a-number")

	cfg := Load()

	assert.Equal(t, "https://example.test", cfg.Site.Root())
	assert.Equal(t, 12, cfg.Discovery.MaxPages)
	assert.Equal(t, 250*time.Millisecond, cfg.Discovery.PageSettle)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, []string{"Image", "Stylesheet"}, cfg.Scraper.BlockedResourceTypes)
	assert.Equal(t, 0.5, cfg.Extract.RequestsPerSecond)
}

func TestDirectoryURL_AddsSlash(t *testing.T) {
	s := SiteConfig{BaseURL: "https://example.test/", DirectoryPath: "directory"}
	assert.Equal(t, "https://example.test/directory", s.DirectoryURL())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative base url", func(c *Config) { c.Site.BaseURL = "/directory" }},
		{"ftp base url", func(c *Config) { c.Site.BaseURL = "ftp://example.test" }},
		{"empty marker", func(c *Config) { c.Site.DetailMarker = "" }},
		{"page cap too high", func(c *Config) { c.Discovery.MaxPages = MaxDirectoryPages + 1 }},
		{"page cap zero", func(c *Config) { c.Discovery.MaxPages = 0 }},
		{"unknown renderer", func(c *Config) { c.Scraper.Renderer = "selenium" }},
		{"negative limit", func(c *Config) { c.Run.Limit = -1 }},
		{"empty output", func(c *Config) { c.Output.Path = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
