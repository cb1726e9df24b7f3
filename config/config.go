package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// MaxDirectoryPages is the hard upper bound on directory pages visited
// during discovery. Configuration may lower it, never raise it.
const MaxDirectoryPages = 1000

// Renderer modes.
const (
	RendererBrowser = "browser"
	RendererHTTP    = "http"
)

// Config holds all application configuration.
type Config struct {
	Site      SiteConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Discovery DiscoveryConfig
	Extract   ExtractConfig
	Run       RunConfig
	Output    OutputConfig
	Log       LogConfig
}

// SiteConfig describes the directory being crawled.
type SiteConfig struct {
	// BaseURL is the site root, e.g. "https://www.startupsg.gov.sg".
	BaseURL string

	// DirectoryPath is the listing page path below BaseURL.
	DirectoryPath string // default: "/directory/startups"

	// DetailMarker is the path segment that precedes a detail page's
	// numeric identifier.
	DetailMarker string // default: "/profiles/"
}

// Root returns BaseURL without a trailing slash.
func (s SiteConfig) Root() string {
	return strings.TrimRight(s.BaseURL, "/")
}

// DirectoryURL returns the absolute URL of the directory root.
func (s SiteConfig) DirectoryURL() string {
	p := s.DirectoryPath
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return s.Root() + p
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is the proxy URL for all requests.
	Proxy string

	// UserAgent overrides the browser's user agent.
	UserAgent string

	// Stealth injects anti-bot-detection evasions before every navigation.
	Stealth bool // default: true

	// BlockAds drops requests to known ad and tracking domains.
	BlockAds bool // default: true
}

// ScraperConfig controls page loading.
type ScraperConfig struct {
	// Renderer selects the page renderer: "browser" (Rod) or "http"
	// (static HTML, no JavaScript).
	Renderer string // default: "browser"

	// NavigationTimeout bounds a single page load.
	NavigationTimeout time.Duration // default: 15s

	// ActionTimeout bounds DOM reads, clicks and script evaluation.
	ActionTimeout time.Duration // default: 10s

	// BlockedResourceTypes lists resource types the browser never fetches.
	// default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string
}

// DiscoveryConfig controls directory pagination.
type DiscoveryConfig struct {
	MaxPages       int           // default: 1000, capped at MaxDirectoryPages
	InitialSettle  time.Duration // default: 5s
	PageSettle     time.Duration // default: 3s
	ClickSettle    time.Duration // default: 3s
	ScrollSettle   time.Duration // default: 2s
	ScrollAttempts int           // default: 3

	// StaleLimit stops discovery after this many consecutive advances that
	// produced a near-identical page and no new URLs.
	StaleLimit int // default: 3
}

// ExtractConfig controls profile extraction.
type ExtractConfig struct {
	// Settle is the wait after navigation before reading the page.
	Settle time.Duration // default: 4s

	// FullTextLimit is the number of characters of body text kept.
	FullTextLimit int // default: 3000

	// RequestsPerSecond limits profile navigations. 0 disables the limit.
	RequestsPerSecond float64 // default: 0.5
}

// RunConfig controls the overall run.
type RunConfig struct {
	// Limit truncates the discovered URL list. 0 means no limit.
	Limit int
}

// OutputConfig controls persistence.
type OutputConfig struct {
	Path        string // default: "startups_data.json"
	XLSXPath    string
	SkipUpload  bool
	Credentials string // default: "credentials.json"
	Spreadsheet string // default: "Startup SG Profiles"
	Worksheet   string // default: "Startups"

	WebhookURL    string
	WebhookSecret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Site: SiteConfig{
			BaseURL:       envOr("PROFILESCOUT_BASE_URL", "https://www.startupsg.gov.sg"),
			DirectoryPath: envOr("PROFILESCOUT_DIRECTORY_PATH", "/directory/startups"),
			DetailMarker:  envOr("PROFILESCOUT_DETAIL_MARKER", "/profiles/"),
		},
		Browser: BrowserConfig{
			Headless:   envBoolOr("PROFILESCOUT_HEADLESS", true),
			NoSandbox:  envBoolOr("PROFILESCOUT_NO_SANDBOX", false),
			BrowserBin: os.Getenv("PROFILESCOUT_BROWSER_BIN"),
			Proxy:      os.Getenv("PROFILESCOUT_PROXY"),
			UserAgent: envOr("PROFILESCOUT_USER_AGENT",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
			Stealth:  envBoolOr("PROFILESCOUT_STEALTH", true),
			BlockAds: envBoolOr("PROFILESCOUT_BLOCK_ADS", true),
		},
		Scraper: ScraperConfig{
			Renderer:          envOr("PROFILESCOUT_RENDERER", RendererBrowser),
			NavigationTimeout: envDurationOr("PROFILESCOUT_NAV_TIMEOUT", 15*time.Second),
			ActionTimeout:     envDurationOr("PROFILESCOUT_ACTION_TIMEOUT", 10*time.Second),
			BlockedResourceTypes: envSliceOr("PROFILESCOUT_BLOCKED_RESOURCES", []string{
				"Image", "Font", "Media",
			}),
		},
		Discovery: DiscoveryConfig{
			MaxPages:       envIntOr("PROFILESCOUT_MAX_PAGES", MaxDirectoryPages),
			InitialSettle:  envDurationOr("PROFILESCOUT_INITIAL_SETTLE", 5*time.Second),
			PageSettle:     envDurationOr("PROFILESCOUT_PAGE_SETTLE", 3*time.Second),
			ClickSettle:    envDurationOr("PROFILESCOUT_CLICK_SETTLE", 3*time.Second),
			ScrollSettle:   envDurationOr("PROFILESCOUT_SCROLL_SETTLE", 2*time.Second),
			ScrollAttempts: envIntOr("PROFILESCOUT_SCROLL_ATTEMPTS", 3),
			StaleLimit:     envIntOr("PROFILESCOUT_STALE_LIMIT", 3),
		},
		Extract: ExtractConfig{
			Settle:            envDurationOr("PROFILESCOUT_PROFILE_SETTLE", 4*time.Second),
			FullTextLimit:     envIntOr("PROFILESCOUT_FULL_TEXT_LIMIT", 3000),
			RequestsPerSecond: envFloatOr("PROFILESCOUT_RATE_RPS", 0.5),
		},
		Run: RunConfig{
			Limit: envIntOr("PROFILESCOUT_LIMIT", 0),
		},
		Output: OutputConfig{
			Path:          envOr("PROFILESCOUT_OUTPUT", "startups_data.json"),
			XLSXPath:      os.Getenv("PROFILESCOUT_XLSX"),
			SkipUpload:    envBoolOr("PROFILESCOUT_SKIP_UPLOAD", false),
			Credentials:   envOr("PROFILESCOUT_CREDENTIALS", "credentials.json"),
			Spreadsheet:   envOr("PROFILESCOUT_SPREADSHEET", "Startup SG Profiles"),
			Worksheet:     envOr("PROFILESCOUT_WORKSHEET", "Startups"),
			WebhookURL:    os.Getenv("PROFILESCOUT_WEBHOOK_URL"),
			WebhookSecret: os.Getenv("PROFILESCOUT_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("PROFILESCOUT_LOG_LEVEL", "info"),
			Format: envOr("PROFILESCOUT_LOG_FORMAT", "text"),
		},
	}
}

// Validate checks the settings a run cannot proceed without.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Site.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: base URL %q must be an absolute http(s) URL", c.Site.BaseURL)
	}
	if c.Site.DetailMarker == "" {
		return fmt.Errorf("config: detail marker must not be empty")
	}
	if c.Discovery.MaxPages < 1 || c.Discovery.MaxPages > MaxDirectoryPages {
		return fmt.Errorf("config: max pages must be between 1 and %d, got %d", MaxDirectoryPages, c.Discovery.MaxPages)
	}
	switch c.Scraper.Renderer {
	case RendererBrowser, RendererHTTP:
	default:
		return fmt.Errorf("config: unknown renderer %q (want %q or %q)", c.Scraper.Renderer, RendererBrowser, RendererHTTP)
	}
	if c.Run.Limit < 0 {
		return fmt.Errorf("config: limit must not be negative, got %d", c.Run.Limit)
	}
	if c.Output.Path == "" {
		return fmt.Errorf("config: output path must not be empty")
	}
	return nil
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
