// Package scraper drives a real Chromium instance through go-rod and
// exposes it as a render.Renderer.
package scraper

import (
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/use-agent/profilescout/config"
	"github.com/use-agent/profilescout/models"
)

// chromeFlags hide the automation banner and keep a single background
// tab running at full speed.
var chromeFlags = []struct {
	name   flags.Flag
	values []string
}{
	{"disable-blink-features", []string{"AutomationControlled"}},
	{"disable-features", []string{"AudioServiceOutOfProcess,TranslateUI"}},
	{"disable-renderer-backgrounding", nil},
	{"disable-background-timer-throttling", nil},
	{"disable-backgrounding-occluded-windows", nil},
	{"disable-dev-shm-usage", nil},
	{"disable-extensions", nil},
	{"no-first-run", nil},
	{"window-size", []string{"1920,1080"}},
}

// Session owns one browser process and exactly one page. Every page
// operation is serialised; the crawl is sequential and reuses the tab.
type Session struct {
	mu     sync.Mutex
	closed bool

	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	router   *rod.HijackRouter

	navTimeout    time.Duration
	actionTimeout time.Duration
}

// NewSession launches the browser and prepares its single page: user agent,
// optional stealth evasions and request blocking are installed before the
// first navigation.
func NewSession(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig) (*Session, error) {
	l := launcher.New().
		Headless(browserCfg.Headless).
		NoSandbox(browserCfg.NoSandbox)

	if browserCfg.BrowserBin != "" {
		l = l.Bin(browserCfg.BrowserBin)
	}
	if browserCfg.Proxy != "" {
		l = l.Proxy(browserCfg.Proxy)
	}

	for _, f := range chromeFlags {
		l.Set(f.name, f.values...)
	}
	l.Delete("enable-automation")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL, "headless", browserCfg.Headless)

	s := &Session{
		launcher:      l,
		navTimeout:    scraperCfg.NavigationTimeout,
		actionTimeout: scraperCfg.ActionTimeout,
	}

	s.browser = rod.New().ControlURL(controlURL)
	if err := s.browser.Connect(); err != nil {
		s.kill()
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to connect to browser", err)
	}

	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = s.Close()
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to open page", err)
	}
	s.page = page

	if browserCfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      browserCfg.UserAgent,
			AcceptLanguage: "en-US,en;q=0.9",
		}); err != nil {
			slog.Warn("user agent override failed", "error", err)
		}
	}
	if browserCfg.Stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
		}
	}
	s.router = newRequestFilter(scraperCfg.BlockedResourceTypes, browserCfg.BlockAds).install(page)

	return s, nil
}

// Close releases the page and kills the browser. It is safe to call more
// than once and from any goroutine.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	slog.Info("browser session shutting down")
	if s.router != nil {
		_ = s.router.Stop()
	}
	if s.page != nil {
		_ = s.page.Close()
	}
	var err error
	if s.browser != nil {
		err = s.browser.Close()
	}
	s.kill()
	return err
}

func (s *Session) kill() {
	if s.launcher == nil {
		return
	}
	s.launcher.Kill()
	s.launcher.Cleanup()
}
