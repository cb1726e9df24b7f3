package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/use-agent/profilescout/config"
	"github.com/use-agent/profilescout/render"
	"github.com/use-agent/profilescout/scraper"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	scrape := newScrapeCmd(cfg)

	root := &cobra.Command{
		Use:           "profilescout",
		Short:         "Scrape startup directory profiles and upload them to Google Sheets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			initLogger(cfg.Log)
			return cfg.Validate()
		},
		// A bare invocation runs the full scrape.
		RunE: scrape.RunE,
	}

	f := root.PersistentFlags()
	f.StringVar(&cfg.Site.BaseURL, "base-url", cfg.Site.BaseURL, "directory site root")
	f.StringVar(&cfg.Site.DirectoryPath, "directory-path", cfg.Site.DirectoryPath, "listing page path below the base URL")
	f.BoolVar(&cfg.Browser.Headless, "headless", cfg.Browser.Headless, "run the browser headless")
	f.StringVar(&cfg.Scraper.Renderer, "renderer", cfg.Scraper.Renderer, "page renderer: browser or http")
	f.IntVar(&cfg.Discovery.MaxPages, "max-pages", cfg.Discovery.MaxPages, "maximum directory pages to visit")
	f.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "log level: debug, info, warn or error")

	addOutputFlags(root, cfg)
	root.AddCommand(scrape, newDiscoverCmd(cfg), newProfileCmd(cfg))
	return root
}

// addOutputFlags registers the persistence flags used by the full scrape.
func addOutputFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.PersistentFlags()
	f.IntVar(&cfg.Run.Limit, "limit", cfg.Run.Limit, "limit number of profiles to scrape (0 = all)")
	f.StringVar(&cfg.Output.Path, "output", cfg.Output.Path, "output file (.json array or JSON lines)")
	f.StringVar(&cfg.Output.XLSXPath, "xlsx", cfg.Output.XLSXPath, "also write an Excel workbook to this path")
	f.BoolVar(&cfg.Output.SkipUpload, "skip-upload", cfg.Output.SkipUpload, "skip uploading to Google Sheets")
	f.StringVar(&cfg.Output.Credentials, "credentials", cfg.Output.Credentials, "Google service account credentials file")
	f.StringVar(&cfg.Output.Spreadsheet, "spreadsheet", cfg.Output.Spreadsheet, "Google spreadsheet name")
	f.StringVar(&cfg.Output.Worksheet, "worksheet", cfg.Output.Worksheet, "worksheet name")
	f.StringVar(&cfg.Output.WebhookURL, "webhook-url", cfg.Output.WebhookURL, "POST the finished run to this URL")
}

// openRenderer starts the configured renderer. The returned release func
// is always safe to call.
func openRenderer(cfg *config.Config) (render.Renderer, func(), error) {
	switch cfg.Scraper.Renderer {
	case config.RendererHTTP:
		f := render.NewHTTPFetcher(cfg.Browser.Proxy, cfg.Browser.UserAgent)
		r := render.NewStaticRenderer(f, cfg.Scraper.NavigationTimeout)
		return r, func() { f.Close() }, nil
	default:
		slog.Info("launching browser", "headless", cfg.Browser.Headless)
		s, err := scraper.NewSession(cfg.Browser, cfg.Scraper)
		if err != nil {
			return nil, func() {}, fmt.Errorf("start browser: %w", err)
		}
		return s, func() {
			if err := s.Close(); err != nil {
				slog.Warn("browser close failed", "error", err)
			}
		}, nil
	}
}
