package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/use-agent/profilescout/config"
	"github.com/use-agent/profilescout/discovery"
	"github.com/use-agent/profilescout/extract"
	"github.com/use-agent/profilescout/models"
)

func newProfileCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "profile URL...",
		Short: "Extract the given profile pages and print one JSON record per line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfiles(cmd.Context(), cmd.OutOrStdout(), cfg, args)
		},
	}
}

func runProfiles(ctx context.Context, out io.Writer, cfg *config.Config, urls []string) error {
	r, release, err := openRenderer(cfg)
	defer release()
	if err != nil {
		return err
	}

	ex := extract.New(r, extract.OptionsFromConfig(cfg))
	for _, arg := range urls {
		if ctx.Err() != nil {
			fmt.Fprintln(out, "Scraping interrupted by user")
			return nil
		}
		u, err := profileURL(arg, cfg.Site.Root())
		if err != nil {
			fmt.Fprintf(out, "Failed to scrape %s: %s\n", u, models.CodeOf(err))
			continue
		}
		rec, err := ex.Extract(ctx, u)
		if err != nil {
			fmt.Fprintf(out, "Failed to scrape %s: %s\n", u, models.CodeOf(err))
			continue
		}
		b, err := rec.MarshalJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(b))
	}
	return nil
}

// profileURL resolves a command-line argument against the site root. Blank
// arguments and non-http schemes are rejected.
func profileURL(arg, root string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" || strings.ContainsAny(arg, " \t\n") {
		return arg, models.NewScrapeError(models.ErrCodeInvalidInput, "profile URL is blank or contains spaces", nil)
	}
	if i := strings.Index(arg, "://"); i >= 0 {
		if scheme := strings.ToLower(arg[:i]); scheme != "http" && scheme != "https" {
			return arg, models.NewScrapeError(models.ErrCodeInvalidInput, "profile URL must be http(s)", nil)
		}
	}
	u := discovery.Normalize(arg, root)
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return u, models.NewScrapeError(models.ErrCodeInvalidInput, "profile URL has no host", err)
	}
	return u, nil
}
