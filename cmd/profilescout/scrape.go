package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/use-agent/profilescout/config"
	"github.com/use-agent/profilescout/discovery"
	"github.com/use-agent/profilescout/extract"
	"github.com/use-agent/profilescout/models"
	"github.com/use-agent/profilescout/runner"
	"github.com/use-agent/profilescout/sink"
)

func newScrapeCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Discover every profile, extract it and save the results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScrape(cmd.Context(), cmd.OutOrStdout(), cfg)
		},
	}
}

func runScrape(ctx context.Context, out io.Writer, cfg *config.Config) error {
	r, release, err := openRenderer(cfg)
	defer release()
	if err != nil {
		return err
	}

	d := discovery.New(r, discovery.OptionsFromConfig(cfg))
	ex := extract.New(r, extract.OptionsFromConfig(cfg))

	fmt.Fprintf(out, "Fetching startup profile URLs from %s\n", cfg.Site.DirectoryURL())
	records, summary, err := runner.New(d, ex, cfg.Run.Limit).Run(ctx)
	switch {
	case summary.Interrupted:
		fmt.Fprintln(out, "Scraping interrupted by user")
	case err != nil:
		fmt.Fprintf(out, "Error: %v\n", err)
		return nil
	case summary.Discovered == 0:
		fmt.Fprintln(out, "No startup URLs found. Exiting.")
		return nil
	}

	fmt.Fprintf(out, "Successfully scraped %d out of %d profiles in %s\n",
		summary.Succeeded, summary.Attempted, summary.Duration().Round(time.Second))
	if summary.Interrupted && len(records) == 0 {
		return nil
	}

	// Persist even when interrupted so the work done so far survives.
	saveCtx := context.WithoutCancel(ctx)
	if err := sink.NewFileSink(cfg.Output.Path).Write(saveCtx, records); err != nil {
		fmt.Fprintf(out, "Error saving %s: %v\n", cfg.Output.Path, err)
		return nil
	}
	fmt.Fprintf(out, "Data saved to %s\n", cfg.Output.Path)

	if summary.Interrupted {
		return nil
	}
	publish(saveCtx, out, cfg, records, summary)
	fmt.Fprintln(out, "Scraping complete!")
	return nil
}

// publish runs the optional sinks. Their failures are reported and never
// affect the local file or the exit status.
func publish(ctx context.Context, out io.Writer, cfg *config.Config, records []*models.Record, summary *models.RunSummary) {
	var sinks []sink.Sink
	if cfg.Output.XLSXPath != "" {
		sinks = append(sinks, sink.NewXLSXSink(cfg.Output.XLSXPath, cfg.Output.Worksheet))
	}
	if cfg.Output.WebhookURL != "" {
		sinks = append(sinks, sink.NewWebhookSink(cfg.Output.WebhookURL, cfg.Output.WebhookSecret, summary))
	}

	if cfg.Output.SkipUpload {
		fmt.Fprintln(out, "Skipping Google Sheets upload (--skip-upload flag set)")
	} else {
		sheets, err := sink.NewSheetsSink(ctx, cfg.Output.Credentials, cfg.Output.Spreadsheet, cfg.Output.Worksheet)
		switch {
		case err != nil:
			fmt.Fprintf(out, "Error: %v\n", err)
			fmt.Fprintf(out, "Skipping Google Sheets upload. Data saved to %s.\n", cfg.Output.Path)
		default:
			sinks = append(sinks, sheets)
		}
	}

	if err := sink.WriteAll(ctx, records, sinks...); err != nil {
		fmt.Fprintf(out, "Error publishing results: %v\n", err)
		fmt.Fprintf(out, "Data saved to %s.\n", cfg.Output.Path)
	}
}
