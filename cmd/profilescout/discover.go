package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/use-agent/profilescout/config"
	"github.com/use-agent/profilescout/discovery"
)

func newDiscoverCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Print the profile URLs found in the directory, one per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDiscover(cmd.Context(), cmd.OutOrStdout(), cfg)
		},
	}
}

func runDiscover(ctx context.Context, out io.Writer, cfg *config.Config) error {
	r, release, err := openRenderer(cfg)
	defer release()
	if err != nil {
		return err
	}

	d := discovery.New(r, discovery.OptionsFromConfig(cfg))
	urls, err := d.Discover(ctx)
	for _, u := range urls {
		fmt.Fprintln(out, u)
	}
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
	}
	return nil
}
