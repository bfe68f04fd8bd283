// SPDX-License-Identifier: Apache-2.0

// Package root composes the gitviews administrative CLI: a thin harness
// around the filter engine for operators to parse and print filter specs,
// replay ref filtering against an on-disk repository, and inspect or reset
// the filter cache. It is not the hosting frontend (no HTTP, no CGI bridge
// to git http-backend) — just the operations surface.
package root

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gitviews/gitviews/internal/cmd/cache"
	"github.com/gitviews/gitviews/internal/cmd/parse"
	"github.com/gitviews/gitviews/internal/cmd/version"
	"github.com/gitviews/gitviews/internal/cmd/view"
)

type options struct {
	verbose bool
}

func (o *options) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().BoolVar(&o.verbose, "verbose", false, "enable debug logging")
}

// New constructs the gitviews root command with every subcommand attached.
func New() *cobra.Command {
	o := &options{}

	cmd := &cobra.Command{
		Use:           "gitviews",
		Short:         "Administrative CLI for the gitviews filter engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if o.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return nil
		},
	}
	o.AddFlags(cmd)

	cmd.AddCommand(parse.New())
	cmd.AddCommand(view.New())
	cmd.AddCommand(cache.New())
	cmd.AddCommand(version.New())

	cmd.SetErr(os.Stderr)
	cmd.SetOut(os.Stdout)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return fmt.Errorf("no subcommand given, try --help")
	}

	return cmd
}
