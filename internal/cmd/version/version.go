// SPDX-License-Identifier: Apache-2.0

// Package version implements "gitviews version".
package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitviews/gitviews/internal/version"
)

// New returns the "version" subcommand.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the gitviews version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version.GetVersion())
			return nil
		},
	}
}
