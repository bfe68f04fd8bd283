// SPDX-License-Identifier: Apache-2.0

// Package cache groups the administrative subcommands for the filter cache.
package cache

import (
	"github.com/spf13/cobra"

	"github.com/gitviews/gitviews/internal/cmd/cache/reset"
)

// New returns the "cache" command group.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or reset the filter cache",
	}

	cmd.AddCommand(reset.New())

	return cmd
}
