// SPDX-License-Identifier: Apache-2.0

// Package parse implements "gitviews parse", which parses a filter spec and
// prints its canonical spec form or, with --pretty, its multi-line pretty
// form, to let an
// operator confirm how a filter normalises before wiring it into a view.
package parse

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitviews/gitviews/pkg/filterengine"
)

type options struct {
	pretty bool
}

func (o *options) AddFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.pretty, "pretty", false, "print the multi-line pretty form instead of the spec form")
}

func (o *options) Run(cmd *cobra.Command, args []string) error {
	f, err := filterengine.Parse(args[0])
	if err != nil {
		return fmt.Errorf("parsing filter: %w", err)
	}

	if o.pretty {
		fmt.Fprintln(cmd.OutOrStdout(), filterengine.Pretty(f, 0))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), filterengine.Spec(f))
	return nil
}

// New returns the "parse" subcommand.
func New() *cobra.Command {
	o := &options{}

	cmd := &cobra.Command{
		Use:   "parse <filter-spec>",
		Short: "Parse a filter spec and print its normalised form",
		Args:  cobra.ExactArgs(1),
		RunE:  o.Run,
	}
	o.AddFlags(cmd)
	return cmd
}
