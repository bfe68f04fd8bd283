// SPDX-License-Identifier: Apache-2.0

// Package reset implements "gitviews cache reset", which runs a filter walk
// against a ref to populate a fresh in-memory cache, reports how many
// entries it holds for the filter, then flushes every entry. The cache lives
// only for the duration of the command; nothing is kept between
// invocations.
package reset

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitviews/gitviews/internal/gitinterface"
	"github.com/gitviews/gitviews/pkg/filterengine"
)

type options struct {
	repo   string
	filter string
	ref    string
}

func (o *options) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.repo, "repo", "", "path to the git directory to operate on (required)")
	cmd.Flags().StringVar(&o.filter, "filter", "", "filter spec to warm the cache with (required)")
	cmd.Flags().StringVar(&o.ref, "ref", "refs/heads/main", "ref to warm the cache from before flushing it")
	cmd.MarkFlagRequired("repo")   //nolint:errcheck
	cmd.MarkFlagRequired("filter") //nolint:errcheck
}

func (o *options) Run(cmd *cobra.Command, args []string) error {
	repo, err := gitinterface.Open(o.repo)
	if err != nil {
		return err
	}

	f, err := filterengine.Parse(o.filter)
	if err != nil {
		return fmt.Errorf("parsing filter: %w", err)
	}

	tip, err := gitinterface.ResolveRef(repo.Store, o.ref)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", o.ref, err)
	}

	engine, err := filterengine.New(repo.Store)
	if err != nil {
		return err
	}

	txn := engine.Transaction()
	if _, err := engine.Walk(txn, f, tip); err != nil {
		return err
	}
	engine.CommitTransaction(txn)

	before := engine.CacheSize(f)
	engine.ResetCache()
	after := engine.CacheSize(f)

	fmt.Fprintf(cmd.OutOrStdout(), "flushed %d cache entries for %q (now %d)\n", before, filterengine.Spec(f), after)
	return nil
}

// New returns the "reset" subcommand.
func New() *cobra.Command {
	o := &options{}

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Warm the cache from a ref, then flush it",
		Args:  cobra.NoArgs,
		RunE:  o.Run,
	}
	o.AddFlags(cmd)
	return cmd
}
