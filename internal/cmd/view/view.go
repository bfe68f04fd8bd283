// SPDX-License-Identifier: Apache-2.0

// Package view implements "gitviews view", which opens an on-disk
// repository, applies a filter to one ref, and writes the filtered result to
// another ref — the same operation a hosting frontend runs on every push,
// exposed here for operators to replay or debug by hand.
package view

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gitviews/gitviews/internal/gitinterface"
	"github.com/gitviews/gitviews/pkg/filterengine"
)

type options struct {
	repo   string
	filter string
	src    string
	dst    string
}

func (o *options) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.repo, "repo", "", "path to the git directory to operate on (required)")
	cmd.Flags().StringVar(&o.filter, "filter", "", "filter spec to apply (required)")
	cmd.Flags().StringVar(&o.src, "src", "refs/heads/main", "source ref to read the original tip from")
	cmd.Flags().StringVar(&o.dst, "dst", "", "destination ref to write the filtered tip to (required)")
	cmd.MarkFlagRequired("repo")   //nolint:errcheck
	cmd.MarkFlagRequired("filter") //nolint:errcheck
	cmd.MarkFlagRequired("dst")    //nolint:errcheck
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

	engine, err := filterengine.New(repo.Store)
	if err != nil {
		return err
	}

	txn := engine.Transaction()
	updated, err := engine.ApplyFilterToRefs(txn, f, []filterengine.RefPair{{Src: o.src, Dst: o.dst}})
	if err != nil {
		return err
	}
	engine.CommitTransaction(txn)

	stats := txn.Stats()
	slog.Info("applied filter to ref",
		"repo", repo.String(),
		"filter", filterengine.Spec(f),
		"src", o.src,
		"dst", o.dst,
		"updated", updated,
		"cache_hits", stats.Hits,
		"cache_misses", stats.Misses,
		"walks", stats.Walks,
	)

	if updated == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no change")
		return nil
	}

	tip, err := gitinterface.ResolveRef(repo.Store, o.dst)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tip.String())
	return nil
}

// New returns the "view" subcommand.
func New() *cobra.Command {
	o := &options{}

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Apply a filter to a ref and write the result to another ref",
		Args:  cobra.NoArgs,
		RunE:  o.Run,
	}
	o.AddFlags(cmd)
	return cmd
}
