// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/vecjoin/pkg/col/coldata"
	"github.com/cockroachdb/vecjoin/pkg/util/collatedstring"
	"github.com/cockroachdb/vecjoin/pkg/util/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func makeNLJoinCommand() *cobra.Command {
	var verbosity int
	command := &cobra.Command{
		Use:   "nljoin [command] (flags)",
		Short: "nljoin joins two files on a conjunction of comparison conditions.",
		Long: `nljoin joins two files on a conjunction of comparison conditions using the
vectorized nested loop join.

Inputs are CSV files whose header cells have the form name:type, or parquet
files with a flat schema. Each side may consist of several files with the same
columns, which are read in the order given.

Typical usage:
    nljoin join --left orders.csv --right customers.parquet --on 'l.customer = r.id'
        Join the two files on equality of the customer and id columns.

    nljoin join --left a.csv --right b.csv --on 'l.start <= r.ts' --on 'r.ts < l.end' --parallelism 8
        Join on a range condition, running up to 8 pairs of batches at once.
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetVerbosity(int32(verbosity))
		},
	}
	command.PersistentFlags().IntVarP(&verbosity, "verbosity", "v", 0, "log verbosity")

	command.AddCommand(makeJoinCommand())
	command.AddCommand(makeCollationsCommand())
	return command
}

func makeJoinCommand() *cobra.Command {
	cfg := joinConfig{
		parallelism: 1,
		capacity:    coldata.BatchSize(),
		format:      "table",
	}
	var printMetrics, explain bool
	runCmdFunc := func(cmd *cobra.Command, args []string) error {
		if printMetrics {
			cfg.registry = prometheus.NewRegistry()
		}
		if explain {
			cfg.explainOut = cmd.ErrOrStderr()
		}
		res, err := runJoin(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		if err := writeResult(cmd.OutOrStdout(), cfg.format, res); err != nil {
			return err
		}
		if printMetrics {
			return writeMetrics(cmd.ErrOrStderr(), cfg.registry)
		}
		return nil
	}
	command := &cobra.Command{
		Use:   "join --left <file> --right <file> --on <condition> [--on <condition>...]",
		Short: "Join two files and print every pair of rows satisfying all conditions",
		Long: `Join two files and print every pair of rows satisfying all conditions.

Conditions compare a left column with a right column, for example 'l.a = r.b'
or 'r.ts >= l.start'. Supported operators are =, <>, <, <=, > and >=. Rows with
a NULL in any compared column never match.

With --parallelism 1 the join runs through the nested loop join operator;
otherwise every pair of batches is joined as a separate partition, with at most
--parallelism partitions at once (0 picks a default).`,
		Args: cobra.NoArgs,
		RunE: runCmdFunc,
	}
	command.Flags().StringArrayVar(&cfg.leftPaths, "left", nil, "left input file, may be repeated")
	command.Flags().StringArrayVar(&cfg.rightPaths, "right", nil, "right input file, may be repeated")
	command.Flags().Var(&cfg.conditions, "on", "join condition, may be repeated")
	command.Flags().IntVar(&cfg.parallelism, "parallelism", cfg.parallelism, "number of partitions joined concurrently")
	command.Flags().IntVar(&cfg.capacity, "capacity", cfg.capacity, "maximum number of pairs produced per step")
	command.Flags().StringVar(&cfg.format, "format", cfg.format, "output format, table or csv")
	command.Flags().BoolVar(&explain, "explain", false, "print the tree of operators to stderr, only with --parallelism 1")
	command.Flags().BoolVar(&printMetrics, "print-metrics", false, "print operator metrics to stderr, only with --parallelism 1")
	_ = command.MarkFlagRequired("left")
	_ = command.MarkFlagRequired("right")
	_ = command.MarkFlagRequired("on")
	return command
}

func makeCollationsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "collations",
		Short: "List the locales accepted in string collate <locale> types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range collatedstring.Supported() {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// writeMetrics prints the value of every counter in r.
func writeMetrics(w io.Writer, r *prometheus.Registry) error {
	families, err := r.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if _, err := fmt.Fprintf(w, "%s %g\n", mf.GetName(), m.GetCounter().GetValue()); err != nil {
				return err
			}
		}
	}
	return nil
}

func main() {
	cmd := makeNLJoinCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %+v\n", err)
		os.Exit(1)
	}
}
