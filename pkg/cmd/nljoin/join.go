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
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/vecjoin/pkg/col/coldata"
	"github.com/cockroachdb/vecjoin/pkg/sql/colexec/colexecjoin"
	"github.com/cockroachdb/vecjoin/pkg/sql/colexecerror"
	"github.com/cockroachdb/vecjoin/pkg/sql/colflow"
	"github.com/cockroachdb/vecjoin/pkg/util/log"
	"github.com/prometheus/client_golang/prometheus"
)

type joinConfig struct {
	leftPaths, rightPaths []string
	conditions            conditionsFlag
	parallelism           int
	capacity              int
	format                string
	registry              *prometheus.Registry
	// explainOut, if set, receives the tree of operators running the join.
	explainOut io.Writer
}

// joinResult holds the formatted rows of a join in output order.
type joinResult struct {
	header []string
	rows   [][]string
}

func runJoin(ctx context.Context, cfg joinConfig) (*joinResult, error) {
	if cfg.capacity < 1 {
		return nil, errors.Newf("--capacity must be positive, got %d", cfg.capacity)
	}
	left, err := loadSide(ctx, cfg.leftPaths, coldata.BatchSize())
	if err != nil {
		return nil, errors.Wrap(err, "left input")
	}
	right, err := loadSide(ctx, cfg.rightPaths, coldata.BatchSize())
	if err != nil {
		return nil, errors.Wrap(err, "right input")
	}
	conds, err := resolveConditions(cfg.conditions, left.names, right.names)
	if err != nil {
		return nil, err
	}
	log.Infof(ctx, "joining on %s", conds)

	res := &joinResult{}
	for _, name := range left.names {
		res.header = append(res.header, "l."+name)
	}
	for _, name := range right.names {
		res.header = append(res.header, "r."+name)
	}
	if cfg.parallelism == 1 {
		err = joinWithOperator(ctx, cfg, left, right, conds, res)
	} else {
		err = joinPartitioned(ctx, cfg, left, right, conds, res)
	}
	if err != nil {
		return nil, err
	}
	log.Infof(ctx, "join produced %d rows", len(res.rows))
	return res, nil
}

// joinWithOperator runs the join through the nested loop join operator.
func joinWithOperator(
	ctx context.Context,
	cfg joinConfig,
	left, right *side,
	conds colexecjoin.JoinConditions,
	res *joinResult,
) error {
	var metrics *colexecjoin.Metrics
	if cfg.registry != nil {
		metrics = colexecjoin.NewMetrics()
		if err := metrics.Register(cfg.registry); err != nil {
			return err
		}
	}
	op, err := colexecjoin.NewNestedLoopJoiner(colexecjoin.NestedLoopJoinerArgs{
		Left:            left.operator(),
		Right:           right.operator(),
		LeftTypes:       left.types,
		RightTypes:      right.types,
		Conditions:      conds,
		OutputBatchSize: cfg.capacity,
		Metrics:         metrics,
	})
	if err != nil {
		return err
	}
	if cfg.explainOut != nil {
		rows, err := colflow.ExplainVec(op, log.V(1))
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(cfg.explainOut, strings.Join(rows, "\n")); err != nil {
			return err
		}
	}
	if err := colexecerror.CatchVectorizedRuntimeError(func() {
		op.Init(ctx)
		for b := op.Next(); b.Length() > 0; b = op.Next() {
			sel := b.Selection()
			for i := 0; i < b.Length(); i++ {
				idx := coldata.PhysicalIdx(sel, i)
				row := make([]string, b.Width())
				for j, vec := range b.ColVecs() {
					row[j] = formatValue(vec, idx)
				}
				res.rows = append(res.rows, row)
			}
		}
	}); err != nil {
		return errors.CombineErrors(err, op.Close(ctx))
	}
	return op.Close(ctx)
}

// joinPartitioned runs every pair of input batches as its own partition.
func joinPartitioned(
	ctx context.Context,
	cfg joinConfig,
	left, right *side,
	conds colexecjoin.JoinConditions,
	res *joinResult,
) error {
	leftBatches := selectNonNullKeys(left.batches(), conds.LeftCols())
	rightBatches := selectNonNullKeys(right.batches(), conds.RightCols())
	var pairs []colflow.BatchPair
	for _, l := range leftBatches {
		for _, r := range rightBatches {
			pairs = append(pairs, colflow.BatchPair{Left: l, Right: r})
		}
	}
	results := make([][][]string, len(pairs))
	driver := colflow.PartitionedNestedLoopJoin{
		Parallelism:         cfg.parallelism,
		MatchBufferCapacity: cfg.capacity,
	}
	err := driver.Run(ctx, left.types, right.types, conds, pairs,
		func(partitionIdx int, pair colflow.BatchPair, matches *colexecjoin.MatchBuffer, n int) error {
			for i := 0; i < n; i++ {
				row := make([]string, 0, pair.Left.Width()+pair.Right.Width())
				for _, vec := range pair.Left.ColVecs() {
					row = append(row, formatValue(vec, matches.LeftIdx[i]))
				}
				for _, vec := range pair.Right.ColVecs() {
					row = append(row, formatValue(vec, matches.RightIdx[i]))
				}
				results[partitionIdx] = append(results[partitionIdx], row)
			}
			return nil
		})
	if err != nil {
		return err
	}
	// Pairs are laid out left batch major, which is the order in which the
	// operator produces its output.
	for _, rows := range results {
		res.rows = append(res.rows, rows...)
	}
	return nil
}

// selectNonNullKeys sets the selection vector of every batch to skip rows
// that have a NULL in any of keyCols, and returns the batches that still
// have rows.
func selectNonNullKeys(batches []coldata.Batch, keyCols []int) []coldata.Batch {
	out := make([]coldata.Batch, 0, len(batches))
	for _, b := range batches {
		n := b.Length()
		sel := make([]int, 0, n)
	rows:
		for i := 0; i < n; i++ {
			idx := coldata.PhysicalIdx(b.Selection(), i)
			for _, c := range keyCols {
				if b.ColVec(c).Nulls().NullAt(idx) {
					continue rows
				}
			}
			sel = append(sel, idx)
		}
		if len(sel) == 0 {
			continue
		}
		if len(sel) < n {
			b.SetSelection(true)
			copy(b.Selection(), sel)
			b.SetLength(len(sel))
		}
		out = append(out, b)
	}
	return out
}
