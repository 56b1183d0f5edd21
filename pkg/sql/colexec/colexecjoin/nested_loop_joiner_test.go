// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package colexecjoin

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/vecjoin/pkg/col/coldata"
	"github.com/cockroachdb/vecjoin/pkg/sql/colexec"
	"github.com/cockroachdb/vecjoin/pkg/sql/colexecop"
	"github.com/cockroachdb/vecjoin/pkg/sql/sem/treecmp"
	"github.com/cockroachdb/vecjoin/pkg/sql/types"
	"github.com/cockroachdb/vecjoin/pkg/util/buildutil"
	"github.com/cockroachdb/vecjoin/pkg/util/log"
	"github.com/cockroachdb/vecjoin/pkg/util/randutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// collectRows drains op and returns its output rows in the format of
// coldata.PrettyBatch along with the number of non-empty batches.
func collectRows(t *testing.T, op colexecop.Operator) (rows []string, numBatches int) {
	t.Helper()
	for {
		b := op.Next()
		if b.Length() == 0 {
			return rows, numBatches
		}
		numBatches++
		rows = append(rows, strings.Split(strings.TrimSuffix(b.String(), "\n"), "\n")...)
	}
}

// maybeWrapInvariantsChecker plans an invariants checker on top of op in
// crdb_test builds.
func maybeWrapInvariantsChecker(op colexecop.Operator) colexecop.Operator {
	if buildutil.CrdbTestBuild {
		return colexec.NewInvariantsChecker(op)
	}
	return op
}

func TestNestedLoopJoiner(t *testing.T) {
	defer log.Scope(t).Close(t)
	ctx := context.Background()

	leftTypes := []*types.T{types.Int, types.String}
	rightTypes := []*types.T{types.Int, types.Float}
	left := colexecop.NewFixedBatchesOp(
		makeBatch(t, leftTypes, tuple{1, "a"}, tuple{nil, "b"}, tuple{3, "c"}),
		makeBatch(t, leftTypes),
		makeBatch(t, leftTypes, tuple{2, "d"}),
	)
	right := colexecop.NewFixedBatchesOp(
		makeBatch(t, rightTypes, tuple{2, 0.5}, tuple{nil, 1.5}),
		makeBatch(t, rightTypes, tuple{4, nil}),
	)
	metrics := NewMetrics()
	op, err := NewNestedLoopJoiner(NestedLoopJoinerArgs{
		Left:            maybeWrapInvariantsChecker(left),
		Right:           maybeWrapInvariantsChecker(right),
		LeftTypes:       leftTypes,
		RightTypes:      rightTypes,
		Conditions:      JoinConditions{{Op: treecmp.LT}},
		OutputBatchSize: 2,
		Metrics:         metrics,
	})
	require.NoError(t, err)
	op.Init(ctx)

	expected := []string{
		// First left batch against both right batches. The rows with NULL
		// keys never match.
		"[1 a 2 0.5]",
		"[1 a 4 NULL]",
		"[3 c 4 NULL]",
		// Second non-empty left batch.
		"[2 d 4 NULL]",
	}
	rows, numBatches := collectRows(t, op)
	require.Equal(t, expected, rows)
	// Output batches never span two pairs of input batches.
	require.Equal(t, 3, numBatches)
	require.Zero(t, op.Next().Length())

	require.Equal(t, float64(len(expected)), testutil.ToFloat64(metrics.MatchedPairs))
	require.Equal(t, float64(numBatches), testutil.ToFloat64(metrics.OutputBatches))
	require.Less(t, float64(numBatches), testutil.ToFloat64(metrics.PerformCalls))

	// After a reset the same output is produced again.
	op.(colexecop.Resetter).Reset(ctx)
	rows, _ = collectRows(t, op)
	require.Equal(t, expected, rows)
	require.NoError(t, op.Close(ctx))
}

func TestNestedLoopJoinerEmptyInputs(t *testing.T) {
	defer log.Scope(t).Close(t)
	ctx := context.Background()

	for _, tc := range []struct {
		name        string
		left, right []tuple
	}{
		{name: "empty left", right: intRows(1, 2)},
		{name: "empty right", left: intRows(1, 2)},
		{name: "all NULL right", left: intRows(1), right: []tuple{{nil}, {nil}}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			op, err := NewNestedLoopJoiner(NestedLoopJoinerArgs{
				Left:       colexecop.NewFixedBatchesOp(makeBatch(t, intType, tc.left...)),
				Right:      colexecop.NewFixedBatchesOp(makeBatch(t, intType, tc.right...)),
				LeftTypes:  intType,
				RightTypes: intType,
				Conditions: JoinConditions{{Op: treecmp.EQ}},
			})
			require.NoError(t, err)
			op.Init(ctx)
			rows, _ := collectRows(t, op)
			require.Empty(t, rows)
			require.NoError(t, op.Close(ctx))
		})
	}
}

func TestNestedLoopJoinerErrors(t *testing.T) {
	defer log.Scope(t).Close(t)

	input := colexecop.NewFixedBatchesOp()
	_, err := NewNestedLoopJoiner(NestedLoopJoinerArgs{
		Left:       input,
		Right:      input,
		LeftTypes:  []*types.T{types.Jsonb},
		RightTypes: []*types.T{types.Jsonb},
		Conditions: JoinConditions{{Op: treecmp.EQ}},
	})
	require.ErrorContains(t, err, "unsupported type jsonb")

	_, err = NewNestedLoopJoiner(NestedLoopJoinerArgs{
		Left:       input,
		Right:      input,
		LeftTypes:  intType,
		RightTypes: intType,
		Conditions: JoinConditions{{Op: treecmp.IsDistinctFrom}},
	})
	var opErr *UnsupportedOperatorError
	require.True(t, errors.As(err, &opErr))
}

func TestNestedLoopJoinerChildren(t *testing.T) {
	defer log.Scope(t).Close(t)

	left, right := colexecop.NewFixedBatchesOp(), colexecop.NewFixedBatchesOp()
	op, err := NewNestedLoopJoiner(NestedLoopJoinerArgs{
		Left:       left,
		Right:      right,
		LeftTypes:  intType,
		RightTypes: intType,
		Conditions: JoinConditions{{Op: treecmp.EQ}},
	})
	require.NoError(t, err)

	var visited []string
	colexecop.Walk(op, func(depth int, op colexecop.Operator) {
		visited = append(visited, fmt.Sprintf("%d %T", depth, op))
	})
	require.Equal(t, []string{
		"0 *colexecjoin.nestedLoopJoiner",
		"1 *colexecop.FixedBatchesOp",
		"1 *colexecop.FixedBatchesOp",
	}, visited)
	node := op.(colexecop.OpNode)
	require.Same(t, left, node.Child(0, false /* verbose */))
	require.Same(t, right, node.Child(1, false /* verbose */))
}

func TestMetricsRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics()
	require.NoError(t, m.Register(reg))
	// Registering the same collectors twice fails.
	require.Error(t, m.Register(reg))

	m.recordPerform(3)
	m.recordOutputBatch()
	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	require.Equal(t, 3, count)
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP sql_nested_loop_join_matched_pairs_total Number of pairs of rows that satisfied all join conditions.
# TYPE sql_nested_loop_join_matched_pairs_total counter
sql_nested_loop_join_matched_pairs_total 3
`), "sql_nested_loop_join_matched_pairs_total"))
	require.Equal(t, float64(3), testutil.ToFloat64(m.MatchedPairs))

	// A nil Metrics is a no-op.
	var nilMetrics *Metrics
	nilMetrics.recordPerform(1)
	nilMetrics.recordOutputBatch()
}

// randomInput returns between zero and three batches of random rows, some of
// them NULL, along with the logical rows of every batch.
func randomInput(
	t *testing.T, rng *rand.Rand, typs []*types.T,
) (batches []coldata.Batch, rows [][]tuple) {
	for i, n := 0, rng.Intn(4); i < n; i++ {
		_, batchRows, _ := randomBatch(t, rng, typs)
		for r := range batchRows {
			for c := range batchRows[r] {
				if rng.Intn(6) == 0 {
					batchRows[r][c] = nil
				}
			}
		}
		// Rebuild the batch without a selection vector so that the NULLs
		// are reflected in it.
		batches = append(batches, makeBatch(t, typs, batchRows...))
		rows = append(rows, batchRows)
	}
	return batches, rows
}

func prettyRow(left, right tuple) string {
	vals := make([]string, 0, len(left)+len(right))
	for _, v := range append(append(tuple{}, left...), right...) {
		switch v := v.(type) {
		case nil:
			vals = append(vals, "NULL")
		case float64:
			vals = append(vals, fmt.Sprintf("%g", v))
		default:
			vals = append(vals, fmt.Sprint(v))
		}
	}
	return "[" + strings.Join(vals, " ") + "]"
}

func hasNullKey(row tuple, cols []int) bool {
	for _, c := range cols {
		if row[c] == nil {
			return true
		}
	}
	return false
}

// TestNestedLoopJoinerRandomized compares the output of the joiner against a
// naive nested loop over the same batches.
func TestNestedLoopJoinerRandomized(t *testing.T) {
	defer log.Scope(t).Close(t)
	ctx := context.Background()
	rng, _ := randutil.NewTestRand(t)

	for iter := 0; iter < 100; iter++ {
		numCols := 1 + rng.Intn(3)
		typs := make([]*types.T, numCols)
		for i := range typs {
			typs[i] = randomKeyTypes[rng.Intn(len(randomKeyTypes))]
		}
		conds := make(JoinConditions, 1+rng.Intn(2))
		for i := range conds {
			col := rng.Intn(numCols)
			conds[i] = JoinCondition{Op: canonicalOps[rng.Intn(len(canonicalOps))], LeftColIdx: col, RightColIdx: col}
		}
		leftBatches, leftRows := randomInput(t, rng, typs)
		rightBatches, rightRows := randomInput(t, rng, typs)

		var expected []string
		for _, leftBatchRows := range leftRows {
			for _, rightBatchRows := range rightRows {
				for _, rightRow := range rightBatchRows {
					if hasNullKey(rightRow, conds.RightCols()) {
						continue
					}
					for _, leftRow := range leftBatchRows {
						if hasNullKey(leftRow, conds.LeftCols()) {
							continue
						}
						ok := true
						for _, cond := range conds {
							if !evalOp(cond.Op, compareValues(leftRow[cond.LeftColIdx], rightRow[cond.RightColIdx])) {
								ok = false
								break
							}
						}
						if ok {
							expected = append(expected, prettyRow(leftRow, rightRow))
						}
					}
				}
			}
		}

		op, err := NewNestedLoopJoiner(NestedLoopJoinerArgs{
			Left:            maybeWrapInvariantsChecker(colexecop.NewFixedBatchesOp(leftBatches...)),
			Right:           maybeWrapInvariantsChecker(colexecop.NewFixedBatchesOp(rightBatches...)),
			LeftTypes:       typs,
			RightTypes:      typs,
			Conditions:      conds,
			OutputBatchSize: 1 + rng.Intn(7),
		})
		require.NoError(t, err)
		op.Init(ctx)
		rows, _ := collectRows(t, op)
		require.Equal(t, expected, rows, "conditions %s", conds)
		require.NoError(t, op.Close(ctx))
	}
}
