// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package colflow

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/vecjoin/pkg/col/coldata"
	"github.com/cockroachdb/vecjoin/pkg/sql/colexec/colexecjoin"
	"github.com/cockroachdb/vecjoin/pkg/sql/sem/treecmp"
	"github.com/cockroachdb/vecjoin/pkg/sql/types"
	"github.com/cockroachdb/vecjoin/pkg/util/log"
	"github.com/cockroachdb/vecjoin/pkg/util/randutil"
	"github.com/stretchr/testify/require"
)

var intTypes = []*types.T{types.Int}

func intBatch(vals ...int64) coldata.Batch {
	b := coldata.NewMemBatchWithCapacity(intTypes, max(len(vals), 1))
	copy(b.ColVec(0).Int64(), vals)
	b.SetLength(len(vals))
	return b
}

// expectedMatches returns the pairs (l, r) with left[l] <= right[r] in
// right-then-left order.
func expectedMatches(left, right []int64) []string {
	var res []string
	for r := range right {
		for l := range left {
			if left[l] <= right[r] {
				res = append(res, fmt.Sprintf("(%d,%d)", l, r))
			}
		}
	}
	return res
}

func TestPartitionedNestedLoopJoin(t *testing.T) {
	defer log.Scope(t).Close(t)
	ctx := context.Background()
	rng, _ := randutil.NewTestRand(t)

	const numPartitions = 16
	pairs := make([]BatchPair, numPartitions)
	expected := make([][]string, numPartitions)
	for i := range pairs {
		left := make([]int64, rng.Intn(20))
		for j := range left {
			left[j] = int64(rng.Intn(10))
		}
		right := make([]int64, rng.Intn(20))
		for j := range right {
			right[j] = int64(rng.Intn(10))
		}
		pairs[i] = BatchPair{Left: intBatch(left...), Right: intBatch(right...)}
		expected[i] = expectedMatches(left, right)
	}

	for _, parallelism := range []int{1, 3, 0} {
		t.Run(fmt.Sprintf("parallelism=%d", parallelism), func(t *testing.T) {
			var mu sync.Mutex
			got := make([][]string, numPartitions)
			var active, maxActive atomic.Int32
			join := PartitionedNestedLoopJoin{Parallelism: parallelism, MatchBufferCapacity: 1 + rng.Intn(8)}
			err := join.Run(ctx, intTypes, intTypes, colexecjoin.JoinConditions{{Op: treecmp.LE}}, pairs,
				func(partitionIdx int, pair BatchPair, matches *colexecjoin.MatchBuffer, n int) error {
					cur := active.Add(1)
					defer active.Add(-1)
					for {
						prev := maxActive.Load()
						if cur <= prev || maxActive.CompareAndSwap(prev, cur) {
							break
						}
					}
					mu.Lock()
					defer mu.Unlock()
					for i := 0; i < n; i++ {
						got[partitionIdx] = append(got[partitionIdx], fmt.Sprintf("(%d,%d)", matches.LeftIdx[i], matches.RightIdx[i]))
					}
					return nil
				})
			require.NoError(t, err)
			require.Equal(t, expected, got)
			if parallelism > 0 {
				require.LessOrEqual(t, int(maxActive.Load()), parallelism)
			}
		})
	}
}

func TestPartitionedNestedLoopJoinErrors(t *testing.T) {
	defer log.Scope(t).Close(t)
	ctx := context.Background()

	pairs := make([]BatchPair, 8)
	for i := range pairs {
		pairs[i] = BatchPair{Left: intBatch(1, 2, 3), Right: intBatch(1, 2, 3)}
	}
	conds := colexecjoin.JoinConditions{{Op: treecmp.EQ}}
	noop := func(int, BatchPair, *colexecjoin.MatchBuffer, int) error { return nil }

	t.Run("setup", func(t *testing.T) {
		var called atomic.Bool
		err := PartitionedNestedLoopJoin{}.Run(ctx, intTypes, intTypes,
			colexecjoin.JoinConditions{{Op: treecmp.Like}}, pairs,
			func(int, BatchPair, *colexecjoin.MatchBuffer, int) error {
				called.Store(true)
				return nil
			})
		var opErr *colexecjoin.UnsupportedOperatorError
		require.True(t, errors.As(err, &opErr))
		require.False(t, called.Load())
	})

	t.Run("emit", func(t *testing.T) {
		boom := errors.New("boom")
		err := PartitionedNestedLoopJoin{Parallelism: 2}.Run(ctx, intTypes, intTypes, conds, pairs,
			func(partitionIdx int, _ BatchPair, _ *colexecjoin.MatchBuffer, _ int) error {
				if partitionIdx == 5 {
					return boom
				}
				return nil
			})
		require.True(t, errors.Is(err, boom))
		require.ErrorContains(t, err, "partition 5")
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(ctx)
		cancel()
		err := PartitionedNestedLoopJoin{Parallelism: 2}.Run(ctx, intTypes, intTypes, conds, pairs, noop)
		require.True(t, errors.Is(err, context.Canceled))
	})
}
