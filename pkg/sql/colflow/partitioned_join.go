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
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/vecjoin/pkg/col/coldata"
	"github.com/cockroachdb/vecjoin/pkg/sql/colexec/colexecjoin"
	"github.com/cockroachdb/vecjoin/pkg/sql/colexecerror"
	"github.com/cockroachdb/vecjoin/pkg/sql/types"
	"github.com/cockroachdb/vecjoin/pkg/util/envutil"
	"github.com/cockroachdb/vecjoin/pkg/util/log"
	"github.com/marusama/semaphore"
	"golang.org/x/sync/errgroup"
)

// defaultParallelism is the number of partitions joined concurrently when
// PartitionedNestedLoopJoin.Parallelism is not set.
var defaultParallelism = envutil.EnvOrDefaultInt("COCKROACH_VEC_NLJ_PARALLELISM", runtime.GOMAXPROCS(0))

// BatchPair is a single partition of a partitioned nested loop join: every
// row of Left is compared against every row of Right.
type BatchPair struct {
	Left  coldata.Batch
	Right coldata.Batch
}

// EmitFunc receives the matches found in a partition. matches holds n pairs
// of physical indices into pair.Left and pair.Right and is only valid until
// EmitFunc returns. EmitFunc is called concurrently for different
// partitions, but never concurrently for the same partition.
type EmitFunc func(partitionIdx int, pair BatchPair, matches *colexecjoin.MatchBuffer, n int) error

// PartitionedNestedLoopJoin runs nested loop joins over independent
// partitions in parallel. Every partition gets its own matcher, cursor and
// match buffer, so nothing is shared between the goroutines other than the
// read-only input batches.
type PartitionedNestedLoopJoin struct {
	// Parallelism is the maximum number of partitions processed at the same
	// time. COCKROACH_VEC_NLJ_PARALLELISM, which defaults to
	// runtime.GOMAXPROCS(0), is used if it is not positive.
	Parallelism int
	// MatchBufferCapacity is the capacity of the match buffer of every
	// partition. coldata.BatchSize() is used if it is zero.
	MatchBufferCapacity int
}

// Run enumerates the matches of every partition in pairs and passes them to
// emit. Errors in the conditions are returned before any partition starts.
// The first error returned by emit, or the cancellation of ctx, stops all
// partitions and is returned.
func (p PartitionedNestedLoopJoin) Run(
	ctx context.Context,
	leftTypes, rightTypes []*types.T,
	conds colexecjoin.JoinConditions,
	pairs []BatchPair,
	emit EmitFunc,
) error {
	// Matchers hold collators which can't be shared, so this one is only used
	// to validate the conditions up front.
	if _, err := colexecjoin.NewNestedLoopMatcher(leftTypes, rightTypes, conds); err != nil {
		return err
	}
	parallelism := p.Parallelism
	if parallelism <= 0 {
		parallelism = max(defaultParallelism, 1)
	}
	capacity := p.MatchBufferCapacity
	if capacity == 0 {
		capacity = coldata.BatchSize()
	}
	log.VEventf(ctx, 1, "joining %d partitions with parallelism %d", len(pairs), parallelism)

	sem := semaphore.New(parallelism)
	g, gCtx := errgroup.WithContext(ctx)
	var acquireErr error
	for i := range pairs {
		if err := sem.Acquire(gCtx, 1); err != nil {
			acquireErr = err
			break
		}
		i := i
		g.Go(func() error {
			defer sem.Release(1)
			partitionCtx := logtags.AddTag(gCtx, "partition", i)
			if err := runPartition(partitionCtx, i, pairs[i], leftTypes, rightTypes, conds, capacity, emit); err != nil {
				return errors.Wrapf(err, "partition %d", i)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return acquireErr
}

func runPartition(
	ctx context.Context,
	partitionIdx int,
	pair BatchPair,
	leftTypes, rightTypes []*types.T,
	conds colexecjoin.JoinConditions,
	capacity int,
	emit EmitFunc,
) error {
	matcher, err := colexecjoin.NewNestedLoopMatcher(leftTypes, rightTypes, conds)
	if err != nil {
		return err
	}
	matches := colexecjoin.NewMatchBuffer(capacity)
	var cursor colexecjoin.Cursor
	var runErr error
	var numCalls, numMatches int
	if err := colexecerror.CatchVectorizedRuntimeError(func() {
		leftLen, rightLen := pair.Left.Length(), pair.Right.Length()
		for cursor.State(leftLen, rightLen) == colexecjoin.Scanning {
			if runErr = ctx.Err(); runErr != nil {
				return
			}
			n := matcher.Perform(&cursor, pair.Left, pair.Right, matches)
			numCalls++
			numMatches += n
			if n == 0 {
				continue
			}
			if runErr = emit(partitionIdx, pair, matches, n); runErr != nil {
				return
			}
		}
	}); err != nil {
		return err
	}
	log.VEventf(ctx, 2, "found %d matches in %d calls", numMatches, numCalls)
	return runErr
}
