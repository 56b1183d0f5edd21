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

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/vecjoin/pkg/col/coldata"
	"github.com/cockroachdb/vecjoin/pkg/col/typeconv"
	"github.com/cockroachdb/vecjoin/pkg/sql/colexecop"
	"github.com/cockroachdb/vecjoin/pkg/sql/types"
	"github.com/cockroachdb/vecjoin/pkg/util/log"
)

// NestedLoopJoinerArgs are the arguments of NewNestedLoopJoiner.
type NestedLoopJoinerArgs struct {
	Left       colexecop.Operator
	Right      colexecop.Operator
	LeftTypes  []*types.T
	RightTypes []*types.T
	Conditions JoinConditions
	// OutputBatchSize is the capacity of the match buffer and of the output
	// batches. coldata.BatchSize() is used if it is zero.
	OutputBatchSize int
	// Metrics, if set, is updated as the join makes progress.
	Metrics *Metrics
}

// NewNestedLoopJoiner returns a vectorized INNER join operator that
// evaluates arbitrary conjunctions of comparisons between the left and right
// columns. The output contains the left columns followed by the right
// columns.
//
// The whole right input is buffered. Then every left batch is paired with
// every buffered right batch and the pairs are enumerated with a
// NestedLoopMatcher. Rows that are NULL in any column referenced by the
// conditions can never match and are dropped before enumeration.
func NewNestedLoopJoiner(args NestedLoopJoinerArgs) (colexecop.ClosableOperator, error) {
	if err := typeconv.AreTypesSupported(args.LeftTypes); err != nil {
		return nil, errors.Wrap(err, "left input")
	}
	if err := typeconv.AreTypesSupported(args.RightTypes); err != nil {
		return nil, errors.Wrap(err, "right input")
	}
	matcher, err := NewNestedLoopMatcher(args.LeftTypes, args.RightTypes, args.Conditions)
	if err != nil {
		return nil, err
	}
	outputBatchSize := args.OutputBatchSize
	if outputBatchSize == 0 {
		outputBatchSize = coldata.BatchSize()
	}
	return &nestedLoopJoiner{
		joinHelper:   newJoinHelper(args.Left, args.Right),
		matcher:      matcher,
		leftTypes:    args.LeftTypes,
		rightTypes:   args.RightTypes,
		outputTypes:  makeOutputTypes(args.LeftTypes, args.RightTypes),
		leftKeyCols:  args.Conditions.LeftCols(),
		rightKeyCols: args.Conditions.RightCols(),
		matches:      NewMatchBuffer(outputBatchSize),
		metrics:      args.Metrics,
	}, nil
}

type nestedLoopJoiner struct {
	*joinHelper

	matcher                   *NestedLoopMatcher
	leftTypes                 []*types.T
	rightTypes                []*types.T
	outputTypes               []*types.T
	leftKeyCols, rightKeyCols []int
	metrics                   *Metrics

	// rightInputConsumed indicates whether the right input has been fully
	// buffered into rightBatches.
	rightInputConsumed bool
	// rightBatches are deep copies of the right input batches without the
	// rows that are NULL in a key column. None of them is empty.
	rightBatches   []coldata.Batch
	numRightTuples int

	// state describes the progress of the enumeration.
	state struct {
		// leftBatch is a copy of the current left batch without the rows
		// that are NULL in a key column. It is nil until the first left
		// batch is read.
		leftBatch coldata.Batch
		// rightBatchIdx is the index of the right batch paired with
		// leftBatch. It equals len(rightBatches) once leftBatch is fully
		// processed.
		rightBatchIdx int
		// cursor is the resumption point within the current pair of
		// batches.
		cursor Cursor
	}

	matches *MatchBuffer
	output  coldata.Batch
	scratch []int
	// numEmitted is the total number of output rows emitted so far.
	numEmitted int
	// done indicates that the joiner has emitted all of its output. Once set
	// to true, only zero-length batches are emitted.
	done bool
}

var _ colexecop.ClosableOperator = &nestedLoopJoiner{}
var _ colexecop.ResettableOperator = &nestedLoopJoiner{}
var _ colexecop.OpNode = &nestedLoopJoiner{}

func (j *nestedLoopJoiner) Init(ctx context.Context) {
	j.joinHelper.init(logtags.AddTag(ctx, "nlj", nil))
}

func (j *nestedLoopJoiner) Next() coldata.Batch {
	if j.done {
		return coldata.ZeroBatch
	}
	if !j.rightInputConsumed {
		j.consumeRightInput(j.Ctx)
	}
	for {
		if j.state.leftBatch == nil || j.state.rightBatchIdx == len(j.rightBatches) {
			if len(j.rightBatches) == 0 || !j.readNextLeftBatch() {
				log.VEventf(j.Ctx, 2, "nested loop join done, emitted %d rows", j.numEmitted)
				j.done = true
				return coldata.ZeroBatch
			}
		}
		leftBatch := j.state.leftBatch
		rightBatch := j.rightBatches[j.state.rightBatchIdx]
		n := j.matcher.Perform(&j.state.cursor, leftBatch, rightBatch, j.matches)
		j.metrics.recordPerform(n)
		if j.state.cursor.State(leftBatch.Length(), rightBatch.Length()) == Exhausted {
			j.state.rightBatchIdx++
			j.state.cursor.Reset()
		}
		if n > 0 {
			return j.buildOutput(leftBatch, rightBatch, n)
		}
	}
}

// consumeRightInput buffers all of the right input.
func (j *nestedLoopJoiner) consumeRightInput(ctx context.Context) {
	for {
		batch := j.inputTwo.Next()
		if batch.Length() == 0 {
			break
		}
		copied := coldata.NewMemBatchWithCapacity(j.rightTypes, batch.Length())
		var n int
		n, j.scratch = copyNonNullKeyRows(copied, batch, j.rightKeyCols, j.scratch)
		if n == 0 {
			continue
		}
		j.rightBatches = append(j.rightBatches, copied)
		j.numRightTuples += n
	}
	j.rightInputConsumed = true
	log.VEventf(ctx, 2, "buffered %d right rows in %d batches", j.numRightTuples, len(j.rightBatches))
}

// readNextLeftBatch reads left batches until one has a row without NULL
// keys and prepares the state for pairing it with the right batches. It
// returns false if the left input is exhausted.
func (j *nestedLoopJoiner) readNextLeftBatch() bool {
	for {
		batch := j.inputOne.Next()
		if batch.Length() == 0 {
			return false
		}
		if j.state.leftBatch == nil || j.state.leftBatch.Capacity() < batch.Length() {
			capacity := batch.Length()
			if capacity < coldata.BatchSize() {
				capacity = coldata.BatchSize()
			}
			j.state.leftBatch = coldata.NewMemBatchWithCapacity(j.leftTypes, capacity)
		}
		var n int
		n, j.scratch = copyNonNullKeyRows(j.state.leftBatch, batch, j.leftKeyCols, j.scratch)
		if n > 0 {
			j.state.rightBatchIdx = 0
			j.state.cursor.Reset()
			return true
		}
	}
}

// buildOutput gathers the first n matched pairs into the output batch.
func (j *nestedLoopJoiner) buildOutput(leftBatch, rightBatch coldata.Batch, n int) coldata.Batch {
	if j.output == nil {
		j.output = coldata.NewMemBatchWithCapacity(j.outputTypes, j.matches.Capacity())
	}
	j.output.ResetInternalBatch()
	vecs := j.output.ColVecs()
	for i := range j.leftTypes {
		vecs[i].Gather(leftBatch.ColVec(i), j.matches.LeftIdx[:n], 0 /* destStartIdx */)
	}
	rightColOffset := len(j.leftTypes)
	for i := range j.rightTypes {
		vecs[rightColOffset+i].Gather(rightBatch.ColVec(i), j.matches.RightIdx[:n], 0 /* destStartIdx */)
	}
	j.output.SetLength(n)
	j.numEmitted += n
	j.metrics.recordOutputBatch()
	return j.output
}

func (j *nestedLoopJoiner) Reset(ctx context.Context) {
	j.resetInputs(ctx)
	j.rightInputConsumed = false
	j.rightBatches = nil
	j.numRightTuples = 0
	j.state.rightBatchIdx = 0
	j.state.cursor.Reset()
	if j.state.leftBatch != nil {
		j.state.leftBatch.ResetInternalBatch()
	}
	j.numEmitted = 0
	j.done = false
}

func (j *nestedLoopJoiner) Close(ctx context.Context) error {
	j.rightBatches = nil
	return j.closeInputs(ctx)
}
