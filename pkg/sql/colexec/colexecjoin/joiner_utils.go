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
	"github.com/cockroachdb/vecjoin/pkg/col/coldata"
	"github.com/cockroachdb/vecjoin/pkg/sql/colexecerror"
	"github.com/cockroachdb/vecjoin/pkg/sql/colexecop"
	"github.com/cockroachdb/vecjoin/pkg/sql/types"
)

// newTwoInputNode returns a colexecop.OpNode with two Operator inputs.
func newTwoInputNode(inputOne, inputTwo colexecop.Operator) twoInputNode {
	return twoInputNode{inputOne: inputOne, inputTwo: inputTwo}
}

type twoInputNode struct {
	inputOne colexecop.Operator
	inputTwo colexecop.Operator
}

func (twoInputNode) ChildCount(verbose bool) int {
	return 2
}

func (n *twoInputNode) Child(nth int, verbose bool) colexecop.Operator {
	switch nth {
	case 0:
		return n.inputOne
	case 1:
		return n.inputTwo
	}
	colexecerror.InternalError(errors.AssertionFailedf("invalid idx %d", nth))
	// This code is unreachable, but the compiler cannot infer that.
	return nil
}

// joinHelper is a utility struct that helps with the initialization of the
// inputs of the joiners.
type joinHelper struct {
	colexecop.InitHelper
	twoInputNode
}

func newJoinHelper(inputOne, inputTwo colexecop.Operator) *joinHelper {
	return &joinHelper{twoInputNode: newTwoInputNode(inputOne, inputTwo)}
}

// init initializes both inputs and returns true if this is the first time
// init was called.
func (h *joinHelper) init(ctx context.Context) bool {
	if !h.InitHelper.Init(ctx) {
		return false
	}
	h.inputOne.Init(h.Ctx)
	h.inputTwo.Init(h.Ctx)
	return true
}

// resetInputs resets the inputs that support it.
func (h *joinHelper) resetInputs(ctx context.Context) {
	if r, ok := h.inputOne.(colexecop.Resetter); ok {
		r.Reset(ctx)
	}
	if r, ok := h.inputTwo.(colexecop.Resetter); ok {
		r.Reset(ctx)
	}
}

// closeInputs closes the inputs that need it and returns the combination of
// their errors.
func (h *joinHelper) closeInputs(ctx context.Context) error {
	var lastErr error
	for _, input := range []colexecop.Operator{h.inputOne, h.inputTwo} {
		if c, ok := input.(colexecop.Closer); ok {
			if err := c.Close(ctx); err != nil {
				lastErr = errors.CombineErrors(lastErr, err)
			}
		}
	}
	return lastErr
}

// makeOutputTypes returns the schema of the output of an inner join: the left
// columns followed by the right columns.
func makeOutputTypes(leftTypes, rightTypes []*types.T) []*types.T {
	outputTypes := make([]*types.T, 0, len(leftTypes)+len(rightTypes))
	outputTypes = append(outputTypes, leftTypes...)
	return append(outputTypes, rightTypes...)
}

// copyNonNullKeyRows copies the rows of src that are not NULL in any of
// keyCols into dst, starting at position 0, and returns the number of copied
// rows. dst must have enough capacity for all rows of src and ends up
// without a selection vector. scratch is used to store the physical indices
// of the copied rows and is returned, possibly reallocated, for reuse.
func copyNonNullKeyRows(
	dst, src coldata.Batch, keyCols []int, scratch []int,
) (numCopied int, _ []int) {
	sel := src.Selection()
	scratch = scratch[:0]
	for i := 0; i < src.Length(); i++ {
		idx := coldata.PhysicalIdx(sel, i)
		if !anyNullAt(src, keyCols, idx) {
			scratch = append(scratch, idx)
		}
	}
	dst.ResetInternalBatch()
	for colIdx, vec := range dst.ColVecs() {
		vec.Gather(src.ColVec(colIdx), scratch, 0 /* destStartIdx */)
	}
	dst.SetLength(len(scratch))
	return len(scratch), scratch
}

func anyNullAt(b coldata.Batch, cols []int, idx int) bool {
	for _, colIdx := range cols {
		if b.ColVec(colIdx).Nulls().NullAt(idx) {
			return true
		}
	}
	return false
}
