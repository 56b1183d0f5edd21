// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package colexec

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/vecjoin/pkg/col/coldata"
	"github.com/cockroachdb/vecjoin/pkg/sql/colexecerror"
	"github.com/cockroachdb/vecjoin/pkg/sql/colexecop"
	"github.com/cockroachdb/vecjoin/pkg/util/buildutil"
)

// invariantsChecker is a helper Operator that will check that invariants that
// are present in the vectorized engine are maintained on all batches. It
// should be planned between other Operators in tests.
type invariantsChecker struct {
	colexecop.OneInputNode
	colexecop.InitHelper
	colexecop.NonExplainable

	// exhausted is set once the input returned a zero-length batch.
	exhausted bool
}

var _ colexecop.ClosableOperator = &invariantsChecker{}
var _ colexecop.ResettableOperator = &invariantsChecker{}

// NewInvariantsChecker creates a new invariantsChecker.
func NewInvariantsChecker(input colexecop.Operator) colexecop.ClosableOperator {
	if !buildutil.CrdbTestBuild {
		colexecerror.InternalError(errors.AssertionFailedf(
			"an invariantsChecker is attempted to be created in non-test build",
		))
	}
	return &invariantsChecker{
		OneInputNode: colexecop.OneInputNode{Input: input},
	}
}

// MaybeUnwrapInvariantsChecker checks whether op is an invariants checker and
// returns its input if so, otherwise op is returned.
func MaybeUnwrapInvariantsChecker(op colexecop.Operator) colexecop.Operator {
	if i, ok := op.(*invariantsChecker); ok {
		return i.Input
	}
	return op
}

// Init implements the colexecop.Operator interface.
func (i *invariantsChecker) Init(ctx context.Context) {
	if !i.InitHelper.Init(ctx) {
		return
	}
	i.Input.Init(i.Ctx)
}

// Next implements the colexecop.Operator interface.
func (i *invariantsChecker) Next() coldata.Batch {
	if i.Ctx == nil {
		colexecerror.InternalError(errors.AssertionFailedf("Init hasn't been called, input is %T", i.Input))
	}
	b := i.Input.Next()
	n := b.Length()
	if n == 0 {
		i.exhausted = true
		return b
	}
	if i.exhausted {
		colexecerror.InternalError(errors.AssertionFailedf(
			"%T returned a batch of length %d after a zero-length batch", i.Input, n,
		))
	}
	if n > b.Capacity() {
		colexecerror.InternalError(errors.AssertionFailedf(
			"batch length %d exceeds its capacity %d", n, b.Capacity(),
		))
	}
	if sel := b.Selection(); sel != nil {
		for i := 1; i < n; i++ {
			if sel[i] <= sel[i-1] {
				colexecerror.InternalError(errors.AssertionFailedf(
					"unexpectedly selection vector is not an increasing sequence "+
						"at position %d: %v", i, sel[:n],
				))
			}
		}
		if sel[n-1] >= b.Capacity() {
			colexecerror.InternalError(errors.AssertionFailedf(
				"selection vector refers to row %d of a batch with capacity %d", sel[n-1], b.Capacity(),
			))
		}
	}
	return b
}

// Reset implements the colexecop.Resetter interface.
func (i *invariantsChecker) Reset(ctx context.Context) {
	i.exhausted = false
	if r, ok := i.Input.(colexecop.Resetter); ok {
		r.Reset(ctx)
	}
}

// Close is part of the colexecop.ClosableOperator interface.
func (i *invariantsChecker) Close(ctx context.Context) error {
	c, ok := i.Input.(colexecop.Closer)
	if !ok {
		return nil
	}
	return c.Close(ctx)
}
