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
	"testing"

	"github.com/cockroachdb/vecjoin/pkg/col/coldata"
	"github.com/cockroachdb/vecjoin/pkg/sql/colexecerror"
	"github.com/cockroachdb/vecjoin/pkg/sql/colexecop"
	"github.com/cockroachdb/vecjoin/pkg/sql/types"
	"github.com/cockroachdb/vecjoin/pkg/util/buildutil"
	"github.com/stretchr/testify/require"
)

// batchesAfterZeroOp violates the Operator contract by returning a non-empty
// batch after a zero-length one.
type batchesAfterZeroOp struct {
	colexecop.ZeroInputNode
	b     coldata.Batch
	calls int
}

func (o *batchesAfterZeroOp) Init(context.Context) {}

func (o *batchesAfterZeroOp) Next() coldata.Batch {
	o.calls++
	if o.calls == 1 {
		return coldata.ZeroBatch
	}
	return o.b
}

func TestInvariantsChecker(t *testing.T) {
	if !buildutil.CrdbTestBuild {
		err := colexecerror.CatchVectorizedRuntimeError(func() {
			NewInvariantsChecker(colexecop.NewFixedBatchesOp())
		})
		require.Error(t, err)
		return
	}
	ctx := context.Background()

	b := coldata.NewMemBatchWithCapacity([]*types.T{types.Int}, 4)
	b.SetLength(3)
	input := colexecop.NewFixedBatchesOp(b)
	op := NewInvariantsChecker(input)
	require.Equal(t, input, MaybeUnwrapInvariantsChecker(op))

	// Next before Init.
	require.Error(t, colexecerror.CatchVectorizedRuntimeError(func() { op.Next() }))

	op.Init(ctx)
	require.Equal(t, 3, op.Next().Length())
	require.Zero(t, op.Next().Length())

	// A selection vector that isn't increasing.
	b.SetSelection(true)
	copy(b.Selection(), []int{0, 2, 1})
	op.(colexecop.Resetter).Reset(ctx)
	require.Error(t, colexecerror.CatchVectorizedRuntimeError(func() { op.Next() }))

	nonEmpty := coldata.NewMemBatchWithCapacity([]*types.T{types.Int}, 1)
	nonEmpty.SetLength(1)
	bad := NewInvariantsChecker(&batchesAfterZeroOp{b: nonEmpty})
	bad.Init(ctx)
	require.Zero(t, bad.Next().Length())
	require.Error(t, colexecerror.CatchVectorizedRuntimeError(func() { bad.Next() }))
	require.NoError(t, op.Close(ctx))
}
