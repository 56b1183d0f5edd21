// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package colexecop

import (
	"context"
	"testing"

	"github.com/cockroachdb/vecjoin/pkg/col/coldata"
	"github.com/cockroachdb/vecjoin/pkg/sql/types"
	"github.com/stretchr/testify/require"
)

func TestFixedBatchesOp(t *testing.T) {
	ctx := context.Background()
	typs := []*types.T{types.Int}
	full := coldata.NewMemBatchWithCapacity(typs, 2)
	full.SetLength(2)
	empty := coldata.NewMemBatchWithCapacity(typs, 2)

	op := NewFixedBatchesOp(full, empty, full)
	op.Init(ctx)
	op.Init(ctx)
	require.Equal(t, ctx, op.Ctx)

	require.Equal(t, 2, op.Next().Length())
	// Empty batches in the middle are skipped.
	require.Equal(t, 2, op.Next().Length())
	require.Equal(t, 0, op.Next().Length())
	require.Equal(t, 0, op.Next().Length())

	op.Reset(ctx)
	require.Equal(t, 2, op.Next().Length())
}
