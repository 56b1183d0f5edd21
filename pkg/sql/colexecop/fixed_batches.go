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

	"github.com/cockroachdb/vecjoin/pkg/col/coldata"
)

// FixedBatchesOp is an Operator that returns a fixed list of batches and
// then coldata.ZeroBatch forever. It is the input of choice for tests and
// for data loaded up front.
type FixedBatchesOp struct {
	ZeroInputNode
	InitHelper

	batches []coldata.Batch
	idx     int
}

var _ ResettableOperator = &FixedBatchesOp{}

// NewFixedBatchesOp returns a new FixedBatchesOp over batches.
func NewFixedBatchesOp(batches ...coldata.Batch) *FixedBatchesOp {
	return &FixedBatchesOp{batches: batches}
}

// Init implements the Operator interface.
func (o *FixedBatchesOp) Init(ctx context.Context) {
	o.InitHelper.Init(ctx)
}

// Next implements the Operator interface.
func (o *FixedBatchesOp) Next() coldata.Batch {
	for o.idx < len(o.batches) {
		b := o.batches[o.idx]
		o.idx++
		if b.Length() > 0 {
			return b
		}
	}
	return coldata.ZeroBatch
}

// Reset implements the Resetter interface.
func (o *FixedBatchesOp) Reset(context.Context) {
	o.idx = 0
}
