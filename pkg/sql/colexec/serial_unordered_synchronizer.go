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
	"github.com/cockroachdb/vecjoin/pkg/sql/colexecop"
)

// SerialUnorderedSynchronizer is an Operator that combines multiple Operator
// streams into one. It reads its inputs one by one until each one is
// exhausted, at which point it moves to the next input. All inputs must
// produce batches of the same schema.
type SerialUnorderedSynchronizer struct {
	colexecop.InitHelper

	inputs []colexecop.Operator
	// curSerialInputIdx indicates the index of the current input being consumed.
	curSerialInputIdx int
}

var _ colexecop.ClosableOperator = &SerialUnorderedSynchronizer{}
var _ colexecop.ResettableOperator = &SerialUnorderedSynchronizer{}
var _ colexecop.OpNode = &SerialUnorderedSynchronizer{}

// ChildCount implements the colexecop.OpNode interface.
func (s *SerialUnorderedSynchronizer) ChildCount(verbose bool) int {
	return len(s.inputs)
}

// Child implements the colexecop.OpNode interface.
func (s *SerialUnorderedSynchronizer) Child(nth int, verbose bool) colexecop.Operator {
	return s.inputs[nth]
}

// NewSerialUnorderedSynchronizer creates a new SerialUnorderedSynchronizer.
func NewSerialUnorderedSynchronizer(inputs []colexecop.Operator) *SerialUnorderedSynchronizer {
	return &SerialUnorderedSynchronizer{inputs: inputs}
}

// Init is part of the colexecop.Operator interface.
func (s *SerialUnorderedSynchronizer) Init(ctx context.Context) {
	if !s.InitHelper.Init(ctx) {
		return
	}
	for _, input := range s.inputs {
		input.Init(s.Ctx)
	}
}

// Next is part of the colexecop.Operator interface.
func (s *SerialUnorderedSynchronizer) Next() coldata.Batch {
	for {
		if s.curSerialInputIdx == len(s.inputs) {
			return coldata.ZeroBatch
		}
		b := s.inputs[s.curSerialInputIdx].Next()
		if b.Length() == 0 {
			s.curSerialInputIdx++
		} else {
			return b
		}
	}
}

// Reset is part of the colexecop.Resetter interface. Inputs that can't be
// reset are left as they are.
func (s *SerialUnorderedSynchronizer) Reset(ctx context.Context) {
	for _, input := range s.inputs {
		if r, ok := input.(colexecop.Resetter); ok {
			r.Reset(ctx)
		}
	}
	s.curSerialInputIdx = 0
}

// Close is part of the colexecop.Closer interface.
func (s *SerialUnorderedSynchronizer) Close(ctx context.Context) error {
	var lastErr error
	for _, input := range s.inputs {
		if c, ok := input.(colexecop.Closer); ok {
			if err := c.Close(ctx); err != nil {
				lastErr = errors.CombineErrors(lastErr, err)
			}
		}
	}
	return lastErr
}
