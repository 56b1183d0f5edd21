// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// Package colexecop defines the interfaces shared by all vectorized
// operators.
package colexecop

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/vecjoin/pkg/col/coldata"
	"github.com/cockroachdb/vecjoin/pkg/sql/colexecerror"
)

// Operator is a column vector operator that produces a Batch as output.
type Operator interface {
	// Init initializes this operator. It will be called once at operator
	// setup time. Second, third, etc calls should be noops. If an operator has
	// any input operators, it's responsible for calling Init on all of those
	// input operators as well.
	//
	// Canceling the provided context results in forceful termination of the
	// execution. The operators are expected to hold onto the provided context
	// (and derive a new one if needed) that is then used for Next() calls.
	Init(ctx context.Context)

	// Next returns the next Batch from this operator. Once the operator is
	// finished, it will return a Batch with length 0. Subsequent calls to
	// Next at that point will always return a Batch with length 0.
	//
	// Calling Next may invalidate the contents of the last Batch returned by
	// Next.
	//
	// It might panic with an expected error, so there must be a "root"
	// component that will catch that panic.
	Next() coldata.Batch
}

// NonExplainable is a marker interface which identifies an Operator that
// should be omitted from the output of EXPLAIN (VEC). Note that VERBOSE
// explain option will override the omitting behavior.
type NonExplainable interface {
	// nonExplainableMarker is just a marker method. It should never be called.
	nonExplainableMarker()
}

// Closer is an object that releases resources when Close is called. Note
// that this interface must be implemented by all operators that could be
// planned on top of other operators that do actually need to release the
// resources.
type Closer interface {
	Close(context.Context) error
}

// ClosableOperator is an Operator that needs to be Close()'d.
type ClosableOperator interface {
	Operator
	Closer
}

// Resetter is an interface that operators can implement if they can be
// reset either for reusing (to keep the already allocated memory) or during
// tests.
type Resetter interface {
	// Reset resets the operator for reuse.
	Reset(ctx context.Context)
}

// ResettableOperator is an Operator that can be reset.
type ResettableOperator interface {
	Operator
	Resetter
}

// InitHelper is a simple struct that helps Operators implement Init() method.
type InitHelper struct {
	// Ctx is the context passed on the first call to Init(). If it is nil,
	// then Init() hasn't been called yet.
	Ctx context.Context
}

// Init marks the InitHelper as initialized. If true is returned, this is the
// first call to Init.
func (h *InitHelper) Init(ctx context.Context) bool {
	if h.Ctx != nil {
		return false
	}
	if ctx == nil {
		ctx = context.Background()
	}
	h.Ctx = ctx
	return true
}

// OpNode is an operator that exposes its inputs, which allows walking a tree
// of operators.
type OpNode interface {
	// ChildCount returns the number of inputs of the operator.
	ChildCount(verbose bool) int
	// Child returns the nth input of the operator. It panics if nth is out of
	// range.
	Child(nth int, verbose bool) Operator
}

// ZeroInputNode is an OpNode with no inputs.
type ZeroInputNode struct{}

// ChildCount implements the OpNode interface.
func (ZeroInputNode) ChildCount(verbose bool) int {
	return 0
}

// Child implements the OpNode interface.
func (ZeroInputNode) Child(nth int, verbose bool) Operator {
	colexecerror.InternalError(errors.AssertionFailedf("invalid index %d", nth))
	// This code is unreachable, but the compiler cannot infer that.
	return nil
}

// OneInputNode is an OpNode with a single Operator input.
type OneInputNode struct {
	Input Operator
}

// NewOneInputNode returns an OpNode with a single Operator input.
func NewOneInputNode(input Operator) OneInputNode {
	return OneInputNode{Input: input}
}

// ChildCount implements the OpNode interface.
func (OneInputNode) ChildCount(verbose bool) int {
	return 1
}

// Child implements the OpNode interface.
func (n OneInputNode) Child(nth int, verbose bool) Operator {
	if nth == 0 {
		return n.Input
	}
	colexecerror.InternalError(errors.AssertionFailedf("invalid index %d", nth))
	// This code is unreachable, but the compiler cannot infer that.
	return nil
}

// Walk calls visit on op and then on every operator below it, depth first.
// Operators that don't implement OpNode are treated as leaves.
func Walk(op Operator, visit func(depth int, op Operator)) {
	walk(op, 0, visit)
}

func walk(op Operator, depth int, visit func(int, Operator)) {
	visit(depth, op)
	n, ok := op.(OpNode)
	if !ok {
		return
	}
	for i := 0; i < n.ChildCount(true /* verbose */); i++ {
		walk(n.Child(i, true /* verbose */), depth+1, visit)
	}
}
