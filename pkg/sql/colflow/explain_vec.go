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
	"reflect"

	"github.com/cockroachdb/vecjoin/pkg/sql/colexecerror"
	"github.com/cockroachdb/vecjoin/pkg/sql/colexecop"
)

// ExplainVec returns the string representation of the tree of operators
// rooted at op, one row per operator. Operators that don't implement
// colexecop.OpNode are printed as leaves.
func ExplainVec(op colexecop.Operator, verbose bool) (rows []string, err error) {
	// Child panics on out of range children, so such errors are caught.
	err = colexecerror.CatchVectorizedRuntimeError(func() {
		rows = append(rows, "│")
		formatOpChain(op, verbose, &rows)
	})
	return rows, err
}

func formatOpChain(operator colexecop.Operator, verbose bool, rows *[]string) {
	seenOps := make(map[reflect.Value]struct{})
	if shouldOutput(operator, verbose) {
		*rows = append(*rows, "└── "+reflect.TypeOf(operator).String())
		doFormatOpChain(operator, "    ", verbose, seenOps, rows)
	} else {
		doFormatOpChain(operator, "", verbose, seenOps, rows)
	}
}

func doFormatOpChain(
	operator colexecop.Operator,
	prefix string,
	verbose bool,
	seenOps map[reflect.Value]struct{},
	rows *[]string,
) {
	node, ok := operator.(colexecop.OpNode)
	if !ok {
		return
	}
	numChildren := node.ChildCount(verbose)
	for i := 0; i < numChildren; i++ {
		child := node.Child(i, verbose)
		if !shouldOutput(child, verbose) {
			doFormatOpChain(child, prefix, verbose, seenOps, rows)
			continue
		}
		branch, indent := "├── ", "│   "
		if i == numChildren-1 {
			branch, indent = "└── ", "    "
		}
		*rows = append(*rows, prefix+branch+reflect.TypeOf(child).String())
		childOpValue := reflect.ValueOf(child)
		if _, seenOp := seenOps[childOpValue]; seenOp {
			// We have already seen this operator, so in order to not repeat the
			// full chain again, we only print out its name.
			continue
		}
		seenOps[childOpValue] = struct{}{}
		doFormatOpChain(child, prefix+indent, verbose, seenOps, rows)
	}
}

func shouldOutput(operator colexecop.Operator, verbose bool) bool {
	_, nonExplainable := operator.(colexecop.NonExplainable)
	return !nonExplainable || verbose
}
