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
	"strings"
	"testing"

	"github.com/cockroachdb/vecjoin/pkg/col/coldata"
	"github.com/cockroachdb/vecjoin/pkg/sql/colexec"
	"github.com/cockroachdb/vecjoin/pkg/sql/colexec/colexecjoin"
	"github.com/cockroachdb/vecjoin/pkg/sql/colexecop"
	"github.com/cockroachdb/vecjoin/pkg/sql/sem/treecmp"
	"github.com/cockroachdb/vecjoin/pkg/util/log"
	"github.com/stretchr/testify/require"
)

// hiddenOp passes its input through and is omitted from non-verbose
// explain output.
type hiddenOp struct {
	colexecop.OneInputNode
	colexecop.NonExplainable
}

func (h *hiddenOp) Init(ctx context.Context) { h.Input.Init(ctx) }

func (h *hiddenOp) Next() coldata.Batch { return h.Input.Next() }

func TestExplainVec(t *testing.T) {
	defer log.Scope(t).Close(t)

	op, err := colexecjoin.NewNestedLoopJoiner(colexecjoin.NestedLoopJoinerArgs{
		Left: colexec.NewSerialUnorderedSynchronizer([]colexecop.Operator{
			colexecop.NewFixedBatchesOp(intBatch(1)),
			colexecop.NewFixedBatchesOp(intBatch(2)),
		}),
		Right:      &hiddenOp{OneInputNode: colexecop.NewOneInputNode(colexecop.NewFixedBatchesOp(intBatch(3)))},
		LeftTypes:  intTypes,
		RightTypes: intTypes,
		Conditions: colexecjoin.JoinConditions{{Op: treecmp.LT}},
	})
	require.NoError(t, err)

	rows, err := ExplainVec(op, false /* verbose */)
	require.NoError(t, err)
	require.Equal(t, strings.TrimSpace(`
│
└── *colexecjoin.nestedLoopJoiner
    ├── *colexec.SerialUnorderedSynchronizer
    │   ├── *colexecop.FixedBatchesOp
    │   └── *colexecop.FixedBatchesOp
    └── *colexecop.FixedBatchesOp
`), strings.Join(rows, "\n"))

	rows, err = ExplainVec(op, true /* verbose */)
	require.NoError(t, err)
	require.Equal(t, strings.TrimSpace(`
│
└── *colexecjoin.nestedLoopJoiner
    ├── *colexec.SerialUnorderedSynchronizer
    │   ├── *colexecop.FixedBatchesOp
    │   └── *colexecop.FixedBatchesOp
    └── *colflow.hiddenOp
        └── *colexecop.FixedBatchesOp
`), strings.Join(rows, "\n"))
}

func TestExplainVecSharedInput(t *testing.T) {
	defer log.Scope(t).Close(t)

	// The same operator reachable twice is only expanded once.
	shared := &hiddenOp{OneInputNode: colexecop.NewOneInputNode(colexecop.NewFixedBatchesOp())}
	s := colexec.NewSerialUnorderedSynchronizer([]colexecop.Operator{shared, shared})
	rows, err := ExplainVec(s, true /* verbose */)
	require.NoError(t, err)
	require.Equal(t, []string{
		"│",
		"└── *colexec.SerialUnorderedSynchronizer",
		"    ├── *colflow.hiddenOp",
		"    │   └── *colexecop.FixedBatchesOp",
		"    └── *colflow.hiddenOp",
	}, rows)
}
