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
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/cockroachdb/vecjoin/pkg/col/coldata"
	"github.com/cockroachdb/vecjoin/pkg/sql/sem/treecmp"
	"github.com/cockroachdb/vecjoin/pkg/sql/types"
	"github.com/stretchr/testify/require"
)

// tuple is a row of a test batch. A nil element is NULL.
type tuple []interface{}

// makeBatch returns a batch of the given types containing rows.
func makeBatch(t *testing.T, typs []*types.T, rows ...tuple) coldata.Batch {
	t.Helper()
	b := coldata.NewMemBatchWithCapacity(typs, max(len(rows), 1))
	for rowIdx, row := range rows {
		require.Len(t, row, len(typs))
		for colIdx, v := range row {
			coldata.SetValueAt(b.ColVec(colIdx), v, rowIdx)
		}
	}
	b.SetLength(len(rows))
	return b
}

// setSelection makes sel the selection vector of b.
func setSelection(b coldata.Batch, sel []int) {
	b.SetSelection(true)
	copy(b.Selection(), sel)
	b.SetLength(len(sel))
}

// intRows returns single column rows with the given values.
func intRows(vals ...int64) []tuple {
	rows := make([]tuple, len(vals))
	for i, v := range vals {
		rows[i] = tuple{v}
	}
	return rows
}

// parseTypes parses type names in which underscores stand for spaces, e.g.
// "string_collate_de".
func parseTypes(t *testing.T, names []string) []*types.T {
	t.Helper()
	typs := make([]*types.T, len(names))
	for i, name := range names {
		typ, err := types.FromName(strings.ReplaceAll(name, "_", " "))
		require.NoError(t, err)
		typs[i] = typ
	}
	return typs
}

// parseValue parses the textual form of a value of type t. "NULL" is NULL.
func parseValue(t *testing.T, typ *types.T, s string) interface{} {
	t.Helper()
	if s == "NULL" {
		return nil
	}
	switch typ.Family() {
	case types.BoolFamily:
		v, err := strconv.ParseBool(s)
		require.NoError(t, err)
		return v
	case types.IntFamily, types.DateFamily, types.TimestampFamily:
		v, err := strconv.ParseInt(s, 10, 64)
		require.NoError(t, err)
		return v
	case types.FloatFamily, types.DecimalFamily:
		v, err := strconv.ParseFloat(s, 64)
		require.NoError(t, err)
		return v
	case types.PointerFamily:
		v, err := strconv.ParseUint(s, 10, 64)
		require.NoError(t, err)
		return v
	}
	return s
}

// parseCondition parses a condition in the form printed by
// JoinCondition.String, e.g. "@L1 = @R2".
func parseCondition(t *testing.T, s string) JoinCondition {
	t.Helper()
	fields := strings.Fields(s)
	require.GreaterOrEqual(t, len(fields), 3, "malformed condition %q", s)
	left, right := fields[0], fields[len(fields)-1]
	require.True(t, strings.HasPrefix(left, "@L"), "malformed condition %q", s)
	require.True(t, strings.HasPrefix(right, "@R"), "malformed condition %q", s)
	leftOrd, err := strconv.Atoi(left[2:])
	require.NoError(t, err)
	rightOrd, err := strconv.Atoi(right[2:])
	require.NoError(t, err)
	op, err := treecmp.ParseComparisonOperator(strings.Join(fields[1:len(fields)-1], " "))
	require.NoError(t, err)
	return JoinCondition{Op: op, LeftColIdx: leftOrd - 1, RightColIdx: rightOrd - 1}
}

// formatMatches prints the first n pairs of matches, one per line.
func formatMatches(matches *MatchBuffer, n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "(%d,%d)\n", matches.LeftIdx[i], matches.RightIdx[i])
	}
	return sb.String()
}
