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
	"bytes"
	"cmp"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/vecjoin/pkg/col/coldata"
	"github.com/cockroachdb/vecjoin/pkg/col/typeconv"
	"github.com/cockroachdb/vecjoin/pkg/sql/colexecerror"
	"github.com/cockroachdb/vecjoin/pkg/sql/sem/treecmp"
	"github.com/cockroachdb/vecjoin/pkg/sql/types"
	"github.com/cockroachdb/vecjoin/pkg/util/buildutil"
	"github.com/cockroachdb/vecjoin/pkg/util/collatedstring"
	"golang.org/x/text/collate"
)

// conditionMatcher evaluates a single join condition. initialMatch enumerates
// the cross product of two batches and refine filters the pairs found by
// another condition.
type conditionMatcher interface {
	initialMatch(cursor *Cursor, left, right coldata.Batch, matches *MatchBuffer) int
	refine(left, right coldata.Batch, matches *MatchBuffer, n int) int
}

// comparator is a comparison operator over values of a single physical type.
// Implementations are empty or tiny structs so that the calls in the loops
// below can be devirtualized by the compiler.
type comparator[T any] interface {
	compare(a, b T) bool
}

type eqOp[T cmp.Ordered] struct{}
type neOp[T cmp.Ordered] struct{}
type ltOp[T cmp.Ordered] struct{}
type leOp[T cmp.Ordered] struct{}
type gtOp[T cmp.Ordered] struct{}
type geOp[T cmp.Ordered] struct{}

func (eqOp[T]) compare(a, b T) bool { return a == b }
func (neOp[T]) compare(a, b T) bool { return a != b }
func (ltOp[T]) compare(a, b T) bool { return a < b }
func (leOp[T]) compare(a, b T) bool { return a <= b }
func (gtOp[T]) compare(a, b T) bool { return a > b }
func (geOp[T]) compare(a, b T) bool { return a >= b }

// threeWayComparer orders values of types that don't support the built-in
// comparison operators. compare3 returns a negative number, zero or a
// positive number when a is less than, equal to or greater than b.
type threeWayComparer[T any] interface {
	compare3(a, b T) int
}

type boolComparer struct{}

// compare3 orders false before true.
func (boolComparer) compare3(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}

type bytesComparer struct{}

func (bytesComparer) compare3(a, b []byte) int { return bytes.Compare(a, b) }

// collatedComparer orders strings according to the rules of a collation.
type collatedComparer struct {
	collator *collate.Collator
}

func (c collatedComparer) compare3(a, b []byte) int { return c.collator.Compare(a, b) }

type threeWayEq[T any, C threeWayComparer[T]] struct{ c C }
type threeWayNe[T any, C threeWayComparer[T]] struct{ c C }
type threeWayLt[T any, C threeWayComparer[T]] struct{ c C }
type threeWayLe[T any, C threeWayComparer[T]] struct{ c C }
type threeWayGt[T any, C threeWayComparer[T]] struct{ c C }
type threeWayGe[T any, C threeWayComparer[T]] struct{ c C }

func (o threeWayEq[T, C]) compare(a, b T) bool { return o.c.compare3(a, b) == 0 }
func (o threeWayNe[T, C]) compare(a, b T) bool { return o.c.compare3(a, b) != 0 }
func (o threeWayLt[T, C]) compare(a, b T) bool { return o.c.compare3(a, b) < 0 }
func (o threeWayLe[T, C]) compare(a, b T) bool { return o.c.compare3(a, b) <= 0 }
func (o threeWayGt[T, C]) compare(a, b T) bool { return o.c.compare3(a, b) > 0 }
func (o threeWayGe[T, C]) compare(a, b T) bool { return o.c.compare3(a, b) >= 0 }

// bytesEqOp is used instead of threeWayEq[[]byte, bytesComparer] since
// checking equality doesn't need to find the first differing byte.
type bytesEqOp struct{}

func (bytesEqOp) compare(a, b []byte) bool { return bytes.Equal(a, b) }

func bytesCol(v coldata.Vec) [][]byte { return v.Bytes().Values() }

// newConditionMatcher returns the conditionMatcher for cond over columns of
// type t.
func newConditionMatcher(cond JoinCondition, t *types.T) (conditionMatcher, error) {
	if !cond.Op.IsCanonical() {
		return nil, &UnsupportedOperatorError{Op: cond.Op}
	}
	switch typeconv.TypeFamilyToCanonicalTypeFamily(t.Family()) {
	case types.BoolFamily:
		return newThreeWayMatcher[bool](cond, boolComparer{}, coldata.Vec.Bool), nil
	case types.IntFamily:
		switch typeconv.PhysicalWidth(t) {
		case 8:
			return newOrderedMatcher[int8](cond, coldata.Vec.Int8), nil
		case 16:
			return newOrderedMatcher[int16](cond, coldata.Vec.Int16), nil
		case 32:
			return newOrderedMatcher[int32](cond, coldata.Vec.Int32), nil
		default:
			return newOrderedMatcher[int64](cond, coldata.Vec.Int64), nil
		}
	case types.FloatFamily:
		return newOrderedMatcher[float64](cond, coldata.Vec.Float64), nil
	case types.PointerFamily:
		return newOrderedMatcher[uint64](cond, coldata.Vec.Uint64), nil
	case types.BytesFamily:
		if t.Family() == types.CollatedStringFamily && !collatedstring.IsDefaultEquivalentCollation(t.Locale()) {
			collator, err := collatedstring.NewCollator(t.Locale())
			if err != nil {
				return nil, errors.Wrapf(&UnsupportedTypeError{Type: t}, "%v", err)
			}
			return newThreeWayMatcher[[]byte](cond, collatedComparer{collator: collator}, bytesCol), nil
		}
		if cond.Op == treecmp.EQ {
			return &typedMatcher[[]byte, bytesEqOp]{cond: cond, col: bytesCol}, nil
		}
		return newThreeWayMatcher[[]byte](cond, bytesComparer{}, bytesCol), nil
	}
	return nil, &UnsupportedTypeError{Type: t}
}

// newOrderedMatcher returns a conditionMatcher using the built-in comparison
// operators. cond.Op must be canonical.
func newOrderedMatcher[T cmp.Ordered](
	cond JoinCondition, col func(coldata.Vec) []T,
) conditionMatcher {
	switch cond.Op {
	case treecmp.EQ:
		return &typedMatcher[T, eqOp[T]]{cond: cond, col: col}
	case treecmp.NE:
		return &typedMatcher[T, neOp[T]]{cond: cond, col: col}
	case treecmp.LT:
		return &typedMatcher[T, ltOp[T]]{cond: cond, col: col}
	case treecmp.LE:
		return &typedMatcher[T, leOp[T]]{cond: cond, col: col}
	case treecmp.GT:
		return &typedMatcher[T, gtOp[T]]{cond: cond, col: col}
	case treecmp.GE:
		return &typedMatcher[T, geOp[T]]{cond: cond, col: col}
	}
	colexecerror.InternalError(errors.AssertionFailedf("unhandled comparison operator %s", cond.Op))
	// This code is unreachable, but the compiler cannot infer that.
	return nil
}

// newThreeWayMatcher returns a conditionMatcher using c to order values.
// cond.Op must be canonical.
func newThreeWayMatcher[T any, C threeWayComparer[T]](
	cond JoinCondition, c C, col func(coldata.Vec) []T,
) conditionMatcher {
	switch cond.Op {
	case treecmp.EQ:
		return &typedMatcher[T, threeWayEq[T, C]]{cond: cond, cmp: threeWayEq[T, C]{c: c}, col: col}
	case treecmp.NE:
		return &typedMatcher[T, threeWayNe[T, C]]{cond: cond, cmp: threeWayNe[T, C]{c: c}, col: col}
	case treecmp.LT:
		return &typedMatcher[T, threeWayLt[T, C]]{cond: cond, cmp: threeWayLt[T, C]{c: c}, col: col}
	case treecmp.LE:
		return &typedMatcher[T, threeWayLe[T, C]]{cond: cond, cmp: threeWayLe[T, C]{c: c}, col: col}
	case treecmp.GT:
		return &typedMatcher[T, threeWayGt[T, C]]{cond: cond, cmp: threeWayGt[T, C]{c: c}, col: col}
	case treecmp.GE:
		return &typedMatcher[T, threeWayGe[T, C]]{cond: cond, cmp: threeWayGe[T, C]{c: c}, col: col}
	}
	colexecerror.InternalError(errors.AssertionFailedf("unhandled comparison operator %s", cond.Op))
	// This code is unreachable, but the compiler cannot infer that.
	return nil
}

// typedMatcher is the conditionMatcher for a single physical type and
// comparison operator.
type typedMatcher[T any, C comparator[T]] struct {
	cond JoinCondition
	cmp  C
	// col returns the values of a vector of the physical type T.
	col func(coldata.Vec) []T
}

func (m *typedMatcher[T, C]) initialMatch(
	cursor *Cursor, left, right coldata.Batch, matches *MatchBuffer,
) int {
	leftVec, rightVec := left.ColVec(m.cond.LeftColIdx), right.ColVec(m.cond.RightColIdx)
	leftCol, rightCol := m.col(leftVec), m.col(rightVec)
	leftSel, rightSel := left.Selection(), right.Selection()
	leftLen, rightLen := left.Length(), right.Length()
	capacity := matches.Capacity()
	leftIdxs, rightIdxs := matches.LeftIdx[:capacity], matches.RightIdx[:capacity]

	n := 0
	for ; cursor.RightIdx < rightLen; cursor.RightIdx++ {
		rightIdx := cursor.RightIdx
		if rightSel != nil {
			rightIdx = rightSel[rightIdx]
		}
		if buildutil.CrdbTestBuild {
			assertNotNull(rightVec, rightIdx, "right", m.cond)
		}
		rightVal := rightCol[rightIdx]
		for ; cursor.LeftIdx < leftLen; cursor.LeftIdx++ {
			leftIdx := cursor.LeftIdx
			if leftSel != nil {
				leftIdx = leftSel[leftIdx]
			}
			if buildutil.CrdbTestBuild {
				assertNotNull(leftVec, leftIdx, "left", m.cond)
			}
			if !m.cmp.compare(leftCol[leftIdx], rightVal) {
				continue
			}
			leftIdxs[n] = leftIdx
			rightIdxs[n] = rightIdx
			n++
			if n == capacity {
				// Point the cursor at the pair following the one just
				// emitted.
				cursor.LeftIdx++
				if cursor.LeftIdx == leftLen {
					cursor.LeftIdx = 0
					cursor.RightIdx++
				}
				return n
			}
		}
		cursor.LeftIdx = 0
	}
	return n
}

func (m *typedMatcher[T, C]) refine(left, right coldata.Batch, matches *MatchBuffer, n int) int {
	leftVec, rightVec := left.ColVec(m.cond.LeftColIdx), right.ColVec(m.cond.RightColIdx)
	leftCol, rightCol := m.col(leftVec), m.col(rightVec)
	leftIdxs, rightIdxs := matches.LeftIdx[:n], matches.RightIdx[:n]

	out := 0
	for i, leftIdx := range leftIdxs {
		rightIdx := rightIdxs[i]
		if buildutil.CrdbTestBuild {
			assertNotNull(leftVec, leftIdx, "left", m.cond)
			assertNotNull(rightVec, rightIdx, "right", m.cond)
		}
		if m.cmp.compare(leftCol[leftIdx], rightCol[rightIdx]) {
			leftIdxs[out] = leftIdx
			rightIdxs[out] = rightIdx
			out++
		}
	}
	return out
}

func assertNotNull(v coldata.Vec, idx int, side string, cond JoinCondition) {
	if v.MaybeHasNulls() && v.Nulls().NullAt(idx) {
		colexecerror.InternalError(errors.AssertionFailedf(
			"unexpected NULL at %s row %d for condition %s", errors.Safe(side), idx, cond,
		))
	}
}
