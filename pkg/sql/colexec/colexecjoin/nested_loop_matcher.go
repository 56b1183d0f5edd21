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
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/vecjoin/pkg/col/coldata"
	"github.com/cockroachdb/vecjoin/pkg/col/typeconv"
	"github.com/cockroachdb/vecjoin/pkg/sql/colexecerror"
	"github.com/cockroachdb/vecjoin/pkg/sql/sem/treecmp"
	"github.com/cockroachdb/vecjoin/pkg/sql/types"
	"github.com/cockroachdb/vecjoin/pkg/util/buildutil"
	"github.com/cockroachdb/vecjoin/pkg/util/collatedstring"
)

// JoinCondition is a single comparison between a column of the left batch
// and a column of the right batch.
type JoinCondition struct {
	Op          treecmp.ComparisonOperatorSymbol
	LeftColIdx  int
	RightColIdx int
}

func (c JoinCondition) String() string {
	return fmt.Sprintf("@L%d %s @R%d", c.LeftColIdx+1, c.Op, c.RightColIdx+1)
}

// JoinConditions is a conjunction of join conditions. The order is the
// evaluation order: the first condition drives the cross product and the
// others filter its matches. Reordering the conditions changes only the
// amount of work done.
type JoinConditions []JoinCondition

func (c JoinConditions) String() string {
	parts := make([]string, len(c))
	for i := range c {
		parts[i] = c[i].String()
	}
	return strings.Join(parts, " AND ")
}

// LeftCols returns the left column ordinals referenced by the conditions.
func (c JoinConditions) LeftCols() []int {
	cols := make([]int, len(c))
	for i := range c {
		cols[i] = c[i].LeftColIdx
	}
	return cols
}

// RightCols returns the right column ordinals referenced by the conditions.
func (c JoinConditions) RightCols() []int {
	cols := make([]int, len(c))
	for i := range c {
		cols[i] = c[i].RightColIdx
	}
	return cols
}

// CursorState is the state of the enumeration of one (left, right) batch
// pair.
type CursorState int

const (
	// Scanning means that there are pairs left to examine.
	Scanning CursorState = iota
	// Exhausted means that every pair of the current batches has been
	// examined. It is terminal until the cursor is reset for a new pair of
	// batches.
	Exhausted
)

func (s CursorState) String() string {
	if s == Exhausted {
		return "Exhausted"
	}
	return "Scanning"
}

// Cursor is the resumption point of the cross product enumeration of a
// (left, right) batch pair. The positions are logical, i.e. they index the
// selection vectors when the batches have one. The caller owns the cursor,
// must reset it whenever either batch is replaced, and must not share it
// between concurrent Perform calls.
//
// The cursor always names the next pair to examine. After the last left row
// of right row r it is normalized to (0, r+1), so a call that fills the
// buffer with the very last pair leaves the cursor at (0, rightLen), which is
// already Exhausted. Code that expects the left position to stay at the end
// of the left batch until one more empty call is made must not rely on that
// here.
type Cursor struct {
	LeftIdx  int
	RightIdx int
}

// Reset prepares the cursor for a new pair of batches.
func (c *Cursor) Reset() {
	*c = Cursor{}
}

// State returns the state of the cursor for batches with the given lengths.
func (c Cursor) State(leftLen, rightLen int) CursorState {
	if c.LeftIdx >= leftLen || c.RightIdx >= rightLen {
		return Exhausted
	}
	return Scanning
}

// MatchBuffer holds the physical indices of the matched (left, right) pairs
// produced by a Perform call. LeftIdx and RightIdx always have the same
// length, which is the capacity of the buffer. The contents are only valid
// until the next Perform call.
type MatchBuffer struct {
	LeftIdx  []int
	RightIdx []int
}

// NewMatchBuffer allocates a MatchBuffer that holds up to capacity pairs.
// Most callers use coldata.BatchSize().
func NewMatchBuffer(capacity int) *MatchBuffer {
	if capacity < 1 {
		colexecerror.InternalError(errors.AssertionFailedf("match buffer capacity must be positive, got %d", capacity))
	}
	return &MatchBuffer{
		LeftIdx:  make([]int, capacity),
		RightIdx: make([]int, capacity),
	}
}

// Capacity returns the maximum number of pairs a Perform call can produce.
func (m *MatchBuffer) Capacity() int {
	return len(m.LeftIdx)
}

// NestedLoopMatcher evaluates a conjunction of join conditions over pairs of
// batches. The comparison routine of every condition is chosen once, when
// the matcher is created, based on the physical type of the referenced
// columns.
//
// A matcher may hold collators, which are not safe for concurrent use, so it
// must be used by a single goroutine at a time.
type NestedLoopMatcher struct {
	leftTypes  []*types.T
	rightTypes []*types.T
	conditions JoinConditions
	matchers   []conditionMatcher
}

// NewNestedLoopMatcher returns a matcher for batches with the given schemas.
// It returns an *UnsupportedOperatorError or *UnsupportedTypeError (possibly
// wrapped) if a condition cannot be evaluated, and an assertion failure if
// the conditions are malformed.
func NewNestedLoopMatcher(
	leftTypes, rightTypes []*types.T, conditions JoinConditions,
) (*NestedLoopMatcher, error) {
	if len(conditions) == 0 {
		return nil, errors.AssertionFailedf("nested loop join requires at least one condition")
	}
	m := &NestedLoopMatcher{
		leftTypes:  leftTypes,
		rightTypes: rightTypes,
		conditions: conditions,
		matchers:   make([]conditionMatcher, len(conditions)),
	}
	for i, cond := range conditions {
		if cond.LeftColIdx < 0 || cond.LeftColIdx >= len(leftTypes) {
			return nil, errors.AssertionFailedf(
				"condition %s references left column %d out of %d", cond, cond.LeftColIdx, len(leftTypes),
			)
		}
		if cond.RightColIdx < 0 || cond.RightColIdx >= len(rightTypes) {
			return nil, errors.AssertionFailedf(
				"condition %s references right column %d out of %d", cond, cond.RightColIdx, len(rightTypes),
			)
		}
		keyType, err := conditionKeyType(leftTypes[cond.LeftColIdx], rightTypes[cond.RightColIdx])
		if err != nil {
			return nil, errors.Wrapf(err, "condition %s", cond)
		}
		if m.matchers[i], err = newConditionMatcher(cond, keyType); err != nil {
			return nil, errors.Wrapf(err, "condition %s", cond)
		}
	}
	return m, nil
}

// conditionKeyType returns the type that determines the comparison routine
// of a condition between columns of type left and right.
func conditionKeyType(left, right *types.T) (*types.T, error) {
	if !typeconv.SamePhysicalType(left, right) {
		return nil, errors.AssertionFailedf("mismatched types %s and %s", left, right)
	}
	leftCollated := left.Family() == types.CollatedStringFamily &&
		!collatedstring.IsDefaultEquivalentCollation(left.Locale())
	rightCollated := right.Family() == types.CollatedStringFamily &&
		!collatedstring.IsDefaultEquivalentCollation(right.Locale())
	switch {
	case leftCollated && rightCollated && left.Locale() != right.Locale():
		return nil, errors.AssertionFailedf("mismatched collations %s and %s", left.Locale(), right.Locale())
	case rightCollated:
		return right, nil
	}
	return left, nil
}

// Conditions returns the conditions the matcher evaluates.
func (m *NestedLoopMatcher) Conditions() JoinConditions {
	return m.conditions
}

// Perform finds the next pairs of rows of left and right that satisfy all
// conditions, starting at the cursor, writes their physical indices into
// matches and returns how many pairs were found.
//
// The first condition is evaluated over the cross product of the two batches
// (right rows in the outer loop, left rows in the inner one). As soon as
// matches is full the enumeration stops and the cursor points at the first
// pair not yet examined, so that the next call continues exactly where this
// one stopped. The remaining conditions then filter the found pairs in
// place, preserving their order.
//
// Perform returns 0 without touching matches if either batch is empty or the
// cursor is exhausted. A return value of 0 does not by itself mean that the
// pairing is done; callers should consult cursor.State.
//
// The rows examined must not be NULL in the columns referenced by the
// conditions; callers are expected to filter them out beforehand. This is
// only verified in crdb_test builds.
func (m *NestedLoopMatcher) Perform(
	cursor *Cursor, left, right coldata.Batch, matches *MatchBuffer,
) int {
	if buildutil.CrdbTestBuild {
		m.assertBatchesMatchTypes(left, right)
	}
	if cursor.State(left.Length(), right.Length()) == Exhausted {
		return 0
	}
	n := m.matchers[0].initialMatch(cursor, left, right, matches)
	for i := 1; i < len(m.matchers); i++ {
		if n == 0 {
			// No candidates left, so the later conditions cannot produce
			// anything.
			return 0
		}
		n = m.matchers[i].refine(left, right, matches, n)
	}
	return n
}

func (m *NestedLoopMatcher) assertBatchesMatchTypes(left, right coldata.Batch) {
	for _, cond := range m.conditions {
		if cond.LeftColIdx >= left.Width() || cond.RightColIdx >= right.Width() {
			colexecerror.InternalError(errors.AssertionFailedf(
				"condition %s references a column outside of batches of width %d and %d",
				cond, left.Width(), right.Width(),
			))
		}
		if l := left.ColVec(cond.LeftColIdx).Type(); !typeconv.SamePhysicalType(l, m.leftTypes[cond.LeftColIdx]) {
			colexecerror.InternalError(errors.AssertionFailedf(
				"left column %d has type %s, expected %s", cond.LeftColIdx, l, m.leftTypes[cond.LeftColIdx],
			))
		}
		if r := right.ColVec(cond.RightColIdx).Type(); !typeconv.SamePhysicalType(r, m.rightTypes[cond.RightColIdx]) {
			colexecerror.InternalError(errors.AssertionFailedf(
				"right column %d has type %s, expected %s", cond.RightColIdx, r, m.rightTypes[cond.RightColIdx],
			))
		}
	}
}

// Perform is a convenience wrapper that builds a NestedLoopMatcher for the
// schemas of left and right and runs a single Perform call with it. Callers
// that invoke Perform repeatedly for the same schemas should create the
// matcher once with NewNestedLoopMatcher instead.
func Perform(
	cursor *Cursor, left, right coldata.Batch, matches *MatchBuffer, conditions JoinConditions,
) (int, error) {
	m, err := NewNestedLoopMatcher(batchTypes(left), batchTypes(right), conditions)
	if err != nil {
		return 0, err
	}
	return m.Perform(cursor, left, right, matches), nil
}

func batchTypes(b coldata.Batch) []*types.T {
	typs := make([]*types.T, b.Width())
	for i, v := range b.ColVecs() {
		typs[i] = v.Type()
	}
	return typs
}
