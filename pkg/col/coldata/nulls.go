// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package coldata

import "github.com/bits-and-blooms/bitset"

// Nulls represents a list of potentially nullable values. The null markers
// are keyed by physical position in the owning Vec and are never remapped
// through a selection vector.
type Nulls struct {
	bits *bitset.BitSet
	// maybeHasNulls is a conservative hint: it is false only if no value has
	// been marked as null since the last UnsetNulls.
	maybeHasNulls bool
}

// NewNulls returns a new nulls vector, initialized with a length.
func NewNulls(len int) Nulls {
	return Nulls{bits: bitset.New(uint(len))}
}

// MaybeHasNulls returns true if the column possibly has any null values, and
// returns false if the column definitely has no null values.
func (n *Nulls) MaybeHasNulls() bool {
	return n.maybeHasNulls
}

// NullAt returns true if the ith value of the column is null.
func (n *Nulls) NullAt(i int) bool {
	return n.maybeHasNulls && n.bits.Test(uint(i))
}

// SetNull sets the ith value of the column to null.
func (n *Nulls) SetNull(i int) {
	n.maybeHasNulls = true
	n.bits.Set(uint(i))
}

// UnsetNull unsets the ith value of the column.
func (n *Nulls) UnsetNull(i int) {
	n.bits.Clear(uint(i))
}

// SetNullRange sets all the values in [start, end) to null.
func (n *Nulls) SetNullRange(start int, end int) {
	if start >= end {
		return
	}
	n.maybeHasNulls = true
	for i := start; i < end; i++ {
		n.bits.Set(uint(i))
	}
}

// UnsetNullRange unsets all the nulls in the range [start, end).
func (n *Nulls) UnsetNullRange(start int, end int) {
	if start >= end || !n.maybeHasNulls {
		return
	}
	for i := start; i < end; i++ {
		n.bits.Clear(uint(i))
	}
}

// UnsetNulls sets the column to have no null values.
func (n *Nulls) UnsetNulls() {
	n.maybeHasNulls = false
	n.bits.ClearAll()
}

// NullCount returns the number of null values in the first length
// positions.
func (n *Nulls) NullCount(length int) int {
	if !n.maybeHasNulls {
		return 0
	}
	count := 0
	for i, ok := n.bits.NextSet(0); ok && i < uint(length); i, ok = n.bits.NextSet(i + 1) {
		count++
	}
	return count
}
