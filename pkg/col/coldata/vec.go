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

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/vecjoin/pkg/col/typeconv"
	"github.com/cockroachdb/vecjoin/pkg/sql/types"
)

// Vec is an interface that represents a column vector that's accessible by
// Go native types.
type Vec interface {
	// Type returns the type of data stored in this Vec.
	Type() *types.T
	// CanonicalTypeFamily returns the canonical type family of data stored in
	// this Vec.
	CanonicalTypeFamily() types.Family

	// Bool returns a bool list.
	Bool() []bool
	// Int8 returns an int8 slice.
	Int8() []int8
	// Int16 returns an int16 slice.
	Int16() []int16
	// Int32 returns an int32 slice.
	Int32() []int32
	// Int64 returns an int64 slice.
	Int64() []int64
	// Float64 returns a float64 slice.
	Float64() []float64
	// Uint64 returns a uint64 slice.
	Uint64() []uint64
	// Bytes returns a flat Bytes representation.
	Bytes() *Bytes

	// Col returns the raw, typeless backing storage for this Vec.
	Col() interface{}

	// MaybeHasNulls returns true if the column possibly has any null values,
	// and returns false if the column definitely has no null values.
	MaybeHasNulls() bool
	// Nulls returns the nulls vector for the column.
	Nulls() *Nulls

	// Capacity returns the capacity of the Go slice backing the Vec.
	Capacity() int

	// Gather copies the values and null markers at the physical positions
	// srcIdxs of src into this Vec, starting at destStartIdx. src and the
	// receiver may be the same Vec as long as srcIdxs is increasing and
	// srcIdxs[i] >= destStartIdx+i.
	Gather(src Vec, srcIdxs []int, destStartIdx int)

	// PrettyValueAt returns a "pretty" value for the idx'th physical
	// position. It is not suitable for calling in hot paths.
	PrettyValueAt(idx int) string
}

var _ Vec = &memColumn{}

// memColumn is a simple pass-through implementation of Vec that just casts
// a generic interface{} to the proper type when requested.
type memColumn struct {
	t                   *types.T
	canonicalTypeFamily types.Family
	col                 interface{}
	nulls               Nulls
}

// NewVec returns a new Vec of the given type initialized with capacity
// elements.
func NewVec(t *types.T, capacity int) Vec {
	var col interface{}
	switch typeconv.TypeFamilyToCanonicalTypeFamily(t.Family()) {
	case types.BoolFamily:
		col = make([]bool, capacity)
	case types.IntFamily:
		switch typeconv.PhysicalWidth(t) {
		case 8:
			col = make([]int8, capacity)
		case 16:
			col = make([]int16, capacity)
		case 32:
			col = make([]int32, capacity)
		default:
			col = make([]int64, capacity)
		}
	case types.FloatFamily:
		col = make([]float64, capacity)
	case types.PointerFamily:
		col = make([]uint64, capacity)
	case types.BytesFamily:
		col = NewBytes(capacity)
	default:
		panic(errors.AssertionFailedf("unhandled type %s", t))
	}
	return &memColumn{
		t:                   t,
		canonicalTypeFamily: typeconv.TypeFamilyToCanonicalTypeFamily(t.Family()),
		col:                 col,
		nulls:               NewNulls(capacity),
	}
}

func (m *memColumn) Type() *types.T {
	return m.t
}

func (m *memColumn) CanonicalTypeFamily() types.Family {
	return m.canonicalTypeFamily
}

func (m *memColumn) Bool() []bool {
	return m.col.([]bool)
}

func (m *memColumn) Int8() []int8 {
	return m.col.([]int8)
}

func (m *memColumn) Int16() []int16 {
	return m.col.([]int16)
}

func (m *memColumn) Int32() []int32 {
	return m.col.([]int32)
}

func (m *memColumn) Int64() []int64 {
	return m.col.([]int64)
}

func (m *memColumn) Float64() []float64 {
	return m.col.([]float64)
}

func (m *memColumn) Uint64() []uint64 {
	return m.col.([]uint64)
}

func (m *memColumn) Bytes() *Bytes {
	return m.col.(*Bytes)
}

func (m *memColumn) Col() interface{} {
	return m.col
}

func (m *memColumn) MaybeHasNulls() bool {
	return m.nulls.MaybeHasNulls()
}

func (m *memColumn) Nulls() *Nulls {
	return &m.nulls
}

func (m *memColumn) Capacity() int {
	switch c := m.col.(type) {
	case []bool:
		return len(c)
	case []int8:
		return len(c)
	case []int16:
		return len(c)
	case []int32:
		return len(c)
	case []int64:
		return len(c)
	case []float64:
		return len(c)
	case []uint64:
		return len(c)
	case *Bytes:
		return c.Len()
	default:
		panic(errors.AssertionFailedf("unhandled column %T", c))
	}
}

func gatherSlice[T any](dst, src []T, srcIdxs []int, destStartIdx int) {
	dst = dst[destStartIdx : destStartIdx+len(srcIdxs)]
	for i, srcIdx := range srcIdxs {
		dst[i] = src[srcIdx]
	}
}

func (m *memColumn) Gather(src Vec, srcIdxs []int, destStartIdx int) {
	switch dst := m.col.(type) {
	case []bool:
		gatherSlice(dst, src.Bool(), srcIdxs, destStartIdx)
	case []int8:
		gatherSlice(dst, src.Int8(), srcIdxs, destStartIdx)
	case []int16:
		gatherSlice(dst, src.Int16(), srcIdxs, destStartIdx)
	case []int32:
		gatherSlice(dst, src.Int32(), srcIdxs, destStartIdx)
	case []int64:
		gatherSlice(dst, src.Int64(), srcIdxs, destStartIdx)
	case []float64:
		gatherSlice(dst, src.Float64(), srcIdxs, destStartIdx)
	case []uint64:
		gatherSlice(dst, src.Uint64(), srcIdxs, destStartIdx)
	case *Bytes:
		srcCol := src.Bytes()
		for i, srcIdx := range srcIdxs {
			dst.Set(destStartIdx+i, srcCol.Get(srcIdx))
		}
	default:
		panic(errors.AssertionFailedf("unhandled column %T", dst))
	}
	if !src.MaybeHasNulls() {
		m.nulls.UnsetNullRange(destStartIdx, destStartIdx+len(srcIdxs))
		return
	}
	srcNulls := src.Nulls()
	for i, srcIdx := range srcIdxs {
		if srcNulls.NullAt(srcIdx) {
			m.nulls.SetNull(destStartIdx + i)
		} else {
			m.nulls.UnsetNull(destStartIdx + i)
		}
	}
}

func (m *memColumn) PrettyValueAt(idx int) string {
	if m.nulls.NullAt(idx) {
		return "NULL"
	}
	switch c := m.col.(type) {
	case []bool:
		return fmt.Sprintf("%t", c[idx])
	case []int8:
		return fmt.Sprintf("%d", c[idx])
	case []int16:
		return fmt.Sprintf("%d", c[idx])
	case []int32:
		return fmt.Sprintf("%d", c[idx])
	case []int64:
		return fmt.Sprintf("%d", c[idx])
	case []float64:
		return fmt.Sprintf("%g", c[idx])
	case []uint64:
		return fmt.Sprintf("%d", c[idx])
	case *Bytes:
		return string(c.Get(idx))
	default:
		panic(errors.AssertionFailedf("unhandled column %T", c))
	}
}

// SetValueAt is a helper to set the value in a Vec when the type is only
// known at runtime. It is meant for tests and for loading data, not for hot
// paths. A nil elem marks the position as null.
func SetValueAt(v Vec, elem interface{}, rowIdx int) {
	if elem == nil {
		v.Nulls().SetNull(rowIdx)
		return
	}
	v.Nulls().UnsetNull(rowIdx)
	switch c := v.Col().(type) {
	case []bool:
		c[rowIdx] = elem.(bool)
	case []int8:
		c[rowIdx] = int8(toInt64(elem))
	case []int16:
		c[rowIdx] = int16(toInt64(elem))
	case []int32:
		c[rowIdx] = int32(toInt64(elem))
	case []int64:
		c[rowIdx] = toInt64(elem)
	case []float64:
		switch e := elem.(type) {
		case float64:
			c[rowIdx] = e
		default:
			c[rowIdx] = float64(toInt64(elem))
		}
	case []uint64:
		switch e := elem.(type) {
		case uint64:
			c[rowIdx] = e
		default:
			c[rowIdx] = uint64(toInt64(elem))
		}
	case *Bytes:
		switch e := elem.(type) {
		case string:
			c.Set(rowIdx, []byte(e))
		case []byte:
			c.Set(rowIdx, e)
		default:
			panic(errors.AssertionFailedf("unexpected %T for a bytes column", elem))
		}
	default:
		panic(errors.AssertionFailedf("unhandled column %T", c))
	}
}

func toInt64(elem interface{}) int64 {
	switch e := elem.(type) {
	case int:
		return int64(e)
	case int8:
		return int64(e)
	case int16:
		return int64(e)
	case int32:
		return int64(e)
	case int64:
		return e
	default:
		panic(errors.AssertionFailedf("unexpected %T for an integer column", elem))
	}
}
