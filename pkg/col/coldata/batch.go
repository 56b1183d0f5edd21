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
	"strings"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/vecjoin/pkg/sql/types"
	"github.com/cockroachdb/vecjoin/pkg/util/envutil"
)

// Batch is the type that columnar operators receive and produce. It
// represents a set of column vectors (partial data columns) as well as
// metadata about a batch, like the selection vector (which rows in the column
// batch are selected).
type Batch interface {
	// Length returns the number of values in the columns in the batch.
	Length() int
	// SetLength sets the number of values in the columns in the batch. Note
	// that if the selection vector will be set or updated on the batch, it
	// must be set **before** setting the length.
	SetLength(int)
	// Capacity returns the maximum number of values that can be stored in the
	// columns in the batch.
	Capacity() int
	// Width returns the number of columns in the batch.
	Width() int
	// ColVec returns the ith Vec in this batch.
	ColVec(i int) Vec
	// ColVecs returns all of the underlying Vecs in this batch.
	ColVecs() []Vec
	// Selection, if not nil, returns the selection vector on this batch: a
	// densely-packed list of the *physical* indices in each column that have
	// not been filtered out. The first Length() entries are meaningful. All
	// columns of the batch share it.
	Selection() []int
	// SetSelection sets whether this batch is using its selection vector or
	// not.
	SetSelection(bool)
	// ResetInternalBatch resets a batch and its underlying Vecs for reuse.
	ResetInternalBatch()
	// String returns a pretty representation of this batch.
	String() string
}

var _ Batch = &MemBatch{}

const (
	defaultBatchSize = 1024
	// MinBatchSize is the minimum acceptable size of batches for tests.
	MinBatchSize = 1
	// MaxBatchSize is the maximum acceptable size of batches.
	MaxBatchSize = 4096
)

var batchSize = func() *atomic.Int64 {
	var v atomic.Int64
	size := envutil.EnvOrDefaultInt("COCKROACH_VEC_BATCH_SIZE", defaultBatchSize)
	if size < MinBatchSize || size > MaxBatchSize {
		panic(fmt.Sprintf("COCKROACH_VEC_BATCH_SIZE=%d is outside of [%d, %d]", size, MinBatchSize, MaxBatchSize))
	}
	v.Store(int64(size))
	return &v
}()

// BatchSize is the maximum number of tuples that fit in a column batch. It
// is the capacity shared by every batch and match buffer in the system.
func BatchSize() int {
	return int(batchSize.Load())
}

// SetBatchSizeForTests modifies batchSize variable. It should only be used in
// tests. Batch sizes outside [MinBatchSize, MaxBatchSize] are rejected.
func SetBatchSizeForTests(newBatchSize int) error {
	if newBatchSize < MinBatchSize || newBatchSize > MaxBatchSize {
		return errors.Newf("batch size %d is outside of [%d, %d]", newBatchSize, MinBatchSize, MaxBatchSize)
	}
	batchSize.Store(int64(newBatchSize))
	return nil
}

// NewMemBatch allocates a new in-memory Batch with BatchSize() capacity.
func NewMemBatch(typs []*types.T) Batch {
	return NewMemBatchWithCapacity(typs, BatchSize())
}

// NewMemBatchWithCapacity allocates a new in-memory Batch with the given
// column capacity.
func NewMemBatchWithCapacity(typs []*types.T, capacity int) Batch {
	b := &MemBatch{
		capacity: capacity,
		b:        make([]Vec, len(typs)),
		sel:      make([]int, capacity),
	}
	for i, t := range typs {
		b.b[i] = NewVec(t, capacity)
	}
	return b
}

// MemBatch is an in-memory implementation of Batch.
type MemBatch struct {
	// length is the length of batch or sel in tuples.
	length int
	// capacity is the maximum number of tuples that can be stored in this
	// MemBatch.
	capacity int
	// b is the slice of columns in this batch.
	b      []Vec
	useSel bool
	// sel is - if useSel is true - a selection vector from upstream. A
	// selection vector is a list of selected tuple indices in this memBatch's
	// columns (tuples for which indices are not in sel are considered to be
	// "not present").
	sel []int
}

// Length implements the Batch interface.
func (m *MemBatch) Length() int {
	return m.length
}

// SetLength implements the Batch interface.
func (m *MemBatch) SetLength(length int) {
	if length > m.capacity {
		panic(errors.AssertionFailedf("length %d exceeds capacity %d", length, m.capacity))
	}
	m.length = length
}

// Capacity implements the Batch interface.
func (m *MemBatch) Capacity() int {
	return m.capacity
}

// Width implements the Batch interface.
func (m *MemBatch) Width() int {
	return len(m.b)
}

// ColVec implements the Batch interface.
func (m *MemBatch) ColVec(i int) Vec {
	return m.b[i]
}

// ColVecs implements the Batch interface.
func (m *MemBatch) ColVecs() []Vec {
	return m.b
}

// Selection implements the Batch interface.
func (m *MemBatch) Selection() []int {
	if !m.useSel {
		return nil
	}
	return m.sel
}

// SetSelection implements the Batch interface.
func (m *MemBatch) SetSelection(b bool) {
	m.useSel = b
}

// ResetInternalBatch implements the Batch interface.
func (m *MemBatch) ResetInternalBatch() {
	m.SetLength(0)
	m.SetSelection(false)
	for _, v := range m.b {
		v.Nulls().UnsetNulls()
		if b, ok := v.Col().(*Bytes); ok {
			b.Reset()
		}
	}
}

// String implements the Batch interface.
func (m *MemBatch) String() string {
	return PrettyBatch(m)
}

// PhysicalIdx maps the logical row i of a batch with selection vector sel
// (possibly nil) to its physical position.
func PhysicalIdx(sel []int, i int) int {
	if sel != nil {
		return sel[i]
	}
	return i
}

// PrettyBatch renders the logical rows of b, one per line, respecting the
// selection vector.
func PrettyBatch(b Batch) string {
	var buf strings.Builder
	sel := b.Selection()
	for i := 0; i < b.Length(); i++ {
		idx := PhysicalIdx(sel, i)
		buf.WriteByte('[')
		for j, v := range b.ColVecs() {
			if j > 0 {
				buf.WriteByte(' ')
			}
			buf.WriteString(v.PrettyValueAt(idx))
		}
		buf.WriteString("]\n")
	}
	return buf.String()
}

type zeroBatch struct {
	*MemBatch
}

var _ Batch = &zeroBatch{}

// ZeroBatch is a schema-less Batch of length 0. Operators return it to
// signal that their input is exhausted.
var ZeroBatch = &zeroBatch{
	MemBatch: NewMemBatchWithCapacity(nil /* typs */, 0 /* capacity */).(*MemBatch),
}

func (b *zeroBatch) Length() int {
	return 0
}

func (b *zeroBatch) Capacity() int {
	return 0
}

func (b *zeroBatch) SetLength(int) {
	panic(errors.AssertionFailedf("length should not be changed on zero batch"))
}

func (b *zeroBatch) SetSelection(bool) {
	panic(errors.AssertionFailedf("selection should not be changed on zero batch"))
}

func (b *zeroBatch) ResetInternalBatch() {
	panic(errors.AssertionFailedf("zero batch should not be reset"))
}
