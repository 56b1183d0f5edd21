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

// Bytes is a variable-length byte-sequence column. All values live in a
// single shared buffer and each element is a window into it.
type Bytes struct {
	elements [][]byte
	buffer   []byte
}

// NewBytes returns a Bytes struct with enough capacity for n zero-length
// []byte values.
func NewBytes(n int) *Bytes {
	return &Bytes{elements: make([][]byte, n)}
}

// Len returns how many []byte values the receiver contains.
func (b *Bytes) Len() int {
	return len(b.elements)
}

// Get returns the ith []byte in Bytes. Note that the returned byte slice is
// unsafe for reuse if any write operation happens.
func (b *Bytes) Get(i int) []byte {
	return b.elements[i]
}

// Set sets the ith []byte in Bytes to a copy of v.
func (b *Bytes) Set(i int, v []byte) {
	start := len(b.buffer)
	b.buffer = append(b.buffer, v...)
	b.elements[i] = b.buffer[start:len(b.buffer):len(b.buffer)]
}

// Values returns the elements of the column as a read-only slice. It lets
// the fixed-width and the variable-width kinds share the same comparison
// loops.
func (b *Bytes) Values() [][]byte {
	return b.elements
}

// Reset clears all elements while keeping the allocated memory.
func (b *Bytes) Reset() {
	for i := range b.elements {
		b.elements[i] = nil
	}
	b.buffer = b.buffer[:0]
}

// Size returns the total number of bytes used by the receiver.
func (b *Bytes) Size() int {
	return cap(b.buffer) + cap(b.elements)*24
}
