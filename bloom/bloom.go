//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package bloom implements a Bloom filter and the Bloom sizing
// formulas that the PSI protocol uses to size its hint tables.
package bloom

import (
	"crypto/sha256"
	"encoding/binary"
	"math"

	"github.com/bits-and-blooms/bitset"
	"github.com/cockroachdb/errors"
)

// ErrEncoding is returned when a filter encoding is malformed.
var ErrEncoding = errors.New("bloom: invalid filter encoding")

// Filter implements a Bloom filter. It always reports inserted
// values as members and reports other values as members with the
// filter's false-positive probability.
type Filter struct {
	bits    *bitset.BitSet
	size    int
	nhashes int
}

// Expansion returns the filter size expansion factor for the
// false-positive probability p. A filter for n values should have
// Expansion(p)·n bins.
func Expansion(p float64) float64 {
	return -1.44 * math.Log2(p)
}

// NumHashes returns the number of hash functions for the
// false-positive probability p.
func NumHashes(p float64) int {
	return int(math.Ceil(-math.Log2(p)))
}

// Size returns the number of bins for n values with the false-positive
// probability p.
func Size(p float64, n int) int {
	return int(math.Ceil(Expansion(p) * float64(n)))
}

// New creates a new filter with size bins and nhashes hash functions.
func New(size, nhashes int) *Filter {
	return &Filter{
		bits:    bitset.New(uint(size)),
		size:    size,
		nhashes: nhashes,
	}
}

// NewWithFalsePositiveProb creates a new filter for up to n values
// with the false-positive probability p.
func NewWithFalsePositiveProb(p float64, n int) *Filter {
	return New(Size(p, n), NumHashes(p))
}

// Len returns the number of bins in the filter.
func (f *Filter) Len() int {
	return f.size
}

// NumHashes returns the number of hash functions of the filter.
func (f *Filter) NumHashes() int {
	return f.nhashes
}

// Bins returns the filter bins.
func (f *Filter) Bins() []bool {
	result := make([]bool, f.size)
	for i := range result {
		result[i] = f.bits.Test(uint(i))
	}
	return result
}

// Bin computes the unreduced bin of value for the hash function
// hashIndex. The caller reduces the result modulo the filter size.
func Bin(value []byte, hashIndex int) uint64 {
	var idx [8]byte
	binary.LittleEndian.PutUint64(idx[:], uint64(hashIndex))

	h := sha256.New()
	h.Write(idx[:])
	h.Write(value)
	sum := h.Sum(nil)

	return binary.LittleEndian.Uint64(sum[:8])
}

// Insert inserts value into the filter.
func (f *Filter) Insert(value []byte) {
	if f.size == 0 {
		return
	}
	for i := 0; i < f.nhashes; i++ {
		f.bits.Set(uint(Bin(value, i) % uint64(f.size)))
	}
}

// Contains tests if value is in the filter.
func (f *Filter) Contains(value []byte) bool {
	if f.size == 0 {
		return false
	}
	for i := 0; i < f.nhashes; i++ {
		if !f.bits.Test(uint(Bin(value, i) % uint64(f.size))) {
			return false
		}
	}
	return true
}

// Bytes encodes the filter bins. The encoding is the little-endian
// uint64 bin count followed by the bins packed least significant bit
// first.
func (f *Filter) Bytes() []byte {
	result := make([]byte, 8+(f.size+7)/8)
	binary.LittleEndian.PutUint64(result[:8], uint64(f.size))
	for i := 0; i < f.size; i++ {
		if f.bits.Test(uint(i)) {
			result[8+i/8] |= 1 << (i % 8)
		}
	}
	return result
}

// FromBytes decodes a filter from its Bytes encoding.
func FromBytes(data []byte, nhashes int) (*Filter, error) {
	if len(data) < 8 {
		return nil, errors.Wrapf(ErrEncoding, "short header: %d bytes",
			len(data))
	}
	size := binary.LittleEndian.Uint64(data[:8])
	rest := data[8:]
	if size > uint64(len(rest))*8 || uint64(len(rest)) != (size+7)/8 {
		return nil, errors.Wrapf(ErrEncoding, "%d bins in %d bytes",
			size, len(rest))
	}
	f := New(int(size), nhashes)
	for i := 0; i < f.size; i++ {
		if (rest[i/8]>>(i%8))&1 == 1 {
			f.bits.Set(uint(i))
		}
	}
	return f, nil
}

// Equal tests if the filters have equal parameters and bins.
func (f *Filter) Equal(o *Filter) bool {
	return f.size == o.size && f.nhashes == o.nhashes && f.bits.Equal(o.bits)
}
