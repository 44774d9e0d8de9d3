//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package psi

import (
	"io"

	"github.com/bits-and-blooms/bitset"
	"github.com/cockroachdb/errors"
	"github.com/markkurossi/psi/bloom"
	"github.com/markkurossi/psi/ot"
	"github.com/minio/highwayhash"
)

// ErrProgram is returned when a garbled Bloom filter can't be
// programmed with the current seed.
var ErrProgram = errors.New("psi: garbled Bloom filter programming failed")

// GBF implements a garbled Bloom filter: a table of labels where the
// xor of an item's probe positions decodes into the item's value. The
// table is sized with the Bloom filter formulas so that programming
// fails with the false-positive probability per item.
type GBF struct {
	Seed    HashKey
	NHashes int
	Table   []ot.Label
}

// GBFSize returns the table width and the number of probes for n items
// and the false-positive probability p.
func GBFSize(p float64, n int) (width, nhashes int) {
	nhashes = bloom.NumHashes(p)
	width = bloom.Size(p, n)
	if width < nhashes {
		width = nhashes
	}
	return
}

// NewGBF creates an empty garbled Bloom filter.
func NewGBF(seed HashKey, width, nhashes int) *GBF {
	return &GBF{
		Seed:    seed,
		NHashes: nhashes,
		Table:   make([]ot.Label, width),
	}
}

// probes returns the distinct probe positions of the item.
func (gbf *GBF) probes(item []byte) []int {
	buf := make([]byte, 1+len(item))
	copy(buf[1:], item)

	result := make([]int, 0, gbf.NHashes)
	for i := 0; i < gbf.NHashes; i++ {
		buf[0] = byte(i)
		pos := int(highwayhash.Sum64(buf, gbf.Seed[:]) %
			uint64(len(gbf.Table)))
		var seen bool
		for _, p := range result {
			if p == pos {
				seen = true
				break
			}
		}
		if !seen {
			result = append(result, pos)
		}
	}
	return result
}

// Program programs the items with their values and fills the unused
// positions with random labels. It returns ErrProgram if an item has
// no free probe positions left.
func (gbf *GBF) Program(items [][]byte, values []ot.Label,
	rand io.Reader) error {

	if len(items) != len(values) {
		return errors.Newf("psi: %d items, %d values", len(items), len(values))
	}
	used := bitset.New(uint(len(gbf.Table)))

	for idx, item := range items {
		probes := gbf.probes(item)

		free := -1
		acc := values[idx]
		for _, pos := range probes {
			if !used.Test(uint(pos)) {
				if free < 0 {
					free = pos
					continue
				}
				l, err := ot.NewLabel(rand)
				if err != nil {
					return err
				}
				gbf.Table[pos] = l
				used.Set(uint(pos))
			}
			acc.Xor(gbf.Table[pos])
		}
		if free < 0 {
			return errors.Wrapf(ErrProgram, "item %d", idx)
		}
		gbf.Table[free] = acc
		used.Set(uint(free))
	}

	for i := range gbf.Table {
		if used.Test(uint(i)) {
			continue
		}
		l, err := ot.NewLabel(rand)
		if err != nil {
			return err
		}
		gbf.Table[i] = l
	}
	return nil
}

// Decode returns the value of the item. For items that were not
// programmed the result is pseudorandom.
func (gbf *GBF) Decode(item []byte) ot.Label {
	var result ot.Label
	for _, pos := range gbf.probes(item) {
		result.Xor(gbf.Table[pos])
	}
	return result
}

// Bytes returns the table in its wire encoding.
func (gbf *GBF) Bytes() []byte {
	var ld ot.LabelData
	buf := make([]byte, 0, len(gbf.Table)*len(ld))
	for _, l := range gbf.Table {
		buf = append(buf, l.Bytes(&ld)...)
	}
	return buf
}

// SetBytes sets the table from its wire encoding.
func (gbf *GBF) SetBytes(data []byte) error {
	var ld ot.LabelData
	if len(data) != len(gbf.Table)*len(ld) {
		return errors.Wrapf(ErrProtocol, "hint table: %d bytes for %d labels",
			len(data), len(gbf.Table))
	}
	for i := range gbf.Table {
		gbf.Table[i].SetBytes(data[i*len(ld) : (i+1)*len(ld)])
	}
	return nil
}
