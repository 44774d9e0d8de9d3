//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package psi

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/minio/highwayhash"
)

const (
	// NumCuckooHashes is the number of cuckoo hash functions.
	NumCuckooHashes = 3

	maxEvictions = 512
)

// ErrCuckoo is returned when the cuckoo insertion fails.
var ErrCuckoo = errors.New("psi: cuckoo hashing failed")

// HashKey is a 256-bit key for the keyed hash functions.
type HashKey [32]byte

// cuckooBins returns the candidate bins of the key. The candidates are
// not necessarily distinct.
func cuckooBins(hk HashKey, key PrimaryKey, nbins int) [NumCuckooHashes]int {
	var result [NumCuckooHashes]int
	var buf [1 + PrimaryKeySize]byte

	copy(buf[1:], key)
	for i := range result {
		buf[0] = byte(i)
		result[i] = int(highwayhash.Sum64(buf[:], hk[:]) % uint64(nbins))
	}
	return result
}

// simpleBins returns the distinct candidate bins of the key.
func simpleBins(hk HashKey, key PrimaryKey, nbins int) []int {
	var result []int
	for _, bin := range cuckooBins(hk, key, nbins) {
		var seen bool
		for _, b := range result {
			if b == bin {
				seen = true
				break
			}
		}
		if !seen {
			result = append(result, bin)
		}
	}
	return result
}

// Cuckoo implements a cuckoo hash table holding key indices.
type Cuckoo struct {
	hk    HashKey
	rand  io.Reader
	keys  []PrimaryKey
	Table []int
}

// NewCuckoo creates a cuckoo table with nbins bins. The rand drives
// the eviction choices.
func NewCuckoo(hk HashKey, nbins int, rand io.Reader) *Cuckoo {
	table := make([]int, nbins)
	for i := range table {
		table[i] = -1
	}
	return &Cuckoo{
		hk:    hk,
		rand:  rand,
		Table: table,
	}
}

// Insert inserts all keys into the table. Table[bin] holds the index
// of the key in the bin or -1 for an empty bin.
func (c *Cuckoo) Insert(keys []PrimaryKey) error {
	if len(keys) > len(c.Table) {
		return errors.Wrapf(ErrCuckoo, "%d keys, %d bins",
			len(keys), len(c.Table))
	}
	c.keys = keys

	var rnd [1]byte
	for idx := range keys {
		item := idx
		prev := -1
		for i := 0; ; i++ {
			if i >= maxEvictions {
				return errors.Wrapf(ErrCuckoo, "key %d", idx)
			}
			bins := cuckooBins(c.hk, keys[item], len(c.Table))
			placed := false
			for _, bin := range bins {
				if c.Table[bin] < 0 {
					c.Table[bin] = item
					placed = true
					break
				}
			}
			if placed {
				break
			}
			if _, err := io.ReadFull(c.rand, rnd[:]); err != nil {
				return err
			}
			bin := bins[int(rnd[0])%NumCuckooHashes]
			if bin == prev {
				bin = bins[(int(rnd[0])+1)%NumCuckooHashes]
			}
			c.Table[bin], item = item, c.Table[bin]
			prev = bin
		}
	}
	return nil
}
