//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package psi

import (
	"crypto/rand"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/markkurossi/psi/env"
	"github.com/markkurossi/psi/ot"
	"github.com/markkurossi/psi/p2p"
)

// lookup returns the bin of the key or -1 if the key is not in the
// table.
func lookup(c *Cuckoo, key PrimaryKey) int {
	for _, bin := range cuckooBins(c.hk, key, len(c.Table)) {
		idx := c.Table[bin]
		if idx >= 0 && c.keys[idx].uint64() == key.uint64() {
			return bin
		}
	}
	return -1
}

func TestBasePsiMasks(t *testing.T) {
	c := qt.New(t)

	senderKeys := keyRange(100, 50, 1)
	payloads := make([]Payload, len(senderKeys))
	for i := range payloads {
		payloads[i] = Payload(i*i + 1)
	}
	receiverKeys := keyRange(130, 40, 1)

	params, err := testParams.normalize()
	c.Assert(err, qt.IsNil)

	c0, c1 := p2p.Pipe()
	cfg := &env.Config{}

	type senderResult struct {
		m   *SenderMaterial
		err error
	}
	ch := make(chan senderResult)
	go func() {
		var res senderResult
		defer func() {
			if res.err != nil {
				c0.Close()
			}
			ch <- res
		}()
		s, err := NewOpprfSender(c0, cfg, params, len(senderKeys), true)
		if err != nil {
			res.err = err
			return
		}
		base := ot.NewCO(rand.Reader)
		if res.err = base.InitReceiver(c0); res.err != nil {
			return
		}
		res.m, res.err = s.SendPayloads(base, senderKeys, payloads)
	}()

	r, err := NewOpprfReceiver(c1, cfg, params, receiverKeys, true)
	c.Assert(err, qt.IsNil)
	base := ot.NewCO(rand.Reader)
	c.Assert(base.InitSender(c1), qt.IsNil)
	rm, err := r.ReceivePayloads(base, receiverKeys, nil)
	c.Assert(err, qt.IsNil)

	res := <-ch
	c.Assert(res.err, qt.IsNil)
	sm := res.m

	c.Assert(sm.Tags, qt.HasLen, r.NumBins())
	c.Assert(rm.Tags, qt.HasLen, r.NumBins())

	for _, key := range receiverKeys {
		bin := lookup(r.Cuckoo(), key)
		c.Assert(bin >= 0, qt.IsTrue)
		c.Assert(rm.Keys[bin], qt.Equals, key.uint64())

		v := key.uint64()
		if v < 150 {
			// In the sender's set.
			payload := uint64(payloads[v-100])
			c.Assert(rm.Tags[bin], qt.Equals, sm.Tags[bin])
			c.Assert(rm.Masks[bin], qt.Equals, sm.Pads[bin]^payload)
		} else {
			c.Assert(rm.Tags[bin], qt.Not(qt.Equals), sm.Tags[bin])
		}
	}
	for bin, idx := range r.Cuckoo().Table {
		if idx < 0 {
			c.Assert(rm.Tags[bin], qt.Not(qt.Equals), sm.Tags[bin])
			c.Assert(rm.Keys[bin], qt.Equals, uint64(0))
		}
	}
}

func TestCuckoo(t *testing.T) {
	c := qt.New(t)

	var hk HashKey
	_, err := rand.Read(hk[:])
	c.Assert(err, qt.IsNil)

	keys := keyRange(1, 1000, 7)
	prg, err := env.NewRandomPRG(rand.Reader)
	c.Assert(err, qt.IsNil)

	cuckoo := NewCuckoo(hk, testParams.NumBins(len(keys)), prg)
	c.Assert(cuckoo.Insert(keys), qt.IsNil)

	seen := make(map[int]bool)
	for i, key := range keys {
		bin := lookup(cuckoo, key)
		c.Assert(bin >= 0, qt.IsTrue, qt.Commentf("key %d", i))
		c.Assert(cuckoo.Table[bin], qt.Equals, i)
		c.Assert(seen[bin], qt.IsFalse)
		seen[bin] = true

		var candidate bool
		for _, b := range simpleBins(hk, key, len(cuckoo.Table)) {
			if b == bin {
				candidate = true
			}
		}
		c.Assert(candidate, qt.IsTrue)
	}
	c.Assert(lookup(cuckoo, keyFromUint64(2)), qt.Equals, -1)
}

func TestCuckooOverflow(t *testing.T) {
	var hk HashKey
	cuckoo := NewCuckoo(hk, 2, rand.Reader)
	err := cuckoo.Insert(testKeys(1, 2, 3))
	qt.Assert(t, err, qt.ErrorIs, ErrCuckoo)
}

func TestGBF(t *testing.T) {
	c := qt.New(t)

	const n = 300
	var items [][]byte
	var values []ot.Label
	for i := 0; i < n; i++ {
		items = append(items, binItem(i%17, keyFromUint64(uint64(i))))
		l, err := ot.NewLabel(rand.Reader)
		c.Assert(err, qt.IsNil)
		values = append(values, l)
	}

	width, nhashes := GBFSize(testParams.FalsePositiveProb, n)
	c.Assert(nhashes, qt.Equals, 20)
	c.Assert(width >= nhashes*n, qt.IsTrue)

	var seed HashKey
	_, err := rand.Read(seed[:])
	c.Assert(err, qt.IsNil)

	gbf := NewGBF(seed, width, nhashes)
	c.Assert(gbf.Program(items, values, rand.Reader), qt.IsNil)

	decoded := NewGBF(seed, width, nhashes)
	c.Assert(decoded.SetBytes(gbf.Bytes()), qt.IsNil)

	for i, item := range items {
		c.Assert(decoded.Decode(item).Equal(values[i]), qt.IsTrue)
	}
	other := decoded.Decode(binItem(0, keyFromUint64(n+1)))
	for _, v := range values {
		c.Assert(other.Equal(v), qt.IsFalse)
	}

	c.Assert(decoded.SetBytes([]byte{1, 2, 3}), qt.ErrorIs, ErrProtocol)
}

func TestGBFProgramFails(t *testing.T) {
	var seed HashKey
	gbf := NewGBF(seed, 1, 1)

	items := [][]byte{{1}, {2}}
	values := make([]ot.Label, 2)
	err := gbf.Program(items, values, rand.Reader)
	qt.Assert(t, err, qt.ErrorIs, ErrProgram)
}
