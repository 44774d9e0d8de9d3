//
// Copyright (c) 2019-2026 Markku Rossi
//
// All rights reserved.
//

package circuit

import (
	"io"
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/markkurossi/psi/env"
	"github.com/markkurossi/psi/ot"
	"github.com/markkurossi/psi/p2p"
)

var (
	_ Party[GarblerWire] = &Garbler{}
)

// GarblerWire is a garbler's wire. It holds the wire's zero label;
// the one label is the zero label xor the garbler's global offset.
type GarblerWire struct {
	zero ot.Label
}

// Garbler implements the circuit garbler role.
type Garbler struct {
	conn   *p2p.Conn
	rand   io.Reader
	hash   *ot.AESHash
	r      ot.Label
	base   *ot.CO
	ot     *ot.IKNPSender
	zero   GarblerWire
	gid    uint64
	numAnd uint64
}

// NewGarbler creates a new garbler for the connection. The function
// runs the base OT and OT extension setup with the peer evaluator and
// sends the constant zero wire.
func NewGarbler(conn *p2p.Conn, cfg *env.Config) (*Garbler, error) {
	rand := cfg.GetRandom()

	r, err := ot.NewLabel(rand)
	if err != nil {
		return nil, err
	}
	r.SetS(true)

	base := ot.NewCO(rand)
	if err := base.InitReceiver(conn); err != nil {
		return nil, errors.Wrap(err, "base OT")
	}
	iknp, err := ot.NewIKNPSender(base, conn, rand, &r)
	if err != nil {
		return nil, errors.Wrap(err, "OT extension")
	}

	g := &Garbler{
		conn: conn,
		rand: rand,
		hash: ot.FixedKeyHash(),
		r:    r,
		base: base,
		ot:   iknp,
	}

	zero, err := ot.NewLabel(rand)
	if err != nil {
		return nil, err
	}
	g.zero = GarblerWire{
		zero: zero,
	}
	var ld ot.LabelData
	if err := conn.SendLabel(zero, &ld); err != nil {
		return nil, err
	}
	if err := conn.Flush(); err != nil {
		return nil, err
	}

	return g, nil
}

// BaseOT returns the garbler's base OT. The garbler is the base OT
// receiver.
func (g *Garbler) BaseOT() ot.OT {
	return g.base
}

// NumAnd returns the number of garbled AND gates.
func (g *Garbler) NumAnd() uint64 {
	return g.numAnd
}

// Constant implements Fancy.Constant.
func (g *Garbler) Constant(bit bool) GarblerWire {
	if bit {
		return g.Not(g.zero)
	}
	return g.zero
}

// Xor implements Fancy.Xor.
func (g *Garbler) Xor(a, b GarblerWire) GarblerWire {
	a.zero.Xor(b.zero)
	return a
}

// Not implements Fancy.Not.
func (g *Garbler) Not(a GarblerWire) GarblerWire {
	a.zero.Xor(g.r)
	return a
}

// And implements Fancy.And with half-gates. The gate's two
// ciphertexts are written to the connection.
func (g *Garbler) And(a, b GarblerWire) (GarblerWire, error) {
	j := ot.NewTweak(2 * g.gid)
	jp := ot.NewTweak(2*g.gid + 1)
	g.gid++
	g.numAnd++

	a0 := a.zero
	a1 := a0
	a1.Xor(g.r)
	b0 := b.zero
	b1 := b0
	b1.Xor(g.r)

	pa := a0.S()
	pb := b0.S()

	ha0 := g.hash.TCCRHash(j, a0)
	ha1 := g.hash.TCCRHash(j, a1)
	hb0 := g.hash.TCCRHash(jp, b0)
	hb1 := g.hash.TCCRHash(jp, b1)

	// Garbler half gate.
	tg := ha0
	tg.Xor(ha1)
	if pb {
		tg.Xor(g.r)
	}
	wg := ha0
	if pa {
		wg.Xor(tg)
	}

	// Evaluator half gate.
	te := hb0
	te.Xor(hb1)
	te.Xor(a0)
	we := hb0
	if pb {
		tmp := te
		tmp.Xor(a0)
		we.Xor(tmp)
	}

	var ld ot.LabelData
	if err := g.conn.SendLabel(tg, &ld); err != nil {
		return GarblerWire{}, err
	}
	if err := g.conn.SendLabel(te, &ld); err != nil {
		return GarblerWire{}, err
	}

	wg.Xor(we)
	return GarblerWire{
		zero: wg,
	}, nil
}

// BinEncode implements FancyInput.BinEncode. The active labels of the
// garbler's input bits are sent to the evaluator.
func (g *Garbler) BinEncode(value *big.Int, width int) (
	BinaryBundle[GarblerWire], error) {

	bundles, err := g.BinEncodeMany([]*big.Int{value}, width)
	if err != nil {
		return BinaryBundle[GarblerWire]{}, err
	}
	return bundles[0], nil
}

// BinEncodeMany implements FancyInput.BinEncodeMany.
func (g *Garbler) BinEncodeMany(values []*big.Int, width int) (
	[]BinaryBundle[GarblerWire], error) {

	var ld ot.LabelData
	result := make([]BinaryBundle[GarblerWire], len(values))

	for idx, value := range values {
		bits, err := ValueBits(value, width)
		if err != nil {
			return nil, err
		}
		wires := make([]GarblerWire, width)
		for i, bit := range bits {
			zero, err := ot.NewLabel(g.rand)
			if err != nil {
				return nil, err
			}
			active := zero
			if bit {
				active.Xor(g.r)
			}
			if err := g.conn.SendLabel(active, &ld); err != nil {
				return nil, err
			}
			wires[i] = GarblerWire{
				zero: zero,
			}
		}
		result[idx] = NewBinaryBundle(wires)
	}
	if err := g.conn.Flush(); err != nil {
		return nil, err
	}
	return result, nil
}

// BinReceive implements FancyInput.BinReceive. The evaluator's input
// labels are transferred with correlated OT.
func (g *Garbler) BinReceive(width int) (BinaryBundle[GarblerWire], error) {
	bundles, err := g.BinReceiveMany(1, width)
	if err != nil {
		return BinaryBundle[GarblerWire]{}, err
	}
	return bundles[0], nil
}

// BinReceiveMany implements FancyInput.BinReceiveMany.
func (g *Garbler) BinReceiveMany(count, width int) (
	[]BinaryBundle[GarblerWire], error) {

	// The evaluator may be waiting for gate ciphertexts.
	if err := g.conn.Flush(); err != nil {
		return nil, err
	}
	zeros, err := g.ot.Send(count * width)
	if err != nil {
		return nil, err
	}
	result := make([]BinaryBundle[GarblerWire], count)
	for i := range result {
		wires := make([]GarblerWire, width)
		for j := range wires {
			wires[j] = GarblerWire{
				zero: zeros[i*width+j],
			}
		}
		result[i] = NewBinaryBundle(wires)
	}
	return result, nil
}

func (g *Garbler) sendDecoding(wires []GarblerWire) error {
	bits := make([]bool, len(wires))
	for i, w := range wires {
		bits[i] = w.zero.S()
	}
	if err := g.conn.SendData(packBits(bits)); err != nil {
		return err
	}
	return g.conn.Flush()
}

// Reveal implements FancyReveal.Reveal. The garbler sends the wires'
// decoding bits and receives the plaintext values from the evaluator.
func (g *Garbler) Reveal(wires []GarblerWire) ([]bool, error) {
	if err := g.sendDecoding(wires); err != nil {
		return nil, err
	}
	data, err := g.conn.ReceiveData()
	if err != nil {
		return nil, err
	}
	return unpackBits(data, len(wires))
}

// Outputs implements FancyReveal.Outputs.
func (g *Garbler) Outputs(wires []GarblerWire) ([]bool, error) {
	return nil, g.sendDecoding(wires)
}

func packBits(bits []bool) []byte {
	result := make([]byte, (len(bits)+7)/8)
	for i, bit := range bits {
		if bit {
			result[i/8] |= 1 << (i % 8)
		}
	}
	return result
}

func unpackBits(data []byte, n int) ([]bool, error) {
	if len(data) != (n+7)/8 {
		return nil, errors.Wrapf(ErrProtocol, "got %d bytes for %d bits",
			len(data), n)
	}
	result := make([]bool, n)
	for i := range result {
		result[i] = (data[i/8]>>(i%8))&1 == 1
	}
	return result, nil
}
