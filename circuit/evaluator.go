//
// Copyright (c) 2019-2026 Markku Rossi
//
// All rights reserved.
//

package circuit

import (
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/markkurossi/psi/env"
	"github.com/markkurossi/psi/ot"
	"github.com/markkurossi/psi/p2p"
)

var (
	_ Party[EvaluatorWire] = &Evaluator{}
)

// EvaluatorWire is an evaluator's wire. It holds the wire's active
// label.
type EvaluatorWire struct {
	label ot.Label
}

// Evaluator implements the circuit evaluator role.
type Evaluator struct {
	conn   *p2p.Conn
	hash   *ot.AESHash
	base   *ot.CO
	ot     *ot.IKNPReceiver
	zero   EvaluatorWire
	gid    uint64
	numAnd uint64
}

// NewEvaluator creates a new evaluator for the connection. It is the
// counterpart of NewGarbler.
func NewEvaluator(conn *p2p.Conn, cfg *env.Config) (*Evaluator, error) {
	rand := cfg.GetRandom()

	base := ot.NewCO(rand)
	if err := base.InitSender(conn); err != nil {
		return nil, errors.Wrap(err, "base OT")
	}
	iknp, err := ot.NewIKNPReceiver(base, conn, rand)
	if err != nil {
		return nil, errors.Wrap(err, "OT extension")
	}

	e := &Evaluator{
		conn: conn,
		hash: ot.FixedKeyHash(),
		base: base,
		ot:   iknp,
	}
	var ld ot.LabelData
	if err := conn.ReceiveLabel(&e.zero.label, &ld); err != nil {
		return nil, err
	}
	return e, nil
}

// BaseOT returns the evaluator's base OT. The evaluator is the base
// OT sender.
func (e *Evaluator) BaseOT() ot.OT {
	return e.base
}

// NumAnd returns the number of evaluated AND gates.
func (e *Evaluator) NumAnd() uint64 {
	return e.numAnd
}

// Constant implements Fancy.Constant.
func (e *Evaluator) Constant(bit bool) EvaluatorWire {
	// The evaluator's NOT is the identity.
	return e.zero
}

// Xor implements Fancy.Xor.
func (e *Evaluator) Xor(a, b EvaluatorWire) EvaluatorWire {
	a.label.Xor(b.label)
	return a
}

// Not implements Fancy.Not.
func (e *Evaluator) Not(a EvaluatorWire) EvaluatorWire {
	return a
}

// And implements Fancy.And. The gate's two ciphertexts are read from
// the connection.
func (e *Evaluator) And(a, b EvaluatorWire) (EvaluatorWire, error) {
	j := ot.NewTweak(2 * e.gid)
	jp := ot.NewTweak(2*e.gid + 1)
	e.gid++
	e.numAnd++

	var tg, te ot.Label
	var ld ot.LabelData
	if err := e.conn.ReceiveLabel(&tg, &ld); err != nil {
		return EvaluatorWire{}, err
	}
	if err := e.conn.ReceiveLabel(&te, &ld); err != nil {
		return EvaluatorWire{}, err
	}

	wa := a.label
	wb := b.label

	wg := e.hash.TCCRHash(j, wa)
	if wa.S() {
		wg.Xor(tg)
	}
	we := e.hash.TCCRHash(jp, wb)
	if wb.S() {
		te.Xor(wa)
		we.Xor(te)
	}
	wg.Xor(we)

	return EvaluatorWire{
		label: wg,
	}, nil
}

// BinEncode implements FancyInput.BinEncode. The evaluator's input
// labels are transferred with correlated OT.
func (e *Evaluator) BinEncode(value *big.Int, width int) (
	BinaryBundle[EvaluatorWire], error) {

	bundles, err := e.BinEncodeMany([]*big.Int{value}, width)
	if err != nil {
		return BinaryBundle[EvaluatorWire]{}, err
	}
	return bundles[0], nil
}

// BinEncodeMany implements FancyInput.BinEncodeMany.
func (e *Evaluator) BinEncodeMany(values []*big.Int, width int) (
	[]BinaryBundle[EvaluatorWire], error) {

	var flags []bool
	for _, value := range values {
		bits, err := ValueBits(value, width)
		if err != nil {
			return nil, err
		}
		flags = append(flags, bits...)
	}
	labels := make([]ot.Label, len(flags))
	if err := e.ot.Receive(flags, labels); err != nil {
		return nil, err
	}
	return e.bundles(labels, len(values), width), nil
}

// BinReceive implements FancyInput.BinReceive.
func (e *Evaluator) BinReceive(width int) (BinaryBundle[EvaluatorWire], error) {
	bundles, err := e.BinReceiveMany(1, width)
	if err != nil {
		return BinaryBundle[EvaluatorWire]{}, err
	}
	return bundles[0], nil
}

// BinReceiveMany implements FancyInput.BinReceiveMany.
func (e *Evaluator) BinReceiveMany(count, width int) (
	[]BinaryBundle[EvaluatorWire], error) {

	var ld ot.LabelData
	labels := make([]ot.Label, count*width)
	for i := range labels {
		if err := e.conn.ReceiveLabel(&labels[i], &ld); err != nil {
			return nil, err
		}
	}
	return e.bundles(labels, count, width), nil
}

func (e *Evaluator) bundles(labels []ot.Label, count, width int) []BinaryBundle[EvaluatorWire] {
	result := make([]BinaryBundle[EvaluatorWire], count)
	for i := range result {
		wires := make([]EvaluatorWire, width)
		for j := range wires {
			wires[j] = EvaluatorWire{
				label: labels[i*width+j],
			}
		}
		result[i] = NewBinaryBundle(wires)
	}
	return result
}

func (e *Evaluator) decode(wires []EvaluatorWire) ([]bool, error) {
	data, err := e.conn.ReceiveData()
	if err != nil {
		return nil, err
	}
	decoding, err := unpackBits(data, len(wires))
	if err != nil {
		return nil, err
	}
	result := make([]bool, len(wires))
	for i, w := range wires {
		result[i] = w.label.S() != decoding[i]
	}
	return result, nil
}

// Reveal implements FancyReveal.Reveal. The decoded values are sent
// back to the garbler.
func (e *Evaluator) Reveal(wires []EvaluatorWire) ([]bool, error) {
	result, err := e.decode(wires)
	if err != nil {
		return nil, err
	}
	if err := e.conn.SendData(packBits(result)); err != nil {
		return nil, err
	}
	if err := e.conn.Flush(); err != nil {
		return nil, err
	}
	return result, nil
}

// Outputs implements FancyReveal.Outputs.
func (e *Evaluator) Outputs(wires []EvaluatorWire) ([]bool, error) {
	return e.decode(wires)
}
