//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package oram implements a linear oblivious RAM lookup as a garbled
// circuit. The garbler holds the RAM and the evaluator the query
// index. The evaluator learns the element at the index and the
// garbler learns nothing.
package oram

import (
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/markkurossi/psi/circuit"
	"github.com/markkurossi/psi/env"
	"github.com/markkurossi/psi/p2p"
)

// Width is the RAM element and index width in bits.
const Width = 128

// ErrIndexRange is returned when the query index is outside the RAM.
var ErrIndexRange = errors.New("oram: index out of range")

// MaxSize is the maximum RAM size.
const MaxSize = 1 << 20

// Inputs hold the circuit inputs of both parties.
type Inputs[W any] struct {
	RAM   []circuit.BinaryBundle[W]
	Query circuit.BinaryBundle[W]
}

// LinearORAM returns the RAM element at the query index. Each element
// is compared against the query and the matching one is accumulated
// into the result, so the circuit touches every element.
func LinearORAM[W any](f circuit.Fancy[W], in *Inputs[W]) (
	circuit.BinaryBundle[W], error) {

	result, err := circuit.BinConstantBundle(f, big.NewInt(0), Width)
	if err != nil {
		return result, err
	}
	zero := result

	for i, item := range in.RAM {
		idx, err := circuit.BinConstantBundle(f, big.NewInt(int64(i)), Width)
		if err != nil {
			return result, err
		}
		eq, err := circuit.BinEqBundles(f, in.Query, idx)
		if err != nil {
			return result, err
		}
		mux, err := circuit.BinMultiplex(f, eq, zero, item)
		if err != nil {
			return result, err
		}
		result, err = circuit.BinAdditionNoCarry(f, result, mux)
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

// Garble runs the garbler with the RAM contents. The RAM size is
// public.
func Garble(conn *p2p.Conn, cfg *env.Config, ram []*big.Int) error {
	log := cfg.GetLogger().With().Str("role", "garbler").Logger()

	if len(ram) > MaxSize {
		return errors.Newf("oram: RAM size %d exceeds %d", len(ram), MaxSize)
	}
	g, err := circuit.NewGarbler(conn, cfg)
	if err != nil {
		return err
	}
	if err := conn.SendUint64(uint64(len(ram))); err != nil {
		return err
	}
	bundles, err := g.BinEncodeMany(ram, Width)
	if err != nil {
		return err
	}
	query, err := g.BinReceive(Width)
	if err != nil {
		return err
	}
	result, err := LinearORAM[circuit.GarblerWire](g, &Inputs[circuit.GarblerWire]{
		RAM:   bundles,
		Query: query,
	})
	if err != nil {
		return err
	}
	_, err = circuit.OutputBundles[circuit.GarblerWire](g,
		[]circuit.BinaryBundle[circuit.GarblerWire]{result})
	if err != nil {
		return err
	}
	log.Debug().
		Int("size", len(ram)).
		Uint64("gates", g.NumAnd()).
		Uint64("sent", conn.Stats.Sent.Load()).
		Uint64("rcvd", conn.Stats.Recvd.Load()).
		Msg("garbled")
	return nil
}

// Evaluate runs the evaluator with the query index and returns the
// RAM element at the index. An out-of-range index fails with
// ErrIndexRange before the evaluator's input is encoded.
func Evaluate(conn *p2p.Conn, cfg *env.Config, index uint64) (
	*big.Int, error) {

	log := cfg.GetLogger().With().Str("role", "evaluator").Logger()

	e, err := circuit.NewEvaluator(conn, cfg)
	if err != nil {
		return nil, err
	}
	size, err := conn.ReceiveUint64()
	if err != nil {
		return nil, err
	}
	if size > MaxSize {
		return nil, errors.Newf("oram: peer RAM size %d exceeds %d",
			size, MaxSize)
	}
	if index >= size {
		return nil, errors.Wrapf(ErrIndexRange, "index %d, size %d",
			index, size)
	}
	bundles, err := e.BinReceiveMany(int(size), Width)
	if err != nil {
		return nil, err
	}
	query, err := e.BinEncode(new(big.Int).SetUint64(index), Width)
	if err != nil {
		return nil, err
	}
	result, err := LinearORAM[circuit.EvaluatorWire](e,
		&Inputs[circuit.EvaluatorWire]{
			RAM:   bundles,
			Query: query,
		})
	if err != nil {
		return nil, err
	}
	values, err := circuit.OutputBundles[circuit.EvaluatorWire](e,
		[]circuit.BinaryBundle[circuit.EvaluatorWire]{result})
	if err != nil {
		return nil, err
	}
	log.Debug().
		Int("size", int(size)).
		Uint64("gates", e.NumAnd()).
		Uint64("sent", conn.Stats.Sent.Load()).
		Uint64("rcvd", conn.Stats.Recvd.Load()).
		Msg("evaluated")

	return values[0], nil
}
