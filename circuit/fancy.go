//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package circuit implements garbled circuit evaluation with
// free-XOR and half-gates. The Garbler and Evaluator roles implement
// the same gate interface so that circuits can be written once as
// generic functions and executed by both parties in lockstep.
package circuit

import (
	"math/big"

	"github.com/cockroachdb/errors"
)

var (
	// ErrWidthMismatch is returned when bundle operands have
	// different widths.
	ErrWidthMismatch = errors.New("circuit: bundle width mismatch")

	// ErrProtocol is returned when the peer sends a malformed
	// message.
	ErrProtocol = errors.New("circuit: protocol error")

	// ErrValueRange is returned when an input value does not fit
	// into the bundle width.
	ErrValueRange = errors.New("circuit: value out of range")
)

// Fancy defines the gate operations over wires of type W. XOR, NOT,
// and constants are local operations. AND communicates: the garbler
// streams the gate's ciphertexts and the evaluator consumes them.
type Fancy[W any] interface {
	// Constant returns a wire with the public value bit.
	Constant(bit bool) W

	// Xor returns a⊕b.
	Xor(a, b W) W

	// And returns a∧b.
	And(a, b W) (W, error)

	// Not returns ¬a.
	Not(a W) W
}

// FancyInput defines input encoding. The party owning a value calls
// BinEncode and its peer calls BinReceive with the same width.
type FancyInput[W any] interface {
	// BinEncode encodes the caller's value as a width-bit bundle.
	BinEncode(value *big.Int, width int) (BinaryBundle[W], error)

	// BinEncodeMany encodes the caller's values as width-bit
	// bundles.
	BinEncodeMany(values []*big.Int, width int) ([]BinaryBundle[W], error)

	// BinReceive receives the peer's width-bit input bundle.
	BinReceive(width int) (BinaryBundle[W], error)

	// BinReceiveMany receives count width-bit input bundles from the
	// peer.
	BinReceiveMany(count, width int) ([]BinaryBundle[W], error)
}

// FancyReveal defines output decoding.
type FancyReveal[W any] interface {
	// Reveal decodes the wires so that both parties learn the
	// plaintext bits.
	Reveal(wires []W) ([]bool, error)

	// Outputs decodes the wires to the evaluator only. The garbler
	// gets a nil result.
	Outputs(wires []W) ([]bool, error)
}

// Party combines the capabilities of a protocol role.
type Party[W any] interface {
	Fancy[W]
	FancyInput[W]
	FancyReveal[W]
}
