//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package circuit

import (
	"math/big"

	"github.com/cockroachdb/errors"
)

// BinaryBundle is an ordered sequence of wires that represents an
// unsigned binary number, bit 0 being the least significant. The
// width is fixed at construction.
type BinaryBundle[W any] struct {
	wires []W
}

// NewBinaryBundle creates a bundle from the wires.
func NewBinaryBundle[W any](wires []W) BinaryBundle[W] {
	return BinaryBundle[W]{
		wires: wires,
	}
}

// Width returns the number of wires in the bundle.
func (b BinaryBundle[W]) Width() int {
	return len(b.wires)
}

// Wires returns the bundle wires.
func (b BinaryBundle[W]) Wires() []W {
	return b.wires
}

// Bit returns the wire of bit i.
func (b BinaryBundle[W]) Bit(i int) W {
	return b.wires[i]
}

// ValueBits returns the width bits of value, least significant bit
// first.
func ValueBits(value *big.Int, width int) ([]bool, error) {
	if value.Sign() < 0 || value.BitLen() > width {
		return nil, errors.Wrapf(ErrValueRange, "%d-bit value in %d bits",
			value.BitLen(), width)
	}
	bits := make([]bool, width)
	for i := range bits {
		bits[i] = value.Bit(i) == 1
	}
	return bits, nil
}

// BitsValue returns the unsigned value of bits, least significant bit
// first.
func BitsValue(bits []bool) *big.Int {
	result := new(big.Int)
	for i, bit := range bits {
		if bit {
			result.SetBit(result, i, 1)
		}
	}
	return result
}

func flatten[W any](bundles []BinaryBundle[W]) []W {
	var result []W
	for _, b := range bundles {
		result = append(result, b.wires...)
	}
	return result
}

func split(bits []bool, bundles int) [][]bool {
	if bundles == 0 {
		return nil
	}
	width := len(bits) / bundles
	result := make([][]bool, bundles)
	for i := range result {
		result[i] = bits[i*width : (i+1)*width]
	}
	return result
}

// RevealBundles reveals the bundles to both parties and returns their
// values.
func RevealBundles[W any](f FancyReveal[W], bundles []BinaryBundle[W]) (
	[]*big.Int, error) {

	if err := sameWidth(bundles); err != nil {
		return nil, err
	}
	bits, err := f.Reveal(flatten(bundles))
	if err != nil {
		return nil, err
	}
	var result []*big.Int
	for _, b := range split(bits, len(bundles)) {
		result = append(result, BitsValue(b))
	}
	return result, nil
}

// OutputBundles reveals the bundles to the evaluator. The garbler gets
// a nil result.
func OutputBundles[W any](f FancyReveal[W], bundles []BinaryBundle[W]) (
	[]*big.Int, error) {

	if err := sameWidth(bundles); err != nil {
		return nil, err
	}
	bits, err := f.Outputs(flatten(bundles))
	if err != nil {
		return nil, err
	}
	if bits == nil {
		return nil, nil
	}
	var result []*big.Int
	for _, b := range split(bits, len(bundles)) {
		result = append(result, BitsValue(b))
	}
	return result, nil
}

func sameWidth[W any](bundles []BinaryBundle[W]) error {
	for i := 1; i < len(bundles); i++ {
		if bundles[i].Width() != bundles[0].Width() {
			return errors.Wrapf(ErrWidthMismatch, "bundle %d: %d != %d",
				i, bundles[i].Width(), bundles[0].Width())
		}
	}
	return nil
}
