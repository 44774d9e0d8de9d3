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

func checkWidths[W any](a, b BinaryBundle[W]) error {
	if a.Width() != b.Width() {
		return errors.Wrapf(ErrWidthMismatch, "%d != %d", a.Width(), b.Width())
	}
	return nil
}

// Or returns a∨b = a⊕b⊕(a∧b).
func Or[W any](f Fancy[W], a, b W) (W, error) {
	ab, err := f.And(a, b)
	if err != nil {
		var zero W
		return zero, err
	}
	return f.Xor(f.Xor(a, b), ab), nil
}

// Mux returns ifTrue if sel is set and ifFalse otherwise.
func Mux[W any](f Fancy[W], sel, ifFalse, ifTrue W) (W, error) {
	d, err := f.And(sel, f.Xor(ifFalse, ifTrue))
	if err != nil {
		var zero W
		return zero, err
	}
	return f.Xor(ifFalse, d), nil
}

// BinConstantBundle creates a width-bit constant bundle with the
// public value.
func BinConstantBundle[W any](f Fancy[W], value *big.Int, width int) (
	BinaryBundle[W], error) {

	bits, err := ValueBits(value, width)
	if err != nil {
		return BinaryBundle[W]{}, err
	}
	wires := make([]W, width)
	for i, bit := range bits {
		wires[i] = f.Constant(bit)
	}
	return NewBinaryBundle(wires), nil
}

// BinXor returns the bitwise a⊕b.
func BinXor[W any](f Fancy[W], a, b BinaryBundle[W]) (BinaryBundle[W], error) {
	if err := checkWidths(a, b); err != nil {
		return BinaryBundle[W]{}, err
	}
	wires := make([]W, a.Width())
	for i := range wires {
		wires[i] = f.Xor(a.wires[i], b.wires[i])
	}
	return NewBinaryBundle(wires), nil
}

// BinAnd returns the bitwise a∧b.
func BinAnd[W any](f Fancy[W], a, b BinaryBundle[W]) (BinaryBundle[W], error) {
	if err := checkWidths(a, b); err != nil {
		return BinaryBundle[W]{}, err
	}
	wires := make([]W, a.Width())
	for i := range wires {
		w, err := f.And(a.wires[i], b.wires[i])
		if err != nil {
			return BinaryBundle[W]{}, err
		}
		wires[i] = w
	}
	return NewBinaryBundle(wires), nil
}

// BinOr returns the bitwise a∨b.
func BinOr[W any](f Fancy[W], a, b BinaryBundle[W]) (BinaryBundle[W], error) {
	if err := checkWidths(a, b); err != nil {
		return BinaryBundle[W]{}, err
	}
	wires := make([]W, a.Width())
	for i := range wires {
		w, err := Or(f, a.wires[i], b.wires[i])
		if err != nil {
			return BinaryBundle[W]{}, err
		}
		wires[i] = w
	}
	return NewBinaryBundle(wires), nil
}

// BinNot returns the bitwise ¬a.
func BinNot[W any](f Fancy[W], a BinaryBundle[W]) BinaryBundle[W] {
	wires := make([]W, a.Width())
	for i := range wires {
		wires[i] = f.Not(a.wires[i])
	}
	return NewBinaryBundle(wires)
}

// BinEqBundles returns a wire that is set if a and b are equal. The
// bitwise XNORs are reduced with a balanced AND tree.
func BinEqBundles[W any](f Fancy[W], a, b BinaryBundle[W]) (W, error) {
	var zero W
	if err := checkWidths(a, b); err != nil {
		return zero, err
	}
	if a.Width() == 0 {
		return f.Constant(true), nil
	}
	level := make([]W, a.Width())
	for i := range level {
		level[i] = f.Not(f.Xor(a.wires[i], b.wires[i]))
	}
	for len(level) > 1 {
		var next []W
		for i := 0; i+1 < len(level); i += 2 {
			w, err := f.And(level[i], level[i+1])
			if err != nil {
				return zero, err
			}
			next = append(next, w)
		}
		if len(level)%2 == 1 {
			next = append(next, level[len(level)-1])
		}
		level = next
	}
	return level[0], nil
}

// BinMultiplex returns ifTrue if sel is set and ifFalse otherwise.
func BinMultiplex[W any](f Fancy[W], sel W, ifFalse, ifTrue BinaryBundle[W]) (
	BinaryBundle[W], error) {

	if err := checkWidths(ifFalse, ifTrue); err != nil {
		return BinaryBundle[W]{}, err
	}
	wires := make([]W, ifFalse.Width())
	for i := range wires {
		w, err := Mux(f, sel, ifFalse.wires[i], ifTrue.wires[i])
		if err != nil {
			return BinaryBundle[W]{}, err
		}
		wires[i] = w
	}
	return NewBinaryBundle(wires), nil
}

// BinAdditionNoCarry returns (a+b) mod 2^width. The carry out of the
// most significant bit is discarded.
func BinAdditionNoCarry[W any](f Fancy[W], a, b BinaryBundle[W]) (
	BinaryBundle[W], error) {

	if err := checkWidths(a, b); err != nil {
		return BinaryBundle[W]{}, err
	}
	width := a.Width()
	wires := make([]W, width)
	if width == 0 {
		return NewBinaryBundle(wires), nil
	}

	wires[0] = f.Xor(a.wires[0], b.wires[0])
	carry, err := f.And(a.wires[0], b.wires[0])
	if err != nil {
		return BinaryBundle[W]{}, err
	}
	for i := 1; i < width; i++ {
		// s = a⊕b⊕c, c' = c⊕((a⊕c)∧(b⊕c))
		ac := f.Xor(a.wires[i], carry)
		bc := f.Xor(b.wires[i], carry)
		wires[i] = f.Xor(ac, b.wires[i])
		if i+1 == width {
			break
		}
		t, err := f.And(ac, bc)
		if err != nil {
			return BinaryBundle[W]{}, err
		}
		carry = f.Xor(carry, t)
	}
	return NewBinaryBundle(wires), nil
}
