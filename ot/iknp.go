//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//
// IKNP OT Extension:
//
// Extending oblivious transfers efficiently
//  - https://www.iacr.org/archive/crypto2003/27290145/27290145.pdf
//
// More Efficient Oblivious Transfer and Extensions for Faster Secure
// Computation
//  - https://eprint.iacr.org/2013/552.pdf

package ot

import (
	"fmt"
	"io"
)

// K defines the IKNP security parameter; the number of IKNP base
// OTs.
const K = 128

var (
	allOnes  [K / 8]byte
	allZeros [K / 8]byte
)

func init() {
	for i := range allOnes {
		allOnes[i] = 0xff
	}
}

// IKNPSender implements the correlated OT sender.
type IKNPSender struct {
	// Delta defines the correlation delta: b1 = b0 ⊕ Δ
	Delta Label
	ext   *extSender
}

// NewIKNPSender creates a new sender. The d is an optional delta. If
// unset, the function creates a random delta. The sender is the base
// OT receiver.
func NewIKNPSender(base OT, io IO, r io.Reader, d *Label) (*IKNPSender, error) {
	var delta Label
	var err error
	if d == nil {
		delta, err = NewLabel(r)
		if err != nil {
			return nil, err
		}
	} else {
		delta = *d
	}

	flags := make([]bool, K)
	for i := 0; i < K; i++ {
		flags[i] = delta.Bit(i) == 1
	}
	ext, err := newExtSender(base, io, flags)
	if err != nil {
		return nil, err
	}
	return &IKNPSender{
		Delta: delta,
		ext:   ext,
	}, nil
}

// Send sends n labels. The function returns the b0 labels. The b1
// labels are b0[i] ⊕ s.Delta.
func (s *IKNPSender) Send(n int) ([]Label, error) {
	rows, err := s.ext.expand(n)
	if err != nil {
		return nil, err
	}
	result := make([]Label, n)
	for i, row := range rows {
		result[i] = labelFromRow(row)
	}
	return result, nil
}

// IKNPReceiver implements the correlated OT receiver.
type IKNPReceiver struct {
	ext *extReceiver
}

// NewIKNPReceiver creates a new receiver. The receiver is the base OT
// sender.
func NewIKNPReceiver(base OT, io IO, rand io.Reader) (*IKNPReceiver, error) {
	ext, err := newExtReceiver(base, io, rand, K)
	if err != nil {
		return nil, err
	}
	return &IKNPReceiver{
		ext: ext,
	}, nil
}

// Receive labels based on the selection flags b. The returned labels
// implement the correlation: br[i] = b0[i] ⊕ b[i]*s.Delta.
func (r *IKNPReceiver) Receive(b []bool, result []Label) error {
	if len(b) != len(result) {
		return fmt.Errorf("len(b)=%d != len(result)=%d", len(b), len(result))
	}
	rows := make([][]byte, len(b))
	for i, f := range b {
		if f {
			rows[i] = allOnes[:]
		} else {
			rows[i] = allZeros[:]
		}
	}
	t, err := r.ext.expand(rows)
	if err != nil {
		return err
	}
	for i, row := range t {
		result[i] = labelFromRow(row)
	}
	return nil
}
