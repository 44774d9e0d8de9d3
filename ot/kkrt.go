//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//
// Efficient Batched Oblivious PRF with Applications to Private Set
// Intersection
//  - https://eprint.iacr.org/2016/799.pdf

package ot

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/zeebo/blake3"
)

// KKRTWidth defines the KKRT code width in bits.
const KKRTWidth = 512

type kkrtRow [KKRTWidth / 8]byte

// kkrtCode implements the pseudorandom code C(x): the input is
// compressed with BLAKE3 and expanded into four AES blocks.
type kkrtCode struct {
	block cipher.Block
}

func newKKRTCode(key Label) (*kkrtCode, error) {
	var ld LabelData
	block, err := aes.NewCipher(key.Bytes(&ld))
	if err != nil {
		return nil, err
	}
	return &kkrtCode{
		block: block,
	}, nil
}

func (c *kkrtCode) encode(x []byte) kkrtRow {
	var row kkrtRow

	d := blake3.Sum256(x)
	for i := 0; i < len(row)/16; i++ {
		blk := row[i*16 : (i+1)*16]
		copy(blk, d[:16])
		blk[15] ^= byte(i)
		c.block.Encrypt(blk, blk)
	}
	return row
}

// kkrtOutput computes the OPRF output H(j ‖ row).
func kkrtOutput(j int, row []byte) Label {
	var buf [8 + KKRTWidth/8]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(j))
	copy(buf[8:], row)

	sum := blake3.Sum256(buf[:])

	var l Label
	l.SetBytes(sum[:16])
	return l
}

// KKRTSender implements the batched OPRF sender. It can evaluate the
// PRF F_j on any input for each instance j.
type KKRTSender struct {
	ext  *extSender
	s    kkrtRow
	code *kkrtCode
	rows [][]byte
}

// NewKKRTSender creates a new OPRF sender. The sender is the base OT
// receiver.
func NewKKRTSender(base OT, conn IO, r io.Reader) (*KKRTSender, error) {
	s := &KKRTSender{}
	if _, err := io.ReadFull(r, s.s[:]); err != nil {
		return nil, err
	}
	flags := make([]bool, KKRTWidth)
	for i := range flags {
		flags[i] = (s.s[i/8]>>(i%8))&1 == 1
	}
	var err error
	s.ext, err = newExtSender(base, conn, flags)
	if err != nil {
		return nil, err
	}

	key, err := NewLabel(r)
	if err != nil {
		return nil, err
	}
	var ld LabelData
	if err := conn.SendLabel(key, &ld); err != nil {
		return nil, err
	}
	if err := conn.Flush(); err != nil {
		return nil, err
	}
	s.code, err = newKKRTCode(key)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Init receives the receiver's extension matrix for n OPRF instances.
func (s *KKRTSender) Init(n int) error {
	rows, err := s.ext.expand(n)
	if err != nil {
		return err
	}
	s.rows = rows
	return nil
}

// Len returns the number of initialized OPRF instances.
func (s *KKRTSender) Len() int {
	return len(s.rows)
}

// Eval evaluates the OPRF instance j on the input x. The j must be
// smaller than Len.
func (s *KKRTSender) Eval(j int, x []byte) Label {
	row := s.code.encode(x)
	q := s.rows[j]
	for i := range row {
		row[i] = (row[i] & s.s[i]) ^ q[i]
	}
	return kkrtOutput(j, row[:])
}

// KKRTReceiver implements the batched OPRF receiver.
type KKRTReceiver struct {
	ext  *extReceiver
	code *kkrtCode
}

// NewKKRTReceiver creates a new OPRF receiver. The receiver is the
// base OT sender.
func NewKKRTReceiver(base OT, conn IO, r io.Reader) (*KKRTReceiver, error) {
	ext, err := newExtReceiver(base, conn, r, KKRTWidth)
	if err != nil {
		return nil, err
	}
	var key Label
	var ld LabelData
	if err := conn.ReceiveLabel(&key, &ld); err != nil {
		return nil, err
	}
	code, err := newKKRTCode(key)
	if err != nil {
		return nil, err
	}
	return &KKRTReceiver{
		ext:  ext,
		code: code,
	}, nil
}

// Encode runs one OPRF instance per input and returns the outputs
// F_j(inputs[j]).
func (r *KKRTReceiver) Encode(inputs [][]byte) ([]Label, error) {
	rows := make([][]byte, len(inputs))
	for j, x := range inputs {
		row := r.code.encode(x)
		rows[j] = row[:]
	}
	t, err := r.ext.expand(rows)
	if err != nil {
		return nil, err
	}
	if len(t) != len(inputs) {
		return nil, fmt.Errorf("OPRF output count mismatch")
	}
	result := make([]Label, len(t))
	for j, row := range t {
		result[j] = kkrtOutput(j, row)
	}
	return result, nil
}
