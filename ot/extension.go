//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//
// The OT extension matrix shared by IKNP and KKRT. The receiver holds
// an m×w choice matrix C and the sender a secret w-bit selector s.
// After the extension, the receiver holds rows t_j and the sender
// rows q_j = t_j ⊕ (c_j ∧ s).

package ot

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"io"
)

type extSender struct {
	io    IO
	width int
	s     []bool
	g     []cipher.Stream
}

// newExtSender runs the base OTs as the base OT receiver. The length
// of s defines the extension width; it must be a multiple of 8.
func newExtSender(base OT, io IO, s []bool) (*extSender, error) {
	if len(s)%8 != 0 {
		return nil, fmt.Errorf("invalid extension width %d", len(s))
	}
	keys := make([]Label, len(s))
	err := base.Receive(s, keys)
	if err != nil {
		return nil, err
	}
	e := &extSender{
		io:    io,
		width: len(s),
		s:     s,
		g:     make([]cipher.Stream, len(s)),
	}
	for i := 0; i < e.width; i++ {
		e.g[i], err = newPrg(keys[i])
		if err != nil {
			return nil, err
		}
	}
	return e, nil
}

// expand receives the receiver's correction columns for m rows and
// returns the rows q_j.
func (e *extSender) expand(m int) ([][]byte, error) {
	colBytes := (m + 7) / 8

	u, err := e.io.ReceiveData()
	if err != nil {
		return nil, err
	}
	if len(u) != e.width*colBytes {
		return nil, fmt.Errorf("invalid extension matrix size: %d != %d",
			len(u), e.width*colBytes)
	}
	q := make([]byte, e.width*colBytes)
	for i := 0; i < e.width; i++ {
		col := q[i*colBytes : (i+1)*colBytes]
		prg(e.g[i], col)
		if e.s[i] {
			xor(col, u[i*colBytes:])
		}
	}
	return transpose(q, e.width, m), nil
}

type extReceiver struct {
	io    IO
	width int
	g0    []cipher.Stream
	g1    []cipher.Stream
}

// newExtReceiver runs width base OTs as the base OT sender.
func newExtReceiver(base OT, io IO, r io.Reader, width int) (
	*extReceiver, error) {

	if width%8 != 0 {
		return nil, fmt.Errorf("invalid extension width %d", width)
	}
	wires := make([]Wire, width)
	for i := 0; i < width; i++ {
		l0, err := NewLabel(r)
		if err != nil {
			return nil, err
		}
		l1, err := NewLabel(r)
		if err != nil {
			return nil, err
		}
		wires[i] = Wire{
			L0: l0,
			L1: l1,
		}
	}
	err := base.Send(wires)
	if err != nil {
		return nil, err
	}

	e := &extReceiver{
		io:    io,
		width: width,
		g0:    make([]cipher.Stream, width),
		g1:    make([]cipher.Stream, width),
	}
	for i := 0; i < width; i++ {
		e.g0[i], err = newPrg(wires[i].L0)
		if err != nil {
			return nil, err
		}
		e.g1[i], err = newPrg(wires[i].L1)
		if err != nil {
			return nil, err
		}
	}
	return e, nil
}

// expand sends the correction columns for the choice rows and returns
// the rows t_j. Each row must be width/8 bytes long.
func (e *extReceiver) expand(rows [][]byte) ([][]byte, error) {
	m := len(rows)
	colBytes := (m + 7) / 8

	c, err := columns(rows, e.width)
	if err != nil {
		return nil, err
	}
	t := make([]byte, e.width*colBytes)
	u := make([]byte, e.width*colBytes)

	for i := 0; i < e.width; i++ {
		ti := t[i*colBytes : (i+1)*colBytes]
		ui := u[i*colBytes : (i+1)*colBytes]
		prg(e.g0[i], ti)
		prg(e.g1[i], ui)
		xor(ui, ti)
		xor(ui, c[i*colBytes:])
	}
	if err := e.io.SendData(u); err != nil {
		return nil, err
	}
	if err := e.io.Flush(); err != nil {
		return nil, err
	}
	return transpose(t, e.width, m), nil
}

// transpose converts width columns of m bits into m rows of width
// bits.
func transpose(cols []byte, width, m int) [][]byte {
	colBytes := (m + 7) / 8
	rowBytes := width / 8

	buf := make([]byte, m*rowBytes)
	rows := make([][]byte, m)
	for j := range rows {
		rows[j] = buf[j*rowBytes : (j+1)*rowBytes]
	}
	for i := 0; i < width; i++ {
		col := cols[i*colBytes : (i+1)*colBytes]
		for j := 0; j < m; j++ {
			if (col[j/8]>>(j%8))&1 == 1 {
				rows[j][i/8] |= 1 << (i % 8)
			}
		}
	}
	return rows
}

// columns is the inverse of transpose.
func columns(rows [][]byte, width int) ([]byte, error) {
	m := len(rows)
	colBytes := (m + 7) / 8

	cols := make([]byte, width*colBytes)
	for j, row := range rows {
		if len(row) != width/8 {
			return nil, fmt.Errorf("row %d: invalid length %d", j, len(row))
		}
		for i := 0; i < width; i++ {
			if (row[i/8]>>(i%8))&1 == 1 {
				cols[i*colBytes+j/8] |= 1 << (j % 8)
			}
		}
	}
	return cols, nil
}

func newPrg(key Label) (cipher.Stream, error) {
	var ld LabelData
	block, err := aes.NewCipher(key.Bytes(&ld))
	if err != nil {
		return nil, err
	}
	var iv [16]byte
	return cipher.NewCTR(block, iv[:]), nil
}

func prg(c cipher.Stream, buf []byte) {
	// Clear buffer as it is shared between different caller's
	// iterations.
	for i := 0; i < len(buf); i++ {
		buf[i] = 0
	}
	c.XORKeyStream(buf, buf)
}
