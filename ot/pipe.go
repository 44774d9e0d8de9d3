//
// pipe.go
//
// Copyright (c) 2023-2026 Markku Rossi
//
// All rights reserved.

package ot

import (
	"bufio"
	"fmt"
	"io"
)

var (
	_ IO = &Pipe{}
)

const maxPipeData = 64 * 1024 * 1024

// Pipe implements the IO interface with in-memory io.Pipe.
type Pipe struct {
	r   *bufio.Reader
	w   *bufio.Writer
	pr  *io.PipeReader
	pw  *io.PipeWriter
	buf [8]byte
}

// NewPipe creates a new in-memory pipe.
func NewPipe() (*Pipe, *Pipe) {
	ar, aw := io.Pipe()
	br, bw := io.Pipe()

	return &Pipe{
			r:  bufio.NewReader(ar),
			w:  bufio.NewWriter(bw),
			pr: ar,
			pw: bw,
		}, &Pipe{
			r:  bufio.NewReader(br),
			w:  bufio.NewWriter(aw),
			pr: br,
			pw: aw,
		}
}

// SendByte sends a byte value.
func (p *Pipe) SendByte(val byte) error {
	return p.w.WriteByte(val)
}

// SendData sends binary data.
func (p *Pipe) SendData(val []byte) error {
	if err := p.SendUint32(len(val)); err != nil {
		return err
	}
	_, err := p.w.Write(val)
	return err
}

// SendUint32 sends an uint32 value.
func (p *Pipe) SendUint32(val int) error {
	bo.PutUint32(p.buf[:4], uint32(val))
	_, err := p.w.Write(p.buf[:4])
	return err
}

// SendLabel sends an OT label.
func (p *Pipe) SendLabel(val Label, data *LabelData) error {
	_, err := p.w.Write(val.Bytes(data))
	return err
}

// Flush flushed any pending data in the connection.
func (p *Pipe) Flush() error {
	return p.w.Flush()
}

// Drain consumes all input from the pipe.
func (p *Pipe) Drain() error {
	_, err := io.Copy(io.Discard, p.r)
	return err
}

// Close flushes pending data and closes the pipe.
func (p *Pipe) Close() error {
	err := p.w.Flush()
	if cerr := p.pw.Close(); err == nil {
		err = cerr
	}
	return err
}

// ReceiveByte receives a byte value.
func (p *Pipe) ReceiveByte() (byte, error) {
	return p.r.ReadByte()
}

// ReceiveData receives binary data.
func (p *Pipe) ReceiveData() ([]byte, error) {
	l, err := p.ReceiveUint32()
	if err != nil {
		return nil, err
	}
	if l > maxPipeData {
		return nil, fmt.Errorf("pipe data too long: %d > %d", l, maxPipeData)
	}
	result := make([]byte, l)
	_, err = io.ReadFull(p.r, result)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ReceiveUint32 receives an uint32 value.
func (p *Pipe) ReceiveUint32() (int, error) {
	_, err := io.ReadFull(p.r, p.buf[:4])
	if err != nil {
		return 0, err
	}
	return int(bo.Uint32(p.buf[:4])), nil
}

// ReceiveLabel receives an OT label.
func (p *Pipe) ReceiveLabel(val *Label, data *LabelData) error {
	_, err := io.ReadFull(p.r, data[:])
	if err != nil {
		return err
	}
	val.SetData(data)
	return nil
}
