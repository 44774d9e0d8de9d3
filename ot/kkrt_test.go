//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package ot

import (
	"crypto/rand"
	"encoding/binary"
	"testing"
)

func kkrtPair(t *testing.T, inputs [][]byte) (*KKRTSender, []Label) {
	c0, c1 := NewPipe()
	oti0 := NewCO(rand.Reader)
	oti1 := NewCO(rand.Reader)

	errCh := make(chan error)
	var outputs []Label

	go func() {
		err := oti1.InitReceiver(c1)
		if err != nil {
			errCh <- err
			return
		}
		receiver, err := NewKKRTReceiver(oti1, c1, rand.Reader)
		if err != nil {
			errCh <- err
			return
		}
		outputs, err = receiver.Encode(inputs)
		errCh <- err
	}()

	err := oti0.InitSender(c0)
	if err != nil {
		t.Fatal(err)
	}
	sender, err := NewKKRTSender(oti0, c0, rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	err = sender.Init(len(inputs))
	if err != nil {
		t.Fatal(err)
	}
	if err := <-errCh; err != nil {
		t.Fatal(err)
	}
	return sender, outputs
}

func TestKKRT(t *testing.T) {
	const n = 100

	inputs := make([][]byte, n)
	for i := range inputs {
		inputs[i] = make([]byte, 8)
		binary.BigEndian.PutUint64(inputs[i], uint64(i*7+3))
	}
	sender, outputs := kkrtPair(t, inputs)
	if sender.Len() != n {
		t.Fatalf("sender has %d instances, expected %d", sender.Len(), n)
	}
	for j, x := range inputs {
		if !sender.Eval(j, x).Equal(outputs[j]) {
			t.Errorf("OPRF %d: sender and receiver outputs differ", j)
		}
		// Another input under the same instance.
		if sender.Eval(j, []byte("other")).Equal(outputs[j]) {
			t.Errorf("OPRF %d: output for a different input matches", j)
		}
		// Same input under another instance.
		if sender.Eval((j+1)%n, x).Equal(outputs[j]) {
			t.Errorf("OPRF %d: output of a different instance matches", j)
		}
	}
}

func TestKKRTEmpty(t *testing.T) {
	sender, outputs := kkrtPair(t, nil)
	if sender.Len() != 0 || len(outputs) != 0 {
		t.Fatalf("unexpected outputs: %d/%d", sender.Len(), len(outputs))
	}
}

func TestTranspose(t *testing.T) {
	const width = 512
	const m = 37

	rows := make([][]byte, m)
	for j := range rows {
		rows[j] = make([]byte, width/8)
		rand.Read(rows[j])
	}
	cols, err := columns(rows, width)
	if err != nil {
		t.Fatal(err)
	}
	back := transpose(cols, width, m)
	for j := range rows {
		for i := range rows[j] {
			if rows[j][i] != back[j][i] {
				t.Fatalf("row %d byte %d: %x != %x", j, i, back[j][i], rows[j][i])
			}
		}
	}
}
