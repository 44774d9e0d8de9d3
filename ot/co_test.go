//
// co_test.go
//
// Copyright (c) 2023-2026 Markku Rossi
//
// All rights reserved.
//

package ot

import (
	"crypto/rand"
	"testing"
)

func TestCOCurveMismatch(t *testing.T) {
	pipe, rPipe := NewPipe()

	done := make(chan error)
	go func() {
		done <- NewCO(rand.Reader).InitReceiver(rPipe)
	}()

	if err := SendString(pipe, "P-384"); err != nil {
		t.Fatal(err)
	}
	if err := pipe.Flush(); err != nil {
		t.Fatal(err)
	}
	if err := <-done; err == nil {
		t.Fatalf("InitReceiver accepted wrong curve")
	}
}

func TestCOInvalidPoint(t *testing.T) {
	pipe, rPipe := NewPipe()

	sender := NewCO(rand.Reader)
	done := make(chan error)
	go func() {
		err := sender.InitSender(pipe)
		if err != nil {
			done <- err
			return
		}
		done <- sender.Send(make([]Wire, 1))
	}()

	if err := NewCO(rand.Reader).InitReceiver(rPipe); err != nil {
		t.Fatal(err)
	}
	// Consume A and answer with a point that is not on the curve.
	for i := 0; i < 2; i++ {
		if _, err := rPipe.ReceiveData(); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 2; i++ {
		if err := rPipe.SendData([]byte{1}); err != nil {
			t.Fatal(err)
		}
	}
	if err := rPipe.Flush(); err != nil {
		t.Fatal(err)
	}
	if err := <-done; err == nil {
		t.Fatalf("Send accepted invalid point")
	}
}
