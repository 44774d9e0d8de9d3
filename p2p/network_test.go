//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"testing"
	"time"
)

func TestListenDial(t *testing.T) {
	l, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	done := make(chan error)
	go func() {
		conn, err := l.Accept()
		if err != nil {
			done <- err
			return
		}
		defer conn.Close()
		if err := conn.SendUint64(4242); err != nil {
			done <- err
			return
		}
		done <- conn.Flush()
	}()

	d := &Dialer{
		Retries: 2,
		Delay:   10 * time.Millisecond,
	}
	conn, err := d.Dial(l.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	v, err := conn.ReceiveUint64()
	if err != nil {
		t.Fatal(err)
	}
	if v != 4242 {
		t.Errorf("got %v, expected 4242", v)
	}
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestDialFails(t *testing.T) {
	l, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	l.Close()

	d := &Dialer{
		Retries: 1,
		Delay:   time.Millisecond,
	}
	_, err = d.Dial(addr)
	if err == nil {
		t.Fatalf("Dial succeeded without listener")
	}
}
