//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package env

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func TestConfigDefaults(t *testing.T) {
	var config *Config
	if config.GetRandom() != rand.Reader {
		t.Errorf("nil config does not use crypto/rand")
	}
	if config.GetLogger() == nil {
		t.Errorf("nil config has no logger")
	}
	config = &Config{
		Rand: NewPRG([32]byte{}),
	}
	if config.GetRandom() == rand.Reader {
		t.Errorf("configured entropy source ignored")
	}
}

func TestPRG(t *testing.T) {
	var seed [32]byte
	seed[0] = 1

	a := make([]byte, 100)
	b := make([]byte, 100)
	NewPRG(seed).Read(a)
	NewPRG(seed).Read(b)
	if !bytes.Equal(a, b) {
		t.Fatalf("PRG is not deterministic")
	}

	seed[0] = 2
	NewPRG(seed).Read(b)
	if bytes.Equal(a, b) {
		t.Fatalf("PRG ignores seed")
	}

	// Consecutive reads continue the stream.
	prg := NewPRG(seed)
	c := make([]byte, 100)
	prg.Read(c[:40])
	prg.Read(c[40:])
	if !bytes.Equal(b, c) {
		t.Fatalf("split reads differ from a single read")
	}
}
