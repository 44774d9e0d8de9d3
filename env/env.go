//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

// Package env implements global environment for the PSI system.
package env

import (
	"crypto/rand"
	"io"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/chacha20"
)

// Config defines the global system configuration for the PSI
// system. It configures system operation for all protocol roles.
// Config must not be modified after being passed to any role. It is
// safe for concurrent use by multiple roles as they do not modify
// it.
type Config struct {
	// Rand is the source of entropy. If nil, crypto/rand is used.
	Rand io.Reader

	// Logger receives the protocol progress logs. If nil, logging is
	// disabled.
	Logger *zerolog.Logger
}

// GetRandom returns the source of entropy for garbling, OT, and other
// cryptography operations.
func (config *Config) GetRandom() io.Reader {
	if config != nil && config.Rand != nil {
		return config.Rand
	}
	return rand.Reader
}

var nopLogger = zerolog.Nop()

// GetLogger returns the configured logger.
func (config *Config) GetLogger() *zerolog.Logger {
	if config != nil && config.Logger != nil {
		return config.Logger
	}
	return &nopLogger
}

// PRG implements a deterministic pseudorandom generator.
type PRG struct {
	stream *chacha20.Cipher
}

// NewPRG creates a new ChaCha20 pseudorandom generator from the
// 32-byte seed.
func NewPRG(seed [32]byte) *PRG {
	var nonce [chacha20.NonceSize]byte
	stream, err := chacha20.NewUnauthenticatedCipher(seed[:], nonce[:])
	if err != nil {
		// Key and nonce sizes are fixed.
		panic(err)
	}
	return &PRG{
		stream: stream,
	}
}

// NewRandomPRG creates a new PRG seeded from the entropy source r.
func NewRandomPRG(r io.Reader) (*PRG, error) {
	var seed [32]byte
	if _, err := io.ReadFull(r, seed[:]); err != nil {
		return nil, err
	}
	return NewPRG(seed), nil
}

// Read implements io.Reader. It never fails.
func (prg *PRG) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	prg.stream.XORKeyStream(p, p)
	return len(p), nil
}
