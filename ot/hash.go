//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//
// Efficient Garbling from a Fixed-Key Blockcipher
//  - https://eprint.iacr.org/2013/426.pdf
//
// Efficient and Secure Multiparty Computation from Fixed-Key Block
// Ciphers
//  - https://eprint.iacr.org/2019/074.pdf

package ot

import (
	"crypto/aes"
	"crypto/cipher"
	"sync"
)

// fixedKey is the public AES key of FixedKeyHash.
var fixedKey = Label{
	D0: 0x243f6a8885a308d3,
	D1: 0x13198a2e03707344,
}

// FixedKeyHash returns the process-wide fixed-key AES hash. It is
// initialized on first use and immutable afterwards.
var FixedKeyHash = sync.OnceValue(func() *AESHash {
	return NewAESHash(fixedKey)
})

// AESHash implements correlation-robust hash functions from a keyed
// AES permutation π. AESHash is safe for concurrent use.
type AESHash struct {
	block cipher.Block
}

// NewAESHash creates a new AES hash with the key.
func NewAESHash(key Label) *AESHash {
	var ld LabelData
	block, err := aes.NewCipher(key.Bytes(&ld))
	if err != nil {
		// 16-byte keys are always valid.
		panic(err)
	}
	return &AESHash{
		block: block,
	}
}

// Permute returns π(x).
func (h *AESHash) Permute(x Label) Label {
	var ld LabelData
	x.GetData(&ld)
	h.block.Encrypt(ld[:], ld[:])

	var result Label
	result.SetData(&ld)
	return result
}

// CRHash computes the correlation-robust hash π(x) ⊕ x.
func (h *AESHash) CRHash(x Label) Label {
	y := h.Permute(x)
	y.Xor(x)
	return y
}

// TCCRHash computes the tweakable circular correlation-robust hash
// π(π(x) ⊕ i) ⊕ π(x).
func (h *AESHash) TCCRHash(i, x Label) Label {
	y := h.Permute(x)
	y.Xor(i)
	z := h.CRHash(y)
	z.Xor(i)
	return z
}
