//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package psi implements circuit private set intersection with
// payloads. The sender (the circuit garbler) and the receiver (the
// circuit evaluator) first run an OPPRF based base PSI that leaves
// the match material hidden in circuit inputs. A garbled circuit then
// computes the per-bin existence bits, the matched keys, and the
// unmasked payloads.
//
//	Efficient Circuit-based PSI with Linear Communication
//	 - https://eprint.iacr.org/2019/241.pdf
package psi

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/markkurossi/psi/circuit"
)

const (
	// PrimaryKeySize is the size of primary keys in bytes.
	PrimaryKeySize = 8

	// PayloadSize is the size of payloads in bytes.
	PayloadSize = 8

	keyWidth     = PrimaryKeySize * 8
	payloadWidth = PayloadSize * 8
)

// PrimaryKey is a set element. Its length must be PrimaryKeySize.
type PrimaryKey []byte

// Payload is a value associated with a primary key.
type Payload uint64

func (key PrimaryKey) uint64() uint64 {
	return binary.BigEndian.Uint64(key)
}

func keyFromUint64(v uint64) PrimaryKey {
	key := make(PrimaryKey, PrimaryKeySize)
	binary.BigEndian.PutUint64(key, v)
	return key
}

// Phase errors. Every error returned from an intersection run is
// marked with the phase where it occurred.
var (
	ErrInit          = errors.New("psi: initialization failed")
	ErrInputExchange = errors.New("psi: input exchange failed")
	ErrCircuit       = errors.New("psi: circuit evaluation failed")
	ErrReveal        = errors.New("psi: output reveal failed")
)

// Argument and protocol errors.
var (
	ErrProtocol          = errors.New("psi: protocol error")
	ErrReused            = errors.New("psi: role already used")
	ErrKeySize           = errors.New("psi: invalid primary key size")
	ErrDuplicateKey      = errors.New("psi: duplicate primary key")
	ErrPayloadCount      = errors.New("psi: payload count mismatch")
	ErrFalsePositiveProb = errors.New("psi: invalid false-positive probability")
)

// phaseErr attaches a phase sentinel to an error chain. Both
// errors.Is(err, phase) and errors.Is(err, cause) hold.
type phaseErr struct {
	phase error
	cause error
}

func (e *phaseErr) Error() string {
	return e.phase.Error() + ": " + e.cause.Error()
}

func (e *phaseErr) Unwrap() error {
	return e.cause
}

func (e *phaseErr) Is(target error) bool {
	return target == e.phase
}

func phaseError(err error, phase error, msg string) error {
	if err == nil {
		return nil
	}
	return &phaseErr{
		phase: phase,
		cause: errors.Wrap(err, msg),
	}
}

// RevealPolicy specifies which parties learn the intersection.
type RevealPolicy byte

// Reveal policies.
const (
	RevealBoth RevealPolicy = iota
	RevealEvaluator
)

var revealPolicies = map[RevealPolicy]string{
	RevealBoth:      "both",
	RevealEvaluator: "evaluator",
}

func (r RevealPolicy) String() string {
	name, ok := revealPolicies[r]
	if ok {
		return name
	}
	return fmt.Sprintf("{RevealPolicy %d}", r)
}

// Default parameter values.
const (
	DefaultCuckooExpansion   = 1.5
	DefaultMaxProgramRetries = 16
)

// Params define the protocol parameters. Both parties must use the
// same parameters.
type Params struct {
	// FalsePositiveProb is the OPPRF hint false-positive probability
	// per non-matching element. It must be in range (0, 1). There is
	// no default.
	FalsePositiveProb float64

	// Reveal specifies who learns the result.
	Reveal RevealPolicy

	// CuckooExpansion is the ratio of cuckoo bins to receiver keys.
	// The zero value selects DefaultCuckooExpansion.
	CuckooExpansion float64

	// MaxProgramRetries limits the hint table programming attempts.
	// The zero value selects DefaultMaxProgramRetries.
	MaxProgramRetries int
}

func (p Params) normalize() (Params, error) {
	if !(p.FalsePositiveProb > 0 && p.FalsePositiveProb < 1) {
		return p, errors.Wrapf(ErrFalsePositiveProb, "%v", p.FalsePositiveProb)
	}
	if _, ok := revealPolicies[p.Reveal]; !ok {
		return p, errors.Newf("psi: invalid reveal policy %v", p.Reveal)
	}
	if p.CuckooExpansion == 0 {
		p.CuckooExpansion = DefaultCuckooExpansion
	}
	if p.CuckooExpansion < 1 || math.IsInf(p.CuckooExpansion, 0) ||
		math.IsNaN(p.CuckooExpansion) {
		return p, errors.Newf("psi: invalid cuckoo expansion %v",
			p.CuckooExpansion)
	}
	if p.MaxProgramRetries <= 0 {
		p.MaxProgramRetries = DefaultMaxProgramRetries
	}
	return p, nil
}

// NumBins returns the number of cuckoo bins for n receiver keys.
func (p Params) NumBins(n int) int {
	e := p.CuckooExpansion
	if e == 0 {
		e = DefaultCuckooExpansion
	}
	return int(math.Ceil(e * float64(n)))
}

// CircuitInputs hold the base PSI results encoded as circuit wires.
// All wire slices are flat and hold one 64-bit value per cuckoo bin.
type CircuitInputs[W any] struct {
	// SenderPrimaryKeys are the sender's programmed bin tags.
	SenderPrimaryKeys []W
	// ReceiverPrimaryKeys are the receiver's OPPRF tag outputs. They
	// equal the sender's tags for the bins whose key the sender holds.
	ReceiverPrimaryKeys []W
	// SenderPayloadsMasked are the sender's payload pads.
	SenderPayloadsMasked []W
	// ReceiverPayloads are the receiver's payloads per bin.
	ReceiverPayloads []W
	// Masks are the receiver's OPPRF payload outputs. For matching
	// bins they hold the sender's payload xor its pad.
	Masks []W
	// Keys are the receiver's keys per bin.
	Keys []W
}

// PrivateIntersection holds the unrevealed intersection.
type PrivateIntersection[W any] struct {
	ExistenceBitVector []W
	PrimaryKeys        []circuit.BinaryBundle[W]
}

// PrivateIntersectionPayloads holds the unrevealed payloads of the
// intersection. The zero value is the empty payload set.
type PrivateIntersectionPayloads[W any] struct {
	SenderPayloads   []circuit.BinaryBundle[W]
	ReceiverPayloads []circuit.BinaryBundle[W]
}

// Intersection is the revealed intersection. All slices are indexed
// by the receiver's cuckoo bins. The keys and payloads of bins that
// are not in the intersection are zero. The payload slices are empty
// for runs without payloads.
type Intersection struct {
	Existence        []bool
	PrimaryKeys      []PrimaryKey
	SenderPayloads   []Payload
	ReceiverPayloads []Payload
}

// Cardinality returns the size of the intersection.
func (i *Intersection) Cardinality() int {
	var count int
	for _, e := range i.Existence {
		if e {
			count++
		}
	}
	return count
}

// Keys returns the keys of the intersection.
func (i *Intersection) Keys() []PrimaryKey {
	var result []PrimaryKey
	for idx, e := range i.Existence {
		if e {
			result = append(result, i.PrimaryKeys[idx])
		}
	}
	return result
}

// CircuitPsi implements one party of the circuit PSI protocol. Each
// value runs at most one intersection.
type CircuitPsi interface {
	// Intersect computes the intersection of the parties' keys.
	Intersect(keys []PrimaryKey) (*Intersection, error)

	// IntersectWithPayloads computes the intersection of the
	// parties' keys together with the payloads of the matching
	// keys. The payloads[i] is associated with keys[i].
	IntersectWithPayloads(keys []PrimaryKey, payloads []Payload) (
		*Intersection, error)
}

func checkInputs(keys []PrimaryKey, payloads []Payload) error {
	if payloads != nil && len(payloads) != len(keys) {
		return errors.Wrapf(ErrPayloadCount, "%d keys, %d payloads",
			len(keys), len(payloads))
	}
	seen := make(map[uint64]bool)
	for idx, key := range keys {
		if len(key) != PrimaryKeySize {
			return errors.Wrapf(ErrKeySize, "key %d: %d bytes", idx, len(key))
		}
		if seen[key.uint64()] {
			return errors.Wrapf(ErrDuplicateKey, "key %d", idx)
		}
		seen[key.uint64()] = true
	}
	return nil
}
