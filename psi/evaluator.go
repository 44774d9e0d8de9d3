//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package psi

import (
	"github.com/markkurossi/psi/circuit"
	"github.com/markkurossi/psi/env"
	"github.com/markkurossi/psi/p2p"
	"github.com/rs/zerolog"
)

var (
	_ CircuitPsi = &Evaluator{}
)

// Evaluator implements the PSI receiver. It evaluates the
// intersection circuit.
type Evaluator struct {
	conn   *p2p.Conn
	cfg    *env.Config
	params Params
	log    zerolog.Logger
	timing *circuit.Timing
	used   bool
}

// NewEvaluator creates a new PSI receiver for the connection.
func NewEvaluator(conn *p2p.Conn, cfg *env.Config, params Params) (
	*Evaluator, error) {

	params, err := params.normalize()
	if err != nil {
		return nil, err
	}
	return &Evaluator{
		conn:   conn,
		cfg:    cfg,
		params: params,
		log:    cfg.GetLogger().With().Str("role", "evaluator").Logger(),
	}, nil
}

// Timing returns the timing samples of the intersection run.
func (e *Evaluator) Timing() *circuit.Timing {
	return e.timing
}

// Intersect implements CircuitPsi.Intersect.
func (e *Evaluator) Intersect(keys []PrimaryKey) (*Intersection, error) {
	return e.run(keys, nil)
}

// IntersectWithPayloads implements CircuitPsi.IntersectWithPayloads.
// Nil payloads are equal to Intersect.
func (e *Evaluator) IntersectWithPayloads(keys []PrimaryKey,
	payloads []Payload) (*Intersection, error) {

	return e.run(keys, payloads)
}

func (e *Evaluator) run(keys []PrimaryKey, payloads []Payload) (
	*Intersection, error) {

	if e.used {
		return nil, phaseError(ErrReused, ErrInit, "run")
	}
	e.used = true
	withPayloads := payloads != nil

	if err := checkInputs(keys, payloads); err != nil {
		return nil, phaseError(err, ErrInit, "inputs")
	}
	ph := newPhases(e.log, e.conn)
	e.timing = ph.timing

	receiver, err := NewOpprfReceiver(e.conn, e.cfg, e.params, keys,
		withPayloads)
	if err != nil {
		return nil, phaseError(err, ErrInit, "handshake")
	}
	ec, err := circuit.NewEvaluator(e.conn, e.cfg)
	if err != nil {
		return nil, phaseError(err, ErrInit, "evaluator")
	}
	nbins := receiver.NumBins()
	ph.done("Init").
		Int("keys", len(keys)).
		Int("bins", nbins).
		Bool("payloads", withPayloads).
		Msg("initialized")

	material, err := receiver.ReceivePayloads(ec.BaseOT(), keys, payloads)
	if err != nil {
		return nil, phaseError(err, ErrInputExchange, "base PSI")
	}
	ph.done("Base PSI").Msg("hint decoded")

	if nbins == 0 {
		return &Intersection{}, nil
	}

	ci, err := encodeInputs[circuit.EvaluatorWire](ec, nil, material, nbins,
		withPayloads)
	if err != nil {
		return nil, phaseError(err, ErrInputExchange, "encode inputs")
	}
	ph.done("Encode").Msg("inputs encoded")

	pi, pp, err := intersect[circuit.EvaluatorWire](ec, ci, withPayloads)
	if err != nil {
		return nil, phaseError(err, ErrCircuit, "evaluate")
	}
	ph.done("Evaluate").Uint64("gates", ec.NumAnd()).Msg("circuit evaluated")

	result, err := reveal[circuit.EvaluatorWire](ec, e.params.Reveal, pi, pp)
	if err != nil {
		return nil, phaseError(err, ErrReveal, "reveal")
	}
	ph.done("Reveal").
		Str("policy", e.params.Reveal.String()).
		Int("matches", result.Cardinality()).
		Msg("revealed")

	return result, nil
}
