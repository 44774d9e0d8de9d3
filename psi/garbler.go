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
	_ CircuitPsi = &Garbler{}
)

// Garbler implements the PSI sender. It garbles the intersection
// circuit.
type Garbler struct {
	conn   *p2p.Conn
	cfg    *env.Config
	params Params
	log    zerolog.Logger
	timing *circuit.Timing
	used   bool
}

// NewGarbler creates a new PSI sender for the connection.
func NewGarbler(conn *p2p.Conn, cfg *env.Config, params Params) (
	*Garbler, error) {

	params, err := params.normalize()
	if err != nil {
		return nil, err
	}
	return &Garbler{
		conn:   conn,
		cfg:    cfg,
		params: params,
		log:    cfg.GetLogger().With().Str("role", "garbler").Logger(),
	}, nil
}

// Timing returns the timing samples of the intersection run.
func (g *Garbler) Timing() *circuit.Timing {
	return g.timing
}

// Intersect implements CircuitPsi.Intersect.
func (g *Garbler) Intersect(keys []PrimaryKey) (*Intersection, error) {
	return g.run(keys, nil)
}

// IntersectWithPayloads implements CircuitPsi.IntersectWithPayloads.
// Nil payloads are equal to Intersect.
func (g *Garbler) IntersectWithPayloads(keys []PrimaryKey,
	payloads []Payload) (*Intersection, error) {

	return g.run(keys, payloads)
}

func (g *Garbler) run(keys []PrimaryKey, payloads []Payload) (
	*Intersection, error) {

	if g.used {
		return nil, phaseError(ErrReused, ErrInit, "run")
	}
	g.used = true
	withPayloads := payloads != nil

	if err := checkInputs(keys, payloads); err != nil {
		return nil, phaseError(err, ErrInit, "inputs")
	}
	ph := newPhases(g.log, g.conn)
	g.timing = ph.timing

	sender, err := NewOpprfSender(g.conn, g.cfg, g.params, len(keys),
		withPayloads)
	if err != nil {
		return nil, phaseError(err, ErrInit, "handshake")
	}
	gc, err := circuit.NewGarbler(g.conn, g.cfg)
	if err != nil {
		return nil, phaseError(err, ErrInit, "garbler")
	}
	nbins := sender.NumBins()
	ph.done("Init").
		Int("keys", len(keys)).
		Int("bins", nbins).
		Bool("payloads", withPayloads).
		Msg("initialized")

	material, err := sender.SendPayloads(gc.BaseOT(), keys, payloads)
	if err != nil {
		return nil, phaseError(err, ErrInputExchange, "base PSI")
	}
	ph.done("Base PSI").Int("retries", sender.Retries()).Msg("hint sent")

	if nbins == 0 {
		return &Intersection{}, nil
	}

	ci, err := encodeInputs[circuit.GarblerWire](gc, material, nil, nbins,
		withPayloads)
	if err != nil {
		return nil, phaseError(err, ErrInputExchange, "encode inputs")
	}
	ph.done("Encode").Msg("inputs encoded")

	pi, pp, err := intersect[circuit.GarblerWire](gc, ci, withPayloads)
	if err != nil {
		return nil, phaseError(err, ErrCircuit, "garble")
	}
	if err := g.conn.Flush(); err != nil {
		return nil, phaseError(err, ErrCircuit, "garble")
	}
	ph.done("Garble").Uint64("gates", gc.NumAnd()).Msg("circuit garbled")

	result, err := reveal[circuit.GarblerWire](gc, g.params.Reveal, pi, pp)
	if err != nil {
		return nil, phaseError(err, ErrReveal, "reveal")
	}
	ph.done("Reveal").Str("policy", g.params.Reveal.String()).Msg("revealed")

	return result, nil
}
