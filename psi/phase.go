//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package psi

import (
	"github.com/markkurossi/psi/circuit"
	"github.com/markkurossi/psi/p2p"
	"github.com/rs/zerolog"
)

// phases tracks the protocol phases of one intersection run.
type phases struct {
	log    zerolog.Logger
	conn   *p2p.Conn
	timing *circuit.Timing
	stats  p2p.IOStats
}

func newPhases(log zerolog.Logger, conn *p2p.Conn) *phases {
	return &phases{
		log:    log,
		conn:   conn,
		timing: circuit.NewTiming(),
		stats:  conn.Stats.Clone(),
	}
}

// done records the timing sample of the phase that ended now. It
// returns a debug event that the caller must send with Msg.
func (p *phases) done(phase string) *zerolog.Event {
	now := p.conn.Stats.Clone()
	xfer := now.Sub(p.stats)
	p.stats = now

	p.timing.Sample(phase, []string{circuit.FileSize(xfer.Sum()).String()})

	return p.log.Debug().
		Str("phase", phase).
		Uint64("sent", xfer.Sent.Load()).
		Uint64("rcvd", xfer.Recvd.Load())
}
