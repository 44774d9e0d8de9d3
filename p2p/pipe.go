//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"io"
)

// Pipe creates an in-memory connection pair for running both protocol
// roles in one process. Data sent to one endpoint is received from
// the other. Closing an endpoint fails the peer's pending and future
// reads and writes, which releases a peer that is blocked in the
// middle of a protocol run.
func Pipe() (*Conn, *Conn) {
	r0, w1 := io.Pipe()
	r1, w0 := io.Pipe()

	return NewConn(&pipeEnd{r: r0, w: w0}), NewConn(&pipeEnd{r: r1, w: w1})
}

type pipeEnd struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (p *pipeEnd) Read(data []byte) (int, error) {
	return p.r.Read(data)
}

func (p *pipeEnd) Write(data []byte) (int, error) {
	return p.w.Write(data)
}

func (p *pipeEnd) Close() error {
	rerr := p.r.CloseWithError(io.ErrClosedPipe)
	werr := p.w.Close()
	if rerr != nil {
		return rerr
	}
	return werr
}
