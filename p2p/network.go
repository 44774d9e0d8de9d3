//
// Copyright (c) 2020-2026 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"net"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// Dialer connects to the peer. It retries failed connection attempts
// since the peer may not be listening yet.
type Dialer struct {
	// Retries is the number of additional attempts after a failed
	// connect. Negative value retries forever.
	Retries int

	// Delay between connection attempts.
	Delay time.Duration

	// Logger for connection progress. Nil disables logging.
	Logger *zerolog.Logger
}

// Dial connects to the peer at addr.
func (d *Dialer) Dial(addr string) (*Conn, error) {
	log := d.Logger
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	delay := d.Delay
	if delay == 0 {
		delay = 5 * time.Second
	}

	for attempt := 0; ; attempt++ {
		log.Debug().Str("addr", addr).Int("attempt", attempt).
			Msg("connecting to peer")
		nc, err := net.Dial("tcp", addr)
		if err == nil {
			log.Debug().Str("addr", addr).Msg("connected")
			return NewConn(nc), nil
		}
		if d.Retries >= 0 && attempt >= d.Retries {
			return nil, errors.Wrapf(err, "connect to %s", addr)
		}
		log.Info().Str("addr", addr).Err(err).Dur("delay", delay).
			Msg("connect failed, retrying")
		<-time.After(delay)
	}
}

// Listener accepts peer connections.
type Listener struct {
	listener net.Listener
}

// Listen creates a new listener for the TCP address addr.
func Listen(addr string) (*Listener, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen %s", addr)
	}
	return &Listener{
		listener: listener,
	}, nil
}

// Addr returns the listener's network address.
func (l *Listener) Addr() net.Addr {
	return l.listener.Addr()
}

// Accept waits for the next peer connection.
func (l *Listener) Accept() (*Conn, error) {
	nc, err := l.listener.Accept()
	if err != nil {
		return nil, err
	}
	return NewConn(nc), nil
}

// Close closes the listener.
func (l *Listener) Close() error {
	return l.listener.Close()
}
