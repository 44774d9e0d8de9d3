//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package psi

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/markkurossi/psi/env"
	"github.com/markkurossi/psi/ot"
	"github.com/markkurossi/psi/p2p"
)

const (
	protocolMagic   = 0x50534931
	protocolVersion = 1

	// MaxSetSize is the maximum number of keys per party.
	MaxSetSize = 1 << 24

	dummySize = 16
)

// binItem returns the OPPRF hint item for the value in bin.
func binItem(bin int, value []byte) []byte {
	item := make([]byte, 8+len(value))
	binary.LittleEndian.PutUint64(item, uint64(bin))
	copy(item[8:], value)
	return item
}

// opprfValue packs the per-bin tag and masked payload into a label.
func opprfValue(tag, masked uint64) ot.Label {
	return ot.Label{
		D0: masked,
		D1: tag,
	}
}

func hintSize(p float64, nSender int) (int, int) {
	return GBFSize(p, NumCuckooHashes*nSender)
}

// OpprfSender implements the base PSI sender.
type OpprfSender struct {
	conn     *p2p.Conn
	rand     io.Reader
	params   Params
	payloads bool
	hk       HashKey
	nbins    int
	retries  int
}

// SenderMaterial holds the sender's per-bin base PSI results.
type SenderMaterial struct {
	Tags []uint64
	Pads []uint64
}

// NewOpprfSender runs the sender side of the parameter handshake.
// The nkeys is the sender's set size.
func NewOpprfSender(conn *p2p.Conn, cfg *env.Config, params Params,
	nkeys int, payloads bool) (*OpprfSender, error) {

	s := &OpprfSender{
		conn:     conn,
		rand:     cfg.GetRandom(),
		params:   params,
		payloads: payloads,
	}
	if err := conn.SendUint32(protocolMagic); err != nil {
		return nil, err
	}
	if err := conn.SendUint32(protocolVersion); err != nil {
		return nil, err
	}
	if err := conn.SendUint64(uint64(nkeys)); err != nil {
		return nil, err
	}
	if err := conn.SendBool(payloads); err != nil {
		return nil, err
	}
	if err := conn.SendUint64(math.Float64bits(params.FalsePositiveProb)); err != nil {
		return nil, err
	}
	if err := conn.SendUint64(math.Float64bits(params.CuckooExpansion)); err != nil {
		return nil, err
	}
	if err := conn.SendByte(byte(params.Reveal)); err != nil {
		return nil, err
	}
	if err := conn.Flush(); err != nil {
		return nil, err
	}

	nr, err := conn.ReceiveUint64()
	if err != nil {
		return nil, err
	}
	accept, err := conn.ReceiveBool()
	if err != nil {
		return nil, err
	}
	if !accept {
		return nil, errors.Wrap(ErrProtocol, "peer rejected parameters")
	}
	if nr > MaxSetSize {
		return nil, errors.Wrapf(ErrProtocol, "peer set size %d", nr)
	}
	s.nbins = params.NumBins(int(nr))

	// The cuckoo hash key.
	if _, err := io.ReadFull(s.rand, s.hk[:]); err != nil {
		return nil, err
	}
	if err := conn.SendData(s.hk[:]); err != nil {
		return nil, err
	}
	if err := conn.Flush(); err != nil {
		return nil, err
	}
	ok, err := conn.ReceiveBool()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrap(ErrCuckoo, "peer")
	}
	return s, nil
}

// NumBins returns the number of receiver's cuckoo bins.
func (s *OpprfSender) NumBins() int {
	return s.nbins
}

// Retries returns the number of failed hint programming attempts.
func (s *OpprfSender) Retries() int {
	return s.retries
}

// SendPayloads runs the OPPRF as the OPRF sender and sends the hint
// table that programs the keys and payloads into the per-bin tags and
// masked payloads. The payloads may be nil.
func (s *OpprfSender) SendPayloads(base ot.OT, keys []PrimaryKey,
	payloads []Payload) (*SenderMaterial, error) {

	oprf, err := ot.NewKKRTSender(base, s.conn, s.rand)
	if err != nil {
		return nil, errors.Wrap(err, "OPRF")
	}
	if err := oprf.Init(s.nbins); err != nil {
		return nil, errors.Wrap(err, "OPRF")
	}

	prg, err := env.NewRandomPRG(s.rand)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 16*s.nbins)
	prg.Read(buf)

	m := &SenderMaterial{
		Tags: make([]uint64, s.nbins),
		Pads: make([]uint64, s.nbins),
	}
	for j := 0; j < s.nbins; j++ {
		m.Tags[j] = binary.LittleEndian.Uint64(buf[j*16:])
		m.Pads[j] = binary.LittleEndian.Uint64(buf[j*16+8:])
	}

	var items [][]byte
	var values []ot.Label
	if s.nbins > 0 {
		for idx, key := range keys {
			var payload uint64
			if payloads != nil {
				payload = uint64(payloads[idx])
			}
			for _, bin := range simpleBins(s.hk, key, s.nbins) {
				v := oprf.Eval(bin, key)
				v.Xor(opprfValue(m.Tags[bin], m.Pads[bin]^payload))
				items = append(items, binItem(bin, key))
				values = append(values, v)
			}
		}
	}

	width, nhashes := hintSize(s.params.FalsePositiveProb, len(keys))
	var gbf *GBF
	for {
		var seed HashKey
		if _, err := io.ReadFull(s.rand, seed[:]); err != nil {
			return nil, err
		}
		gbf = NewGBF(seed, width, nhashes)
		err = gbf.Program(items, values, s.rand)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrProgram) {
			return nil, err
		}
		s.retries++
		if s.retries >= s.params.MaxProgramRetries {
			return nil, errors.Wrapf(err, "%d attempts", s.retries)
		}
	}
	if err := s.conn.SendData(gbf.Seed[:]); err != nil {
		return nil, err
	}
	if err := s.conn.SendData(gbf.Bytes()); err != nil {
		return nil, err
	}
	if err := s.conn.Flush(); err != nil {
		return nil, err
	}
	return m, nil
}

// OpprfReceiver implements the base PSI receiver.
type OpprfReceiver struct {
	conn    *p2p.Conn
	rand    io.Reader
	params  Params
	nsender int
	cuckoo  *Cuckoo
}

// ReceiverMaterial holds the receiver's per-bin base PSI results.
type ReceiverMaterial struct {
	Tags     []uint64
	Masks    []uint64
	Keys     []uint64
	Payloads []uint64
}

// NewOpprfReceiver runs the receiver side of the parameter handshake
// and cuckoo-hashes the keys.
func NewOpprfReceiver(conn *p2p.Conn, cfg *env.Config, params Params,
	keys []PrimaryKey, payloads bool) (*OpprfReceiver, error) {

	r := &OpprfReceiver{
		conn:   conn,
		rand:   cfg.GetRandom(),
		params: params,
	}

	magic, err := conn.ReceiveUint32()
	if err != nil {
		return nil, err
	}
	version, err := conn.ReceiveUint32()
	if err != nil {
		return nil, err
	}
	ns, err := conn.ReceiveUint64()
	if err != nil {
		return nil, err
	}
	peerPayloads, err := conn.ReceiveBool()
	if err != nil {
		return nil, err
	}
	p, err := conn.ReceiveUint64()
	if err != nil {
		return nil, err
	}
	expansion, err := conn.ReceiveUint64()
	if err != nil {
		return nil, err
	}
	reveal, err := conn.ReceiveByte()
	if err != nil {
		return nil, err
	}

	var reject error
	switch {
	case magic != protocolMagic:
		reject = errors.Wrapf(ErrProtocol, "invalid magic 0x%08x", magic)
	case version != protocolVersion:
		reject = errors.Wrapf(ErrProtocol, "unsupported version %d", version)
	case ns > MaxSetSize:
		reject = errors.Wrapf(ErrProtocol, "peer set size %d", ns)
	case peerPayloads != payloads:
		reject = errors.Wrapf(ErrProtocol, "payloads %v, expected %v",
			peerPayloads, payloads)
	case math.Float64frombits(p) != params.FalsePositiveProb:
		reject = errors.Wrapf(ErrProtocol,
			"false-positive probability %v, expected %v",
			math.Float64frombits(p), params.FalsePositiveProb)
	case math.Float64frombits(expansion) != params.CuckooExpansion:
		reject = errors.Wrapf(ErrProtocol, "cuckoo expansion %v, expected %v",
			math.Float64frombits(expansion), params.CuckooExpansion)
	case RevealPolicy(reveal) != params.Reveal:
		reject = errors.Wrapf(ErrProtocol, "reveal policy %v, expected %v",
			RevealPolicy(reveal), params.Reveal)
	}
	if err := conn.SendUint64(uint64(len(keys))); err != nil {
		return nil, err
	}
	if err := conn.SendBool(reject == nil); err != nil {
		return nil, err
	}
	if err := conn.Flush(); err != nil {
		return nil, err
	}
	if reject != nil {
		return nil, reject
	}
	r.nsender = int(ns)

	data, err := conn.ReceiveData()
	if err != nil {
		return nil, err
	}
	var hk HashKey
	if len(data) != len(hk) {
		return nil, errors.Wrapf(ErrProtocol, "hash key length %d", len(data))
	}
	copy(hk[:], data)

	prg, err := env.NewRandomPRG(r.rand)
	if err != nil {
		return nil, err
	}
	r.cuckoo = NewCuckoo(hk, params.NumBins(len(keys)), prg)
	insertErr := r.cuckoo.Insert(keys)
	if err := conn.SendBool(insertErr == nil); err != nil {
		return nil, err
	}
	if err := conn.Flush(); err != nil {
		return nil, err
	}
	if insertErr != nil {
		return nil, insertErr
	}
	return r, nil
}

// NumBins returns the number of cuckoo bins.
func (r *OpprfReceiver) NumBins() int {
	return len(r.cuckoo.Table)
}

// Cuckoo returns the receiver's cuckoo table.
func (r *OpprfReceiver) Cuckoo() *Cuckoo {
	return r.cuckoo
}

// ReceivePayloads runs the OPPRF as the OPRF receiver and decodes the
// per-bin tags and masked payloads from the sender's hint table. The
// payloads may be nil.
func (r *OpprfReceiver) ReceivePayloads(base ot.OT, keys []PrimaryKey,
	payloads []Payload) (*ReceiverMaterial, error) {

	oprf, err := ot.NewKKRTReceiver(base, r.conn, r.rand)
	if err != nil {
		return nil, errors.Wrap(err, "OPRF")
	}

	nbins := r.NumBins()
	m := &ReceiverMaterial{
		Tags:     make([]uint64, nbins),
		Masks:    make([]uint64, nbins),
		Keys:     make([]uint64, nbins),
		Payloads: make([]uint64, nbins),
	}

	inputs := make([][]byte, nbins)
	for j, idx := range r.cuckoo.Table {
		if idx < 0 {
			// Dummies are longer than keys and never match.
			dummy := make([]byte, dummySize)
			if _, err := io.ReadFull(r.rand, dummy); err != nil {
				return nil, err
			}
			inputs[j] = dummy
			continue
		}
		inputs[j] = keys[idx]
		m.Keys[j] = keys[idx].uint64()
		if payloads != nil {
			m.Payloads[j] = uint64(payloads[idx])
		}
	}
	outputs, err := oprf.Encode(inputs)
	if err != nil {
		return nil, errors.Wrap(err, "OPRF")
	}

	data, err := r.conn.ReceiveData()
	if err != nil {
		return nil, err
	}
	var seed HashKey
	if len(data) != len(seed) {
		return nil, errors.Wrapf(ErrProtocol, "hint seed length %d", len(data))
	}
	copy(seed[:], data)

	width, nhashes := hintSize(r.params.FalsePositiveProb, r.nsender)
	gbf := NewGBF(seed, width, nhashes)

	data, err = r.conn.ReceiveData()
	if err != nil {
		return nil, err
	}
	if err := gbf.SetBytes(data); err != nil {
		return nil, err
	}

	for j, input := range inputs {
		v := gbf.Decode(binItem(j, input))
		v.Xor(outputs[j])
		m.Tags[j] = v.D1
		m.Masks[j] = v.D0
	}
	return m, nil
}
