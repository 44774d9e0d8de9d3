//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package psi

import (
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/markkurossi/psi/circuit"
)

// wiresToBundle groups the wires into width-bit bundles.
func wiresToBundle[W any](wires []W, width int) []circuit.BinaryBundle[W] {
	result := make([]circuit.BinaryBundle[W], len(wires)/width)
	for i := range result {
		result[i] = circuit.NewBinaryBundle(wires[i*width : (i+1)*width])
	}
	return result
}

func flatten[W any](bundles []circuit.BinaryBundle[W]) []W {
	var result []W
	for _, b := range bundles {
		result = append(result, b.Wires()...)
	}
	return result
}

func uint64Values(values ...[]uint64) []*big.Int {
	var result []*big.Int
	for _, vals := range values {
		for _, v := range vals {
			result = append(result, new(big.Int).SetUint64(v))
		}
	}
	return result
}

// encodeInputs encodes the base PSI results as circuit inputs. The
// sender passes its material in sm and the receiver in rm. The
// sender's inputs are encoded first.
func encodeInputs[W any](p circuit.Party[W], sm *SenderMaterial,
	rm *ReceiverMaterial, nbins int, payloads bool) (
	*CircuitInputs[W], error) {

	nsender := 1
	nreceiver := 2
	if payloads {
		nsender++
		nreceiver += 2
	}

	var sb, rb []circuit.BinaryBundle[W]
	var err error

	if sm != nil {
		values := uint64Values(sm.Tags)
		if payloads {
			values = append(values, uint64Values(sm.Pads)...)
		}
		sb, err = p.BinEncodeMany(values, keyWidth)
		if err != nil {
			return nil, err
		}
		rb, err = p.BinReceiveMany(nreceiver*nbins, keyWidth)
		if err != nil {
			return nil, err
		}
	} else {
		sb, err = p.BinReceiveMany(nsender*nbins, keyWidth)
		if err != nil {
			return nil, err
		}
		values := uint64Values(rm.Tags, rm.Keys)
		if payloads {
			values = append(values, uint64Values(rm.Masks, rm.Payloads)...)
		}
		rb, err = p.BinEncodeMany(values, keyWidth)
		if err != nil {
			return nil, err
		}
	}
	if len(sb) != nsender*nbins || len(rb) != nreceiver*nbins {
		return nil, errors.Wrapf(ErrProtocol, "input counts %d/%d",
			len(sb), len(rb))
	}

	ci := &CircuitInputs[W]{
		SenderPrimaryKeys:   flatten(sb[:nbins]),
		ReceiverPrimaryKeys: flatten(rb[:nbins]),
		Keys:                flatten(rb[nbins : 2*nbins]),
	}
	if payloads {
		ci.SenderPayloadsMasked = flatten(sb[nbins:])
		ci.Masks = flatten(rb[2*nbins : 3*nbins])
		ci.ReceiverPayloads = flatten(rb[3*nbins:])
	}
	return ci, nil
}

// fancyUnmask removes the masks from the masked values.
func fancyUnmask[W any](f circuit.Fancy[W],
	masked, masks []circuit.BinaryBundle[W]) (
	[]circuit.BinaryBundle[W], error) {

	if len(masked) != len(masks) {
		return nil, errors.Wrapf(circuit.ErrWidthMismatch,
			"%d masked values, %d masks", len(masked), len(masks))
	}
	result := make([]circuit.BinaryBundle[W], len(masked))
	for i := range masked {
		b, err := circuit.BinXor(f, masked[i], masks[i])
		if err != nil {
			return nil, err
		}
		result[i] = b
	}
	return result, nil
}

// bundlePrimaryKeys returns the sender's tags, the receiver's OPPRF
// outputs, and the receiver's keys as bundles.
func bundlePrimaryKeys[W any](ci *CircuitInputs[W]) (
	tags, outputs, keys []circuit.BinaryBundle[W]) {

	return wiresToBundle(ci.SenderPrimaryKeys, keyWidth),
		wiresToBundle(ci.ReceiverPrimaryKeys, keyWidth),
		wiresToBundle(ci.Keys, keyWidth)
}

// bundlePayloads returns the sender's unmasked payloads and the
// receiver's payloads as bundles.
func bundlePayloads[W any](f circuit.Fancy[W], ci *CircuitInputs[W]) (
	sender, receiver []circuit.BinaryBundle[W], err error) {

	sender, err = fancyUnmask(f,
		wiresToBundle(ci.SenderPayloadsMasked, payloadWidth),
		wiresToBundle(ci.Masks, payloadWidth))
	if err != nil {
		return nil, nil, err
	}
	return sender, wiresToBundle(ci.ReceiverPayloads, payloadWidth), nil
}

// intersect computes the private intersection of the circuit inputs.
// The keys and payloads of non-matching bins are zero.
func intersect[W any](f circuit.Fancy[W], ci *CircuitInputs[W],
	payloads bool) (*PrivateIntersection[W],
	*PrivateIntersectionPayloads[W], error) {

	tags, outputs, keys := bundlePrimaryKeys(ci)
	if len(tags) != len(outputs) || len(tags) != len(keys) {
		return nil, nil, errors.Wrapf(circuit.ErrWidthMismatch,
			"%d tags, %d outputs, %d keys", len(tags), len(outputs), len(keys))
	}
	zero, err := circuit.BinConstantBundle(f, big.NewInt(0), keyWidth)
	if err != nil {
		return nil, nil, err
	}

	pi := &PrivateIntersection[W]{
		ExistenceBitVector: make([]W, len(tags)),
		PrimaryKeys:        make([]circuit.BinaryBundle[W], len(tags)),
	}
	for i := range tags {
		pi.ExistenceBitVector[i], err = circuit.BinEqBundles(f,
			tags[i], outputs[i])
		if err != nil {
			return nil, nil, err
		}
		pi.PrimaryKeys[i], err = circuit.BinMultiplex(f,
			pi.ExistenceBitVector[i], zero, keys[i])
		if err != nil {
			return nil, nil, err
		}
	}

	pp := &PrivateIntersectionPayloads[W]{}
	if !payloads {
		return pi, pp, nil
	}
	sender, receiver, err := bundlePayloads(f, ci)
	if err != nil {
		return nil, nil, err
	}
	if len(sender) != len(tags) || len(receiver) != len(tags) {
		return nil, nil, errors.Wrapf(circuit.ErrWidthMismatch,
			"%d bins, %d+%d payloads", len(tags), len(sender), len(receiver))
	}
	pp.SenderPayloads = make([]circuit.BinaryBundle[W], len(tags))
	pp.ReceiverPayloads = make([]circuit.BinaryBundle[W], len(tags))
	for i, e := range pi.ExistenceBitVector {
		pp.SenderPayloads[i], err = circuit.BinMultiplex(f, e, zero, sender[i])
		if err != nil {
			return nil, nil, err
		}
		pp.ReceiverPayloads[i], err = circuit.BinMultiplex(f, e, zero,
			receiver[i])
		if err != nil {
			return nil, nil, err
		}
	}
	return pi, pp, nil
}

// reveal reveals the private intersection. With the RevealEvaluator
// policy the garbler gets an empty intersection.
func reveal[W any](f circuit.FancyReveal[W], policy RevealPolicy,
	pi *PrivateIntersection[W], pp *PrivateIntersectionPayloads[W]) (
	*Intersection, error) {

	nbins := len(pi.ExistenceBitVector)

	wires := append([]W{}, pi.ExistenceBitVector...)
	wires = append(wires, flatten(pi.PrimaryKeys)...)
	wires = append(wires, flatten(pp.SenderPayloads)...)
	wires = append(wires, flatten(pp.ReceiverPayloads)...)

	var bits []bool
	var err error
	if policy == RevealEvaluator {
		bits, err = f.Outputs(wires)
	} else {
		bits, err = f.Reveal(wires)
	}
	if err != nil {
		return nil, err
	}
	if bits == nil {
		return &Intersection{}, nil
	}
	if len(bits) != len(wires) {
		return nil, errors.Wrapf(ErrProtocol, "got %d output bits for %d wires",
			len(bits), len(wires))
	}

	result := &Intersection{
		Existence:   bits[:nbins],
		PrimaryKeys: make([]PrimaryKey, nbins),
	}
	bits = bits[nbins:]
	for i := range result.PrimaryKeys {
		v := circuit.BitsValue(bits[i*keyWidth : (i+1)*keyWidth])
		result.PrimaryKeys[i] = keyFromUint64(v.Uint64())
	}
	bits = bits[nbins*keyWidth:]

	if len(pp.SenderPayloads) > 0 {
		result.SenderPayloads = payloadValues(bits[:nbins*payloadWidth])
		result.ReceiverPayloads = payloadValues(bits[nbins*payloadWidth:])
	}
	return result, nil
}

func payloadValues(bits []bool) []Payload {
	result := make([]Payload, len(bits)/payloadWidth)
	for i := range result {
		v := circuit.BitsValue(bits[i*payloadWidth : (i+1)*payloadWidth])
		result[i] = Payload(v.Uint64())
	}
	return result
}
