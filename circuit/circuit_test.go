//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package circuit

import (
	"math"
	"math/big"
	"math/rand/v2"
	"testing"

	"github.com/cockroachdb/errors"
	qt "github.com/frankban/quicktest"
	"github.com/markkurossi/psi/env"
	"github.com/markkurossi/psi/p2p"
)

type result[R any] struct {
	val R
	err error
}

// run runs the garbler and evaluator functions over an in-memory
// pipe and returns their results.
func run[R any](t *testing.T, garbler func(g *Garbler) (R, error),
	evaluator func(e *Evaluator) (R, error)) (R, R) {

	c0, c1 := p2p.Pipe()
	cfg := &env.Config{}

	ch := make(chan result[R])
	go func() {
		var res result[R]
		g, err := NewGarbler(c0, cfg)
		if err == nil {
			res.val, err = garbler(g)
		}
		res.err = err
		if err != nil {
			c0.Close()
		}
		ch <- res
	}()

	var eRes result[R]
	e, err := NewEvaluator(c1, cfg)
	if err == nil {
		eRes.val, err = evaluator(e)
	}
	eRes.err = err
	if err != nil {
		c1.Close()
	}
	gRes := <-ch

	qt.Assert(t, gRes.err, qt.IsNil)
	qt.Assert(t, eRes.err, qt.IsNil)

	return gRes.val, eRes.val
}

// inputs encodes the garbler's value gv and the evaluator's value ev
// as width-bit bundles. The peer's value is ignored.
func inputs[W any](p Party[W], garbler bool, gv, ev int64, width int) (
	a, b BinaryBundle[W], err error) {

	if garbler {
		a, err = p.BinEncode(big.NewInt(gv), width)
		if err != nil {
			return
		}
		b, err = p.BinReceive(width)
	} else {
		a, err = p.BinReceive(width)
		if err != nil {
			return
		}
		b, err = p.BinEncode(big.NewInt(ev), width)
	}
	return
}

func gates[W any](p Party[W], garbler bool, x, y int64) ([]bool, error) {
	a, b, err := inputs(p, garbler, x, y, 1)
	if err != nil {
		return nil, err
	}
	wa := a.Bit(0)
	wb := b.Bit(0)

	and, err := p.And(wa, wb)
	if err != nil {
		return nil, err
	}
	or, err := Or[W](p, wa, wb)
	if err != nil {
		return nil, err
	}
	// And with constants and negations.
	nand, err := p.And(p.Not(wa), p.Constant(true))
	if err != nil {
		return nil, err
	}
	return p.Reveal([]W{
		and,
		p.Xor(wa, wb),
		p.Not(wa),
		or,
		nand,
		p.Constant(false),
		p.Constant(true),
	})
}

func TestGates(t *testing.T) {
	for x := int64(0); x < 2; x++ {
		for y := int64(0); y < 2; y++ {
			g, e := run(t,
				func(g *Garbler) ([]bool, error) {
					return gates[GarblerWire](g, true, x, y)
				},
				func(e *Evaluator) ([]bool, error) {
					return gates[EvaluatorWire](e, false, x, y)
				})

			a := x == 1
			b := y == 1
			expected := []bool{a && b, a != b, !a, a || b, !a, false, true}

			qt.Assert(t, e, qt.DeepEquals, expected,
				qt.Commentf("x=%v, y=%v", x, y))
			qt.Assert(t, g, qt.DeepEquals, expected)
		}
	}
}

func arith[W any](p Party[W], garbler bool, x, y int64) ([]*big.Int, error) {
	const width = 8

	a, b, err := inputs(p, garbler, x, y, width)
	if err != nil {
		return nil, err
	}
	sum, err := BinAdditionNoCarry[W](p, a, b)
	if err != nil {
		return nil, err
	}
	eq, err := BinEqBundles[W](p, a, b)
	if err != nil {
		return nil, err
	}
	zero, err := BinConstantBundle[W](p, big.NewInt(0), width)
	if err != nil {
		return nil, err
	}
	mux, err := BinMultiplex[W](p, eq, zero, sum)
	if err != nil {
		return nil, err
	}
	xor, err := BinXor[W](p, a, b)
	if err != nil {
		return nil, err
	}
	and, err := BinAnd[W](p, a, b)
	if err != nil {
		return nil, err
	}
	or, err := BinOr[W](p, a, b)
	if err != nil {
		return nil, err
	}
	eqBundle := NewBinaryBundle(append([]W{eq},
		zero.Wires()[:width-1]...))

	return RevealBundles[W](p, []BinaryBundle[W]{
		sum, mux, xor, and, or, BinNot[W](p, a), eqBundle,
	})
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		x, y int64
	}{
		{200, 100},
		{17, 17},
		{0, 0},
		{255, 1},
		{3, 250},
	}
	for _, test := range tests {
		g, e := run(t,
			func(g *Garbler) ([]*big.Int, error) {
				return arith[GarblerWire](g, true, test.x, test.y)
			},
			func(e *Evaluator) ([]*big.Int, error) {
				return arith[EvaluatorWire](e, false, test.x, test.y)
			})

		var eq, mux int64
		sum := (test.x + test.y) % 256
		if test.x == test.y {
			eq = 1
			mux = sum
		}
		expected := []int64{
			sum, mux, test.x ^ test.y, test.x & test.y, test.x | test.y,
			^test.x & 0xff, eq,
		}
		c := qt.New(t)
		c.Assert(e, qt.HasLen, len(expected))
		for i, v := range expected {
			c.Assert(e[i].Int64(), qt.Equals, v,
				qt.Commentf("%d+%d: output %d", test.x, test.y, i))
			c.Assert(g[i].Int64(), qt.Equals, v)
		}
	}
}

// addMany adds the garbler's values xs to the evaluator's values ys
// pairwise as 64-bit bundles.
func addMany[W any](p Party[W], garbler bool, xs, ys []uint64) (
	[]*big.Int, error) {

	const width = 64

	values := func(vals []uint64) []*big.Int {
		result := make([]*big.Int, len(vals))
		for i, v := range vals {
			result[i] = new(big.Int).SetUint64(v)
		}
		return result
	}

	var a, b []BinaryBundle[W]
	var err error
	if garbler {
		a, err = p.BinEncodeMany(values(xs), width)
		if err != nil {
			return nil, err
		}
		b, err = p.BinReceiveMany(len(ys), width)
	} else {
		a, err = p.BinReceiveMany(len(xs), width)
		if err != nil {
			return nil, err
		}
		b, err = p.BinEncodeMany(values(ys), width)
	}
	if err != nil {
		return nil, err
	}
	sums := make([]BinaryBundle[W], len(a))
	for i := range a {
		sums[i], err = BinAdditionNoCarry[W](p, a[i], b[i])
		if err != nil {
			return nil, err
		}
	}
	return RevealBundles[W](p, sums)
}

func TestAdditionWraps(t *testing.T) {
	c := qt.New(t)

	rnd := rand.New(rand.NewPCG(7, 64))
	xs := []uint64{math.MaxUint64, math.MaxUint64, 0, 1 << 63}
	ys := []uint64{1, math.MaxUint64, 0, 1 << 63}
	for i := 0; i < 100; i++ {
		xs = append(xs, rnd.Uint64())
		ys = append(ys, rnd.Uint64())
	}

	g, e := run(t,
		func(g *Garbler) ([]*big.Int, error) {
			return addMany[GarblerWire](g, true, xs, ys)
		},
		func(e *Evaluator) ([]*big.Int, error) {
			return addMany[EvaluatorWire](e, false, xs, ys)
		})
	c.Assert(e, qt.HasLen, len(xs))
	c.Assert(g, qt.HasLen, len(xs))
	for i := range xs {
		sum := xs[i] + ys[i]
		c.Assert(e[i].IsUint64(), qt.IsTrue)
		c.Assert(e[i].Uint64(), qt.Equals, sum,
			qt.Commentf("%d+%d", xs[i], ys[i]))
		c.Assert(g[i].Uint64(), qt.Equals, sum)
	}
}

func multiplex[W any](p Party[W], garbler bool, sel int64) (
	[]*big.Int, error) {

	const width = 16

	// The garbler holds both choices, the evaluator the selector.
	var x, y, s BinaryBundle[W]
	var err error
	if garbler {
		bundles, err := p.BinEncodeMany([]*big.Int{
			big.NewInt(1234), big.NewInt(4321),
		}, width)
		if err != nil {
			return nil, err
		}
		x, y = bundles[0], bundles[1]
		s, err = p.BinReceive(1)
		if err != nil {
			return nil, err
		}
	} else {
		bundles, err := p.BinReceiveMany(2, width)
		if err != nil {
			return nil, err
		}
		x, y = bundles[0], bundles[1]
		s, err = p.BinEncode(big.NewInt(sel), 1)
		if err != nil {
			return nil, err
		}
	}
	r, err := BinMultiplex[W](p, s.Bit(0), x, y)
	if err != nil {
		return nil, err
	}
	return OutputBundles[W](p, []BinaryBundle[W]{r})
}

func TestMultiplexOutputs(t *testing.T) {
	for sel, expected := range []int64{1234, 4321} {
		g, e := run(t,
			func(g *Garbler) ([]*big.Int, error) {
				return multiplex[GarblerWire](g, true, int64(sel))
			},
			func(e *Evaluator) ([]*big.Int, error) {
				return multiplex[EvaluatorWire](e, false, int64(sel))
			})
		qt.Assert(t, g, qt.IsNil)
		qt.Assert(t, e, qt.HasLen, 1)
		qt.Assert(t, e[0].Int64(), qt.Equals, expected)
	}
}

func widthMismatch[W any](p Party[W]) (bool, error) {
	a, err := BinConstantBundle[W](p, big.NewInt(1), 4)
	if err != nil {
		return false, err
	}
	b, err := BinConstantBundle[W](p, big.NewInt(1), 5)
	if err != nil {
		return false, err
	}
	_, err = BinEqBundles[W](p, a, b)
	if !errors.Is(err, ErrWidthMismatch) {
		return false, err
	}
	_, err = BinAdditionNoCarry[W](p, a, b)
	if !errors.Is(err, ErrWidthMismatch) {
		return false, err
	}
	_, err = BinMultiplex[W](p, p.Constant(true), a, b)
	if !errors.Is(err, ErrWidthMismatch) {
		return false, err
	}
	_, err = BinConstantBundle[W](p, big.NewInt(16), 4)
	if !errors.Is(err, ErrValueRange) {
		return false, err
	}
	// Constants need no interaction so the peers stay in sync.
	bits, err := p.Reveal([]W{a.Bit(0), b.Bit(1)})
	if err != nil {
		return false, err
	}
	return bits[0] && !bits[1], nil
}

func TestWidthMismatch(t *testing.T) {
	g, e := run(t,
		func(g *Garbler) (bool, error) {
			return widthMismatch[GarblerWire](g)
		},
		func(e *Evaluator) (bool, error) {
			return widthMismatch[EvaluatorWire](e)
		})
	qt.Assert(t, g, qt.IsTrue)
	qt.Assert(t, e, qt.IsTrue)
}

func TestValueBits(t *testing.T) {
	c := qt.New(t)

	bits, err := ValueBits(big.NewInt(6), 4)
	c.Assert(err, qt.IsNil)
	c.Assert(bits, qt.DeepEquals, []bool{false, true, true, false})
	c.Assert(BitsValue(bits).Int64(), qt.Equals, int64(6))

	_, err = ValueBits(big.NewInt(-1), 4)
	c.Assert(err, qt.ErrorIs, ErrValueRange)
}

func TestFileSize(t *testing.T) {
	qt.Assert(t, FileSize(999).String(), qt.Equals, "999B")
	qt.Assert(t, FileSize(2500000).String(), qt.Equals, "2MB")
}
