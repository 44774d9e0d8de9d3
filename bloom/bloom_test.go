//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package bloom

import (
	"crypto/rand"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestMembership(t *testing.T) {
	f := New(1000, 3)

	var values [][]byte
	for i := 0; i < 128; i++ {
		v := make([]byte, 16)
		_, err := rand.Read(v)
		qt.Assert(t, err, qt.IsNil)

		f.Insert(v)
		qt.Assert(t, f.Contains(v), qt.IsTrue)
		values = append(values, v)
	}
	for _, v := range values {
		qt.Assert(t, f.Contains(v), qt.IsTrue)
	}

	decoded, err := FromBytes(f.Bytes(), 3)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, decoded.Equal(f), qt.IsTrue)
	qt.Assert(t, decoded.Bins(), qt.DeepEquals, f.Bins())
}

func TestSizing(t *testing.T) {
	c := qt.New(t)

	c.Assert(NumHashes(0.5), qt.Equals, 1)
	c.Assert(NumHashes(1.0/1024), qt.Equals, 10)
	c.Assert(Expansion(0.5), qt.Equals, 1.44)

	f := NewWithFalsePositiveProb(1.0/1024, 100)
	c.Assert(f.Len(), qt.Equals, 1440)
	c.Assert(f.NumHashes(), qt.Equals, 10)
}

func TestFalsePositiveRate(t *testing.T) {
	const n = 1000
	const p = 0.01

	f := NewWithFalsePositiveProb(p, n)
	for i := 0; i < n; i++ {
		f.Insert([]byte{byte(i), byte(i >> 8), 0})
	}
	var fp int
	for i := 0; i < 10000; i++ {
		if f.Contains([]byte{byte(i), byte(i >> 8), 1}) {
			fp++
		}
	}
	// Allow generous slack over the expected 100.
	qt.Assert(t, fp < 300, qt.IsTrue, qt.Commentf("false positives: %d", fp))
}

func TestEncoding(t *testing.T) {
	c := qt.New(t)

	f := New(13, 2)
	f.Insert([]byte("hello"))
	data := f.Bytes()
	c.Assert(data, qt.HasLen, 8+2)
	c.Assert(data[0], qt.Equals, byte(13))

	_, err := FromBytes(data[:5], 2)
	c.Assert(err, qt.ErrorIs, ErrEncoding)

	_, err = FromBytes(data[:9], 2)
	c.Assert(err, qt.ErrorIs, ErrEncoding)

	_, err = FromBytes(append(data, 0), 2)
	c.Assert(err, qt.ErrorIs, ErrEncoding)

	empty, err := FromBytes(New(0, 2).Bytes(), 2)
	c.Assert(err, qt.IsNil)
	c.Assert(empty.Len(), qt.Equals, 0)
	c.Assert(empty.Contains([]byte("x")), qt.IsFalse)
}
