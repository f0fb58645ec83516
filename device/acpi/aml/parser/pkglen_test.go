package parser

import (
	"bytes"
	"testing"
)

func TestDecodePkgLength(t *testing.T) {
	specs := []struct {
		payload []byte
		exp     uint32
		expSize int
	}{
		{[]byte{0x3f}, 63, 1},
		// lead byte bits (6:7) indicate 1 extra byte for the len. The
		// parsed length will use bits 0:3 from the lead byte plus
		// the full 8 bits of the following byte.
		{[]byte{1<<6 | 7, 255}, 4087, 2},
		// lead byte bits (6:7) indicate 2 extra bytes for the len.
		{[]byte{2<<6 | 8, 255, 128}, 528376, 3},
		// lead byte bits (6:7) indicate 3 extra bytes for the len.
		{[]byte{3<<6 | 6, 255, 128, 42}, 44568566, 4},
	}

	for specIndex, spec := range specs {
		got, size, ok := DecodePkgLength(spec.payload)
		if !ok {
			t.Errorf("[spec %d] DecodePkgLength returned false", specIndex)
			continue
		}

		if got != spec.exp || size != spec.expSize {
			t.Errorf("[spec %d] expected DecodePkgLength to return (%d, %d); got (%d, %d)", specIndex, spec.exp, spec.expSize, got, size)
		}
	}

	t.Run("errors", func(t *testing.T) {
		for specIndex, payload := range [][]byte{
			{},
			{1 << 6},
			{3<<6 | 0x10, 0, 0, 0}, // bits 4-5 must be clear
			{3 << 6, 1, 2},
		} {
			if _, _, ok := DecodePkgLength(payload); ok {
				t.Errorf("[spec %d] expected DecodePkgLength to fail", specIndex)
			}
		}
	})
}

func TestPkgLengthRoundTrip(t *testing.T) {
	check := func(length uint32) {
		enc := EncodePkgLength(length)
		got, size, ok := DecodePkgLength(enc)
		if !ok || got != length || size != len(enc) {
			t.Fatalf("round-trip of %d via % x returned (%d, %d, %t)", length, enc, got, size, ok)
		}
	}

	for _, boundary := range []uint32{0, 1, 1<<6 - 1, 1 << 6, 1<<12 - 1, 1 << 12, 1<<20 - 1, 1 << 20, MaxPkgLength} {
		check(boundary)
	}

	for length := uint32(0); length < MaxPkgLength; length += 4099 {
		check(length)
	}
}

func TestEncodePkgLengthFor(t *testing.T) {
	for _, contentLen := range []int{0, 61, 62, 63, 64, 4093, 4094, 4095, 1<<20 - 4} {
		enc := EncodePkgLengthFor(contentLen)
		got, size, ok := DecodePkgLength(enc)
		if !ok {
			t.Fatalf("[content %d] invalid encoding % x", contentLen, enc)
		}
		if int(got) != contentLen+size {
			t.Errorf("[content %d] expected encoded length %d; got %d", contentLen, contentLen+size, got)
		}
	}

	if exp, got := []byte{0x41, 0x04}, EncodePkgLengthFor(63); !bytes.Equal(got, exp) {
		t.Errorf("expected % x; got % x", exp, got)
	}
}
