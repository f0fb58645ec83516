package lzma

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func newTestRangeDecoder(t *testing.T, data []byte) *rangeDecoder {
	t.Helper()
	if len(data) < 5 || data[0] != 0 {
		t.Fatalf("expected a range coded stream starting with 0x00; got %x", data)
	}
	return &rangeDecoder{
		rng:  0xFFFFFFFF,
		code: binary.BigEndian.Uint32(data[1:5]),
		in:   data[5:],
	}
}

func TestRangeCoderRoundTrip(t *testing.T) {
	type op struct {
		direct  bool
		numBits uint
		value   uint32
	}

	ops := []op{
		{value: 1}, {value: 0}, {value: 0}, {value: 1},
		{direct: true, numBits: 26, value: 0x2abcdef},
		{value: 1}, {value: 1}, {value: 1}, {value: 1},
		{direct: true, numBits: 3, value: 5},
		{value: 0},
	}
	for i := 0; i < 2000; i++ {
		ops = append(ops, op{value: uint32(i*7/5) & 1})
	}

	var buf bytes.Buffer
	enc := newRangeEncoder(&buf)
	var encProbs [2]prob
	resetProbs(encProbs[:])
	for i, o := range ops {
		if o.direct {
			enc.encodeDirect(o.value, o.numBits)
			continue
		}
		enc.encodeBit(&encProbs[i&1], o.value)
	}
	if err := enc.finish(); err != nil {
		t.Fatal(err)
	}
	if got := int64(buf.Len()); got != enc.written {
		t.Fatalf("expected written counter to be %d; got %d", got, enc.written)
	}

	dec := newTestRangeDecoder(t, buf.Bytes())
	var decProbs [2]prob
	resetProbs(decProbs[:])
	for i, o := range ops {
		var got uint32
		if o.direct {
			got = dec.direct(o.numBits)
		} else {
			got = dec.bit(&decProbs[i&1])
		}
		if got != o.value {
			t.Fatalf("[op %d] expected %d; got %d", i, o.value, got)
		}
	}
	if dec.short {
		t.Fatal("expected the decoder to stay within the encoded bytes")
	}
	if dec.code != 0 {
		t.Fatalf("expected the final code to be 0; got %x", dec.code)
	}
}

func TestRangeDecoderRollback(t *testing.T) {
	var buf bytes.Buffer
	enc := newRangeEncoder(&buf)
	probs := make([]prob, 0x100)
	resetProbs(probs)
	for _, sym := range []uint32{0x41, 0x42, 0x43, 0x41, 0x42, 0x43} {
		enc.encodeTree(probs, 8, sym)
	}
	enc.finish()

	data := buf.Bytes()
	dec := newTestRangeDecoder(t, data)
	resetProbs(probs)
	full := dec.in

	dec.in = full[:0]
	dec.mark()
	dec.tree(probs, 8)
	dec.tree(probs, 8)
	if !dec.short {
		t.Fatal("expected decoding without input to run short")
	}
	dec.rollback()
	for i, p := range probs {
		if p != probInit {
			t.Fatalf("expected probability %d to be restored; got %d", i, p)
		}
	}

	dec.in = full
	dec.mark()
	var got []byte
	for i := 0; i < 6; i++ {
		got = append(got, byte(dec.tree(probs, 8)))
	}
	if exp := []byte("ABCABC"); !bytes.Equal(got, exp) {
		t.Fatalf("expected %q after rollback; got %q", exp, got)
	}
}

func TestPrices(t *testing.T) {
	specs := []struct {
		p   prob
		bit uint32
		exp uint32
	}{
		{probInit, 0, 1 << bitPriceShift},
		{probInit, 1, 1 << bitPriceShift},
	}

	for specIndex, spec := range specs {
		if got := bitPrice(spec.p, spec.bit); got != spec.exp {
			t.Errorf("[spec %d] expected price %d; got %d", specIndex, spec.exp, got)
		}
	}

	if bitPrice(1<<probBits-64, 0) >= bitPrice(1<<probBits-64, 1) {
		t.Error("expected a likely bit to be cheaper than an unlikely one")
	}
}
