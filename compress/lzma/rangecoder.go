package lzma

import (
	"amlkit/kernel"
	"hash/crc32"
	"io"
	"math"
)

// prob is an 11-bit probability that the next bit is 0.
type prob uint16

const (
	probBits  = 11
	probInit  = 1 << (probBits - 1)
	moveBits  = 5
	topValue  = 1 << 24
	encBufLen = 1 << 12
)

// rangeEncoder is the binary arithmetic coder at the bottom of the
// encoder. Output is buffered; the first write error is latched and
// reported by every later flush.
type rangeEncoder struct {
	w         io.Writer
	buf       []byte
	low       uint64
	rng       uint32
	cache     byte
	cacheSize int64

	written int64
	crc     uint32
	err     *kernel.Error
}

func newRangeEncoder(w io.Writer) *rangeEncoder {
	return &rangeEncoder{
		w:         w,
		buf:       make([]byte, 0, encBufLen),
		rng:       0xFFFFFFFF,
		cacheSize: 1,
	}
}

func (rc *rangeEncoder) encodeBit(p *prob, bit uint32) {
	bound := (rc.rng >> probBits) * uint32(*p)
	if bit == 0 {
		rc.rng = bound
		*p += (1<<probBits - *p) >> moveBits
	} else {
		rc.low += uint64(bound)
		rc.rng -= bound
		*p -= *p >> moveBits
	}
	for rc.rng < topValue {
		rc.rng <<= 8
		rc.shiftLow()
	}
}

// encodeDirect writes the numBits low bits of value with probability 1/2
// each, most significant first.
func (rc *rangeEncoder) encodeDirect(value uint32, numBits uint) {
	for ; numBits > 0; numBits-- {
		rc.rng >>= 1
		if (value>>(numBits-1))&1 != 0 {
			rc.low += uint64(rc.rng)
		}
		if rc.rng < topValue {
			rc.rng <<= 8
			rc.shiftLow()
		}
	}
}

func (rc *rangeEncoder) shiftLow() {
	if uint32(rc.low) < 0xFF000000 || rc.low>>32 != 0 {
		carry := byte(rc.low >> 32)
		temp := rc.cache
		for {
			rc.writeByte(temp + carry)
			temp = 0xFF
			rc.cacheSize--
			if rc.cacheSize == 0 {
				break
			}
		}
		rc.cache = byte(rc.low >> 24)
	}
	rc.cacheSize++
	rc.low = (rc.low & 0x00FFFFFF) << 8
}

func (rc *rangeEncoder) writeByte(b byte) {
	rc.buf = append(rc.buf, b)
	if len(rc.buf) == cap(rc.buf) {
		rc.flushBuffer()
	}
}

func (rc *rangeEncoder) flushBuffer() {
	if len(rc.buf) == 0 {
		return
	}
	if rc.err == nil {
		n, err := rc.w.Write(rc.buf)
		rc.crc = crc32.Update(rc.crc, crc32.IEEETable, rc.buf[:n])
		rc.written += int64(n)
		if err == nil && n < len(rc.buf) {
			err = io.ErrShortWrite
		}
		if err != nil {
			rc.err = errWrite.WithDetail(err.Error())
		}
	}
	rc.buf = rc.buf[:0]
}

// finish pushes the remaining bytes of low through the cache and flushes
// the output buffer.
func (rc *rangeEncoder) finish() *kernel.Error {
	for i := 0; i < 5; i++ {
		rc.shiftLow()
	}
	rc.flushBuffer()
	return rc.err
}

func (rc *rangeEncoder) encodeTree(probs []prob, numBits uint, symbol uint32) {
	m := uint32(1)
	for i := numBits; i > 0; i-- {
		bit := (symbol >> (i - 1)) & 1
		rc.encodeBit(&probs[m], bit)
		m = m<<1 | bit
	}
}

func (rc *rangeEncoder) encodeReverseTree(probs []prob, numBits uint, symbol uint32) {
	m := uint32(1)
	for i := uint(0); i < numBits; i++ {
		bit := symbol & 1
		symbol >>= 1
		rc.encodeBit(&probs[m], bit)
		m = m<<1 | bit
	}
}

// encodeMatchedLiteral codes symbol while the bits of matchByte predict
// it; after the first mismatching bit the plain literal tree is used.
func (rc *rangeEncoder) encodeMatchedLiteral(probs []prob, symbol, matchByte uint32) {
	offs, m := uint32(0x100), uint32(1)
	for i := 7; i >= 0; i-- {
		matchByte <<= 1
		matchBit := matchByte & offs
		bit := (symbol >> uint(i)) & 1
		rc.encodeBit(&probs[offs+matchBit+m], bit)
		m = m<<1 | bit
		if bit == 0 {
			offs &^= matchBit
		} else {
			offs &= matchBit
		}
	}
}

func (rc *rangeEncoder) encodeLen(lp *lenProbs, length, posState uint32) {
	l := length - matchLenMin
	if l < lenLowSymbols {
		rc.encodeBit(&lp.choice, 0)
		rc.encodeTree(lp.low[posState][:], lenLowBits, l)
		return
	}
	rc.encodeBit(&lp.choice, 1)
	l -= lenLowSymbols
	if l < lenMidSymbols {
		rc.encodeBit(&lp.choice2, 0)
		rc.encodeTree(lp.mid[posState][:], lenMidBits, l)
		return
	}
	rc.encodeBit(&lp.choice2, 1)
	rc.encodeTree(lp.high[:], lenHighBits, l-lenMidSymbols)
}

type probUndo struct {
	p   *prob
	old prob
}

// rangeDecoder mirrors rangeEncoder. Reading past the end of in yields
// zero bytes and sets short; every probability update since the last mark
// is logged so a packet cut short by the end of the input can be rolled
// back and decoded again once more input arrives.
type rangeDecoder struct {
	rng, code uint32
	in        []byte
	pos       int
	short     bool

	undo      []probUndo
	savedRng  uint32
	savedCode uint32
}

func (rd *rangeDecoder) next() byte {
	if rd.pos < len(rd.in) {
		b := rd.in[rd.pos]
		rd.pos++
		return b
	}
	rd.short = true
	return 0
}

func (rd *rangeDecoder) normalize() {
	if rd.rng < topValue {
		rd.rng <<= 8
		rd.code = rd.code<<8 | uint32(rd.next())
	}
}

// mark starts a new packet.
func (rd *rangeDecoder) mark() {
	rd.undo = rd.undo[:0]
	rd.savedRng, rd.savedCode = rd.rng, rd.code
	rd.pos = 0
	rd.short = false
}

// rollback restores the coder and the probabilities to the last mark.
func (rd *rangeDecoder) rollback() {
	for i := len(rd.undo) - 1; i >= 0; i-- {
		*rd.undo[i].p = rd.undo[i].old
	}
	rd.undo = rd.undo[:0]
	rd.rng, rd.code = rd.savedRng, rd.savedCode
	rd.pos = 0
	rd.short = false
}

func (rd *rangeDecoder) bit(p *prob) uint32 {
	rd.undo = append(rd.undo, probUndo{p, *p})

	var bit uint32
	bound := (rd.rng >> probBits) * uint32(*p)
	if rd.code < bound {
		rd.rng = bound
		*p += (1<<probBits - *p) >> moveBits
	} else {
		rd.code -= bound
		rd.rng -= bound
		*p -= *p >> moveBits
		bit = 1
	}
	rd.normalize()
	return bit
}

func (rd *rangeDecoder) direct(numBits uint) uint32 {
	var res uint32
	for ; numBits > 0; numBits-- {
		rd.rng >>= 1
		var bit uint32
		if rd.code >= rd.rng {
			rd.code -= rd.rng
			bit = 1
		}
		res = res<<1 | bit
		rd.normalize()
	}
	return res
}

func (rd *rangeDecoder) tree(probs []prob, numBits uint) uint32 {
	m := uint32(1)
	for i := uint(0); i < numBits; i++ {
		m = m<<1 | rd.bit(&probs[m])
	}
	return m - 1<<numBits
}

func (rd *rangeDecoder) reverseTree(probs []prob, numBits uint) uint32 {
	m, symbol := uint32(1), uint32(0)
	for i := uint(0); i < numBits; i++ {
		bit := rd.bit(&probs[m])
		m = m<<1 | bit
		symbol |= bit << i
	}
	return symbol
}

func (rd *rangeDecoder) matchedLiteral(probs []prob, matchByte uint32) uint32 {
	offs, m := uint32(0x100), uint32(1)
	for m < 0x100 {
		matchByte <<= 1
		matchBit := matchByte & offs
		bit := rd.bit(&probs[offs+matchBit+m])
		m = m<<1 | bit
		if bit == 0 {
			offs &^= matchBit
		} else {
			offs &= matchBit
		}
	}
	return m - 0x100
}

func (rd *rangeDecoder) length(lp *lenProbs, posState uint32) uint32 {
	if rd.bit(&lp.choice) == 0 {
		return matchLenMin + rd.tree(lp.low[posState][:], lenLowBits)
	}
	if rd.bit(&lp.choice2) == 0 {
		return matchLenMin + lenLowSymbols + rd.tree(lp.mid[posState][:], lenMidBits)
	}
	return matchLenMin + lenLowSymbols + lenMidSymbols + rd.tree(lp.high[:], lenHighBits)
}

// Prices are -log2 of a probability scaled by 1<<bitPriceShift.
const (
	bitPriceShift     = 4
	moveReducingBits  = 4
	infinityPrice     = 1 << 30
	probPriceTableLen = 1 << (probBits - moveReducingBits)
)

var probPrices = makeProbPrices()

func makeProbPrices() (t [probPriceTableLen]uint32) {
	for i := range t {
		p := (float64(i)*(1<<moveReducingBits) + (1 << (moveReducingBits - 1))) / (1 << probBits)
		t[i] = uint32(math.Round(-math.Log2(p) * (1 << bitPriceShift)))
	}
	return t
}

func bitPrice(p prob, bit uint32) uint32 {
	if bit == 0 {
		return probPrices[p>>moveReducingBits]
	}
	return probPrices[(1<<probBits-p)>>moveReducingBits]
}

func treePrice(probs []prob, numBits uint, symbol uint32) uint32 {
	var price uint32
	m := uint32(1)
	for i := numBits; i > 0; i-- {
		bit := (symbol >> (i - 1)) & 1
		price += bitPrice(probs[m], bit)
		m = m<<1 | bit
	}
	return price
}

func reverseTreePrice(probs []prob, numBits uint, symbol uint32) uint32 {
	var price uint32
	m := uint32(1)
	for i := uint(0); i < numBits; i++ {
		bit := symbol & 1
		symbol >>= 1
		price += bitPrice(probs[m], bit)
		m = m<<1 | bit
	}
	return price
}

func matchedLiteralPrice(probs []prob, symbol, matchByte uint32) uint32 {
	var price uint32
	offs, m := uint32(0x100), uint32(1)
	for i := 7; i >= 0; i-- {
		matchByte <<= 1
		matchBit := matchByte & offs
		bit := (symbol >> uint(i)) & 1
		price += bitPrice(probs[offs+matchBit+m], bit)
		m = m<<1 | bit
		if bit == 0 {
			offs &^= matchBit
		} else {
			offs &= matchBit
		}
	}
	return price
}
