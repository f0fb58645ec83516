package lzma

import (
	"amlkit/kernel"
	"io"
)

const (
	// numOpts is the number of positions the optimizer plans ahead.
	numOpts = 1 << 12

	// encodeBlockSize is the amount of input a non-flushing Encode call
	// consumes before returning.
	encodeBlockSize = 1 << 17
)

// decision is one packet chosen by the optimizer. back is literalBack for
// a literal, a rep index below numReps for SHORTREP (len 1) or LONGREP,
// or numReps plus the zero-based distance of a MATCH.
type decision struct {
	len, back uint32
}

const literalBack = ^uint32(0)

// lenPriceTable caches the price of every length per position state. A
// row is recomputed after it has been used as many times as it has
// entries.
type lenPriceTable struct {
	prices   [numPosStatesMax][matchLenMax - matchLenMin + 1]uint32
	counters [numPosStatesMax]int
}

func (t *lenPriceTable) update(lp *lenProbs, posState uint32) {
	a0 := bitPrice(lp.choice, 0)
	a1 := bitPrice(lp.choice, 1)
	b0 := a1 + bitPrice(lp.choice2, 0)
	b1 := a1 + bitPrice(lp.choice2, 1)

	row := &t.prices[posState]
	for i := range row {
		l := uint32(i)
		switch {
		case l < lenLowSymbols:
			row[i] = a0 + treePrice(lp.low[posState][:], lenLowBits, l)
		case l < lenLowSymbols+lenMidSymbols:
			row[i] = b0 + treePrice(lp.mid[posState][:], lenMidBits, l-lenLowSymbols)
		default:
			row[i] = b1 + treePrice(lp.high[:], lenHighBits, l-lenLowSymbols-lenMidSymbols)
		}
	}
	t.counters[posState] = len(row)
}

func (t *lenPriceTable) price(length, posState uint32) uint32 {
	return t.prices[posState][length-matchLenMin]
}

func (t *lenPriceTable) encode(rc *rangeEncoder, lp *lenProbs, length, posState uint32) {
	rc.encodeLen(lp, length, posState)
	if t.counters[posState]--; t.counters[posState] <= 0 {
		t.update(lp, posState)
	}
}

// Encoder compresses a byte stream into a raw LZMA packet stream. The
// input is either a caller-supplied byte slice, which is parsed in place,
// or an io.Reader.
type Encoder struct {
	opts      Options
	dictSize  uint32
	fastBytes uint32
	pbMask    uint32

	m  *model
	rc *rangeEncoder
	mf *matchFinder

	state  state
	reps   [numReps]uint32
	nowPos int64

	matches    []match
	pending    []match
	hasPending bool
	opt        []optimal
	decisions  []decision

	lenPrices    lenPriceTable
	repLenPrices lenPriceTable
	slotPrices   [numLenToPosStates][1 << numPosSlotBits]uint32
	distPrices   [numLenToPosStates][numFullDistances]uint32
	alignPrices  [alignTableSize]uint32

	matchPriceCount int
	alignPriceCount int

	finished bool
	err      *kernel.Error
}

// NewEncoder returns an encoder that reads its input from r and writes the
// packet stream to w. A Read returning no bytes and no error is treated as
// "no input available yet".
func NewEncoder(w io.Writer, r io.Reader, opts Options) (*Encoder, *kernel.Error) {
	opts, err := opts.normalize()
	if err != nil {
		return nil, err
	}

	e := newEncoder(w, opts, opts.DictSize)
	e.mf.setReader(r, int(opts.DictSize)+numOpts+1)
	return e, nil
}

// NewEncoderBytes returns an encoder for data that writes the packet
// stream to w. The dictionary is reduced to the size of data when smaller.
func NewEncoderBytes(w io.Writer, data []byte, opts Options) (*Encoder, *kernel.Error) {
	opts, err := opts.normalize()
	if err != nil {
		return nil, err
	}

	e := newEncoder(w, opts, reducedDictSize(opts.DictSize, len(data)))
	e.mf.setBytes(data)
	return e, nil
}

// reducedDictSize returns the smallest size of the form 2^n or 3*2^n that
// still covers size bytes, if that is below dictSize.
func reducedDictSize(dictSize uint32, size int) uint32 {
	if uint64(size) >= uint64(dictSize) {
		return dictSize
	}
	for i := uint(11); i < 30; i++ {
		if size <= 2<<i {
			return minUint32(dictSize, 2<<i)
		}
		if size <= 3<<i {
			return minUint32(dictSize, 3<<i)
		}
	}
	return dictSize
}

func newEncoder(w io.Writer, opts Options, dictSize uint32) *Encoder {
	e := &Encoder{
		opts:      opts,
		dictSize:  dictSize,
		fastBytes: uint32(opts.FastBytes),
		pbMask:    1<<uint(opts.Props.PB) - 1,
		m:         newModel(*opts.Props),
		rc:        newRangeEncoder(w),
		mf:        newMatchFinder(opts.MatchFinder, dictSize, opts.FastBytes, opts.CutValue),
		opt:       make([]optimal, numOpts),
	}

	for ps := uint32(0); ps <= e.pbMask; ps++ {
		e.lenPrices.update(&e.m.matchLen, ps)
		e.repLenPrices.update(&e.m.repLen, ps)
	}
	e.updateDistPrices()
	e.updateAlignPrices()
	return e
}

// Props returns the properties of the stream.
func (e *Encoder) Props() Props { return *e.opts.Props }

// DictSize returns the dictionary size a decoder needs for the stream.
func (e *Encoder) DictSize() uint32 { return e.dictSize }

// InSize returns the number of input bytes read so far.
func (e *Encoder) InSize() int64 { return e.mf.total }

// InCRC returns the CRC-32 of the input bytes read so far.
func (e *Encoder) InCRC() uint32 { return e.mf.crc }

// OutSize returns the number of packet stream bytes written so far.
func (e *Encoder) OutSize() int64 { return e.rc.written }

// OutCRC returns the CRC-32 of the packet stream bytes written so far.
func (e *Encoder) OutCRC() uint32 { return e.rc.crc }

// Encode compresses input. Without flush it returns after one block or
// when the source cannot yet provide a full match of lookahead; with flush
// it compresses everything the source provides. Errors are latched.
func (e *Encoder) Encode(flush bool) *kernel.Error {
	if e.err != nil {
		return e.err
	}
	if e.finished {
		return errFinished
	}

	start := e.nowPos
	for {
		e.mf.fill()
		if e.mf.readErr != nil {
			e.err = e.mf.readErr
			return e.err
		}
		if e.remaining() == 0 || (!flush && e.mf.needsInput()) {
			break
		}

		e.encodeStep()
		if e.rc.err != nil {
			e.err = e.rc.err
			return e.err
		}
		if !flush && e.nowPos-start >= encodeBlockSize {
			break
		}
	}

	if e.opts.Progress != nil && !e.opts.Progress(e.nowPos, e.rc.written+int64(len(e.rc.buf))) {
		e.err = errProgress
	}
	return e.err
}

// Finish compresses the remaining input, writes the end marker if one was
// requested and flushes the range coder. The encoder cannot be used
// afterwards.
func (e *Encoder) Finish() *kernel.Error {
	if e.finished {
		return e.err
	}
	if err := e.Encode(true); err != nil {
		return err
	}

	if e.opts.EndMarker {
		e.encodeMatch(endMarkerDist, matchLenMin, uint32(e.nowPos)&e.pbMask)
	}
	e.finished = true
	if err := e.rc.finish(); err != nil {
		e.err = err
	}
	return e.err
}

// remaining returns the number of input bytes not yet encoded.
func (e *Encoder) remaining() int64 {
	return int64(e.mf.avail()) + e.mf.offset - e.nowPos
}

func (e *Encoder) encodeStep() {
	if e.nowPos == 0 {
		e.mf.skip(1)
		e.encodeLiteral()
		e.nowPos++
		return
	}

	for _, d := range e.optimum() {
		e.encode(d)
	}
}

func (e *Encoder) byteAt(p int64) byte {
	if p < 0 {
		return 0
	}
	return e.mf.at(int(p - e.mf.offset))
}

// availAt returns the number of input bytes starting at p, capped at the
// longest match.
func (e *Encoder) availAt(p int64) uint32 {
	n := int64(e.mf.avail()) + e.mf.offset - p
	if n > matchLenMax {
		n = matchLenMax
	}
	return uint32(n)
}

// repLen returns the length of the match at p using the zero-based
// distance rep.
func (e *Encoder) repLen(p int64, rep, limit uint32) uint32 {
	return e.mf.extend(int(p-e.mf.offset), rep, 0, limit)
}

func (e *Encoder) encode(d decision) {
	posState := uint32(e.nowPos) & e.pbMask
	switch {
	case d.back == literalBack:
		e.encodeLiteral()
	case d.back < numReps:
		e.encodeRep(d.back, d.len, posState)
	default:
		e.encodeMatch(d.back-numReps, d.len, posState)
	}
	e.nowPos += int64(d.len)
}

func (e *Encoder) encodeLiteral() {
	posState := uint32(e.nowPos) & e.pbMask
	e.rc.encodeBit(&e.m.isMatch[e.state.index(posState)], 0)

	cur := uint32(e.byteAt(e.nowPos))
	probs := e.m.literalProbs(uint64(e.nowPos), e.byteAt(e.nowPos-1))
	if e.state.isLiteral() {
		e.rc.encodeTree(probs, 8, cur)
	} else {
		matchByte := uint32(e.byteAt(e.nowPos - int64(e.reps[0]) - 1))
		e.rc.encodeMatchedLiteral(probs, cur, matchByte)
	}
	e.state = e.state.afterLiteral()
}

func (e *Encoder) encodeRep(rep, length, posState uint32) {
	st := e.state
	e.rc.encodeBit(&e.m.isMatch[st.index(posState)], 1)
	e.rc.encodeBit(&e.m.isRep[st], 1)

	if rep == 0 {
		e.rc.encodeBit(&e.m.isRepG0[st], 0)
		long := uint32(1)
		if length == 1 {
			long = 0
		}
		e.rc.encodeBit(&e.m.isRep0Long[st.index(posState)], long)
	} else {
		dist := e.reps[rep]
		e.rc.encodeBit(&e.m.isRepG0[st], 1)
		if rep == 1 {
			e.rc.encodeBit(&e.m.isRepG1[st], 0)
		} else {
			e.rc.encodeBit(&e.m.isRepG1[st], 1)
			e.rc.encodeBit(&e.m.isRepG2[st], rep-2)
			if rep == 3 {
				e.reps[3] = e.reps[2]
			}
			e.reps[2] = e.reps[1]
		}
		e.reps[1] = e.reps[0]
		e.reps[0] = dist
	}

	if length == 1 {
		e.state = st.afterShortRep()
		return
	}
	e.repLenPrices.encode(e.rc, &e.m.repLen, length, posState)
	e.state = st.afterRep()
}

func (e *Encoder) encodeMatch(dist, length, posState uint32) {
	e.rc.encodeBit(&e.m.isMatch[e.state.index(posState)], 1)
	e.rc.encodeBit(&e.m.isRep[e.state], 0)
	e.state = e.state.afterMatch()

	e.lenPrices.encode(e.rc, &e.m.matchLen, length, posState)

	lenState := lenToPosState(length)
	slot := posSlot(dist)
	e.rc.encodeTree(e.m.posSlot[lenState][:], numPosSlotBits, slot)
	if slot >= startPosModelIndex {
		base, footerBits := slotBase(slot)
		reduced := dist - base
		if slot < endPosModelIndex {
			e.rc.encodeReverseTree(e.m.posSpecial[base-slot:], footerBits, reduced)
		} else {
			e.rc.encodeDirect(reduced>>numAlignBits, footerBits-numAlignBits)
			e.rc.encodeReverseTree(e.m.align[:], numAlignBits, reduced&(alignTableSize-1))
			e.alignPriceCount++
		}
	}

	e.reps[3], e.reps[2], e.reps[1] = e.reps[2], e.reps[1], e.reps[0]
	e.reps[0] = dist
	e.matchPriceCount++
}

func (e *Encoder) updateDistPrices() {
	for ls := range e.slotPrices {
		slots := &e.slotPrices[ls]
		for slot := range slots {
			price := treePrice(e.m.posSlot[ls][:], numPosSlotBits, uint32(slot))
			if slot >= endPosModelIndex {
				price += uint32((slot>>1)-1-numAlignBits) << bitPriceShift
			}
			slots[slot] = price
		}

		dists := &e.distPrices[ls]
		for dist := uint32(0); dist < numFullDistances; dist++ {
			slot := posSlot(dist)
			dists[dist] = slots[slot]
			if slot >= startPosModelIndex {
				base, footerBits := slotBase(slot)
				dists[dist] += reverseTreePrice(e.m.posSpecial[base-slot:], footerBits, dist-base)
			}
		}
	}
	e.matchPriceCount = 0
}

func (e *Encoder) updateAlignPrices() {
	for i := range e.alignPrices {
		e.alignPrices[i] = reverseTreePrice(e.m.align[:], numAlignBits, uint32(i))
	}
	e.alignPriceCount = 0
}

func (e *Encoder) distPrice(dist, lenState uint32) uint32 {
	if dist < numFullDistances {
		return e.distPrices[lenState][dist]
	}
	return e.slotPrices[lenState][posSlot(dist)] + e.alignPrices[dist&(alignTableSize-1)]
}

func (e *Encoder) literalPrice(p int64, st state, cur, matchByte byte) uint32 {
	probs := e.m.literalProbs(uint64(p), e.byteAt(p-1))
	if st.isLiteral() {
		return treePrice(probs, 8, uint32(cur))
	}
	return matchedLiteralPrice(probs, uint32(cur), uint32(matchByte))
}

func (e *Encoder) shortRepPrice(st state, posState uint32) uint32 {
	return bitPrice(e.m.isRepG0[st], 0) + bitPrice(e.m.isRep0Long[st.index(posState)], 0)
}

// repIndexPrice returns the price of selecting rep as a LONGREP.
func (e *Encoder) repIndexPrice(rep uint32, st state, posState uint32) uint32 {
	if rep == 0 {
		return bitPrice(e.m.isRepG0[st], 0) + bitPrice(e.m.isRep0Long[st.index(posState)], 1)
	}
	price := bitPrice(e.m.isRepG0[st], 1)
	if rep == 1 {
		return price + bitPrice(e.m.isRepG1[st], 0)
	}
	return price + bitPrice(e.m.isRepG1[st], 1) + bitPrice(e.m.isRepG2[st], rep-2)
}

func minUint32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
