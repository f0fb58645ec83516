package lzma

import (
	"amlkit/kernel"
	"encoding/binary"
)

// Status describes where a decoder stopped.
type Status uint8

const (
	// StatusNotSpecified accompanies errors.
	StatusNotSpecified Status = iota

	// StatusFinishedWithMark means the end marker was decoded.
	StatusFinishedWithMark

	// StatusNotFinished means the output buffer is full and the stream
	// may continue.
	StatusNotFinished

	// StatusNeedsMoreInput means all input was consumed in the middle of
	// the stream.
	StatusNeedsMoreInput

	// StatusMaybeFinishedWithoutMark means decoding stopped at a packet
	// boundary where a stream without an end marker may legitimately end.
	StatusMaybeFinishedWithoutMark
)

var statusNames = [...]string{
	StatusNotSpecified:             "not specified",
	StatusFinishedWithMark:         "finished with mark",
	StatusNotFinished:              "not finished",
	StatusNeedsMoreInput:           "needs more input",
	StatusMaybeFinishedWithoutMark: "maybe finished without mark",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// FinishMode tells the decoder whether a full output buffer must coincide
// with the end of the stream.
type FinishMode uint8

const (
	// FinishAny stops as soon as the output buffer is full.
	FinishAny FinishMode = iota

	// FinishEnd requires the stream to end when the output buffer is full;
	// an end marker right after the last byte is consumed.
	FinishEnd
)

type packetKind uint8

const (
	packetLiteral packetKind = iota
	packetMatch
	packetShortRep
	packetRep
	packetEnd
)

var packetKindNames = [...]string{
	packetLiteral:  "LIT",
	packetMatch:    "MATCH",
	packetShortRep: "SHORTREP",
	packetRep:      "LONGREP",
	packetEnd:      "END",
}

func (k packetKind) String() string { return packetKindNames[k] }

// maxPacketInput is the largest number of input bytes a single packet can
// consume.
const maxPacketInput = 20

// window is the circular dictionary of recently decoded bytes.
type window struct {
	buf   []byte
	pos   int
	total uint64
}

func (w *window) put(b byte) {
	w.buf[w.pos] = b
	if w.pos++; w.pos == len(w.buf) {
		w.pos = 0
	}
	w.total++
}

// back returns the byte at the zero-based distance dist.
func (w *window) back(dist uint32) byte {
	i := w.pos - int(dist) - 1
	if i < 0 {
		i += len(w.buf)
	}
	return w.buf[i]
}

func (w *window) last() byte {
	if w.total == 0 {
		return 0
	}
	return w.back(0)
}

// Decoder decompresses a raw LZMA packet stream. Input and output may be
// supplied in arbitrarily small pieces; a packet that does not fit the
// remaining input is retried once more input arrives.
type Decoder struct {
	props    Props
	dictSize uint32

	m     *model
	rc    rangeDecoder
	win   window
	state state
	reps  [numReps]uint32

	// remainLen is the number of bytes of the current match still to be
	// copied.
	remainLen uint32

	tmp     [maxPacketInput]byte
	tmpLen  int
	started bool
	marked  bool
	err     *kernel.Error

	lit   byte
	trace func(kind packetKind, length, dist uint32)
}

// NewDecoder returns a decoder for a stream with the given properties and
// dictionary size.
func NewDecoder(props Props, dictSize uint32) (*Decoder, *kernel.Error) {
	if err := props.Validate(); err != nil {
		return nil, err
	}
	if dictSize < DictSizeMin {
		dictSize = DictSizeMin
	}
	return newDecoder(props, dictSize, int(dictSize)), nil
}

func newDecoder(props Props, dictSize uint32, windowSize int) *Decoder {
	if windowSize < 1 {
		windowSize = 1
	}
	d := &Decoder{
		props:    props,
		dictSize: dictSize,
		m:        newModel(props),
		win:      window{buf: make([]byte, windowSize)},
	}
	return d
}

// Reset prepares the decoder for a new stream with the same properties.
func (d *Decoder) Reset() {
	d.m.reset()
	d.rc = rangeDecoder{undo: d.rc.undo[:0]}
	d.win.pos, d.win.total = 0, 0
	d.state = 0
	d.reps = [numReps]uint32{}
	d.remainLen = 0
	d.tmpLen = 0
	d.started, d.marked = false, false
	d.err = nil
}

// Decode decompresses src into dst in one call and returns the number of
// bytes written and consumed.
func Decode(dst, src []byte, props Props, dictSize uint32, finish FinishMode) (n, consumed int, status Status, err *kernel.Error) {
	if err = props.Validate(); err != nil {
		return 0, 0, StatusNotSpecified, err
	}
	if dictSize < DictSizeMin {
		dictSize = DictSizeMin
	}

	windowSize := len(dst)
	if uint64(dictSize) < uint64(windowSize) {
		windowSize = int(dictSize)
	}
	return newDecoder(props, dictSize, windowSize).decode(dst, src, finish)
}

// DecodeStream decompresses as much of in as fits into out. Decoding
// stops when out is full, when in is exhausted or at the end marker.
func (d *Decoder) DecodeStream(out, in []byte) (written, consumed int, status Status, err *kernel.Error) {
	return d.decode(out, in, FinishAny)
}

func (d *Decoder) decode(out, in []byte, finish FinishMode) (written, consumed int, status Status, err *kernel.Error) {
	if d.err != nil {
		return 0, 0, StatusNotSpecified, d.err
	}
	if d.marked {
		return 0, 0, StatusFinishedWithMark, nil
	}

	fail := func(e *kernel.Error) (int, int, Status, *kernel.Error) {
		d.err = e
		return written, consumed, StatusNotSpecified, e
	}

	if !d.started {
		n := copy(d.tmp[d.tmpLen:5], in)
		d.tmpLen += n
		consumed += n
		in = in[n:]
		if d.tmpLen < 5 {
			return 0, consumed, StatusNeedsMoreInput, nil
		}
		if d.tmp[0] != 0 {
			return fail(errCorrupt.WithDetail("first byte of the range coder is not zero"))
		}
		d.rc.rng = 0xFFFFFFFF
		d.rc.code = binary.BigEndian.Uint32(d.tmp[1:5])
		d.tmpLen = 0
		d.started = true
	}

	for {
		written += d.copyMatch(out[written:])

		endOnly := false
		if written == len(out) {
			switch {
			case d.remainLen != 0 && finish == FinishEnd:
				return fail(errOutputEOF)
			case d.remainLen != 0:
				return written, consumed, StatusNotFinished, nil
			case len(in) == 0 && d.tmpLen == 0 && d.rc.code == 0:
				return written, consumed, StatusMaybeFinishedWithoutMark, nil
			case finish == FinishAny:
				return written, consumed, StatusNotFinished, nil
			case len(in) == 0 && d.tmpLen == 0:
				return written, consumed, StatusNeedsMoreInput, nil
			}
			endOnly = true
		} else if len(in) == 0 && d.tmpLen == 0 {
			if d.rc.code == 0 {
				return written, consumed, StatusMaybeFinishedWithoutMark, nil
			}
			return written, consumed, StatusNeedsMoreInput, nil
		}

		// Decode one packet, from the leftover bytes of the previous call
		// topped up with new input if there are any.
		src, old, topUp := in, d.tmpLen, 0
		if old > 0 {
			topUp = copy(d.tmp[old:], in)
			d.tmpLen += topUp
			src = d.tmp[:d.tmpLen]
		}
		d.rc.in = src
		d.rc.mark()
		kind, length, dist := d.packet()
		if d.rc.short {
			d.rc.rollback()
			d.rc.in = nil
			if old == 0 {
				if len(in) >= len(d.tmp) {
					return fail(errCorrupt.WithDetail("packet exceeds the maximum size"))
				}
				d.tmpLen = copy(d.tmp[:], in)
			} else if d.tmpLen == len(d.tmp) {
				return fail(errCorrupt.WithDetail("packet exceeds the maximum size"))
			}
			return written, consumed + len(in), StatusNeedsMoreInput, nil
		}
		used := d.rc.pos
		d.rc.in = nil

		if endOnly && kind != packetEnd {
			d.rc.rollback()
			d.tmpLen = old
			if d.rc.code == 0 {
				return written, consumed, StatusMaybeFinishedWithoutMark, nil
			}
			return fail(errOutputEOF)
		}

		if old > 0 {
			used -= old
			d.tmpLen = 0
		}
		consumed += used
		in = in[used:]

		if d.trace != nil {
			d.trace(kind, length, dist)
		}
		if err := d.apply(kind, length, dist); err != nil {
			return fail(err)
		}
		if kind == packetEnd {
			d.marked = true
			return written, consumed, StatusFinishedWithMark, nil
		}
		if kind == packetLiteral || kind == packetShortRep {
			// Single bytes go straight to the output.
			out[written] = d.win.last()
			written++
		}
	}
}

// copyMatch copies pending match bytes into out.
func (d *Decoder) copyMatch(out []byte) int {
	n := 0
	for ; d.remainLen > 0 && n < len(out); n++ {
		b := d.win.back(d.reps[0])
		d.win.put(b)
		out[n] = b
		d.remainLen--
	}
	return n
}

// packet decodes the next packet without changing the decoder state, so a
// packet cut short by the end of the input can be rolled back.
func (d *Decoder) packet() (kind packetKind, length, dist uint32) {
	rd, m := &d.rc, d.m
	st := d.state
	posState := uint32(d.win.total) & m.pbMask

	if rd.bit(&m.isMatch[st.index(posState)]) == 0 {
		probs := m.literalProbs(d.win.total, d.win.last())
		if st.isLiteral() {
			d.lit = byte(rd.tree(probs, 8))
		} else {
			d.lit = byte(rd.matchedLiteral(probs, uint32(d.win.back(d.reps[0]))))
		}
		return packetLiteral, 1, 0
	}

	if rd.bit(&m.isRep[st]) == 0 {
		length = rd.length(&m.matchLen, posState)
		dist = d.distance(length)
		if dist == endMarkerDist {
			return packetEnd, length, dist
		}
		return packetMatch, length, dist
	}

	var rep uint32
	switch {
	case rd.bit(&m.isRepG0[st]) == 0:
		if rd.bit(&m.isRep0Long[st.index(posState)]) == 0 {
			return packetShortRep, 1, d.reps[0]
		}
	case rd.bit(&m.isRepG1[st]) == 0:
		rep = 1
	case rd.bit(&m.isRepG2[st]) == 0:
		rep = 2
	default:
		rep = 3
	}
	return packetRep, rd.length(&m.repLen, posState), rep
}

func (d *Decoder) distance(length uint32) uint32 {
	rd := &d.rc
	slot := rd.tree(d.m.posSlot[lenToPosState(length)][:], numPosSlotBits)
	if slot < startPosModelIndex {
		return slot
	}

	base, footerBits := slotBase(slot)
	if slot < endPosModelIndex {
		return base + rd.reverseTree(d.m.posSpecial[base-slot:], footerBits)
	}
	base += rd.direct(footerBits-numAlignBits) << numAlignBits
	return base + rd.reverseTree(d.m.align[:], numAlignBits)
}

// apply commits a decoded packet. For packetRep, dist is the rep index.
func (d *Decoder) apply(kind packetKind, length, dist uint32) *kernel.Error {
	switch kind {
	case packetLiteral:
		d.win.put(d.lit)
		d.state = d.state.afterLiteral()
	case packetMatch:
		if uint64(dist) >= d.win.total || dist >= d.dictSize {
			return errCorrupt.WithDetail("match distance exceeds the dictionary")
		}
		d.reps[3], d.reps[2], d.reps[1] = d.reps[2], d.reps[1], d.reps[0]
		d.reps[0] = dist
		d.state = d.state.afterMatch()
		d.remainLen = length
	case packetShortRep:
		if uint64(d.reps[0]) >= d.win.total {
			return errCorrupt.WithDetail("rep distance exceeds the decoded data")
		}
		d.win.put(d.win.back(d.reps[0]))
		d.state = d.state.afterShortRep()
	case packetRep:
		if rep := dist; rep != 0 {
			r := d.reps[rep]
			copy(d.reps[1:rep+1], d.reps[:rep])
			d.reps[0] = r
		}
		if uint64(d.reps[0]) >= d.win.total {
			return errCorrupt.WithDetail("rep distance exceeds the decoded data")
		}
		d.state = d.state.afterRep()
		d.remainLen = length
	}
	return nil
}
