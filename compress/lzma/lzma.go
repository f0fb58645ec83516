// Package lzma implements the LZMA compression format: an optimal-parse
// encoder driven by hash-chain or binary-tree match finders, a resumable
// decoder and the 13-byte .lzma file header with an optional integrity
// footer.
package lzma

import (
	"amlkit/kernel"
	"strings"
)

const errModule = "lzma"

var (
	errCorrupt      = &kernel.Error{Module: errModule, Message: "compressed data is corrupt", Kind: kernel.KindMalformedData}
	errBadProps     = &kernel.Error{Module: errModule, Message: "unsupported stream properties", Kind: kernel.KindUnsupported}
	errBadOptions   = &kernel.Error{Module: errModule, Message: "invalid encoder options", Kind: kernel.KindUnsupported}
	errInputEOF     = &kernel.Error{Module: errModule, Message: "unexpected end of compressed input", Kind: kernel.KindReadEOF}
	errOutputEOF    = &kernel.Error{Module: errModule, Message: "compressed data continues past the end of the output", Kind: kernel.KindWriteEOF}
	errRead         = &kernel.Error{Module: errModule, Message: "read from the uncompressed source failed", Kind: kernel.KindIoFailure}
	errWrite        = &kernel.Error{Module: errModule, Message: "write to the compressed stream failed", Kind: kernel.KindIoFailure}
	errProgress     = &kernel.Error{Module: errModule, Message: "aborted by progress callback", Kind: kernel.KindProgress}
	errFinished     = &kernel.Error{Module: errModule, Message: "encoder already finished", Kind: kernel.KindInternal}
	errChecksum     = &kernel.Error{Module: errModule, Message: "footer checksum mismatch", Kind: kernel.KindMalformedData}
	errSizeMismatch = &kernel.Error{Module: errModule, Message: "uncompressed size does not match the header", Kind: kernel.KindMalformedData}
)

// Dictionary size limits. Decoders treat smaller dictionaries as
// DictSizeMin.
const (
	DictSizeMin     = 1 << 12
	DictSizeMax     = 3 << 29
	DefaultDictSize = 1 << 23
)

const (
	numStates       = 12
	posBitsMax      = 4
	numPosStatesMax = 1 << posBitsMax

	lenLowBits     = 3
	lenMidBits     = 3
	lenHighBits    = 8
	lenLowSymbols  = 1 << lenLowBits
	lenMidSymbols  = 1 << lenMidBits
	lenHighSymbols = 1 << lenHighBits

	matchLenMin = 2
	matchLenMax = matchLenMin + lenLowSymbols + lenMidSymbols + lenHighSymbols - 1

	numLenToPosStates  = 4
	numPosSlotBits     = 6
	startPosModelIndex = 4
	endPosModelIndex   = 14
	numFullDistances   = 1 << (endPosModelIndex >> 1)
	numAlignBits       = 4
	alignTableSize     = 1 << numAlignBits

	numReps          = 4
	literalCoderSize = 0x300

	// endMarkerDist is the zero-based match distance that terminates a
	// stream.
	endMarkerDist = 0xFFFFFFFF
)

// Props holds the literal context bits, literal position bits and position
// bits of a stream.
type Props struct {
	LC, LP, PB int
}

// DefaultProps are the properties used by most .lzma files.
var DefaultProps = Props{LC: 3, LP: 0, PB: 2}

// Validate checks that every property is within its allowed range.
func (p Props) Validate() *kernel.Error {
	if p.LC < 0 || p.LC > 8 || p.LP < 0 || p.LP > 4 || p.PB < 0 || p.PB > 4 {
		return errBadProps.WithDetail("lc must be in [0, 8], lp and pb in [0, 4]")
	}
	return nil
}

// Byte returns the encoded form of p used by the file header.
func (p Props) Byte() byte {
	return byte((p.PB*5+p.LP)*9 + p.LC)
}

// PropsFromByte decodes the properties byte of a file header.
func PropsFromByte(b byte) (Props, *kernel.Error) {
	if b >= 9*5*5 {
		return Props{}, errBadProps.WithDetail("properties byte out of range")
	}
	v := int(b)
	return Props{LC: v % 9, LP: (v / 9) % 5, PB: v / 45}, nil
}

// MatchFinder selects the structure used to locate earlier occurrences of
// the bytes at the current position.
type MatchFinder uint8

// The supported match finders. The BT variants index positions in a binary
// tree keyed by the first 2, 3 or 4 bytes; HC4 keeps a hash chain.
const (
	BT4 MatchFinder = iota
	BT2
	BT3
	HC4
)

var matchFinderNames = [...]string{BT4: "bt4", BT2: "bt2", BT3: "bt3", HC4: "hc4"}

func (m MatchFinder) String() string {
	if int(m) < len(matchFinderNames) {
		return matchFinderNames[m]
	}
	return "unknown"
}

// ParseMatchFinder maps a match finder name ("bt2", "bt3", "bt4", "hc4")
// to its value.
func ParseMatchFinder(name string) (MatchFinder, *kernel.Error) {
	for i, n := range matchFinderNames {
		if strings.EqualFold(n, name) {
			return MatchFinder(i), nil
		}
	}
	return 0, errBadOptions.WithDetail("unknown match finder " + name)
}

func (m MatchFinder) hashBytes() int {
	switch m {
	case BT2:
		return 2
	case BT3:
		return 3
	default:
		return 4
	}
}

// Options configure an Encoder. Zero fields select the defaults.
type Options struct {
	// Props selects the literal context and position bits. Nil selects
	// DefaultProps.
	Props *Props

	// DictSize is the size of the sliding window; distances never exceed
	// it. Defaults to DefaultDictSize.
	DictSize uint32

	// FastBytes is the match length at which the encoder stops searching
	// for better parses. It must be in [5, 273]; the default is 32.
	FastBytes int

	MatchFinder MatchFinder

	// CutValue bounds the number of match finder candidates visited per
	// position. The default depends on FastBytes and the match finder.
	CutValue int

	// EndMarker requests an explicit end of stream marker.
	EndMarker bool

	// Progress, if set, is called after every encoded block with the
	// number of bytes consumed and produced so far. Returning false aborts
	// encoding with a KindProgress error.
	Progress func(in, out int64) bool
}

// DefaultOptions returns the options used when no field is set.
func DefaultOptions() Options {
	props := DefaultProps
	return Options{Props: &props, DictSize: DefaultDictSize, FastBytes: 32}
}

func (o Options) normalize() (Options, *kernel.Error) {
	props := DefaultProps
	if o.Props != nil {
		props = *o.Props
	}
	if err := props.Validate(); err != nil {
		return o, err
	}
	o.Props = &props

	switch {
	case o.DictSize == 0:
		o.DictSize = DefaultDictSize
	case o.DictSize < DictSizeMin:
		o.DictSize = DictSizeMin
	case o.DictSize > DictSizeMax:
		return o, errBadOptions.WithDetail("dictionary size exceeds 1.5 GiB")
	}

	if o.FastBytes == 0 {
		o.FastBytes = 32
	}
	if o.FastBytes < 5 || o.FastBytes > matchLenMax {
		return o, errBadOptions.WithDetail("fast bytes must be in [5, 273]")
	}

	if int(o.MatchFinder) >= len(matchFinderNames) {
		return o, errBadOptions.WithDetail("unknown match finder")
	}

	if o.CutValue <= 0 {
		o.CutValue = 16 + o.FastBytes/2
		if o.MatchFinder == HC4 {
			o.CutValue /= 2
		}
	}
	return o, nil
}

// state is the position of the encoder and decoder in the 12-state machine
// tracking the kinds of the most recent packets.
type state uint32

func (s state) isLiteral() bool { return s < 7 }

func (s state) afterLiteral() state {
	switch {
	case s < 4:
		return 0
	case s < 10:
		return s - 3
	default:
		return s - 6
	}
}

func (s state) afterMatch() state {
	if s < 7 {
		return 7
	}
	return 10
}

func (s state) afterRep() state {
	if s < 7 {
		return 8
	}
	return 11
}

func (s state) afterShortRep() state {
	if s < 7 {
		return 9
	}
	return 11
}

// index returns the position of the (state, posState) pair in the
// isMatch and isRep0Long probability arrays.
func (s state) index(posState uint32) uint32 {
	return uint32(s)<<posBitsMax + posState
}
