package parser

// MaxPkgLength is the largest value that can be represented by a PkgLength.
const MaxPkgLength = 1<<28 - 1

// readPkgLength decodes a PkgLength from the stream. The high 2 bits of the
// lead byte indicate how many bytes follow; for multi-byte encodings bits 4-5
// of the lead byte must be zero.
func (r *amlStreamReader) readPkgLength() (uint32, bool) {
	lead, err := r.ReadByte()
	if err != nil {
		return 0, false
	}

	followCount := lead >> 6
	if followCount == 0 {
		return uint32(lead & 0x3f), true
	}

	if lead&0x30 != 0 {
		return 0, false
	}

	// lead bits 0-3 are the lsb of the length nybble
	pkgLen := uint32(lead & 0xf)
	for i := uint8(0); i < followCount; i++ {
		next, err := r.ReadByte()
		if err != nil {
			return 0, false
		}
		pkgLen |= uint32(next) << (4 + 8*i)
	}

	return pkgLen, true
}

// DecodePkgLength decodes the PkgLength at the start of data. It returns the
// decoded length and the number of bytes that encode it.
func DecodePkgLength(data []byte) (length uint32, size int, ok bool) {
	var r amlStreamReader
	r.Init(data, 0)

	if length, ok = r.readPkgLength(); !ok {
		return 0, 0, false
	}
	return length, int(r.Offset()), true
}

// EncodePkgLength returns the shortest PkgLength encoding for length. The
// value must not exceed MaxPkgLength.
func EncodePkgLength(length uint32) []byte {
	switch {
	case length < 1<<6:
		return []byte{byte(length)}
	case length < 1<<12:
		return []byte{0x40 | byte(length&0xf), byte(length >> 4)}
	case length < 1<<20:
		return []byte{0x80 | byte(length&0xf), byte(length >> 4), byte(length >> 12)}
	default:
		return []byte{0xc0 | byte(length&0xf), byte(length >> 4), byte(length >> 12), byte(length >> 20)}
	}
}

// EncodePkgLengthFor returns the PkgLength encoding for a package whose
// contents (excluding the PkgLength itself) take up contentLen bytes. The
// encoded value includes the size of the encoding.
func EncodePkgLengthFor(contentLen int) []byte {
	for size := 1; size <= 4; size++ {
		enc := EncodePkgLength(uint32(contentLen + size))
		if len(enc) == size {
			return enc
		}
	}
	return EncodePkgLength(uint32(contentLen + 4))
}
