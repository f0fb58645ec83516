package parser

import "amlkit/device/acpi/aml/entity"

const (
	rootChar        = '\\'
	parentPrefix    = '^'
	dualNamePrefix  = 0x2e
	multiNamePrefix = 0x2f
)

// isNameLead returns true if b can start a NameString.
func isNameLead(b byte) bool {
	switch {
	case b == rootChar, b == parentPrefix, b == dualNamePrefix, b == multiNamePrefix:
		return true
	case b >= 'A' && b <= 'Z', b == '_':
		return true
	}
	return false
}

// readNameSeg reads a four character NameSeg.
func (r *amlStreamReader) readNameSeg() (string, bool) {
	if len(r.Remaining()) < 4 {
		return "", false
	}

	seg := string(r.data[r.offset : r.offset+4])
	if !entity.ValidNameSeg(seg) {
		return "", false
	}

	r.offset += 4
	return seg, true
}

// readNameString decodes a NameString:
//
//	NameString := RootChar NamePath | PrefixPath NamePath
//	NamePath := NameSeg | DualNamePath | MultiNamePath | NullName
func (r *amlStreamReader) readNameString() (entity.Path, bool) {
	var path entity.Path

	next, err := r.PeekByte()
	if err != nil {
		return path, false
	}

	switch next {
	case rootChar:
		path.Root = true
		_, _ = r.ReadByte()
	case parentPrefix:
		for next == parentPrefix {
			path.Parents++
			_, _ = r.ReadByte()
			if next, err = r.PeekByte(); err != nil {
				return path, false
			}
		}
	}

	next, err = r.ReadByte()
	if err != nil {
		return path, false
	}

	var segCount int
	switch next {
	case 0x00: // NullName
		return path, true
	case dualNamePrefix:
		segCount = 2
	case multiNamePrefix:
		count, err := r.ReadByte()
		if count == 0 || err != nil {
			return path, false
		}
		segCount = int(count)
	default:
		_ = r.UnreadByte()
		segCount = 1
	}

	path.Segments = make([]string, 0, segCount)
	for ; segCount > 0; segCount-- {
		seg, ok := r.readNameSeg()
		if !ok {
			return path, false
		}
		path.Segments = append(path.Segments, seg)
	}

	return path, true
}

// DecodeNameString decodes the NameString at the start of data and returns
// it together with the number of bytes that encode it.
func DecodeNameString(data []byte) (path entity.Path, size int, ok bool) {
	var r amlStreamReader
	r.Init(data, 0)

	if path, ok = r.readNameString(); !ok {
		return entity.Path{}, 0, false
	}
	return path, int(r.Offset()), true
}

// EncodeNameString returns the AML encoding of path using the shortest
// NamePath form for its segment count.
func EncodeNameString(path entity.Path) []byte {
	var out []byte
	if path.Root {
		out = append(out, rootChar)
	}
	for i := 0; i < path.Parents; i++ {
		out = append(out, parentPrefix)
	}

	switch len(path.Segments) {
	case 0:
		out = append(out, 0x00)
	case 1:
	case 2:
		out = append(out, dualNamePrefix)
	default:
		out = append(out, multiNamePrefix, byte(len(path.Segments)))
	}

	for _, seg := range path.Segments {
		out = append(out, seg...)
	}
	return out
}
