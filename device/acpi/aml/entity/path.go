package entity

import (
	"amlkit/kernel"
	"strings"
)

var (
	errInvalidPath = &kernel.Error{Module: "acpi_aml_entity", Message: "invalid namespace path", Kind: kernel.KindMalformedData}
)

// Path is a decoded NameString. A path is absolute when Root is set;
// otherwise it is resolved relative to a scope after moving up Parents
// levels.
type Path struct {
	Root     bool
	Parents  int
	Segments []string
}

// IsNull returns true for a NullName path (no prefix and no segments).
func (p Path) IsNull() bool {
	return !p.Root && p.Parents == 0 && len(p.Segments) == 0
}

// IsSearchable returns true if the namespace search rules apply to this
// path, i.e. it is a relative path made of a single NameSeg.
func (p Path) IsSearchable() bool {
	return !p.Root && p.Parents == 0 && len(p.Segments) == 1
}

// Last returns the final segment of the path or an empty string.
func (p Path) Last() string {
	if len(p.Segments) == 0 {
		return ""
	}
	return p.Segments[len(p.Segments)-1]
}

// Prefix returns a copy of the path without its final segment.
func (p Path) Prefix() Path {
	if len(p.Segments) == 0 {
		return p
	}
	return Path{Root: p.Root, Parents: p.Parents, Segments: p.Segments[:len(p.Segments)-1]}
}

// String returns the canonical textual form of the path: an optional `\`,
// Parents `^` characters and the segments separated by dots.
func (p Path) String() string {
	var sb strings.Builder
	if p.Root {
		sb.WriteByte('\\')
	}
	for i := 0; i < p.Parents; i++ {
		sb.WriteByte('^')
	}
	for i, seg := range p.Segments {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(seg)
	}
	return sb.String()
}

// ValidNameSeg returns true if seg is a valid four character NameSeg: the
// lead character must be A-Z or '_' and the remaining ones A-Z, '_' or 0-9.
func ValidNameSeg(seg string) bool {
	if len(seg) != 4 {
		return false
	}
	for i := 0; i < 4; i++ {
		ch := seg[i]
		switch {
		case ch >= 'A' && ch <= 'Z', ch == '_':
		case ch >= '0' && ch <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// ParsePath parses a textual path such as `\_SB.PCI0`, `^^FOO` or `_STA`.
// Segments shorter than four characters are padded with '_'.
func ParsePath(s string) (Path, *kernel.Error) {
	var p Path

	if strings.HasPrefix(s, `\`) {
		p.Root = true
		s = s[1:]
	} else {
		for strings.HasPrefix(s, "^") {
			p.Parents++
			s = s[1:]
		}
	}

	if s == "" {
		return p, nil
	}

	for _, seg := range strings.Split(s, ".") {
		if len(seg) == 0 || len(seg) > 4 {
			return Path{}, errInvalidPath.WithDetail(s)
		}
		seg += "____"[:4-len(seg)]
		if !ValidNameSeg(seg) {
			return Path{}, errInvalidPath.WithDetail(s)
		}
		p.Segments = append(p.Segments, seg)
	}

	return p, nil
}

// MustParsePath is like ParsePath but panics if the path is invalid. It is
// intended for paths that are compile-time constants.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}
