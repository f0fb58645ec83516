package parser

import (
	"amlkit/device/acpi/aml/entity"
	"encoding/binary"
)

// Asm is a fragment of assembled AML bytecode. The helpers below compose
// fragments into complete definition blocks, computing package lengths and
// name string encodings on the way.
type Asm []byte

// Raw returns the supplied bytes as-is.
func Raw(data ...byte) Asm { return Asm(data) }

// Seq concatenates fragments.
func Seq(parts ...Asm) Asm {
	var out Asm
	for _, part := range parts {
		out = append(out, part...)
	}
	return out
}

// Op returns the encoding of an opcode.
func Op(op entity.AMLOpcode) Asm {
	if op > 0xff {
		return Asm{extOpPrefix, byte(op - 0xff)}
	}
	return Asm{byte(op)}
}

// Expr returns an opcode followed by its args.
func Expr(op entity.AMLOpcode, args ...Asm) Asm {
	return append(Op(op), Seq(args...)...)
}

// Pkg returns an opcode followed by a PkgLength covering the supplied parts.
func Pkg(op entity.AMLOpcode, parts ...Asm) Asm {
	body := Seq(parts...)
	out := Op(op)
	out = append(out, EncodePkgLengthFor(len(body))...)
	return append(out, body...)
}

// Name returns the NameString encoding of a textual path. It panics if the
// path is invalid.
func Name(path string) Asm { return Asm(EncodeNameString(entity.MustParsePath(path))) }

// Int returns the shortest encoding of an integer constant.
func Int(v uint64) Asm {
	switch {
	case v == 0:
		return Op(entity.OpZero)
	case v == 1:
		return Op(entity.OpOne)
	case v <= 0xff:
		return Asm{byte(entity.OpBytePrefix), byte(v)}
	case v <= 0xffff:
		return append(Op(entity.OpWordPrefix), Word(uint16(v))...)
	case v <= 0xffffffff:
		return append(Op(entity.OpDwordPrefix), DWord(uint32(v))...)
	default:
		return binary.LittleEndian.AppendUint64(Op(entity.OpQwordPrefix), v)
	}
}

// Ones returns the Ones constant.
func Ones() Asm { return Op(entity.OpOnes) }

// Word returns an inline WordData value.
func Word(v uint16) Asm { return binary.LittleEndian.AppendUint16(nil, v) }

// DWord returns an inline DWordData value.
func DWord(v uint32) Asm { return binary.LittleEndian.AppendUint32(nil, v) }

// Str returns a string constant.
func Str(s string) Asm {
	out := Op(entity.OpStringPrefix)
	out = append(out, s...)
	return append(out, 0)
}

// Local returns a reference to LocalN.
func Local(n int) Asm { return Op(entity.OpLocal0 + entity.AMLOpcode(n)) }

// Arg returns a reference to ArgN.
func Arg(n int) Asm { return Op(entity.OpArg0 + entity.AMLOpcode(n)) }

// Debug returns the Debug object.
func Debug() Asm { return Op(entity.OpDebug) }

// Scope returns a Scope block.
func Scope(path string, body ...Asm) Asm {
	return Pkg(entity.OpScope, append([]Asm{Name(path)}, body...)...)
}

// Device returns a Device block.
func Device(path string, body ...Asm) Asm {
	return Pkg(entity.OpDevice, append([]Asm{Name(path)}, body...)...)
}

// Method returns a method declaration. The flags byte encodes the arg
// count in bits 0-2, the serialized flag in bit 3 and the sync level in
// bits 4-7.
func Method(path string, flags byte, body ...Asm) Asm {
	return Pkg(entity.OpMethod, append([]Asm{Name(path), Raw(flags)}, body...)...)
}

// NameObj returns a Name declaration.
func NameObj(path string, value Asm) Asm { return Expr(entity.OpName, Name(path), value) }

// Alias returns an Alias declaration.
func Alias(target, alias string) Asm { return Expr(entity.OpAlias, Name(target), Name(alias)) }

// Buffer returns a buffer whose size is given by the size term.
func Buffer(size Asm, data ...byte) Asm { return Pkg(entity.OpBuffer, size, Raw(data...)) }

// Package returns a package with one slot per element.
func Package(elements ...Asm) Asm {
	return Pkg(entity.OpPackage, append([]Asm{Raw(byte(len(elements)))}, elements...)...)
}

// If returns an If block.
func If(pred Asm, body ...Asm) Asm { return Pkg(entity.OpIf, append([]Asm{pred}, body...)...) }

// Else returns an Else block.
func Else(body ...Asm) Asm { return Pkg(entity.OpElse, body...) }

// While returns a While block.
func While(pred Asm, body ...Asm) Asm { return Pkg(entity.OpWhile, append([]Asm{pred}, body...)...) }

// Return returns a Return statement.
func Return(value Asm) Asm { return Expr(entity.OpReturn, value) }

// Store returns a Store statement.
func Store(src, dst Asm) Asm { return Expr(entity.OpStore, src, dst) }

// Call returns an invocation of the method at path.
func Call(path string, args ...Asm) Asm { return Seq(append([]Asm{Name(path)}, args...)...) }

// OpRegion returns an OperationRegion declaration.
func OpRegion(path string, space entity.RegionSpace, offset, length Asm) Asm {
	return Expr(entity.OpOpRegion, Name(path), Raw(byte(space)), offset, length)
}

// Field returns a Field declaration. The flags byte encodes the access type
// in bits 0-3, the lock rule in bit 4 and the update rule in bits 5-6.
func Field(region string, flags byte, elements ...Asm) Asm {
	return Pkg(entity.OpField, append([]Asm{Name(region), Raw(flags)}, elements...)...)
}

// IndexField returns an IndexField declaration.
func IndexField(index, data string, flags byte, elements ...Asm) Asm {
	return Pkg(entity.OpIndexField, append([]Asm{Name(index), Name(data), Raw(flags)}, elements...)...)
}

// BankField returns a BankField declaration.
func BankField(region, bank string, value Asm, flags byte, elements ...Asm) Asm {
	return Pkg(entity.OpBankField, append([]Asm{Name(region), Name(bank), value, Raw(flags)}, elements...)...)
}

// NamedField returns a field list entry with the given width in bits.
func NamedField(name string, bits uint32) Asm {
	return append(Asm(name), EncodePkgLength(bits)...)
}

// ReservedField returns a field list entry that skips bits.
func ReservedField(bits uint32) Asm { return append(Asm{0x00}, EncodePkgLength(bits)...) }

// AccessField returns a field list entry that changes the access type.
func AccessField(accessType entity.FieldAccessType, attrib byte) Asm {
	return Asm{0x01, byte(accessType), attrib}
}

// Mutex returns a Mutex declaration.
func Mutex(path string, syncLevel byte) Asm {
	return Expr(entity.OpMutex, Name(path), Raw(syncLevel))
}

// Acquire returns an Acquire expression.
func Acquire(mutex Asm, timeout uint16) Asm {
	return Expr(entity.OpAcquire, mutex, Word(timeout))
}

// Release returns a Release statement.
func Release(mutex Asm) Asm { return Expr(entity.OpRelease, mutex) }

// Event returns an Event declaration.
func Event(path string) Asm { return Expr(entity.OpEvent, Name(path)) }

// Wait returns a Wait expression.
func Wait(event, timeout Asm) Asm { return Expr(entity.OpWait, event, timeout) }

// Signal returns a Signal statement.
func Signal(event Asm) Asm { return Expr(entity.OpSignal, event) }
