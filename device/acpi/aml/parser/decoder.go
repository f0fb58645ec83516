// Package parser decodes AML bytecode into statements that are consumed by
// the interpreter.
package parser

import (
	"amlkit/device/acpi/aml/entity"
	"amlkit/kernel"
	"amlkit/kernel/kfmt"
	"encoding/binary"
	"io"
)

var (
	errUnexpectedEOF    = &kernel.Error{Module: "acpi_aml_parser", Message: "unexpected end of AML stream", Kind: kernel.KindMalformedData}
	errInvalidOpcode    = &kernel.Error{Module: "acpi_aml_parser", Message: "invalid opcode", Kind: kernel.KindInvalidOpcode}
	errInvalidExtOpcode = &kernel.Error{Module: "acpi_aml_parser", Message: "invalid extended opcode", Kind: kernel.KindMalformedData}
	errInvalidPkgLength = &kernel.Error{Module: "acpi_aml_parser", Message: "invalid package length", Kind: kernel.KindMalformedData}
	errInvalidName      = &kernel.Error{Module: "acpi_aml_parser", Message: "invalid name string", Kind: kernel.KindMalformedData}
	errInvalidString    = &kernel.Error{Module: "acpi_aml_parser", Message: "invalid string literal", Kind: kernel.KindMalformedData}
	errInvalidFieldList = &kernel.Error{Module: "acpi_aml_parser", Message: "invalid field list", Kind: kernel.KindMalformedData}
	errNotInlineArg     = &kernel.Error{Module: "acpi_aml_parser", Message: "arg is not decoded inline", Kind: kernel.KindInternal}
)

// IsDecodeError returns true if err was reported while decoding AML.
func IsDecodeError(err *kernel.Error) bool {
	return err != nil && err.Module == "acpi_aml_parser"
}

// Decoder reads statements from a block of AML bytecode.
type Decoder struct {
	r         amlStreamReader
	tableName string
	errWriter io.Writer
}

// NewDecoder returns a decoder that logs decoding errors to errWriter.
func NewDecoder(errWriter io.Writer) *Decoder {
	return &Decoder{errWriter: errWriter}
}

// Reset points the decoder to a new AML block.
func (d *Decoder) Reset(tableName string, data []byte, offset uint32) {
	d.tableName = tableName
	d.r.Init(data, offset)
}

// TableName returns the name of the table being decoded.
func (d *Decoder) TableName() string { return d.tableName }

// Data returns the AML block being decoded.
func (d *Decoder) Data() []byte { return d.r.data }

// Offset returns the current decoding offset.
func (d *Decoder) Offset() uint32 { return d.r.Offset() }

// SetOffset moves the decoding offset.
func (d *Decoder) SetOffset(offset uint32) { d.r.SetOffset(offset) }

// EOF returns true if the whole block has been decoded.
func (d *Decoder) EOF() bool { return d.r.EOF() }

// fail decorates err with the table name and offset and logs it.
func (d *Decoder) fail(err *kernel.Error, offset uint32, format string, args ...interface{}) *kernel.Error {
	detail := kfmt.Sprintf("[table: %s, offset: %d] ", d.tableName, offset) + kfmt.Sprintf(format, args...)
	if d.errWriter != nil {
		kfmt.Fprintf(d.errWriter, "%s: %s\n", err.Message, detail)
	}
	return err.WithDetail(detail)
}

// Next decodes the statement at the current offset. Leading inline args are
// decoded eagerly; the remaining args are supplied by the caller either via
// DecodeInlineArg or by evaluating the statements that follow.
func (d *Decoder) Next() (*Statement, *kernel.Error) {
	start := d.r.Offset()

	lead, err := d.r.ReadByte()
	if err != nil {
		return nil, d.fail(errUnexpectedEOF, start, "")
	}

	if isNameLead(lead) {
		_ = d.r.UnreadByte()
		path, ok := d.r.readNameString()
		if !ok {
			return nil, d.fail(errInvalidName, start, "")
		}
		st := NewStatement(entity.OpNamePath, start)
		st.Path = path
		return st, nil
	}

	var op entity.AMLOpcode
	if lead == extOpPrefix {
		code, err := d.r.ReadByte()
		if err != nil {
			return nil, d.fail(errUnexpectedEOF, start, "")
		}
		if extendedOpcodeMap[code] == badOpcode {
			return nil, d.fail(errInvalidExtOpcode, start, "0x5b 0x%x", code)
		}
		op = entity.AMLOpcode(0xff + uint16(code))
	} else {
		if opcodeMap[lead] == badOpcode {
			return nil, d.fail(errInvalidOpcode, start, "0x%x", lead)
		}
		op = entity.AMLOpcode(lead)
	}

	st := NewStatement(op, start)

	if st.Info.Flags.Is(FlagHasPkgLen) {
		pkgStart := d.r.Offset()
		pkgLen, ok := d.r.readPkgLength()
		if !ok {
			return nil, d.fail(errInvalidPkgLength, pkgStart, "")
		}

		end := uint64(pkgStart) + uint64(pkgLen)
		if end < uint64(d.r.Offset()) || end > uint64(len(d.r.data)) {
			return nil, d.fail(errInvalidPkgLength, pkgStart, "length %d exceeds block", pkgLen)
		}
		st.Scratch[0] = end
	}

	for st.NeedsArgs() && st.NextArgType().IsInline() {
		if err := d.DecodeInlineArg(st); err != nil {
			return nil, err
		}
	}

	return st, nil
}

// DecodeInlineArg decodes the next arg of st from the stream.
func (d *Decoder) DecodeInlineArg(st *Statement) *kernel.Error {
	argType := st.NextArgType()
	offset := d.r.Offset()

	switch argType {
	case ArgByteData, ArgWordData, ArgDWordData, ArgQWordData:
		width := 1 << (argType - ArgByteData)
		rem := d.r.Remaining()
		if len(rem) < width {
			return d.fail(errUnexpectedEOF, offset, "")
		}

		var v uint64
		switch width {
		case 1:
			v = uint64(rem[0])
		case 2:
			v = uint64(binary.LittleEndian.Uint16(rem))
		case 4:
			v = uint64(binary.LittleEndian.Uint32(rem))
		default:
			v = binary.LittleEndian.Uint64(rem)
		}
		d.r.SetOffset(offset + uint32(width))
		st.AddArg(entity.NewInteger(v))
	case ArgString:
		str, ok := d.readString()
		if !ok {
			return d.fail(errInvalidString, offset, "")
		}
		st.AddArg(entity.NewString(str))
	case ArgNameString:
		path, ok := d.r.readNameString()
		if !ok {
			return d.fail(errInvalidName, offset, "")
		}
		st.AddArg(entity.NewUnresolvedName(path, nil))
	case ArgFieldList:
		if offset > st.End() {
			return d.fail(errInvalidPkgLength, offset, "package overrun")
		}
		var flags uint64
		if st.ArgsHave > 0 {
			flags = st.IntArg(int(st.ArgsHave - 1))
		}
		fields, err := d.readFieldList(st.End(), entity.FieldAccessType(flags&0xf))
		if err != nil {
			return err
		}
		st.Fields = fields
		st.AddArg(nil)
	case ArgByteList:
		end := st.End()
		if offset > end {
			return d.fail(errInvalidPkgLength, offset, "package overrun")
		}
		st.AddArg(entity.NewBuffer(append([]byte{}, d.r.data[offset:end]...)))
		d.r.SetOffset(end)
	case ArgMethodBody:
		end := st.End()
		if offset > end {
			return d.fail(errInvalidPkgLength, offset, "package overrun")
		}
		st.Scratch[1] = uint64(offset)
		st.AddArg(entity.NewBuffer(d.r.data[offset:end:end]))
		d.r.SetOffset(end)
	default:
		return errNotInlineArg.WithDetail(st.Op.String())
	}

	return nil
}

// readString reads a null-terminated ASCII string.
func (d *Decoder) readString() (string, bool) {
	rem := d.r.Remaining()
	for i, ch := range rem {
		if ch == 0 {
			d.r.SetOffset(d.r.Offset() + uint32(i) + 1)
			return string(rem[:i]), true
		}
		if ch > 0x7f {
			return "", false
		}
	}
	return "", false
}

// readFieldList decodes the field list of a Field, IndexField or BankField
// that ends at maxOffset.
func (d *Decoder) readFieldList(maxOffset uint32, accessType entity.FieldAccessType) ([]FieldElement, *kernel.Error) {
	var (
		fields       []FieldElement
		curBitOffset uint32
		accessAttrib entity.FieldAccessAttrib
		accessLength uint8
		connection   *entity.Object
	)

	for d.r.Offset() < maxOffset {
		offset := d.r.Offset()
		next, _ := d.r.ReadByte()

		switch next {
		case 0x00: // ReservedField; generated by the Offset() command
			bitWidth, ok := d.r.readPkgLength()
			if !ok {
				return nil, d.fail(errInvalidFieldList, offset, "bad reserved field")
			}
			curBitOffset += bitWidth
		case 0x01: // AccessField
			b, errType := d.r.ReadByte()
			attrib, errAttrib := d.r.ReadByte()
			if errType != nil || errAttrib != nil {
				return nil, d.fail(errInvalidFieldList, offset, "bad access field")
			}
			accessType = entity.FieldAccessType(b & 0xf)
			accessAttrib = entity.FieldAccessAttrib(attrib)
			accessLength = 0
		case 0x02: // ConnectField := 0x02 NameString | 0x02 BufferData
			conn, err := d.readConnection()
			if err != nil {
				return nil, err
			}
			connection = conn
		case 0x03: // ExtendedAccessField := 0x03 AccessType ExtendedAccessAttrib AccessLength
			b, errType := d.r.ReadByte()
			extAttrib, errAttrib := d.r.ReadByte()
			length, errLen := d.r.ReadByte()
			if errType != nil || errAttrib != nil || errLen != nil {
				return nil, d.fail(errInvalidFieldList, offset, "bad extended access field")
			}
			accessType = entity.FieldAccessType(b & 0xf)
			accessLength = length
			switch extAttrib {
			case 0x0b:
				accessAttrib = entity.FieldAccessAttribBytes
			case 0x0e:
				accessAttrib = entity.FieldAccessAttribRawBytes
			case 0x0f:
				accessAttrib = entity.FieldAccessAttribRawProcessBytes
			default:
				accessAttrib = entity.FieldAccessAttrib(extAttrib)
			}
		default: // NamedField := NameSeg PkgLength
			_ = d.r.UnreadByte()
			name, ok := d.r.readNameSeg()
			if !ok {
				return nil, d.fail(errInvalidFieldList, offset, "bad field name")
			}
			bitWidth, ok := d.r.readPkgLength()
			if !ok {
				return nil, d.fail(errInvalidFieldList, offset, "bad width for field %s", name)
			}

			fields = append(fields, FieldElement{
				Name:         name,
				BitOffset:    curBitOffset,
				BitLength:    bitWidth,
				AccessType:   accessType,
				AccessAttrib: accessAttrib,
				AccessLength: accessLength,
				Connection:   connection,
			})
			curBitOffset += bitWidth
		}
	}

	if d.r.Offset() != maxOffset {
		return nil, d.fail(errInvalidFieldList, d.r.Offset(), "field list overruns its package")
	}

	return fields, nil
}

// readConnection decodes the target of a ConnectField entry. Resource
// buffers must use a constant size.
func (d *Decoder) readConnection() (*entity.Object, *kernel.Error) {
	offset := d.r.Offset()
	next, err := d.r.PeekByte()
	if err != nil {
		return nil, d.fail(errUnexpectedEOF, offset, "")
	}

	if isNameLead(next) || next == 0x00 {
		path, ok := d.r.readNameString()
		if !ok {
			return nil, d.fail(errInvalidName, offset, "")
		}
		return entity.NewUnresolvedName(path, nil), nil
	}

	if next != byte(entity.OpBuffer) {
		return nil, d.fail(errInvalidFieldList, offset, "unsupported connection 0x%x", next)
	}

	_, _ = d.r.ReadByte()
	pkgStart := d.r.Offset()
	pkgLen, ok := d.r.readPkgLength()
	end := pkgStart + pkgLen
	if !ok || end > uint32(len(d.r.data)) || end < d.r.Offset() {
		return nil, d.fail(errInvalidPkgLength, pkgStart, "")
	}

	size, ok := d.readConstInteger()
	if !ok || uint32(d.r.Offset()) > end {
		return nil, d.fail(errInvalidFieldList, offset, "connection buffer size must be a constant")
	}

	data := d.r.data[d.r.Offset():end]
	buf := make([]byte, size)
	if uint64(len(data)) > size {
		buf = make([]byte, len(data))
	}
	copy(buf, data)
	d.r.SetOffset(end)

	return entity.NewBuffer(buf), nil
}

// readConstInteger decodes a constant integer term.
func (d *Decoder) readConstInteger() (uint64, bool) {
	op, err := d.r.ReadByte()
	if err != nil {
		return 0, false
	}

	var width int
	switch entity.AMLOpcode(op) {
	case entity.OpZero:
		return 0, true
	case entity.OpOne:
		return 1, true
	case entity.OpBytePrefix:
		width = 1
	case entity.OpWordPrefix:
		width = 2
	case entity.OpDwordPrefix:
		width = 4
	case entity.OpQwordPrefix:
		width = 8
	default:
		return 0, false
	}

	rem := d.r.Remaining()
	if len(rem) < width {
		return 0, false
	}

	var v uint64
	for i := width - 1; i >= 0; i-- {
		v = v<<8 | uint64(rem[i])
	}
	d.r.SetOffset(d.r.Offset() + uint32(width))
	return v, true
}
