package vm

import (
	"amlkit/device/acpi/aml/entity"
	"amlkit/kernel"
	"bytes"
	"encoding/binary"
	"strconv"
)

// operand resolves obj to the object whose value is consumed by an
// evaluated arg. Aliases, forward references and object references are
// followed and field units are read.
func (ctx *execContext) operand(obj *entity.Object) (*entity.Object, *kernel.Error) {
	var err *kernel.Error

	for {
		if obj == nil {
			return nil, errUninitialized
		}

		switch obj.Type {
		case entity.TypeUninitialized:
			return nil, errUninitialized
		case entity.TypeAlias:
			obj = obj.Target
		case entity.TypeUnresolvedName:
			if obj, err = ctx.vm.ns.ResolveUnresolved(obj); err != nil {
				return nil, err
			}
		case entity.TypeReference:
			if obj, err = ctx.derefReference(obj); err != nil {
				return nil, err
			}
		case entity.TypeFieldUnit:
			return ctx.readField(obj)
		case entity.TypeBufferField:
			return ctx.readBufferField(obj)
		default:
			return obj, nil
		}
	}
}

// derefReference returns the object pointed to by ref. Index references into
// Buffers and Strings yield the addressed byte as an Integer.
func (ctx *execContext) derefReference(ref *entity.Object) (*entity.Object, *kernel.Error) {
	switch ref.Ref.Kind {
	case entity.RefLocal, entity.RefArg:
		return *ref.Ref.Slot, nil
	case entity.RefIndex:
		target := ref.Ref.Target
		index := ref.Ref.Index
		switch target.Type {
		case entity.TypeBuffer, entity.TypeString:
			if index >= uint64(len(target.Bytes)) {
				return nil, errIndexOutOfBounds
			}
			return entity.NewInteger(uint64(target.Bytes[index])), nil
		case entity.TypePackage:
			if index >= uint64(len(target.Elements)) {
				return nil, errIndexOutOfBounds
			}
			return target.Elements[index], nil
		}
		return nil, errTypeMismatch.WithDetail("index of " + target.Type.String())
	default:
		return ref.Ref.Target, nil
	}
}

// toInteger evaluates obj and converts it to an Integer.
func (ctx *execContext) toInteger(obj *entity.Object) (uint64, *kernel.Error) {
	value, err := ctx.operand(obj)
	if err != nil {
		return 0, err
	}

	if value, err = ctx.convert(value, entity.TypeInteger); err != nil {
		return 0, err
	}
	return value.Int, nil
}

// toIntArgs2 converts two evaluated args to Integers.
func (ctx *execContext) toIntArgs2(left, right *entity.Object) (uint64, uint64, *kernel.Error) {
	a, err := ctx.toInteger(left)
	if err != nil {
		return 0, 0, err
	}

	b, err := ctx.toInteger(right)
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

// toData evaluates obj and converts it to toType.
func (ctx *execContext) toData(obj *entity.Object, toType entity.ObjectType) (*entity.Object, *kernel.Error) {
	value, err := ctx.operand(obj)
	if err != nil {
		return nil, err
	}
	return ctx.convert(value, toType)
}

// convert applies the implicit conversion rules between Integer, String
// and Buffer objects. The input object is returned as-is when it already
// has the requested type.
func (ctx *execContext) convert(obj *entity.Object, toType entity.ObjectType) (*entity.Object, *kernel.Error) {
	if obj.Type == toType {
		return obj, nil
	}

	switch obj.Type {
	case entity.TypeInteger:
		switch toType {
		case entity.TypeString:
			// Integers are formatted as hex strings without a 0x prefix
			return entity.NewString(strconv.FormatUint(obj.Int, 16)), nil
		case entity.TypeBuffer:
			return entity.NewBuffer(ctx.intBytes(obj.Int)), nil
		}
	case entity.TypeString:
		switch toType {
		case entity.TypeInteger:
			return ctx.stringToInt(obj.Bytes)
		case entity.TypeBuffer:
			// The null terminator is part of the buffer.
			data := make([]byte, len(obj.Bytes)+1)
			copy(data, obj.Bytes)
			return entity.NewBuffer(data), nil
		}
	case entity.TypeBuffer:
		switch toType {
		case entity.TypeInteger:
			return entity.NewInteger(ctx.bufferToInt(obj.Bytes)), nil
		case entity.TypeString:
			return entity.NewString(hexList(obj.Bytes, " ", "")), nil
		}
	}

	return nil, errConversion.WithDetail(obj.Type.String() + " to " + toType.String())
}

// stringToInt interprets str as a hexadecimal constant. Conversion stops at
// the first non-hex character or when the integer width is reached.
func (ctx *execContext) stringToInt(str []byte) (*entity.Object, *kernel.Error) {
	if len(str) == 0 {
		return nil, errEmptyString
	}

	var res uint64
	for i := 0; i < len(str) && i < int(ctx.intWidth()>>2); i++ {
		digit, ok := hexValue(str[i])
		if !ok {
			break
		}
		res = res<<4 | uint64(digit)
	}
	return entity.NewInteger(res), nil
}

// bufferToInt reads up to the integer width from data in little-endian
// order.
func (ctx *execContext) bufferToInt(data []byte) uint64 {
	var buf [8]byte
	copy(buf[:ctx.intWidth()>>3], data)
	return binary.LittleEndian.Uint64(buf[:])
}

// intBytes returns the little-endian representation of v at the integer
// width.
func (ctx *execContext) intBytes(v uint64) []byte {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint64(data, v)
	return data[:ctx.intWidth()>>3]
}

func hexValue(ch byte) (uint8, bool) {
	switch {
	case ch >= '0' && ch <= '9':
		return ch - '0', true
	case ch >= 'a' && ch <= 'f':
		return ch - 'a' + 10, true
	case ch >= 'A' && ch <= 'F':
		return ch - 'A' + 10, true
	}
	return 0, false
}

// hexList formats each byte as a two-digit hex number with the given prefix
// and separator.
func hexList(data []byte, sep, prefix string) string {
	var buf bytes.Buffer
	for i, b := range data {
		if i > 0 {
			buf.WriteString(sep)
		}
		buf.WriteString(prefix)
		if b < 0x10 {
			buf.WriteByte('0')
		}
		buf.WriteString(strconv.FormatUint(uint64(b), 16))
	}
	return buf.String()
}

// explicitToHexString implements ToHexString.
func (ctx *execContext) explicitToHexString(obj *entity.Object) (*entity.Object, *kernel.Error) {
	switch obj.Type {
	case entity.TypeInteger:
		digits := strconv.FormatUint(obj.Int, 16)
		if pad := int(ctx.intWidth()>>2) - len(digits); pad > 0 {
			digits = string(bytes.Repeat([]byte{'0'}, pad)) + digits
		}
		return entity.NewString("0x" + digits), nil
	case entity.TypeBuffer:
		return entity.NewString(hexList(obj.Bytes, ",", "0x")), nil
	case entity.TypeString:
		return obj, nil
	}
	return nil, errConversion.WithDetail(obj.Type.String() + " to hex String")
}

// explicitToDecimalString implements ToDecimalString.
func (ctx *execContext) explicitToDecimalString(obj *entity.Object) (*entity.Object, *kernel.Error) {
	switch obj.Type {
	case entity.TypeInteger:
		return entity.NewString(strconv.FormatUint(obj.Int, 10)), nil
	case entity.TypeBuffer:
		var buf bytes.Buffer
		for i, b := range obj.Bytes {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(strconv.FormatUint(uint64(b), 10))
		}
		return entity.NewString(buf.String()), nil
	case entity.TypeString:
		return obj, nil
	}
	return nil, errConversion.WithDetail(obj.Type.String() + " to decimal String")
}

// explicitToInteger implements ToInteger. Strings may hold a decimal value
// or a hex value with a 0x prefix.
func (ctx *execContext) explicitToInteger(obj *entity.Object) (*entity.Object, *kernel.Error) {
	switch obj.Type {
	case entity.TypeInteger:
		return obj, nil
	case entity.TypeBuffer:
		return entity.NewInteger(ctx.bufferToInt(obj.Bytes)), nil
	case entity.TypeString:
		str := string(obj.Bytes)
		if len(str) == 0 {
			return nil, errEmptyString
		}

		base := 10
		if len(str) > 2 && str[0] == '0' && (str[1] == 'x' || str[1] == 'X') {
			str, base = str[2:], 16
		}

		v, err := strconv.ParseUint(str, base, int(ctx.intWidth()))
		if err != nil {
			return nil, errConversion.WithDetail("ToInteger(\"" + string(obj.Bytes) + "\")")
		}
		return entity.NewInteger(v), nil
	}
	return nil, errConversion.WithDetail(obj.Type.String() + " to Integer")
}

// explicitToBuffer implements ToBuffer.
func (ctx *execContext) explicitToBuffer(obj *entity.Object) (*entity.Object, *kernel.Error) {
	switch obj.Type {
	case entity.TypeBuffer:
		return obj, nil
	case entity.TypeString:
		if len(obj.Bytes) == 0 {
			return entity.NewBuffer(nil), nil
		}
	}
	return ctx.convert(obj, entity.TypeBuffer)
}
