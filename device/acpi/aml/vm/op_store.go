package vm

import (
	"amlkit/device/acpi/aml/entity"
	"amlkit/device/acpi/aml/parser"
	"amlkit/kernel"
)

// Args: src dst
// Store src into dst applying any required conversion.
func vmOpStore(ctx *execContext, st *parser.Statement) *kernel.Error {
	if err := ctx.store(st.Args[0], st.Args[1]); err != nil {
		return err
	}
	st.Result = st.Args[0]
	return nil
}

// Args: src dst
// Copy src into dst replacing the type of dst.
func vmOpCopyObject(ctx *execContext, st *parser.Statement) *kernel.Error {
	if err := ctx.copyObject(st.Args[0], st.Args[1]); err != nil {
		return err
	}
	st.Result = st.Args[0]
	return nil
}

// refOf returns a reference to the object named by a SuperName arg. It
// returns nil if the name does not resolve.
func (ctx *execContext) refOf(obj *entity.Object) *entity.Object {
	switch {
	case obj == nil:
		return nil
	case obj.Type == entity.TypeReference:
		return obj
	case obj.Type == entity.TypeUnresolvedName:
		target, err := ctx.vm.ns.ResolveUnresolved(obj)
		if err != nil {
			return nil
		}
		obj = target
	}
	return entity.NewReference(entity.RefNamed, obj.Deref(), 0)
}

// Args: obj
// Returns: a reference to obj
func vmOpRefOf(ctx *execContext, st *parser.Statement) *kernel.Error {
	if st.Result = ctx.refOf(st.Args[0]); st.Result == nil {
		return errNotFound.WithDetail("RefOf target")
	}
	return nil
}

// Args: obj, store?
// Returns: Ones and stores a reference to obj if obj exists; Zero otherwise
func vmOpCondRefOf(ctx *execContext, st *parser.Statement) *kernel.Error {
	ref := ctx.refOf(st.Args[0])
	if ref != nil && (ref.Ref.Kind == entity.RefLocal || ref.Ref.Kind == entity.RefArg) {
		if cur := *ref.Ref.Slot; cur == nil || cur.Type == entity.TypeUninitialized {
			ref = nil
		}
	}

	if ref == nil {
		st.Result = ctx.boolValue(false)
		return nil
	}

	st.Result = ctx.boolValue(true)
	return ctx.condStore(ref, st.Args[1])
}

// Args: ref
// Returns: the object pointed to by ref. A String is treated as a path.
func vmOpDerefOf(ctx *execContext, st *parser.Statement) *kernel.Error {
	obj := st.Args[0]
	if obj != nil && obj.Type == entity.TypeString {
		target, err := ctx.vm.ns.Lookup(ctx.scope, string(obj.Bytes))
		if err != nil {
			return err
		}
		_ = target.Release()
		obj = target
	}

	value, err := ctx.operand(obj)
	if err != nil {
		return err
	}
	st.Result = value
	return nil
}

// Args: source, index, store?
// Returns: a reference to the element of a Buffer, String or Package
func vmOpIndex(ctx *execContext, st *parser.Statement) *kernel.Error {
	source, err := ctx.operand(st.Args[0])
	if err != nil {
		return err
	}

	index, err := ctx.toInteger(st.Args[1])
	if err != nil {
		return err
	}

	var size int
	switch source.Type {
	case entity.TypeBuffer, entity.TypeString:
		size = len(source.Bytes)
	case entity.TypePackage:
		size = len(source.Elements)
	default:
		return errTypeMismatch.WithDetail("index of " + source.Type.String())
	}
	if index >= uint64(size) {
		return errIndexOutOfBounds
	}

	st.Result = entity.NewReference(entity.RefIndex, source, index)
	return ctx.condStore(st.Result, st.Args[2])
}

// Args: obj
// Returns: the number of elements or bytes in a Package, Buffer or String
func vmOpSizeOf(ctx *execContext, st *parser.Statement) *kernel.Error {
	obj, err := ctx.operand(st.Args[0])
	if err != nil {
		return err
	}

	switch obj.Type {
	case entity.TypeBuffer, entity.TypeString:
		st.Result = entity.NewInteger(uint64(len(obj.Bytes)))
	case entity.TypePackage:
		st.Result = entity.NewInteger(uint64(len(obj.Elements)))
	default:
		return errTypeMismatch.WithDetail("SizeOf " + obj.Type.String())
	}
	return nil
}

// Args: obj
// Returns: the type code of obj
func vmOpObjectType(ctx *execContext, st *parser.Statement) *kernel.Error {
	obj, err := ctx.resolveSuperName(st.Args[0])
	if err != nil {
		return err
	}
	if obj.Type == entity.TypeReference {
		if obj, err = ctx.derefReference(obj); err != nil {
			return err
		}
	}

	typ := entity.TypeUninitialized
	if obj != nil {
		typ = obj.Deref().Type
	}
	if typ > entity.TypeDebug {
		typ = entity.TypeUninitialized
	}

	st.Result = entity.NewInteger(uint64(typ))
	return nil
}

// The Match comparison operators.
const (
	matchTrue = iota
	matchEqual
	matchLessEqual
	matchLess
	matchGreaterEqual
	matchGreater
)

// Args: package, op1, obj1, op2, obj2, start index
// Returns: the index of the first element that satisfies both comparisons
// or Ones
func vmOpMatch(ctx *execContext, st *parser.Statement) *kernel.Error {
	pkg, err := ctx.operand(st.Args[0])
	if err != nil {
		return err
	}
	if pkg.Type != entity.TypePackage {
		return errTypeMismatch.WithDetail("Match over " + pkg.Type.String())
	}

	obj1, err := ctx.operand(st.Args[2])
	if err != nil {
		return err
	}
	obj2, err := ctx.operand(st.Args[4])
	if err != nil {
		return err
	}
	start, err := ctx.toInteger(st.Args[5])
	if err != nil {
		return err
	}

	op1, op2 := st.IntArg(1), st.IntArg(3)
	if op1 > matchGreater || op2 > matchGreater {
		return errTypeMismatch.WithDetail("invalid Match operator")
	}

	for i := start; i < uint64(len(pkg.Elements)); i++ {
		el, err := ctx.operand(pkg.Elements[i])
		if err != nil || !isComputational(el.Type) || el.Type == entity.TypePackage {
			continue
		}

		ok1, err := ctx.matchElement(el, op1, obj1)
		if err != nil {
			return err
		}
		ok2, err := ctx.matchElement(el, op2, obj2)
		if err != nil {
			return err
		}

		if ok1 && ok2 {
			st.Result = entity.NewInteger(i)
			return nil
		}
	}

	st.Result = entity.NewInteger(ctx.intMask())
	return nil
}

func (ctx *execContext) matchElement(el *entity.Object, op uint64, obj *entity.Object) (bool, *kernel.Error) {
	if op == matchTrue {
		return true, nil
	}

	cmp, err := ctx.compare(el, obj)
	if err != nil {
		// Elements that cannot be converted never match.
		return false, nil
	}

	switch op {
	case matchEqual:
		return cmp == 0, nil
	case matchLessEqual:
		return cmp <= 0, nil
	case matchLess:
		return cmp < 0, nil
	case matchGreaterEqual:
		return cmp >= 0, nil
	default:
		return cmp > 0, nil
	}
}

// Args: source, index, length, store?
// Returns: the requested slice of a String or Buffer
func vmOpMid(ctx *execContext, st *parser.Statement) *kernel.Error {
	source, err := ctx.operand(st.Args[0])
	if err != nil {
		return err
	}
	if source.Type != entity.TypeString && source.Type != entity.TypeBuffer {
		if source, err = ctx.convert(source, entity.TypeBuffer); err != nil {
			return err
		}
	}

	index, length, err := ctx.toIntArgs2(st.Args[1], st.Args[2])
	if err != nil {
		return err
	}

	size := uint64(len(source.Bytes))
	if index > size {
		index = size
	}
	if length > size-index {
		length = size - index
	}

	data := append([]byte{}, source.Bytes[index:index+length]...)
	if source.Type == entity.TypeString {
		st.Result = entity.NewString(string(data))
	} else {
		st.Result = entity.NewBuffer(data)
	}
	return ctx.condStore(st.Result, st.Args[3])
}

// Args: left, right, store?
// Returns: the concatenation of left and right using the type of left
func vmOpConcat(ctx *execContext, st *parser.Statement) *kernel.Error {
	left, err := ctx.operand(st.Args[0])
	if err != nil {
		return err
	}

	var right *entity.Object
	switch left.Type {
	case entity.TypeInteger:
		if right, err = ctx.toData(st.Args[1], entity.TypeInteger); err != nil {
			return err
		}
		data := append(ctx.intBytes(left.Int), ctx.intBytes(right.Int)...)
		st.Result = entity.NewBuffer(data)
	case entity.TypeString:
		if right, err = ctx.toData(st.Args[1], entity.TypeString); err != nil {
			return err
		}
		st.Result = entity.NewString(string(left.Bytes) + string(right.Bytes))
	case entity.TypeBuffer:
		if right, err = ctx.toData(st.Args[1], entity.TypeBuffer); err != nil {
			return err
		}
		data := append(append([]byte{}, left.Bytes...), right.Bytes...)
		st.Result = entity.NewBuffer(data)
	default:
		return errTypeMismatch.WithDetail("Concat of " + left.Type.String())
	}

	return ctx.condStore(st.Result, st.Args[2])
}

// resourceEndTag is the small resource descriptor that terminates a
// resource template.
const resourceEndTag = 0x79

// Args: left, right, store?
// Returns: the concatenation of two resource templates with a single end
// tag
func vmOpConcatRes(ctx *execContext, st *parser.Statement) *kernel.Error {
	left, err := ctx.toData(st.Args[0], entity.TypeBuffer)
	if err != nil {
		return err
	}
	right, err := ctx.toData(st.Args[1], entity.TypeBuffer)
	if err != nil {
		return err
	}

	data := append(append([]byte{}, trimEndTag(left.Bytes)...), trimEndTag(right.Bytes)...)
	st.Result = entity.NewBuffer(append(data, resourceEndTag, 0))
	return ctx.condStore(st.Result, st.Args[2])
}

func trimEndTag(data []byte) []byte {
	if n := len(data); n >= 2 && data[n-2] == resourceEndTag {
		return data[:n-2]
	}
	return data
}

// explicitConversion evaluates Args[0], converts it with fn and stores the
// result to the optional target at Args[1].
func (ctx *execContext) explicitConversion(st *parser.Statement, fn func(*entity.Object) (*entity.Object, *kernel.Error)) *kernel.Error {
	value, err := ctx.operand(st.Args[0])
	if err != nil {
		return err
	}

	if st.Result, err = fn(value); err != nil {
		return err
	}
	return ctx.condStore(st.Result, st.Args[1])
}

// Args: value, store?
func vmOpToBuffer(ctx *execContext, st *parser.Statement) *kernel.Error {
	return ctx.explicitConversion(st, ctx.explicitToBuffer)
}

// Args: value, store?
func vmOpToDecimalString(ctx *execContext, st *parser.Statement) *kernel.Error {
	return ctx.explicitConversion(st, ctx.explicitToDecimalString)
}

// Args: value, store?
func vmOpToHexString(ctx *execContext, st *parser.Statement) *kernel.Error {
	return ctx.explicitConversion(st, ctx.explicitToHexString)
}

// Args: value, store?
func vmOpToInteger(ctx *execContext, st *parser.Statement) *kernel.Error {
	return ctx.explicitConversion(st, ctx.explicitToInteger)
}

// Args: buffer, length, store?
// Returns: a String built from the buffer bytes up to the first null byte
// or length bytes
func vmOpToString(ctx *execContext, st *parser.Statement) *kernel.Error {
	buf, err := ctx.toData(st.Args[0], entity.TypeBuffer)
	if err != nil {
		return err
	}

	limit, err := ctx.toInteger(st.Args[1])
	if err != nil {
		return err
	}

	data := buf.Bytes
	if limit < uint64(len(data)) {
		data = data[:limit]
	}
	for i, b := range data {
		if b == 0 {
			data = data[:i]
			break
		}
	}

	st.Result = entity.NewString(string(data))
	return ctx.condStore(st.Result, st.Args[2])
}
