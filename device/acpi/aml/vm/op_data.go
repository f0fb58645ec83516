package vm

import (
	"amlkit/device/acpi/aml/entity"
	"amlkit/device/acpi/aml/parser"
	"amlkit/kernel"
)

// Zero used as a target means that the result is discarded.
func vmOpZero(_ *execContext, st *parser.Statement) *kernel.Error {
	if !st.ArgCtx.IsReference() {
		st.Result = entity.NewInteger(0)
	}
	return nil
}

// Args: value?
// Returns: the constant encoded by the opcode
func vmOpConst(ctx *execContext, st *parser.Statement) *kernel.Error {
	switch st.Op {
	case entity.OpOne:
		st.Result = entity.NewInteger(1)
	case entity.OpOnes:
		st.Result = entity.NewInteger(ctx.intMask())
	case entity.OpRevision:
		st.Result = entity.NewInteger(interpreterRevision)
	default:
		st.Result = st.Args[0]
	}
	return nil
}

// Args: size, initializer
// Returns: a Buffer of the requested size holding the initializer bytes
func vmOpBuffer(ctx *execContext, st *parser.Statement) *kernel.Error {
	size, err := ctx.toInteger(st.Args[0])
	if err != nil {
		return err
	}

	init := st.Args[1].Bytes
	if size < uint64(len(init)) {
		size = uint64(len(init))
	}
	if size > maxBufferSize {
		return errIndexOutOfBounds.WithDetail("buffer size too large")
	}

	data := make([]byte, size)
	copy(data, init)
	st.Result = entity.NewBuffer(data)
	return nil
}

// maxBufferSize bounds the size of buffers created by AML.
const maxBufferSize = 1 << 24

// Args: element count, elements
// Returns: a Package padded with Uninitialized elements
func vmOpPackage(ctx *execContext, st *parser.Statement) *kernel.Error {
	count := st.IntArg(0)
	if st.Op == entity.OpVarPackage {
		var err *kernel.Error
		if count, err = ctx.toInteger(st.Args[0]); err != nil {
			return err
		}
	}
	if count > maxBufferSize {
		return errIndexOutOfBounds.WithDetail("package size too large")
	}

	elements := st.Elements
	if uint64(len(elements)) > count {
		elements = elements[:count]
	}
	for uint64(len(elements)) < count {
		elements = append(elements, entity.NewUninitialized())
	}

	st.Result = entity.NewPackage(elements)
	st.Elements = nil
	return nil
}

// Returns: the Debug object
func vmOpDebug(_ *execContext, st *parser.Statement) *kernel.Error {
	st.Result = entity.NewDebug()
	return nil
}

// Returns: the host timer in 100ns units
func vmOpTimer(ctx *execContext, st *parser.Statement) *kernel.Error {
	st.Result = entity.NewInteger(ctx.vm.host.Timer())
	return nil
}

// vmOpNamePath resolves a name that is not invoked as a method. The result
// depends on the position of the name: package elements hold forward
// references, reference positions yield the object itself (or a forward
// reference if the object does not exist yet) and value positions read
// field units.
func vmOpNamePath(ctx *execContext, st *parser.Statement) *kernel.Error {
	switch {
	case st.ArgCtx == parser.ArgPackageElements:
		st.Result = entity.NewUnresolvedName(st.Path, ctx.scope)
		return nil
	case st.ArgCtx.IsReference():
		if obj := ctx.vm.ns.Find(ctx.scope, st.Path, true); obj != nil {
			st.Result = obj
		} else {
			st.Result = entity.NewUnresolvedName(st.Path, ctx.scope)
		}
		return nil
	}

	obj := ctx.vm.ns.Find(ctx.scope, st.Path, true)
	if obj == nil {
		return errNotFound.WithDetail(st.Path.String())
	}

	if obj.Type == entity.TypeFieldUnit || obj.Type == entity.TypeBufferField {
		value, err := ctx.operand(obj)
		if err != nil {
			return err
		}
		obj = value
	}

	st.Result = obj
	return nil
}

// Returns: the contents of a local or arg slot or, in reference positions,
// a reference to the slot
func vmOpLocalArg(ctx *execContext, st *parser.Statement) *kernel.Error {
	if ctx.frame == nil {
		return errUninitialized.WithDetail(st.Op.String() + " outside of a method")
	}

	var (
		slot  **entity.Object
		kind  entity.RefKind
		index uint8
	)
	if entity.OpIsLocalArg(st.Op) {
		index = uint8(st.Op - entity.OpLocal0)
		slot, kind = &ctx.frame.locals[index], entity.RefLocal
	} else {
		index = uint8(st.Op - entity.OpArg0)
		slot, kind = &ctx.frame.args[index], entity.RefArg
	}

	if st.ArgCtx.IsReference() {
		st.Result = entity.NewSlotReference(kind, slot, index)
		return nil
	}

	st.Result = *slot
	if st.Result == nil {
		st.Result = entity.NewUninitialized()
	}
	return nil
}
