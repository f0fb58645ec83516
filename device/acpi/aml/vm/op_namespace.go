package vm

import (
	"amlkit/device/acpi/aml/entity"
	"amlkit/device/acpi/aml/parser"
	"amlkit/kernel"
)

// declare attaches obj to the namespace under the path held by the
// statement arg at index and records it in the active created-objects
// list.
func (ctx *execContext) declare(st *parser.Statement, index int, obj *entity.Object) *kernel.Error {
	parent, name, err := ctx.vm.ns.FindParent(ctx.scope, st.PathArg(index))
	if err != nil {
		return err
	}
	return ctx.attach(parent, name, obj)
}

func (ctx *execContext) attach(parent *entity.Object, name string, obj *entity.Object) *kernel.Error {
	if err := ctx.vm.ns.Attach(parent, name, obj); err != nil {
		return err
	}
	if t := ctx.tracker(); t != nil {
		t.Track(obj)
	}
	return nil
}

// enterScope switches the current scope to the target of a Scope statement.
// A scope that leaves the subtree of the executing method makes the objects
// declared under it permanent.
func (ctx *execContext) enterScope(st *parser.Statement) *kernel.Error {
	target := ctx.vm.ns.Find(ctx.scope, st.PathArg(0), true)
	if target == nil {
		return errNotFound.WithDetail(st.PathArg(0).String())
	}
	if !target.Type.IsContainer() {
		return errNotContainer.WithDetail(target.Path())
	}

	st.SavedScope = ctx.scope
	st.Scratch[1] = 0
	if ctx.escaping {
		st.Scratch[1] = 1
	}

	ctx.scope = target
	if ctx.frame != nil && !isDescendant(target, ctx.frame.method) {
		ctx.escaping = true
	}
	return nil
}

// declareContainer creates the object declared by a Device, Processor,
// PowerResource or ThermalZone statement and makes it the current scope.
func (ctx *execContext) declareContainer(st *parser.Statement) *kernel.Error {
	var obj *entity.Object

	switch st.Op {
	case entity.OpDevice:
		obj = entity.New(entity.TypeDevice)
	case entity.OpProcessor:
		obj = entity.New(entity.TypeProcessor)
		obj.Processor.ID = uint8(st.IntArg(1))
		obj.Processor.BlockAddr = uint32(st.IntArg(2))
		obj.Processor.BlockLen = uint8(st.IntArg(3))
	case entity.OpPowerRes:
		obj = entity.New(entity.TypePowerResource)
		obj.PowerRes.SystemLevel = uint8(st.IntArg(1))
		obj.PowerRes.ResourceOrder = uint16(st.IntArg(2))
	default:
		obj = entity.New(entity.TypeThermalZone)
	}

	if err := ctx.declare(st, 0, obj); err != nil {
		return err
	}

	st.SavedScope = ctx.scope
	ctx.scope = obj
	return nil
}

// Args: name, term list
// Restore the scope that was active before the statement.
func vmOpEndScope(ctx *execContext, st *parser.Statement) *kernel.Error {
	ctx.scope = st.SavedScope
	if st.Op == entity.OpScope {
		ctx.escaping = st.Scratch[1] != 0
	}
	return nil
}

// Args: name, value
func vmOpName(ctx *execContext, st *parser.Statement) *kernel.Error {
	value := st.Args[1]
	if value == nil {
		return errUninitialized.WithDetail(st.PathArg(0).String())
	}

	if value.Type == entity.TypeAlias || value.Linked() {
		target := value.Deref()
		if isComputational(target.Type) {
			value = target.Clone()
		} else {
			value = entity.NewReference(entity.RefNamed, target, 0)
		}
	}

	return ctx.declare(st, 0, value)
}

// Args: target, alias
func vmOpAlias(ctx *execContext, st *parser.Statement) *kernel.Error {
	target := ctx.vm.ns.Find(ctx.scope, st.PathArg(0), false)
	if target == nil {
		return errNotFound.WithDetail(st.PathArg(0).String())
	}

	alias := entity.NewAlias(target)
	if err := ctx.declare(st, 1, alias); err != nil {
		// The alias is not linked; destroy it to drop its target
		// reference.
		alias.AddRef()
		_ = alias.Release()
		return err
	}
	return nil
}

// Args: name, flags, body
func vmOpMethod(ctx *execContext, st *parser.Statement) *kernel.Error {
	flags := uint8(st.IntArg(1))

	obj := entity.New(entity.TypeMethod)
	obj.Method.Body = st.Args[2].Bytes
	obj.Method.TableName = ctx.dec.TableName()
	obj.Method.BodyOffset = uint32(st.Scratch[1])
	obj.Method.ArgCount = flags & 0x7
	obj.Method.Serialized = flags&0x8 != 0
	obj.Method.SyncLevel = flags >> 4
	obj.Method.Is32Bit = ctx.is32Bit

	if obj.Method.Serialized {
		mutex, err := ctx.vm.newMutex(obj.Method.SyncLevel)
		if err != nil {
			return err
		}
		mutex.AddRef()
		obj.Method.Mutex = mutex
	}

	return ctx.declare(st, 0, obj)
}

// Args: name, sync level
func vmOpMutex(ctx *execContext, st *parser.Statement) *kernel.Error {
	obj, err := ctx.vm.newMutex(uint8(st.IntArg(1)) & 0xf)
	if err != nil {
		return err
	}
	return ctx.declare(st, 0, obj)
}

// Args: name
func vmOpEvent(ctx *execContext, st *parser.Statement) *kernel.Error {
	obj, err := ctx.vm.newEvent()
	if err != nil {
		return err
	}
	return ctx.declare(st, 0, obj)
}

// Args: name, space, offset, length
func vmOpOpRegion(ctx *execContext, st *parser.Statement) *kernel.Error {
	offset, length, err := ctx.toIntArgs2(st.Args[2], st.Args[3])
	if err != nil {
		return err
	}

	obj := entity.New(entity.TypeRegion)
	obj.Region.Space = entity.RegionSpace(st.IntArg(1))
	obj.Region.Offset = offset
	obj.Region.Length = length
	obj.SetFinalizer(ctx.vm.destroyRegion)

	return ctx.declare(st, 0, obj)
}

// Args (Field): region, flags, field list
// Args (IndexField): index, data, flags, field list
// Args (BankField): region, bank, bank value, flags, field list
func vmOpField(ctx *execContext, st *parser.Statement) *kernel.Error {
	var (
		template entity.FieldUnit
		region   *entity.Object
		flags    uint64
		err      *kernel.Error
	)

	switch st.Op {
	case entity.OpField:
		if region, err = ctx.findTyped(st.PathArg(0), entity.TypeRegion); err != nil {
			return err
		}
		flags = st.IntArg(1)
	case entity.OpIndexField:
		template.Kind = entity.FieldKindIndex
		if template.IndexReg, err = ctx.findTyped(st.PathArg(0), entity.TypeFieldUnit); err != nil {
			return err
		}
		if template.DataReg, err = ctx.findTyped(st.PathArg(1), entity.TypeFieldUnit); err != nil {
			return err
		}
		flags = st.IntArg(2)
	default:
		template.Kind = entity.FieldKindBank
		if region, err = ctx.findTyped(st.PathArg(0), entity.TypeRegion); err != nil {
			return err
		}
		if template.BankReg, err = ctx.findTyped(st.PathArg(1), entity.TypeFieldUnit); err != nil {
			return err
		}
		if template.BankValue, err = ctx.toInteger(st.Args[2]); err != nil {
			return err
		}
		flags = st.IntArg(3)
	}

	template.Lock = flags&0x10 != 0
	template.UpdateRule = entity.FieldUpdateRule((flags >> 5) & 0x3)

	for _, el := range st.Fields {
		if region != nil && uint64(el.BitOffset)+uint64(el.BitLength) > region.Region.Length*8 {
			return errFieldOutOfRange.WithDetail(el.Name)
		}

		unit := template
		unit.AccessType = el.AccessType
		unit.AccessAttrib = el.AccessAttrib
		unit.AccessLength = el.AccessLength
		unit.BitOffset = el.BitOffset
		unit.BitLength = el.BitLength
		unit.Connection = el.Connection

		if err = ctx.attach(ctx.scope, el.Name, entity.NewFieldUnit(region, unit)); err != nil {
			return err
		}
	}

	return nil
}

// findTyped resolves path from the current scope and checks the type of the
// resolved object.
func (ctx *execContext) findTyped(path entity.Path, typ entity.ObjectType) (*entity.Object, *kernel.Error) {
	obj := ctx.vm.ns.Find(ctx.scope, path, true)
	switch {
	case obj == nil:
		return nil, errNotFound.WithDetail(path.String())
	case obj.Type != typ:
		return nil, errTypeMismatch.WithDetail(obj.Path() + " is not a " + typ.String())
	}
	return obj, nil
}

// Args: buffer, index, name
// Declare a bit, byte, word, dword or qword field over a buffer.
func vmOpCreateFixedField(ctx *execContext, st *parser.Statement) *kernel.Error {
	index, err := ctx.toInteger(st.Args[1])
	if err != nil {
		return err
	}

	var bitOffset, bitLength uint64
	switch st.Op {
	case entity.OpCreateBitField:
		bitOffset, bitLength = index, 1
	case entity.OpCreateByteField:
		bitOffset, bitLength = index*8, 8
	case entity.OpCreateWordField:
		bitOffset, bitLength = index*8, 16
	case entity.OpCreateDWordField:
		bitOffset, bitLength = index*8, 32
	default:
		bitOffset, bitLength = index*8, 64
	}

	return ctx.createBufferField(st, st.Args[0], bitOffset, bitLength, 2)
}

// Args: buffer, bit index, bit count, name
func vmOpCreateField(ctx *execContext, st *parser.Statement) *kernel.Error {
	bitOffset, bitLength, err := ctx.toIntArgs2(st.Args[1], st.Args[2])
	if err != nil {
		return err
	}
	return ctx.createBufferField(st, st.Args[0], bitOffset, bitLength, 3)
}

func (ctx *execContext) createBufferField(st *parser.Statement, source *entity.Object, bitOffset, bitLength uint64, nameIndex int) *kernel.Error {
	buf, err := ctx.operand(source)
	if err != nil {
		return err
	}
	if buf.Type != entity.TypeBuffer {
		return errTypeMismatch.WithDetail("buffer field source is a " + buf.Type.String())
	}
	if bitLength == 0 || bitOffset+bitLength > uint64(len(buf.Bytes))*8 {
		return errBufferFieldBounds.WithDetail(st.PathArg(nameIndex).String())
	}

	field := entity.NewBufferField(buf, bitOffset, bitLength)
	if err = ctx.declare(st, nameIndex, field); err != nil {
		field.AddRef()
		_ = field.Release()
		return err
	}
	return nil
}

// Args: name, type, arg count
// External declarations only inform the disassembler.
func vmOpExternal(_ *execContext, _ *parser.Statement) *kernel.Error {
	return nil
}
