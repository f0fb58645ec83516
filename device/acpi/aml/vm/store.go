package vm

import (
	"amlkit/device/acpi/aml/entity"
	"amlkit/kernel"
	"amlkit/kernel/kfmt"
	"io"
)

// storeSource returns the object written by a store operation. Data objects
// are copied so the destination never aliases the source.
func (ctx *execContext) storeSource(src *entity.Object) (*entity.Object, *kernel.Error) {
	for {
		if src == nil {
			return nil, errUninitialized
		}

		switch src.Type {
		case entity.TypeAlias:
			src = src.Target
		case entity.TypeUnresolvedName:
			target, err := ctx.vm.ns.ResolveUnresolved(src)
			if err != nil {
				return nil, err
			}
			src = target
		case entity.TypeReference:
			if src.Ref.Kind == entity.RefLocal || src.Ref.Kind == entity.RefArg {
				src = *src.Ref.Slot
				continue
			}
			return src.Clone(), nil
		case entity.TypeFieldUnit, entity.TypeBufferField:
			return ctx.operand(src)
		case entity.TypeInteger, entity.TypeString, entity.TypeBuffer, entity.TypePackage:
			return src.Clone(), nil
		default:
			return src, nil
		}
	}
}

// condStore writes value to the target arg at index unless the target was
// omitted.
func (ctx *execContext) condStore(value *entity.Object, target *entity.Object) *kernel.Error {
	if target == nil {
		return nil
	}
	return ctx.store(value, target)
}

// store writes src to dst using the destination-specific rules: locals are
// overwritten, args follow object references, named data objects keep their
// type and field units perform a region write.
func (ctx *execContext) store(src, dst *entity.Object) *kernel.Error {
	value, err := ctx.storeSource(src)
	if err != nil {
		return err
	}

	for {
		if dst == nil {
			return nil
		}

		switch dst.Type {
		case entity.TypeAlias:
			dst = dst.Target
		case entity.TypeUnresolvedName:
			target, err := ctx.vm.ns.ResolveUnresolved(dst)
			if err != nil {
				return err
			}
			dst = target
		case entity.TypeReference:
			switch dst.Ref.Kind {
			case entity.RefLocal:
				holdSlot(dst.Ref.Slot, value)
				return nil
			case entity.RefArg:
				if cur := *dst.Ref.Slot; cur != nil && cur.Type == entity.TypeReference {
					dst = cur
					continue
				}
				holdSlot(dst.Ref.Slot, value)
				return nil
			case entity.RefIndex:
				return ctx.storeIndex(value, dst.Ref)
			default:
				dst = dst.Ref.Target
			}
		case entity.TypeDebug:
			ctx.writeDebug(ctx.vm.host.Debug(), value, 0)
			return nil
		case entity.TypeFieldUnit:
			return ctx.writeField(dst, value)
		case entity.TypeBufferField:
			return ctx.writeBufferField(dst, value)
		case entity.TypeInteger, entity.TypeString, entity.TypeBuffer:
			if !dst.Linked() {
				// Stores to constants are ignored.
				return nil
			}
			return ctx.storeNamedData(value, dst)
		case entity.TypePackage:
			if value.Type != entity.TypePackage {
				return errBadStoreTarget.WithDetail(value.Type.String() + " to Package")
			}
			dst.Elements = value.Elements
			return nil
		case entity.TypeUninitialized:
			if dst.Linked() {
				copyData(dst, value)
			}
			return nil
		default:
			return errBadStoreTarget.WithDetail(dst.Type.String())
		}
	}
}

// storeNamedData converts value to the type of the named object dst and
// updates dst in place.
func (ctx *execContext) storeNamedData(value, dst *entity.Object) *kernel.Error {
	if value.Type == entity.TypePackage || !isComputational(value.Type) {
		return errBadStoreTarget.WithDetail(value.Type.String() + " to " + dst.Type.String())
	}

	conv, err := ctx.convert(value, dst.Type)
	if err != nil {
		return err
	}

	switch dst.Type {
	case entity.TypeInteger:
		dst.Int = conv.Int & ctx.intMask()
	case entity.TypeString:
		dst.Bytes = append([]byte{}, conv.Bytes...)
	case entity.TypeBuffer:
		if len(conv.Bytes) > len(dst.Bytes) {
			dst.Bytes = make([]byte, len(conv.Bytes))
		}
		n := copy(dst.Bytes, conv.Bytes)
		for i := n; i < len(dst.Bytes); i++ {
			dst.Bytes[i] = 0
		}
	}
	return nil
}

// storeIndex writes value to the element addressed by an Index reference.
func (ctx *execContext) storeIndex(value *entity.Object, ref *entity.Reference) *kernel.Error {
	target := ref.Target
	switch target.Type {
	case entity.TypeBuffer, entity.TypeString:
		if ref.Index >= uint64(len(target.Bytes)) {
			return errIndexOutOfBounds
		}
		v, err := ctx.toInteger(value)
		if err != nil {
			return err
		}
		target.Bytes[ref.Index] = uint8(v)
		return nil
	case entity.TypePackage:
		if ref.Index >= uint64(len(target.Elements)) {
			return errIndexOutOfBounds
		}
		target.Elements[ref.Index] = value
		return nil
	}
	return errBadStoreTarget.WithDetail("index of " + target.Type.String())
}

// copyObject implements CopyObject: dst takes the type and value of src.
func (ctx *execContext) copyObject(src, dst *entity.Object) *kernel.Error {
	value, err := ctx.storeSource(src)
	if err != nil {
		return err
	}

	for {
		if dst == nil {
			return nil
		}

		switch dst.Type {
		case entity.TypeUnresolvedName:
			target, err := ctx.vm.ns.ResolveUnresolved(dst)
			if err != nil {
				return err
			}
			dst = target
		case entity.TypeReference:
			switch dst.Ref.Kind {
			case entity.RefLocal, entity.RefArg:
				holdSlot(dst.Ref.Slot, value)
				return nil
			case entity.RefIndex:
				return ctx.storeIndex(value, dst.Ref)
			default:
				dst = dst.Ref.Target
			}
		case entity.TypeInteger, entity.TypeString, entity.TypeBuffer, entity.TypePackage, entity.TypeUninitialized:
			if !isComputational(value.Type) {
				return errUnsupported.WithDetail("CopyObject of " + value.Type.String())
			}
			copyData(dst, value)
			return nil
		default:
			return ctx.store(value, dst)
		}
	}
}

// copyData replaces the type and payload of a data object.
func copyData(dst, value *entity.Object) {
	dst.Type = value.Type
	dst.Int = value.Int
	dst.Bytes = value.Bytes
	dst.Elements = value.Elements
}

// isComputational returns true for the data types that conversions and
// stores operate on.
func isComputational(typ entity.ObjectType) bool {
	switch typ {
	case entity.TypeInteger, entity.TypeString, entity.TypeBuffer, entity.TypePackage:
		return true
	}
	return false
}

// writeDebug formats value for the Debug object.
func (ctx *execContext) writeDebug(w io.Writer, value *entity.Object, depth int) {
	if w == nil {
		return
	}

	for i := 0; i < depth; i++ {
		kfmt.Fprintf(w, "  ")
	}

	switch value.Type {
	case entity.TypeInteger:
		kfmt.Fprintf(w, "0x%x\n", value.Int)
	case entity.TypeString:
		kfmt.Fprintf(w, "%s\n", value.Bytes)
	case entity.TypeBuffer:
		kfmt.Fprintf(w, "Buffer(%d) {%s}\n", len(value.Bytes), hexList(value.Bytes, ", ", "0x"))
	case entity.TypePackage:
		kfmt.Fprintf(w, "Package(%d)\n", len(value.Elements))
		for _, el := range value.Elements {
			if el == nil {
				el = entity.NewUninitialized()
			}
			ctx.writeDebug(w, el, depth+1)
		}
	case entity.TypeReference:
		switch value.Ref.Kind {
		case entity.RefIndex:
			kfmt.Fprintf(w, "Reference to Index(%s, %d)\n", value.Ref.Target.Type.String(), value.Ref.Index)
		case entity.RefNamed:
			kfmt.Fprintf(w, "Reference to %s\n", value.Ref.Target.Path())
		default:
			kfmt.Fprintf(w, "Reference to slot %d\n", value.Ref.Index)
		}
	default:
		if value.Linked() {
			kfmt.Fprintf(w, "[%s] %s\n", value.Type.String(), value.Path())
		} else {
			kfmt.Fprintf(w, "[%s]\n", value.Type.String())
		}
	}
}
