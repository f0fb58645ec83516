package vm

import (
	"amlkit/device/acpi/aml/entity"
	"amlkit/device/acpi/aml/parser"
	"amlkit/device/acpi/table"
	"amlkit/kernel"
	"encoding/binary"
)

// Args: source, target
// Load the definition block held by an operation region, a field unit or a
// buffer and store its DdbHandle to target.
func vmOpLoad(ctx *execContext, st *parser.Statement) *kernel.Error {
	source := ctx.vm.ns.Find(ctx.scope, st.PathArg(0), true)
	if source == nil {
		return errNotFound.WithDetail(st.PathArg(0).String())
	}

	data, err := ctx.tableBytes(source)
	if err != nil {
		return err
	}

	handle, loadErr := ctx.vm.loadBlock(data)
	if loadErr != nil {
		return loadErr.Err
	}

	st.Result = handle
	return ctx.condStore(handle, st.Args[1])
}

// tableBytes returns the contents of the definition block stored in source.
func (ctx *execContext) tableBytes(source *entity.Object) ([]byte, *kernel.Error) {
	switch source.Type {
	case entity.TypeRegion:
		return ctx.readRegionTable(source)
	case entity.TypeFieldUnit, entity.TypeBuffer, entity.TypeBufferField:
		value, err := ctx.toData(source, entity.TypeBuffer)
		if err != nil {
			return nil, err
		}
		return value.Bytes, nil
	default:
		return nil, errTypeMismatch.WithDetail("cannot load a table from a " + source.Type.String())
	}
}

// readRegionTable reads the table header from the start of region and then
// the rest of the table.
func (ctx *execContext) readRegionTable(region *entity.Object) ([]byte, *kernel.Error) {
	access, err := ctx.regionAccessor(region)
	if err != nil {
		return nil, err
	}

	region.Region.Lock.Lock()
	defer region.Region.Lock.Unlock()

	read := func(dst []byte, offset uint64) *kernel.Error {
		for i := range dst {
			v, err := access.read(offset+uint64(i), 8)
			if err != nil {
				return err
			}
			dst[i] = uint8(v)
		}
		return nil
	}

	header := make([]byte, table.HeaderSize)
	if err = read(header, 0); err != nil {
		return nil, err
	}

	length := uint64(binary.LittleEndian.Uint32(header[4:8]))
	if length < table.HeaderSize || length > region.Region.Length {
		return nil, errFieldOutOfRange.WithDetail("table length exceeds its region")
	}

	data := make([]byte, length)
	copy(data, header)
	if err = read(data[table.HeaderSize:], table.HeaderSize); err != nil {
		return nil, err
	}
	return data, nil
}

// Args: handle
// Remove the objects created by a Load.
func vmOpUnload(ctx *execContext, st *parser.Statement) *kernel.Error {
	handle, err := ctx.operand(st.Args[0])
	if err != nil {
		return err
	}
	return ctx.vm.unloadBlock(handle)
}
