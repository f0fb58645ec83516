package vm

import (
	"amlkit/device/acpi/aml/entity"
	"amlkit/device/acpi/osl"
	"amlkit/kernel"
	"encoding/binary"
)

// fieldWindow describes the aligned access windows that cover a field unit.
type fieldWindow struct {
	// width is the access width in bits.
	width uint32

	// start is the byte offset of the first window.
	start uint64

	// count is the number of windows.
	count uint64

	// shift is the offset of the unit's first bit within the first
	// window.
	shift uint64
}

func newFieldWindow(unit *entity.FieldUnit) fieldWindow {
	width := unit.AccessWidth()
	first := uint64(unit.BitOffset) / uint64(width)
	last := (uint64(unit.BitOffset) + uint64(unit.BitLength) + uint64(width) - 1) / uint64(width)
	if last == first {
		last++
	}

	return fieldWindow{
		width: width,
		start: first * uint64(width/8),
		count: last - first,
		shift: uint64(unit.BitOffset) % uint64(width),
	}
}

// size returns the number of bytes covered by all windows.
func (w fieldWindow) size() uint64 { return w.count * uint64(w.width/8) }

// offset returns the byte offset of window i.
func (w fieldWindow) offset(i uint64) uint64 { return w.start + i*uint64(w.width/8) }

// readField reads the value of a field unit. Values that fit in an Integer
// are returned as Integers; larger ones as Buffers.
func (ctx *execContext) readField(obj *entity.Object) (*entity.Object, *kernel.Error) {
	unit := obj.Field
	win := newFieldWindow(unit)
	raw := make([]byte, win.size())

	err := ctx.accessField(unit, func(access windowAccessor) *kernel.Error {
		for i := uint64(0); i < win.count; i++ {
			v, err := access.read(win.offset(i), win.width)
			if err != nil {
				return err
			}
			putWindow(raw, i, win.width, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ctx.bitsValue(getBits(raw, win.shift, uint64(unit.BitLength)), uint64(unit.BitLength)), nil
}

// writeField writes value to a field unit. Bits of the accessed windows that
// are outside the unit are preserved or forced according to the unit's
// update rule.
func (ctx *execContext) writeField(obj *entity.Object, value *entity.Object) *kernel.Error {
	unit := obj.Field
	data, err := ctx.fieldBytes(value, uint64(unit.BitLength))
	if err != nil {
		return err
	}

	win := newFieldWindow(unit)
	raw := make([]byte, win.size())

	return ctx.accessField(unit, func(access windowAccessor) *kernel.Error {
		for i := uint64(0); i < win.count; i++ {
			if !win.partial(i, uint64(unit.BitLength)) {
				continue
			}

			var v uint64
			switch unit.UpdateRule {
			case entity.FieldUpdateRuleWriteAsOnes:
				v = ^uint64(0)
			case entity.FieldUpdateRuleWriteAsZeros:
			default:
				if v, err = access.read(win.offset(i), win.width); err != nil {
					return err
				}
			}
			putWindow(raw, i, win.width, v)
		}

		setBits(raw, win.shift, uint64(unit.BitLength), data)

		for i := uint64(0); i < win.count; i++ {
			if err := access.write(win.offset(i), win.width, getWindow(raw, i, win.width)); err != nil {
				return err
			}
		}
		return nil
	})
}

// partial returns true if window i holds bits outside a unit of the given
// bit length.
func (w fieldWindow) partial(i, bitLength uint64) bool {
	lo := i * uint64(w.width)
	hi := lo + uint64(w.width)
	return lo < w.shift || hi > w.shift+bitLength
}

// windowAccessor issues single accesses of a field unit's width.
type windowAccessor interface {
	read(offset uint64, width uint32) (uint64, *kernel.Error)
	write(offset uint64, width uint32, value uint64) *kernel.Error
}

// accessField performs the locking and register selection required by unit
// and invokes fn with an accessor for the unit's windows.
func (ctx *execContext) accessField(unit *entity.FieldUnit, fn func(windowAccessor) *kernel.Error) *kernel.Error {
	if unit.Kind == entity.FieldKindIndex {
		if unit.Lock {
			if err := ctx.lockGlobal(); err != nil {
				return err
			}
			defer ctx.unlockGlobal()
		}
		return fn(&indexAccessor{ctx: ctx, index: unit.IndexReg, data: unit.DataReg})
	}

	region := unit.Region
	access, err := ctx.regionAccessor(region)
	if err != nil {
		return err
	}

	// The bank register usually lives in the region it selects a bank of
	// so it is written before the region lock is taken.
	if unit.Kind == entity.FieldKindBank {
		if err := ctx.writeField(unit.BankReg, entity.NewInteger(unit.BankValue)); err != nil {
			return err
		}
	}

	region.Region.Lock.Lock()
	defer region.Region.Lock.Unlock()

	if region.Region.Space == entity.RegionSpacePCIConfig {
		ctx.vm.host.AcquirePCILock()
		defer ctx.vm.host.ReleasePCILock()
	}

	if unit.Lock {
		if err := ctx.lockGlobal(); err != nil {
			return err
		}
		defer ctx.unlockGlobal()
	}

	return fn(access)
}

// regionAccessor accesses an operation region through the handler
// registered for its address space.
type regionAccessor struct {
	handler osl.RegionHandler
	region  *entity.Region
}

func (a *regionAccessor) read(offset uint64, width uint32) (uint64, *kernel.Error) {
	if offset+uint64(width/8) > a.region.Length {
		return 0, errFieldOutOfRange
	}
	return a.handler.Read(a.region.Context, offset, uint8(width))
}

func (a *regionAccessor) write(offset uint64, width uint32, value uint64) *kernel.Error {
	if offset+uint64(width/8) > a.region.Length {
		return errFieldOutOfRange
	}
	return a.handler.Write(a.region.Context, offset, uint8(width), value)
}

// regionAccessor returns an accessor for region, creating the back-end
// context on first use.
func (ctx *execContext) regionAccessor(region *entity.Object) (*regionAccessor, *kernel.Error) {
	if region == nil || region.Type != entity.TypeRegion {
		return nil, errTypeMismatch.WithDetail("field is not backed by an operation region")
	}

	r := region.Region
	handler := ctx.vm.regions[r.Space]
	if handler == nil {
		return nil, errNoRegionHandler.WithDetail(r.Space.String())
	}

	if r.Context == nil {
		if r.Space == entity.RegionSpacePCIConfig {
			r.PCI = ctx.pciAddress(region)
		}

		handle, err := handler.Create(region, r.Offset, r.Length)
		if err != nil {
			return nil, err
		}
		r.Context = handle
	}

	return &regionAccessor{handler: handler, region: r}, nil
}

// pciAddress locates the PCI function of a PciConfig region using the _ADR,
// _SEG and _BBN objects of the enclosing devices. Missing objects default to
// zero.
func (ctx *execContext) pciAddress(region *entity.Object) entity.PCIAddress {
	var addr entity.PCIAddress

	dev := region.Parent()
	for ; dev != nil && dev.Child("_ADR") == nil; dev = dev.Parent() {
	}
	if dev == nil {
		return addr
	}

	adr := ctx.evalInteger(dev.Child("_ADR"))
	addr.Device = uint8(adr >> 16)
	addr.Function = uint8(adr)

	for scope := dev; scope != nil; scope = scope.Parent() {
		if seg := scope.Child("_SEG"); seg != nil {
			addr.Segment = uint16(ctx.evalInteger(seg))
			break
		}
	}
	for scope := dev; scope != nil; scope = scope.Parent() {
		if bbn := scope.Child("_BBN"); bbn != nil {
			addr.Bus = uint8(ctx.evalInteger(bbn))
			break
		}
	}
	return addr
}

// evalInteger evaluates obj in a nested context and returns 0 on failure.
func (ctx *execContext) evalInteger(obj *entity.Object) uint64 {
	res, err := ctx.vm.executeMethod(obj, nil, entity.TypeInteger)
	if err != nil {
		return 0
	}
	return res.Int
}

// indexAccessor accesses the windows of an IndexField by writing the window
// offset to the index register and then accessing the data register.
type indexAccessor struct {
	ctx   *execContext
	index *entity.Object
	data  *entity.Object
}

func (a *indexAccessor) read(offset uint64, width uint32) (uint64, *kernel.Error) {
	if err := a.ctx.writeField(a.index, entity.NewInteger(offset)); err != nil {
		return 0, err
	}

	v, err := a.ctx.readField(a.data)
	if err != nil {
		return 0, err
	}
	if v.Type == entity.TypeBuffer {
		return leUint64(v.Bytes), nil
	}
	return v.Int, nil
}

func (a *indexAccessor) write(offset uint64, width uint32, value uint64) *kernel.Error {
	if err := a.ctx.writeField(a.index, entity.NewInteger(offset)); err != nil {
		return err
	}
	return a.ctx.writeField(a.data, entity.NewInteger(value))
}

// destroyRegion releases the back-end context of an operation region.
func (vm *VM) destroyRegion(obj *entity.Object) {
	r := obj.Region
	if r == nil || r.Context == nil {
		return
	}
	if handler := vm.regions[r.Space]; handler != nil {
		handler.Destroy(r.Context)
	}
	r.Context = nil
}

// readBufferField extracts the bits of a buffer field.
func (ctx *execContext) readBufferField(obj *entity.Object) (*entity.Object, *kernel.Error) {
	f := obj.BufField
	buf := f.Buffer.Bytes
	if f.BitOffset+f.BitLength > uint64(len(buf))*8 {
		return nil, errBufferFieldBounds
	}
	return ctx.bitsValue(getBits(buf, f.BitOffset, f.BitLength), f.BitLength), nil
}

// writeBufferField replaces the bits of a buffer field with value.
func (ctx *execContext) writeBufferField(obj *entity.Object, value *entity.Object) *kernel.Error {
	f := obj.BufField
	data, err := ctx.fieldBytes(value, f.BitLength)
	if err != nil {
		return err
	}

	buf := f.Buffer.Bytes
	if f.BitOffset+f.BitLength > uint64(len(buf))*8 {
		return errBufferFieldBounds
	}
	setBits(buf, f.BitOffset, f.BitLength, data)
	return nil
}

// fieldBytes returns the little-endian bytes of value sized for a field of
// bitLength bits. Integers are written zero-extended; Strings and Buffers
// are truncated or zero-padded.
func (ctx *execContext) fieldBytes(value *entity.Object, bitLength uint64) ([]byte, *kernel.Error) {
	value, err := ctx.operand(value)
	if err != nil {
		return nil, err
	}

	var src []byte
	switch value.Type {
	case entity.TypeInteger:
		src = make([]byte, 8)
		binary.LittleEndian.PutUint64(src, value.Int)
	case entity.TypeString, entity.TypeBuffer:
		src = value.Bytes
	default:
		if value, err = ctx.convert(value, entity.TypeBuffer); err != nil {
			return nil, err
		}
		src = value.Bytes
	}

	data := make([]byte, (bitLength+7)/8)
	copy(data, src)
	return data, nil
}

// bitsValue returns data as an Integer if bitLength fits the integer width
// or as a Buffer otherwise.
func (ctx *execContext) bitsValue(data []byte, bitLength uint64) *entity.Object {
	if bitLength <= uint64(ctx.intWidth()) {
		return entity.NewInteger(leUint64(data))
	}
	return entity.NewBuffer(data)
}

func leUint64(data []byte) uint64 {
	var buf [8]byte
	copy(buf[:], data)
	return binary.LittleEndian.Uint64(buf[:])
}

func putWindow(raw []byte, i uint64, width uint32, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	n := uint64(width / 8)
	copy(raw[i*n:(i+1)*n], buf[:n])
}

func getWindow(raw []byte, i uint64, width uint32) uint64 {
	n := uint64(width / 8)
	return leUint64(raw[i*n : (i+1)*n])
}

// getBits copies bitLength bits starting at bitOffset of src into a new
// byte slice.
func getBits(src []byte, bitOffset, bitLength uint64) []byte {
	out := make([]byte, (bitLength+7)/8)
	for i := uint64(0); i < bitLength; i++ {
		bit := bitOffset + i
		if src[bit/8]&(1<<(bit%8)) != 0 {
			out[i/8] |= 1 << (i % 8)
		}
	}
	return out
}

// setBits overwrites bitLength bits of dst starting at bitOffset with the
// low bits of src.
func setBits(dst []byte, bitOffset, bitLength uint64, src []byte) {
	for i := uint64(0); i < bitLength; i++ {
		bit := bitOffset + i
		if i/8 < uint64(len(src)) && src[i/8]&(1<<(i%8)) != 0 {
			dst[bit/8] |= 1 << (bit % 8)
		} else {
			dst[bit/8] &^= 1 << (bit % 8)
		}
	}
}
