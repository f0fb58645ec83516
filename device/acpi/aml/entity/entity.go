// Package entity implements the ACPI namespace: a tree of typed, named and
// reference-counted objects together with the name resolution rules that are
// used to look them up.
package entity

import (
	"amlkit/kernel"
	"strings"
	"sync"
	"sync/atomic"
)

var (
	errDoubleRelease = &kernel.Error{Module: "acpi_aml_entity", Message: "release of object with zero reference count", Kind: kernel.KindInternal}
)

// ObjectType describes the kind of a namespace object. The values up to and
// including TypeDebug match the codes returned by the AML ObjectType operator.
type ObjectType uint8

// The list of supported object types.
const (
	TypeUninitialized ObjectType = iota
	TypeInteger
	TypeString
	TypeBuffer
	TypePackage
	TypeFieldUnit
	TypeDevice
	TypeEvent
	TypeMethod
	TypeMutex
	TypeRegion
	TypePowerResource
	TypeProcessor
	TypeThermalZone
	TypeBufferField
	TypeDdbHandle
	TypeDebug

	// Types below are internal to the interpreter.
	TypeAlias
	TypeUnresolvedName
	TypeReference
	TypeScope

	// TypeAny works as a wildcard for Visit.
	TypeAny ObjectType = 0xff
)

var objectTypeNames = [...]string{
	TypeUninitialized:  "Uninitialized",
	TypeInteger:        "Integer",
	TypeString:         "String",
	TypeBuffer:         "Buffer",
	TypePackage:        "Package",
	TypeFieldUnit:      "FieldUnit",
	TypeDevice:         "Device",
	TypeEvent:          "Event",
	TypeMethod:         "Method",
	TypeMutex:          "Mutex",
	TypeRegion:         "OperationRegion",
	TypePowerResource:  "PowerResource",
	TypeProcessor:      "Processor",
	TypeThermalZone:    "ThermalZone",
	TypeBufferField:    "BufferField",
	TypeDdbHandle:      "DdbHandle",
	TypeDebug:          "Debug",
	TypeAlias:          "Alias",
	TypeUnresolvedName: "UnresolvedName",
	TypeReference:      "Reference",
	TypeScope:          "Scope",
}

// String implements fmt.Stringer for ObjectType.
func (t ObjectType) String() string {
	if int(t) < len(objectTypeNames) {
		return objectTypeNames[t]
	}
	if t == TypeAny {
		return "Any"
	}
	return "Unknown"
}

// IsContainer returns true if objects of this type can hold named children.
func (t ObjectType) IsContainer() bool {
	switch t {
	case TypeScope, TypeDevice, TypeProcessor, TypePowerResource, TypeThermalZone, TypeMethod:
		return true
	default:
		return false
	}
}

// Object is a node in the ACPI namespace. Only the payload fields that
// correspond to the object Type are populated.
type Object struct {
	name     string
	parent   *Object
	children []*Object
	isRoot   bool

	refCount  int32
	destroyed bool

	// tracker is the created-objects list (method frame or definition
	// block) that this object is linked to.
	tracker   *Tracker
	finalizer func(*Object)

	Type ObjectType

	// Integer and DdbHandle
	Int uint64

	// String (without the null terminator) and Buffer
	Bytes []byte

	// Package
	Elements []*Object

	Method     *Method
	Region     *Region
	Field      *FieldUnit
	BufField   *BufferField
	Mutex      *Mutex
	Event      *Event
	Processor  *Processor
	PowerRes   *PowerResource
	Ref        *Reference
	Unresolved *UnresolvedName
	Ddb        *DdbHandle

	// Target is the aliased object for TypeAlias.
	Target *Object
}

// Method describes an invocable AML method.
type Method struct {
	// Body holds the AML bytecode of the method.
	Body []byte

	// TableName and BodyOffset locate the method body in the table that
	// defined it.
	TableName  string
	BodyOffset uint32

	ArgCount   uint8
	Serialized bool
	SyncLevel  uint8

	// Mutex is the implicit mutex acquired when a serialized method
	// is invoked. The method holds a reference to it.
	Mutex *Object

	// Is32Bit is set when the defining table uses 32-bit integers.
	Is32Bit bool

	// Native, if set, is invoked instead of interpreting Body.
	Native NativeMethod
}

// NativeMethod is a host-implemented method body.
type NativeMethod func(args []*Object) (*Object, *kernel.Error)

// RegionSpace describes the address space where a region is located.
type RegionSpace uint8

// The list of supported RegionSpace values.
const (
	RegionSpaceSystemMemory RegionSpace = iota
	RegionSpaceSystemIO
	RegionSpacePCIConfig
	RegionSpaceEmbeddedControl
	RegionSpaceSMBus
	RegionSpaceCMOS
	RegionSpacePCIBarTarget
	RegionSpaceIPMI
	RegionSpaceGPIO
	RegionSpaceGenericSerialBus
	RegionSpacePCC
)

var regionSpaceNames = [...]string{
	"SystemMemory", "SystemIO", "PciConfig", "EmbeddedControl", "SMBus",
	"SystemCMOS", "PciBarTarget", "IPMI", "GeneralPurposeIO", "GenericSerialBus", "PCC",
}

// String implements fmt.Stringer for RegionSpace.
func (s RegionSpace) String() string {
	if int(s) < len(regionSpaceNames) {
		return regionSpaceNames[s]
	}
	return "OEMDefined"
}

// Region defines a region located at a particular address space (e.g in
// memory, an embedded controller, the SMBus e.t.c).
type Region struct {
	Space  RegionSpace
	Offset uint64
	Length uint64

	// Context is the handle returned by the region back-end.
	Context interface{}

	// PCI locates the configuration space of PciConfig regions. It is
	// filled in from the _SEG, _BBN and _ADR objects of the enclosing
	// device before the back-end is invoked.
	PCI PCIAddress

	// Lock serializes field accesses to this region.
	Lock sync.Mutex

	// users counts the linked field units that refer to this region.
	users int32
}

// Users returns the number of linked field units that refer to this region.
func (r *Region) Users() int { return int(atomic.LoadInt32(&r.users)) }

// PCIAddress identifies a PCI function.
type PCIAddress struct {
	Segment  uint16
	Bus      uint8
	Device   uint8
	Function uint8
}

// FieldAccessType specifies the type of access (byte, word, e.t.c) used to
// read/write to a field.
type FieldAccessType uint8

// The list of supported FieldAccessType values.
const (
	FieldAccessTypeAny FieldAccessType = iota
	FieldAccessTypeByte
	FieldAccessTypeWord
	FieldAccessTypeDword
	FieldAccessTypeQword
	FieldAccessTypeBuffer
)

// FieldUpdateRule specifies how a field value is updated when a write uses
// a value with a smaller width than the field.
type FieldUpdateRule uint8

// The list of supported FieldUpdateRule values.
const (
	FieldUpdateRulePreserve FieldUpdateRule = iota
	FieldUpdateRuleWriteAsOnes
	FieldUpdateRuleWriteAsZeros
)

// FieldAccessAttrib specifies additional information about a particular field
// access.
type FieldAccessAttrib uint8

// The list of supported FieldAccessAttrib values.
const (
	FieldAccessAttribQuick            FieldAccessAttrib = 0x02
	FieldAccessAttribSendReceive      FieldAccessAttrib = 0x04
	FieldAccessAttribByte             FieldAccessAttrib = 0x06
	FieldAccessAttribWord             FieldAccessAttrib = 0x08
	FieldAccessAttribBlock            FieldAccessAttrib = 0x0a
	FieldAccessAttribBytes            FieldAccessAttrib = 0x0b // AccessLength contains the number of bytes
	FieldAccessAttribProcessCall      FieldAccessAttrib = 0x0c
	FieldAccessAttribBlockProcessCall FieldAccessAttrib = 0x0d
	FieldAccessAttribRawBytes         FieldAccessAttrib = 0x0e // AccessLength contains the number of bytes
	FieldAccessAttribRawProcessBytes  FieldAccessAttrib = 0x0f // AccessLength contains the number of bytes
)

// FieldKind distinguishes regular field units from the ones declared by
// IndexField and BankField.
type FieldKind uint8

// The list of supported FieldKind values.
const (
	FieldKindRegion FieldKind = iota
	FieldKindIndex
	FieldKindBank
)

// FieldUnit describes a sub-region inside an operation region.
type FieldUnit struct {
	Kind FieldKind

	// Region is set for FieldKindRegion and FieldKindBank units.
	Region *Object

	// IndexReg and DataReg are set for FieldKindIndex units.
	IndexReg *Object
	DataReg  *Object

	// BankReg and BankValue are set for FieldKindBank units.
	BankReg   *Object
	BankValue uint64

	AccessType   FieldAccessType
	AccessAttrib FieldAccessAttrib
	AccessLength uint8
	Lock         bool
	UpdateRule   FieldUpdateRule

	// Field offset in parent region and its width.
	BitOffset uint32
	BitLength uint32

	// The connection resource for serial bus or GPIO accesses.
	Connection *Object
}

// AccessWidth returns the width in bits of the accesses used for this unit.
// For AnyAcc fields the smallest width whose aligned window contains the
// whole unit is selected.
func (f *FieldUnit) AccessWidth() uint32 {
	switch f.AccessType {
	case FieldAccessTypeWord:
		return 16
	case FieldAccessTypeDword:
		return 32
	case FieldAccessTypeQword:
		return 64
	case FieldAccessTypeAny:
		if f.BitLength == 0 {
			return 8
		}
		for width := uint32(8); width <= 64; width <<= 1 {
			if f.BitOffset/width == (f.BitOffset+f.BitLength-1)/width {
				return width
			}
		}
	}
	return 8
}

// regionPayload returns the region backing a region or bank field unit.
func (f *FieldUnit) regionPayload() *Region {
	if f.Region == nil {
		return nil
	}
	return f.Region.Region
}

func (f *FieldUnit) bindRegion() {
	if r := f.regionPayload(); r != nil {
		atomic.AddInt32(&r.users, 1)
	}
}

func (f *FieldUnit) unbindRegion() {
	if r := f.regionPayload(); r != nil {
		atomic.AddInt32(&r.users, -1)
	}
}

// BufferField describes a bit range within a Buffer object.
type BufferField struct {
	Buffer    *Object
	BitOffset uint64
	BitLength uint64
}

// Mutex describes an AML mutex.
type Mutex struct {
	SyncLevel uint8

	// Owner identifies the execution context holding the mutex; nil if
	// the mutex is not held.
	Owner     interface{}
	Recursion uint32

	// PrevSyncLevel is the sync level of the owner before it acquired
	// this mutex.
	PrevSyncLevel uint8

	// Handle is the host lock backing this mutex.
	Handle interface{}

	// Global is set for \_GL_.
	Global bool
}

// Event represents an AML event.
type Event struct {
	Handle interface{}
}

// Processor describes an AML processor. The use of processor declarations
// is deprecated and processors should be declared as Device entities instead.
type Processor struct {
	ID        uint8
	BlockAddr uint32
	BlockLen  uint8
}

// PowerResource describes an AML power resource.
type PowerResource struct {
	// The deepest system sleep level OSPM must maintain to keep this power
	// resource on (0 equates to S0, 1 equates to S1, and so on).
	SystemLevel uint8

	// ResourceOrder provides the order in which power resources must be
	// enabled or disabled.
	ResourceOrder uint16
}

// RefKind describes what a Reference object points to.
type RefKind uint8

// The list of supported reference kinds.
const (
	RefNamed RefKind = iota
	RefLocal
	RefArg
	RefIndex
)

// Reference is an object reference as produced by RefOf, CondRefOf and
// Index, or by a SuperName that resolves to a local, arg or named object.
type Reference struct {
	Kind RefKind

	// Target is the referenced named object (RefNamed) or the indexed
	// Buffer, String or Package (RefIndex).
	Target *Object

	// Index is the element offset for RefIndex and the slot number for
	// RefLocal and RefArg.
	Index uint64

	// Slot points to the frame slot for RefLocal and RefArg.
	Slot **Object
}

// UnresolvedName is a placeholder for a forward reference.
type UnresolvedName struct {
	Path  Path
	Scope *Object
}

// DdbHandle tracks the objects created by a loaded definition block.
type DdbHandle struct {
	TableName string
	Revision  uint8
	Created   Tracker
}

// New returns an unlinked object of the given type with an allocated payload
// and a zero reference count.
func New(typ ObjectType) *Object {
	obj := &Object{Type: typ}
	switch typ {
	case TypeMethod:
		obj.Method = &Method{}
	case TypeRegion:
		obj.Region = &Region{}
	case TypeFieldUnit:
		obj.Field = &FieldUnit{}
	case TypeBufferField:
		obj.BufField = &BufferField{}
	case TypeMutex:
		obj.Mutex = &Mutex{}
	case TypeEvent:
		obj.Event = &Event{}
	case TypeProcessor:
		obj.Processor = &Processor{}
	case TypePowerResource:
		obj.PowerRes = &PowerResource{}
	case TypeReference:
		obj.Ref = &Reference{}
	case TypeUnresolvedName:
		obj.Unresolved = &UnresolvedName{}
	case TypeDdbHandle:
		obj.Ddb = &DdbHandle{}
	}
	return obj
}

// NewUninitialized returns an Uninitialized object.
func NewUninitialized() *Object { return &Object{Type: TypeUninitialized} }

// NewInteger returns an Integer object.
func NewInteger(v uint64) *Object { return &Object{Type: TypeInteger, Int: v} }

// NewString returns a String object.
func NewString(s string) *Object { return &Object{Type: TypeString, Bytes: []byte(s)} }

// NewBuffer returns a Buffer object that takes ownership of data.
func NewBuffer(data []byte) *Object {
	if data == nil {
		data = []byte{}
	}
	return &Object{Type: TypeBuffer, Bytes: data}
}

// NewPackage returns a Package object with the supplied elements.
func NewPackage(elements []*Object) *Object {
	return &Object{Type: TypePackage, Elements: elements}
}

// NewDebug returns a Debug object.
func NewDebug() *Object { return &Object{Type: TypeDebug} }

// NewAlias returns an alias to target. The alias holds a reference to its
// target.
func NewAlias(target *Object) *Object {
	target.AddRef()
	return &Object{Type: TypeAlias, Target: target}
}

// NewReference returns a reference of the given kind.
func NewReference(kind RefKind, target *Object, index uint64) *Object {
	return &Object{Type: TypeReference, Ref: &Reference{Kind: kind, Target: target, Index: index}}
}

// NewSlotReference returns a reference to a method local or arg slot.
func NewSlotReference(kind RefKind, slot **Object, index uint8) *Object {
	return &Object{Type: TypeReference, Ref: &Reference{Kind: kind, Slot: slot, Index: uint64(index)}}
}

// NewUnresolvedName returns a placeholder for path as seen from scope.
func NewUnresolvedName(path Path, scope *Object) *Object {
	return &Object{Type: TypeUnresolvedName, Unresolved: &UnresolvedName{Path: path, Scope: scope}}
}

// NewFieldUnit returns a field unit bound to the given region. The unit holds
// a reference to the region until it is destroyed.
func NewFieldUnit(region *Object, unit FieldUnit) *Object {
	unit.Region = region
	obj := &Object{Type: TypeFieldUnit, Field: &unit}
	if region != nil {
		region.AddRef()
	}
	for _, dep := range []*Object{obj.Field.IndexReg, obj.Field.DataReg, obj.Field.BankReg} {
		if dep != nil {
			dep.AddRef()
		}
	}
	return obj
}

// NewBufferField returns a buffer field over buf. The field holds a reference
// to buf until it is destroyed.
func NewBufferField(buf *Object, bitOffset, bitLength uint64) *Object {
	buf.AddRef()
	return &Object{Type: TypeBufferField, BufField: &BufferField{Buffer: buf, BitOffset: bitOffset, BitLength: bitLength}}
}

// Name returns the four character name of the object or an empty string for
// unnamed objects. The root object is named `\`.
func (o *Object) Name() string { return o.name }

// Parent returns the object that contains this object.
func (o *Object) Parent() *Object { return o.parent }

// Children returns the list of objects contained in this object in
// insertion order.
func (o *Object) Children() []*Object { return o.children }

// Child returns the child with the supplied name or nil.
func (o *Object) Child(name string) *Object {
	for _, child := range o.children {
		if child.name == name {
			return child
		}
	}
	return nil
}

// IsRoot returns true if this is the namespace root.
func (o *Object) IsRoot() bool { return o.isRoot }

// Linked returns true if the object is attached to the namespace.
func (o *Object) Linked() bool { return o.isRoot || o.parent != nil }

// Path returns the absolute path of the object.
func (o *Object) Path() string {
	if o.isRoot {
		return `\`
	}

	var segs []string
	for cur := o; cur != nil && !cur.isRoot; cur = cur.parent {
		segs = append(segs, cur.name)
	}
	for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
		segs[i], segs[j] = segs[j], segs[i]
	}
	return `\` + strings.Join(segs, ".")
}

// RefCount returns the current reference count of the object.
func (o *Object) RefCount() int32 { return atomic.LoadInt32(&o.refCount) }

// Destroyed returns true if the object has been destroyed.
func (o *Object) Destroyed() bool { return o.destroyed }

// Tracker returns the created-objects list the object belongs to.
func (o *Object) Tracker() *Tracker { return o.tracker }

// SetFinalizer registers fn to be invoked when the object is destroyed.
func (o *Object) SetFinalizer(fn func(*Object)) { o.finalizer = fn }

// AddRef increments the reference count of the object.
func (o *Object) AddRef() {
	atomic.AddInt32(&o.refCount, 1)
}

// Release decrements the reference count of the object. The object is
// destroyed when its count reaches zero while it is not linked in the
// namespace.
func (o *Object) Release() *kernel.Error {
	for {
		cur := atomic.LoadInt32(&o.refCount)
		if cur <= 0 {
			return errDoubleRelease.WithDetail(o.describe())
		}
		if atomic.CompareAndSwapInt32(&o.refCount, cur, cur-1) {
			if cur == 1 && !o.Linked() {
				o.destroy()
			}
			return nil
		}
	}
}

// destroy runs the object finalizer and drops the references the object
// holds to other objects.
func (o *Object) destroy() {
	if o.destroyed {
		return
	}
	o.destroyed = true

	if o.finalizer != nil {
		o.finalizer(o)
	}

	switch o.Type {
	case TypeFieldUnit:
		if o.Field.Region != nil {
			_ = o.Field.Region.Release()
		}
		for _, dep := range []*Object{o.Field.IndexReg, o.Field.DataReg, o.Field.BankReg} {
			if dep != nil {
				_ = dep.Release()
			}
		}
	case TypeBufferField:
		_ = o.BufField.Buffer.Release()
	case TypeAlias:
		_ = o.Target.Release()
	case TypeMethod:
		if o.Method.Mutex != nil {
			_ = o.Method.Mutex.Release()
		}
	}
}

// Deref follows alias objects until a non-alias object is reached.
func (o *Object) Deref() *Object {
	for o != nil && o.Type == TypeAlias {
		o = o.Target
	}
	return o
}

// Clone returns a deep copy of a data object (Integer, String, Buffer or
// Package). Other objects are returned as-is.
func (o *Object) Clone() *Object {
	switch o.Type {
	case TypeUninitialized:
		return NewUninitialized()
	case TypeInteger:
		return NewInteger(o.Int)
	case TypeString, TypeBuffer:
		return &Object{Type: o.Type, Bytes: append([]byte{}, o.Bytes...)}
	case TypePackage:
		elements := make([]*Object, len(o.Elements))
		for i, el := range o.Elements {
			if el != nil {
				elements[i] = el.Clone()
			}
		}
		return NewPackage(elements)
	case TypeReference:
		ref := *o.Ref
		return &Object{Type: TypeReference, Ref: &ref}
	default:
		return o
	}
}

// describe returns a short human-readable identification of the object.
func (o *Object) describe() string {
	if o.Linked() {
		return o.Path()
	}
	return "[" + o.Type.String() + "]"
}
