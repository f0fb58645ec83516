// Package vm implements the AML execution engine. Definition blocks are
// executed directly from their bytecode: a statement stack gathers the args
// of each decoded statement and reduces it once they are complete, so
// nested AML constructs and method calls never grow the host stack.
package vm

import (
	"amlkit/device/acpi/aml/entity"
	"amlkit/device/acpi/osl"
	"amlkit/kernel"
	"io"
	"sync"
)

const (
	// interpreterRevision is the value returned by the AML Revision opcode.
	interpreterRevision = 0x20221020

	// acpiRevision is the value of the predefined \_REV object.
	acpiRevision = 2

	defaultOSName    = "Microsoft Windows NT"
	defaultLoopLimit = 1 << 20
)

var errNoHost = &kernel.Error{Module: errModule, Message: "a host implementation is required", Kind: kernel.KindInternal}

// DefaultOSIStrings lists the interfaces that _OSI reports as supported when
// Config.OSIStrings is empty.
var DefaultOSIStrings = []string{
	"Windows 2000", "Windows 2001", "Windows 2001 SP1", "Windows 2001.1",
	"Windows 2001 SP2", "Windows 2001.1 SP1", "Windows 2006", "Windows 2006.1",
	"Windows 2006 SP1", "Windows 2006 SP2", "Windows 2009", "Windows 2012",
	"Windows 2013", "Windows 2015",
	"Module Device", "Processor Device", "3.0 Thermal Model", "3.0 _SCP Extensions",
	"Processor Aggregator Device",
}

// Config describes the environment the VM runs in. Zero fields select the
// documented defaults.
type Config struct {
	// Host provides timers, locks, events and notifications.
	Host osl.Host

	// Regions maps each address space to the back-end that implements
	// its accesses.
	Regions map[entity.RegionSpace]osl.RegionHandler

	// OSIStrings lists the interfaces _OSI answers true for.
	OSIStrings []string

	// OSName is the value of \_OS_.
	OSName string

	// MaxLoopIterations bounds the number of iterations of a single
	// While statement.
	MaxLoopIterations uint64
}

// VM executes AML definition blocks and the methods they declare. Calls into
// the VM are serialized.
type VM struct {
	errWriter io.Writer

	host       osl.Host
	regions    map[entity.RegionSpace]osl.RegionHandler
	osiStrings map[string]bool
	loopLimit  uint64

	ns *entity.Namespace

	// owner holds the AML mutexes acquired by method executions.
	owner *owner

	// globalLock is the \_GL_ mutex object.
	globalLock *entity.Object

	// handles lists the loaded definition blocks in load order.
	handles []*entity.Object

	mu        sync.Mutex
	jumpTable [numOpcodes]opHandler
}

// NewVM creates a new AML VM and initializes it with the default scope
// hierarchy and pre-defined objects contained in the ACPI specification.
func NewVM(errWriter io.Writer, cfg Config) (*VM, *Error) {
	if cfg.Host == nil {
		return nil, newError(errNoHost)
	}

	vm := &VM{
		errWriter:  errWriter,
		host:       cfg.Host,
		regions:    cfg.Regions,
		osiStrings: make(map[string]bool),
		loopLimit:  cfg.MaxLoopIterations,
		ns:         entity.NewNamespace(),
		owner:      &owner{},
	}

	if vm.regions == nil {
		vm.regions = make(map[entity.RegionSpace]osl.RegionHandler)
	}
	if vm.loopLimit == 0 {
		vm.loopLimit = defaultLoopLimit
	}

	osiStrings := cfg.OSIStrings
	if len(osiStrings) == 0 {
		osiStrings = DefaultOSIStrings
	}
	for _, str := range osiStrings {
		vm.osiStrings[str] = true
	}

	osName := cfg.OSName
	if osName == "" {
		osName = defaultOSName
	}

	vm.populateJumpTable()
	if err := vm.addPredefined(osName); err != nil {
		return nil, newError(err)
	}

	return vm, nil
}

// addPredefined attaches the objects that the ACPI specification requires
// to exist before any definition block is loaded.
func (vm *VM) addPredefined(osName string) *kernel.Error {
	root := vm.ns.Root()

	gl, err := vm.newMutex(0)
	if err != nil {
		return err
	}
	gl.Mutex.Global = true
	vm.globalLock = gl

	osi := entity.New(entity.TypeMethod)
	osi.Method.ArgCount = 1
	osi.Method.Native = vm.osi

	for _, predef := range []struct {
		name string
		obj  *entity.Object
	}{
		{"_GL_", gl},
		{"_OS_", entity.NewString(osName)},
		{"_REV", entity.NewInteger(acpiRevision)},
		{"_OSI", osi},
	} {
		if err := vm.ns.Attach(root, predef.name, predef.obj); err != nil {
			return err
		}
	}
	return nil
}

// osi implements the _OSI method.
func (vm *VM) osi(args []*entity.Object) (*entity.Object, *kernel.Error) {
	if len(args) != 1 || args[0].Type != entity.TypeString {
		return nil, errTypeMismatch.WithDetail("_OSI expects a String argument")
	}

	if vm.osiStrings[string(args[0].Bytes)] {
		return entity.NewInteger(^uint64(0)), nil
	}
	return entity.NewInteger(0), nil
}

// newMutex returns a mutex object backed by a host lock.
func (vm *VM) newMutex(syncLevel uint8) (*entity.Object, *kernel.Error) {
	handle, err := vm.host.CreateMutex(syncLevel)
	if err != nil {
		return nil, err
	}

	obj := entity.New(entity.TypeMutex)
	obj.Mutex.SyncLevel = syncLevel
	obj.Mutex.Handle = handle
	obj.SetFinalizer(func(o *entity.Object) { vm.host.DestroyMutex(o.Mutex.Handle) })
	return obj, nil
}

// newEvent returns an event object backed by a host event.
func (vm *VM) newEvent() (*entity.Object, *kernel.Error) {
	handle, err := vm.host.CreateEvent()
	if err != nil {
		return nil, err
	}

	obj := entity.New(entity.TypeEvent)
	obj.Event.Handle = handle
	obj.SetFinalizer(func(o *entity.Object) { vm.host.DestroyEvent(o.Event.Handle) })
	return obj, nil
}

// Namespace returns the namespace managed by the VM.
func (vm *VM) Namespace() *entity.Namespace { return vm.ns }

// Root returns the namespace root.
func (vm *VM) Root() *entity.Object { return vm.ns.Root() }

// Handles returns the DdbHandles of the loaded definition blocks.
func (vm *VM) Handles() []*entity.Object {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return append([]*entity.Object(nil), vm.handles...)
}

// ExecuteMethod invokes method with the supplied args and returns its result.
// Objects other than methods evaluate to their value. If want is not
// TypeAny the result is converted to that type.
func (vm *VM) ExecuteMethod(method *entity.Object, args []*entity.Object, want entity.ObjectType) (*entity.Object, *Error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	return vm.executeMethod(method, args, want)
}

func (vm *VM) executeMethod(method *entity.Object, args []*entity.Object, want entity.ObjectType) (*entity.Object, *Error) {
	ctx := vm.newContext()
	result, err := ctx.evaluate(method, args)
	if err != nil {
		return nil, err
	}

	if want == entity.TypeAny || result.Type == want {
		return result, nil
	}

	converted, kerr := ctx.convert(result, want)
	if kerr != nil {
		return nil, newError(kerr)
	}
	return converted, nil
}

// Evaluate looks up path relative to the root and executes it like
// ExecuteMethod. A missing object is reported as NotFound.
func (vm *VM) Evaluate(path string, want entity.ObjectType, args ...*entity.Object) (*entity.Object, *Error) {
	obj, err := vm.ns.Lookup(nil, path)
	if err != nil {
		return nil, newError(err)
	}
	defer func() { _ = obj.Release() }()

	return vm.ExecuteMethod(obj, args, want)
}
