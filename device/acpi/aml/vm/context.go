package vm

import (
	"amlkit/device/acpi/aml/entity"
	"amlkit/device/acpi/aml/parser"
	"amlkit/kernel"
)

const (
	// According to the ACPI spec, methods can use up to 8 local args and
	// can receive up to 7 method args.
	maxLocalArgs  = 8
	maxMethodArgs = 7

	maxStackDepth = 4096
	maxCallDepth  = 255
)

// ctrlFlowType describes the different ways that the control flow can be altered
// while executing a set of AML opcodes.
type ctrlFlowType uint8

// The list of supported control flows.
const (
	ctrlFlowTypeNextOpcode ctrlFlowType = iota
	ctrlFlowTypeBreak
	ctrlFlowTypeContinue
	ctrlFlowTypeFnReturn

	// ctrlFlowTypeLoop is set when a While statement rewinds to its
	// predicate.
	ctrlFlowTypeLoop

	// ctrlFlowTypeCall is set when a method frame has been pushed.
	ctrlFlowTypeCall

	// ctrlFlowTypeSkip is set when a statement removed itself from the
	// stack without producing a value.
	ctrlFlowTypeSkip
)

// owner identifies the holder of AML mutexes and tracks its current sync
// level.
type owner struct {
	syncLevel uint8
}

// methodFrame holds the state of an executing method together with the
// caller state that is restored when the method returns.
type methodFrame struct {
	method *entity.Object
	args   [maxMethodArgs]*entity.Object
	locals [maxLocalArgs]*entity.Object

	// created tracks the objects attached to the namespace while the
	// method executes.
	created entity.Tracker

	// call is the OpMethodCall statement that receives the return value or
	// nil if the method was invoked by the host.
	call *parser.Statement

	mutexHeld bool
	depth     int
	parent    *methodFrame

	callerTable    string
	callerData     []byte
	callerOffset   uint32
	callerScope    *entity.Object
	callerIs32Bit  bool
	callerEscaping bool
}

// execContext holds the AML interpreter state while a definition block or a
// method executes.
type execContext struct {
	vm  *VM
	dec *parser.Decoder

	// stack holds the statements that are still gathering args; the last
	// entry is the most recently pushed statement.
	stack []*parser.Statement

	scope *entity.Object
	frame *methodFrame
	owner *owner

	// blockTracker receives the objects created at the top level of a
	// definition block.
	blockTracker *entity.Tracker

	is32Bit bool

	// escaping is set while a Scope statement inside a method points
	// outside the method's own subtree; objects created under it are not
	// tracked by the method frame.
	escaping bool

	// lastIfResult holds the outcome of the most recent If statement and
	// is consulted by a following Else.
	lastIfResult bool

	// loading is set while executing the top level of a definition block;
	// declaration errors are logged and skipped instead of aborting.
	loading bool

	// ctrlFlow specifies how the VM should select the next instruction to
	// execute.
	ctrlFlow ctrlFlowType

	// retVal holds the value of a Return statement while the stack unwinds.
	retVal *entity.Object

	// result holds the value returned to the host.
	result *entity.Object
}

func (vm *VM) newContext() *execContext {
	return &execContext{
		vm:    vm,
		dec:   parser.NewDecoder(vm.errWriter),
		scope: vm.ns.Root(),
		owner: vm.owner,
	}
}

func (ctx *execContext) top() *parser.Statement {
	if len(ctx.stack) == 0 {
		return nil
	}
	return ctx.stack[len(ctx.stack)-1]
}

func (ctx *execContext) push(st *parser.Statement) *kernel.Error {
	if len(ctx.stack) >= maxStackDepth {
		return errStackOverflow
	}
	ctx.stack = append(ctx.stack, st)
	return nil
}

func (ctx *execContext) pop() {
	ctx.stack[len(ctx.stack)-1] = nil
	ctx.stack = ctx.stack[:len(ctx.stack)-1]
}

// discard pops st without reducing it and undoes any state the statement
// changed when it was entered.
func (ctx *execContext) discard(st *parser.Statement) {
	switch {
	case st.Info.Flags.Is(parser.FlagScoped) && st.SavedScope != nil:
		ctx.scope = st.SavedScope
		if st.Op == entity.OpScope {
			ctx.escaping = st.Scratch[1] != 0
		}
	case st.Op == entity.OpMethodCall && st.Counter != 0:
		_ = ctx.releaseMutex(st.Method.Method.Mutex)
		st.Counter = 0
	}
	ctx.pop()
}

// deliver passes the value produced by a reduced statement to its parent.
func (ctx *execContext) deliver(value *entity.Object) {
	parent := ctx.top()
	if parent == nil {
		return
	}

	switch argType := parent.NextArgType(); {
	case argType == parser.ArgPackageElements:
		if value == nil {
			value = entity.NewUninitialized()
		}
		parent.Elements = append(parent.Elements, value)
	case argType == parser.ArgTermList, argType == parser.ArgNone:
	default:
		parent.AddArg(value)
	}
}

// tracker returns the created-objects list that new namespace objects are
// appended to or nil if they are permanent.
func (ctx *execContext) tracker() *entity.Tracker {
	switch {
	case ctx.frame == nil:
		return ctx.blockTracker
	case ctx.escaping:
		return nil
	default:
		return &ctx.frame.created
	}
}

// intMask returns the all-ones value for the current integer width.
func (ctx *execContext) intMask() uint64 {
	if ctx.is32Bit {
		return 0xffffffff
	}
	return ^uint64(0)
}

// intWidth returns the current integer width in bits.
func (ctx *execContext) intWidth() uint32 {
	if ctx.is32Bit {
		return 32
	}
	return 64
}

// boolValue returns the AML representation of a logical result.
func (ctx *execContext) boolValue(v bool) *entity.Object {
	if v {
		return entity.NewInteger(ctx.intMask())
	}
	return entity.NewInteger(0)
}

// holdSlot replaces the object stored in a frame slot, moving the slot
// reference from the previous contents to obj.
func holdSlot(slot **entity.Object, obj *entity.Object) {
	if obj != nil {
		obj.AddRef()
	}
	if prev := *slot; prev != nil {
		_ = prev.Release()
	}
	*slot = obj
}

// methodName returns the path of the executing method for stack traces.
func (ctx *execContext) methodName() string {
	if ctx.frame == nil {
		return ""
	}
	return ctx.frame.method.Path()
}

// traceTop appends a trace entry for the statement at the top of the stack.
func (ctx *execContext) traceTop(err *Error) {
	entry := &frame{table: ctx.dec.TableName(), method: ctx.methodName(), offset: ctx.dec.Offset(), instr: "-"}
	if st := ctx.top(); st != nil {
		entry.offset = st.Start
		entry.instr = st.Op.String()
		if st.Op == entity.OpMethodCall && st.Method != nil {
			entry.instr = st.Method.Path()
		}
	}
	err.trace = append(err.trace, entry)
}

// isDescendant returns true if obj is scope or one of its descendants.
func isDescendant(obj, scope *entity.Object) bool {
	for ; obj != nil; obj = obj.Parent() {
		if obj == scope {
			return true
		}
	}
	return false
}
