package vm

import (
	"amlkit/device/acpi/aml/entity"
	"amlkit/device/acpi/aml/parser"
	"amlkit/device/acpi/osl"
	"amlkit/kernel"
	"amlkit/kernel/kfmt"
)

// invoke pushes a frame for method m and switches the decoder to the method
// body. The call statement receives the return value; it is nil for
// invocations made by the host.
func (ctx *execContext) invoke(m *entity.Object, args []*entity.Object, call *parser.Statement) *kernel.Error {
	depth := 0
	if ctx.frame != nil {
		depth = ctx.frame.depth + 1
	}
	if depth >= maxCallDepth {
		return errCallDepth.WithDetail(m.Path())
	}

	fr := &methodFrame{
		method:         m,
		call:           call,
		depth:          depth,
		parent:         ctx.frame,
		callerTable:    ctx.dec.TableName(),
		callerData:     ctx.dec.Data(),
		callerOffset:   ctx.dec.Offset(),
		callerScope:    ctx.scope,
		callerIs32Bit:  ctx.is32Bit,
		callerEscaping: ctx.escaping,
	}

	for i := 0; i < len(args) && i < maxMethodArgs; i++ {
		holdSlot(&fr.args[i], argValue(args[i]))
	}
	for i := range fr.locals {
		holdSlot(&fr.locals[i], entity.NewUninitialized())
	}

	switch {
	case call != nil && call.Counter != 0:
		fr.mutexHeld = true
		call.Counter = 0
	case call == nil && m.Method.Serialized && m.Method.Mutex != nil:
		acquired, err := ctx.acquireMutex(m.Method.Mutex, osl.WaitForever)
		if err != nil {
			return err
		}
		fr.mutexHeld = acquired
	}

	body := m.Method.Body
	sentinel := parser.NewStatement(entity.OpExecutingMethod, 0)
	sentinel.Scratch[0] = uint64(len(body))
	sentinel.Method = m
	sentinel.Entered = true

	if err := ctx.push(sentinel); err != nil {
		ctx.dropFrame(fr)
		return err
	}

	ctx.frame = fr
	ctx.dec.Reset(m.Method.TableName, body, 0)
	ctx.scope = m
	ctx.is32Bit = m.Method.Is32Bit
	ctx.escaping = false
	ctx.ctrlFlow = ctrlFlowTypeCall
	return nil
}

// argValue returns the object passed to a method arg slot. Data objects are
// passed by value.
func argValue(obj *entity.Object) *entity.Object {
	if obj == nil {
		return entity.NewUninitialized()
	}
	switch obj.Type {
	case entity.TypeInteger, entity.TypeString, entity.TypeBuffer, entity.TypePackage:
		return obj.Clone()
	default:
		return obj
	}
}

// returnFromMethod unwinds the stack to the executing method sentinel, tears
// down the method frame and delivers value to the caller.
func (ctx *execContext) returnFromMethod(value *entity.Object) *kernel.Error {
	fr := ctx.frame
	if fr == nil {
		return errReturnOutside
	}

	for st := ctx.top(); st != nil; st = ctx.top() {
		ctx.discard(st)
		if st.Op == entity.OpExecutingMethod {
			break
		}
	}

	if value == nil {
		value = entity.NewUninitialized()
	}
	ctx.leaveFrame(fr)

	if fr.call == nil {
		ctx.result = value
		return nil
	}

	fr.call.Result = value
	ctx.pop()
	ctx.deliver(value)
	return nil
}

// abandonFrame unwinds the innermost method frame after an error. The call
// statement, if any, is left at the top of the stack.
func (ctx *execContext) abandonFrame() {
	for st := ctx.top(); st != nil; st = ctx.top() {
		ctx.discard(st)
		if st.Op == entity.OpExecutingMethod {
			break
		}
	}
	ctx.leaveFrame(ctx.frame)
}

// leaveFrame destroys the objects created by the method, drops the frame
// slots, releases the method mutex and restores the caller state.
func (ctx *execContext) leaveFrame(fr *methodFrame) {
	if err := ctx.vm.ns.Teardown(&fr.created); err != nil {
		kfmt.Fprintf(ctx.vm.errWriter, "%s: teardown failed: %s\n", fr.method.Path(), err.Message)
	}
	ctx.dropFrame(fr)

	ctx.frame = fr.parent
	ctx.dec.Reset(fr.callerTable, fr.callerData, fr.callerOffset)
	ctx.scope = fr.callerScope
	ctx.is32Bit = fr.callerIs32Bit
	ctx.escaping = fr.callerEscaping
}

// dropFrame releases the frame slots and the method mutex.
func (ctx *execContext) dropFrame(fr *methodFrame) {
	for i := range fr.args {
		holdSlot(&fr.args[i], nil)
	}
	for i := range fr.locals {
		holdSlot(&fr.locals[i], nil)
	}

	if fr.mutexHeld {
		if err := ctx.releaseMutex(fr.method.Method.Mutex); err != nil {
			kfmt.Fprintf(ctx.vm.errWriter, "%s: %s\n", fr.method.Path(), err.Message)
		}
		fr.mutexHeld = false
	}
}

// evaluate runs obj in a fresh context. Methods are invoked with args;
// other objects evaluate to their value.
func (ctx *execContext) evaluate(obj *entity.Object, args []*entity.Object) (*entity.Object, *Error) {
	obj = obj.Deref()
	if obj.Type != entity.TypeMethod {
		value, err := ctx.operand(obj)
		if err != nil {
			return nil, newError(err)
		}
		return value, nil
	}

	if len(args) > maxMethodArgs {
		return nil, newError(errTypeMismatch.WithDetail(kfmt.Sprintf("%s: too many args (%d)", obj.Path(), len(args))))
	}

	if native := obj.Method.Native; native != nil {
		value, err := native(args)
		if err != nil {
			return nil, newError(err)
		}
		return value, nil
	}

	if err := ctx.invoke(obj, args, nil); err != nil {
		e := newError(err)
		e.trace = append(e.trace, &frame{table: obj.Method.TableName, method: obj.Path(), instr: "invoke"})
		return nil, e
	}

	if err := ctx.run(); err != nil {
		return nil, err
	}
	return ctx.result, nil
}

// Args: (method args)
// Invoke a native method directly or push a frame for an AML method.
func vmOpMethodCall(ctx *execContext, st *parser.Statement) *kernel.Error {
	m := st.Method
	args := st.Args[:st.ArgsHave]

	if native := m.Method.Native; native != nil {
		values := make([]*entity.Object, len(args))
		for i, arg := range args {
			value, err := ctx.operand(arg)
			if err != nil {
				return err
			}
			values[i] = value
		}

		result, err := native(values)
		if err != nil {
			return err
		}
		st.Result = result
		return nil
	}

	return ctx.invoke(m, args, st)
}

// Args: val
// Set val as the return value in ctx and change the ctrlFlow type to
// ctrlFlowTypeFnReturn.
func vmOpReturn(ctx *execContext, st *parser.Statement) *kernel.Error {
	if ctx.frame == nil {
		return errReturnOutside
	}

	value, err := ctx.returnValue(st.Args[0])
	if err != nil {
		return err
	}

	ctx.retVal = value
	ctx.ctrlFlow = ctrlFlowTypeFnReturn
	return nil
}

// returnValue resolves the operand of a Return statement. References are
// returned as-is; data objects are copied so they outlive the frame.
func (ctx *execContext) returnValue(arg *entity.Object) (*entity.Object, *kernel.Error) {
	if arg != nil && arg.Type == entity.TypeReference && arg.Ref.Kind != entity.RefLocal && arg.Ref.Kind != entity.RefArg {
		return arg, nil
	}

	value, err := ctx.operand(arg)
	if err != nil {
		if err.Root() == errUninitialized {
			return entity.NewUninitialized(), nil
		}
		return nil, err
	}
	return argValue(value), nil
}

// The method body ended without a Return statement.
func vmOpExecutingMethod(ctx *execContext, _ *parser.Statement) *kernel.Error {
	ctx.retVal = entity.NewUninitialized()
	ctx.ctrlFlow = ctrlFlowTypeFnReturn
	return nil
}
