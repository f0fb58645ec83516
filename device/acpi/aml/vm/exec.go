package vm

import (
	"amlkit/device/acpi/aml/entity"
	"amlkit/device/acpi/aml/parser"
	"amlkit/kernel"
	"amlkit/kernel/kfmt"
)

// run drives the statement stack until it is empty. Errors unwind every
// method frame; while loading a definition block, errors other than decoding
// failures and Fatal are logged and execution resumes after the failing
// declaration.
func (ctx *execContext) run() *Error {
	for len(ctx.stack) > 0 {
		kerr := ctx.step()
		if kerr == nil {
			continue
		}

		err := newError(kerr)
		ctx.traceTop(err)
		for ctx.frame != nil {
			ctx.abandonFrame()
			ctx.traceTop(err)
		}

		if !ctx.loading || parser.IsDecodeError(kerr) || kerr.Kind == kernel.KindFatal {
			ctx.abort()
			return err
		}

		kfmt.Fprintf(ctx.vm.errWriter, "[table: %s, offset: %d] %s\n", ctx.dec.TableName(), err.trace[len(err.trace)-1].offset, err.Error())
		ctx.skipDeclaration()
	}

	return nil
}

// step performs a single decode or reduction.
func (ctx *execContext) step() *kernel.Error {
	top := ctx.top()
	if !top.NeedsArgs() {
		return ctx.reduce(top)
	}

	switch argType := top.NextArgType(); {
	case argType.IsInline():
		return ctx.dec.DecodeInlineArg(top)
	case argType.IsBlock():
		if !top.Entered {
			top.Entered = true
			if err := ctx.enter(top); err != nil {
				// The block body is never executed.
				ctx.dec.SetOffset(top.End())
				ctx.discard(top)
				return err
			}
			return nil
		}

		if ctx.dec.Offset() >= top.End() {
			top.AddArg(nil)
			return nil
		}
		return ctx.decodeNext(argType)
	default:
		return ctx.decodeNext(argType)
	}
}

// decodeNext decodes the statement at the current offset; it produces the
// next arg of the top statement whose type is argType.
func (ctx *execContext) decodeNext(argType parser.ArgType) *kernel.Error {
	st, err := ctx.dec.Next()
	if err != nil {
		return err
	}
	st.ArgCtx = argType

	if st.Op == entity.OpNamePath {
		if err = ctx.bindName(st); err != nil {
			return err
		}
	}

	if err = ctx.push(st); err != nil {
		return err
	}

	if st.Op == entity.OpWhile {
		// Remember where the predicate starts so the loop can rewind.
		st.Scratch[1] = uint64(ctx.dec.Offset())
	}
	return nil
}

// bindName turns a name that resolves to a method into a method call when
// the name is used in a position where it is evaluated. Serialized methods
// acquire their mutex before the call args are evaluated.
func (ctx *execContext) bindName(st *parser.Statement) *kernel.Error {
	switch st.ArgCtx {
	case parser.ArgTermArg, parser.ArgTermList, parser.ArgDataRefObj:
	default:
		return nil
	}

	obj := ctx.vm.ns.Find(ctx.scope, st.Path, true)
	if obj == nil || obj.Type != entity.TypeMethod {
		return nil
	}

	st.Op = entity.OpMethodCall
	st.Info = parser.Lookup(entity.OpMethodCall)
	st.Method = obj
	st.ArgsNeeded = obj.Method.ArgCount

	if obj.Method.Serialized && obj.Method.Mutex != nil {
		acquired, err := ctx.acquireMutex(obj.Method.Mutex, 0xffff)
		if err != nil {
			return err
		}
		if acquired {
			st.Counter = 1
		}
	}
	return nil
}

// reduce evaluates a statement whose args are complete.
func (ctx *execContext) reduce(st *parser.Statement) *kernel.Error {
	ctx.ctrlFlow = ctrlFlowTypeNextOpcode
	if err := ctx.vm.jumpTable[st.Op](ctx, st); err != nil {
		return err
	}

	switch ctx.ctrlFlow {
	case ctrlFlowTypeNextOpcode:
		ctx.pop()
		ctx.deliver(st.Result)
	case ctrlFlowTypeBreak:
		return ctx.unwindLoop(false)
	case ctrlFlowTypeContinue:
		return ctx.unwindLoop(true)
	case ctrlFlowTypeFnReturn:
		return ctx.returnFromMethod(ctx.retVal)
	}
	return nil
}

// enter is invoked when the interpreter reaches the body of a statement.
func (ctx *execContext) enter(st *parser.Statement) *kernel.Error {
	switch st.Op {
	case entity.OpIf:
		pred, err := ctx.toInteger(st.Args[0])
		if err != nil {
			return err
		}
		if pred == 0 {
			ctx.lastIfResult = false
			ctx.skipBlock(st)
		}
	case entity.OpElse:
		if ctx.lastIfResult {
			ctx.skipBlock(st)
		}
	case entity.OpWhile:
		pred, err := ctx.toInteger(st.Args[0])
		if err != nil {
			return err
		}
		if pred == 0 {
			ctx.skipBlock(st)
		}
	case entity.OpScope:
		return ctx.enterScope(st)
	case entity.OpDevice, entity.OpProcessor, entity.OpPowerRes, entity.OpThermalZone:
		return ctx.declareContainer(st)
	}
	return nil
}

// skipBlock moves past the body of st and removes it from the stack.
func (ctx *execContext) skipBlock(st *parser.Statement) {
	ctx.dec.SetOffset(st.End())
	ctx.pop()
}

// unwindLoop pops the statement stack up to the innermost While statement.
// Break resumes after the loop; Continue re-evaluates the loop predicate.
func (ctx *execContext) unwindLoop(cont bool) *kernel.Error {
	for {
		st := ctx.top()
		switch {
		case st == nil, st.Op == entity.OpExecutingMethod, st.Op == entity.OpDefinitionBlock:
			return errBreakOutsideLoop
		case st.Op == entity.OpWhile && st.Entered:
			if cont {
				return ctx.rewindLoop(st)
			}
			ctx.skipBlock(st)
			return nil
		}
		ctx.discard(st)
	}
}

// rewindLoop resets a While statement so its predicate is evaluated again.
func (ctx *execContext) rewindLoop(st *parser.Statement) *kernel.Error {
	st.Counter++
	if limit := ctx.vm.loopLimit; limit != 0 && st.Counter >= limit {
		return errLoopTimeout
	}

	st.ArgsHave = 0
	st.Args[0], st.Args[1] = nil, nil
	st.Entered = false
	ctx.dec.SetOffset(uint32(st.Scratch[1]))
	return nil
}

// abort discards every statement on the stack.
func (ctx *execContext) abort() {
	for st := ctx.top(); st != nil; st = ctx.top() {
		ctx.discard(st)
	}
}

// skipDeclaration drops the statements of a failed top-level declaration
// and resumes decoding after it, inside the innermost block being executed.
func (ctx *execContext) skipDeclaration() {
	resume := ctx.dec.Offset()
	for {
		st := ctx.top()
		if st == nil {
			return
		}
		if st.Entered && st.NextArgType().IsBlock() {
			break
		}
		if st.HasEnd() && st.End() > resume {
			resume = st.End()
		}
		ctx.discard(st)
	}

	// An Else that follows a skipped If is skipped too.
	ctx.lastIfResult = true
	ctx.dec.SetOffset(resume)
}
