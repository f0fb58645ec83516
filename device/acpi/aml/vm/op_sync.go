package vm

import (
	"amlkit/device/acpi/aml/entity"
	"amlkit/device/acpi/aml/parser"
	"amlkit/device/acpi/osl"
	"amlkit/kernel"
	"amlkit/kernel/kfmt"
)

// acquireMutex acquires the AML mutex m on behalf of the context owner. A
// mutex that is already held by the owner is acquired recursively. It
// returns false if the host lock could not be taken before the timeout.
func (ctx *execContext) acquireMutex(m *entity.Object, timeoutMs uint16) (bool, *kernel.Error) {
	mutex := m.Mutex
	if mutex.Owner == ctx.owner {
		mutex.Recursion++
		return true, nil
	}

	if mutex.SyncLevel < ctx.owner.syncLevel {
		return false, errSyncLevel.WithDetail(kfmt.Sprintf("%s: level %d, held %d", m.Path(), mutex.SyncLevel, ctx.owner.syncLevel))
	}

	var acquired bool
	if mutex.Global {
		acquired = ctx.vm.host.AcquireGlobalLock(timeoutMs)
	} else {
		acquired = ctx.vm.host.AcquireMutex(mutex.Handle, timeoutMs)
	}
	if !acquired {
		return false, nil
	}

	mutex.Owner = ctx.owner
	mutex.Recursion = 1
	mutex.PrevSyncLevel = ctx.owner.syncLevel
	ctx.owner.syncLevel = mutex.SyncLevel
	return true, nil
}

// releaseMutex drops one level of ownership of m. The host lock is released
// and the owner sync level restored once the recursion count reaches zero.
func (ctx *execContext) releaseMutex(m *entity.Object) *kernel.Error {
	mutex := m.Mutex
	if mutex.Owner != ctx.owner || mutex.Recursion == 0 {
		return errMutexNotOwned.WithDetail(m.Path())
	}

	if mutex.Recursion--; mutex.Recursion > 0 {
		return nil
	}

	mutex.Owner = nil
	ctx.owner.syncLevel = mutex.PrevSyncLevel
	if mutex.Global {
		ctx.vm.host.ReleaseGlobalLock()
	} else {
		ctx.vm.host.ReleaseMutex(mutex.Handle)
	}
	return nil
}

// lockGlobal takes \_GL_ around a field access. An owner that already holds
// \_GL_ through Acquire only raises the recursion count. Sync levels are not
// checked and the owner sync level is left unchanged.
func (ctx *execContext) lockGlobal() *kernel.Error {
	gl := ctx.vm.globalLock.Mutex
	if gl.Owner == ctx.owner {
		gl.Recursion++
		return nil
	}

	if !ctx.vm.host.AcquireGlobalLock(osl.WaitForever) {
		return errUnsupported.WithDetail("global lock unavailable")
	}
	gl.Owner = ctx.owner
	gl.Recursion = 1
	gl.PrevSyncLevel = ctx.owner.syncLevel
	return nil
}

// unlockGlobal undoes lockGlobal.
func (ctx *execContext) unlockGlobal() {
	if err := ctx.releaseMutex(ctx.vm.globalLock); err != nil {
		kfmt.Fprintf(ctx.vm.errWriter, "field access: %s\n", err.Error())
	}
}

// syncObject resolves the SuperName arg of a sync opcode to an object of
// the expected type.
func (ctx *execContext) syncObject(arg *entity.Object, typ entity.ObjectType) (*entity.Object, *kernel.Error) {
	obj, err := ctx.resolveSuperName(arg)
	if err != nil {
		return nil, err
	}
	if obj.Type != typ {
		return nil, errTypeMismatch.WithDetail("expected " + typ.String() + ", got " + obj.Type.String())
	}
	return obj, nil
}

// resolveSuperName follows forward references, aliases and object
// references held by a SuperName arg.
func (ctx *execContext) resolveSuperName(obj *entity.Object) (*entity.Object, *kernel.Error) {
	var err *kernel.Error
	for {
		if obj == nil {
			return nil, errUninitialized
		}

		switch obj.Type {
		case entity.TypeAlias:
			obj = obj.Target
		case entity.TypeUnresolvedName:
			if obj, err = ctx.vm.ns.ResolveUnresolved(obj); err != nil {
				return nil, err
			}
		case entity.TypeReference:
			if obj.Ref.Kind == entity.RefIndex {
				return obj, nil
			}
			if obj, err = ctx.derefReference(obj); err != nil {
				return nil, err
			}
		default:
			return obj, nil
		}
	}
}

// Args: mutex, timeout
// Returns: Zero if the mutex was acquired, Ones on timeout
func vmOpAcquire(ctx *execContext, st *parser.Statement) *kernel.Error {
	m, err := ctx.syncObject(st.Args[0], entity.TypeMutex)
	if err != nil {
		return err
	}

	acquired, err := ctx.acquireMutex(m, uint16(st.IntArg(1)))
	if err != nil {
		return err
	}

	st.Result = ctx.boolValue(!acquired)
	return nil
}

// Args: mutex
func vmOpRelease(ctx *execContext, st *parser.Statement) *kernel.Error {
	m, err := ctx.syncObject(st.Args[0], entity.TypeMutex)
	if err != nil {
		return err
	}
	return ctx.releaseMutex(m)
}

// Args: event, timeout
// Returns: Zero if the event was signaled, Ones on timeout
func vmOpWait(ctx *execContext, st *parser.Statement) *kernel.Error {
	ev, err := ctx.syncObject(st.Args[0], entity.TypeEvent)
	if err != nil {
		return err
	}

	timeout, err := ctx.toInteger(st.Args[1])
	if err != nil {
		return err
	}
	if timeout > 0xffff {
		timeout = 0xffff
	}

	st.Result = ctx.boolValue(!ctx.vm.host.WaitEvent(ev.Event.Handle, uint16(timeout)))
	return nil
}

// Args: event
func vmOpSignal(ctx *execContext, st *parser.Statement) *kernel.Error {
	ev, err := ctx.syncObject(st.Args[0], entity.TypeEvent)
	if err != nil {
		return err
	}
	ctx.vm.host.SignalEvent(ev.Event.Handle)
	return nil
}

// Args: event
func vmOpReset(ctx *execContext, st *parser.Statement) *kernel.Error {
	ev, err := ctx.syncObject(st.Args[0], entity.TypeEvent)
	if err != nil {
		return err
	}
	ctx.vm.host.ResetEvent(ev.Event.Handle)
	return nil
}

// Args: milliseconds
func vmOpSleep(ctx *execContext, st *parser.Statement) *kernel.Error {
	ms, err := ctx.toInteger(st.Args[0])
	if err != nil {
		return err
	}
	ctx.vm.host.Sleep(ms)
	return nil
}

// Args: microseconds
func vmOpStall(ctx *execContext, st *parser.Statement) *kernel.Error {
	us, err := ctx.toInteger(st.Args[0])
	if err != nil {
		return err
	}
	ctx.vm.host.Stall(us)
	return nil
}

// Args: object, value
// Forward a notification to the host. Host errors are logged.
func vmOpNotify(ctx *execContext, st *parser.Statement) *kernel.Error {
	obj, err := ctx.resolveSuperName(st.Args[0])
	if err != nil {
		return err
	}

	value, err := ctx.toInteger(st.Args[1])
	if err != nil {
		return err
	}

	if err = ctx.vm.host.Notify(obj, value); err != nil {
		kfmt.Fprintf(ctx.vm.errWriter, "Notify(%s, 0x%x): %s\n", obj.Path(), value, err.Error())
	}
	return nil
}
