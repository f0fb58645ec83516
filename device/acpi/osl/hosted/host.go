// Package hosted implements the operating system layer for running the AML
// interpreter as a regular user-space process.
package hosted

import (
	"amlkit/device/acpi/aml/entity"
	"amlkit/device/acpi/osl"
	"amlkit/kernel"
	"amlkit/kernel/kfmt"
	ksync "amlkit/kernel/sync"
	"io"
	"sync"
	"time"
)

// DebugPrefix is prepended to each line written to the AML Debug object.
const DebugPrefix = "[AML debug] "

var (
	// fatalFn is invoked for AML Fatal requests. Tests may replace it.
	fatalFn = kfmt.Panic

	errFatal = &kernel.Error{Module: "acpi_aml", Message: "firmware requested a fatal shutdown", Kind: kernel.KindFatal}
)

// Host implements osl.Host on top of the Go runtime.
type Host struct {
	log   io.Writer
	debug *kfmt.PrefixWriter

	globalLock ksync.Spinlock
	pciLock    sync.Mutex
	epoch      time.Time

	// NotifyHandler, if set, receives the notifications raised by AML
	// code. Notifications are logged either way.
	NotifyHandler func(obj *entity.Object, value uint64)
}

// NewHost returns a host that logs to log and sends AML Debug output to
// debug, prefixing each line with prefix.
func NewHost(log, debug io.Writer, prefix string) *Host {
	if prefix == "" {
		prefix = DebugPrefix
	}
	return &Host{
		log:   log,
		debug: kfmt.NewPrefixWriter(debug, prefix),
		epoch: time.Now(),
	}
}

// Sleep implements osl.Host.
func (h *Host) Sleep(ms uint64) { nanosleep(time.Duration(ms) * time.Millisecond) }

// Stall implements osl.Host.
func (h *Host) Stall(us uint64) {
	deadline := time.Now().Add(time.Duration(us) * time.Microsecond)
	for time.Now().Before(deadline) {
	}
}

// Timer implements osl.Host.
func (h *Host) Timer() uint64 { return uint64(time.Since(h.epoch) / 100) }

type mutexHandle chan struct{}

// CreateMutex implements osl.Host.
func (h *Host) CreateMutex(uint8) (interface{}, *kernel.Error) {
	return make(mutexHandle, 1), nil
}

// DestroyMutex implements osl.Host.
func (h *Host) DestroyMutex(interface{}) {}

// AcquireMutex implements osl.Host.
func (h *Host) AcquireMutex(handle interface{}, timeoutMs uint16) bool {
	ch := handle.(mutexHandle)
	switch timeoutMs {
	case osl.WaitForever:
		ch <- struct{}{}
		return true
	case 0:
		select {
		case ch <- struct{}{}:
			return true
		default:
			return false
		}
	}

	timer := time.NewTimer(time.Duration(timeoutMs) * time.Millisecond)
	defer timer.Stop()
	select {
	case ch <- struct{}{}:
		return true
	case <-timer.C:
		return false
	}
}

// ReleaseMutex implements osl.Host.
func (h *Host) ReleaseMutex(handle interface{}) {
	select {
	case <-handle.(mutexHandle):
	default:
	}
}

// maxPendingSignals bounds the number of unconsumed event signals.
const maxPendingSignals = 1024

type eventHandle chan struct{}

// CreateEvent implements osl.Host.
func (h *Host) CreateEvent() (interface{}, *kernel.Error) {
	return make(eventHandle, maxPendingSignals), nil
}

// DestroyEvent implements osl.Host.
func (h *Host) DestroyEvent(interface{}) {}

// WaitEvent implements osl.Host.
func (h *Host) WaitEvent(handle interface{}, timeoutMs uint16) bool {
	ch := handle.(eventHandle)
	switch timeoutMs {
	case osl.WaitForever:
		<-ch
		return true
	case 0:
		select {
		case <-ch:
			return true
		default:
			return false
		}
	}

	timer := time.NewTimer(time.Duration(timeoutMs) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-ch:
		return true
	case <-timer.C:
		return false
	}
}

// SignalEvent implements osl.Host.
func (h *Host) SignalEvent(handle interface{}) {
	select {
	case handle.(eventHandle) <- struct{}{}:
	default:
	}
}

// ResetEvent implements osl.Host.
func (h *Host) ResetEvent(handle interface{}) {
	ch := handle.(eventHandle)
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

// AcquireGlobalLock implements osl.Host.
func (h *Host) AcquireGlobalLock(timeoutMs uint16) bool {
	if timeoutMs == osl.WaitForever {
		h.globalLock.Acquire()
		return true
	}
	return h.globalLock.AcquireTimeout(time.Duration(timeoutMs) * time.Millisecond)
}

// ReleaseGlobalLock implements osl.Host.
func (h *Host) ReleaseGlobalLock() { h.globalLock.Release() }

// AcquirePCILock implements osl.Host.
func (h *Host) AcquirePCILock() { h.pciLock.Lock() }

// ReleasePCILock implements osl.Host.
func (h *Host) ReleasePCILock() { h.pciLock.Unlock() }

// Notify implements osl.Host.
func (h *Host) Notify(obj *entity.Object, value uint64) *kernel.Error {
	if h.log != nil {
		kfmt.Fprintf(h.log, "notify %s: 0x%x\n", obj.Path(), value)
	}
	if h.NotifyHandler != nil {
		h.NotifyHandler(obj, value)
	}
	return nil
}

// Fatal implements osl.Host.
func (h *Host) Fatal(typ uint8, code uint32, arg uint64) {
	fatalFn(errFatal.WithDetail(kfmt.Sprintf("type: 0x%x, code: 0x%x, arg: 0x%x", typ, code, arg)))
}

// Debug implements osl.Host.
func (h *Host) Debug() io.Writer { return h.debug }
