// Package osl defines the services that the AML interpreter expects from the
// operating system layer: timers, locks, events, notifications and the
// back-ends that implement operation region accesses.
package osl

import (
	"amlkit/device/acpi/aml/entity"
	"amlkit/kernel"
	"io"
)

// WaitForever is the timeout value (in milliseconds) that makes mutex and
// event waits block until they succeed.
const WaitForever = 0xffff

// Host is implemented by the operating system layer. Mutex and event handles
// are opaque to the interpreter.
type Host interface {
	// Sleep suspends the caller for at least ms milliseconds.
	Sleep(ms uint64)

	// Stall busy-waits for us microseconds.
	Stall(us uint64)

	// Timer returns a monotonic timestamp in 100ns units.
	Timer() uint64

	CreateMutex(syncLevel uint8) (interface{}, *kernel.Error)
	DestroyMutex(handle interface{})

	// AcquireMutex waits up to timeoutMs for the mutex and returns false
	// on timeout. A timeout of WaitForever never expires.
	AcquireMutex(handle interface{}, timeoutMs uint16) bool
	ReleaseMutex(handle interface{})

	CreateEvent() (interface{}, *kernel.Error)
	DestroyEvent(handle interface{})

	// WaitEvent waits up to timeoutMs for the event to be signaled and
	// returns false on timeout.
	WaitEvent(handle interface{}, timeoutMs uint16) bool
	SignalEvent(handle interface{})
	ResetEvent(handle interface{})

	// AcquireGlobalLock takes the lock shared with firmware.
	AcquireGlobalLock(timeoutMs uint16) bool
	ReleaseGlobalLock()

	AcquirePCILock()
	ReleasePCILock()

	// Notify is invoked by the AML Notify operator.
	Notify(obj *entity.Object, value uint64) *kernel.Error

	// Fatal is invoked by the AML Fatal operator and is not expected to
	// return control to the interpreter.
	Fatal(typ uint8, code uint32, arg uint64)

	// Debug returns the writer that receives data stored to the AML Debug
	// object.
	Debug() io.Writer
}

// RegionHandler implements accesses to an operation region address space.
// Offsets passed to Read and Write are relative to the region start; width
// is the access width in bits and is one of 8, 16, 32 or 64.
type RegionHandler interface {
	Create(region *entity.Object, offset, length uint64) (interface{}, *kernel.Error)
	Destroy(ctx interface{})
	Read(ctx interface{}, offset uint64, width uint8) (uint64, *kernel.Error)
	Write(ctx interface{}, offset uint64, width uint8, value uint64) *kernel.Error
}
