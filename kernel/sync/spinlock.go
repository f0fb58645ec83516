// Package sync provides the spinlock used to model the ACPI global lock that
// firmware and the OS share.
package sync

import (
	"runtime"
	"sync/atomic"
	"time"
)

const attemptsBeforeYielding = 64

var (
	// yieldFn is invoked by spinning tasks after attemptsBeforeYielding
	// failed attempts. Tests may replace it.
	yieldFn = runtime.Gosched
)

// Spinlock implements a lock where each task trying to acquire it busy-waits
// till the lock becomes available.
type Spinlock struct {
	state uint32
}

// Acquire blocks until the lock can be acquired by the currently active task.
// Any attempt to re-acquire a lock already held by the current task will cause
// a deadlock.
func (l *Spinlock) Acquire() {
	for attempt := uint32(1); !l.TryToAcquire(); attempt++ {
		if attempt%attemptsBeforeYielding == 0 {
			yieldFn()
		}
	}
}

// AcquireTimeout spins until the lock is acquired or timeout elapses. It
// returns true if the lock was acquired. A negative timeout waits forever.
func (l *Spinlock) AcquireTimeout(timeout time.Duration) bool {
	if timeout < 0 {
		l.Acquire()
		return true
	}

	deadline := time.Now().Add(timeout)
	for attempt := uint32(1); !l.TryToAcquire(); attempt++ {
		if attempt%attemptsBeforeYielding == 0 {
			if !time.Now().Before(deadline) {
				return false
			}
			yieldFn()
		}
	}
	return true
}

// TryToAcquire attempts to acquire the lock and returns true if the lock could
// be acquired or false otherwise.
func (l *Spinlock) TryToAcquire() bool {
	return atomic.CompareAndSwapUint32(&l.state, 0, 1)
}

// Release relinquishes a held lock allowing other tasks to acquire it. Calling
// Release while the lock is free has no effect.
func (l *Spinlock) Release() {
	atomic.StoreUint32(&l.state, 0)
}
