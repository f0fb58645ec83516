package kfmt

import (
	"amlkit/kernel"
	"os"
)

var (
	// haltFn is mocked by tests.
	haltFn = func() { os.Exit(1) }

	errRuntimePanic = &kernel.Error{Module: "rt", Message: "unknown cause", Kind: kernel.KindFatal}
)

// Panic outputs the supplied error (if not nil) to the active output sink and
// halts the process. It backs the host's handling of AML Fatal requests and
// unrecoverable interpreter states. Calls to Panic never return unless the
// halt function has been replaced.
func Panic(e interface{}) {
	var err *kernel.Error

	switch t := e.(type) {
	case *kernel.Error:
		err = t
	case string:
		err = &kernel.Error{Module: errRuntimePanic.Module, Message: t, Kind: kernel.KindFatal}
	case error:
		err = &kernel.Error{Module: errRuntimePanic.Module, Message: t.Error(), Kind: kernel.KindFatal}
	}

	Printf("\n-----------------------------------\n")
	if err != nil {
		Printf("[%s] unrecoverable error: %s\n", err.Module, err.Message)
	}
	Printf("*** fatal error: system halted ***")
	Printf("\n-----------------------------------\n")

	haltFn()
}
