package vm

import (
	"amlkit/kernel"
	"amlkit/kernel/kfmt"
	"bytes"
)

const errModule = "acpi_aml_vm"

var (
	errNotImplemented    = &kernel.Error{Module: errModule, Message: "opcode not implemented", Kind: kernel.KindUnsupported}
	errUnsupported       = &kernel.Error{Module: errModule, Message: "operation not supported", Kind: kernel.KindUnsupported}
	errStackOverflow     = &kernel.Error{Module: errModule, Message: "statement stack depth exceeded", Kind: kernel.KindOutOfResources}
	errCallDepth         = &kernel.Error{Module: errModule, Message: "method call depth exceeded", Kind: kernel.KindOutOfResources}
	errLoopTimeout       = &kernel.Error{Module: errModule, Message: "while loop iteration limit exceeded", Kind: kernel.KindTimeout}
	errUninitialized     = &kernel.Error{Module: errModule, Message: "read of uninitialized object", Kind: kernel.KindTypeMismatch}
	errTypeMismatch      = &kernel.Error{Module: errModule, Message: "operand type mismatch", Kind: kernel.KindTypeMismatch}
	errConversion        = &kernel.Error{Module: errModule, Message: "unsupported conversion", Kind: kernel.KindTypeMismatch}
	errEmptyString       = &kernel.Error{Module: errModule, Message: "conversion from String requires a non-empty value", Kind: kernel.KindTypeMismatch}
	errDivideByZero      = &kernel.Error{Module: errModule, Message: "division by zero", Kind: kernel.KindTypeMismatch}
	errIndexOutOfBounds  = &kernel.Error{Module: errModule, Message: "index out of bounds", Kind: kernel.KindTypeMismatch}
	errBadStoreTarget    = &kernel.Error{Module: errModule, Message: "invalid store destination", Kind: kernel.KindTypeMismatch}
	errNotMethod         = &kernel.Error{Module: errModule, Message: "object is not a method", Kind: kernel.KindTypeMismatch}
	errNotContainer      = &kernel.Error{Module: errModule, Message: "scope target cannot hold named objects", Kind: kernel.KindTypeMismatch}
	errBreakOutsideLoop  = &kernel.Error{Module: errModule, Message: "Break or Continue outside of a While loop", Kind: kernel.KindMalformedData}
	errReturnOutside     = &kernel.Error{Module: errModule, Message: "Return outside of a method", Kind: kernel.KindMalformedData}
	errSyncLevel         = &kernel.Error{Module: errModule, Message: "mutex acquired out of sync level order", Kind: kernel.KindInternal}
	errMutexNotOwned     = &kernel.Error{Module: errModule, Message: "release of mutex not owned by the caller", Kind: kernel.KindInternal}
	errFatalOpcode       = &kernel.Error{Module: errModule, Message: "firmware requested a fatal error", Kind: kernel.KindFatal}
	errNoRegionHandler   = &kernel.Error{Module: errModule, Message: "no handler registered for region space", Kind: kernel.KindIoFailure}
	errFieldOutOfRange   = &kernel.Error{Module: errModule, Message: "field exceeds its operation region", Kind: kernel.KindMalformedData}
	errBufferFieldBounds = &kernel.Error{Module: errModule, Message: "buffer field exceeds its buffer", Kind: kernel.KindMalformedData}
	errNotDdbHandle      = &kernel.Error{Module: errModule, Message: "object is not a DdbHandle", Kind: kernel.KindTypeMismatch}
	errUnknownDdbHandle  = &kernel.Error{Module: errModule, Message: "definition block is not loaded", Kind: kernel.KindNotFound}
	errNotFound          = &kernel.Error{Module: errModule, Message: "namespace object not found", Kind: kernel.KindNotFound}
)

// frame contains information about the location within a method or
// definition block and the AML opcode that the VM was processing when an
// error occurred.
type frame struct {
	table  string
	method string
	offset uint32
	instr  string
}

// Error describes errors that occur while executing AML code.
type Error struct {
	// Err is the underlying error; its Kind classifies the failure.
	Err *kernel.Error

	// trace contains a list of trace entries that correspond to the AML method
	// invocations up to the point where an error occurred. To construct the
	// correct execution tree from a trace, its entries must be processed in
	// LIFO order.
	trace []*frame
}

func newError(err *kernel.Error) *Error { return &Error{Err: err} }

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Err.Module + ": " + e.Err.Message
}

// Unwrap returns the underlying kernel error.
func (e *Error) Unwrap() error { return e.Err }

// Kind returns the error classification.
func (e *Error) Kind() kernel.ErrorKind { return e.Err.Kind }

// StackTrace returns a formatted stack trace for this error.
func (e *Error) StackTrace() string {
	if len(e.trace) == 0 {
		return "No stack trace available"
	}

	var buf bytes.Buffer
	buf.WriteString("Stack trace:\n")

	// We need to process the trace list in LIFO order.
	for index, offset := 0, len(e.trace)-1; index < len(e.trace); index, offset = index+1, offset-1 {
		entry := e.trace[offset]
		kfmt.Fprintf(&buf, "[%3x] [%s] [%s():0x%x] opcode: %s\n", index, entry.table, entry.method, entry.offset, entry.instr)
	}

	return buf.String()
}
