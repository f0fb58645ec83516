package kernel

// ErrorKind classifies an Error so callers can react to a failure class
// without comparing against every package-level error value.
type ErrorKind uint8

// The list of supported error kinds.
const (
	KindUnknown ErrorKind = iota
	KindMalformedData
	KindNotFound
	KindInvalidOpcode
	KindOutOfResources
	KindIoFailure
	KindTimeout
	KindTypeMismatch
	KindFatal
	KindReadEOF
	KindWriteEOF
	KindProgress
	KindUnsupported
	KindInternal
)

// String implements fmt.Stringer for ErrorKind.
func (k ErrorKind) String() string {
	switch k {
	case KindMalformedData:
		return "MalformedData"
	case KindNotFound:
		return "NotFound"
	case KindInvalidOpcode:
		return "InvalidOpcode"
	case KindOutOfResources:
		return "OutOfResources"
	case KindIoFailure:
		return "IoFailure"
	case KindTimeout:
		return "Timeout"
	case KindTypeMismatch:
		return "TypeMismatch"
	case KindFatal:
		return "Fatal"
	case KindReadEOF:
		return "ReadEOF"
	case KindWriteEOF:
		return "WriteEOF"
	case KindProgress:
		return "Progress"
	case KindUnsupported:
		return "Unsupported"
	case KindInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Error describes a kernel error. Static errors are defined as global
// variables that are pointers to the Error structure and are compared by
// identity; errors that need runtime context are derived from them with
// WithDetail.
type Error struct {
	// The module where the error occurred.
	Module string

	// The error message
	Message string

	// Kind classifies the error.
	Kind ErrorKind

	// origin points to the static error this one was derived from.
	origin *Error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// WithDetail returns a copy of e whose message is extended with detail. The
// copy keeps the module and kind of e and reports e as its origin.
func (e *Error) WithDetail(detail string) *Error {
	return &Error{
		Module:  e.Module,
		Message: e.Message + ": " + detail,
		Kind:    e.Kind,
		origin:  e.Root(),
	}
}

// Root returns the static error that e was derived from or e itself if it
// was not derived from another error.
func (e *Error) Root() *Error {
	if e.origin != nil {
		return e.origin
	}
	return e
}

// Is reports whether e is target or was derived from it. It allows
// errors.Is to see through WithDetail copies.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t == nil {
		return false
	}
	return e == t || e.Root() == t.Root()
}
