package kernel

import (
	"errors"
	"testing"
)

func TestKernelError(t *testing.T) {
	err := &Error{
		Module:  "foo",
		Message: "error message",
		Kind:    KindNotFound,
	}

	if err.Error() != err.Message {
		t.Fatalf("expected to err.Error() to return %q; got %q", err.Message, err.Error())
	}

	if got := err.Kind.String(); got != "NotFound" {
		t.Fatalf("expected kind string to be NotFound; got %q", got)
	}
}

func TestKernelErrorWithDetail(t *testing.T) {
	base := &Error{Module: "acpi_aml_vm", Message: "object not found", Kind: KindNotFound}
	other := &Error{Module: "acpi_aml_vm", Message: "object not found", Kind: KindNotFound}

	derived := base.WithDetail(`\_SB_.PCI0`)
	if exp := `object not found: \_SB_.PCI0`; derived.Message != exp {
		t.Fatalf("expected message %q; got %q", exp, derived.Message)
	}

	if derived.Module != base.Module || derived.Kind != base.Kind {
		t.Fatal("expected derived error to inherit module and kind")
	}

	specs := []struct {
		err    error
		target error
		exp    bool
	}{
		{derived, base, true},
		{derived.WithDetail("nested"), base, true},
		{base, base, true},
		{derived, other, false},
		{derived, errors.New("object not found"), false},
	}

	for specIndex, spec := range specs {
		if got := errors.Is(spec.err, spec.target); got != spec.exp {
			t.Errorf("[spec %d] expected errors.Is to return %t; got %t", specIndex, spec.exp, got)
		}
	}
}

func TestErrorKindString(t *testing.T) {
	specs := []struct {
		kind ErrorKind
		exp  string
	}{
		{KindMalformedData, "MalformedData"},
		{KindInvalidOpcode, "InvalidOpcode"},
		{KindOutOfResources, "OutOfResources"},
		{KindIoFailure, "IoFailure"},
		{KindTimeout, "Timeout"},
		{KindTypeMismatch, "TypeMismatch"},
		{KindFatal, "Fatal"},
		{KindReadEOF, "ReadEOF"},
		{KindWriteEOF, "WriteEOF"},
		{KindProgress, "Progress"},
		{KindUnsupported, "Unsupported"},
		{KindInternal, "Internal"},
		{ErrorKind(255), "Unknown"},
	}

	for specIndex, spec := range specs {
		if got := spec.kind.String(); got != spec.exp {
			t.Errorf("[spec %d] expected %q; got %q", specIndex, spec.exp, got)
		}
	}
}
