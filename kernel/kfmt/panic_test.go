package kfmt

import (
	"amlkit/kernel"
	"bytes"
	"errors"
	"testing"
)

func TestPanic(t *testing.T) {
	origHaltFn := haltFn
	defer func() {
		haltFn = origHaltFn
		outputSink = nil
	}()

	var haltCalled bool
	haltFn = func() {
		haltCalled = true
	}

	specs := []struct {
		input interface{}
		exp   string
	}{
		{
			&kernel.Error{Module: "acpi_aml_vm", Message: "AML Fatal(type: 0x1, code: 0x2a, arg: 0x0)"},
			"\n-----------------------------------\n[acpi_aml_vm] unrecoverable error: AML Fatal(type: 0x1, code: 0x2a, arg: 0x0)\n*** fatal error: system halted ***\n-----------------------------------\n",
		},
		{
			errors.New("go error"),
			"\n-----------------------------------\n[rt] unrecoverable error: go error\n*** fatal error: system halted ***\n-----------------------------------\n",
		},
		{
			"string error",
			"\n-----------------------------------\n[rt] unrecoverable error: string error\n*** fatal error: system halted ***\n-----------------------------------\n",
		},
		{
			nil,
			"\n-----------------------------------\n*** fatal error: system halted ***\n-----------------------------------\n",
		},
	}

	var buf bytes.Buffer
	SetOutputSink(&buf)

	for specIndex, spec := range specs {
		buf.Reset()
		haltCalled = false

		Panic(spec.input)

		if got := buf.String(); got != spec.exp {
			t.Errorf("[spec %d] expected to get:\n%q\ngot:\n%q", specIndex, spec.exp, got)
		}

		if !haltCalled {
			t.Errorf("[spec %d] expected halt function to be called by Panic", specIndex)
		}
	}
}
