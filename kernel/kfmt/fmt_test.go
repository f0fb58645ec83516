package kfmt

import (
	"amlkit/kernel"
	"bytes"
	"fmt"
	"strings"
	"testing"
)

func TestPrintf(t *testing.T) {
	defer func() {
		outputSink = nil
	}()

	// mute vet warnings about malformed printf formatting strings
	printfn := Printf

	errUndefinedOp := &kernel.Error{Module: "acpi_aml_vm", Message: "undefined opcode", Kind: kernel.KindInvalidOpcode}

	specs := []struct {
		fn        func()
		expOutput string
	}{
		{
			func() { printfn("[acpi] no DSDT found") },
			"[acpi] no DSDT found",
		},
		// bool values; padding is ignored
		{
			func() { printfn("serialized: %t", true) },
			"serialized: true",
		},
		{
			func() { printfn("is32Bit: %8t", false) },
			"is32Bit: false",
		},
		// strings, byte slices, errors and stringers
		{
			func() { printfn("scope %s", "_SB_") },
			"scope _SB_",
		},
		{
			func() { printfn("scope %s", []byte("PCI0")) },
			"scope PCI0",
		},
		{
			func() { printfn("load failed: %s", errUndefinedOp) },
			"load failed: undefined opcode",
		},
		{
			func() { printfn("load failed: %s", errUndefinedOp.WithDetail("0x02")) },
			"load failed: undefined opcode: 0x02",
		},
		{
			func() { printfn("[%s] %s", kernel.KindTimeout, "Acquire(MTX0)") },
			"[Timeout] Acquire(MTX0)",
		},
		{
			func() { printfn("'%6s' table", "DSDT") },
			"'  DSDT' table",
		},
		{
			func() { printfn("'%4s' longer than padding", "SSDT12") },
			"'SSDT12' longer than padding",
		},
		// uints
		{
			func() { printfn("revision %d", uint8(2)) },
			"revision 2",
		},
		{
			func() { printfn("sync level %o", uint8(15)) },
			"sync level 17",
		},
		{
			func() { printfn("length 0x%x", uint32(0x1c4)) },
			"length 0x1c4",
		},
		{
			func() { printfn("dict size '%10d'", uint64(1<<20)) },
			"dict size '   1048576'",
		},
		{
			func() { printfn("mode '%4o'", uint16(0644)) },
			"mode '0644'",
		},
		{
			func() { printfn("length 0x%8x", uint32(0x1c4)) },
			"length 0x000001c4",
		},
		{
			func() { printfn("opcode 0x%2x", uint16(0x5b81)) },
			"opcode 0x5b81",
		},
		// pointers
		{
			func() { printfn("region base 0x%x", uintptr(0xfed00000)) },
			"region base 0xfed00000",
		},
		// ints
		{
			func() { printfn("offset %d", int32(-4)) },
			"offset -4",
		},
		{
			func() { printfn("delta %x", int64(-0x1f)) },
			"delta -1f",
		},
		{
			func() { printfn("delta '%6d'", int(-42)) },
			"delta '   -42'",
		},
		{
			func() { printfn("delta '%3d'", int(-123)) },
			"delta '-123'",
		},
		{
			func() { printfn("delta '%6x'", int(-0xab)) },
			"delta '-0000ab'",
		},
		{
			func() { printfn("padding longer than maxBufSize '%128x'", int(-0x5b)) },
			fmt.Sprintf("padding longer than maxBufSize '-%s5b'", strings.Repeat("0", maxBufSize-3)),
		},
		// multiple arguments
		{
			func() { printfn(`\%s.%s %d%%`, "_SB_", "PCI0", 100) },
			`\_SB_.PCI0 100%`,
		},
		// errors
		{
			func() { printfn("[amlctl] extra", "DSDT", 2) },
			`[amlctl] extra%!(EXTRA)%!(EXTRA)`,
		},
		{
			func() { printfn("missing table %s") },
			`missing table (MISSING)`,
		},
		{
			func() { printfn("unknown verb %Q") },
			`unknown verb %!(NOVERB)`,
		},
		{
			func() { printfn("not bool %t", kernel.KindTimeout) },
			`not bool %!(WRONGTYPE)`,
		},
		{
			func() { printfn("not int %d", "DSDT") },
			`not int %!(WRONGTYPE)`,
		},
		{
			func() { printfn("not string %s", 0x5b) },
			`not string %!(WRONGTYPE)`,
		},
	}

	var buf bytes.Buffer
	SetOutputSink(&buf)

	for specIndex, spec := range specs {
		buf.Reset()
		spec.fn()

		if got := buf.String(); got != spec.expOutput {
			t.Errorf("[spec %d] expected to get\n%q\ngot:\n%q", specIndex, spec.expOutput, got)
		}
	}
}

func TestPrintfToRingBuffer(t *testing.T) {
	defer func() {
		outputSink = nil
	}()

	SetOutputSink(nil)
	exp := "[acpi] early output 42"
	Printf("[acpi] early output %d", 42)

	var buf bytes.Buffer
	SetOutputSink(&buf)

	if got := buf.String(); got != exp {
		t.Fatalf("expected to get:\n%q\ngot:\n%q", exp, got)
	}
}

func TestFprintf(t *testing.T) {
	var buf bytes.Buffer

	exp := "hello world"
	Fprintf(&buf, exp)

	if got := buf.String(); got != exp {
		t.Fatalf("expected to get:\n%q\ngot:\n%q", exp, got)
	}

	// Writing to a nil writer must not panic
	Fprintf(nil, "ignored %d", 1)
}

type stringerValue struct{}

func (stringerValue) String() string { return "STRINGER" }

func TestSprintf(t *testing.T) {
	specs := []struct {
		format string
		args   []interface{}
		exp    string
	}{
		{"[table: %s, offset: %d] undefined scope", []interface{}{"DSDT", uint32(36)}, "[table: DSDT, offset: 36] undefined scope"},
		{"%s", []interface{}{stringerValue{}}, "STRINGER"},
		{"opcode 0x%2x", []interface{}{uint8(0x5b)}, "opcode 0x5b"},
		{"uint: %d", []interface{}{uint(7)}, "uint: 7"},
		{"trailing %", nil, "trailing "},
	}

	for specIndex, spec := range specs {
		if got := Sprintf(spec.format, spec.args...); got != spec.exp {
			t.Errorf("[spec %d] expected %q; got %q", specIndex, spec.exp, got)
		}
	}
}
