package entity

import (
	"bytes"
	"strings"
	"testing"
)

func TestEISAID(t *testing.T) {
	specs := []struct {
		id  string
		val uint32
	}{
		{"PNP0A03", 0x030ad041},
		{"PNP0C0A", 0x0a0cd041},
		{"PNP0103", 0x0301d041},
	}

	for specIndex, spec := range specs {
		if got := DecodeEISAID(spec.val); got != spec.id {
			t.Errorf("[spec %d] expected DecodeEISAID(0x%x) to return %q; got %q", specIndex, spec.val, spec.id, got)
		}

		got, ok := EncodeEISAID(spec.id)
		if !ok || got != spec.val {
			t.Errorf("[spec %d] expected EncodeEISAID(%q) to return 0x%x; got 0x%x (ok: %t)", specIndex, spec.id, spec.val, got, ok)
		}
	}

	for specIndex, bad := range []string{"PNP0A0", "pnp0a03", "PNP0G03"} {
		if _, ok := EncodeEISAID(bad); ok {
			t.Errorf("[spec %d] expected EncodeEISAID(%q) to fail", specIndex, bad)
		}
	}
}

func TestPrettyPrint(t *testing.T) {
	ns := NewNamespace()
	pci := New(TypeDevice)
	_ = ns.Attach(ns.Root().Child("_SB_"), "PCI0", pci)
	_ = ns.Attach(pci, "_HID", NewInteger(0x030ad041))
	_ = ns.Attach(pci, "_UID", NewString("PCI"))
	_ = ns.Attach(pci, "BUF0", NewBuffer([]byte{1, 0xff}))

	region := New(TypeRegion)
	region.Region.Offset = 0x1000
	region.Region.Length = 0x10
	_ = ns.Attach(pci, "REG0", region)
	_ = ns.Attach(pci, "FLD0", NewFieldUnit(region, FieldUnit{AccessType: FieldAccessTypeByte, BitOffset: 4, BitLength: 4}))

	var buf bytes.Buffer
	PrettyPrint(&buf, ns.Root())
	out := buf.String()

	for _, exp := range []string{
		`+- [Scope, name: "\"]`,
		`+- [Device, name: "PCI0"]`,
		`+- [Integer, name: "_HID"] -> [num value; dec: 51040321, hex: 0x30ad041] [EISA: "PNP0A03"]`,
		`+- [String, name: "_UID"] -> [string value: "PCI"]`,
		`+- [Buffer, name: "BUF0"] -> [bytelist value; len: 2; data: [0x1, 0xff]]`,
		`+- [OperationRegion, name: "REG0"] -> [space: SystemMemory, offset: 0x1000, length: 0x10]`,
		`+- [FieldUnit, name: "FLD0"] -> [offset(bits): 0x4, width(bits): 0x4, accType: Byte, lockType: NoLock, updateType: Preserve]`,
	} {
		if !strings.Contains(out, exp) {
			t.Errorf("expected output to contain %q; got:\n%s", exp, out)
		}
	}

	if exp, got := 1+5+1+5, strings.Count(out, "\n"); got != exp {
		t.Errorf("expected %d lines; got %d", exp, got)
	}
}
