package table

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestMapResolver(t *testing.T) {
	r := NewMapResolver(
		Build("SSDT", 2, "A", nil),
		Build("DSDT", 2, "B", nil),
		Build("SSDT", 2, "C", nil),
		[]byte("short"),
	)

	if exp, got := []string{"DSDT", "SSDT", "SSDT2"}, r.TableNames(); !reflect.DeepEqual(got, exp) {
		t.Fatalf("expected table names %v; got %v", exp, got)
	}

	h, _ := ParseHeader(r.LookupTable("SSDT2"))
	if got := h.OEMTableIDString(); got != "C" {
		t.Errorf("expected SSDT2 to map to the third table; got OEM table id %q", got)
	}

	if r.LookupTable("FACP") != nil {
		t.Error("expected lookup of missing table to return nil")
	}
}

func TestDefinitionBlocks(t *testing.T) {
	r := &MapResolver{}
	r.Add("SSDT10", Build("SSDT", 2, "", nil))
	r.Add("SSDT2", Build("SSDT", 2, "", nil))
	r.Add("APIC", Build("APIC", 2, "", nil))
	r.Add("DSDT", Build("DSDT", 2, "", nil))
	r.Add("SSDT1", Build("SSDT", 2, "", nil))

	exp := []string{"DSDT", "SSDT1", "SSDT2", "SSDT10"}
	if got := DefinitionBlocks(r); !reflect.DeepEqual(got, exp) {
		t.Fatalf("expected %v; got %v", exp, got)
	}
}

func TestDirResolver(t *testing.T) {
	dir := t.TempDir()

	files := map[string][]byte{
		"dsdt.dat": Build("DSDT", 2, "", []byte{0xa3}),
		"SSDT1":    Build("SSDT", 2, "", nil),
		"README":   []byte("not a table"),
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "dynamic"), 0o755); err != nil {
		t.Fatal(err)
	}

	r, err := NewDirResolver(dir)
	if err != nil {
		t.Fatal(err)
	}

	if exp, got := []string{"DSDT", "SSDT1"}, r.TableNames(); !reflect.DeepEqual(got, exp) {
		t.Fatalf("expected table names %v; got %v", exp, got)
	}

	if !bytes.Equal(r.LookupTable("DSDT"), files["dsdt.dat"]) {
		t.Error("expected DSDT contents to match the file contents")
	}

	if r.Dir() != dir {
		t.Errorf("expected Dir() to return %q; got %q", dir, r.Dir())
	}

	if _, err = NewDirResolver(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected an error for a missing directory")
	}
}

func TestMemResolver(t *testing.T) {
	defer func(rsdpLow, rsdpHi, rsdpAlign int64) {
		rsdpLocationLow = rsdpLow
		rsdpLocationHi = rsdpHi
		rsdpAlignment = rsdpAlign
	}(rsdpLocationLow, rsdpLocationHi, rsdpAlignment)

	const (
		rsdpAddr = 0x40
		rsdtAddr = 0x200
		fadtAddr = 0x300
		dsdtAddr = 0x500
		ssdtAddr = 0x600
		apicAddr = 0x700
	)

	rsdpLocationLow, rsdpLocationHi = 0, 0xff

	t.Run("ACPI1", func(t *testing.T) {
		mem := make([]byte, 0x1000)

		rsdp := RSDPDescriptor{Revision: acpiRev1, RSDTAddr: rsdtAddr}
		copy(rsdp.Signature[:], rsdpSignature)
		writeRSDP(t, mem[rsdpAddr:], &rsdp, sizeofRSDP)

		var rsdtBody []byte
		for _, addr := range []uint32{fadtAddr, ssdtAddr, apicAddr} {
			rsdtBody = binary.LittleEndian.AppendUint32(rsdtBody, addr)
		}
		copy(mem[rsdtAddr:], Build("RSDT", 1, "", rsdtBody))

		fadtBody := make([]byte, 244-HeaderSize)
		binary.LittleEndian.PutUint32(fadtBody[fadtDsdtOffset-HeaderSize:], dsdtAddr)
		copy(mem[fadtAddr:], Build("FACP", 1, "", fadtBody))

		copy(mem[dsdtAddr:], Build("DSDT", 1, "", []byte{0xa3}))
		copy(mem[ssdtAddr:], Build("SSDT", 1, "", []byte{0xa3}))

		apic := Build("APIC", 1, "", []byte{1, 2, 3})
		apic[9]++
		copy(mem[apicAddr:], apic)

		r, err := NewMemResolver(bytes.NewReader(mem))
		if err != nil {
			t.Fatal(err)
		}

		if exp, got := []string{"DSDT", "FACP", "SSDT"}, r.TableNames(); !reflect.DeepEqual(got, exp) {
			t.Fatalf("expected table names %v; got %v", exp, got)
		}

		if exp := []string{"APIC"}; !reflect.DeepEqual(r.Skipped, exp) {
			t.Fatalf("expected skipped tables %v; got %v", exp, r.Skipped)
		}
	})

	t.Run("ACPI2+", func(t *testing.T) {
		mem := make([]byte, 0x1000)

		rsdp := ExtRSDPDescriptor{XSDTAddr: rsdtAddr, Length: sizeofExtRSDP}
		rsdp.Revision = acpiRev2Plus
		copy(rsdp.Signature[:], rsdpSignature)
		writeRSDP(t, mem[rsdpAddr:], &rsdp, sizeofExtRSDP)

		xsdtBody := binary.LittleEndian.AppendUint64(nil, fadtAddr)
		copy(mem[rsdtAddr:], Build("XSDT", 2, "", xsdtBody))

		fadtBody := make([]byte, 244-HeaderSize)
		binary.LittleEndian.PutUint64(fadtBody[fadtExtDsdtOffset-HeaderSize:], dsdtAddr)
		copy(mem[fadtAddr:], Build("FACP", 2, "", fadtBody))
		copy(mem[dsdtAddr:], Build("DSDT", 2, "", nil))

		r, err := NewMemResolver(bytes.NewReader(mem))
		if err != nil {
			t.Fatal(err)
		}

		if exp, got := []string{"DSDT", "FACP"}, r.TableNames(); !reflect.DeepEqual(got, exp) {
			t.Fatalf("expected table names %v; got %v", exp, got)
		}
	})

	t.Run("missing RSDP", func(t *testing.T) {
		if _, err := NewMemResolver(bytes.NewReader(make([]byte, 0x1000))); err != errMissingRSDP {
			t.Fatalf("expected to get errMissingRSDP; got %v", err)
		}
	})
}

// writeRSDP serializes rsdp into buf and patches its checksum so that the
// first size bytes add up to zero.
func writeRSDP(t *testing.T, buf []byte, rsdp interface{}, size int) {
	var out bytes.Buffer
	if err := binary.Write(&out, binary.LittleEndian, rsdp); err != nil {
		t.Fatal(err)
	}
	copy(buf, out.Bytes())

	var sum uint8
	for _, b := range buf[:size] {
		sum += b
	}
	buf[8] = -sum
}
