package parser

import (
	"amlkit/device/acpi/aml/entity"
	"amlkit/kernel"
	"bytes"
	"io/ioutil"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestDecoder(payload Asm) *Decoder {
	d := NewDecoder(ioutil.Discard)
	d.Reset("DSDT", payload, 0)
	return d
}

func mustNext(t *testing.T, d *Decoder) *Statement {
	t.Helper()
	st, err := d.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return st
}

func TestDecoderNamedObject(t *testing.T) {
	d := newTestDecoder(NameObj("FOO", Int(0x1234)))

	st := mustNext(t, d)
	if st.Op != entity.OpName {
		t.Fatalf("expected OpName; got %s", st.Op)
	}
	if exp, got := "FOO_", st.PathArg(0).String(); got != exp {
		t.Fatalf("expected name %q; got %q", exp, got)
	}
	if exp, got := ArgDataRefObj, st.NextArgType(); got != exp {
		t.Fatalf("expected next arg type %d; got %d", exp, got)
	}

	st = mustNext(t, d)
	if st.Op != entity.OpWordPrefix || st.NeedsArgs() || st.IntArg(0) != 0x1234 {
		t.Fatalf("expected a complete WordPrefix statement with value 0x1234; got %s %d", st.Op, st.IntArg(0))
	}

	if !d.EOF() {
		t.Fatal("expected decoder to reach EOF")
	}
}

func TestDecoderMethod(t *testing.T) {
	body := Return(Op(entity.OpOne))
	payload := Method(`\M000`, 0x0a, body)
	d := newTestDecoder(payload)

	st := mustNext(t, d)
	if st.Op != entity.OpMethod || st.NeedsArgs() {
		t.Fatalf("expected a complete Method statement; got %s (args %d/%d)", st.Op, st.ArgsHave, st.ArgsNeeded)
	}
	if exp, got := uint64(0x0a), st.IntArg(1); got != exp {
		t.Errorf("expected flags 0x%x; got 0x%x", exp, got)
	}
	if !bytes.Equal(st.Args[2].Bytes, body) {
		t.Errorf("expected method body % x; got % x", []byte(body), st.Args[2].Bytes)
	}
	if exp, got := uint64(len(payload)-len(body)), st.Scratch[1]; got != exp {
		t.Errorf("expected body offset %d; got %d", exp, got)
	}
	if exp, got := uint32(len(payload)), st.End(); got != exp || d.Offset() != exp {
		t.Errorf("expected end offset %d; got %d (decoder at %d)", exp, got, d.Offset())
	}
}

func TestDecoderDeferredInlineArgs(t *testing.T) {
	t.Run("buffer", func(t *testing.T) {
		d := newTestDecoder(Buffer(Int(4), 0xaa, 0xbb))

		st := mustNext(t, d)
		if st.Op != entity.OpBuffer || st.NextArgType() != ArgTermArg {
			t.Fatalf("expected Buffer statement waiting for its size")
		}

		size := mustNext(t, d)
		st.AddArg(entity.NewInteger(size.IntArg(0)))

		if err := d.DecodeInlineArg(st); err != nil {
			t.Fatal(err)
		}
		if exp, got := []byte{0xaa, 0xbb}, st.Args[1].Bytes; !bytes.Equal(got, exp) {
			t.Fatalf("expected byte list % x; got % x", exp, got)
		}
		if !d.EOF() {
			t.Fatal("expected decoder to reach EOF")
		}
	})

	t.Run("bank field", func(t *testing.T) {
		d := newTestDecoder(BankField("REG0", "BNK0", Int(2), 0x01, NamedField("FLD0", 8)))

		st := mustNext(t, d)
		if st.ArgsHave != 2 || st.NextArgType() != ArgTermArg {
			t.Fatalf("expected BankField statement waiting for its bank value; got %d args", st.ArgsHave)
		}

		value := mustNext(t, d)
		st.AddArg(entity.NewInteger(value.IntArg(0)))

		for st.NeedsArgs() {
			if err := d.DecodeInlineArg(st); err != nil {
				t.Fatal(err)
			}
		}

		exp := []FieldElement{{Name: "FLD0", BitLength: 8, AccessType: entity.FieldAccessTypeByte}}
		if diff := cmp.Diff(exp, st.Fields); diff != "" {
			t.Fatalf("field list mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("not inline", func(t *testing.T) {
		d := newTestDecoder(Store(Int(1), Local(0)))
		st := mustNext(t, d)
		if err := d.DecodeInlineArg(st); err == nil || err.Root() != errNotInlineArg {
			t.Fatalf("expected errNotInlineArg; got %v", err)
		}
	})
}

func TestDecoderFieldList(t *testing.T) {
	d := newTestDecoder(Field("REG0", 0x01,
		NamedField("FLD0", 8),
		ReservedField(8),
		AccessField(entity.FieldAccessTypeWord, 0),
		NamedField("FLD1", 16),
		Raw(0x03, byte(entity.FieldAccessTypeBuffer), 0x0b, 4),
		NamedField("FLD2", 32),
		Raw(0x02), Name("^GPI0"),
		NamedField("FLD3", 1),
		Raw(0x02), Buffer(Int(4), 0x8c),
		NamedField("FLD4", 1),
	))

	st := mustNext(t, d)
	if st.NeedsArgs() {
		t.Fatalf("expected field statement to be complete")
	}

	if exp, got := 5, len(st.Fields); got != exp {
		t.Fatalf("expected %d fields; got %d", exp, got)
	}

	exp := []FieldElement{
		{Name: "FLD0", BitOffset: 0, BitLength: 8, AccessType: entity.FieldAccessTypeByte},
		{Name: "FLD1", BitOffset: 16, BitLength: 16, AccessType: entity.FieldAccessTypeWord},
		{Name: "FLD2", BitOffset: 32, BitLength: 32, AccessType: entity.FieldAccessTypeBuffer, AccessAttrib: entity.FieldAccessAttribBytes, AccessLength: 4},
	}
	if diff := cmp.Diff(exp, st.Fields[:3]); diff != "" {
		t.Fatalf("field list mismatch (-want +got):\n%s", diff)
	}

	if conn := st.Fields[3].Connection; conn == nil || conn.Type != entity.TypeUnresolvedName || conn.Unresolved.Path.String() != "^GPI0" {
		t.Errorf("expected FLD3 to be connected to ^GPI0")
	}
	if conn := st.Fields[4].Connection; conn == nil || conn.Type != entity.TypeBuffer || !bytes.Equal(conn.Bytes, []byte{0x8c, 0, 0, 0}) {
		t.Errorf("expected FLD4 to be connected to a 4-byte resource buffer")
	}
	if exp, got := uint32(65), st.Fields[4].BitOffset; got != exp {
		t.Errorf("expected FLD4 at bit offset %d; got %d", exp, got)
	}
}

func TestDecoderErrors(t *testing.T) {
	specs := []struct {
		payload   []byte
		expErr    *kernel.Error
		expKind   kernel.ErrorKind
		expOffset string
	}{
		{[]byte{}, errUnexpectedEOF, kernel.KindMalformedData, "offset: 0"},
		{[]byte{0x02}, errInvalidOpcode, kernel.KindInvalidOpcode, "offset: 0"},
		{[]byte{0xa3, 0x5b, 0x03}, errInvalidExtOpcode, kernel.KindMalformedData, "offset: 1"},
		{[]byte{0x5b}, errUnexpectedEOF, kernel.KindMalformedData, "offset: 0"},
		// Scope whose PkgLength exceeds the block
		{[]byte{0x10, 0x3f, '_', 'S', 'B', '_'}, errInvalidPkgLength, kernel.KindMalformedData, "offset: 1"},
		// Invalid PkgLength lead byte
		{[]byte{0x10, 0xd0, 0, 0, 0}, errInvalidPkgLength, kernel.KindMalformedData, "offset: 1"},
		// Name with an invalid name segment
		{[]byte{0x08, '1', 'A', 'B', 'C'}, errInvalidName, kernel.KindMalformedData, "offset: 1"},
		// Unterminated string
		{[]byte{0x0d, 'A', 'B'}, errInvalidString, kernel.KindMalformedData, "offset: 1"},
		// Non-ASCII string
		{[]byte{0x0d, 0x80, 0x00}, errInvalidString, kernel.KindMalformedData, "offset: 1"},
		// Truncated WordData
		{[]byte{0x0b, 0x01}, errUnexpectedEOF, kernel.KindMalformedData, "offset: 1"},
		// Field list entry that overruns the package
		{append([]byte{0x5b, 0x81, 0x0a}, append([]byte("REG0"), 0x01, 'F', 'L', 'D', '0', 0x48, 0x01)...), errInvalidFieldList, kernel.KindMalformedData, "offset: 14"},
	}

	for specIndex, spec := range specs {
		var log bytes.Buffer
		d := NewDecoder(&log)
		d.Reset("DSDT", spec.payload, 0)

		var err *kernel.Error
		for err == nil && !d.EOF() {
			_, err = d.Next()
		}
		if len(spec.payload) == 0 {
			_, err = d.Next()
		}

		if err == nil || err.Root() != spec.expErr {
			t.Errorf("[spec %d] expected error %v; got %v", specIndex, spec.expErr, err)
			continue
		}
		if err.Kind != spec.expKind {
			t.Errorf("[spec %d] expected error kind %s; got %s", specIndex, spec.expKind, err.Kind)
		}
		if !strings.Contains(err.Message, "[table: DSDT, "+spec.expOffset+"]") {
			t.Errorf("[spec %d] expected error message to mention %q; got %q", specIndex, spec.expOffset, err.Message)
		}
		if !strings.Contains(log.String(), spec.expOffset) {
			t.Errorf("[spec %d] expected error to be logged; got %q", specIndex, log.String())
		}
	}
}

func TestDecoderPackageOverrun(t *testing.T) {
	specs := []struct {
		payload   []byte
		expOffset string
	}{
		// Method whose name and flags run past its PkgLength
		{[]byte{0x14, 0x02, 'A', 'B', 'C', 'D', 0x00, 0xa3, 0xa3}, "offset: 7"},
		{[]byte{0x14, 0x01, 'A', 'B', 'C', 'D', 0x00}, "offset: 7"},
		// Buffer whose size arg runs past its PkgLength
		{[]byte{0x11, 0x01, 0x0a, 0x04, 0xaa, 0xbb}, "offset: 4"},
		// Field whose region name runs past its PkgLength
		{[]byte{0x5b, 0x81, 0x01, 'R', 'E', 'G', '0', 0x01}, "offset: 8"},
	}

	for specIndex, spec := range specs {
		d := NewDecoder(ioutil.Discard)
		d.Reset("DSDT", spec.payload, 0)

		st, err := d.Next()
		for err == nil && st.NeedsArgs() {
			if st.NextArgType().IsInline() {
				err = d.DecodeInlineArg(st)
				continue
			}

			var arg *Statement
			if arg, err = d.Next(); err == nil {
				st.AddArg(entity.NewInteger(arg.IntArg(0)))
			}
		}

		if err == nil || err.Root() != errInvalidPkgLength {
			t.Errorf("[spec %d] expected error %v; got %v", specIndex, errInvalidPkgLength, err)
			continue
		}
		if err.Kind != kernel.KindMalformedData {
			t.Errorf("[spec %d] expected error kind %s; got %s", specIndex, kernel.KindMalformedData, err.Kind)
		}
		if !strings.Contains(err.Message, spec.expOffset) {
			t.Errorf("[spec %d] expected error message to mention %q; got %q", specIndex, spec.expOffset, err.Message)
		}
	}
}

func TestDecoderExtendedOpcodeTable(t *testing.T) {
	for code := 0; code < 256; code++ {
		payload := append([]byte{extOpPrefix, byte(code)}, make([]byte, 16)...)
		d := newTestDecoder(payload)

		_, err := d.Next()
		isExtErr := err != nil && err.Root() == errInvalidExtOpcode
		if exp := extendedOpcodeMap[code] == badOpcode; isExtErr != exp {
			t.Errorf("extended opcode 0x5b 0x%02x: expected invalid opcode error to be %t; got %v", code, exp, err)
		}
	}
}

func TestDecoderNamePath(t *testing.T) {
	d := newTestDecoder(Seq(Call(`\_SB_.PCI0._STA`), Local(3)))

	st := mustNext(t, d)
	if st.Op != entity.OpNamePath || st.Path.String() != `\_SB_.PCI0._STA` {
		t.Fatalf("expected a NamePath for \\_SB_.PCI0._STA; got %s %s", st.Op, st.Path.String())
	}

	st = mustNext(t, d)
	if st.Op != entity.OpLocal3 {
		t.Fatalf("expected Local3; got %s", st.Op)
	}
}
