package table

import (
	"amlkit/kernel"
	"bytes"
	"encoding/binary"
)

// HeaderSize is the size in bytes of the standard header that prefixes every
// ACPI table.
const HeaderSize = 36

var (
	errShortTable       = &kernel.Error{Module: "acpi_table", Message: "table is shorter than its header", Kind: kernel.KindMalformedData}
	errBadLength        = &kernel.Error{Module: "acpi_table", Message: "table length field does not match the table contents", Kind: kernel.KindMalformedData}
	errBadSignature     = &kernel.Error{Module: "acpi_table", Message: "table signature contains invalid characters", Kind: kernel.KindMalformedData}
	errChecksumMismatch = &kernel.Error{Module: "acpi_table", Message: "detected checksum mismatch while parsing ACPI table header", Kind: kernel.KindMalformedData}
)

// Resolver is an interface implemented by objects that can lookup an ACPI table
// by its name.
//
// LookupTable attempts to locate a table by name ("DSDT", "SSDT", "SSDT2",
// ...) returning back its raw contents, header included, or nil if the table
// could not be found. TableNames lists the names LookupTable can resolve.
type Resolver interface {
	LookupTable(string) []byte
	TableNames() []string
}

// SDTHeader defines the common header for all ACPI-related tables.
type SDTHeader struct {
	// The signature defines the table type.
	Signature [4]byte

	// The length of the table
	Length uint32

	// If this header belongs to a DSDT/SSDT table, the revision is also
	// used to indicate whether the AML VM should treat integers as 32-bits
	// (revision < 2) or 64-bits (revision >= 2).
	Revision uint8

	// A value that when added to the sum of all other bytes in the table
	// should result in the value 0.
	Checksum uint8

	// OEM specific information
	OEMID       [6]byte
	OEMTableID  [8]byte
	OEMRevision uint32

	// Information about the ASL compiler that generated this table
	CreatorID       uint32
	CreatorRevision uint32
}

// SignatureString returns the table signature as a string.
func (h *SDTHeader) SignatureString() string { return string(h.Signature[:]) }

// OEMTableIDString returns the OEM table id with trailing padding removed.
func (h *SDTHeader) OEMTableIDString() string {
	return string(bytes.TrimRight(h.OEMTableID[:], " \x00"))
}

// IntegerWidth returns the width in bits of AML integers for a definition
// block carrying this header.
func (h *SDTHeader) IntegerWidth() int {
	if h.Revision < 2 {
		return 32
	}
	return 64
}

// ParseHeader decodes the standard header at the start of data. It does not
// validate the table; see Validate.
func ParseHeader(data []byte) (*SDTHeader, *kernel.Error) {
	if len(data) < HeaderSize {
		return nil, errShortTable
	}

	var h SDTHeader
	if err := binary.Read(bytes.NewReader(data[:HeaderSize]), binary.LittleEndian, &h); err != nil {
		return nil, errShortTable
	}

	return &h, nil
}

// Validate decodes the header of the table in data and checks its signature,
// its length field and its checksum.
func Validate(data []byte) (*SDTHeader, *kernel.Error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}

	for _, ch := range h.Signature {
		if (ch < 'A' || ch > 'Z') && (ch < '0' || ch > '9') && ch != '_' {
			return h, errBadSignature
		}
	}

	if h.Length < HeaderSize || int(h.Length) > len(data) {
		return h, errBadLength
	}

	if !validTable(data[:h.Length]) {
		return h, errChecksumMismatch
	}

	return h, nil
}

// IsChecksumMismatch returns true if err reports a table checksum mismatch.
func IsChecksumMismatch(err *kernel.Error) bool {
	return err != nil && err.Root() == errChecksumMismatch
}

// Build assembles a table with the supplied signature, revision, OEM table
// id and body. The length and checksum fields are filled in automatically.
func Build(signature string, revision uint8, oemTableID string, body []byte) []byte {
	buf := &bytes.Buffer{}

	var sig [4]byte
	copy(sig[:], signature)
	buf.Write(sig[:])

	// Length; patched below
	_ = binary.Write(buf, binary.LittleEndian, uint32(0))
	buf.WriteByte(revision)

	// Checksum; patched below
	buf.WriteByte(0)

	buf.WriteString("AMLKIT")

	var tableID [8]byte
	for i := range tableID {
		tableID[i] = ' '
	}
	copy(tableID[:], oemTableID)
	buf.Write(tableID[:])

	_ = binary.Write(buf, binary.LittleEndian, uint32(1))          // OEM revision
	_ = binary.Write(buf, binary.LittleEndian, uint32(0x4c4d4141)) // creator id ("AAML")
	_ = binary.Write(buf, binary.LittleEndian, uint32(0x20200101)) // creator revision
	buf.Write(body)

	b := buf.Bytes()
	binary.LittleEndian.PutUint32(b[4:], uint32(len(b)))

	var sum uint8
	for _, v := range b {
		sum += v
	}
	b[9] = uint8(0 - sum)

	return b
}

// validTable calculates the checksum for an ACPI table and returns true if
// the table is valid.
func validTable(data []byte) bool {
	var sum uint8
	for _, b := range data {
		sum += b
	}

	return sum == 0
}
