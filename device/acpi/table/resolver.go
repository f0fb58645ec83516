package table

import (
	"amlkit/kernel"
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const (
	acpiRev1     uint8 = 0
	acpiRev2Plus uint8 = 2

	sizeofRSDP    = 20
	sizeofExtRSDP = 36

	// Offsets of the DSDT pointers inside the FADT.
	fadtDsdtOffset    = 40
	fadtExtDsdtOffset = 140
)

var (
	errMissingRSDP = &kernel.Error{Module: "acpi_table", Message: "could not locate ACPI RSDP", Kind: kernel.KindNotFound}
	errReadFailed  = &kernel.Error{Module: "acpi_table", Message: "could not read table contents", Kind: kernel.KindIoFailure}

	// RDSP must be located in the physical memory region 0xe0000 to 0xfffff
	rsdpLocationLow int64 = 0xe0000
	rsdpLocationHi  int64 = 0xfffff
	rsdpAlignment   int64 = 16

	rsdpSignature = []byte("RSD PTR ")
	fadtSignature = "FACP"
	dsdtSignature = "DSDT"
	ssdtSignature = "SSDT"
)

// RSDPDescriptor defines the root system descriptor pointer for ACPI 1.0. This
// is used as the entry-point for parsing ACPI data.
type RSDPDescriptor struct {
	// The signature must contain "RSD PTR " (last byte is a space).
	Signature [8]byte

	// A value that when added to the sum of all other bytes in the 32-bit
	// RSDT should result in the value 0.
	Checksum uint8

	OEMID [6]byte

	// ACPI revision number. It is 0 for ACPI1.0 and 2 for versions 2.0 to 6.2.
	Revision uint8

	// Physical address of 32-bit root system descriptor table.
	RSDTAddr uint32
}

// ExtRSDPDescriptor extends RSDPDescriptor with additional fields. It is used
// when RSDPDescriptor.revision > 1.
type ExtRSDPDescriptor struct {
	RSDPDescriptor

	// The size of the 64-bit root system descriptor table.
	Length uint32

	// Physical address of 64-bit root system descriptor table.
	XSDTAddr uint64

	// A value that when added to the sum of all other bytes in the 64-bit
	// RSDT should result in the value 0.
	ExtendedChecksum uint8

	_ [3]byte
}

// tableSet is a name-indexed collection of raw tables shared by the resolver
// implementations in this package.
type tableSet struct {
	tables map[string][]byte
	names  []string
}

func (s *tableSet) add(name string, data []byte) {
	if s.tables == nil {
		s.tables = make(map[string][]byte)
	}

	if _, exists := s.tables[name]; !exists {
		s.names = append(s.names, name)
	}
	s.tables[name] = data
}

// addUnique registers data under signature; if the name is already taken the
// first free "<signature>N" name, starting from N = 2, is used instead.
func (s *tableSet) addUnique(signature string, data []byte) string {
	name := signature
	for n := 2; ; n++ {
		if _, exists := s.tables[name]; !exists {
			break
		}
		name = signature + strconv.Itoa(n)
	}
	s.add(name, data)
	return name
}

// LookupTable implements Resolver.
func (s *tableSet) LookupTable(name string) []byte {
	return s.tables[name]
}

// TableNames implements Resolver.
func (s *tableSet) TableNames() []string {
	names := append([]string(nil), s.names...)
	sort.Strings(names)
	return names
}

// MapResolver is a Resolver backed by an in-memory table map.
type MapResolver struct {
	tableSet
}

// NewMapResolver returns a resolver serving the supplied tables. Each table
// is registered under its header signature; repeated signatures are suffixed
// with an increasing index ("SSDT", "SSDT2", ...).
func NewMapResolver(tables ...[]byte) *MapResolver {
	r := &MapResolver{}
	for _, data := range tables {
		h, err := ParseHeader(data)
		if err != nil {
			continue
		}
		r.addUnique(h.SignatureString(), data)
	}
	return r
}

// Add registers data under name, replacing any existing table with that name.
func (r *MapResolver) Add(name string, data []byte) { r.add(name, data) }

// DirResolver is a Resolver serving tables dumped to a directory, such as
// /sys/firmware/acpi/tables or the output of acpidump -b. Each regular file
// becomes a table named after the upper-cased file name with its extension
// stripped.
type DirResolver struct {
	tableSet
	dir string
}

// NewDirResolver reads every table in dir. Files that are too short to
// contain a table header are ignored.
func NewDirResolver(dir string) (*DirResolver, *kernel.Error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errReadFailed.WithDetail(err.Error())
	}

	r := &DirResolver{dir: dir}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, errReadFailed.WithDetail(err.Error())
		}

		if len(data) < HeaderSize {
			continue
		}

		name := entry.Name()
		name = strings.ToUpper(strings.TrimSuffix(name, filepath.Ext(name)))
		r.add(name, data)
	}

	return r, nil
}

// Dir returns the directory the resolver was populated from.
func (r *DirResolver) Dir() string { return r.dir }

// MemResolver is a Resolver that discovers tables by scanning a physical
// memory image for the RSDP and walking the RSDT/XSDT it points to.
type MemResolver struct {
	tableSet

	// Skipped lists the signatures of tables that failed validation.
	Skipped []string
}

// NewMemResolver scans mem for the RSDP and loads every table reachable from
// it. Besides the table list defined by the RSDP, the FADT (if found) is also
// consulted to locate the DSDT. Tables with a checksum mismatch are skipped
// and their names are recorded in the Skipped field.
func NewMemResolver(mem io.ReaderAt) (*MemResolver, *kernel.Error) {
	rsdtAddr, useXSDT, err := locateRSDT(mem)
	if err != nil {
		return nil, err
	}

	r := &MemResolver{}
	rsdt, err := readTable(mem, int64(rsdtAddr))
	if err != nil {
		return nil, err
	}

	var (
		acpiRev      = rsdt[8]
		payload      = rsdt[HeaderSize:]
		sdtAddresses []uint64
	)

	// RSDT uses 4-byte long pointers whereas the XSDT uses 8-byte long.
	switch useXSDT {
	case true:
		for i := 0; i+8 <= len(payload); i += 8 {
			sdtAddresses = append(sdtAddresses, binary.LittleEndian.Uint64(payload[i:]))
		}
	default:
		for i := 0; i+4 <= len(payload); i += 4 {
			sdtAddresses = append(sdtAddresses, uint64(binary.LittleEndian.Uint32(payload[i:])))
		}
	}

	for _, addr := range sdtAddresses {
		data, err := r.load(mem, addr)
		if err != nil {
			return nil, err
		}

		// The FADT allows us to lookup the DSDT table address
		if data == nil || string(data[:4]) != fadtSignature {
			continue
		}

		dsdtAddr := uint64(binary.LittleEndian.Uint32(data[fadtDsdtOffset:]))
		if acpiRev >= acpiRev2Plus && len(data) >= fadtExtDsdtOffset+8 {
			if extAddr := binary.LittleEndian.Uint64(data[fadtExtDsdtOffset:]); extAddr != 0 {
				dsdtAddr = extAddr
			}
		}

		if _, err = r.load(mem, dsdtAddr); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// load reads and validates the table at addr. It returns nil data if the
// table was skipped.
func (r *MemResolver) load(mem io.ReaderAt, addr uint64) ([]byte, *kernel.Error) {
	data, err := readTable(mem, int64(addr))
	if err != nil {
		return nil, err
	}

	h, err := Validate(data)
	switch {
	case IsChecksumMismatch(err):
		r.Skipped = append(r.Skipped, h.SignatureString())
		return nil, nil
	case err != nil:
		return nil, err
	}

	r.addUnique(h.SignatureString(), data)
	return data, nil
}

// readTable reads the header of the table at addr and uses its length field
// to read the remaining table contents.
func readTable(mem io.ReaderAt, addr int64) ([]byte, *kernel.Error) {
	hdr := make([]byte, HeaderSize)
	if _, err := mem.ReadAt(hdr, addr); err != nil {
		return nil, errReadFailed.WithDetail(err.Error())
	}

	length := binary.LittleEndian.Uint32(hdr[4:])
	if length < HeaderSize {
		return nil, errBadLength
	}

	data := make([]byte, length)
	if _, err := mem.ReadAt(data, addr); err != nil {
		return nil, errReadFailed.WithDetail(err.Error())
	}

	return data, nil
}

// locateRSDT scans the memory region [rsdpLocationLow, rsdpLocationHi] looking
// for the signature of the root system descriptor pointer (RSDP). If the RSDP
// is found and is valid, locateRSDT returns the physical address of the root
// system descriptor table (RSDT) or the extended system descriptor table (XSDT)
// if the system supports ACPI 2.0+.
func locateRSDT(mem io.ReaderAt) (uint64, bool, *kernel.Error) {
	region := make([]byte, rsdpLocationHi-rsdpLocationLow+1)
	n, _ := mem.ReadAt(region, rsdpLocationLow)
	region = region[:n]

	// The RSDP should be aligned on a 16-byte boundary
	for off := 0; off+sizeofRSDP <= len(region); off += int(rsdpAlignment) {
		if !bytes.Equal(region[off:off+8], rsdpSignature) {
			continue
		}

		var rsdp RSDPDescriptor
		_ = binary.Read(bytes.NewReader(region[off:]), binary.LittleEndian, &rsdp)

		if rsdp.Revision == acpiRev1 {
			if !validTable(region[off : off+sizeofRSDP]) {
				continue
			}

			return uint64(rsdp.RSDTAddr), false, nil
		}

		// System uses ACPI revision > 1 and provides an extended RSDP
		// which can be accessed at the same place.
		if off+sizeofExtRSDP > len(region) || !validTable(region[off:off+sizeofExtRSDP]) {
			continue
		}

		var rsdp2 ExtRSDPDescriptor
		_ = binary.Read(bytes.NewReader(region[off:off+sizeofExtRSDP]), binary.LittleEndian, &rsdp2)
		return rsdp2.XSDTAddr, true, nil
	}

	return 0, false, errMissingRSDP
}

// DefinitionBlocks returns the names of the tables served by r that contain
// AML definition blocks in load order: the DSDT followed by every SSDT in
// name order.
func DefinitionBlocks(r Resolver) []string {
	var (
		names []string
		ssdts []string
	)

	for _, name := range r.TableNames() {
		data := r.LookupTable(name)
		if len(data) < HeaderSize {
			continue
		}

		switch string(data[:4]) {
		case dsdtSignature:
			names = append(names, name)
		case ssdtSignature:
			ssdts = append(ssdts, name)
		}
	}

	sort.Slice(ssdts, func(i, j int) bool {
		if len(ssdts[i]) != len(ssdts[j]) {
			return len(ssdts[i]) < len(ssdts[j])
		}
		return ssdts[i] < ssdts[j]
	})

	return append(names, ssdts...)
}
