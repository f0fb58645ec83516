package osl

import (
	"amlkit/device/acpi/aml/entity"
	"amlkit/kernel"
	"encoding/binary"
	"sync"
)

var (
	errRegionOutOfRange = &kernel.Error{Module: "acpi_osl", Message: "region access is out of range", Kind: kernel.KindIoFailure}
	errBadAccessWidth   = &kernel.Error{Module: "acpi_osl", Message: "unsupported access width", Kind: kernel.KindIoFailure}
)

// MemoryRegions is a RegionHandler that backs regions with a sparse,
// in-process address space. It is used for testing and for running AML
// without access to the hardware.
type MemoryRegions struct {
	mu    sync.Mutex
	pages map[uint64][]byte
}

// memoryWindow is the context handed back by MemoryRegions.Create.
type memoryWindow struct {
	base, length uint64
}

const memPageSize = 4096

// NewMemoryRegions returns an empty address space.
func NewMemoryRegions() *MemoryRegions {
	return &MemoryRegions{pages: make(map[uint64][]byte)}
}

// Create implements RegionHandler.
func (m *MemoryRegions) Create(_ *entity.Object, offset, length uint64) (interface{}, *kernel.Error) {
	return &memoryWindow{base: offset, length: length}, nil
}

// Destroy implements RegionHandler.
func (m *MemoryRegions) Destroy(interface{}) {}

// Read implements RegionHandler.
func (m *MemoryRegions) Read(ctx interface{}, offset uint64, width uint8) (uint64, *kernel.Error) {
	addr, err := m.translate(ctx, offset, width)
	if err != nil {
		return 0, err
	}

	var buf [8]byte
	m.ReadAt(buf[:width/8], addr)
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// Write implements RegionHandler.
func (m *MemoryRegions) Write(ctx interface{}, offset uint64, width uint8, value uint64) *kernel.Error {
	addr, err := m.translate(ctx, offset, width)
	if err != nil {
		return err
	}

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	m.WriteAt(buf[:width/8], addr)
	return nil
}

func (m *MemoryRegions) translate(ctx interface{}, offset uint64, width uint8) (uint64, *kernel.Error) {
	switch width {
	case 8, 16, 32, 64:
	default:
		return 0, errBadAccessWidth
	}

	win := ctx.(*memoryWindow)
	if offset+uint64(width/8) > win.length {
		return 0, errRegionOutOfRange
	}
	return win.base + offset, nil
}

// ReadAt copies len(dst) bytes starting at addr into dst. Bytes that were
// never written read as zero.
func (m *MemoryRegions) ReadAt(dst []byte, addr uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range dst {
		a := addr + uint64(i)
		if page, ok := m.pages[a/memPageSize]; ok {
			dst[i] = page[a%memPageSize]
		} else {
			dst[i] = 0
		}
	}
}

// WriteAt copies src to the address space starting at addr.
func (m *MemoryRegions) WriteAt(src []byte, addr uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, b := range src {
		a := addr + uint64(i)
		page, ok := m.pages[a/memPageSize]
		if !ok {
			page = make([]byte, memPageSize)
			m.pages[a/memPageSize] = page
		}
		page[a%memPageSize] = b
	}
}
