//go:build linux

package hosted

import (
	"amlkit/device/acpi/aml/entity"
	"amlkit/device/acpi/osl"
	"amlkit/kernel"
	"amlkit/kernel/kfmt"
	"encoding/binary"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

var (
	errUnknownBackend = &kernel.Error{Module: "acpi_hosted", Message: "unknown region back-end", Kind: kernel.KindNotFound}
	errOpenBackend    = &kernel.Error{Module: "acpi_hosted", Message: "unable to open region back-end", Kind: kernel.KindIoFailure}
	errMapRegion      = &kernel.Error{Module: "acpi_hosted", Message: "unable to map region", Kind: kernel.KindIoFailure}
	errRegionIO       = &kernel.Error{Module: "acpi_hosted", Message: "region access failed", Kind: kernel.KindIoFailure}
	errOutOfWindow    = &kernel.Error{Module: "acpi_hosted", Message: "region access is outside the allowed window", Kind: kernel.KindIoFailure}
)

// Window restricts the addresses a back-end may touch. A zero Length allows
// every address.
type Window struct {
	Base   uint64
	Length uint64
}

func (w Window) allows(addr, length uint64) bool {
	return w.Length == 0 || (addr >= w.Base && addr+length <= w.Base+w.Length)
}

// lazyFile opens a device file on first use.
type lazyFile struct {
	path string
	flag int

	once sync.Once
	fd   int
	err  *kernel.Error
}

func (f *lazyFile) get() (int, *kernel.Error) {
	f.once.Do(func() {
		fd, err := unix.Open(f.path, f.flag|unix.O_CLOEXEC, 0)
		if err != nil {
			f.err = errOpenBackend.WithDetail(f.path + ": " + err.Error())
			return
		}
		f.fd = fd
	})
	return f.fd, f.err
}

// DevMem implements SystemMemory regions by mapping /dev/mem.
type DevMem struct {
	file   lazyFile
	Window Window
}

type devMemMapping struct {
	mapping []byte
	delta   uint64
	length  uint64
}

// NewDevMem returns a SystemMemory back-end restricted to window.
func NewDevMem(window Window) *DevMem {
	return &DevMem{file: lazyFile{path: "/dev/mem", flag: unix.O_RDWR | unix.O_SYNC}, Window: window}
}

// Create implements osl.RegionHandler.
func (m *DevMem) Create(_ *entity.Object, offset, length uint64) (interface{}, *kernel.Error) {
	if !m.Window.allows(offset, length) {
		return nil, errOutOfWindow.WithDetail(kfmt.Sprintf("0x%x+0x%x", offset, length))
	}

	fd, err := m.file.get()
	if err != nil {
		return nil, err
	}

	pageSize := uint64(os.Getpagesize())
	base := offset &^ (pageSize - 1)
	size := (offset + length - base + pageSize - 1) &^ (pageSize - 1)

	mapping, mapErr := unix.Mmap(fd, int64(base), int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if mapErr != nil {
		return nil, errMapRegion.WithDetail(mapErr.Error())
	}
	return &devMemMapping{mapping: mapping, delta: offset - base, length: length}, nil
}

// Destroy implements osl.RegionHandler.
func (m *DevMem) Destroy(ctx interface{}) {
	_ = unix.Munmap(ctx.(*devMemMapping).mapping)
}

// Read implements osl.RegionHandler.
func (m *DevMem) Read(ctx interface{}, offset uint64, width uint8) (uint64, *kernel.Error) {
	mm := ctx.(*devMemMapping)
	if offset+uint64(width/8) > mm.length {
		return 0, errRegionIO.WithDetail("read past region end")
	}

	b := mm.mapping[mm.delta+offset:]
	switch width {
	case 8:
		return uint64(b[0]), nil
	case 16:
		return uint64(binary.LittleEndian.Uint16(b)), nil
	case 32:
		return uint64(binary.LittleEndian.Uint32(b)), nil
	default:
		return binary.LittleEndian.Uint64(b), nil
	}
}

// Write implements osl.RegionHandler.
func (m *DevMem) Write(ctx interface{}, offset uint64, width uint8, value uint64) *kernel.Error {
	mm := ctx.(*devMemMapping)
	if offset+uint64(width/8) > mm.length {
		return errRegionIO.WithDetail("write past region end")
	}

	b := mm.mapping[mm.delta+offset:]
	switch width {
	case 8:
		b[0] = byte(value)
	case 16:
		binary.LittleEndian.PutUint16(b, uint16(value))
	case 32:
		binary.LittleEndian.PutUint32(b, uint32(value))
	default:
		binary.LittleEndian.PutUint64(b, value)
	}
	return nil
}

// DevPort implements SystemIO regions through /dev/port.
type DevPort struct {
	file   lazyFile
	Window Window
}

type portRange struct {
	base, length uint64
}

// NewDevPort returns a SystemIO back-end restricted to window.
func NewDevPort(window Window) *DevPort {
	return &DevPort{file: lazyFile{path: "/dev/port", flag: unix.O_RDWR}, Window: window}
}

// Create implements osl.RegionHandler.
func (p *DevPort) Create(_ *entity.Object, offset, length uint64) (interface{}, *kernel.Error) {
	if !p.Window.allows(offset, length) {
		return nil, errOutOfWindow.WithDetail(kfmt.Sprintf("0x%x+0x%x", offset, length))
	}
	if _, err := p.file.get(); err != nil {
		return nil, err
	}
	return &portRange{base: offset, length: length}, nil
}

// Destroy implements osl.RegionHandler.
func (p *DevPort) Destroy(interface{}) {}

// Read implements osl.RegionHandler.
func (p *DevPort) Read(ctx interface{}, offset uint64, width uint8) (uint64, *kernel.Error) {
	r := ctx.(*portRange)
	return pread(&p.file, r.base+offset, width)
}

// Write implements osl.RegionHandler.
func (p *DevPort) Write(ctx interface{}, offset uint64, width uint8, value uint64) *kernel.Error {
	r := ctx.(*portRange)
	return pwrite(&p.file, r.base+offset, width, value)
}

func pread(f *lazyFile, addr uint64, width uint8) (uint64, *kernel.Error) {
	fd, err := f.get()
	if err != nil {
		return 0, err
	}

	var buf [8]byte
	n, ioErr := unix.Pread(fd, buf[:width/8], int64(addr))
	if ioErr != nil || n != int(width/8) {
		return 0, errRegionIO.WithDetail(kfmt.Sprintf("%s: read 0x%x", f.path, addr))
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func pwrite(f *lazyFile, addr uint64, width uint8, value uint64) *kernel.Error {
	fd, err := f.get()
	if err != nil {
		return err
	}

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	n, ioErr := unix.Pwrite(fd, buf[:width/8], int64(addr))
	if ioErr != nil || n != int(width/8) {
		return errRegionIO.WithDetail(kfmt.Sprintf("%s: write 0x%x", f.path, addr))
	}
	return nil
}

// SysfsPCI implements PciConfig regions through the config files exported
// under /sys/bus/pci/devices.
type SysfsPCI struct {
	Root string

	mu    sync.Mutex
	files map[entity.PCIAddress]*lazyFile
}

type pciWindow struct {
	file   *lazyFile
	base   uint64
	length uint64
}

// NewSysfsPCI returns a PciConfig back-end.
func NewSysfsPCI() *SysfsPCI {
	return &SysfsPCI{Root: "/sys/bus/pci/devices", files: make(map[entity.PCIAddress]*lazyFile)}
}

// Create implements osl.RegionHandler.
func (p *SysfsPCI) Create(region *entity.Object, offset, length uint64) (interface{}, *kernel.Error) {
	addr := region.Region.PCI

	p.mu.Lock()
	f, ok := p.files[addr]
	if !ok {
		f = &lazyFile{
			path: kfmt.Sprintf("%s/%4x:%2x:%2x.%x/config", p.Root, addr.Segment, addr.Bus, addr.Device, addr.Function),
			flag: unix.O_RDWR,
		}
		p.files[addr] = f
	}
	p.mu.Unlock()

	if _, err := f.get(); err != nil {
		return nil, err
	}
	return &pciWindow{file: f, base: offset, length: length}, nil
}

// Destroy implements osl.RegionHandler.
func (p *SysfsPCI) Destroy(interface{}) {}

// Read implements osl.RegionHandler.
func (p *SysfsPCI) Read(ctx interface{}, offset uint64, width uint8) (uint64, *kernel.Error) {
	w := ctx.(*pciWindow)
	return pread(w.file, w.base+offset, width)
}

// Write implements osl.RegionHandler.
func (p *SysfsPCI) Write(ctx interface{}, offset uint64, width uint8, value uint64) *kernel.Error {
	w := ctx.(*pciWindow)
	return pwrite(w.file, w.base+offset, width, value)
}

const (
	cmosIndexPort = 0x70
	cmosDataPort  = 0x71
)

// CMOS implements SystemCMOS regions through the RTC index/data ports.
type CMOS struct {
	ports *DevPort
	mu    sync.Mutex
}

// NewCMOS returns a CMOS back-end that issues port accesses via ports.
func NewCMOS(ports *DevPort) *CMOS { return &CMOS{ports: ports} }

// Create implements osl.RegionHandler.
func (c *CMOS) Create(_ *entity.Object, offset, length uint64) (interface{}, *kernel.Error) {
	if _, err := c.ports.file.get(); err != nil {
		return nil, err
	}
	return &portRange{base: offset, length: length}, nil
}

// Destroy implements osl.RegionHandler.
func (c *CMOS) Destroy(interface{}) {}

// Read implements osl.RegionHandler. Wider accesses are split into bytes.
func (c *CMOS) Read(ctx interface{}, offset uint64, width uint8) (uint64, *kernel.Error) {
	r := ctx.(*portRange)
	c.mu.Lock()
	defer c.mu.Unlock()

	var value uint64
	for i := uint64(0); i < uint64(width/8); i++ {
		if err := pwrite(&c.ports.file, cmosIndexPort, 8, r.base+offset+i); err != nil {
			return 0, err
		}
		b, err := pread(&c.ports.file, cmosDataPort, 8)
		if err != nil {
			return 0, err
		}
		value |= b << (8 * i)
	}
	return value, nil
}

// Write implements osl.RegionHandler.
func (c *CMOS) Write(ctx interface{}, offset uint64, width uint8, value uint64) *kernel.Error {
	r := ctx.(*portRange)
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := uint64(0); i < uint64(width/8); i++ {
		if err := pwrite(&c.ports.file, cmosIndexPort, 8, r.base+offset+i); err != nil {
			return err
		}
		if err := pwrite(&c.ports.file, cmosDataPort, 8, value>>(8*i)); err != nil {
			return err
		}
	}
	return nil
}

// NewBackend returns the named hardware back-end: "devmem", "devport",
// "sysfs-pci" or "cmos". The window applies to devmem and devport.
func NewBackend(name string, window Window) (osl.RegionHandler, *kernel.Error) {
	switch name {
	case "devmem":
		return NewDevMem(window), nil
	case "devport":
		return NewDevPort(window), nil
	case "sysfs-pci":
		return NewSysfsPCI(), nil
	case "cmos":
		return NewCMOS(NewDevPort(Window{})), nil
	}
	return nil, errUnknownBackend.WithDetail(name)
}

// RegionHandlers returns the hardware back-ends keyed by address space.
// SystemMemory and SystemIO accesses are limited to the supplied windows.
func RegionHandlers(memWindow, ioWindow Window) map[entity.RegionSpace]osl.RegionHandler {
	ports := NewDevPort(ioWindow)
	return map[entity.RegionSpace]osl.RegionHandler{
		entity.RegionSpaceSystemMemory: NewDevMem(memWindow),
		entity.RegionSpaceSystemIO:     ports,
		entity.RegionSpacePCIConfig:    NewSysfsPCI(),
		entity.RegionSpaceCMOS:         NewCMOS(ports),
	}
}
