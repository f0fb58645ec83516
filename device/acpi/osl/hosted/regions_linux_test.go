//go:build linux

package hosted

import (
	"amlkit/device/acpi/aml/entity"
	"amlkit/kernel"
	"testing"
)

func TestWindow(t *testing.T) {
	specs := []struct {
		w            Window
		addr, length uint64
		exp          bool
	}{
		{Window{}, 0xfed00000, 4, true},
		{Window{Base: 0x1000, Length: 0x100}, 0x1000, 4, true},
		{Window{Base: 0x1000, Length: 0x100}, 0x10fc, 4, true},
		{Window{Base: 0x1000, Length: 0x100}, 0x10fd, 4, false},
		{Window{Base: 0x1000, Length: 0x100}, 0xfff, 1, false},
	}

	for specIndex, spec := range specs {
		if got := spec.w.allows(spec.addr, spec.length); got != spec.exp {
			t.Errorf("[spec %d] expected allows(0x%x, %d) to return %t", specIndex, spec.addr, spec.length, spec.exp)
		}
	}
}

func TestNewBackend(t *testing.T) {
	w := Window{Base: 0x70, Length: 2}
	for _, name := range []string{"devmem", "devport", "sysfs-pci", "cmos"} {
		h, err := NewBackend(name, w)
		if err != nil || h == nil {
			t.Errorf("expected back-end %q; got error %v", name, err)
		}
	}

	if _, err := NewBackend("floppy", w); err == nil || err.Kind != kernel.KindNotFound {
		t.Fatalf("expected an unknown back-end error; got %v", err)
	}

	port, _ := NewBackend("devport", w)
	if _, err := port.Create(nil, 0x80, 1); err == nil {
		t.Fatal("expected a region outside the window to be rejected")
	}

	handlers := RegionHandlers(Window{}, Window{})
	for _, space := range []entity.RegionSpace{
		entity.RegionSpaceSystemMemory,
		entity.RegionSpaceSystemIO,
		entity.RegionSpacePCIConfig,
		entity.RegionSpaceCMOS,
	} {
		if handlers[space] == nil {
			t.Errorf("expected a handler for %s", space)
		}
	}
}
