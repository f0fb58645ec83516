// Package acpi provides the ACPI driver: it discovers the definition blocks
// of the platform through a table resolver and loads them into an AML VM.
package acpi

import (
	"amlkit/device"
	"amlkit/device/acpi/aml/entity"
	"amlkit/device/acpi/aml/vm"
	"amlkit/device/acpi/osl/hosted"
	"amlkit/device/acpi/table"
	"amlkit/kernel"
	"amlkit/kernel/kfmt"
	"io"
)

var (
	errMissingDSDT  = &kernel.Error{Module: "acpi", Message: "could not locate the DSDT", Kind: kernel.KindNotFound}
	errUnknownTable = &kernel.Error{Module: "acpi", Message: "table was not loaded", Kind: kernel.KindNotFound}

	// SysfsTablesDir is where Linux exposes the firmware ACPI tables.
	SysfsTablesDir = "/sys/firmware/acpi/tables"

	newResolverFn = func() (table.Resolver, *kernel.Error) { return table.NewDirResolver(SysfsTablesDir) }
)

// Driver loads the DSDT followed by every SSDT served by a resolver into an
// AML VM.
type Driver struct {
	resolver table.Resolver
	cfg      vm.Config

	vm      *vm.VM
	handles map[string]*entity.Object
	loaded  []string
}

// NewDriver returns a driver for the tables served by r. The VM is created
// with cfg when the driver is initialized.
func NewDriver(r table.Resolver, cfg vm.Config) *Driver {
	return &Driver{
		resolver: r,
		cfg:      cfg,
		handles:  make(map[string]*entity.Object),
	}
}

// DriverInit implements device.Driver.
func (drv *Driver) DriverInit(w io.Writer) *kernel.Error {
	names := table.DefinitionBlocks(drv.resolver)
	if len(names) == 0 || string(drv.resolver.LookupTable(names[0])[:4]) != "DSDT" {
		return errMissingDSDT
	}

	machine, verr := vm.NewVM(w, drv.cfg)
	if verr != nil {
		return verr.Err
	}
	drv.vm = machine

	for i, name := range names {
		data := drv.resolver.LookupTable(name)
		h, err := table.Validate(data)
		if err != nil {
			if i == 0 {
				return err
			}
			kfmt.Fprintf(w, "%s: %s; skipping\n", name, err.Message)
			continue
		}

		handle, verr := machine.LoadDefinitionBlock(data)
		if verr != nil {
			if i == 0 {
				return verr.Err
			}
			kfmt.Fprintf(w, "%s: load failed: %s; skipping\n", name, verr.Err.Message)
			continue
		}

		drv.handles[name] = handle
		drv.loaded = append(drv.loaded, name)
		kfmt.Fprintf(w, "%6s %6x rev %d (%6s %8s)\n",
			name,
			h.Length,
			h.Revision,
			string(h.OEMID[:]),
			string(h.OEMTableID[:]),
		)
	}

	stats := machine.Namespace().Stats()
	kfmt.Fprintf(w, "loaded %d definition blocks; %d namespace objects\n", len(drv.loaded), stats.Total)
	return nil
}

// DriverName implements device.Driver.
func (*Driver) DriverName() string {
	return "ACPI"
}

// DriverVersion implements device.Driver.
func (*Driver) DriverVersion() (uint16, uint16, uint16) {
	return 0, 1, 0
}

// VM returns the interpreter the tables were loaded into or nil before
// DriverInit succeeds.
func (drv *Driver) VM() *vm.VM { return drv.vm }

// Loaded returns the names of the tables that were loaded, in load order.
func (drv *Driver) Loaded() []string { return drv.loaded }

// Handle returns the DdbHandle of the named table.
func (drv *Driver) Handle(name string) *entity.Object { return drv.handles[name] }

// Unload removes the objects created by the named table.
func (drv *Driver) Unload(name string) *kernel.Error {
	handle := drv.handles[name]
	if handle == nil {
		return errUnknownTable.WithDetail(name)
	}
	if verr := drv.vm.UnloadDefinitionBlock(handle); verr != nil {
		return verr.Err
	}

	delete(drv.handles, name)
	for i, loaded := range drv.loaded {
		if loaded == name {
			drv.loaded = append(drv.loaded[:i], drv.loaded[i+1:]...)
			break
		}
	}
	return nil
}

// probeForACPI returns a driver for the tables exported by the running
// kernel. No region back-ends are installed, so AML code cannot touch the
// hardware.
func probeForACPI() device.Driver {
	r, err := newResolverFn()
	if err != nil || len(table.DefinitionBlocks(r)) == 0 {
		return nil
	}

	return NewDriver(r, vm.Config{
		Host: hosted.NewHost(io.Discard, io.Discard, ""),
	})
}

func init() {
	device.RegisterDriver(&device.DriverInfo{
		Order: device.DetectOrderACPI,
		Probe: probeForACPI,
	})
}
