//go:build !linux

package hosted

import (
	"amlkit/device/acpi/aml/entity"
	"amlkit/device/acpi/osl"
	"amlkit/kernel"
)

var errUnsupportedBackend = &kernel.Error{Module: "acpi_hosted", Message: "region back-ends are only available on linux", Kind: kernel.KindUnsupported}

// Window restricts the addresses a back-end may touch. A zero Length allows
// every address.
type Window struct {
	Base   uint64
	Length uint64
}

// RegionHandlers returns no hardware back-ends on this platform.
func RegionHandlers(_, _ Window) map[entity.RegionSpace]osl.RegionHandler {
	return map[entity.RegionSpace]osl.RegionHandler{}
}

// NewBackend reports that no hardware back-end exists on this platform.
func NewBackend(name string, _ Window) (osl.RegionHandler, *kernel.Error) {
	return nil, errUnsupportedBackend.WithDetail(name)
}
