package device

import (
	"amlkit/kernel"
	"amlkit/kernel/kfmt"
	"bytes"
	"io"
	"sort"
)

// Driver is an interface implemented by all drivers.
type Driver interface {
	// DriverName returns the name of the driver.
	DriverName() string

	// DriverVersion returns the driver version.
	DriverVersion() (major uint16, minor uint16, patch uint16)

	// DriverInit initializes the device driver. If the driver init code
	// needs to log some output, it can use the supplied io.Writer in
	// conjunction with a call to kfmt.Fprintf.
	DriverInit(io.Writer) *kernel.Error
}

// ProbeFn is a function that scans for the presence of a particular
// piece of hardware and returns a driver for it.
type ProbeFn func() Driver

// DetectOrder specifies when each driver's probe function will be invoked
// by Probe.
type DetectOrder int8

// The list of supported detection orders.
const (
	DetectOrderEarly DetectOrder = iota - 128
	DetectOrderBeforeACPI
	DetectOrderACPI DetectOrder = 0
	DetectOrderLast DetectOrder = 127
)

// DriverInfo is a driver-defined struct that is passed to calls to RegisterDriver.
type DriverInfo struct {
	// Order specifies at which stage of the detection process the
	// driver's probe function will be invoked.
	Order DetectOrder

	// Probe is a function that checks for the presence of a particular
	// piece of hardware and returns back a driver for it.
	Probe ProbeFn
}

// DriverInfoList is a list of registered drivers that implements sort.Interface.
type DriverInfoList []*DriverInfo

// Len returns the length of the driver info list.
func (l DriverInfoList) Len() int { return len(l) }

// Swap exchanges 2 elements in the driver info list.
func (l DriverInfoList) Swap(i, j int) { l[i], l[j] = l[j], l[i] }

// Less compares 2 elements of the driver info list.
func (l DriverInfoList) Less(i, j int) bool { return l[i].Order < l[j].Order }

var (
	registeredDrivers DriverInfoList
)

// RegisterDriver adds the supplied driver info to the list of drivers that
// Probe will try to detect.
func RegisterDriver(info *DriverInfo) {
	registeredDrivers = append(registeredDrivers, info)
}

// DriverList returns the list of registered drivers.
func DriverList() DriverInfoList {
	return registeredDrivers
}

// Probe invokes the probe function of each registered driver in detection
// order and initializes every driver that was detected. Init failures are
// logged to w and do not stop the detection of other drivers. The list of
// successfully initialized drivers is returned.
func Probe(w io.Writer) []Driver {
	var (
		active []Driver
		strBuf bytes.Buffer
		pw     = kfmt.PrefixWriter{Sink: w}
		list   = append(DriverInfoList(nil), registeredDrivers...)
	)

	sort.Stable(list)
	for _, info := range list {
		drv := info.Probe()
		if drv == nil {
			continue
		}

		strBuf.Reset()
		major, minor, patch := drv.DriverVersion()
		kfmt.Fprintf(&strBuf, "[hal] %s(%d.%d.%d): ", drv.DriverName(), major, minor, patch)
		pw.Prefix = strBuf.Bytes()
		pw.Reset()

		if err := drv.DriverInit(&pw); err != nil {
			kfmt.Fprintf(&pw, "init failed: %s\n", err.Message)
			continue
		}

		kfmt.Fprintf(&pw, "initialized\n")
		active = append(active, drv)
	}

	return active
}
