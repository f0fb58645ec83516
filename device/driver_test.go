package device

import (
	"amlkit/kernel"
	"amlkit/kernel/kfmt"
	"bytes"
	"io"
	"sort"
	"testing"
)

func TestDriverInfoListSorting(t *testing.T) {
	defer func() {
		registeredDrivers = nil
	}()

	origlist := []*DriverInfo{
		{Order: DetectOrderACPI},
		{Order: DetectOrderLast},
		{Order: DetectOrderBeforeACPI},
		{Order: DetectOrderEarly},
	}

	for _, drv := range origlist {
		RegisterDriver(drv)
	}

	registeredList := DriverList()
	if exp, got := len(origlist), len(registeredList); got != exp {
		t.Fatalf("expected DriverList() to return %d entries; got %d", exp, got)
	}

	sort.Sort(registeredList)
	expOrder := []int{3, 2, 0, 1}
	for i, exp := range expOrder {
		if registeredList[i] != origlist[exp] {
			t.Errorf("expected sorted entry %d to be %v; got %v", i, registeredList[exp], origlist[i])
		}
	}
}

type probeTestDriver struct {
	name    string
	initErr *kernel.Error
	initLog string
}

func (d *probeTestDriver) DriverName() string                      { return d.name }
func (d *probeTestDriver) DriverVersion() (uint16, uint16, uint16) { return 1, 2, 3 }
func (d *probeTestDriver) DriverInit(w io.Writer) *kernel.Error {
	if d.initLog != "" {
		kfmt.Fprintf(w, "%s\n", d.initLog)
	}
	return d.initErr
}

func TestProbe(t *testing.T) {
	defer func() {
		registeredDrivers = nil
	}()

	var (
		good   = &probeTestDriver{name: "GOOD", initLog: "found 2 tables"}
		broken = &probeTestDriver{name: "BROKEN", initErr: &kernel.Error{Module: "test", Message: "no DSDT"}}
	)

	RegisterDriver(&DriverInfo{Order: DetectOrderLast, Probe: func() Driver { return broken }})
	RegisterDriver(&DriverInfo{Order: DetectOrderACPI, Probe: func() Driver { return nil }})
	RegisterDriver(&DriverInfo{Order: DetectOrderEarly, Probe: func() Driver { return good }})

	var buf bytes.Buffer
	active := Probe(&buf)

	if len(active) != 1 || active[0] != good {
		t.Fatalf("expected only the GOOD driver to be initialized; got %v", active)
	}

	exp := "[hal] GOOD(1.2.3): found 2 tables\n[hal] GOOD(1.2.3): initialized\n[hal] BROKEN(1.2.3): init failed: no DSDT\n"
	if got := buf.String(); got != exp {
		t.Fatalf("expected probe output:\n%q\ngot:\n%q", exp, got)
	}
}
