package hosted

import (
	"amlkit/device/acpi/aml/entity"
	"amlkit/device/acpi/osl"
	"amlkit/kernel"
	"bytes"
	"strings"
	"testing"
)

var _ osl.Host = (*Host)(nil)

func TestHostMutex(t *testing.T) {
	h := NewHost(nil, &bytes.Buffer{}, "")

	handle, err := h.CreateMutex(0)
	if err != nil {
		t.Fatal(err)
	}

	if !h.AcquireMutex(handle, osl.WaitForever) {
		t.Fatal("expected acquire to succeed")
	}
	if h.AcquireMutex(handle, 0) {
		t.Fatal("expected non-blocking acquire of a held mutex to fail")
	}
	if h.AcquireMutex(handle, 5) {
		t.Fatal("expected acquire with timeout of a held mutex to fail")
	}

	h.ReleaseMutex(handle)
	if !h.AcquireMutex(handle, 5) {
		t.Fatal("expected acquire to succeed after release")
	}
}

func TestHostEvent(t *testing.T) {
	h := NewHost(nil, &bytes.Buffer{}, "")
	handle, _ := h.CreateEvent()

	if h.WaitEvent(handle, 0) {
		t.Fatal("expected wait on an unsignaled event to time out")
	}

	h.SignalEvent(handle)
	h.SignalEvent(handle)
	if !h.WaitEvent(handle, 5) {
		t.Fatal("expected wait to consume a signal")
	}

	h.ResetEvent(handle)
	if h.WaitEvent(handle, 1) {
		t.Fatal("expected reset to drop pending signals")
	}
}

func TestHostGlobalLock(t *testing.T) {
	h := NewHost(nil, &bytes.Buffer{}, "")
	if !h.AcquireGlobalLock(osl.WaitForever) {
		t.Fatal("expected global lock acquire to succeed")
	}
	if h.AcquireGlobalLock(1) {
		t.Fatal("expected second global lock acquire to time out")
	}
	h.ReleaseGlobalLock()
	if !h.AcquireGlobalLock(1) {
		t.Fatal("expected global lock acquire to succeed after release")
	}
}

func TestHostDebugAndNotify(t *testing.T) {
	var log, debug bytes.Buffer
	h := NewHost(&log, &debug, "")

	h.Debug().Write([]byte("line 1\nline 2\n"))
	if exp, got := "[AML debug] line 1\n[AML debug] line 2\n", debug.String(); got != exp {
		t.Fatalf("expected debug output %q; got %q", exp, got)
	}

	var notified uint64
	h.NotifyHandler = func(_ *entity.Object, value uint64) { notified = value }

	ns := entity.NewNamespace()
	dev, _ := ns.Lookup(nil, `\_SB_`)
	if err := h.Notify(dev, 0x80); err != nil {
		t.Fatal(err)
	}
	if notified != 0x80 || !strings.Contains(log.String(), `notify \_SB_: 0x80`) {
		t.Fatalf("expected notification to be delivered and logged; got %d, %q", notified, log.String())
	}
}

func TestHostFatal(t *testing.T) {
	defer func(orig func(interface{})) { fatalFn = orig }(fatalFn)

	var got *kernel.Error
	fatalFn = func(e interface{}) { got = e.(*kernel.Error) }

	NewHost(nil, &bytes.Buffer{}, "").Fatal(1, 2, 3)
	if got == nil || got.Kind != kernel.KindFatal || !strings.Contains(got.Message, "code: 0x2") {
		t.Fatalf("expected a fatal error; got %v", got)
	}
}
