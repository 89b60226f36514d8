package topology

import (
	"errors"
	"reflect"
	"testing"
)

func publishDevices(t *testing.T, names ...string) []*Device {
	t.Helper()
	r := NewRegistry(nil)
	for _, n := range names {
		r.Get(n)
	}
	return r.Devices()
}

func TestAllocatePorts_SingleBase(t *testing.T) {
	devices := publishDevices(t, "b", "a", "host-x", "c")
	got, err := AllocatePorts(devices, PublishPolicy{Base: 30001})
	if err != nil {
		t.Fatalf("AllocatePorts() error = %v", err)
	}
	want := []PortAssignment{
		{Device: "a", Internal: 443, External: 30001 + 443},
		{Device: "b", Internal: 443, External: 30002 + 443},
		{Device: "c", Internal: 443, External: 30003 + 443},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("AllocatePorts() = %+v, want %+v", got, want)
	}
}

func TestAllocatePorts_OutOfRange(t *testing.T) {
	devices := publishDevices(t, "a")
	for _, base := range []int{30000, 32768, 443} {
		got, err := AllocatePorts(devices, PublishPolicy{Base: base})
		if !errors.Is(err, ErrPublishRange) {
			t.Errorf("AllocatePorts(base=%d) error = %v, want ErrPublishRange", base, err)
		}
		if len(got) != 0 {
			t.Errorf("AllocatePorts(base=%d) = %+v, want none", base, got)
		}
	}
	if _, err := AllocatePorts(devices, PublishPolicy{Base: 32767}); err != nil {
		t.Errorf("AllocatePorts(base=32767) error = %v", err)
	}
}

func TestAllocatePorts_Mapping(t *testing.T) {
	devices := publishDevices(t, "b", "a")
	got, err := AllocatePorts(devices, PublishPolicy{Base: 1, Mapping: map[int]int{443: 30100, 22: 30101}})
	if err != nil {
		t.Fatalf("AllocatePorts() error = %v", err)
	}
	// Overlapping ranges across pairs are allocated as-is.
	want := []PortAssignment{
		{Device: "a", Internal: 22, External: 30101},
		{Device: "b", Internal: 22, External: 30102},
		{Device: "a", Internal: 443, External: 30100},
		{Device: "b", Internal: 443, External: 30101},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("AllocatePorts() = %+v, want %+v", got, want)
	}
}

func TestAllocatePorts_ZeroPolicy(t *testing.T) {
	got, err := AllocatePorts(publishDevices(t, "a"), PublishPolicy{})
	if err != nil || got != nil {
		t.Fatalf("AllocatePorts(zero) = %+v, %v; want nil, nil", got, err)
	}
}

func TestAllocatePorts_ExplicitZeroBase(t *testing.T) {
	got, err := AllocatePorts(publishDevices(t, "a"), PublishPolicy{BaseSet: true})
	if !errors.Is(err, ErrPublishRange) {
		t.Fatalf("AllocatePorts(base=0) error = %v, want ErrPublishRange", err)
	}
	if len(got) != 0 {
		t.Fatalf("AllocatePorts(base=0) = %+v, want none", got)
	}
}
