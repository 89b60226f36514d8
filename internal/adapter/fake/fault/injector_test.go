package fault

import (
	"errors"
	"testing"
)

const testPoint = "cluster.create_workload"

func TestInjector_FailOnce(t *testing.T) {
	i := NewInjector()
	injected := errors.New("injected once")
	i.FailOnce(testPoint, injected)

	if err := i.Eval(testPoint); !errors.Is(err, injected) {
		t.Fatalf("first Eval() error = %v, want %v", err, injected)
	}
	if err := i.Eval(testPoint); err != nil {
		t.Fatalf("second Eval() error = %v, want nil", err)
	}
}

func TestInjector_FailAlways(t *testing.T) {
	i := NewInjector()
	injected := errors.New("injected always")
	i.FailAlways(testPoint, injected)

	for n := range 3 {
		if err := i.Eval(testPoint); !errors.Is(err, injected) {
			t.Fatalf("Eval() #%d error = %v, want %v", n, err, injected)
		}
	}
	i.Clear(testPoint)
	if err := i.Eval(testPoint); err != nil {
		t.Fatalf("Eval() after Clear error = %v", err)
	}
}

func TestInjector_Hook(t *testing.T) {
	i := NewInjector()
	injected := errors.New("bad device")
	i.SetHook(testPoint, func(args ...any) error {
		if name, _ := args[0].(string); name == "xrv1" {
			return injected
		}
		return nil
	})

	if err := i.Eval(testPoint, "xrv1"); !errors.Is(err, injected) {
		t.Fatalf("Eval(xrv1) error = %v, want %v", err, injected)
	}
	if err := i.Eval(testPoint, "leaf1"); err != nil {
		t.Fatalf("Eval(leaf1) error = %v", err)
	}
}

func TestInjector_NilAndReset(t *testing.T) {
	var nilInjector *Injector
	if err := nilInjector.Eval(testPoint); err != nil {
		t.Fatalf("nil Eval() error = %v", err)
	}

	i := NewInjector()
	i.FailAlways(testPoint, errors.New("x"))
	i.Reset()
	if err := i.Eval(testPoint); err != nil {
		t.Fatalf("Eval() after Reset error = %v", err)
	}
}
