// Package fault injects failures into fake adapters at named points.
package fault

import (
	"fmt"
	"strings"
	"sync"

	"meshtopo/internal/check"
)

// Hook inspects the arguments of one call and may fail it.
type Hook func(args ...any) error

type point struct {
	once   []error
	always error
	hook   Hook
}

// Injector holds the configured faults of one fake.
type Injector struct {
	mu     sync.Mutex
	points map[string]*point
}

func NewInjector() *Injector {
	return &Injector{points: make(map[string]*point)}
}

// FailOnce fails the next evaluation of name with err.
func (i *Injector) FailOnce(name string, err error) {
	check.Assert(err != nil, "fault.FailOnce: err must not be nil")
	i.update(name, func(p *point) { p.once = append(p.once, err) })
}

// FailAlways fails every evaluation of name with err.
func (i *Injector) FailAlways(name string, err error) {
	check.Assert(err != nil, "fault.FailAlways: err must not be nil")
	i.update(name, func(p *point) { p.always = err })
}

// SetHook installs an argument-aware hook for name.
func (i *Injector) SetHook(name string, hook Hook) {
	check.Assert(hook != nil, "fault.SetHook: hook must not be nil")
	i.update(name, func(p *point) { p.hook = hook })
}

// Clear removes the faults of name.
func (i *Injector) Clear(name string) {
	i.mu.Lock()
	delete(i.points, name)
	i.mu.Unlock()
}

// Reset removes every fault.
func (i *Injector) Reset() {
	i.mu.Lock()
	i.points = make(map[string]*point)
	i.mu.Unlock()
}

// Eval returns the fault for this call of name, if any. The hook is
// consulted first, then one-shot faults, then the persistent one.
func (i *Injector) Eval(name string, args ...any) error {
	if i == nil {
		return nil
	}
	i.mu.Lock()
	p := i.points[name]
	if p == nil {
		i.mu.Unlock()
		return nil
	}
	hook := p.hook
	var once error
	if len(p.once) > 0 {
		once, p.once = p.once[0], p.once[1:]
	}
	always := p.always
	i.mu.Unlock()

	if hook != nil {
		if err := hook(args...); err != nil {
			return fmt.Errorf("fault %s: %w", name, err)
		}
	}
	if once != nil {
		return fmt.Errorf("fault %s: %w", name, once)
	}
	if always != nil {
		return fmt.Errorf("fault %s: %w", name, always)
	}
	return nil
}

func (i *Injector) update(name string, fn func(*point)) {
	check.Assert(strings.TrimSpace(name) != "", "fault: point name must not be empty")
	i.mu.Lock()
	defer i.mu.Unlock()
	p, ok := i.points[name]
	if !ok {
		p = &point{}
		i.points[name] = p
	}
	fn(p)
}
