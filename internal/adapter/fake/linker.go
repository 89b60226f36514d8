package fake

import (
	"context"
	"fmt"
	"sync"

	"meshtopo/internal/adapter/fake/fault"
	"meshtopo/internal/mesh"
)

var _ mesh.Linker = (*Linker)(nil)

const (
	PointCreateVeth = "linker.create_veth"
	PointDeleteLink = "linker.delete_link"
)

type nsLink struct {
	pid  int
	intf string
}

// Linker records veth pairs instead of touching the kernel. Each present
// interface maps to its peer; a lone end maps to itself.
type Linker struct {
	CallRecorder
	Faults *fault.Injector

	mu    sync.Mutex
	links map[nsLink]nsLink
	pairs []mesh.VethPair
}

func NewLinker() *Linker {
	return &Linker{
		Faults: fault.NewInjector(),
		links:  make(map[nsLink]nsLink),
	}
}

// PlaceEnd puts a lone interface into the namespace of pid, as left behind
// by an interrupted wiring.
func (l *Linker) PlaceEnd(pid int, intf string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := nsLink{pid, intf}
	l.links[k] = k
}

func (l *Linker) HasLink(_ context.Context, pid int, intf string) (bool, error) {
	l.record("HasLink", pid, intf)
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.links[nsLink{pid, intf}]
	return ok, nil
}

func (l *Linker) CreateVeth(_ context.Context, pair mesh.VethPair, pidA, pidB int) error {
	l.record("CreateVeth", pair.VNI, pidA, pidB)
	if err := l.Faults.Eval(PointCreateVeth, pair.VNI); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	a, b := nsLink{pidA, pair.A.Intf}, nsLink{pidB, pair.B.Intf}
	for _, k := range []nsLink{a, b} {
		if _, ok := l.links[k]; ok {
			return fmt.Errorf("interface %s already exists in pid %d", k.intf, k.pid)
		}
	}
	l.links[a] = b
	l.links[b] = a
	l.pairs = append(l.pairs, pair)
	return nil
}

func (l *Linker) DeleteLink(_ context.Context, pid int, intf string) error {
	l.record("DeleteLink", pid, intf)
	if err := l.Faults.Eval(PointDeleteLink, intf); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	k := nsLink{pid, intf}
	peer, ok := l.links[k]
	if !ok {
		return nil
	}
	delete(l.links, k)
	delete(l.links, peer)
	return nil
}

// Pairs returns the pairs created so far in creation order.
func (l *Linker) Pairs() []mesh.VethPair {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]mesh.VethPair, len(l.pairs))
	copy(out, l.pairs)
	return out
}
