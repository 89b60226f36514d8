package mesh

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"meshtopo/internal/check"
	"meshtopo/internal/cluster"
)

// PIDResolver finds the process whose network namespace a workload uses.
type PIDResolver interface {
	WorkloadPID(ctx context.Context, ref cluster.Ref) (int, error)
}

// Linker creates links between network namespaces.
type Linker interface {
	// HasLink reports whether intf exists in the namespace of pid.
	HasLink(ctx context.Context, pid int, intf string) (bool, error)
	// CreateVeth creates pair with end A inside pidA's namespace and end B
	// inside pidB's. A failed call leaves neither end behind.
	CreateVeth(ctx context.Context, pair VethPair, pidA, pidB int) error
	// DeleteLink removes intf from the namespace of pid, along with its
	// veth peer wherever that is.
	DeleteLink(ctx context.Context, pid int, intf string) error
}

// Option configures an Agent.
type Option func(*Agent)

// WithLinker replaces the platform linker.
func WithLinker(l Linker) Option {
	check.Assert(l != nil, "WithLinker: linker must not be nil")
	return func(a *Agent) { a.linker = l }
}

// WithLogger sets the agent logger.
func WithLogger(log *slog.Logger) Option {
	check.Assert(log != nil, "WithLogger: logger must not be nil")
	return func(a *Agent) { a.log = log }
}

// Agent wires the links stored as mesh topology resources.
type Agent struct {
	topologies cluster.MeshTopologies
	pids       PIDResolver
	linker     Linker
	log        *slog.Logger
}

func NewAgent(topologies cluster.MeshTopologies, pids PIDResolver, opts ...Option) *Agent {
	check.Assert(topologies != nil, "NewAgent: topologies must not be nil")
	check.Assert(pids != nil, "NewAgent: pid resolver must not be nil")
	a := &Agent{
		topologies: topologies,
		pids:       pids,
		linker:     NewNetlinkLinker(),
		log:        slog.With("component", "mesh"),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Plan loads the namespace's topology resources carrying every selector
// label and merges them into veth pairs. Pairs that could not be planned
// are reported in the error while the rest are still returned.
func (a *Agent) Plan(ctx context.Context, namespace string, selector map[string]string) ([]VethPair, error) {
	topos, err := a.topologies.ListTopologies(ctx, namespace)
	if err != nil {
		return nil, fmt.Errorf("list mesh topologies: %w", err)
	}
	topos = slices.DeleteFunc(topos, func(t cluster.MeshTopology) bool {
		return !matches(t.Labels, selector)
	})
	return PlanLinks(topos)
}

func matches(labels, selector map[string]string) bool {
	for k, v := range selector {
		if got, ok := labels[k]; !ok || got != v {
			return false
		}
	}
	return true
}

// Wire creates pair unless both of its ends already exist. A lone end left
// by an interrupted run is removed first.
func (a *Agent) Wire(ctx context.Context, namespace string, pair VethPair) (bool, error) {
	pidA, err := a.pids.WorkloadPID(ctx, cluster.Ref{Namespace: namespace, Name: pair.A.Pod})
	if err != nil {
		return false, fmt.Errorf("resolve %s: %w", pair.A.Pod, err)
	}
	pidB, err := a.pids.WorkloadPID(ctx, cluster.Ref{Namespace: namespace, Name: pair.B.Pod})
	if err != nil {
		return false, fmt.Errorf("resolve %s: %w", pair.B.Pod, err)
	}

	hasA, err := a.linker.HasLink(ctx, pidA, pair.A.Intf)
	if err != nil {
		return false, fmt.Errorf("check %s: %w", pair.A, err)
	}
	hasB, err := a.linker.HasLink(ctx, pidB, pair.B.Intf)
	if err != nil {
		return false, fmt.Errorf("check %s: %w", pair.B, err)
	}
	switch {
	case hasA && hasB:
		a.log.Debug("link already wired", "vni", pair.VNI, "a", pair.A.String(), "b", pair.B.String())
		return false, nil
	case hasA:
		if err := a.linker.DeleteLink(ctx, pidA, pair.A.Intf); err != nil {
			return false, fmt.Errorf("remove stale %s: %w", pair.A, err)
		}
		a.log.Warn("removed half-wired link", "vni", pair.VNI, "end", pair.A.String())
	case hasB:
		if err := a.linker.DeleteLink(ctx, pidB, pair.B.Intf); err != nil {
			return false, fmt.Errorf("remove stale %s: %w", pair.B, err)
		}
		a.log.Warn("removed half-wired link", "vni", pair.VNI, "end", pair.B.String())
	}
	if err := a.linker.CreateVeth(ctx, pair, pidA, pidB); err != nil {
		return false, fmt.Errorf("wire vni %d: %w", pair.VNI, err)
	}
	a.log.Debug("wired link", "vni", pair.VNI, "a", pair.A.String(), "b", pair.B.String())
	return true, nil
}
