package fake

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"meshtopo/internal/adapter/fake/fault"
	"meshtopo/internal/cluster"
	"meshtopo/internal/mesh"
)

var (
	_ cluster.Cluster        = (*Cluster)(nil)
	_ cluster.MeshTopologies = (*Cluster)(nil)
	_ mesh.PIDResolver       = (*Cluster)(nil)
)

// Fault points evaluated by Cluster.
const (
	PointCreateWorkload = "cluster.create_workload"
	PointDeleteWorkload = "cluster.delete_workload"
	PointStatus         = "cluster.workload_status"
	PointCreateService  = "cluster.create_service"
	PointDeleteService  = "cluster.delete_service"
	PointCreateConfig   = "cluster.create_config"
	PointDeleteConfig   = "cluster.delete_config"
	PointCreateTopology = "cluster.create_topology"
	PointDeleteTopology = "cluster.delete_topology"
	PointExec           = "cluster.exec"
)

type workload struct {
	spec    cluster.WorkloadSpec
	phase   cluster.Phase
	pending int
	pid     int
}

// Cluster is an in-memory control plane. Workloads report Running as soon
// as they are created unless told otherwise.
type Cluster struct {
	CallRecorder
	Faults *fault.Injector

	// ExecOutput, when set, produces the stdout of Exec calls.
	ExecOutput func(ref cluster.Ref, cmd []string) ([]byte, error)

	mu         sync.Mutex
	workloads  map[cluster.Ref]*workload
	services   map[cluster.Ref]cluster.ServiceSpec
	configs    map[cluster.Ref]cluster.ConfigObject
	topologies map[cluster.Ref]cluster.MeshTopology
	pending    map[cluster.Ref]int
	nextPID    int
}

func NewCluster() *Cluster {
	return &Cluster{
		Faults:     fault.NewInjector(),
		workloads:  make(map[cluster.Ref]*workload),
		services:   make(map[cluster.Ref]cluster.ServiceSpec),
		configs:    make(map[cluster.Ref]cluster.ConfigObject),
		topologies: make(map[cluster.Ref]cluster.MeshTopology),
		pending:    make(map[cluster.Ref]int),
		nextPID:    1000,
	}
}

// HoldPending makes ref report Pending for its next polls status reads after
// it is created, then Running.
func (c *Cluster) HoldPending(ref cluster.Ref, polls int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if w, ok := c.workloads[ref]; ok {
		w.pending = polls
		return
	}
	c.pending[ref] = polls
}

// SetPhase forces the phase reported for ref.
func (c *Cluster) SetPhase(ref cluster.Ref, phase cluster.Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if w, ok := c.workloads[ref]; ok {
		w.phase = phase
		w.pending = 0
	}
}

func (c *Cluster) CreateWorkload(_ context.Context, spec cluster.WorkloadSpec) error {
	c.record("CreateWorkload", spec.Name)
	if err := c.Faults.Eval(PointCreateWorkload, spec.Name); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ref := spec.Ref()
	if _, ok := c.workloads[ref]; ok {
		return fmt.Errorf("workload %s: %w", ref, cluster.ErrAlreadyExists)
	}
	c.nextPID++
	c.workloads[ref] = &workload{spec: spec, phase: cluster.PhaseRunning, pending: c.pending[ref], pid: c.nextPID}
	delete(c.pending, ref)
	return nil
}

func (c *Cluster) DeleteWorkload(_ context.Context, ref cluster.Ref) error {
	c.record("DeleteWorkload", ref.Name)
	if err := c.Faults.Eval(PointDeleteWorkload, ref.Name); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.workloads[ref]; !ok {
		return fmt.Errorf("workload %s: %w", ref, cluster.ErrNotFound)
	}
	delete(c.workloads, ref)
	return nil
}

func (c *Cluster) GetWorkload(_ context.Context, ref cluster.Ref) (cluster.WorkloadSpec, error) {
	c.record("GetWorkload", ref.Name)
	c.mu.Lock()
	defer c.mu.Unlock()

	w, ok := c.workloads[ref]
	if !ok {
		return cluster.WorkloadSpec{}, fmt.Errorf("workload %s: %w", ref, cluster.ErrNotFound)
	}
	return w.spec, nil
}

func (c *Cluster) WorkloadStatus(_ context.Context, ref cluster.Ref) (cluster.WorkloadStatus, error) {
	c.record("WorkloadStatus", ref.Name)
	if err := c.Faults.Eval(PointStatus, ref.Name); err != nil {
		return cluster.WorkloadStatus{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	w, ok := c.workloads[ref]
	if !ok {
		return cluster.WorkloadStatus{}, fmt.Errorf("workload %s: %w", ref, cluster.ErrNotFound)
	}
	if w.pending > 0 {
		w.pending--
		return cluster.WorkloadStatus{Phase: cluster.PhasePending}, nil
	}
	return cluster.WorkloadStatus{Phase: w.phase}, nil
}

func (c *Cluster) WorkloadPID(_ context.Context, ref cluster.Ref) (int, error) {
	c.record("WorkloadPID", ref.Name)
	c.mu.Lock()
	defer c.mu.Unlock()

	w, ok := c.workloads[ref]
	if !ok {
		return 0, fmt.Errorf("workload %s: %w", ref, cluster.ErrNotFound)
	}
	if w.phase != cluster.PhaseRunning {
		return 0, fmt.Errorf("workload %s is %s", ref, w.phase)
	}
	return w.pid, nil
}

// Workloads returns the names of existing workloads in a namespace, sorted.
func (c *Cluster) Workloads(namespace string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for ref := range c.workloads {
		if ref.Namespace == namespace {
			out = append(out, ref.Name)
		}
	}
	slices.Sort(out)
	return out
}

func (c *Cluster) CreateService(_ context.Context, spec cluster.ServiceSpec) error {
	c.record("CreateService", spec.Name, spec.External)
	if err := c.Faults.Eval(PointCreateService, spec.Name); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ref := spec.Ref()
	if _, ok := c.services[ref]; ok {
		return fmt.Errorf("service %s: %w", ref, cluster.ErrAlreadyExists)
	}
	c.services[ref] = spec
	return nil
}

func (c *Cluster) DeleteService(_ context.Context, ref cluster.Ref) error {
	c.record("DeleteService", ref.Name)
	if err := c.Faults.Eval(PointDeleteService, ref.Name); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.services[ref]; !ok {
		return fmt.Errorf("service %s: %w", ref, cluster.ErrNotFound)
	}
	delete(c.services, ref)
	return nil
}

// Services returns the existing services of a namespace ordered by name.
func (c *Cluster) Services(namespace string) []cluster.ServiceSpec {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []cluster.ServiceSpec
	for ref, s := range c.services {
		if ref.Namespace == namespace {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b cluster.ServiceSpec) int { return cmp.Compare(a.Name, b.Name) })
	return out
}

func (c *Cluster) CreateConfig(_ context.Context, obj cluster.ConfigObject) error {
	c.record("CreateConfig", obj.Name)
	if err := c.Faults.Eval(PointCreateConfig, obj.Name); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ref := obj.Ref()
	if _, ok := c.configs[ref]; ok {
		return fmt.Errorf("config %s: %w", ref, cluster.ErrAlreadyExists)
	}
	c.configs[ref] = obj
	return nil
}

func (c *Cluster) DeleteConfig(_ context.Context, ref cluster.Ref) error {
	c.record("DeleteConfig", ref.Name)
	if err := c.Faults.Eval(PointDeleteConfig, ref.Name); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.configs[ref]; !ok {
		return fmt.Errorf("config %s: %w", ref, cluster.ErrNotFound)
	}
	delete(c.configs, ref)
	return nil
}

// Config returns a stored config object.
func (c *Cluster) Config(ref cluster.Ref) (cluster.ConfigObject, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	obj, ok := c.configs[ref]
	return obj, ok
}

func (c *Cluster) CreateTopology(_ context.Context, topo cluster.MeshTopology) error {
	c.record("CreateTopology", topo.Name)
	if err := c.Faults.Eval(PointCreateTopology, topo.Name); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ref := topo.Ref()
	if _, ok := c.topologies[ref]; ok {
		return fmt.Errorf("topology %s: %w", ref, cluster.ErrAlreadyExists)
	}
	topo.Links = slices.Clone(topo.Links)
	topo.Labels = maps.Clone(topo.Labels)
	c.topologies[ref] = topo
	return nil
}

func (c *Cluster) DeleteTopology(_ context.Context, ref cluster.Ref) error {
	c.record("DeleteTopology", ref.Name)
	if err := c.Faults.Eval(PointDeleteTopology, ref.Name); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.topologies[ref]; !ok {
		return fmt.Errorf("topology %s: %w", ref, cluster.ErrNotFound)
	}
	delete(c.topologies, ref)
	return nil
}

func (c *Cluster) GetTopology(_ context.Context, ref cluster.Ref) (cluster.MeshTopology, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	topo, ok := c.topologies[ref]
	if !ok {
		return cluster.MeshTopology{}, fmt.Errorf("topology %s: %w", ref, cluster.ErrNotFound)
	}
	return topo, nil
}

func (c *Cluster) ListTopologies(_ context.Context, namespace string) ([]cluster.MeshTopology, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []cluster.MeshTopology
	for ref, topo := range c.topologies {
		if ref.Namespace == namespace {
			out = append(out, topo)
		}
	}
	slices.SortFunc(out, func(a, b cluster.MeshTopology) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

func (c *Cluster) Exec(_ context.Context, ref cluster.Ref, cmd ...string) ([]byte, error) {
	c.record("Exec", ref.Name, slices.Clone(cmd))
	if err := c.Faults.Eval(PointExec, ref.Name, cmd); err != nil {
		return nil, err
	}
	c.mu.Lock()
	w, ok := c.workloads[ref]
	running := ok && w.phase == cluster.PhaseRunning && w.pending == 0
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("workload %s: %w", ref, cluster.ErrNotFound)
	}
	if !running {
		return nil, fmt.Errorf("exec in %s: workload not running", ref)
	}
	if c.ExecOutput != nil {
		return c.ExecOutput(ref, cmd)
	}
	return nil, nil
}
