package cluster

import (
	"time"

	"meshtopo/internal/topology"
)

// Ref names a namespaced cluster object.
type Ref struct {
	Namespace string
	Name      string
}

func (r Ref) String() string { return r.Namespace + "/" + r.Name }

// ConfigMount places a config object's file inside a workload.
type ConfigMount struct {
	Object string
	Path   string
	File   string
}

// InitWait holds a workload's entrypoint until its mesh interfaces exist,
// then sleeps Delay before running the workload command.
type InitWait struct {
	Interfaces int
	Delay      time.Duration
}

// WorkloadSpec describes one device workload.
type WorkloadSpec struct {
	Namespace  string
	Name       string
	Image      string
	Command    []string
	Args       []string
	Env        []string
	Labels     map[string]string
	Resources  topology.Resources
	Privileged bool
	Config     *ConfigMount
	InitWait   InitWait
	// AntiAffinity lists label selectors the workload prefers not to share
	// a host with.
	AntiAffinity map[string]string
}

func (s WorkloadSpec) Ref() Ref { return Ref{Namespace: s.Namespace, Name: s.Name} }

// Phase is the coarse lifecycle state of a workload.
type Phase string

const (
	PhasePending Phase = "Pending"
	PhaseRunning Phase = "Running"
	PhaseFailed  Phase = "Failed"
	PhaseUnknown Phase = "Unknown"
)

type WorkloadStatus struct {
	Phase Phase
}

// ServiceSpec exposes one internal workload port on one external port.
type ServiceSpec struct {
	Namespace string
	Name      string
	Workload  string
	Internal  int
	External  int
	Labels    map[string]string
}

func (s ServiceSpec) Ref() Ref { return Ref{Namespace: s.Namespace, Name: s.Name} }

// ConfigObject is named configuration content keyed by device.
type ConfigObject struct {
	Namespace string
	Name      string
	File      string
	Data      []byte
}

func (c ConfigObject) Ref() Ref { return Ref{Namespace: c.Namespace, Name: c.Name} }

// MeshTopology is the per-device mesh resource. Links is the device's
// expanded link list.
type MeshTopology struct {
	Namespace string
	Name      string
	Labels    map[string]string
	Links     []topology.LinkDescriptor
}

func (m MeshTopology) Ref() Ref { return Ref{Namespace: m.Namespace, Name: m.Name} }

// Run is one recorded driver action against a topology.
type Run struct {
	ID        string
	Action    string
	Namespace string
	Prefix    string
	Succeeded int
	Failed    int
	At        time.Time
}
