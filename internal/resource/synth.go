// Package resource turns expanded topology devices into cluster resource
// specifications.
package resource

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"meshtopo/internal/cluster"
	"meshtopo/internal/config"
	"meshtopo/internal/topology"
)

const (
	// LabelTopology groups every resource of one topology.
	LabelTopology = "topo"
	LabelDevice   = "device"
)

// Synthesizer derives workload, config, mesh and service specs from devices.
type Synthesizer struct {
	settings *config.Settings
}

func New(settings *config.Settings) *Synthesizer {
	return &Synthesizer{settings: settings}
}

// Labels returns the labels shared by every resource of the topology.
func (s *Synthesizer) Labels() map[string]string {
	return map[string]string{LabelTopology: s.settings.Prefix}
}

func (s *Synthesizer) ref(name string) cluster.Ref {
	return cluster.Ref{Namespace: s.settings.Namespace, Name: name}
}

// WorkloadRef returns the ref of the device's workload.
func (s *Synthesizer) WorkloadRef(d *topology.Device) cluster.Ref { return s.ref(d.Name) }

// Workload builds the workload spec for an expanded device. withConfig
// mounts the device's config object at the kind's config path.
func (s *Synthesizer) Workload(d *topology.Device, withConfig bool) cluster.WorkloadSpec {
	spec := d.Kind.Spec()
	w := cluster.WorkloadSpec{
		Namespace:    s.settings.Namespace,
		Name:         d.Name,
		Image:        s.settings.Image(d),
		Command:      spec.Command,
		Args:         spec.Args,
		Env:          spec.Env,
		Labels:       s.Labels(),
		Resources:    spec.Resources,
		Privileged:   spec.Privileged,
		AntiAffinity: s.Labels(),
		InitWait: cluster.InitWait{
			Interfaces: len(d.ExpandedLinks),
			Delay:      d.StartupDelay,
		},
	}
	if withConfig && spec.ConfigPath != "" {
		w.Config = &cluster.ConfigMount{
			Object: d.Name,
			Path:   spec.ConfigPath,
			File:   spec.ConfigFile,
		}
	}
	return w
}

// Config reads the device's startup configuration from the config
// directory. ok is false when the device has no configuration file or its
// kind has nowhere to mount one.
func (s *Synthesizer) Config(d *topology.Device) (obj cluster.ConfigObject, ok bool, err error) {
	spec := d.Kind.Spec()
	if spec.ConfigPath == "" {
		return cluster.ConfigObject{}, false, nil
	}
	data, err := os.ReadFile(filepath.Join(s.settings.ConfDir, d.Name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cluster.ConfigObject{}, false, nil
		}
		return cluster.ConfigObject{}, false, fmt.Errorf("read config for %s: %w", d.Name, err)
	}
	return cluster.ConfigObject{
		Namespace: s.settings.Namespace,
		Name:      d.Name,
		File:      spec.ConfigFile,
		Data:      data,
	}, true, nil
}

// ConfigRef returns the ref of the device's config object.
func (s *Synthesizer) ConfigRef(d *topology.Device) cluster.Ref { return s.ref(d.Name) }

// Topology builds the mesh resource of an expanded device.
func (s *Synthesizer) Topology(d *topology.Device) cluster.MeshTopology {
	return cluster.MeshTopology{
		Namespace: s.settings.Namespace,
		Name:      d.Name,
		Labels:    s.Labels(),
		Links:     d.ExpandedLinks,
	}
}

// TopologyRef returns the ref of the device's mesh resource.
func (s *Synthesizer) TopologyRef(d *topology.Device) cluster.Ref { return s.ref(d.Name) }

// ServiceName names the service publishing internal port of device.
func ServiceName(device string, internal int) string {
	return device + "-" + strconv.Itoa(internal)
}

// Services builds one service per port assignment.
func (s *Synthesizer) Services(assignments []topology.PortAssignment) []cluster.ServiceSpec {
	out := make([]cluster.ServiceSpec, 0, len(assignments))
	for _, a := range assignments {
		labels := s.Labels()
		labels[LabelDevice] = a.Device
		out = append(out, cluster.ServiceSpec{
			Namespace: s.settings.Namespace,
			Name:      ServiceName(a.Device, a.Internal),
			Workload:  a.Device,
			Internal:  a.Internal,
			External:  a.External,
			Labels:    labels,
		})
	}
	return out
}

// PublishedPorts maps the internal ports published for device to their
// external ports.
func PublishedPorts(assignments []topology.PortAssignment, device string) map[int]int {
	out := make(map[int]int)
	for _, a := range assignments {
		if a.Device == device {
			out[a.Internal] = a.External
		}
	}
	return out
}
