package lab

import (
	"context"
	"errors"
	"fmt"
	"time"

	"meshtopo/internal/cluster"
	"meshtopo/internal/resource"
	"meshtopo/internal/topology"
)

// WorkloadNamer is implemented by backends whose workload names differ
// from device names.
type WorkloadNamer interface {
	WorkloadName(ref cluster.Ref) string
}

// DeviceRow describes one device and the state of its workload.
type DeviceRow struct {
	Name       string
	Kind       topology.Kind
	Image      string
	Phase      cluster.Phase // empty when the workload does not exist
	Interfaces int
	Delay      time.Duration
	Resources  topology.Resources
	Entry      string
}

// LinkRow describes one link.
type LinkRow struct {
	Name      string
	Endpoints []string
	Complete  bool
}

// Report is the read-only view of a topology.
type Report struct {
	Topology  string
	Namespace string
	Devices   []DeviceRow
	Links     []LinkRow
	Ports     []topology.PortAssignment
	Runs      []cluster.Run
}

// Show reports devices with their workload state, links, published ports
// and the most recent runs.
func (d *Driver) Show(ctx context.Context, recentRuns int) (*Report, error) {
	rep := &Report{
		Topology:  d.settings.Prefix,
		Namespace: d.settings.Namespace,
		Ports:     d.ports,
	}

	for _, dev := range d.graph.Registry.Devices() {
		ref := d.synth.WorkloadRef(dev)
		row := DeviceRow{
			Name:       dev.Name,
			Kind:       dev.Kind,
			Image:      d.settings.Image(dev),
			Interfaces: len(dev.Interfaces),
			Delay:      dev.StartupDelay,
			Resources:  dev.Kind.Spec().Resources,
			Entry:      topology.EntryCommand(dev.Kind, d.workloadName(ref), resource.PublishedPorts(d.ports, dev.Name)),
		}
		st, err := d.cluster.WorkloadStatus(ctx, ref)
		switch {
		case err == nil:
			row.Phase = st.Phase
		case errors.Is(err, cluster.ErrNotFound):
		default:
			return nil, fmt.Errorf("status of %s: %w", dev.Name, err)
		}
		rep.Devices = append(rep.Devices, row)
	}

	for _, l := range d.graph.Links {
		row := LinkRow{Name: l.Name(), Complete: l.Complete()}
		for _, ep := range l.Endpoints {
			row.Endpoints = append(row.Endpoints, ep.String())
		}
		rep.Links = append(rep.Links, row)
	}

	if d.runs != nil && recentRuns > 0 {
		runs, err := d.runs.RecentRuns(ctx, d.settings.Namespace, d.settings.Prefix, recentRuns)
		if err != nil {
			return nil, err
		}
		rep.Runs = runs
	}
	return rep, nil
}

func (d *Driver) workloadName(ref cluster.Ref) string {
	if n, ok := d.cluster.(WorkloadNamer); ok {
		return n.WorkloadName(ref)
	}
	return ref.Name
}
