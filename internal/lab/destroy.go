package lab

import (
	"context"
	"errors"
	"fmt"

	"meshtopo/internal/cluster"
	"meshtopo/internal/topology"
)

// NetworkCleaner is implemented by backends that keep a shared network per
// namespace.
type NetworkCleaner interface {
	CleanupNetwork(ctx context.Context, namespace string) error
}

// Destroy removes every object Create made. Absent objects are skipped.
func (d *Driver) Destroy(ctx context.Context) (*Outcome, error) {
	r, err := d.begin(ctx, ActionDestroy, "services", "devices", "network")
	if err != nil {
		return nil, err
	}

	_ = r.step("services", func(ctx context.Context) (*BatchResult, error) {
		b := newBatch("port withdrawals")
		for _, svc := range d.synth.Services(d.ports) {
			_, err := cluster.Deleted(d.cluster.DeleteService(ctx, svc.Ref()))
			b.record(svc.Name, err)
		}
		return b, nil
	})

	_ = r.step("devices", func(ctx context.Context) (*BatchResult, error) {
		b := newBatch("device deletions")
		for _, dev := range d.graph.Registry.Devices() {
			b.record(dev.Name, d.destroyDevice(ctx, dev))
		}
		return b, nil
	})

	_ = r.step("network", func(ctx context.Context) (*BatchResult, error) {
		cleaner, ok := d.cluster.(NetworkCleaner)
		if !ok {
			return nil, nil
		}
		if err := cleaner.CleanupNetwork(ctx, d.settings.Namespace); err != nil {
			r.log.Warn("failed to clean up network", "err", err)
			return nil, err
		}
		return nil, nil
	})

	return r.end(ctx, nil)
}

// destroyDevice deletes the workload, config object and mesh resource of
// dev, attempting all three.
func (d *Driver) destroyDevice(ctx context.Context, dev *topology.Device) error {
	var errs []error
	removed, err := cluster.Deleted(d.cluster.DeleteWorkload(ctx, d.synth.WorkloadRef(dev)))
	if err != nil {
		errs = append(errs, fmt.Errorf("delete workload: %w", err))
	}
	if _, err := cluster.Deleted(d.cluster.DeleteConfig(ctx, d.synth.ConfigRef(dev))); err != nil {
		errs = append(errs, fmt.Errorf("delete config: %w", err))
	}
	if _, err := cluster.Deleted(d.topologies.DeleteTopology(ctx, d.synth.TopologyRef(dev))); err != nil {
		errs = append(errs, fmt.Errorf("delete mesh topology: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	if removed {
		d.log.Info("deleted device", "device", dev.Name)
	} else {
		d.log.Debug("device already absent", "device", dev.Name)
	}
	return nil
}
