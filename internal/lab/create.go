package lab

import (
	"context"
	"fmt"
	"strconv"

	"meshtopo/internal/cluster"
	"meshtopo/internal/mesh"
	"meshtopo/internal/topology"
)

// Create brings up every device of the topology, publishes its ports and,
// when a mesh agent is configured, wires the links once workloads run.
func (d *Driver) Create(ctx context.Context) (*Outcome, error) {
	steps := []string{"devices", "services"}
	if d.agent != nil {
		steps = append(steps, "readiness", "mesh")
	}
	r, err := d.begin(ctx, ActionCreate, steps...)
	if err != nil {
		return nil, err
	}

	_ = r.step("devices", func(ctx context.Context) (*BatchResult, error) {
		b := newBatch("device creations")
		for _, dev := range d.graph.Registry.Devices() {
			b.record(dev.Name, d.createDevice(ctx, dev))
		}
		return b, nil
	})

	_ = r.step("services", func(ctx context.Context) (*BatchResult, error) {
		b := newBatch("port publications")
		for _, svc := range d.synth.Services(d.ports) {
			created, err := cluster.Created(d.cluster.CreateService(ctx, svc))
			if err == nil && !created {
				r.log.Debug("service already present", "service", svc.Name)
			}
			b.record(svc.Name, err)
		}
		return b, nil
	})

	if d.agent != nil {
		_ = r.step("readiness", func(ctx context.Context) (*BatchResult, error) {
			d.waitRunning(ctx, r, "all devices", d.devicesOf(nil))
			return nil, nil
		})
		_ = r.step("mesh", func(ctx context.Context) (*BatchResult, error) {
			return d.wireLinks(ctx), nil
		})
	}

	return r.end(ctx, nil)
}

// createDevice creates the config object, mesh resource and workload of
// dev. Objects that already exist are left alone.
func (d *Driver) createDevice(ctx context.Context, dev *topology.Device) error {
	log := d.log.With("device", dev.Name)

	obj, hasConfig, err := d.synth.Config(dev)
	if err != nil {
		return err
	}
	if hasConfig {
		if _, err := cluster.Created(d.cluster.CreateConfig(ctx, obj)); err != nil {
			return fmt.Errorf("create config: %w", err)
		}
	}

	if _, err := cluster.Created(d.topologies.CreateTopology(ctx, d.synth.Topology(dev))); err != nil {
		return fmt.Errorf("create mesh topology: %w", err)
	}

	created, err := cluster.Created(d.cluster.CreateWorkload(ctx, d.synth.Workload(dev, hasConfig)))
	if err != nil {
		return fmt.Errorf("create workload: %w", err)
	}
	if created {
		log.Info("created device", "kind", dev.Kind.String(), "delay", dev.StartupDelay.String())
	} else {
		log.Info("device already present")
	}
	return nil
}

func (d *Driver) wireLinks(ctx context.Context) *BatchResult {
	b := newBatch("link wirings")
	pairs, err := d.agent.Plan(ctx, d.settings.Namespace, d.synth.Labels())
	if err != nil {
		unplanned := mesh.Unplanned(err)
		for _, le := range unplanned {
			b.record("net-"+strconv.Itoa(le.VNI), le)
		}
		if len(unplanned) == 0 {
			b.record("mesh plan", err)
		}
	}
	for _, p := range pairs {
		_, err := d.agent.Wire(ctx, d.settings.Namespace, p)
		b.record(linkItem(p), err)
	}
	return b
}

func linkItem(p mesh.VethPair) string {
	return "net-" + strconv.Itoa(p.VNI)
}

// waitRunning polls until every device of subset runs. A timeout is logged
// and the action carries on.
func (d *Driver) waitRunning(ctx context.Context, r *run, subset string, devices []*topology.Device) bool {
	if len(devices) == 0 {
		return true
	}
	outcome, err := d.poll.Wait(ctx, func(ctx context.Context) (bool, error) {
		for _, dev := range devices {
			st, err := d.cluster.WorkloadStatus(ctx, d.synth.WorkloadRef(dev))
			if err != nil {
				return false, fmt.Errorf("%s: %w", dev.Name, err)
			}
			if st.Phase != cluster.PhaseRunning {
				return false, fmt.Errorf("%s is %s", dev.Name, st.Phase)
			}
		}
		return true, nil
	})
	if outcome == PollTimeout {
		r.log.Warn("devices not ready, continuing", "subset", subset, "outcome", outcome.String(), "err", err)
		return false
	}
	r.log.Info("devices ready", "subset", subset, "count", len(devices))
	return true
}
