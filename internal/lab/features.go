package lab

import (
	"context"
	"fmt"
	"strings"

	"meshtopo/internal/topology"
)

var (
	ipForwardCmd = []string{"sysctl", "-w", "net.ipv4.ip_forward=1"}
	// 16384 sets bit 14 of the bridge group forward mask, which lets LLDP
	// frames (01:80:c2:00:00:0e) cross the VM's internal bridges.
	lldpCmd = []string{"sh", "-c", "for m in /sys/class/net/*/bridge/group_fwd_mask; do echo 16384 > $m; done"}
)

// EnableIPForwarding turns on IPv4 forwarding inside every host device
// once they run.
func (d *Driver) EnableIPForwarding(ctx context.Context) (*Outcome, error) {
	return d.execOnRunning(ctx, ActionEIF, "ip forwarding",
		func(dev *topology.Device) bool { return dev.Kind == topology.KindHost },
		ipForwardCmd)
}

// EnableLLDP lets LLDP frames through the internal bridges of every
// VM-based device once they run.
func (d *Driver) EnableLLDP(ctx context.Context) (*Outcome, error) {
	return d.execOnRunning(ctx, ActionLLDP, "lldp forwarding",
		func(dev *topology.Device) bool { return dev.Kind.QEMUBased() },
		lldpCmd)
}

func (d *Driver) execOnRunning(ctx context.Context, action, feature string, pred func(*topology.Device) bool, cmd []string) (*Outcome, error) {
	r, err := d.begin(ctx, action, "readiness", "exec")
	if err != nil {
		return nil, err
	}
	devices := d.devicesOf(pred)
	if len(devices) == 0 {
		r.log.Info("no devices for feature", "feature", feature)
		return r.end(ctx, nil)
	}

	_ = r.step("readiness", func(ctx context.Context) (*BatchResult, error) {
		d.waitRunning(ctx, r, feature, devices)
		return nil, nil
	})
	_ = r.step("exec", func(ctx context.Context) (*BatchResult, error) {
		b := newBatch(feature + " updates")
		for _, dev := range devices {
			out, err := d.cluster.Exec(ctx, d.synth.WorkloadRef(dev), cmd...)
			if err != nil {
				err = fmt.Errorf("exec %s: %w", strings.Join(cmd, " "), err)
			} else {
				r.log.Debug("exec output", "device", dev.Name, "stdout", strings.TrimSpace(string(out)))
			}
			b.record(dev.Name, err)
		}
		return b, nil
	})
	return r.end(ctx, nil)
}
