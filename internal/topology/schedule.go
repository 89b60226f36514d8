package topology

import "time"

// StartupPolicy spreads workload boots over time so bulk creation does not
// start every device at once.
type StartupPolicy struct {
	Staggered   bool
	Step        int
	Base        time.Duration
	BatchFactor int
}

// DefaultStartupPolicy returns the staggered policy with default constants.
func DefaultStartupPolicy() StartupPolicy {
	return StartupPolicy{
		Staggered:   true,
		Step:        15,
		Base:        45 * time.Second,
		BatchFactor: 4,
	}
}

// StaggerDelay returns the staggered part of the delay for the device at
// position i of the registry.
func (p StartupPolicy) StaggerDelay(i int) time.Duration {
	if !p.Staggered || p.Step <= 0 || i < 0 {
		return 0
	}
	return time.Duration(i/p.Step) * p.Base * time.Duration(p.BatchFactor)
}

// ScheduleStartup assigns every device its startup delay: the kind boot
// offset plus, for staggered policies, the positional stagger.
func ScheduleStartup(g *Graph, p StartupPolicy) {
	for i, d := range g.Registry.Devices() {
		d.StartupDelay = d.Kind.Spec().BootOffset + p.StaggerDelay(i)
	}
}
