package topology

import (
	"fmt"
	"slices"
)

const (
	PublishPortMin = 30001
	PublishPortMax = 32767
	// PublishedPort is the internal port exposed by the single-base policy.
	PublishedPort = 443
)

// PublishPolicy selects external ports for eligible devices. Mapping, when
// non-empty, takes precedence over Base and maps internal port to external
// base port. BaseSet marks Base as configured even when it is zero.
type PublishPolicy struct {
	Base    int
	BaseSet bool
	Mapping map[int]int
}

// IsZero reports whether no policy was configured.
func (p PublishPolicy) IsZero() bool { return p.Base == 0 && !p.BaseSet && len(p.Mapping) == 0 }

// PortAssignment is one published port of one device.
type PortAssignment struct {
	Device   string
	Internal int
	External int
}

// AllocatePorts assigns external ports to the devices whose kind supports
// external access, in lexicographic device order.
//
// Mapping pairs are allocated independently; overlapping ranges between
// pairs are not detected.
func AllocatePorts(devices []*Device, p PublishPolicy) ([]PortAssignment, error) {
	names := make([]string, 0, len(devices))
	for _, d := range devices {
		if d.Kind.Spec().External {
			names = append(names, d.Name)
		}
	}
	slices.Sort(names)
	names = slices.Compact(names)

	if len(p.Mapping) > 0 {
		internals := make([]int, 0, len(p.Mapping))
		for internal := range p.Mapping {
			internals = append(internals, internal)
		}
		slices.Sort(internals)

		out := make([]PortAssignment, 0, len(names)*len(internals))
		for _, internal := range internals {
			base := p.Mapping[internal]
			for i, name := range names {
				out = append(out, PortAssignment{Device: name, Internal: internal, External: base + i})
			}
		}
		return out, nil
	}

	if p.IsZero() {
		return nil, nil
	}
	if p.Base < PublishPortMin || p.Base > PublishPortMax {
		return nil, newError(ErrorPublishRangeViolation, fmt.Sprintf("base %d", p.Base), fmt.Errorf("must be within [%d, %d]", PublishPortMin, PublishPortMax))
	}
	out := make([]PortAssignment, 0, len(names))
	for i, name := range names {
		out = append(out, PortAssignment{Device: name, Internal: PublishedPort, External: p.Base + i + PublishedPort})
	}
	return out, nil
}
