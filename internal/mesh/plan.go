// Package mesh realizes mesh topology resources as veth pairs between
// workload network namespaces.
package mesh

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"

	"meshtopo/internal/cluster"
)

// End is one side of a wired link.
type End struct {
	Pod  string
	Intf string
	// IP is the interface address in CIDR notation, or "".
	IP string
}

func (e End) String() string { return e.Pod + ":" + e.Intf }

// VethPair is a link as wired on the host: one veth per VNI.
type VethPair struct {
	VNI int
	A   End
	B   End
}

var (
	ErrPeerMissing  = errors.New("peer has no topology resource")
	ErrInconsistent = errors.New("topology resources disagree")
)

// LinkError reports a VNI that could not be planned.
type LinkError struct {
	VNI int
	Err error
}

func (e *LinkError) Error() string { return fmt.Sprintf("vni %d: %v", e.VNI, e.Err) }

func (e *LinkError) Unwrap() error { return e.Err }

// Unplanned extracts the per-VNI failures from a PlanLinks or Agent.Plan
// error, ordered as reported.
func Unplanned(err error) []*LinkError {
	if err == nil {
		return nil
	}
	var out []*LinkError
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			out = append(out, Unplanned(e)...)
		}
		return out
	}
	var le *LinkError
	if errors.As(err, &le) {
		out = append(out, le)
	}
	return out
}

// PlanLinks merges per-device topology resources into one veth pair per
// VNI. Each VNI must be described by both of its devices with mirrored
// descriptors; pairs that are not are reported as *LinkError and left out.
func PlanLinks(topos []cluster.MeshTopology) ([]VethPair, error) {
	sorted := slices.Clone(topos)
	slices.SortFunc(sorted, func(a, b cluster.MeshTopology) int { return cmp.Compare(a.Name, b.Name) })

	pairs := make(map[int]*VethPair)
	seen := make(map[int]int)
	bad := make(map[int]bool)
	var errs []error
	for _, topo := range sorted {
		for _, l := range topo.Links {
			if bad[l.UID] {
				continue
			}
			local := End{Pod: topo.Name, Intf: l.LocalIntf, IP: l.LocalIP}
			peer := End{Pod: l.PeerPod, Intf: l.PeerIntf, IP: l.PeerIP}
			seen[l.UID]++
			p, ok := pairs[l.UID]
			if !ok {
				pairs[l.UID] = &VethPair{VNI: l.UID, A: local, B: peer}
				continue
			}
			if seen[l.UID] > 2 || p.A != peer || p.B != local {
				errs = append(errs, &LinkError{VNI: l.UID, Err: fmt.Errorf("%s and %s: %w", p.A, local, ErrInconsistent)})
				bad[l.UID] = true
				delete(pairs, l.UID)
			}
		}
	}

	vnis := slices.Sorted(maps.Keys(pairs))
	out := make([]VethPair, 0, len(vnis))
	for _, vni := range vnis {
		p := pairs[vni]
		if seen[vni] == 1 {
			errs = append(errs, &LinkError{VNI: vni, Err: fmt.Errorf("%s: %w", p.B.Pod, ErrPeerMissing)})
			continue
		}
		out = append(out, *p)
	}
	return out, errors.Join(errs...)
}
