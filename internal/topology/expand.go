package topology

import (
	"errors"
	"fmt"
)

// LinkDescriptor is one peer-resolved link as consumed by the mesh control
// plane. Field names follow the mesh Topology resource schema.
type LinkDescriptor struct {
	UID       int    `json:"uid"`
	LocalIntf string `json:"local_intf"`
	LocalIP   string `json:"local_ip"`
	PeerIntf  string `json:"peer_intf"`
	PeerIP    string `json:"peer_ip"`
	PeerPod   string `json:"peer_pod"`
}

// Expand resolves the peer of every link attached to d. It is a pure
// function of d's interfaces and addresses; descriptors are ordered by local
// interface name. Any unresolvable link fails the whole device.
func Expand(d *Device) ([]LinkDescriptor, error) {
	out := make([]LinkDescriptor, 0, len(d.Interfaces))
	for _, iface := range d.InterfaceNames() {
		link := d.Interfaces[iface]
		self := d.Endpoint(iface)
		peer, err := link.peerOf(self)
		if err != nil {
			return nil, fmt.Errorf("expand %s: %w", d.Name, err)
		}
		out = append(out, LinkDescriptor{
			UID:       link.VNI(),
			LocalIntf: SanitizeInterface(iface),
			LocalIP:   self.AddrString(),
			PeerIntf:  SanitizeInterface(peer.Interface),
			PeerIP:    peer.AddrString(),
			PeerPod:   peer.Device,
		})
	}
	return out, nil
}

// ExpandAll sets ExpandedLinks on every device of a fully built graph.
// Devices that fail expansion are left with no links; the failures are
// joined into the returned error.
func ExpandAll(g *Graph) error {
	var errs []error
	for _, d := range g.Registry.Devices() {
		links, err := Expand(d)
		if err != nil {
			d.ExpandedLinks = nil
			errs = append(errs, err)
			continue
		}
		d.ExpandedLinks = links
	}
	return errors.Join(errs...)
}
