package topology

import (
	"fmt"
	"net/netip"
	"slices"
	"time"
)

// Device is a named node of the topology. Devices are owned by a Registry
// and only mutated while the graph is built, then once by expansion.
type Device struct {
	Name string
	Kind Kind
	// Keyword is the custom-image keyword that classified a KindGeneric device.
	Keyword string

	Interfaces map[string]*Link
	IPs        map[string]netip.Prefix

	StartupDelay  time.Duration
	ExpandedLinks []LinkDescriptor
}

func newDevice(name string, kind Kind, keyword string) *Device {
	return &Device{
		Name:       name,
		Kind:       kind,
		Keyword:    keyword,
		Interfaces: make(map[string]*Link),
		IPs:        make(map[string]netip.Prefix),
	}
}

// Connect registers link under iface and appends this device's endpoint
// triple to the link. Both effects happen or neither does.
func (d *Device) Connect(iface string, link *Link) error {
	if _, taken := d.Interfaces[iface]; taken {
		return newError(ErrorDuplicateInterface, d.Name+":"+iface, fmt.Errorf("interface already attached to %s", d.Interfaces[iface].Name()))
	}
	ep := Endpoint{Device: d.Name, Interface: iface, Addr: d.IPs[iface]}
	if err := link.attach(ep); err != nil {
		return err
	}
	d.Interfaces[iface] = link
	return nil
}

// InterfaceNames returns the device's interface names in sorted order.
func (d *Device) InterfaceNames() []string {
	names := make([]string, 0, len(d.Interfaces))
	for name := range d.Interfaces {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Endpoint returns the device's own triple for iface.
func (d *Device) Endpoint(iface string) Endpoint {
	return Endpoint{Device: d.Name, Interface: iface, Addr: d.IPs[iface]}
}
