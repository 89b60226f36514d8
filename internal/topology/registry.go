package topology

// Registry owns the devices of one topology, keyed by name and kept in
// first-mention order.
type Registry struct {
	devices        map[string]*Device
	order          []*Device
	customKeywords []string
}

// NewRegistry creates an empty registry. customKeywords extend kind
// resolution after the builtin keywords.
func NewRegistry(customKeywords []string) *Registry {
	return &Registry{
		devices:        make(map[string]*Device),
		customKeywords: customKeywords,
	}
}

// Get returns the device called name, creating it on first use.
func (r *Registry) Get(name string) *Device {
	if d, ok := r.devices[name]; ok {
		return d
	}
	kind, keyword := ResolveKind(name, r.customKeywords)
	d := newDevice(name, kind, keyword)
	r.devices[name] = d
	r.order = append(r.order, d)
	return d
}

// Lookup returns an existing device without creating one.
func (r *Registry) Lookup(name string) (*Device, bool) {
	d, ok := r.devices[name]
	return d, ok
}

// Devices returns all devices in insertion order.
func (r *Registry) Devices() []*Device {
	out := make([]*Device, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Len() int { return len(r.order) }

// InterfaceCount returns the total number of attached interfaces.
func (r *Registry) InterfaceCount() int {
	n := 0
	for _, d := range r.order {
		n += len(d.Interfaces)
	}
	return n
}
