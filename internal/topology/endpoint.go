package topology

import (
	"fmt"
	"net/netip"
	"strings"
)

// Endpoint is one side of a link: a device interface with an optional
// address. Addr is the zero Prefix when the token carried no usable address.
type Endpoint struct {
	Device    string
	Interface string
	Addr      netip.Prefix
}

// HasAddr reports whether the endpoint carries an interface address.
func (e Endpoint) HasAddr() bool { return e.Addr.IsValid() }

// AddrString returns the address in CIDR notation, or "" when absent.
func (e Endpoint) AddrString() string {
	if !e.Addr.IsValid() {
		return ""
	}
	return e.Addr.String()
}

// String renders the endpoint back into token form.
func (e Endpoint) String() string {
	if e.HasAddr() {
		return e.Device + ":" + e.Interface + ":" + e.Addr.String()
	}
	return e.Device + ":" + e.Interface
}

// ParseEndpoint parses a `name[.domain]:interface[:cidr]` token.
//
// A host-only address (/32, /128) is dropped without error. An address that
// does not parse yields ErrInvalidAddress together with the otherwise
// complete endpoint, so the caller can still connect the interface.
func ParseEndpoint(token string) (Endpoint, error) {
	segments := strings.Split(strings.TrimSpace(token), ":")
	if len(segments) == 0 || segments[0] == "" {
		return Endpoint{}, newError(ErrorMalformedEndpoint, fmt.Sprintf("%q", token), fmt.Errorf("missing device name"))
	}

	name, _, _ := strings.Cut(segments[0], ".")
	name = strings.ToLower(name)
	if name == "" {
		return Endpoint{}, newError(ErrorMalformedEndpoint, fmt.Sprintf("%q", token), fmt.Errorf("missing device name"))
	}
	rest := segments[1:]

	var candidate string
	if len(rest) >= 2 {
		candidate = rest[len(rest)-1]
		rest = rest[:len(rest)-1]
	}
	if len(rest) != 1 || rest[0] == "" {
		return Endpoint{}, newError(ErrorMalformedEndpoint, fmt.Sprintf("%q", token), fmt.Errorf("expected exactly one interface segment"))
	}

	ep := Endpoint{
		Device:    name,
		Interface: NormalizeInterface(rest[0]),
	}
	if candidate == "" {
		return ep, nil
	}

	addr, ok, err := parseInterfaceAddr(candidate)
	if err != nil {
		return ep, newError(ErrorInvalidAddress, fmt.Sprintf("%q", token), err)
	}
	if ok {
		ep.Addr = addr
	}
	return ep, nil
}

// parseInterfaceAddr validates an address candidate. ok is false for
// host-only prefixes, which are not interface addresses.
func parseInterfaceAddr(s string) (netip.Prefix, bool, error) {
	prefix, err := netip.ParsePrefix(s)
	if err != nil {
		return netip.Prefix{}, false, err
	}
	if prefix.Bits() >= prefix.Addr().BitLen() {
		return netip.Prefix{}, false, nil
	}
	return prefix, true, nil
}

// NormalizeInterface rewrites vendor interface names into their short form.
func NormalizeInterface(name string) string {
	return strings.ReplaceAll(name, "Ethernet", "eth")
}

// SanitizeInterface makes an interface name safe for cluster object names.
func SanitizeInterface(name string) string {
	return strings.ReplaceAll(name, "/", "_")
}
