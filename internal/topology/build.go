package topology

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
)

// Graph is a built topology: the device registry plus the ordered links.
type Graph struct {
	Registry *Registry
	Links    []*Link
}

// BuildOptions tune graph construction.
type BuildOptions struct {
	CustomKeywords []string
}

// Build turns topology entries, each a list of endpoint tokens, into a
// graph. Construction is fail-soft: the returned graph is always usable and
// every rejected entry or token is reported in the joined error.
func Build(entries [][]string, opts BuildOptions) (*Graph, error) {
	g := &Graph{
		Registry: NewRegistry(opts.CustomKeywords),
		Links:    make([]*Link, 0, len(entries)),
	}

	var errs []error
	for i, tokens := range entries {
		link := &Link{Index: i}
		g.Links = append(g.Links, link)

		if len(tokens) != linkEndpoints {
			kind := ErrorMalformedEndpoint
			if len(tokens) > linkEndpoints {
				kind = ErrorTooManyEndpoints
			}
			errs = append(errs, newError(kind, link.Name(), fmt.Errorf("got %d endpoints [%s], want %d", len(tokens), strings.Join(tokens, " "), linkEndpoints)))
			continue
		}

		for _, token := range tokens {
			if err := g.attachToken(link, token); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return g, errors.Join(errs...)
}

func (g *Graph) attachToken(link *Link, token string) error {
	ep, parseErr := ParseEndpoint(token)
	if parseErr != nil && !errors.Is(parseErr, ErrInvalidAddress) {
		return parseErr
	}

	dev := g.Registry.Get(ep.Device)
	if !dev.Kind.AcceptsAddresses() {
		ep.Addr = netip.Prefix{}
		parseErr = nil
	}
	if _, taken := dev.Interfaces[ep.Interface]; taken {
		return errors.Join(parseErr, newError(ErrorDuplicateInterface, ep.Device+":"+ep.Interface, fmt.Errorf("reused by %s", link.Name())))
	}
	if ep.HasAddr() {
		dev.IPs[ep.Interface] = ep.Addr
	}
	if err := dev.Connect(ep.Interface, link); err != nil {
		return errors.Join(parseErr, err)
	}
	return parseErr
}

// Validate checks that every interface is referenced by exactly one link
// and that every link references exactly the devices that declared it.
func (g *Graph) Validate() error {
	var errs []error
	for _, l := range g.Links {
		if !l.Complete() {
			errs = append(errs, newError(ErrorIncompleteLink, l.Name(), fmt.Errorf("%d endpoints", len(l.Endpoints))))
		}
		for _, ep := range l.Endpoints {
			d, ok := g.Registry.Lookup(ep.Device)
			if !ok {
				errs = append(errs, fmt.Errorf("%s references unknown device %q", l.Name(), ep.Device))
				continue
			}
			if d.Interfaces[ep.Interface] != l {
				errs = append(errs, fmt.Errorf("%s references %s which is not attached to it", l.Name(), ep))
			}
		}
	}
	for _, d := range g.Registry.Devices() {
		for iface, l := range d.Interfaces {
			found := 0
			for _, ep := range l.Endpoints {
				if ep.Device == d.Name && ep.Interface == iface {
					found++
				}
			}
			if found != 1 {
				errs = append(errs, fmt.Errorf("%s:%s appears %d times in %s", d.Name, iface, found, l.Name()))
			}
		}
	}
	return errors.Join(errs...)
}
