package topology

import (
	"fmt"
	"strconv"

	"meshtopo/internal/check"
)

const linkEndpoints = 2

// Link is a point-to-point connection. Index is the link's position in the
// topology and doubles as its overlay VNI.
type Link struct {
	Index     int
	Endpoints []Endpoint
}

// Name returns the link's cluster-facing name.
func (l *Link) Name() string { return "net-" + strconv.Itoa(l.Index) }

// VNI returns the overlay network identifier of the link.
func (l *Link) VNI() int { return l.Index }

// Complete reports whether both endpoints are attached.
func (l *Link) Complete() bool { return len(l.Endpoints) == linkEndpoints }

func (l *Link) attach(ep Endpoint) error {
	check.Assert(ep.Device != "" && ep.Interface != "", "link endpoint needs a device and an interface")
	if len(l.Endpoints) >= linkEndpoints {
		return newError(ErrorTooManyEndpoints, l.Name(), fmt.Errorf("cannot attach %s", ep))
	}
	l.Endpoints = append(l.Endpoints, ep)
	return nil
}

// peerOf returns the endpoint on the other side of self.
func (l *Link) peerOf(self Endpoint) (Endpoint, error) {
	if !l.Complete() {
		return Endpoint{}, newError(ErrorIncompleteLink, l.Name(), fmt.Errorf("%d of %d endpoints attached", len(l.Endpoints), linkEndpoints))
	}
	a, b := l.Endpoints[0], l.Endpoints[1]
	switch {
	case a == self && b == self:
		return Endpoint{}, newError(ErrorAmbiguousPeer, l.Name(), fmt.Errorf("both endpoints are %s", self))
	case a == self:
		return b, nil
	case b == self:
		return a, nil
	default:
		return Endpoint{}, newError(ErrorAmbiguousPeer, l.Name(), fmt.Errorf("%s is not an endpoint", self))
	}
}
