//go:build !linux

package mesh

import (
	"context"
	"errors"
)

var errUnsupported = errors.New("veth wiring requires linux")

// NetlinkLinker is unavailable on this platform.
type NetlinkLinker struct{}

func NewNetlinkLinker() *NetlinkLinker { return &NetlinkLinker{} }

func (NetlinkLinker) HasLink(context.Context, int, string) (bool, error) {
	return false, errUnsupported
}

func (NetlinkLinker) CreateVeth(context.Context, VethPair, int, int) error {
	return errUnsupported
}

func (NetlinkLinker) DeleteLink(context.Context, int, string) error {
	return errUnsupported
}
