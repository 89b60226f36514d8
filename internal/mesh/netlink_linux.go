//go:build linux

package mesh

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"
	"golang.org/x/sys/unix"
)

// NetlinkLinker wires veth pairs with rtnetlink.
type NetlinkLinker struct{}

func NewNetlinkLinker() *NetlinkLinker { return &NetlinkLinker{} }

func (NetlinkLinker) HasLink(_ context.Context, pid int, intf string) (bool, error) {
	h, closeNS, err := handleForPID(pid)
	if err != nil {
		return false, err
	}
	defer closeNS()

	if _, err := h.LinkByName(intf); err != nil {
		if _, ok := err.(netlink.LinkNotFoundError); ok {
			return false, nil
		}
		return false, fmt.Errorf("find %q in pid %d namespace: %w", intf, pid, err)
	}
	return true, nil
}

func (NetlinkLinker) CreateVeth(_ context.Context, pair VethPair, pidA, pidB int) (err error) {
	// The host namespace must stay current while both ends are created.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	a := placement{name: fmt.Sprintf("mt%da", pair.VNI)}
	b := placement{name: fmt.Sprintf("mt%db", pair.VNI)}
	veth := &netlink.Veth{LinkAttrs: netlink.LinkAttrs{Name: a.name}, PeerName: b.name}
	if err := netlink.LinkAdd(veth); err != nil && !errors.Is(err, unix.EEXIST) {
		return fmt.Errorf("create veth %s/%s: %w", a.name, b.name, err)
	}
	// Deleting one end of a veth removes its peer too.
	defer func() {
		if err != nil {
			if cerr := a.remove(); cerr != nil {
				err = errors.Join(err, cerr)
			}
		}
	}()

	if err := a.moveAndConfigure(pair.A, pidA); err != nil {
		return err
	}
	return b.moveAndConfigure(pair.B, pidB)
}

func (NetlinkLinker) DeleteLink(_ context.Context, pid int, intf string) error {
	p := placement{name: intf, pid: pid}
	return p.remove()
}

// placement tracks where one veth end currently lives. pid 0 is the host
// namespace.
type placement struct {
	name string
	pid  int
}

func (p *placement) moveAndConfigure(end End, pid int) error {
	link, err := netlink.LinkByName(p.name)
	if err != nil {
		return fmt.Errorf("find %s: %w", p.name, err)
	}
	ns, err := nsForPID(pid)
	if err != nil {
		return fmt.Errorf("open netns of pid %d: %w", pid, err)
	}
	defer ns.Close()
	if err := netlink.LinkSetNsFd(link, int(ns)); err != nil {
		return fmt.Errorf("move %s to %s: %w", p.name, end.Pod, err)
	}
	p.pid = pid

	h, err := netlink.NewHandleAt(ns)
	if err != nil {
		return fmt.Errorf("netlink handle for pid %d: %w", pid, err)
	}
	defer h.Close()

	link, err = h.LinkByName(p.name)
	if err != nil {
		return fmt.Errorf("find %s in %s: %w", p.name, end.Pod, err)
	}
	if err := h.LinkSetName(link, end.Intf); err != nil {
		return fmt.Errorf("rename %s to %s: %w", p.name, end, err)
	}
	p.name = end.Intf
	if end.IP != "" {
		addr, err := netlink.ParseAddr(end.IP)
		if err != nil {
			return fmt.Errorf("parse %s address %q: %w", end, end.IP, err)
		}
		if err := h.AddrAdd(link, addr); err != nil && !errors.Is(err, unix.EEXIST) {
			return fmt.Errorf("set %s address %s: %w", end, end.IP, err)
		}
	}
	if link.Attrs().RawFlags&unix.IFF_UP == 0 {
		if err := h.LinkSetUp(link); err != nil {
			return fmt.Errorf("set %s up: %w", end, err)
		}
	}
	return nil
}

// remove deletes the end from the namespace holding it. A missing link is
// not an error.
func (p *placement) remove() error {
	if p.pid == 0 {
		link, err := netlink.LinkByName(p.name)
		if err != nil {
			return nil
		}
		if err := netlink.LinkDel(link); err != nil {
			return fmt.Errorf("delete %s: %w", p.name, err)
		}
		return nil
	}
	h, closeNS, err := handleForPID(p.pid)
	if err != nil {
		return err
	}
	defer closeNS()
	link, err := h.LinkByName(p.name)
	if err != nil {
		if _, ok := err.(netlink.LinkNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("find %s in pid %d namespace: %w", p.name, p.pid, err)
	}
	if err := h.LinkDel(link); err != nil {
		return fmt.Errorf("delete %s in pid %d namespace: %w", p.name, p.pid, err)
	}
	return nil
}

var nsForPID = netns.GetFromPid

func handleForPID(pid int) (*netlink.Handle, func(), error) {
	ns, err := nsForPID(pid)
	if err != nil {
		return nil, nil, fmt.Errorf("open netns of pid %d: %w", pid, err)
	}
	h, err := netlink.NewHandleAt(ns)
	if err != nil {
		_ = ns.Close()
		return nil, nil, fmt.Errorf("netlink handle for pid %d: %w", pid, err)
	}
	return h, func() {
		h.Close()
		_ = ns.Close()
	}, nil
}
