package topology

import (
	"errors"
	"reflect"
	"testing"
)

func TestExpand_Idempotent(t *testing.T) {
	g := mustBuild(t, [][]string{
		{"leaf1:Ethernet1/1", "spine1:Ethernet1/1"},
		{"leaf1:Ethernet2/1", "host-a:eth1:10.0.0.1/24"},
		{"spine1:Ethernet2/1", "host-b:eth1:10.0.1.1/24"},
	})
	leaf, _ := g.Registry.Lookup("leaf1")

	first, err := Expand(leaf)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	second, err := Expand(leaf)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("Expand() not idempotent:\n%+v\n%+v", first, second)
	}

	if err := ExpandAll(g); err != nil {
		t.Fatalf("ExpandAll() error = %v", err)
	}
	if err := ExpandAll(g); err != nil {
		t.Fatalf("ExpandAll() second run error = %v", err)
	}
	if !reflect.DeepEqual(leaf.ExpandedLinks, first) {
		t.Fatalf("ExpandedLinks after two runs = %+v, want %+v", leaf.ExpandedLinks, first)
	}
}

func TestExpand_SanitizesInterfaces(t *testing.T) {
	g := mustBuild(t, [][]string{{"leaf1:Ethernet1/1", "spine1:Ethernet2/3"}})
	leaf, _ := g.Registry.Lookup("leaf1")
	links, err := Expand(leaf)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	want := LinkDescriptor{UID: 0, LocalIntf: "eth1_1", PeerIntf: "eth2_3", PeerPod: "spine1"}
	if len(links) != 1 || links[0] != want {
		t.Fatalf("Expand() = %+v, want [%+v]", links, want)
	}
}

func TestExpand_SelfLoopOnDistinctInterfaces(t *testing.T) {
	g := mustBuild(t, [][]string{{"leaf1:eth1", "leaf1:eth2"}})
	leaf, _ := g.Registry.Lookup("leaf1")
	links, err := Expand(leaf)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if len(links) != 2 || links[0].PeerIntf != "eth2" || links[1].PeerIntf != "eth1" {
		t.Fatalf("Expand() = %+v", links)
	}
}

func TestExpand_AmbiguousPeer(t *testing.T) {
	d := newDevice("leaf1", KindCEOS, "")
	ep := Endpoint{Device: "leaf1", Interface: "eth1"}
	link := &Link{Index: 4, Endpoints: []Endpoint{ep, ep}}
	d.Interfaces["eth1"] = link

	if _, err := Expand(d); !errors.Is(err, ErrAmbiguousPeer) {
		t.Fatalf("Expand() error = %v, want ErrAmbiguousPeer", err)
	}
}

func TestExpandAll_FailSoft(t *testing.T) {
	g, _ := Build([][]string{
		{"a:e1", "b:e1"},
		{"a:e1", "c:e1"},
	}, BuildOptions{})

	err := ExpandAll(g)
	if !errors.Is(err, ErrIncompleteLink) {
		t.Fatalf("ExpandAll() error = %v, want ErrIncompleteLink", err)
	}
	a, _ := g.Registry.Lookup("a")
	c, _ := g.Registry.Lookup("c")
	if len(a.ExpandedLinks) != 1 {
		t.Fatalf("a expanded = %d, want 1", len(a.ExpandedLinks))
	}
	if c.ExpandedLinks != nil {
		t.Fatalf("c expanded = %+v, want nil", c.ExpandedLinks)
	}
}
