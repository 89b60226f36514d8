package mesh_test

import (
	"errors"
	"testing"

	"meshtopo/internal/adapter/fake"
	"meshtopo/internal/cluster"
	"meshtopo/internal/mesh"
	"meshtopo/internal/topology"
)

func seed(t *testing.T, c *fake.Cluster, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := c.CreateWorkload(t.Context(), cluster.WorkloadSpec{Namespace: "lab", Name: n}); err != nil {
			t.Fatal(err)
		}
	}
}

func TestAgent_PlanAndWire(t *testing.T) {
	ctx := t.Context()
	c := fake.NewCluster()
	linker := fake.NewLinker()
	seed(t, c, "a", "b")
	for _, mt := range []cluster.MeshTopology{
		{Namespace: "lab", Name: "a", Links: []topology.LinkDescriptor{{UID: 0, LocalIntf: "eth1", LocalIP: "10.0.0.1/30", PeerIntf: "eth1", PeerIP: "10.0.0.2/30", PeerPod: "b"}}},
		{Namespace: "lab", Name: "b", Links: []topology.LinkDescriptor{{UID: 0, LocalIntf: "eth1", LocalIP: "10.0.0.2/30", PeerIntf: "eth1", PeerIP: "10.0.0.1/30", PeerPod: "a"}}},
	} {
		if err := c.CreateTopology(ctx, mt); err != nil {
			t.Fatal(err)
		}
	}

	agent := mesh.NewAgent(c, c, mesh.WithLinker(linker))
	pairs, err := agent.Plan(ctx, "lab", nil)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("Plan() = %+v, want 1 pair", pairs)
	}

	wired, err := agent.Wire(ctx, "lab", pairs[0])
	if err != nil || !wired {
		t.Fatalf("Wire() = %v, %v; want true, nil", wired, err)
	}
	wired, err = agent.Wire(ctx, "lab", pairs[0])
	if err != nil || wired {
		t.Fatalf("second Wire() = %v, %v; want false, nil", wired, err)
	}
	if n := len(linker.Calls("CreateVeth")); n != 1 {
		t.Fatalf("CreateVeth calls = %d, want 1", n)
	}
}

func TestAgent_WireMissingWorkload(t *testing.T) {
	c := fake.NewCluster()
	seed(t, c, "a")
	agent := mesh.NewAgent(c, c, mesh.WithLinker(fake.NewLinker()))

	_, err := agent.Wire(t.Context(), "lab", mesh.VethPair{VNI: 2, A: mesh.End{Pod: "a", Intf: "eth1"}, B: mesh.End{Pod: "gone", Intf: "eth1"}})
	if !errors.Is(err, cluster.ErrNotFound) {
		t.Fatalf("Wire() error = %v, want ErrNotFound", err)
	}
}

func TestAgent_WireLinkerFailure(t *testing.T) {
	c := fake.NewCluster()
	seed(t, c, "a", "b")
	linker := fake.NewLinker()
	boom := errors.New("boom")
	linker.Faults.FailOnce(fake.PointCreateVeth, boom)
	agent := mesh.NewAgent(c, c, mesh.WithLinker(linker))

	pair := mesh.VethPair{VNI: 4, A: mesh.End{Pod: "a", Intf: "eth1"}, B: mesh.End{Pod: "b", Intf: "eth1"}}
	if _, err := agent.Wire(t.Context(), "lab", pair); !errors.Is(err, boom) {
		t.Fatalf("Wire() error = %v, want boom", err)
	}
	if len(linker.Pairs()) != 0 {
		t.Fatalf("Pairs() = %+v after failure", linker.Pairs())
	}
}

func TestAgent_PlanSelectsTopology(t *testing.T) {
	ctx := t.Context()
	c := fake.NewCluster()
	link := func(peer string) []topology.LinkDescriptor {
		return []topology.LinkDescriptor{{UID: 0, LocalIntf: "e1", PeerIntf: "e1", PeerPod: peer}}
	}
	for _, mt := range []cluster.MeshTopology{
		{Namespace: "default", Name: "x1", Labels: map[string]string{"topo": "lab1"}, Links: link("y1")},
		{Namespace: "default", Name: "y1", Labels: map[string]string{"topo": "lab1"}, Links: link("x1")},
		{Namespace: "default", Name: "x2", Labels: map[string]string{"topo": "lab2"}, Links: link("y2")},
		{Namespace: "default", Name: "y2", Labels: map[string]string{"topo": "lab2"}, Links: link("x2")},
	} {
		if err := c.CreateTopology(ctx, mt); err != nil {
			t.Fatal(err)
		}
	}
	agent := mesh.NewAgent(c, c, mesh.WithLinker(fake.NewLinker()))

	pairs, err := agent.Plan(ctx, "default", map[string]string{"topo": "lab2"})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	want := mesh.VethPair{VNI: 0, A: mesh.End{Pod: "x2", Intf: "e1"}, B: mesh.End{Pod: "y2", Intf: "e1"}}
	if len(pairs) != 1 || pairs[0] != want {
		t.Fatalf("Plan() = %+v, want [%+v]", pairs, want)
	}

	if _, err := agent.Plan(ctx, "default", nil); !errors.Is(err, mesh.ErrInconsistent) {
		t.Fatalf("unselected Plan() error = %v, want ErrInconsistent", err)
	}
}

func TestAgent_WireReplacesHalfWiredLink(t *testing.T) {
	ctx := t.Context()
	c := fake.NewCluster()
	seed(t, c, "a", "b")
	linker := fake.NewLinker()
	agent := mesh.NewAgent(c, c, mesh.WithLinker(linker))

	pidA, err := c.WorkloadPID(ctx, cluster.Ref{Namespace: "lab", Name: "a"})
	if err != nil {
		t.Fatal(err)
	}
	linker.PlaceEnd(pidA, "eth1")

	pair := mesh.VethPair{VNI: 0, A: mesh.End{Pod: "a", Intf: "eth1"}, B: mesh.End{Pod: "b", Intf: "eth1"}}
	wired, err := agent.Wire(ctx, "lab", pair)
	if err != nil || !wired {
		t.Fatalf("Wire() = %v, %v; want true, nil", wired, err)
	}
	if n := len(linker.Calls("DeleteLink")); n != 1 {
		t.Fatalf("DeleteLink calls = %d, want 1", n)
	}
	if got := linker.Pairs(); len(got) != 1 || got[0] != pair {
		t.Fatalf("Pairs() = %+v, want [%+v]", got, pair)
	}
}

func TestAgent_WireStaleEndRemovalFails(t *testing.T) {
	ctx := t.Context()
	c := fake.NewCluster()
	seed(t, c, "a", "b")
	linker := fake.NewLinker()
	boom := errors.New("boom")
	linker.Faults.FailOnce(fake.PointDeleteLink, boom)
	agent := mesh.NewAgent(c, c, mesh.WithLinker(linker))

	pidB, err := c.WorkloadPID(ctx, cluster.Ref{Namespace: "lab", Name: "b"})
	if err != nil {
		t.Fatal(err)
	}
	linker.PlaceEnd(pidB, "eth1")

	pair := mesh.VethPair{VNI: 0, A: mesh.End{Pod: "a", Intf: "eth1"}, B: mesh.End{Pod: "b", Intf: "eth1"}}
	if _, err := agent.Wire(ctx, "lab", pair); !errors.Is(err, boom) {
		t.Fatalf("Wire() error = %v, want boom", err)
	}
	if n := len(linker.Calls("CreateVeth")); n != 0 {
		t.Fatalf("CreateVeth calls = %d, want 0", n)
	}
}
