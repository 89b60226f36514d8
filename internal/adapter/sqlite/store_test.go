package sqlite

import (
	"errors"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"meshtopo/internal/cluster"
	"meshtopo/internal/topology"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "state", "mesh.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_CreateGetDelete(t *testing.T) {
	ctx := t.Context()
	store := openTestStore(t)

	topo := cluster.MeshTopology{
		Namespace: "lab",
		Name:      "host-c",
		Labels:    map[string]string{"topo": "lab"},
		Links: []topology.LinkDescriptor{
			{UID: 1, LocalIntf: "eth1", LocalIP: "192.168.1.1/24", PeerIntf: "eth2", PeerPod: "a"},
		},
	}
	if err := store.CreateTopology(ctx, topo); err != nil {
		t.Fatalf("CreateTopology() error = %v", err)
	}
	if err := store.CreateTopology(ctx, topo); !errors.Is(err, cluster.ErrAlreadyExists) {
		t.Fatalf("second CreateTopology() error = %v, want ErrAlreadyExists", err)
	}

	got, err := store.GetTopology(ctx, topo.Ref())
	if err != nil {
		t.Fatalf("GetTopology() error = %v", err)
	}
	if len(got.Links) != 1 || got.Links[0] != topo.Links[0] {
		t.Errorf("GetTopology().Links = %+v, want %+v", got.Links, topo.Links)
	}
	if got.Labels["topo"] != "lab" {
		t.Errorf("GetTopology().Labels = %v", got.Labels)
	}

	if err := store.DeleteTopology(ctx, topo.Ref()); err != nil {
		t.Fatalf("DeleteTopology() error = %v", err)
	}
	if err := store.DeleteTopology(ctx, topo.Ref()); !errors.Is(err, cluster.ErrNotFound) {
		t.Fatalf("second DeleteTopology() error = %v, want ErrNotFound", err)
	}
	if _, err := store.GetTopology(ctx, topo.Ref()); !errors.Is(err, cluster.ErrNotFound) {
		t.Fatalf("GetTopology() after delete error = %v, want ErrNotFound", err)
	}
}

func TestStore_ListByNamespace(t *testing.T) {
	ctx := t.Context()
	store := openTestStore(t)

	for _, mt := range []cluster.MeshTopology{
		{Namespace: "lab", Name: "b"},
		{Namespace: "lab", Name: "a"},
		{Namespace: "other", Name: "a"},
	} {
		if err := store.CreateTopology(ctx, mt); err != nil {
			t.Fatalf("CreateTopology(%s) error = %v", mt.Ref(), err)
		}
	}

	got, err := store.ListTopologies(ctx, "lab")
	if err != nil {
		t.Fatalf("ListTopologies() error = %v", err)
	}
	if len(got) != 2 || got[0].Name != "a" || got[1].Name != "b" {
		t.Fatalf("ListTopologies() = %+v", got)
	}
	if got[0].Links == nil {
		t.Error("ListTopologies() links = nil, want empty list")
	}
}

func TestStore_PersistsAcrossOpen(t *testing.T) {
	ctx := t.Context()
	path := filepath.Join(t.TempDir(), "mesh.db")
	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.CreateTopology(ctx, cluster.MeshTopology{Namespace: "lab", Name: "a"}); err != nil {
		t.Fatal(err)
	}
	store.Close()

	store, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if _, err := store.GetTopology(ctx, cluster.Ref{Namespace: "lab", Name: "a"}); err != nil {
		t.Fatalf("GetTopology() after reopen error = %v", err)
	}
}

func TestStore_Runs(t *testing.T) {
	ctx := t.Context()
	store := openTestStore(t)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for i, action := range []string{"create", "eif", "destroy"} {
		r := cluster.Run{ID: action, Action: action, Namespace: "lab", Prefix: "lab", Succeeded: 3, Failed: i, At: base.Add(time.Duration(i) * time.Minute)}
		if err := store.RecordRun(ctx, r); err != nil {
			t.Fatalf("RecordRun(%s) error = %v", action, err)
		}
	}
	if err := store.RecordRun(ctx, cluster.Run{ID: "x", Action: "create", Namespace: "lab", Prefix: "other", At: base}); err != nil {
		t.Fatal(err)
	}

	runs, err := store.RecentRuns(ctx, "lab", "lab", 2)
	if err != nil {
		t.Fatalf("RecentRuns() error = %v", err)
	}
	if len(runs) != 2 || runs[0].Action != "destroy" || runs[1].Action != "eif" {
		t.Fatalf("RecentRuns() = %+v", runs)
	}
	if runs[0].Failed != 2 || !runs[0].At.Equal(base.Add(2*time.Minute)) {
		t.Fatalf("RecentRuns()[0] = %+v", runs[0])
	}
}

func TestStore_RunsOrderWithinSecond(t *testing.T) {
	ctx := t.Context()
	store := openTestStore(t)
	whole := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for _, r := range []cluster.Run{
		{ID: "whole", Action: "create", Namespace: "lab", Prefix: "lab", At: whole},
		{ID: "later", Action: "eif", Namespace: "lab", Prefix: "lab", At: whole.Add(100 * time.Millisecond)},
		{ID: "earlier", Action: "lldp", Namespace: "lab", Prefix: "lab", At: whole.Add(-900 * time.Millisecond)},
	} {
		if err := store.RecordRun(ctx, r); err != nil {
			t.Fatalf("RecordRun(%s) error = %v", r.ID, err)
		}
	}

	runs, err := store.RecentRuns(ctx, "lab", "lab", 3)
	if err != nil {
		t.Fatalf("RecentRuns() error = %v", err)
	}
	var ids []string
	for _, r := range runs {
		ids = append(ids, r.ID)
	}
	if want := []string{"later", "whole", "earlier"}; !slices.Equal(ids, want) {
		t.Fatalf("RecentRuns() order = %v, want %v", ids, want)
	}
	if !runs[1].At.Equal(whole) {
		t.Fatalf("RecentRuns()[1].At = %v, want %v", runs[1].At, whole)
	}
}
