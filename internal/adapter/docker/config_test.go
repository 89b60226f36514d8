package docker

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"meshtopo/internal/cluster"
)

func TestConfigObjects(t *testing.T) {
	ctx := t.Context()
	b := &Backend{stateDir: t.TempDir()}
	obj := cluster.ConfigObject{Namespace: "lab", Name: "leaf1", File: "startup-config", Data: []byte("hostname leaf1\n")}

	if err := b.CreateConfig(ctx, obj); err != nil {
		t.Fatalf("CreateConfig() error = %v", err)
	}
	if err := b.CreateConfig(ctx, obj); !errors.Is(err, cluster.ErrAlreadyExists) {
		t.Fatalf("second CreateConfig() error = %v, want ErrAlreadyExists", err)
	}
	data, err := os.ReadFile(filepath.Join(b.configDir(obj.Ref()), "startup-config"))
	if err != nil || string(data) != "hostname leaf1\n" {
		t.Fatalf("config file = %q, %v", data, err)
	}

	if err := b.DeleteConfig(ctx, obj.Ref()); err != nil {
		t.Fatalf("DeleteConfig() error = %v", err)
	}
	if err := b.DeleteConfig(ctx, obj.Ref()); !errors.Is(err, cluster.ErrNotFound) {
		t.Fatalf("second DeleteConfig() error = %v, want ErrNotFound", err)
	}
}
