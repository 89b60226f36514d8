package docker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"meshtopo/internal/cluster"
)

// CreateConfig writes the object's file into its own directory under the
// state dir; workloads bind-mount that directory.
func (b *Backend) CreateConfig(_ context.Context, obj cluster.ConfigObject) error {
	dir := b.configDir(obj.Ref())
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("config %s: %w", obj.Ref(), cluster.ErrAlreadyExists)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config %s: %w", obj.Ref(), err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir %s: %w", dir, err)
	}
	file := obj.File
	if file == "" {
		file = obj.Name
	}
	if err := os.WriteFile(filepath.Join(dir, file), obj.Data, 0o644); err != nil {
		_ = os.RemoveAll(dir)
		return fmt.Errorf("write config %s: %w", obj.Ref(), err)
	}
	return nil
}

func (b *Backend) DeleteConfig(_ context.Context, ref cluster.Ref) error {
	dir := b.configDir(ref)
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config %s: %w", ref, cluster.ErrNotFound)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove config %s: %w", ref, err)
	}
	return nil
}
