package lab

import (
	"context"

	"meshtopo/internal/export"
)

// ExportGraph writes the vis-network document of the topology next to the
// topology file and returns its path.
func (d *Driver) ExportGraph(ctx context.Context) (string, error) {
	r, err := d.begin(ctx, ActionGraph, "export")
	if err != nil {
		return "", err
	}
	path := d.settings.GraphPath()
	err = r.step("export", func(context.Context) (*BatchResult, error) {
		return nil, export.Write(path, d.graph)
	})
	if _, err := r.end(ctx, err); err != nil {
		return "", err
	}
	r.log.Info("exported graph", "path", path)
	return path, nil
}
