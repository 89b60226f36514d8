package docker

import (
	"context"
	"fmt"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	dockernetwork "github.com/docker/docker/api/types/network"
)

func networkName(namespace string) string {
	return "meshtopo-" + namespace
}

// ensureNetwork creates the namespace's management bridge if missing.
func (b *Backend) ensureNetwork(ctx context.Context, namespace string) (string, error) {
	name := networkName(namespace)
	if _, err := b.cli.NetworkInspect(ctx, name, dockernetwork.InspectOptions{}); err == nil {
		return name, nil
	} else if !errdefs.IsNotFound(err) {
		return "", fmt.Errorf("inspect docker network %q: %w", name, err)
	}

	_, err := b.cli.NetworkCreate(ctx, name, dockernetwork.CreateOptions{
		Driver: "bridge",
		Scope:  "local",
		Labels: map[string]string{labelNamespace: namespace},
	})
	if err != nil && !errdefs.IsConflict(err) {
		return "", fmt.Errorf("create docker network %q: %w", name, err)
	}
	b.log.Debug("created management network", "network", name)
	return name, nil
}

// CleanupNetwork removes the namespace's management bridge once no meshtopo
// container is attached to it.
func (b *Backend) CleanupNetwork(ctx context.Context, namespace string) error {
	name := networkName(namespace)
	args := filters.NewArgs(
		filters.Arg("label", labelNamespace+"="+namespace),
		filters.Arg("network", name),
	)
	remaining, err := b.cli.ContainerList(ctx, container.ListOptions{All: true, Filters: args})
	if err != nil {
		return fmt.Errorf("list containers on %q: %w", name, err)
	}
	if len(remaining) > 0 {
		b.log.Debug("management network still in use", "network", name, "containers", len(remaining))
		return nil
	}
	if err := b.cli.NetworkRemove(ctx, name); err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("remove docker network %q: %w", name, err)
	}
	return nil
}
