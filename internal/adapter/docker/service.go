package docker

import (
	"context"
	"fmt"
	"maps"
	"strconv"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"

	"meshtopo/internal/cluster"
)

// CreateService starts a socat proxy publishing spec.External on the host
// and forwarding to spec.Internal on the workload's management address.
func (b *Backend) CreateService(ctx context.Context, spec cluster.ServiceSpec) error {
	ref := spec.Ref()
	name := serviceContainerName(ref)
	network, err := b.ensureNetwork(ctx, ref.Namespace)
	if err != nil {
		return err
	}
	if _, _, err := b.ensureImage(ctx, b.socatImage); err != nil {
		return err
	}

	port := nat.Port(strconv.Itoa(spec.Internal) + "/tcp")
	labels := maps.Clone(spec.Labels)
	if labels == nil {
		labels = make(map[string]string)
	}
	labels[labelNamespace] = ref.Namespace
	labels[labelName] = ref.Name
	labels[labelRole] = roleService

	cc := &container.Config{
		Image: b.socatImage,
		Cmd: []string{
			fmt.Sprintf("TCP-LISTEN:%d,fork,reuseaddr", spec.Internal),
			fmt.Sprintf("TCP:%s:%d", spec.Workload, spec.Internal),
		},
		ExposedPorts: nat.PortSet{port: struct{}{}},
		Labels:       labels,
	}
	hc := &container.HostConfig{
		NetworkMode:   container.NetworkMode(network),
		RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyUnlessStopped},
		PortBindings: nat.PortMap{
			port: []nat.PortBinding{{HostPort: strconv.Itoa(spec.External)}},
		},
	}

	if _, err := b.cli.ContainerCreate(ctx, cc, hc, nil, nil, name); err != nil {
		if errdefs.IsConflict(err) {
			return fmt.Errorf("service %s: %w", ref, cluster.ErrAlreadyExists)
		}
		return fmt.Errorf("create service container %q: %w", name, err)
	}
	if err := b.cli.ContainerStart(ctx, name, container.StartOptions{}); err != nil {
		return fmt.Errorf("start service container %q: %w", name, err)
	}
	return nil
}

func (b *Backend) DeleteService(ctx context.Context, ref cluster.Ref) error {
	name := serviceContainerName(ref)
	if err := b.cli.ContainerRemove(ctx, name, container.RemoveOptions{Force: true}); err != nil {
		if errdefs.IsNotFound(err) {
			return fmt.Errorf("service %s: %w", ref, cluster.ErrNotFound)
		}
		return fmt.Errorf("remove service container %q: %w", name, err)
	}
	return nil
}
