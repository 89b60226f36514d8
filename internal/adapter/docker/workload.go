package docker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	dockernetwork "github.com/docker/docker/api/types/network"

	"meshtopo/internal/cluster"
)

func (b *Backend) CreateWorkload(ctx context.Context, spec cluster.WorkloadSpec) error {
	ref := spec.Ref()
	name := containerName(ref)
	if _, err := b.cli.ContainerInspect(ctx, name); err == nil {
		return fmt.Errorf("workload %s: %w", ref, cluster.ErrAlreadyExists)
	} else if !errdefs.IsNotFound(err) {
		return fmt.Errorf("inspect container %q: %w", name, err)
	}

	network, err := b.ensureNetwork(ctx, ref.Namespace)
	if err != nil {
		return err
	}
	imgEntrypoint, imgCmd, err := b.ensureImage(ctx, spec.Image)
	if err != nil {
		return err
	}
	resources, err := containerResources(spec.Resources)
	if err != nil {
		return fmt.Errorf("workload %s: %w", ref, err)
	}
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("marshal workload %s: %w", ref, err)
	}

	labels := maps.Clone(spec.Labels)
	if labels == nil {
		labels = make(map[string]string)
	}
	labels[labelNamespace] = ref.Namespace
	labels[labelName] = ref.Name
	labels[labelRole] = roleWorkload
	labels[labelSpec] = string(specJSON)
	for k, v := range spec.AntiAffinity {
		// A single engine has one host; the preference is kept for inspection.
		labels[labelAffinity] = k + "=" + v
	}

	ep, cmd := entrypoint(spec, imgEntrypoint, imgCmd)
	cc := &container.Config{
		Hostname:   ref.Name,
		Image:      spec.Image,
		Entrypoint: ep,
		Cmd:        cmd,
		Env:        spec.Env,
		Labels:     labels,
	}
	hc := &container.HostConfig{
		NetworkMode:   container.NetworkMode(network),
		Privileged:    spec.Privileged,
		Resources:     resources,
		RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyUnlessStopped},
	}
	if spec.Config != nil {
		hc.Mounts = append(hc.Mounts, mount.Mount{
			Type:   mount.TypeBind,
			Source: b.configDir(cluster.Ref{Namespace: ref.Namespace, Name: spec.Config.Object}),
			Target: spec.Config.Path,
		})
	}
	nc := &dockernetwork.NetworkingConfig{
		EndpointsConfig: map[string]*dockernetwork.EndpointSettings{
			network: {Aliases: []string{ref.Name}},
		},
	}

	if _, err := b.cli.ContainerCreate(ctx, cc, hc, nc, nil, name); err != nil {
		if errdefs.IsConflict(err) {
			return fmt.Errorf("workload %s: %w", ref, cluster.ErrAlreadyExists)
		}
		return fmt.Errorf("create container %q: %w", name, err)
	}
	if err := b.cli.ContainerStart(ctx, name, container.StartOptions{}); err != nil {
		return fmt.Errorf("start container %q: %w", name, err)
	}
	b.log.Debug("created workload", "workload", ref.String(), "image", spec.Image)
	return nil
}

func (b *Backend) DeleteWorkload(ctx context.Context, ref cluster.Ref) error {
	name := containerName(ref)
	if err := b.cli.ContainerRemove(ctx, name, container.RemoveOptions{Force: true, RemoveVolumes: true}); err != nil {
		if errdefs.IsNotFound(err) {
			return fmt.Errorf("workload %s: %w", ref, cluster.ErrNotFound)
		}
		return fmt.Errorf("remove container %q: %w", name, err)
	}
	return nil
}

func (b *Backend) GetWorkload(ctx context.Context, ref cluster.Ref) (cluster.WorkloadSpec, error) {
	info, err := b.inspectWorkload(ctx, ref)
	if err != nil {
		return cluster.WorkloadSpec{}, err
	}
	var spec cluster.WorkloadSpec
	if info.Config == nil || info.Config.Labels[labelSpec] == "" {
		return cluster.WorkloadSpec{}, fmt.Errorf("workload %s: container has no spec label", ref)
	}
	if err := json.Unmarshal([]byte(info.Config.Labels[labelSpec]), &spec); err != nil {
		return cluster.WorkloadSpec{}, fmt.Errorf("decode workload %s: %w", ref, err)
	}
	return spec, nil
}

func (b *Backend) WorkloadStatus(ctx context.Context, ref cluster.Ref) (cluster.WorkloadStatus, error) {
	info, err := b.inspectWorkload(ctx, ref)
	if err != nil {
		return cluster.WorkloadStatus{}, err
	}
	return cluster.WorkloadStatus{Phase: phaseOf(info.State)}, nil
}

func (b *Backend) WorkloadPID(ctx context.Context, ref cluster.Ref) (int, error) {
	info, err := b.inspectWorkload(ctx, ref)
	if err != nil {
		return 0, err
	}
	if info.State == nil || !info.State.Running || info.State.Pid <= 0 {
		return 0, fmt.Errorf("workload %s is not running", ref)
	}
	return info.State.Pid, nil
}

func (b *Backend) inspectWorkload(ctx context.Context, ref cluster.Ref) (container.InspectResponse, error) {
	name := containerName(ref)
	info, err := b.cli.ContainerInspect(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return container.InspectResponse{}, fmt.Errorf("workload %s: %w", ref, cluster.ErrNotFound)
		}
		return container.InspectResponse{}, fmt.Errorf("inspect container %q: %w", name, err)
	}
	return info, nil
}

func phaseOf(state *container.State) cluster.Phase {
	if state == nil {
		return cluster.PhaseUnknown
	}
	switch {
	case state.Running && !state.Restarting:
		return cluster.PhaseRunning
	case state.Status == "created" || state.Restarting:
		return cluster.PhasePending
	case state.Status == "exited" || state.Status == "dead" || state.OOMKilled:
		return cluster.PhaseFailed
	default:
		return cluster.PhaseUnknown
	}
}

// ensureImage pulls img when it is not present locally and returns its
// default entrypoint and cmd.
func (b *Backend) ensureImage(ctx context.Context, img string) ([]string, []string, error) {
	info, err := b.cli.ImageInspect(ctx, img)
	if err != nil {
		if !errdefs.IsNotFound(err) {
			return nil, nil, fmt.Errorf("inspect image %q: %w", img, err)
		}
		b.log.Info("pulling image", "image", img)
		pull, err := b.cli.ImagePull(ctx, img, image.PullOptions{})
		if err != nil {
			return nil, nil, fmt.Errorf("pull image %q: %w", img, err)
		}
		_, _ = io.Copy(io.Discard, pull)
		_ = pull.Close()
		if info, err = b.cli.ImageInspect(ctx, img); err != nil {
			return nil, nil, fmt.Errorf("inspect image %q: %w", img, err)
		}
	}
	if info.Config == nil {
		return nil, nil, nil
	}
	return append([]string(nil), info.Config.Entrypoint...), append([]string(nil), info.Config.Cmd...), nil
}
