package docker

import (
	"bytes"
	"context"
	"fmt"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"

	"meshtopo/internal/cluster"
)

// Exec runs cmd inside the workload and returns its stdout. Stderr is kept
// for the error of a non-zero exit.
func (b *Backend) Exec(ctx context.Context, ref cluster.Ref, cmd ...string) ([]byte, error) {
	name := containerName(ref)
	resp, err := b.cli.ContainerExecCreate(ctx, name, container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil, fmt.Errorf("workload %s: %w", ref, cluster.ErrNotFound)
		}
		return nil, fmt.Errorf("create exec %v in %s: %w", cmd, ref, err)
	}

	attach, err := b.cli.ContainerExecAttach(ctx, resp.ID, container.ExecAttachOptions{})
	if err != nil {
		return nil, fmt.Errorf("attach exec %v in %s: %w", cmd, ref, err)
	}
	defer attach.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, attach.Reader); err != nil {
		return nil, fmt.Errorf("read exec output %v in %s: %w", cmd, ref, err)
	}

	info, err := b.cli.ContainerExecInspect(ctx, resp.ID)
	if err != nil {
		return nil, fmt.Errorf("inspect exec %v in %s: %w", cmd, ref, err)
	}
	if info.ExitCode != 0 {
		return nil, fmt.Errorf("exec %v in %s: exit code %d: %s", cmd, ref, info.ExitCode, bytes.TrimSpace(stderr.Bytes()))
	}
	return stdout.Bytes(), nil
}
