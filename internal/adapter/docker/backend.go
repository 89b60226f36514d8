// Package docker implements the cluster ports on a single Docker Engine.
//
// Workloads are containers named <namespace>-<name> attached to a per
// namespace management network. Config objects are files under the state
// directory bind-mounted into workloads. Services are socat proxy
// containers publishing one host port each.
package docker

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/docker/docker/client"

	"meshtopo/internal/cluster"
	"meshtopo/internal/mesh"
)

var (
	_ cluster.Cluster  = (*Backend)(nil)
	_ mesh.PIDResolver = (*Backend)(nil)
)

const (
	labelNamespace = "meshtopo.namespace"
	labelName      = "meshtopo.name"
	labelRole      = "meshtopo.role"
	labelSpec      = "meshtopo.spec"
	labelAffinity  = "meshtopo.anti-affinity"

	roleWorkload = "workload"
	roleService  = "service"
)

// Backend talks to the Docker Engine API.
type Backend struct {
	cli        client.APIClient
	stateDir   string
	socatImage string
	log        *slog.Logger
}

// New creates a Backend with a Docker client from the environment.
func New(stateDir, socatImage string) (*Backend, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return NewFromClient(cli, stateDir, socatImage), nil
}

// NewFromClient wraps an existing Docker client.
func NewFromClient(cli client.APIClient, stateDir, socatImage string) *Backend {
	return &Backend{
		cli:        cli,
		stateDir:   stateDir,
		socatImage: socatImage,
		log:        slog.With("component", "docker"),
	}
}

func (b *Backend) Close() error {
	return b.cli.Close()
}

// WaitReady blocks until the daemon answers a ping.
func (b *Backend) WaitReady(ctx context.Context) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	waiting := false
	for {
		_, err := b.cli.Ping(ctx)
		if err == nil {
			if waiting {
				b.log.Debug("daemon reachable")
			}
			return nil
		}
		if !client.IsErrConnectionFailed(err) {
			return fmt.Errorf("connect to docker daemon: %w", err)
		}
		if !waiting {
			waiting = true
			b.log.Debug("waiting for docker daemon")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func containerName(ref cluster.Ref) string {
	return ref.Namespace + "-" + ref.Name
}

// WorkloadName returns the container name of a workload.
func (b *Backend) WorkloadName(ref cluster.Ref) string { return containerName(ref) }

func serviceContainerName(ref cluster.Ref) string {
	return ref.Namespace + "-svc-" + ref.Name
}

func (b *Backend) configDir(ref cluster.Ref) string {
	return filepath.Join(b.stateDir, "configs", ref.Namespace, ref.Name)
}
