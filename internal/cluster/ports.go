// Package cluster defines the control-plane boundary that device workloads,
// services, config objects and mesh topology resources are managed through.
package cluster

import (
	"context"
	"errors"
)

var (
	ErrAlreadyExists = errors.New("already exists")
	ErrNotFound      = errors.New("not found")
)

// Workloads manages device workloads.
type Workloads interface {
	// CreateWorkload returns ErrAlreadyExists when a same-named workload is present.
	CreateWorkload(ctx context.Context, spec WorkloadSpec) error
	// DeleteWorkload returns ErrNotFound when the workload is absent.
	DeleteWorkload(ctx context.Context, ref Ref) error
	GetWorkload(ctx context.Context, ref Ref) (WorkloadSpec, error)
	WorkloadStatus(ctx context.Context, ref Ref) (WorkloadStatus, error)
}

// Services manages externally published ports.
type Services interface {
	CreateService(ctx context.Context, spec ServiceSpec) error
	DeleteService(ctx context.Context, ref Ref) error
}

// ConfigObjects manages device configuration content.
type ConfigObjects interface {
	CreateConfig(ctx context.Context, obj ConfigObject) error
	DeleteConfig(ctx context.Context, ref Ref) error
}

// MeshTopologies manages mesh topology resources.
type MeshTopologies interface {
	CreateTopology(ctx context.Context, topo MeshTopology) error
	DeleteTopology(ctx context.Context, ref Ref) error
	GetTopology(ctx context.Context, ref Ref) (MeshTopology, error)
	ListTopologies(ctx context.Context, namespace string) ([]MeshTopology, error)
}

// Executor runs a command inside a running workload and returns its stdout.
type Executor interface {
	Exec(ctx context.Context, ref Ref, cmd ...string) ([]byte, error)
}

// RunLog records driver actions.
type RunLog interface {
	RecordRun(ctx context.Context, run Run) error
	// RecentRuns returns up to limit runs of one topology, newest first.
	RecentRuns(ctx context.Context, namespace, prefix string, limit int) ([]Run, error)
}

// Cluster is the full control-plane surface used by the lab driver.
type Cluster interface {
	Workloads
	Services
	ConfigObjects
	Executor
}

// Created folds a create result into whether state changed. An existing
// object is a no-op, not a failure.
func Created(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrAlreadyExists):
		return false, nil
	default:
		return false, err
	}
}

// Deleted folds a delete result into whether state changed. A missing
// object is a no-op, not a failure.
func Deleted(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}
