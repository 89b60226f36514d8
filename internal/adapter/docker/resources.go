package docker

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/dustin/go-humanize"

	"meshtopo/internal/topology"
)

// cpuShareUnit is the CPU share weight of one full core.
const cpuShareUnit = 1024

// containerResources maps request/limit hints onto engine resources.
// Requests become soft reservations and limits hard caps.
func containerResources(r topology.Resources) (container.Resources, error) {
	var out container.Resources
	if r.CPURequest != "" {
		cores, err := parseCPU(r.CPURequest)
		if err != nil {
			return out, fmt.Errorf("cpu request: %w", err)
		}
		out.CPUShares = int64(cores * cpuShareUnit)
	}
	if r.CPULimit != "" {
		cores, err := parseCPU(r.CPULimit)
		if err != nil {
			return out, fmt.Errorf("cpu limit: %w", err)
		}
		out.NanoCPUs = int64(cores * 1e9)
	}
	if r.MemoryRequest != "" {
		n, err := parseMemory(r.MemoryRequest)
		if err != nil {
			return out, fmt.Errorf("memory request: %w", err)
		}
		out.MemoryReservation = n
	}
	if r.MemoryLimit != "" {
		n, err := parseMemory(r.MemoryLimit)
		if err != nil {
			return out, fmt.Errorf("memory limit: %w", err)
		}
		out.Memory = n
	}
	return out, nil
}

// parseCPU accepts cores ("0.5", "2") or millicores ("500m").
func parseCPU(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if milli, ok := strings.CutSuffix(s, "m"); ok {
		v, err := strconv.ParseFloat(milli, 64)
		if err != nil {
			return 0, fmt.Errorf("parse cpu %q: %w", s, err)
		}
		return v / 1000, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse cpu %q: %w", s, err)
	}
	return v, nil
}

// parseMemory accepts quantities such as "64Mi", "4Gi" or "512MB".
func parseMemory(s string) (int64, error) {
	n, err := humanize.ParseBytes(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse memory %q: %w", s, err)
	}
	return int64(n), nil
}
