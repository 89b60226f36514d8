package fake

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"meshtopo/internal/cluster"
)

var _ cluster.RunLog = (*RunLog)(nil)

// RunLog keeps recorded runs in memory.
type RunLog struct {
	CallRecorder

	mu   sync.Mutex
	runs map[string]cluster.Run
}

func NewRunLog() *RunLog {
	return &RunLog{runs: make(map[string]cluster.Run)}
}

func (l *RunLog) RecordRun(_ context.Context, run cluster.Run) error {
	l.record("RecordRun", run.ID, run.Action)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs[run.ID] = run
	return nil
}

func (l *RunLog) RecentRuns(_ context.Context, namespace, prefix string, limit int) ([]cluster.Run, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []cluster.Run
	for _, r := range l.runs {
		if r.Namespace == namespace && r.Prefix == prefix {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b cluster.Run) int { return b.At.Compare(a.At) })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Runs returns every recorded run ordered by ID.
func (l *RunLog) Runs() []cluster.Run {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]cluster.Run, 0, len(l.runs))
	for _, r := range l.runs {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b cluster.Run) int { return cmp.Compare(a.ID, b.ID) })
	return out
}
