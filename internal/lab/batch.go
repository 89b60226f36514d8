package lab

import (
	"log/slog"
	"strings"
)

// Failure is one failed batch item.
type Failure struct {
	Item string
	Err  error
}

// BatchResult aggregates one bulk operation. Every item is attempted.
type BatchResult struct {
	Op        string
	Succeeded []string
	Failed    []Failure
}

func newBatch(op string) *BatchResult {
	return &BatchResult{Op: op}
}

func (b *BatchResult) record(item string, err error) {
	if err != nil {
		b.Failed = append(b.Failed, Failure{Item: item, Err: err})
		return
	}
	b.Succeeded = append(b.Succeeded, item)
}

// OK reports whether every item succeeded.
func (b *BatchResult) OK() bool { return len(b.Failed) == 0 }

func (b *BatchResult) Total() int { return len(b.Succeeded) + len(b.Failed) }

// FailedItems returns the names of the failed items.
func (b *BatchResult) FailedItems() []string {
	out := make([]string, 0, len(b.Failed))
	for _, f := range b.Failed {
		out = append(out, f.Item)
	}
	return out
}

// Log writes the summary line of the batch and one line per failure.
func (b *BatchResult) Log(log *slog.Logger) {
	if b.OK() {
		log.Info("all "+b.Op+" succeeded", "count", len(b.Succeeded))
		return
	}
	for _, f := range b.Failed {
		log.Warn(b.Op+" failed", "item", f.Item, "err", f.Err)
	}
	log.Warn(b.Op+" partially failed",
		"succeeded", len(b.Succeeded),
		"failed", strings.Join(b.FailedItems(), ","))
}
