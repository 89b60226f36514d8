package lab

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// PollOutcome is the result of a bounded readiness wait.
type PollOutcome int

const (
	PollReady PollOutcome = iota
	PollTimeout
)

func (o PollOutcome) String() string {
	if o == PollReady {
		return "ready"
	}
	return "timeout"
}

// PollPolicy bounds a readiness wait: at most MaxAttempts checks spaced
// Interval apart.
type PollPolicy struct {
	MaxAttempts int
	Interval    time.Duration
}

func DefaultPollPolicy() PollPolicy {
	return PollPolicy{MaxAttempts: 60, Interval: time.Second}
}

var errNotReady = errors.New("not ready")

// Wait evaluates ready until it returns true or the attempts run out. On
// timeout the returned error carries the last reason the check failed.
func (p PollPolicy) Wait(ctx context.Context, ready func(context.Context) (bool, error)) (PollOutcome, error) {
	attempts := max(p.MaxAttempts, 1)
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Interval), uint64(attempts-1)),
		ctx,
	)
	err := backoff.Retry(func() error {
		ok, err := ready(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return errNotReady
		}
		return nil
	}, b)
	if err != nil {
		return PollTimeout, err
	}
	return PollReady, nil
}
