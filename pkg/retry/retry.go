// Package retry waits for an eventually-consistent fact with a fixed attempt
// budget and a constant delay between attempts.
package retry

import (
	"context"
	"errors"
	"time"

	"k8s.io/utils/clock"
)

// ErrExhausted is returned when every attempt ran without the condition
// reporting done.
var ErrExhausted = errors.New("retry: attempts exhausted")

// Policy bounds a Poll. The zero Clock means the real clock.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	// DelayFirst waits Delay before the first attempt as well.
	DelayFirst bool
	Clock      clock.Clock
}

// Condition is evaluated once per attempt. attempt starts at 1. Returning a
// non-nil error stops polling immediately and the error is returned as is.
type Condition func(ctx context.Context, attempt int) (done bool, err error)

// Poll runs cond until it reports done, returns an error, the context is
// cancelled, or MaxAttempts is reached. It returns the number of attempts
// made alongside ErrExhausted, the context error, or cond's error.
func Poll(ctx context.Context, p Policy, cond Condition) (int, error) {
	if cond == nil {
		return 0, errors.New("retry: nil condition")
	}
	if p.MaxAttempts <= 0 {
		return 0, errors.New("retry: max attempts must be positive")
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if attempt > 1 || p.DelayFirst {
			if err := wait(ctx, clk, p.Delay); err != nil {
				return attempt - 1, err
			}
		}

		done, err := cond(ctx, attempt)
		if err != nil {
			return attempt, err
		}
		if done {
			return attempt, nil
		}
	}
	return p.MaxAttempts, ErrExhausted
}

func wait(ctx context.Context, clk clock.Clock, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-clk.After(d):
		return nil
	}
}
