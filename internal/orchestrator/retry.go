package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
)

// RetryPolicy is the attempt ceiling, linear backoff and per-attempt timeout
// shared by every collaborator call.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
	Timeout  time.Duration
	Timer    retry.Timer
	Logger   *slog.Logger
}

// Policy returns the retry policy derived from the orchestrator config.
func (o *Orchestrator) Policy() RetryPolicy {
	return RetryPolicy{
		Attempts: o.cfg.MaxRetries,
		Backoff:  o.cfg.Backoff,
		Timeout:  o.cfg.CallTimeout,
		Timer:    o.cfg.Timer,
		Logger:   o.logger,
	}
}

// ErrAttemptTimeout marks an attempt that ran past its per-call timeout.
var ErrAttemptTimeout = errors.New("attempt timed out")

// Do runs fn until it succeeds or the policy's attempt ceiling is reached.
// Attempt n (1-based) that fails is followed by an n*Backoff wait, except
// after the last attempt. Each attempt gets its own timeout; a timeout
// counts as a failed attempt. Errors wrapped with retry.Unrecoverable stop
// immediately. The returned error is the last attempt's error.
func Do[T any](ctx context.Context, p RetryPolicy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	if p.Attempts <= 0 {
		p.Attempts = DefaultMaxRetries
	}
	if p.Backoff <= 0 {
		p.Backoff = DefaultBackoff
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultCallTimeout
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(uint(p.Attempts)),
		retry.Delay(p.Backoff),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			return time.Duration(n) * p.Backoff
		}),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return retry.IsRecoverable(err) && ctx.Err() == nil
		}),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("collaborator call failed",
				"op", op,
				"attempt", n+1,
				"max", p.Attempts,
				"error", err)
		}),
	}
	if p.Timer != nil {
		opts = append(opts, retry.WithTimer(p.Timer))
	}

	return retry.DoWithData(func() (T, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, p.Timeout)
		defer cancel()

		v, err := fn(attemptCtx)
		if err == nil {
			return v, nil
		}
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return v, fmt.Errorf("%s: %w after %s: %w", op, ErrAttemptTimeout, p.Timeout, err)
		}
		return v, err
	}, opts...)
}
