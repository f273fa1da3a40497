package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go"

	"fastchannels/internal/services"
)

// RetryPolicy bounds the backoff applied to throttled remote calls.
type RetryPolicy struct {
	Attempts     uint
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// OnRetry observes each retried failure.
	OnRetry func(attempt uint, err error)
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 4, InitialDelay: 200 * time.Millisecond, MaxDelay: 5 * time.Second}
}

// Retryable reports whether err is worth another attempt inside one invocation.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return IsKind(err, KindThrottled) || errors.Is(err, services.ErrTransient)
}

// Do runs op with exponential backoff for throttling and transient failures.
// Every other error returns immediately. Exhausted retries surface as
// services.ErrTransient so the event is redelivered later.
func (p RetryPolicy) Do(ctx context.Context, operation string, op func(context.Context) error) error {
	attempts := p.Attempts
	if attempts == 0 {
		attempts = 1
	}
	var attempted uint
	err := retry.Do(
		func() error {
			attempted++
			return op(ctx)
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(p.InitialDelay),
		retry.MaxDelay(p.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(Retryable),
		retry.OnRetry(func(n uint, err error) {
			if p.OnRetry != nil {
				p.OnRetry(n+1, err)
			}
		}),
	)
	if err == nil {
		return nil
	}
	if Retryable(err) && attempted >= attempts {
		if errors.Is(err, services.ErrTransient) {
			return err
		}
		return services.Wrap(services.ErrTransient, "", operation, "retries exhausted", err)
	}
	return err
}
