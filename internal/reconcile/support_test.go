package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"fastchannels/internal/services"
)

func TestKindOf(t *testing.T) {
	conflict := NewConflict(KindThrottled, "vod_source/movie", "rate exceeded", nil)
	wrapped := fmt.Errorf("create: %w", conflict)

	if got := KindOf(wrapped); got != KindThrottled {
		t.Fatalf("KindOf = %v", got)
	}
	if got := KindOf(errors.New("plain")); got != KindOther {
		t.Fatalf("KindOf(plain) = %v", got)
	}
	if IsKind(nil, KindOther) {
		t.Fatal("nil must not match any kind")
	}
	if conflict.Error() != "vod_source/movie throttled: rate exceeded" {
		t.Fatalf("unexpected message %q", conflict.Error())
	}
}

func TestJitterBounds(t *testing.T) {
	j := NewJitter(10*time.Millisecond, 20*time.Millisecond)
	for i := 0; i < 200; i++ {
		if d := j.Next(); d < 10*time.Millisecond || d > 20*time.Millisecond {
			t.Fatalf("delay %s outside window", d)
		}
	}
	if d := (Jitter{}).Next(); d != 0 {
		t.Fatalf("zero jitter should not delay, got %s", d)
	}
	if d := NewJitter(time.Second, 0).Next(); d != time.Second {
		t.Fatalf("inverted bounds should collapse to min, got %s", d)
	}
}

func TestSleepHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if err := Sleep(context.Background(), 0); err != nil {
		t.Fatalf("zero sleep returned %v", err)
	}
}

func TestRetryPolicyDo(t *testing.T) {
	policy := RetryPolicy{Attempts: 3}

	calls := 0
	err := policy.Do(context.Background(), "op", func(context.Context) error {
		calls++
		if calls < 2 {
			return services.Wrap(services.ErrTransient, "", "op", "network", nil)
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Fatalf("expected success after retry, err=%v calls=%d", err, calls)
	}

	calls = 0
	fatalErr := NewConflict(KindOther, "x", "bad role", nil)
	err = policy.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return fatalErr
	})
	if !errors.Is(err, fatalErr) || calls != 1 {
		t.Fatalf("expected immediate fatal return, err=%v calls=%d", err, calls)
	}

	var observed []uint
	policy.OnRetry = func(attempt uint, _ error) { observed = append(observed, attempt) }
	err = policy.Do(context.Background(), "op", func(context.Context) error {
		return NewConflict(KindThrottled, "x", "slow down", nil)
	})
	if !services.Retryable(err) {
		t.Fatalf("exhausted throttling should be transient, got %v", err)
	}
	if len(observed) == 0 {
		t.Fatal("expected retry observations")
	}
}

func TestKeyedMutexCancelledWait(t *testing.T) {
	locks := NewKeyedMutex()
	unlock, err := locks.Lock(context.Background(), "a")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := locks.Lock(ctx, "a"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}

	other, err := locks.Lock(context.Background(), "b")
	if err != nil {
		t.Fatalf("independent key blocked: %v", err)
	}
	other()
	unlock()
	unlock()
	if locks.Len() != 0 {
		t.Fatalf("expected all keys released, %d remain", locks.Len())
	}
}
