package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fastchannels/internal/logging"
	"fastchannels/internal/services"
)

// Outcome describes how Ensure converged.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeMerged    Outcome = "merged"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeRecreated Outcome = "recreated"
)

// Store is a remote resource collection addressed by the key embedded in R.
// Implementations return *Conflict errors so the writer can pick a branch.
type Store[R any] interface {
	Create(ctx context.Context, desired R) (R, error)
	Read(ctx context.Context, desired R) (R, error)
	Update(ctx context.Context, merged R) (R, error)
}

// MergeFunc folds the caller's contribution into the current remote state.
// It reports whether the merged value differs from current.
type MergeFunc[R any] func(current, desired R) (R, bool)

// Observer receives reconciliation events, typically for metrics.
type Observer interface {
	Outcome(kind string, outcome Outcome)
	Conflict(kind string, conflict ConflictKind)
}

type nopObserver struct{}

func (nopObserver) Outcome(string, Outcome)       {}
func (nopObserver) Conflict(string, ConflictKind) {}

// Writer makes create-or-merge safe under duplicate and concurrent delivery.
//
// Create is attempted first. An AlreadyExists conflict triggers a jittered
// read-merge-update cycle. NotFound during read or update restarts the round
// with a create, as does AlreadyExists from a store whose update is a
// replace. Any other conflict is fatal.
type Writer[R any] struct {
	Kind      string
	Store     Store[R]
	Merge     MergeFunc[R]
	Key       func(R) string
	Jitter    Jitter
	Retry     RetryPolicy
	MaxRounds int
	// Present, when set, re-reads after an update, and again one jitter
	// window later, restarting the round if the caller's contribution was
	// overwritten by a concurrent writer.
	Present func(current, desired R) bool
	// Locks serializes same-key writers inside one process.
	Locks    *KeyedMutex
	Logger   *slog.Logger
	Observer Observer
}

// Ensure converges the remote resource to include desired.
func (w *Writer[R]) Ensure(ctx context.Context, desired R) (R, Outcome, error) {
	var zero R
	key := w.Key(desired)
	ctx = services.WithResourceKey(ctx, key)
	logger := logging.WithContext(ctx, w.logger())
	observer := w.observer()

	if w.Locks != nil {
		unlock, err := w.Locks.Lock(ctx, w.Kind+"/"+key)
		if err != nil {
			return zero, "", err
		}
		defer unlock()
	}

	rounds := w.MaxRounds
	if rounds <= 0 {
		rounds = 1
	}
	for round := 1; round <= rounds; round++ {
		created, err := w.create(ctx, desired)
		if err == nil {
			logger.Info("resource created",
				logging.String(logging.FieldEventType, "resource_created"),
				logging.String("resource_kind", w.Kind),
				logging.Int("round", round),
			)
			observer.Outcome(w.Kind, OutcomeCreated)
			return created, OutcomeCreated, nil
		}
		if !IsKind(err, KindAlreadyExists) {
			return zero, "", w.fatal("create", key, err)
		}
		observer.Conflict(w.Kind, KindAlreadyExists)

		delay, err := w.Jitter.Wait(ctx)
		if err != nil {
			return zero, "", err
		}
		logger.Debug("resource exists, merging",
			logging.String("resource_kind", w.Kind),
			logging.Duration("jitter", delay),
			logging.Int("round", round),
		)

		current, err := w.read(ctx, desired)
		if IsKind(err, KindNotFound) {
			observer.Conflict(w.Kind, KindNotFound)
			continue
		}
		if err != nil {
			return zero, "", w.fatal("read", key, err)
		}

		merged, changed := w.Merge(current, desired)
		if !changed {
			logger.Info("resource already converged",
				logging.String(logging.FieldEventType, "resource_unchanged"),
				logging.String("resource_kind", w.Kind),
			)
			observer.Outcome(w.Kind, OutcomeUnchanged)
			return current, OutcomeUnchanged, nil
		}

		updated, err := w.update(ctx, merged)
		if IsKind(err, KindNotFound) || IsKind(err, KindAlreadyExists) {
			observer.Conflict(w.Kind, KindOf(err))
			continue
		}
		if err != nil {
			return zero, "", w.fatal("update", key, err)
		}

		if w.Present != nil {
			kept, err := w.verify(ctx, desired)
			if err != nil {
				return zero, "", w.fatal("verify", key, err)
			}
			if kept {
				// A writer that read before our update may still be about to
				// write. Give it one jitter window, then look again.
				if _, err := w.Jitter.Wait(ctx); err != nil {
					return zero, "", err
				}
				if kept, err = w.verify(ctx, desired); err != nil {
					return zero, "", w.fatal("verify", key, err)
				}
			}
			if !kept {
				logging.WarnWithContext(logger, "merged contribution overwritten by concurrent writer", "lost_update",
					logging.String("resource_kind", w.Kind),
					logging.Int("round", round),
					logging.String(logging.FieldErrorHint, "retrying merge"),
					logging.String(logging.FieldImpact, "none if a later round converges"),
				)
				continue
			}
		}

		logger.Info("resource merged",
			logging.String(logging.FieldEventType, "resource_merged"),
			logging.String("resource_kind", w.Kind),
			logging.Int("round", round),
		)
		observer.Outcome(w.Kind, OutcomeMerged)
		return updated, OutcomeMerged, nil
	}

	return zero, "", services.Wrap(services.ErrTransient, w.Kind, "ensure",
		fmt.Sprintf("%s did not converge after %d rounds", key, rounds), nil)
}

// verify re-reads the resource and reports whether desired is still part of
// it. A resource deleted in the meantime counts as not kept.
func (w *Writer[R]) verify(ctx context.Context, desired R) (bool, error) {
	latest, err := w.read(ctx, desired)
	if IsKind(err, KindNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return w.Present(latest, desired), nil
}

func (w *Writer[R]) create(ctx context.Context, desired R) (R, error) {
	var out R
	err := w.Retry.Do(ctx, w.Kind+" create", func(ctx context.Context) error {
		var err error
		out, err = w.Store.Create(ctx, desired)
		return err
	})
	return out, err
}

func (w *Writer[R]) read(ctx context.Context, desired R) (R, error) {
	var out R
	err := w.Retry.Do(ctx, w.Kind+" read", func(ctx context.Context) error {
		var err error
		out, err = w.Store.Read(ctx, desired)
		return err
	})
	return out, err
}

func (w *Writer[R]) update(ctx context.Context, merged R) (R, error) {
	var out R
	err := w.Retry.Do(ctx, w.Kind+" update", func(ctx context.Context) error {
		var err error
		out, err = w.Store.Update(ctx, merged)
		return err
	})
	return out, err
}

func (w *Writer[R]) fatal(operation, key string, err error) error {
	return fatal(w.Kind, operation, key, err, w.observer())
}

func (w *Writer[R]) logger() *slog.Logger {
	if w.Logger == nil {
		return logging.NewNop()
	}
	return w.Logger
}

func (w *Writer[R]) observer() Observer {
	if w.Observer == nil {
		return nopObserver{}
	}
	return w.Observer
}

// fatal classifies a non-benign store error. Conflicts of kind Other point at
// misconfiguration and are never retried.
func fatal(kind, operation, key string, err error, observer Observer) error {
	if services.Classify(err) == services.ClassTransient {
		observer.Conflict(kind, KindThrottled)
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	conflictKind := KindOf(err)
	observer.Conflict(kind, conflictKind)
	marker := services.ErrConfiguration
	switch conflictKind {
	case KindAlreadyExists:
		marker = services.ErrExternal
	case KindThrottled:
		marker = services.ErrTransient
	}
	return services.Wrap(marker, kind, operation, key, err)
}

// Surface maps a remote store error raised outside a writer onto the service
// error classes used for redelivery decisions.
func Surface(kind, operation, key string, err error) error {
	if err == nil {
		return nil
	}
	return fatal(kind, operation, key, err, nopObserver{})
}
