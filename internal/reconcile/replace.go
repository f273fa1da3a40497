package reconcile

import (
	"context"
	"log/slog"
	"time"

	"fastchannels/internal/logging"
	"fastchannels/internal/services"
)

// ReplaceStore is a remote collection that supports only whole-resource
// create and delete.
type ReplaceStore[R any] interface {
	Create(ctx context.Context, desired R) (R, error)
	Delete(ctx context.Context, desired R) error
}

// ReplaceWriter creates a resource, replacing an existing one by delete and
// recreate. The gap between delete and create leaves the resource briefly
// absent. A second collision after recreate is fatal.
type ReplaceWriter[R any] struct {
	Kind     string
	Store    ReplaceStore[R]
	Key      func(R) string
	Gap      time.Duration
	Sleep    func(ctx context.Context, d time.Duration) error
	Retry    RetryPolicy
	Logger   *slog.Logger
	Observer Observer
}

// Ensure creates desired, replacing any existing resource with the same key.
func (w *ReplaceWriter[R]) Ensure(ctx context.Context, desired R) (R, Outcome, error) {
	var zero R
	key := w.Key(desired)
	ctx = services.WithResourceKey(ctx, key)
	logger := logging.WithContext(ctx, w.logger())
	observer := w.observer()

	created, err := w.create(ctx, desired)
	if err == nil {
		observer.Outcome(w.Kind, OutcomeCreated)
		logger.Info("resource created",
			logging.String(logging.FieldEventType, "resource_created"),
			logging.String("resource_kind", w.Kind),
		)
		return created, OutcomeCreated, nil
	}
	if !IsKind(err, KindAlreadyExists) {
		return zero, "", fatal(w.Kind, "create", key, err, observer)
	}
	observer.Conflict(w.Kind, KindAlreadyExists)

	logger.Info("resource exists, replacing",
		logging.String("resource_kind", w.Kind),
		logging.Duration("gap", w.Gap),
	)
	err = w.Retry.Do(ctx, w.Kind+" delete", func(ctx context.Context) error {
		return w.Store.Delete(ctx, desired)
	})
	if err != nil && !IsKind(err, KindNotFound) {
		return zero, "", fatal(w.Kind, "delete", key, err, observer)
	}

	sleep := w.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	if err := sleep(ctx, w.Gap); err != nil {
		return zero, "", err
	}

	created, err = w.create(ctx, desired)
	if err != nil {
		if IsKind(err, KindAlreadyExists) {
			observer.Conflict(w.Kind, KindAlreadyExists)
			return zero, "", services.Wrap(services.ErrExternal, w.Kind, "recreate",
				key+" collided again after delete", err)
		}
		return zero, "", fatal(w.Kind, "recreate", key, err, observer)
	}
	observer.Outcome(w.Kind, OutcomeRecreated)
	logger.Info("resource recreated",
		logging.String(logging.FieldEventType, "resource_recreated"),
		logging.String("resource_kind", w.Kind),
	)
	return created, OutcomeRecreated, nil
}

func (w *ReplaceWriter[R]) create(ctx context.Context, desired R) (R, error) {
	var out R
	err := w.Retry.Do(ctx, w.Kind+" create", func(ctx context.Context) error {
		var err error
		out, err = w.Store.Create(ctx, desired)
		return err
	})
	return out, err
}

func (w *ReplaceWriter[R]) logger() *slog.Logger {
	if w.Logger == nil {
		return logging.NewNop()
	}
	return w.Logger
}

func (w *ReplaceWriter[R]) observer() Observer {
	if w.Observer == nil {
		return nopObserver{}
	}
	return w.Observer
}
