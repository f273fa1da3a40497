package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"fastchannels/internal/config"
	"fastchannels/internal/journal"
	"fastchannels/internal/logging"
	"fastchannels/internal/pipeline"
)

// LockFileName is the single-instance lock inside the state directory.
const LockFileName = "fastchannels.lock"

const pruneInterval = 6 * time.Hour

// Dispatcher handles raw event envelopes.
type Dispatcher interface {
	Dispatch(ctx context.Context, raw []byte) (pipeline.Result, error)
	Disabled() map[string]string
}

// Journal is the slice of the delivery journal the daemon reads and prunes.
type Journal interface {
	Path() string
	List(ctx context.Context, filter journal.Filter) ([]journal.Delivery, error)
	Stats(ctx context.Context) (map[string]int, error)
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// Options carries the daemon's collaborators.
type Options struct {
	Dispatcher Dispatcher
	Journal    Journal
	Metrics    http.Handler
	Logger     *slog.Logger
}

// Daemon serves the event receiver and enforces single-instance execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	dispatcher Dispatcher
	journal    Journal
	metrics    http.Handler
	api        *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	mu      sync.Mutex
	started time.Time
	stop    context.CancelFunc
	work    context.Context
	group   *errgroup.Group
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	PID            int
	StartedAt      time.Time
	LockFilePath   string
	JournalPath    string
	Deliveries     map[string]int
	DisabledStages map[string]string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, opts Options) (*Daemon, error) {
	if cfg == nil || opts.Dispatcher == nil {
		return nil, errors.New("daemon requires config and dispatcher")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := filepath.Join(cfg.Paths.StateDir, LockFileName)
	d := &Daemon{
		cfg:        cfg,
		logger:     logger,
		dispatcher: opts.Dispatcher,
		journal:    opts.Journal,
		metrics:    opts.Metrics,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}
	d.api = newAPIServer(cfg.Paths.APIBind, cfg.Paths.APIToken, d, logger)
	return d, nil
}

// Start acquires the daemon lock and begins serving. It returns once the
// listener is bound; use Wait to block until the daemon exits.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another fastchannels daemon instance is already running")
	}

	listener, err := d.api.listen()
	if err != nil {
		_ = d.lock.Unlock()
		return err
	}

	runCtx, stop := context.WithCancel(ctx)
	work, cancelWork := context.WithCancel(context.WithoutCancel(ctx))
	group, gctx := errgroup.WithContext(runCtx)

	d.mu.Lock()
	d.started = time.Now()
	d.stop = stop
	d.work = work
	d.group = group
	d.mu.Unlock()

	group.Go(func() error {
		return d.api.serve(listener)
	})
	group.Go(func() error {
		<-gctx.Done()
		err := d.api.shutdown()
		cancelWork()
		return err
	})
	group.Go(func() error {
		d.pruneLoop(gctx)
		return nil
	})

	d.running.Store(true)
	d.logger.Info("fastchannels daemon started",
		logging.String("lock", d.lockPath),
		logging.String("address", listener.Addr().String()),
	)
	return nil
}

// Wait blocks until the daemon stops serving and returns the first serve error.
func (d *Daemon) Wait() error {
	d.mu.Lock()
	group := d.group
	d.mu.Unlock()
	if group == nil {
		return nil
	}
	return group.Wait()
}

// Stop drains in-flight deliveries and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Swap(false) {
		return
	}

	d.mu.Lock()
	stop, group := d.stop, d.group
	d.mu.Unlock()
	stop()
	if err := group.Wait(); err != nil {
		d.logger.Warn("daemon exited with error", logging.Error(err))
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.logger.Info("fastchannels daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// LockPath returns the path of the single-instance lock file.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	d.mu.Lock()
	started := d.started
	d.mu.Unlock()

	status := Status{
		Running:        d.running.Load(),
		PID:            os.Getpid(),
		LockFilePath:   d.lockPath,
		DisabledStages: d.dispatcher.Disabled(),
	}
	if status.Running {
		status.StartedAt = started
	}
	if d.journal != nil {
		status.JournalPath = d.journal.Path()
		stats, err := d.journal.Stats(ctx)
		if err != nil {
			d.logger.Warn("journal stats unavailable",
				logging.String(logging.FieldEventType, "journal_stats_failed"),
				logging.Error(err),
			)
		}
		status.Deliveries = stats
	}
	return status
}

// workContext is the context stage work runs under. It survives client
// disconnects and is cancelled only after shutdown has drained requests.
func (d *Daemon) workContext() context.Context {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.work == nil {
		return context.Background()
	}
	return d.work
}

func (d *Daemon) pruneLoop(ctx context.Context) {
	retention := d.cfg.JournalRetention()
	if d.journal == nil || retention <= 0 {
		return
	}
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		d.prune(ctx, retention)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (d *Daemon) prune(ctx context.Context, retention time.Duration) {
	removed, err := d.journal.Prune(ctx, time.Now().Add(-retention))
	if err != nil {
		if ctx.Err() == nil {
			d.logger.Warn("journal prune failed",
				logging.String(logging.FieldEventType, "journal_prune_failed"),
				logging.Error(err),
				logging.String(logging.FieldImpact, "delivery history keeps growing"),
			)
		}
		return
	}
	if removed > 0 {
		d.logger.Info("journal pruned", logging.Int64("removed", removed))
	}
}
