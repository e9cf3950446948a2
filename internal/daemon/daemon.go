package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/gofrs/flock"

	"podstudio/internal/config"
	"podstudio/internal/library"
	"podstudio/internal/logging"
	"podstudio/internal/media"
	"podstudio/internal/quota"
	"podstudio/internal/render"
	"podstudio/internal/segments"
	"podstudio/internal/store"
	"podstudio/internal/transcribe"
)

// Daemon wires the editing services together, enforces single-instance
// execution, and runs the HTTP API plus the library drop-folder watcher.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *store.Store
	segments  *segments.Service
	assembler *render.Assembler
	registry  *library.Registry
	watcher   *library.Watcher
	quota     *quota.Ledger
	limit     int64
	sttReady  bool

	lock   *flock.Flock
	api    *apiServer
	ctx    context.Context
	cancel context.CancelFunc

	running atomic.Bool
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	PID           int
	DatabasePath  string
	LockFilePath  string
	Transcription bool
}

// New constructs a daemon backed by the ffmpeg engine.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, and logger")
	}
	return newDaemon(cfg, st, media.NewFFmpegEngine(cfg.Audio), logger)
}

// newDaemon lets tests substitute the audio engine.
func newDaemon(cfg *config.Config, st *store.Store, engine media.Engine, logger *slog.Logger) (*Daemon, error) {
	ledger := quota.NewLedger(st, logger)
	policy := quota.NewPolicy(ledger, cfg.Storage.QuotaBytes)

	var stt segments.Transcriber
	sttReady := false
	if client := transcribe.New(cfg.Transcription); client != nil {
		stt = client
		sttReady = true
	}

	svc := segments.NewService(cfg, st, engine, ledger, policy, stt, logger)
	registry := library.NewRegistry(cfg, st, engine, ledger, policy, logger)

	d := &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		store:     st,
		segments:  svc,
		assembler: render.NewAssembler(cfg, st, engine, svc.Resolver(), logger),
		registry:  registry,
		watcher:   library.NewWatcher(registry, logger),
		quota:     ledger,
		limit:     cfg.Storage.QuotaBytes,
		sttReady:  sttReady,
		lock:      flock.New(cfg.LockFilePath()),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the instance lock, begins watching the library drop folder,
// and brings up the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another podstudio daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	go func() {
		if err := d.watcher.Run(d.ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error("library watcher stopped", logging.Args(logging.Error(err))...)
		}
	}()

	if err := d.api.start(d.ctx); err != nil {
		d.cancel()
		_ = d.lock.Unlock()
		return err
	}

	d.running.Store(true)
	d.logger.Info("daemon started",
		logging.Args(
			logging.String("lock", d.cfg.LockFilePath()),
			logging.String("database", d.cfg.DatabasePath()),
		)...)
	return nil
}

// Stop shuts down background work and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Args(logging.Error(err))...)
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and releases the store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		DatabasePath:  d.cfg.DatabasePath(),
		LockFilePath:  d.cfg.LockFilePath(),
		Transcription: d.sttReady,
	}
}
