// Package daemon runs rotation passes on a cron schedule.
//
// A Daemon owns the loaded config, fires a pass for every schedule tick and
// reloads the config when the file changes on disk or the process receives
// SIGHUP. A reload that fails validation keeps the previous config. Ticks
// that arrive while a pass is still running are skipped, so passes never
// overlap.
//
// Example usage:
//
//	d := daemon.New(path, cfg, func(ctx context.Context, cfg *config.Config, now time.Time) {
//		runPass(ctx, cfg, now)
//	})
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
//	defer stop()
//	if err := d.Run(ctx); err != nil {
//		log.Fatal(err)
//	}
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"github.com/blackwell-systems/snaprotate/internal/config"
)

// PassFunc performs one rotation pass with cfg. now is captured once per tick.
type PassFunc func(ctx context.Context, cfg *config.Config, now time.Time)

// LoadFunc reads a config file.
type LoadFunc func(path string) (*config.Config, error)

// DefaultDebounce is how long the file watcher waits for writes to settle.
const DefaultDebounce = 250 * time.Millisecond

// Daemon schedules rotation passes.
type Daemon struct {
	configPath string
	load       LoadFunc
	pass       PassFunc
	logger     *slog.Logger
	debounce   time.Duration
	runOnStart bool
	now        func() time.Time

	cron *cron.Cron
	job  cron.Job
	wg   sync.WaitGroup

	mu       sync.Mutex
	ctx      context.Context
	cfg      *config.Config
	entry    cron.EntryID
	schedule string
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Daemon) { d.logger = logger }
}

// WithLoader replaces config.Load.
func WithLoader(load LoadFunc) Option {
	return func(d *Daemon) { d.load = load }
}

// WithDebounce sets the config file debounce interval.
func WithDebounce(interval time.Duration) Option {
	return func(d *Daemon) { d.debounce = interval }
}

// WithRunOnStart fires one pass as soon as Run starts.
func WithRunOnStart(enabled bool) Option {
	return func(d *Daemon) { d.runOnStart = enabled }
}

// New creates a Daemon for an already loaded cfg.
func New(configPath string, cfg *config.Config, pass PassFunc, opts ...Option) *Daemon {
	d := &Daemon{
		configPath: configPath,
		load:       config.Load,
		pass:       pass,
		logger:     slog.Default(),
		debounce:   DefaultDebounce,
		now:        time.Now,
		ctx:        context.Background(),
		cfg:        cfg,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "daemon")
	d.cron = cron.New()

	// One wrapped job shared by every registration and the start-up pass, so
	// SkipIfStillRunning sees all of them.
	logger := cronLogger{d.logger}
	d.job = cron.NewChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)).
		Then(cron.FuncJob(d.tick))
	return d
}

// Config returns the active config.
func (d *Daemon) Config() *config.Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// Schedule returns the cron expression currently registered.
func (d *Daemon) Schedule() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.schedule
}

// NextRun returns the next scheduled pass, or the zero time if none is
// registered or the scheduler has not started.
func (d *Daemon) NextRun() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.entry == 0 {
		return time.Time{}
	}
	return d.cron.Entry(d.entry).Next
}

// Run starts the scheduler, the config watcher and SIGHUP handling, and
// blocks until ctx is cancelled. It returns after any running pass finishes.
func (d *Daemon) Run(ctx context.Context) error {
	d.mu.Lock()
	d.ctx = ctx
	err := d.register(d.cfg.Schedule)
	d.mu.Unlock()
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors replace files by rename, which drops a
	// watch on the file itself.
	if err := watcher.Add(filepath.Dir(d.configPath)); err != nil {
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	d.cron.Start()
	d.logger.Info("daemon started",
		"config", d.configPath,
		"schedule", d.Schedule(),
		"subvolumes", len(d.Config().Subvolumes),
	)

	if d.runOnStart {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.job.Run()
		}()
	}

	var debounceTimer *time.Timer
	reloadCh := make(chan struct{}, 1)
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("shutting down, waiting for running pass")
			d.stop()
			d.logger.Info("daemon stopped")
			return nil

		case <-hup:
			d.logger.Info("received SIGHUP, reloading config")
			d.reloadAndLog()

		case <-reloadCh:
			d.reloadAndLog()

		case event, ok := <-watcher.Events:
			if !ok {
				d.stop()
				return fmt.Errorf("watcher events channel closed")
			}
			if !d.isConfigEvent(event) {
				continue
			}
			d.logger.Debug("config file event", "path", event.Name, "op", event.Op.String())

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(d.debounce, func() {
				select {
				case reloadCh <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				d.stop()
				return fmt.Errorf("watcher errors channel closed")
			}
			d.logger.Error("config watcher error", "error", err)
		}
	}
}

func (d *Daemon) stop() {
	<-d.cron.Stop().Done()
	d.wg.Wait()
}

func (d *Daemon) isConfigEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(d.configPath) {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

func (d *Daemon) reloadAndLog() {
	if err := d.Reload(); err != nil {
		d.logger.Error("config reload failed, keeping previous config", "error", err)
	}
}

// Reload re-reads the config file. On success the new config is used from
// the next pass on and the schedule is re-registered if it changed. On
// failure the previous config stays active.
func (d *Daemon) Reload() error {
	cfg, err := d.load(d.configPath)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if cfg.Schedule != d.schedule {
		if err := d.register(cfg.Schedule); err != nil {
			return err
		}
	}
	d.cfg = cfg

	d.logger.Info("config reloaded", "schedule", d.schedule, "subvolumes", len(cfg.Subvolumes))
	return nil
}

// register replaces the cron entry. d.mu must be held.
func (d *Daemon) register(spec string) error {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("failed to schedule passes with %q: %w", spec, err)
	}
	id := d.cron.Schedule(sched, d.job)
	if d.entry != 0 {
		d.cron.Remove(d.entry)
	}
	d.entry = id
	d.schedule = spec
	return nil
}

func (d *Daemon) tick() {
	d.mu.Lock()
	ctx, cfg := d.ctx, d.cfg
	d.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	now := d.now()
	d.logger.Debug("starting scheduled pass", "time", now)
	// A started pass runs to completion; shutdown waits for it.
	d.pass(context.WithoutCancel(ctx), cfg, now)
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
