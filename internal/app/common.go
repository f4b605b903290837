package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/snaprotate/internal/bcachefs"
	"github.com/blackwell-systems/snaprotate/internal/config"
	"github.com/blackwell-systems/snaprotate/internal/metrics"
	"github.com/blackwell-systems/snaprotate/internal/rotator"
	"github.com/blackwell-systems/snaprotate/internal/store"
)

// commandContext returns the command's context, or Background when the
// command was invoked without one (as in tests calling RunE directly).
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// loadConfig resolves the config path from --config, the environment or the
// default and loads it.
func loadConfig() (*config.Config, string, error) {
	path := config.Path(configPath)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// parseLevel maps a level name to a slog level. Empty means info.
func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q (want debug, info, warn or error)", s)
	}
}

// levelFor picks --log-level over the config's logging.level.
func levelFor(cfg *config.Config) (slog.Level, error) {
	if logLevel != "" {
		return parseLevel(logLevel)
	}
	if cfg != nil {
		return parseLevel(cfg.Logging.Level)
	}
	return slog.LevelInfo, nil
}

// newLogger builds the process logger writing to w. The returned LevelVar
// lets the daemon apply a reloaded logging.level.
func newLogger(w io.Writer, cfg *config.Config) (*slog.Logger, *slog.LevelVar, error) {
	level, err := levelFor(cfg)
	if err != nil {
		return nil, nil, err
	}
	lv := new(slog.LevelVar)
	lv.Set(level)

	format := logFormat
	if format == "" && cfg != nil {
		format = cfg.Logging.Format
	}

	opts := &slog.HandlerOptions{Level: lv}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), lv, nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), lv, nil
	default:
		return nil, nil, fmt.Errorf("invalid log format %q (want text or json)", format)
	}
}

// passRunner executes rotation passes and records their results in the
// journal and the metrics textfile when those are configured.
type passRunner struct {
	logger  *slog.Logger
	dryRun  bool
	metrics *metrics.Collector

	// overrides from command-line flags
	journal     string
	metricsFile string
}

func newPassRunner(logger *slog.Logger, dryRun bool) *passRunner {
	return &passRunner{
		logger:  logger,
		dryRun:  dryRun,
		metrics: metrics.NewCollector(nil),
	}
}

func (r *passRunner) tool(cfg *config.Config) rotator.Tool {
	if r.dryRun {
		return bcachefs.NewDryRun(cfg.Tool, r.logger)
	}
	return bcachefs.New(cfg.Tool, r.logger)
}

// run performs one pass over cfg's subvolumes at now. Journal and metrics
// failures are logged and never change the pass outcome. The journal is
// write-only here: rotation decisions come from the snapshot directories.
func (r *passRunner) run(ctx context.Context, cfg *config.Config, now time.Time) *rotator.Report {
	p := rotator.New(r.tool(cfg),
		rotator.WithSnapshotDir(cfg.SnapshotDir),
		rotator.WithDryRun(r.dryRun),
		rotator.WithLogger(r.logger),
	)
	report := p.Run(ctx, cfg.Subvolumes, now)

	if path := firstNonEmpty(r.journal, cfg.Journal); path != "" {
		if id, err := recordRun(path, report); err != nil {
			r.logger.Error("failed to record run in journal", "journal", path, "error", err)
		} else {
			r.logger.Debug("run recorded", "journal", path, "run_id", id)
		}
	}

	// Dry runs would publish retained counts that are not on disk.
	if path := firstNonEmpty(r.metricsFile, cfg.MetricsFile); path != "" && !r.dryRun {
		r.metrics.Observe(report)
		if err := r.metrics.WriteTextfile(path); err != nil {
			r.logger.Error("failed to write metrics", "error", err)
		}
	}

	return report
}

func recordRun(path string, report *rotator.Report) (string, error) {
	db, err := store.Open(path)
	if err != nil {
		return "", err
	}
	defer db.Close()
	return db.RecordRun(report)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
