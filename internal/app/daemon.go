package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/snaprotate/internal/config"
	"github.com/blackwell-systems/snaprotate/internal/daemon"
	"github.com/blackwell-systems/snaprotate/internal/output"
)

const (
	defaultPIDFile = "/run/snaprotate.pid"
	defaultLogFile = "/var/log/snaprotate.log"
)

var (
	daemonBackground bool
	daemonChild      bool
	daemonPIDFile    string
	daemonLogFile    string
	daemonStop       bool
	daemonReload     bool
	daemonRunOnStart bool

	daemonCmd = &cobra.Command{
		Use:   "daemon",
		Short: "Run rotation passes on the configured schedule",
		Long: `Run rotation passes on the cron schedule from the config file
(default "*/15 * * * *").

Daemon behaviour:
  • A tick that arrives while a pass is still running is skipped
  • The config is reloaded when the file changes or on SIGHUP; an invalid
    config is logged and the previous one stays active
  • SIGTERM or SIGINT stops the scheduler after the running pass finishes

Modes:
  • Foreground (default): run in the current terminal, Ctrl+C to stop
  • Background: --daemon forks a detached process with a PID file
  • Control: --stop and --reload signal a background daemon`,
		Example: `  # Run in foreground (Ctrl+C to stop)
  snaprotate daemon

  # Run as background daemon
  snaprotate daemon --daemon

  # Re-read the config of a running daemon
  snaprotate daemon --reload

  # Stop running daemon
  snaprotate daemon --stop

  # Use custom PID and log files
  snaprotate daemon --daemon --pid-file /tmp/snaprotate.pid --log-file /tmp/snaprotate.log`,
		RunE: runDaemon,
	}
)

func init() {
	daemonCmd.Flags().BoolVar(&daemonBackground, "daemon", false, "run as background daemon")
	daemonCmd.Flags().BoolVar(&daemonChild, "daemon-child", false, "internal flag for daemon child process")
	daemonCmd.Flags().StringVar(&daemonPIDFile, "pid-file", defaultPIDFile, "PID file path")
	daemonCmd.Flags().StringVar(&daemonLogFile, "log-file", defaultLogFile, "log file path for --daemon")
	daemonCmd.Flags().BoolVar(&daemonStop, "stop", false, "stop running daemon")
	daemonCmd.Flags().BoolVar(&daemonReload, "reload", false, "make a running daemon reload its config")
	daemonCmd.Flags().BoolVar(&daemonRunOnStart, "run-on-start", true, "run one pass immediately at start-up")

	// Hide the internal daemon-child flag from help
	daemonCmd.Flags().MarkHidden("daemon-child")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	if daemonStop {
		return stopDaemon()
	}
	if daemonReload {
		if err := daemon.ReloadDaemon(daemonPIDFile); err != nil {
			return fmt.Errorf("failed to reload daemon: %w", err)
		}
		fmt.Println("✓ Reload requested")
		return nil
	}

	// Fail on a bad config before forking, so the error reaches the terminal.
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}

	if daemonBackground {
		return startBackgroundDaemon(path)
	}

	return runDaemonLoop(commandContext(cmd), cfg, path)
}

func stopDaemon() error {
	running, err := daemon.IsDaemonRunning(daemonPIDFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if !running {
		fmt.Println("Daemon is not running")
		return nil
	}

	if err := daemon.StopDaemon(daemonPIDFile); err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}
	fmt.Println("✓ Daemon stopped")

	return nil
}

// childArgs rebuilds the command line for the background process.
func childArgs(path string) []string {
	args := []string{"daemon", "--config", path, "--pid-file", daemonPIDFile}
	if logLevel != "" {
		args = append(args, "--log-level", logLevel)
	}
	if logFormat != "" {
		args = append(args, "--log-format", logFormat)
	}
	if !daemonRunOnStart {
		args = append(args, "--run-on-start=false")
	}
	return args
}

func startBackgroundDaemon(path string) error {
	pid, err := daemon.StartBackground(daemonPIDFile, daemonLogFile, childArgs(path))
	if err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	fmt.Println("✓ Daemon started")
	fmt.Printf("\nSnapshot rotation daemon started (PID %d)\n", pid)
	fmt.Printf("  Config:   %s\n", path)
	fmt.Printf("  PID file: %s\n", daemonPIDFile)
	fmt.Printf("  Log file: %s\n", daemonLogFile)
	fmt.Printf("\nTo stop: snaprotate daemon --stop\n")

	return nil
}

func runDaemonLoop(ctx context.Context, cfg *config.Config, path string) error {
	logger, level, err := newLogger(os.Stderr, cfg)
	if err != nil {
		return err
	}

	// The parent wrote the PID file for a background child.
	if !daemonChild {
		running, err := daemon.IsDaemonRunning(daemonPIDFile)
		if err != nil {
			return fmt.Errorf("failed to check daemon status: %w", err)
		}
		if running {
			return fmt.Errorf("daemon already running (PID file: %s)", daemonPIDFile)
		}
		if err := daemon.WritePIDFile(daemonPIDFile, os.Getpid()); err != nil {
			return err
		}
	}
	defer func() {
		if err := daemon.RemovePIDFile(daemonPIDFile); err != nil {
			logger.Error("failed to remove PID file", "error", err)
		}
	}()

	runner := newPassRunner(logger, false)
	d := daemon.New(path, cfg, daemonPass(runner, level, logger),
		daemon.WithLogger(logger),
		daemon.WithRunOnStart(daemonRunOnStart),
	)

	return d.Run(ctx)
}

// daemonPass applies a reloaded logging level before each pass and logs the
// pass summary.
func daemonPass(runner *passRunner, level *slog.LevelVar, logger *slog.Logger) daemon.PassFunc {
	return func(ctx context.Context, cfg *config.Config, now time.Time) {
		if lvl, err := levelFor(cfg); err == nil {
			level.Set(lvl)
		}

		report := runner.run(ctx, cfg, now)
		logger.Info(output.FormatProcessed(report.Processed()),
			"failed", report.Failed(),
			"errors", len(report.Errors()),
		)
	}
}
