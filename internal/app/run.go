package app

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/snaprotate/internal/output"
)

var (
	runDryRun      bool
	runFailOnError bool
	runJournal     string
	runMetricsFile string

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Create due snapshots and prune old ones once",
		Long: `Run a single rotation pass over every configured subvolume.

For each subvolume, in config order:
  • Ensure the snapshot directory exists
  • Scan it once for existing snapshots
  • For each frequency class: create a snapshot if due, then delete the
    oldest snapshots of that class beyond its keep count

A failure affects only the class or subvolume where it happened; the pass
always continues. Failed deletions stop pruning for that class and leave
the remaining snapshots in place until the next run. SIGINT and SIGTERM
never interrupt a running bcachefs command.

The exit status is 0 unless the config cannot be loaded. Use
--fail-on-error to exit 1 when any snapshot operation failed.`,
		Example: `  # Rotate once
  snaprotate run

  # Log what would happen without running bcachefs
  snaprotate run --dry-run

  # For monitoring from a timer unit
  snaprotate run --fail-on-error --metrics-file /var/lib/node_exporter/snaprotate.prom`,
		RunE: runRun,
	}
)

func init() {
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "log bcachefs commands instead of running them")
	runCmd.Flags().BoolVar(&runFailOnError, "fail-on-error", false, "exit non-zero if any snapshot operation failed")
	runCmd.Flags().StringVar(&runJournal, "journal", "", "record the run in this journal database (default: config journal)")
	runCmd.Flags().StringVar(&runMetricsFile, "metrics-file", "", "write Prometheus metrics to this file (default: config metricsFile)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}

	logger, _, err := newLogger(os.Stderr, cfg)
	if err != nil {
		return err
	}
	logger.Debug("config loaded", "config", path, "subvolumes", len(cfg.Subvolumes))

	runner := newPassRunner(logger, runDryRun)
	runner.journal = runJournal
	runner.metricsFile = runMetricsFile

	report := runner.run(commandContext(cmd), cfg, time.Now())
	fmt.Fprint(cmd.OutOrStdout(), output.RenderRunReport(report))

	if runFailOnError {
		if errs := report.Errors(); len(errs) > 0 {
			return fmt.Errorf("%d snapshot operation(s) failed", len(errs))
		}
	}

	return nil
}
