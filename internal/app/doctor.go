package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/snaprotate/internal/bcachefs"
	"github.com/blackwell-systems/snaprotate/internal/config"
	"github.com/blackwell-systems/snaprotate/internal/daemon"
	"github.com/blackwell-systems/snaprotate/internal/snapshots"
	"github.com/blackwell-systems/snaprotate/internal/store"
)

var doctorPIDFile string

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose configuration and environment problems",
	Long: `Runs diagnostic checks on your snaprotate setup.

Checks:
  • Config file loads and validates
  • The bcachefs tool can be executed
  • Every subvolume path exists and is a directory
  • Snapshot directories can be read
  • The journal can be opened, if configured
  • Whether a background daemon is running

Critical problems make the command exit non-zero. Warnings do not.`,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().StringVar(&doctorPIDFile, "pid-file", defaultPIDFile, "PID file of the daemon to check")
	RootCmd.AddCommand(doctorCmd)
}

// versionFunc reports the tool version; replaced in tests.
var versionFunc = func(ctx context.Context, binary string) (string, error) {
	return bcachefs.New(binary, nil).Version(ctx)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Running snaprotate diagnostics...")
	fmt.Fprintln(out)

	cfg, path, err := loadConfig()
	if err != nil {
		fmt.Fprintln(out, "✗ Config error:", err)
		fmt.Fprintf(out, "  Action: Fix %s or point --config at a valid file\n", path)
		fmt.Fprintln(out)
		return fmt.Errorf("diagnostics failed")
	}
	fmt.Fprintln(out, "✓ Config loaded:", path)

	critical, warnings := doctorChecks(commandContext(cmd), out, cfg)

	fmt.Fprintln(out)
	if critical == 0 && warnings == 0 {
		fmt.Fprintln(out, "✓ All checks passed!")
		return nil
	}
	if critical > 0 {
		fmt.Fprintf(out, "Found %d critical issue(s) and %d warning(s).\n", critical, warnings)
		return fmt.Errorf("diagnostics failed")
	}
	fmt.Fprintf(out, "Found %d warning(s). Rotation will work but check the notes above.\n", warnings)
	return nil
}

func doctorChecks(ctx context.Context, out io.Writer, cfg *config.Config) (critical, warnings int) {
	binary := cfg.Tool
	if binary == "" {
		binary = bcachefs.DefaultBinary
	}
	vctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	version, err := versionFunc(vctx, binary)
	cancel()
	if err != nil {
		fmt.Fprintln(out, "✗ bcachefs tool not usable:", err)
		fmt.Fprintln(out, "  Action: Install bcachefs-tools or set 'tool' in the config")
		critical++
	} else {
		fmt.Fprintf(out, "✓ bcachefs tool: %s (%s)\n", binary, version)
	}

	if len(cfg.Subvolumes) == 0 {
		fmt.Fprintln(out, "⚠ No subvolumes configured")
		warnings++
	}

	for _, sv := range cfg.Subvolumes {
		info, err := os.Stat(sv.Path)
		switch {
		case err != nil:
			fmt.Fprintf(out, "✗ Subvolume %s: %v\n", sv.Path, err)
			critical++
			continue
		case !info.IsDir():
			fmt.Fprintf(out, "✗ Subvolume %s is not a directory\n", sv.Path)
			critical++
			continue
		}

		dir := cfg.SnapshotPath(sv)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			fmt.Fprintf(out, "⚠ Subvolume %s: %s does not exist yet (created on first run)\n", sv.Path, dir)
			warnings++
			continue
		}

		inv, err := snapshots.Scan(dir)
		if err != nil {
			fmt.Fprintf(out, "✗ Subvolume %s: %v\n", sv.Path, err)
			critical++
			continue
		}

		if len(sv.Frequencies) == 0 {
			fmt.Fprintf(out, "⚠ Subvolume %s has no frequency classes; nothing will be rotated\n", sv.Path)
			warnings++
			continue
		}
		fmt.Fprintf(out, "✓ Subvolume %s: %d managed snapshot(s), %d class(es)\n", sv.Path, inv.Len(), len(sv.Frequencies))
	}

	if cfg.Journal != "" {
		db, err := store.Open(cfg.Journal)
		if err != nil {
			fmt.Fprintln(out, "⚠ Journal not writable:", err)
			warnings++
		} else {
			db.Close()
			fmt.Fprintln(out, "✓ Journal:", cfg.Journal)
		}
	}

	running, err := daemon.IsDaemonRunning(doctorPIDFile)
	switch {
	case err != nil:
		fmt.Fprintln(out, "⚠ Failed to check daemon status:", err)
		warnings++
	case running:
		fmt.Fprintln(out, "✓ Daemon running:", doctorPIDFile)
	default:
		fmt.Fprintln(out, "  Daemon not running (fine when a timer runs 'snaprotate run')")
	}

	return critical, warnings
}
