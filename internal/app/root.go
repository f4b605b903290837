package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/snaprotate/internal/config"
)

var (
	configPath string
	logLevel   string
	logFormat  string

	// RootCmd is the root command for snaprotate
	RootCmd = &cobra.Command{
		Use:   "snaprotate",
		Short: "Scheduled read-only snapshot rotation for bcachefs subvolumes",
		Long: `snaprotate creates read-only bcachefs snapshots of configured subvolumes
and prunes them per frequency class (frequently, hourly, daily, monthly,
yearly), keeping the newest N of each.

Snapshots live in <subvolume>/.snapshots and are named
YYYY-MM-DD-HHMMSS_<class>. The directory itself is the only record of
snapshot history: each run rescans it.

A class gets a new snapshot when it has none yet or when the run lands on
the class's boundary (every 15 minutes, on the hour, at midnight, on the
first of the month, on January 1st). Run it every minute or every 15 minutes
from a timer, or use 'snaprotate daemon' for a built-in schedule.

Examples:
  # Rotate once, as a systemd timer would
  snaprotate run

  # See what a run would do
  snaprotate run --dry-run

  # Show current snapshots per class
  snaprotate list

  # Run on the configured schedule in the background
  snaprotate daemon --daemon

  # Check configuration and tool availability
  snaprotate doctor`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(configPath)
			fmt.Println("snaprotate: bcachefs snapshot rotation")
			fmt.Println()
			if _, err := os.Stat(path); os.IsNotExist(err) {
				fmt.Printf("No config found at %s.\n", path)
				fmt.Println("Run 'snaprotate --help' for the config format and commands.")
			} else {
				fmt.Println("Tip: Run 'snaprotate list' to see current snapshots.")
				fmt.Println("     Run 'snaprotate run --dry-run' to preview a rotation.")
				fmt.Println("     Run 'snaprotate --help' for all commands.")
			}
			return nil
		},
	}
)

func init() {
	// Global flags
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", fmt.Sprintf("config file path (default: $%s or %s)", config.EnvPath, config.DefaultPath))
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default: config or info)")
	RootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text, json (default: config or text)")

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2

	RootCmd.AddCommand(runCmd)
	RootCmd.AddCommand(listCmd)
	RootCmd.AddCommand(daemonCmd)
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's
// context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return RootCmd.ExecuteContext(ctx)
}
