package app

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/snaprotate/internal/output"
	"github.com/blackwell-systems/snaprotate/internal/store"
)

var (
	historyLimit      int
	historyRun        string
	historyJournal    string
	historyPruneOlder time.Duration

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Show recorded rotation runs",
		Long: `Show runs recorded in the journal database.

The journal is an audit trail only. Rotation never reads it: which
snapshots exist is always decided by scanning the snapshot directories.
Configure it with 'journal:' in the config file.`,
		Example: `  # Last 20 runs
  snaprotate history

  # What a specific run created and deleted (ID prefix is enough)
  snaprotate history --run 0f8c2a8e

  # Drop runs older than 90 days
  snaprotate history --prune-older-than 2160h`,
		RunE: runHistory,
	}
)

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of runs to show (0 for all)")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "show the actions of one run")
	historyCmd.Flags().StringVar(&historyJournal, "journal", "", "journal database path (default: config journal)")
	historyCmd.Flags().DurationVar(&historyPruneOlder, "prune-older-than", 0, "delete journal runs older than this duration")

	RootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	path := historyJournal
	if path == "" {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		path = cfg.Journal
	}
	if path == "" {
		return fmt.Errorf("no journal configured (set 'journal' in the config file or pass --journal)")
	}

	out := cmd.OutOrStdout()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprint(out, output.RenderHistoryTable(nil))
		return nil
	}

	db, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer db.Close()

	if historyPruneOlder > 0 {
		n, err := db.DeleteRunsBefore(time.Now().Add(-historyPruneOlder))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Removed %d run(s) older than %s\n", n, historyPruneOlder)
		return nil
	}

	if historyRun != "" {
		id, err := db.FindRun(historyRun)
		if err != nil {
			return err
		}
		actions, err := db.GetRunActions(id)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Run %s\n\n", id)
		fmt.Fprint(out, output.RenderActionsTable(actions))
		return nil
	}

	runs, err := db.ListRuns(historyLimit)
	if err != nil {
		return err
	}
	fmt.Fprint(out, output.RenderHistoryTable(runs))
	return nil
}
