package app

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/snaprotate/internal/config"
	"github.com/blackwell-systems/snaprotate/internal/output"
	"github.com/blackwell-systems/snaprotate/internal/schedule"
	"github.com/blackwell-systems/snaprotate/internal/snapshots"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show snapshots per subvolume and class",
	Long: `List the snapshot inventory of every configured subvolume.

For each configured class the table shows its keep count, how many
snapshots exist, the newest one and whether a run right now would create a
new snapshot. Counts above keep are pruned by the next run.`,
	Example: `  snaprotate list
  snaprotate list --config ./snaprotate.yaml`,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	rows, failures := inventoryRows(cfg, time.Now())
	for _, f := range failures {
		fmt.Fprintf(os.Stderr, "⚠ %v\n", f)
	}

	fmt.Fprint(cmd.OutOrStdout(), output.RenderInventoryTable(rows))
	return nil
}

// inventoryRows scans every subvolume once and builds one row per configured
// class. Subvolumes whose directory cannot be read are reported separately.
func inventoryRows(cfg *config.Config, now time.Time) ([]output.InventoryRow, []error) {
	var rows []output.InventoryRow
	var failures []error

	for _, sv := range cfg.Subvolumes {
		inv, err := snapshots.Scan(cfg.SnapshotPath(sv))
		if err != nil {
			failures = append(failures, fmt.Errorf("subvolume %s: %w", sv.Path, err))
			continue
		}

		for _, f := range sv.Frequencies {
			count := inv.Count(f.Class)
			row := output.InventoryRow{
				Subvolume: sv.Path,
				Class:     f.Class.Tag(),
				Keep:      f.Keep,
				Count:     count,
				Due:       schedule.IsDue(f.Class, now, count),
			}
			if newest, ok := inv.Newest(f.Class); ok {
				row.Newest = newest.Name
				row.NewestAt, _ = newest.Time()
			}
			rows = append(rows, row)
		}
	}

	return rows, failures
}
