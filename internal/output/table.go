// Package output renders snaprotate results for the terminal.
//
// This package includes:
//   - The per-class table printed after a rotation pass
//   - Inventory tables for the list command
//   - Journal history tables
//   - Human-readable formatting for dates and long paths
//
// Tables use box-drawing separators and ANSI colour when stdout is a
// terminal and NO_COLOR is unset.
package output

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/snaprotate/internal/rotator"
	"github.com/blackwell-systems/snaprotate/internal/store"
)

// ANSI color codes for status display
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// FormatProcessed returns the one-line pass summary.
func FormatProcessed(n int) string {
	return fmt.Sprintf("Processed %d subvolumes", n)
}

// RenderRunReport renders one row per subvolume class followed by any
// subvolume-level failures and the pass summary.
func RenderRunReport(report *rotator.Report) string {
	var sb strings.Builder

	if report.DryRun {
		sb.WriteString(colorize(colorYellow, "Dry run: no snapshots were created or deleted."))
		sb.WriteString("\n\n")
	}

	rows := 0
	for _, sv := range report.Subvolumes {
		rows += len(sv.Classes)
	}

	if rows > 0 {
		sb.WriteString(fmt.Sprintf("%-24s %-10s %-5s %-24s %-8s %-9s %s\n",
			"Subvolume", "Class", "Keep", "Created", "Deleted", "Retained", "Status"))
		sb.WriteString(strings.Repeat("─", 92))
		sb.WriteString("\n")

		for _, sv := range report.Subvolumes {
			for _, c := range sv.Classes {
				created := c.Created
				if created == "" {
					created = "-"
				}
				sb.WriteString(fmt.Sprintf("%-24s %-10s %-5d %-24s %-8d %-9d %s\n",
					truncatePath(sv.Path, 24),
					c.Class.Tag(),
					c.Keep,
					created,
					len(c.Deleted),
					c.Retained,
					classStatus(c)))
			}
		}
	}

	var failures []string
	for _, sv := range report.Subvolumes {
		for _, err := range sv.Errors() {
			failures = append(failures, fmt.Sprintf("  %s %v", colorize(colorRed, "✗"), err))
		}
	}
	if len(failures) > 0 {
		if rows > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("Errors:\n")
		sb.WriteString(strings.Join(failures, "\n"))
		sb.WriteString("\n")
	}

	if rows > 0 || len(failures) > 0 {
		sb.WriteString("\n")
	}
	sb.WriteString(FormatProcessed(report.Processed()))
	if failed := report.Failed(); failed > 0 {
		sb.WriteString(colorize(colorRed, fmt.Sprintf(" (%d failed)", failed)))
	}
	sb.WriteString("\n")

	return sb.String()
}

func classStatus(c *rotator.ClassResult) string {
	switch {
	case c.Err == nil:
		return colorize(colorGreen, "ok")
	case errors.Is(c.Err, rotator.ErrSnapshotDelete):
		return colorize(colorYellow, "prune failed")
	default:
		return colorize(colorRed, "snapshot failed")
	}
}

// InventoryRow is one class of one subvolume as shown by the list command.
type InventoryRow struct {
	Subvolume string
	Class     string
	Keep      int
	Count     int
	Newest    string    // snapshot name, empty if none
	NewestAt  time.Time // zero if unknown
	Due       bool
}

// RenderInventoryTable renders the snapshot inventory.
func RenderInventoryTable(rows []InventoryRow) string {
	if len(rows) == 0 {
		return "No subvolumes configured.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-24s %-10s %-5s %-6s %-26s %-16s %s\n",
		"Subvolume", "Class", "Keep", "Count", "Newest", "Age", "Due"))
	sb.WriteString(strings.Repeat("─", 96))
	sb.WriteString("\n")

	for _, r := range rows {
		newest := r.Newest
		if newest == "" {
			newest = "-"
		}

		count := fmt.Sprintf("%d", r.Count)
		if r.Count > r.Keep {
			// Over keep until the next pass prunes it.
			count = colorize(colorYellow, fmt.Sprintf("%-6s", count))
		} else {
			count = fmt.Sprintf("%-6s", count)
		}

		due := colorize(colorGray, "no")
		if r.Due {
			due = colorize(colorGreen, "yes")
		}

		sb.WriteString(fmt.Sprintf("%-24s %-10s %-5d %s %-26s %-16s %s\n",
			truncatePath(r.Subvolume, 24),
			r.Class,
			r.Keep,
			count,
			truncate(newest, 26),
			formatRelativeTime(r.NewestAt),
			due))
	}

	return sb.String()
}

// RenderHistoryTable renders journal runs, newest first.
func RenderHistoryTable(runs []*store.Run) string {
	if len(runs) == 0 {
		return "No runs recorded.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-10s %-20s %-16s %-11s %-8s %-8s %-7s %s\n",
		"Run", "Started", "Age", "Subvolumes", "Created", "Deleted", "Errors", "Mode"))
	sb.WriteString(strings.Repeat("─", 92))
	sb.WriteString("\n")

	for _, run := range runs {
		errs := fmt.Sprintf("%-7d", run.Errors)
		if run.Errors > 0 {
			errs = colorize(colorRed, errs)
		}
		mode := "live"
		if run.DryRun {
			mode = colorize(colorGray, "dry-run")
		}

		sb.WriteString(fmt.Sprintf("%-10s %-20s %-16s %-11d %-8d %-8d %s %s\n",
			truncate(run.ID, 8),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			formatRelativeTime(run.StartedAt),
			run.SubvolumeCount,
			run.Created,
			run.Deleted,
			errs,
			mode))
	}

	return sb.String()
}

// RenderActionsTable renders the actions of a single run.
func RenderActionsTable(actions []*store.Action) string {
	if len(actions) == 0 {
		return "No snapshots were created or deleted in this run.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-24s %-10s %-7s %s\n", "Subvolume", "Class", "Action", "Snapshot"))
	sb.WriteString(strings.Repeat("─", 72))
	sb.WriteString("\n")

	for _, a := range actions {
		class := a.Class
		if class == "" {
			class = "-"
		}
		detail := a.Snapshot
		action := a.Action
		switch a.Action {
		case store.ActionCreate:
			action = colorize(colorGreen, fmt.Sprintf("%-7s", action))
		case store.ActionDelete:
			action = colorize(colorYellow, fmt.Sprintf("%-7s", action))
		case store.ActionError:
			action = colorize(colorRed, fmt.Sprintf("%-7s", action))
			detail = a.Error
		default:
			action = fmt.Sprintf("%-7s", action)
		}

		sb.WriteString(fmt.Sprintf("%-24s %-10s %s %s\n",
			truncatePath(a.Subvolume, 24), class, action, detail))
	}

	return sb.String()
}

// formatRelativeTime formats a timestamp as relative time.
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	case diff < 30*24*time.Hour:
		weeks := int(diff.Hours() / 24 / 7)
		if weeks == 1 {
			return "1 week ago"
		}
		return fmt.Sprintf("%d weeks ago", weeks)
	case diff < 365*24*time.Hour:
		months := int(diff.Hours() / 24 / 30)
		if months == 1 {
			return "1 month ago"
		}
		return fmt.Sprintf("%d months ago", months)
	default:
		years := int(diff.Hours() / 24 / 365)
		if years == 1 {
			return "1 year ago"
		}
		return fmt.Sprintf("%d years ago", years)
	}
}

// truncate truncates a string to maxLen characters, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// truncatePath keeps the tail of a path, which is the part that tells
// subvolumes apart.
func truncatePath(p string, maxLen int) string {
	if len(p) <= maxLen {
		return p
	}
	if maxLen <= 3 {
		return p[len(p)-maxLen:]
	}
	return "..." + p[len(p)-(maxLen-3):]
}
