package bcachefs

import (
	"context"
	"log/slog"
)

// DryRun logs the commands a Runner would execute and reports success
// without touching the filesystem.
type DryRun struct {
	binary string
	logger *slog.Logger
}

// NewDryRun returns a DryRun that describes commands for binary.
func NewDryRun(binary string, logger *slog.Logger) *DryRun {
	if binary == "" {
		binary = DefaultBinary
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DryRun{
		binary: binary,
		logger: logger.With("component", "bcachefs", "dry_run", true),
	}
}

// CreateReadonlySnapshot logs the snapshot command.
func (d *DryRun) CreateReadonlySnapshot(_ context.Context, source, dest string) error {
	d.logger.Info("would run", "command", append([]string{d.binary}, snapshotArgs(source, dest)...))
	return nil
}

// DeleteSubvolume logs the delete command.
func (d *DryRun) DeleteSubvolume(_ context.Context, path string) error {
	d.logger.Info("would run", "command", append([]string{d.binary}, deleteArgs(path)...))
	return nil
}
