// Package rotator drives snapshot rotation for configured subvolumes.
//
// For each subvolume a Processor ensures the snapshot directory exists, scans
// it once into an inventory, then walks the configured frequency classes in
// order: create a snapshot if the class is due, then prune the class down to
// its keep count. Failures are confined to the smallest unit they affect
// (class or subvolume) and collected in a Report; a pass never stops early.
package rotator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/blackwell-systems/snaprotate/internal/config"
	"github.com/blackwell-systems/snaprotate/internal/schedule"
	"github.com/blackwell-systems/snaprotate/internal/snapshots"
)

// Tool creates and deletes snapshots. *bcachefs.Runner and *bcachefs.DryRun
// implement it.
type Tool interface {
	CreateReadonlySnapshot(ctx context.Context, source, dest string) error
	DeleteSubvolume(ctx context.Context, path string) error
}

// Processor rotates snapshots with a Tool.
type Processor struct {
	tool        Tool
	snapshotDir string
	dryRun      bool
	logger      *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithSnapshotDir overrides the per-subvolume snapshot directory name.
func WithSnapshotDir(name string) Option {
	return func(p *Processor) { p.snapshotDir = name }
}

// WithDryRun stops the processor from creating snapshot directories. The
// tool is expected to be a dry-run tool as well.
func WithDryRun(dryRun bool) Option {
	return func(p *Processor) { p.dryRun = dryRun }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) { p.logger = logger }
}

// New creates a Processor.
func New(tool Tool, opts ...Option) *Processor {
	p := &Processor{
		tool:        tool,
		snapshotDir: config.DefaultSnapshotDir,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "rotator")
	return p
}

// Run processes subvolumes sequentially in order. now is the single instant
// used for every due decision and snapshot name in the pass.
func (p *Processor) Run(ctx context.Context, subvolumes []config.Subvolume, now time.Time) *Report {
	report := &Report{StartedAt: now, DryRun: p.dryRun}

	for _, sv := range subvolumes {
		p.logger.Info("processing subvolume", "path", sv.Path)
		res := p.ProcessSubvolume(ctx, sv, now)
		if res.Err != nil {
			p.logger.Error("subvolume aborted", "path", sv.Path, "error", res.Err)
		}
		report.Subvolumes = append(report.Subvolumes, res)
	}

	p.logger.Info("pass complete", "processed", report.Processed(), "failed", report.Failed())
	return report
}

// ProcessSubvolume rotates the snapshots of one subvolume. Tool calls run
// to completion even if ctx is cancelled: killing bcachefs midway through a
// snapshot or delete is never safe.
func (p *Processor) ProcessSubvolume(ctx context.Context, sv config.Subvolume, now time.Time) *SubvolumeResult {
	ctx = context.WithoutCancel(ctx)
	dir := filepath.Join(sv.Path, p.snapshotDir)
	res := &SubvolumeResult{Path: sv.Path, SnapshotDir: dir}

	if !p.dryRun {
		if err := os.MkdirAll(dir, 0755); err != nil {
			res.Err = fmt.Errorf("%w: subvolume %s: %w", ErrStorageDir, sv.Path, err)
			return res
		}
	}

	inv, err := snapshots.Scan(dir)
	if err != nil {
		res.Err = fmt.Errorf("%w: subvolume %s: %w", ErrInventoryScan, sv.Path, err)
		return res
	}

	for _, freq := range sv.Frequencies {
		res.Classes = append(res.Classes, p.processClass(ctx, sv.Path, dir, inv, freq, now))
	}

	return res
}

func (p *Processor) processClass(ctx context.Context, source, dir string, inv *snapshots.Inventory, freq config.Frequency, now time.Time) *ClassResult {
	log := p.logger.With("path", source, "class", freq.Class.Tag())
	res := &ClassResult{Class: freq.Class, Keep: freq.Keep}

	res.Due = schedule.IsDue(freq.Class, now, inv.Count(freq.Class))
	if res.Due {
		name := snapshots.FormatName(now, freq.Class)
		dest := filepath.Join(dir, name)
		log.Info("creating snapshot", "snapshot", dest)

		if err := p.tool.CreateReadonlySnapshot(ctx, source, dest); err != nil {
			res.Err = fmt.Errorf("%w: subvolume %s, class %s, snapshot %s: %w",
				ErrSnapshotCreate, source, freq.Class, name, err)
			res.Retained = inv.Count(freq.Class)
			log.Error("snapshot creation failed", "snapshot", dest, "error", err)
			return res
		}

		inv.Add(snapshots.Record{
			Class:     freq.Class,
			Timestamp: now.Format(snapshots.TimestampLayout),
			Name:      name,
		})
		res.Created = name
	} else {
		log.Debug("class not due")
	}

	res.Deleted, res.Err = p.prune(ctx, log, source, dir, inv.Records(freq.Class), freq)
	res.Retained = inv.Count(freq.Class) - len(res.Deleted)
	return res
}

// prune deletes victims oldest first and stops at the first failure, leaving
// every snapshot not yet deleted in place.
func (p *Processor) prune(ctx context.Context, log *slog.Logger, source, dir string, records []snapshots.Record, freq config.Frequency) ([]string, error) {
	victims := snapshots.SelectVictims(records, freq.Keep)
	if len(victims) == 0 {
		return nil, nil
	}

	var deleted []string
	for _, v := range victims {
		path := filepath.Join(dir, v.Name)
		log.Info("removing old snapshot", "snapshot", path)

		if err := p.tool.DeleteSubvolume(ctx, path); err != nil {
			kept := len(victims) - len(deleted) - 1
			log.Error("snapshot deletion failed, keeping remaining snapshots",
				"snapshot", path, "remaining_victims", kept, "error", err)
			return deleted, fmt.Errorf("%w: subvolume %s, class %s, snapshot %s (keeping remaining snapshots): %w",
				ErrSnapshotDelete, source, freq.Class, v.Name, err)
		}
		deleted = append(deleted, v.Name)
	}

	return deleted, nil
}
