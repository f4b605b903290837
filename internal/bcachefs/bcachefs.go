// Package bcachefs wraps the bcachefs command-line tool.
//
// Only the two subvolume operations snapshot rotation needs are exposed:
// creating a read-only snapshot and deleting a subvolume. Both run the tool
// synchronously and report a non-zero exit as an *ExitError.
package bcachefs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"syscall"
)

// DefaultBinary is looked up in PATH when no binary is configured.
const DefaultBinary = "bcachefs"

// ExitError reports that the tool ran but exited unsuccessfully.
type ExitError struct {
	Op     string // "snapshot" or "delete"
	Path   string // snapshot path the operation targeted
	Code   int    // -1 when the tool was killed by a signal
	Signal os.Signal
	Output string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("bcachefs %s command failed with exit code %d: '%s'", e.Op, e.Code, e.Path)
	if e.Signal != nil {
		msg = fmt.Sprintf("bcachefs %s command killed by signal %s: '%s'", e.Op, e.Signal, e.Path)
	}
	if e.Output != "" {
		msg += fmt.Sprintf(" (output: %s)", e.Output)
	}
	return msg
}

// Runner invokes the bcachefs binary.
type Runner struct {
	binary string
	logger *slog.Logger
}

// New returns a Runner for binary. An empty binary means DefaultBinary.
func New(binary string, logger *slog.Logger) *Runner {
	if binary == "" {
		binary = DefaultBinary
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		binary: binary,
		logger: logger.With("component", "bcachefs"),
	}
}

// Binary returns the configured binary name or path.
func (r *Runner) Binary() string {
	return r.binary
}

// CreateReadonlySnapshot snapshots the subvolume at source into dest.
func (r *Runner) CreateReadonlySnapshot(ctx context.Context, source, dest string) error {
	return r.run(ctx, "snapshot", dest, snapshotArgs(source, dest))
}

// DeleteSubvolume deletes the subvolume (snapshot) at path.
func (r *Runner) DeleteSubvolume(ctx context.Context, path string) error {
	return r.run(ctx, "delete", path, deleteArgs(path))
}

// Version returns the first line printed by "bcachefs version".
func (r *Runner) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, r.binary, "version").Output()
	if err != nil {
		return "", fmt.Errorf("failed to execute %s version: %w", r.binary, err)
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	if line == "" {
		return "", fmt.Errorf("empty %s version output", r.binary)
	}
	return line, nil
}

func (r *Runner) run(ctx context.Context, op, target string, args []string) error {
	r.logger.Debug("running bcachefs", "op", op, "args", args)

	cmd := exec.CommandContext(ctx, r.binary, args...)
	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	err := cmd.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		e := &ExitError{
			Op:     op,
			Path:   target,
			Code:   exitErr.ExitCode(),
			Output: strings.TrimSpace(combined.String()),
		}
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			e.Signal = ws.Signal()
		}
		return e
	}
	return fmt.Errorf("failed to execute %s subvolume %s for '%s': %w", r.binary, op, target, err)
}

func snapshotArgs(source, dest string) []string {
	return []string{"subvolume", "snapshot", "-r", source, dest}
}

func deleteArgs(path string) []string {
	return []string{"subvolume", "delete", path}
}
