package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/blackwell-systems/snaprotate/internal/schedule"
)

// matches $(VAR_NAME)
var envPattern = regexp.MustCompile(`\$\(([A-Za-z0-9_]+)\)`)

// expandEnvVars replaces $(VAR) with os.Getenv(VAR).
func expandEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(m string) string {
		return os.Getenv(envPattern.FindStringSubmatch(m)[1])
	})
}

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a YAML document. Unknown keys are rejected so
// a misspelled key cannot silently drop a subvolume's classes.
func Parse(data []byte) (*Config, error) {
	var raw file
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expandEnvVars(string(data)))))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		var typeErr *yaml.TypeError
		if errors.As(err, &typeErr) {
			return nil, fmt.Errorf("%w: %s", ErrInvalid, strings.Join(typeErr.Errors, "; "))
		}
		return nil, fmt.Errorf("unmarshalling yaml: %w", err)
	}

	cfg := &Config{
		Tool:        strings.TrimSpace(raw.Tool),
		SnapshotDir: raw.SnapshotDir,
		Schedule:    strings.TrimSpace(raw.Schedule),
		Journal:     raw.Journal,
		MetricsFile: raw.MetricsFile,
		Logging:     raw.Logging,
	}

	if cfg.SnapshotDir == "" {
		cfg.SnapshotDir = DefaultSnapshotDir
	}
	if cfg.SnapshotDir != filepath.Base(cfg.SnapshotDir) || cfg.SnapshotDir == "." || cfg.SnapshotDir == ".." {
		return nil, fmt.Errorf("%w: snapshotDir %q must be a single directory name", ErrInvalid, cfg.SnapshotDir)
	}

	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("%w: schedule %q: %v", ErrInvalid, cfg.Schedule, err)
	}

	if err := validateLogging(cfg.Logging); err != nil {
		return nil, err
	}

	seenPaths := make(map[string]bool)
	for i, sv := range raw.Subvolumes {
		if sv.Path == "" {
			return nil, fmt.Errorf("%w: subvolume #%d has no path", ErrInvalid, i+1)
		}
		if !filepath.IsAbs(sv.Path) {
			return nil, fmt.Errorf("%w: subvolume path %q must be absolute", ErrInvalid, sv.Path)
		}
		path := filepath.Clean(sv.Path)
		if seenPaths[path] {
			return nil, fmt.Errorf("%w: subvolume %s listed more than once", ErrInvalid, path)
		}
		seenPaths[path] = true

		out := Subvolume{Path: path}
		seenClasses := make(map[schedule.Class]bool)
		for _, f := range sv.Frequencies {
			class, err := schedule.ParseClass(f.Class)
			if err != nil {
				return nil, fmt.Errorf("%w: subvolume %s: %v", ErrInvalid, path, err)
			}
			if seenClasses[class] {
				return nil, fmt.Errorf("%w: subvolume %s: class %s configured more than once", ErrInvalid, path, class)
			}
			seenClasses[class] = true

			if f.Keep == nil {
				return nil, fmt.Errorf("%w: subvolume %s: class %s has no keep count", ErrInvalid, path, class)
			}
			if *f.Keep < 0 {
				return nil, fmt.Errorf("%w: subvolume %s: class %s keep must be >= 0, got %d", ErrInvalid, path, class, *f.Keep)
			}

			out.Frequencies = append(out.Frequencies, Frequency{Class: class, Keep: *f.Keep})
		}

		cfg.Subvolumes = append(cfg.Subvolumes, out)
	}

	return cfg, nil
}

func validateLogging(l LoggingConfig) error {
	switch strings.ToLower(l.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging.level %q", ErrInvalid, l.Level)
	}
	switch strings.ToLower(l.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: logging.format %q", ErrInvalid, l.Format)
	}
	return nil
}

// SnapshotPath returns the snapshot storage directory of sv.
func (c *Config) SnapshotPath(sv Subvolume) string {
	return filepath.Join(sv.Path, c.SnapshotDir)
}
