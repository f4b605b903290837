// Package config loads the snaprotate configuration file.
package config

import (
	"errors"
	"os"

	"github.com/blackwell-systems/snaprotate/internal/schedule"
)

// DefaultPath is read when neither --config nor SNAPROTATE_CONFIG is set.
const DefaultPath = "/etc/snaprotate.yaml"

// EnvPath overrides DefaultPath.
const EnvPath = "SNAPROTATE_CONFIG"

const (
	DefaultSnapshotDir = ".snapshots"
	DefaultSchedule    = "*/15 * * * *"
)

// ErrInvalid marks configuration that parsed but failed validation.
var ErrInvalid = errors.New("invalid config")

// Config is the validated configuration.
type Config struct {
	Tool        string
	SnapshotDir string
	Schedule    string
	Journal     string
	MetricsFile string
	Logging     LoggingConfig
	Subvolumes  []Subvolume
}

// LoggingConfig selects the default log level and format.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "text", "json"
}

// Subvolume is one snapshot-managed subvolume.
type Subvolume struct {
	Path        string
	Frequencies []Frequency
}

// Frequency pairs a class with how many of its snapshots this subvolume keeps.
type Frequency struct {
	Class schedule.Class
	Keep  int
}

// Path resolves the config file location: flag value, then $SNAPROTATE_CONFIG,
// then DefaultPath.
func Path(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(EnvPath); env != "" {
		return env
	}
	return DefaultPath
}

// file mirrors the YAML document before validation.
type file struct {
	Tool        string        `yaml:"tool"`
	SnapshotDir string        `yaml:"snapshotDir"`
	Schedule    string        `yaml:"schedule"`
	Journal     string        `yaml:"journal"`
	MetricsFile string        `yaml:"metricsFile"`
	Logging     LoggingConfig `yaml:"logging"`
	Subvolumes  []struct {
		Path        string `yaml:"path"`
		Frequencies []struct {
			Class string `yaml:"class"`
			Keep  *int   `yaml:"keep"`
		} `yaml:"frequencies"`
	} `yaml:"subvolumes"`
}
