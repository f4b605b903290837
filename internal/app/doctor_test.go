package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"path/filepath"
	"strings"
	"testing"
)

func stubVersion(t *testing.T, version string, err error) {
	t.Helper()
	old := versionFunc
	versionFunc = func(context.Context, string) (string, error) { return version, err }
	t.Cleanup(func() { versionFunc = old })
}

func TestDoctorCommand(t *testing.T) {
	if doctorCmd.Use != "doctor" {
		t.Errorf("expected Use to be 'doctor', got '%s'", doctorCmd.Use)
	}
	if doctorCmd.Short == "" || doctorCmd.Long == "" {
		t.Error("expected Short and Long to be set")
	}
}

func TestRunDoctor_AllGood(t *testing.T) {
	stubVersion(t, "bcachefs tool version v1.9.0", nil)

	subvol := t.TempDir()
	if err := os.Mkdir(filepath.Join(subvol, ".snapshots"), 0755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	withConfig(t, fmt.Sprintf("journal: %s\nsubvolumes:\n  - path: %s\n    frequencies:\n      - {class: hourly, keep: 24}\n",
		filepath.Join(t.TempDir(), "journal.db"), subvol))

	var out bytes.Buffer
	doctorCmd.SetOut(&out)
	defer doctorCmd.SetOut(nil)

	if err := runDoctor(doctorCmd, nil); err != nil {
		t.Fatalf("runDoctor() error: %v\n%s", err, out.String())
	}
	for _, want := range []string{"✓ Config loaded", "v1.9.0", "0 managed snapshot(s), 1 class(es)", "✓ Journal", "All checks passed"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out.String())
		}
	}
}

func TestRunDoctor_MissingToolAndSubvolume(t *testing.T) {
	stubVersion(t, "", errors.New("executable file not found in $PATH"))

	missing := filepath.Join(t.TempDir(), "gone")
	withConfig(t, fmt.Sprintf("subvolumes:\n  - path: %s\n    frequencies:\n      - {class: daily, keep: 1}\n", missing))

	var out bytes.Buffer
	doctorCmd.SetOut(&out)
	defer doctorCmd.SetOut(nil)

	err := runDoctor(doctorCmd, nil)
	if err == nil {
		t.Fatal("expected diagnostics to fail")
	}
	for _, want := range []string{"✗ bcachefs tool not usable", "✗ Subvolume " + missing, "2 critical issue(s)"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out.String())
		}
	}
}

func TestRunDoctor_WarningsOnly(t *testing.T) {
	stubVersion(t, "v1.9.0", nil)

	subvol := t.TempDir()
	withConfig(t, fmt.Sprintf("subvolumes:\n  - path: %s\n    frequencies:\n      - {class: daily, keep: 1}\n", subvol))

	var out bytes.Buffer
	doctorCmd.SetOut(&out)
	defer doctorCmd.SetOut(nil)

	if err := runDoctor(doctorCmd, nil); err != nil {
		t.Fatalf("expected warnings not to fail, got %v", err)
	}
	if !strings.Contains(out.String(), "created on first run") {
		t.Errorf("expected missing snapshot dir warning, got:\n%s", out.String())
	}
}

func TestRunDoctor_ConfigError(t *testing.T) {
	withConfig(t, "subvolumes:\n  - path: nope\n")

	var out bytes.Buffer
	doctorCmd.SetOut(&out)
	defer doctorCmd.SetOut(nil)

	if err := runDoctor(doctorCmd, nil); err == nil {
		t.Fatal("expected config error to fail diagnostics")
	}
	if !strings.Contains(out.String(), "✗ Config error") {
		t.Errorf("expected config error line, got:\n%s", out.String())
	}
}

func TestRunDoctor_CustomPIDFile(t *testing.T) {
	stubVersion(t, "v1.9.0", nil)

	pidFile := filepath.Join(t.TempDir(), "snaprotate.pid")
	if err := os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	old := doctorPIDFile
	doctorPIDFile = pidFile
	defer func() { doctorPIDFile = old }()

	withConfig(t, "subvolumes: []\n")

	var out bytes.Buffer
	doctorCmd.SetOut(&out)
	defer doctorCmd.SetOut(nil)

	if err := runDoctor(doctorCmd, nil); err != nil {
		t.Fatalf("expected warnings not to fail, got %v", err)
	}
	if !strings.Contains(out.String(), "✓ Daemon running: "+pidFile) {
		t.Errorf("expected daemon found via custom PID file, got:\n%s", out.String())
	}
}

func TestDoctorPIDFileFlag(t *testing.T) {
	flag := doctorCmd.Flags().Lookup("pid-file")
	if flag == nil {
		t.Fatal("expected --pid-file flag")
	}
	if flag.DefValue != defaultPIDFile {
		t.Errorf("expected default %s, got %s", defaultPIDFile, flag.DefValue)
	}
}
