package rotator

import (
	"errors"
	"time"

	"github.com/blackwell-systems/snaprotate/internal/schedule"
)

// Error kinds. Every error recorded in a Report wraps exactly one of these.
var (
	// ErrStorageDir: the snapshot directory could not be created. Aborts the subvolume.
	ErrStorageDir = errors.New("snapshot directory unavailable")
	// ErrInventoryScan: the snapshot directory could not be listed. Aborts the subvolume.
	ErrInventoryScan = errors.New("snapshot inventory scan failed")
	// ErrSnapshotCreate: the tool failed to create a snapshot. Aborts the class.
	ErrSnapshotCreate = errors.New("snapshot creation failed")
	// ErrSnapshotDelete: the tool failed to delete a snapshot. Stops pruning the class.
	ErrSnapshotDelete = errors.New("snapshot deletion failed")
)

// Report is the outcome of one pass over all configured subvolumes.
type Report struct {
	StartedAt  time.Time
	DryRun     bool
	Subvolumes []*SubvolumeResult
}

// Processed returns the number of subvolumes the pass visited.
func (r *Report) Processed() int {
	return len(r.Subvolumes)
}

// Failed returns the number of subvolumes that did not complete cleanly.
func (r *Report) Failed() int {
	n := 0
	for _, sv := range r.Subvolumes {
		if !sv.OK() {
			n++
		}
	}
	return n
}

// Errors returns every error recorded in the pass.
func (r *Report) Errors() []error {
	var errs []error
	for _, sv := range r.Subvolumes {
		errs = append(errs, sv.Errors()...)
	}
	return errs
}

// SubvolumeResult is the outcome for a single subvolume.
type SubvolumeResult struct {
	Path        string
	SnapshotDir string
	// Err is set when the subvolume was aborted before its classes ran.
	Err     error
	Classes []*ClassResult
}

// OK reports whether the subvolume completed without a subvolume-level
// error or a failed snapshot creation. Failed deletions are reported in the
// class result but do not fail the subvolume.
func (s *SubvolumeResult) OK() bool {
	if s.Err != nil {
		return false
	}
	for _, c := range s.Classes {
		if c.Err != nil && errors.Is(c.Err, ErrSnapshotCreate) {
			return false
		}
	}
	return true
}

// Errors returns the subvolume error followed by class errors.
func (s *SubvolumeResult) Errors() []error {
	var errs []error
	if s.Err != nil {
		errs = append(errs, s.Err)
	}
	for _, c := range s.Classes {
		if c.Err != nil {
			errs = append(errs, c.Err)
		}
	}
	return errs
}

// ClassResult is the outcome for one frequency class of a subvolume.
type ClassResult struct {
	Class    schedule.Class
	Keep     int
	Due      bool
	Created  string   // snapshot name, empty if none was created
	Deleted  []string // snapshot names, oldest first
	Retained int      // snapshots of the class left after pruning
	Err      error
}
