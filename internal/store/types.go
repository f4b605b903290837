package store

import "time"

// Run is one recorded rotation pass.
type Run struct {
	ID             string
	StartedAt      time.Time
	DryRun         bool
	SubvolumeCount int
	FailedCount    int
	Created        int
	Deleted        int
	Errors         int
}

// Action kinds.
const (
	ActionCreate = "create"
	ActionDelete = "delete"
	ActionError  = "error"
)

// Action is a single snapshot operation or failure within a run.
type Action struct {
	RunID     string
	Subvolume string
	Class     string // empty for subvolume-level errors
	Action    string // "create", "delete" or "error"
	Snapshot  string
	Error     string
}
