package schedule

import "time"

// IsPreferredMoment reports whether now falls on the cadence boundary of c.
// Only the wall-clock fields of now are inspected, in now's own location.
func IsPreferredMoment(c Class, now time.Time) bool {
	minute := now.Minute()
	midnight := now.Hour() == 0 && minute == 0

	switch c {
	case Frequently:
		return minute%15 == 0
	case Hourly:
		return minute == 0
	case Daily:
		return midnight
	case Monthly:
		return now.Day() == 1 && midnight
	case Yearly:
		return now.Month() == time.January && now.Day() == 1 && midnight
	default:
		return false
	}
}

// IsDue reports whether a new snapshot of class c should be taken at now.
// existing is the number of snapshots of c already on disk; a class with none
// is always due so the first snapshot is never skipped.
func IsDue(c Class, now time.Time, existing int) bool {
	return existing == 0 || IsPreferredMoment(c, now)
}
