package snapshots

import (
	"strings"
	"time"

	"github.com/blackwell-systems/snaprotate/internal/schedule"
)

// TimestampLayout is the timestamp part of a snapshot name: YYYY-MM-DD-HHMMSS.
// It is fixed width so string order equals chronological order.
const TimestampLayout = "2006-01-02-150405"

const nameSeparator = "_"

// FormatName returns the snapshot name for class c taken at now,
// e.g. "2024-03-05-100000_hourly".
func FormatName(now time.Time, c schedule.Class) string {
	return now.Format(TimestampLayout) + nameSeparator + c.Tag()
}

// ParseName interprets a directory entry name. It returns false for anything
// that is not a managed snapshot: names without a separator, with an empty
// timestamp part, or whose last "_" segment is not a known class tag.
func ParseName(name string) (Record, bool) {
	idx := strings.LastIndex(name, nameSeparator)
	if idx <= 0 {
		return Record{}, false
	}

	class, ok := schedule.ClassFromTag(name[idx+1:])
	if !ok {
		return Record{}, false
	}

	return Record{
		Class:     class,
		Timestamp: name[:idx],
		Name:      name,
	}, true
}

// Time parses the record's timestamp in the local time zone. It returns false
// for timestamps not written by FormatName.
func (r Record) Time() (time.Time, bool) {
	t, err := time.ParseInLocation(TimestampLayout, r.Timestamp, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
