package snapshots

import "sort"

// SelectVictims returns the records to delete so that only the keep newest
// remain, oldest first. Records are ordered by Timestamp; equal timestamps
// keep their input order. records itself is not reordered.
func SelectVictims(records []Record, keep int) []Record {
	if keep < 0 {
		keep = 0
	}
	if len(records) <= keep {
		return nil
	}

	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	return sorted[:len(sorted)-keep]
}
