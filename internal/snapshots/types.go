// Package snapshots names, discovers and prunes on-disk snapshots.
//
// The snapshot directory is the only record of snapshot history: every run
// rebuilds its Inventory by scanning the directory and parsing entry names.
// No index or metadata store sits beside it.
package snapshots

import "github.com/blackwell-systems/snaprotate/internal/schedule"

// Record is a snapshot discovered in (or just added to) a snapshot directory.
type Record struct {
	Class     schedule.Class
	Timestamp string // fixed-width, sorts chronologically
	Name      string // directory entry name
}

// Inventory groups the snapshots of one subvolume by frequency class.
// Records of a class keep the order in which they were added.
type Inventory struct {
	byClass map[schedule.Class][]Record
}

// NewInventory returns an empty inventory.
func NewInventory() *Inventory {
	return &Inventory{byClass: make(map[schedule.Class][]Record)}
}

// Add appends r to the records of its class.
func (inv *Inventory) Add(r Record) {
	inv.byClass[r.Class] = append(inv.byClass[r.Class], r)
}

// Records returns the records of class c in insertion order.
func (inv *Inventory) Records(c schedule.Class) []Record {
	return inv.byClass[c]
}

// Count returns the number of records of class c.
func (inv *Inventory) Count(c schedule.Class) int {
	return len(inv.byClass[c])
}

// Len returns the total number of records across all classes.
func (inv *Inventory) Len() int {
	n := 0
	for _, rs := range inv.byClass {
		n += len(rs)
	}
	return n
}

// Newest returns the record of class c with the greatest timestamp.
func (inv *Inventory) Newest(c schedule.Class) (Record, bool) {
	rs := inv.byClass[c]
	if len(rs) == 0 {
		return Record{}, false
	}
	newest := rs[0]
	for _, r := range rs[1:] {
		if r.Timestamp > newest.Timestamp {
			newest = r
		}
	}
	return newest, true
}
