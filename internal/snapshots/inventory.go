package snapshots

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Scan lists dir (non-recursively) and classifies every entry whose name
// parses as a managed snapshot. Unrelated entries are ignored. Records keep
// the order of the directory listing.
//
// A missing directory yields an empty inventory.
func Scan(dir string) (*Inventory, error) {
	inv := NewInventory()

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return inv, nil
		}
		return nil, fmt.Errorf("failed to read snapshot directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if rec, ok := ParseName(entry.Name()); ok {
			inv.Add(rec)
		}
	}

	return inv, nil
}
