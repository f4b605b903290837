// Package schedule defines the snapshot frequency classes and decides when a
// class is due for a new snapshot.
//
// A Class carries identity only. How many snapshots of a class to keep is a
// property of the subvolume it is configured on, see config.Frequency.
package schedule

import (
	"fmt"
	"strings"
)

// Class is a snapshot frequency class.
type Class int

const (
	Frequently Class = iota
	Hourly
	Daily
	Monthly
	Yearly
)

// tags are written into snapshot names and re-parsed on later runs, so they
// must never change.
var tags = [...]string{
	Frequently: "frequently",
	Hourly:     "hourly",
	Daily:      "daily",
	Monthly:    "monthly",
	Yearly:     "yearly",
}

// All returns every class from most to least frequent.
func All() []Class {
	return []Class{Frequently, Hourly, Daily, Monthly, Yearly}
}

// Tag returns the lowercase name used in snapshot names.
func (c Class) Tag() string {
	if !c.Valid() {
		return fmt.Sprintf("class(%d)", int(c))
	}
	return tags[c]
}

// String implements fmt.Stringer.
func (c Class) String() string {
	return c.Tag()
}

// Valid reports whether c is one of the known classes.
func (c Class) Valid() bool {
	return c >= Frequently && c <= Yearly
}

// ClassFromTag maps an exact snapshot-name tag back to its class.
func ClassFromTag(tag string) (Class, bool) {
	for i, t := range tags {
		if t == tag {
			return Class(i), true
		}
	}
	return 0, false
}

// ParseClass parses a class name from configuration. Matching is
// case-insensitive so "Hourly" and "hourly" are both accepted.
func ParseClass(s string) (Class, error) {
	c, ok := ClassFromTag(strings.ToLower(strings.TrimSpace(s)))
	if !ok {
		return 0, fmt.Errorf("unknown frequency class %q (want one of %s)", s, strings.Join(tags[:], ", "))
	}
	return c, nil
}
