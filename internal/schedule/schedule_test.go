package schedule

import (
	"testing"
	"time"
)

func at(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 7, 0, time.UTC)
}

func TestParseClass(t *testing.T) {
	tests := []struct {
		input   string
		want    Class
		wantErr bool
	}{
		{"frequently", Frequently, false},
		{"Hourly", Hourly, false},
		{" DAILY ", Daily, false},
		{"monthly", Monthly, false},
		{"yearly", Yearly, false},
		{"weekly", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseClass(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q, got class %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseClass(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseClass(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTagsAreDistinctAndRoundTrip(t *testing.T) {
	seen := make(map[string]bool)
	for _, c := range All() {
		tag := c.Tag()
		if seen[tag] {
			t.Errorf("duplicate tag %q", tag)
		}
		seen[tag] = true

		back, ok := ClassFromTag(tag)
		if !ok || back != c {
			t.Errorf("ClassFromTag(%q) = %v, %v; want %v, true", tag, back, ok, c)
		}
	}

	if _, ok := ClassFromTag("Hourly"); ok {
		t.Error("expected ClassFromTag to be case-sensitive")
	}
}

func TestIsPreferredMoment(t *testing.T) {
	tests := []struct {
		name  string
		class Class
		now   time.Time
		want  bool
	}{
		{"frequently on quarter", Frequently, at(2024, 3, 5, 10, 45), true},
		{"frequently on the hour", Frequently, at(2024, 3, 5, 10, 0), true},
		{"frequently off quarter", Frequently, at(2024, 3, 5, 10, 44), false},
		{"hourly on the hour", Hourly, at(2024, 3, 5, 10, 0), true},
		{"hourly at quarter past", Hourly, at(2024, 3, 5, 10, 15), false},
		{"daily at midnight", Daily, at(2024, 3, 5, 0, 0), true},
		{"daily at 01:00", Daily, at(2024, 3, 5, 1, 0), false},
		{"daily at 00:15", Daily, at(2024, 3, 5, 0, 15), false},
		{"monthly on the first", Monthly, at(2024, 3, 1, 0, 0), true},
		{"monthly on the second", Monthly, at(2024, 3, 2, 0, 0), false},
		{"monthly on the first at noon", Monthly, at(2024, 3, 1, 12, 0), false},
		{"yearly on new year", Yearly, at(2025, 1, 1, 0, 0), true},
		{"yearly on first of february", Yearly, at(2025, 2, 1, 0, 0), false},
		{"invalid class", Class(42), at(2025, 1, 1, 0, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPreferredMoment(tt.class, tt.now); got != tt.want {
				t.Errorf("IsPreferredMoment(%v, %v) = %v, want %v", tt.class, tt.now, got, tt.want)
			}
		})
	}
}

func TestIsDue(t *testing.T) {
	offHour := at(2024, 3, 5, 10, 7)
	onHour := at(2024, 3, 5, 10, 0)

	if !IsDue(Hourly, offHour, 0) {
		t.Error("expected a class with no snapshots to be due")
	}
	if IsDue(Hourly, offHour, 3) {
		t.Error("expected hourly with existing snapshots to not be due off the hour")
	}
	if !IsDue(Hourly, onHour, 3) {
		t.Error("expected hourly to be due on the hour")
	}
	if IsDue(Yearly, onHour, 1) {
		t.Error("expected yearly to not be due in March")
	}
}
