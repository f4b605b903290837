package snapshots

import (
	"testing"
	"time"

	"github.com/blackwell-systems/snaprotate/internal/schedule"
)

func TestFormatName(t *testing.T) {
	now := time.Date(2024, time.March, 5, 7, 4, 9, 0, time.UTC)

	tests := []struct {
		class schedule.Class
		want  string
	}{
		{schedule.Frequently, "2024-03-05-070409_frequently"},
		{schedule.Hourly, "2024-03-05-070409_hourly"},
		{schedule.Daily, "2024-03-05-070409_daily"},
		{schedule.Monthly, "2024-03-05-070409_monthly"},
		{schedule.Yearly, "2024-03-05-070409_yearly"},
	}

	for _, tt := range tests {
		t.Run(tt.class.Tag(), func(t *testing.T) {
			if got := FormatName(now, tt.class); got != tt.want {
				t.Errorf("FormatName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatNameSortsChronologically(t *testing.T) {
	times := []time.Time{
		time.Date(2023, time.December, 31, 23, 59, 59, 0, time.UTC),
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2024, time.January, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2024, time.October, 2, 0, 0, 0, 0, time.UTC),
	}

	for i := 1; i < len(times); i++ {
		prev := FormatName(times[i-1], schedule.Hourly)
		cur := FormatName(times[i], schedule.Hourly)
		if prev >= cur {
			t.Errorf("expected %q < %q", prev, cur)
		}
	}
}

func TestParseNameRoundTrip(t *testing.T) {
	now := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.Local)

	for _, c := range schedule.All() {
		name := FormatName(now, c)
		rec, ok := ParseName(name)
		if !ok {
			t.Fatalf("ParseName(%q) did not recognise a generated name", name)
		}
		if rec.Class != c {
			t.Errorf("ParseName(%q).Class = %v, want %v", name, rec.Class, c)
		}
		if rec.Timestamp != now.Format(TimestampLayout) {
			t.Errorf("ParseName(%q).Timestamp = %q", name, rec.Timestamp)
		}
		if rec.Name != name {
			t.Errorf("ParseName(%q).Name = %q", name, rec.Name)
		}
	}
}

func TestParseNameIgnoresForeignEntries(t *testing.T) {
	names := []string{
		"",
		"hourly",
		"_hourly",
		"lost+found",
		"2024-03-05-070409_weekly",
		"2024-03-05-070409_Hourly",
		"2024-03-05-070409_hourly.tmp",
		"notes.txt",
		"2024-03-05-070409_hourly_",
	}

	for _, name := range names {
		if rec, ok := ParseName(name); ok {
			t.Errorf("ParseName(%q) = %+v, expected not a snapshot", name, rec)
		}
	}
}

func TestParseNameUsesLastSeparator(t *testing.T) {
	rec, ok := ParseName("pre_upgrade_daily")
	if !ok {
		t.Fatal("expected name with daily suffix to parse")
	}
	if rec.Class != schedule.Daily {
		t.Errorf("expected class daily, got %v", rec.Class)
	}
	if rec.Timestamp != "pre_upgrade" {
		t.Errorf("expected timestamp part %q, got %q", "pre_upgrade", rec.Timestamp)
	}
}

func TestRecordTime(t *testing.T) {
	want := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.Local)
	r, ok := ParseName(FormatName(want, schedule.Hourly))
	if !ok {
		t.Fatal("expected name to parse")
	}
	got, ok := r.Time()
	if !ok || !got.Equal(want) {
		t.Errorf("expected %v, got %v (ok=%v)", want, got, ok)
	}

	foreign := Record{Class: schedule.Hourly, Timestamp: "backup"}
	if _, ok := foreign.Time(); ok {
		t.Error("expected non-layout timestamp to fail")
	}
}
