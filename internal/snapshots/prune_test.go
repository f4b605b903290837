package snapshots

import (
	"fmt"
	"testing"

	"github.com/blackwell-systems/snaprotate/internal/schedule"
)

func hourly(ts string) Record {
	return Record{Class: schedule.Hourly, Timestamp: ts, Name: ts + "_hourly"}
}

func names(rs []Record) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Name
	}
	return out
}

func TestSelectVictims(t *testing.T) {
	t1 := hourly("2024-03-05-090000")
	t2 := hourly("2024-03-05-100000")
	t3 := hourly("2024-03-05-110000")
	t4 := hourly("2024-03-05-120000")

	tests := []struct {
		name    string
		records []Record
		keep    int
		want    []Record
	}{
		{"empty", nil, 3, nil},
		{"under keep", []Record{t1, t2}, 3, nil},
		{"exactly keep", []Record{t1, t2, t3}, 3, nil},
		{"ordered input", []Record{t1, t2, t3, t4}, 2, []Record{t1, t2}},
		{"shuffled input", []Record{t3, t1, t4, t2}, 2, []Record{t1, t2}},
		{"keep zero deletes all", []Record{t4, t2}, 0, []Record{t2, t4}},
		{"negative keep treated as zero", []Record{t1}, -1, []Record{t1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectVictims(tt.records, tt.keep)
			if fmt.Sprint(names(got)) != fmt.Sprint(names(tt.want)) {
				t.Errorf("SelectVictims() = %v, want %v", names(got), names(tt.want))
			}
		})
	}
}

func TestSelectVictimsTiesKeepScanOrder(t *testing.T) {
	a := Record{Class: schedule.Hourly, Timestamp: "2024-03-05-100000", Name: "a"}
	b := Record{Class: schedule.Hourly, Timestamp: "2024-03-05-100000", Name: "b"}
	c := Record{Class: schedule.Hourly, Timestamp: "2024-03-05-100000", Name: "c"}

	got := SelectVictims([]Record{b, a, c}, 1)
	if fmt.Sprint(names(got)) != "[b a]" {
		t.Errorf("expected ties broken by input order [b a], got %v", names(got))
	}
}

func TestSelectVictimsLeavesInputUntouched(t *testing.T) {
	in := []Record{hourly("2024-03-05-120000"), hourly("2024-03-05-090000")}
	SelectVictims(in, 1)
	if in[0].Timestamp != "2024-03-05-120000" {
		t.Error("expected SelectVictims not to reorder its input")
	}
}

func TestSelectVictimsKeepsNewest(t *testing.T) {
	var records []Record
	for i := 20; i > 0; i-- {
		records = append(records, hourly(fmt.Sprintf("2024-03-05-%02d0000", i)))
	}

	for keep := 0; keep <= 25; keep++ {
		victims := SelectVictims(records, keep)

		wantRemaining := keep
		if len(records) < keep {
			wantRemaining = len(records)
		}
		if got := len(records) - len(victims); got != wantRemaining {
			t.Errorf("keep=%d: expected %d remaining, got %d", keep, wantRemaining, got)
		}

		deleted := make(map[string]bool)
		for _, v := range victims {
			deleted[v.Name] = true
		}
		for _, r := range records {
			if deleted[r.Name] {
				continue
			}
			for _, v := range victims {
				if v.Timestamp > r.Timestamp {
					t.Errorf("keep=%d: deleted %s which is newer than kept %s", keep, v.Name, r.Name)
				}
			}
		}
	}
}
