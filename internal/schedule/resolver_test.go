package schedule

import (
	"testing"
	"time"

	"github.com/poppacare/poppa-backend/internal/types"
)

// 2026-03-02 is a Monday.
func mondayAt(hour, min int) time.Time {
	return time.Date(2026, 3, 2, hour, min, 0, 0, time.UTC)
}

func TestDueWindowIncludesEntryInsideWindow(t *testing.T) {
	segs := DueWindow(mondayAt(8, 0), 15*time.Minute)
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	seg := segs[0]
	if seg.Day != "M" {
		t.Fatalf("day: want=M got=%q", seg.Day)
	}

	cases := []struct {
		clock string
		min   int
		want  bool
	}{
		{"08:00", 8 * 60, true},
		{"08:10", 8*60 + 10, true},
		{"08:15", 8*60 + 15, true},
		{"08:16", 8*60 + 16, false},
		{"07:59", 7*60 + 59, false},
	}
	for _, tc := range cases {
		if got := seg.Contains("M", tc.min); got != tc.want {
			t.Fatalf("%s: want=%v got=%v", tc.clock, tc.want, got)
		}
	}
}

func TestDueWindowDayDoesNotMatchOtherDays(t *testing.T) {
	segs := DueWindow(mondayAt(8, 0), 15*time.Minute)
	if segs[0].Contains("T", 8*60+10) {
		t.Fatalf("Tuesday entry matched a Monday segment")
	}
}

func TestDueWindowCrossesMidnight(t *testing.T) {
	segs := DueWindow(mondayAt(23, 55), 15*time.Minute)
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segs))
	}
	if segs[0].Day != "M" || segs[1].Day != "T" {
		t.Fatalf("days: got %q/%q", segs[0].Day, segs[1].Day)
	}
	// 23:58 tonight is still in the first segment.
	if !segs[0].Contains("M", 23*60+58) {
		t.Fatalf("23:58 Monday not included")
	}
	// 00:05 tomorrow lands in the spill-over segment.
	if !segs[1].Contains("T", 5) {
		t.Fatalf("00:05 Tuesday not included")
	}
	// 00:11 tomorrow is past the window.
	if segs[1].Contains("T", 11) {
		t.Fatalf("00:11 Tuesday should be excluded")
	}
}

func TestDueWindowEndsExactlyAtMidnight(t *testing.T) {
	// 23:45 + 15min = 24:00: the window end sits on midnight, which needs the
	// spill-over segment for a 00:00 dose.
	segs := DueWindow(mondayAt(23, 45), 15*time.Minute)
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segs))
	}
	if !segs[1].Contains("T", 0) {
		t.Fatalf("00:00 Tuesday not included")
	}
	if segs[1].Contains("T", 1) {
		t.Fatalf("00:01 Tuesday should be excluded")
	}
}

func TestDayMatchesEachListedDay(t *testing.T) {
	days := []string{"M", "Th", "Sa"}
	for _, d := range []string{"M", "Th", "Sa"} {
		if !DayMatches(days, d) {
			t.Fatalf("expected %v to match %q", days, d)
		}
	}
	for _, d := range []string{"T", "W", "F", "Su"} {
		if DayMatches(days, d) {
			t.Fatalf("expected %v not to match %q", days, d)
		}
	}
}

func TestDayMatchesEveryday(t *testing.T) {
	for _, d := range []string{"M", "T", "W", "Th", "F", "Sa", "Su"} {
		if !DayMatches([]string{types.Everyday}, d) {
			t.Fatalf("expected Everyday to match %q", d)
		}
	}
}

func TestDayMatchesEmptySet(t *testing.T) {
	if DayMatches(nil, "M") {
		t.Fatal("expected empty day set to match nothing")
	}
}

func TestDayAbbrevMapping(t *testing.T) {
	want := map[time.Weekday]string{
		time.Monday:    "M",
		time.Tuesday:   "T",
		time.Wednesday: "W",
		time.Thursday:  "Th",
		time.Friday:    "F",
		time.Saturday:  "Sa",
		time.Sunday:    "Su",
	}
	for d, abbrev := range want {
		if got := DayAbbrev(d); got != abbrev {
			t.Fatalf("%v: want=%q got=%q", d, abbrev, got)
		}
	}
}

func TestCheckpointGate(t *testing.T) {
	cases := []struct {
		hour, minute int
		want         Checkpoint
	}{
		{11, 59, CheckpointAM},
		{22, 0, CheckpointPM},
		{12, 0, CheckpointNone},
		{11, 58, CheckpointNone},
		{22, 1, CheckpointNone},
		{0, 0, CheckpointNone},
	}
	for _, tc := range cases {
		if got := At(tc.hour, tc.minute); got != tc.want {
			t.Fatalf("%02d:%02d: want=%q got=%q", tc.hour, tc.minute, tc.want, got)
		}
	}
}

func TestCheckpointForUsesZoneAwareTime(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 15:59 UTC in winter is 10:59 in New York; 16:59 UTC is 11:59.
	utc := time.Date(2026, 1, 5, 16, 59, 0, 0, time.UTC)
	if got := CheckpointFor(utc.In(loc)); got != CheckpointAM {
		t.Fatalf("want=AM got=%q", got)
	}
	if got := CheckpointFor(utc); got != CheckpointNone {
		t.Fatalf("UTC 16:59 should not gate, got %q", got)
	}
}

func TestHalfDayBounds(t *testing.T) {
	after, before, ok := HalfDayBounds(CheckpointAM)
	if !ok || after != -1 || before != 720 {
		t.Fatalf("AM bounds: got (%d,%d,%v)", after, before, ok)
	}
	after, before, ok = HalfDayBounds(CheckpointPM)
	if !ok || after != 719 || before != 1440 {
		t.Fatalf("PM bounds: got (%d,%d,%v)", after, before, ok)
	}
	if _, _, ok := HalfDayBounds(CheckpointNone); ok {
		t.Fatalf("none should not produce bounds")
	}
}
