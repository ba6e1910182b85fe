// Package schedule holds the pure recurrence logic behind medication
// reminders: which (day, minute-band) segments a look-ahead window covers,
// and whether "now" sits on one of the twice-daily confirmation checkpoints.
// Everything here is deterministic in its inputs; callers inject a
// zone-anchored clock.
package schedule

import (
	"time"

	"github.com/poppacare/poppa-backend/internal/types"
)

const minutesPerDay = 24 * 60

var dayAbbrev = map[time.Weekday]string{
	time.Monday:    "M",
	time.Tuesday:   "T",
	time.Wednesday: "W",
	time.Thursday:  "Th",
	time.Friday:    "F",
	time.Saturday:  "Sa",
	time.Sunday:    "Su",
}

// DayAbbrev maps a weekday to the abbreviation persisted on TAKES.days.
func DayAbbrev(d time.Weekday) string {
	return dayAbbrev[d]
}

// Segment is one queryable slice of a due window: schedule entries on Day
// whose minutes-since-midnight m satisfy AfterMin < m < BeforeMin. The
// exclusive bounds carry one minute of slack on each side, so a window
// opening exactly on a dose time still includes it.
type Segment struct {
	Day       string
	AfterMin  int
	BeforeMin int
}

// Contains reports whether a schedule entry at m minutes since midnight on
// day falls inside the segment.
func (s Segment) Contains(day string, m int) bool {
	return day == s.Day && m > s.AfterMin && m < s.BeforeMin
}

// DueWindow computes the segments covered by [now, now+lookAhead]. A window
// that crosses midnight yields a second segment evaluated against the next
// day's abbreviation, so late-evening runs still catch doses due shortly
// after midnight.
func DueWindow(now time.Time, lookAhead time.Duration) []Segment {
	nowMin := now.Hour()*60 + now.Minute()
	endMin := nowMin + int(lookAhead.Minutes())
	today := DayAbbrev(now.Weekday())

	if endMin < minutesPerDay {
		return []Segment{{
			Day:       today,
			AfterMin:  nowMin - 1,
			BeforeMin: endMin + 1,
		}}
	}

	tomorrow := DayAbbrev(now.AddDate(0, 0, 1).Weekday())
	return []Segment{
		{Day: today, AfterMin: nowMin - 1, BeforeMin: minutesPerDay},
		{Day: tomorrow, AfterMin: -1, BeforeMin: endMin - minutesPerDay + 1},
	}
}

// DayMatches reports whether a recurrence day set covers day: membership of
// either the Everyday sentinel or the abbreviation itself. A multi-day list
// like ["M","Th","Sa"] matches on each listed day, never by list equality.
func DayMatches(days []string, day string) bool {
	for _, d := range days {
		if d == types.Everyday || d == day {
			return true
		}
	}
	return false
}

// Checkpoint identifies one of the two fixed daily confirmation slots.
type Checkpoint string

const (
	CheckpointNone Checkpoint = ""
	CheckpointAM   Checkpoint = "AM"
	CheckpointPM   Checkpoint = "PM"
)

// At reports which checkpoint an (hour, minute) pair lands on: 11:59 for the
// morning pass, 22:00 for the evening pass.
func At(hour, minute int) Checkpoint {
	switch {
	case hour == 11 && minute == 59:
		return CheckpointAM
	case hour == 22 && minute == 0:
		return CheckpointPM
	default:
		return CheckpointNone
	}
}

// CheckpointFor evaluates the gate against a zone-aware time.
func CheckpointFor(now time.Time) Checkpoint {
	return At(now.Hour(), now.Minute())
}

// HalfDayBounds returns the exclusive minute bounds of the half-day a
// checkpoint confirms: AM covers 00:00-11:59, PM covers 12:00-23:59.
func HalfDayBounds(cp Checkpoint) (afterMin, beforeMin int, ok bool) {
	switch cp {
	case CheckpointAM:
		return -1, 12 * 60, true
	case CheckpointPM:
		return 12*60 - 1, minutesPerDay, true
	default:
		return 0, 0, false
	}
}
