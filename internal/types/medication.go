package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Everyday is the sentinel recurrence value: the dose is due on every day of
// the week. Specific days use the abbreviations M, T, W, Th, F, Sa, Su.
const Everyday = "Everyday"

var weekdayAbbrevs = map[string]struct{}{
	"M": {}, "T": {}, "W": {}, "Th": {}, "F": {}, "Sa": {}, "Su": {},
}

// Medication is a named drug concept, deduplicated by exact name.
type Medication struct {
	ID          string `json:"id"`
	Name        string `json:"Name"`
	BrandName   string `json:"brandName,omitempty"`
	GenericName string `json:"genericName,omitempty"`
}

// DrugResult is one ranked hit from medication search.
type DrugResult struct {
	ID          string `json:"id"`
	Name        string `json:"Name"`
	BrandName   string `json:"brandName"`
	GenericName string `json:"genericName"`
}

// Schedule is the TAKES relationship payload: parallel arrays of dose times
// and pill counts, a recurrence day set, and a dosage string with unit
// suffix (e.g. "0.25mg").
type Schedule struct {
	Schedule     []string `json:"schedule"`
	PillsPerDose []int64  `json:"pillsPerDose"`
	Days         []string `json:"days"`
	Frequency    int64    `json:"frequency"`
	Dosage       string   `json:"dosage"`
}

// MedicationSchedule is a medication joined with its TAKES payload, as it
// appears in listings and metadata bundles.
type MedicationSchedule struct {
	Name         string   `json:"name"`
	Schedule     []string `json:"schedule"`
	Days         []string `json:"days"`
	PillsPerDose []int64  `json:"pillsPerDose"`
	Dosage       string   `json:"dosage"`
}

// MedicationDue is one (user, medication, scheduled time) reminder row.
type MedicationDue struct {
	UserID         string `json:"userId"`
	MedicationName string `json:"medicationName"`
	Phone          string `json:"phone"`
	ScheduledTime  string `json:"scheduledTime"`
}

// Intake statuses recorded on TOOK_MEDICATION.
const (
	IntakeTaken   = "taken"
	IntakeMissed  = "missed"
	IntakePending = "pending"
)

var ErrInvalidSchedule = errors.New("invalid medication schedule")

// Validate rejects malformed schedules before they reach the store:
// mismatched array lengths, a frequency that disagrees with the schedule,
// unparseable times, unknown day abbreviations, or non-positive pill counts.
func (s Schedule) Validate() error {
	if len(s.Schedule) == 0 {
		return fmt.Errorf("%w: empty schedule", ErrInvalidSchedule)
	}
	if len(s.Schedule) != len(s.PillsPerDose) {
		return fmt.Errorf("%w: schedule has %d entries but pillsPerDose has %d", ErrInvalidSchedule, len(s.Schedule), len(s.PillsPerDose))
	}
	if s.Frequency != int64(len(s.Schedule)) {
		return fmt.Errorf("%w: frequency %d does not match %d schedule entries", ErrInvalidSchedule, s.Frequency, len(s.Schedule))
	}
	for _, t := range s.Schedule {
		if _, err := ParseClockMinutes(t); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
		}
	}
	for _, n := range s.PillsPerDose {
		if n <= 0 {
			return fmt.Errorf("%w: pillsPerDose must be positive, got %d", ErrInvalidSchedule, n)
		}
	}
	if len(s.Days) == 0 {
		return fmt.Errorf("%w: empty days", ErrInvalidSchedule)
	}
	for _, d := range s.Days {
		if d == Everyday {
			continue
		}
		if _, ok := weekdayAbbrevs[d]; !ok {
			return fmt.Errorf("%w: unknown day %q", ErrInvalidSchedule, d)
		}
	}
	return nil
}

// ParseClockMinutes converts an "HH:MM" 24-hour string to minutes since
// midnight.
func ParseClockMinutes(v string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(v), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("time %q is not HH:MM", v)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("time %q has invalid hour", v)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("time %q has invalid minute", v)
	}
	return h*60 + m, nil
}
