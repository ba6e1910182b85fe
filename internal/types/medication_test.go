package types

import (
	"errors"
	"testing"
)

func validSchedule() Schedule {
	return Schedule{
		Schedule:     []string{"08:00", "20:00"},
		PillsPerDose: []int64{1, 2},
		Days:         []string{Everyday},
		Frequency:    2,
		Dosage:       "0.25mg",
	}
}

func TestScheduleValidateAccepts(t *testing.T) {
	if err := validSchedule().Validate(); err != nil {
		t.Fatalf("expected valid schedule, got %v", err)
	}
	s := validSchedule()
	s.Days = []string{"M", "Th", "Sa"}
	if err := s.Validate(); err != nil {
		t.Fatalf("expected weekday list to validate, got %v", err)
	}
}

func TestScheduleValidateRejectsLengthMismatch(t *testing.T) {
	s := validSchedule()
	s.PillsPerDose = []int64{1, 2, 3}
	err := s.Validate()
	if !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("expected ErrInvalidSchedule, got %v", err)
	}
}

func TestScheduleValidateRejectsFrequencyMismatch(t *testing.T) {
	s := validSchedule()
	s.Frequency = 3
	if err := s.Validate(); !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("expected ErrInvalidSchedule, got %v", err)
	}
}

func TestScheduleValidateRejectsBadTimeAndDay(t *testing.T) {
	s := validSchedule()
	s.Schedule = []string{"8am", "20:00"}
	if err := s.Validate(); !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("expected bad time to fail, got %v", err)
	}

	s = validSchedule()
	s.Days = []string{"Mon"}
	if err := s.Validate(); !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("expected unknown day to fail, got %v", err)
	}

	s = validSchedule()
	s.PillsPerDose = []int64{0, 2}
	if err := s.Validate(); !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("expected zero pill count to fail, got %v", err)
	}
}

func TestParseClockMinutes(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"00:00", 0, true},
		{"08:15", 495, true},
		{"23:59", 1439, true},
		{" 09:30 ", 570, true},
		{"24:00", 0, false},
		{"12:60", 0, false},
		{"noon", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseClockMinutes(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("ParseClockMinutes(%q) = %d, %v; want %d", tc.in, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Fatalf("ParseClockMinutes(%q) succeeded, want error", tc.in)
		}
	}
}
