package event

import (
	"testing"
	"time"

	"calsched/internal/timeutil"
)

func mustLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("Failed to load location %s: %v", name, err)
	}
	return loc
}

func mustEvent(t *testing.T, subject string, start, end time.Time) Event {
	t.Helper()
	e, err := New(subject, start, end, "", "", false)
	if err != nil {
		t.Fatalf("Failed to create event %q: %v", subject, err)
	}
	return e
}

func timedEvent(t *testing.T, subject, startStr, endStr string, loc *time.Location) Event {
	t.Helper()
	start, err := timeutil.ParseDateTime(startStr, loc)
	if err != nil {
		t.Fatalf("Failed to parse %q: %v", startStr, err)
	}
	end, err := timeutil.ParseDateTime(endStr, loc)
	if err != nil {
		t.Fatalf("Failed to parse %q: %v", endStr, err)
	}
	return mustEvent(t, subject, *start, *end)
}

func allDayEvent(t *testing.T, subject, dateStr string, loc *time.Location) Event {
	t.Helper()
	start, err := timeutil.ParseDate(dateStr, loc)
	if err != nil {
		t.Fatalf("Failed to parse %q: %v", dateStr, err)
	}
	return mustEvent(t, subject, *start, start.AddDate(0, 0, 1))
}

func TestNew_Validation(t *testing.T) {
	loc := time.UTC
	start := time.Date(2025, 3, 3, 10, 0, 0, 0, loc)
	end := time.Date(2025, 3, 3, 11, 0, 0, 0, loc)

	if _, err := New("   ", start, end, "", "", false); err == nil {
		t.Error("Expected error for blank subject")
	}
	if _, err := New("Meeting", end, start, "", "", false); err == nil {
		t.Error("Expected error for end before start")
	}
	if _, err := New("Meeting", start, start, "", "", false); err == nil {
		t.Error("Expected error for zero-length event")
	}

	e, err := New("  Meeting  ", start, end, "", "", false)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if e.Subject != "Meeting" {
		t.Errorf("Expected trimmed subject, got %q", e.Subject)
	}
	if e.AllDay {
		t.Error("Timed event should not be all-day")
	}
}

func TestNew_DerivesAllDay(t *testing.T) {
	eastern := mustLocation(t, "America/New_York")
	e := allDayEvent(t, "Holiday", "2025-03-03", eastern)
	if !e.AllDay {
		t.Error("Midnight-to-midnight event should be all-day")
	}

	// Midnight endpoints in the event's own zone are what counts.
	timed := timedEvent(t, "Late", "2025-03-03T00:00", "2025-03-03T01:00", eastern)
	if timed.AllDay {
		t.Error("Event ending at 01:00 should not be all-day")
	}
}

func TestLess_Ordering(t *testing.T) {
	loc := time.UTC
	a := timedEvent(t, "A", "2025-03-03T09:00", "2025-03-03T10:00", loc)
	b := timedEvent(t, "B", "2025-03-03T09:00", "2025-03-03T11:00", loc)
	c := timedEvent(t, "C", "2025-03-03T10:00", "2025-03-03T11:00", loc)

	if !a.Less(b) {
		t.Error("Equal starts should order by end ascending")
	}
	if !a.Less(c) || !b.Less(c) {
		t.Error("Earlier start should order first")
	}
	if c.Less(a) {
		t.Error("Ordering should not be symmetric")
	}
}

func TestConflictsWith_Timed(t *testing.T) {
	loc := time.UTC
	a := timedEvent(t, "A", "2025-03-03T09:00", "2025-03-03T10:00", loc)
	overlapping := timedEvent(t, "B", "2025-03-03T09:30", "2025-03-03T10:30", loc)
	backToBack := timedEvent(t, "C", "2025-03-03T10:00", "2025-03-03T11:00", loc)
	separate := timedEvent(t, "D", "2025-03-03T12:00", "2025-03-03T13:00", loc)

	if !a.ConflictsWith(overlapping) {
		t.Error("Overlapping events must conflict")
	}
	if a.ConflictsWith(backToBack) {
		t.Error("Back-to-back events must not conflict")
	}
	if a.ConflictsWith(separate) {
		t.Error("Disjoint events must not conflict")
	}
}

func TestConflictsWith_AllDay(t *testing.T) {
	eastern := mustLocation(t, "America/New_York")

	holiday := allDayEvent(t, "Holiday", "2025-03-03", eastern)
	sameDay := allDayEvent(t, "Other", "2025-03-03", eastern)
	nextDay := allDayEvent(t, "Next", "2025-03-04", eastern)
	meeting := timedEvent(t, "Meeting", "2025-03-03T10:00", "2025-03-03T11:00", eastern)
	elsewhere := timedEvent(t, "Elsewhere", "2025-03-05T10:00", "2025-03-05T11:00", eastern)

	if !holiday.ConflictsWith(sameDay) {
		t.Error("Two all-day events on the same date must conflict")
	}
	if holiday.ConflictsWith(nextDay) {
		t.Error("All-day events on different dates must not conflict")
	}
	if !holiday.ConflictsWith(meeting) {
		t.Error("All-day event must conflict with a timed event that day")
	}
	if holiday.ConflictsWith(elsewhere) {
		t.Error("All-day event must not conflict with a timed event on another day")
	}
}

func TestConflictsWith_Symmetric(t *testing.T) {
	eastern := mustLocation(t, "America/New_York")

	events := []Event{
		allDayEvent(t, "AllDay", "2025-03-03", eastern),
		timedEvent(t, "Morning", "2025-03-03T09:00", "2025-03-03T10:00", eastern),
		timedEvent(t, "Overlap", "2025-03-03T09:30", "2025-03-03T10:30", eastern),
		timedEvent(t, "Span", "2025-03-02T23:00", "2025-03-03T01:00", eastern),
		allDayEvent(t, "Later", "2025-03-05", eastern),
	}

	for i, a := range events {
		for j, b := range events {
			if a.ConflictsWith(b) != b.ConflictsWith(a) {
				t.Errorf("conflictsWith not symmetric for %d vs %d", i, j)
			}
		}
	}
}

func TestOccursOn(t *testing.T) {
	loc := time.UTC
	e := timedEvent(t, "Trip", "2025-03-03T12:00", "2025-03-06T09:00", loc)

	for _, dateStr := range []string{"2025-03-03", "2025-03-04", "2025-03-05", "2025-03-06"} {
		date, _ := timeutil.ParseDate(dateStr, loc)
		if !e.OccursOn(*date) {
			t.Errorf("Event should occur on %s", dateStr)
		}
	}

	before, _ := timeutil.ParseDate("2025-03-02", loc)
	after, _ := timeutil.ParseDate("2025-03-07", loc)
	if e.OccursOn(*before) || e.OccursOn(*after) {
		t.Error("Event should not occur outside its span")
	}
}

func TestOverlapsRange(t *testing.T) {
	loc := time.UTC
	e := timedEvent(t, "Meeting", "2025-03-03T10:00", "2025-03-03T11:00", loc)

	winStart := time.Date(2025, 3, 3, 11, 0, 0, 0, loc)
	winEnd := time.Date(2025, 3, 3, 12, 0, 0, 0, loc)
	if !e.OverlapsRange(winStart, winEnd) {
		t.Error("Event ending exactly at window start overlaps the window")
	}

	if e.OverlapsRange(time.Date(2025, 3, 3, 11, 1, 0, 0, loc), winEnd) {
		t.Error("Event ending before the window should not overlap")
	}
}

func TestInProgressAt(t *testing.T) {
	loc := time.UTC
	e := timedEvent(t, "Meeting", "2025-03-03T10:00", "2025-03-03T11:00", loc)

	if !e.InProgressAt(time.Date(2025, 3, 3, 10, 0, 0, 0, loc)) {
		t.Error("Event is in progress at its exact start instant")
	}
	if e.InProgressAt(time.Date(2025, 3, 3, 11, 0, 0, 0, loc)) {
		t.Error("Event is not in progress at its exact end instant")
	}
	if !e.InProgressAt(time.Date(2025, 3, 3, 10, 30, 0, 0, loc)) {
		t.Error("Event is in progress mid-way")
	}
}

func TestCopy_CivilShift(t *testing.T) {
	eastern := mustLocation(t, "America/New_York")
	pacific := mustLocation(t, "America/Los_Angeles")

	e := timedEvent(t, "Meeting", "2025-03-03T10:00", "2025-03-03T11:00", eastern)
	copied := e.Copy(120, pacific)

	wantStart := time.Date(2025, 3, 3, 12, 0, 0, 0, pacific)
	wantEnd := time.Date(2025, 3, 3, 13, 0, 0, 0, pacific)
	if !copied.Start.Equal(wantStart) || !copied.End.Equal(wantEnd) {
		t.Errorf("Expected %v-%v, got %v-%v", wantStart, wantEnd, copied.Start, copied.End)
	}
	if copied.AllDay {
		t.Error("Timed copy should not be all-day")
	}
}

func TestCopy_AllDayStaysAllDay(t *testing.T) {
	eastern := mustLocation(t, "America/New_York")
	pacific := mustLocation(t, "America/Los_Angeles")

	e := allDayEvent(t, "Holiday", "2025-01-01", eastern)
	copied := e.Copy(9*timeutil.MinutesPerDay, pacific)

	wantStart := time.Date(2025, 1, 10, 0, 0, 0, 0, pacific)
	if !copied.Start.Equal(wantStart) {
		t.Errorf("Expected start %v, got %v", wantStart, copied.Start)
	}
	if !copied.AllDay {
		t.Error("Day-granular copy of an all-day event must stay all-day")
	}
}

func TestRezone_PreservesInstant(t *testing.T) {
	eastern := mustLocation(t, "America/New_York")
	pacific := mustLocation(t, "America/Los_Angeles")

	e := timedEvent(t, "Meeting", "2025-01-15T10:00", "2025-01-15T11:00", eastern)
	moved := e.Rezone(pacific)

	if !moved.Start.Equal(e.Start) || !moved.End.Equal(e.End) {
		t.Error("Rezone must preserve instants")
	}
	if moved.Start.Hour() != 7 {
		t.Errorf("Expected wall clock 07:00 in Pacific, got %02d:00", moved.Start.Hour())
	}
}
