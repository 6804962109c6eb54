package exchange

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"calsched/internal/event"
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

func mustEvent(t *testing.T, subject, startStr, endStr string, loc *time.Location, description, location string, private bool) event.Event {
	t.Helper()
	start, err := timeutil.ParseDateTime(startStr, loc)
	if err != nil {
		t.Fatalf("Failed to parse %q: %v", startStr, err)
	}
	end, err := timeutil.ParseDateTime(endStr, loc)
	if err != nil {
		t.Fatalf("Failed to parse %q: %v", endStr, err)
	}
	e, err := event.New(subject, *start, *end, description, location, private)
	if err != nil {
		t.Fatalf("Failed to create event %q: %v", subject, err)
	}
	return e
}

func TestCSV_RoundTrip(t *testing.T) {
	eastern := mustLocation(t, "America/New_York")
	events := []event.Event{
		mustEvent(t, "Meeting", "2025-03-03T10:00", "2025-03-03T11:30", eastern, "Weekly sync", "Room 4", true),
		mustEvent(t, "Holiday", "2025-03-04T00:00", "2025-03-05T00:00", eastern, "", "", false),
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, events); err != nil {
		t.Fatalf("Failed to write CSV: %v", err)
	}

	parsed, err := ReadCSV(&buf, eastern)
	if err != nil {
		t.Fatalf("Failed to read CSV back: %v", err)
	}
	if len(parsed) != len(events) {
		t.Fatalf("Expected %d events, got %d", len(events), len(parsed))
	}

	for i, want := range events {
		got := parsed[i]
		if got.Subject != want.Subject {
			t.Errorf("Event %d: expected subject %q, got %q", i, want.Subject, got.Subject)
		}
		if !got.Start.Equal(want.Start) || !got.End.Equal(want.End) {
			t.Errorf("Event %d: expected %v-%v, got %v-%v", i, want.Start, want.End, got.Start, got.End)
		}
		if got.AllDay != want.AllDay {
			t.Errorf("Event %d: all-day flag lost", i)
		}
		if got.Description != want.Description || got.Location != want.Location || got.Private != want.Private {
			t.Errorf("Event %d: optional fields lost", i)
		}
	}
}

func TestCSV_SeriesExportsAsOccurrences(t *testing.T) {
	eastern := mustLocation(t, "America/New_York")
	base := mustEvent(t, "Standup", "2025-05-05T09:00", "2025-05-05T09:15", eastern, "", "", false)
	series, err := event.NewSeries(base, []time.Weekday{time.Monday}, 2, nil)
	if err != nil {
		t.Fatalf("Failed to generate series: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, series); err != nil {
		t.Fatalf("Failed to write CSV: %v", err)
	}

	parsed, err := ReadCSV(&buf, eastern)
	if err != nil {
		t.Fatalf("Failed to read CSV back: %v", err)
	}
	if len(parsed) != 3 {
		t.Fatalf("Expected one row per occurrence, got %d", len(parsed))
	}
	for i, e := range parsed {
		if e.IsRecurring() {
			t.Errorf("Occurrence %d: recurrence rules must not survive the round trip", i)
		}
		if !e.Start.Equal(series[i].Start) {
			t.Errorf("Occurrence %d: expected start %v, got %v", i, series[i].Start, e.Start)
		}
	}
}

func TestReadCSV_HeaderAndErrors(t *testing.T) {
	eastern := mustLocation(t, "America/New_York")

	// Headerless input parses too.
	raw := "Meeting,03/03/2025,10:00 AM,03/03/2025,11:00 AM,False,,,False\n"
	parsed, err := ReadCSV(strings.NewReader(raw), eastern)
	if err != nil {
		t.Fatalf("Failed to read headerless CSV: %v", err)
	}
	if len(parsed) != 1 || parsed[0].Subject != "Meeting" {
		t.Error("Expected the single headerless row to parse")
	}

	if _, err := ReadCSV(strings.NewReader("Meeting,03/03/2025,10:00 AM\n"), eastern); err == nil {
		t.Error("Expected error for a short row")
	}
	if _, err := ReadCSV(strings.NewReader("Meeting,garbage,10:00 AM,03/03/2025,11:00 AM\n"), eastern); err == nil {
		t.Error("Expected error for a malformed date")
	}
	if _, err := ReadCSV(strings.NewReader("Meeting,03/03/2025,10:00 AM,03/03/2025,11:00 AM,False,,,Perhaps\n"), eastern); err == nil {
		t.Error("Expected error for a malformed boolean")
	}
}
