package main

import (
	"testing"
	"time"

	"calsched/internal/event"
	"calsched/internal/scheduler"
	"calsched/pkg/logger"
)

// recordingNotifier counts announcements without touching a session bus.
type recordingNotifier struct {
	announced []string
}

func (n *recordingNotifier) Announce(e event.Event, lead time.Duration) error {
	n.announced = append(n.announced, e.Subject)
	return nil
}

func (n *recordingNotifier) Close() error { return nil }

func newTestApp(t *testing.T) (*App, *recordingNotifier) {
	t.Helper()
	s := scheduler.New()
	if err := s.CreateCalendar("Work", "America/New_York"); err != nil {
		t.Fatalf("Failed to create calendar: %v", err)
	}
	if err := s.Use("Work"); err != nil {
		t.Fatalf("Failed to select calendar: %v", err)
	}

	notifier := &recordingNotifier{}
	app := NewApp()
	app.scheduler = s
	app.notifier = notifier
	app.log = logger.New("error")
	app.lead = 15 * time.Minute
	return app, notifier
}

func TestAnnounceUpcoming_DedupesAndPrunes(t *testing.T) {
	app, notifier := newTestApp(t)

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("Failed to load location: %v", err)
	}
	now := time.Date(2025, 3, 3, 9, 50, 0, 0, loc)
	start := now.Add(10 * time.Minute)
	e, err := event.New("Meeting", start, start.Add(time.Hour), "", "", false)
	if err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}
	if err := app.scheduler.AddEvents([]event.Event{e}); err != nil {
		t.Fatalf("Failed to add event: %v", err)
	}

	app.announceUpcoming(now)
	if len(notifier.announced) != 1 {
		t.Fatalf("Expected 1 announcement, got %d", len(notifier.announced))
	}

	// A second sweep inside the lead window must not re-announce.
	app.announceUpcoming(now.Add(time.Minute))
	if len(notifier.announced) != 1 {
		t.Fatalf("Expected the announcement deduped, got %d", len(notifier.announced))
	}
	if len(app.announced) != 1 {
		t.Fatalf("Expected 1 tracked entry, got %d", len(app.announced))
	}

	// Once the event has started its dedupe entry is dropped.
	app.announceUpcoming(start.Add(time.Minute))
	if len(app.announced) != 0 {
		t.Errorf("Expected stale entries pruned, got %d", len(app.announced))
	}
	if len(notifier.announced) != 1 {
		t.Errorf("A started event must not be re-announced, got %d announcements", len(notifier.announced))
	}
}
