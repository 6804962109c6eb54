package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"calsched/internal/calendar"
	"calsched/internal/event"
	"calsched/internal/timeutil"
)

// Availability strings reported by Status.
const (
	StatusBusy      = "Busy"
	StatusAvailable = "Available"
)

// ErrNoCurrentCalendar is returned by operations that need a current
// calendar while none is selected.
var ErrNoCurrentCalendar = errors.New("no calendar is currently in use")

// PartialCopyError reports a copy-many operation that completed with some
// events skipped because they conflicted in the target calendar.
type PartialCopyError struct {
	Copied  int
	Skipped int
}

func (e *PartialCopyError) Error() string {
	return fmt.Sprintf("copied %d events, skipped %d due to conflicts", e.Copied, e.Skipped)
}

// Scheduler owns a set of uniquely named calendars and tracks which one is
// current. Most operations implicitly target the current calendar.
type Scheduler struct {
	calendars map[string]*calendar.Calendar
	current   *calendar.Calendar
}

// New creates a scheduler with no calendars.
func New() *Scheduler {
	return &Scheduler{calendars: make(map[string]*calendar.Calendar)}
}

// CreateCalendar adds a new named calendar. Duplicate names fail.
func (s *Scheduler) CreateCalendar(name, timezone string) error {
	cal, err := calendar.New(name, timezone)
	if err != nil {
		return err
	}
	if _, exists := s.calendars[cal.Name()]; exists {
		return fmt.Errorf("calendar %q already exists", cal.Name())
	}
	s.calendars[cal.Name()] = cal
	return nil
}

// Use selects the named calendar as current.
func (s *Scheduler) Use(name string) error {
	cal, err := s.Calendar(name)
	if err != nil {
		return err
	}
	s.current = cal
	return nil
}

// Current returns the calendar in use.
func (s *Scheduler) Current() (*calendar.Calendar, error) {
	if s.current == nil {
		return nil, ErrNoCurrentCalendar
	}
	return s.current, nil
}

// Calendar returns the named calendar.
func (s *Scheduler) Calendar(name string) (*calendar.Calendar, error) {
	cal, exists := s.calendars[name]
	if !exists {
		return nil, fmt.Errorf("%w: no calendar named %q", calendar.ErrNotFound, name)
	}
	return cal, nil
}

// CalendarNames lists the calendar names in sorted order.
func (s *Scheduler) CalendarNames() []string {
	names := make([]string, 0, len(s.calendars))
	for name := range s.calendars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EditCalendar changes a calendar property: a rename keeps names unique
// across the scheduler, a timezone change re-anchors every stored event.
func (s *Scheduler) EditCalendar(name string, p calendar.Property, value string) error {
	cal, err := s.Calendar(name)
	if err != nil {
		return err
	}
	switch p {
	case calendar.PropertyName:
		if _, exists := s.calendars[value]; exists && value != name {
			return fmt.Errorf("calendar %q already exists", value)
		}
		if err := cal.Rename(value); err != nil {
			return err
		}
		delete(s.calendars, name)
		s.calendars[cal.Name()] = cal
		return nil
	case calendar.PropertyTimezone:
		return cal.SetTimezone(value)
	default:
		return fmt.Errorf("unknown calendar property")
	}
}

// AddEvents adds a batch of events atomically to the current calendar.
func (s *Scheduler) AddEvents(events []event.Event) error {
	cal, err := s.Current()
	if err != nil {
		return err
	}
	return cal.AddEvents(events)
}

// EditSingle edits one event in the current calendar.
func (s *Scheduler) EditSingle(p event.Property, subject string, start time.Time, raw string) error {
	cal, err := s.Current()
	if err != nil {
		return err
	}
	return cal.EditSingle(p, subject, start, raw)
}

// EditBySubject bulk-edits every event with the subject in the current
// calendar.
func (s *Scheduler) EditBySubject(p event.Property, subject, raw string) error {
	cal, err := s.Current()
	if err != nil {
		return err
	}
	return cal.EditBySubject(p, subject, raw)
}

// EditFrom bulk-edits every event with the subject starting at or after
// from in the current calendar.
func (s *Scheduler) EditFrom(p event.Property, subject string, from time.Time, raw string) error {
	cal, err := s.Current()
	if err != nil {
		return err
	}
	return cal.EditFrom(p, subject, from, raw)
}

// EventsOnDate returns the current calendar's events touching the given
// date; an empty result is a not-found error.
func (s *Scheduler) EventsOnDate(date time.Time) ([]event.Event, error) {
	cal, err := s.Current()
	if err != nil {
		return nil, err
	}
	events := cal.EventsOnDate(date)
	if len(events) == 0 {
		return nil, fmt.Errorf("%w: no events on %s", calendar.ErrNotFound, date.Format(timeutil.DateLayout))
	}
	return events, nil
}

// EventsInRange returns the current calendar's events overlapping
// [start, end]; the window must be non-empty and an empty result is a
// not-found error.
func (s *Scheduler) EventsInRange(start, end time.Time) ([]event.Event, error) {
	cal, err := s.Current()
	if err != nil {
		return nil, err
	}
	if !end.After(start) {
		return nil, fmt.Errorf("range end must be after range start")
	}
	events := cal.EventsInRange(start, end)
	if len(events) == 0 {
		return nil, fmt.Errorf("%w: no events between %s and %s", calendar.ErrNotFound,
			start.Format(timeutil.DateTimeLayout), end.Format(timeutil.DateTimeLayout))
	}
	return events, nil
}

// Status reports Busy when any current-calendar event is in progress at
// the instant, Available otherwise.
func (s *Scheduler) Status(t time.Time) (string, error) {
	cal, err := s.Current()
	if err != nil {
		return "", err
	}
	if cal.BusyAt(t) {
		return StatusBusy, nil
	}
	return StatusAvailable, nil
}

// CopyEvent copies the unique event (subject, start) from the current
// calendar into the target calendar, shifted so it starts at newStart in
// the target's timezone. The insert is subject to the target's conflict
// check.
func (s *Scheduler) CopyEvent(subject, targetName string, start, newStart time.Time) error {
	cal, err := s.Current()
	if err != nil {
		return err
	}
	target, err := s.Calendar(targetName)
	if err != nil {
		return err
	}
	e, err := cal.Find(subject, start)
	if err != nil {
		return err
	}
	offset := timeutil.CivilMinutesBetween(e.Start, newStart)
	return target.Add(e.Copy(offset, target.Location()))
}

// CopyEventsOnDate copies every current-calendar event on the given date
// into the target calendar, all shifted by the same day-granular offset
// computed from the first selected event to newStart. Conflicting copies
// are skipped, not fatal; a partial result is reported with the skip
// count.
func (s *Scheduler) CopyEventsOnDate(date time.Time, targetName string, newStart time.Time) error {
	events, err := s.EventsOnDate(date)
	if err != nil {
		return err
	}
	return s.copyAll(events, targetName, newStart)
}

// CopyEventsInRange copies every current-calendar event overlapping
// [start, end] into the target calendar with the same skip-on-conflict
// semantics as CopyEventsOnDate.
func (s *Scheduler) CopyEventsInRange(start, end time.Time, targetName string, newStart time.Time) error {
	events, err := s.EventsInRange(start, end)
	if err != nil {
		return err
	}
	return s.copyAll(events, targetName, newStart)
}

// copyAll applies one day-granular offset to a selection of events and
// adds each copy to the target individually.
func (s *Scheduler) copyAll(events []event.Event, targetName string, newStart time.Time) error {
	target, err := s.Calendar(targetName)
	if err != nil {
		return err
	}

	offset := timeutil.DaysBetweenMinutes(events[0].Start, newStart)
	copied, skipped := 0, 0
	for _, e := range events {
		if err := target.Add(e.Copy(offset, target.Location())); err != nil {
			if errors.Is(err, calendar.ErrConflict) {
				skipped++
				continue
			}
			return err
		}
		copied++
	}
	if skipped > 0 {
		return &PartialCopyError{Copied: copied, Skipped: skipped}
	}
	return nil
}

// Import adds externally sourced events to the named calendar one at a
// time, skipping conflicts. It returns how many were added and skipped.
func (s *Scheduler) Import(name string, events []event.Event) (added, skipped int, err error) {
	cal, err := s.Calendar(name)
	if err != nil {
		return 0, 0, err
	}
	for _, e := range events {
		if addErr := cal.Add(e); addErr != nil {
			if errors.Is(addErr, calendar.ErrConflict) {
				skipped++
				continue
			}
			return added, skipped, addErr
		}
		added++
	}
	return added, skipped, nil
}
