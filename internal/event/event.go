package event

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"calsched/internal/timeutil"
)

// Event is a single calendar occurrence. Events are value objects: edits
// build a new value that replaces the stored slot rather than mutating a
// shared instance.
type Event struct {
	Subject     string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Description string
	Location    string
	Private     bool

	// Series membership. Standalone events carry uuid.Nil and no rule;
	// every occurrence of a recurring series shares a SeriesID and holds
	// its position in SeriesIndex, so "all occurrences after X" is a plain
	// range query instead of a pointer chase.
	SeriesID    uuid.UUID
	SeriesIndex int
	Rule        *Rule
}

// New validates and builds a standalone event. AllDay is derived from the
// endpoints: true iff both fall exactly at local midnight.
func New(subject string, start, end time.Time, description, location string, private bool) (Event, error) {
	e := Event{
		Subject:     strings.TrimSpace(subject),
		Start:       start,
		End:         end,
		Description: description,
		Location:    location,
		Private:     private,
	}
	if e.Subject == "" {
		return Event{}, fmt.Errorf("event subject cannot be blank")
	}
	if start.IsZero() || end.IsZero() {
		return Event{}, fmt.Errorf("event %q: start and end times are required", e.Subject)
	}
	if !end.After(start) {
		return Event{}, fmt.Errorf("event %q: end time must be after start time", e.Subject)
	}
	e.AllDay = deriveAllDay(start, end)
	return e, nil
}

// deriveAllDay reports whether both endpoints fall at local midnight.
func deriveAllDay(start, end time.Time) bool {
	return timeutil.IsMidnight(start) && timeutil.IsMidnight(end)
}

// Less orders events by start time ascending, ties broken by end time
// ascending. Storage keeps calendars sorted by this ordering.
func (e Event) Less(other Event) bool {
	if !e.Start.Equal(other.Start) {
		return e.Start.Before(other.Start)
	}
	return e.End.Before(other.End)
}

// Matches reports whether the event has the given subject and exact start
// time, the key used to locate a unique event.
func (e Event) Matches(subject string, start time.Time) bool {
	return e.Subject == subject && e.Start.Equal(start)
}

// IsRecurring reports whether the event belongs to a recurring series.
func (e Event) IsRecurring() bool {
	return e.Rule != nil
}

// civil maps t's calendar date onto the UTC timeline for date-level
// comparisons.
func civil(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// sameDate reports whether two times fall on the same calendar date in
// their own locations.
func sameDate(a, b time.Time) bool {
	return civil(a).Equal(civil(b))
}

// ConflictsWith reports whether two events overlap in time. The predicate
// is commutative:
//   - both all-day: conflict iff they share a calendar date
//   - all-day vs timed: conflict iff the all-day date falls within the
//     timed event's start..end dates inclusive
//   - both timed: strict interval overlap; back-to-back events where one
//     ends exactly when the other starts do not conflict
func (e Event) ConflictsWith(other Event) bool {
	switch {
	case e.AllDay && other.AllDay:
		return sameDate(e.Start, other.Start)
	case e.AllDay:
		return dateWithin(e.Start, other.Start, other.End)
	case other.AllDay:
		return dateWithin(other.Start, e.Start, e.End)
	default:
		return e.Start.Before(other.End) && e.End.After(other.Start)
	}
}

// dateWithin reports whether day's calendar date falls within the
// start..end dates inclusive.
func dateWithin(day, start, end time.Time) bool {
	d := civil(day)
	return !d.Before(civil(start)) && !d.After(civil(end))
}

// OccursOn reports whether the event touches the given calendar date: it
// starts or ends on that date, or the date falls inside its span.
func (e Event) OccursOn(date time.Time) bool {
	d := civil(date)
	start := civil(e.Start)
	end := civil(e.End)
	if d.Equal(start) || d.Equal(end) {
		return true
	}
	return start.Before(d) && d.Before(end)
}

// OverlapsRange reports whether the event overlaps the inclusive window
// [start, end]: it does not end before the window starts and does not
// start after the window ends.
func (e Event) OverlapsRange(start, end time.Time) bool {
	return !e.End.Before(start) && !e.Start.After(end)
}

// InProgressAt reports whether the instant falls inside the half-open
// interval [start, end). An event is busy at its exact start instant and
// free at its exact end instant.
func (e Event) InProgressAt(t time.Time) bool {
	return !e.Start.After(t) && t.Before(e.End)
}

// Copy produces an independent event shifted by minuteOffset minutes on
// the civil timeline and re-anchored in loc. For a series member the
// recurrence rule is carried over under a fresh series identity, with the
// repeat end date adjusted by the zone-offset heuristic (see shiftUntil).
func (e Event) Copy(minuteOffset int, loc *time.Location) Event {
	out := e
	out.Start = timeutil.ShiftLocal(e.Start, minuteOffset, loc)
	out.End = timeutil.ShiftLocal(e.End, minuteOffset, loc)
	out.AllDay = deriveAllDay(out.Start, out.End)

	if e.Rule != nil {
		rule := e.Rule.Clone()
		if timeutil.IsMax(rule.Until) {
			rule.Until = timeutil.MaxDateTime(loc)
		} else {
			rule.Until = shiftUntil(e.Start, rule.Until, minuteOffset, loc)
		}
		out.Rule = rule
		out.SeriesID = uuid.New()
		out.SeriesIndex = 0
	}
	return out
}

// shiftUntil adjusts a repeat end date for a cross-zone copy. When the
// zone-offset gap between source and target is smaller in magnitude than
// the requested shift, the deliberate shift dominates and the end date
// moves on the civil timeline (same wall clock, new zone); otherwise the
// end date keeps its instant and only re-anchors. This avoids counting a
// zone jump twice when it is subsumed by the shift the caller asked for.
func shiftUntil(start, until time.Time, minuteOffset int, loc *time.Location) time.Time {
	sourceOffset := timeutil.ZoneOffsetMinutes(start, start.Location())
	targetOffset := timeutil.ZoneOffsetMinutes(start, loc)

	zoneGap := sourceOffset - targetOffset
	if zoneGap < 0 {
		zoneGap = -zoneGap
	}
	shift := minuteOffset
	if shift < 0 {
		shift = -shift
	}

	if zoneGap < shift {
		return timeutil.ShiftLocal(until, minuteOffset, loc)
	}
	return until.Add(time.Duration(minuteOffset) * time.Minute).In(loc)
}

// Rezone re-anchors the event in loc preserving instants; the repeat end
// date moves with it unless it is the sentinel.
func (e Event) Rezone(loc *time.Location) Event {
	out := e
	out.Start = timeutil.SameInstant(e.Start, loc)
	out.End = timeutil.SameInstant(e.End, loc)
	out.AllDay = deriveAllDay(out.Start, out.End)
	if e.Rule != nil {
		rule := e.Rule.Clone()
		if timeutil.IsMax(rule.Until) {
			rule.Until = timeutil.MaxDateTime(loc)
		} else {
			rule.Until = timeutil.SameInstant(rule.Until, loc)
		}
		out.Rule = rule
	}
	return out
}

// String renders the event for logs and error messages.
func (e Event) String() string {
	kind := "event"
	if e.IsRecurring() {
		kind = "recurring event"
	}
	return fmt.Sprintf("%s %q from %s to %s", kind, e.Subject,
		e.Start.Format(timeutil.DateTimeLayout), e.End.Format(timeutil.DateTimeLayout))
}
