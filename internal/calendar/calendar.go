package calendar

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"calsched/internal/event"
)

// Sentinel errors distinguishing the failure classes callers react to.
var (
	// ErrConflict is returned when an insert or edit would make two
	// events in the calendar overlap.
	ErrConflict = errors.New("event conflict")

	// ErrNotFound is returned when a lookup matches no event.
	ErrNotFound = errors.New("event not found")
)

// Calendar is an ordered, conflict-free collection of events for one
// name and timezone. The event sequence is kept sorted by (start, end)
// ascending and no two stored events ever overlap.
//
// All operations are synchronous and safe for concurrent use: one
// read-write mutex covers the event sequence, since conflict checks and
// inserts cannot safely interleave. Batch rollback is done by
// save-and-restore of the event slice under that lock.
type Calendar struct {
	name   string
	loc    *time.Location
	events []event.Event

	// Mutex for thread safety
	mutex sync.RWMutex
}

// New creates an empty calendar with the given name and IANA timezone.
func New(name, timezone string) (*Calendar, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("calendar name cannot be blank")
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q", timezone)
	}
	return &Calendar{name: name, loc: loc}, nil
}

// Name returns the calendar's name.
func (c *Calendar) Name() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.name
}

// Location returns the calendar's timezone.
func (c *Calendar) Location() *time.Location {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.loc
}

// Rename changes the calendar's name. Uniqueness across calendars is the
// scheduler's concern.
func (c *Calendar) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("calendar name cannot be blank")
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.name = name
	return nil
}

// Events returns a copy of the stored event sequence in sorted order.
func (c *Calendar) Events() []event.Event {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	out := make([]event.Event, len(c.events))
	copy(out, c.events)
	return out
}

// Add inserts a single event, failing with ErrConflict if it overlaps any
// stored event.
func (c *Calendar) Add(e event.Event) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.add(e)
}

// add is Add without locking, for callers already holding the mutex.
func (c *Calendar) add(e event.Event) error {
	for _, stored := range c.events {
		if e.ConflictsWith(stored) {
			return fmt.Errorf("%w in calendar %q: %s overlaps %s", ErrConflict, c.name, e, stored)
		}
	}
	c.insert(e)
	return nil
}

// AddEvents inserts a batch of events atomically: each event is checked
// against everything stored so far, including earlier members of the same
// batch, and the first conflict rolls the calendar back to its pre-call
// state.
func (c *Calendar) AddEvents(events []event.Event) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	snapshot := c.snapshot()
	for _, e := range events {
		if err := c.add(e); err != nil {
			c.restore(snapshot)
			return err
		}
	}
	return nil
}

// insert places e at the first position whose occupant does not order
// before it, keeping the sequence sorted.
func (c *Calendar) insert(e event.Event) {
	pos := len(c.events)
	for i, stored := range c.events {
		if !stored.Less(e) {
			pos = i
			break
		}
	}
	c.events = append(c.events, event.Event{})
	copy(c.events[pos+1:], c.events[pos:])
	c.events[pos] = e
}

// snapshot and restore implement the save-and-restore rollback used by
// batch operations.
func (c *Calendar) snapshot() []event.Event {
	saved := make([]event.Event, len(c.events))
	copy(saved, c.events)
	return saved
}

func (c *Calendar) restore(saved []event.Event) {
	c.events = saved
}

// indexOf locates the unique event with the given subject and start time.
func (c *Calendar) indexOf(subject string, start time.Time) (int, error) {
	for i, e := range c.events {
		if e.Matches(subject, start) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: no event %q starting at %s in calendar %q",
		ErrNotFound, subject, start.Format("2006-01-02T15:04"), c.name)
}

// Find returns the unique event with the given subject and start time.
func (c *Calendar) Find(subject string, start time.Time) (event.Event, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	i, err := c.indexOf(subject, start)
	if err != nil {
		return event.Event{}, err
	}
	return c.events[i], nil
}

// EditSingle applies a property change to the unique event matching
// (subject, start). Recurrence rule properties are rejected here; they are
// series-wide and go through the bulk edit path. Endpoint changes are
// conflict-checked against every other event before anything mutates.
func (c *Calendar) EditSingle(p event.Property, subject string, start time.Time, raw string) error {
	if p.IsRecurrence() {
		return fmt.Errorf("property %s affects a whole series and cannot be edited on a single event", p)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	i, err := c.indexOf(subject, start)
	if err != nil {
		return err
	}

	changed, err := event.ApplyProperty(c.events[i], p, raw, c.loc)
	if err != nil {
		return err
	}

	if p.IsTime() {
		for _, other := range c.events {
			if other.Matches(subject, start) {
				continue
			}
			if changed.ConflictsWith(other) {
				return fmt.Errorf("%w in calendar %q: %s overlaps %s", ErrConflict, c.name, changed, other)
			}
		}
	}

	c.replaceAt(i, changed)
	return nil
}

// replaceAt swaps the slot at i for a new value, reinserting when the
// change moved the event's position in the ordering.
func (c *Calendar) replaceAt(i int, e event.Event) {
	c.events = append(c.events[:i], c.events[i+1:]...)
	c.insert(e)
}

// EditBySubject applies a property change to every event with the given
// subject.
func (c *Calendar) EditBySubject(p event.Property, subject, raw string) error {
	return c.editBulk(p, subject, nil, raw)
}

// EditFrom applies a property change to every event with the given subject
// starting at or after from.
func (c *Calendar) EditFrom(p event.Property, subject string, from time.Time, raw string) error {
	return c.editBulk(p, subject, &from, raw)
}

// matches reports whether an event is selected by a bulk edit.
func matches(e event.Event, subject string, from *time.Time) bool {
	if e.Subject != subject {
		return false
	}
	return from == nil || !e.Start.Before(*from)
}

// editBulk is the shared bulk edit implementation. Endpoint properties are
// rejected outright as certain to conflict. Plain properties mutate every
// matched slot. Recurrence rule properties regenerate each matched series
// from its earliest matched member: the member's following set is removed,
// the rule change applied, the tail regenerated and re-added; any conflict
// restores the pre-call state, so the edit is all-or-nothing.
func (c *Calendar) editBulk(p event.Property, subject string, from *time.Time, raw string) error {
	if p.IsTime() {
		return fmt.Errorf("%w: bulk editing %s would overlap existing events", ErrConflict, p)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	anyMatched := false
	for _, e := range c.events {
		if matches(e, subject, from) {
			anyMatched = true
			break
		}
	}
	if !anyMatched {
		return fmt.Errorf("%w: no events with subject %q in calendar %q", ErrNotFound, subject, c.name)
	}

	if !p.IsRecurrence() {
		for i := 0; i < len(c.events); i++ {
			if !matches(c.events[i], subject, from) {
				continue
			}
			changed, err := event.ApplyProperty(c.events[i], p, raw, c.loc)
			if err != nil {
				return err
			}
			c.events[i] = changed
		}
		return nil
	}

	return c.editSeries(p, subject, from, raw)
}

// editSeries regenerates every matched series for a recurrence rule change.
func (c *Calendar) editSeries(p event.Property, subject string, from *time.Time, raw string) error {
	snapshot := c.snapshot()
	processed := make(map[uuid.UUID]bool)
	edited := false

	for {
		member, ok := c.nextSeriesMember(subject, from, processed)
		if !ok {
			break
		}
		processed[member.SeriesID] = true

		c.removeFollowing(member.SeriesID, member.SeriesIndex)

		changed, err := event.ApplyProperty(member, p, raw, c.loc)
		if err != nil {
			c.restore(snapshot)
			return err
		}
		regenerated, err := event.Regenerate(changed, p)
		if err != nil {
			c.restore(snapshot)
			return err
		}

		for _, occ := range regenerated {
			if err := c.add(occ); err != nil {
				c.restore(snapshot)
				return err
			}
		}
		if len(regenerated) > 0 {
			processed[regenerated[0].SeriesID] = true
		}
		edited = true
	}

	if !edited {
		return fmt.Errorf("no recurring events with subject %q in calendar %q", subject, c.name)
	}
	return nil
}

// nextSeriesMember finds the earliest matched series member whose series
// has not been regenerated yet.
func (c *Calendar) nextSeriesMember(subject string, from *time.Time, processed map[uuid.UUID]bool) (event.Event, bool) {
	for _, e := range c.events {
		if !e.IsRecurring() || processed[e.SeriesID] {
			continue
		}
		if matches(e, subject, from) {
			return e, true
		}
	}
	return event.Event{}, false
}

// removeFollowing drops every member of the series at or after the given
// sequence index (the member's following set, itself included).
func (c *Calendar) removeFollowing(seriesID uuid.UUID, fromIndex int) {
	kept := c.events[:0]
	for _, e := range c.events {
		if e.SeriesID == seriesID && e.SeriesIndex >= fromIndex {
			continue
		}
		kept = append(kept, e)
	}
	c.events = kept
}

// SetTimezone moves the calendar to a new timezone, re-anchoring every
// stored event (and any repeat end date) so instants are preserved and
// wall clocks shift with the UTC offset.
func (c *Calendar) SetTimezone(timezone string) error {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q", timezone)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.loc = loc
	for i := range c.events {
		c.events[i] = c.events[i].Rezone(loc)
	}
	return nil
}

// EventsOnDate returns every event that starts, ends, or is in progress on
// the given calendar date.
func (c *Calendar) EventsOnDate(date time.Time) []event.Event {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var out []event.Event
	for _, e := range c.events {
		if e.OccursOn(date) {
			out = append(out, e)
		}
	}
	return out
}

// EventsInRange returns every event overlapping the inclusive window
// [start, end].
func (c *Calendar) EventsInRange(start, end time.Time) []event.Event {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var out []event.Event
	for _, e := range c.events {
		if e.OverlapsRange(start, end) {
			out = append(out, e)
		}
	}
	return out
}

// BusyAt reports whether any event is in progress at the given instant,
// using the half-open [start, end) clash test.
func (c *Calendar) BusyAt(t time.Time) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	for _, e := range c.events {
		if e.InProgressAt(t) {
			return true
		}
	}
	return false
}

// String renders the calendar for logs.
func (c *Calendar) String() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return fmt.Sprintf("Calendar{Name: %s, Timezone: %s, Events: %d}", c.name, c.loc, len(c.events))
}
