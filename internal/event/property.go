package event

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"calsched/internal/timeutil"
)

// Property identifies an editable event field. The set is closed so edit
// dispatch can be an exhaustive switch and the presentation layer can
// enumerate legal names without hardcoding them.
type Property int

const (
	PropertyUnknown Property = iota
	PropertySubject
	PropertyStart
	PropertyEnd
	PropertyDescription
	PropertyLocation
	PropertyPrivate
	PropertyRepeatDays
	PropertyRepeatCount
	PropertyRepeatUntil
)

// propertyNames maps properties to the names the command layer uses.
var propertyNames = map[Property]string{
	PropertySubject:     "subject",
	PropertyStart:       "startDateTime",
	PropertyEnd:         "endDateTime",
	PropertyDescription: "description",
	PropertyLocation:    "location",
	PropertyPrivate:     "isPrivate",
	PropertyRepeatDays:  "repeatDays",
	PropertyRepeatCount: "repeatNumber",
	PropertyRepeatUntil: "repeatEndDateTime",
}

// String returns the command-layer name of the property.
func (p Property) String() string {
	if name, ok := propertyNames[p]; ok {
		return name
	}
	return "unknown"
}

// IsRecurrence reports whether the property belongs to the recurrence rule.
func (p Property) IsRecurrence() bool {
	return p == PropertyRepeatDays || p == PropertyRepeatCount || p == PropertyRepeatUntil
}

// IsTime reports whether the property is one of the event endpoints.
func (p Property) IsTime() bool {
	return p == PropertyStart || p == PropertyEnd
}

// ParseProperty resolves a property name, case-insensitively.
func ParseProperty(name string) (Property, error) {
	for prop, propName := range propertyNames {
		if strings.EqualFold(name, propName) {
			return prop, nil
		}
	}
	return PropertyUnknown, fmt.Errorf("unknown event property %q", name)
}

// SingleEditableProperties lists the properties a single-event edit may
// change. Recurrence rule properties are excluded; those go through the
// bulk series edit path.
func SingleEditableProperties() []Property {
	return []Property{
		PropertySubject,
		PropertyStart,
		PropertyEnd,
		PropertyDescription,
		PropertyLocation,
		PropertyPrivate,
	}
}

// BulkEditableProperties lists the properties a bulk edit may change.
// Start and end times are excluded: shifting many events at once is
// rejected outright by the calendar.
func BulkEditableProperties() []Property {
	return []Property{
		PropertySubject,
		PropertyDescription,
		PropertyLocation,
		PropertyPrivate,
		PropertyRepeatDays,
		PropertyRepeatCount,
		PropertyRepeatUntil,
	}
}

// ApplyProperty parses raw per the property's type and returns a new event
// value with the change applied. Endpoint changes rederive AllDay; setting
// one recurrence termination mode clears the other so exactly one stays
// active. Malformed values and rule edits on non-recurring events fail
// without producing a value.
func ApplyProperty(e Event, p Property, raw string, loc *time.Location) (Event, error) {
	if p.IsRecurrence() && !e.IsRecurring() {
		return Event{}, fmt.Errorf("event %q is not recurring: cannot edit %s", e.Subject, p)
	}

	out := e
	switch p {
	case PropertySubject:
		subject := strings.TrimSpace(raw)
		if subject == "" {
			return Event{}, fmt.Errorf("event subject cannot be blank")
		}
		out.Subject = subject

	case PropertyStart:
		start, err := timeutil.ParseDateTime(raw, loc)
		if err != nil {
			return Event{}, err
		}
		if start == nil {
			return Event{}, fmt.Errorf("start time is required")
		}
		if !e.End.After(*start) {
			return Event{}, fmt.Errorf("event %q: end time must be after start time", e.Subject)
		}
		out.Start = *start
		out.AllDay = deriveAllDay(out.Start, out.End)

	case PropertyEnd:
		end, err := timeutil.ParseDateTime(raw, loc)
		if err != nil {
			return Event{}, err
		}
		if end == nil {
			return Event{}, fmt.Errorf("end time is required")
		}
		if !end.After(e.Start) {
			return Event{}, fmt.Errorf("event %q: end time must be after start time", e.Subject)
		}
		out.End = *end
		out.AllDay = deriveAllDay(out.Start, out.End)

	case PropertyDescription:
		out.Description = raw

	case PropertyLocation:
		out.Location = raw

	case PropertyPrivate:
		private, err := strconv.ParseBool(strings.ToLower(raw))
		if err != nil {
			return Event{}, fmt.Errorf("invalid isPrivate value %q: expected true or false", raw)
		}
		out.Private = private

	case PropertyRepeatDays:
		days, err := timeutil.ParseWeekdays(raw)
		if err != nil {
			return Event{}, err
		}
		rule := e.Rule.Clone()
		rule.Days = days
		out.Rule = rule

	case PropertyRepeatCount:
		count, err := strconv.Atoi(raw)
		if err != nil || count <= 0 {
			return Event{}, fmt.Errorf("invalid repeatNumber %q: expected a positive integer", raw)
		}
		rule := e.Rule.Clone()
		rule.Count = count
		rule.Until = timeutil.MaxDateTime(loc)
		out.Rule = rule

	case PropertyRepeatUntil:
		until, err := timeutil.ParseDateTime(raw, loc)
		if err != nil {
			return Event{}, err
		}
		if until == nil {
			return Event{}, fmt.Errorf("repeatEndDateTime is required")
		}
		if civil(*until).Before(civil(e.Start)) {
			return Event{}, fmt.Errorf("event %q: repeat end date cannot be before the series start date", e.Subject)
		}
		rule := e.Rule.Clone()
		rule.Until = *until
		rule.Count = 0
		out.Rule = rule

	default:
		return Event{}, fmt.Errorf("unknown event property")
	}

	return out, nil
}
