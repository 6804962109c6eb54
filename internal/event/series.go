package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"calsched/internal/timeutil"
)

// Rule is the recurrence rule shared by every occurrence of a series.
// Exactly one termination mode is active: Count > 0 with the sentinel
// Until means "this many occurrences", a real Until with Count == 0 means
// "through this date".
type Rule struct {
	Days  []time.Weekday
	Count int
	Until time.Time
}

// Clone returns an independent copy of the rule.
func (r *Rule) Clone() *Rule {
	out := *r
	out.Days = make([]time.Weekday, len(r.Days))
	copy(out.Days, r.Days)
	return &out
}

// contains reports whether the weekday is selected by the rule.
func (r *Rule) contains(day time.Weekday) bool {
	for _, d := range r.Days {
		if d == day {
			return true
		}
	}
	return false
}

// validate checks the rule against its base occurrence.
func (r *Rule) validate(base Event) error {
	if len(r.Days) == 0 {
		return fmt.Errorf("recurring event %q: at least one repeat day is required", base.Subject)
	}
	if timeutil.IsMax(r.Until) {
		if r.Count <= 0 {
			return fmt.Errorf("recurring event %q: repeat count must be positive", base.Subject)
		}
	} else if civil(r.Until).Before(civil(base.Start)) {
		return fmt.Errorf("recurring event %q: repeat end date cannot be before the series start date", base.Subject)
	}
	if !base.AllDay && !sameDate(base.Start, base.End) {
		return fmt.Errorf("recurring event %q: a single occurrence cannot span midnight", base.Subject)
	}
	return nil
}

// NewSeries builds and expands a recurring series from a base event. A nil
// until makes the series count-bound; otherwise count is ignored and the
// series runs through until's date inclusive.
func NewSeries(base Event, days []time.Weekday, count int, until *time.Time) ([]Event, error) {
	rule := &Rule{Days: days, Count: count}
	if until == nil {
		rule.Until = timeutil.MaxDateTime(base.Start.Location())
	} else {
		rule.Until = *until
		rule.Count = 0
	}
	base.Rule = rule
	return Generate(base)
}

// Generate expands a series from its base occurrence, dispatching on the
// active termination mode.
func Generate(base Event) ([]Event, error) {
	if base.Rule == nil {
		return nil, fmt.Errorf("event %q has no recurrence rule", base.Subject)
	}
	if timeutil.IsMax(base.Rule.Until) {
		return GenerateByCount(base)
	}
	return GenerateUntil(base)
}

// Regenerate re-expands a series from the given member after one of its
// rule properties changed. The generator choice follows the edited
// property: a day-set change keeps the member's termination mode, an end
// date change forces date-bound expansion, a count change forces
// count-bound expansion.
func Regenerate(member Event, edited Property) ([]Event, error) {
	if member.Rule == nil {
		return nil, fmt.Errorf("event %q has no recurrence rule", member.Subject)
	}
	switch edited {
	case PropertyRepeatDays:
		if member.Rule.Count != 0 {
			return GenerateByCount(member)
		}
		return GenerateUntil(member)
	case PropertyRepeatUntil:
		return GenerateUntil(member)
	case PropertyRepeatCount:
		return GenerateByCount(member)
	default:
		return nil, fmt.Errorf("internal error: %s is not a recurrence rule property", edited)
	}
}

// GenerateByCount expands a count-bound series: scanning forward from the
// base date one day at a time, each day whose weekday is selected yields an
// occurrence, until count+1 occurrences exist. Unselected days are skipped
// without consuming a slot.
func GenerateByCount(base Event) ([]Event, error) {
	rule := base.Rule
	if err := rule.validate(base); err != nil {
		return nil, err
	}
	if rule.Count <= 0 {
		return nil, fmt.Errorf("recurring event %q: repeat count must be positive", base.Subject)
	}

	seriesID := uuid.New()
	events := make([]Event, 0, rule.Count+1)
	for offset := 0; len(events) < rule.Count+1; offset++ {
		day := base.Start.AddDate(0, 0, offset)
		if !rule.contains(day.Weekday()) {
			continue
		}
		events = append(events, occurrence(base, offset, seriesID, len(events)))
	}
	return events, nil
}

// GenerateUntil expands a date-bound series: every calendar date from the
// base date through the repeat end date inclusive whose weekday is
// selected yields an occurrence.
func GenerateUntil(base Event) ([]Event, error) {
	rule := base.Rule
	if err := rule.validate(base); err != nil {
		return nil, err
	}
	if timeutil.IsMax(rule.Until) {
		return nil, fmt.Errorf("recurring event %q: repeat end date is required", base.Subject)
	}

	seriesID := uuid.New()
	last := civil(rule.Until)
	var events []Event
	for offset := 0; ; offset++ {
		day := base.Start.AddDate(0, 0, offset)
		if civil(day).After(last) {
			break
		}
		if !rule.contains(day.Weekday()) {
			continue
		}
		events = append(events, occurrence(base, offset, seriesID, len(events)))
	}
	return events, nil
}

// occurrence materializes the series member dayOffset days after the base,
// keeping its time of day, duration, and optional fields.
func occurrence(base Event, dayOffset int, seriesID uuid.UUID, index int) Event {
	occ := base
	occ.Start = base.Start.AddDate(0, 0, dayOffset)
	occ.End = base.End.AddDate(0, 0, dayOffset)
	occ.AllDay = deriveAllDay(occ.Start, occ.End)
	occ.SeriesID = seriesID
	occ.SeriesIndex = index
	occ.Rule = base.Rule.Clone()
	return occ
}
