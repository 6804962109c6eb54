package timeutil

import (
	"fmt"
	"strings"
	"time"
)

// Layouts accepted by the parsing helpers.
const (
	DateTimeLayout = "2006-01-02T15:04"
	DateLayout     = "2006-01-02"
)

// MinutesPerDay is the length of a civil day in minutes.
const MinutesPerDay = 24 * 60

// ParseDateTime parses a "yyyy-MM-ddTHH:mm" string anchored in loc.
// An empty input means "no value" and returns nil without an error.
func ParseDateTime(value string, loc *time.Location) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(DateTimeLayout, value, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid date/time %q: expected format %s", value, DateTimeLayout)
	}
	return &t, nil
}

// ParseDate parses a "yyyy-MM-dd" string as midnight of that date in loc.
// An empty input means "no value" and returns nil without an error.
func ParseDate(value string, loc *time.Location) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(DateLayout, value, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: expected format %s", value, DateLayout)
	}
	return &t, nil
}

// StartOfDay returns midnight of t's calendar date in t's own location.
func StartOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// IsMidnight reports whether t is exactly the start of its calendar date
// in its own location.
func IsMidnight(t time.Time) bool {
	return t.Equal(StartOfDay(t))
}

// MinutesBetween returns the signed number of minutes from a to b,
// positive when b is later.
func MinutesBetween(a, b time.Time) int {
	return int(b.Sub(a) / time.Minute)
}

// CivilMinutesBetween returns the signed number of minutes from a to b on
// the civil timeline, ignoring the zones the two times are anchored in.
// Copies use this so the copy lands at the requested wall-clock time in
// the target zone.
func CivilMinutesBetween(a, b time.Time) int {
	return MinutesBetween(civilDateTime(a), civilDateTime(b))
}

// civilDateTime maps t's wall-clock reading onto the fixed UTC timeline.
func civilDateTime(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, t.Hour(), t.Minute(), 0, 0, time.UTC)
}

// DaysBetweenMinutes returns the signed whole calendar-day difference from
// a's date to b's date, expressed in minutes (days x 1440). The difference
// is computed on civil dates so that day-granular shifts stay aligned to
// calendar days across DST transitions.
func DaysBetweenMinutes(a, b time.Time) int {
	days := int(civilDate(b).Sub(civilDate(a)) / (24 * time.Hour))
	return days * MinutesPerDay
}

// civilDate maps t's calendar date in its own location onto the fixed UTC
// timeline, where every day is exactly 24 hours long.
func civilDate(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// weekdayLetters maps the single-letter day codes to weekdays
// (M T W R F S U = Monday..Sunday).
var weekdayLetters = map[rune]time.Weekday{
	'M': time.Monday,
	'T': time.Tuesday,
	'W': time.Wednesday,
	'R': time.Thursday,
	'F': time.Friday,
	'S': time.Saturday,
	'U': time.Sunday,
}

// weekdayOrder is the Monday-first ordering used for decoded weekday sets.
var weekdayOrder = []time.Weekday{
	time.Monday,
	time.Tuesday,
	time.Wednesday,
	time.Thursday,
	time.Friday,
	time.Saturday,
	time.Sunday,
}

// ParseWeekdays decodes a string of single-letter day codes into a weekday
// set. Letters are case-insensitive, duplicates collapse, and the result is
// returned in Monday-first order.
func ParseWeekdays(code string) ([]time.Weekday, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("weekday codes cannot be empty")
	}

	seen := make(map[time.Weekday]bool)
	for _, letter := range strings.ToUpper(code) {
		weekday, ok := weekdayLetters[letter]
		if !ok {
			return nil, fmt.Errorf("invalid weekday code %q: expected letters from MTWRFSU", string(letter))
		}
		seen[weekday] = true
	}

	var days []time.Weekday
	for _, weekday := range weekdayOrder {
		if seen[weekday] {
			days = append(days, weekday)
		}
	}
	return days, nil
}

// WeekdayLetter returns the single-letter code for a weekday.
func WeekdayLetter(day time.Weekday) string {
	for letter, weekday := range weekdayLetters {
		if weekday == day {
			return string(letter)
		}
	}
	return "?"
}

// MaxDateTime returns the sentinel "maximum representable" datetime in loc,
// used to mean "no end date" for count-bound recurring series.
func MaxDateTime(loc *time.Location) time.Time {
	return time.Date(9999, time.December, 31, 23, 59, 0, 0, loc)
}

// IsMax reports whether t is the MaxDateTime sentinel (in any location).
func IsMax(t time.Time) bool {
	return t.Year() == 9999 && t.Month() == time.December && t.Day() == 31
}

// ShiftLocal shifts t by the given number of minutes on the civil timeline
// and re-anchors the resulting wall-clock time in loc. The arithmetic is
// done in UTC so the shift is unaffected by DST transitions in either zone.
func ShiftLocal(t time.Time, minutes int, loc *time.Location) time.Time {
	year, month, day := t.Date()
	civil := time.Date(year, month, day, t.Hour(), t.Minute(), 0, 0, time.UTC)
	civil = civil.Add(time.Duration(minutes) * time.Minute)
	return time.Date(civil.Year(), civil.Month(), civil.Day(), civil.Hour(), civil.Minute(), 0, 0, loc)
}

// SameInstant re-anchors t in loc preserving the instant; the wall clock
// shifts with the UTC offset difference.
func SameInstant(t time.Time, loc *time.Location) time.Time {
	return t.In(loc)
}

// ZoneOffsetMinutes returns the UTC offset of loc at instant t, in minutes.
func ZoneOffsetMinutes(t time.Time, loc *time.Location) int {
	_, offset := t.In(loc).Zone()
	return offset / 60
}
