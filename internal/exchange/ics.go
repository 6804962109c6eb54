package exchange

import (
	"fmt"
	"io"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/apognu/gocal"
	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	"calsched/internal/event"
	"calsched/internal/timeutil"
)

// rruleWeekdays maps Go weekdays to their RRULE BYDAY codes.
var rruleWeekdays = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

// WriteICS writes events as an iCalendar document. A recurring series is
// emitted as a single VEVENT carrying a weekly RRULE rather than one
// VEVENT per occurrence; standalone events are written as-is.
func WriteICS(w io.Writer, events []event.Event) error {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//calsched//EN")

	seriesSeen := make(map[uuid.UUID]bool)
	for _, e := range events {
		if e.IsRecurring() {
			if seriesSeen[e.SeriesID] {
				continue
			}
			seriesSeen[e.SeriesID] = true
			if err := writeSeriesEvent(cal, e); err != nil {
				return err
			}
			continue
		}
		writeVEvent(cal, e, uuid.NewString()+"@calsched")
	}

	_, err := io.WriteString(w, cal.Serialize())
	if err != nil {
		return fmt.Errorf("failed to write ICS: %w", err)
	}
	return nil
}

// writeVEvent adds a plain VEVENT for one occurrence.
func writeVEvent(cal *ics.Calendar, e event.Event, uid string) *ics.VEvent {
	ve := cal.AddEvent(uid)
	ve.SetDtStampTime(time.Now().UTC())
	ve.SetSummary(e.Subject)
	if e.Description != "" {
		ve.SetDescription(e.Description)
	}
	if e.Location != "" {
		ve.SetLocation(e.Location)
	}
	if e.Private {
		ve.SetProperty(ics.ComponentPropertyClass, "PRIVATE")
	}
	if e.AllDay {
		ve.SetAllDayStartAt(e.Start)
		ve.SetAllDayEndAt(e.End)
	} else {
		ve.SetStartAt(e.Start)
		ve.SetEndAt(e.End)
	}
	return ve
}

// writeSeriesEvent adds the series' first occurrence with an RRULE that
// reproduces its weekday set and termination mode.
func writeSeriesEvent(cal *ics.Calendar, e event.Event) error {
	opt := rrule.ROption{
		Freq:    rrule.WEEKLY,
		Dtstart: e.Start,
	}
	for _, day := range e.Rule.Days {
		opt.Byweekday = append(opt.Byweekday, rruleWeekdays[day])
	}
	if timeutil.IsMax(e.Rule.Until) {
		// RRULE COUNT covers the base occurrence too.
		opt.Count = e.Rule.Count + 1
	} else {
		opt.Until = e.Rule.Until.UTC()
	}
	if _, err := rrule.NewRRule(opt); err != nil {
		return fmt.Errorf("failed to build RRULE for %q: %w", e.Subject, err)
	}

	ve := writeVEvent(cal, e, e.SeriesID.String()+"@calsched")
	ve.AddRrule(opt.RRuleString())
	return nil
}

// ReadICS parses an iCalendar document into events anchored in loc. Each
// surfaced occurrence imports as a standalone event; series membership
// does not survive the trip, mirroring the CSV interchange behavior.
func ReadICS(r io.Reader, loc *time.Location) ([]event.Event, error) {
	// Wide fixed bounds: gocal only surfaces events inside its window.
	start := time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2100, 12, 31, 23, 59, 59, 0, time.UTC)

	cal := gocal.NewParser(r)
	cal.Start, cal.End = &start, &end
	if err := cal.Parse(); err != nil {
		return nil, fmt.Errorf("failed to parse ICS data: %w", err)
	}

	var events []event.Event
	for _, ge := range cal.Events {
		if ge.Start == nil || ge.End == nil {
			continue
		}
		e, err := event.New(ge.Summary,
			timeutil.SameInstant(*ge.Start, loc),
			timeutil.SameInstant(*ge.End, loc),
			ge.Description, ge.Location, ge.Class == "PRIVATE")
		if err != nil {
			// Skip malformed entries but keep importing the rest.
			continue
		}
		events = append(events, e)
	}
	return events, nil
}
