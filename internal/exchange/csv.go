package exchange

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"calsched/internal/event"
)

// CSV column layout, one event per row. Recurrence rules do not survive a
// round trip by design: a series exports as its individual occurrences.
var csvHeader = []string{
	"Subject", "Start Date", "Start Time", "End Date", "End Time",
	"All Day Event", "Description", "Location", "Private",
}

const (
	csvDateLayout = "01/02/2006"
	csvTimeLayout = "03:04 PM"
)

// csvBool renders booleans the way the interchange format expects.
func csvBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

// parseCSVBool accepts the interchange True/False spelling in any case.
func parseCSVBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true":
		return true, nil
	case "false", "":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q: expected True or False", raw)
	}
}

// WriteCSV writes events as CSV rows with a header line. Times are written
// at minute precision in the wall clock of each event's own zone.
func WriteCSV(w io.Writer, events []event.Event) error {
	out := csv.NewWriter(w)
	if err := out.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, e := range events {
		row := []string{
			e.Subject,
			e.Start.Format(csvDateLayout),
			e.Start.Format(csvTimeLayout),
			e.End.Format(csvDateLayout),
			e.End.Format(csvTimeLayout),
			csvBool(e.AllDay),
			e.Description,
			e.Location,
			csvBool(e.Private),
		}
		if err := out.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row for %q: %w", e.Subject, err)
		}
	}
	out.Flush()
	return out.Error()
}

// ReadCSV parses CSV rows into events anchored in loc. A leading header
// row is skipped. The all-day column is informational; the flag is
// rederived from the parsed endpoints.
func ReadCSV(r io.Reader, loc *time.Location) ([]event.Event, error) {
	in := csv.NewReader(r)
	in.FieldsPerRecord = -1

	var events []event.Event
	line := 0
	for {
		record, err := in.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		line++
		if line == 1 && len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), csvHeader[0]) {
			continue
		}
		if len(record) < 5 {
			return nil, fmt.Errorf("CSV line %d: expected at least 5 columns, got %d", line, len(record))
		}

		start, err := parseCSVDateTime(record[1], record[2], loc)
		if err != nil {
			return nil, fmt.Errorf("CSV line %d: %w", line, err)
		}
		end, err := parseCSVDateTime(record[3], record[4], loc)
		if err != nil {
			return nil, fmt.Errorf("CSV line %d: %w", line, err)
		}

		description, location := "", ""
		private := false
		if len(record) > 6 {
			description = record[6]
		}
		if len(record) > 7 {
			location = record[7]
		}
		if len(record) > 8 {
			if private, err = parseCSVBool(record[8]); err != nil {
				return nil, fmt.Errorf("CSV line %d: %w", line, err)
			}
		}

		e, err := event.New(record[0], start, end, description, location, private)
		if err != nil {
			return nil, fmt.Errorf("CSV line %d: %w", line, err)
		}
		events = append(events, e)
	}
	return events, nil
}

// parseCSVDateTime combines the separate date and time columns.
func parseCSVDateTime(date, clock string, loc *time.Location) (time.Time, error) {
	combined := strings.TrimSpace(date) + " " + strings.TrimSpace(clock)
	t, err := time.ParseInLocation(csvDateLayout+" "+csvTimeLayout, combined, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date/time %q: expected %s %s", combined, csvDateLayout, csvTimeLayout)
	}
	return t, nil
}
