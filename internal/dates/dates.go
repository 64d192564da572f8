// Package dates converts a user-selected calendar day into the absolute expiry
// instant stored on offers: 23:59:59 local time of that day in a fixed zone.
package dates

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

const DayLayout = "2006-01-02"

// DefaultZone is used when no zone is configured.
const DefaultZone = "America/Los_Angeles"

// LoadZone resolves an IANA zone name, falling back to DefaultZone for "".
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load zone %q: %w", name, err)
	}
	return loc, nil
}

// EndOfDay parses day (YYYY-MM-DD) and returns 23:59:59 of that day in loc, as UTC.
func EndOfDay(day string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DayLayout, day, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q, expected YYYY-MM-DD: %w", day, err)
	}
	return EndOf(d, loc), nil
}

// EndOf returns 23:59:59 in loc of the calendar day t falls on in loc, as UTC.
func EndOf(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, loc).UTC()
}

// DayOf formats the calendar day of an instant in loc, the inverse of EndOfDay.
func DayOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DayLayout)
}
