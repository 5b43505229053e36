// Package calendar resolves instants to calendar days in a reference
// timezone. All day arithmetic in the service goes through Day; raw
// time.Time values are never compared directly.
package calendar

import (
	"database/sql/driver"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

const layout = "2006-01-02"

// Day is a date without a time of day.
type Day struct {
	date civil.Date
}

// Resolve returns the calendar day instant falls on in loc. A nil loc means UTC.
func Resolve(instant time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.UTC
	}
	return Day{date: civil.DateOf(instant.In(loc))}
}

func Of(year int, month time.Month, day int) Day {
	return Day{date: civil.Date{Year: year, Month: month, Day: day}}
}

func Parse(s string) (Day, error) {
	d, err := civil.ParseDate(s)
	if err != nil {
		return Day{}, fmt.Errorf("calendar: parse %q: %w", s, err)
	}
	return Day{date: d}, nil
}

// MustParse is Parse for literals; it panics on malformed input.
func MustParse(s string) Day {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DaysSince returns the number of whole days from earlier to d.
// It is negative when earlier is after d.
func (d Day) DaysSince(earlier Day) int {
	return d.date.DaysSince(earlier.date)
}

func (d Day) AddDays(n int) Day {
	return Day{date: d.date.AddDays(n)}
}

func (d Day) Before(other Day) bool { return d.date.Before(other.date) }
func (d Day) After(other Day) bool  { return d.date.After(other.date) }
func (d Day) Equal(other Day) bool  { return d.date == other.date }

func (d Day) IsZero() bool {
	return d.date == civil.Date{}
}

// Start returns midnight of d in loc.
func (d Day) Start(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return d.date.In(loc)
}

func (d Day) String() string {
	if d.IsZero() {
		return ""
	}
	return d.date.String()
}

func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Day) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*d = Day{}
		return nil
	}
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// GormDataType stores Day in a DATE column.
func (Day) GormDataType() string {
	return "date"
}

func (d Day) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.date.String(), nil
}

func (d *Day) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Day{}
		return nil
	case time.Time:
		*d = Day{date: civil.DateOf(v)}
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("calendar: cannot scan %T into Day", src)
	}
}

func (d *Day) scanString(s string) error {
	if len(s) > len(layout) {
		s = s[:len(layout)]
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
