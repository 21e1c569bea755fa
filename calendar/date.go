/*
Package calendar implements the business calendar used by the rule engine.

PURPOSE:
  Decides whether a day is a working day for the finance office and walks
  dates back to the nearest prior working day. Public-sector payment rules
  never push an obligation later: anything that lands on a weekend or a
  holiday is due on the working day before it.

KEY CONCEPTS IN THIS FILE (date.go):
  - Date: a calendar day with no time-of-day and no zone
  - Parse: strict parsing of YYYY-MM-DD and ISO-8601 timestamps
  - DaysBetween: whole calendar days between two dates

SEE ALSO:
  - holiday.go: Holiday records and the in-memory holiday set
  - business.go: Working-day classification and adjustment
*/
package calendar

import (
	"encoding/json"
	"strings"
	"time"
)

// =============================================================================
// DATE - Day-granular calendar date
// =============================================================================

const (
	isoLayout     = "2006-01-02"
	displayLayout = "02/01/2006"
)

// Date is a calendar day. The zero value is the zero date.
// Internally it is always midnight UTC so two Dates compare with ==.
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// FromTime keeps the calendar day of t as seen in t's own location.
func FromTime(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Today returns the current day in loc. Callers should inject dates into the
// engine instead of reading the clock there.
func Today(loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return FromTime(time.Now().In(loc))
}

// Parse accepts YYYY-MM-DD or an RFC 3339 timestamp. Timestamps keep the
// calendar day in their own offset.
func Parse(s string) (Date, error) {
	in := strings.TrimSpace(s)
	if in == "" {
		return Date{}, &InvalidDateError{Input: s}
	}
	if t, err := time.Parse(isoLayout, in); err == nil {
		return FromTime(t), nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04:05.000"} {
		if t, err := time.Parse(layout, in); err == nil {
			return FromTime(t), nil
		}
	}
	_, err := time.Parse(isoLayout, in)
	return Date{}, &InvalidDateError{Input: s, Err: err}
}

// MustParse is Parse for literals known to be valid. It panics otherwise.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{t: d.t.AddDate(0, n, 0)} }

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool          { return d.t.IsZero() }
func (d Date) Time() time.Time       { return d.t }
func (d Date) IsWeekend() bool       { wd := d.Weekday(); return wd == time.Saturday || wd == time.Sunday }
func (d Date) String() string        { return d.t.Format(isoLayout) }
func (d Date) Display() string       { return d.t.Format(displayLayout) }
func (d Date) monthDay() string      { return d.t.Format("01-02") }

// ISO returns the date as an RFC 3339 timestamp at midnight UTC.
func (d Date) ISO() string { return d.t.Format(time.RFC3339) }

// DaysBetween returns to minus from in whole calendar days.
// Negative when to is earlier than from.
func DaysBetween(from, to Date) int {
	return int(to.t.Sub(from.t).Hours() / 24)
}

// =============================================================================
// JSON - Dates travel as YYYY-MM-DD
// =============================================================================

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return &InvalidDateError{Input: string(b), Err: err}
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
