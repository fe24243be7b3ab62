package generic

import (
	"fmt"
	"time"
)

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

// =============================================================================
// TIME POINT - A calendar day in UTC (leave is booked in whole or half days)
// =============================================================================

type TimePoint struct {
	Time time.Time
}

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day, keeping t's own location for the
// day boundary.
func DateOf(t time.Time) TimePoint {
	return NewTimePoint(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (TimePoint, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return TimePoint{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// MustDate parses s and panics on error. Intended for tests and constants.
func MustDate(s string) TimePoint {
	tp, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return tp
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.Time.Before(other.Time) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.Time.Equal(other.Time) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.Time.After(other.Time) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return !tp.After(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return !tp.Before(other) }

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint  { return TimePoint{Time: tp.Time.AddDate(0, 0, n)} }
func (tp TimePoint) AddYears(n int) TimePoint { return TimePoint{Time: tp.Time.AddDate(n, 0, 0)} }

// EndOfDay returns the last instant of the day.
func (tp TimePoint) EndOfDay() time.Time {
	return tp.Time.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// Properties
func (tp TimePoint) Year() int             { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month     { return tp.Time.Month() }
func (tp TimePoint) Day() int              { return tp.Time.Day() }
func (tp TimePoint) Weekday() time.Weekday { return tp.Time.Weekday() }
func (tp TimePoint) IsWeekend() bool {
	wd := tp.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
func (tp TimePoint) IsWorkday() bool { return !tp.IsWeekend() }
func (tp TimePoint) IsZero() bool    { return tp.Time.IsZero() }

func (tp TimePoint) String() string { return tp.Time.Format(DateLayout) }

// =============================================================================
// HOLIDAY CALENDAR - Days that never count as business days
// =============================================================================

// HolidayCalendar reports company-wide non-working days. Leave durations never
// count a holiday.
type HolidayCalendar interface {
	IsHoliday(date TimePoint) bool
}

// NoHolidays is the default calendar: every weekday is a business day.
type NoHolidays struct{}

func (NoHolidays) IsHoliday(TimePoint) bool { return false }

// FixedHolidays is a static set of dates, typically loaded from configuration.
type FixedHolidays map[string]struct{}

// NewFixedHolidays builds a calendar from YYYY-MM-DD strings.
func NewFixedHolidays(dates ...string) (FixedHolidays, error) {
	set := make(FixedHolidays, len(dates))
	for _, d := range dates {
		tp, err := ParseDate(d)
		if err != nil {
			return nil, err
		}
		set[tp.String()] = struct{}{}
	}
	return set, nil
}

func (f FixedHolidays) IsHoliday(date TimePoint) bool {
	_, ok := f[date.String()]
	return ok
}

// IsBusinessDay is Monday-Friday and not a holiday.
func (tp TimePoint) IsBusinessDay(calendar HolidayCalendar) bool {
	if tp.IsWeekend() {
		return false
	}
	if calendar != nil && calendar.IsHoliday(tp) {
		return false
	}
	return true
}

// BusinessDays counts business days in the closed range [from, to].
// Returns 0 when to is before from.
func BusinessDays(from, to TimePoint, calendar HolidayCalendar) int {
	n := 0
	for d := from; d.BeforeOrEqual(to); d = d.AddDays(1) {
		if d.IsBusinessDay(calendar) {
			n++
		}
	}
	return n
}
