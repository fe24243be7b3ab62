package generic

import (
	"errors"
	"time"
)

// ErrInvalidPeriod is returned when a period ends before it starts.
var ErrInvalidPeriod = errors.New("invalid period: end before start")

// =============================================================================
// PERIOD - A closed range of calendar days
// =============================================================================

// Period is the closed day range [Start, End].
//
// Examples:
//   - Calendar year 2025: Jan 1 - Dec 31
//   - Leave year 2025: Apr 1 2025 - Mar 31 2026
type Period struct {
	Start TimePoint
	End   TimePoint
}

// NewPeriod validates that end is not before start.
func NewPeriod(start, end TimePoint) (Period, error) {
	if end.Before(start) {
		return Period{}, ErrInvalidPeriod
	}
	return Period{Start: start, End: end}, nil
}

// Contains returns true if the day is within [Start, End].
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// ContainsPeriod returns true if other lies entirely inside p.
func (p Period) ContainsPeriod(other Period) bool {
	return p.Contains(other.Start) && p.Contains(other.End)
}

// Overlaps is the closed-interval test start1 <= end2 && end1 >= start2.
func (p Period) Overlaps(other Period) bool {
	return p.Start.BeforeOrEqual(other.End) && p.End.AfterOrEqual(other.Start)
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// =============================================================================
// LEAVE YEAR - Fiscal bucketing of dates
// =============================================================================

// PeriodConfig buckets dates into twelve-month windows starting on the first
// of StartMonth. The zero value is the calendar year.
type PeriodConfig struct {
	StartMonth time.Month
}

// LeaveYearConfig is the 1 Apr - 31 Mar fiscal leave year.
var LeaveYearConfig = PeriodConfig{StartMonth: time.April}

// PeriodFor returns the window containing date. Dates before the start month
// belong to the window that began the previous year.
func (pc PeriodConfig) PeriodFor(date TimePoint) Period {
	month := pc.StartMonth
	if month == 0 {
		month = time.January
	}
	start := NewTimePoint(date.Year(), month, 1)
	if date.Before(start) {
		start = start.AddYears(-1)
	}
	return Period{Start: start, End: start.AddYears(1).AddDays(-1)}
}
