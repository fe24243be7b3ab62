package leave

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/generic"
)

// Candidate is a proposed booking, from a submission, an HR entry or an edit.
type Candidate struct {
	EmployeeID    string
	Type          Type
	TypeOther     string
	Start         generic.TimePoint
	End           generic.TimePoint
	IsSingleDay   bool
	SingleDayPart DayPart
	// ExcludeEntryID is the entry being edited, if any.
	ExcludeEntryID string
}

// Validator is the single validation entry point for every path that
// creates or reshapes an entry.
type Validator struct {
	calc     Calculator
	holidays generic.HolidayCalendar
}

// Validate checks shape, window, allowance and volunteer cap, in that order,
// and returns the candidate's duration.
func (v Validator) Validate(ctx context.Context, repo Repository, year Year, c *Candidate) (decimal.Decimal, error) {
	if err := v.checkShape(c); err != nil {
		return decimal.Zero, err
	}
	if !year.Contains(c.Start) || !year.Contains(c.End) {
		return decimal.Zero, ErrOutOfWindow
	}

	days := Duration(c.Start, c.End, c.IsSingleDay, c.SingleDayPart, v.holidays)

	switch {
	case c.Type.ConsumesAllowance():
		b, err := v.calc.Summary(ctx, repo, c.EmployeeID, year.ID)
		if err != nil {
			return decimal.Zero, err
		}
		if err := v.calc.CheckAllowance(b, days); err != nil {
			return decimal.Zero, err
		}
	case c.Type == TypeVolunteer:
		if err := v.calc.CheckVolunteer(ctx, repo, c.EmployeeID, year.ID, c.ExcludeEntryID, days); err != nil {
			return decimal.Zero, err
		}
	}
	return days, nil
}

// checkShape normalizes single-day requests and rejects malformed input.
func (v Validator) checkShape(c *Candidate) error {
	if !c.Type.Valid() {
		return invalidInput("unknown leave type %q", c.Type)
	}
	if c.Type == TypeOther && c.TypeOther == "" {
		return invalidInput("leave type description is required for other leave")
	}
	if c.Start.IsZero() {
		return invalidInput("start date is required")
	}
	if c.SingleDayPart == "" {
		c.SingleDayPart = DayFull
	}
	switch c.SingleDayPart {
	case DayFull, DayAM, DayPM:
	default:
		return invalidInput("unknown day part %q", c.SingleDayPart)
	}
	if c.IsSingleDay {
		if c.End.IsZero() {
			c.End = c.Start
		}
		if !c.End.Equal(c.Start) {
			return invalidInput("single-day request must start and end on the same day")
		}
	} else if c.SingleDayPart.IsHalf() {
		return invalidInput("half days are only valid on single-day requests")
	}
	if c.End.IsZero() {
		return invalidInput("end date is required")
	}
	if c.End.Before(c.Start) {
		return ErrInvalidRange
	}
	return nil
}
