/*
balance.go - Balance calculator

FORMULA:
  entitlement = allowance + carryOver + adjustment + timeInLieu
  remaining   = entitlement - used

  used          = sum(durationDays) of approved annual_leave + personal_leave
  sickDays      = sum(durationDays) of approved sick_leave (informational)
  volunteerDays = sum(durationDays) of approved volunteer_leave

  A candidate request fails the allowance check when
  used + candidate > entitlement. The volunteer pool (2 days) also reserves
  days for requests still awaiting a decision or a cancellation.

DURATION:
  Business days (Mon-Fri, minus holidays) over the inclusive range. A single
  day booked AM or PM counts as half a day.
*/
package leave

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/generic"
)

var half = decimal.NewFromFloat(0.5)

// Duration computes durationDays for a request.
func Duration(start, end generic.TimePoint, singleDay bool, part DayPart, holidays generic.HolidayCalendar) decimal.Decimal {
	days := decimal.NewFromInt(int64(generic.BusinessDays(start, end, holidays)))
	if singleDay && part.IsHalf() && days.GreaterThan(half) {
		return half
	}
	return days
}

// Calculator builds BalanceSummary values from a Repository.
type Calculator struct{}

// Summary computes the balance for the employee's year.
func (Calculator) Summary(ctx context.Context, repo Repository, employeeID, yearID string) (BalanceSummary, error) {
	policy, err := repo.Policy(ctx, employeeID, yearID)
	if err != nil {
		return BalanceSummary{}, fmt.Errorf("load policy: %w", err)
	}
	if policy == nil {
		p := DefaultPolicy(employeeID, yearID)
		policy = &p
	}

	credits, err := repo.TimeInLieuFor(ctx, employeeID, yearID)
	if err != nil {
		return BalanceSummary{}, fmt.Errorf("load time in lieu: %w", err)
	}
	entries, err := repo.EntriesFor(ctx, employeeID, yearID)
	if err != nil {
		return BalanceSummary{}, fmt.Errorf("load entries: %w", err)
	}

	b := BalanceSummary{
		EmployeeID:    employeeID,
		YearID:        yearID,
		Allowance:     policy.AnnualAllowance,
		CarryOver:     policy.CarryOverDays,
		Adjustment:    policy.AdjustmentDays,
		TimeInLieu:    decimal.Zero,
		Used:          decimal.Zero,
		SickDays:      decimal.Zero,
		VolunteerDays: decimal.Zero,
	}
	for _, c := range credits {
		b.TimeInLieu = b.TimeInLieu.Add(c.Days)
	}
	for _, e := range entries {
		// An approved entry awaiting a cancellation decision stays booked
		// until the cancellation is approved.
		if !e.Status.WasApproved() {
			continue
		}
		switch {
		case e.Type.ConsumesAllowance():
			b.Used = b.Used.Add(e.DurationDays)
		case e.Type == TypeSick:
			b.SickDays = b.SickDays.Add(e.DurationDays)
		case e.Type == TypeVolunteer:
			b.VolunteerDays = b.VolunteerDays.Add(e.DurationDays)
		}
	}
	b.Remaining = b.Entitlement().Sub(b.Used)
	return b, nil
}

// CheckAllowance rejects a candidate that would take used past entitlement.
func (Calculator) CheckAllowance(b BalanceSummary, candidate decimal.Decimal) error {
	if b.Used.Add(candidate).GreaterThan(b.Entitlement()) {
		return &InsufficientBalanceError{
			Available: b.Remaining,
			Requested: candidate,
			Shortfall: candidate.Sub(b.Remaining),
		}
	}
	return nil
}

// CheckVolunteer rejects a candidate that would exceed the volunteer pool.
// excludeID keeps an entry being edited from counting against itself.
func (Calculator) CheckVolunteer(ctx context.Context, repo Repository, employeeID, yearID, excludeID string, candidate decimal.Decimal) error {
	entries, err := repo.EntriesFor(ctx, employeeID, yearID)
	if err != nil {
		return fmt.Errorf("load entries: %w", err)
	}
	used := decimal.Zero
	for _, e := range entries {
		if e.ID == excludeID || e.Type != TypeVolunteer || !e.Status.CountsAsInFlight() {
			continue
		}
		used = used.Add(e.DurationDays)
	}
	if used.Add(candidate).GreaterThan(VolunteerAllowance) {
		remaining := VolunteerAllowance.Sub(used)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		return &VolunteerLimitError{Used: used, Requested: candidate, Remaining: remaining}
	}
	return nil
}
