package sqlstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// LEAVE YEARS
// =============================================================================

type yearRow struct {
	ID        string `db:"id"`
	StartDate string `db:"start_date"`
	EndDate   string `db:"end_date"`
}

func (row yearRow) toYear() (*leave.Year, error) {
	start, err := generic.ParseDate(row.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := generic.ParseDate(row.EndDate)
	if err != nil {
		return nil, err
	}
	return &leave.Year{ID: row.ID, Start: start, End: end}, nil
}

func (r repo) year(ctx context.Context, where string, arg any) (*leave.Year, error) {
	var row yearRow
	found, err := r.get(ctx, &row, "SELECT id, start_date, end_date FROM leave_years WHERE "+where, arg)
	if err != nil {
		return nil, errors.Wrap(err, "select leave year")
	}
	if !found {
		return nil, nil
	}
	return row.toYear()
}

func (r repo) YearByStart(ctx context.Context, start generic.TimePoint) (*leave.Year, error) {
	return r.year(ctx, "start_date = ?", start.String())
}

func (r repo) YearByID(ctx context.Context, id string) (*leave.Year, error) {
	return r.year(ctx, "id = ?", id)
}

// InsertYear relies on the unique start_date index: a concurrent insert of
// the same window is silently dropped and the caller re-reads the winner.
func (r repo) InsertYear(ctx context.Context, y leave.Year) error {
	_, err := r.exec(ctx, `INSERT INTO leave_years (id, start_date, end_date, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (start_date) DO NOTHING`,
		y.ID, y.Start.String(), y.End.String(), formatTS(time.Now()))
	return errors.Wrap(err, "insert leave year")
}

// =============================================================================
// POLICIES
// =============================================================================

type policyRow struct {
	ID               string `db:"id"`
	EmployeeID       string `db:"employee_id"`
	YearID           string `db:"leave_year_id"`
	AnnualAllowance  string `db:"annual_allowance"`
	CarryOverDays    string `db:"carry_over_days"`
	AdjustmentDays   string `db:"adjustment_days"`
	SickTrackingMode string `db:"sick_tracking_mode"`
	Notes            string `db:"notes"`
	UpdatedBy        string `db:"updated_by"`
	UpdatedAt        string `db:"updated_at"`
}

func (r repo) Policy(ctx context.Context, employeeID, yearID string) (*leave.Policy, error) {
	var row policyRow
	found, err := r.get(ctx, &row, `SELECT id, employee_id, leave_year_id, annual_allowance, carry_over_days,
		adjustment_days, sick_tracking_mode, notes, updated_by, updated_at
		FROM leave_policies WHERE employee_id = ? AND leave_year_id = ?`, employeeID, yearID)
	if err != nil {
		return nil, errors.Wrap(err, "select policy")
	}
	if !found {
		return nil, nil
	}

	p := &leave.Policy{
		ID:               row.ID,
		EmployeeID:       row.EmployeeID,
		YearID:           row.YearID,
		SickTrackingMode: leave.SickTrackingMode(row.SickTrackingMode),
		Notes:            row.Notes,
		UpdatedBy:        row.UpdatedBy,
		UpdatedAt:        parseTS(row.UpdatedAt),
	}
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&p.AnnualAllowance, row.AnnualAllowance},
		{&p.CarryOverDays, row.CarryOverDays},
		{&p.AdjustmentDays, row.AdjustmentDays},
	} {
		if *f.dst, err = decimal.NewFromString(f.src); err != nil {
			return nil, errors.Wrapf(err, "policy %s", row.ID)
		}
	}
	return p, nil
}

// UpsertPolicy keeps one row per (employee, year).
func (r repo) UpsertPolicy(ctx context.Context, p leave.Policy) error {
	_, err := r.exec(ctx, `INSERT INTO leave_policies (id, employee_id, leave_year_id, annual_allowance,
		carry_over_days, adjustment_days, sick_tracking_mode, notes, updated_by, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (employee_id, leave_year_id) DO UPDATE SET
			annual_allowance = excluded.annual_allowance,
			carry_over_days = excluded.carry_over_days,
			adjustment_days = excluded.adjustment_days,
			sick_tracking_mode = excluded.sick_tracking_mode,
			notes = excluded.notes,
			updated_by = excluded.updated_by,
			updated_at = excluded.updated_at`,
		p.ID, p.EmployeeID, p.YearID, p.AnnualAllowance.String(),
		p.CarryOverDays.String(), p.AdjustmentDays.String(), string(p.SickTrackingMode), p.Notes,
		p.UpdatedBy, formatTS(p.UpdatedAt))
	return errors.Wrap(err, "upsert policy")
}

// =============================================================================
// TIME IN LIEU (append-only)
// =============================================================================

type timeInLieuRow struct {
	ID         string `db:"id"`
	EmployeeID string `db:"employee_id"`
	YearID     string `db:"leave_year_id"`
	Days       string `db:"days"`
	Reason     string `db:"reason"`
	AddedBy    string `db:"added_by"`
	CreatedAt  string `db:"created_at"`
}

func (r repo) InsertTimeInLieu(ctx context.Context, a leave.TimeInLieu) error {
	_, err := r.exec(ctx, `INSERT INTO time_in_lieu (id, employee_id, leave_year_id, days, reason, added_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.EmployeeID, a.YearID, a.Days.String(), a.Reason, a.AddedBy, formatTS(a.CreatedAt))
	return errors.Wrap(err, "insert time in lieu")
}

func (r repo) TimeInLieuFor(ctx context.Context, employeeID, yearID string) ([]leave.TimeInLieu, error) {
	var rows []timeInLieuRow
	if err := r.selectAll(ctx, &rows, `SELECT id, employee_id, leave_year_id, days, reason, added_by, created_at
		FROM time_in_lieu WHERE employee_id = ? AND leave_year_id = ? ORDER BY created_at`, employeeID, yearID); err != nil {
		return nil, errors.Wrap(err, "select time in lieu")
	}

	out := make([]leave.TimeInLieu, 0, len(rows))
	for _, row := range rows {
		days, err := decimal.NewFromString(row.Days)
		if err != nil {
			return nil, errors.Wrapf(err, "time in lieu %s", row.ID)
		}
		out = append(out, leave.TimeInLieu{
			ID:         row.ID,
			EmployeeID: row.EmployeeID,
			YearID:     row.YearID,
			Days:       days,
			Reason:     row.Reason,
			AddedBy:    row.AddedBy,
			CreatedAt:  parseTS(row.CreatedAt),
		})
	}
	return out, nil
}
