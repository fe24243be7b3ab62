package sqlstore

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

const selectEntry = `SELECT id, employee_id, employee_name, leave_year_id, leave_type, leave_type_other,
	start_date, end_date, is_single_day, single_day_part, duration_days, status,
	status_before_cancellation, manager_id, manager_name, manager_approval,
	google_event_id, shared_event_id, created_by, reason, notes, created_at, updated_at
	FROM leave_entries`

type entryRow struct {
	ID                       string         `db:"id"`
	EmployeeID               string         `db:"employee_id"`
	EmployeeName             string         `db:"employee_name"`
	YearID                   string         `db:"leave_year_id"`
	Type                     string         `db:"leave_type"`
	TypeOther                string         `db:"leave_type_other"`
	StartDate                string         `db:"start_date"`
	EndDate                  string         `db:"end_date"`
	IsSingleDay              int            `db:"is_single_day"`
	SingleDayPart            string         `db:"single_day_part"`
	DurationDays             string         `db:"duration_days"`
	Status                   string         `db:"status"`
	StatusBeforeCancellation sql.NullString `db:"status_before_cancellation"`
	ManagerID                string         `db:"manager_id"`
	ManagerName              string         `db:"manager_name"`
	ManagerApproval          string         `db:"manager_approval"`
	GoogleEventID            sql.NullString `db:"google_event_id"`
	SharedEventID            sql.NullString `db:"shared_event_id"`
	CreatedBy                string         `db:"created_by"`
	Reason                   string         `db:"reason"`
	Notes                    string         `db:"notes"`
	CreatedAt                string         `db:"created_at"`
	UpdatedAt                string         `db:"updated_at"`
}

func (row entryRow) toEntry() (*leave.Entry, error) {
	status, err := leave.ParseStatus(row.Status, row.StatusBeforeCancellation.String)
	if err != nil {
		return nil, errors.Wrapf(err, "entry %s", row.ID)
	}
	start, err := generic.ParseDate(row.StartDate)
	if err != nil {
		return nil, errors.Wrapf(err, "entry %s", row.ID)
	}
	end, err := generic.ParseDate(row.EndDate)
	if err != nil {
		return nil, errors.Wrapf(err, "entry %s", row.ID)
	}
	days, err := decimal.NewFromString(row.DurationDays)
	if err != nil {
		return nil, errors.Wrapf(err, "entry %s duration", row.ID)
	}
	return &leave.Entry{
		ID:            row.ID,
		EmployeeID:    row.EmployeeID,
		EmployeeName:  row.EmployeeName,
		YearID:        row.YearID,
		Type:          leave.Type(row.Type),
		TypeOther:     row.TypeOther,
		Start:         start,
		End:           end,
		IsSingleDay:   row.IsSingleDay != 0,
		SingleDayPart: leave.DayPart(row.SingleDayPart),
		DurationDays:  days,
		Status:        status,
		ManagerID:     row.ManagerID,
		ManagerName:   row.ManagerName,
		ManagerChoice: leave.ManagerChoice(row.ManagerApproval),
		Calendar: leave.CalendarLinks{
			GoogleEventID: row.GoogleEventID.String,
			SharedEventID: row.SharedEventID.String,
		},
		CreatedBy: row.CreatedBy,
		Reason:    row.Reason,
		Notes:     row.Notes,
		CreatedAt: parseTS(row.CreatedAt),
		UpdatedAt: parseTS(row.UpdatedAt),
	}, nil
}

func toEntries(rows []entryRow) ([]leave.Entry, error) {
	out := make([]leave.Entry, 0, len(rows))
	for _, row := range rows {
		e, err := row.toEntry()
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, nil
}

func (r repo) entry(ctx context.Context, query string, args ...any) (*leave.Entry, error) {
	var row entryRow
	found, err := r.get(ctx, &row, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select entry")
	}
	if !found {
		return nil, nil
	}
	return row.toEntry()
}

func (r repo) Entry(ctx context.Context, id string) (*leave.Entry, error) {
	return r.entry(ctx, selectEntry+" WHERE id = ?", id)
}

func (r repo) InsertEntry(ctx context.Context, e *leave.Entry) error {
	_, err := r.exec(ctx, `INSERT INTO leave_entries (id, employee_id, employee_name, leave_year_id,
		leave_type, leave_type_other, start_date, end_date, is_single_day, single_day_part,
		duration_days, status, status_before_cancellation, manager_id, manager_name,
		manager_approval, google_event_id, shared_event_id, created_by, reason, notes,
		created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.EmployeeID, e.EmployeeName, e.YearID,
		string(e.Type), e.TypeOther, e.Start.String(), e.End.String(), boolToInt(e.IsSingleDay), string(e.SingleDayPart),
		e.DurationDays.String(), e.Status.String(), nullString(e.Status.PriorName()), e.ManagerID, e.ManagerName,
		string(e.ManagerChoice), nullString(e.Calendar.GoogleEventID), nullString(e.Calendar.SharedEventID),
		e.CreatedBy, e.Reason, e.Notes,
		formatTS(e.CreatedAt), formatTS(e.UpdatedAt),
	)
	return errors.Wrap(err, "insert entry")
}

func (r repo) UpdateEntry(ctx context.Context, e *leave.Entry) error {
	res, err := r.exec(ctx, `UPDATE leave_entries SET leave_year_id = ?, leave_type = ?, leave_type_other = ?,
		start_date = ?, end_date = ?, is_single_day = ?, single_day_part = ?, duration_days = ?,
		status = ?, status_before_cancellation = ?, manager_id = ?, manager_name = ?,
		manager_approval = ?, google_event_id = ?, shared_event_id = ?, reason = ?, notes = ?,
		updated_at = ?
		WHERE id = ?`,
		e.YearID, string(e.Type), e.TypeOther,
		e.Start.String(), e.End.String(), boolToInt(e.IsSingleDay), string(e.SingleDayPart), e.DurationDays.String(),
		e.Status.String(), nullString(e.Status.PriorName()), e.ManagerID, e.ManagerName,
		string(e.ManagerChoice), nullString(e.Calendar.GoogleEventID), nullString(e.Calendar.SharedEventID), e.Reason, e.Notes,
		formatTS(e.UpdatedAt),
		e.ID,
	)
	if err != nil {
		return errors.Wrap(err, "update entry")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Wrapf(leave.ErrNotFound, "entry %s", e.ID)
	}
	return nil
}

func (r repo) EntriesFor(ctx context.Context, employeeID, yearID string) ([]leave.Entry, error) {
	var rows []entryRow
	err := r.selectAll(ctx, &rows, selectEntry+" WHERE employee_id = ? AND leave_year_id = ? ORDER BY start_date, created_at",
		employeeID, yearID)
	if err != nil {
		return nil, errors.Wrap(err, "select entries")
	}
	return toEntries(rows)
}

// bookedStatus matches approved entries, including those overlaid by a
// pending cancellation. It mirrors leave.Status.WasApproved.
const bookedStatus = `(status = 'approved' OR (status = 'pending_cancellation' AND status_before_cancellation = 'approved'))`

func (r repo) ApprovedEntries(ctx context.Context, employeeIDs []string, yearID string, types []leave.Type) ([]leave.Entry, error) {
	if len(employeeIDs) == 0 || len(types) == 0 {
		return nil, nil
	}
	typeNames := make([]string, len(types))
	for i, t := range types {
		typeNames[i] = string(t)
	}
	var rows []entryRow
	err := r.selectIn(ctx, &rows,
		selectEntry+" WHERE employee_id IN (?) AND leave_year_id = ? AND "+bookedStatus+" AND leave_type IN (?) ORDER BY start_date",
		employeeIDs, yearID, typeNames)
	if err != nil {
		return nil, errors.Wrap(err, "select approved entries")
	}
	return toEntries(rows)
}
