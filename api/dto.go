/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON shapes of the HTTP surface. Request bodies carry validator tags and
  are checked before they reach the leave service; responses are built from
  domain values by the to*DTO helpers.

NAMING CONVENTION:
  - *Request: request bodies from clients
  - *DTO:     response types returned to clients

FORMATS:
  Dates are YYYY-MM-DD. Day amounts are decimal strings ("2.5"); numbers are
  accepted on input.

SEE ALSO:
  - handlers.go: uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// REQUESTS
// =============================================================================

// LeaveRequest is the body for submit, create and edit.
type LeaveRequest struct {
	EmployeeID    string `json:"employeeId"`
	ManagerID     string `json:"managerId"`
	Type          string `json:"leaveType" validate:"required"`
	TypeOther     string `json:"leaveTypeOther" validate:"required_if=Type other"`
	StartDate     string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate       string `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
	IsSingleDay   bool   `json:"isSingleDay"`
	SingleDayPart string `json:"singleDayPart" validate:"omitempty,oneof=FULL AM PM"`
	Reason        string `json:"reason" validate:"max=2000"`
	Notes         string `json:"notes" validate:"max=2000"`
}

func (r LeaveRequest) dates() (start, end generic.TimePoint, err error) {
	if start, err = generic.ParseDate(r.StartDate); err != nil {
		return
	}
	if r.EndDate != "" {
		end, err = generic.ParseDate(r.EndDate)
	}
	return
}

type DecisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject yes no speak_to_line_manager"`
}

type ResolveCancellationRequest struct {
	Approve *bool `json:"approve" validate:"required"`
}

type TimeInLieuRequest struct {
	YearID string          `json:"leaveYearId" validate:"required"`
	Days   decimal.Decimal `json:"days"`
	Reason string          `json:"reason" validate:"required,max=500"`
}

// PolicyRequest updates only the fields present.
type PolicyRequest struct {
	AnnualAllowance  *decimal.Decimal `json:"annualAllowance"`
	CarryOverDays    *decimal.Decimal `json:"carryOverDays"`
	AdjustmentDays   *decimal.Decimal `json:"adjustmentDays"`
	SickTrackingMode *string          `json:"sickTrackingMode" validate:"omitempty,oneof=tracked unlimited"`
	Notes            *string          `json:"notes" validate:"omitempty,max=2000"`
}

// EmployeeRequest maintains the directory read model.
type EmployeeRequest struct {
	Name         string `json:"name" validate:"required"`
	Email        string `json:"email" validate:"omitempty,email"`
	DepartmentID string `json:"departmentId"`
	ManagerID    string `json:"managerId"`
	Role         string `json:"role" validate:"omitempty,oneof=employee manager hr"`
}

// =============================================================================
// RESPONSES
// =============================================================================

type LeaveYearDTO struct {
	ID        string `json:"id"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type BalanceDTO struct {
	EmployeeID    string          `json:"employeeId"`
	YearID        string          `json:"leaveYearId"`
	Allowance     decimal.Decimal `json:"allowance"`
	CarryOver     decimal.Decimal `json:"carryOver"`
	Adjustment    decimal.Decimal `json:"adjustment"`
	TimeInLieu    decimal.Decimal `json:"timeInLieu"`
	Used          decimal.Decimal `json:"used"`
	Remaining     decimal.Decimal `json:"remaining"`
	SickDays      decimal.Decimal `json:"sickDays"`
	VolunteerDays decimal.Decimal `json:"volunteerDays"`
}

type EntryDTO struct {
	ID                       string          `json:"id"`
	EmployeeID               string          `json:"employeeId"`
	EmployeeName             string          `json:"employeeName"`
	YearID                   string          `json:"leaveYearId"`
	Type                     string          `json:"leaveType"`
	TypeOther                string          `json:"leaveTypeOther,omitempty"`
	StartDate                string          `json:"startDate"`
	EndDate                  string          `json:"endDate"`
	IsSingleDay              bool            `json:"isSingleDay"`
	SingleDayPart            string          `json:"singleDayPart"`
	DurationDays             decimal.Decimal `json:"durationDays"`
	Status                   string          `json:"status"`
	StatusBeforeCancellation *string         `json:"statusBeforeCancellation"`
	ManagerID                string          `json:"managerId,omitempty"`
	ManagerName              string          `json:"managerName,omitempty"`
	ManagerApproval          string          `json:"managerApproval,omitempty"`
	GoogleEventID            *string         `json:"googleEventId"`
	SharedEventID            *string         `json:"sharedEventId"`
	CreatedBy                string          `json:"createdBy"`
	Reason                   string          `json:"reason,omitempty"`
	Notes                    string          `json:"notes,omitempty"`
	CreatedAt                string          `json:"createdAt"`
	UpdatedAt                string          `json:"updatedAt"`
}

type AuditDTO struct {
	ID        string         `json:"id"`
	Action    string         `json:"action"`
	ActorID   string         `json:"actorId"`
	TargetID  string         `json:"targetId"`
	Detail    string         `json:"detail"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt string         `json:"createdAt"`
}

type TimeInLieuDTO struct {
	ID         string          `json:"id"`
	EmployeeID string          `json:"employeeId"`
	YearID     string          `json:"leaveYearId"`
	Days       decimal.Decimal `json:"days"`
	Reason     string          `json:"reason"`
	AddedBy    string          `json:"addedBy"`
	CreatedAt  string          `json:"createdAt"`
}

type PolicyDTO struct {
	ID               string          `json:"id"`
	EmployeeID       string          `json:"employeeId"`
	YearID           string          `json:"leaveYearId"`
	AnnualAllowance  decimal.Decimal `json:"annualAllowance"`
	CarryOverDays    decimal.Decimal `json:"carryOverDays"`
	AdjustmentDays   decimal.Decimal `json:"adjustmentDays"`
	SickTrackingMode string          `json:"sickTrackingMode"`
	Notes            string          `json:"notes,omitempty"`
	UpdatedBy        string          `json:"updatedBy"`
	UpdatedAt        string          `json:"updatedAt"`
}

type ConflictDTO struct {
	EntryID       string `json:"entryId"`
	ColleagueID   string `json:"colleagueId"`
	ColleagueName string `json:"colleagueName"`
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string        `json:"error"`
	Code      string        `json:"code"`
	Details   string        `json:"details,omitempty"`
	Conflicts []ConflictDTO `json:"conflicts,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toYearDTO(y leave.Year) LeaveYearDTO {
	return LeaveYearDTO{ID: y.ID, StartDate: y.Start.String(), EndDate: y.End.String()}
}

func toBalanceDTO(b leave.BalanceSummary) BalanceDTO {
	return BalanceDTO{
		EmployeeID:    b.EmployeeID,
		YearID:        b.YearID,
		Allowance:     b.Allowance,
		CarryOver:     b.CarryOver,
		Adjustment:    b.Adjustment,
		TimeInLieu:    b.TimeInLieu,
		Used:          b.Used,
		Remaining:     b.Remaining,
		SickDays:      b.SickDays,
		VolunteerDays: b.VolunteerDays,
	}
}

func toEntryDTO(e *leave.Entry) EntryDTO {
	return EntryDTO{
		ID:                       e.ID,
		EmployeeID:               e.EmployeeID,
		EmployeeName:             e.EmployeeName,
		YearID:                   e.YearID,
		Type:                     string(e.Type),
		TypeOther:                e.TypeOther,
		StartDate:                e.Start.String(),
		EndDate:                  e.End.String(),
		IsSingleDay:              e.IsSingleDay,
		SingleDayPart:            string(e.SingleDayPart),
		DurationDays:             e.DurationDays,
		Status:                   e.Status.String(),
		StatusBeforeCancellation: optional(e.Status.PriorName()),
		ManagerID:                e.ManagerID,
		ManagerName:              e.ManagerName,
		ManagerApproval:          string(e.ManagerChoice),
		GoogleEventID:            optional(e.Calendar.GoogleEventID),
		SharedEventID:            optional(e.Calendar.SharedEventID),
		CreatedBy:                e.CreatedBy,
		Reason:                   e.Reason,
		Notes:                    e.Notes,
		CreatedAt:                formatTime(e.CreatedAt),
		UpdatedAt:                formatTime(e.UpdatedAt),
	}
}

func toAuditDTO(a leave.AuditRecord) AuditDTO {
	return AuditDTO{
		ID:        a.ID,
		Action:    string(a.Action),
		ActorID:   a.ActorID,
		TargetID:  a.TargetID,
		Detail:    a.Detail,
		Metadata:  a.Metadata,
		CreatedAt: formatTime(a.CreatedAt),
	}
}

func toTimeInLieuDTO(a *leave.TimeInLieu) TimeInLieuDTO {
	return TimeInLieuDTO{
		ID:         a.ID,
		EmployeeID: a.EmployeeID,
		YearID:     a.YearID,
		Days:       a.Days,
		Reason:     a.Reason,
		AddedBy:    a.AddedBy,
		CreatedAt:  formatTime(a.CreatedAt),
	}
}

func toPolicyDTO(p *leave.Policy) PolicyDTO {
	return PolicyDTO{
		ID:               p.ID,
		EmployeeID:       p.EmployeeID,
		YearID:           p.YearID,
		AnnualAllowance:  p.AnnualAllowance,
		CarryOverDays:    p.CarryOverDays,
		AdjustmentDays:   p.AdjustmentDays,
		SickTrackingMode: string(p.SickTrackingMode),
		Notes:            p.Notes,
		UpdatedBy:        p.UpdatedBy,
		UpdatedAt:        formatTime(p.UpdatedAt),
	}
}

func toConflictDTOs(cs []leave.Conflict) []ConflictDTO {
	out := make([]ConflictDTO, len(cs))
	for i, c := range cs {
		out[i] = ConflictDTO{
			EntryID:       c.EntryID,
			ColleagueID:   c.ColleagueID,
			ColleagueName: c.ColleagueName,
			StartDate:     c.Start.String(),
			EndDate:       c.End.String(),
		}
	}
	return out
}
