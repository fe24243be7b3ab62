/*
types.go - Leave domain types

PURPOSE:
  Leave years, per-employee policies, time-in-lieu credits and the central
  LeaveEntry, plus the classification of leave types that drives which
  balance pool an entry draws from.

POOLS:
  annual_leave, personal_leave  -> annual allowance (checked, conflict-detected)
  volunteer_leave               -> separate 2 day/year pool
  sick_leave                    -> tracked only, auto-approved when HR files it
  everything else               -> recorded, no pool

SEE ALSO:
  - status.go: lifecycle status
  - balance.go: how pools are summed
*/
package leave

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/generic"
)

// Type is the category of a leave entry.
type Type string

const (
	TypeAnnual              Type = "annual_leave"
	TypeSick                Type = "sick_leave"
	TypePersonal            Type = "personal_leave"
	TypeVolunteer           Type = "volunteer_leave"
	TypeBereavementFamily   Type = "bereavement_immediate_family"
	TypeBereavementExtended Type = "bereavement_extended_family"
	TypeJuryDuty            Type = "jury_duty"
	TypeEmergency           Type = "emergency_leave"
	TypeTemporary           Type = "temporary_leave"
	TypeWithoutPay          Type = "leave_without_pay"
	TypeOther               Type = "other"
)

var knownTypes = map[Type]string{
	TypeAnnual:              "Annual Leave",
	TypeSick:                "Sick Leave",
	TypePersonal:            "Personal Leave",
	TypeVolunteer:           "Volunteer Leave",
	TypeBereavementFamily:   "Bereavement (Immediate Family)",
	TypeBereavementExtended: "Bereavement (Extended Family)",
	TypeJuryDuty:            "Jury Duty",
	TypeEmergency:           "Emergency Leave",
	TypeTemporary:           "Temporary Leave",
	TypeWithoutPay:          "Leave Without Pay",
	TypeOther:               "Other",
}

// Valid reports whether t is a known leave type.
func (t Type) Valid() bool {
	_, ok := knownTypes[t]
	return ok
}

// Label is the human-readable name used for calendar events.
func (t Type) Label() string {
	if l, ok := knownTypes[t]; ok {
		return l
	}
	return string(t)
}

// ConsumesAllowance is true for types deducted from the annual allowance.
func (t Type) ConsumesAllowance() bool {
	return t == TypeAnnual || t == TypePersonal
}

// AllowanceTypes are the types summed into BalanceSummary.Used.
var AllowanceTypes = []Type{TypeAnnual, TypePersonal}

// DayPart selects the portion of a single-day request.
type DayPart string

const (
	DayFull DayPart = "FULL"
	DayAM   DayPart = "AM"
	DayPM   DayPart = "PM"
)

// IsHalf is true for AM or PM.
func (p DayPart) IsHalf() bool { return p == DayAM || p == DayPM }

// ManagerChoice is the designated manager's literal answer.
type ManagerChoice string

const (
	ChoiceYes     ManagerChoice = "yes"
	ChoiceNo      ManagerChoice = "no"
	ChoiceDiscuss ManagerChoice = "speak_to_line_manager"
)

// SickTrackingMode is informational: whether sick days are tracked per year.
type SickTrackingMode string

const (
	SickTracked   SickTrackingMode = "tracked"
	SickUnlimited SickTrackingMode = "unlimited"
)

// Role of an actor as reported by the directory.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleHR       Role = "hr"
)

// Employee is the directory's view of a person.
type Employee struct {
	ID           string
	Name         string
	Email        string
	DepartmentID string // empty when the employee belongs to no department
	ManagerID    string // org-chart manager
	Role         Role
}

func (e Employee) IsHR() bool { return e.Role == RoleHR }

// Year is a fiscal leave-year window. Never modified after creation.
type Year struct {
	ID    string
	Start generic.TimePoint // 1 Apr
	End   generic.TimePoint // 31 Mar, inclusive
}

func (y Year) Period() generic.Period {
	return generic.Period{Start: y.Start, End: y.End}
}

// Contains is inclusive of the whole of 31 Mar.
func (y Year) Contains(d generic.TimePoint) bool {
	return y.Period().Contains(d)
}

// Policy is the per-(employee, year) entitlement configuration.
type Policy struct {
	ID               string
	EmployeeID       string
	YearID           string
	AnnualAllowance  decimal.Decimal
	CarryOverDays    decimal.Decimal
	AdjustmentDays   decimal.Decimal // signed manual correction
	SickTrackingMode SickTrackingMode
	Notes            string
	UpdatedBy        string
	UpdatedAt        time.Time
}

// DefaultAllowance applies when no policy row exists.
var DefaultAllowance = decimal.NewFromInt(25)

// VolunteerAllowance is the fixed yearly volunteer pool.
var VolunteerAllowance = decimal.NewFromInt(2)

// DefaultPolicy is used when an employee has no policy for the year.
func DefaultPolicy(employeeID, yearID string) Policy {
	return Policy{
		EmployeeID:       employeeID,
		YearID:           yearID,
		AnnualAllowance:  DefaultAllowance,
		CarryOverDays:    decimal.Zero,
		AdjustmentDays:   decimal.Zero,
		SickTrackingMode: SickTracked,
	}
}

// TimeInLieu is an append-only credit of extra days.
type TimeInLieu struct {
	ID         string
	EmployeeID string
	YearID     string
	Days       decimal.Decimal
	Reason     string
	AddedBy    string
	CreatedAt  time.Time
}

// MinTimeInLieu is the smallest credit accepted.
var MinTimeInLieu = decimal.NewFromFloat(0.5)

// CalendarLinks are the external event ids of a booked entry.
type CalendarLinks struct {
	GoogleEventID string `json:"googleEventId,omitempty"`
	SharedEventID string `json:"sharedEventId,omitempty"`
}

func (c CalendarLinks) IsZero() bool { return c.GoogleEventID == "" && c.SharedEventID == "" }

// Entry is a single leave request and its lifecycle state.
type Entry struct {
	ID            string
	EmployeeID    string
	EmployeeName  string
	YearID        string
	Type          Type
	TypeOther     string // required when Type is TypeOther
	Start         generic.TimePoint
	End           generic.TimePoint
	IsSingleDay   bool
	SingleDayPart DayPart
	DurationDays  decimal.Decimal
	Status        Status
	ManagerID     string
	ManagerName   string
	ManagerChoice ManagerChoice // empty until the manager decides
	Calendar      CalendarLinks
	CreatedBy     string
	Reason        string
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (e *Entry) Period() generic.Period {
	return generic.Period{Start: e.Start, End: e.End}
}

// BalanceSummary is the computed state of an employee's pools for a year.
type BalanceSummary struct {
	EmployeeID    string
	YearID        string
	Allowance     decimal.Decimal
	CarryOver     decimal.Decimal
	Adjustment    decimal.Decimal
	TimeInLieu    decimal.Decimal
	Used          decimal.Decimal
	Remaining     decimal.Decimal
	SickDays      decimal.Decimal
	VolunteerDays decimal.Decimal
}

// Entitlement is allowance + carryOver + adjustment + timeInLieu.
func (b BalanceSummary) Entitlement() decimal.Decimal {
	return b.Allowance.Add(b.CarryOver).Add(b.Adjustment).Add(b.TimeInLieu)
}

// Conflict is an approved colleague booking overlapping a candidate range.
type Conflict struct {
	EntryID       string
	ColleagueID   string
	ColleagueName string
	Start         generic.TimePoint
	End           generic.TimePoint
}
