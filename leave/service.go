/*
service.go - Leave request lifecycle

PURPOSE:
  Every operation on a leave entry. Each mutating call is one store
  transaction that locks what it decides on, re-reads balances and conflicts
  inside the lock, writes the entry, appends the audit row and enqueues any
  calendar side effect. A refused call writes nothing.

STATE MACHINE:
  submit                 -> pending_manager_approval
  create (HR/manager)    -> requested | approved (sick_leave)
  requested|pending      --approve/reject-->      approved | rejected
  pending                --manager yes/no/discuss--> approved | rejected | needs_discussion
  pending                --edit (owner)-->        pending
  pending|discussion|approved --requestCancellation--> pending_cancellation{prior}
  pending_cancellation   --approveCancellation--> cancelled
  pending_cancellation   --rejectCancellation-->  prior
  pending|discussion|approved|pending_cancellation --forceCancel--> cancelled

LOCK ORDER:
  entry row, then employee rows (sorted). Submissions have no entry yet and
  lock only the employee.

SEE ALSO:
  - status.go: the Status union and which transitions it allows
  - validate.go: shared validation for submit, create and edit
  - events.go: calendar outbox messages
*/
package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/warp/leave-engine/generic"
)

// Options configures a Service. Zero values get defaults.
type Options struct {
	Clock    generic.Clock
	Holidays generic.HolidayCalendar
	Cache    Cache
	CacheTTL time.Duration
	Logger   *logrus.Entry
}

// Service implements the leave operations.
type Service struct {
	store     Store
	years     *YearResolver
	calc      Calculator
	conflicts ConflictDetector
	validator Validator
	clock     generic.Clock
	log       *logrus.Entry
}

func NewService(store Store, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = generic.RealClock{}
	}
	if opts.Holidays == nil {
		opts.Holidays = generic.NoHolidays{}
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = 24 * time.Hour
	}
	if opts.Logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		opts.Logger = logrus.NewEntry(l)
	}
	log := opts.Logger.WithField("component", "leave")
	return &Service{
		store:     store,
		years:     NewYearResolver(store, opts.Cache, opts.CacheTTL, log),
		validator: Validator{holidays: opts.Holidays},
		clock:     opts.Clock,
		log:       log,
	}
}

// =============================================================================
// INPUTS
// =============================================================================

type SubmitInput struct {
	EmployeeID    string
	ManagerID     string
	Type          Type
	TypeOther     string
	Start         generic.TimePoint
	End           generic.TimePoint
	IsSingleDay   bool
	SingleDayPart DayPart
	Reason        string
	Notes         string
}

type CreateInput struct {
	ActorID       string
	EmployeeID    string
	Type          Type
	TypeOther     string
	Start         generic.TimePoint
	End           generic.TimePoint
	IsSingleDay   bool
	SingleDayPart DayPart
	Reason        string
	Notes         string
}

type EditInput struct {
	EntryID       string
	ActorID       string
	Type          Type
	TypeOther     string
	Start         generic.TimePoint
	End           generic.TimePoint
	IsSingleDay   bool
	SingleDayPart DayPart
	Reason        string
	Notes         string
}

// Decision is what an approver answers. approve and reject are the generic
// manager/HR actions; yes, no and speak_to_line_manager are the designated
// manager's choices.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
	DecisionYes     Decision = Decision(ChoiceYes)
	DecisionNo      Decision = Decision(ChoiceNo)
	DecisionDiscuss Decision = Decision(ChoiceDiscuss)
)

type TimeInLieuInput struct {
	EmployeeID string
	YearID     string
	Days       decimal.Decimal
	Reason     string
	ActorID    string
}

// PolicyInput updates only the non-nil fields.
type PolicyInput struct {
	EmployeeID       string
	YearID           string
	ActorID          string
	AnnualAllowance  *decimal.Decimal
	CarryOverDays    *decimal.Decimal
	AdjustmentDays   *decimal.Decimal
	SickTrackingMode *SickTrackingMode
	Notes            *string
}

// =============================================================================
// READS
// =============================================================================

// ResolveLeaveYear returns the window containing date, creating it if needed.
func (s *Service) ResolveLeaveYear(ctx context.Context, date generic.TimePoint) (Year, error) {
	ctx, span := startSpan(ctx, "ResolveLeaveYear", attribute.String("date", date.String()))
	y, err := s.years.Resolve(ctx, date)
	return y, finish(span, "resolve_year", "", err)
}

// GetBalance computes the employee's balance for a leave year.
func (s *Service) GetBalance(ctx context.Context, employeeID, yearID string) (BalanceSummary, error) {
	ctx, span := startSpan(ctx, "GetBalance",
		attribute.String("employee.id", employeeID), attribute.String("leave_year.id", yearID))

	b, err := func() (BalanceSummary, error) {
		if _, err := s.year(ctx, s.store, yearID); err != nil {
			return BalanceSummary{}, err
		}
		if _, err := s.employee(ctx, s.store, employeeID, "employee"); err != nil {
			return BalanceSummary{}, err
		}
		return s.calc.Summary(ctx, s.store, employeeID, yearID)
	}()
	return b, finish(span, "get_balance", "", err)
}

func (s *Service) GetEntry(ctx context.Context, id string) (*Entry, error) {
	e, err := s.store.Entry(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, notFound("leave entry", id)
	}
	return e, nil
}

func (s *Service) ListEntries(ctx context.Context, employeeID, yearID string) ([]Entry, error) {
	if _, err := s.year(ctx, s.store, yearID); err != nil {
		return nil, err
	}
	return s.store.EntriesFor(ctx, employeeID, yearID)
}

// AuditTrail lists the audit rows for an entry or adjustment, oldest first.
func (s *Service) AuditTrail(ctx context.Context, targetID string) ([]AuditRecord, error) {
	return s.store.AuditFor(ctx, targetID)
}

// =============================================================================
// CREATION
// =============================================================================

// SubmitRequest is the self-service path: the employee names the manager who
// must decide, and the entry waits in pending_manager_approval.
func (s *Service) SubmitRequest(ctx context.Context, in SubmitInput) (*Entry, error) {
	ctx, span := startSpan(ctx, "SubmitRequest",
		attribute.String("employee.id", in.EmployeeID), attribute.String("leave.type", string(in.Type)))

	var out *Entry
	err := func() error {
		if in.ManagerID == "" {
			return invalidInput("manager is required")
		}
		if in.Start.IsZero() {
			return invalidInput("start date is required")
		}
		year, err := s.years.Resolve(ctx, in.Start)
		if err != nil {
			return err
		}
		if year.End.Before(generic.Today(s.clock)) {
			return ErrOutOfWindow
		}

		return s.store.WithTx(ctx, func(tx Tx) error {
			emp, err := s.employee(ctx, tx, in.EmployeeID, "employee")
			if err != nil {
				return err
			}
			mgr, err := s.employee(ctx, tx, in.ManagerID, "manager")
			if err != nil {
				return err
			}
			if err := tx.LockEmployees(ctx, emp.ID); err != nil {
				return err
			}

			c := &Candidate{
				EmployeeID: emp.ID, Type: in.Type, TypeOther: in.TypeOther,
				Start: in.Start, End: in.End, IsSingleDay: in.IsSingleDay, SingleDayPart: in.SingleDayPart,
			}
			days, err := s.validator.Validate(ctx, tx, year, c)
			if err != nil {
				return err
			}

			e := s.newEntry(emp, year, c, days, emp.ID, in.Reason, in.Notes)
			e.Status = PendingManager
			e.ManagerID = mgr.ID
			e.ManagerName = mgr.Name

			if err := tx.InsertEntry(ctx, e); err != nil {
				return fmt.Errorf("insert entry: %w", err)
			}
			if err := s.recordTransition(ctx, tx, ActionCreate, emp.ID, e, Status{}, nil); err != nil {
				return err
			}
			out = e
			return nil
		})
	}()
	return out, finish(span, "submit", ActionCreate, err)
}

// CreateRequest lets HR or the employee's line manager record leave on the
// employee's behalf. Sick leave is approved immediately and booked.
func (s *Service) CreateRequest(ctx context.Context, in CreateInput) (*Entry, error) {
	ctx, span := startSpan(ctx, "CreateRequest",
		attribute.String("employee.id", in.EmployeeID), attribute.String("actor.id", in.ActorID))

	var out *Entry
	err := func() error {
		if in.Start.IsZero() {
			return invalidInput("start date is required")
		}
		year, err := s.years.Resolve(ctx, in.Start)
		if err != nil {
			return err
		}

		return s.store.WithTx(ctx, func(tx Tx) error {
			actor, err := s.employee(ctx, tx, in.ActorID, "actor")
			if err != nil {
				return err
			}
			emp, err := s.employee(ctx, tx, in.EmployeeID, "employee")
			if err != nil {
				return err
			}
			if !canManage(actor, emp) {
				return &ForbiddenError{ActorID: actor.ID, Need: "HR or the employee's manager"}
			}
			if err := tx.LockEmployees(ctx, emp.ID); err != nil {
				return err
			}

			c := &Candidate{
				EmployeeID: emp.ID, Type: in.Type, TypeOther: in.TypeOther,
				Start: in.Start, End: in.End, IsSingleDay: in.IsSingleDay, SingleDayPart: in.SingleDayPart,
			}
			days, err := s.validator.Validate(ctx, tx, year, c)
			if err != nil {
				return err
			}

			e := s.newEntry(emp, year, c, days, actor.ID, in.Reason, in.Notes)
			e.Status = Requested
			if emp.ManagerID != "" {
				if mgr, err := tx.Employee(ctx, emp.ManagerID); err == nil && mgr != nil {
					e.ManagerID, e.ManagerName = mgr.ID, mgr.Name
				}
			}
			if e.Type == TypeSick {
				e.Status = Approved
				if err := s.enqueueCalendarCreate(ctx, tx, e, emp); err != nil {
					return err
				}
			}

			if err := tx.InsertEntry(ctx, e); err != nil {
				return fmt.Errorf("insert entry: %w", err)
			}
			if err := s.recordTransition(ctx, tx, ActionCreate, actor.ID, e, Status{}, map[string]any{
				"autoApproved": e.Status.Is(Approved),
			}); err != nil {
				return err
			}
			out = e
			return nil
		})
	}()
	return out, finish(span, "create", ActionCreate, err)
}

// EditRequest reshapes the owner's pending request, re-running validation as
// if it were submitted again.
func (s *Service) EditRequest(ctx context.Context, in EditInput) (*Entry, error) {
	ctx, span := startSpan(ctx, "EditRequest",
		attribute.String("entry.id", in.EntryID), attribute.String("actor.id", in.ActorID))

	var out *Entry
	err := func() error {
		if in.Start.IsZero() {
			return invalidInput("start date is required")
		}
		year, err := s.years.Resolve(ctx, in.Start)
		if err != nil {
			return err
		}

		return s.store.WithTx(ctx, func(tx Tx) error {
			e, err := s.lockEntry(ctx, tx, in.EntryID)
			if err != nil {
				return err
			}
			if e.EmployeeID != in.ActorID {
				return &ForbiddenError{ActorID: in.ActorID, Need: "the entry owner"}
			}
			if !e.Status.Is(PendingManager) {
				return &TransitionError{Action: "EDIT", From: e.Status}
			}
			if err := tx.LockEmployees(ctx, e.EmployeeID); err != nil {
				return err
			}

			c := &Candidate{
				EmployeeID: e.EmployeeID, Type: in.Type, TypeOther: in.TypeOther,
				Start: in.Start, End: in.End, IsSingleDay: in.IsSingleDay, SingleDayPart: in.SingleDayPart,
				ExcludeEntryID: e.ID,
			}
			days, err := s.validator.Validate(ctx, tx, year, c)
			if err != nil {
				return err
			}

			previous := map[string]any{
				"edit":          true,
				"previousStart": e.Start.String(),
				"previousEnd":   e.End.String(),
				"previousDays":  e.DurationDays.String(),
			}
			e.YearID = year.ID
			e.Type, e.TypeOther = c.Type, c.TypeOther
			e.Start, e.End = c.Start, c.End
			e.IsSingleDay, e.SingleDayPart = c.IsSingleDay, c.SingleDayPart
			e.DurationDays = days
			e.Reason, e.Notes = in.Reason, in.Notes
			e.UpdatedAt = s.clock.Now()

			if err := tx.UpdateEntry(ctx, e); err != nil {
				return fmt.Errorf("update entry: %w", err)
			}
			if err := s.recordTransition(ctx, tx, ActionCreate, in.ActorID, e, e.Status, previous); err != nil {
				return err
			}
			out = e
			return nil
		})
	}()
	return out, finish(span, "edit", ActionCreate, err)
}

// =============================================================================
// DECISIONS
// =============================================================================

// Decide applies an approver's decision to a pending entry. Approval is
// refused with a ConflictError when department colleagues already have
// overlapping approved leave; the entry is left as it was.
func (s *Service) Decide(ctx context.Context, entryID, actorID string, d Decision) (*Entry, error) {
	ctx, span := startSpan(ctx, "Decide",
		attribute.String("entry.id", entryID), attribute.String("actor.id", actorID),
		attribute.String("decision", string(d)))

	var (
		out    *Entry
		action Action
	)
	err := s.store.WithTx(ctx, func(tx Tx) error {
		e, err := s.lockEntry(ctx, tx, entryID)
		if err != nil {
			return err
		}
		actor, err := s.employee(ctx, tx, actorID, "actor")
		if err != nil {
			return err
		}
		emp, err := s.employee(ctx, tx, e.EmployeeID, "employee")
		if err != nil {
			return err
		}
		from := e.Status
		extra := map[string]any{}

		switch d {
		case DecisionApprove, DecisionReject:
			action = ActionApprove
			if d == DecisionReject {
				action = ActionReject
			}
			if !(canManage(actor, emp) || e.ManagerID == actor.ID) {
				return &ForbiddenError{ActorID: actor.ID, Need: "the entry's manager or HR"}
			}
			if !from.IsPending() {
				return &TransitionError{Action: action, From: from}
			}
			if d == DecisionApprove {
				err = s.approve(ctx, tx, e, emp)
			} else {
				e.Status = Rejected
			}

		case DecisionYes, DecisionNo, DecisionDiscuss:
			if e.ManagerID != actor.ID {
				return &ForbiddenError{ActorID: actor.ID, Need: "the entry's designated manager"}
			}
			switch d {
			case DecisionYes:
				action = ActionApprove
			case DecisionNo:
				action = ActionReject
			default:
				action = ActionNeedsDiscussion
			}
			if !from.Is(PendingManager) {
				return &TransitionError{Action: action, From: from}
			}
			e.ManagerChoice = ManagerChoice(d)
			extra["managerApproval"] = string(d)
			switch d {
			case DecisionYes:
				err = s.approve(ctx, tx, e, emp)
			case DecisionNo:
				e.Status = Rejected
			default:
				e.Status = NeedsDiscussion
			}

		default:
			return invalidInput("unknown decision %q", d)
		}
		if err != nil {
			return err
		}

		e.UpdatedAt = s.clock.Now()
		if err := tx.UpdateEntry(ctx, e); err != nil {
			return fmt.Errorf("update entry: %w", err)
		}
		if err := s.recordTransition(ctx, tx, action, actor.ID, e, from, extra); err != nil {
			return err
		}
		out = e
		return nil
	})
	return out, finish(span, "decide", action, err)
}

// approve re-checks conflicts and allowance under lock, then books the entry.
func (s *Service) approve(ctx context.Context, tx Tx, e *Entry, emp *Employee) error {
	if e.Type.ConsumesAllowance() {
		if err := s.lockScope(ctx, tx, emp); err != nil {
			return err
		}
		conflicts, err := s.conflicts.Find(ctx, tx, emp, e.Period(), e.YearID)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return &ConflictError{Conflicts: conflicts}
		}
		b, err := s.calc.Summary(ctx, tx, e.EmployeeID, e.YearID)
		if err != nil {
			return err
		}
		if err := s.calc.CheckAllowance(b, e.DurationDays); err != nil {
			return err
		}
	}
	e.Status = Approved
	return s.enqueueCalendarCreate(ctx, tx, e, emp)
}

// lockScope locks the employee and, when they have a department, every
// department member, so overlapping approvals in a team serialize.
func (s *Service) lockScope(ctx context.Context, tx Tx, emp *Employee) error {
	ids := []string{emp.ID}
	if emp.DepartmentID != "" {
		members, err := tx.DepartmentMembers(ctx, emp.DepartmentID)
		if err != nil {
			return err
		}
		for _, m := range members {
			if m.ID != emp.ID {
				ids = append(ids, m.ID)
			}
		}
	}
	return tx.LockEmployees(ctx, ids...)
}

// =============================================================================
// CANCELLATION
// =============================================================================

// RequestCancellation overlays the owner's entry with pending_cancellation.
func (s *Service) RequestCancellation(ctx context.Context, entryID, actorID string) (*Entry, error) {
	ctx, span := startSpan(ctx, "RequestCancellation",
		attribute.String("entry.id", entryID), attribute.String("actor.id", actorID))

	var out *Entry
	err := s.store.WithTx(ctx, func(tx Tx) error {
		e, err := s.lockEntry(ctx, tx, entryID)
		if err != nil {
			return err
		}
		if e.EmployeeID != actorID {
			return &ForbiddenError{ActorID: actorID, Need: "the entry owner"}
		}
		from := e.Status
		if !from.CanRequestCancellation() {
			return &TransitionError{Action: ActionCancelRequested, From: from}
		}
		if e.Status, err = CancellationPending(from); err != nil {
			return err
		}

		e.UpdatedAt = s.clock.Now()
		if err := tx.UpdateEntry(ctx, e); err != nil {
			return fmt.Errorf("update entry: %w", err)
		}
		if err := s.recordTransition(ctx, tx, ActionCancelRequested, actorID, e, from, nil); err != nil {
			return err
		}
		out = e
		return nil
	})
	return out, finish(span, "request_cancellation", ActionCancelRequested, err)
}

// ResolveCancellation is the assigned manager's answer to a cancellation
// request. Approving cancels the entry; rejecting restores the prior status.
func (s *Service) ResolveCancellation(ctx context.Context, entryID, actorID string, approve bool) (*Entry, error) {
	ctx, span := startSpan(ctx, "ResolveCancellation",
		attribute.String("entry.id", entryID), attribute.String("actor.id", actorID),
		attribute.Bool("approve", approve))

	action := ActionCancelRejected
	if approve {
		action = ActionCancelApproved
	}

	var out *Entry
	err := s.store.WithTx(ctx, func(tx Tx) error {
		e, err := s.lockEntry(ctx, tx, entryID)
		if err != nil {
			return err
		}
		if e.ManagerID == "" || e.ManagerID != actorID {
			return &ForbiddenError{ActorID: actorID, Need: "the entry's manager"}
		}
		from := e.Status
		prior, ok := from.Prior()
		if !ok {
			return &TransitionError{Action: action, From: from}
		}

		if approve {
			if from.WasApproved() {
				emp, err := s.employee(ctx, tx, e.EmployeeID, "employee")
				if err != nil {
					return err
				}
				if err := s.enqueueCalendarDelete(ctx, tx, e, emp); err != nil {
					return err
				}
			}
			e.Status = Cancelled
		} else {
			e.Status = prior
		}

		e.UpdatedAt = s.clock.Now()
		if err := tx.UpdateEntry(ctx, e); err != nil {
			return fmt.Errorf("update entry: %w", err)
		}
		if err := s.recordTransition(ctx, tx, action, actorID, e, from, map[string]any{
			"statusBeforeCancellation": prior.String(),
		}); err != nil {
			return err
		}
		out = e
		return nil
	})
	return out, finish(span, "resolve_cancellation", action, err)
}

// ForceCancel cancels an entry directly. Allowed for HR, the entry's
// manager and the employee's line manager.
func (s *Service) ForceCancel(ctx context.Context, entryID, actorID string) (*Entry, error) {
	ctx, span := startSpan(ctx, "ForceCancel",
		attribute.String("entry.id", entryID), attribute.String("actor.id", actorID))

	var out *Entry
	err := s.store.WithTx(ctx, func(tx Tx) error {
		e, err := s.lockEntry(ctx, tx, entryID)
		if err != nil {
			return err
		}
		actor, err := s.employee(ctx, tx, actorID, "actor")
		if err != nil {
			return err
		}
		emp, err := s.employee(ctx, tx, e.EmployeeID, "employee")
		if err != nil {
			return err
		}
		if !(canManage(actor, emp) || e.ManagerID == actor.ID) {
			return &ForbiddenError{ActorID: actor.ID, Need: "HR or the employee's manager"}
		}
		from := e.Status
		if !from.CanForceCancel() {
			return &TransitionError{Action: ActionCancel, From: from}
		}
		if from.WasApproved() {
			if err := s.enqueueCalendarDelete(ctx, tx, e, emp); err != nil {
				return err
			}
		}
		e.Status = Cancelled

		e.UpdatedAt = s.clock.Now()
		if err := tx.UpdateEntry(ctx, e); err != nil {
			return fmt.Errorf("update entry: %w", err)
		}
		if err := s.recordTransition(ctx, tx, ActionCancel, actor.ID, e, from, nil); err != nil {
			return err
		}
		out = e
		return nil
	})
	return out, finish(span, "force_cancel", ActionCancel, err)
}

// =============================================================================
// BALANCE ADJUSTMENTS
// =============================================================================

// AdjustTimeInLieu appends a time-in-lieu credit.
func (s *Service) AdjustTimeInLieu(ctx context.Context, in TimeInLieuInput) (*TimeInLieu, error) {
	ctx, span := startSpan(ctx, "AdjustTimeInLieu",
		attribute.String("employee.id", in.EmployeeID), attribute.String("actor.id", in.ActorID))

	var out *TimeInLieu
	err := func() error {
		if in.Days.LessThan(MinTimeInLieu) {
			return invalidInput("time in lieu must be at least %s days", MinTimeInLieu)
		}
		if in.Reason == "" {
			return invalidInput("reason is required")
		}
		return s.store.WithTx(ctx, func(tx Tx) error {
			if _, err := s.year(ctx, tx, in.YearID); err != nil {
				return err
			}
			actor, err := s.employee(ctx, tx, in.ActorID, "actor")
			if err != nil {
				return err
			}
			emp, err := s.employee(ctx, tx, in.EmployeeID, "employee")
			if err != nil {
				return err
			}
			if !canManage(actor, emp) {
				return &ForbiddenError{ActorID: actor.ID, Need: "HR or the employee's manager"}
			}

			a := TimeInLieu{
				ID:         uuid.NewString(),
				EmployeeID: emp.ID,
				YearID:     in.YearID,
				Days:       in.Days,
				Reason:     in.Reason,
				AddedBy:    actor.ID,
				CreatedAt:  s.clock.Now(),
			}
			if err := tx.InsertTimeInLieu(ctx, a); err != nil {
				return fmt.Errorf("insert time in lieu: %w", err)
			}
			detail := fmt.Sprintf("credited %s days time in lieu to %s: %s", a.Days, emp.Name, a.Reason)
			if err := s.appendAudit(ctx, tx, ActionTimeInLieu, actor.ID, a.ID, detail, map[string]any{
				"employeeId": emp.ID,
				"yearId":     a.YearID,
				"days":       a.Days.String(),
			}); err != nil {
				return err
			}
			out = &a
			return nil
		})
	}()
	return out, finish(span, "adjust_time_in_lieu", ActionTimeInLieu, err)
}

// UpdatePolicy upserts the employee's policy for the year.
func (s *Service) UpdatePolicy(ctx context.Context, in PolicyInput) (*Policy, error) {
	ctx, span := startSpan(ctx, "UpdatePolicy",
		attribute.String("employee.id", in.EmployeeID), attribute.String("actor.id", in.ActorID))

	var out *Policy
	err := s.store.WithTx(ctx, func(tx Tx) error {
		if _, err := s.year(ctx, tx, in.YearID); err != nil {
			return err
		}
		actor, err := s.employee(ctx, tx, in.ActorID, "actor")
		if err != nil {
			return err
		}
		emp, err := s.employee(ctx, tx, in.EmployeeID, "employee")
		if err != nil {
			return err
		}
		if !canManage(actor, emp) {
			return &ForbiddenError{ActorID: actor.ID, Need: "HR or the employee's manager"}
		}

		current, err := tx.Policy(ctx, emp.ID, in.YearID)
		if err != nil {
			return err
		}
		p := DefaultPolicy(emp.ID, in.YearID)
		p.ID = uuid.NewString()
		if current != nil {
			p = *current
		}
		old := map[string]any{
			"annualAllowance": p.AnnualAllowance.String(),
			"carryOverDays":   p.CarryOverDays.String(),
			"adjustmentDays":  p.AdjustmentDays.String(),
		}

		if in.AnnualAllowance != nil {
			if in.AnnualAllowance.IsNegative() {
				return invalidInput("annual allowance cannot be negative")
			}
			p.AnnualAllowance = *in.AnnualAllowance
		}
		if in.CarryOverDays != nil {
			if in.CarryOverDays.IsNegative() {
				return invalidInput("carry over cannot be negative")
			}
			p.CarryOverDays = *in.CarryOverDays
		}
		if in.AdjustmentDays != nil {
			p.AdjustmentDays = *in.AdjustmentDays
		}
		if in.SickTrackingMode != nil {
			if *in.SickTrackingMode != SickTracked && *in.SickTrackingMode != SickUnlimited {
				return invalidInput("unknown sick tracking mode %q", *in.SickTrackingMode)
			}
			p.SickTrackingMode = *in.SickTrackingMode
		}
		if in.Notes != nil {
			p.Notes = *in.Notes
		}
		p.UpdatedBy = actor.ID
		p.UpdatedAt = s.clock.Now()

		if err := tx.UpsertPolicy(ctx, p); err != nil {
			return fmt.Errorf("upsert policy: %w", err)
		}
		detail := fmt.Sprintf("policy for %s: allowance %s, carry over %s, adjustment %s",
			emp.Name, p.AnnualAllowance, p.CarryOverDays, p.AdjustmentDays)
		if err := s.appendAudit(ctx, tx, ActionPolicyUpdated, actor.ID, p.ID, detail, map[string]any{
			"employeeId":      emp.ID,
			"yearId":          p.YearID,
			"previous":        old,
			"annualAllowance": p.AnnualAllowance.String(),
			"carryOverDays":   p.CarryOverDays.String(),
			"adjustmentDays":  p.AdjustmentDays.String(),
		}); err != nil {
			return err
		}
		out = &p
		return nil
	})
	return out, finish(span, "update_policy", ActionPolicyUpdated, err)
}

// =============================================================================
// HELPERS
// =============================================================================

func canManage(actor, emp *Employee) bool {
	return actor.IsHR() || (emp.ManagerID != "" && emp.ManagerID == actor.ID)
}

func (s *Service) newEntry(emp *Employee, year Year, c *Candidate, days decimal.Decimal, createdBy, reason, notes string) *Entry {
	now := s.clock.Now()
	return &Entry{
		ID:            uuid.NewString(),
		EmployeeID:    emp.ID,
		EmployeeName:  emp.Name,
		YearID:        year.ID,
		Type:          c.Type,
		TypeOther:     c.TypeOther,
		Start:         c.Start,
		End:           c.End,
		IsSingleDay:   c.IsSingleDay,
		SingleDayPart: c.SingleDayPart,
		DurationDays:  days,
		CreatedBy:     createdBy,
		Reason:        reason,
		Notes:         notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (s *Service) lockEntry(ctx context.Context, tx Tx, id string) (*Entry, error) {
	e, err := tx.LockEntry(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lock entry: %w", err)
	}
	if e == nil {
		return nil, notFound("leave entry", id)
	}
	return e, nil
}

func (s *Service) employee(ctx context.Context, d Directory, id, kind string) (*Employee, error) {
	if id == "" {
		return nil, invalidInput("%s is required", kind)
	}
	e, err := d.Employee(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", kind, err)
	}
	if e == nil {
		return nil, notFound(kind, id)
	}
	return e, nil
}

func (s *Service) year(ctx context.Context, repo YearRepository, id string) (*Year, error) {
	y, err := repo.YearByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load leave year: %w", err)
	}
	if y == nil {
		return nil, notFound("leave year", id)
	}
	return y, nil
}
