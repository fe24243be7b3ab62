package leave_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/cache"
	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/outbox"
	"github.com/warp/leave-engine/store/sqlstore"
)

var today = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *sqlstore.Store
	clock *generic.FixedClock
	svc   *leave.Service
	year  leave.Year
}

func newFixture(t *testing.T, holidays ...string) *fixture {
	t.Helper()
	ctx := context.Background()
	store, err := sqlstore.Open(ctx, sqlstore.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cal, err := generic.NewFixedHolidays(holidays...)
	require.NoError(t, err)

	f := &fixture{t: t, ctx: ctx, store: store, clock: generic.NewFixedClock(today)}
	f.svc = leave.NewService(store, leave.Options{Clock: f.clock, Holidays: cal, Cache: cache.NewMemory()})

	for _, e := range []leave.Employee{
		{ID: "mgr", Name: "Morgan", Email: "morgan@example.com", Role: leave.RoleManager},
		{ID: "hr", Name: "Harper", Email: "harper@example.com", Role: leave.RoleHR},
		{ID: "alice", Name: "Alice", Email: "alice@example.com", DepartmentID: "eng", ManagerID: "mgr"},
		{ID: "bob", Name: "Bob", Email: "bob@example.com", DepartmentID: "eng", ManagerID: "mgr"},
		{ID: "solo", Name: "Sam", Email: "sam@example.com", ManagerID: "mgr"},
	} {
		require.NoError(t, store.UpsertEmployee(ctx, e))
	}

	f.year, err = f.svc.ResolveLeaveYear(ctx, generic.MustDate("2026-06-01"))
	require.NoError(t, err)
	return f
}

func (f *fixture) submit(employee string, typ leave.Type, start, end string) (*leave.Entry, error) {
	return f.svc.SubmitRequest(f.ctx, leave.SubmitInput{
		EmployeeID: employee,
		ManagerID:  "mgr",
		Type:       typ,
		Start:      generic.MustDate(start),
		End:        generic.MustDate(end),
	})
}

func (f *fixture) mustSubmit(employee, start, end string) *leave.Entry {
	f.t.Helper()
	e, err := f.submit(employee, leave.TypeAnnual, start, end)
	require.NoError(f.t, err)
	return e
}

func (f *fixture) approve(e *leave.Entry) *leave.Entry {
	f.t.Helper()
	out, err := f.svc.Decide(f.ctx, e.ID, "mgr", leave.DecisionYes)
	require.NoError(f.t, err)
	return out
}

func (f *fixture) balance(employee string) leave.BalanceSummary {
	f.t.Helper()
	b, err := f.svc.GetBalance(f.ctx, employee, f.year.ID)
	require.NoError(f.t, err)
	return b
}

func days(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// =============================================================================
// SCENARIOS
// =============================================================================

func TestScenario_ApproveWeekUsesFiveDays(t *testing.T) {
	// GIVEN: Alice with the default allowance submits Mon-Fri
	f := newFixture(t)
	e := f.mustSubmit("alice", "2026-06-01", "2026-06-05")

	// THEN: nothing is used while it is pending
	assert.Equal(t, leave.PendingManager, e.Status)
	assert.True(t, days("5").Equal(e.DurationDays))
	assert.True(t, f.balance("alice").Used.IsZero())

	// WHEN: the manager approves
	approved := f.approve(e)

	// THEN: five days are used
	assert.Equal(t, leave.Approved, approved.Status)
	b := f.balance("alice")
	assert.True(t, days("5").Equal(b.Used), b.Used.String())
	assert.True(t, days("20").Equal(b.Remaining), b.Remaining.String())
}

func TestScenario_OverlappingColleagueApprovalConflicts(t *testing.T) {
	// GIVEN: Alice's week is approved
	f := newFixture(t)
	f.approve(f.mustSubmit("alice", "2026-06-01", "2026-06-05"))

	// WHEN: Bob's overlapping request is approved
	bob := f.mustSubmit("bob", "2026-06-05", "2026-06-10")
	_, err := f.svc.Decide(f.ctx, bob.ID, "mgr", leave.DecisionApprove)

	// THEN: a ConflictError names Alice
	var conflict *leave.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"Alice"}, conflict.ColleagueNames())
	assert.True(t, errors.Is(err, leave.ErrConflict))

	// AND: Bob's entry is still pending
	stored, err := f.svc.GetEntry(f.ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.PendingManager, stored.Status)
}

func TestScenario_InsufficientBalanceCreatesNothing(t *testing.T) {
	// GIVEN: Alice has two days left
	f := newFixture(t)
	two := days("2")
	_, err := f.svc.UpdatePolicy(f.ctx, leave.PolicyInput{
		EmployeeID: "alice", YearID: f.year.ID, ActorID: "hr", AnnualAllowance: &two,
	})
	require.NoError(t, err)
	assert.True(t, two.Equal(f.balance("alice").Remaining))

	// WHEN: she asks for three
	_, err = f.submit("alice", leave.TypeAnnual, "2026-06-01", "2026-06-03")

	// THEN: the request is refused and nothing is stored
	var short *leave.InsufficientBalanceError
	require.ErrorAs(t, err, &short)
	assert.True(t, days("1").Equal(short.Shortfall))

	entries, err := f.svc.ListEntries(f.ctx, "alice", f.year.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestScenario_VolunteerPoolExceeded(t *testing.T) {
	// GIVEN: Alice already has one approved volunteer day
	f := newFixture(t)
	first, err := f.submit("alice", leave.TypeVolunteer, "2026-06-01", "2026-06-01")
	require.NoError(t, err)
	f.approve(first)

	// WHEN: she asks for two more
	_, err = f.submit("alice", leave.TypeVolunteer, "2026-07-01", "2026-07-02")

	// THEN: one day remains in the pool
	var limit *leave.VolunteerLimitError
	require.ErrorAs(t, err, &limit)
	assert.True(t, days("1").Equal(limit.Remaining))

	entries, err := f.svc.ListEntries(f.ctx, "alice", f.year.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestScenario_ForceCancelSickLeaveRemovesEvents(t *testing.T) {
	// GIVEN: HR records sick leave, which is booked into both calendars
	f := newFixture(t)
	rec := calendar.NewRecorder()
	relay, err := outbox.NewRelay(f.store, calendar.NewDispatcher(rec, f.store, nil), outbox.RelayOptions{
		Now: func() time.Time { return f.clock.Now().Add(time.Second) },
	})
	require.NoError(t, err)

	sick, err := f.svc.CreateRequest(f.ctx, leave.CreateInput{
		ActorID: "hr", EmployeeID: "bob", Type: leave.TypeSick,
		Start: generic.MustDate("2026-05-04"), End: generic.MustDate("2026-05-05"),
	})
	require.NoError(t, err)
	assert.Equal(t, leave.Approved, sick.Status)

	n, err := relay.ProcessOnce(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, rec.EventIDs(), 2)

	// WHEN: HR force-cancels it
	cancelled, err := f.svc.ForceCancel(f.ctx, sick.ID, "hr")
	require.NoError(t, err)
	_, err = relay.ProcessOnce(f.ctx)
	require.NoError(t, err)

	// THEN: the events are gone and one CANCEL row is audited
	assert.Equal(t, leave.Cancelled, cancelled.Status)
	assert.Empty(t, rec.EventIDs())

	trail, err := f.svc.AuditTrail(f.ctx, sick.ID)
	require.NoError(t, err)
	var cancels int
	for _, a := range trail {
		if a.Action == leave.ActionCancel {
			cancels++
			assert.Equal(t, sick.ID, a.TargetID)
			assert.Equal(t, "hr", a.ActorID)
		}
	}
	assert.Equal(t, 1, cancels)
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestDecide_SecondDecisionIsStale(t *testing.T) {
	f := newFixture(t)
	e := f.approve(f.mustSubmit("alice", "2026-06-01", "2026-06-05"))

	_, err := f.svc.Decide(f.ctx, e.ID, "mgr", leave.DecisionApprove)

	var te *leave.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, leave.Approved, te.From)
	assert.ErrorIs(t, err, leave.ErrNotPending)
	assert.True(t, days("5").Equal(f.balance("alice").Used))
}

func TestDecide_DiscussThenCancel(t *testing.T) {
	f := newFixture(t)
	e := f.mustSubmit("alice", "2026-06-01", "2026-06-05")

	discussed, err := f.svc.Decide(f.ctx, e.ID, "mgr", leave.DecisionDiscuss)
	require.NoError(t, err)
	assert.Equal(t, leave.NeedsDiscussion, discussed.Status)
	assert.Equal(t, leave.ChoiceDiscuss, discussed.ManagerChoice)

	// needs_discussion is not awaiting approval any more
	_, err = f.svc.Decide(f.ctx, e.ID, "mgr", leave.DecisionApprove)
	assert.ErrorIs(t, err, leave.ErrNotPending)

	pending, err := f.svc.RequestCancellation(f.ctx, e.ID, "alice")
	require.NoError(t, err)
	prior, ok := pending.Status.Prior()
	require.True(t, ok)
	assert.Equal(t, leave.NeedsDiscussion, prior)
}

func TestDecide_Permissions(t *testing.T) {
	f := newFixture(t)
	e := f.mustSubmit("alice", "2026-06-01", "2026-06-05")

	_, err := f.svc.Decide(f.ctx, e.ID, "bob", leave.DecisionYes)
	assert.ErrorIs(t, err, leave.ErrForbidden)

	// HR may approve generically but is not the designated manager.
	_, err = f.svc.Decide(f.ctx, e.ID, "hr", leave.DecisionYes)
	assert.ErrorIs(t, err, leave.ErrForbidden)

	out, err := f.svc.Decide(f.ctx, e.ID, "hr", leave.DecisionReject)
	require.NoError(t, err)
	assert.Equal(t, leave.Rejected, out.Status)
}

func TestCancellation_RejectRestoresPriorStatus(t *testing.T) {
	tests := []struct {
		name    string
		approve bool
		want    leave.Status
	}{
		{"pending request", false, leave.PendingManager},
		{"approved request", true, leave.Approved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			e := f.mustSubmit("alice", "2026-06-01", "2026-06-05")
			if tt.approve {
				e = f.approve(e)
			}

			overlay, err := f.svc.RequestCancellation(f.ctx, e.ID, "alice")
			require.NoError(t, err)
			assert.True(t, overlay.Status.IsCancellationPending())

			restored, err := f.svc.ResolveCancellation(f.ctx, e.ID, "mgr", false)
			require.NoError(t, err)
			assert.Equal(t, tt.want, restored.Status)
		})
	}
}

func TestCancellation_ApproveReleasesDaysAndQueuesDelete(t *testing.T) {
	f := newFixture(t)
	e := f.approve(f.mustSubmit("alice", "2026-06-01", "2026-06-05"))

	_, err := f.svc.RequestCancellation(f.ctx, e.ID, "alice")
	require.NoError(t, err)
	// Still booked until the manager agrees.
	assert.True(t, days("5").Equal(f.balance("alice").Used))

	out, err := f.svc.ResolveCancellation(f.ctx, e.ID, "mgr", true)
	require.NoError(t, err)
	assert.Equal(t, leave.Cancelled, out.Status)
	assert.True(t, f.balance("alice").Used.IsZero())

	msgs, err := f.store.OutboxMessages(f.ctx, leave.TopicCalendarDelete)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestCancellation_PendingOverlayStillCountsAgainstAllowance(t *testing.T) {
	// GIVEN: Alice's approved week is awaiting a cancellation decision
	f := newFixture(t)
	e := f.approve(f.mustSubmit("alice", "2026-06-01", "2026-06-05"))
	_, err := f.svc.RequestCancellation(f.ctx, e.ID, "alice")
	require.NoError(t, err)

	// WHEN: she asks for the whole remaining allowance plus the week
	_, err = f.submit("alice", leave.TypeAnnual, "2026-07-01", "2026-08-04")

	// THEN: the week is still counted
	var short *leave.InsufficientBalanceError
	require.ErrorAs(t, err, &short)
	assert.True(t, days("5").Equal(short.Shortfall), short.Shortfall.String())

	// AND: rejecting the cancellation leaves the balance intact
	_, err = f.svc.ResolveCancellation(f.ctx, e.ID, "mgr", false)
	require.NoError(t, err)
	b := f.balance("alice")
	assert.True(t, days("5").Equal(b.Used), b.Used.String())
	assert.True(t, days("20").Equal(b.Remaining), b.Remaining.String())
}

func TestCancellation_PendingOverlayStillConflicts(t *testing.T) {
	// GIVEN: Alice's approved week is awaiting a cancellation decision
	f := newFixture(t)
	alice := f.approve(f.mustSubmit("alice", "2026-06-01", "2026-06-05"))
	_, err := f.svc.RequestCancellation(f.ctx, alice.ID, "alice")
	require.NoError(t, err)

	// WHEN: Bob's overlapping days are approved
	bob := f.mustSubmit("bob", "2026-06-02", "2026-06-03")
	_, err = f.svc.Decide(f.ctx, bob.ID, "mgr", leave.DecisionApprove)

	// THEN: Alice's week still blocks him
	var conflict *leave.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"Alice"}, conflict.ColleagueNames())

	// AND: restoring Alice's week leaves a single approved entry
	restored, err := f.svc.ResolveCancellation(f.ctx, alice.ID, "mgr", false)
	require.NoError(t, err)
	assert.Equal(t, leave.Approved, restored.Status)
	stored, err := f.svc.GetEntry(f.ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.PendingManager, stored.Status)
}

func TestCancellation_Permissions(t *testing.T) {
	f := newFixture(t)
	e := f.mustSubmit("alice", "2026-06-01", "2026-06-05")

	_, err := f.svc.RequestCancellation(f.ctx, e.ID, "bob")
	assert.ErrorIs(t, err, leave.ErrForbidden)

	_, err = f.svc.RequestCancellation(f.ctx, e.ID, "alice")
	require.NoError(t, err)

	_, err = f.svc.ResolveCancellation(f.ctx, e.ID, "hr", true)
	assert.ErrorIs(t, err, leave.ErrForbidden)

	_, err = f.svc.ForceCancel(f.ctx, e.ID, "bob")
	assert.ErrorIs(t, err, leave.ErrForbidden)

	out, err := f.svc.ForceCancel(f.ctx, e.ID, "mgr")
	require.NoError(t, err)
	assert.Equal(t, leave.Cancelled, out.Status)

	_, err = f.svc.ForceCancel(f.ctx, e.ID, "mgr")
	assert.ErrorIs(t, err, leave.ErrNotPending)
}

func TestCreateRequest_OnlyHROrLineManager(t *testing.T) {
	f := newFixture(t)
	in := leave.CreateInput{
		ActorID: "bob", EmployeeID: "alice", Type: leave.TypeAnnual,
		Start: generic.MustDate("2026-06-01"), End: generic.MustDate("2026-06-02"),
	}

	_, err := f.svc.CreateRequest(f.ctx, in)
	assert.ErrorIs(t, err, leave.ErrForbidden)

	in.ActorID = "mgr"
	e, err := f.svc.CreateRequest(f.ctx, in)
	require.NoError(t, err)
	assert.Equal(t, leave.Requested, e.Status)
	assert.Equal(t, "mgr", e.CreatedBy)
	assert.Equal(t, "Morgan", e.ManagerName)
}

func TestEditRequest(t *testing.T) {
	f := newFixture(t)
	e := f.mustSubmit("alice", "2026-06-01", "2026-06-05")
	edit := leave.EditInput{
		EntryID: e.ID, ActorID: "alice", Type: leave.TypeAnnual,
		Start: generic.MustDate("2026-06-08"), IsSingleDay: true, SingleDayPart: leave.DayPM,
	}

	_, err := f.svc.EditRequest(f.ctx, leave.EditInput{EntryID: e.ID, ActorID: "bob", Type: leave.TypeAnnual, Start: edit.Start, IsSingleDay: true})
	assert.ErrorIs(t, err, leave.ErrForbidden)

	out, err := f.svc.EditRequest(f.ctx, edit)
	require.NoError(t, err)
	assert.True(t, days("0.5").Equal(out.DurationDays))
	assert.Equal(t, "2026-06-08", out.End.String())
	assert.Equal(t, leave.PendingManager, out.Status)

	f.approve(out)
	_, err = f.svc.EditRequest(f.ctx, edit)
	assert.ErrorIs(t, err, leave.ErrNotPending)
}

func TestEditRequest_VolunteerExcludesItself(t *testing.T) {
	f := newFixture(t)
	e, err := f.submit("alice", leave.TypeVolunteer, "2026-06-01", "2026-06-02")
	require.NoError(t, err)

	out, err := f.svc.EditRequest(f.ctx, leave.EditInput{
		EntryID: e.ID, ActorID: "alice", Type: leave.TypeVolunteer,
		Start: generic.MustDate("2026-06-03"), End: generic.MustDate("2026-06-04"),
	})

	require.NoError(t, err)
	assert.True(t, days("2").Equal(out.DurationDays))
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestSubmit_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		start string
		end   string
		want  error
	}{
		{"end before start", "2026-06-05", "2026-06-01", leave.ErrInvalidRange},
		{"crosses leave year", "2027-03-30", "2027-04-02", leave.ErrOutOfWindow},
		{"past leave year", "2025-06-02", "2025-06-03", leave.ErrOutOfWindow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.submit("alice", leave.TypeAnnual, tt.start, tt.end)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, leave.IsValidation(err))
		})
	}

	_, err := f.submit("alice", leave.Type("sabbatical"), "2026-06-01", "2026-06-01")
	assert.ErrorIs(t, err, leave.ErrInvalidInput)
}

func TestSubmit_Durations(t *testing.T) {
	f := newFixture(t, "2026-06-01")

	weekend := f.mustSubmit("alice", "2026-06-06", "2026-06-07")
	assert.True(t, weekend.DurationDays.IsZero())

	// Monday is a holiday.
	week := f.mustSubmit("bob", "2026-06-01", "2026-06-05")
	assert.True(t, days("4").Equal(week.DurationDays))

	am, err := f.svc.SubmitRequest(f.ctx, leave.SubmitInput{
		EmployeeID: "solo", ManagerID: "mgr", Type: leave.TypePersonal,
		Start: generic.MustDate("2026-06-02"), IsSingleDay: true, SingleDayPart: leave.DayAM,
	})
	require.NoError(t, err)
	assert.True(t, days("0.5").Equal(am.DurationDays))
	assert.Equal(t, "2026-06-02", am.End.String())
}

func TestConflicts_NoDepartmentNeverConflicts(t *testing.T) {
	f := newFixture(t)
	f.approve(f.mustSubmit("alice", "2026-06-01", "2026-06-05"))

	solo := f.approve(f.mustSubmit("solo", "2026-06-01", "2026-06-05"))

	assert.Equal(t, leave.Approved, solo.Status)
}

func TestConflicts_SickLeaveDoesNotBlock(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateRequest(f.ctx, leave.CreateInput{
		ActorID: "hr", EmployeeID: "alice", Type: leave.TypeSick,
		Start: generic.MustDate("2026-06-01"), End: generic.MustDate("2026-06-05"),
	})
	require.NoError(t, err)

	bob := f.approve(f.mustSubmit("bob", "2026-06-01", "2026-06-05"))

	assert.Equal(t, leave.Approved, bob.Status)
}

// =============================================================================
// ADJUSTMENTS
// =============================================================================

func TestAdjustTimeInLieu(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.AdjustTimeInLieu(f.ctx, leave.TimeInLieuInput{
		EmployeeID: "alice", YearID: f.year.ID, Days: days("0.25"), Reason: "overtime", ActorID: "hr",
	})
	assert.ErrorIs(t, err, leave.ErrInvalidInput)

	_, err = f.svc.AdjustTimeInLieu(f.ctx, leave.TimeInLieuInput{
		EmployeeID: "alice", YearID: f.year.ID, Days: days("1"), Reason: "overtime", ActorID: "bob",
	})
	assert.ErrorIs(t, err, leave.ErrForbidden)

	credit, err := f.svc.AdjustTimeInLieu(f.ctx, leave.TimeInLieuInput{
		EmployeeID: "alice", YearID: f.year.ID, Days: days("1.5"), Reason: "release weekend", ActorID: "mgr",
	})
	require.NoError(t, err)

	b := f.balance("alice")
	assert.True(t, days("1.5").Equal(b.TimeInLieu))
	assert.True(t, days("26.5").Equal(b.Remaining))

	trail, err := f.svc.AuditTrail(f.ctx, credit.ID)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, leave.ActionTimeInLieu, trail[0].Action)
}

func TestUpdatePolicy_PartialUpdate(t *testing.T) {
	f := newFixture(t)
	carry, adj := days("3"), days("-1")

	_, err := f.svc.UpdatePolicy(f.ctx, leave.PolicyInput{
		EmployeeID: "alice", YearID: f.year.ID, ActorID: "hr", CarryOverDays: &carry,
	})
	require.NoError(t, err)
	p, err := f.svc.UpdatePolicy(f.ctx, leave.PolicyInput{
		EmployeeID: "alice", YearID: f.year.ID, ActorID: "mgr", AdjustmentDays: &adj,
	})
	require.NoError(t, err)

	assert.True(t, leave.DefaultAllowance.Equal(p.AnnualAllowance))
	assert.True(t, carry.Equal(p.CarryOverDays))
	assert.True(t, days("27").Equal(f.balance("alice").Remaining))

	negative := days("-2")
	_, err = f.svc.UpdatePolicy(f.ctx, leave.PolicyInput{
		EmployeeID: "alice", YearID: f.year.ID, ActorID: "hr", AnnualAllowance: &negative,
	})
	assert.ErrorIs(t, err, leave.ErrInvalidInput)

	_, err = f.svc.UpdatePolicy(f.ctx, leave.PolicyInput{
		EmployeeID: "alice", YearID: f.year.ID, ActorID: "bob", CarryOverDays: &carry,
	})
	assert.ErrorIs(t, err, leave.ErrForbidden)
}

func TestResolveLeaveYear_Idempotent(t *testing.T) {
	f := newFixture(t)

	again, err := f.svc.ResolveLeaveYear(f.ctx, generic.MustDate("2027-03-31"))
	require.NoError(t, err)
	assert.Equal(t, f.year.ID, again.ID)

	next, err := f.svc.ResolveLeaveYear(f.ctx, generic.MustDate("2027-04-01"))
	require.NoError(t, err)
	assert.NotEqual(t, f.year.ID, next.ID)
	assert.Equal(t, "2028-03-31", next.End.String())
}

func TestGetBalance_Unknown(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetBalance(f.ctx, "nobody", f.year.ID)
	assert.True(t, leave.IsNotFound(err))

	_, err = f.svc.GetBalance(f.ctx, "alice", "no-year")
	assert.True(t, leave.IsNotFound(err))
}
