package leave_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/leave"
)

// runTogether starts fn(i) for every i at once and returns the errors by index.
func runTogether(n int, fn func(i int) error) []error {
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = fn(i)
		}(i)
	}
	close(start)
	wg.Wait()
	return errs
}

func TestConcurrentSubmitAndApprove_NeverExceedsAllowance(t *testing.T) {
	// GIVEN: six separate weeks for Alice, 30 days against an allowance of 25
	f := newFixture(t)
	weeks := [][2]string{
		{"2026-06-01", "2026-06-05"},
		{"2026-06-08", "2026-06-12"},
		{"2026-06-15", "2026-06-19"},
		{"2026-06-22", "2026-06-26"},
		{"2026-06-29", "2026-07-03"},
		{"2026-07-06", "2026-07-10"},
	}

	// WHEN: every week is submitted and approved at the same time
	errs := runTogether(len(weeks), func(i int) error {
		e, err := f.submit("alice", leave.TypeAnnual, weeks[i][0], weeks[i][1])
		if err != nil {
			return err
		}
		_, err = f.svc.Decide(f.ctx, e.ID, "mgr", leave.DecisionYes)
		return err
	})

	// THEN: five weeks are booked and the loser is told the balance is short
	var losers int
	for _, err := range errs {
		if err == nil {
			continue
		}
		losers++
		var short *leave.InsufficientBalanceError
		assert.ErrorAs(t, err, &short)
	}
	assert.Equal(t, 1, losers)

	b := f.balance("alice")
	assert.True(t, days("25").Equal(b.Used), b.Used.String())
	assert.True(t, b.Remaining.IsZero(), b.Remaining.String())
}

func TestConcurrentApprovals_OfOverlappingColleagues(t *testing.T) {
	// GIVEN: Alice and Bob have overlapping pending requests
	f := newFixture(t)
	pending := []*leave.Entry{
		f.mustSubmit("alice", "2026-06-01", "2026-06-05"),
		f.mustSubmit("bob", "2026-06-03", "2026-06-04"),
	}

	// WHEN: the manager approves both at once
	errs := runTogether(len(pending), func(i int) error {
		_, err := f.svc.Decide(f.ctx, pending[i].ID, "mgr", leave.DecisionApprove)
		return err
	})

	// THEN: exactly one is approved and the other reports the conflict
	var approved, conflicts int
	for i, err := range errs {
		stored, getErr := f.svc.GetEntry(f.ctx, pending[i].ID)
		require.NoError(t, getErr)
		if err == nil {
			approved++
			assert.Equal(t, leave.Approved, stored.Status)
			continue
		}
		assert.True(t, errors.Is(err, leave.ErrConflict), err.Error())
		assert.Equal(t, leave.PendingManager, stored.Status)
		conflicts++
	}
	assert.Equal(t, 1, approved)
	assert.Equal(t, 1, conflicts)
}
