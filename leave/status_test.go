package leave

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCancellationPending_OnlyFromCancellableStates(t *testing.T) {
	for _, s := range []Status{PendingManager, NeedsDiscussion, Approved} {
		overlay, err := CancellationPending(s)
		require.NoError(t, err, s.String())
		prior, ok := overlay.Prior()
		assert.True(t, ok)
		assert.Equal(t, s, prior)
		assert.Equal(t, s.String(), overlay.PriorName())
	}

	for _, s := range []Status{Requested, Rejected, Cancelled} {
		_, err := CancellationPending(s)
		assert.ErrorIs(t, err, ErrNotPending, s.String())
	}

	overlay, _ := CancellationPending(Approved)
	_, err := CancellationPending(overlay)
	assert.Error(t, err)
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("approved", "")
	require.NoError(t, err)
	assert.Equal(t, Approved, s)

	// A legacy overlay without a prior falls back to the manager queue.
	s, err = ParseStatus("pending_cancellation", "")
	require.NoError(t, err)
	prior, _ := s.Prior()
	assert.Equal(t, PendingManager, prior)

	_, err = ParseStatus("pending_cancellation", "rejected")
	assert.Error(t, err)

	_, err = ParseStatus("archived", "")
	assert.Error(t, err)
}

func TestStatus_Predicates(t *testing.T) {
	approvedOverlay, _ := CancellationPending(Approved)
	pendingOverlay, _ := CancellationPending(PendingManager)

	assert.True(t, Approved.WasApproved())
	assert.True(t, approvedOverlay.WasApproved())
	assert.False(t, pendingOverlay.WasApproved())

	assert.True(t, Requested.IsPending())
	assert.False(t, NeedsDiscussion.IsPending())

	assert.True(t, pendingOverlay.CanForceCancel())
	assert.False(t, Rejected.CanForceCancel())

	assert.True(t, approvedOverlay.CountsAsInFlight())
	assert.False(t, NeedsDiscussion.CountsAsInFlight())
	assert.False(t, Requested.CountsAsInFlight())

	_, ok := Approved.Prior()
	assert.False(t, ok)
	assert.Empty(t, Approved.PriorName())
}
