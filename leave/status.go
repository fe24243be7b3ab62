package leave

import "fmt"

// StatusName is the persisted name of a lifecycle state.
type StatusName string

const (
	StatusRequested           StatusName = "requested"
	StatusPendingManager      StatusName = "pending_manager_approval"
	StatusNeedsDiscussion     StatusName = "needs_discussion"
	StatusApproved            StatusName = "approved"
	StatusRejected            StatusName = "rejected"
	StatusCancelled           StatusName = "cancelled"
	StatusPendingCancellation StatusName = "pending_cancellation"
)

// Status is a tagged union over the lifecycle states. The zero value is not
// a valid status. A cancellation overlay always carries the state it covers,
// and that prior state is always one a cancellation may be requested from.
//
//	Pending(requested | pending_manager_approval)
//	Open(needs_discussion)
//	Terminal(approved | rejected | cancelled)
//	CancellationPending{of: pending_manager_approval | needs_discussion | approved}
type Status struct {
	name  StatusName
	prior StatusName // set only when name == StatusPendingCancellation
}

var (
	Requested       = Status{name: StatusRequested}
	PendingManager  = Status{name: StatusPendingManager}
	NeedsDiscussion = Status{name: StatusNeedsDiscussion}
	Approved        = Status{name: StatusApproved}
	Rejected        = Status{name: StatusRejected}
	Cancelled       = Status{name: StatusCancelled}
)

// cancellableFrom are the states an owner may ask to cancel.
var cancellableFrom = map[StatusName]bool{
	StatusPendingManager:  true,
	StatusNeedsDiscussion: true,
	StatusApproved:        true,
}

// CancellationPending overlays prior. Fails if prior cannot be cancelled.
func CancellationPending(prior Status) (Status, error) {
	if prior.IsCancellationPending() || !cancellableFrom[prior.name] {
		return Status{}, fmt.Errorf("%w: cannot request cancellation from %s", ErrNotPending, prior)
	}
	return Status{name: StatusPendingCancellation, prior: prior.name}, nil
}

// ParseStatus rebuilds a Status from its stored columns. A cancellation
// overlay with no recorded prior restores to pending_manager_approval.
func ParseStatus(name, prior string) (Status, error) {
	switch StatusName(name) {
	case StatusRequested, StatusPendingManager, StatusNeedsDiscussion,
		StatusApproved, StatusRejected, StatusCancelled:
		return Status{name: StatusName(name)}, nil
	case StatusPendingCancellation:
		p := StatusName(prior)
		if p == "" {
			p = StatusPendingManager
		}
		if !cancellableFrom[p] {
			return Status{}, fmt.Errorf("invalid status before cancellation %q", prior)
		}
		return Status{name: StatusPendingCancellation, prior: p}, nil
	default:
		return Status{}, fmt.Errorf("unknown status %q", name)
	}
}

func (s Status) Name() StatusName { return s.name }
func (s Status) String() string   { return string(s.name) }

// Prior is the overlaid state. ok is false unless cancellation is pending.
func (s Status) Prior() (Status, bool) {
	if s.name != StatusPendingCancellation {
		return Status{}, false
	}
	return Status{name: s.prior}, true
}

// PriorName is the stored form of Prior, empty when there is none.
func (s Status) PriorName() string { return string(s.prior) }

func (s Status) Is(other Status) bool { return s == other }

// IsPending is true for states a manager or HR can approve or reject.
func (s Status) IsPending() bool {
	return s.name == StatusRequested || s.name == StatusPendingManager
}

func (s Status) IsCancellationPending() bool { return s.name == StatusPendingCancellation }

func (s Status) IsTerminal() bool {
	return s.name == StatusApproved || s.name == StatusRejected || s.name == StatusCancelled
}

// CanRequestCancellation reports whether the owner may ask to cancel.
func (s Status) CanRequestCancellation() bool { return cancellableFrom[s.name] }

// CanForceCancel covers every live state plus a pending cancellation.
func (s Status) CanForceCancel() bool {
	return cancellableFrom[s.name] || s.name == StatusPendingCancellation
}

// WasApproved is true when the entry is, or is overlaying, an approved
// booking. Only such entries have calendar events to remove.
func (s Status) WasApproved() bool {
	if s.name == StatusApproved {
		return true
	}
	return s.name == StatusPendingCancellation && s.prior == StatusApproved
}

// CountsAsInFlight is used by the volunteer pool, which reserves days for
// requests that are approved or still awaiting a decision.
func (s Status) CountsAsInFlight() bool {
	switch s.name {
	case StatusApproved, StatusPendingManager, StatusPendingCancellation:
		return true
	}
	return false
}
