package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action names an audited fact.
type Action string

const (
	ActionCreate          Action = "CREATE"
	ActionApprove         Action = "APPROVE"
	ActionReject          Action = "REJECT"
	ActionNeedsDiscussion Action = "NEEDS_DISCUSSION"
	ActionCancelRequested Action = "CANCEL_REQUESTED"
	ActionCancelApproved  Action = "CANCEL_APPROVED"
	ActionCancelRejected  Action = "CANCEL_REJECTED"
	ActionCancel          Action = "CANCEL"
	ActionTimeInLieu      Action = "TIL_ADDED"
	ActionPolicyUpdated   Action = "POLICY_UPDATED"
)

// AuditRecord is an immutable log row. There is no update or delete.
type AuditRecord struct {
	ID        string
	Action    Action
	ActorID   string
	TargetID  string
	Detail    string
	Metadata  map[string]any
	CreatedAt time.Time
}

// recordTransition appends the audit row for an entry transition inside tx.
func (s *Service) recordTransition(ctx context.Context, tx Tx, action Action, actorID string, e *Entry, from Status, extra map[string]any) error {
	meta := map[string]any{
		"oldStatus":    from.String(),
		"newStatus":    e.Status.String(),
		"type":         string(e.Type),
		"start":        e.Start.String(),
		"end":          e.End.String(),
		"durationDays": e.DurationDays.String(),
	}
	if from == (Status{}) {
		delete(meta, "oldStatus")
	}
	for k, v := range extra {
		meta[k] = v
	}
	detail := fmt.Sprintf("%s %s %s to %s (%s days)", action, e.Type.Label(), e.Start, e.End, e.DurationDays)
	return s.appendAudit(ctx, tx, action, actorID, e.ID, detail, meta)
}

func (s *Service) appendAudit(ctx context.Context, tx Tx, action Action, actorID, targetID, detail string, meta map[string]any) error {
	rec := AuditRecord{
		ID:        uuid.NewString(),
		Action:    action,
		ActorID:   actorID,
		TargetID:  targetID,
		Detail:    detail,
		Metadata:  meta,
		CreatedAt: s.clock.Now(),
	}
	if err := tx.AppendAudit(ctx, rec); err != nil {
		return fmt.Errorf("append audit %s: %w", action, err)
	}
	return nil
}
