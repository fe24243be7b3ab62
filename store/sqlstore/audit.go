package sqlstore

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/warp/leave-engine/leave"
)

// The audit log has INSERT and SELECT only.

type auditRow struct {
	ID        string `db:"id"`
	Action    string `db:"action"`
	ActorID   string `db:"actor_id"`
	TargetID  string `db:"target_id"`
	Detail    string `db:"detail"`
	Metadata  string `db:"metadata"`
	CreatedAt string `db:"created_at"`
}

func (r repo) AppendAudit(ctx context.Context, rec leave.AuditRecord) error {
	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return errors.Wrap(err, "encode audit metadata")
	}
	_, err = r.exec(ctx, `INSERT INTO leave_audit_log (id, action, actor_id, target_id, detail, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Action), rec.ActorID, rec.TargetID, rec.Detail, string(meta), formatTS(rec.CreatedAt))
	return errors.Wrap(err, "insert audit")
}

func (r repo) AuditFor(ctx context.Context, targetID string) ([]leave.AuditRecord, error) {
	var rows []auditRow
	if err := r.selectAll(ctx, &rows, `SELECT id, action, actor_id, target_id, detail, metadata, created_at
		FROM leave_audit_log WHERE target_id = ? ORDER BY created_at, id`, targetID); err != nil {
		return nil, errors.Wrap(err, "select audit")
	}

	out := make([]leave.AuditRecord, 0, len(rows))
	for _, row := range rows {
		var meta map[string]any
		if row.Metadata != "" {
			if err := json.Unmarshal([]byte(row.Metadata), &meta); err != nil {
				return nil, errors.Wrapf(err, "decode audit %s", row.ID)
			}
		}
		out = append(out, leave.AuditRecord{
			ID:        row.ID,
			Action:    leave.Action(row.Action),
			ActorID:   row.ActorID,
			TargetID:  row.TargetID,
			Detail:    row.Detail,
			Metadata:  meta,
			CreatedAt: parseTS(row.CreatedAt),
		})
	}
	return out, nil
}
