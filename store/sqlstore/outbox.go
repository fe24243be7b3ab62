package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/outbox"
)

var _ outbox.Source = (*Store)(nil)

const errAbandoned = "lock expired during the final attempt"

// Enqueue writes messages with whatever executor the repo is bound to; from
// a transaction they commit or roll back with the state change.
func (r repo) Enqueue(ctx context.Context, msgs ...outbox.Message) error {
	for _, m := range msgs {
		_, err := r.exec(ctx, `INSERT INTO outbox (id, topic, payload, attempts, available_at, created_at)
			VALUES (?, ?, ?, 0, ?, ?)`,
			m.ID, m.Topic, string(m.Payload), formatTS(m.AvailableAt), formatTS(m.CreatedAt))
		if err != nil {
			return errors.Wrapf(err, "enqueue %s", m.Topic)
		}
	}
	return nil
}

type outboxRow struct {
	ID          string `db:"id"`
	Topic       string `db:"topic"`
	Payload     string `db:"payload"`
	Attempts    int    `db:"attempts"`
	AvailableAt string `db:"available_at"`
	CreatedAt   string `db:"created_at"`
}

// Claim locks due messages for this relay. On PostgreSQL concurrent relays
// skip each other's rows; on SQLite the immediate transaction serializes them.
func (s *Store) Claim(ctx context.Context, now, lockCutoff time.Time, maxAttempts, limit int) ([]outbox.Message, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "outbox claim begin")
	}
	defer tx.Rollback() //nolint:errcheck

	// A relay that died during the final attempt leaves its row locked with
	// no attempts left; once the lock expires it can only be dead-lettered.
	if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE outbox
		SET dead_at = ?, locked_at = NULL, last_error = COALESCE(last_error, ?)
		WHERE published_at IS NULL
		  AND dead_at IS NULL
		  AND attempts >= ?
		  AND locked_at IS NOT NULL
		  AND locked_at < ?`),
		formatTS(now), errAbandoned, maxAttempts, formatTS(lockCutoff)); err != nil {
		return nil, errors.Wrap(err, "outbox claim expire")
	}

	q := `SELECT id, topic, payload, attempts, available_at, created_at
		FROM outbox
		WHERE published_at IS NULL
		  AND dead_at IS NULL
		  AND available_at <= ?
		  AND attempts < ?
		  AND (locked_at IS NULL OR locked_at < ?)
		ORDER BY available_at, created_at
		LIMIT ?`
	if s.postgres {
		q += " FOR UPDATE SKIP LOCKED"
	}

	var rows []outboxRow
	if err := sqlx.SelectContext(ctx, tx, &rows, tx.Rebind(q),
		formatTS(now), maxAttempts, formatTS(lockCutoff), limit); err != nil {
		return nil, errors.Wrap(err, "outbox claim select")
	}
	if len(rows) == 0 {
		return nil, tx.Commit()
	}

	ids := make([]string, len(rows))
	claimed := make([]outbox.Message, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
		claimed[i] = outbox.Message{
			ID:          row.ID,
			Topic:       row.Topic,
			Payload:     []byte(row.Payload),
			Attempts:    row.Attempts + 1,
			AvailableAt: parseTS(row.AvailableAt),
			CreatedAt:   parseTS(row.CreatedAt),
		}
	}

	update, args, err := sqlx.In(`UPDATE outbox SET locked_at = ?, attempts = attempts + 1 WHERE id IN (?)`, formatTS(now), ids)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(update), args...); err != nil {
		return nil, errors.Wrap(err, "outbox claim update")
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "outbox claim commit")
	}
	return claimed, nil
}

func (s *Store) Ack(ctx context.Context, id string, at time.Time) error {
	_, err := s.exec(ctx, `UPDATE outbox SET published_at = ?, locked_at = NULL, last_error = NULL
		WHERE id = ? AND published_at IS NULL`, formatTS(at), id)
	return errors.Wrap(err, "outbox ack")
}

func (s *Store) Nack(ctx context.Context, id, lastError string, nextAvailable time.Time) error {
	_, err := s.exec(ctx, `UPDATE outbox SET locked_at = NULL, last_error = ?, available_at = ?
		WHERE id = ? AND published_at IS NULL`, lastError, formatTS(nextAvailable), id)
	return errors.Wrap(err, "outbox nack")
}

func (s *Store) Dead(ctx context.Context, id, lastError string) error {
	_, err := s.exec(ctx, `UPDATE outbox SET locked_at = NULL, last_error = ?, dead_at = ?
		WHERE id = ? AND published_at IS NULL`, lastError, formatTS(time.Now()), id)
	return errors.Wrap(err, "outbox dead")
}

func (s *Store) Pending(ctx context.Context) (int64, error) {
	var n int64
	if _, err := s.get(ctx, &n, `SELECT count(*) FROM outbox WHERE published_at IS NULL AND dead_at IS NULL`); err != nil {
		return 0, errors.Wrap(err, "outbox pending")
	}
	return n, nil
}

// OutboxMessage is a message with its delivery state, for inspection.
type OutboxMessage struct {
	outbox.Message
	Published bool
	Dead      bool
	LastError string
}

// OutboxMessages lists messages on a topic in creation order.
func (s *Store) OutboxMessages(ctx context.Context, topic string) ([]OutboxMessage, error) {
	var rows []struct {
		outboxRow
		PublishedAt sql.NullString `db:"published_at"`
		DeadAt      sql.NullString `db:"dead_at"`
		LastError   sql.NullString `db:"last_error"`
	}
	if err := s.selectAll(ctx, &rows, `SELECT id, topic, payload, attempts, available_at, created_at,
		published_at, dead_at, last_error
		FROM outbox WHERE topic = ? ORDER BY created_at, id`, topic); err != nil {
		return nil, errors.Wrap(err, "select outbox")
	}
	out := make([]OutboxMessage, 0, len(rows))
	for _, row := range rows {
		out = append(out, OutboxMessage{
			Message: outbox.Message{
				ID:          row.ID,
				Topic:       row.Topic,
				Payload:     []byte(row.Payload),
				Attempts:    row.Attempts,
				AvailableAt: parseTS(row.AvailableAt),
				CreatedAt:   parseTS(row.CreatedAt),
			},
			Published: row.PublishedAt.Valid,
			Dead:      row.DeadAt.Valid,
			LastError: row.LastError.String,
		})
	}
	return out, nil
}

// =============================================================================
// CALENDAR LINKS
// =============================================================================

// CalendarState reports whether the entry still warrants calendar events and
// which links it currently holds.
func (s *Store) CalendarState(ctx context.Context, entryID string) (bool, leave.CalendarLinks, error) {
	e, err := s.Entry(ctx, entryID)
	if err != nil {
		return false, leave.CalendarLinks{}, err
	}
	if e == nil {
		return false, leave.CalendarLinks{}, nil
	}
	return e.Status.WasApproved(), e.Calendar, nil
}

// SetCalendarLinks stores event ids only while the entry is still booked.
// It reports false when the entry was cancelled in the meantime.
func (s *Store) SetCalendarLinks(ctx context.Context, entryID string, links leave.CalendarLinks) (bool, error) {
	res, err := s.exec(ctx, `UPDATE leave_entries SET google_event_id = ?, shared_event_id = ?
		WHERE id = ? AND `+bookedStatus,
		nullString(links.GoogleEventID), nullString(links.SharedEventID), entryID)
	if err != nil {
		return false, errors.Wrap(err, "set calendar links")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "set calendar links")
	}
	return n > 0, nil
}
