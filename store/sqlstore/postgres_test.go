package sqlstore

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/leave"
)

// newMockPostgres returns a store that speaks the pgx dialect to sqlmock.
func newMockPostgres(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, DriverPostgres)), mock
}

func TestPostgres_LocksRowsInTransaction(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM leave_entries WHERE id = $1 FOR UPDATE")).
		WithArgs("e1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM employees WHERE id IN ($1, $2) ORDER BY id FOR UPDATE")).
		WithArgs("a", "b").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a").AddRow("b"))
	mock.ExpectCommit()

	err := s.WithTx(ctx, func(tx leave.Tx) error {
		e, err := tx.LockEntry(ctx, "e1")
		if err != nil {
			return err
		}
		assert.Nil(t, e)
		return tx.LockEmployees(ctx, "a", "b")
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ClaimSkipsLockedRows(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockPostgres(t)
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`SET dead_at = \$1, locked_at = NULL`).
		WithArgs(formatTS(now), errAbandoned, 5, formatTS(now.Add(-time.Minute))).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`LIMIT \$4 FOR UPDATE SKIP LOCKED`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "topic", "payload", "attempts", "available_at", "created_at"}).
			AddRow("m1", "leave.calendar.create", "{}", 0, formatTS(now), formatTS(now)))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE outbox SET locked_at = $1, attempts = attempts + 1 WHERE id IN ($2)")).
		WithArgs(formatTS(now), "m1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	msgs, err := s.Claim(ctx, now, now.Add(-time.Minute), 5, 10)

	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, 1, msgs[0].Attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := s.WithTx(ctx, func(tx leave.Tx) error { return leave.ErrForbidden })

	assert.ErrorIs(t, err, leave.ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}
