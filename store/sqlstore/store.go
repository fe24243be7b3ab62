/*
Package sqlstore persists the leave engine in SQLite or PostgreSQL.

PURPOSE:
  One implementation of leave.Store, outbox.Source and the calendar link
  store, written once against sqlx with '?' placeholders rebound per driver.

DRIVERS:
  sqlite3  mattn/go-sqlite3. Development and tests. Transactions begin
           IMMEDIATE, so a transaction holds the database write lock from
           its first statement; row locks are therefore no-ops.
  pgx      jackc/pgx/v5/stdlib. Production. Row locks are SELECT ... FOR
           UPDATE, the outbox is claimed with FOR UPDATE SKIP LOCKED.

STORAGE FORMAT:
  Dates are YYYY-MM-DD, day amounts are decimal strings and timestamps are
  fixed-width UTC strings, so ordering and equality work the same on both
  engines.

USAGE:
  store, err := sqlstore.Open(ctx, "sqlite3", "./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - store/migrations: schema
  - leave/store.go: interfaces implemented here
*/
package sqlstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/outbox"
	"github.com/warp/leave-engine/store/migrations"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

const timestampLayout = "2006-01-02T15:04:05.000000000Z"

func formatTS(t time.Time) string { return t.UTC().Format(timestampLayout) }

func parseTS(s string) time.Time {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Store implements leave.Store and outbox.Source.
type Store struct {
	repo
	db *sqlx.DB
}

// Connect opens and pings a pool configured for the driver.
func Connect(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	if driver == DriverSQLite {
		dsn = sqliteDSN(dsn)
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	if driver == DriverSQLite {
		// One connection: in-memory databases are per connection, and
		// SQLite allows a single writer anyway.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping database")
	}
	return db, nil
}

// Open connects and applies pending migrations.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	db, err := Connect(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := migrations.Up(ctx, db.DB, driver); err != nil {
		db.Close()
		return nil, err
	}
	return New(db), nil
}

// New wraps an existing connection without migrating.
func New(db *sqlx.DB) *Store {
	return &Store{repo: repo{q: db, postgres: db.DriverName() != DriverSQLite}, db: db}
}

func sqliteDSN(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate"
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the pool for health checks and migrations.
func (s *Store) DB() *sqlx.DB { return s.db }

// WithTx runs fn in a transaction, committing when fn returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(tx leave.Tx) error) error {
	sqlTx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelDefault})
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer sqlTx.Rollback() //nolint:errcheck

	t := &txRepo{repo: repo{q: sqlTx, postgres: s.postgres}}
	if err := fn(t); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	outbox.RecordEnqueued(t.enqueued...)
	return nil
}

// repo runs queries against either the pool or a transaction.
type repo struct {
	q        sqlx.ExtContext
	postgres bool
}

var _ leave.Repository = repo{}

func (r repo) get(ctx context.Context, dest any, query string, args ...any) (bool, error) {
	err := sqlx.GetContext(ctx, r.q, dest, r.q.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r repo) selectAll(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, r.q, dest, r.q.Rebind(query), args...)
}

// selectIn expands slice arguments into IN lists.
func (r repo) selectIn(ctx context.Context, dest any, query string, args ...any) error {
	q, inArgs, err := sqlx.In(query, args...)
	if err != nil {
		return err
	}
	return sqlx.SelectContext(ctx, r.q, dest, r.q.Rebind(q), inArgs...)
}

func (r repo) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return r.q.ExecContext(ctx, r.q.Rebind(query), args...)
}

// forUpdate appends a row-lock clause on PostgreSQL.
func (r repo) forUpdate(query string) string {
	if r.postgres {
		return query + " FOR UPDATE"
	}
	return query
}

// txRepo is the repository bound to a transaction.
type txRepo struct {
	repo
	enqueued []outbox.Message
}

var _ leave.Tx = (*txRepo)(nil)

func (t *txRepo) LockEntry(ctx context.Context, id string) (*leave.Entry, error) {
	return t.entry(ctx, t.forUpdate(selectEntry+" WHERE id = ?"), id)
}

func (t *txRepo) LockEmployees(ctx context.Context, ids ...string) error {
	if !t.postgres || len(ids) == 0 {
		return nil
	}
	var locked []string
	if err := t.selectIn(ctx, &locked, "SELECT id FROM employees WHERE id IN (?) ORDER BY id FOR UPDATE", ids); err != nil {
		return errors.Wrap(err, "lock employees")
	}
	return nil
}

func (t *txRepo) Enqueue(ctx context.Context, msgs ...outbox.Message) error {
	if err := t.repo.Enqueue(ctx, msgs...); err != nil {
		return err
	}
	t.enqueued = append(t.enqueued, msgs...)
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
