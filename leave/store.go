package leave

import (
	"context"
	"time"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/outbox"
)

// Directory answers identity questions: who an actor is, their role, their
// org-chart manager and their department.
type Directory interface {
	Employee(ctx context.Context, id string) (*Employee, error)
	DepartmentMembers(ctx context.Context, departmentID string) ([]Employee, error)
}

// YearRepository persists leave-year windows.
type YearRepository interface {
	YearByStart(ctx context.Context, start generic.TimePoint) (*Year, error)
	YearByID(ctx context.Context, id string) (*Year, error)
	// InsertYear is a no-op when a window with the same start exists.
	InsertYear(ctx context.Context, y Year) error
}

// Repository is the full persistence surface. Getters return (nil, nil)
// when the row does not exist.
type Repository interface {
	Directory
	YearRepository

	Policy(ctx context.Context, employeeID, yearID string) (*Policy, error)
	UpsertPolicy(ctx context.Context, p Policy) error

	InsertTimeInLieu(ctx context.Context, a TimeInLieu) error
	TimeInLieuFor(ctx context.Context, employeeID, yearID string) ([]TimeInLieu, error)

	Entry(ctx context.Context, id string) (*Entry, error)
	InsertEntry(ctx context.Context, e *Entry) error
	UpdateEntry(ctx context.Context, e *Entry) error
	EntriesFor(ctx context.Context, employeeID, yearID string) ([]Entry, error)
	// ApprovedEntries returns booked entries of the given types for any of
	// the employees within the year: approved, or approved and awaiting a
	// cancellation decision.
	ApprovedEntries(ctx context.Context, employeeIDs []string, yearID string, types []Type) ([]Entry, error)

	AppendAudit(ctx context.Context, rec AuditRecord) error
	AuditFor(ctx context.Context, targetID string) ([]AuditRecord, error)

	Enqueue(ctx context.Context, msgs ...outbox.Message) error
}

// Tx is a Repository bound to one database transaction, with row locks.
type Tx interface {
	Repository

	// LockEntry reads the entry and holds a row lock until commit.
	LockEntry(ctx context.Context, id string) (*Entry, error)
	// LockEmployees serializes balance and conflict decisions per employee.
	// Rows are locked in id order.
	LockEmployees(ctx context.Context, ids ...string) error
}

// Store runs work in transactions. fn's error rolls the transaction back.
type Store interface {
	Repository
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Cache is a small byte cache used for leave-year lookups.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
