/*
errors.go - Error taxonomy for the leave engine

ERROR CATEGORIES:
  1. Validation      - ErrInvalidRange, ErrOutOfWindow, ErrInvalidInput
  2. Business rules  - ErrInsufficientBalance, ErrVolunteerLimitExceeded, ErrConflict
  3. Authorization   - ErrForbidden
  4. State           - ErrNotPending, ErrNotFound

Structured errors carry the context a caller needs to render a message and
unwrap to their sentinel, so errors.Is works on both.

SEE ALSO:
  - api/handlers.go: maps categories to HTTP status codes
*/
package leave

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrNotFound               = errors.New("not found")
	ErrOutOfWindow            = errors.New("dates outside leave year")
	ErrInvalidRange           = errors.New("invalid range: end before start")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrVolunteerLimitExceeded = errors.New("volunteer limit exceeded")
	ErrNotPending             = errors.New("transition not allowed from current status")
	ErrForbidden              = errors.New("forbidden")
	ErrConflict               = errors.New("conflicting approved leave")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError names the missing object.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %s not found", e.Kind, e.ID) }
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func notFound(kind, id string) error { return &NotFoundError{Kind: kind, ID: id} }

// InsufficientBalanceError provides details about an allowance shortage.
type InsufficientBalanceError struct {
	Available decimal.Decimal
	Requested decimal.Decimal
	Shortfall decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: requested %s days, %s remaining (short %s)",
		e.Requested, e.Available, e.Shortfall)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// VolunteerLimitError reports how much of the volunteer pool is left.
type VolunteerLimitError struct {
	Used      decimal.Decimal
	Requested decimal.Decimal
	Remaining decimal.Decimal
}

func (e *VolunteerLimitError) Error() string {
	return fmt.Sprintf("volunteer limit exceeded: requested %s days, %s of %s remaining",
		e.Requested, e.Remaining, VolunteerAllowance)
}

func (e *VolunteerLimitError) Unwrap() error { return ErrVolunteerLimitExceeded }

// ConflictError lists every colleague whose approved leave overlaps.
type ConflictError struct {
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	names := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		names = append(names, fmt.Sprintf("%s (%s to %s)", c.ColleagueName, c.Start, c.End))
	}
	return "conflicts with approved leave of " + strings.Join(names, ", ")
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// ColleagueNames returns the conflicting colleagues in order.
func (e *ConflictError) ColleagueNames() []string {
	names := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		names = append(names, c.ColleagueName)
	}
	return names
}

// TransitionError is a state error: action is not allowed from From.
type TransitionError struct {
	Action Action
	From   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s entry in status %s", strings.ToLower(string(e.Action)), e.From)
}

func (e *TransitionError) Unwrap() error { return ErrNotPending }

// ForbiddenError names the relationship the actor lacked.
type ForbiddenError struct {
	ActorID string
	Need    string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("actor %s is not %s", e.ActorID, e.Need)
}

func (e *ForbiddenError) Unwrap() error { return ErrForbidden }

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidInput}, args...)...)
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

// IsValidation is a caller mistake to be corrected.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidRange) || errors.Is(err, ErrOutOfWindow) || errors.Is(err, ErrInvalidInput)
}

// IsBusinessRule is an expected outcome the UI presents as actionable.
func IsBusinessRule(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrVolunteerLimitExceeded) ||
		errors.Is(err, ErrConflict)
}

// IsStateError signals a stale client view.
func IsStateError(err error) bool {
	return errors.Is(err, ErrNotPending) || errors.Is(err, ErrNotFound)
}

// IsClientError is any error caused by the request rather than the system.
func IsClientError(err error) bool {
	return IsValidation(err) || IsBusinessRule(err) || IsStateError(err) || errors.Is(err, ErrForbidden)
}

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
