package leave

import (
	"context"

	"github.com/warp/leave-engine/outbox"
)

// Outbox topics for calendar side effects.
const (
	TopicCalendarCreate = "leave.calendar.create"
	TopicCalendarDelete = "leave.calendar.delete"
)

// CalendarCreatePayload asks the calendar port to book an approved entry.
type CalendarCreatePayload struct {
	EntryID       string `json:"entryId"`
	EmployeeEmail string `json:"employeeEmail"`
	EmployeeName  string `json:"employeeName"`
	Start         string `json:"start"`
	End           string `json:"end"`
	Category      string `json:"category"`
}

// CalendarDeletePayload asks the calendar port to remove an entry's events.
// Links may be empty when the create has not been dispatched yet.
type CalendarDeletePayload struct {
	EntryID       string        `json:"entryId"`
	EmployeeEmail string        `json:"employeeEmail"`
	Links         CalendarLinks `json:"links"`
}

func (s *Service) enqueueCalendarCreate(ctx context.Context, tx Tx, e *Entry, emp *Employee) error {
	msg, err := outbox.NewMessage(TopicCalendarCreate, CalendarCreatePayload{
		EntryID:       e.ID,
		EmployeeEmail: emp.Email,
		EmployeeName:  emp.Name,
		Start:         e.Start.String(),
		End:           e.End.String(),
		Category:      e.Type.Label(),
	}, s.clock.Now())
	if err != nil {
		return err
	}
	return tx.Enqueue(ctx, msg)
}

// enqueueCalendarDelete snapshots the entry's links into the message and
// clears them on the entry.
func (s *Service) enqueueCalendarDelete(ctx context.Context, tx Tx, e *Entry, emp *Employee) error {
	msg, err := outbox.NewMessage(TopicCalendarDelete, CalendarDeletePayload{
		EntryID:       e.ID,
		EmployeeEmail: emp.Email,
		Links:         e.Calendar,
	}, s.clock.Now())
	if err != nil {
		return err
	}
	e.Calendar = CalendarLinks{}
	return tx.Enqueue(ctx, msg)
}
