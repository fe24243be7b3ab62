/*
Package calendar mirrors approved leave into external calendars.

PURPOSE:
  The leave engine never talks to a calendar provider inside a transition.
  It enqueues outbox messages; the Dispatcher in this package drains them
  through a Calendar port and records the resulting event ids on the entry.

IMPLEMENTATIONS:
  Google    Google Calendar v3, one event on the employee's calendar and one
            on the shared team calendar.
  Recorder  in-memory, for tests and for running without a provider.

SEE ALSO:
  - leave/events.go: message payloads
  - outbox: delivery, retries and dead-lettering
*/
package calendar

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// CreateRequest describes the all-day booking for an approved entry.
type CreateRequest struct {
	EmployeeEmail string
	EmployeeName  string
	Start         generic.TimePoint
	End           generic.TimePoint // inclusive
	Category      string
}

// Summary is the event title shown on both calendars.
func (r CreateRequest) Summary() string {
	return fmt.Sprintf("%s - %s", r.EmployeeName, r.Category)
}

// Calendar is the side-effect port used by the dispatcher.
type Calendar interface {
	CreateLeaveEvents(ctx context.Context, req CreateRequest) (leave.CalendarLinks, error)
	// DeleteLeaveEvents removes both events. Events that no longer exist
	// are not an error.
	DeleteLeaveEvents(ctx context.Context, links leave.CalendarLinks, employeeEmail string) error
}

// =============================================================================
// RECORDER
// =============================================================================

// Recorder is an in-memory Calendar. FailNext makes the next call fail.
type Recorder struct {
	mu       sync.Mutex
	seq      int
	events   map[string]CreateRequest
	created  int
	deleted  int
	failNext error
}

func NewRecorder() *Recorder {
	return &Recorder{events: make(map[string]CreateRequest)}
}

// FailNext makes the next Create or Delete return err.
func (r *Recorder) FailNext(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failNext = err
}

func (r *Recorder) takeFailure() error {
	err := r.failNext
	r.failNext = nil
	return err
}

func (r *Recorder) CreateLeaveEvents(_ context.Context, req CreateRequest) (leave.CalendarLinks, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeFailure(); err != nil {
		return leave.CalendarLinks{}, err
	}
	r.seq++
	links := leave.CalendarLinks{
		GoogleEventID: fmt.Sprintf("personal-%d", r.seq),
		SharedEventID: fmt.Sprintf("shared-%d", r.seq),
	}
	r.events[links.GoogleEventID] = req
	r.events[links.SharedEventID] = req
	r.created++
	return links, nil
}

func (r *Recorder) DeleteLeaveEvents(_ context.Context, links leave.CalendarLinks, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeFailure(); err != nil {
		return err
	}
	for _, id := range []string{links.GoogleEventID, links.SharedEventID} {
		if id == "" {
			continue
		}
		if _, ok := r.events[id]; ok {
			delete(r.events, id)
			r.deleted++
		}
	}
	return nil
}

// EventIDs lists the events currently booked.
func (r *Recorder) EventIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.events))
	for id := range r.events {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Counts reports how many create calls succeeded and how many events were
// removed.
func (r *Recorder) Counts() (created, deleted int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.created, r.deleted
}
