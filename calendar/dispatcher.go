package calendar

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/outbox"
)

// LinkStore is the part of the store the dispatcher reconciles against.
type LinkStore interface {
	// CalendarState reports whether the entry should currently be booked
	// and which event ids it holds.
	CalendarState(ctx context.Context, entryID string) (bool, leave.CalendarLinks, error)
	// SetCalendarLinks records ids only while the entry is still booked.
	SetCalendarLinks(ctx context.Context, entryID string, links leave.CalendarLinks) (bool, error)
}

// Dispatcher turns calendar outbox messages into Calendar calls.
//
// Delivery is at least once, so both handlers are idempotent: a create for
// an entry that already has links, or is no longer booked, does nothing.
type Dispatcher struct {
	cal   Calendar
	links LinkStore
	log   *logrus.Entry
}

var _ outbox.Dispatcher = (*Dispatcher)(nil)

func NewDispatcher(cal Calendar, links LinkStore, log *logrus.Entry) *Dispatcher {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = logrus.NewEntry(l)
	}
	return &Dispatcher{cal: cal, links: links, log: log.WithField("component", "calendar")}
}

func (d *Dispatcher) Dispatch(ctx context.Context, msg outbox.Message) error {
	switch msg.Topic {
	case leave.TopicCalendarCreate:
		var p leave.CalendarCreatePayload
		if err := msg.Decode(&p); err != nil {
			return fmt.Errorf("decode %s: %w", msg.Topic, err)
		}
		return d.create(ctx, p)
	case leave.TopicCalendarDelete:
		var p leave.CalendarDeletePayload
		if err := msg.Decode(&p); err != nil {
			return fmt.Errorf("decode %s: %w", msg.Topic, err)
		}
		return d.delete(ctx, p)
	default:
		return fmt.Errorf("calendar: unknown topic %q", msg.Topic)
	}
}

func (d *Dispatcher) create(ctx context.Context, p leave.CalendarCreatePayload) error {
	log := d.log.WithField("entry_id", p.EntryID)

	visible, current, err := d.links.CalendarState(ctx, p.EntryID)
	if err != nil {
		return err
	}
	if !visible {
		log.Debug("entry no longer booked, skipping calendar create")
		return nil
	}
	if !current.IsZero() {
		log.Debug("entry already has calendar events")
		return nil
	}

	start, err := generic.ParseDate(p.Start)
	if err != nil {
		return err
	}
	end, err := generic.ParseDate(p.End)
	if err != nil {
		return err
	}
	links, err := d.cal.CreateLeaveEvents(ctx, CreateRequest{
		EmployeeEmail: p.EmployeeEmail,
		EmployeeName:  p.EmployeeName,
		Start:         start,
		End:           end,
		Category:      p.Category,
	})
	if err != nil {
		return err
	}

	stored, err := d.links.SetCalendarLinks(ctx, p.EntryID, links)
	if err != nil {
		return err
	}
	if !stored {
		// Cancelled while the events were being created.
		log.Info("entry cancelled during calendar create, removing events")
		return d.cal.DeleteLeaveEvents(ctx, links, p.EmployeeEmail)
	}
	log.WithFields(logrus.Fields{
		"google_event_id": links.GoogleEventID,
		"shared_event_id": links.SharedEventID,
	}).Info("calendar events created")
	return nil
}

func (d *Dispatcher) delete(ctx context.Context, p leave.CalendarDeletePayload) error {
	if p.Links.IsZero() {
		d.log.WithField("entry_id", p.EntryID).Debug("no calendar events to delete")
		return nil
	}
	if err := d.cal.DeleteLeaveEvents(ctx, p.Links, p.EmployeeEmail); err != nil {
		return err
	}
	d.log.WithField("entry_id", p.EntryID).Info("calendar events deleted")
	return nil
}
