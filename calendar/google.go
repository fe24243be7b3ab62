package calendar

import (
	"context"
	"net/http"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/warp/leave-engine/leave"
)

// GoogleOptions configures the Google Calendar adapter.
type GoogleOptions struct {
	// CredentialsFile is a service-account key with domain-wide delegation.
	// When set, personal events are written as the employee.
	CredentialsFile string
	// SharedCalendarID receives a copy of every booking.
	SharedCalendarID string
	// Endpoint overrides the API base URL.
	Endpoint string
	// HTTPClient is used unauthenticated when no credentials are given.
	HTTPClient *http.Client
}

// Google writes all-day events through Google Calendar v3.
type Google struct {
	shared   *gcal.Service
	sharedID string
	jwt      *jwt.Config
	opts     []option.ClientOption
}

var _ Calendar = (*Google)(nil)

func NewGoogle(ctx context.Context, o GoogleOptions) (*Google, error) {
	if o.SharedCalendarID == "" {
		return nil, errors.New("calendar: shared calendar id is required")
	}
	g := &Google{sharedID: o.SharedCalendarID}
	if o.Endpoint != "" {
		g.opts = append(g.opts, option.WithEndpoint(o.Endpoint))
	}

	base := g.opts
	if o.CredentialsFile != "" {
		data, err := os.ReadFile(o.CredentialsFile)
		if err != nil {
			return nil, errors.Wrap(err, "read calendar credentials")
		}
		g.jwt, err = google.JWTConfigFromJSON(data, gcal.CalendarEventsScope)
		if err != nil {
			return nil, errors.Wrap(err, "parse calendar credentials")
		}
		base = append(base, option.WithTokenSource(g.jwt.TokenSource(ctx)))
	} else {
		client := o.HTTPClient
		if client == nil {
			client = http.DefaultClient
		}
		g.opts = append(g.opts, option.WithHTTPClient(client))
		base = g.opts
	}

	svc, err := gcal.NewService(ctx, base...)
	if err != nil {
		return nil, errors.Wrap(err, "calendar service")
	}
	g.shared = svc
	return g, nil
}

// personal returns a service acting on the employee's calendar and the
// calendar id to address. Without delegation the shared client addresses the
// employee's calendar by email.
func (g *Google) personal(ctx context.Context, email string) (*gcal.Service, string, error) {
	if g.jwt == nil {
		return g.shared, email, nil
	}
	cfg := *g.jwt
	cfg.Subject = email
	opts := append(append([]option.ClientOption{}, g.opts...), option.WithTokenSource(cfg.TokenSource(ctx)))
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, "", errors.Wrap(err, "calendar service")
	}
	return svc, "primary", nil
}

func event(req CreateRequest) *gcal.Event {
	return &gcal.Event{
		Summary:      req.Summary(),
		Start:        &gcal.EventDateTime{Date: req.Start.String()},
		End:          &gcal.EventDateTime{Date: req.End.AddDays(1).String()}, // exclusive
		Transparency: "opaque",
	}
}

func (g *Google) CreateLeaveEvents(ctx context.Context, req CreateRequest) (leave.CalendarLinks, error) {
	svc, calID, err := g.personal(ctx, req.EmployeeEmail)
	if err != nil {
		return leave.CalendarLinks{}, err
	}
	own, err := svc.Events.Insert(calID, event(req)).Context(ctx).Do()
	if err != nil {
		return leave.CalendarLinks{}, errors.Wrap(err, "insert personal event")
	}

	shared, err := g.shared.Events.Insert(g.sharedID, event(req)).Context(ctx).Do()
	if err != nil {
		// Leave nothing half-booked; the retry creates both again.
		if delErr := g.deleteEvent(ctx, svc, calID, own.Id); delErr != nil {
			return leave.CalendarLinks{}, errors.Wrapf(err, "insert shared event (cleanup: %v)", delErr)
		}
		return leave.CalendarLinks{}, errors.Wrap(err, "insert shared event")
	}
	return leave.CalendarLinks{GoogleEventID: own.Id, SharedEventID: shared.Id}, nil
}

func (g *Google) DeleteLeaveEvents(ctx context.Context, links leave.CalendarLinks, employeeEmail string) error {
	if links.GoogleEventID != "" {
		svc, calID, err := g.personal(ctx, employeeEmail)
		if err != nil {
			return err
		}
		if err := g.deleteEvent(ctx, svc, calID, links.GoogleEventID); err != nil {
			return errors.Wrap(err, "delete personal event")
		}
	}
	if links.SharedEventID != "" {
		if err := g.deleteEvent(ctx, g.shared, g.sharedID, links.SharedEventID); err != nil {
			return errors.Wrap(err, "delete shared event")
		}
	}
	return nil
}

func (g *Google) deleteEvent(ctx context.Context, svc *gcal.Service, calID, eventID string) error {
	err := svc.Events.Delete(calID, eventID).Context(ctx).Do()
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
		return nil
	}
	return err
}
