package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

type fakeCalendarAPI struct {
	mu       sync.Mutex
	seq      int
	calls    []string
	bodies   []map[string]any
	failPath string
}

func (f *fakeCalendarAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)

	if f.failPath != "" && r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, f.failPath) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"code":500,"message":"backend error"}}`)
		return
	}

	switch r.Method {
	case http.MethodPost:
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.bodies = append(f.bodies, body)
		f.seq++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"evt-%d"}`, f.seq)
	case http.MethodDelete:
		if strings.HasSuffix(r.URL.Path, "/gone") {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusGone)
			fmt.Fprint(w, `{"error":{"code":410,"message":"deleted"}}`)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestGoogle(t *testing.T, api *fakeCalendarAPI) *Google {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	g, err := NewGoogle(context.Background(), GoogleOptions{
		SharedCalendarID: "team",
		Endpoint:         srv.URL + "/",
		HTTPClient:       srv.Client(),
	})
	require.NoError(t, err)
	return g
}

func TestGoogle_CreateLeaveEvents(t *testing.T) {
	api := &fakeCalendarAPI{}
	g := newTestGoogle(t, api)

	// WHEN a three-day booking is created
	links, err := g.CreateLeaveEvents(context.Background(), CreateRequest{
		EmployeeEmail: "alice@example.com",
		EmployeeName:  "Alice",
		Start:         generic.MustDate("2026-06-01"),
		End:           generic.MustDate("2026-06-03"),
		Category:      "Annual Leave",
	})

	// THEN one event goes on each calendar with an exclusive end date
	require.NoError(t, err)
	assert.Equal(t, leave.CalendarLinks{GoogleEventID: "evt-1", SharedEventID: "evt-2"}, links)
	assert.Equal(t, []string{
		"POST /calendars/alice@example.com/events",
		"POST /calendars/team/events",
	}, api.calls)
	require.Len(t, api.bodies, 2)
	assert.Equal(t, "Alice - Annual Leave", api.bodies[0]["summary"])
	assert.Equal(t, map[string]any{"date": "2026-06-01"}, api.bodies[0]["start"])
	assert.Equal(t, map[string]any{"date": "2026-06-04"}, api.bodies[0]["end"])
}

func TestGoogle_CreateRollsBackPersonalEventOnSharedFailure(t *testing.T) {
	api := &fakeCalendarAPI{failPath: "/calendars/team"}
	g := newTestGoogle(t, api)

	_, err := g.CreateLeaveEvents(context.Background(), CreateRequest{
		EmployeeEmail: "alice@example.com",
		EmployeeName:  "Alice",
		Start:         generic.MustDate("2026-06-01"),
		End:           generic.MustDate("2026-06-01"),
		Category:      "Annual Leave",
	})

	require.Error(t, err)
	assert.Equal(t, "DELETE /calendars/alice@example.com/events/evt-1", api.calls[len(api.calls)-1])
}

func TestGoogle_DeleteToleratesMissingEvents(t *testing.T) {
	api := &fakeCalendarAPI{}
	g := newTestGoogle(t, api)

	err := g.DeleteLeaveEvents(context.Background(),
		leave.CalendarLinks{GoogleEventID: "gone", SharedEventID: "evt-9"}, "alice@example.com")

	require.NoError(t, err)
	assert.Equal(t, []string{
		"DELETE /calendars/alice@example.com/events/gone",
		"DELETE /calendars/team/events/evt-9",
	}, api.calls)
}

func TestNewGoogle_RequiresSharedCalendar(t *testing.T) {
	_, err := NewGoogle(context.Background(), GoogleOptions{})

	assert.Error(t, err)
}
