package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/outbox"
)

type fakeLinks struct {
	visible map[string]bool
	links   map[string]leave.CalendarLinks
	// cancelOnSet flips the entry to cancelled just before links are stored.
	cancelOnSet bool
}

func newFakeLinks() *fakeLinks {
	return &fakeLinks{visible: map[string]bool{}, links: map[string]leave.CalendarLinks{}}
}

func (f *fakeLinks) CalendarState(_ context.Context, id string) (bool, leave.CalendarLinks, error) {
	return f.visible[id], f.links[id], nil
}

func (f *fakeLinks) SetCalendarLinks(_ context.Context, id string, l leave.CalendarLinks) (bool, error) {
	if f.cancelOnSet {
		f.visible[id] = false
	}
	if !f.visible[id] {
		return false, nil
	}
	f.links[id] = l
	return true, nil
}

func createMessage(t *testing.T, entryID string) outbox.Message {
	t.Helper()
	m, err := outbox.NewMessage(leave.TopicCalendarCreate, leave.CalendarCreatePayload{
		EntryID: entryID, EmployeeEmail: "alice@example.com", EmployeeName: "Alice",
		Start: "2026-06-01", End: "2026-06-05", Category: "Annual Leave",
	}, time.Now())
	require.NoError(t, err)
	return m
}

func TestDispatcher_CreateStoresLinksOnce(t *testing.T) {
	ctx := context.Background()
	rec := NewRecorder()
	store := newFakeLinks()
	store.visible["e1"] = true
	d := NewDispatcher(rec, store, nil)
	msg := createMessage(t, "e1")

	// WHEN the same message is delivered twice
	require.NoError(t, d.Dispatch(ctx, msg))
	require.NoError(t, d.Dispatch(ctx, msg))

	// THEN events are created once
	created, _ := rec.Counts()
	assert.Equal(t, 1, created)
	assert.Equal(t, leave.CalendarLinks{GoogleEventID: "personal-1", SharedEventID: "shared-1"}, store.links["e1"])
}

func TestDispatcher_CreateSkipsCancelledEntry(t *testing.T) {
	rec := NewRecorder()
	d := NewDispatcher(rec, newFakeLinks(), nil)

	require.NoError(t, d.Dispatch(context.Background(), createMessage(t, "e1")))

	created, _ := rec.Counts()
	assert.Zero(t, created)
}

func TestDispatcher_CreateUndoesEventsWhenCancelledMeanwhile(t *testing.T) {
	rec := NewRecorder()
	store := newFakeLinks()
	store.visible["e1"] = true
	store.cancelOnSet = true
	d := NewDispatcher(rec, store, nil)

	require.NoError(t, d.Dispatch(context.Background(), createMessage(t, "e1")))

	assert.Empty(t, rec.EventIDs())
	_, deleted := rec.Counts()
	assert.Equal(t, 2, deleted)
}

func TestDispatcher_CreateFailureIsRetryable(t *testing.T) {
	rec := NewRecorder()
	rec.FailNext(errors.New("rate limited"))
	store := newFakeLinks()
	store.visible["e1"] = true
	d := NewDispatcher(rec, store, nil)

	err := d.Dispatch(context.Background(), createMessage(t, "e1"))

	require.Error(t, err)
	assert.True(t, store.links["e1"].IsZero())
}

func TestDispatcher_Delete(t *testing.T) {
	ctx := context.Background()
	rec := NewRecorder()
	links, err := rec.CreateLeaveEvents(ctx, CreateRequest{EmployeeEmail: "alice@example.com"})
	require.NoError(t, err)
	d := NewDispatcher(rec, newFakeLinks(), nil)

	msg, err := outbox.NewMessage(leave.TopicCalendarDelete, leave.CalendarDeletePayload{
		EntryID: "e1", EmployeeEmail: "alice@example.com", Links: links,
	}, time.Now())
	require.NoError(t, err)

	require.NoError(t, d.Dispatch(ctx, msg))
	assert.Empty(t, rec.EventIDs())
}

func TestDispatcher_UnknownTopic(t *testing.T) {
	d := NewDispatcher(NewRecorder(), newFakeLinks(), nil)
	msg, err := outbox.NewMessage("leave.other", struct{}{}, time.Now())
	require.NoError(t, err)

	assert.Error(t, d.Dispatch(context.Background(), msg))
}
