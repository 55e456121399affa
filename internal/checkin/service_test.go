package checkin_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/checkin"
	"rollcall/internal/docstore"
	"rollcall/internal/roster"
)

func newTestService(t *testing.T) (*checkin.Service, *roster.Repository, *docstore.Memory) {
	t.Helper()
	mem := docstore.NewMemory()
	repo := roster.NewRepository(mem, 4)
	return checkin.NewService(repo), repo, mem
}

func registerUser(t *testing.T, mem *docstore.Memory, id, studentID, name string) {
	t.Helper()
	_, err := mem.Create(context.Background(), roster.CollectionUsers, id, map[string]any{
		"studentId": studentID,
		"name":      name,
	})
	require.NoError(t, err)
}

func TestRecord_DenormalizesFromDirectory(t *testing.T) {
	// GIVEN: a registered user
	// WHEN: recording a swipe
	// THEN: studentId, name and the weekday are filled from the directory

	svc, _, mem := newTestService(t)
	registerUser(t, mem, "u1", "2021-00001", "Ana Cruz")

	rec, created, err := svc.Record(context.Background(), checkin.Request{
		UserID:    "u1",
		EventName: "Orientation",
		Date:      "2024-01-10",
		Time:      "08:15",
		Location:  "Gym",
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "2021-00001", rec.StudentID)
	assert.Equal(t, "Ana Cruz", rec.Name)
	assert.Equal(t, "Wednesday", rec.Day)
}

func TestRecord_DoubleScanReturnsExisting(t *testing.T) {
	// GIVEN: a swipe already recorded for (user, event, date)
	// WHEN: scanning again
	// THEN: the first record comes back, nothing new is written

	svc, _, mem := newTestService(t)
	registerUser(t, mem, "u1", "2021-00001", "Ana Cruz")
	req := checkin.Request{UserID: "u1", EventName: "Orientation", Date: "2024-01-10"}

	first, created, err := svc.Record(context.Background(), req)
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := svc.Record(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	docs, err := mem.List(context.Background(), roster.CollectionAttendance)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestRecord_UnknownUserRejected(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, _, err := svc.Record(context.Background(), checkin.Request{UserID: "ghost", EventName: "Orientation"})
	require.ErrorIs(t, err, checkin.ErrUnknownUser)
}

func TestRecord_RequiresUserAndEvent(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, _, err := svc.Record(context.Background(), checkin.Request{EventName: "Orientation"})
	require.Error(t, err)
	_, _, err = svc.Record(context.Background(), checkin.Request{UserID: "u1"})
	require.Error(t, err)
}

func TestRecord_RejectsBadDate(t *testing.T) {
	svc, _, mem := newTestService(t)
	registerUser(t, mem, "u1", "2021-00001", "Ana Cruz")

	_, _, err := svc.Record(context.Background(), checkin.Request{
		UserID: "u1", EventName: "Orientation", Date: "10/01/2024",
	})
	require.Error(t, err)
}
