package roster_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/docstore"
	"rollcall/internal/roster"
)

func newTestRepo(t *testing.T) (*roster.Repository, *docstore.Memory) {
	t.Helper()
	mem := docstore.NewMemory()
	return roster.NewRepository(mem, 4), mem
}

func seedSwipe(t *testing.T, mem *docstore.Memory, id, userID, eventName, date string) {
	t.Helper()
	_, err := mem.Create(context.Background(), roster.CollectionAttendance, id, map[string]any{
		"userId":    userID,
		"studentId": "S-" + userID,
		"name":      "Student " + userID,
		"eventName": eventName,
		"date":      date,
	})
	require.NoError(t, err)
}

func TestListAttendance_EmptyStore(t *testing.T) {
	// GIVEN: an empty attendance collection
	// WHEN: listing
	// THEN: empty output, nothing removed

	repo, _ := newTestRepo(t)
	recs, removed, err := repo.ListAttendance(context.Background())
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Zero(t, removed)
}

func TestListAttendance_AllUniqueIsUntouched(t *testing.T) {
	repo, mem := newTestRepo(t)
	seedSwipe(t, mem, "a1", "u1", "Orientation", "2024-01-10")
	seedSwipe(t, mem, "a2", "u1", "Sportsfest", "2024-01-11")
	seedSwipe(t, mem, "a3", "u2", "Orientation", "2024-01-10")

	recs, removed, err := repo.ListAttendance(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 3)
	assert.Zero(t, removed)
}

func TestListAttendance_DoubleScanCollapsesToFirst(t *testing.T) {
	// GIVEN: two records for the same (user, event, date) from a double scan
	// WHEN: listing attendance
	// THEN: the first-created record survives and the duplicate is deleted

	repo, mem := newTestRepo(t)
	seedSwipe(t, mem, "first", "u4", "Orientation", "2024-01-10")
	seedSwipe(t, mem, "second", "u4", "Orientation", "2024-01-10")

	recs, removed, err := repo.ListAttendance(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "first", recs[0].ID)
	assert.Equal(t, 1, removed)

	// the duplicate's id got a delete call
	docs, err := mem.List(context.Background(), roster.CollectionAttendance)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "first", docs[0].ID)
}

func TestListAttendance_AllOneKeyLeavesSingleSurvivor(t *testing.T) {
	repo, mem := newTestRepo(t)
	for _, id := range []string{"k1", "k2", "k3", "k4"} {
		seedSwipe(t, mem, id, "u7", "Seminar", "2024-02-02")
	}

	recs, removed, err := repo.ListAttendance(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "k1", recs[0].ID)
	assert.Equal(t, 3, removed)
}

func TestListAttendance_SurvivorOrderIsFirstAppearance(t *testing.T) {
	repo, mem := newTestRepo(t)
	seedSwipe(t, mem, "a1", "u1", "Orientation", "2024-01-10")
	seedSwipe(t, mem, "b1", "u2", "Orientation", "2024-01-10")
	seedSwipe(t, mem, "a2", "u1", "Orientation", "2024-01-10") // dup of a1
	seedSwipe(t, mem, "c1", "u3", "Orientation", "2024-01-10")

	recs, _, err := repo.ListAttendance(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, []string{"a1", "b1", "c1"}, []string{recs[0].ID, recs[1].ID, recs[2].ID})
}

func TestListFines_CollapsesOnUserID(t *testing.T) {
	// Fines from an interrupted run can only collide on userId; the read
	// path keeps the first per user.
	repo, mem := newTestRepo(t)
	ctx := context.Background()
	for _, id := range []string{"f1", "f2"} {
		_, err := mem.Create(ctx, roster.CollectionFines, id, map[string]any{
			"userId": "u1", "studentId": "S-1", "absences": "2", "presences": "8",
		})
		require.NoError(t, err)
	}

	fines, err := repo.ListFines(ctx)
	require.NoError(t, err)
	require.Len(t, fines, 1)
	assert.Equal(t, "f1", fines[0].ID)
	assert.Equal(t, 2, fines[0].Absences)
	assert.Equal(t, 8, fines[0].Presences)
}

func TestWeekdayName(t *testing.T) {
	assert.Equal(t, "Wednesday", roster.WeekdayName("2024-01-10"))
	assert.Equal(t, "", roster.WeekdayName("not-a-date"))
}
