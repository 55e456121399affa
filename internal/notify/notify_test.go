package notify_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/docstore"
	"rollcall/internal/notify"
	"rollcall/internal/queue"
	"rollcall/internal/roster"
)

func TestPublishFineNotices_SkipsClearedFines(t *testing.T) {
	// GIVEN: one cleared and one pending fine
	// WHEN: publishing notices
	// THEN: only the pending fine produces a message

	q := queue.NewInMemory(8)
	pub := notify.NewPublisher(q)

	published, err := pub.PublishFineNotices(context.Background(), []roster.FineRecord{
		{UserID: "u1", StudentID: "S-1", Status: roster.FineStatusCleared, Penalties: "No penalty"},
		{UserID: "u2", StudentID: "S-2", Status: roster.FineStatusPending, Absences: 3, Penalties: "3 pencils"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, published)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	messages, err := q.Consume(ctx)
	require.NoError(t, err)
	msg := <-messages
	assert.Equal(t, notify.MessageType, msg.Type)
	assert.Contains(t, string(msg.Body), "u2")
}

func TestRecorder_WritesNotificationDocument(t *testing.T) {
	// GIVEN: a fine notice on the queue
	// WHEN: the recorder handles it
	// THEN: a notification document exists for the user with the penalty text

	mem := docstore.NewMemory()
	repo := roster.NewRepository(mem, 4)
	q := queue.NewInMemory(8)
	pub := notify.NewPublisher(q)
	rec := notify.NewRecorder(repo)
	ctx := context.Background()

	_, err := pub.PublishFineNotices(ctx, []roster.FineRecord{
		{UserID: "u2", StudentID: "S-2", Name: "Ben Reyes", Status: roster.FineStatusPending,
			Absences: 3, Penalties: "3 pencils", DateIssued: "2024-02-01"},
	})
	require.NoError(t, err)

	consumeCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	messages, err := q.Consume(consumeCtx)
	require.NoError(t, err)

	note, err := rec.Handle(ctx, <-messages)
	require.NoError(t, err)
	assert.Equal(t, "u2", note.UserID)
	assert.Contains(t, note.Body, "3 pencils")

	stored, err := repo.ListNotifications(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "S-2", stored[0].StudentID)
}

func TestRecorder_RejectsMalformedBody(t *testing.T) {
	mem := docstore.NewMemory()
	rec := notify.NewRecorder(roster.NewRepository(mem, 4))

	_, err := rec.Handle(context.Background(), queue.Message{Type: notify.MessageType, Body: []byte("{not json")})
	require.Error(t, err)
}
