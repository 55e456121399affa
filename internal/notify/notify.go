// Package notify publishes fine notices after a reconciliation run and
// records their delivery as notification documents.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rollcall/internal/metrics"
	"rollcall/internal/queue"
	"rollcall/internal/roster"
)

// MessageType marks fine-notice messages on the queue.
const MessageType = "fine-notice"

// FineNotice is the queue payload for one penalized user.
type FineNotice struct {
	UserID     string `json:"user_id"`
	StudentID  string `json:"student_id"`
	Name       string `json:"name"`
	Absences   int    `json:"absences"`
	Penalties  string `json:"penalties"`
	DateIssued string `json:"date_issued"`
}

// Publisher enqueues notices for fines that carry a penalty.
type Publisher struct {
	q queue.Queue
}

// NewPublisher creates a publisher over a queue backend.
func NewPublisher(q queue.Queue) *Publisher {
	return &Publisher{q: q}
}

// PublishFineNotices enqueues one notice per non-cleared fine. Returns the
// number published; a publish failure stops and reports, already-queued
// notices stay queued.
func (p *Publisher) PublishFineNotices(ctx context.Context, fines []roster.FineRecord) (int, error) {
	published := 0
	for _, fine := range fines {
		if fine.Status == roster.FineStatusCleared {
			continue
		}
		notice := FineNotice{
			UserID:     fine.UserID,
			StudentID:  fine.StudentID,
			Name:       fine.Name,
			Absences:   fine.Absences,
			Penalties:  fine.Penalties,
			DateIssued: fine.DateIssued,
		}
		body, err := json.Marshal(notice)
		if err != nil {
			return published, err
		}
		if err := p.q.Publish(ctx, queue.Message{Type: MessageType, Body: body}); err != nil {
			return published, fmt.Errorf("notify: publish notice for user %s: %w", fine.UserID, err)
		}
		published++
		metrics.NoticesPublishedTotal.Inc()
	}
	return published, nil
}

// Recorder persists consumed notices as notification documents.
type Recorder struct {
	repo *roster.Repository
	now  func() time.Time
}

// NewRecorder creates a recorder backed by the repository.
func NewRecorder(repo *roster.Repository) *Recorder {
	return &Recorder{repo: repo, now: time.Now}
}

// Handle decodes one queue message and writes its notification record.
func (r *Recorder) Handle(ctx context.Context, msg queue.Message) (roster.Notification, error) {
	var notice FineNotice
	if err := json.Unmarshal(msg.Body, &notice); err != nil {
		return roster.Notification{}, fmt.Errorf("notify: decode notice: %w", err)
	}
	note := roster.Notification{
		UserID:    notice.UserID,
		StudentID: notice.StudentID,
		Subject:   fmt.Sprintf("Attendance penalty: %d absence(s)", notice.Absences),
		Body: fmt.Sprintf("Hi %s, you were marked absent %d time(s) as of %s. Penalty due: %s.",
			notice.Name, notice.Absences, notice.DateIssued, notice.Penalties),
		SentAt: r.now().UTC().Format(time.RFC3339),
	}
	return r.repo.CreateNotification(ctx, note)
}
