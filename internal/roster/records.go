// Package roster holds the tracked records (attendance swipes, users,
// fines, events, notifications), their document codecs, and the repository
// that reads and writes them through a document store.
package roster

import (
	"strconv"
	"time"

	"rollcall/internal/docstore"
)

// Collection names in the document store.
const (
	CollectionAttendance    = "attendance"
	CollectionUsers         = "users"
	CollectionFines         = "fines"
	CollectionEvents        = "events"
	CollectionNotifications = "notifications"
)

// DateLayout is the calendar-date encoding used across all records.
const DateLayout = "2006-01-02"

// Fine status values. The store holds no other values; the reconciliation
// job writes Cleared for a no-penalty user and Pending otherwise.
const (
	FineStatusPending = "Pending"
	FineStatusCleared = "Cleared"
)

// AttendanceRecord is one swipe: a user seen at an event on a date.
// At most one logical record exists per (UserID, EventName, Date); extra
// records are double-scan artifacts removed by the dedup pass.
type AttendanceRecord struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	EventName string `json:"event_name"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Location  string `json:"location"`
	Day       string `json:"day"`
}

// Key is the natural key a duplicate swipe collides on.
func (a AttendanceRecord) Key() string {
	return a.UserID + "\x00" + a.EventName + "\x00" + a.Date
}

func (a AttendanceRecord) fields() map[string]any {
	return map[string]any{
		"userId":    a.UserID,
		"studentId": a.StudentID,
		"name":      a.Name,
		"eventName": a.EventName,
		"date":      a.Date,
		"time":      a.Time,
		"location":  a.Location,
		"day":       a.Day,
	}
}

func attendanceFromDoc(doc docstore.Document) AttendanceRecord {
	return AttendanceRecord{
		ID:        doc.ID,
		UserID:    doc.String("userId"),
		StudentID: doc.String("studentId"),
		Name:      doc.String("name"),
		EventName: doc.String("eventName"),
		Date:      doc.String("date"),
		Time:      doc.String("time"),
		Location:  doc.String("location"),
		Day:       doc.String("day"),
	}
}

// User is one registered person in the directory.
type User struct {
	ID        string `json:"id"`
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
}

func userFromDoc(doc docstore.Document) User {
	return User{
		ID:        doc.ID,
		StudentID: doc.String("studentId"),
		Name:      doc.String("name"),
	}
}

// FineRecord is the per-user outcome of a reconciliation run. Logical key is
// UserID; the run rebuilds the whole collection, so at most one exists per user.
type FineRecord struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	StudentID  string `json:"student_id"`
	Name       string `json:"name"`
	Absences   int    `json:"absences"`
	Presences  int    `json:"presences"`
	Penalties  string `json:"penalties"`
	DateIssued string `json:"date_issued"`
	Status     string `json:"status"`
}

// Counts are string-encoded in the store; the struct carries ints.
func (f FineRecord) fields() map[string]any {
	return map[string]any{
		"userId":     f.UserID,
		"studentId":  f.StudentID,
		"name":       f.Name,
		"absences":   strconv.Itoa(f.Absences),
		"presences":  strconv.Itoa(f.Presences),
		"penalties":  f.Penalties,
		"dateIssued": f.DateIssued,
		"status":     f.Status,
	}
}

func fineFromDoc(doc docstore.Document) FineRecord {
	absences, _ := strconv.Atoi(doc.String("absences"))
	presences, _ := strconv.Atoi(doc.String("presences"))
	return FineRecord{
		ID:         doc.ID,
		UserID:     doc.String("userId"),
		StudentID:  doc.String("studentId"),
		Name:       doc.String("name"),
		Absences:   absences,
		Presences:  presences,
		Penalties:  doc.String("penalties"),
		DateIssued: doc.String("dateIssued"),
		Status:     doc.String("status"),
	}
}

// Event is one entry in the event catalog.
type Event struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Date     string `json:"date"`
	Location string `json:"location"`
}

func (e Event) fields() map[string]any {
	return map[string]any{
		"name":     e.Name,
		"date":     e.Date,
		"location": e.Location,
	}
}

func eventFromDoc(doc docstore.Document) Event {
	return Event{
		ID:       doc.ID,
		Name:     doc.String("name"),
		Date:     doc.String("date"),
		Location: doc.String("location"),
	}
}

// Notification is a delivered fine notice.
type Notification struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	StudentID string `json:"student_id"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	SentAt    string `json:"sent_at"`
}

func (n Notification) fields() map[string]any {
	return map[string]any{
		"userId":    n.UserID,
		"studentId": n.StudentID,
		"subject":   n.Subject,
		"body":      n.Body,
		"sentAt":    n.SentAt,
	}
}

func notificationFromDoc(doc docstore.Document) Notification {
	return Notification{
		ID:        doc.ID,
		UserID:    doc.String("userId"),
		StudentID: doc.String("studentId"),
		Subject:   doc.String("subject"),
		Body:      doc.String("body"),
		SentAt:    doc.String("sentAt"),
	}
}

// WeekdayName returns the denormalized day name for an ISO date, empty when
// the date does not parse.
func WeekdayName(date string) string {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return ""
	}
	return t.Weekday().String()
}
