// Package checkin records attendance swipes with a double-scan guard.
package checkin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rollcall/internal/roster"
)

// ErrUnknownUser is returned when the swiped user id is not in the directory.
var ErrUnknownUser = errors.New("checkin: unknown user")

// Request is one swipe to record. Date, Time and Day default to the swipe
// instant when empty.
type Request struct {
	UserID    string
	EventName string
	Date      string
	Time      string
	Location  string
}

// Service validates swipes against the user directory and enforces the
// one-record-per-(user,event,date) invariant on the write path.
type Service struct {
	repo *roster.Repository
	now  func() time.Time
}

// NewService creates a service backed by a repository.
func NewService(repo *roster.Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Record persists a swipe. When a record for the same (user, event, date)
// already exists it is returned unchanged with created=false, so a double
// scan never writes a second document.
func (s *Service) Record(ctx context.Context, req Request) (roster.AttendanceRecord, bool, error) {
	if req.UserID == "" || req.EventName == "" {
		return roster.AttendanceRecord{}, false, errors.New("checkin: user id and event name required")
	}
	user, err := s.repo.GetUser(ctx, req.UserID)
	if err != nil {
		return roster.AttendanceRecord{}, false, err
	}
	if user == nil {
		return roster.AttendanceRecord{}, false, fmt.Errorf("%w: %s", ErrUnknownUser, req.UserID)
	}

	when := s.now().UTC()
	date := req.Date
	if date == "" {
		date = when.Format(roster.DateLayout)
	} else if _, err := time.Parse(roster.DateLayout, date); err != nil {
		return roster.AttendanceRecord{}, false, fmt.Errorf("checkin: date must be %s: %w", roster.DateLayout, err)
	}

	existing, err := s.repo.FindAttendance(ctx, req.UserID, req.EventName, date)
	if err != nil {
		return roster.AttendanceRecord{}, false, err
	}
	if existing != nil {
		return *existing, false, nil
	}

	clock := req.Time
	if clock == "" {
		clock = when.Format("15:04")
	}
	rec := roster.AttendanceRecord{
		UserID:    user.ID,
		StudentID: user.StudentID,
		Name:      user.Name,
		EventName: req.EventName,
		Date:      date,
		Time:      clock,
		Location:  req.Location,
		Day:       roster.WeekdayName(date),
	}
	rec, err = s.repo.RecordAttendance(ctx, rec)
	if err != nil {
		return roster.AttendanceRecord{}, false, err
	}
	return rec, true, nil
}
