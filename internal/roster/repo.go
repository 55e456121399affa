package roster

import (
	"context"
	"errors"

	"rollcall/internal/docstore"
)

// Repository reads and writes roster records through a document store.
// Bulk attendance reads apply the dedup pass; fine reads collapse to one
// record per user.
type Repository struct {
	store         docstore.Store
	deleteWorkers int
}

// NewRepository creates a repo. deleteWorkers bounds concurrent duplicate
// deletes during dedup.
func NewRepository(store docstore.Store, deleteWorkers int) *Repository {
	if deleteWorkers <= 0 {
		deleteWorkers = 8
	}
	return &Repository{store: store, deleteWorkers: deleteWorkers}
}

// ListAttendance returns the deduplicated attendance set in creation order,
// plus the number of duplicates removed. Duplicate cleanup failure does not
// fail the read.
func (r *Repository) ListAttendance(ctx context.Context, filters ...docstore.Filter) ([]AttendanceRecord, int, error) {
	docs, err := r.store.List(ctx, CollectionAttendance, filters...)
	if err != nil {
		return nil, 0, err
	}
	recs := make([]AttendanceRecord, 0, len(docs))
	for _, doc := range docs {
		recs = append(recs, attendanceFromDoc(doc))
	}
	canonical, dupIDs := dedup(recs,
		AttendanceRecord.Key,
		func(a AttendanceRecord) string { return a.ID })
	r.purge(ctx, CollectionAttendance, dupIDs)
	return canonical, len(dupIDs), nil
}

// ListAttendanceForUser returns a single user's deduplicated swipes.
func (r *Repository) ListAttendanceForUser(ctx context.Context, userID string) ([]AttendanceRecord, int, error) {
	return r.ListAttendance(ctx, docstore.Filter{Field: "userId", Equals: userID})
}

// FindAttendance locates the record for a (user, event, date) key, or nil.
func (r *Repository) FindAttendance(ctx context.Context, userID, eventName, date string) (*AttendanceRecord, error) {
	docs, err := r.store.List(ctx, CollectionAttendance,
		docstore.Filter{Field: "userId", Equals: userID},
		docstore.Filter{Field: "eventName", Equals: eventName},
		docstore.Filter{Field: "date", Equals: date})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	rec := attendanceFromDoc(docs[0])
	return &rec, nil
}

// RecordAttendance persists a new swipe.
func (r *Repository) RecordAttendance(ctx context.Context, rec AttendanceRecord) (AttendanceRecord, error) {
	doc, err := r.store.Create(ctx, CollectionAttendance, rec.ID, rec.fields())
	if err != nil {
		return AttendanceRecord{}, err
	}
	rec.ID = doc.ID
	return rec, nil
}

// ListUsers returns the full user directory.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	docs, err := r.store.List(ctx, CollectionUsers)
	if err != nil {
		return nil, err
	}
	users := make([]User, 0, len(docs))
	for _, doc := range docs {
		users = append(users, userFromDoc(doc))
	}
	return users, nil
}

// GetUser returns one directory entry, or nil when the id is unknown.
func (r *Repository) GetUser(ctx context.Context, id string) (*User, error) {
	doc, err := r.store.Get(ctx, CollectionUsers, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	u := userFromDoc(doc)
	return &u, nil
}

// CreateUser registers a directory entry.
func (r *Repository) CreateUser(ctx context.Context, u User) (User, error) {
	doc, err := r.store.Create(ctx, CollectionUsers, u.ID, map[string]any{
		"studentId": u.StudentID,
		"name":      u.Name,
	})
	if err != nil {
		return User{}, err
	}
	u.ID = doc.ID
	return u, nil
}

// ListFines returns fines, collapsed to one per user. The reconciliation
// job's rebuild makes user-key duplicates impossible in steady state; the
// read-path dedup is a defensive check against interrupted runs.
func (r *Repository) ListFines(ctx context.Context) ([]FineRecord, error) {
	docs, err := r.store.List(ctx, CollectionFines)
	if err != nil {
		return nil, err
	}
	fines := make([]FineRecord, 0, len(docs))
	for _, doc := range docs {
		fines = append(fines, fineFromDoc(doc))
	}
	canonical, dupIDs := dedup(fines,
		func(f FineRecord) string { return f.UserID },
		func(f FineRecord) string { return f.ID })
	r.purge(ctx, CollectionFines, dupIDs)
	return canonical, nil
}

// ListFinesRaw returns every fine document without dedup, for the clear-phase
// verification re-list.
func (r *Repository) ListFinesRaw(ctx context.Context) ([]FineRecord, error) {
	docs, err := r.store.List(ctx, CollectionFines)
	if err != nil {
		return nil, err
	}
	fines := make([]FineRecord, 0, len(docs))
	for _, doc := range docs {
		fines = append(fines, fineFromDoc(doc))
	}
	return fines, nil
}

// CreateFine persists one reconciliation outcome.
func (r *Repository) CreateFine(ctx context.Context, f FineRecord) (FineRecord, error) {
	doc, err := r.store.Create(ctx, CollectionFines, f.ID, f.fields())
	if err != nil {
		return FineRecord{}, err
	}
	f.ID = doc.ID
	return f, nil
}

// DeleteFine removes one fine document.
func (r *Repository) DeleteFine(ctx context.Context, id string) error {
	return r.store.Delete(ctx, CollectionFines, id)
}

// ListEvents returns the event catalog.
func (r *Repository) ListEvents(ctx context.Context) ([]Event, error) {
	docs, err := r.store.List(ctx, CollectionEvents)
	if err != nil {
		return nil, err
	}
	events := make([]Event, 0, len(docs))
	for _, doc := range docs {
		events = append(events, eventFromDoc(doc))
	}
	return events, nil
}

// CreateEvent adds a catalog entry.
func (r *Repository) CreateEvent(ctx context.Context, e Event) (Event, error) {
	doc, err := r.store.Create(ctx, CollectionEvents, e.ID, e.fields())
	if err != nil {
		return Event{}, err
	}
	e.ID = doc.ID
	return e, nil
}

// CreateNotification records a delivered fine notice.
func (r *Repository) CreateNotification(ctx context.Context, n Notification) (Notification, error) {
	doc, err := r.store.Create(ctx, CollectionNotifications, n.ID, n.fields())
	if err != nil {
		return Notification{}, err
	}
	n.ID = doc.ID
	return n, nil
}

// ListNotifications returns delivered notices, optionally for one user.
func (r *Repository) ListNotifications(ctx context.Context, userID string) ([]Notification, error) {
	var filters []docstore.Filter
	if userID != "" {
		filters = append(filters, docstore.Filter{Field: "userId", Equals: userID})
	}
	docs, err := r.store.List(ctx, CollectionNotifications, filters...)
	if err != nil {
		return nil, err
	}
	notes := make([]Notification, 0, len(docs))
	for _, doc := range docs {
		notes = append(notes, notificationFromDoc(doc))
	}
	return notes, nil
}
