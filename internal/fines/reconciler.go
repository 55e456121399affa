package fines

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"rollcall/internal/metrics"
	"rollcall/internal/roster"
)

// ErrStoreNotCleared means the clear-phase verification found leftover fine
// records. Rebuilding on top of them would duplicate per-user fines, so the
// run aborts before any write.
var ErrStoreNotCleared = errors.New("fines: store not cleared, leftover records found")

// Summary is the partial-success report of one reconciliation run.
type Summary struct {
	Total             int      `json:"total"`
	Succeeded         int      `json:"succeeded"`
	Failed            int      `json:"failed"`
	FailedStudentIDs  []string `json:"failed_student_ids,omitempty"`
	DuplicatesRemoved int      `json:"duplicates_removed"`

	// Fines holds the records written this run, for notice publishing.
	Fines []roster.FineRecord `json:"-"`
}

// Reconciler rebuilds the fine collection from attendance: clear, verify
// empty, then write one fine per user. The clear-verify barrier is the only
// consistency mechanism the document store affords; readers may observe an
// empty fine collection mid-run.
type Reconciler struct {
	repo     *roster.Repository
	schedule Schedule
	workers  int
	retries  int
	backoff  time.Duration
	now      func() time.Time
}

// NewReconciler creates a job runner. workers bounds delete/write
// concurrency; transient store errors are retried with doubling backoff.
func NewReconciler(repo *roster.Repository, schedule Schedule, workers int) *Reconciler {
	if workers <= 0 {
		workers = 8
	}
	return &Reconciler{
		repo:     repo,
		schedule: schedule,
		workers:  workers,
		retries:  2,
		backoff:  200 * time.Millisecond,
		now:      time.Now,
	}
}

// Run executes one reconciliation against the given required-event total.
// Per-user write failures do not abort the run; they are reported in the
// summary. Clear-phase failures and cancellation are fatal.
func (r *Reconciler) Run(ctx context.Context, totalRequiredEvents int) (Summary, error) {
	if totalRequiredEvents <= 0 {
		return Summary{}, fmt.Errorf("fines: total required events must be positive, got %d", totalRequiredEvents)
	}
	start := r.now()
	summary, err := r.run(ctx, totalRequiredEvents)
	metrics.ReconcileDuration.Observe(r.now().Sub(start).Seconds())
	switch {
	case err != nil:
		metrics.ReconcileRunsTotal.WithLabelValues("failed").Inc()
	case summary.Failed > 0:
		metrics.ReconcileRunsTotal.WithLabelValues("partial").Inc()
	default:
		metrics.ReconcileRunsTotal.WithLabelValues("ok").Inc()
	}
	return summary, err
}

func (r *Reconciler) run(ctx context.Context, totalRequiredEvents int) (Summary, error) {
	if err := r.clear(ctx); err != nil {
		return Summary{}, err
	}

	// The store is now empty. From here on, an abort leaves no fines at
	// all, which operators must not read as everyone being cleared.
	attendance, removed, err := r.repo.ListAttendance(ctx)
	if err != nil {
		r.alarmEmptyStore(err)
		return Summary{}, fmt.Errorf("fines: list attendance: %w", err)
	}
	if removed > 0 {
		metrics.DuplicatesRemovedTotal.Add(float64(removed))
	}
	users, err := r.repo.ListUsers(ctx)
	if err != nil {
		r.alarmEmptyStore(err)
		return Summary{}, fmt.Errorf("fines: list users: %w", err)
	}

	presences := make(map[string]int, len(users))
	for _, rec := range attendance {
		presences[rec.UserID]++
	}

	dateIssued := r.now().UTC().Format(roster.DateLayout)
	summary := Summary{Total: len(users), DuplicatesRemoved: removed}

	sem := make(chan struct{}, r.workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, user := range users {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(user roster.User) {
			defer wg.Done()
			defer func() { <-sem }()

			// Derive once; retries re-send this exact payload.
			fine := r.derive(user, presences[user.ID], totalRequiredEvents, dateIssued)
			written := fine
			err := r.withRetry(ctx, func() error {
				var createErr error
				written, createErr = r.repo.CreateFine(ctx, fine)
				return createErr
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed++
				summary.FailedStudentIDs = append(summary.FailedStudentIDs, user.StudentID)
				metrics.FineWriteFailuresTotal.Inc()
				log.Printf("reconcile: fine write failed for user %s (student %s): %v", user.ID, user.StudentID, err)
				return
			}
			summary.Succeeded++
			summary.Fines = append(summary.Fines, written)
		}(user)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		r.alarmEmptyStore(err)
		return summary, fmt.Errorf("fines: run cancelled mid-rebuild: %w", err)
	}
	return summary, nil
}

// derive computes one user's fine. Over-attendance clamps to zero absences.
func (r *Reconciler) derive(user roster.User, presences, totalRequiredEvents int, dateIssued string) roster.FineRecord {
	absences := totalRequiredEvents - presences
	if absences < 0 {
		absences = 0
	}
	penalty := r.schedule.Lookup(absences)
	status := roster.FineStatusPending
	if penalty == NoPenalty {
		status = roster.FineStatusCleared
	}
	return roster.FineRecord{
		UserID:     user.ID,
		StudentID:  user.StudentID,
		Name:       user.Name,
		Absences:   absences,
		Presences:  presences,
		Penalties:  penalty,
		DateIssued: dateIssued,
		Status:     status,
	}
}

// clear deletes every fine record, then re-lists to verify the store is
// empty before the rebuild may begin.
func (r *Reconciler) clear(ctx context.Context) error {
	existing, err := r.repo.ListFinesRaw(ctx)
	if err != nil {
		return fmt.Errorf("fines: list for clear: %w", err)
	}
	sem := make(chan struct{}, r.workers)
	var wg sync.WaitGroup
	for _, fine := range existing {
		wg.Add(1)
		sem <- struct{}{}
		go func(id string) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := r.withRetry(ctx, func() error { return r.repo.DeleteFine(ctx, id) }); err != nil {
				log.Printf("reconcile: clear delete failed for fine %s: %v", id, err)
			}
		}(fine.ID)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}

	leftover, err := r.repo.ListFinesRaw(ctx)
	if err != nil {
		return fmt.Errorf("fines: verify clear: %w", err)
	}
	if len(leftover) > 0 {
		return fmt.Errorf("%w: %d record(s) remain", ErrStoreNotCleared, len(leftover))
	}
	return nil
}

// withRetry re-attempts op on error with doubling backoff. The payload is
// fixed by the caller so a retry never re-derives values.
func (r *Reconciler) withRetry(ctx context.Context, op func() error) error {
	backoff := r.backoff
	var err error
	for attempt := 0; attempt <= r.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		if err = op(); err == nil {
			return nil
		}
	}
	return err
}

func (r *Reconciler) alarmEmptyStore(cause error) {
	metrics.FineStoreLeftEmpty.Inc()
	log.Printf("ALARM reconcile: fine store cleared but not rebuilt (%v); empty store does not mean all fines cleared", cause)
}
