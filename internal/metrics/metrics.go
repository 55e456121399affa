// Package metrics registers the service's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CheckinsTotal counts recorded swipes, labelled by outcome.
	CheckinsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rollcall_checkins_total",
		Help: "Attendance swipes recorded, by outcome (created, duplicate).",
	}, []string{"outcome"})

	// ReconcileRunsTotal counts reconciliation runs, labelled by result.
	ReconcileRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rollcall_reconcile_runs_total",
		Help: "Reconciliation runs, by result (ok, partial, failed).",
	}, []string{"result"})

	// ReconcileDuration observes wall-clock seconds per run.
	ReconcileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rollcall_reconcile_duration_seconds",
		Help:    "Wall-clock duration of reconciliation runs.",
		Buckets: prometheus.DefBuckets,
	})

	// DuplicatesRemovedTotal counts records deleted by the dedup pass.
	DuplicatesRemovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rollcall_duplicates_removed_total",
		Help: "Duplicate attendance records removed on read.",
	})

	// FineWriteFailuresTotal counts per-user fine writes that exhausted retries.
	FineWriteFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rollcall_fine_write_failures_total",
		Help: "Per-user fine writes that failed after retries.",
	})

	// FineStoreLeftEmpty flags runs cancelled between clear and rebuild.
	// A non-zero value means the fine store is empty for operational, not
	// business, reasons and must not be read as everyone cleared.
	FineStoreLeftEmpty = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rollcall_fine_store_left_empty_total",
		Help: "Runs aborted after the clear phase with no rebuild.",
	})

	// NoticesPublishedTotal counts fine notices handed to the queue.
	NoticesPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rollcall_notices_published_total",
		Help: "Fine notices published to the notification queue.",
	})
)
