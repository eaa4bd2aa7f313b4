package handler

import (
	"fmt"
	"net/http"

	"github.com/ballotbox/ballotbox/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "ballotbox_logins_total{outcome=\"success\"} %d\n", snap.Logins["success"])
	writeMetric(w, "ballotbox_logins_total{outcome=\"failed\"} %d\n", snap.Logins["failed"])
	writeMetric(w, "ballotbox_registrations_total %d\n", snap.Registrations)
	writeMetric(w, "ballotbox_auth_cache_hits_total %d\n", snap.AuthCacheHits)
	writeMetric(w, "ballotbox_auth_cache_misses_total %d\n", snap.AuthCacheMisses)

	writeMetric(w, "ballotbox_votes_accepted_total %d\n", snap.VotesAccepted)
	writeMetric(w, "ballotbox_votes_rejected_total{reason=\"window\"} %d\n", snap.VotesRejected["window"])
	writeMetric(w, "ballotbox_votes_rejected_total{reason=\"duplicate\"} %d\n", snap.VotesRejected["duplicate"])
	writeMetric(w, "ballotbox_votes_rejected_total{reason=\"candidate\"} %d\n", snap.VotesRejected["candidate"])
	writeMetric(w, "ballotbox_votes_rejected_total{reason=\"role\"} %d\n", snap.VotesRejected["role"])
	writeMetric(w, "ballotbox_tally_duration_seconds_count %d\n", snap.TallyDurationCount)
	writeMetric(w, "ballotbox_tally_duration_seconds_sum %.6f\n", float64(snap.TallyDurationTotalNs)/1e9)

	writeMetric(w, "ballotbox_elections_created_total %d\n", snap.ElectionsCreated)
	writeMetric(w, "ballotbox_elections_updated_total %d\n", snap.ElectionsUpdated)
	writeMetric(w, "ballotbox_candidates_added_total %d\n", snap.CandidatesAdded)

	writeMetric(w, "ballotbox_audit_events_published_total{status=\"success\"} %d\n", snap.AuditPublished["success"])
	writeMetric(w, "ballotbox_audit_events_published_total{status=\"fallback\"} %d\n", snap.AuditPublished["fallback"])
	writeMetric(w, "ballotbox_audit_events_published_total{status=\"dropped\"} %d\n", snap.AuditPublished["dropped"])

	writeMetric(w, "ballotbox_audit_events_processed_total{status=\"success\"} %d\n", snap.AuditProcessed["success"])
	writeMetric(w, "ballotbox_audit_events_processed_total{status=\"failed\"} %d\n", snap.AuditProcessed["failed"])
	writeMetric(w, "ballotbox_audit_events_processed_total{status=\"dead_lettered\"} %d\n", snap.AuditProcessed["dead_lettered"])

	writeMetric(w, "ballotbox_audit_batches_total %d\n", snap.AuditBatchCount)
	writeMetric(w, "ballotbox_audit_batch_events_total %d\n", snap.AuditBatchTotalSize)
	writeMetric(w, "ballotbox_audit_batch_duration_seconds_count %d\n", snap.AuditBatchCount)
	writeMetric(w, "ballotbox_audit_batch_duration_seconds_sum %.6f\n", float64(snap.AuditBatchTotalNs)/1e9)
	writeMetric(w, "ballotbox_audit_queue_depth %d\n", snap.AuditQueueDepth)
	writeMetric(w, "ballotbox_audit_ingest_lag_seconds %.6f\n", float64(snap.AuditIngestLagNs)/1e9)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
