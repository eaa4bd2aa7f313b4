// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Authentication metrics
	IncLogin(outcome string) // outcome: "success" or "failed"
	IncAuthCacheHit()
	IncAuthCacheMiss()
	IncRegistration()

	// Ballot metrics
	IncVoteAccepted()
	IncVoteRejected(reason string) // reason: "window", "duplicate", "candidate", "role"
	ObserveTallyDuration(duration time.Duration)

	// Election management metrics
	IncElectionCreated()
	IncElectionUpdated()
	IncCandidateAdded()

	// Audit pipeline metrics
	IncAuditEventPublished(status string) // status: "success", "fallback", "dropped"
	IncAuditEventProcessed(status string) // status: "success", "failed", "dead_lettered"
	ObserveAuditBatchSize(size int)
	ObserveAuditBatchDuration(duration time.Duration)
	SetAuditQueueDepth(depth int64)
	ObserveAuditIngestLag(lag time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
