package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncLogin is a no-op.
func (n *NoopRecorder) IncLogin(outcome string) {}

// IncAuthCacheHit is a no-op.
func (n *NoopRecorder) IncAuthCacheHit() {}

// IncAuthCacheMiss is a no-op.
func (n *NoopRecorder) IncAuthCacheMiss() {}

// IncRegistration is a no-op.
func (n *NoopRecorder) IncRegistration() {}

// IncVoteAccepted is a no-op.
func (n *NoopRecorder) IncVoteAccepted() {}

// IncVoteRejected is a no-op.
func (n *NoopRecorder) IncVoteRejected(reason string) {}

// ObserveTallyDuration is a no-op.
func (n *NoopRecorder) ObserveTallyDuration(duration time.Duration) {}

// IncElectionCreated is a no-op.
func (n *NoopRecorder) IncElectionCreated() {}

// IncElectionUpdated is a no-op.
func (n *NoopRecorder) IncElectionUpdated() {}

// IncCandidateAdded is a no-op.
func (n *NoopRecorder) IncCandidateAdded() {}

// IncAuditEventPublished is a no-op.
func (n *NoopRecorder) IncAuditEventPublished(status string) {}

// IncAuditEventProcessed is a no-op.
func (n *NoopRecorder) IncAuditEventProcessed(status string) {}

// ObserveAuditBatchSize is a no-op.
func (n *NoopRecorder) ObserveAuditBatchSize(size int) {}

// ObserveAuditBatchDuration is a no-op.
func (n *NoopRecorder) ObserveAuditBatchDuration(duration time.Duration) {}

// SetAuditQueueDepth is a no-op.
func (n *NoopRecorder) SetAuditQueueDepth(depth int64) {}

// ObserveAuditIngestLag is a no-op.
func (n *NoopRecorder) ObserveAuditIngestLag(lag time.Duration) {}
