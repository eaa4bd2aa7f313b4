package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	Logins               map[string]uint64
	AuthCacheHits        uint64
	AuthCacheMisses      uint64
	Registrations        uint64
	VotesAccepted        uint64
	VotesRejected        map[string]uint64
	TallyDurationCount   uint64
	TallyDurationTotalNs int64
	ElectionsCreated     uint64
	ElectionsUpdated     uint64
	CandidatesAdded      uint64
	AuditPublished       map[string]uint64
	AuditProcessed       map[string]uint64
	AuditBatchCount      uint64
	AuditBatchTotalSize  uint64
	AuditBatchTotalNs    int64
	AuditQueueDepth      int64
	AuditIngestLagNs     int64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	authCacheHits        uint64
	authCacheMisses      uint64
	registrations        uint64
	votesAccepted        uint64
	tallyDurationCount   uint64
	tallyDurationTotalNs int64
	electionsCreated     uint64
	electionsUpdated     uint64
	candidatesAdded      uint64
	auditBatchCount      uint64
	auditBatchTotalSize  uint64
	auditBatchTotalNs    int64
	auditQueueDepth      int64
	auditIngestLagNs     int64

	mu             sync.Mutex
	logins         map[string]uint64
	votesRejected  map[string]uint64
	auditPublished map[string]uint64
	auditProcessed map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		logins:         make(map[string]uint64),
		votesRejected:  make(map[string]uint64),
		auditPublished: make(map[string]uint64),
		auditProcessed: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		Logins:               copyCounts(m.logins),
		AuthCacheHits:        atomic.LoadUint64(&m.authCacheHits),
		AuthCacheMisses:      atomic.LoadUint64(&m.authCacheMisses),
		Registrations:        atomic.LoadUint64(&m.registrations),
		VotesAccepted:        atomic.LoadUint64(&m.votesAccepted),
		VotesRejected:        copyCounts(m.votesRejected),
		TallyDurationCount:   atomic.LoadUint64(&m.tallyDurationCount),
		TallyDurationTotalNs: atomic.LoadInt64(&m.tallyDurationTotalNs),
		ElectionsCreated:     atomic.LoadUint64(&m.electionsCreated),
		ElectionsUpdated:     atomic.LoadUint64(&m.electionsUpdated),
		CandidatesAdded:      atomic.LoadUint64(&m.candidatesAdded),
		AuditPublished:       copyCounts(m.auditPublished),
		AuditProcessed:       copyCounts(m.auditProcessed),
		AuditBatchCount:      atomic.LoadUint64(&m.auditBatchCount),
		AuditBatchTotalSize:  atomic.LoadUint64(&m.auditBatchTotalSize),
		AuditBatchTotalNs:    atomic.LoadInt64(&m.auditBatchTotalNs),
		AuditQueueDepth:      atomic.LoadInt64(&m.auditQueueDepth),
		AuditIngestLagNs:     atomic.LoadInt64(&m.auditIngestLagNs),
	}
}

func copyCounts(src map[string]uint64) map[string]uint64 {
	dst := make(map[string]uint64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// IncLogin increments the login counter for an outcome.
func (m *InMemoryRecorder) IncLogin(outcome string) {
	m.mu.Lock()
	m.logins[outcome]++
	m.mu.Unlock()
}

// IncAuthCacheHit increments the auth cache hit counter.
func (m *InMemoryRecorder) IncAuthCacheHit() {
	atomic.AddUint64(&m.authCacheHits, 1)
}

// IncAuthCacheMiss increments the auth cache miss counter.
func (m *InMemoryRecorder) IncAuthCacheMiss() {
	atomic.AddUint64(&m.authCacheMisses, 1)
}

// IncRegistration increments the registration counter.
func (m *InMemoryRecorder) IncRegistration() {
	atomic.AddUint64(&m.registrations, 1)
}

// IncVoteAccepted increments the accepted ballot counter.
func (m *InMemoryRecorder) IncVoteAccepted() {
	atomic.AddUint64(&m.votesAccepted, 1)
}

// IncVoteRejected increments the rejected ballot counter for a reason.
func (m *InMemoryRecorder) IncVoteRejected(reason string) {
	m.mu.Lock()
	m.votesRejected[reason]++
	m.mu.Unlock()
}

// ObserveTallyDuration records a tally computation duration.
func (m *InMemoryRecorder) ObserveTallyDuration(duration time.Duration) {
	atomic.AddUint64(&m.tallyDurationCount, 1)
	atomic.AddInt64(&m.tallyDurationTotalNs, duration.Nanoseconds())
}

// IncElectionCreated increments the election created counter.
func (m *InMemoryRecorder) IncElectionCreated() {
	atomic.AddUint64(&m.electionsCreated, 1)
}

// IncElectionUpdated increments the election updated counter.
func (m *InMemoryRecorder) IncElectionUpdated() {
	atomic.AddUint64(&m.electionsUpdated, 1)
}

// IncCandidateAdded increments the candidate added counter.
func (m *InMemoryRecorder) IncCandidateAdded() {
	atomic.AddUint64(&m.candidatesAdded, 1)
}

// IncAuditEventPublished increments the publish counter for a status.
func (m *InMemoryRecorder) IncAuditEventPublished(status string) {
	m.mu.Lock()
	m.auditPublished[status]++
	m.mu.Unlock()
}

// IncAuditEventProcessed increments the processed counter for a status.
func (m *InMemoryRecorder) IncAuditEventProcessed(status string) {
	m.mu.Lock()
	m.auditProcessed[status]++
	m.mu.Unlock()
}

// ObserveAuditBatchSize records a consumed batch size.
func (m *InMemoryRecorder) ObserveAuditBatchSize(size int) {
	atomic.AddUint64(&m.auditBatchCount, 1)
	atomic.AddUint64(&m.auditBatchTotalSize, uint64(size))
}

// ObserveAuditBatchDuration records a batch processing duration.
func (m *InMemoryRecorder) ObserveAuditBatchDuration(duration time.Duration) {
	atomic.AddInt64(&m.auditBatchTotalNs, duration.Nanoseconds())
}

// SetAuditQueueDepth records the stream backlog depth.
func (m *InMemoryRecorder) SetAuditQueueDepth(depth int64) {
	atomic.StoreInt64(&m.auditQueueDepth, depth)
}

// ObserveAuditIngestLag records the publish-to-process lag.
func (m *InMemoryRecorder) ObserveAuditIngestLag(lag time.Duration) {
	atomic.StoreInt64(&m.auditIngestLagNs, lag.Nanoseconds())
}
