package model

import "time"

// Audit action names. The vocabulary is closed so the trail stays
// searchable; new actions are added here, never inlined.
const (
	ActionLogin               = "Login"
	ActionUserRegistration    = "User Registration"
	ActionSubmitVote          = "Submit Vote"
	ActionCreateElection      = "Create Election"
	ActionUpdateElection      = "Update Election"
	ActionAddCandidate        = "Add Candidate"
	ActionCreateAuditor       = "Create Auditor"
	ActionDeleteAuditor       = "Delete Auditor"
	ActionCreateAdmin         = "Create Admin"
	ActionDeleteAdmin         = "Delete Admin"
	ActionBootstrapSuperadmin = "Bootstrap Superadmin"
)

// Audit outcome values.
const (
	AuditStatusSuccess = "success"
	AuditStatusFailed  = "failed"
)

// AuditEvent is one append-only record of a mutation or a failed login.
type AuditEvent struct {
	ID string `json:"id"` // ULID, assigned at publish time (dedup key)

	// Actor. UserID is empty for failed logins; UserEmail then carries
	// the attempted identifier.
	UserID    string `json:"user_id,omitempty"`
	UserEmail string `json:"user_email"`

	Action  string `json:"action"`
	Status  string `json:"status"`
	Details string `json:"details,omitempty"`

	// Request correlation
	RequestID string `json:"request_id,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"` // DB insertion time
}
