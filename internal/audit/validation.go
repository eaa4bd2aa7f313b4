// Package audit provides append-only audit trail capture and processing.
package audit

import (
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/ballotbox/ballotbox/internal/model"
)

const (
	maxEmailLength     = 254
	maxRequestIDLength = 64
)

// knownActions is the closed vocabulary of audit actions.
var knownActions = map[string]struct{}{
	model.ActionLogin:               {},
	model.ActionUserRegistration:    {},
	model.ActionSubmitVote:          {},
	model.ActionCreateElection:      {},
	model.ActionUpdateElection:      {},
	model.ActionAddCandidate:        {},
	model.ActionCreateAuditor:       {},
	model.ActionDeleteAuditor:       {},
	model.ActionCreateAdmin:         {},
	model.ActionDeleteAdmin:         {},
	model.ActionBootstrapSuperadmin: {},
}

// KnownAction reports whether action belongs to the audit vocabulary.
func KnownAction(action string) bool {
	_, ok := knownActions[action]
	return ok
}

// ValidateEventPayload validates audit event payload fields.
func ValidateEventPayload(payload EventPayload) error {
	if payload.EventID == "" {
		return fmt.Errorf("event_id is required")
	}
	if _, err := ulid.ParseStrict(payload.EventID); err != nil {
		return fmt.Errorf("event_id must be a ULID")
	}
	if payload.UserEmail == "" {
		return fmt.Errorf("user_email is required")
	}
	if len(payload.UserEmail) > maxEmailLength {
		return fmt.Errorf("user_email too long")
	}
	if !KnownAction(payload.Action) {
		return fmt.Errorf("unknown action %q", payload.Action)
	}
	if payload.Status != model.AuditStatusSuccess && payload.Status != model.AuditStatusFailed {
		return fmt.Errorf("status must be %q or %q", model.AuditStatusSuccess, model.AuditStatusFailed)
	}
	if payload.OccurredAt <= 0 {
		return fmt.Errorf("occurred_at must be set")
	}
	if len(payload.Details) > MaxDetailsLength {
		return fmt.Errorf("details too long")
	}
	if len(payload.RequestID) > maxRequestIDLength {
		return fmt.Errorf("request_id too long")
	}
	return nil
}
