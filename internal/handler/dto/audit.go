package dto

import (
	"time"

	"github.com/ballotbox/ballotbox/internal/model"
)

// AuditLogResponse represents one audit trail entry.
type AuditLogResponse struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	UserEmail string    `json:"user_email"`
	Action    string    `json:"action"`
	Status    string    `json:"status"`
	Details   string    `json:"details,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

// AuditLogListResponse is one page of the audit trail, newest first.
type AuditLogListResponse struct {
	Data       []*AuditLogResponse `json:"data"`
	Pagination *Pagination         `json:"pagination"`
}

// ToAuditLogResponse converts an AuditEvent model to AuditLogResponse DTO.
func ToAuditLogResponse(event *model.AuditEvent) *AuditLogResponse {
	return &AuditLogResponse{
		ID:        event.ID,
		Timestamp: event.OccurredAt,
		UserEmail: event.UserEmail,
		Action:    event.Action,
		Status:    event.Status,
		Details:   event.Details,
		RequestID: event.RequestID,
	}
}

// ToAuditLogListResponse assembles one page of audit trail results.
func ToAuditLogListResponse(events []*model.AuditEvent, nextCursor string, hasMore bool) *AuditLogListResponse {
	data := make([]*AuditLogResponse, 0, len(events))
	for _, e := range events {
		data = append(data, ToAuditLogResponse(e))
	}
	return &AuditLogListResponse{
		Data: data,
		Pagination: &Pagination{
			NextCursor: nextCursor,
			HasMore:    hasMore,
		},
	}
}
