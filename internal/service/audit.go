package service

import (
	"context"
	"errors"

	"github.com/ballotbox/ballotbox/internal/audit"
	"github.com/ballotbox/ballotbox/internal/model"
	"github.com/ballotbox/ballotbox/internal/repository"
)

// Audit trail errors.
var (
	ErrUnknownAuditAction = errors.New("unknown audit action")
	ErrInvalidAuditStatus = errors.New("status must be success or failed")
	ErrInvalidCursor      = errors.New("invalid pagination cursor")
)

const (
	defaultAuditPageSize = 50
	maxAuditPageSize     = 200
)

// AuditTrailService searches the append-only audit trail.
// There is deliberately no write path here; entries come in through the
// audit pipeline only.
type AuditTrailService struct {
	events *repository.AuditEventRepository
}

// NewAuditTrailService creates a new AuditTrailService.
func NewAuditTrailService(events *repository.AuditEventRepository) *AuditTrailService {
	return &AuditTrailService{events: events}
}

// SearchAuditInput defines audit trail search filters.
type SearchAuditInput struct {
	// Query matches a case-insensitive substring of the details text.
	Query  string
	Action string
	Status string
	Cursor string
	Limit  int
}

// SearchAuditOutput is one page of audit trail results, newest first.
type SearchAuditOutput struct {
	Events     []*model.AuditEvent
	NextCursor string
	HasMore    bool
}

// Search retrieves a filtered page of the audit trail.
func (s *AuditTrailService) Search(ctx context.Context, input SearchAuditInput) (*SearchAuditOutput, error) {
	if input.Action != "" && !audit.KnownAction(input.Action) {
		return nil, ErrUnknownAuditAction
	}
	switch input.Status {
	case "", model.AuditStatusSuccess, model.AuditStatusFailed:
	default:
		return nil, ErrInvalidAuditStatus
	}

	limit := input.Limit
	if limit <= 0 || limit > maxAuditPageSize {
		limit = defaultAuditPageSize
	}

	filter := repository.AuditSearchFilter{
		Query:  input.Query,
		Action: input.Action,
		Status: input.Status,
	}

	events, nextCursor, err := s.events.Search(ctx, filter, input.Cursor, limit)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCursor) {
			return nil, ErrInvalidCursor
		}
		return nil, err
	}

	return &SearchAuditOutput{
		Events:     events,
		NextCursor: nextCursor,
		HasMore:    nextCursor != "",
	}, nil
}

// CountEvents returns the total number of audit records.
func (s *AuditTrailService) CountEvents(ctx context.Context) (int64, error) {
	return s.events.CountEvents(ctx)
}
