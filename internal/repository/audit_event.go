package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ballotbox/ballotbox/internal/model"
)

// AuditEventRepository provides database access for audit events.
type AuditEventRepository struct {
	repo *Repository
}

// NewAuditEventRepository creates a new AuditEventRepository.
func NewAuditEventRepository(repo *Repository) *AuditEventRepository {
	return &AuditEventRepository{repo: repo}
}

const auditEventColumns = `id, user_id, user_email, action, status, details, request_id, occurred_at, created_at`

const insertAuditEventQuery = `
	INSERT INTO audit_events (
		id, user_id, user_email, action, status, details, request_id, occurred_at, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	ON CONFLICT (id) DO NOTHING
`

// BulkInsert inserts multiple audit events with idempotency via ON CONFLICT DO NOTHING.
// Stream redeliveries carry the same event IDs, so replays are harmless.
func (r *AuditEventRepository) BulkInsert(ctx context.Context, events []*model.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}

	for _, event := range events {
		batch.Queue(insertAuditEventQuery,
			event.ID,
			nullableValue(event.UserID),
			event.UserEmail,
			event.Action,
			event.Status,
			nullableValue(event.Details),
			nullableValue(event.RequestID),
			event.OccurredAt,
		)
	}

	results := r.repo.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(events); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch insert event %d: %w", i, err)
		}
	}

	return nil
}

// Insert writes a single audit event. This is the synchronous fallback
// used when the stream publisher cannot reach Redis; the trail must
// survive a cache outage.
func (r *AuditEventRepository) Insert(ctx context.Context, event *model.AuditEvent) error {
	_, err := r.repo.pool.Exec(ctx, insertAuditEventQuery,
		event.ID,
		nullableValue(event.UserID),
		event.UserEmail,
		event.Action,
		event.Status,
		nullableValue(event.Details),
		nullableValue(event.RequestID),
		event.OccurredAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}

	return nil
}

// AuditSearchFilter defines filters for searching the audit trail.
type AuditSearchFilter struct {
	// Query matches a case-insensitive substring of the details text.
	Query  string
	Action string
	Status string
}

// Search retrieves a paginated page of audit events, newest first.
func (r *AuditEventRepository) Search(ctx context.Context, filter AuditSearchFilter, cursor string, limit int) ([]*model.AuditEvent, string, error) {
	// Decode cursor if provided
	var cursorData *PaginationCursor
	if cursor != "" {
		var err error
		cursorData, err = decodeCursor(cursor)
		if err != nil {
			return nil, "", ErrInvalidCursor
		}
	}

	query := `
		SELECT ` + auditEventColumns + `
		FROM audit_events
		WHERE 1 = 1
	`
	args := []any{}
	argIndex := 1

	if filter.Query != "" {
		query += fmt.Sprintf(" AND details ILIKE $%d", argIndex)
		args = append(args, "%"+filter.Query+"%")
		argIndex++
	}

	if filter.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", argIndex)
		args = append(args, filter.Action)
		argIndex++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, filter.Status)
		argIndex++
	}

	if cursorData != nil {
		query += fmt.Sprintf(" AND (occurred_at, id) < ($%d, $%d)", argIndex, argIndex+1)
		args = append(args, cursorData.OccurredAt, cursorData.ID)
		argIndex += 2
	}

	query += fmt.Sprintf(" ORDER BY occurred_at DESC, id DESC LIMIT $%d", argIndex)
	args = append(args, limit+1) // Fetch one extra to determine hasMore

	rows, err := r.repo.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to search audit events: %w", err)
	}
	defer rows.Close()

	var events []*model.AuditEvent
	for rows.Next() {
		event, err := scanAuditEvent(rows)
		if err != nil {
			return nil, "", fmt.Errorf("failed to scan audit event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("error iterating audit events: %w", err)
	}

	// Determine if there are more results
	var nextCursor string
	if len(events) > limit {
		events = events[:limit] // Remove extra row
		lastEvent := events[len(events)-1]
		nextCursor = encodeCursor(&PaginationCursor{
			ID:         lastEvent.ID,
			OccurredAt: lastEvent.OccurredAt,
		})
	}

	return events, nextCursor, nil
}

// CountEvents counts the stored audit trail. Used by readiness reporting
// and the worker's lag metric.
func (r *AuditEventRepository) CountEvents(ctx context.Context) (int64, error) {
	query := `SELECT COUNT(*) FROM audit_events`

	var count int64
	if err := r.repo.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count audit events: %w", err)
	}

	return count, nil
}

// scanAuditEvent scans a row from pgx.Rows into an AuditEvent model.
func scanAuditEvent(rows pgx.Rows) (*model.AuditEvent, error) {
	var event model.AuditEvent
	var userID, details, requestID *string

	err := rows.Scan(
		&event.ID,
		&userID,
		&event.UserEmail,
		&event.Action,
		&event.Status,
		&details,
		&requestID,
		&event.OccurredAt,
		&event.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if userID != nil {
		event.UserID = *userID
	}
	if details != nil {
		event.Details = *details
	}
	if requestID != nil {
		event.RequestID = *requestID
	}

	return &event, nil
}

// nullableValue returns nil for empty strings, for nullable text columns.
func nullableValue(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
