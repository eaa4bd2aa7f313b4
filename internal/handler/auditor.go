package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ballotbox/ballotbox/internal/handler/dto"
	"github.com/ballotbox/ballotbox/internal/service"
)

// AuditorHandler serves the auditor read surface: the scoped live tally
// and the audit trail.
type AuditorHandler struct {
	results *service.ResultsService
	trail   *service.AuditTrailService
	logger  *slog.Logger
}

// NewAuditorHandler creates a new AuditorHandler.
func NewAuditorHandler(results *service.ResultsService, trail *service.AuditTrailService, logger *slog.Logger) *AuditorHandler {
	return &AuditorHandler{
		results: results,
		trail:   trail,
		logger:  logger,
	}
}

// OngoingResults handles GET /api/v1/auditor/results/live.
// Unlike the voter-facing tally, this one is scoped to the election
// whose window contains the current instant.
func (h *AuditorHandler) OngoingResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.results.OngoingResults(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, results)
}

// AuditLogs handles GET /api/v1/audit-logs.
// Query parameters: q, action, status, cursor, limit.
func (h *AuditorHandler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := 0
	if l := query.Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be an integer")
			return
		}
		limit = parsed
	}

	input := service.SearchAuditInput{
		Query:  query.Get("q"),
		Action: query.Get("action"),
		Status: query.Get("status"),
		Cursor: query.Get("cursor"),
		Limit:  limit,
	}

	page, err := h.trail.Search(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToAuditLogListResponse(page.Events, page.NextCursor, page.HasMore))
}

// handleServiceError maps service errors to HTTP responses.
func (h *AuditorHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNoOngoingElection):
		h.writeError(w, http.StatusNotFound, "NO_ONGOING_ELECTION", "No ongoing election found")
	case errors.Is(err, service.ErrUnknownAuditAction):
		h.writeError(w, http.StatusBadRequest, "UNKNOWN_ACTION", "Unknown audit action")
	case errors.Is(err, service.ErrInvalidAuditStatus):
		h.writeError(w, http.StatusBadRequest, "INVALID_STATUS", "Status must be success or failed")
	case errors.Is(err, service.ErrInvalidCursor):
		h.writeError(w, http.StatusBadRequest, "INVALID_CURSOR", "Invalid pagination cursor")
	default:
		h.logger.Error("internal_error", "error", err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// writeError writes an error response.
func (h *AuditorHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
