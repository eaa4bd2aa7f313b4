package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ballotbox/ballotbox/internal/auth"
	"github.com/ballotbox/ballotbox/internal/handler/dto"
	"github.com/ballotbox/ballotbox/internal/middleware"
	"github.com/ballotbox/ballotbox/internal/service"
)

// maxMultipartMemory bounds the in-memory portion of a candidate
// upload; the rest spills to temp files.
const maxMultipartMemory = 4 << 20

// AdminHandler handles election and candidate management.
type AdminHandler struct {
	elections *service.ElectionService
	results   *service.ResultsService
	logger    *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(elections *service.ElectionService, results *service.ResultsService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		elections: elections,
		results:   results,
		logger:    logger,
	}
}

// Overview handles GET /api/v1/admin/overview.
// Headline stats plus the full per-candidate tally.
func (h *AdminHandler) Overview(w http.ResponseWriter, r *http.Request) {
	stats, err := h.results.Overview(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	live, err := h.results.Live(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.OverviewResponse{
		Stats:   stats,
		Results: live.Candidates,
	})
}

// ListElections handles GET /api/v1/admin/elections.
func (h *AdminHandler) ListElections(w http.ResponseWriter, r *http.Request) {
	elections, err := h.elections.ListElections(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	now := time.Now()
	data := make([]*dto.ElectionResponse, 0, len(elections))
	for _, e := range elections {
		candidates, err := h.elections.ListCandidates(r.Context(), e.ID)
		if err != nil {
			h.handleServiceError(w, err)
			return
		}
		data = append(data, dto.ToElectionResponse(e, candidates, now))
	}

	writeJSON(w, http.StatusOK, dto.ElectionListResponse{Data: data, Total: len(data)})
}

// CreateElection handles POST /api/v1/admin/elections.
func (h *AdminHandler) CreateElection(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateElectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if err := middleware.ValidateElectionTitle(req.Title); err != nil {
		h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	actor := auth.MustAuthFromContext(r.Context())
	input := service.CreateElectionInput{
		Title:      req.Title,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		ActorID:    actor.UserID,
		ActorEmail: actor.Email,
		RequestID:  middleware.GetRequestID(r.Context()),
	}

	election, err := h.elections.CreateElection(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("election_created",
		"election_id", election.ID,
		"title", election.Title,
	)

	writeJSON(w, http.StatusCreated, dto.ToElectionResponse(election, nil, time.Now()))
}

// GetElection handles GET /api/v1/admin/elections/{id}.
func (h *AdminHandler) GetElection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	election, err := h.elections.GetElection(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	candidates, err := h.elections.ListCandidates(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToElectionResponse(election, candidates, time.Now()))
}

// UpdateElection handles PUT /api/v1/admin/elections/{id}.
// Absent body fields are left unchanged.
func (h *AdminHandler) UpdateElection(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateElectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if req.Title != nil {
		if err := middleware.ValidateElectionTitle(*req.Title); err != nil {
			h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			return
		}
	}

	actor := auth.MustAuthFromContext(r.Context())
	input := service.UpdateElectionInput{
		ID:         chi.URLParam(r, "id"),
		Title:      req.Title,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		ActorID:    actor.UserID,
		ActorEmail: actor.Email,
		RequestID:  middleware.GetRequestID(r.Context()),
	}

	election, err := h.elections.UpdateElection(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("election_updated", "election_id", election.ID)

	candidates, err := h.elections.ListCandidates(r.Context(), election.ID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToElectionResponse(election, candidates, time.Now()))
}

// AddCandidate handles POST /api/v1/admin/elections/{id}/candidates.
// Multipart form: name, position, optional level, manifesto, and photo.
func (h *AdminHandler) AddCandidate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
			return
		}
		h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Expected multipart form data")
		return
	}

	name := r.FormValue("name")
	position := r.FormValue("position")
	level := r.FormValue("level")
	manifesto := r.FormValue("manifesto")

	if err := middleware.ValidateName(name); err != nil {
		h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if err := middleware.ValidatePosition(position); err != nil {
		h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if err := middleware.ValidateLevel(level); err != nil {
		h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	actor := auth.MustAuthFromContext(r.Context())
	input := service.AddCandidateInput{
		ElectionID: chi.URLParam(r, "id"),
		Name:       name,
		Level:      level,
		Position:   position,
		Manifesto:  manifesto,
		ActorID:    actor.UserID,
		ActorEmail: actor.Email,
		RequestID:  middleware.GetRequestID(r.Context()),
	}

	photo, header, err := r.FormFile("photo")
	switch {
	case err == nil:
		defer photo.Close()
		input.Photo = photo
		input.PhotoName = header.Filename
	case errors.Is(err, http.ErrMissingFile):
		// Photo is optional.
	default:
		h.writeError(w, http.StatusBadRequest, "INVALID_PHOTO", "Could not read photo upload")
		return
	}

	candidate, err := h.elections.AddCandidate(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("candidate_added",
		"candidate_id", candidate.ID,
		"election_id", candidate.ElectionID,
		"position", candidate.Position,
	)

	writeJSON(w, http.StatusCreated, dto.ToCandidateResponse(candidate))
}

// handleServiceError maps service errors to HTTP responses.
func (h *AdminHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrElectionNotFound):
		h.writeError(w, http.StatusNotFound, "ELECTION_NOT_FOUND", "Election not found")
	case errors.Is(err, service.ErrInvalidWindow):
		h.writeError(w, http.StatusBadRequest, "INVALID_WINDOW", "End date must be after start date")
	case errors.Is(err, service.ErrInvalidPhoto):
		h.writeError(w, http.StatusBadRequest, "INVALID_PHOTO", "Photo must be a JPEG, PNG, or WebP image")
	case errors.Is(err, service.ErrPhotoTooLarge):
		h.writeError(w, http.StatusRequestEntityTooLarge, "PHOTO_TOO_LARGE", "Candidate photo exceeds the size limit")
	default:
		h.logger.Error("internal_error", "error", err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// writeError writes an error response.
func (h *AdminHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
