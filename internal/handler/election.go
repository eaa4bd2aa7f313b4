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

// ElectionHandler handles the voter-facing election endpoints.
type ElectionHandler struct {
	elections *service.ElectionService
	votes     *service.VoteService
	results   *service.ResultsService
	logger    *slog.Logger
}

// NewElectionHandler creates a new ElectionHandler.
func NewElectionHandler(elections *service.ElectionService, votes *service.VoteService, results *service.ResultsService, logger *slog.Logger) *ElectionHandler {
	return &ElectionHandler{
		elections: elections,
		votes:     votes,
		results:   results,
		logger:    logger,
	}
}

// Current handles GET /api/v1/elections/current.
// Returns the earliest election that has not ended yet, with its
// candidates and computed status.
func (h *ElectionHandler) Current(w http.ResponseWriter, r *http.Request) {
	election, err := h.elections.CurrentElection(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	candidates, err := h.elections.ListCandidates(r.Context(), election.ID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToElectionResponse(election, candidates, time.Now()))
}

// LiveResults handles GET /api/v1/elections/results/live.
// The tally spans every election so completed races stay visible.
func (h *ElectionHandler) LiveResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.results.Live(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, results)
}

// Vote handles POST /api/v1/elections/{id}/vote.
func (h *ElectionHandler) Vote(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var req dto.VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	input := service.CastBallotInput{
		VoterID:      authCtx.UserID,
		VoterEmail:   authCtx.Email,
		VoterRole:    authCtx.Role,
		ElectionID:   chi.URLParam(r, "id"),
		CandidateIDs: req.CandidateIDs,
		RequestID:    middleware.GetRequestID(r.Context()),
	}

	ballot, err := h.votes.Cast(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	// Candidate choices are deliberately absent from this log line.
	h.logger.Info("ballot_accepted",
		"receipt_id", ballot.ReceiptID,
		"election_id", ballot.ElectionID,
		"votes_cast", ballot.VotesCast,
	)

	writeJSON(w, http.StatusOK, dto.ToVoteReceiptResponse(ballot))
}

// VoterStats handles GET /api/v1/elections/stats/voters.
func (h *ElectionHandler) VoterStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.results.VoterStats(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// handleServiceError maps service errors to HTTP responses.
func (h *ElectionHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNoCurrentElection):
		h.writeError(w, http.StatusNotFound, "NO_ACTIVE_ELECTION", "No active election found")
	case errors.Is(err, service.ErrElectionNotFound):
		h.writeError(w, http.StatusNotFound, "ELECTION_NOT_FOUND", "Election not found")
	case errors.Is(err, service.ErrElectionNotOngoing):
		h.writeError(w, http.StatusBadRequest, "ELECTION_NOT_ACTIVE", "Election is not active")
	case errors.Is(err, service.ErrAlreadyVoted):
		h.writeError(w, http.StatusBadRequest, "ALREADY_VOTED", "You have already voted in this election")
	case errors.Is(err, service.ErrNoCandidates):
		h.writeError(w, http.StatusBadRequest, "EMPTY_BALLOT", "candidate_ids must be a non-empty list")
	case errors.Is(err, service.ErrDuplicateCandidates):
		h.writeError(w, http.StatusBadRequest, "INVALID_CANDIDATES", "candidate_ids contains duplicates")
	case errors.Is(err, service.ErrInvalidCandidates):
		h.writeError(w, http.StatusBadRequest, "INVALID_CANDIDATES", "One or more selected candidates are invalid")
	case errors.Is(err, service.ErrPositionConflict):
		h.writeError(w, http.StatusBadRequest, "DUPLICATE_POSITION", "Multiple candidates selected for the same position")
	case errors.Is(err, service.ErrVoterOnly):
		h.writeError(w, http.StatusForbidden, "VOTER_ROLE_REQUIRED", "Only voters may cast ballots")
	default:
		h.logger.Error("internal_error", "error", err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// writeError writes an error response.
func (h *ElectionHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
