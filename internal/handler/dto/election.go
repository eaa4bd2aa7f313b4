package dto

import (
	"time"

	"github.com/ballotbox/ballotbox/internal/model"
)

// CreateElectionRequest represents the request body for creating an election.
type CreateElectionRequest struct {
	Title     string    `json:"title"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// UpdateElectionRequest represents the request body for updating an
// election. Absent fields are left unchanged.
type UpdateElectionRequest struct {
	Title     *string    `json:"title,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// ElectionResponse represents an election in API responses. Status is
// computed from the voting window at render time, never stored.
type ElectionResponse struct {
	ID         string               `json:"id"`
	Title      string               `json:"title"`
	StartDate  time.Time            `json:"start_date"`
	EndDate    time.Time            `json:"end_date"`
	Status     string               `json:"status"`
	Candidates []*CandidateResponse `json:"candidates"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

// ElectionListResponse represents a list of elections.
type ElectionListResponse struct {
	Data  []*ElectionResponse `json:"data"`
	Total int                 `json:"total"`
}

// CandidateResponse represents a candidate in API responses.
type CandidateResponse struct {
	ID         string  `json:"id"`
	ElectionID string  `json:"election_id"`
	Name       string  `json:"name"`
	Level      *string `json:"level,omitempty"`
	Position   string  `json:"position"`
	Manifesto  *string `json:"manifesto,omitempty"`
	PhotoURL   *string `json:"photo_url,omitempty"`
}

// CandidateListResponse represents the candidates of one election.
type CandidateListResponse struct {
	Data  []*CandidateResponse `json:"data"`
	Total int                  `json:"total"`
}

// VoteRequest represents a ballot submission.
type VoteRequest struct {
	CandidateIDs []string `json:"candidate_ids"`
}

// VoteReceiptResponse acknowledges an accepted ballot. The receipt is
// the only reference the voter gets back; candidate choices are never
// echoed.
type VoteReceiptResponse struct {
	Status    string    `json:"status"`
	ReceiptID string    `json:"receipt_id"`
	VotesCast int       `json:"votes_cast"`
	CastAt    time.Time `json:"cast_at"`
}

// OverviewResponse is the admin dashboard payload: headline stats plus
// the per-candidate tally across all elections.
type OverviewResponse struct {
	Stats   *model.OverviewStats    `json:"stats"`
	Results []model.CandidateResult `json:"results"`
}

// ToElectionResponse converts an Election model to ElectionResponse DTO.
// Candidates may be nil; the response then carries an empty list.
func ToElectionResponse(election *model.Election, candidates []*model.Candidate, now time.Time) *ElectionResponse {
	return &ElectionResponse{
		ID:         election.ID,
		Title:      election.Title,
		StartDate:  election.StartDate,
		EndDate:    election.EndDate,
		Status:     string(election.StatusAt(now)),
		Candidates: ToCandidateResponses(candidates),
		CreatedAt:  election.CreatedAt,
		UpdatedAt:  election.UpdatedAt,
	}
}

// ToCandidateResponse converts a Candidate model to CandidateResponse DTO.
func ToCandidateResponse(candidate *model.Candidate) *CandidateResponse {
	return &CandidateResponse{
		ID:         candidate.ID,
		ElectionID: candidate.ElectionID,
		Name:       candidate.Name,
		Level:      candidate.Level,
		Position:   candidate.Position,
		Manifesto:  candidate.Manifesto,
		PhotoURL:   candidate.PhotoURL,
	}
}

// ToCandidateResponses converts a slice of candidates. The result is
// never nil so the JSON field is always a list.
func ToCandidateResponses(candidates []*model.Candidate) []*CandidateResponse {
	data := make([]*CandidateResponse, 0, len(candidates))
	for _, c := range candidates {
		data = append(data, ToCandidateResponse(c))
	}
	return data
}

// ToVoteReceiptResponse converts an accepted Ballot to its receipt.
func ToVoteReceiptResponse(ballot *model.Ballot) *VoteReceiptResponse {
	return &VoteReceiptResponse{
		Status:    "success",
		ReceiptID: ballot.ReceiptID,
		VotesCast: ballot.VotesCast,
		CastAt:    ballot.CastAt,
	}
}
