package model

import "time"

// Candidate represents a person running for a position in an election.
type Candidate struct {
	ID         string    `json:"id"`
	ElectionID string    `json:"election_id"`
	Name       string    `json:"name"`
	Level      *string   `json:"level,omitempty"`
	Position   string    `json:"position"`
	Manifesto  *string   `json:"manifesto,omitempty"`
	PhotoURL   *string   `json:"photo_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// CandidateResult is a per-candidate tally row.
type CandidateResult struct {
	CandidateID string `json:"candidateId"`
	Name        string `json:"name"`
	Position    string `json:"position"`
	Votes       int64  `json:"votes"`
}

// LiveResults is the tally payload served to voters, admins, and auditors.
type LiveResults struct {
	TotalVotes int64             `json:"totalVotes"`
	Candidates []CandidateResult `json:"candidates"`
}
