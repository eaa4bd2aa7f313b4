package model

import "time"

// Vote represents a single recorded choice: one voter, one candidate,
// one position, inside one election. All votes cast in the same request
// share a receipt ID.
type Vote struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	CandidateID string    `json:"candidate_id"`
	ElectionID  string    `json:"election_id"`
	Position    string    `json:"position"` // Captured from the candidate at cast time
	ReceiptID   string    `json:"receipt_id"`
	CastAt      time.Time `json:"cast_at"`
}

// Ballot is the result of a successful vote submission.
type Ballot struct {
	ReceiptID  string    `json:"receipt_id"`
	ElectionID string    `json:"election_id"`
	VotesCast  int       `json:"votes_cast"`
	CastAt     time.Time `json:"cast_at"`
}

// VoterStats summarizes voter participation.
type VoterStats struct {
	TotalVoters    int64 `json:"totalVoters"`
	TotalVotesCast int64 `json:"totalVotesCast"`
}

// OverviewStats is the admin dashboard headline block.
type OverviewStats struct {
	TotalVotes         int64 `json:"totalVotes"`
	OngoingElections   int64 `json:"ongoingElections"`
	CompletedElections int64 `json:"completedElections"`
}
