package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/ballotbox/ballotbox/internal/model"
)

// ErrDuplicateVote indicates the voter already has a recorded vote for
// one of the positions in the ballot.
var ErrDuplicateVote = errors.New("vote already recorded for this position")

// CastBallot inserts every vote of a ballot in one batch. A batch runs
// in a single implicit transaction, so the ballot lands whole or not at
// all. The unique index on (user_id, election_id, position) catches
// concurrent double submissions that pass the HasVoted pre-check.
func (r *Repository) CastBallot(ctx context.Context, votes []*model.Vote) error {
	if len(votes) == 0 {
		return nil
	}

	batch := &pgx.Batch{}

	query := `
		INSERT INTO votes (id, user_id, candidate_id, election_id, position, receipt_id, cast_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for _, vote := range votes {
		batch.Queue(query,
			vote.ID,
			vote.UserID,
			vote.CandidateID,
			vote.ElectionID,
			vote.Position,
			vote.ReceiptID,
			vote.CastAt,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(votes); i++ {
		if _, err := results.Exec(); err != nil {
			if constraint, ok := uniqueConstraint(err); ok && strings.Contains(constraint, "voter_position") {
				return ErrDuplicateVote
			}
			return fmt.Errorf("failed to record vote %d: %w", i, err)
		}
	}

	return nil
}

// HasVoted reports whether the user already has votes recorded in the election.
func (r *Repository) HasVoted(ctx context.Context, userID, electionID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM votes WHERE user_id = $1 AND election_id = $2)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, userID, electionID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check prior ballot: %w", err)
	}

	return exists, nil
}

// CountVotes counts all recorded votes across elections.
func (r *Repository) CountVotes(ctx context.Context) (int64, error) {
	query := `SELECT COUNT(*) FROM votes`

	var count int64
	if err := r.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}

	return count, nil
}

// CountVotesByElection counts recorded votes within one election.
func (r *Repository) CountVotesByElection(ctx context.Context, electionID string) (int64, error) {
	query := `SELECT COUNT(*) FROM votes WHERE election_id = $1`

	var count int64
	if err := r.pool.QueryRow(ctx, query, electionID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count election votes: %w", err)
	}

	return count, nil
}

// CountBallots counts distinct submitted ballots in an election.
// Each ballot shares one receipt, so receipts measure turnout.
func (r *Repository) CountBallots(ctx context.Context, electionID string) (int64, error) {
	query := `SELECT COUNT(DISTINCT receipt_id) FROM votes WHERE election_id = $1`

	var count int64
	if err := r.pool.QueryRow(ctx, query, electionID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count ballots: %w", err)
	}

	return count, nil
}
