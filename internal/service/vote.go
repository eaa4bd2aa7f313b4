package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ballotbox/ballotbox/internal/audit"
	"github.com/ballotbox/ballotbox/internal/auth"
	"github.com/ballotbox/ballotbox/internal/cache"
	"github.com/ballotbox/ballotbox/internal/metrics"
	"github.com/ballotbox/ballotbox/internal/model"
	"github.com/ballotbox/ballotbox/internal/repository"
)

// Voting errors.
var (
	ErrVoterOnly           = errors.New("only voters can cast votes")
	ErrElectionNotOngoing  = errors.New("election is not active")
	ErrAlreadyVoted        = errors.New("user already voted in this election")
	ErrNoCandidates        = errors.New("candidate_ids must be a non-empty list")
	ErrDuplicateCandidates = errors.New("candidate_ids contains duplicates")
	ErrInvalidCandidates   = errors.New("one or more candidates are invalid")
	ErrPositionConflict    = errors.New("multiple candidates selected for the same position")
)

// maxSelectionsPerBallot bounds a single ballot submission.
const maxSelectionsPerBallot = 50

// VoteService handles ballot casting.
type VoteService struct {
	repo    *repository.Repository
	cache   *cache.Cache
	audit   *audit.Publisher
	metrics metrics.Recorder
}

// NewVoteService creates a new VoteService.
func NewVoteService(repo *repository.Repository, cache *cache.Cache, publisher *audit.Publisher, recorder metrics.Recorder) *VoteService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &VoteService{
		repo:    repo,
		cache:   cache,
		audit:   publisher,
		metrics: recorder,
	}
}

// CastBallotInput defines input for casting a ballot.
type CastBallotInput struct {
	VoterID      string
	VoterEmail   string
	VoterRole    model.Role
	ElectionID   string
	CandidateIDs []string
	RequestID    string
}

// Cast records one ballot: one vote per selected candidate, at most one
// candidate per position, all inside a single transaction. The route
// guard already restricts this to voters; the check here keeps the
// invariant even if a route is ever wired wrong.
func (s *VoteService) Cast(ctx context.Context, input CastBallotInput) (*model.Ballot, error) {
	if input.VoterRole != model.RoleVoter {
		s.metrics.IncVoteRejected("role")
		return nil, ErrVoterOnly
	}

	election, err := s.repo.GetElectionByID(ctx, input.ElectionID)
	if err != nil {
		if errors.Is(err, repository.ErrElectionNotFound) {
			return nil, ErrElectionNotFound
		}
		return nil, err
	}

	now := time.Now().UTC()
	if election.StatusAt(now) != model.ElectionOngoing {
		s.metrics.IncVoteRejected("window")
		return nil, ErrElectionNotOngoing
	}

	voted, err := s.repo.HasVoted(ctx, input.VoterID, input.ElectionID)
	if err != nil {
		return nil, fmt.Errorf("check prior ballot: %w", err)
	}
	if voted {
		s.metrics.IncVoteRejected("duplicate")
		return nil, ErrAlreadyVoted
	}

	candidates, err := s.validateSelection(ctx, input.ElectionID, input.CandidateIDs)
	if err != nil {
		return nil, err
	}

	receipt, err := auth.GenerateReceiptID(now)
	if err != nil {
		return nil, fmt.Errorf("generate receipt: %w", err)
	}

	votes := make([]*model.Vote, 0, len(candidates))
	for _, candidate := range candidates {
		votes = append(votes, &model.Vote{
			ID:          ulid.Make().String(),
			UserID:      input.VoterID,
			CandidateID: candidate.ID,
			ElectionID:  input.ElectionID,
			Position:    candidate.Position,
			ReceiptID:   receipt,
			CastAt:      now,
		})
	}

	if err := s.repo.CastBallot(ctx, votes); err != nil {
		// A concurrent submission from the same voter loses the race at
		// the unique constraint, not at the HasVoted check above.
		if errors.Is(err, repository.ErrDuplicateVote) {
			s.metrics.IncVoteRejected("duplicate")
			return nil, ErrAlreadyVoted
		}
		return nil, fmt.Errorf("record ballot: %w", err)
	}

	s.metrics.IncVoteAccepted()

	// The audit trail names the receipt, never the candidates: auditors
	// can verify a ballot happened without learning how anyone voted.
	s.audit.Record(&model.AuditEvent{
		UserID:    input.VoterID,
		UserEmail: input.VoterEmail,
		Action:    model.ActionSubmitVote,
		Status:    model.AuditStatusSuccess,
		Details:   fmt.Sprintf("Ballot %s with %d vote(s) in election %s", receipt, len(votes), input.ElectionID),
		RequestID: input.RequestID,
	})

	// Drop stale tallies so dashboards pick the ballot up within one
	// poll. This clears the election's tally and the global one; a
	// cache error never fails an accepted ballot.
	_ = s.cache.InvalidateLiveResults(ctx, input.ElectionID)

	return &model.Ballot{
		ReceiptID:  receipt,
		ElectionID: input.ElectionID,
		VotesCast:  len(votes),
		CastAt:     now,
	}, nil
}

// validateSelection checks the candidate list: non-empty, no duplicates,
// every ID belongs to the election, and at most one candidate per
// position.
func (s *VoteService) validateSelection(ctx context.Context, electionID string, candidateIDs []string) ([]*model.Candidate, error) {
	if len(candidateIDs) == 0 {
		s.metrics.IncVoteRejected("candidate")
		return nil, ErrNoCandidates
	}
	if len(candidateIDs) > maxSelectionsPerBallot {
		s.metrics.IncVoteRejected("candidate")
		return nil, ErrInvalidCandidates
	}

	seen := make(map[string]struct{}, len(candidateIDs))
	for _, id := range candidateIDs {
		if _, dup := seen[id]; dup {
			s.metrics.IncVoteRejected("candidate")
			return nil, ErrDuplicateCandidates
		}
		seen[id] = struct{}{}
	}

	candidates, err := s.repo.GetCandidatesByIDs(ctx, candidateIDs)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	if len(candidates) != len(candidateIDs) {
		s.metrics.IncVoteRejected("candidate")
		return nil, ErrInvalidCandidates
	}

	positions := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		if candidate.ElectionID != electionID {
			s.metrics.IncVoteRejected("candidate")
			return nil, ErrInvalidCandidates
		}
		if _, taken := positions[candidate.Position]; taken {
			s.metrics.IncVoteRejected("candidate")
			return nil, ErrPositionConflict
		}
		positions[candidate.Position] = struct{}{}
	}

	return candidates, nil
}

// HasVoted reports whether the voter already cast a ballot in the
// election.
func (s *VoteService) HasVoted(ctx context.Context, voterID, electionID string) (bool, error) {
	return s.repo.HasVoted(ctx, voterID, electionID)
}
