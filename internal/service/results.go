package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ballotbox/ballotbox/internal/cache"
	"github.com/ballotbox/ballotbox/internal/metrics"
	"github.com/ballotbox/ballotbox/internal/model"
	"github.com/ballotbox/ballotbox/internal/repository"
)

// Results errors.
var (
	ErrNoOngoingElection = errors.New("no ongoing election found")
)

// ResultsService produces live tallies and participation stats.
// Tallies are cached briefly; dashboards poll faster than voters vote.
type ResultsService struct {
	repo    *repository.Repository
	cache   *cache.Cache
	metrics metrics.Recorder
}

// NewResultsService creates a new ResultsService.
func NewResultsService(repo *repository.Repository, cache *cache.Cache, recorder metrics.Recorder) *ResultsService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &ResultsService{
		repo:    repo,
		cache:   cache,
		metrics: recorder,
	}
}

// Live returns the tally across all elections: every candidate with
// their vote count plus the grand total.
func (s *ResultsService) Live(ctx context.Context) (*model.LiveResults, error) {
	return s.tally(ctx, "")
}

// ByElection returns the tally for one election.
func (s *ResultsService) ByElection(ctx context.Context, electionID string) (*model.LiveResults, error) {
	if _, err := s.repo.GetElectionByID(ctx, electionID); err != nil {
		if errors.Is(err, repository.ErrElectionNotFound) {
			return nil, ErrElectionNotFound
		}
		return nil, err
	}
	return s.tally(ctx, electionID)
}

// OngoingResults returns the tally for the election currently accepting
// votes. Auditors watch this one.
func (s *ResultsService) OngoingResults(ctx context.Context) (*model.LiveResults, error) {
	election, err := s.repo.GetOngoingElection(ctx, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrElectionNotFound) {
			return nil, ErrNoOngoingElection
		}
		return nil, err
	}
	return s.tally(ctx, election.ID)
}

// tally serves a cached count when fresh enough, otherwise recounts
// from the database and backfills the cache. An empty election ID means
// the global tally.
func (s *ResultsService) tally(ctx context.Context, electionID string) (*model.LiveResults, error) {
	cached, err := s.cache.GetLiveResults(ctx, electionID)
	if err == nil {
		return cached, nil
	}
	// Both a miss and a Redis error fall through to the database count.

	start := time.Now()
	results, err := s.count(ctx, electionID)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveTallyDuration(time.Since(start))

	// Backfill the cache for the next poll. Best effort.
	_ = s.cache.SetLiveResults(ctx, electionID, results)

	return results, nil
}

func (s *ResultsService) count(ctx context.Context, electionID string) (*model.LiveResults, error) {
	var (
		rows  []model.CandidateResult
		total int64
		err   error
	)

	if electionID == "" {
		rows, err = s.repo.ListCandidateResults(ctx)
	} else {
		rows, err = s.repo.ListCandidateResultsByElection(ctx, electionID)
	}
	if err != nil {
		return nil, fmt.Errorf("tally candidates: %w", err)
	}

	if electionID == "" {
		total, err = s.repo.CountVotes(ctx)
	} else {
		total, err = s.repo.CountVotesByElection(ctx, electionID)
	}
	if err != nil {
		return nil, fmt.Errorf("count votes: %w", err)
	}

	return &model.LiveResults{
		TotalVotes: total,
		Candidates: rows,
	}, nil
}

// VoterStats returns voter participation numbers for the admin
// dashboard.
func (s *ResultsService) VoterStats(ctx context.Context) (*model.VoterStats, error) {
	voters, err := s.repo.CountUsersByRole(ctx, model.RoleVoter)
	if err != nil {
		return nil, fmt.Errorf("count voters: %w", err)
	}

	votes, err := s.repo.CountVotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("count votes: %w", err)
	}

	return &model.VoterStats{
		TotalVoters:    voters,
		TotalVotesCast: votes,
	}, nil
}

// Overview returns the admin dashboard headline numbers.
func (s *ResultsService) Overview(ctx context.Context) (*model.OverviewStats, error) {
	now := time.Now().UTC()

	votes, err := s.repo.CountVotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("count votes: %w", err)
	}

	ongoing, err := s.repo.CountOngoingElections(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("count ongoing elections: %w", err)
	}

	completed, err := s.repo.CountCompletedElections(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("count completed elections: %w", err)
	}

	return &model.OverviewStats{
		TotalVotes:         votes,
		OngoingElections:   ongoing,
		CompletedElections: completed,
	}, nil
}
