package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ballotbox/ballotbox/internal/audit"
	"github.com/ballotbox/ballotbox/internal/metrics"
	"github.com/ballotbox/ballotbox/internal/model"
	"github.com/ballotbox/ballotbox/internal/repository"
	"github.com/ballotbox/ballotbox/internal/upload"
)

// Election errors.
var (
	ErrElectionNotFound  = errors.New("election not found")
	ErrNoCurrentElection = errors.New("no active or upcoming election found")
	ErrInvalidWindow     = errors.New("end date must be after start date")
	ErrCandidateNotFound = errors.New("candidate not found")
	ErrInvalidPhoto      = errors.New("invalid candidate photo")
	ErrPhotoTooLarge     = errors.New("candidate photo exceeds size limit")
)

// ElectionService handles election and candidate management.
type ElectionService struct {
	repo    *repository.Repository
	photos  *upload.Store
	audit   *audit.Publisher
	metrics metrics.Recorder
}

// NewElectionService creates a new ElectionService.
func NewElectionService(repo *repository.Repository, photos *upload.Store, publisher *audit.Publisher, recorder metrics.Recorder) *ElectionService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &ElectionService{
		repo:    repo,
		photos:  photos,
		audit:   publisher,
		metrics: recorder,
	}
}

// CreateElectionInput defines input for creating an election.
type CreateElectionInput struct {
	Title     string
	StartDate time.Time
	EndDate   time.Time

	ActorID    string
	ActorEmail string
	RequestID  string
}

// CreateElection creates an election. Dates are stored in UTC; status is
// never stored, so nothing here needs a scheduler to flip it later.
func (s *ElectionService) CreateElection(ctx context.Context, input CreateElectionInput) (*model.Election, error) {
	start := input.StartDate.UTC()
	end := input.EndDate.UTC()
	if !end.After(start) {
		return nil, ErrInvalidWindow
	}

	now := time.Now().UTC()
	election := &model.Election{
		ID:        ulid.Make().String(),
		Title:     input.Title,
		StartDate: start,
		EndDate:   end,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.CreateElection(ctx, election); err != nil {
		return nil, fmt.Errorf("create election: %w", err)
	}

	s.metrics.IncElectionCreated()
	s.audit.Record(&model.AuditEvent{
		UserID:    input.ActorID,
		UserEmail: input.ActorEmail,
		Action:    model.ActionCreateElection,
		Status:    model.AuditStatusSuccess,
		Details:   fmt.Sprintf("Created election %s", election.Title),
		RequestID: input.RequestID,
	})

	return election, nil
}

// UpdateElectionInput defines input for updating an election.
// Nil fields are left unchanged.
type UpdateElectionInput struct {
	ID        string
	Title     *string
	StartDate *time.Time
	EndDate   *time.Time

	ActorID    string
	ActorEmail string
	RequestID  string
}

// UpdateElection updates an election's mutable fields.
func (s *ElectionService) UpdateElection(ctx context.Context, input UpdateElectionInput) (*model.Election, error) {
	election, err := s.repo.GetElectionByID(ctx, input.ID)
	if err != nil {
		if errors.Is(err, repository.ErrElectionNotFound) {
			return nil, ErrElectionNotFound
		}
		return nil, err
	}

	if input.Title != nil {
		election.Title = *input.Title
	}
	if input.StartDate != nil {
		election.StartDate = input.StartDate.UTC()
	}
	if input.EndDate != nil {
		election.EndDate = input.EndDate.UTC()
	}
	if !election.EndDate.After(election.StartDate) {
		return nil, ErrInvalidWindow
	}
	election.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateElection(ctx, election); err != nil {
		if errors.Is(err, repository.ErrElectionNotFound) {
			return nil, ErrElectionNotFound
		}
		return nil, err
	}

	s.metrics.IncElectionUpdated()
	s.audit.Record(&model.AuditEvent{
		UserID:    input.ActorID,
		UserEmail: input.ActorEmail,
		Action:    model.ActionUpdateElection,
		Status:    model.AuditStatusSuccess,
		Details:   fmt.Sprintf("Updated election %s", election.ID),
		RequestID: input.RequestID,
	})

	return election, nil
}

// GetElection retrieves an election by ID.
func (s *ElectionService) GetElection(ctx context.Context, id string) (*model.Election, error) {
	election, err := s.repo.GetElectionByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrElectionNotFound) {
			return nil, ErrElectionNotFound
		}
		return nil, err
	}
	return election, nil
}

// ListElections retrieves all elections, newest window first.
func (s *ElectionService) ListElections(ctx context.Context) ([]*model.Election, error) {
	return s.repo.ListElections(ctx)
}

// CurrentElection returns the earliest election that has not ended yet,
// whether upcoming or ongoing. Voters land here to see what is next.
func (s *ElectionService) CurrentElection(ctx context.Context) (*model.Election, error) {
	election, err := s.repo.GetCurrentElection(ctx, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrElectionNotFound) {
			return nil, ErrNoCurrentElection
		}
		return nil, err
	}
	return election, nil
}

// AddCandidateInput defines input for registering a candidate.
// Photo is the raw upload body; PhotoName the client-supplied filename.
type AddCandidateInput struct {
	ElectionID string
	Name       string
	Level      string
	Position   string
	Manifesto  string
	Photo      io.Reader
	PhotoName  string

	ActorID    string
	ActorEmail string
	RequestID  string
}

// AddCandidate stores the photo and registers the candidate. The photo
// is written only after the election is known to exist, and removed
// again if the insert fails, so no orphan files accumulate.
func (s *ElectionService) AddCandidate(ctx context.Context, input AddCandidateInput) (*model.Candidate, error) {
	if _, err := s.repo.GetElectionByID(ctx, input.ElectionID); err != nil {
		if errors.Is(err, repository.ErrElectionNotFound) {
			return nil, ErrElectionNotFound
		}
		return nil, err
	}

	var photoURL *string
	if input.Photo != nil {
		stored, err := s.photos.SaveCandidatePhoto(input.Photo, input.PhotoName)
		if err != nil {
			switch {
			case errors.Is(err, upload.ErrTooLarge):
				return nil, ErrPhotoTooLarge
			case errors.Is(err, upload.ErrUnsupportedType), errors.Is(err, upload.ErrEmptyFile):
				return nil, ErrInvalidPhoto
			}
			return nil, fmt.Errorf("store candidate photo: %w", err)
		}
		photoURL = &stored
	}

	candidate := &model.Candidate{
		ID:         ulid.Make().String(),
		ElectionID: input.ElectionID,
		Name:       input.Name,
		Level:      optionalString(input.Level),
		Position:   input.Position,
		Manifesto:  optionalString(input.Manifesto),
		PhotoURL:   photoURL,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.repo.CreateCandidate(ctx, candidate); err != nil {
		if photoURL != nil {
			_ = s.photos.Remove(*photoURL)
		}
		return nil, fmt.Errorf("create candidate: %w", err)
	}

	s.metrics.IncCandidateAdded()
	s.audit.Record(&model.AuditEvent{
		UserID:    input.ActorID,
		UserEmail: input.ActorEmail,
		Action:    model.ActionAddCandidate,
		Status:    model.AuditStatusSuccess,
		Details:   fmt.Sprintf("Added candidate %s to election %s", candidate.Name, input.ElectionID),
		RequestID: input.RequestID,
	})

	return candidate, nil
}

// ListCandidates retrieves the candidates registered for an election.
func (s *ElectionService) ListCandidates(ctx context.Context, electionID string) ([]*model.Candidate, error) {
	if _, err := s.repo.GetElectionByID(ctx, electionID); err != nil {
		if errors.Is(err, repository.ErrElectionNotFound) {
			return nil, ErrElectionNotFound
		}
		return nil, err
	}
	return s.repo.ListCandidatesByElection(ctx, electionID)
}
