// Package service provides business logic for the application.
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

// Authentication errors.
var (
	ErrInvalidCredentials = errors.New("incorrect email/student_id or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrStudentIDTaken     = errors.New("student ID already registered")
)

// minLoginDuration is the floor for rejected login attempts. An unknown
// identifier skips the Argon2 verify, which would otherwise answer in
// microseconds and confirm which identifiers exist.
const minLoginDuration = 200 * time.Millisecond

// AuthService handles login and voter registration.
type AuthService struct {
	repo    *repository.Repository
	cache   *cache.Cache
	tokens  *auth.TokenManager
	audit   *audit.Publisher
	metrics metrics.Recorder
}

// NewAuthService creates a new AuthService.
func NewAuthService(repo *repository.Repository, cache *cache.Cache, tokens *auth.TokenManager, publisher *audit.Publisher, recorder metrics.Recorder) *AuthService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AuthService{
		repo:    repo,
		cache:   cache,
		tokens:  tokens,
		audit:   publisher,
		metrics: recorder,
	}
}

// LoginInput defines input for a login attempt.
type LoginInput struct {
	// Identifier is an email address or a student ID.
	Identifier string
	Password   string
	RequestID  string
}

// LoginResult is a successful authentication.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *model.User
}

// Login authenticates by email or student ID and issues an access token.
// Both failure modes return ErrInvalidCredentials; the audit entry does
// not say which check failed either.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	start := time.Now()

	user, err := s.repo.GetUserByIdentifier(ctx, input.Identifier)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, s.rejectLogin(start, input)
		}
		return nil, fmt.Errorf("look up account: %w", err)
	}

	ok, err := auth.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, s.rejectLogin(start, input)
	}

	// Transparent parameter upgrade: re-hash with current cost settings
	// while the plaintext is at hand. Failure just means the next login
	// tries again.
	if auth.NeedsRehash(user.PasswordHash) {
		if newHash, err := auth.HashPassword(input.Password); err == nil {
			_ = s.repo.UpdatePasswordHash(ctx, user.ID, newHash)
		}
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	// Warm the account cache so the first authenticated request skips
	// the database. Best effort: a cache error never fails a login.
	_ = s.cache.SetAccount(ctx, auth.QuickHash(user.Email), user)

	s.metrics.IncLogin("success")
	s.audit.Record(&model.AuditEvent{
		UserID:    user.ID,
		UserEmail: user.Email,
		Action:    model.ActionLogin,
		Status:    model.AuditStatusSuccess,
		Details:   fmt.Sprintf("User %s logged in successfully", user.Email),
		RequestID: input.RequestID,
	})

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}

// rejectLogin records a failed attempt and pads the response time.
func (s *AuthService) rejectLogin(start time.Time, input LoginInput) error {
	s.metrics.IncLogin("failed")
	s.audit.Record(&model.AuditEvent{
		UserEmail: input.Identifier,
		Action:    model.ActionLogin,
		Status:    model.AuditStatusFailed,
		Details:   "Invalid email/student_id or password",
		RequestID: input.RequestID,
	})

	if elapsed := time.Since(start); elapsed < minLoginDuration {
		time.Sleep(minLoginDuration - elapsed)
	}

	return ErrInvalidCredentials
}

// RegisterInput defines input for voter registration.
// Field formats are checked at the HTTP layer; this service enforces
// uniqueness and ownership rules.
type RegisterInput struct {
	Name      string
	Email     string
	StudentID string
	Level     string
	Course    string
	Password  string
	RequestID string
}

// Register creates a voter account. The role is always voter; staff
// accounts are provisioned through the admin and superadmin services.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:           ulid.Make().String(),
		Name:         input.Name,
		Email:        input.Email,
		StudentID:    optionalString(input.StudentID),
		Level:        optionalString(input.Level),
		Course:       optionalString(input.Course),
		PasswordHash: hash,
		Role:         model.RoleVoter,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailTaken):
			return nil, ErrEmailTaken
		case errors.Is(err, repository.ErrStudentIDTaken):
			return nil, ErrStudentIDTaken
		}
		return nil, fmt.Errorf("create voter: %w", err)
	}

	s.metrics.IncRegistration()
	s.audit.Record(&model.AuditEvent{
		UserID:    user.ID,
		UserEmail: user.Email,
		Action:    model.ActionUserRegistration,
		Status:    model.AuditStatusSuccess,
		Details:   fmt.Sprintf("Registered voter %s", user.Email),
		RequestID: input.RequestID,
	})

	return user, nil
}

// optionalString maps "" to a NULL column value.
func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
