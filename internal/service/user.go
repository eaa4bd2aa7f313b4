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

// User management errors.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidPeerRole = errors.New("role must be admin or auditor")
)

// UserService handles profiles and staff account management.
type UserService struct {
	repo    *repository.Repository
	cache   *cache.Cache
	audit   *audit.Publisher
	metrics metrics.Recorder
}

// NewUserService creates a new UserService.
func NewUserService(repo *repository.Repository, cache *cache.Cache, publisher *audit.Publisher, recorder metrics.Recorder) *UserService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &UserService{
		repo:    repo,
		cache:   cache,
		audit:   publisher,
		metrics: recorder,
	}
}

// GetProfile retrieves a user by ID.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// ListStaff retrieves all accounts with the given staff role.
func (s *UserService) ListStaff(ctx context.Context, role model.Role) ([]*model.User, error) {
	if role != model.RoleAdmin && role != model.RoleAuditor {
		return nil, ErrInvalidPeerRole
	}
	return s.repo.ListUsersByRole(ctx, role)
}

// CreateStaffInput defines input for provisioning an admin or auditor.
type CreateStaffInput struct {
	Name     string
	Email    string
	Password string
	Role     model.Role

	ActorID    string
	ActorEmail string
	RequestID  string
}

// CreateStaff provisions an admin or auditor account. Staff accounts
// carry no student fields and can never vote.
func (s *UserService) CreateStaff(ctx context.Context, input CreateStaffInput) (*model.User, error) {
	if input.Role != model.RoleAdmin && input.Role != model.RoleAuditor {
		return nil, ErrInvalidPeerRole
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:           ulid.Make().String(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         input.Role,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create %s: %w", input.Role, err)
	}

	s.audit.Record(&model.AuditEvent{
		UserID:    input.ActorID,
		UserEmail: input.ActorEmail,
		Action:    staffAction(input.Role, true),
		Status:    model.AuditStatusSuccess,
		Details:   fmt.Sprintf("Created %s %s", input.Role, user.Email),
		RequestID: input.RequestID,
	})

	return user, nil
}

// DeleteStaffInput defines input for removing an admin or auditor.
type DeleteStaffInput struct {
	UserID string
	Role   model.Role

	ActorID    string
	ActorEmail string
	RequestID  string
}

// DeleteStaff removes a staff account. The role scoping means an admin
// delete endpoint can never remove a superadmin, whatever ID it is
// handed. Any cached credentials are evicted so the account's tokens
// die with it.
func (s *UserService) DeleteStaff(ctx context.Context, input DeleteStaffInput) error {
	if input.Role != model.RoleAdmin && input.Role != model.RoleAuditor {
		return ErrInvalidPeerRole
	}

	deleted, err := s.repo.DeleteUserByRole(ctx, input.UserID, input.Role)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete %s: %w", input.Role, err)
	}

	// Evict the cached account so the deleted account's tokens stop
	// verifying now instead of at cache expiry. Best effort.
	_ = s.cache.DeleteAccount(ctx, auth.QuickHash(deleted.Email))

	s.audit.Record(&model.AuditEvent{
		UserID:    input.ActorID,
		UserEmail: input.ActorEmail,
		Action:    staffAction(input.Role, false),
		Status:    model.AuditStatusSuccess,
		Details:   fmt.Sprintf("Deleted %s %s", input.Role, deleted.Email),
		RequestID: input.RequestID,
	})

	return nil
}

// staffAction maps a staff role to its create or delete audit action.
func staffAction(role model.Role, create bool) string {
	switch {
	case role == model.RoleAdmin && create:
		return model.ActionCreateAdmin
	case role == model.RoleAdmin:
		return model.ActionDeleteAdmin
	case create:
		return model.ActionCreateAuditor
	default:
		return model.ActionDeleteAuditor
	}
}

// EnsureSuperadminInput defines the bootstrap account parameters.
type EnsureSuperadminInput struct {
	Name      string
	Email     string
	Password  string
	StudentID string
}

// EnsureSuperadmin creates the superadmin account if none exists yet.
// It reports whether an account was created so the caller can decide
// what to log. Safe to run on every startup; a concurrent boot that
// loses the insert race is treated the same as an existing account.
func (s *UserService) EnsureSuperadmin(ctx context.Context, input EnsureSuperadminInput) (*model.User, bool, error) {
	exists, err := s.repo.RoleExists(ctx, model.RoleSuperadmin)
	if err != nil {
		return nil, false, fmt.Errorf("check superadmin: %w", err)
	}
	if exists {
		return nil, false, nil
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, false, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:           ulid.Make().String(),
		Name:         input.Name,
		Email:        input.Email,
		StudentID:    optionalString(input.StudentID),
		PasswordHash: hash,
		Role:         model.RoleSuperadmin,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) || errors.Is(err, repository.ErrStudentIDTaken) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("create superadmin: %w", err)
	}

	s.audit.Record(&model.AuditEvent{
		UserID:    user.ID,
		UserEmail: user.Email,
		Action:    model.ActionBootstrapSuperadmin,
		Status:    model.AuditStatusSuccess,
		Details:   fmt.Sprintf("Provisioned superadmin %s at startup", user.Email),
	})

	return user, true, nil
}
