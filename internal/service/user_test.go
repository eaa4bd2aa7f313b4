package service

import (
	"context"
	"errors"
	"testing"

	"github.com/ballotbox/ballotbox/internal/auth"
	"github.com/ballotbox/ballotbox/internal/cache"
	"github.com/ballotbox/ballotbox/internal/model"
	"github.com/ballotbox/ballotbox/internal/testutil"
)

func TestStaffLifecycle(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend(t, ctx)
	users := NewUserService(backend.repo, backend.cache, backend.audit, backend.recorder)
	logins := NewAuthService(backend.repo, backend.cache, testTokenManager(), backend.audit, backend.recorder)

	email := testutil.UniqueEmail("staff")
	created, err := users.CreateStaff(ctx, CreateStaffInput{
		Name:     "New Admin",
		Email:    email,
		Password: "admin-pw-123",
		Role:     model.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("create staff: %v", err)
	}
	if created.Role != model.RoleAdmin {
		t.Fatalf("role = %s, want admin", created.Role)
	}
	if created.StudentID != nil {
		t.Errorf("staff account must not carry a student ID")
	}

	// The new admin can log in with the issued password.
	if _, err := logins.Login(ctx, LoginInput{Identifier: email, Password: "admin-pw-123"}); err != nil {
		t.Fatalf("staff login: %v", err)
	}

	admins, err := users.ListStaff(ctx, model.RoleAdmin)
	if err != nil {
		t.Fatalf("list admins: %v", err)
	}
	if len(admins) != 1 || admins[0].ID != created.ID {
		t.Fatalf("created admin not listed")
	}
	auditors, err := users.ListStaff(ctx, model.RoleAuditor)
	if err != nil {
		t.Fatalf("list auditors: %v", err)
	}
	if len(auditors) != 0 {
		t.Errorf("admin leaked into the auditor list")
	}

	_, err = users.CreateStaff(ctx, CreateStaffInput{
		Name:     "Same Email",
		Email:    email,
		Password: "other-pw",
		Role:     model.RoleAuditor,
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected %v, got %v", ErrEmailTaken, err)
	}

	if err := users.DeleteStaff(ctx, DeleteStaffInput{UserID: created.ID, Role: model.RoleAdmin}); err != nil {
		t.Fatalf("delete staff: %v", err)
	}
	admins, err = users.ListStaff(ctx, model.RoleAdmin)
	if err != nil {
		t.Fatalf("list admins: %v", err)
	}
	if len(admins) != 0 {
		t.Errorf("deleted admin still listed")
	}
	if _, err := users.GetProfile(ctx, created.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected %v after delete, got %v", ErrUserNotFound, err)
	}
}

func TestDeleteStaffRequiresMatchingRole(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend(t, ctx)
	users := NewUserService(backend.repo, backend.cache, backend.audit, backend.recorder)

	admin, err := users.CreateStaff(ctx, CreateStaffInput{
		Name:     "Sticky Admin",
		Email:    testutil.UniqueEmail("sticky"),
		Password: "pw",
		Role:     model.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}

	// Deleting through the auditor path cannot touch an admin account.
	err = users.DeleteStaff(ctx, DeleteStaffInput{UserID: admin.ID, Role: model.RoleAuditor})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected %v, got %v", ErrUserNotFound, err)
	}
	if _, err := users.GetProfile(ctx, admin.ID); err != nil {
		t.Fatalf("admin should survive a mismatched delete: %v", err)
	}
}

func TestDeleteStaffEvictsCachedAccount(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend(t, ctx)
	users := NewUserService(backend.repo, backend.cache, backend.audit, backend.recorder)
	logins := NewAuthService(backend.repo, backend.cache, testTokenManager(), backend.audit, backend.recorder)

	email := testutil.UniqueEmail("evict")
	auditor, err := users.CreateStaff(ctx, CreateStaffInput{
		Name:     "Short Lived",
		Email:    email,
		Password: "auditor-pw",
		Role:     model.RoleAuditor,
	})
	if err != nil {
		t.Fatalf("create auditor: %v", err)
	}

	if _, err := logins.Login(ctx, LoginInput{Identifier: email, Password: "auditor-pw"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := backend.cache.GetAccount(ctx, auth.QuickHash(email)); err != nil {
		t.Fatalf("expected warmed cache before delete: %v", err)
	}

	if err := users.DeleteStaff(ctx, DeleteStaffInput{UserID: auditor.ID, Role: model.RoleAuditor}); err != nil {
		t.Fatalf("delete auditor: %v", err)
	}

	if _, err := backend.cache.GetAccount(ctx, auth.QuickHash(email)); !errors.Is(err, cache.ErrCacheMiss) {
		t.Fatalf("expected cache miss after delete, got %v", err)
	}
}

func TestEnsureSuperadmin(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend(t, ctx)
	users := NewUserService(backend.repo, backend.cache, backend.audit, backend.recorder)
	logins := NewAuthService(backend.repo, backend.cache, testTokenManager(), backend.audit, backend.recorder)

	input := EnsureSuperadminInput{
		Name:      "Super Admin",
		Email:     "superadmin@ballotbox.local",
		Password:  "bootstrap-pw",
		StudentID: "BALLOT-0000",
	}

	user, created, err := users.EnsureSuperadmin(ctx, input)
	if err != nil {
		t.Fatalf("first boot: %v", err)
	}
	if !created || user == nil {
		t.Fatalf("expected a fresh superadmin on first boot")
	}
	if user.Role != model.RoleSuperadmin {
		t.Fatalf("role = %s, want superadmin", user.Role)
	}

	// Second boot finds the account and leaves it alone.
	again, created, err := users.EnsureSuperadmin(ctx, input)
	if err != nil {
		t.Fatalf("second boot: %v", err)
	}
	if created || again != nil {
		t.Fatalf("expected second boot to be a no-op")
	}

	result, err := logins.Login(ctx, LoginInput{Identifier: input.Email, Password: input.Password})
	if err != nil {
		t.Fatalf("superadmin login: %v", err)
	}
	if result.User.Role != model.RoleSuperadmin {
		t.Fatalf("login role = %s, want superadmin", result.User.Role)
	}
}

func TestGetProfile(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend(t, ctx)
	users := NewUserService(backend.repo, backend.cache, backend.audit, backend.recorder)

	voter := seedVoter(t, ctx, backend)

	profile, err := users.GetProfile(ctx, voter.ID)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if profile.Email != voter.Email {
		t.Errorf("profile email = %s, want %s", profile.Email, voter.Email)
	}

	if _, err := users.GetProfile(ctx, "01J0000000000000000000GONE"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected %v, got %v", ErrUserNotFound, err)
	}
}
