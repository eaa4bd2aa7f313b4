package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ballotbox/ballotbox/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 680680

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// applyMigrationPair runs a down then an up migration file.
func applyMigrationPair(ctx context.Context, pool *pgxpool.Pool, name string) error {
	root, err := ProjectRoot()
	if err != nil {
		return err
	}

	downPath := filepath.Join(root, "migrations", name+".down.sql")
	upPath := filepath.Join(root, "migrations", name+".up.sql")

	downSQL, err := os.ReadFile(downPath)
	if err != nil {
		return fmt.Errorf("read %s down migration: %w", name, err)
	}
	if _, err := pool.Exec(ctx, string(downSQL)); err != nil {
		return fmt.Errorf("apply %s down migration: %w", name, err)
	}

	upSQL, err := os.ReadFile(upPath)
	if err != nil {
		return fmt.Errorf("read %s up migration: %w", name, err)
	}
	if _, err := pool.Exec(ctx, string(upSQL)); err != nil {
		return fmt.Errorf("apply %s up migration: %w", name, err)
	}

	return nil
}

// ResetUsersSchema drops and recreates the users schema for tests.
func ResetUsersSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return applyMigrationPair(ctx, pool, "000001_users")
}

// ResetElectionsSchema drops and recreates the elections and candidates schema for tests.
func ResetElectionsSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return applyMigrationPair(ctx, pool, "000002_elections")
}

// ResetVotesSchema drops and recreates the votes schema for tests.
func ResetVotesSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return applyMigrationPair(ctx, pool, "000003_votes")
}

// ResetAuditEventsSchema drops and recreates the audit_events schema for tests.
func ResetAuditEventsSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return applyMigrationPair(ctx, pool, "000004_audit_events")
}

// ResetAllSchemas rebuilds every table and is the safe default for
// cross-table tests. The down migrations drop with CASCADE, so stale
// foreign keys never block a drop; votes must be recreated after
// users, elections, and candidates because it references all three,
// which also makes this order work on a completely empty database.
func ResetAllSchemas(ctx context.Context, pool *pgxpool.Pool) error {
	if err := ResetUsersSchema(ctx, pool); err != nil {
		return err
	}
	if err := ResetElectionsSchema(ctx, pool); err != nil {
		return err
	}
	if err := ResetVotesSchema(ctx, pool); err != nil {
		return err
	}
	return ResetAuditEventsSchema(ctx, pool)
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestUser creates a test user with sensible defaults.
func NewTestUser(t testing.TB, role model.Role) *model.User {
	t.Helper()
	now := time.Now().UTC()
	id := ulid.Make().String()
	studentID := fmt.Sprintf("NAC-%s", id[len(id)-8:])
	level := "100"

	return &model.User{
		ID:           id,
		Name:         "Test User " + id[len(id)-4:],
		Email:        fmt.Sprintf("user-%s@example.edu", id),
		StudentID:    &studentID,
		Level:        &level,
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=4$dGVzdHNhbHQ$dGVzdGhhc2g",
		Role:         role,
		CreatedAt:    now,
	}
}

// NewTestVoter creates a test user with the voter role.
func NewTestVoter(t testing.TB) *model.User {
	t.Helper()
	return NewTestUser(t, model.RoleVoter)
}

// NewTestElection creates an election whose window contains now.
func NewTestElection(t testing.TB) *model.Election {
	t.Helper()
	now := time.Now().UTC()
	return &model.Election{
		ID:        ulid.Make().String(),
		Title:     "Test Election " + UniqueID("run"),
		StartDate: now.Add(-1 * time.Hour),
		EndDate:   now.Add(24 * time.Hour),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestElectionWithWindow creates an election with an explicit voting window.
func NewTestElectionWithWindow(t testing.TB, start, end time.Time) *model.Election {
	t.Helper()
	election := NewTestElection(t)
	election.StartDate = start
	election.EndDate = end
	return election
}

// NewTestCandidate creates a candidate for the given election and position.
func NewTestCandidate(t testing.TB, electionID, position string) *model.Candidate {
	t.Helper()
	now := time.Now().UTC()
	id := ulid.Make().String()
	return &model.Candidate{
		ID:         id,
		ElectionID: electionID,
		Name:       "Candidate " + id[len(id)-4:],
		Position:   position,
		CreatedAt:  now,
	}
}

// NewTestAuditEvent creates an audit event with sensible defaults.
func NewTestAuditEvent(t testing.TB, action string) *model.AuditEvent {
	t.Helper()
	now := time.Now().UTC()
	return &model.AuditEvent{
		ID:         ulid.Make().String(),
		UserID:     UniqueID("user"),
		UserEmail:  fmt.Sprintf("actor-%d@example.edu", now.UnixNano()),
		Action:     action,
		Status:     model.AuditStatusSuccess,
		Details:    "test event",
		OccurredAt: now,
	}
}

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// UniqueEmail generates a unique email address for tests.
func UniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@example.edu", prefix, time.Now().UnixNano())
}
