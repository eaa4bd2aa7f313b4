package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ballotbox/ballotbox/internal/audit"
	"github.com/ballotbox/ballotbox/internal/auth"
	"github.com/ballotbox/ballotbox/internal/cache"
	"github.com/ballotbox/ballotbox/internal/metrics"
	"github.com/ballotbox/ballotbox/internal/model"
	"github.com/ballotbox/ballotbox/internal/repository"
	"github.com/ballotbox/ballotbox/internal/testutil"
)

func testTokenManager() *auth.TokenManager {
	return auth.NewTokenManager("test-secret-at-least-32-bytes-long!", "ballotbox-test", time.Hour)
}

// testBackend bundles the real dependencies the services run against.
// Tests are skipped unless DATABASE_URL and REDIS_URL are set.
type testBackend struct {
	repo     *repository.Repository
	cache    *cache.Cache
	events   *repository.AuditEventRepository
	recorder *metrics.InMemoryRecorder
	audit    *audit.Publisher
}

func newTestBackend(t *testing.T, ctx context.Context) *testBackend {
	t.Helper()

	dbURL := testutil.RequireEnv(t, "DATABASE_URL")
	redisURL := testutil.RequireEnv(t, "REDIS_URL")

	repo, err := repository.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(repo.Close)

	unlock, err := testutil.AcquireDBLock(ctx, repo.Pool())
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if err := testutil.ResetAllSchemas(ctx, repo.Pool()); err != nil {
		t.Fatalf("reset schema: %v", err)
	}

	cacheClient, err := cache.New(ctx, redisURL)
	if err != nil {
		t.Fatalf("create cache: %v", err)
	}
	t.Cleanup(func() {
		_ = cacheClient.Close()
	})

	if err := testutil.FlushRedis(ctx, cacheClient.Client()); err != nil {
		t.Fatalf("flush redis: %v", err)
	}

	events := repository.NewAuditEventRepository(repo)
	recorder := metrics.NewInMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	publisher := audit.NewPublisher(cacheClient.Client(), events, logger, recorder)

	return &testBackend{
		repo:     repo,
		cache:    cacheClient,
		events:   events,
		recorder: recorder,
		audit:    publisher,
	}
}

// seedVoterWithPassword registers a voter directly through the repo with
// a real Argon2 hash of the given password.
func seedVoterWithPassword(t *testing.T, ctx context.Context, b *testBackend, password string) *model.User {
	t.Helper()

	svc := NewAuthService(b.repo, b.cache, testTokenManager(), b.audit, b.recorder)
	user, err := svc.Register(ctx, RegisterInput{
		Name:      "Seed Voter",
		Email:     testutil.UniqueEmail("voter"),
		StudentID: testutil.UniqueID("SID"),
		Level:     "300",
		Password:  password,
	})
	if err != nil {
		t.Fatalf("seed voter: %v", err)
	}
	return user
}

// seedBallotFixtures inserts an ongoing election with three candidates
// across two positions.
func seedBallotFixtures(t *testing.T, ctx context.Context, b *testBackend) (*model.Election, []*model.Candidate) {
	t.Helper()

	election := testutil.NewTestElection(t)
	if err := b.repo.CreateElection(ctx, election); err != nil {
		t.Fatalf("seed election: %v", err)
	}

	positions := []string{"President", "President", "Secretary"}
	candidates := make([]*model.Candidate, 0, len(positions))
	for _, position := range positions {
		candidate := testutil.NewTestCandidate(t, election.ID, position)
		if err := b.repo.CreateCandidate(ctx, candidate); err != nil {
			t.Fatalf("seed candidate: %v", err)
		}
		candidates = append(candidates, candidate)
	}

	return election, candidates
}
