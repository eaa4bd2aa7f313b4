package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ballotbox/ballotbox/internal/audit"
	"github.com/ballotbox/ballotbox/internal/auth"
	"github.com/ballotbox/ballotbox/internal/cache"
	"github.com/ballotbox/ballotbox/internal/handler/dto"
	"github.com/ballotbox/ballotbox/internal/metrics"
	"github.com/ballotbox/ballotbox/internal/middleware"
	"github.com/ballotbox/ballotbox/internal/model"
	"github.com/ballotbox/ballotbox/internal/repository"
	"github.com/ballotbox/ballotbox/internal/service"
	"github.com/ballotbox/ballotbox/internal/testutil"
	"github.com/ballotbox/ballotbox/internal/upload"
)

// testServer wires the full API surface against live postgres and
// redis, with rate limiting off and logs discarded.
type testServer struct {
	router   *chi.Mux
	repo     *repository.Repository
	cache    *cache.Cache
	events   *repository.AuditEventRepository
	recorder *metrics.InMemoryRecorder
	users    *service.UserService
	logger   *slog.Logger
}

func newTestServer(t *testing.T, ctx context.Context) *testServer {
	t.Helper()

	dbURL := testutil.RequireEnv(t, "DATABASE_URL")
	redisURL := testutil.RequireEnv(t, "REDIS_URL")

	repo, err := repository.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
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
		t.Fatalf("reset schemas: %v", err)
	}

	cacheClient, err := cache.New(ctx, redisURL)
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() {
		_ = cacheClient.Close()
	})

	if err := testutil.FlushRedis(ctx, cacheClient.Client()); err != nil {
		t.Fatalf("flush redis: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	recorder := metrics.NewInMemory()
	events := repository.NewAuditEventRepository(repo)
	publisher := audit.NewPublisher(cacheClient.Client(), events, logger, recorder)
	tokens := auth.NewTokenManager("integration-secret-32-bytes-long!", "ballotbox-test", time.Hour)

	photoStore, err := upload.NewStore(t.TempDir(), 1<<20)
	if err != nil {
		t.Fatalf("create photo store: %v", err)
	}

	authSvc := service.NewAuthService(repo, cacheClient, tokens, publisher, recorder)
	userSvc := service.NewUserService(repo, cacheClient, publisher, recorder)
	electionSvc := service.NewElectionService(repo, photoStore, publisher, recorder)
	voteSvc := service.NewVoteService(repo, cacheClient, publisher, recorder)
	resultsSvc := service.NewResultsService(repo, cacheClient, recorder)
	trailSvc := service.NewAuditTrailService(events)

	base := New("test")
	authHandler := NewAuthHandler(authSvc, logger)
	userHandler := NewUserHandler(userSvc, logger)
	electionHandler := NewElectionHandler(electionSvc, voteSvc, resultsSvc, logger)
	adminHandler := NewAdminHandler(electionSvc, resultsSvc, logger)
	staffHandler := NewStaffHandler(userSvc, logger)
	auditorHandler := NewAuditorHandler(resultsSvc, trailSvc, logger)

	router := chi.NewRouter()
	router.NotFound(base.NotFound)
	router.MethodNotAllowed(base.MethodNotAllowed)
	router.Get("/", base.Root)

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/token", authHandler.Login)
		r.Post("/users/register", authHandler.Register)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(middleware.AuthConfig{
				Logger:     logger,
				Tokens:     tokens,
				Repository: repo,
				Cache:      cacheClient,
				Metrics:    recorder,
			}))

			r.Get("/users/me", userHandler.Me)
			r.Get("/elections/current", electionHandler.Current)
			r.Get("/elections/results/live", electionHandler.LiveResults)
			r.With(middleware.RequireVoter()).Post("/elections/{id}/vote", electionHandler.Vote)
			r.With(middleware.RequireAdmin()).Get("/elections/stats/voters", electionHandler.VoterStats)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdmin())
				r.Get("/overview", adminHandler.Overview)
				r.Get("/elections", adminHandler.ListElections)
				r.Post("/elections", adminHandler.CreateElection)
				r.Get("/elections/{id}", adminHandler.GetElection)
				r.Put("/elections/{id}", adminHandler.UpdateElection)
				r.Post("/elections/{id}/candidates", adminHandler.AddCandidate)
				r.Get("/auditors", staffHandler.List(model.RoleAuditor))
				r.Post("/auditors", staffHandler.Create(model.RoleAuditor))
				r.Delete("/auditors/{id}", staffHandler.Delete(model.RoleAuditor))
			})

			r.Route("/superadmin", func(r chi.Router) {
				r.Use(middleware.RequireSuperadmin())
				r.Get("/admins", staffHandler.List(model.RoleAdmin))
				r.Post("/admins", staffHandler.Create(model.RoleAdmin))
				r.Delete("/admins/{id}", staffHandler.Delete(model.RoleAdmin))
			})

			r.Route("/auditor", func(r chi.Router) {
				r.Use(middleware.RequireAuditor())
				r.Get("/results/live", auditorHandler.OngoingResults)
			})
			r.With(middleware.RequireAuditor()).Get("/audit-logs", auditorHandler.AuditLogs)
		})
	})

	return &testServer{
		router:   router,
		repo:     repo,
		cache:    cacheClient,
		events:   events,
		recorder: recorder,
		users:    userSvc,
		logger:   logger,
	}
}

// do sends a JSON request through the router.
func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

// decode unmarshals a recorded response body into dst.
func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// errorCode extracts the error code from a recorded response.
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp dto.ErrorResponse
	decode(t, rec, &resp)
	return resp.Code
}

// registerVoter creates a voter through the API and returns the
// credentials used.
func (ts *testServer) registerVoter(t *testing.T) (email, studentID, password string) {
	t.Helper()

	email = testutil.UniqueEmail("voter")
	studentID = testutil.UniqueID("SID")
	password = "ballot-secret-1"

	rec := ts.do(t, http.MethodPost, "/api/v1/users/register", "", dto.RegisterRequest{
		Name:      "Integration Voter",
		Email:     email,
		StudentID: studentID,
		Level:     "ND1",
		Password:  password,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register voter: status %d body %s", rec.Code, rec.Body.String())
	}
	return email, studentID, password
}

// login exchanges credentials for an access token through the API.
func (ts *testServer) login(t *testing.T, identifier, password string) *dto.TokenResponse {
	t.Helper()

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/token", "", dto.LoginRequest{
		Identifier: identifier,
		Password:   password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", identifier, rec.Code, rec.Body.String())
	}

	var resp dto.TokenResponse
	decode(t, rec, &resp)
	return &resp
}

// seedSuperadmin bootstraps the superadmin and returns its token.
func (ts *testServer) seedSuperadmin(t *testing.T, ctx context.Context) string {
	t.Helper()

	_, created, err := ts.users.EnsureSuperadmin(ctx, service.EnsureSuperadminInput{
		Name:     "Root",
		Email:    "root@ballotbox.test",
		Password: "rootpass-123",
	})
	if err != nil {
		t.Fatalf("ensure superadmin: %v", err)
	}
	if !created {
		t.Fatal("expected superadmin to be created on a clean schema")
	}
	return ts.login(t, "root@ballotbox.test", "rootpass-123").AccessToken
}

// seedStaff provisions a staff account directly and returns its token.
func (ts *testServer) seedStaff(t *testing.T, ctx context.Context, role model.Role) string {
	t.Helper()

	email := testutil.UniqueEmail(string(role))
	_, err := ts.users.CreateStaff(ctx, service.CreateStaffInput{
		Name:     "Seeded Staff",
		Email:    email,
		Password: "staff-pass-123",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("seed %s: %v", role, err)
	}
	return ts.login(t, email, "staff-pass-123").AccessToken
}

// seedBallot creates an ongoing election with three candidates in two
// positions, bypassing the API.
func (ts *testServer) seedBallot(t *testing.T, ctx context.Context) (electionID string, candidateIDs []string) {
	t.Helper()

	now := time.Now().UTC()
	election := testutil.NewTestElectionWithWindow(t, now.Add(-time.Hour), now.Add(time.Hour))
	if err := ts.repo.CreateElection(ctx, election); err != nil {
		t.Fatalf("create election: %v", err)
	}

	positions := []string{"President", "President", "Secretary"}
	ids := make([]string, 0, len(positions))
	for _, position := range positions {
		candidate := testutil.NewTestCandidate(t, election.ID, position)
		if err := ts.repo.CreateCandidate(ctx, candidate); err != nil {
			t.Fatalf("create candidate: %v", err)
		}
		ids = append(ids, candidate.ID)
	}
	return election.ID, ids
}

func TestRegisterLoginMeFlow(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t, ctx)

	email, studentID, password := ts.registerVoter(t)

	token := ts.login(t, email, password)
	if token.TokenType != "bearer" {
		t.Errorf("expected token_type bearer, got %s", token.TokenType)
	}
	if token.ExpiresIn <= 0 {
		t.Errorf("expected positive expires_in, got %d", token.ExpiresIn)
	}
	if token.User == nil || token.User.Email != email {
		t.Fatalf("token user does not match registration: %+v", token.User)
	}
	if token.User.Role != string(model.RoleVoter) {
		t.Errorf("expected voter role, got %s", token.User.Role)
	}

	// Student ID works as the identifier too.
	byStudentID := ts.login(t, studentID, password)
	if byStudentID.User.ID != token.User.ID {
		t.Error("student ID login resolved a different account")
	}

	rec := ts.do(t, http.MethodGet, "/api/v1/users/me", token.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: status %d", rec.Code)
	}
	meBody := rec.Body.Bytes()
	var me dto.UserResponse
	if err := json.Unmarshal(meBody, &me); err != nil {
		t.Fatalf("decode me response: %v", err)
	}
	if me.ID != token.User.ID || me.Email != email {
		t.Errorf("me returned wrong account: %+v", me)
	}
	if me.StudentID == nil || *me.StudentID != studentID {
		t.Error("me response missing student ID")
	}

	// Password material never leaves the service.
	if bytes.Contains(meBody, []byte("password")) {
		t.Error("profile response leaks password fields")
	}

	rec = ts.do(t, http.MethodPost, "/api/v1/auth/token", "", dto.LoginRequest{
		Identifier: email,
		Password:   "wrong-password-1",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "INVALID_CREDENTIALS" {
		t.Errorf("expected INVALID_CREDENTIALS, got %s", code)
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/users/me", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	// Expired tokens are told apart from garbage ones.
	expiredIssuer := auth.NewTokenManager("integration-secret-32-bytes-long!", "ballotbox-test", -time.Minute)
	expiredToken, _, err := expiredIssuer.Issue(&model.User{
		ID:    token.User.ID,
		Email: email,
		Role:  model.RoleVoter,
	})
	if err != nil {
		t.Fatalf("issue expired token: %v", err)
	}
	rec = ts.do(t, http.MethodGet, "/api/v1/users/me", expiredToken, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "TOKEN_EXPIRED" {
		t.Errorf("expected TOKEN_EXPIRED, got %s", code)
	}
}

func TestRegisterValidationOverHTTP(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t, ctx)

	base := dto.RegisterRequest{
		Name:      "Valid Name",
		Email:     testutil.UniqueEmail("validation"),
		StudentID: testutil.UniqueID("SID"),
		Level:     "ND1",
		Password:  "long-enough-1",
	}

	testCases := []struct {
		name     string
		mutate   func(r *dto.RegisterRequest)
		wantCode string
	}{
		{"bad email", func(r *dto.RegisterRequest) { r.Email = "not-an-email" }, "VALIDATION_ERROR"},
		{"short password", func(r *dto.RegisterRequest) { r.Password = "short" }, "VALIDATION_ERROR"},
		{"HND without course", func(r *dto.RegisterRequest) { r.Level = "HND1"; r.Course = "" }, "COURSE_REQUIRED"},
		{"blank name", func(r *dto.RegisterRequest) { r.Name = "" }, "VALIDATION_ERROR"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := base
			tc.mutate(&req)

			rec := ts.do(t, http.MethodPost, "/api/v1/users/register", "", req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if code := errorCode(t, rec); code != tc.wantCode {
				t.Errorf("expected %s, got %s", tc.wantCode, code)
			}
		})
	}

	// Conflict after a successful registration.
	rec := ts.do(t, http.MethodPost, "/api/v1/users/register", "", base)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status %d", rec.Code)
	}
	dup := base
	dup.StudentID = testutil.UniqueID("SID")
	rec = ts.do(t, http.MethodPost, "/api/v1/users/register", "", dup)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "EMAIL_TAKEN" {
		t.Errorf("expected EMAIL_TAKEN, got %s", code)
	}
}

func TestVotingOverHTTP(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t, ctx)

	electionID, candidateIDs := ts.seedBallot(t, ctx)
	email, _, password := ts.registerVoter(t)
	voterToken := ts.login(t, email, password).AccessToken
	adminToken := ts.seedStaff(t, ctx, model.RoleAdmin)

	votePath := "/api/v1/elections/" + electionID + "/vote"

	rec := ts.do(t, http.MethodPost, votePath, voterToken, dto.VoteRequest{
		CandidateIDs: []string{candidateIDs[0], candidateIDs[2]},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("vote: status %d body %s", rec.Code, rec.Body.String())
	}

	receiptBody := rec.Body.Bytes()
	var receipt dto.VoteReceiptResponse
	if err := json.Unmarshal(receiptBody, &receipt); err != nil {
		t.Fatalf("decode receipt: %v", err)
	}
	if receipt.Status != "success" {
		t.Errorf("expected status success, got %s", receipt.Status)
	}
	receiptPattern := regexp.MustCompile(`^VOTE-\d{4}-[A-F0-9]{10}$`)
	if !receiptPattern.MatchString(receipt.ReceiptID) {
		t.Errorf("malformed receipt %q", receipt.ReceiptID)
	}
	if receipt.VotesCast != 2 {
		t.Errorf("expected 2 votes cast, got %d", receipt.VotesCast)
	}
	// The receipt must not disclose the selection.
	if bytes.Contains(receiptBody, []byte(candidateIDs[0])) {
		t.Error("receipt leaks candidate IDs")
	}

	// Voting again in the same election is rejected.
	rec = ts.do(t, http.MethodPost, votePath, voterToken, dto.VoteRequest{
		CandidateIDs: []string{candidateIDs[1]},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on second ballot, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "ALREADY_VOTED" {
		t.Errorf("expected ALREADY_VOTED, got %s", code)
	}

	// Staff roles cannot vote, superadmin included.
	rec = ts.do(t, http.MethodPost, votePath, adminToken, dto.VoteRequest{
		CandidateIDs: []string{candidateIDs[0]},
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for admin vote, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "VOTER_ROLE_REQUIRED" {
		t.Errorf("expected VOTER_ROLE_REQUIRED, got %s", code)
	}

	// Unknown election.
	other, _, otherPassword := ts.registerVoter(t)
	otherToken := ts.login(t, other, otherPassword).AccessToken
	rec = ts.do(t, http.MethodPost, "/api/v1/elections/does-not-exist/vote", otherToken, dto.VoteRequest{
		CandidateIDs: []string{candidateIDs[0]},
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown election, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "ELECTION_NOT_FOUND" {
		t.Errorf("expected ELECTION_NOT_FOUND, got %s", code)
	}

	// The accepted ballot shows up in the live tally.
	rec = ts.do(t, http.MethodGet, "/api/v1/elections/results/live", voterToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("live results: status %d", rec.Code)
	}
	var live model.LiveResults
	decode(t, rec, &live)
	if live.TotalVotes != 2 {
		t.Errorf("expected 2 total votes, got %d", live.TotalVotes)
	}
	if len(live.Candidates) != 3 {
		t.Errorf("expected 3 candidates in tally, got %d", len(live.Candidates))
	}

	// Participation stats are admin-only.
	rec = ts.do(t, http.MethodGet, "/api/v1/elections/stats/voters", voterToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for voter on stats, got %d", rec.Code)
	}
	rec = ts.do(t, http.MethodGet, "/api/v1/elections/stats/voters", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("voter stats: status %d", rec.Code)
	}
	var stats model.VoterStats
	decode(t, rec, &stats)
	if stats.TotalVoters != 2 {
		t.Errorf("expected 2 voters, got %d", stats.TotalVoters)
	}
	if stats.TotalVotesCast != 2 {
		t.Errorf("expected 2 recorded votes, got %d", stats.TotalVotesCast)
	}
}

func TestElectionManagementOverHTTP(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t, ctx)

	superToken := ts.seedSuperadmin(t, ctx)

	// Superadmin provisions an admin over the API.
	adminEmail := testutil.UniqueEmail("admin")
	rec := ts.do(t, http.MethodPost, "/api/v1/superadmin/admins", superToken, dto.CreateStaffRequest{
		Name:     "Election Admin",
		Email:    adminEmail,
		Password: "admin-pass-123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create admin: status %d body %s", rec.Code, rec.Body.String())
	}
	var admin dto.UserResponse
	decode(t, rec, &admin)
	if admin.Role != string(model.RoleAdmin) {
		t.Errorf("expected admin role, got %s", admin.Role)
	}
	adminToken := ts.login(t, adminEmail, "admin-pass-123").AccessToken

	// Create an upcoming election.
	start := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	end := start.Add(8 * time.Hour)
	rec = ts.do(t, http.MethodPost, "/api/v1/admin/elections", adminToken, dto.CreateElectionRequest{
		Title:     "Departmental Elections",
		StartDate: start,
		EndDate:   end,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create election: status %d body %s", rec.Code, rec.Body.String())
	}
	var election dto.ElectionResponse
	decode(t, rec, &election)
	if election.Status != string(model.ElectionUpcoming) {
		t.Errorf("expected upcoming status, got %s", election.Status)
	}
	if election.Candidates == nil || len(election.Candidates) != 0 {
		t.Errorf("expected empty candidate list, got %v", election.Candidates)
	}

	// Bad window is rejected.
	rec = ts.do(t, http.MethodPost, "/api/v1/admin/elections", adminToken, dto.CreateElectionRequest{
		Title:     "Backwards",
		StartDate: end,
		EndDate:   start,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad window, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "INVALID_WINDOW" {
		t.Errorf("expected INVALID_WINDOW, got %s", code)
	}

	// Partial update: title only.
	newTitle := "Departmental Elections 2026"
	rec = ts.do(t, http.MethodPut, "/api/v1/admin/elections/"+election.ID, adminToken, dto.UpdateElectionRequest{
		Title: &newTitle,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update election: status %d body %s", rec.Code, rec.Body.String())
	}
	var updated dto.ElectionResponse
	decode(t, rec, &updated)
	if updated.Title != newTitle {
		t.Errorf("title not updated: %s", updated.Title)
	}
	if !updated.StartDate.Equal(election.StartDate) {
		t.Error("start date changed on a title-only update")
	}

	// Ghost election.
	rec = ts.do(t, http.MethodPut, "/api/v1/admin/elections/ghost", adminToken, dto.UpdateElectionRequest{Title: &newTitle})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for ghost election, got %d", rec.Code)
	}

	// Add a candidate with a photo.
	rec = ts.postCandidate(t, adminToken, election.ID, "Ada Lovelace", "President", pngBytes(64))
	if rec.Code != http.StatusCreated {
		t.Fatalf("add candidate: status %d body %s", rec.Code, rec.Body.String())
	}
	var candidate dto.CandidateResponse
	decode(t, rec, &candidate)
	if candidate.PhotoURL == nil {
		t.Fatal("expected a photo URL")
	}
	if got := *candidate.PhotoURL; len(got) == 0 || got[0] != '/' {
		t.Errorf("expected a rooted photo URL, got %q", got)
	}

	// Non-image uploads are rejected.
	rec = ts.postCandidate(t, adminToken, election.ID, "Mallory", "President", []byte("GIF89a not allowed"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad photo, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "INVALID_PHOTO" {
		t.Errorf("expected INVALID_PHOTO, got %s", code)
	}

	// Detail view carries the surviving candidate.
	rec = ts.do(t, http.MethodGet, "/api/v1/admin/elections/"+election.ID, adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get election: status %d", rec.Code)
	}
	var detail dto.ElectionResponse
	decode(t, rec, &detail)
	if len(detail.Candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(detail.Candidates))
	}
	if detail.Candidates[0].Name != "Ada Lovelace" {
		t.Errorf("unexpected candidate: %s", detail.Candidates[0].Name)
	}

	// The election shows in the list and in the overview.
	rec = ts.do(t, http.MethodGet, "/api/v1/admin/elections", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list elections: status %d", rec.Code)
	}
	var list dto.ElectionListResponse
	decode(t, rec, &list)
	if list.Total != 1 {
		t.Errorf("expected 1 election, got %d", list.Total)
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/admin/overview", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("overview: status %d", rec.Code)
	}
	var overview dto.OverviewResponse
	decode(t, rec, &overview)
	if overview.Stats == nil {
		t.Fatal("overview missing stats")
	}
	if len(overview.Results) != 1 {
		t.Errorf("expected 1 tally row, got %d", len(overview.Results))
	}
}

func TestStaffRouteGuards(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t, ctx)

	superToken := ts.seedSuperadmin(t, ctx)
	adminToken := ts.seedStaff(t, ctx, model.RoleAdmin)
	auditorToken := ts.seedStaff(t, ctx, model.RoleAuditor)

	// Admin cannot manage admins.
	rec := ts.do(t, http.MethodGet, "/api/v1/superadmin/admins", adminToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for admin on superadmin routes, got %d", rec.Code)
	}

	// Auditor cannot manage anything.
	rec = ts.do(t, http.MethodGet, "/api/v1/admin/auditors", auditorToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for auditor on admin routes, got %d", rec.Code)
	}

	// Superadmin passes the admin gate.
	rec = ts.do(t, http.MethodGet, "/api/v1/admin/auditors", superToken, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected superadmin to pass admin gate, got %d", rec.Code)
	}

	// Admin manages auditors.
	auditorEmail := testutil.UniqueEmail("auditor")
	rec = ts.do(t, http.MethodPost, "/api/v1/admin/auditors", adminToken, dto.CreateStaffRequest{
		Name:     "Trail Reader",
		Email:    auditorEmail,
		Password: "auditor-pass-1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create auditor: status %d body %s", rec.Code, rec.Body.String())
	}
	var created dto.UserResponse
	decode(t, rec, &created)

	rec = ts.do(t, http.MethodGet, "/api/v1/admin/auditors", adminToken, nil)
	var auditors dto.UserListResponse
	decode(t, rec, &auditors)
	if auditors.Total != 2 {
		t.Errorf("expected 2 auditors, got %d", auditors.Total)
	}

	rec = ts.do(t, http.MethodDelete, "/api/v1/admin/auditors/"+created.ID, adminToken, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete auditor: status %d", rec.Code)
	}

	rec = ts.do(t, http.MethodDelete, "/api/v1/admin/auditors/"+created.ID, adminToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on re-delete, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "AUDITOR_NOT_FOUND" {
		t.Errorf("expected AUDITOR_NOT_FOUND, got %s", code)
	}

	// Deleting an admin through the auditor route cannot work.
	rec = ts.do(t, http.MethodGet, "/api/v1/superadmin/admins", superToken, nil)
	var admins dto.UserListResponse
	decode(t, rec, &admins)
	if admins.Total != 1 {
		t.Fatalf("expected 1 admin, got %d", admins.Total)
	}
	rec = ts.do(t, http.MethodDelete, "/api/v1/admin/auditors/"+admins.Data[0].ID, superToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 when deleting an admin via the auditor route, got %d", rec.Code)
	}

	// Unknown API paths fall through to the JSON 404.
	rec = ts.do(t, http.MethodGet, "/api/v1/nonexistent", superToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "RESOURCE_NOT_FOUND" {
		t.Errorf("expected RESOURCE_NOT_FOUND, got %s", code)
	}
}

func TestAuditTrailOverHTTP(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t, ctx)

	// Run the stream consumer like production does.
	worker := audit.NewWorker(ts.cache.Client(), ts.events, ts.logger, "test-consumer", ts.recorder)
	worker.SetBlockTimeout(200 * time.Millisecond)
	worker.SetClaimInterval(200 * time.Millisecond)
	worker.SetMetricsInterval(200 * time.Millisecond)

	workerCtx, cancel := context.WithCancel(ctx)
	workerErr := make(chan error, 1)
	go func() {
		workerErr <- worker.Run(workerCtx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-workerErr:
		case <-time.After(2 * time.Second):
		}
	})

	electionID, candidateIDs := ts.seedBallot(t, ctx)
	email, _, password := ts.registerVoter(t)
	voterToken := ts.login(t, email, password).AccessToken
	auditorToken := ts.seedStaff(t, ctx, model.RoleAuditor)

	rec := ts.do(t, http.MethodPost, "/api/v1/elections/"+electionID+"/vote", voterToken, dto.VoteRequest{
		CandidateIDs: []string{candidateIDs[0]},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("vote: status %d body %s", rec.Code, rec.Body.String())
	}

	// Registration, logins, and the ballot all flow through the redis
	// stream before landing in postgres. Poll until the vote arrives.
	query := url.Values{"action": {model.ActionSubmitVote}}
	path := "/api/v1/audit-logs?" + query.Encode()
	deadline := time.Now().Add(5 * time.Second)
	var page dto.AuditLogListResponse
	for {
		rec = ts.do(t, http.MethodGet, path, auditorToken, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("audit logs: status %d body %s", rec.Code, rec.Body.String())
		}
		decode(t, rec, &page)
		if len(page.Data) >= 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("vote audit event never arrived, got %d events", len(page.Data))
		}
		time.Sleep(100 * time.Millisecond)
	}

	entry := page.Data[0]
	if entry.Action != model.ActionSubmitVote {
		t.Errorf("expected %s action, got %s", model.ActionSubmitVote, entry.Action)
	}
	if entry.Status != model.AuditStatusSuccess {
		t.Errorf("expected success status, got %s", entry.Status)
	}
	if entry.UserEmail != email {
		t.Errorf("expected actor %s, got %s", email, entry.UserEmail)
	}
	if entry.Timestamp.IsZero() {
		t.Error("expected a timestamp")
	}
	// The trail references the receipt, never the candidates.
	for _, id := range candidateIDs {
		if bytes.Contains([]byte(entry.Details), []byte(id)) {
			t.Error("audit details leak candidate IDs")
		}
	}

	// Voters cannot read the trail.
	rec = ts.do(t, http.MethodGet, "/api/v1/audit-logs", voterToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for voter on audit logs, got %d", rec.Code)
	}

	// Filter validation.
	rec = ts.do(t, http.MethodGet, "/api/v1/audit-logs?action="+url.QueryEscape("Reboot Server"), auditorToken, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown action, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "UNKNOWN_ACTION" {
		t.Errorf("expected UNKNOWN_ACTION, got %s", code)
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/audit-logs?cursor=not-base64-json", auditorToken, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad cursor, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "INVALID_CURSOR" {
		t.Errorf("expected INVALID_CURSOR, got %s", code)
	}
}

// postCandidate submits a multipart candidate form with a photo.
func (ts *testServer) postCandidate(t *testing.T, token, electionID, name, position string, photo []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if err := form.WriteField("name", name); err != nil {
		t.Fatalf("write name field: %v", err)
	}
	if err := form.WriteField("position", position); err != nil {
		t.Fatalf("write position field: %v", err)
	}
	if err := form.WriteField("level", "ND2"); err != nil {
		t.Fatalf("write level field: %v", err)
	}
	if err := form.WriteField("manifesto", "A fair ballot for everyone."); err != nil {
		t.Fatalf("write manifesto field: %v", err)
	}
	part, err := form.CreateFormFile("photo", "portrait.png")
	if err != nil {
		t.Fatalf("create photo part: %v", err)
	}
	if _, err := part.Write(photo); err != nil {
		t.Fatalf("write photo: %v", err)
	}
	if err := form.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}

	path := fmt.Sprintf("/api/v1/admin/elections/%s/candidates", electionID)
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

// pngBytes returns a buffer that sniffs as PNG.
func pngBytes(size int) []byte {
	header := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	if size < len(header) {
		return header
	}
	buf := make([]byte, size)
	copy(buf, header)
	return buf
}
