package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// stubChecker implements HealthChecker with a fixed answer.
type stubChecker struct {
	err error
}

func (s *stubChecker) Ping(ctx context.Context) error {
	return s.err
}

func TestHealthz(t *testing.T) {
	h := NewHealthHandler(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	h.Healthz(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	var response HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Status != "ok" {
		t.Errorf("expected status 'ok', got %s", response.Status)
	}
}

func TestReadyz(t *testing.T) {
	down := &stubChecker{err: errors.New("connection refused")}
	up := &stubChecker{}

	testCases := []struct {
		name         string
		db           HealthChecker
		cache        HealthChecker
		wantStatus   int
		wantState    string
		wantPostgres string
		wantRedis    string
	}{
		{"all healthy", up, up, http.StatusOK, "ok", "ok", "ok"},
		{"postgres down", down, up, http.StatusServiceUnavailable, "unhealthy", "error: connection refused", "ok"},
		{"redis down", up, down, http.StatusServiceUnavailable, "unhealthy", "ok", "error: connection refused"},
		{"nothing wired", nil, nil, http.StatusOK, "ok", "not configured", "not configured"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHealthHandler(tc.db, tc.cache)

			req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
			rec := httptest.NewRecorder()

			h.Readyz(rec, req)

			if rec.Code != tc.wantStatus {
				t.Errorf("expected status %d, got %d", tc.wantStatus, rec.Code)
			}

			var response HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}

			if response.Status != tc.wantState {
				t.Errorf("expected state %q, got %q", tc.wantState, response.Status)
			}
			if response.Checks["postgres"] != tc.wantPostgres {
				t.Errorf("unexpected postgres check: %q", response.Checks["postgres"])
			}
			if response.Checks["redis"] != tc.wantRedis {
				t.Errorf("unexpected redis check: %q", response.Checks["redis"])
			}
		})
	}
}
