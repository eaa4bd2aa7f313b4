package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ballotbox/ballotbox/internal/handler/dto"
)

func TestHandler_Root(t *testing.T) {
	h := New("1.2.3")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	h.Root(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	contentType := rec.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", contentType)
	}

	var response dto.ServiceInfo
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Service != "ballotbox" {
		t.Errorf("unexpected service name: %s", response.Service)
	}
	if response.Version != "1.2.3" {
		t.Errorf("unexpected version: %s", response.Version)
	}
	if response.Docs != "/docs" {
		t.Errorf("unexpected docs path: %s", response.Docs)
	}
}

func TestHandler_Fallbacks(t *testing.T) {
	h := New("test")

	testCases := []struct {
		name       string
		serve      http.HandlerFunc
		wantStatus int
		wantCode   string
	}{
		{"not found", h.NotFound, http.StatusNotFound, "RESOURCE_NOT_FOUND"},
		{"method not allowed", h.MethodNotAllowed, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
			rec := httptest.NewRecorder()

			tc.serve(rec, req)

			if rec.Code != tc.wantStatus {
				t.Errorf("expected status %d, got %d", tc.wantStatus, rec.Code)
			}

			var response dto.ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}

			if response.Code != tc.wantCode {
				t.Errorf("expected code %s, got %s", tc.wantCode, response.Code)
			}
			if response.Error == "" {
				t.Error("expected a human-readable error message")
			}
		})
	}
}
