package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/washhub/internal/app/features/health"
	"github.com/dalemusser/washhub/internal/testutil"
	"go.uber.org/zap"
)

type response struct {
	Status   string            `json:"status"`
	Database string            `json:"database"`
	Services map[string]string `json:"services"`
}

func serve(t *testing.T, h *health.Handler) (int, response) {
	t.Helper()
	rec := httptest.NewRecorder()
	health.Routes(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want %q", ct, "application/json")
	}
	var resp response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return rec.Code, resp
}

func TestServe(t *testing.T) {
	client := testutil.SetupTestDB(t).Client()
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name     string
		checks   map[string]health.Check
		code     int
		status   string
		services map[string]string
	}{
		{"mongo only", nil, http.StatusOK, "ok", nil},
		{"redis up", map[string]health.Check{"redis": ok}, http.StatusOK, "ok", map[string]string{"redis": "ok"}},
		{"redis down", map[string]health.Check{"redis": down}, http.StatusServiceUnavailable, "error",
			map[string]string{"redis": "unavailable"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := serve(t, health.NewHandler(client, tt.checks, zap.NewNop()))
			if code != tt.code {
				t.Errorf("status code: got %d, want %d", code, tt.code)
			}
			if resp.Status != tt.status || resp.Database != "connected" {
				t.Errorf("body: %+v", resp)
			}
			for k, v := range tt.services {
				if resp.Services[k] != v {
					t.Errorf("services[%s]: got %q, want %q", k, resp.Services[k], v)
				}
			}
		})
	}
}
