package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/washhub/internal/app/system/auth"
)

// Identity returns a test identity for uid.
func Identity(uid string) auth.Identity {
	return auth.Identity{
		UID:         uid,
		DisplayName: "User " + uid,
		Email:       uid + "@test.com",
	}
}

// NewRequest creates an HTTP request for testing. A non-nil body is
// JSON-encoded.
func NewRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// NewAuthenticatedRequest creates an HTTP request with uid's identity in context.
func NewAuthenticatedRequest(t *testing.T, method, target, uid string, body any) *http.Request {
	t.Helper()
	return auth.WithTestIdentity(NewRequest(t, method, target, body), Identity(uid))
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// Envelope mirrors the JSON response envelope.
type Envelope struct {
	OK      bool            `json:"ok"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d (body %s)", r.Code, expected, r.Body.String())
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t interface{ Errorf(string, ...any) }, expected string) {
	if !strings.Contains(r.Body.String(), expected) {
		t.Errorf("response body does not contain %q", expected)
	}
}

// Envelope decodes the body. Data is left raw for DecodeData.
func (r *ResponseRecorder) Envelope(t *testing.T) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(r.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, r.Body.String())
	}
	return env
}

// DecodeData decodes the envelope's data field into v.
func (r *ResponseRecorder) DecodeData(t *testing.T, v any) {
	t.Helper()
	env := r.Envelope(t)
	if !env.OK {
		t.Fatalf("response not ok: %s %s", env.Code, env.Message)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}
