package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/angelmondragon/partnerhub-backend/pkg/logger"
)

func TestRequestIDKeepsUsableHeader(t *testing.T) {
	var seen string
	handler := RequestID(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "trace-abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != "trace-abc-123" {
		t.Fatalf("expected caller id in context, got %q", seen)
	}
	if got := rec.Header().Get(requestIDHeader); got != "trace-abc-123" {
		t.Fatalf("expected caller id echoed, got %q", got)
	}
}

func TestRequestIDReplacesUnusableHeader(t *testing.T) {
	for _, bad := range []string{"", "has space", strings.Repeat("x", maxRequestIDLen+1)} {
		var seen string
		handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = RequestIDFromContext(r.Context())
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(requestIDHeader, bad)
		handler.ServeHTTP(httptest.NewRecorder(), req)

		if seen == "" || seen == bad {
			t.Fatalf("expected minted id for %q, got %q", bad, seen)
		}
	}
}

func TestRecovererWritesInternalEnvelope(t *testing.T) {
	handler := Recoverer(logger.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/referrals", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"INTERNAL_ERROR"`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "kaboom") {
		t.Fatalf("panic value leaked: %s", rec.Body.String())
	}
}

func TestRecovererReraisesAbort(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Fatalf("expected abort to propagate, got %v", rec)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}
