package util

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestWithRequestIDPropagatesIncomingHeader(t *testing.T) {
	const incoming = "req-incoming-123"
	handler := WithRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := RequestIDFromRequest(r); got != incoming {
			t.Fatalf("unexpected request id in context: got %q want %q", got, incoming)
		}
		if LoggerFromContext(r.Context()) == nil {
			t.Fatal("expected request-scoped logger")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", incoming)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-Id"); got != incoming {
		t.Fatalf("unexpected response request id: got %q want %q", got, incoming)
	}
}

func TestWithRequestIDGeneratesWhenMissing(t *testing.T) {
	var seen string
	handler := WithRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromRequest(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	got := rec.Header().Get("X-Request-Id")
	if got == "" || got != seen {
		t.Fatalf("expected generated request id in header and context, got %q / %q", got, seen)
	}
	if _, err := uuid.Parse(got); err != nil {
		t.Fatalf("generated id should be a uuid: %v", err)
	}
}

func TestWithRequestIDReplacesOversizedHeader(t *testing.T) {
	handler := WithRequestID(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", strings.Repeat("x", 200))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-Id"); len(got) > 128 {
		t.Fatalf("oversized id should be replaced, got %d bytes", len(got))
	}
}
