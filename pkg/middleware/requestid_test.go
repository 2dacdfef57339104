package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/strata-dev/strata/pkg/server"
)

func TestRequestIDGeneratesID(t *testing.T) {
	ctx, rec := newTestContext(t, http.MethodGet, "/")

	var seen string
	err := RequestID().Handle(ctx, func() error {
		seen = GetRequestID(ctx)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen == "" {
		t.Fatal("expected an ID during the request")
	}
	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("generated ID %q is not a UUID: %v", seen, err)
	}
	if got := rec.Header().Get(HeaderXRequestID); got != seen {
		t.Fatalf("response header = %q, want %q", got, seen)
	}
}

func TestRequestIDReusesInboundHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, "lb-assigned-42")
	ctx, rec := newTestContextFor(t, req)

	err := RequestID().Handle(ctx, func() error { return nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := GetRequestID(ctx); got != "lb-assigned-42" {
		t.Fatalf("GetRequestID = %q, want the inbound ID", got)
	}
	if got := rec.Header().Get(HeaderXRequestID); got != "lb-assigned-42" {
		t.Fatalf("response header = %q, want the inbound ID", got)
	}
}

func TestRequestIDIgnoreHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, "client-supplied")
	ctx, _ := newTestContextFor(t, req)

	err := RequestID(WithIgnoreHeader()).Handle(ctx, func() error { return nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := GetRequestID(ctx); got == "client-supplied" || got == "" {
		t.Fatalf("GetRequestID = %q, want a fresh server-assigned ID", got)
	}
}

func TestRequestIDCustomGenerator(t *testing.T) {
	ctx, rec := newTestContext(t, http.MethodGet, "/")

	mw := RequestID(WithGenerator(func() string { return "req-0001" }))
	if err := mw.Handle(ctx, func() error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rec.Header().Get(HeaderXRequestID); got != "req-0001" {
		t.Fatalf("response header = %q, want req-0001", got)
	}
}

func TestGetRequestIDWithoutMiddleware(t *testing.T) {
	ctx, _ := newTestContext(t, http.MethodGet, "/")
	if got := GetRequestID(ctx); got != "" {
		t.Fatalf("GetRequestID = %q, want empty", got)
	}
}

func TestRequestIDPropagatesToLogger(t *testing.T) {
	logRec := &logRecorder{}
	factory := server.NewFactory(server.FactoryConfig{Logger: slog.New(logRec.handler())})
	ctx := factory.Acquire(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	t.Cleanup(func() { factory.Release(ctx) })

	chain := []server.Middleware{
		RequestID(WithGenerator(func() string { return "req-trace-1" })),
		Logger(),
	}
	ranFinal, err := server.Run(ctx, chain, func() error {
		ctx.Logger().Info("handling")
		return nil
	})
	if err != nil || !ranFinal {
		t.Fatalf("Run = (%v, %v), want (true, nil)", ranFinal, err)
	}

	for _, msg := range []string{"handling", "request"} {
		entry, ok := logRec.find(msg)
		if !ok {
			t.Fatalf("expected a %q record", msg)
		}
		if got := entry.attrs["request_id"]; got != "req-trace-1" {
			t.Fatalf("%q record request_id = %v, want req-trace-1", msg, got)
		}
	}
}
