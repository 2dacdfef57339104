package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/strata-dev/strata/pkg/server"
)

func TestTimeoutFastRequestPassesThrough(t *testing.T) {
	ctx, rec := newTestContext(t, http.MethodGet, "/")

	err := Timeout(time.Second).Handle(ctx, func() error {
		return ctx.String(http.StatusOK, "ok")
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("response = %d %q, want 200 ok", rec.Code, rec.Body.String())
	}
}

func TestTimeoutInstallsDeadline(t *testing.T) {
	ctx, _ := newTestContext(t, http.MethodGet, "/")

	var deadline time.Time
	var ok bool
	err := Timeout(time.Second).Handle(ctx, func() error {
		deadline, ok = ctx.Context().Deadline()
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected a deadline on the request context")
	}
	if until := time.Until(deadline); until <= 0 || until > time.Second {
		t.Fatalf("deadline %v away, want within one second", until)
	}
}

func TestTimeoutErrorPassesThrough(t *testing.T) {
	ctx, _ := newTestContext(t, http.MethodGet, "/")

	wantErr := errors.New("handler failed")
	err := Timeout(time.Second).Handle(ctx, func() error { return wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("error = %v, want %v", err, wantErr)
	}
}

func TestTimeoutExpiredRequestGets504(t *testing.T) {
	ctx, rec := newTestContext(t, http.MethodGet, "/slow")

	handlerDone := make(chan error, 1)
	err := Timeout(20 * time.Millisecond).Handle(ctx, func() error {
		time.Sleep(60 * time.Millisecond)
		handlerDone <- ctx.String(http.StatusOK, "late")
		return nil
	})

	var httpErr *server.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusGatewayTimeout {
		t.Fatalf("error = %v, want 504", err)
	}
	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want 504", rec.Code)
	}
	if rec.Body.String() != `{"error":"request timed out"}` {
		t.Fatalf("body = %q, want the timeout body", rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("Content-Type = %q, want application/json", got)
	}
	if !ctx.Written() || ctx.StatusCode() != http.StatusGatewayTimeout {
		t.Fatalf("context reports %d written=%v, want the 504 recorded", ctx.StatusCode(), ctx.Written())
	}

	// The overrunning handler's write is swallowed, not an error and not
	// visible to the client.
	if lateErr := <-handlerDone; lateErr != nil {
		t.Fatalf("late write error = %v, want nil", lateErr)
	}
	if rec.Body.String() != `{"error":"request timed out"}` {
		t.Fatalf("body after late write = %q, want unchanged", rec.Body.String())
	}
}

func TestTimeoutCancelledClientStopsQuietly(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(parent)
	ctx, rec := newTestContextFor(t, req)

	handlerDone := make(chan struct{})
	err := Timeout(time.Second).Handle(ctx, func() error {
		defer close(handlerDone)
		time.Sleep(20 * time.Millisecond)
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}

	<-handlerDone
	if ctx.Written() {
		t.Fatal("expected nothing written for a cancelled client")
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("body = %q, want empty", rec.Body.String())
	}
}

func TestTimeoutPanicPropagates(t *testing.T) {
	ctx, _ := newTestContext(t, http.MethodGet, "/")

	defer func() {
		if rec := recover(); rec != "boom" {
			t.Fatalf("recovered %v, want the handler's panic value", rec)
		}
	}()
	_ = Timeout(time.Second).Handle(ctx, func() error { panic("boom") })
	t.Fatal("expected the panic to propagate")
}

func TestTimeoutAbandonedContextNotReused(t *testing.T) {
	factory := server.NewFactory(server.FactoryConfig{})

	req := httptest.NewRequest(http.MethodGet, "/slow", nil)
	ctx := factory.Acquire(httptest.NewRecorder(), req)

	err := Timeout(10 * time.Millisecond).Handle(ctx, func() error {
		time.Sleep(40 * time.Millisecond)
		return nil
	})
	if server.StatusFromError(err) != http.StatusGatewayTimeout {
		t.Fatalf("error = %v, want 504", err)
	}
	factory.Release(ctx)

	// Release must not have pooled the abandoned context: the next Acquire
	// builds a fresh one the overrunning handler cannot touch.
	next := factory.Acquire(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if next == ctx {
		t.Fatal("abandoned context was returned to the pool")
	}
	factory.Release(next)
}
