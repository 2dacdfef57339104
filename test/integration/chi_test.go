package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/strata-dev/strata"
)

type testUser struct {
	ID    string
	Email string
	Role  string
}

// userKey is the context key the outer auth middleware stores the user
// under.
type userKey struct{}

// mockAuthMiddleware simulates an authentication layer living outside the
// app, in the host router's middleware stack.
func mockAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer valid-token" {
			user := &testUser{
				ID:    "user-123",
				Email: "test@example.com",
				Role:  "admin",
			}
			ctx := context.WithValue(r.Context(), userKey{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func newTestApp() *strata.App {
	app := strata.New(strata.Config{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	app.Get("/dashboard", func(ctx *strata.Context) error {
		user, ok := ctx.Context().Value(userKey{}).(*testUser)
		if !ok {
			return strata.ErrUnauthorized("login required")
		}
		return ctx.JSON(http.StatusOK, map[string]string{"user": user.ID})
	})

	app.Get("/items/:id", func(ctx *strata.Context) error {
		return ctx.JSON(http.StatusOK, map[string]string{"id": ctx.Param("id")})
	})

	return app
}

// TestChiIntegration mounts an App inside a chi router and checks that
// both routers keep working and that chi middleware runs first.
func TestChiIntegration(t *testing.T) {
	app := newTestApp()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(mockAuthMiddleware)

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Everything chi does not claim falls through to the app.
	r.Handle("/*", app)

	t.Run("chi route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if rec.Body.String() != "OK" {
			t.Errorf("body = %q, want %q", rec.Body.String(), "OK")
		}
	})

	t.Run("mounted param route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/items/42", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		var got map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshal body: %v", err)
		}
		if got["id"] != "42" {
			t.Errorf("id = %q, want %q", got["id"], "42")
		}
	})

	t.Run("outer auth context reaches handlers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		req.Header.Set("Authorization", "Bearer valid-token")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		var got map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshal body: %v", err)
		}
		if got["user"] != "user-123" {
			t.Errorf("user = %q, want %q", got["user"], "user-123")
		}
	})

	t.Run("anonymous request rejected by handler", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("app 404 for unmatched path", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/nothing/here", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
	})

	t.Run("chi middleware runs before app handlers", func(t *testing.T) {
		executed := false

		tracking := chi.NewRouter()
		tracking.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				executed = true
				next.ServeHTTP(w, r)
			})
		})
		tracking.Handle("/*", newTestApp())

		req := httptest.NewRequest(http.MethodGet, "/items/1", nil)
		rec := httptest.NewRecorder()
		tracking.ServeHTTP(rec, req)

		if !executed {
			t.Error("chi middleware did not run before the mounted app")
		}
	})
}

// TestChiPrefixMount mounts an App under a path prefix with
// http.StripPrefix, the usual way to host an app under a subtree of an
// existing chi deployment.
func TestChiPrefixMount(t *testing.T) {
	app := newTestApp()

	r := chi.NewRouter()
	r.Handle("/admin/*", http.StripPrefix("/admin", app))

	req := httptest.NewRequest(http.MethodGet, "/admin/items/7", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var got map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if got["id"] != "7" {
		t.Errorf("id = %q, want %q", got["id"], "7")
	}
}

// TestStdlibMuxIntegration mounts an App inside a stdlib ServeMux next to
// plain handlers.
func TestStdlibMuxIntegration(t *testing.T) {
	app := newTestApp()

	mux := http.NewServeMux()
	mux.HandleFunc("/legacy/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("legacy"))
	})
	mux.Handle("/", app)

	t.Run("legacy route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/legacy/report", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Body.String() != "legacy" {
			t.Errorf("body = %q, want %q", rec.Body.String(), "legacy")
		}
	})

	t.Run("app route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/items/9", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		var got map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshal body: %v", err)
		}
		if got["id"] != "9" {
			t.Errorf("id = %q, want %q", got["id"], "9")
		}
	})
}
