package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/strata-dev/strata/pkg/server"
)

// newTestContext builds a pooled request context the way the application
// does, with a quiet logger.
func newTestContext(t *testing.T, method, target string) (*server.Context, *httptest.ResponseRecorder) {
	t.Helper()
	return newTestContextFor(t, httptest.NewRequest(method, target, nil))
}

func newTestContextFor(t *testing.T, req *http.Request) (*server.Context, *httptest.ResponseRecorder) {
	t.Helper()
	factory := server.NewFactory(server.FactoryConfig{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	rec := httptest.NewRecorder()
	ctx := factory.Acquire(rec, req)
	t.Cleanup(func() { factory.Release(ctx) })
	return ctx, rec
}

// logEntry is one captured record with its attrs flattened into a map.
type logEntry struct {
	level slog.Level
	msg   string
	attrs map[string]any
}

// logRecorder collects slog records so tests can assert on severity and
// attributes.
type logRecorder struct {
	mu      sync.Mutex
	entries []logEntry
}

func (r *logRecorder) handler() slog.Handler { return &recorderHandler{rec: r} }

func (r *logRecorder) find(msg string) (logEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.msg == msg {
			return e, true
		}
	}
	return logEntry{}, false
}

func (r *logRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

type recorderHandler struct {
	rec   *logRecorder
	attrs []slog.Attr
}

func (h *recorderHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recorderHandler) Handle(_ context.Context, record slog.Record) error {
	entry := logEntry{level: record.Level, msg: record.Message, attrs: make(map[string]any)}
	for _, a := range h.attrs {
		entry.attrs[a.Key] = a.Value.Any()
	}
	record.Attrs(func(a slog.Attr) bool {
		entry.attrs[a.Key] = a.Value.Any()
		return true
	})
	h.rec.mu.Lock()
	h.rec.entries = append(h.rec.entries, entry)
	h.rec.mu.Unlock()
	return nil
}

func (h *recorderHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &recorderHandler{rec: h.rec, attrs: merged}
}

func (h *recorderHandler) WithGroup(string) slog.Handler { return h }
