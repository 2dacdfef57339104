package server

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResponseWriterDefaultsTo200(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newResponseWriter(rec)

	if _, err := w.Write([]byte("body")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if w.Status() != http.StatusOK {
		t.Errorf("Status() = %d, want %d", w.Status(), http.StatusOK)
	}
	if w.BytesWritten() != 4 {
		t.Errorf("BytesWritten = %d, want 4", w.BytesWritten())
	}
}

func TestResponseWriterPendingStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newResponseWriter(rec)

	w.setStatus(http.StatusNotFound)
	if w.Written() {
		t.Error("setStatus should not send the header")
	}
	if w.Status() != http.StatusNotFound {
		t.Errorf("Status() = %d, want pending %d", w.Status(), http.StatusNotFound)
	}

	if _, err := w.Write([]byte("missing")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestResponseWriterHeaderSentOnce(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newResponseWriter(rec)

	w.WriteHeader(http.StatusCreated)
	w.WriteHeader(http.StatusTeapot)
	w.setStatus(http.StatusAccepted)

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want first write %d", rec.Code, http.StatusCreated)
	}
	if w.Status() != http.StatusCreated {
		t.Errorf("Status() = %d, want %d", w.Status(), http.StatusCreated)
	}
}

func TestResponseWriterAbandonWritesFinalResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newResponseWriter(rec)

	wrote := w.Abandon(http.StatusGatewayTimeout, "application/json", []byte(`{"error":"timeout"}`))
	if !wrote {
		t.Fatal("Abandon on an unwritten response should write the final body")
	}
	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusGatewayTimeout)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", rec.Header().Get("Content-Type"))
	}
	if !w.Written() || w.Status() != http.StatusGatewayTimeout {
		t.Errorf("state after Abandon: written=%v status=%d", w.Written(), w.Status())
	}

	// Everything after the detach is swallowed but reports success.
	n, err := w.Write([]byte("late"))
	if err != nil || n != 4 {
		t.Fatalf("Write after Abandon = (%d, %v), want (4, nil)", n, err)
	}
	if rec.Body.String() != `{"error":"timeout"}` {
		t.Errorf("late write reached the client: %q", rec.Body.String())
	}

	w.Header().Set("X-Late", "1")
	if rec.Header().Get("X-Late") != "" {
		t.Error("header mutation after Abandon reached the client")
	}
}

func TestResponseWriterAbandonAfterWrite(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newResponseWriter(rec)

	_, _ = w.Write([]byte("partial"))

	if wrote := w.Abandon(http.StatusGatewayTimeout, "", nil); wrote {
		t.Error("Abandon after a body write should not claim to have responded")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want the original %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "partial" {
		t.Errorf("body = %q, want %q", rec.Body.String(), "partial")
	}
}

// hijackableRecorder adds Hijack to a recorder, handing out one end of a
// pipe the way a real connection would be handed out.
type hijackableRecorder struct {
	*httptest.ResponseRecorder
	conn net.Conn
}

func (h *hijackableRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	rw := bufio.NewReadWriter(bufio.NewReader(h.conn), bufio.NewWriter(h.conn))
	return h.conn, rw, nil
}

func TestResponseWriterHijack(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	rec := &hijackableRecorder{ResponseRecorder: httptest.NewRecorder(), conn: server}
	w := newResponseWriter(rec)

	conn, _, err := w.Hijack()
	if err != nil {
		t.Fatalf("Hijack: %v", err)
	}
	if conn != server {
		t.Error("Hijack did not return the underlying connection")
	}
	if !w.Written() {
		t.Error("hijacked writer should count as written")
	}
	if w.Status() != http.StatusSwitchingProtocols {
		t.Errorf("Status() = %d, want %d", w.Status(), http.StatusSwitchingProtocols)
	}
}

func TestResponseWriterHijackUnsupported(t *testing.T) {
	w := newResponseWriter(httptest.NewRecorder())

	if _, _, err := w.Hijack(); !errors.Is(err, http.ErrNotSupported) {
		t.Errorf("Hijack on a plain recorder = %v, want ErrNotSupported", err)
	}
}

func TestResponseWriterHijackAfterAbandon(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	rec := &hijackableRecorder{ResponseRecorder: httptest.NewRecorder(), conn: server}
	w := newResponseWriter(rec)

	w.Abandon(http.StatusGatewayTimeout, "", nil)
	if _, _, err := w.Hijack(); !errors.Is(err, errAbandoned) {
		t.Errorf("Hijack after Abandon = %v, want errAbandoned", err)
	}
}

func TestResponseWriterReset(t *testing.T) {
	rec1 := httptest.NewRecorder()
	w := newResponseWriter(rec1)
	w.WriteHeader(http.StatusTeapot)
	_, _ = w.Write([]byte("old"))

	rec2 := httptest.NewRecorder()
	w.reset(rec2)

	if w.Written() || w.Status() != 0 || w.BytesWritten() != 0 {
		t.Errorf("reset left state: written=%v status=%d bytes=%d",
			w.Written(), w.Status(), w.BytesWritten())
	}
	if _, err := w.Write([]byte("new")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if rec2.Body.String() != "new" {
		t.Errorf("body = %q, want %q", rec2.Body.String(), "new")
	}
}
