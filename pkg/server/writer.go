package server

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"sync"
)

// ResponseWriter extends http.ResponseWriter with response-state inspection.
// Middleware uses it to observe the status code and body size after the rest
// of the chain has run. The concrete writer also passes http.Flusher and
// http.Hijacker through to the underlying connection when it supports them.
type ResponseWriter interface {
	http.ResponseWriter

	// Status returns the written status code, or the pending one if the
	// header has not been sent. Zero means no status has been set.
	Status() int

	// Written reports whether the response header has been sent.
	Written() bool

	// BytesWritten returns the number of body bytes written so far.
	BytesWritten() int

	// Abandon detaches the writer from the client connection: subsequent
	// writes are swallowed while reporting success, so a handler still
	// running after a timeout cannot corrupt the reply. When code is
	// non-zero and the header has not been sent yet, the given response
	// is written first, atomic with the detach. Abandon reports whether
	// that response was written.
	Abandon(code int, contentType string, body []byte) bool
}

// responseWriter wraps the server's http.ResponseWriter. It defers sending
// the header until the first body write so middleware can still adjust the
// status, and it records status and size for logging and metrics.
//
// All methods hold w.mu: the timeout middleware may abandon a response from
// a different goroutine than the one still running the handler.
type responseWriter struct {
	mu sync.Mutex

	rw http.ResponseWriter

	status    int
	written   bool
	bytes     int
	abandoned bool
}

func newResponseWriter(rw http.ResponseWriter) *responseWriter {
	return &responseWriter{rw: rw}
}

func (w *responseWriter) reset(rw http.ResponseWriter) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rw = rw
	w.status = 0
	w.written = false
	w.bytes = 0
	w.abandoned = false
}

// setStatus records a pending status code without sending the header.
func (w *responseWriter) setStatus(code int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.written {
		return
	}
	w.status = code
}

func (w *responseWriter) Header() http.Header {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.abandoned {
		return http.Header{}
	}
	return w.rw.Header()
}

func (w *responseWriter) WriteHeader(code int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writeHeaderLocked(code)
}

func (w *responseWriter) writeHeaderLocked(code int) {
	if w.written {
		return
	}
	w.status = code
	w.written = true
	if w.abandoned {
		return
	}
	w.rw.WriteHeader(code)
}

func (w *responseWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.written {
		code := w.status
		if code == 0 {
			code = http.StatusOK
		}
		w.writeHeaderLocked(code)
	}
	if w.abandoned {
		// Pretend the write succeeded so an abandoned handler finishes
		// quietly instead of erroring mid-chain.
		w.bytes += len(p)
		return len(p), nil
	}
	n, err := w.rw.Write(p)
	w.bytes += n
	return n, err
}

func (w *responseWriter) Status() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

func (w *responseWriter) Written() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

func (w *responseWriter) BytesWritten() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bytes
}

// Flush implements http.Flusher when the underlying writer supports it.
func (w *responseWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.abandoned {
		return
	}
	if f, ok := w.rw.(http.Flusher); ok {
		f.Flush()
	}
}

// errAbandoned rejects a hijack after the writer has been abandoned: the
// connection already carries the final response.
var errAbandoned = errors.New("response abandoned")

// Hijack implements http.Hijacker when the underlying writer supports it.
// WebSocket upgrades take the connection this way; afterwards the wrapper
// records a 101 status for logging and swallows any later writes.
func (w *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.abandoned {
		return nil, nil, errAbandoned
	}
	conn, brw, err := http.NewResponseController(w.rw).Hijack()
	if err != nil {
		return nil, nil, err
	}
	w.status = http.StatusSwitchingProtocols
	w.written = true
	return conn, brw, nil
}

// Abandon implements ResponseWriter. Everything happens under one lock so
// a late handler write cannot interleave with the final response.
func (w *responseWriter) Abandon(code int, contentType string, body []byte) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.abandoned {
		return false
	}
	w.abandoned = true

	if w.written || code == 0 {
		return false
	}
	if contentType != "" {
		w.rw.Header().Set("Content-Type", contentType)
	}
	w.status = code
	w.written = true
	w.rw.WriteHeader(code)
	n, _ := w.rw.Write(body)
	w.bytes += n
	return true
}

// isAbandoned is read by the Factory to keep an abandoned context out of
// the pool while a late handler may still be using it.
func (w *responseWriter) isAbandoned() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.abandoned
}
