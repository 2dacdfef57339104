package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/valyala/bytebufferpool"
)

// Handler processes a matched request. Returning a non-nil error hands the
// request to the nearest error-handling middleware or, if none wraps the
// call, to the application's top-level error handler.
type Handler func(ctx *Context) error

// Context is the request-scoped state threaded through the middleware chain
// and into the matched handler. It wraps the incoming request and the
// response writer, carries the path parameters bound by the router, and
// offers an open key/value bag for middleware to share per-request data.
//
// A Context is valid only for the duration of one request. Contexts are
// pooled; retaining one past the end of a Handle or handler call is a bug.
type Context struct {
	request *http.Request
	writer  *responseWriter

	method string
	path   string
	route  string
	query  url.Values // parsed on first use

	params map[string]string
	values map[any]any

	logger  *slog.Logger
	bufs    *bytebufferpool.Pool
	trusted *proxyMatcher
}

// reset rebinds the context to a new request/response pair. Called by the
// Factory on acquire.
func (c *Context) reset(w http.ResponseWriter, r *http.Request) {
	c.request = r
	c.writer.reset(w)
	c.method = r.Method
	c.path = r.URL.Path
	c.route = ""
	c.query = nil
	c.params = nil
	if c.values == nil {
		c.values = make(map[any]any)
	}
}

// release drops request-scoped references so the pooled context cannot leak
// them into the next request.
func (c *Context) release() {
	c.request = nil
	c.writer.reset(nil)
	c.query = nil
	c.params = nil
	clear(c.values)
	c.logger = nil
}

// Request returns the underlying *http.Request.
func (c *Context) Request() *http.Request { return c.request }

// Writer returns the response writer. The returned writer tracks the status
// code and whether anything has been written yet.
func (c *Context) Writer() ResponseWriter { return c.writer }

// Method returns the HTTP method of the request.
func (c *Context) Method() string { return c.method }

// Path returns the request path.
func (c *Context) Path() string { return c.path }

// Route returns the registered pattern that matched this request, such as
// "/users/:id". It is empty until routing completes, so middleware sees a
// value only after next returns. Metrics and tracing label by it to keep
// cardinality bounded.
func (c *Context) Route() string { return c.route }

// SetRoute records the matched route pattern. The routing step calls it;
// middleware and handlers normally only read it.
func (c *Context) SetRoute(pattern string) { c.route = pattern }

// Query returns the parsed query string. Parsing happens once per request.
func (c *Context) Query() url.Values {
	if c.query == nil {
		c.query = c.request.URL.Query()
	}
	return c.query
}

// QueryParam returns the first query value for key, or "".
func (c *Context) QueryParam(key string) string {
	return c.Query().Get(key)
}

// Param returns the path parameter bound to name, or "".
func (c *Context) Param(name string) string { return c.params[name] }

// Params returns all path parameters bound by the router for this request.
// The returned map is owned by the context; callers must not mutate it.
func (c *Context) Params() map[string]string { return c.params }

// SetParams binds the path parameters for this request. It is called once
// per request by the routing step; handlers and middleware should treat the
// parameters as read-only.
func (c *Context) SetParams(params map[string]string) { c.params = params }

// Header returns the first request header value for key.
func (c *Context) Header(key string) string {
	return c.request.Header.Get(key)
}

// SetHeader sets a response header. It has no effect after the response
// status has been written.
func (c *Context) SetHeader(key, value string) {
	c.writer.Header().Set(key, value)
}

// SetValue stores a request-scoped value. The key space is shared by all
// middleware on the request; use unexported key types to avoid collisions.
func (c *Context) SetValue(key, value any) { c.values[key] = value }

// Value returns a request-scoped value previously stored with SetValue, or
// nil.
func (c *Context) Value(key any) any { return c.values[key] }

// Status sets the response status code to be written with the first body
// write. Calling Status after the header has been sent has no effect.
func (c *Context) Status(code int) { c.writer.setStatus(code) }

// StatusCode returns the status code that has been written, or the pending
// one if the header has not been sent yet.
func (c *Context) StatusCode() int { return c.writer.Status() }

// Written reports whether the response header has been sent.
func (c *Context) Written() bool { return c.writer.Written() }

// Write writes raw bytes to the response body, sending the header first if
// it has not been sent.
func (c *Context) Write(p []byte) (int, error) { return c.writer.Write(p) }

// String writes a plain-text response with the given status code.
func (c *Context) String(code int, format string, args ...any) error {
	c.writer.Header().Set("Content-Type", "text/plain; charset=utf-8")
	c.writer.setStatus(code)
	var err error
	if len(args) == 0 {
		_, err = c.writer.Write([]byte(format))
	} else {
		_, err = fmt.Fprintf(c.writer, format, args...)
	}
	return err
}

// JSON writes a JSON response with the given status code. The body is
// composed in a pooled buffer so an encoding failure never produces a
// half-written response.
func (c *Context) JSON(code int, v any) error {
	buf := c.bufs.Get()
	defer c.bufs.Put(buf)

	if err := json.NewEncoder(buf).Encode(v); err != nil {
		return &HTTPError{Code: http.StatusInternalServerError, Message: "response encoding failed", Err: err}
	}

	c.writer.Header().Set("Content-Type", "application/json")
	c.writer.setStatus(code)
	_, err := c.writer.Write(buf.B)
	return err
}

// Redirect sends an HTTP redirect to url. Codes outside 3xx are rejected.
func (c *Context) Redirect(code int, url string) error {
	if code < http.StatusMultipleChoices || code > http.StatusPermanentRedirect {
		return fmt.Errorf("server: invalid redirect code %d", code)
	}
	http.Redirect(c.writer, c.request, url, code)
	return nil
}

// NoContent sends a status-only response with an empty body.
func (c *Context) NoContent(code int) error {
	c.writer.WriteHeader(code)
	return nil
}

// Context returns the request's context.Context.
func (c *Context) Context() context.Context { return c.request.Context() }

// WithContext replaces the request's context. Timeout and tracing middleware
// use this to propagate deadlines and spans to downstream work.
func (c *Context) WithContext(ctx context.Context) {
	c.request = c.request.WithContext(ctx)
}

// Done returns a channel closed when the client disconnects or the request
// context is cancelled.
func (c *Context) Done() <-chan struct{} {
	return c.request.Context().Done()
}

// Logger returns the request logger.
func (c *Context) Logger() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.Default()
}

// SetLogger replaces the request logger. Middleware can use this to attach
// request-scoped attributes (request id, client IP) for downstream logging.
func (c *Context) SetLogger(logger *slog.Logger) { c.logger = logger }

// ClientIP returns the client address for the request. When the application
// is configured with trusted proxies and the request arrived through one,
// Forwarded/X-Forwarded-For headers are honored; otherwise the transport
// peer address is used.
func (c *Context) ClientIP() string {
	ip := clientIPFromRequest(c.request, c.trusted)
	if ip == nil {
		return ""
	}
	return ip.String()
}
