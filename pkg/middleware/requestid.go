package middleware

import (
	"github.com/google/uuid"

	"github.com/strata-dev/strata/pkg/server"
)

// HeaderXRequestID is the header carrying the request ID in both
// directions.
const HeaderXRequestID = "X-Request-ID"

type requestIDKey struct{}

// RequestIDConfig configures the request ID middleware.
type RequestIDConfig struct {
	// Generator produces new IDs. Default: uuid.NewString.
	Generator func() string

	// IgnoreHeader generates a fresh ID even when the client sent one.
	// By default an inbound X-Request-ID is reused, so IDs assigned by a
	// load balancer carry through.
	IgnoreHeader bool
}

// RequestIDOption configures the request ID middleware.
type RequestIDOption func(*RequestIDConfig)

// WithGenerator sets the ID generator.
func WithGenerator(generate func() string) RequestIDOption {
	return func(c *RequestIDConfig) {
		c.Generator = generate
	}
}

// WithIgnoreHeader makes the middleware ignore inbound X-Request-ID
// headers. Use it when clients are untrusted and IDs must be
// server-assigned.
func WithIgnoreHeader() RequestIDOption {
	return func(c *RequestIDConfig) {
		c.IgnoreHeader = true
	}
}

// RequestID creates middleware that assigns each request an ID, echoes it
// in the X-Request-ID response header, and attaches it to the request
// logger so every downstream record carries it.
//
//	app.Use(middleware.RequestID(), middleware.Logger())
func RequestID(opts ...RequestIDOption) server.Middleware {
	var config RequestIDConfig
	for _, opt := range opts {
		opt(&config)
	}
	if config.Generator == nil {
		config.Generator = uuid.NewString
	}

	return server.MiddlewareFunc(func(ctx *server.Context, next func() error) error {
		var id string
		if !config.IgnoreHeader {
			id = ctx.Header(HeaderXRequestID)
		}
		if id == "" {
			id = config.Generator()
		}

		ctx.SetValue(requestIDKey{}, id)
		ctx.SetHeader(HeaderXRequestID, id)
		ctx.SetLogger(ctx.Logger().With("request_id", id))

		return next()
	})
}

// GetRequestID returns the ID assigned by RequestID, or "" when the
// middleware did not run.
func GetRequestID(ctx *server.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
