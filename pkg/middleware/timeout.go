package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/strata-dev/strata/pkg/server"
)

// timeoutBody is the response written when a request exceeds its deadline.
var timeoutBody = []byte(`{"error":"request timed out"}`)

// Timeout creates middleware that bounds request handling to d. The rest
// of the chain runs on its own goroutine; if it has not finished when the
// deadline passes, the client receives a 504 and the response writer is
// detached so whatever the overrunning handler writes afterwards is
// swallowed.
//
// The deadline is also installed on ctx.Context(), so handlers that pass
// the context to databases and outbound requests are cancelled rather
// than left running. Handlers doing long CPU-bound work should check
// ctx.Context().Err() at loop boundaries.
//
// After the deadline a handler must not touch the Context beyond its
// request-scoped reads; the response side is safe because all writes go
// through the detached writer.
//
// Example:
//
//	app.Use(middleware.Timeout(5 * time.Second))
func Timeout(d time.Duration) server.Middleware {
	return server.MiddlewareFunc(func(ctx *server.Context, next func() error) error {
		tctx, cancel := context.WithTimeout(ctx.Context(), d)
		defer cancel()
		ctx.WithContext(tctx)

		done := make(chan error, 1)
		panicked := make(chan any, 1)
		go func() {
			defer func() {
				if rec := recover(); rec != nil {
					panicked <- rec
				}
			}()
			done <- next()
		}()

		select {
		case err := <-done:
			return err
		case rec := <-panicked:
			// Re-panic on the request goroutine so recovery and logging
			// see the original value. Panics after the deadline stay in
			// the buffered channel and are dropped with the goroutine.
			panic(rec)
		case <-tctx.Done():
			if errors.Is(tctx.Err(), context.DeadlineExceeded) {
				ctx.Writer().Abandon(http.StatusGatewayTimeout, "application/json", timeoutBody)
				return server.NewHTTPError(http.StatusGatewayTimeout, "request timed out")
			}
			// Client cancelled; nothing useful to write.
			ctx.Writer().Abandon(0, "", nil)
			return tctx.Err()
		}
	})
}
