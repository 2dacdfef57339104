// Package middleware provides the middleware shipped with strata.
//
// This package includes:
//   - Request logging and request IDs
//   - Panic recovery and error boundaries
//   - Prometheus metrics and OpenTelemetry tracing
//   - Rate limiting, pacing, and timeouts
//
// All middleware compose through the standard contract: each receives the
// request context and a next function, may run code on both sides of next,
// may short-circuit by responding without calling next, and calls next at
// most once.
//
//	app.Use(
//	    middleware.RequestID(),
//	    middleware.Logger(),
//	    middleware.Recover(),
//	)
//
// # Observability
//
// The Prometheus middleware records request counts, latency, and in-flight
// gauges labeled by method and route pattern, so parameterized paths such
// as /users/:id stay one label value:
//
//	app.Use(middleware.Prometheus(
//	    middleware.WithNamespace("myapp"),
//	))
//	http.Handle("/metrics", promhttp.Handler())
//
// The OpenTelemetry middleware opens a server span per request and swaps
// the span context into the request, so database drivers and HTTP clients
// inherit the trace:
//
//	func MyHandler(ctx *server.Context) error {
//	    row := db.QueryRowContext(ctx.Context(), "SELECT ...")
//	    return nil
//	}
//
// # Protection
//
// RateLimit rejects clients over a request budget with 429 and standard
// X-RateLimit headers; Pace smooths bursts by delaying instead of
// rejecting; Timeout bounds the rest of the chain and answers 504 when it
// overruns.
package middleware
