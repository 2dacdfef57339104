// Package server provides the per-request runtime for strata: the request
// Context, the response writer, the middleware contract, and the dispatcher
// that executes middleware chains.
//
// # Architecture
//
// The package is built from a few small pieces:
//
//   - Context: the mutable, request-scoped object threaded through the
//     middleware chain and into the matched handler
//   - Factory: allocates and pools Contexts; owned by the application, never
//     a package-level global
//   - Middleware: the (ctx, next) contract; Run executes an ordered chain
//     with onion semantics
//   - HTTPError: an error type that carries an HTTP status through the chain
//
// # Execution model
//
// Run invokes each middleware with a next continuation. Code before next()
// runs on the way in, in registration order; code after next() runs on the
// way out, in reverse order. A middleware that returns without calling next
// short-circuits the chain: nothing downstream runs and no error is raised.
// Errors returned by a middleware or the final handler propagate back up the
// continuation chain unmodified; recovery happens only where a middleware
// explicitly wraps its call to next.
//
// # Ownership
//
// A Context is exclusively owned by the request that acquired it. It is reset
// and reused through the Factory's pool after the response is finalized, so
// no middleware may retain a reference past the end of its Handle call.
package server
