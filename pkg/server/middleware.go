package server

// Middleware wraps request handling. An implementation may run code before
// and after the rest of the chain by calling next, may short-circuit by
// writing a response and not calling next, or may translate an error
// returned by next into a response.
type Middleware interface {
	// Handle processes the request. next invokes the remainder of the
	// chain, ending in the matched handler. Handle must call next at most
	// once; a second call fails with ErrNextCalledTwice.
	Handle(ctx *Context, next func() error) error
}

// MiddlewareFunc adapts a plain function to the Middleware interface.
type MiddlewareFunc func(ctx *Context, next func() error) error

// Handle calls f(ctx, next).
func (f MiddlewareFunc) Handle(ctx *Context, next func() error) error {
	return f(ctx, next)
}

// ErrorBoundary marks a Middleware that intends to intercept errors flowing
// back out of the chain. The application uses the marker to decide whether
// an error returned by the chain still needs top-level handling: if at least
// one boundary wrapped the call, errors that reach the application were
// deliberately passed through and are logged rather than re-rendered.
type ErrorBoundary interface {
	Middleware

	// ErrorBoundary is a marker method; implementations do nothing in it.
	ErrorBoundary()
}

// IsErrorBoundary reports whether mw declares itself an error boundary.
func IsErrorBoundary(mw Middleware) bool {
	_, ok := mw.(ErrorBoundary)
	return ok
}

// HasErrorBoundary reports whether any middleware in the chain is an
// error boundary.
func HasErrorBoundary(chain []Middleware) bool {
	for _, mw := range chain {
		if IsErrorBoundary(mw) {
			return true
		}
	}
	return false
}

// Chain combines several middleware into one. The combined middleware runs
// the given middleware in order around next.
func Chain(middleware ...Middleware) Middleware {
	return MiddlewareFunc(func(ctx *Context, next func() error) error {
		_, err := Run(ctx, middleware, next)
		return err
	})
}

// Skip wraps mw so it is bypassed when cond returns true for the request.
func Skip(mw Middleware, cond func(ctx *Context) bool) Middleware {
	return MiddlewareFunc(func(ctx *Context, next func() error) error {
		if cond(ctx) {
			return next()
		}
		return mw.Handle(ctx, next)
	})
}

// Only wraps mw so it runs only when cond returns true for the request.
func Only(mw Middleware, cond func(ctx *Context) bool) Middleware {
	return Skip(mw, func(ctx *Context) bool { return !cond(ctx) })
}
