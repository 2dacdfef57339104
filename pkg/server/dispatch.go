package server

// Run executes a middleware chain around final. Each middleware receives a
// next continuation that invokes the remainder of the chain; the innermost
// continuation calls final. ranFinal reports whether final actually ran: a
// middleware that returns without calling next short-circuits the chain,
// which is a valid outcome and not an error.
//
// Errors returned by final or by inner middleware propagate outward through
// each middleware's Handle return value, so outer middleware can observe,
// translate, or suppress them. Run never swallows an error itself.
//
// A middleware that calls its next more than once gets ErrNextCalledTwice
// from the second call. Nil entries in the chain are skipped.
func Run(ctx *Context, middleware []Middleware, final func() error) (ranFinal bool, err error) {
	if final == nil {
		return false, nil
	}

	ran := false
	wrappedFinal := func() error {
		ran = true
		return final()
	}
	if len(middleware) == 0 {
		return true, wrappedFinal()
	}

	// lastIndex tracks the deepest chain position entered so far. Each
	// next closure knows its own position; invoking one whose position
	// has already been passed means the same middleware called next again.
	lastIndex := -1
	var dispatch func(i int) error
	dispatch = func(i int) error {
		if i <= lastIndex {
			return ErrNextCalledTwice
		}
		lastIndex = i
		for i < len(middleware) && middleware[i] == nil {
			i++
			lastIndex = i
		}
		if i >= len(middleware) {
			return wrappedFinal()
		}
		mw := middleware[i]
		return mw.Handle(ctx, func() error { return dispatch(i + 1) })
	}

	err = dispatch(0)
	return ran, err
}
