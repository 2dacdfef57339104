package middleware

import (
	"github.com/strata-dev/strata/pkg/server"
)

// errorBoundary renders errors from the rest of the chain. It declares
// itself through the server.ErrorBoundary marker so the application knows
// errors past this point were seen deliberately.
type errorBoundary struct {
	render func(ctx *server.Context, err error) error
}

// ErrorHandler creates middleware that intercepts errors returned by the
// rest of the chain and renders them with the given function. Returning a
// non-nil error from render passes it further out; the application then
// logs it at reduced severity, since a boundary already saw it.
//
// Use it to give one part of an application its own error format:
//
//	api.Use(middleware.ErrorHandler(func(ctx *server.Context, err error) error {
//	    return ctx.JSON(server.StatusFromError(err), apiError{Detail: err.Error()})
//	}))
func ErrorHandler(render func(ctx *server.Context, err error) error) server.Middleware {
	return &errorBoundary{render: render}
}

func (b *errorBoundary) Handle(ctx *server.Context, next func() error) error {
	err := next()
	if err == nil {
		return nil
	}
	if ctx.Written() {
		// Too late to render; pass it out for logging.
		return err
	}
	return b.render(ctx, err)
}

// ErrorBoundary implements the server.ErrorBoundary marker.
func (*errorBoundary) ErrorBoundary() {}
