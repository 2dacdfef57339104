package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/strata-dev/strata/pkg/server"
)

// Recover creates middleware that converts a panic in the rest of the
// chain into a 500 error, so outer middleware such as Logger and
// Prometheus observe a normal failed request instead of an unwinding
// stack. The panic value and stack are logged. http.ErrAbortHandler
// passes through untouched; net/http uses it to abort the connection.
//
// The application recovers panics as a last resort even without this
// middleware; installing it inside the chain keeps the observability
// middleware accurate.
func Recover() server.Middleware {
	return server.MiddlewareFunc(func(ctx *server.Context, next func() error) (err error) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			ctx.Logger().Error("panic recovered",
				"method", ctx.Method(),
				"path", ctx.Path(),
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			err = server.NewHTTPError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		}()
		return next()
	})
}
