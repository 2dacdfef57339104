// Package strata is a small HTTP framework built around explicit routing
// and composable middleware.
//
// This is the recommended import for most applications:
//
//	import "github.com/strata-dev/strata"
//
// Usage:
//
//	app := strata.New(strata.Config{})
//	app.Use(middleware.Logger())
//	app.Get("/users/:id", func(ctx *strata.Context) error {
//	    return ctx.JSON(200, loadUser(ctx.Param("id")))
//	})
//	app.Run(":8080")
package strata

import (
	"encoding"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/strata-dev/strata/pkg/router"
	"github.com/strata-dev/strata/pkg/server"
)

// =============================================================================
// Core Types (re-export from pkg/server)
// =============================================================================

// Context carries per-request state through middleware and handlers.
type Context = server.Context

// Handler processes a matched request.
type Handler = server.Handler

// Middleware wraps request handling around the rest of the chain.
type Middleware = server.Middleware

// MiddlewareFunc adapts a plain function to the Middleware interface.
type MiddlewareFunc = server.MiddlewareFunc

// ResponseWriter is the instrumented writer handlers write through.
type ResponseWriter = server.ResponseWriter

// =============================================================================
// Router (re-export from pkg/router)
// =============================================================================

// Router matches methods and paths to handlers. Build sub-routers with
// NewRouter and attach them with App.Mount.
type Router = router.Router

// Route identifies a registered route by method and pattern.
type Route = router.Route

// RouterOption configures a Router.
type RouterOption = router.Option

// NewRouter creates an empty router.
var NewRouter = router.NewRouter

// WithCacheSize sets the route cache capacity. Zero or negative disables
// caching.
var WithCacheSize = router.WithCacheSize

// MethodAll registers a handler for every method of a pattern.
const MethodAll = router.MethodAll

// =============================================================================
// Errors (re-export from pkg/server)
// =============================================================================

// HTTPError is an error carrying an HTTP status code and a client-safe
// message.
type HTTPError = server.HTTPError

// NewHTTPError builds an HTTPError with the given status and message.
var NewHTTPError = server.NewHTTPError

// WrapHTTPError builds an HTTPError wrapping an underlying cause.
var WrapHTTPError = server.WrapHTTPError

// StatusFromError extracts the HTTP status from an error chain, 500 when
// none is present.
var StatusFromError = server.StatusFromError

// Status-specific error constructors.
var (
	ErrBadRequest         = server.ErrBadRequest
	ErrUnauthorized       = server.ErrUnauthorized
	ErrForbidden          = server.ErrForbidden
	ErrNotFound           = server.ErrNotFound
	ErrMethodNotAllowed   = server.ErrMethodNotAllowed
	ErrConflict           = server.ErrConflict
	ErrTooManyRequests    = server.ErrTooManyRequests
	ErrInternal           = server.ErrInternal
	ErrServiceUnavailable = server.ErrServiceUnavailable
)

// =============================================================================
// Parameter Binding
// =============================================================================

// Bind populates a struct of type P from the request's path parameters.
// Fields are matched by their `param` tag; untagged fields and fields
// tagged "-" are skipped. Supported field types are string, bool, the
// integer and float kinds, []string for catch-all parameters (split on
// "/"), and any type implementing encoding.TextUnmarshaler.
//
//	type showUserParams struct {
//	    ID uuid.UUID `param:"id"`
//	}
//
//	func showUser(ctx *strata.Context) error {
//	    p, err := strata.Bind[showUserParams](ctx)
//	    if err != nil {
//	        return err
//	    }
//	    ...
//	}
//
// Conversion failures come back as 400-status HTTPErrors, ready to return
// from the handler.
func Bind[P any](ctx *Context) (P, error) {
	var out P
	v := reflect.ValueOf(&out).Elem()
	if v.Kind() != reflect.Struct {
		return out, fmt.Errorf("strata: Bind target must be a struct, got %s", v.Kind())
	}

	params := ctx.Params()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		name := t.Field(i).Tag.Get("param")
		if name == "" || name == "-" {
			continue
		}
		raw, ok := params[name]
		if !ok {
			continue
		}
		if err := setParamField(v.Field(i), raw); err != nil {
			var zero P
			return zero, server.WrapHTTPError(http.StatusBadRequest,
				fmt.Sprintf("invalid parameter %q", name), err)
		}
	}
	return out, nil
}

// setParamField converts a raw parameter value into a struct field.
func setParamField(field reflect.Value, value string) error {
	if field.CanAddr() {
		if u, ok := field.Addr().Interface().(encoding.TextUnmarshaler); ok {
			return u.UnmarshalText([]byte(value))
		}
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(n)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Slice:
		// Catch-all parameters hold the remaining path segments.
		parts := strings.Split(value, "/")
		if !reflect.TypeOf(parts).AssignableTo(field.Type()) {
			return fmt.Errorf("unsupported field type %s", field.Type())
		}
		field.Set(reflect.ValueOf(parts))

	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}
