package strata

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/strata-dev/strata/pkg/router"
	"github.com/strata-dev/strata/pkg/server"
)

// =============================================================================
// App Type
// =============================================================================

// App is the strata application entry point. It owns the router, the
// request context pool, and static file serving, and implements
// http.Handler.
//
// Create an App with strata.New():
//
//	app := strata.New(strata.Config{
//	    Static: strata.StaticConfig{Dir: "public"},
//	})
//
//	app.Get("/users/:id", showUser)
//	app.Run(":8080")
type App struct {
	router  *router.Router
	factory *server.Factory

	// Static file serving
	staticDir    string
	staticPrefix string
	staticFS     http.FileSystem

	// Response hooks
	notFound         Handler
	methodNotAllowed Handler
	errorHandler     func(*Context, error)

	config Config
	logger *slog.Logger

	httpServer *http.Server
}

// New creates an application with the given configuration. Unset fields
// fall back to DefaultConfig values.
func New(cfg Config) *App {
	cfg = applyDefaults(cfg)

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	app := &App{
		router: router.NewRouter(router.WithCacheSize(cfg.Router.CacheSize)),
		factory: server.NewFactory(server.FactoryConfig{
			Logger:         logger,
			TrustedProxies: cfg.Security.TrustedProxies,
		}),
		staticDir:    cfg.Static.Dir,
		staticPrefix: cfg.Static.Prefix,
		config:       cfg,
		logger:       logger,
	}

	if cfg.Static.Dir != "" {
		app.staticFS = http.Dir(cfg.Static.Dir)
	}

	return app
}

// =============================================================================
// http.Handler Implementation
// =============================================================================

// ServeHTTP implements http.Handler. Static files are tried first; other
// requests run the middleware chain around a single routing step, and the
// outcome is finalized in exactly one place here, whether the chain wrote
// a response, short-circuited, returned an error, or panicked.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if a.staticFS != nil && a.serveStatic(w, r) {
		return
	}

	ctx := a.factory.Acquire(w, r)
	defer a.factory.Release(ctx)

	chain := a.router.MiddlewareFor(path)

	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		if rec == http.ErrAbortHandler {
			panic(rec)
		}
		a.logger.Error("panic recovered",
			"method", r.Method,
			"path", path,
			"panic", rec,
			"stack", string(debug.Stack()),
		)
		if !ctx.Written() {
			a.writeErrorBody(ctx, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		}
	}()

	_, err := server.Run(ctx, chain, func() error {
		match, ok := a.router.Match(r.Method, path)
		if !ok {
			return a.noRoute(ctx)
		}
		ctx.SetParams(match.Params)
		ctx.SetRoute(match.Pattern)
		return match.Handler(ctx)
	})

	if err != nil {
		a.finishError(ctx, chain, err)
		return
	}

	if !ctx.Written() {
		// The chain completed, or short-circuited, without a body. Send
		// the pending status, defaulting to 200.
		code := ctx.StatusCode()
		if code == 0 {
			code = http.StatusOK
		}
		ctx.Writer().WriteHeader(code)
	}
}

// noRoute resolves an unmatched request. When the path exists under other
// methods, the response is 405 with an Allow header, unless that behavior
// is disabled. Custom hooks run here; the default renders through the
// normal error path.
func (a *App) noRoute(ctx *Context) error {
	if !a.config.DisableMethodNotAllowed {
		if methods := a.router.AllowedMethods(ctx.Path()); len(methods) > 0 {
			ctx.SetHeader("Allow", strings.Join(methods, ", "))
			if a.methodNotAllowed != nil {
				return a.methodNotAllowed(ctx)
			}
			return server.ErrMethodNotAllowed("method not allowed")
		}
	}
	if a.notFound != nil {
		return a.notFound(ctx)
	}
	return server.ErrNotFound("not found")
}

// finishError is the single rendering point for errors that escape the
// middleware chain.
func (a *App) finishError(ctx *Context, chain []Middleware, err error) {
	code := server.StatusFromError(err)

	attrs := []any{
		"method", ctx.Method(),
		"path", ctx.Path(),
		"status", code,
		"error", err,
	}
	switch {
	case code >= http.StatusInternalServerError && !server.HasErrorBoundary(chain):
		a.logger.Error("request failed", attrs...)
	case code >= http.StatusInternalServerError:
		// An error boundary saw this and passed it on.
		a.logger.Warn("request failed", attrs...)
	default:
		a.logger.Debug("request error", attrs...)
	}

	if a.errorHandler != nil {
		a.errorHandler(ctx, err)
	}
	if ctx.Written() {
		return
	}
	a.writeErrorBody(ctx, code, publicErrorMessage(err, code))
}

// writeErrorBody renders the default JSON error response.
func (a *App) writeErrorBody(ctx *Context, code int, message string) {
	if err := ctx.JSON(code, map[string]string{"error": message}); err != nil {
		a.logger.Error("error response write failed", "error", err)
	}
}

// publicErrorMessage picks the client-visible message for an error: an
// HTTPError's message if one is in the chain, the bare status text
// otherwise, so internal details never leak.
func publicErrorMessage(err error, code int) string {
	var httpErr *server.HTTPError
	if errors.As(err, &httpErr) && httpErr.Message != "" {
		return httpErr.Message
	}
	return http.StatusText(code)
}

// =============================================================================
// Route Registration
// =============================================================================

// Handle registers a handler for an arbitrary method and pattern.
func (a *App) Handle(method, pattern string, handler Handler) {
	a.router.Handle(method, pattern, handler)
}

// Get registers a GET handler for pattern.
//
//	app.Get("/users/:id", func(ctx *strata.Context) error {
//	    return ctx.JSON(200, loadUser(ctx.Param("id")))
//	})
func (a *App) Get(pattern string, handler Handler) { a.router.Get(pattern, handler) }

// Post registers a POST handler for pattern.
func (a *App) Post(pattern string, handler Handler) { a.router.Post(pattern, handler) }

// Put registers a PUT handler for pattern.
func (a *App) Put(pattern string, handler Handler) { a.router.Put(pattern, handler) }

// Patch registers a PATCH handler for pattern.
func (a *App) Patch(pattern string, handler Handler) { a.router.Patch(pattern, handler) }

// Delete registers a DELETE handler for pattern.
func (a *App) Delete(pattern string, handler Handler) { a.router.Delete(pattern, handler) }

// Head registers a HEAD handler for pattern.
func (a *App) Head(pattern string, handler Handler) { a.router.Head(pattern, handler) }

// Options registers an OPTIONS handler for pattern.
func (a *App) Options(pattern string, handler Handler) { a.router.Options(pattern, handler) }

// All registers a handler answering every method on pattern.
func (a *App) All(pattern string, handler Handler) { a.router.All(pattern, handler) }

// Use adds global middleware that applies to all requests.
//
//	app.Use(middleware.Logger(), middleware.Recover())
func (a *App) Use(mw ...Middleware) {
	a.router.Use(mw...)
}

// Middleware adds middleware scoped to requests under a path prefix.
//
//	app.Middleware("/admin", authMiddleware)
func (a *App) Middleware(prefix string, mw ...Middleware) {
	a.router.Middleware(prefix, mw...)
}

// Mount attaches a sub-router's routes under prefix. The sub-router's
// middleware applies only to the mounted routes. Mounting snapshots the
// sub-router; register its routes before the Mount call.
//
//	api := strata.NewRouter()
//	api.Get("/posts/:id", showPost)
//	app.Mount("/api/v1", api)
func (a *App) Mount(prefix string, sub *Router) {
	a.router.Mount(prefix, sub)
}

// SetNotFound replaces the default 404 response.
func (a *App) SetNotFound(handler Handler) {
	a.notFound = handler
}

// SetMethodNotAllowed replaces the default 405 response. The Allow header
// is already set when the handler runs.
func (a *App) SetMethodNotAllowed(handler Handler) {
	a.methodNotAllowed = handler
}

// SetErrorHandler replaces the default error rendering. The handler may
// write a response; if it does not, the default JSON body is still sent.
func (a *App) SetErrorHandler(handler func(*Context, error)) {
	a.errorHandler = handler
}

// =============================================================================
// Accessors
// =============================================================================

// Handler returns the App as an http.Handler, for wrapping or explicit
// conversion.
func (a *App) Handler() http.Handler { return a }

// Router returns the underlying router for introspection.
func (a *App) Router() *router.Router { return a.router }

// Routes lists the registered routes, sorted by pattern then method.
func (a *App) Routes() []Route { return a.router.Routes() }

// Config returns the app configuration after defaults were applied.
func (a *App) Config() Config { return a.config }

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// =============================================================================
// Serving
// =============================================================================

// Run starts an HTTP server on addr and blocks until it fails or an
// interrupt arrives, then shuts down gracefully.
//
//	app := strata.New(cfg)
//	app.Get("/", index)
//	app.Run(":8080")
func (a *App) Run(addr string) error {
	a.httpServer = &http.Server{
		Addr:              addr,
		Handler:           a,
		ReadHeaderTimeout: a.config.Server.ReadHeaderTimeout,
		ReadTimeout:       a.config.Server.ReadTimeout,
		WriteTimeout:      a.config.Server.WriteTimeout,
		IdleTimeout:       a.config.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", "address", addr)
		errCh <- a.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return err
		}
		return nil

	case <-shutdown:
		a.logger.Info("shutting down...")
		return a.Shutdown(context.Background())
	}
}

// Shutdown stops the server started by Run, waiting up to the configured
// ShutdownTimeout for in-flight requests.
func (a *App) Shutdown(ctx context.Context) error {
	if a.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("shutdown error", "error", err)
		return err
	}

	a.logger.Info("server shutdown complete")
	return nil
}
