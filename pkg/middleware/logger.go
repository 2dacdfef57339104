package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/strata-dev/strata/pkg/server"
)

// LoggerConfig configures the request logging middleware.
type LoggerConfig struct {
	// Logger receives the request records. Nil uses the context logger,
	// which the application wires to its own.
	Logger *slog.Logger

	// SkipPaths lists exact request paths that are not logged, such as
	// health check endpoints polled by a load balancer.
	SkipPaths []string
}

// LoggerOption configures the request logging middleware.
type LoggerOption func(*LoggerConfig)

// WithLogLogger sets the logger receiving request records.
func WithLogLogger(logger *slog.Logger) LoggerOption {
	return func(c *LoggerConfig) {
		c.Logger = logger
	}
}

// WithSkipPaths sets request paths excluded from logging.
func WithSkipPaths(paths ...string) LoggerOption {
	return func(c *LoggerConfig) {
		c.SkipPaths = paths
	}
}

// Logger creates middleware that writes one structured record per request
// with method, path, status, duration, and response size. Severity follows
// the outcome: 5xx and chain errors log at error, 4xx at warn, everything
// else at info.
//
// Place Logger outside middleware whose effects it should observe; request
// IDs attached by RequestID appear in the record when RequestID runs
// first.
//
//	app.Use(middleware.RequestID(), middleware.Logger())
func Logger(opts ...LoggerOption) server.Middleware {
	var config LoggerConfig
	for _, opt := range opts {
		opt(&config)
	}

	skip := make(map[string]struct{}, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skip[p] = struct{}{}
	}

	return server.MiddlewareFunc(func(ctx *server.Context, next func() error) error {
		if _, ok := skip[ctx.Path()]; ok {
			return next()
		}

		start := time.Now()
		err := next()
		duration := time.Since(start)

		logger := config.Logger
		if logger == nil {
			logger = ctx.Logger()
		}

		w := ctx.Writer()
		status := w.Status()
		if status == 0 {
			// The response is not rendered yet; report the status the
			// application will send.
			if err != nil {
				status = server.StatusFromError(err)
			} else {
				status = http.StatusOK
			}
		}

		attrs := []any{
			"method", ctx.Method(),
			"path", ctx.Path(),
			"status", status,
			"duration", duration,
			"bytes", w.BytesWritten(),
		}
		if ip := ctx.ClientIP(); ip != "" {
			attrs = append(attrs, "client_ip", ip)
		}
		if err != nil {
			attrs = append(attrs, "error", err)
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request", attrs...)
		case status >= http.StatusBadRequest:
			logger.Warn("request", attrs...)
		default:
			logger.Info("request", attrs...)
		}

		return err
	})
}
