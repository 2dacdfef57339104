// Reference server for strata-bench. It serves a small JSON API through the
// full middleware chain so load tests measure routing, dispatch, and
// instrumentation together rather than a bare handler.
//
// Configuration comes from STRATA_* variables (no strata.json needed):
//
//	STRATA_ADDR=:8080 STRATA_LOG_LEVEL=error go run ./benchmark/e2e_server
package main

import (
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/strata-dev/strata"
	"github.com/strata-dev/strata/internal/config"
	"github.com/strata-dev/strata/pkg/middleware"
)

type item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var items = []item{
	{ID: "1", Name: "anvil"},
	{ID: "2", Name: "beacon"},
	{ID: "3", Name: "crate"},
	{ID: "42", Name: "dynamo"},
}

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal(err)
	}

	app := strata.New(appConfig(cfg))

	app.Use(
		middleware.RequestID(),
		middleware.Logger(middleware.WithSkipPaths("/healthz", "/metrics")),
		middleware.Recover(),
		middleware.Prometheus(),
	)

	app.Get("/", func(ctx *strata.Context) error {
		return ctx.String(200, "strata e2e benchmark server\n")
	})
	app.Get("/healthz", func(ctx *strata.Context) error {
		return ctx.JSON(200, map[string]string{"status": "ok"})
	})

	metrics := promhttp.Handler()
	app.Get("/metrics", func(ctx *strata.Context) error {
		metrics.ServeHTTP(ctx.Writer(), ctx.Request())
		return nil
	})

	api := strata.NewRouter()
	api.Get("/items", listItems)
	api.Get("/items/:id", showItem)
	api.Post("/items", createItem)
	api.Get("/users/:id/files/*path", showFile)
	app.Mount("/api/v1", api)

	// Exercises the timeout path under load: ?delay=150ms runs into the
	// 100ms deadline and produces 504s.
	app.Middleware("/slow", middleware.Timeout(100*time.Millisecond))
	app.Get("/slow", slowHandler)

	app.Get("/panic", func(ctx *strata.Context) error {
		panic("benchmark panic route")
	})

	app.Logger().Info("benchmark server listening", "addr", cfg.Addr)
	if err := app.Run(cfg.Addr); err != nil {
		log.Fatal(err)
	}
}

// appConfig bridges the project configuration into the App configuration.
func appConfig(cfg *config.Config) strata.Config {
	return strata.Config{
		Logger: cfg.Logger(),
		Router: strata.RouterConfig{CacheSize: cfg.Router.CacheSize},
		Server: strata.ServerConfig{
			ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout.Std(),
			ReadTimeout:       cfg.Server.ReadTimeout.Std(),
			WriteTimeout:      cfg.Server.WriteTimeout.Std(),
			IdleTimeout:       cfg.Server.IdleTimeout.Std(),
			ShutdownTimeout:   cfg.Server.ShutdownTimeout.Std(),
		},
		Security:                strata.SecurityConfig{TrustedProxies: cfg.TrustedProxies},
		DisableMethodNotAllowed: cfg.Router.DisableMethodNotAllowed,
	}
}

func listItems(ctx *strata.Context) error {
	return ctx.JSON(200, items)
}

func showItem(ctx *strata.Context) error {
	id := ctx.Param("id")
	for _, it := range items {
		if it.ID == id {
			return ctx.JSON(200, it)
		}
	}
	return strata.ErrNotFound("item " + id + " not found")
}

func createItem(ctx *strata.Context) error {
	return ctx.JSON(201, map[string]string{"status": "created"})
}

func showFile(ctx *strata.Context) error {
	return ctx.JSON(200, map[string]string{
		"user": ctx.Param("id"),
		"path": ctx.Param("path"),
	})
}

func slowHandler(ctx *strata.Context) error {
	delay := 10 * time.Millisecond
	if q := ctx.QueryParam("delay"); q != "" {
		d, err := time.ParseDuration(q)
		if err != nil {
			return strata.ErrBadRequest("invalid delay: " + q)
		}
		delay = d
	}

	select {
	case <-time.After(delay):
		return ctx.JSON(200, map[string]string{"slept": delay.String()})
	case <-ctx.Done():
		return ctx.Context().Err()
	}
}
