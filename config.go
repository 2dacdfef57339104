package strata

import (
	"log/slog"
	"time"
)

// =============================================================================
// Configuration Types
// =============================================================================

// Config is the main application configuration.
// The zero value is usable; every field falls back to the DefaultConfig
// value when unset.
type Config struct {
	// Router configures route matching and the lookup cache.
	Router RouterConfig

	// Server configures the HTTP server started by App.Run.
	Server ServerConfig

	// Static configures static file serving. Leaving Dir empty disables
	// it.
	Static StaticConfig

	// Security configures proxy trust for client IP resolution.
	Security SecurityConfig

	// DisableMethodNotAllowed turns off 405 responses: a request whose
	// path is registered under other methods falls through to 404 like
	// any other unmatched request.
	// Default: false.
	DisableMethodNotAllowed bool

	// Logger is the structured logger for the application.
	// If nil, slog.Default() is used.
	Logger *slog.Logger
}

// RouterConfig configures route matching.
type RouterConfig struct {
	// CacheSize is the capacity of the route lookup cache. Zero uses the
	// default; a negative value disables the cache so every request
	// walks the trie.
	// Default: 1024.
	CacheSize int
}

// ServerConfig configures the HTTP server used by App.Run.
type ServerConfig struct {
	// ReadHeaderTimeout bounds reading of request headers.
	// Default: 10 seconds.
	ReadHeaderTimeout time.Duration

	// ReadTimeout bounds reading of the full request, body included.
	// Default: 0 (no limit), to keep streaming uploads working.
	ReadTimeout time.Duration

	// WriteTimeout bounds writing of the response.
	// Default: 0 (no limit).
	WriteTimeout time.Duration

	// IdleTimeout bounds how long a keep-alive connection may sit idle.
	// Default: 2 minutes.
	IdleTimeout time.Duration

	// ShutdownTimeout is how long Shutdown waits for in-flight requests.
	// Default: 10 seconds.
	ShutdownTimeout time.Duration
}

// StaticConfig configures static file serving.
type StaticConfig struct {
	// Dir is the directory containing static files (e.g. "public").
	// Empty disables static serving.
	Dir string

	// Prefix is the URL path prefix for static files. A file at
	// public/styles.css with Prefix "/" is served at /styles.css.
	// Default: "/".
	Prefix string

	// CacheControl determines caching behavior for static files.
	// Default: CacheControlNone (no caching headers).
	CacheControl CacheControlStrategy

	// Headers are custom headers added to every static file response.
	Headers map[string]string
}

// SecurityConfig configures security-sensitive request handling.
type SecurityConfig struct {
	// TrustedProxies lists reverse proxy IPs or CIDR ranges trusted for
	// Forwarded and X-Forwarded-For headers. When empty, those headers
	// are ignored and the transport peer address is the client IP.
	// Default: nil.
	TrustedProxies []string
}

// CacheControlStrategy determines caching behavior for static files.
type CacheControlStrategy int

const (
	// CacheControlNone adds no-store headers.
	// Use in development for instant updates.
	CacheControlNone CacheControlStrategy = iota

	// CacheControlProduction uses appropriate caching:
	// fingerprinted files (app.a1b2c3d4.css) are immutable with a one
	// year max-age, everything else gets a short cache with
	// revalidation.
	CacheControlProduction
)

// =============================================================================
// Default Configurations
// =============================================================================

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Router: DefaultRouterConfig(),
		Server: DefaultServerConfig(),
		Static: DefaultStaticConfig(),
	}
}

// DefaultRouterConfig returns a RouterConfig with sensible defaults.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CacheSize: 1024,
	}
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		ShutdownTimeout:   10 * time.Second,
	}
}

// DefaultStaticConfig returns a StaticConfig with sensible defaults.
func DefaultStaticConfig() StaticConfig {
	return StaticConfig{
		Prefix:       "/",
		CacheControl: CacheControlNone,
	}
}

// applyDefaults fills unset fields from the defaults.
func applyDefaults(cfg Config) Config {
	if cfg.Router.CacheSize == 0 {
		cfg.Router.CacheSize = DefaultRouterConfig().CacheSize
	}
	if cfg.Server.ReadHeaderTimeout == 0 {
		cfg.Server.ReadHeaderTimeout = DefaultServerConfig().ReadHeaderTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultServerConfig().IdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerConfig().ShutdownTimeout
	}
	if cfg.Static.Prefix == "" {
		cfg.Static.Prefix = DefaultStaticConfig().Prefix
	}
	return cfg
}
