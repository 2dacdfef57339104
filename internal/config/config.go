package config

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/strata-dev/strata/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "strata.json"

	// DefaultAddr is the default listen address.
	DefaultAddr = ":8080"

	// DefaultCacheSize is the default route cache capacity.
	DefaultCacheSize = 1024
)

// Duration is a time.Duration that reads and writes Go duration strings
// ("30s", "2m") in both strata.json and STRATA_* variables.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for json and env.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config represents the complete strata.json configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty" env:"STRATA_NAME"`

	// Addr is the listen address.
	Addr string `json:"addr,omitempty" env:"STRATA_ADDR"`

	// Environment is the deployment environment (development, production).
	Environment string `json:"environment,omitempty" env:"STRATA_ENV"`

	// Router contains routing configuration.
	Router RouterConfig `json:"router,omitempty"`

	// Server contains HTTP server timeouts.
	Server ServerConfig `json:"server,omitempty"`

	// Static contains static file serving configuration.
	Static StaticConfig `json:"static,omitempty"`

	// Log contains logging configuration.
	Log LogConfig `json:"log,omitempty"`

	// TrustedProxies lists proxies whose forwarding headers are honored.
	TrustedProxies []string `json:"trusted_proxies,omitempty" env:"STRATA_TRUSTED_PROXIES" envSeparator:","`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// RouterConfig contains routing configuration.
type RouterConfig struct {
	// CacheSize is the route cache capacity. Negative disables caching.
	CacheSize int `json:"cache_size,omitempty" env:"STRATA_ROUTER_CACHE_SIZE"`

	// DisableMethodNotAllowed turns 405 responses into plain 404s.
	DisableMethodNotAllowed bool `json:"disable_method_not_allowed,omitempty" env:"STRATA_ROUTER_DISABLE_405"`
}

// ServerConfig contains HTTP server timeouts.
type ServerConfig struct {
	ReadHeaderTimeout Duration `json:"read_header_timeout,omitempty" env:"STRATA_SERVER_READ_HEADER_TIMEOUT"`
	ReadTimeout       Duration `json:"read_timeout,omitempty" env:"STRATA_SERVER_READ_TIMEOUT"`
	WriteTimeout      Duration `json:"write_timeout,omitempty" env:"STRATA_SERVER_WRITE_TIMEOUT"`
	IdleTimeout       Duration `json:"idle_timeout,omitempty" env:"STRATA_SERVER_IDLE_TIMEOUT"`
	ShutdownTimeout   Duration `json:"shutdown_timeout,omitempty" env:"STRATA_SERVER_SHUTDOWN_TIMEOUT"`
}

// StaticConfig contains static file serving configuration.
type StaticConfig struct {
	// Dir is the directory containing static files. Empty disables serving.
	Dir string `json:"dir,omitempty" env:"STRATA_STATIC_DIR"`

	// Prefix is the URL prefix for static files.
	Prefix string `json:"prefix,omitempty" env:"STRATA_STATIC_PREFIX"`

	// CacheControl selects the cache header strategy (none, production).
	CacheControl string `json:"cache_control,omitempty" env:"STRATA_STATIC_CACHE_CONTROL"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	// Level is the minimum level logged (debug, info, warn, error).
	Level string `json:"level,omitempty" env:"STRATA_LOG_LEVEL"`

	// Format selects the handler (text, json).
	Format string `json:"format,omitempty" env:"STRATA_LOG_FORMAT"`
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		Addr:        DefaultAddr,
		Environment: "development",
		Router: RouterConfig{
			CacheSize: DefaultCacheSize,
		},
		Server: ServerConfig{
			ReadHeaderTimeout: Duration(10 * time.Second),
			IdleTimeout:       Duration(2 * time.Minute),
			ShutdownTimeout:   Duration(10 * time.Second),
		},
		Static: StaticConfig{
			Prefix:       "/",
			CacheControl: "none",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from the specified directory, looking for
// strata.json, then applies environment overrides.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path and applies
// environment overrides.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E042").
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path)).
				WithSuggestion("Run 'strata new' to create a project, or create " + ConfigFileName + " by hand")
		}
		return nil, errors.New("E020").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, jsonError(path, data, err)
	}
	cfg.configPath = path

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv builds a Config from defaults and environment overrides
// alone, for processes that run without a project file.
func LoadFromEnv() (*Config, error) {
	cfg := New()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// jsonError converts an encoding/json failure into a located E020.
func jsonError(path string, data []byte, err error) error {
	se := errors.New("E020").
		WithDetail("Failed to parse " + ConfigFileName + ": " + err.Error()).
		WithSuggestion("Check that " + ConfigFileName + " is valid JSON").
		Wrap(err)

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case stderrors.As(err, &syntaxErr):
		se.WithJSONOffset(path, data, syntaxErr.Offset)
	case stderrors.As(err, &typeErr):
		se.WithJSONOffset(path, data, typeErr.Offset)
	}
	return se
}

// applyEnv loads a .env file when present and overlays STRATA_* variables.
func (c *Config) applyEnv() error {
	_ = godotenv.Load()
	if err := env.Parse(c); err != nil {
		return errors.New("E025").Wrap(err)
	}
	return nil
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Router.CacheSize == 0 {
		c.Router.CacheSize = DefaultCacheSize
	}
	if c.Server.ReadHeaderTimeout == 0 {
		c.Server.ReadHeaderTimeout = Duration(10 * time.Second)
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = Duration(2 * time.Minute)
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if c.Static.Prefix == "" {
		c.Static.Prefix = "/"
	}
	if c.Static.CacheControl == "" {
		c.Static.CacheControl = "none"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return errors.New("E021").
			WithDetail("Listen address " + c.Addr + " is not a host:port pair").
			Wrap(err)
	}

	for _, d := range []Duration{
		c.Server.ReadHeaderTimeout, c.Server.ReadTimeout, c.Server.WriteTimeout,
		c.Server.IdleTimeout, c.Server.ShutdownTimeout,
	} {
		if d < 0 {
			return errors.New("E022").
				WithDetail("Timeouts must not be negative, got " + d.Std().String())
		}
	}

	if c.Static.Dir != "" {
		info, err := os.Stat(c.staticDirPath())
		if err != nil || !info.IsDir() {
			return errors.New("E023").
				WithDetail("Static directory " + c.Static.Dir + " does not exist").
				WithSuggestion("Create the directory or remove static.dir from " + ConfigFileName)
		}
	}

	for _, proxy := range c.TrustedProxies {
		if net.ParseIP(proxy) != nil {
			continue
		}
		if _, _, err := net.ParseCIDR(proxy); err != nil {
			return errors.New("E024").
				WithDetail("Trusted proxy " + proxy + " is neither an IP nor a CIDR range")
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.Newf(errors.CategoryConfig, "unknown log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.Newf(errors.CategoryConfig, "unknown log format %q", c.Log.Format)
	}

	return nil
}

// Logger builds a slog.Logger from the Log section, writing to stderr.
func (c *Config) Logger() *slog.Logger {
	var level slog.Level
	switch c.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// IsProduction reports whether the config targets production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E020").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New("E020").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// staticDirPath resolves Static.Dir against the config file directory.
func (c *Config) staticDirPath() string {
	if filepath.IsAbs(c.Static.Dir) || c.configPath == "" {
		return c.Static.Dir
	}
	return filepath.Join(c.Dir(), c.Static.Dir)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing strata.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E042").
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory").
				WithSuggestion("Run 'strata new' to create a project")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the nearest project root.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}
	return Load(root)
}
