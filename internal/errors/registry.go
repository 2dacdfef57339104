package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Routing Errors (E001-E019)
	// ============================================

	"E001": {
		Category: CategoryRouting,
		Message:  "Route parameter conflict",
		Detail:   "Two routes declare different parameter names at the same position, such as /users/:id and /users/:name. A position can carry only one parameter name.",
		DocURL:   "https://strata.dev/docs/errors/E001",
	},
	"E002": {
		Category: CategoryRouting,
		Message:  "Invalid route pattern",
		Detail:   "Route patterns must start with / and contain no empty parameter names.",
		DocURL:   "https://strata.dev/docs/errors/E002",
	},
	"E003": {
		Category: CategoryRouting,
		Message:  "Nil route handler",
		Detail:   "A route was registered without a handler function.",
		DocURL:   "https://strata.dev/docs/errors/E003",
	},
	"E004": {
		Category: CategoryRouting,
		Message:  "Catch-all must be the final segment",
		Detail:   "A *name segment consumes the rest of the path, so nothing may follow it in the pattern.",
		DocURL:   "https://strata.dev/docs/errors/E004",
	},
	"E005": {
		Category: CategoryRouting,
		Message:  "Empty HTTP method",
		Detail:   "A route was registered with an empty method. Use one of the http.Method constants or MethodAll.",
		DocURL:   "https://strata.dev/docs/errors/E005",
	},
	"E006": {
		Category: CategoryRouting,
		Message:  "Invalid mount prefix",
		Detail:   "Mount prefixes must start with / and must not contain parameters.",
		DocURL:   "https://strata.dev/docs/errors/E006",
	},

	// ============================================
	// Configuration Errors (E020-E039)
	// ============================================

	"E020": {
		Category: CategoryConfig,
		Message:  "Invalid strata.json",
		Detail:   "The strata.json configuration file is malformed.",
		DocURL:   "https://strata.dev/docs/errors/E020",
	},
	"E021": {
		Category: CategoryConfig,
		Message:  "Invalid listen address",
		Detail:   "The configured address is not a valid host:port pair.",
		DocURL:   "https://strata.dev/docs/errors/E021",
	},
	"E022": {
		Category: CategoryConfig,
		Message:  "Invalid timeout value",
		Detail:   "Timeouts must be Go durations such as \"30s\" or \"2m\".",
		DocURL:   "https://strata.dev/docs/errors/E022",
	},
	"E023": {
		Category: CategoryConfig,
		Message:  "Static directory not found",
		Detail:   "The configured static file directory does not exist or is not a directory.",
		DocURL:   "https://strata.dev/docs/errors/E023",
	},
	"E024": {
		Category: CategoryConfig,
		Message:  "Invalid trusted proxy",
		Detail:   "Trusted proxies must be IP addresses or CIDR ranges, such as 10.0.0.1 or 10.0.0.0/8.",
		DocURL:   "https://strata.dev/docs/errors/E024",
	},
	"E025": {
		Category: CategoryConfig,
		Message:  "Invalid environment override",
		Detail:   "An STRATA_* environment variable could not be parsed into its configuration field.",
		DocURL:   "https://strata.dev/docs/errors/E025",
	},

	// ============================================
	// CLI Errors (E040-E059)
	// ============================================

	"E040": {
		Category: CategoryCLI,
		Message:  "Project directory already exists",
		Detail:   "A directory with this name already exists.",
		DocURL:   "https://strata.dev/docs/errors/E040",
	},
	"E041": {
		Category: CategoryCLI,
		Message:  "Invalid project name",
		Detail:   "Project names must be valid Go module path elements: lowercase letters, digits, and hyphens.",
		DocURL:   "https://strata.dev/docs/errors/E041",
	},
	"E042": {
		Category: CategoryCLI,
		Message:  "Not a strata project",
		Detail:   "The current directory is not a strata project. Run this command from a directory with strata.json.",
		DocURL:   "https://strata.dev/docs/errors/E042",
	},
	"E043": {
		Category: CategoryCLI,
		Message:  "Scaffold write failed",
		Detail:   "A generated project file could not be written.",
		DocURL:   "https://strata.dev/docs/errors/E043",
	},
	"E044": {
		Category: CategoryCLI,
		Message:  "Unknown project template",
		Detail:   "The requested project template does not exist.",
		DocURL:   "https://strata.dev/docs/errors/E044",
	},

	// ============================================
	// Runtime Errors (E060-E079)
	// ============================================

	"E060": {
		Category: CategoryRuntime,
		Message:  "Server failed to start",
		Detail:   "The HTTP listener could not be opened. The port may already be in use.",
		DocURL:   "https://strata.dev/docs/errors/E060",
	},
	"E061": {
		Category: CategoryRuntime,
		Message:  "Shutdown deadline exceeded",
		Detail:   "In-flight requests did not finish within the shutdown timeout and were dropped.",
		DocURL:   "https://strata.dev/docs/errors/E061",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
