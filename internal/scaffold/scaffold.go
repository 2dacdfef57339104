package scaffold

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"text/template"

	"github.com/strata-dev/strata/internal/errors"
)

// Config contains scaffold configuration.
type Config struct {
	// ProjectName is the name of the project.
	ProjectName string

	// ModulePath is the Go module path.
	ModulePath string

	// Description is a short project description.
	Description string

	// Addr is the listen address written into strata.json.
	Addr string
}

// Template represents a project template.
type Template struct {
	// Name is the template name.
	Name string

	// Description describes the template.
	Description string

	// Files is a map of relative paths to file contents.
	Files map[string]string
}

// Available templates.
var templates = map[string]*Template{
	"minimal": minimalTemplate(),
	"api":     apiTemplate(),
	"full":    fullTemplate(),
}

// Get returns a template by name.
func Get(name string) (*Template, error) {
	tmpl, ok := templates[name]
	if !ok {
		return nil, errors.New("E044").
			WithDetail("Template '" + name + "' not found").
			WithSuggestion("Available templates: minimal, api, full")
	}
	return tmpl, nil
}

// List returns all available template names, sorted.
func List() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create generates a project from the template.
func (t *Template) Create(dir string, cfg Config) error {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}

	for relPath, content := range t.Files {
		tmpl, err := template.New(relPath).Parse(content)
		if err != nil {
			return errors.Newf(errors.CategoryCLI, "invalid template %s: %v", relPath, err)
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, cfg); err != nil {
			return errors.Newf(errors.CategoryCLI, "template execute error %s: %v", relPath, err)
		}

		fullPath := filepath.Join(dir, relPath)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			return errors.New("E043").WithDetail("Could not create " + filepath.Dir(fullPath)).Wrap(err)
		}

		if err := os.WriteFile(fullPath, buf.Bytes(), 0644); err != nil {
			return errors.New("E043").WithDetail("Could not write " + relPath).Wrap(err)
		}
	}

	return nil
}

// minimalTemplate returns the minimal template.
func minimalTemplate() *Template {
	return &Template{
		Name:        "minimal",
		Description: "A single main.go with one route",
		Files: map[string]string{
			"main.go": `package main

import (
	"log"

	"github.com/strata-dev/strata"
)

func main() {
	app := strata.New(strata.Config{})

	app.Get("/", func(ctx *strata.Context) error {
		return ctx.String(200, "{{.ProjectName}} is running\n")
	})

	log.Fatal(app.Run("{{.Addr}}"))
}
`,
			"go.mod": `module {{.ModulePath}}

go 1.23

require github.com/strata-dev/strata v0.1.0
`,
			"strata.json": `{
  "name": "{{.ProjectName}}",
  "addr": "{{.Addr}}"
}
`,
		},
	}
}

// apiTemplate returns the JSON API template.
func apiTemplate() *Template {
	return &Template{
		Name:        "api",
		Description: "JSON API starter with middleware and a sub-router",
		Files: map[string]string{
			"main.go": `package main

import (
	"log"

	"github.com/strata-dev/strata"
	"github.com/strata-dev/strata/pkg/middleware"
)

func main() {
	app := strata.New(strata.Config{})

	app.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recover(),
	)

	app.Get("/healthz", func(ctx *strata.Context) error {
		return ctx.JSON(200, map[string]string{"status": "ok"})
	})

	api := strata.NewRouter()
	api.Get("/items", listItems)
	api.Get("/items/:id", showItem)
	api.Post("/items", createItem)
	app.Mount("/api/v1", api)

	log.Fatal(app.Run("{{.Addr}}"))
}

func listItems(ctx *strata.Context) error {
	return ctx.JSON(200, []string{})
}

func showItem(ctx *strata.Context) error {
	id := ctx.Param("id")
	if id == "" {
		return strata.ErrBadRequest("missing item id")
	}
	return ctx.JSON(200, map[string]string{"id": id})
}

func createItem(ctx *strata.Context) error {
	return ctx.JSON(201, map[string]string{"status": "created"})
}
`,
			"go.mod": `module {{.ModulePath}}

go 1.23

require github.com/strata-dev/strata v0.1.0
`,
			"strata.json": `{
  "name": "{{.ProjectName}}",
  "addr": "{{.Addr}}",
  "log": {
    "format": "json"
  }
}
`,
			".env.example": `# Overrides for strata.json; copy to .env for local development.
# STRATA_ADDR=:9090
# STRATA_LOG_LEVEL=debug
`,
		},
	}
}

// fullTemplate returns the full template with static files and metrics.
func fullTemplate() *Template {
	return &Template{
		Name:        "full",
		Description: "API starter plus static files and Prometheus metrics",
		Files: map[string]string{
			"main.go": `package main

import (
	"log"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/strata-dev/strata"
	"github.com/strata-dev/strata/pkg/middleware"
)

func main() {
	app := strata.New(strata.Config{
		Static: strata.StaticConfig{Dir: "public"},
	})

	app.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recover(),
		middleware.Prometheus(),
	)

	app.Get("/healthz", func(ctx *strata.Context) error {
		return ctx.JSON(200, map[string]string{"status": "ok"})
	})

	metrics := promhttp.Handler()
	app.Get("/metrics", func(ctx *strata.Context) error {
		metrics.ServeHTTP(ctx.Writer(), ctx.Request())
		return nil
	})

	api := strata.NewRouter()
	api.Get("/items", func(ctx *strata.Context) error {
		return ctx.JSON(200, []string{})
	})
	app.Mount("/api/v1", api)

	log.Fatal(app.Run("{{.Addr}}"))
}
`,
			"go.mod": `module {{.ModulePath}}

go 1.23

require (
	github.com/prometheus/client_golang v1.19.0
	github.com/strata-dev/strata v0.1.0
)
`,
			"strata.json": `{
  "name": "{{.ProjectName}}",
  "addr": "{{.Addr}}",
  "static": {
    "dir": "public"
  },
  "log": {
    "format": "json"
  }
}
`,
			"public/index.html": `<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>{{.ProjectName}}</title>
  </head>
  <body>
    <h1>{{.ProjectName}}</h1>
    <p>{{.Description}}</p>
  </body>
</html>
`,
		},
	}
}
