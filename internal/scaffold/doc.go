// Package scaffold provides project templates for the strata CLI.
//
// Each template is a set of embedded files that together form a working
// strata project, written out by the 'strata new' command.
//
// # Available Templates
//
//   - minimal: A single main.go with one route
//   - api: JSON API starter with middleware and a sub-router
//   - full: API starter plus static files and Prometheus metrics
//
// # Usage
//
//	tmpl, err := scaffold.Get("api")
//	if err != nil {
//	    return err
//	}
//	if err := tmpl.Create(projectDir, cfg); err != nil {
//	    return err
//	}
//
// # Template Variables
//
// File contents support variable substitution:
//
//	{{.ProjectName}}  - Name of the project
//	{{.ModulePath}}   - Go module path
//	{{.Description}}  - Project description
//	{{.Addr}}         - Listen address for strata.json
package scaffold
