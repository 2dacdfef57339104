package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/strata-dev/strata/internal/errors"
	"github.com/strata-dev/strata/internal/scaffold"
)

func newCmd() *cobra.Command {
	var (
		template    string
		modulePath  string
		description string
		addr        string
	)

	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Create a new strata project",
		Long: `Create a new strata project with the specified name.

Templates:
  minimal   A single main.go with one route
  api       JSON API starter with middleware and a sub-router (default)
  full      API starter plus static files and Prometheus metrics

Examples:
  strata new shop-api
  strata new shop-api --template=full
  strata new shop-api --module=github.com/acme/shop-api`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNew(args[0], template, modulePath, description, addr)
		},
	}

	cmd.Flags().StringVarP(&template, "template", "t", "api", "Project template (minimal, api, full)")
	cmd.Flags().StringVarP(&modulePath, "module", "m", "", "Go module path (defaults to the project name)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Project description")
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address written to strata.json")

	return cmd
}

func runNew(name, templateName, modulePath, description, addr string) error {
	printBanner()
	fmt.Println("  Creating a new strata project...")
	fmt.Println()

	if !isValidProjectName(name) {
		return errors.New("E041").
			WithDetail("Project name '" + name + "' is not a valid module path element").
			WithSuggestion("Use lowercase letters, digits, and hyphens, starting with a letter")
	}

	projectDir, err := filepath.Abs(name)
	if err != nil {
		return err
	}

	if _, err := os.Stat(projectDir); !os.IsNotExist(err) {
		return errors.New("E040").
			WithDetail("Directory '" + name + "' already exists").
			WithSuggestion("Choose a different name or remove the existing directory")
	}

	tmpl, err := scaffold.Get(templateName)
	if err != nil {
		return err
	}

	if modulePath == "" {
		modulePath = name
	}
	if description == "" {
		description = "A strata web service"
	}

	info("Creating project directory...")
	if err := os.MkdirAll(projectDir, 0755); err != nil {
		return errors.New("E043").WithDetail("Could not create " + projectDir).Wrap(err)
	}

	info("Writing '%s' template files...", templateName)
	if err := tmpl.Create(projectDir, scaffold.Config{
		ProjectName: name,
		ModulePath:  modulePath,
		Description: description,
		Addr:        addr,
	}); err != nil {
		// Clean up on error
		os.RemoveAll(projectDir)
		return err
	}

	fmt.Println()
	success("Created %s/", name)
	fmt.Println()
	fmt.Println("  To get started:")
	fmt.Println()
	fmt.Printf("    cd %s\n", name)
	fmt.Println("    go mod tidy")
	fmt.Println("    go run .")
	fmt.Println()
	fmt.Printf("  Your service will be listening on %s\n", addr)
	fmt.Println()

	return nil
}

// isValidProjectName accepts names usable as a Go module path element.
func isValidProjectName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		case r == '-' || r == '_':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
