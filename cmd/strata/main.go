package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/strata-dev/strata/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┌─┐┌┬┐┬─┐┌─┐┌┬┐┌─┐
  └─┐ │ ├┬┘├─┤ │ ├─┤
  └─┘ ┴ ┴└─┴ ┴ ┴ ┴ ┴
`

func main() {
	rootCmd := &cobra.Command{
		Use:   "strata",
		Short: "HTTP routing and middleware toolkit for Go",
		Long: `Strata is an HTTP routing and middleware toolkit for Go.

Compose radix-tree routing, ordered middleware, and pooled request
contexts into plain net/http servers:

  • Pattern routing with parameters and catch-alls
  • Middleware chains with error propagation
  • Prometheus and OpenTelemetry instrumentation
  • strata.json project configuration with env overrides`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newCmd(),
		checkCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

// printBanner prints the strata ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}
