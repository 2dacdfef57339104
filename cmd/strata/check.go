package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/strata-dev/strata/internal/config"
)

func checkCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the project configuration",
		Long: `Load strata.json, apply STRATA_* environment overrides, and report
the effective configuration. Exits non-zero when the configuration is
invalid, with the reason and file position.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(dir)
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "C", "", "Project directory (defaults to the nearest strata.json)")

	return cmd
}

func runCheck(dir string) error {
	var (
		cfg *config.Config
		err error
	)
	if dir != "" {
		cfg, err = config.Load(dir)
	} else {
		wd, werr := os.Getwd()
		if werr != nil {
			return werr
		}
		root, rerr := config.FindProjectRoot(wd)
		if rerr != nil {
			return rerr
		}
		cfg, err = config.Load(root)
	}
	if err != nil {
		return err
	}

	success("%s is valid", cfg.Path())
	fmt.Println()
	if cfg.Name != "" {
		info("Name:         %s", cfg.Name)
	}
	info("Addr:         %s", cfg.Addr)
	info("Environment:  %s", cfg.Environment)
	info("Cache size:   %d", cfg.Router.CacheSize)
	info("Log:          %s/%s", cfg.Log.Level, cfg.Log.Format)
	if cfg.Static.Dir != "" {
		info("Static:       %s at %s", cfg.Static.Dir, cfg.Static.Prefix)
	}
	if len(cfg.TrustedProxies) > 0 {
		info("Proxies:      %v", cfg.TrustedProxies)
	}
	fmt.Println()

	return nil
}
