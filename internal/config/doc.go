// Package config loads strata.json project configuration with environment
// overrides.
//
// Configuration is layered: compiled-in defaults, then strata.json, then
// STRATA_* environment variables. A .env file in the working directory is
// loaded into the environment first, so development overrides live next to
// the project instead of in shell profiles.
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    errors.PrintError(err)
//	    os.Exit(1)
//	}
//	logger := cfg.Logger()
//
// Durations are written as Go duration strings in both layers:
// "read_timeout": "30s" in strata.json, STRATA_SERVER_READ_TIMEOUT=30s in
// the environment.
package config
