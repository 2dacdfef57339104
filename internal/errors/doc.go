// Package errors provides structured, actionable error messages for the
// strata CLI and configuration loader.
//
// Errors carry a code, a category, a plain-language message, an optional
// file location with surrounding context, a fix suggestion, and a
// documentation link. The CLI renders them with Format for terminals and
// FormatJSON for tooling.
//
// # Error Categories
//
// Errors are organized into categories:
//   - routing: route registration errors (pattern conflicts, nil handlers)
//   - config: strata.json and environment configuration errors
//   - cli: command-line tool errors (scaffolding, project layout)
//   - runtime: errors surfaced while a server is running
//
// # Error Codes
//
// Each error has a unique code (e.g., "E001") that maps to:
//   - A short message describing the error
//   - A detailed explanation
//   - A documentation URL
//
// # Usage
//
//	err := errors.New("E020").
//	    WithLocation("strata.json", 4, 18).
//	    WithSuggestion("Remove the trailing comma")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E020: Invalid strata.json
//	//
//	//   strata.json:4:18
//	//
//	//      2 │   "addr": ":8080",
//	//      3 │   "router": {
//	//   →  4 │     "cache_size": 1024,,
//	//        │                  ^
//	//      5 │   }
//	//
//	//   Hint: Remove the trailing comma
//	//
//	//   Learn more: https://strata.dev/docs/errors/E020
package errors
