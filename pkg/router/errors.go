package router

import "errors"

// Registration failures panic with an error wrapping one of these
// sentinels, so recovering code can classify the fault with errors.Is.
// They are programming errors: routes are registered from source code at
// startup, not from runtime input.
var (
	// ErrInvalidPattern reports a malformed pattern: missing leading
	// slash, an empty segment, or a parameter with no name.
	ErrInvalidPattern = errors.New("router: invalid route pattern")

	// ErrNilHandler reports a registration with a nil handler.
	ErrNilHandler = errors.New("router: nil handler")

	// ErrParamConflict reports two patterns that disagree on the
	// parameter name at the same position, such as /users/:id and
	// /users/:name/posts.
	ErrParamConflict = errors.New("router: conflicting parameter name")

	// ErrCatchAllPosition reports a '*' segment anywhere but the final
	// position of a pattern.
	ErrCatchAllPosition = errors.New("router: catch-all must be the final segment")
)
