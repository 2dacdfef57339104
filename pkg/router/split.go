package router

import "strings"

// emptySegments is the shared result for paths with no segments. Returning
// one instance keeps root lookups allocation-free.
var emptySegments = []string{}

// SplitPath splits a request path into its segments. Leading and trailing
// slashes are ignored, so "/users/", "/users" and "users" all yield
// ["users"]; "" and "/" yield an empty slice. Interior empty segments
// ("//") are preserved and will not match any registered pattern.
//
// The returned slice may be shared; callers must not modify it.
func SplitPath(path string) []string {
	if path == "" || path == "/" {
		return emptySegments
	}
	path = strings.Trim(path, "/")
	if path == "" {
		return emptySegments
	}
	return strings.Split(path, "/")
}
