package strata

import (
	"net/http"
	"path"
	"path/filepath"
	"strings"
)

// =============================================================================
// Static File Serving
// =============================================================================

// serveStatic tries to satisfy the request from the static directory and
// reports whether it wrote a response. Only GET and HEAD are considered;
// everything else falls through to routing, as do directories and paths
// outside the static prefix.
func (a *App) serveStatic(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}

	rel, ok := a.staticRelPath(r.URL.Path)
	if !ok {
		return false
	}

	f, err := a.staticFS.Open(rel)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return false
	}

	a.applyCacheHeaders(w, rel)
	for key, value := range a.config.Static.Headers {
		w.Header().Set(key, value)
	}

	http.ServeContent(w, r, rel, info.ModTime(), f)
	return true
}

// staticRelPath maps a request path to a relative path inside the static
// directory. It reports false for paths outside the static prefix and for
// anything that could resolve outside the directory.
func (a *App) staticRelPath(urlPath string) (string, bool) {
	rel, ok := a.stripStaticPrefix(urlPath)
	if !ok || rel == "" {
		return "", false
	}

	// %00 survives URL decoding into the path.
	if strings.IndexByte(rel, 0) != -1 {
		return "", false
	}
	if strings.Contains(rel, "\\") {
		return "", false
	}

	// A leading "/" after prefix stripping means the request collapsed to
	// an absolute path, e.g. "/static//etc/passwd".
	if strings.HasPrefix(rel, "/") {
		return "", false
	}

	// Refuse dot-segments outright instead of cleaning them into a
	// different path than the client sent.
	for _, seg := range strings.Split(rel, "/") {
		if seg == "." || seg == ".." {
			return "", false
		}
	}

	clean := path.Clean(rel)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") || strings.HasPrefix(clean, "/") {
		return "", false
	}

	// http.Dir resolves against the OS filesystem; refuse anything that
	// is absolute or carries a volume name once slashes are converted.
	osPath := filepath.FromSlash(clean)
	if filepath.IsAbs(osPath) || filepath.VolumeName(osPath) != "" {
		return "", false
	}

	return clean, true
}

// stripStaticPrefix removes the configured prefix from a request path,
// reporting false when the path is not under it.
func (a *App) stripStaticPrefix(urlPath string) (string, bool) {
	prefix := a.staticPrefix
	if prefix == "" {
		prefix = "/"
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	if prefix == "/" {
		return strings.TrimPrefix(urlPath, "/"), true
	}

	rel, found := strings.CutPrefix(urlPath, prefix)
	if !found {
		return "", false
	}
	return rel, true
}

// applyCacheHeaders sets Cache-Control according to the configured
// strategy.
func (a *App) applyCacheHeaders(w http.ResponseWriter, filePath string) {
	switch a.config.Static.CacheControl {
	case CacheControlNone:
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")

	case CacheControlProduction:
		if isFingerprinted(filePath) {
			// Content-hashed files never change under the same name.
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		} else {
			w.Header().Set("Cache-Control", "public, max-age=3600, must-revalidate")
		}
	}
}

// isFingerprinted reports whether a file name carries a content hash,
// e.g. "app.a1b2c3d4.css".
func isFingerprinted(filePath string) bool {
	parts := strings.Split(path.Base(filePath), ".")
	if len(parts) < 3 {
		return false
	}

	hash := parts[len(parts)-2]
	if len(hash) < 8 {
		return false
	}
	for _, c := range hash {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
