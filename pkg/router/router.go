package router

import (
	"fmt"
	"maps"
	"net/http"
	"sort"
	"strings"

	"github.com/strata-dev/strata/pkg/server"
)

// DefaultCacheSize is the lookup cache capacity used when no option
// overrides it.
const DefaultCacheSize = 1024

// standardMethods is the expansion of a MethodAll registration for the
// Allow header.
var standardMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

// RouteMatch is the result of a successful lookup: the handler to invoke,
// the parameter values bound from the path, and the pattern and method the
// handler was registered under.
//
// Match returns a fresh RouteMatch per call; callers own it and may hand
// its Params to a request context without copying.
type RouteMatch struct {
	Handler server.Handler
	Params  map[string]string
	Pattern string
	Method  string
}

// clone copies the match so the cached canonical copy is never exposed to
// a request.
func (m *RouteMatch) clone() *RouteMatch {
	return &RouteMatch{
		Handler: m.Handler,
		Params:  maps.Clone(m.Params),
		Pattern: m.Pattern,
		Method:  m.Method,
	}
}

// Route describes one registered route for introspection.
type Route struct {
	Method  string
	Pattern string
}

// scope is a middleware list bound to a path prefix.
type scope struct {
	prefix     string
	middleware []server.Middleware
}

// Option configures a Router at construction.
type Option func(*Router)

// WithCacheSize sets the lookup cache capacity. Zero or negative disables
// caching, so every request walks the trie.
func WithCacheSize(n int) Option {
	return func(r *Router) { r.cacheSize = n }
}

// Router maps (method, path) pairs to handlers. Register routes with
// Handle or the method shorthands, then resolve requests with Match.
//
// Registration must finish before concurrent Match calls begin; after
// that, lookups are safe from any number of goroutines.
type Router struct {
	root      *node
	cache     *routeCache
	cacheSize int

	middleware []server.Middleware
	scopes     []scope
}

// NewRouter creates an empty router with the default lookup cache.
func NewRouter(opts ...Option) *Router {
	r := &Router{
		root:      &node{},
		cacheSize: DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cacheSize > 0 {
		r.cache = newRouteCache(r.cacheSize)
	}
	return r
}

// Handle registers a handler for method and pattern. The pattern must
// begin with '/'; ':name' segments bind one path segment, and a final
// '*name' segment binds the rest of the path (at least one segment).
// Trailing slashes are not significant: "/users" and "/users/" are the
// same pattern. Registering the same method and pattern again replaces
// the handler.
//
// Handle panics with an error wrapping ErrInvalidPattern, ErrNilHandler,
// ErrParamConflict or ErrCatchAllPosition on bad input; registrations come
// from source code, so failing loudly at startup beats misrouting later.
func (r *Router) Handle(method, pattern string, handler server.Handler) {
	if handler == nil {
		panic(fmt.Errorf("%w: %s %q", ErrNilHandler, method, pattern))
	}
	if !strings.HasPrefix(pattern, "/") {
		panic(fmt.Errorf("%w: %q must begin with '/'", ErrInvalidPattern, pattern))
	}
	if method != MethodAll {
		method = strings.ToUpper(method)
	}

	node := r.root.insert(SplitPath(pattern), pattern)
	node.setHandler(method, pattern, handler)
	r.invalidate()
}

// Get registers handler for GET requests on pattern.
func (r *Router) Get(pattern string, handler server.Handler) {
	r.Handle(http.MethodGet, pattern, handler)
}

// Post registers handler for POST requests on pattern.
func (r *Router) Post(pattern string, handler server.Handler) {
	r.Handle(http.MethodPost, pattern, handler)
}

// Put registers handler for PUT requests on pattern.
func (r *Router) Put(pattern string, handler server.Handler) {
	r.Handle(http.MethodPut, pattern, handler)
}

// Patch registers handler for PATCH requests on pattern.
func (r *Router) Patch(pattern string, handler server.Handler) {
	r.Handle(http.MethodPatch, pattern, handler)
}

// Delete registers handler for DELETE requests on pattern.
func (r *Router) Delete(pattern string, handler server.Handler) {
	r.Handle(http.MethodDelete, pattern, handler)
}

// Head registers handler for HEAD requests on pattern.
func (r *Router) Head(pattern string, handler server.Handler) {
	r.Handle(http.MethodHead, pattern, handler)
}

// Options registers handler for OPTIONS requests on pattern.
func (r *Router) Options(pattern string, handler server.Handler) {
	r.Handle(http.MethodOptions, pattern, handler)
}

// All registers handler for every method on pattern. A method-specific
// registration on the same pattern takes precedence.
func (r *Router) All(pattern string, handler server.Handler) {
	r.Handle(MethodAll, pattern, handler)
}

// Use appends middleware that applies to every request.
func (r *Router) Use(mw ...server.Middleware) {
	r.middleware = append(r.middleware, mw...)
}

// Middleware appends middleware that applies to requests whose path is
// prefix or lies under it.
func (r *Router) Middleware(prefix string, mw ...server.Middleware) {
	r.scopes = append(r.scopes, scope{
		prefix:     normalizePrefix(prefix),
		middleware: append([]server.Middleware(nil), mw...),
	})
}

// Mount copies every route registered on sub into r under prefix, and
// carries sub's middleware over as prefix-scoped middleware. It is a
// snapshot: routes added to sub after the Mount call do not appear in r.
func (r *Router) Mount(prefix string, sub *Router) {
	if sub == nil {
		panic(fmt.Errorf("%w: mount %q", ErrNilHandler, prefix))
	}
	prefix = normalizePrefix(prefix)

	sub.root.walk(func(method, pattern string, h server.Handler) {
		r.Handle(method, joinPattern(prefix, pattern), h)
	})

	if len(sub.middleware) > 0 {
		r.scopes = append(r.scopes, scope{
			prefix:     prefix,
			middleware: append([]server.Middleware(nil), sub.middleware...),
		})
	}
	for _, sc := range sub.scopes {
		r.scopes = append(r.scopes, scope{
			prefix:     joinPattern(prefix, sc.prefix),
			middleware: append([]server.Middleware(nil), sc.middleware...),
		})
	}
}

// Match resolves method and path to a registered handler. The second
// return value is false when no route matches, including when the path is
// known but has no handler for this method; use AllowedMethods to
// distinguish the two.
//
// Results, found or not, are remembered in the lookup cache. The returned
// match is the caller's to keep.
func (r *Router) Match(method, path string) (*RouteMatch, bool) {
	if r.cache == nil {
		match := r.lookup(method, path)
		return match, match != nil
	}

	key := method + " " + path
	if entry, ok := r.cache.get(key); ok {
		if entry.match == nil {
			return nil, false
		}
		return entry.match.clone(), true
	}

	match := r.lookup(method, path)
	r.cache.set(key, match)
	if match == nil {
		return nil, false
	}
	return match.clone(), true
}

// lookup walks the trie, bypassing the cache.
func (r *Router) lookup(method, path string) *RouteMatch {
	node, params, ok := r.root.lookup(SplitPath(path))
	if !ok {
		return nil
	}
	h, pattern, ok := node.handlerFor(method)
	if !ok {
		return nil
	}
	return &RouteMatch{
		Handler: h,
		Params:  params,
		Pattern: pattern,
		Method:  method,
	}
}

// AllowedMethods returns the sorted methods registered for path, with a
// MethodAll registration expanded to the standard set. It returns nil
// when the path matches no route at all. The result is computed from the
// trie on every call and never cached.
func (r *Router) AllowedMethods(path string) []string {
	node, _, ok := r.root.lookup(SplitPath(path))
	if !ok || len(node.handlers) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(node.handlers))
	for method := range node.handlers {
		if method == MethodAll {
			for _, m := range standardMethods {
				seen[m] = struct{}{}
			}
			continue
		}
		seen[method] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for method := range seen {
		out = append(out, method)
	}
	sort.Strings(out)
	return out
}

// Routes lists every registered route, sorted by pattern then method.
func (r *Router) Routes() []Route {
	var routes []Route
	r.root.walk(func(method, pattern string, _ server.Handler) {
		routes = append(routes, Route{Method: method, Pattern: pattern})
	})
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Pattern != routes[j].Pattern {
			return routes[i].Pattern < routes[j].Pattern
		}
		return routes[i].Method < routes[j].Method
	})
	return routes
}

// MiddlewareFor returns the middleware that applies to path: the global
// list, then every matching prefix scope in registration order. Callers
// must not modify the returned slice.
func (r *Router) MiddlewareFor(path string) []server.Middleware {
	if len(r.scopes) == 0 {
		return r.middleware
	}
	out := make([]server.Middleware, 0, len(r.middleware)+4)
	out = append(out, r.middleware...)
	for _, sc := range r.scopes {
		if prefixMatches(path, sc.prefix) {
			out = append(out, sc.middleware...)
		}
	}
	return out
}

// CacheStats returns a snapshot of the lookup cache counters. The zero
// value is returned when caching is disabled.
func (r *Router) CacheStats() CacheStats {
	if r.cache == nil {
		return CacheStats{}
	}
	return r.cache.stats()
}

// invalidate clears the lookup cache after the route table changes.
func (r *Router) invalidate() {
	if r.cache != nil {
		r.cache.clear()
	}
}

// normalizePrefix validates a scope or mount prefix and strips its
// trailing slash.
func normalizePrefix(prefix string) string {
	if prefix == "" || prefix == "/" {
		return "/"
	}
	if !strings.HasPrefix(prefix, "/") {
		panic(fmt.Errorf("%w: prefix %q must begin with '/'", ErrInvalidPattern, prefix))
	}
	return strings.TrimSuffix(prefix, "/")
}

// joinPattern concatenates a mount prefix and a pattern into one pattern.
func joinPattern(prefix, pattern string) string {
	p := strings.TrimSuffix(prefix, "/")
	q := strings.TrimPrefix(pattern, "/")
	switch {
	case p == "" && q == "":
		return "/"
	case q == "":
		return p
	default:
		return p + "/" + q
	}
}

// prefixMatches reports whether path is prefix or lies under it,
// comparing whole segments so "/api" does not cover "/apiary".
func prefixMatches(path, prefix string) bool {
	if prefix == "/" || prefix == "" {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}
