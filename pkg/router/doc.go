// Package router matches HTTP requests to handlers using a segment trie.
//
// Patterns are registered per method and may contain three kinds of
// segments:
//
//   - static segments, matched literally ("/users/all")
//   - parameter segments, introduced by ':', which match exactly one path
//     segment and bind its value ("/users/:id")
//   - a catch-all segment, introduced by '*', which must be last and binds
//     the remainder of the path ("/files/*path")
//
// At any position a static segment wins over a parameter segment, and a
// parameter segment wins over a catch-all. Lookup walks the trie with a
// plain loop, one node per path segment, so match cost grows with the
// request path and never with the number of registered routes.
//
// Successful and failed lookups are both remembered in a fixed-size LRU
// cache keyed by method and path, so repeated requests skip the trie
// entirely. Any registration clears the cache.
//
// The router is safe for concurrent lookups. Registration is not
// synchronized; register all routes before serving, as an http.Handler
// would normally be set up.
package router
