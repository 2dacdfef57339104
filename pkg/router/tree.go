package router

import (
	"fmt"
	"strings"

	"github.com/strata-dev/strata/pkg/server"
)

// MethodAll is the wildcard method key. A handler registered under it
// answers any method the pattern has no specific handler for.
const MethodAll = "*"

// node is one segment of the pattern trie.
type node struct {
	// segment is the literal this node matches; empty for parameter and
	// catch-all nodes.
	segment string

	// name is the bound parameter name for parameter and catch-all nodes.
	name string

	// handlers maps an HTTP method (or MethodAll) to the handler
	// registered for it at this node.
	handlers map[string]server.Handler

	// patterns remembers the original pattern for each handlers entry.
	patterns map[string]string

	staticChildren map[string]*node
	paramChild     *node
	catchAllChild  *node
}

// insert descends from n along the pattern's segments, creating nodes as
// needed, and returns the terminal node. It panics with an error wrapping
// ErrInvalidPattern, ErrParamConflict or ErrCatchAllPosition on malformed
// or conflicting patterns.
func (n *node) insert(segments []string, pattern string) *node {
	current := n
	for i, seg := range segments {
		switch {
		case strings.HasPrefix(seg, "*"):
			name := seg[1:]
			if name == "" {
				panic(fmt.Errorf("%w: catch-all without a name in %q", ErrInvalidPattern, pattern))
			}
			if i != len(segments)-1 {
				panic(fmt.Errorf("%w: %q", ErrCatchAllPosition, pattern))
			}
			current = current.catchAll(name, pattern)
		case strings.HasPrefix(seg, ":"):
			name := seg[1:]
			if name == "" {
				panic(fmt.Errorf("%w: parameter without a name in %q", ErrInvalidPattern, pattern))
			}
			current = current.param(name, pattern)
		case seg == "":
			panic(fmt.Errorf("%w: empty segment in %q", ErrInvalidPattern, pattern))
		default:
			current = current.static(seg)
		}
	}
	return current
}

// static returns the child for a literal segment, creating it on first use.
func (n *node) static(segment string) *node {
	if child, ok := n.staticChildren[segment]; ok {
		return child
	}
	if n.staticChildren == nil {
		n.staticChildren = make(map[string]*node)
	}
	child := &node{segment: segment}
	n.staticChildren[segment] = child
	return child
}

// param returns the parameter child, creating it on first use. A node has
// at most one parameter child; a second pattern must use the same name.
func (n *node) param(name, pattern string) *node {
	if n.paramChild != nil {
		if n.paramChild.name != name {
			panic(fmt.Errorf("%w: :%s conflicts with :%s in %q",
				ErrParamConflict, name, n.paramChild.name, pattern))
		}
		return n.paramChild
	}
	n.paramChild = &node{name: name}
	return n.paramChild
}

// catchAll returns the catch-all child, creating it on first use. As with
// parameter children, the name must agree across patterns.
func (n *node) catchAll(name, pattern string) *node {
	if n.catchAllChild != nil {
		if n.catchAllChild.name != name {
			panic(fmt.Errorf("%w: *%s conflicts with *%s in %q",
				ErrParamConflict, name, n.catchAllChild.name, pattern))
		}
		return n.catchAllChild
	}
	n.catchAllChild = &node{name: name}
	return n.catchAllChild
}

// setHandler binds a handler for method at this node. Registering the same
// method and pattern again replaces the previous handler.
func (n *node) setHandler(method, pattern string, h server.Handler) {
	if n.handlers == nil {
		n.handlers = make(map[string]server.Handler)
		n.patterns = make(map[string]string)
	}
	n.handlers[method] = h
	n.patterns[method] = pattern
}

// lookup walks the trie for the given path segments with a plain loop. At
// each step a static child wins over the parameter child, which wins over
// the catch-all child; there is no backtracking across those choices. The
// params map is allocated only once a parameter actually binds.
//
// The returned node may carry no handlers (a pure interior node); method
// resolution is the caller's concern. A catch-all consumes at least one
// segment.
func (n *node) lookup(segments []string) (*node, map[string]string, bool) {
	current := n
	var params map[string]string
	for i, seg := range segments {
		if child, ok := current.staticChildren[seg]; ok {
			current = child
			continue
		}
		if current.paramChild != nil {
			if params == nil {
				params = make(map[string]string, 4)
			}
			params[current.paramChild.name] = seg
			current = current.paramChild
			continue
		}
		if current.catchAllChild != nil {
			if params == nil {
				params = make(map[string]string, 1)
			}
			params[current.catchAllChild.name] = strings.Join(segments[i:], "/")
			return current.catchAllChild, params, true
		}
		return nil, nil, false
	}
	return current, params, true
}

// handlerFor resolves method at a matched node, falling back to the
// MethodAll entry. It returns the handler and the pattern it was
// registered under.
func (n *node) handlerFor(method string) (server.Handler, string, bool) {
	if len(n.handlers) == 0 {
		return nil, "", false
	}
	if h, ok := n.handlers[method]; ok {
		return h, n.patterns[method], true
	}
	if h, ok := n.handlers[MethodAll]; ok {
		return h, n.patterns[MethodAll], true
	}
	return nil, "", false
}

// walk visits every registered (method, pattern, handler) triple in the
// subtree. Visit order is unspecified.
func (n *node) walk(fn func(method, pattern string, h server.Handler)) {
	stack := []*node{n}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for method, h := range current.handlers {
			fn(method, current.patterns[method], h)
		}
		for _, child := range current.staticChildren {
			stack = append(stack, child)
		}
		if current.paramChild != nil {
			stack = append(stack, current.paramChild)
		}
		if current.catchAllChild != nil {
			stack = append(stack, current.catchAllChild)
		}
	}
}
