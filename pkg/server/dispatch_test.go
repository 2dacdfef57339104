package server

import (
	"errors"
	"net/http/httptest"
	"testing"
)

func dispatchContext(t *testing.T) *Context {
	t.Helper()
	f := NewFactory(FactoryConfig{})
	return f.Acquire(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
}

// tracer appends before/after markers around next so tests can assert the
// nesting order of the chain.
func tracer(name string, log *[]string) Middleware {
	return MiddlewareFunc(func(ctx *Context, next func() error) error {
		*log = append(*log, name+":before")
		err := next()
		*log = append(*log, name+":after")
		return err
	})
}

func TestRunOnionOrder(t *testing.T) {
	ctx := dispatchContext(t)
	var log []string

	chain := []Middleware{tracer("A", &log), tracer("B", &log), tracer("C", &log)}
	ranFinal, err := Run(ctx, chain, func() error {
		log = append(log, "handler")
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !ranFinal {
		t.Error("ranFinal = false, want true")
	}

	want := []string{
		"A:before", "B:before", "C:before",
		"handler",
		"C:after", "B:after", "A:after",
	}
	if len(log) != len(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("log[%d] = %s, want %s (full: %v)", i, log[i], want[i], log)
		}
	}
}

func TestRunShortCircuit(t *testing.T) {
	ctx := dispatchContext(t)
	var log []string

	block := MiddlewareFunc(func(ctx *Context, next func() error) error {
		log = append(log, "block")
		return nil // never calls next
	})
	chain := []Middleware{tracer("A", &log), block, tracer("C", &log)}

	ranFinal, err := Run(ctx, chain, func() error {
		log = append(log, "handler")
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ranFinal {
		t.Error("ranFinal = true, want false after short-circuit")
	}
	for _, entry := range log {
		if entry == "handler" || entry == "C:before" {
			t.Fatalf("chain ran past the short-circuit: %v", log)
		}
	}
}

func TestRunErrorPropagatesThroughChain(t *testing.T) {
	ctx := dispatchContext(t)
	sentinel := errors.New("handler failed")

	var sawInMiddle error
	observe := MiddlewareFunc(func(ctx *Context, next func() error) error {
		err := next()
		sawInMiddle = err
		return err
	})

	ranFinal, err := Run(ctx, []Middleware{observe}, func() error {
		return sentinel
	})
	if !ranFinal {
		t.Error("ranFinal = false, want true")
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("Run error = %v, want %v", err, sentinel)
	}
	if !errors.Is(sawInMiddle, sentinel) {
		t.Errorf("middleware observed %v, want %v", sawInMiddle, sentinel)
	}
}

func TestRunMiddlewareSuppressesError(t *testing.T) {
	ctx := dispatchContext(t)
	sentinel := errors.New("inner failure")

	suppress := MiddlewareFunc(func(ctx *Context, next func() error) error {
		if err := next(); err != nil {
			return nil // handled here
		}
		return nil
	})

	ranFinal, err := Run(ctx, []Middleware{suppress}, func() error {
		return sentinel
	})
	if !ranFinal {
		t.Error("ranFinal = false, want true")
	}
	if err != nil {
		t.Errorf("Run error = %v, want nil after suppression", err)
	}
}

func TestRunMiddlewareErrorBeforeNext(t *testing.T) {
	ctx := dispatchContext(t)
	sentinel := errors.New("rejected")

	reject := MiddlewareFunc(func(ctx *Context, next func() error) error {
		return sentinel
	})

	ranFinal, err := Run(ctx, []Middleware{reject}, func() error { return nil })
	if ranFinal {
		t.Error("ranFinal = true, want false")
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("Run error = %v, want %v", err, sentinel)
	}
}

func TestRunEmptyChain(t *testing.T) {
	ctx := dispatchContext(t)
	ran := false

	ranFinal, err := Run(ctx, nil, func() error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !ranFinal || !ran {
		t.Error("final should run directly on an empty chain")
	}
}

func TestRunNilFinal(t *testing.T) {
	ctx := dispatchContext(t)

	ranFinal, err := Run(ctx, []Middleware{tracer("A", new([]string))}, nil)
	if ranFinal || err != nil {
		t.Errorf("Run(nil final) = (%v, %v), want (false, nil)", ranFinal, err)
	}
}

func TestRunSkipsNilMiddleware(t *testing.T) {
	ctx := dispatchContext(t)
	var log []string

	chain := []Middleware{nil, tracer("A", &log), nil}
	ranFinal, err := Run(ctx, chain, func() error {
		log = append(log, "handler")
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !ranFinal {
		t.Error("ranFinal = false, want true")
	}
	if len(log) != 3 || log[1] != "handler" {
		t.Errorf("log = %v, want [A:before handler A:after]", log)
	}
}

func TestRunNextCalledTwice(t *testing.T) {
	ctx := dispatchContext(t)

	var second error
	double := MiddlewareFunc(func(ctx *Context, next func() error) error {
		if err := next(); err != nil {
			return err
		}
		second = next()
		return second
	})

	calls := 0
	_, err := Run(ctx, []Middleware{double}, func() error {
		calls++
		return nil
	})
	if !errors.Is(err, ErrNextCalledTwice) {
		t.Errorf("Run error = %v, want ErrNextCalledTwice", err)
	}
	if !errors.Is(second, ErrNextCalledTwice) {
		t.Errorf("second next() = %v, want ErrNextCalledTwice", second)
	}
	if calls != 1 {
		t.Errorf("final ran %d times, want 1", calls)
	}
}

func TestRunNextCalledTwiceDeepInChain(t *testing.T) {
	ctx := dispatchContext(t)
	var log []string

	double := MiddlewareFunc(func(ctx *Context, next func() error) error {
		_ = next()
		return next()
	})
	chain := []Middleware{tracer("outer", &log), double}

	calls := 0
	_, err := Run(ctx, chain, func() error {
		calls++
		return nil
	})
	if !errors.Is(err, ErrNextCalledTwice) {
		t.Errorf("Run error = %v, want ErrNextCalledTwice", err)
	}
	if calls != 1 {
		t.Errorf("final ran %d times, want 1", calls)
	}
}

func TestChainComposes(t *testing.T) {
	ctx := dispatchContext(t)
	var log []string

	combined := Chain(tracer("A", &log), tracer("B", &log))
	ranFinal, err := Run(ctx, []Middleware{combined}, func() error {
		log = append(log, "handler")
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !ranFinal {
		t.Error("ranFinal = false, want true")
	}

	want := []string{"A:before", "B:before", "handler", "B:after", "A:after"}
	if len(log) != len(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("log[%d] = %s, want %s", i, log[i], want[i])
		}
	}
}

func TestSkipAndOnly(t *testing.T) {
	ctx := dispatchContext(t)
	var log []string

	mw := tracer("M", &log)
	always := func(ctx *Context) bool { return true }
	never := func(ctx *Context) bool { return false }

	if _, err := Run(ctx, []Middleware{Skip(mw, always)}, func() error { return nil }); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(log) != 0 {
		t.Errorf("Skip(true) ran the middleware: %v", log)
	}

	if _, err := Run(ctx, []Middleware{Only(mw, never)}, func() error { return nil }); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(log) != 0 {
		t.Errorf("Only(false) ran the middleware: %v", log)
	}

	if _, err := Run(ctx, []Middleware{Only(mw, always)}, func() error { return nil }); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(log) != 2 {
		t.Errorf("Only(true) skipped the middleware: %v", log)
	}
}

type markedBoundary struct{}

func (markedBoundary) Handle(ctx *Context, next func() error) error { return next() }
func (markedBoundary) ErrorBoundary()                               {}

func TestIsErrorBoundary(t *testing.T) {
	if !IsErrorBoundary(markedBoundary{}) {
		t.Error("markedBoundary should be detected as an error boundary")
	}
	plain := MiddlewareFunc(func(ctx *Context, next func() error) error { return next() })
	if IsErrorBoundary(plain) {
		t.Error("plain middleware should not be an error boundary")
	}
}
