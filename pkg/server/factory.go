package server

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/valyala/bytebufferpool"
)

// FactoryConfig configures a context Factory.
type FactoryConfig struct {
	// Logger is attached to every acquired context. Nil falls back to
	// slog.Default at call time.
	Logger *slog.Logger

	// TrustedProxies lists proxy addresses (IPs or CIDR ranges) whose
	// forwarding headers are honored when resolving the client IP.
	TrustedProxies []string
}

// Factory produces request contexts from an internal pool. Each application
// owns its own Factory, so two applications in one process never share
// context or buffer pools.
type Factory struct {
	pool    sync.Pool
	bufs    bytebufferpool.Pool
	logger  *slog.Logger
	trusted *proxyMatcher
}

// NewFactory builds a Factory. Invalid TrustedProxies entries are skipped
// with a warning on the configured logger.
func NewFactory(cfg FactoryConfig) *Factory {
	f := &Factory{
		logger:  cfg.Logger,
		trusted: newProxyMatcher(cfg.TrustedProxies, cfg.Logger),
	}
	f.pool.New = func() any {
		return &Context{
			writer:  newResponseWriter(nil),
			values:  make(map[any]any),
			bufs:    &f.bufs,
			trusted: f.trusted,
		}
	}
	return f
}

// Acquire returns a context bound to the given request/response pair. The
// context comes from the pool; the caller must Release it when the request
// is finished and must not retain it afterwards.
func (f *Factory) Acquire(w http.ResponseWriter, r *http.Request) *Context {
	ctx := f.pool.Get().(*Context)
	ctx.reset(w, r)
	ctx.logger = f.logger
	return ctx
}

// Release returns a context to the pool after clearing its request-scoped
// state. A context whose writer was abandoned is left for the garbage
// collector instead: the handler that overran its deadline may still be
// holding it.
func (f *Factory) Release(ctx *Context) {
	if ctx.writer.isAbandoned() {
		return
	}
	ctx.release()
	f.pool.Put(ctx)
}

// Buffers exposes the factory's byte buffer pool for response composition
// outside a context, such as the application's error renderer.
func (f *Factory) Buffers() *bytebufferpool.Pool { return &f.bufs }
