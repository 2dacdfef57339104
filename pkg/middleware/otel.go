package middleware

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/strata-dev/strata/pkg/server"
)

// Default tracer name for Strata applications.
const defaultTracerName = "strata"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "strata").
	TracerName string

	// Filter determines which requests to trace.
	// Return true to trace the request, false to skip.
	// If nil, all requests are traced.
	Filter func(ctx *server.Context) bool

	// AttributeExtractor extracts custom attributes from the context.
	// Called for each traced request.
	AttributeExtractor func(ctx *server.Context) []attribute.KeyValue

	// Propagator extracts inbound trace context from request headers.
	// Default: the global otel.GetTextMapPropagator().
	Propagator propagation.TextMapPropagator

	// tracer is the resolved tracer instance.
	tracer trace.Tracer
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTraceFilter sets a filter function for requests.
func WithTraceFilter(filter func(ctx *server.Context) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(ctx *server.Context) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

// WithPropagator sets the propagator used to extract inbound trace context.
func WithPropagator(propagator propagation.TextMapPropagator) OTelOption {
	return func(c *OTelConfig) {
		c.Propagator = propagator
	}
}

// defaultOTelConfig returns the default OpenTelemetry configuration.
func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName: defaultTracerName,
	}
}

// OpenTelemetry creates middleware that traces every request.
//
// The middleware:
//   - Continues a trace from inbound headers (W3C traceparent et al.)
//   - Creates a server span named after the matched route
//   - Injects the span context into ctx.Context() for downstream calls
//   - Records errors and sets span status
//
// Example:
//
//	app.Use(middleware.OpenTelemetry(
//	    middleware.WithTracerName("my-app"),
//	))
//
// The tracer uses the global OpenTelemetry tracer provider. Configure it
// in your main() before starting the server:
//
//	tp := sdktrace.NewTracerProvider(
//	    sdktrace.WithBatcher(exporter),
//	    sdktrace.WithResource(resource.NewWithAttributes(
//	        semconv.SchemaURL,
//	        semconv.ServiceName("my-app"),
//	    )),
//	)
//	otel.SetTracerProvider(tp)
func OpenTelemetry(opts ...OTelOption) server.Middleware {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}

	// Resolve tracer from the global provider
	config.tracer = otel.Tracer(config.TracerName)

	return server.MiddlewareFunc(func(ctx *server.Context, next func() error) error {
		// Apply filter if configured
		if config.Filter != nil && !config.Filter(ctx) {
			return next()
		}

		propagator := config.Propagator
		if propagator == nil {
			propagator = otel.GetTextMapPropagator()
		}
		parent := propagator.Extract(ctx.Context(), propagation.HeaderCarrier(ctx.Request().Header))

		attrs := []attribute.KeyValue{
			attribute.String("http.method", ctx.Method()),
			attribute.String("http.target", ctx.Path()),
		}
		if ip := ctx.ClientIP(); ip != "" {
			attrs = append(attrs, attribute.String("http.client_ip", ip))
		}
		if config.AttributeExtractor != nil {
			attrs = append(attrs, config.AttributeExtractor(ctx)...)
		}

		// Span name starts as method + raw path; once routing has matched
		// it is renamed to the route pattern to keep names low-cardinality.
		spanCtx, span := config.tracer.Start(
			parent,
			ctx.Method()+" "+ctx.Path(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attrs...),
		)
		defer span.End()

		// Make the span visible to handlers and outbound clients.
		ctx.WithContext(spanCtx)

		err := next()

		if route := ctx.Route(); route != "" {
			span.SetName(ctx.Method() + " " + route)
			span.SetAttributes(attribute.String("http.route", route))
		}

		status := ctx.StatusCode()
		if status == 0 {
			if err != nil {
				status = server.StatusFromError(err)
			} else {
				status = http.StatusOK
			}
		}
		span.SetAttributes(attribute.Int("http.status_code", status))

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	})
}

// SpanFromContext retrieves the current trace span from the context.
// Returns a no-op span if tracing is not active for this request.
//
// Example:
//
//	app.Get("/orders/:id", func(ctx *strata.Context) error {
//	    span := middleware.SpanFromContext(ctx)
//	    span.SetAttributes(attribute.String("order.id", ctx.Param("id")))
//	    // ...
//	    return nil
//	})
func SpanFromContext(ctx *server.Context) trace.Span {
	return trace.SpanFromContext(ctx.Context())
}
