package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "chat-platform/backend/internal/server"

// Telemetry wraps every request in a server span and records a request
// counter and a duration histogram, using the globally installed OTel
// providers. Attributes use the registered route pattern rather than the raw
// path, so /user/devices/:device_name stays one series.
func Telemetry(serviceName string) fiber.Handler {
	tracer := otel.Tracer(instrumentationName)
	meter := otel.Meter(instrumentationName)

	requests, err := meter.Int64Counter("http.server.requests",
		metric.WithDescription("Completed HTTP requests."))
	if err != nil {
		otel.Handle(err)
	}
	duration, err := meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("HTTP request handling time."),
		metric.WithUnit("s"))
	if err != nil {
		otel.Handle(err)
	}

	return func(c *fiber.Ctx) error {
		start := time.Now()

		ctx, span := tracer.Start(c.UserContext(), c.Method()+" "+c.Path(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", c.Method()),
				attribute.String("service.name", serviceName),
			),
		)
		c.SetUserContext(ctx)

		err := c.Next()

		// The route pattern is only resolved after routing ran.
		route := c.Route().Path
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
			span.RecordError(err)
		}

		span.SetName(c.Method() + " " + route)
		span.SetAttributes(
			attribute.String("http.route", route),
			attribute.Int("http.response.status_code", status),
		)
		if status >= fiber.StatusInternalServerError {
			span.SetStatus(codes.Error, "")
		}
		span.End()

		attrs := metric.WithAttributes(
			attribute.String("http.request.method", c.Method()),
			attribute.String("http.route", route),
			attribute.Int("http.response.status_code", status),
		)
		requests.Add(ctx, 1, attrs)
		duration.Record(ctx, time.Since(start).Seconds(), attrs)

		return err
	}
}
