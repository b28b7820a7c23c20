// Package observability wires OpenTelemetry tracing and metrics into meshkit
// services. InitTracer/InitMeter install global providers exporting over OTLP
// HTTP, HTTPMiddleware opens a span per request and stamps trace IDs into the
// request context for the logger, and Inject/Extract carry W3C trace context
// across the gateway hop.
package observability
