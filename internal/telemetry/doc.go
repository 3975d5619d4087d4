// Package telemetry provides Prometheus metrics and OpenTelemetry spans for
// zcc.
//
// Metrics are registered on a per-process registry rather than the global
// default so tests and the pack server can inspect them. The CLI writes the
// registry to a text file when telemetry.metricsFile is configured, and the
// pack server exposes it on /metrics.
//
// All Record methods are safe to call on a nil *Metrics.
package telemetry
