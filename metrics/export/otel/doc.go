// Package otel exports goSession Manager metrics through an OpenTelemetry
// meter.
//
// [New] registers one Int64ObservableCounter per Manager counter and one
// Int64ObservableGauge per histogram bucket. A single callback reads
// [goSession.Manager.MetricsSnapshot] on each collection cycle.
//
// The caller owns the MeterProvider.
package otel
