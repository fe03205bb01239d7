// Package prometheus exposes goSession Manager metrics as a Prometheus
// collector.
//
// Counter names follow gosession_*_total. The profile fetch latency histogram
// is gosession_profile_load_latency_seconds.
//
// Nothing is registered with the default registry; callers register the
// [Exporter] themselves or mount [Exporter.Handler].
package prometheus
