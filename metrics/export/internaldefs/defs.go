package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef names one Manager counter.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one Manager latency histogram.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricInitialFetchSuccess, Name: "gosession_initial_fetch_success_total", Help: "Initial session fetches that settled with a result."},
	{ID: goSession.MetricInitialFetchFailure, Name: "gosession_initial_fetch_failure_total", Help: "Initial session fetches that failed."},
	{ID: goSession.MetricInitialFetchDiscarded, Name: "gosession_initial_fetch_discarded_total", Help: "Initial fetch results discarded after deactivation."},
	{ID: goSession.MetricBootstrapSuppressed, Name: "gosession_bootstrap_suppressed_total", Help: "Bootstrap events ignored while the initial fetch was outstanding."},
	{ID: goSession.MetricEventApplied, Name: "gosession_event_applied_total", Help: "Pushed auth events adopted as the current session."},
	{ID: goSession.MetricEventDropped, Name: "gosession_event_dropped_total", Help: "Pushed auth events rejected by the liveness check."},
	{ID: goSession.MetricProfileLoadStarted, Name: "gosession_profile_load_started_total", Help: "Profile fetches issued."},
	{ID: goSession.MetricProfileLoadSuppressed, Name: "gosession_profile_load_suppressed_total", Help: "Notifications absorbed by the load-once guard."},
	{ID: goSession.MetricProfileLoadSuccess, Name: "gosession_profile_load_success_total", Help: "Profile loads applied."},
	{ID: goSession.MetricProfileLoadFailure, Name: "gosession_profile_load_failure_total", Help: "Profile loads that failed."},
	{ID: goSession.MetricProfileLoadStale, Name: "gosession_profile_load_stale_total", Help: "Profile results discarded because the sign-in episode ended."},
	{ID: goSession.MetricProfileSwitchSuccess, Name: "gosession_profile_switch_success_total", Help: "Profile switches applied."},
	{ID: goSession.MetricProfileSwitchFailure, Name: "gosession_profile_switch_failure_total", Help: "Profile switches rejected."},
	{ID: goSession.MetricLoginSuccess, Name: "gosession_login_success_total", Help: "Accepted logins."},
	{ID: goSession.MetricLoginFailure, Name: "gosession_login_failure_total", Help: "Rejected logins."},
	{ID: goSession.MetricLogout, Name: "gosession_logout_total", Help: "Logouts."},
	{ID: goSession.MetricPasswordResetRequest, Name: "gosession_password_reset_request_total", Help: "Password reset requests."},
	{ID: goSession.MetricPasswordUpdate, Name: "gosession_password_update_total", Help: "Password updates."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricProfileLoadLatency, Name: "gosession_profile_load_latency_seconds", Help: "Profile fetch latency."},
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const AuditDroppedName = "gosession_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

// HistogramUpperBounds are the finite bucket bounds in seconds. The last
// snapshot bucket is the +Inf overflow.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, overflow included.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
