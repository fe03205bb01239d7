package goSession

import (
	"errors"
	"sort"
)

// Config holds Manager tuning. Obtain defaults from [DefaultConfig] and
// override fields before passing it to [Builder.WithConfig].
type Config struct {
	Metrics  MetricsConfig
	Audit    AuditConfig
	Watch    WatchConfig
	Profiles ProfilesConfig
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls in-process counters and latency histograms.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls asynchronous delivery of session activity events.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
WATCH CONFIG
====================================
*/

// WatchConfig controls state change notifications.
type WatchConfig struct {
	// DefaultBuffer is used by Watch when the caller passes a non-positive size.
	DefaultBuffer int
	// MaxWatchers caps concurrent watchers. Zero means unlimited.
	MaxWatchers int
}

/*
====================================
PROFILES CONFIG
====================================
*/

// ProfilesConfig controls the Profile Coordinator.
type ProfilesConfig struct {
	// ReloadOnUserChange starts a new sign-in episode when a signed-in event
	// carries a different user than the one profiles were loaded for.
	ReloadOnUserChange bool
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Watch: WatchConfig{
			DefaultBuffer: 4,
			MaxWatchers:   0,
		},
		Profiles: ProfilesConfig{
			ReloadOnUserChange: true,
		},
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate rejects configurations the Manager cannot run with.
func (c *Config) Validate() error {
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Audit is enabled")
	}
	if c.Watch.DefaultBuffer <= 0 {
		return errors.New("Watch DefaultBuffer must be > 0")
	}
	if c.Watch.MaxWatchers < 0 {
		return errors.New("Watch MaxWatchers must be >= 0")
	}
	return nil
}

// LintWarning is a non-fatal observation about a configuration.
type LintWarning struct {
	Code    string
	Message string
}

// LintResult is the ordered list of warnings produced by [Config.Lint].
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// Lint reports settings that are valid but usually unintended.
func (c *Config) Lint() LintResult {
	var ws LintResult
	if !c.Metrics.Enabled {
		ws = append(ws, LintWarning{Code: "metrics_disabled", Message: "metrics are disabled; exporters will report zeros"})
	}
	if c.Audit.Enabled && !c.Audit.DropIfFull {
		ws = append(ws, LintWarning{Code: "audit_blocking", Message: "audit delivery blocks callers when the buffer is full"})
	}
	if c.Audit.Enabled && c.Audit.BufferSize < 16 {
		ws = append(ws, LintWarning{Code: "audit_buffer_small", Message: "audit buffer below 16 events drops under bursts"})
	}
	if !c.Profiles.ReloadOnUserChange {
		ws = append(ws, LintWarning{Code: "stale_profiles_on_user_change", Message: "profiles of a previous user stay cached until sign-out"})
	}
	sort.SliceStable(ws, func(i, j int) bool { return ws[i].Code < ws[j].Code })
	return ws
}
