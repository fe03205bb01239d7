package goSession

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one Manager counter or histogram.
type MetricID uint16

const (
	// MetricInitialFetchSuccess counts initial fetches that settled with a result.
	MetricInitialFetchSuccess MetricID = iota
	// MetricInitialFetchFailure counts initial fetches that failed.
	MetricInitialFetchFailure
	// MetricInitialFetchDiscarded counts fetch results dropped after deactivation.
	MetricInitialFetchDiscarded
	// MetricBootstrapSuppressed counts bootstrap events ignored before the fetch settled.
	MetricBootstrapSuppressed
	// MetricEventApplied counts pushed events adopted as the new session.
	MetricEventApplied
	// MetricEventDropped counts pushed events rejected by the liveness check.
	MetricEventDropped
	// MetricProfileLoadStarted counts profile fetches issued.
	MetricProfileLoadStarted
	// MetricProfileLoadSuppressed counts notifications absorbed by the load-once guard.
	MetricProfileLoadSuppressed
	// MetricProfileLoadSuccess counts applied profile loads.
	MetricProfileLoadSuccess
	// MetricProfileLoadFailure counts failed profile loads.
	MetricProfileLoadFailure
	// MetricProfileLoadStale counts profile results discarded because the episode ended.
	MetricProfileLoadStale
	// MetricProfileSwitchSuccess counts applied profile switches.
	MetricProfileSwitchSuccess
	// MetricProfileSwitchFailure counts rejected profile switches.
	MetricProfileSwitchFailure
	// MetricLoginSuccess counts accepted logins.
	MetricLoginSuccess
	// MetricLoginFailure counts rejected logins.
	MetricLoginFailure
	// MetricLogout counts logouts.
	MetricLogout
	// MetricPasswordResetRequest counts password reset requests.
	MetricPasswordResetRequest
	// MetricPasswordUpdate counts password updates.
	MetricPasswordUpdate
	// MetricProfileLoadLatency is the profile fetch latency histogram.
	MetricProfileLoadLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a set of lock-free counters and fixed-bucket latency histograms.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns a metrics set configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters record.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether histograms record.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram id. Only latency metrics accept samples.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricProfileLoadLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and, when enabled, the latency histogram.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricProfileLoadLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricProfileLoadLatency].buckets[i])
		}
		s.Histograms[MetricProfileLoadLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
