package goEnroll

import "sync/atomic"

// MetricID identifies one engine counter.
type MetricID uint16

const (
	// MetricLoginSuccess counts successful logins, including those that
	// answered with an enrollment-required result.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected logins.
	MetricLoginFailure
	// MetricPasswordChangeSuccess counts completed password rotations.
	MetricPasswordChangeSuccess
	// MetricPasswordChangeFailure counts rejected password rotations.
	MetricPasswordChangeFailure
	// MetricTOTPEnrolled counts confirmed TOTP enrollments.
	MetricTOTPEnrolled
	// MetricTOTPFailure counts rejected TOTP confirmations.
	MetricTOTPFailure
	// MetricBiometricEnrolled counts registered biometric key references.
	MetricBiometricEnrolled
	// MetricBiometricFailure counts rejected biometric registrations.
	MetricBiometricFailure
	// MetricStoreConflict counts optimistic write conflicts (before retry).
	MetricStoreConflict
	// MetricStoreUnavailable counts store timeouts and transport failures.
	MetricStoreUnavailable
	// MetricHashUpgrade counts transparent password-hash upgrades on login.
	MetricHashUpgrade

	metricCount
)

// Metrics is a fixed-size atomic counter registry. All methods are safe for
// concurrent use and are no-ops on a nil receiver, so engine call sites do
// not need to branch on whether metrics are enabled.
type Metrics struct {
	counters [metricCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

func newMetrics() *Metrics {
	return &Metrics{}
}

// Inc increments one counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || id >= metricCount {
		return
	}
	m.counters[id].Add(1)
}

// Snapshot copies all counters. The copy is not atomic across counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{Counters: make(map[MetricID]uint64, metricCount)}
	if m == nil {
		return snap
	}
	for id := MetricID(0); id < metricCount; id++ {
		snap.Counters[id] = m.counters[id].Load()
	}
	return snap
}
