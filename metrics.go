package authcore

import "sync/atomic"

// MetricID defines a public type used by authcore APIs.
//
// MetricID instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricID uint16

const (
	// MetricLoginSuccess is an exported constant or variable used by the authentication engine.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure is an exported constant or variable used by the authentication engine.
	MetricLoginFailure
	// MetricLoginRateLimited is an exported constant or variable used by the authentication engine.
	MetricLoginRateLimited
	// MetricMFAChallengeIssued is an exported constant or variable used by the authentication engine.
	MetricMFAChallengeIssued
	// MetricMFASuccess is an exported constant or variable used by the authentication engine.
	MetricMFASuccess
	// MetricMFAFailure is an exported constant or variable used by the authentication engine.
	MetricMFAFailure
	// MetricTrustedDeviceBypass is an exported constant or variable used by the authentication engine.
	MetricTrustedDeviceBypass
	// MetricRefreshSuccess is an exported constant or variable used by the authentication engine.
	MetricRefreshSuccess
	// MetricRefreshFailure is an exported constant or variable used by the authentication engine.
	MetricRefreshFailure
	// MetricRefreshRotationLost is an exported constant or variable used by the authentication engine.
	MetricRefreshRotationLost
	// MetricRefreshRateLimited is an exported constant or variable used by the authentication engine.
	MetricRefreshRateLimited
	// MetricSessionCreated is an exported constant or variable used by the authentication engine.
	MetricSessionCreated
	// MetricSessionEvicted is an exported constant or variable used by the authentication engine.
	MetricSessionEvicted
	// MetricSessionRevoked is an exported constant or variable used by the authentication engine.
	MetricSessionRevoked
	// MetricLogout is an exported constant or variable used by the authentication engine.
	MetricLogout
	// MetricLogoutAll is an exported constant or variable used by the authentication engine.
	MetricLogoutAll
	// MetricSignupSuccess is an exported constant or variable used by the authentication engine.
	MetricSignupSuccess
	// MetricSignupDuplicate is an exported constant or variable used by the authentication engine.
	MetricSignupDuplicate
	// MetricPasswordChanged is an exported constant or variable used by the authentication engine.
	MetricPasswordChanged
	// MetricPasswordResetRequested is an exported constant or variable used by the authentication engine.
	MetricPasswordResetRequested
	// MetricPasswordResetConfirmed is an exported constant or variable used by the authentication engine.
	MetricPasswordResetConfirmed
	// MetricOTPIssued is an exported constant or variable used by the authentication engine.
	MetricOTPIssued
	// MetricOTPConsumed is an exported constant or variable used by the authentication engine.
	MetricOTPConsumed
	// MetricOTPRejected is an exported constant or variable used by the authentication engine.
	MetricOTPRejected
	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics defines a public type used by authcore APIs.
//
// Metrics instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot defines a public type used by authcore APIs.
//
// MetricsSnapshot instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics describes the newmetrics operation and its observable behavior.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Enabled describes the enabled operation and its observable behavior.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc describes the inc operation and its observable behavior.
//
// Inc does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Snapshot describes the snapshot operation and its observable behavior.
//
// Snapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{Counters: make(map[MetricID]uint64, metricIDCount)}
	if m == nil || !m.enabled {
		return snap
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		snap.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return snap
}

// MetricsSnapshot returns a point-in-time copy of all counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	return e.metrics.Snapshot()
}
