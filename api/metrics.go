package api

import (
	"sync"
	"time"
)

// AlertType identifies the kind of anomaly detected.
type AlertType string

const (
	AlertRejectedSubmissionSpike AlertType = "rejected_submission_spike"
	AlertSessionChurn            AlertType = "session_churn"
)

// AlertEvent describes an anomaly that triggered an alert.
type AlertEvent struct {
	Type      AlertType `json:"type"`
	Message   string    `json:"message"`
	Count     int       `json:"count"`
	Threshold int       `json:"threshold"`
	Timestamp time.Time `json:"timestamp"`
}

// AlertFunc is the callback invoked when an anomaly is detected.
type AlertFunc func(AlertEvent)

// metricsCollector tracks sliding window counters for anomaly detection.
type metricsCollector struct {
	mu sync.Mutex

	// Sliding window for rejected sign-in and sign-up submissions.
	rejected          []time.Time
	rejectedWindow    time.Duration
	rejectedThreshold int

	// Sliding window for logins and logouts.
	churn          []time.Time
	churnWindow    time.Duration
	churnThreshold int

	alertFn AlertFunc
}

const (
	defaultRejectedWindow    = 1 * time.Minute
	defaultRejectedThreshold = 50
	defaultChurnWindow       = 5 * time.Minute
	defaultChurnThreshold    = 30
)

func newMetricsCollector(alertFn AlertFunc) *metricsCollector {
	return &metricsCollector{
		rejectedWindow:    defaultRejectedWindow,
		rejectedThreshold: defaultRejectedThreshold,
		churnWindow:       defaultChurnWindow,
		churnThreshold:    defaultChurnThreshold,
		alertFn:           alertFn,
	}
}

// recordEvent inspects an audit event and updates the relevant counters.
func (m *metricsCollector) recordEvent(event AuditEvent) {
	if m == nil || m.alertFn == nil {
		return
	}
	switch event {
	case AuditLoginRejected, AuditSignUpRejected:
		m.record(&m.rejected, m.rejectedWindow, m.rejectedThreshold,
			AlertRejectedSubmissionSpike, "rejected sign-in submissions exceed threshold")
	case AuditLogin, AuditSignUp, AuditLogout:
		m.record(&m.churn, m.churnWindow, m.churnThreshold,
			AlertSessionChurn, "session changes exceed threshold")
	}
}

func (m *metricsCollector) record(times *[]time.Time, window time.Duration, threshold int, alert AlertType, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	*times = append(*times, now)
	*times = trimWindow(*times, now, window)

	if len(*times) >= threshold {
		m.alertFn(AlertEvent{
			Type:      alert,
			Message:   msg,
			Count:     len(*times),
			Threshold: threshold,
			Timestamp: now,
		})
		// Reset to avoid repeated alerts within the same spike.
		*times = (*times)[:0]
	}
}

// trimWindow removes entries older than (now - window) from the sorted slice.
func trimWindow(times []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	start := 0
	for start < len(times) && times[start].Before(cutoff) {
		start++
	}
	return times[start:]
}
