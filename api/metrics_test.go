package api

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type alertRecorder struct {
	mu     sync.Mutex
	alerts []AlertEvent
}

func (r *alertRecorder) record(e AlertEvent) {
	r.mu.Lock()
	r.alerts = append(r.alerts, e)
	r.mu.Unlock()
}

func (r *alertRecorder) snapshot() []AlertEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]AlertEvent(nil), r.alerts...)
}

func TestRejectedSubmissionSpikeAlert(t *testing.T) {
	rec := &alertRecorder{}
	collector := newMetricsCollector(rec.record)
	collector.rejectedThreshold = 5

	for i := 0; i < 2; i++ {
		collector.recordEvent(AuditLoginRejected)
		collector.recordEvent(AuditSignUpRejected)
	}
	assert.Empty(t, rec.snapshot(), "no alert below threshold")

	collector.recordEvent(AuditLoginRejected)
	alerts := rec.snapshot()
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertRejectedSubmissionSpike, alerts[0].Type)
	assert.Equal(t, 5, alerts[0].Count)
	assert.Equal(t, 5, alerts[0].Threshold)
}

func TestSessionChurnAlert(t *testing.T) {
	rec := &alertRecorder{}
	collector := newMetricsCollector(rec.record)
	collector.churnThreshold = 3

	collector.recordEvent(AuditLogin)
	collector.recordEvent(AuditLogout)
	assert.Empty(t, rec.snapshot())

	collector.recordEvent(AuditSignUp)
	alerts := rec.snapshot()
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertSessionChurn, alerts[0].Type)
}

func TestRejectionsDoNotCountAsChurn(t *testing.T) {
	rec := &alertRecorder{}
	collector := newMetricsCollector(rec.record)
	collector.churnThreshold = 2
	collector.rejectedThreshold = 100

	for i := 0; i < 10; i++ {
		collector.recordEvent(AuditLoginRejected)
	}
	assert.Empty(t, rec.snapshot())
}

func TestMetricsNoAlertWithoutCallback(t *testing.T) {
	collector := newMetricsCollector(nil)
	collector.recordEvent(AuditLoginRejected)
}

func TestMetricsNilCollector(t *testing.T) {
	var collector *metricsCollector
	collector.recordEvent(AuditLoginRejected)
}

func TestMetricsSlidingWindowExpiry(t *testing.T) {
	rec := &alertRecorder{}
	collector := newMetricsCollector(rec.record)
	collector.rejectedThreshold = 5
	collector.rejectedWindow = 100 * time.Millisecond

	for i := 0; i < 4; i++ {
		collector.recordEvent(AuditLoginRejected)
	}

	// Wait for them to slide out of the window.
	time.Sleep(150 * time.Millisecond)

	collector.recordEvent(AuditLoginRejected)
	assert.Empty(t, rec.snapshot(), "old rejections should not count after window expiry")
}

func TestMetricsResetAfterAlert(t *testing.T) {
	rec := &alertRecorder{}
	collector := newMetricsCollector(rec.record)
	collector.rejectedThreshold = 3

	for i := 0; i < 3; i++ {
		collector.recordEvent(AuditLoginRejected)
	}
	require.Len(t, rec.snapshot(), 1, "first alert triggered")

	// Counter was reset, so three more are needed.
	for i := 0; i < 2; i++ {
		collector.recordEvent(AuditLoginRejected)
	}
	assert.Len(t, rec.snapshot(), 1, "no second alert yet")

	collector.recordEvent(AuditLoginRejected)
	assert.Len(t, rec.snapshot(), 2, "second alert triggered")
}
