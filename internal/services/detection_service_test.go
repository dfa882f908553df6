package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sentra-sec/sentra/backend/internal/config"
	"github.com/sentra-sec/sentra/backend/internal/models"
)

type fakeSink struct {
	mu       sync.Mutex
	calls    []string
	err      error
	notified chan struct{}
}

func newFakeSink() *fakeSink {
	return &fakeSink{notified: make(chan struct{}, 16)}
}

func (f *fakeSink) Notify(ip string, until time.Time) error {
	f.mu.Lock()
	f.calls = append(f.calls, ip)
	f.mu.Unlock()
	f.notified <- struct{}{}
	return f.err
}

func (f *fakeSink) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func setupDetectionTest(t *testing.T, threshold int) (*DetectionService, *fakeSink) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)

	err = db.AutoMigrate(&models.TrafficEvent{}, &models.Alert{}, &models.BlockedIP{}, &models.ActionLog{})
	assert.NoError(t, err)

	policy := config.DetectionConfig{
		SpikeThreshold:   threshold,
		BlockDuration:    60 * time.Minute,
		SuspiciousAgents: []string{"sqlmap", "nmap", "malicious-bot"},
		SensitiveURLs:    []string{"/admin", "/etc/passwd", "/config", "/wp-login.php"},
	}

	sink := newFakeSink()
	return NewDetectionService(db, policy, sink), sink
}

func normalEvent(ip string) *models.TrafficEvent {
	return &models.TrafficEvent{
		SourceIP:     ip,
		Method:       "GET",
		URL:          "/page",
		UserAgent:    "normal",
		ResponseCode: 200,
	}
}

func TestDetectionService_SpikeThresholdBoundary(t *testing.T) {
	svc, _ := setupDetectionTest(t, 5)

	// First four events: no alerts, not blocked
	for i := 0; i < 4; i++ {
		persisted, alerts, err := svc.Process(normalEvent("10.0.0.8"))
		assert.NoError(t, err)
		assert.NotEmpty(t, persisted.ID)
		assert.Empty(t, alerts)
	}

	blocked, err := svc.IsBlocked("10.0.0.8")
	assert.NoError(t, err)
	assert.False(t, blocked)

	// The fifth event counts itself and trips the threshold
	_, alerts, err := svc.Process(normalEvent("10.0.0.8"))
	assert.NoError(t, err)
	assert.Len(t, alerts, 1)
	assert.Equal(t, models.AlertTypeSpike, alerts[0].AlertType)
	assert.Equal(t, "5 requests in last 1 min", alerts[0].Description)
	assert.Equal(t, "High", alerts[0].Severity)

	blocked, err = svc.IsBlocked("10.0.0.8")
	assert.NoError(t, err)
	assert.True(t, blocked)
}

func TestDetectionService_RuleIndependence(t *testing.T) {
	svc, _ := setupDetectionTest(t, 100)

	event := &models.TrafficEvent{
		SourceIP:  "10.0.0.2",
		Method:    "GET",
		URL:       "/admin",
		UserAgent: "sqlmap/1.0",
	}

	// One ingest call produces both alerts
	_, alerts, err := svc.Process(event)
	assert.NoError(t, err)
	assert.Len(t, alerts, 2)

	types := []models.AlertType{alerts[0].AlertType, alerts[1].AlertType}
	assert.Contains(t, types, models.AlertTypeSuspiciousUA)
	assert.Contains(t, types, models.AlertTypeSensitiveURL)

	// Single block row regardless of two matching rules
	entries, err := svc.Blocks().ListBlocked()
	assert.NoError(t, err)
	assert.Len(t, entries, 1)

	// The first match blocked the IP, so the second match's guard saw it
	// blocked and skipped the block call: one audit entry.
	actions, err := svc.Blocks().ListActions(0)
	assert.NoError(t, err)
	assert.Len(t, actions, 1)
	assert.Equal(t, models.ActionBlockIP, actions[0].Action)
}

func TestDetectionService_BlockThenExtend(t *testing.T) {
	svc, _ := setupDetectionTest(t, 100)

	assert.NoError(t, svc.blockIP("10.0.0.3"))

	entries, err := svc.Blocks().ListBlocked()
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	firstUntil := entries[0].BlockedUntil

	time.Sleep(20 * time.Millisecond)

	// A second block decision extends: same row, later expiry, second audit entry
	assert.NoError(t, svc.blockIP("10.0.0.3"))

	entries, err = svc.Blocks().ListBlocked()
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.True(t, entries[0].BlockedUntil.After(firstUntil))

	actions, err := svc.Blocks().ListActions(0)
	assert.NoError(t, err)
	assert.Len(t, actions, 2)
	for _, a := range actions {
		assert.Equal(t, models.ActionBlockIP, a.Action)
		assert.Equal(t, "10.0.0.3", a.Target)
	}
}

func TestDetectionService_ConcreteSpikeScenario(t *testing.T) {
	svc, _ := setupDetectionTest(t, 100)

	var lastAlerts []models.Alert
	for i := 0; i < 100; i++ {
		_, alerts, err := svc.Process(normalEvent("10.0.0.5"))
		assert.NoError(t, err)
		if i < 99 {
			assert.Empty(t, alerts)
		}
		lastAlerts = alerts
	}

	assert.Len(t, lastAlerts, 1)
	assert.Equal(t, models.AlertTypeSpike, lastAlerts[0].AlertType)
	assert.Equal(t, "100 requests in last 1 min", lastAlerts[0].Description)

	blocked, err := svc.IsBlocked("10.0.0.5")
	assert.NoError(t, err)
	assert.True(t, blocked)

	actions, err := svc.Blocks().ListActions(0)
	assert.NoError(t, err)
	assert.Len(t, actions, 1)
	assert.Equal(t, models.ActionBlockIP, actions[0].Action)
	assert.Equal(t, "10.0.0.5", actions[0].Target)
}

func TestDetectionService_BlockedIPTrafficStillLoggedNoAuditSpam(t *testing.T) {
	svc, _ := setupDetectionTest(t, 100)

	assert.NoError(t, svc.blockIP("10.0.0.4"))

	// Further suspicious traffic from the blocked IP: persisted, alerted, but
	// no additional block call and no extra audit entry.
	event := &models.TrafficEvent{
		SourceIP:  "10.0.0.4",
		Method:    "GET",
		URL:       "/page",
		UserAgent: "sqlmap/1.0",
	}
	persisted, alerts, err := svc.Process(event)
	assert.NoError(t, err)
	assert.NotEmpty(t, persisted.ID)
	assert.Len(t, alerts, 1)

	count, err := svc.Traffic().CountSince("10.0.0.4", time.Now().UTC().Add(-time.Minute))
	assert.NoError(t, err)
	assert.Equal(t, 1, count)

	actions, err := svc.Blocks().ListActions(0)
	assert.NoError(t, err)
	assert.Len(t, actions, 1)
}

func TestDetectionService_UnblockIdempotentAndAudited(t *testing.T) {
	svc, _ := setupDetectionTest(t, 100)

	// Unblocking a never-blocked IP succeeds and still writes one audit entry
	assert.NoError(t, svc.Unblock("172.16.0.1"))

	entries, err := svc.Blocks().ListBlocked()
	assert.NoError(t, err)
	assert.Empty(t, entries)

	actions, err := svc.Blocks().ListActions(0)
	assert.NoError(t, err)
	assert.Len(t, actions, 1)
	assert.Equal(t, models.ActionUnblockIP, actions[0].Action)
	assert.Equal(t, "172.16.0.1", actions[0].Target)
	assert.Equal(t, "Manual unblock", actions[0].Reason)
}

func TestDetectionService_NotificationDispatchedAndFailureSwallowed(t *testing.T) {
	svc, sink := setupDetectionTest(t, 100)
	sink.err = errors.New("smtp unreachable")

	event := &models.TrafficEvent{
		SourceIP:  "10.0.0.6",
		Method:    "GET",
		URL:       "/etc/passwd",
		UserAgent: "normal",
	}
	_, alerts, err := svc.Process(event)
	assert.NoError(t, err)
	assert.Len(t, alerts, 1)

	// The block stands even though delivery failed
	blocked, err := svc.IsBlocked("10.0.0.6")
	assert.NoError(t, err)
	assert.True(t, blocked)

	select {
	case <-sink.notified:
	case <-time.After(2 * time.Second):
		t.Fatal("notification sink was never invoked")
	}
	assert.Equal(t, 1, sink.callCount())
}

func TestDetectionService_AlertsAreAppendOnlyHistory(t *testing.T) {
	svc, _ := setupDetectionTest(t, 100)

	for i := 0; i < 3; i++ {
		event := &models.TrafficEvent{
			SourceIP:  "10.0.0.7",
			Method:    "GET",
			URL:       "/config",
			UserAgent: "normal",
		}
		_, _, err := svc.Process(event)
		assert.NoError(t, err)
	}

	// Repeated triggers for the same IP each keep their own row
	alerts, err := svc.Alerts().ListRecent(0)
	assert.NoError(t, err)
	assert.Len(t, alerts, 3)
}
