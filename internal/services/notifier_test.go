package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sentra-sec/sentra/backend/internal/config"
)

func TestNotifier_NoChannelsConfigured(t *testing.T) {
	n := NewNotifier(config.Config{})

	// With nothing configured there is nothing to fail
	assert.NoError(t, n.Notify("1.2.3.4", time.Now().Add(time.Hour)))
}

func TestNotifier_BadChannelReportsButOthersStillRun(t *testing.T) {
	n := NewNotifier(config.Config{NotifyURLs: []string{"bogus://nowhere"}})

	err := n.Notify("1.2.3.4", time.Now().Add(time.Hour))
	assert.Error(t, err)
}

func TestDispatchNotification_NilSinkIsNoOp(t *testing.T) {
	// Must not panic
	dispatchNotification(nil, "1.2.3.4", time.Now(), time.Second)
}
