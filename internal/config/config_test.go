package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SENTRA_DB_PATH", t.TempDir()+"/sentra.db")

	cfg, err := Load()
	assert.NoError(t, err)

	assert.Equal(t, 100, cfg.Detection.SpikeThreshold)
	assert.Equal(t, 60*time.Minute, cfg.Detection.BlockDuration)
	assert.Equal(t, []string{"sqlmap", "nmap", "malicious-bot"}, cfg.Detection.SuspiciousAgents)
	assert.Contains(t, cfg.Detection.SensitiveURLs, "/admin")
	assert.Contains(t, cfg.Detection.SensitiveURLs, "/wp-login.php")
}

func TestLoadOverridesAndListParsing(t *testing.T) {
	t.Setenv("SENTRA_DB_PATH", t.TempDir()+"/sentra.db")
	t.Setenv("SENTRA_SPIKE_THRESHOLD", "5")
	t.Setenv("SENTRA_BLOCK_DURATION_MINUTES", "15")
	t.Setenv("SENTRA_SUSPICIOUS_AGENTS", "curl, wget ,,")

	cfg, err := Load()
	assert.NoError(t, err)

	assert.Equal(t, 5, cfg.Detection.SpikeThreshold)
	assert.Equal(t, 15*time.Minute, cfg.Detection.BlockDuration)
	assert.Equal(t, []string{"curl", "wget"}, cfg.Detection.SuspiciousAgents)
}

func TestLoadRejectsInvalidPolicy(t *testing.T) {
	t.Setenv("SENTRA_DB_PATH", t.TempDir()+"/sentra.db")
	t.Setenv("SENTRA_SPIKE_THRESHOLD", "0")

	_, err := Load()
	assert.Error(t, err)
}
