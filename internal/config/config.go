package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DetectionConfig is the static detection policy handed to the engine at startup.
// It is immutable for the lifetime of the process; there is no hot-reload.
type DetectionConfig struct {
	SpikeThreshold   int
	BlockDuration    time.Duration
	SuspiciousAgents []string
	SensitiveURLs    []string
}

// SMTPConfig holds outbound mail settings for block notifications.
// An empty Host disables the mail channel.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// Config captures runtime configuration sourced from environment variables.
type Config struct {
	Environment   string
	HTTPPort      string
	DatabasePath  string
	AdminPassword string
	JWTSecret     string
	SweepSchedule string
	NotifyURLs    []string
	Detection     DetectionConfig
	SMTP          SMTPConfig
}

// Load reads env vars and falls back to defaults so the server can boot with zero configuration.
func Load() (Config, error) {
	cfg := Config{
		Environment:   getEnv("SENTRA_ENV", "development"),
		HTTPPort:      getEnv("SENTRA_HTTP_PORT", "8080"),
		DatabasePath:  getEnv("SENTRA_DB_PATH", filepath.Join("data", "sentra.db")),
		AdminPassword: getEnv("SENTRA_ADMIN_PASSWORD", "admin"),
		JWTSecret:     getEnv("SENTRA_JWT_SECRET", "sentra-dev-secret"),
		SweepSchedule: getEnv("SENTRA_SWEEP_SCHEDULE", ""),
		NotifyURLs:    getEnvList("SENTRA_NOTIFY_URLS", nil),
		Detection: DetectionConfig{
			SpikeThreshold:   getEnvInt("SENTRA_SPIKE_THRESHOLD", 100),
			BlockDuration:    time.Duration(getEnvInt("SENTRA_BLOCK_DURATION_MINUTES", 60)) * time.Minute,
			SuspiciousAgents: getEnvList("SENTRA_SUSPICIOUS_AGENTS", []string{"sqlmap", "nmap", "malicious-bot"}),
			SensitiveURLs:    getEnvList("SENTRA_SENSITIVE_URLS", []string{"/admin", "/etc/passwd", "/config", "/wp-login.php"}),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SENTRA_SMTP_HOST", ""),
			Port:     getEnvInt("SENTRA_SMTP_PORT", 587),
			Username: getEnv("SENTRA_SMTP_USER", ""),
			Password: getEnv("SENTRA_SMTP_PASSWORD", ""),
			From:     getEnv("SENTRA_SMTP_FROM", ""),
			To:       getEnv("SENTRA_ALERT_RECEIVER", ""),
		},
	}

	if cfg.Detection.SpikeThreshold < 1 {
		return Config{}, fmt.Errorf("spike threshold must be positive, got %d", cfg.Detection.SpikeThreshold)
	}
	if cfg.Detection.BlockDuration <= 0 {
		return Config{}, fmt.Errorf("block duration must be positive")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return Config{}, fmt.Errorf("ensure data directory: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}

	return fallback
}

// getEnvList parses a comma-separated env var, trimming whitespace and dropping empties.
func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}

	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
