package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AlertType string

const (
	AlertTypeSpike        AlertType = "Traffic Spike"
	AlertTypeSuspiciousUA AlertType = "Suspicious User-Agent"
	AlertTypeSensitiveURL AlertType = "Sensitive URL Access"
)

// Alert records one rule match for one traffic event. Alerts are append-only
// history; they are never merged or deleted, even across repeated triggers for
// the same IP.
type Alert struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	SourceIP    string    `gorm:"index" json:"source_ip"`
	Timestamp   time.Time `gorm:"index" json:"timestamp"`
	AlertType   AlertType `json:"alert_type"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
}

func (a *Alert) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	return
}
