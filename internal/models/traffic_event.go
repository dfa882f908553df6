package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TrafficEvent is one observed inbound request. Rows are immutable once created
// and retained for historical analytics.
type TrafficEvent struct {
	ID             string    `gorm:"primaryKey" json:"id"`
	Timestamp      time.Time `gorm:"index" json:"timestamp"`
	SourceIP       string    `gorm:"index" json:"source_ip"`
	Method         string    `json:"method"`
	URL            string    `json:"url"`
	Headers        string    `gorm:"type:text" json:"headers"`
	UserAgent      string    `json:"user_agent"`
	RequestSize    int       `json:"request_size"`
	ResponseCode   int       `json:"response_code"`
	ResponseTimeMs int       `json:"response_time_ms"`
}

// TableName keeps the table name used by earlier deployments.
func (TrafficEvent) TableName() string { return "traffic_metadata" }

func (e *TrafficEvent) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	return
}
