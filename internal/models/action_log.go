package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionBlockIP   = "Block IP"
	ActionUnblockIP = "Unblock IP"
)

// ActionLog is the append-only audit trail of block/unblock actions. It is an
// activity record, not a state transition record: every block decision logs an
// entry even when the IP was already blocked.
type ActionLog struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Timestamp time.Time `gorm:"index" json:"timestamp"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	Reason    string    `json:"reason"`
}

func (l *ActionLog) BeforeCreate(tx *gorm.DB) (err error) {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.Timestamp.IsZero() {
		l.Timestamp = time.Now().UTC()
	}
	return
}
