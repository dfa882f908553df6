package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BlockedIP is the authoritative block entry for one IP. At most one row exists
// per ip_address; re-blocking overwrites blocked_until. Expired rows are kept in
// storage and filtered at read time (lazy expiry).
type BlockedIP struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	IPAddress    string    `gorm:"uniqueIndex" json:"ip_address"`
	BlockedUntil time.Time `json:"blocked_until"`
}

// Live reports whether the entry still blocks traffic at the given instant.
func (b BlockedIP) Live(now time.Time) bool {
	return b.BlockedUntil.After(now)
}

func (b *BlockedIP) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return
}
