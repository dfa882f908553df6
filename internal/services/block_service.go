package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sentra-sec/sentra/backend/internal/models"
)

// BlockService is the single source of truth for block state, plus the audit
// trail of block/unblock actions. Block state is keyed by IP: the unique index
// on ip_address and the ON CONFLICT upsert guarantee at most one row per IP
// under concurrent block calls, with no application-level locking.
type BlockService struct {
	db *gorm.DB
}

func NewBlockService(db *gorm.DB) *BlockService {
	return &BlockService{db: db}
}

// IsBlocked reports whether a live block entry exists for the IP at the given
// instant. Expired rows are ignored here but not removed (lazy expiry).
func (s *BlockService) IsBlocked(ip string, now time.Time) (bool, error) {
	var count int64
	err := s.db.Model(&models.BlockedIP{}).
		Where("ip_address = ? AND blocked_until > ?", ip, now).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check block state: %w", err)
	}
	return count > 0, nil
}

// Block upserts the entry for the IP, always overwriting blocked_until. A
// re-block before expiry resets the timer rather than stacking durations.
func (s *BlockService) Block(ip string, until time.Time) error {
	entry := models.BlockedIP{IPAddress: ip, BlockedUntil: until}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ip_address"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"blocked_until": until}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("upsert block entry: %w", err)
	}
	return nil
}

// Unblock removes the entry for the IP. Removing a non-existent entry is not
// an error.
func (s *BlockService) Unblock(ip string) error {
	if err := s.db.Where("ip_address = ?", ip).Delete(&models.BlockedIP{}).Error; err != nil {
		return fmt.Errorf("delete block entry: %w", err)
	}
	return nil
}

// ListBlocked returns every stored entry, lazily-expired rows included. Callers
// wanting only live blocks filter with BlockedIP.Live; the administrative
// listing endpoint deliberately returns all stored rows.
func (s *BlockService) ListBlocked() ([]models.BlockedIP, error) {
	var entries []models.BlockedIP
	if err := s.db.Order("blocked_until desc").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list block entries: %w", err)
	}
	return entries, nil
}

// LogAction appends one audit entry. The log is append-only and never pruned.
func (s *BlockService) LogAction(action, target, reason string) error {
	entry := models.ActionLog{Action: action, Target: target, Reason: reason}
	if err := s.db.Create(&entry).Error; err != nil {
		return fmt.Errorf("append action log: %w", err)
	}
	return nil
}

// ListActions returns recent audit entries, newest first.
func (s *BlockService) ListActions(limit int) ([]models.ActionLog, error) {
	var entries []models.ActionLog
	q := s.db.Order("timestamp desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list action log: %w", err)
	}
	return entries, nil
}

// SweepExpired physically deletes entries that expired before the cutoff.
// Correctness never depends on this running; it only reclaims rows that lazy
// expiry would otherwise keep forever.
func (s *BlockService) SweepExpired(cutoff time.Time) (int64, error) {
	res := s.db.Where("blocked_until < ?", cutoff).Delete(&models.BlockedIP{})
	if res.Error != nil {
		return 0, fmt.Errorf("sweep expired block entries: %w", res.Error)
	}
	return res.RowsAffected, nil
}
