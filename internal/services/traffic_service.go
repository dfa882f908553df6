package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/sentra-sec/sentra/backend/internal/metrics"
	"github.com/sentra-sec/sentra/backend/internal/models"
)

// TrafficService is the append-only store of traffic observations. Events are
// never mutated after Append; windowed counting is served straight from the
// store so every committed prior write is visible to CountSince.
type TrafficService struct {
	db *gorm.DB
}

func NewTrafficService(db *gorm.DB) *TrafficService {
	return &TrafficService{db: db}
}

// Append persists one traffic event, assigning its ID and timestamp if unset.
func (s *TrafficService) Append(event *models.TrafficEvent) error {
	if err := s.db.Create(event).Error; err != nil {
		return fmt.Errorf("persist traffic event: %w", err)
	}
	metrics.IncEventIngested()
	return nil
}

// CountSince counts persisted events for the IP with timestamp >= since,
// current event included once Append has returned.
func (s *TrafficService) CountSince(ip string, since time.Time) (int, error) {
	var count int64
	err := s.db.Model(&models.TrafficEvent{}).
		Where("source_ip = ? AND timestamp >= ?", ip, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count recent events: %w", err)
	}
	return int(count), nil
}

// IPCount pairs a source IP with its request count.
type IPCount struct {
	SourceIP string `json:"source_ip"`
	Count    int64  `json:"count"`
}

// MethodCount pairs an HTTP method with its request count.
type MethodCount struct {
	Method string `json:"method"`
	Count  int64  `json:"count"`
}

// CodeCount pairs a response code with its request count.
type CodeCount struct {
	ResponseCode int   `json:"response_code"`
	Count        int64 `json:"count"`
}

// TrendPoint is a per-minute bucket of the trailing hour's traffic.
type TrendPoint struct {
	Minute string `json:"minute"`
	Count  int64  `json:"count"`
}

// Summary aggregates the stored traffic for the reporting endpoint.
type Summary struct {
	TotalRequests int64         `json:"total_requests"`
	TopIPs        []IPCount     `json:"top_ips"`
	Methods       []MethodCount `json:"methods"`
	ResponseCodes []CodeCount   `json:"response_codes"`
	TrendLastHour []TrendPoint  `json:"traffic_trend_last_hour"`
}

// Summarize computes the traffic summary, optionally filtered by source IP
// and/or method.
func (s *TrafficService) Summarize(filterIP, filterMethod string) (*Summary, error) {
	base := s.db.Model(&models.TrafficEvent{})
	if filterIP != "" {
		base = base.Where("source_ip = ?", filterIP)
	}
	if filterMethod != "" {
		base = base.Where("method = ?", filterMethod)
	}

	summary := &Summary{}
	if err := base.Session(&gorm.Session{}).Count(&summary.TotalRequests).Error; err != nil {
		return nil, fmt.Errorf("count traffic: %w", err)
	}

	if err := base.Session(&gorm.Session{}).
		Select("source_ip, count(*) as count").
		Group("source_ip").
		Order("count desc").
		Limit(5).
		Scan(&summary.TopIPs).Error; err != nil {
		return nil, fmt.Errorf("aggregate top ips: %w", err)
	}

	if err := base.Session(&gorm.Session{}).
		Select("method, count(*) as count").
		Group("method").
		Scan(&summary.Methods).Error; err != nil {
		return nil, fmt.Errorf("aggregate methods: %w", err)
	}

	if err := base.Session(&gorm.Session{}).
		Select("response_code, count(*) as count").
		Group("response_code").
		Scan(&summary.ResponseCodes).Error; err != nil {
		return nil, fmt.Errorf("aggregate response codes: %w", err)
	}

	hourAgo := time.Now().UTC().Add(-time.Hour)
	if err := base.Session(&gorm.Session{}).
		Select("strftime('%H:%M', timestamp) as minute, count(*) as count").
		Where("timestamp >= ?", hourAgo).
		Group("minute").
		Order("minute").
		Scan(&summary.TrendLastHour).Error; err != nil {
		return nil, fmt.Errorf("aggregate traffic trend: %w", err)
	}

	return summary, nil
}
