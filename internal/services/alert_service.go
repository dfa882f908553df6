package services

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/sentra-sec/sentra/backend/internal/metrics"
	"github.com/sentra-sec/sentra/backend/internal/models"
)

// AlertService appends and lists alerts. Alerts are an append-only history:
// repeated triggers for the same IP each produce a new row.
type AlertService struct {
	db *gorm.DB
}

func NewAlertService(db *gorm.DB) *AlertService {
	return &AlertService{db: db}
}

// Create records one alert of the given type for the source IP.
func (s *AlertService) Create(alertType models.AlertType, description, sourceIP string) (*models.Alert, error) {
	alert := &models.Alert{
		AlertType:   alertType,
		Description: description,
		SourceIP:    sourceIP,
		Severity:    "High",
	}
	if err := s.db.Create(alert).Error; err != nil {
		return nil, fmt.Errorf("persist alert: %w", err)
	}
	metrics.IncAlert(string(alertType))
	return alert, nil
}

// ListRecent returns the most recent alerts, newest first.
func (s *AlertService) ListRecent(limit int) ([]models.Alert, error) {
	var alerts []models.Alert
	q := s.db.Order("timestamp desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return alerts, nil
}
