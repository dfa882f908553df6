package services

import (
	"time"

	"gorm.io/gorm"

	"github.com/sentra-sec/sentra/backend/internal/config"
	"github.com/sentra-sec/sentra/backend/internal/logger"
	"github.com/sentra-sec/sentra/backend/internal/metrics"
	"github.com/sentra-sec/sentra/backend/internal/models"
	"github.com/sentra-sec/sentra/backend/internal/rules"
)

const (
	// spikeWindow is the trailing interval used to count an IP's recent requests.
	spikeWindow = time.Minute

	blockReason = "Rate limit exceeded or suspicious activity"

	notifyTimeout = 15 * time.Second
)

// DetectionService orchestrates per-observation evaluation and is the single
// authority that mutates block state. Concurrent Process calls for the same IP
// may both observe stale "not blocked" state; that race is accepted because
// Block is an atomic upsert, so it can only produce a duplicate audit entry,
// never a second live row.
type DetectionService struct {
	traffic *TrafficService
	alerts  *AlertService
	blocks  *BlockService
	ruleSet *rules.RuleSet
	policy  config.DetectionConfig
	sink    NotificationSink
}

func NewDetectionService(db *gorm.DB, policy config.DetectionConfig, sink NotificationSink) *DetectionService {
	return &DetectionService{
		traffic: NewTrafficService(db),
		alerts:  NewAlertService(db),
		blocks:  NewBlockService(db),
		ruleSet: rules.New(policy),
		policy:  policy,
		sink:    sink,
	}
}

// Traffic exposes the underlying event store for the reporting endpoints.
func (s *DetectionService) Traffic() *TrafficService { return s.traffic }

// Alerts exposes the underlying alert store for the reporting endpoints.
func (s *DetectionService) Alerts() *AlertService { return s.alerts }

// Blocks exposes the underlying block registry for the reporting endpoints.
func (s *DetectionService) Blocks() *BlockService { return s.blocks }

// Process persists one observation and evaluates it. The event is always
// persisted first; a blocked IP's traffic still reaches this point because the
// block short-circuit happens upstream in the request-intercepting middleware.
// Returns the persisted event and every alert the observation triggered.
//
// A storage failure on the alert/block path is returned to the caller, but the
// already-persisted event is returned with it: a hiccup recording a decision
// must not lose the underlying traffic record.
func (s *DetectionService) Process(event *models.TrafficEvent) (*models.TrafficEvent, []models.Alert, error) {
	if err := s.traffic.Append(event); err != nil {
		return nil, nil, err
	}

	var triggered []models.Alert
	ip := event.SourceIP

	// Spike rule, guarded: an already-blocked IP is not re-counted.
	blocked, err := s.blocks.IsBlocked(ip, time.Now().UTC())
	if err != nil {
		return event, triggered, err
	}
	if !blocked {
		count, err := s.traffic.CountSince(ip, time.Now().UTC().Add(-spikeWindow))
		if err != nil {
			return event, triggered, err
		}
		if match := s.ruleSet.EvaluateSpike(count); match != nil {
			alert, err := s.alerts.Create(match.Type, match.Description, ip)
			if err != nil {
				return event, triggered, err
			}
			triggered = append(triggered, *alert)
			if err := s.blockIP(ip); err != nil {
				return event, triggered, err
			}
		}
	}

	// User-agent rule, evaluated independently of the spike guard.
	if match := s.ruleSet.EvaluateUserAgent(event.UserAgent); match != nil {
		alert, err := s.alerts.Create(match.Type, match.Description, ip)
		if err != nil {
			return event, triggered, err
		}
		triggered = append(triggered, *alert)
		if err := s.blockIfNotBlocked(ip); err != nil {
			return event, triggered, err
		}
	}

	// Sensitive-URL rule, also independent.
	if match := s.ruleSet.EvaluateURL(event.URL); match != nil {
		alert, err := s.alerts.Create(match.Type, match.Description, ip)
		if err != nil {
			return event, triggered, err
		}
		triggered = append(triggered, *alert)
		if err := s.blockIfNotBlocked(ip); err != nil {
			return event, triggered, err
		}
	}

	return event, triggered, nil
}

// blockIfNotBlocked applies the point-in-time guard that keeps an already
// blocked IP from writing an audit entry per request. The read races with
// concurrent blocks; a duplicate audit entry under that race is accepted.
func (s *DetectionService) blockIfNotBlocked(ip string) error {
	blocked, err := s.blocks.IsBlocked(ip, time.Now().UTC())
	if err != nil {
		return err
	}
	if blocked {
		return nil
	}
	return s.blockIP(ip)
}

// blockIP runs the block procedure: upsert the registry entry for now plus the
// configured duration, append the audit entry, then notify detached. If the
// block decision cannot be durably recorded the error surfaces to the caller;
// notification failure never does.
func (s *DetectionService) blockIP(ip string) error {
	until := time.Now().UTC().Add(s.policy.BlockDuration)

	if err := s.blocks.Block(ip, until); err != nil {
		return err
	}
	if err := s.blocks.LogAction(models.ActionBlockIP, ip, blockReason); err != nil {
		return err
	}
	metrics.IncBlock()

	logger.WithFields(map[string]interface{}{"ip": ip, "until": until}).
		Warn("IP blocked")

	dispatchNotification(s.sink, ip, until, notifyTimeout)
	return nil
}

// IsBlocked reports the live block state for the IP. The request-intercepting
// middleware calls this before routing.
func (s *DetectionService) IsBlocked(ip string) (bool, error) {
	return s.blocks.IsBlocked(ip, time.Now().UTC())
}

// Unblock removes any block entry for the IP and always appends one audit
// entry, whether or not the IP was blocked. Idempotent.
func (s *DetectionService) Unblock(ip string) error {
	if err := s.blocks.Unblock(ip); err != nil {
		return err
	}
	if err := s.blocks.LogAction(models.ActionUnblockIP, ip, "Manual unblock"); err != nil {
		return err
	}
	metrics.IncUnblock()

	logger.WithFields(map[string]interface{}{"ip": ip}).Info("IP unblocked")
	return nil
}
