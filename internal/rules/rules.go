package rules

import (
	"fmt"
	"strings"

	"github.com/sentra-sec/sentra/backend/internal/config"
	"github.com/sentra-sec/sentra/backend/internal/models"
)

// Match is one rule hit for one traffic event.
type Match struct {
	Type        models.AlertType
	Description string
}

// RuleSet evaluates single traffic events against a static policy. It holds no
// state beyond the policy and performs no I/O; the caller supplies the recent
// request count for the spike rule.
type RuleSet struct {
	spikeThreshold   int
	suspiciousAgents []string
	sensitiveURLs    []string
}

// New builds a RuleSet from the detection policy. Deny-list entries are
// normalized to lower case once so evaluation is a plain substring/equality scan.
func New(cfg config.DetectionConfig) *RuleSet {
	rs := &RuleSet{spikeThreshold: cfg.SpikeThreshold}
	for _, a := range cfg.SuspiciousAgents {
		rs.suspiciousAgents = append(rs.suspiciousAgents, strings.ToLower(a))
	}
	for _, u := range cfg.SensitiveURLs {
		rs.sensitiveURLs = append(rs.sensitiveURLs, strings.ToLower(u))
	}
	return rs
}

// Evaluate returns every rule the event matches. The three rules are
// independent; an event can match zero, one, or all of them. Order of the
// returned matches is not significant.
func (r *RuleSet) Evaluate(event *models.TrafficEvent, recentCount int) []Match {
	var matches []Match

	if m := r.evaluateSpike(recentCount); m != nil {
		matches = append(matches, *m)
	}
	if m := r.evaluateUserAgent(event.UserAgent); m != nil {
		matches = append(matches, *m)
	}
	if m := r.evaluateURL(event.URL); m != nil {
		matches = append(matches, *m)
	}

	return matches
}

// EvaluateSpike applies only the spike rule. The detection engine uses this
// directly because the spike check is guarded by block state while the other
// two rules are not.
func (r *RuleSet) EvaluateSpike(recentCount int) *Match {
	return r.evaluateSpike(recentCount)
}

// EvaluateUserAgent applies only the suspicious user-agent rule.
func (r *RuleSet) EvaluateUserAgent(userAgent string) *Match {
	return r.evaluateUserAgent(userAgent)
}

// EvaluateURL applies only the sensitive-URL rule.
func (r *RuleSet) EvaluateURL(url string) *Match {
	return r.evaluateURL(url)
}

func (r *RuleSet) evaluateSpike(recentCount int) *Match {
	if recentCount < r.spikeThreshold {
		return nil
	}
	return &Match{
		Type:        models.AlertTypeSpike,
		Description: fmt.Sprintf("%d requests in last 1 min", recentCount),
	}
}

func (r *RuleSet) evaluateUserAgent(userAgent string) *Match {
	// An empty user agent never matches.
	if userAgent == "" {
		return nil
	}
	ua := strings.ToLower(userAgent)
	for _, agent := range r.suspiciousAgents {
		if strings.Contains(ua, agent) {
			return &Match{
				Type:        models.AlertTypeSuspiciousUA,
				Description: fmt.Sprintf("Detected suspicious agent: %s", userAgent),
			}
		}
	}
	return nil
}

func (r *RuleSet) evaluateURL(url string) *Match {
	// Exact-path comparison, intentionally not prefix matching: /admin/x does
	// not match /admin. Kept for compatibility with existing deployments.
	path := strings.ToLower(url)
	for _, sensitive := range r.sensitiveURLs {
		if path == sensitive {
			return &Match{
				Type:        models.AlertTypeSensitiveURL,
				Description: fmt.Sprintf("Attempted access: %s", url),
			}
		}
	}
	return nil
}
