package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	eventsIngestedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentra_events_ingested_total",
		Help: "Total number of traffic events persisted",
	})
	alertsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sentra_alerts_total",
		Help: "Total number of alerts created, by alert type",
	}, []string{"type"})
	blocksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentra_ip_blocks_total",
		Help: "Total number of IP block decisions",
	})
	unblocksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentra_ip_unblocks_total",
		Help: "Total number of manual IP unblocks",
	})
	rejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentra_blocked_requests_total",
		Help: "Total number of requests rejected because the client IP is blocked",
	})
)

// Register registers Prometheus collectors. Call once at startup.
func Register(registry *prometheus.Registry) {
	registry.MustRegister(eventsIngestedTotal, alertsTotal, blocksTotal, unblocksTotal, rejectedTotal)
}

// IncEventIngested increments the persisted events counter.
func IncEventIngested() { eventsIngestedTotal.Inc() }

// IncAlert increments the alerts counter for the given alert type.
func IncAlert(alertType string) { alertsTotal.WithLabelValues(alertType).Inc() }

// IncBlock increments the block decisions counter.
func IncBlock() { blocksTotal.Inc() }

// IncUnblock increments the manual unblock counter.
func IncUnblock() { unblocksTotal.Inc() }

// IncRejected increments the rejected (already blocked) requests counter.
func IncRejected() { rejectedTotal.Inc() }
