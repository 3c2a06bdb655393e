package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PortalMetrics holds all Prometheus metrics for the portal service.
// A nil *PortalMetrics is valid and records nothing.
type PortalMetrics struct {
	LookupOutcomes       *prometheus.CounterVec
	ServiceRequests      *prometheus.CounterVec
	AuditWriteFailures   prometheus.Counter
	AuditSpooled         prometheus.Counter
	AuditReplayed        prometheus.Counter
	AuditSpoolActive     prometheus.Gauge
	NotificationFailures *prometheus.CounterVec
	UserCacheHits        prometheus.Counter
	UserCacheMisses      prometheus.Counter
}

// NewPortalMetrics registers the metrics with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewPortalMetrics(reg prometheus.Registerer) *PortalMetrics {
	factory := promauto.With(reg)
	return &PortalMetrics{
		LookupOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "lookup",
			Name:      "outcomes_total",
			Help:      "Total number of lookups by outcome.",
		}, []string{"outcome"}), // outcome: invalid, no_match, manual_entry, single_match, multiple_matches
		ServiceRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "service_requests_total",
			Help:      "Total number of issued service requests by service key.",
		}, []string{"service"}),
		AuditWriteFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "audit",
			Name:      "write_failures_total",
			Help:      "Total number of audit entries the history store rejected.",
		}),
		AuditSpooled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "audit",
			Name:      "spooled_total",
			Help:      "Total number of audit entries written to the local spool.",
		}),
		AuditReplayed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "audit",
			Name:      "replayed_total",
			Help:      "Total number of spooled audit entries replayed into the history store.",
		}),
		AuditSpoolActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "portal",
			Subsystem: "audit",
			Name:      "spool_active_gauge",
			Help:      "1 while the spool holds entries waiting for replay.",
		}),
		NotificationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "notification_failures_total",
			Help:      "Total number of failed notification dispatches by channel.",
		}, []string{"channel"}),
		UserCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "user_cache_hits_total",
			Help:      "Total number of user cache hits.",
		}),
		UserCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "user_cache_misses_total",
			Help:      "Total number of user cache misses.",
		}),
	}
}

func (m *PortalMetrics) ObserveLookup(outcome string) {
	if m != nil {
		m.LookupOutcomes.WithLabelValues(outcome).Inc()
	}
}

func (m *PortalMetrics) ObserveRequest(service string) {
	if m != nil {
		m.ServiceRequests.WithLabelValues(service).Inc()
	}
}

func (m *PortalMetrics) ObserveAuditFailure() {
	if m != nil {
		m.AuditWriteFailures.Inc()
	}
}

func (m *PortalMetrics) ObserveAuditSpooled() {
	if m != nil {
		m.AuditSpooled.Inc()
		m.AuditSpoolActive.Set(1)
	}
}

// ObserveAuditReplayed counts replayed entries; drained clears the spool gauge.
func (m *PortalMetrics) ObserveAuditReplayed(n int, drained bool) {
	if m != nil {
		m.AuditReplayed.Add(float64(n))
		if drained {
			m.AuditSpoolActive.Set(0)
		}
	}
}

func (m *PortalMetrics) ObserveNotificationFailure(channel string) {
	if m != nil {
		m.NotificationFailures.WithLabelValues(channel).Inc()
	}
}

func (m *PortalMetrics) ObserveUserCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.UserCacheHits.Inc()
	} else {
		m.UserCacheMisses.Inc()
	}
}
