package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector collects and exports metrics for the dashboard service
type Collector struct {
	registry *prometheus.Registry

	// Mutation metrics
	complianceUpdates *prometheus.CounterVec
	revenueEntries    prometheus.Counter
	auditEntries      *prometheus.CounterVec

	// Notification metrics
	remindersGenerated *prometheus.CounterVec
	notificationsRead  prometheus.Counter

	// Reporting metrics
	reportsGenerated *prometheus.CounterVec

	// Session metrics
	activeSessions prometheus.Gauge
}

// NewCollector creates a collector with its own registry
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		complianceUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_compliance_updates_total",
			Help: "Total compliance record updates by outcome",
		}, []string{"outcome"}),
		revenueEntries: factory.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_revenue_entries_total",
			Help: "Total revenue entries appended",
		}),
		auditEntries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_audit_entries_total",
			Help: "Total audit trail entries by action",
		}, []string{"action"}),
		remindersGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_reminders_generated_total",
			Help: "Total reminder notifications generated by severity",
		}, []string{"severity"}),
		notificationsRead: factory.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_notifications_read_total",
			Help: "Total notifications acknowledged",
		}),
		reportsGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_reports_generated_total",
			Help: "Total reports generated by format",
		}, []string{"format"}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_active_sessions",
			Help: "Currently active dashboard sessions",
		}),
	}
}

// Registry exposes the backing registry for the metrics handler
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordComplianceUpdate records an update attempt outcome
func (c *Collector) RecordComplianceUpdate(outcome string) {
	c.complianceUpdates.WithLabelValues(outcome).Inc()
}

// RecordRevenueEntry records an appended revenue entry
func (c *Collector) RecordRevenueEntry() {
	c.revenueEntries.Inc()
}

// RecordAuditEntry records an audit trail append
func (c *Collector) RecordAuditEntry(action string) {
	c.auditEntries.WithLabelValues(action).Inc()
}

// RecordReminder records a generated reminder notification
func (c *Collector) RecordReminder(severity string) {
	c.remindersGenerated.WithLabelValues(severity).Inc()
}

// RecordNotificationRead records an acknowledged notification
func (c *Collector) RecordNotificationRead() {
	c.notificationsRead.Inc()
}

// RecordReport records a generated report
func (c *Collector) RecordReport(format string) {
	c.reportsGenerated.WithLabelValues(format).Inc()
}

// SetActiveSessions updates the active session gauge
func (c *Collector) SetActiveSessions(n int) {
	c.activeSessions.Set(float64(n))
}
