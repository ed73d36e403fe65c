package service

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fabura/gonka-tools/internal/features/monitor/domain"
)

// EngineMetrics manages Prometheus metrics for the monitoring engine
type EngineMetrics struct {
	cycleCounter       prometheus.Counter
	cycleDuration      prometheus.Histogram
	collectionFailures *prometheus.CounterVec
	alertsEmitted      *prometheus.CounterVec
	alertsSuppressed   *prometheus.CounterVec
	deliveryFailures   *prometheus.CounterVec
	resourceGauge      *prometheus.GaugeVec
	registered         bool
	mu                 sync.Mutex
}

// NewEngineMetrics creates a new metrics collector
func NewEngineMetrics() *EngineMetrics {
	return &EngineMetrics{
		cycleCounter: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gonka_monitor_cycles_total",
				Help: "Count of completed monitoring cycles",
			},
		),
		cycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gonka_monitor_cycle_duration_seconds",
				Help:    "Wall-clock duration of one monitoring cycle",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~200s
			},
		),
		collectionFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gonka_monitor_collection_failures_total",
				Help: "Count of failed metric collections by node",
			},
			[]string{"node"},
		),
		alertsEmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gonka_monitor_alerts_emitted_total",
				Help: "Count of alerts that passed deduplication, by node and kind",
			},
			[]string{"node", "kind"},
		),
		alertsSuppressed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gonka_monitor_alerts_suppressed_total",
				Help: "Count of findings suppressed by the cooldown window, by node and kind",
			},
			[]string{"node", "kind"},
		),
		deliveryFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gonka_monitor_delivery_failures_total",
				Help: "Count of failed alert deliveries by channel",
			},
			[]string{"channel"},
		),
		resourceGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gonka_monitor_node_resource_percent",
				Help: "Latest observed resource usage by node",
			},
			[]string{"node", "resource"}, // resource is "cpu", "memory" or "disk"
		),
	}
}

// Register registers metrics with Prometheus
func (m *EngineMetrics) Register() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return
	}

	prometheus.MustRegister(m.cycleCounter)
	prometheus.MustRegister(m.cycleDuration)
	prometheus.MustRegister(m.collectionFailures)
	prometheus.MustRegister(m.alertsEmitted)
	prometheus.MustRegister(m.alertsSuppressed)
	prometheus.MustRegister(m.deliveryFailures)
	prometheus.MustRegister(m.resourceGauge)

	m.registered = true
}

// ObserveCycle records one completed cycle and its duration in seconds
func (m *EngineMetrics) ObserveCycle(seconds float64) {
	m.cycleCounter.Inc()
	m.cycleDuration.Observe(seconds)
}

// ObserveSnapshot records the latest resource readings for a node
func (m *EngineMetrics) ObserveSnapshot(snapshot domain.MetricSnapshot) {
	if snapshot.Unreachable() {
		m.collectionFailures.WithLabelValues(snapshot.NodeName).Inc()
		return
	}
	if snapshot.CPUPercent != nil {
		m.resourceGauge.WithLabelValues(snapshot.NodeName, "cpu").Set(*snapshot.CPUPercent)
	}
	if snapshot.MemoryPercent != nil {
		m.resourceGauge.WithLabelValues(snapshot.NodeName, "memory").Set(*snapshot.MemoryPercent)
	}
	if snapshot.DiskPercent != nil {
		m.resourceGauge.WithLabelValues(snapshot.NodeName, "disk").Set(*snapshot.DiskPercent)
	}
}

// ObserveEmitted records an alert that passed deduplication
func (m *EngineMetrics) ObserveEmitted(finding domain.Finding) {
	m.alertsEmitted.WithLabelValues(finding.NodeName, string(finding.Kind)).Inc()
}

// ObserveSuppressed records a finding suppressed by the cooldown window
func (m *EngineMetrics) ObserveSuppressed(finding domain.Finding) {
	m.alertsSuppressed.WithLabelValues(finding.NodeName, string(finding.Kind)).Inc()
}

// ObserveDeliveryFailure records a failed alert delivery
func (m *EngineMetrics) ObserveDeliveryFailure(channel string) {
	m.deliveryFailures.WithLabelValues(channel).Inc()
}
