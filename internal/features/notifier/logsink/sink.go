// Package logsink emits alerts to the structured log, for deployments
// that only need an audit trail or are still wiring a real channel.
package logsink

import (
	"context"
	"log/slog"

	"github.com/fabura/gonka-tools/internal/features/monitor/domain"
)

// Sink writes alerts to the structured log
type Sink struct {
	logger *slog.Logger
}

// NewSink creates a log-backed notification sink
func NewSink(logger *slog.Logger) *Sink {
	return &Sink{logger: logger}
}

// Name identifies the channel in logs and metrics
func (s *Sink) Name() string {
	return "log"
}

// Notify records the alert at a level matching its severity
func (s *Sink) Notify(ctx context.Context, alert domain.Alert) error {
	attrs := []any{
		"node", alert.NodeName,
		"kind", alert.Kind,
		"severity", alert.Severity,
		"value", alert.MeasuredValue,
		"detail", alert.Detail,
	}

	if alert.Severity == domain.SeverityCritical {
		s.logger.Error("ALERT", attrs...)
	} else {
		s.logger.Warn("ALERT", attrs...)
	}
	return nil
}

// SendReport records the fleet summary
func (s *Sink) SendReport(ctx context.Context, report domain.FleetReport) error {
	s.logger.Info("fleet report",
		"healthy", report.HealthyCount(),
		"total", len(report.Nodes),
		"generated_at", report.GeneratedAt)

	for _, node := range report.Nodes {
		s.logger.Info("fleet report node",
			"node", node.NodeName,
			"healthy", node.Healthy(),
			"reachable", node.Reachable,
			"service_running", node.ServiceRunning)
	}
	return nil
}
