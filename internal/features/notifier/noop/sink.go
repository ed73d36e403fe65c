// Package noop discards alerts, for dry runs where only the status API
// and metrics are wanted.
package noop

import (
	"context"

	"github.com/fabura/gonka-tools/internal/features/monitor/domain"
)

// Sink discards every alert
type Sink struct{}

// NewSink creates a no-op notification sink
func NewSink() *Sink {
	return &Sink{}
}

// Name identifies the channel in logs and metrics
func (s *Sink) Name() string {
	return "noop"
}

// Notify discards the alert
func (s *Sink) Notify(ctx context.Context, alert domain.Alert) error {
	return nil
}
