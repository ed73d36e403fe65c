package domain

import (
	"context"
	"time"
)

// Collector obtains a metric snapshot for one node. Implementations
// must never fail the caller for a single node's problem: any failure
// is captured in the snapshot's CollectionError field. Implementations
// must bound their own work with the context deadline.
type Collector interface {
	// Name identifies the collector implementation in logs
	Name() string

	// Collect gathers metrics for the node. The returned snapshot is
	// always usable, even when collection failed.
	Collect(ctx context.Context, node Node) MetricSnapshot
}

// NotificationSink delivers alerts to an external channel. Delivery is
// fire-and-forget: a failed delivery is reported to the caller but is
// never retried for the same alert.
type NotificationSink interface {
	// Name identifies the delivery channel in logs
	Name() string

	// Notify delivers a single alert
	Notify(ctx context.Context, alert Alert) error
}

// FleetReporter pushes a fleet summary to an external channel. Sinks
// that cannot carry a report simply do not implement this.
type FleetReporter interface {
	SendReport(ctx context.Context, report FleetReport) error
}

// CooldownPolicy decides whether a finding becomes an emitted alert
type CooldownPolicy interface {
	// ShouldEmit returns true when the finding's identity has not fired
	// within the cooldown window; a true return records now as the new
	// emission anchor for that identity.
	ShouldEmit(finding Finding, now time.Time) bool
}

// Provider is the monitoring engine surface exposed to the API layer
type Provider interface {
	// Start transitions the engine from idle to running. It returns once
	// the scheduling loop has been launched.
	Start(ctx context.Context) error

	// Stop requests cancellation of the scheduling loop
	Stop()

	// FleetStatus returns the latest observed status of every node
	FleetStatus() FleetReport

	// NodeStatus returns the latest observed status of one node
	NodeStatus(nodeName string) (NodeStatus, error)

	// SendFleetReport pushes the current fleet summary to the
	// configured channel
	SendFleetReport(ctx context.Context) error
}
