package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fabura/gonka-tools/internal/common"
	"github.com/fabura/gonka-tools/internal/features/monitor/domain"
)

// EngineConfig holds the scheduling parameters of the monitoring loop
type EngineConfig struct {
	// Interval is the time between polling cycles
	Interval time.Duration

	// CollectTimeout bounds one node's collection
	CollectTimeout time.Duration

	// NotifyTimeout bounds one alert delivery
	NotifyTimeout time.Duration

	// Concurrency caps how many nodes are collected at once
	Concurrency int

	// RunOnStart fires the first cycle immediately
	RunOnStart bool
}

// Engine is the monitoring loop: it fans collection out over the node
// registry each cycle and pipes every snapshot through evaluation,
// deduplication and delivery. The engine has two states, idle and
// running; Start moves it to running once, Stop cancels the loop.
type Engine struct {
	config    EngineConfig
	nodes     []domain.Node
	collector domain.Collector
	cooldown  domain.CooldownPolicy
	sink      domain.NotificationSink
	metrics   *EngineMetrics
	logger    *slog.Logger

	// Control structures
	startOnce  sync.Once
	cancelFunc context.CancelFunc
	done       chan struct{}

	// Latest observed status per node, read by the API layer
	statusMu sync.RWMutex
	status   map[string]domain.NodeStatus
}

// NewEngine creates a monitoring engine with dependencies injected
func NewEngine(
	config EngineConfig,
	nodes []domain.Node,
	collector domain.Collector,
	cooldown domain.CooldownPolicy,
	sink domain.NotificationSink,
	metrics *EngineMetrics,
	logger *slog.Logger,
) *Engine {
	status := make(map[string]domain.NodeStatus, len(nodes))
	for _, node := range nodes {
		status[node.Name] = domain.NodeStatus{NodeName: node.Name}
	}

	return &Engine{
		config:    config,
		nodes:     nodes,
		collector: collector,
		cooldown:  cooldown,
		sink:      sink,
		metrics:   metrics,
		logger:    logger,
		done:      make(chan struct{}),
		status:    status,
	}
}

// Start launches the scheduling loop. Subsequent calls are no-ops.
func (e *Engine) Start(ctx context.Context) error {
	var startErr error

	e.startOnce.Do(func() {
		if err := ctx.Err(); err != nil {
			startErr = err
			return
		}

		loopCtx, cancel := context.WithCancel(ctx)
		e.cancelFunc = cancel

		e.logger.Info("starting monitoring loop",
			"nodes", len(e.nodes),
			"collector", e.collector.Name(),
			"channel", e.sink.Name(),
			"interval", e.config.Interval)

		go e.run(loopCtx)
	})

	return startErr
}

// Stop requests cancellation of the loop. In-flight collections are
// abandoned to their own timeouts; Stop waits only briefly for the
// loop goroutine to observe the cancellation.
func (e *Engine) Stop() {
	if e.cancelFunc == nil {
		return
	}
	e.cancelFunc()

	select {
	case <-e.done:
	case <-time.After(time.Second):
		e.logger.Warn("monitoring loop did not stop within grace period")
	}
}

// run is the scheduling loop body
func (e *Engine) run(ctx context.Context) {
	defer close(e.done)

	ticker := time.NewTicker(e.config.Interval)
	defer ticker.Stop()

	if e.config.RunOnStart {
		e.runCycle(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("monitoring loop stopped", "reason", ctx.Err())
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			e.runCycle(ctx)
		}
	}
}

// runCycle collects every node once with bounded concurrency. One
// node's failure never aborts the cycle for the others.
func (e *Engine) runCycle(ctx context.Context) {
	start := time.Now()

	g := new(errgroup.Group)
	g.SetLimit(e.config.Concurrency)

	for _, node := range e.nodes {
		node := node
		g.Go(func() error {
			e.processNode(ctx, node)
			return nil
		})
	}

	// Workers never return errors; failures are folded into snapshots
	_ = g.Wait()

	elapsed := time.Since(start)
	e.metrics.ObserveCycle(elapsed.Seconds())
	e.logger.Debug("cycle finished", "nodes", len(e.nodes), "elapsed", elapsed)
}

// processNode runs the full pipeline for one node:
// collect -> evaluate -> deduplicate -> deliver
func (e *Engine) processNode(ctx context.Context, node domain.Node) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic while processing node", "node", node.Name, "panic", r)
		}
	}()

	collectCtx, cancel := context.WithTimeout(ctx, e.config.CollectTimeout)
	snapshot := e.collector.Collect(collectCtx, node)
	cancel()

	e.metrics.ObserveSnapshot(snapshot)
	e.recordStatus(snapshot)
	e.logSummary(snapshot)

	for _, finding := range Evaluate(snapshot, node.Thresholds) {
		if !e.cooldown.ShouldEmit(finding, time.Now()) {
			e.metrics.ObserveSuppressed(finding)
			e.logger.Debug("finding suppressed by cooldown",
				"node", finding.NodeName, "kind", finding.Kind)
			continue
		}

		e.metrics.ObserveEmitted(finding)
		e.deliver(ctx, domain.Alert{Finding: finding, Timestamp: time.Now()})
	}
}

// deliver pushes one alert to the sink. Delivery failures are logged
// and counted but never retried: if the condition persists it will be
// re-detected next cycle, subject to the cooldown window.
func (e *Engine) deliver(ctx context.Context, alert domain.Alert) {
	err := common.WithTimeout(ctx, e.config.NotifyTimeout, func(notifyCtx context.Context) error {
		return e.sink.Notify(notifyCtx, alert)
	})
	if err != nil {
		if common.IsContextCanceled(err) {
			// Shutdown races are not delivery failures
			e.logger.Debug("alert delivery abandoned",
				"node", alert.NodeName, "kind", alert.Kind, "error", err)
			return
		}

		message := "alert delivery failed"
		if common.IsTimeout(err) {
			message = "alert delivery timed out"
		}
		e.metrics.ObserveDeliveryFailure(e.sink.Name())
		e.logger.Error(message,
			"node", alert.NodeName,
			"kind", alert.Kind,
			"channel", e.sink.Name(),
			"error", err)
		return
	}

	e.logger.Info("alert delivered",
		"node", alert.NodeName,
		"kind", alert.Kind,
		"severity", alert.Severity,
		"value", alert.MeasuredValue)
}

// recordStatus updates the latest observed status for the node
func (e *Engine) recordStatus(snapshot domain.MetricSnapshot) {
	status := domain.NodeStatus{
		NodeName:       snapshot.NodeName,
		Reachable:      !snapshot.Unreachable(),
		ServiceRunning: snapshot.ServiceRunning,
		GPUCount:       len(snapshot.GPUTemps),
		CollectedAt:    snapshot.Timestamp,
		LastError:      snapshot.CollectionError,
	}
	if snapshot.CPUPercent != nil {
		status.CPUPercent = *snapshot.CPUPercent
	}
	if snapshot.MemoryPercent != nil {
		status.MemoryPercent = *snapshot.MemoryPercent
	}
	if snapshot.DiskPercent != nil {
		status.DiskPercent = *snapshot.DiskPercent
	}
	for _, temp := range snapshot.GPUTemps {
		if temp > status.MaxGPUTemp {
			status.MaxGPUTemp = temp
		}
	}

	e.statusMu.Lock()
	e.status[snapshot.NodeName] = status
	e.statusMu.Unlock()
}

// logSummary emits the per-cycle human-readable line for one node
func (e *Engine) logSummary(snapshot domain.MetricSnapshot) {
	if snapshot.Unreachable() {
		e.logger.Warn("node unreachable",
			"node", snapshot.NodeName,
			"error", snapshot.CollectionError)
		return
	}

	attrs := []any{"node", snapshot.NodeName, "service_running", snapshot.ServiceRunning}
	if snapshot.CPUPercent != nil {
		attrs = append(attrs, "cpu_percent", *snapshot.CPUPercent)
	}
	if snapshot.MemoryPercent != nil {
		attrs = append(attrs, "memory_percent", *snapshot.MemoryPercent)
	}
	if snapshot.DiskPercent != nil {
		attrs = append(attrs, "disk_percent", *snapshot.DiskPercent)
	}
	if len(snapshot.GPUTemps) > 0 {
		attrs = append(attrs, "gpu_temps", snapshot.GPUTemps)
	}
	e.logger.Info("node collected", attrs...)
}

// FleetStatus returns the latest observed status of every node,
// ordered by node name
func (e *Engine) FleetStatus() domain.FleetReport {
	e.statusMu.RLock()
	nodes := make([]domain.NodeStatus, 0, len(e.status))
	for _, status := range e.status {
		nodes = append(nodes, status)
	}
	e.statusMu.RUnlock()

	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].NodeName < nodes[j].NodeName
	})

	return domain.FleetReport{
		GeneratedAt: time.Now(),
		Nodes:       nodes,
	}
}

// NodeStatus returns the latest observed status for one node
func (e *Engine) NodeStatus(nodeName string) (domain.NodeStatus, error) {
	e.statusMu.RLock()
	status, ok := e.status[nodeName]
	e.statusMu.RUnlock()

	if !ok {
		return domain.NodeStatus{}, common.NewNodeNotFoundError(nodeName)
	}
	return status, nil
}

// SendFleetReport pushes the current fleet summary through the sink.
// The fleet is re-collected first so the report reflects the state as
// of the request, not the last scheduled cycle. Channels that cannot
// carry a report return an unavailable error.
func (e *Engine) SendFleetReport(ctx context.Context) error {
	reporter, ok := e.sink.(domain.FleetReporter)
	if !ok {
		return common.UnavailableError("channel %s does not support fleet reports", e.sink.Name())
	}

	e.refreshStatus(ctx)

	return common.WithTimeout(ctx, e.config.NotifyTimeout, func(reportCtx context.Context) error {
		return reporter.SendReport(reportCtx, e.FleetStatus())
	})
}

// refreshStatus collects every node once and records the results,
// without evaluating or alerting. Ad-hoc reports must not interfere
// with the cooldown state of the scheduled loop.
func (e *Engine) refreshStatus(ctx context.Context) {
	g := new(errgroup.Group)
	g.SetLimit(e.config.Concurrency)

	for _, node := range e.nodes {
		node := node
		g.Go(func() error {
			collectCtx, cancel := context.WithTimeout(ctx, e.config.CollectTimeout)
			snapshot := e.collector.Collect(collectCtx, node)
			cancel()
			e.recordStatus(snapshot)
			return nil
		})
	}

	_ = g.Wait()
}
