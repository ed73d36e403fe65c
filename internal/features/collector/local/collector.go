// Package local collects metrics from the host the monitor runs on,
// for single-machine deployments where SSH would be pointless.
package local

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/fabura/gonka-tools/internal/common"
	"github.com/fabura/gonka-tools/internal/features/monitor/domain"
)

// cpuSampleWindow is how long the CPU probe averages over. Kept well
// under the collect timeout so the other probes still get their turn.
const cpuSampleWindow = time.Second

// Collector reads metrics from the local host
type Collector struct{}

// NewCollector creates a new local collector
func NewCollector() *Collector {
	return &Collector{}
}

// Name identifies the collector in logs
func (c *Collector) Name() string {
	return "local"
}

// Collect gathers one snapshot for the local host. Individual probe
// failures leave their fields absent; only a total failure of the
// system metric probes marks the snapshot as failed.
func (c *Collector) Collect(ctx context.Context, node domain.Node) domain.MetricSnapshot {
	logger := common.LoggerFromContext(ctx)

	snapshot := domain.MetricSnapshot{
		NodeName:  node.Name,
		Timestamp: time.Now(),
	}

	var probeErrs []string

	if percents, err := cpu.PercentWithContext(ctx, cpuSampleWindow, false); err != nil {
		probeErrs = append(probeErrs, fmt.Sprintf("cpu: %v", err))
	} else if len(percents) == 0 {
		probeErrs = append(probeErrs, "cpu: no samples")
	} else {
		snapshot.CPUPercent = &percents[0]
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		snapshot.MemoryPercent = &vm.UsedPercent
	} else {
		probeErrs = append(probeErrs, fmt.Sprintf("memory: %v", err))
	}

	if usage, err := disk.UsageWithContext(ctx, "/"); err == nil {
		snapshot.DiskPercent = &usage.UsedPercent
	} else {
		probeErrs = append(probeErrs, fmt.Sprintf("disk: %v", err))
	}

	for _, reason := range probeErrs {
		logger.Debug("local probe failed", "node", node.Name, "reason", reason)
	}

	// All three system probes failing means something is wrong with the
	// host itself, not with one subsystem
	if len(probeErrs) == 3 {
		return domain.MetricSnapshot{
			NodeName:  node.Name,
			Timestamp: snapshot.Timestamp,
			CollectionError: common.NewCollectionFailedError(
				node.Name, strings.Join(probeErrs, "; ")).Error(),
		}
	}

	snapshot.GPUTemps = gpuTemps(ctx)
	snapshot.ServiceRunning = serviceActive(ctx, node.Service)

	return snapshot
}

// gpuTemps reads GPU temperatures via nvidia-smi. Hosts without a GPU
// or the NVIDIA tooling yield an empty sequence.
func gpuTemps(ctx context.Context) []float64 {
	out, err := exec.CommandContext(ctx,
		"nvidia-smi", "--query-gpu=temperature.gpu", "--format=csv,noheader,nounits").Output()
	if err != nil {
		return nil
	}

	var temps []float64
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		temp, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil
		}
		temps = append(temps, temp)
	}

	return temps
}

// serviceActive checks the systemd unit state for the monitored service
func serviceActive(ctx context.Context, service string) bool {
	out, _ := exec.CommandContext(ctx, "systemctl", "is-active", service).Output()
	return strings.TrimSpace(string(out)) == "active"
}
