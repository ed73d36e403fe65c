package app

import (
	"fmt"
	"os"

	"github.com/fabura/gonka-tools/internal/common"
	"github.com/fabura/gonka-tools/internal/features/monitor/domain"
)

// Default SSH connection settings for registry entries that omit them
const (
	defaultSSHPort = 22
	defaultSSHUser = "ubuntu"
	defaultService = "gonka"
)

// BuildRegistry turns the configured node list into the immutable node
// registry the engine monitors. Per-node threshold overrides are
// resolved here so the engine only ever sees effective limits.
func BuildRegistry(cfg *Config) ([]domain.Node, error) {
	if cfg.Monitor.Mode == ModeLocal {
		return buildLocalRegistry(cfg)
	}

	seen := make(map[string]struct{}, len(cfg.Nodes))
	nodes := make([]domain.Node, 0, len(cfg.Nodes))

	for _, nc := range cfg.Nodes {
		if nc.Disabled {
			continue
		}
		if _, dup := seen[nc.Name]; dup {
			return nil, common.InvalidInputError("duplicate node name %q in registry", nc.Name)
		}
		seen[nc.Name] = struct{}{}

		node := domain.Node{
			Name:       nc.Name,
			Host:       nc.Host,
			Port:       nc.Port,
			User:       nc.User,
			KeyPath:    nc.KeyPath,
			Service:    nc.Service,
			Thresholds: effectiveThresholds(cfg.Thresholds, nc.Thresholds),
		}
		if node.Port == 0 {
			node.Port = defaultSSHPort
		}
		if node.User == "" {
			node.User = defaultSSHUser
		}
		if node.Service == "" {
			node.Service = defaultService
		}

		nodes = append(nodes, node)
	}

	return nodes, nil
}

// buildLocalRegistry returns a registry of exactly one node describing
// the machine the process runs on. The local and fleet deployments share
// the same engine; only the registry size and the collector differ.
func buildLocalRegistry(cfg *Config) ([]domain.Node, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve local hostname: %w", err)
	}

	service := defaultService
	if len(cfg.Nodes) > 0 && cfg.Nodes[0].Service != "" {
		service = cfg.Nodes[0].Service
	}

	node := domain.Node{
		Name:       hostname,
		Host:       "localhost",
		Service:    service,
		Thresholds: effectiveThresholds(cfg.Thresholds, firstOverrides(cfg.Nodes)),
	}

	return []domain.Node{node}, nil
}

// firstOverrides returns the override block of the first configured node,
// which is the only one consulted in local mode
func firstOverrides(nodes []NodeConfig) *ThresholdOverrides {
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0].Thresholds
}

// effectiveThresholds overlays per-node overrides on the global limits.
// Each limit falls back independently.
func effectiveThresholds(global ThresholdConfig, overrides *ThresholdOverrides) domain.Thresholds {
	t := domain.Thresholds{
		CPU:     global.CPU,
		Memory:  global.Memory,
		Disk:    global.Disk,
		GPUTemp: global.GPUTemp,
	}
	if overrides == nil {
		return t
	}
	if overrides.CPU != nil {
		t.CPU = *overrides.CPU
	}
	if overrides.Memory != nil {
		t.Memory = *overrides.Memory
	}
	if overrides.Disk != nil {
		t.Disk = *overrides.Disk
	}
	if overrides.GPUTemp != nil {
		t.GPUTemp = *overrides.GPUTemp
	}
	return t
}
