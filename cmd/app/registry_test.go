package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabura/gonka-tools/internal/common"
)

func floatPtr(v float64) *float64 {
	return &v
}

func TestBuildRegistryAppliesDefaults(t *testing.T) {
	cfg := validTestConfig()

	nodes, err := BuildRegistry(cfg)
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	assert.Equal(t, "worker-1", nodes[0].Name)
	assert.Equal(t, 22, nodes[0].Port)
	assert.Equal(t, "ubuntu", nodes[0].User)
	assert.Equal(t, "gonka", nodes[0].Service)
	assert.Equal(t, 90.0, nodes[0].Thresholds.CPU)
}

func TestBuildRegistryKeepsExplicitSettings(t *testing.T) {
	cfg := validTestConfig()
	cfg.Nodes[0].Port = 2222
	cfg.Nodes[0].User = "admin"
	cfg.Nodes[0].Service = "inference"

	nodes, err := BuildRegistry(cfg)
	require.NoError(t, err)

	assert.Equal(t, 2222, nodes[0].Port)
	assert.Equal(t, "admin", nodes[0].User)
	assert.Equal(t, "inference", nodes[0].Service)
}

func TestBuildRegistrySkipsDisabledNodes(t *testing.T) {
	cfg := validTestConfig()
	cfg.Nodes = append(cfg.Nodes, NodeConfig{
		Name:     "worker-2",
		Host:     "10.0.0.2",
		Disabled: true,
	})

	nodes, err := BuildRegistry(cfg)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "worker-1", nodes[0].Name)
}

func TestBuildRegistryRejectsDuplicateNames(t *testing.T) {
	cfg := validTestConfig()
	cfg.Nodes = append(cfg.Nodes, NodeConfig{Name: "worker-1", Host: "10.0.0.9"})

	_, err := BuildRegistry(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
	assert.True(t, common.IsInvalidInput(err), "Registry rejections are invalid-input errors")
}

func TestBuildRegistryOverlaysThresholdOverrides(t *testing.T) {
	cfg := validTestConfig()
	cfg.Nodes[0].Thresholds = &ThresholdOverrides{
		CPU:     floatPtr(70),
		GPUTemp: floatPtr(80),
	}

	nodes, err := BuildRegistry(cfg)
	require.NoError(t, err)

	assert.Equal(t, 70.0, nodes[0].Thresholds.CPU, "Overridden limit applies")
	assert.Equal(t, 80.0, nodes[0].Thresholds.GPUTemp)
	assert.Equal(t, 85.0, nodes[0].Thresholds.Memory, "Unset limits fall back to globals")
	assert.Equal(t, 90.0, nodes[0].Thresholds.Disk)
}

func TestBuildRegistryLocalMode(t *testing.T) {
	cfg := validTestConfig()
	cfg.Monitor.Mode = ModeLocal
	cfg.Nodes = nil

	nodes, err := BuildRegistry(cfg)
	require.NoError(t, err)
	require.Len(t, nodes, 1, "Local mode monitors exactly one node")

	assert.NotEmpty(t, nodes[0].Name, "Local node is named after the hostname")
	assert.Equal(t, "localhost", nodes[0].Host)
	assert.Equal(t, "gonka", nodes[0].Service)
}
