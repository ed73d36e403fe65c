package ssh

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabura/gonka-tools/internal/common"
	"github.com/fabura/gonka-tools/internal/features/monitor/domain"
)

func TestCollectorName(t *testing.T) {
	assert.Equal(t, "ssh", NewCollector().Name())
}

func TestCollectWithoutKeyFailsAsCollectionError(t *testing.T) {
	collector := NewCollector()

	node := domain.Node{
		Name:    "gpu-1",
		Host:    "10.0.0.11",
		Port:    22,
		User:    "ubuntu",
		Service: "gonka",
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	snapshot := collector.Collect(ctx, node)

	assert.Equal(t, "gpu-1", snapshot.NodeName)
	require.True(t, snapshot.Unreachable(), "A node without credentials cannot be collected")
	assert.Contains(t, snapshot.CollectionError, "collection failed",
		"Connection failures carry the collection-failure form")
	assert.Contains(t, snapshot.CollectionError, "no SSH key configured")
	assert.Nil(t, snapshot.CPUPercent)
	assert.Nil(t, snapshot.MemoryPercent)
	assert.Nil(t, snapshot.DiskPercent)
}

func TestCollectWithMissingKeyFile(t *testing.T) {
	collector := NewCollector()

	node := domain.Node{
		Name:    "gpu-1",
		Host:    "10.0.0.11",
		Port:    22,
		User:    "ubuntu",
		KeyPath: "/nonexistent/id_rsa",
		Service: "gonka",
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	snapshot := collector.Collect(ctx, node)

	require.True(t, snapshot.Unreachable())
	assert.Contains(t, snapshot.CollectionError, "read SSH key")

	parsed := common.NewCollectionFailedError(node.Name, "")
	assert.Contains(t, snapshot.CollectionError, parsed.Error(),
		"Snapshot error text is built from the typed collection failure")
}
