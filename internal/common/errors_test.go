package common

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelWrappingConstructors(t *testing.T) {
	assert.True(t, IsInvalidInput(InvalidInputError("bad value %d", 7)))
	assert.True(t, IsTimeout(TimeoutError("after %s", "10s")))
	assert.True(t, IsUnavailable(UnavailableError("channel down")))

	err := InvalidInputError("bad value %d", 7)
	assert.Contains(t, err.Error(), "bad value 7")
}

func TestSentinelsSurviveFurtherWrapping(t *testing.T) {
	wrapped := fmt.Errorf("loading registry: %w", InvalidInputError("duplicate name"))

	assert.True(t, IsInvalidInput(wrapped), "Is helpers must see through extra wrapping")
	assert.False(t, IsTimeout(wrapped))
}

func TestNodeNotFoundError(t *testing.T) {
	err := NewNodeNotFoundError("ghost")

	require.Error(t, err)
	assert.True(t, IsNodeNotFoundError(err))
	assert.True(t, IsNotFound(err), "A missing node is a not-found condition")
	assert.Contains(t, err.Error(), "ghost")
}

func TestCollectionFailedError(t *testing.T) {
	err := NewCollectionFailedError("gpu-1", "dial tcp: connection refused")

	require.Error(t, err)
	assert.True(t, IsCollectionFailedError(err))
	assert.True(t, IsUnavailable(err), "An uncollectable node counts as unavailable")
	assert.Contains(t, err.Error(), "gpu-1")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestDeliveryFailedError(t *testing.T) {
	err := NewDeliveryFailedError("telegram", "api returned 502")

	assert.True(t, IsDeliveryFailedError(err))
	assert.False(t, IsUnavailable(err),
		"Delivery failures are their own class, not channel unavailability")
	assert.Contains(t, err.Error(), "telegram")
}
