package common

import (
	"errors"
	"fmt"
)

// Common error types
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input parameter")

	// ErrTimeout indicates an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrUnavailable indicates a service is unavailable
	ErrUnavailable = errors.New("service unavailable")
)

// IsNotFound checks if err is or wraps ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidInput checks if err is or wraps ErrInvalidInput
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsTimeout checks if err is or wraps ErrTimeout
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsUnavailable checks if err is or wraps ErrUnavailable
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// InvalidInputError returns a wrapped invalid input error with context
func InvalidInputError(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidInput)
}

// TimeoutError returns a wrapped timeout error with context
func TimeoutError(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrTimeout)
}

// UnavailableError returns a wrapped unavailable error with context
func UnavailableError(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrUnavailable)
}

// ErrNodeNotFound represents a missing node error
type ErrNodeNotFound struct {
	NodeName string
}

func (e ErrNodeNotFound) Error() string {
	return fmt.Sprintf("node not found: %s", e.NodeName)
}

func (e ErrNodeNotFound) Unwrap() error {
	return ErrNotFound
}

// NewNodeNotFoundError creates a new node not found error
func NewNodeNotFoundError(nodeName string) error {
	return ErrNodeNotFound{NodeName: nodeName}
}

// ErrCollectionFailed represents a failed metric collection for a node
type ErrCollectionFailed struct {
	NodeName string
	Reason   string
}

func (e ErrCollectionFailed) Error() string {
	return fmt.Sprintf("collection failed for node %s: %s", e.NodeName, e.Reason)
}

// An uncollectable node is an unavailable one
func (e ErrCollectionFailed) Unwrap() error {
	return ErrUnavailable
}

// NewCollectionFailedError creates a new collection failure error
func NewCollectionFailedError(nodeName, reason string) error {
	return ErrCollectionFailed{
		NodeName: nodeName,
		Reason:   reason,
	}
}

// ErrDeliveryFailed represents a failed notification delivery
type ErrDeliveryFailed struct {
	Channel string
	Reason  string
}

func (e ErrDeliveryFailed) Error() string {
	return fmt.Sprintf("delivery failed on channel %s: %s", e.Channel, e.Reason)
}

// NewDeliveryFailedError creates a new delivery failure error
func NewDeliveryFailedError(channel, reason string) error {
	return ErrDeliveryFailed{
		Channel: channel,
		Reason:  reason,
	}
}

// IsNodeNotFoundError Error type checking helpers
func IsNodeNotFoundError(err error) bool {
	var errNodeNotFound ErrNodeNotFound
	ok := errors.As(err, &errNodeNotFound)
	return ok
}

func IsCollectionFailedError(err error) bool {
	var errCollectionFailed ErrCollectionFailed
	ok := errors.As(err, &errCollectionFailed)
	return ok
}

func IsDeliveryFailedError(err error) bool {
	var errDeliveryFailed ErrDeliveryFailed
	ok := errors.As(err, &errDeliveryFailed)
	return ok
}
