package domain

import (
	"fmt"
	"time"
)

// Severity represents how serious a finding is
type Severity string

// Finding severities
const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// FindingKind identifies the class of problem a finding reports.
// GPU temperature kinds carry the device index so each GPU is
// deduplicated independently.
type FindingKind string

// Finding kinds
const (
	KindHighCPU     FindingKind = "high_cpu"
	KindHighMemory  FindingKind = "high_memory"
	KindHighDisk    FindingKind = "high_disk"
	KindServiceDown FindingKind = "service_down"
	KindUnreachable FindingKind = "unreachable"
)

// GPUTempKind returns the finding kind for a high temperature on one GPU device
func GPUTempKind(device int) FindingKind {
	return FindingKind(fmt.Sprintf("high_gpu_temp_%d", device))
}

// Thresholds holds the alerting limits for one node. Values are
// percentages except GPUTemp which is degrees Celsius.
type Thresholds struct {
	CPU     float64
	Memory  float64
	Disk    float64
	GPUTemp float64
}

// DefaultThresholds returns the documented default limits
func DefaultThresholds() Thresholds {
	return Thresholds{
		CPU:     90,
		Memory:  85,
		Disk:    90,
		GPUTemp: 85,
	}
}

// Node is one monitored member of the fleet. Nodes are built from
// configuration at startup and are immutable during a run.
type Node struct {
	// Name uniquely identifies the node within the registry
	Name string

	// Host is the address the collector connects to
	Host string

	// Port is the SSH port
	Port int

	// User is the SSH login user
	User string

	// KeyPath is the path to the SSH private key
	KeyPath string

	// Service is the systemd unit that must be active on the node
	Service string

	// Thresholds are the effective limits for this node
	// (global defaults overlaid with per-node overrides)
	Thresholds Thresholds
}

// MetricSnapshot is the result of one collection attempt for one node.
// Numeric fields are nil when the value could not be obtained. When
// CollectionError is non-empty all numeric fields are nil.
type MetricSnapshot struct {
	NodeName  string
	Timestamp time.Time

	CPUPercent     *float64
	MemoryPercent  *float64
	DiskPercent    *float64
	GPUTemps       []float64
	ServiceRunning bool

	// CollectionError holds the failure reason when the node could
	// not be collected at all
	CollectionError string
}

// Unreachable reports whether the snapshot represents a failed collection
func (s *MetricSnapshot) Unreachable() bool {
	return s.CollectionError != ""
}

// Finding is a candidate problem derived from one snapshot, before
// deduplication. Findings live within a single cycle.
type Finding struct {
	NodeName      string
	Severity      Severity
	Kind          FindingKind
	MeasuredValue float64
	Detail        string
}

// AlertIdentity is the deduplication key for a finding
type AlertIdentity struct {
	NodeName string
	Kind     FindingKind
}

// Identity returns the deduplication key of the finding
func (f Finding) Identity() AlertIdentity {
	return AlertIdentity{NodeName: f.NodeName, Kind: f.Kind}
}

// Alert is a finding that passed deduplication and is dispatched
// to a notification channel
type Alert struct {
	Finding
	Timestamp time.Time
}

// NodeStatus is the latest observed state of one node, kept for the
// status API and the fleet report
type NodeStatus struct {
	NodeName       string    `json:"nodeName"`
	Reachable      bool      `json:"reachable"`
	ServiceRunning bool      `json:"serviceRunning"`
	CPUPercent     float64   `json:"cpuPercent"`
	MemoryPercent  float64   `json:"memoryPercent"`
	DiskPercent    float64   `json:"diskPercent"`
	GPUCount       int       `json:"gpuCount"`
	MaxGPUTemp     float64   `json:"maxGpuTemp"`
	CollectedAt    time.Time `json:"collectedAt"`
	LastError      string    `json:"lastError,omitempty"`
}

// Healthy reports whether the node is reachable with its service running
func (s NodeStatus) Healthy() bool {
	return s.Reachable && s.ServiceRunning
}

// FleetReport is a point-in-time summary of the whole fleet
type FleetReport struct {
	GeneratedAt time.Time    `json:"generatedAt"`
	Nodes       []NodeStatus `json:"nodes"`
}

// HealthyCount returns how many nodes in the report are healthy
func (r FleetReport) HealthyCount() int {
	n := 0
	for _, node := range r.Nodes {
		if node.Healthy() {
			n++
		}
	}
	return n
}
