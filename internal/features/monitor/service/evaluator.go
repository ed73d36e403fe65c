package service

import (
	"fmt"

	"github.com/fabura/gonka-tools/internal/features/monitor/domain"
)

// Evaluate turns one snapshot into zero or more findings. It is a pure
// function of its inputs: thresholds are compared inclusively (>=) and
// the emission order is fixed — unreachable or service_down first, then
// cpu, memory, disk, then GPU devices in index order.
//
// A snapshot carrying a collection error yields exactly one critical
// unreachable finding and nothing else; its numeric fields are absent
// by contract.
func Evaluate(snapshot domain.MetricSnapshot, thresholds domain.Thresholds) []domain.Finding {
	if snapshot.Unreachable() {
		return []domain.Finding{{
			NodeName: snapshot.NodeName,
			Severity: domain.SeverityCritical,
			Kind:     domain.KindUnreachable,
			Detail:   fmt.Sprintf("cannot collect metrics: %s", snapshot.CollectionError),
		}}
	}

	var findings []domain.Finding

	if !snapshot.ServiceRunning {
		findings = append(findings, domain.Finding{
			NodeName: snapshot.NodeName,
			Severity: domain.SeverityCritical,
			Kind:     domain.KindServiceDown,
			Detail:   "primary service is not running",
		})
	}

	if snapshot.CPUPercent != nil && *snapshot.CPUPercent >= thresholds.CPU {
		findings = append(findings, domain.Finding{
			NodeName:      snapshot.NodeName,
			Severity:      domain.SeverityWarning,
			Kind:          domain.KindHighCPU,
			MeasuredValue: *snapshot.CPUPercent,
			Detail:        fmt.Sprintf("CPU usage is at %.1f%% (threshold: %.0f%%)", *snapshot.CPUPercent, thresholds.CPU),
		})
	}

	if snapshot.MemoryPercent != nil && *snapshot.MemoryPercent >= thresholds.Memory {
		findings = append(findings, domain.Finding{
			NodeName:      snapshot.NodeName,
			Severity:      domain.SeverityWarning,
			Kind:          domain.KindHighMemory,
			MeasuredValue: *snapshot.MemoryPercent,
			Detail:        fmt.Sprintf("memory usage is at %.1f%% (threshold: %.0f%%)", *snapshot.MemoryPercent, thresholds.Memory),
		})
	}

	if snapshot.DiskPercent != nil && *snapshot.DiskPercent >= thresholds.Disk {
		findings = append(findings, domain.Finding{
			NodeName:      snapshot.NodeName,
			Severity:      domain.SeverityWarning,
			Kind:          domain.KindHighDisk,
			MeasuredValue: *snapshot.DiskPercent,
			Detail:        fmt.Sprintf("disk usage is at %.1f%% (threshold: %.0f%%)", *snapshot.DiskPercent, thresholds.Disk),
		})
	}

	for i, temp := range snapshot.GPUTemps {
		if temp >= thresholds.GPUTemp {
			findings = append(findings, domain.Finding{
				NodeName:      snapshot.NodeName,
				Severity:      domain.SeverityWarning,
				Kind:          domain.GPUTempKind(i),
				MeasuredValue: temp,
				Detail:        fmt.Sprintf("GPU %d temperature is %.0f°C (threshold: %.0f°C)", i, temp, thresholds.GPUTemp),
			})
		}
	}

	return findings
}
