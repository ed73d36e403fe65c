package ssh

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsePercent parses a single percentage reading from probe output.
// Out-of-range values are rejected at this boundary so malformed remote
// output never reaches the evaluator.
func ParsePercent(output string) (float64, error) {
	trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(output), "%"))
	if trimmed == "" {
		return 0, fmt.Errorf("empty probe output")
	}

	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed percentage %q: %w", trimmed, err)
	}
	if value < 0 || value > 100 {
		return 0, fmt.Errorf("percentage %.1f out of range", value)
	}

	return value, nil
}

// ParseGPUTemps parses nvidia-smi temperature output, one reading per
// line in device-index order. A malformed line invalidates the whole
// probe rather than silently shifting device indexes.
func ParseGPUTemps(output string) ([]float64, error) {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return nil, nil
	}

	lines := strings.Split(trimmed, "\n")
	temps := make([]float64, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		temp, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed GPU temperature %q: %w", line, err)
		}
		temps = append(temps, temp)
	}

	return temps, nil
}

// ParseServiceState interprets systemctl is-active output
func ParseServiceState(output string) bool {
	return strings.TrimSpace(output) == "active"
}
