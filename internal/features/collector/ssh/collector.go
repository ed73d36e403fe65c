// Package ssh collects node metrics over an SSH session, running the
// same probes an operator would run by hand.
package ssh

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/fabura/gonka-tools/internal/common"
	"github.com/fabura/gonka-tools/internal/features/monitor/domain"
)

// Remote probe commands. GPU and service probes are best-effort.
const (
	cpuProbe  = `top -bn1 | grep 'Cpu(s)' | awk '{print $2}' | cut -d'%' -f1`
	memProbe  = `free | grep Mem | awk '{print ($3/$2) * 100.0}'`
	diskProbe = `df / | tail -1 | awk '{print $5}' | cut -d'%' -f1`
	gpuProbe  = `nvidia-smi --query-gpu=temperature.gpu --format=csv,noheader,nounits 2>/dev/null`
)

// Collector collects metrics from remote nodes over SSH. One connection
// is opened per node per cycle and closed when the cycle's snapshot is
// complete. All work is bounded by the caller's context deadline.
type Collector struct{}

// NewCollector creates a new SSH collector
func NewCollector() *Collector {
	return &Collector{}
}

// Name identifies the collector in logs
func (c *Collector) Name() string {
	return "ssh"
}

// Collect gathers one snapshot for the node. Connection and probe
// failures are folded into the snapshot's CollectionError; a snapshot
// is always returned.
func (c *Collector) Collect(ctx context.Context, node domain.Node) domain.MetricSnapshot {
	logger := common.LoggerFromContext(ctx)

	snapshot := domain.MetricSnapshot{
		NodeName:  node.Name,
		Timestamp: time.Now(),
	}

	client, err := c.dial(ctx, node)
	if err != nil {
		snapshot.CollectionError = common.NewCollectionFailedError(node.Name, err.Error()).Error()
		return snapshot
	}
	defer client.Close()

	// Watch for cancellation while probes run; closing the client
	// unblocks any in-flight session.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			client.Close()
		case <-watchDone:
		}
	}()

	// System metrics: a failed probe leaves its field absent rather
	// than failing the snapshot.
	snapshot.CPUPercent = probePercent(logger, client, node.Name, "cpu", cpuProbe)
	snapshot.MemoryPercent = probePercent(logger, client, node.Name, "memory", memProbe)
	snapshot.DiskPercent = probePercent(logger, client, node.Name, "disk", diskProbe)

	// GPU temperatures: absence of a GPU yields an empty sequence
	if out, err := runProbe(client, gpuProbe); err == nil {
		temps, err := ParseGPUTemps(out)
		if err != nil {
			logger.Debug("GPU probe output rejected", "node", node.Name, "error", err)
		}
		snapshot.GPUTemps = temps
	}

	// Service state: systemctl exits non-zero for inactive units, so
	// the output matters, not the exit code
	out, _ := runProbe(client, fmt.Sprintf("systemctl is-active %s 2>/dev/null", node.Service))
	snapshot.ServiceRunning = ParseServiceState(out)

	if err := ctx.Err(); err != nil {
		return domain.MetricSnapshot{
			NodeName:  node.Name,
			Timestamp: snapshot.Timestamp,
			CollectionError: common.NewCollectionFailedError(
				node.Name, fmt.Sprintf("collection interrupted: %v", err)).Error(),
		}
	}

	return snapshot
}

// dial opens an SSH connection to the node within the context deadline
func (c *Collector) dial(ctx context.Context, node domain.Node) (*ssh.Client, error) {
	auth, err := authMethods(node)
	if err != nil {
		return nil, err
	}

	config := &ssh.ClientConfig{
		User: node.User,
		Auth: auth,
		// The fleet registry is operator-curated; host keys are not
		// pinned, matching the original deployment model
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}
	if deadline, ok := ctx.Deadline(); ok {
		config.Timeout = time.Until(deadline)
	}

	address := net.JoinHostPort(node.Host, fmt.Sprintf("%d", node.Port))

	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", address, err)
	}

	return ssh.NewClient(sshConn, chans, reqs), nil
}

// authMethods builds the authentication chain for a node
func authMethods(node domain.Node) ([]ssh.AuthMethod, error) {
	if node.KeyPath == "" {
		return nil, fmt.Errorf("node %s has no SSH key configured", node.Name)
	}

	keyBytes, err := os.ReadFile(node.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("read SSH key for node %s: %w", node.Name, err)
	}

	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("parse SSH key for node %s: %w", node.Name, err)
	}

	return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
}

// probePercent runs one percentage probe and validates its output.
// Failures are logged and leave the metric absent.
func probePercent(logger *slog.Logger, client *ssh.Client, node, metric, command string) *float64 {
	out, err := runProbe(client, command)
	if err != nil {
		logger.Debug("probe failed", "node", node, "metric", metric, "error", err)
		return nil
	}

	value, err := ParsePercent(out)
	if err != nil {
		logger.Debug("probe output rejected", "node", node, "metric", metric, "error", err)
		return nil
	}
	return &value
}

// runProbe executes one command in a fresh session and returns its
// combined output
func runProbe(client *ssh.Client, command string) (string, error) {
	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("open session: %w", err)
	}
	defer session.Close()

	out, err := session.CombinedOutput(command)
	if err != nil {
		return string(out), fmt.Errorf("run %q: %w", command, err)
	}
	return string(out), nil
}
