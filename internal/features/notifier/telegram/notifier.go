// Package telegram delivers alerts and fleet reports through the
// Telegram Bot API.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/fabura/gonka-tools/internal/common"
	"github.com/fabura/gonka-tools/internal/features/monitor/domain"
	"github.com/fabura/gonka-tools/pkg/httpclient"
)

const defaultAPIBase = "https://api.telegram.org"

// Config holds the Telegram channel credentials
type Config struct {
	BotToken string
	ChatID   string

	// APIBase overrides the Bot API endpoint, used in tests
	APIBase string
}

// Notifier sends alerts to a Telegram chat. Delivery is fire and
// forget: a failed send is reported to the caller and never retried.
type Notifier struct {
	config Config
	client *httpclient.Client
}

// NewNotifier creates a Telegram notifier
func NewNotifier(config Config, client *httpclient.Client) *Notifier {
	if config.APIBase == "" {
		config.APIBase = defaultAPIBase
	}
	return &Notifier{
		config: config,
		client: client,
	}
}

// Name identifies the channel in logs and metrics
func (n *Notifier) Name() string {
	return "telegram"
}

// Verify checks that the bot token is valid by calling getMe. Transient
// API failures are retried with exponential backoff so a brief Telegram
// hiccup does not abort startup.
func (n *Notifier) Verify(ctx context.Context) error {
	operation := func() error {
		resp, err := n.client.Get(ctx, fmt.Sprintf("%s/bot%s/getMe", n.config.APIBase, n.config.BotToken))
		if err != nil {
			return err
		}

		body, err := n.client.ReadResponseBody(resp)
		if err != nil {
			return err
		}

		// 4xx means bad credentials, which no amount of retrying fixes
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(fmt.Errorf("getMe returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("getMe returned %d", resp.StatusCode)
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return fmt.Errorf("telegram credential check failed: %w", err)
	}
	return nil
}

// Notify delivers one alert as an HTML-formatted message
func (n *Notifier) Notify(ctx context.Context, alert domain.Alert) error {
	return n.sendMessage(ctx, formatAlert(alert))
}

// SendReport delivers a fleet summary as one message
func (n *Notifier) SendReport(ctx context.Context, report domain.FleetReport) error {
	return n.sendMessage(ctx, formatReport(report))
}

// sendMessage posts one message to the configured chat
func (n *Notifier) sendMessage(ctx context.Context, text string) error {
	payload, err := json.Marshal(map[string]string{
		"chat_id":    n.config.ChatID,
		"text":       text,
		"parse_mode": "HTML",
	})
	if err != nil {
		return common.NewDeliveryFailedError(n.Name(), fmt.Sprintf("encode message: %v", err))
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.config.APIBase, n.config.BotToken)
	resp, err := n.client.Post(ctx, url, payload, nil)
	if err != nil {
		return common.NewDeliveryFailedError(n.Name(), err.Error())
	}

	body, err := n.client.ReadResponseBody(resp)
	if err != nil {
		return common.NewDeliveryFailedError(n.Name(), fmt.Sprintf("read response: %v", err))
	}
	if resp.StatusCode != http.StatusOK {
		return common.NewDeliveryFailedError(n.Name(),
			fmt.Sprintf("sendMessage returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	return nil
}

// formatAlert renders one alert in the channel's HTML message format
func formatAlert(alert domain.Alert) string {
	icon := "⚠️"
	if alert.Severity == domain.SeverityCritical {
		icon = "🚨"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s</b>\n\n", icon, strings.ToUpper(string(alert.Severity)))
	fmt.Fprintf(&b, "<b>Node:</b> %s\n", html.EscapeString(alert.NodeName))
	fmt.Fprintf(&b, "<b>Issue:</b> %s\n", html.EscapeString(string(alert.Kind)))
	if alert.Detail != "" {
		fmt.Fprintf(&b, "<b>Details:</b> %s\n", html.EscapeString(alert.Detail))
	}
	fmt.Fprintf(&b, "<b>Time:</b> %s", alert.Timestamp.UTC().Format(time.RFC3339))
	return b.String()
}

// formatReport renders the fleet summary with one line per node
func formatReport(report domain.FleetReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 <b>Fleet Status</b> — %d/%d healthy\n\n",
		report.HealthyCount(), len(report.Nodes))

	for _, node := range report.Nodes {
		icon := "✅"
		detail := fmt.Sprintf("cpu %.0f%% mem %.0f%% disk %.0f%%",
			node.CPUPercent, node.MemoryPercent, node.DiskPercent)
		switch {
		case !node.Reachable:
			icon = "❌"
			detail = "unreachable"
		case !node.ServiceRunning:
			icon = "⚠️"
			detail = "service down, " + detail
		}
		fmt.Fprintf(&b, "%s <b>%s</b>: %s\n", icon, html.EscapeString(node.NodeName), detail)
	}

	fmt.Fprintf(&b, "\n<b>Generated:</b> %s", report.GeneratedAt.UTC().Format(time.RFC3339))
	return b.String()
}
