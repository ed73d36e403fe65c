package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabura/gonka-tools/internal/common"
	"github.com/fabura/gonka-tools/internal/features/monitor/domain"
	"github.com/fabura/gonka-tools/pkg/httpclient"
)

func newTestNotifier(t *testing.T, apiBase string) *Notifier {
	t.Helper()

	client, err := httpclient.New(httpclient.Config{
		Timeout:     2 * time.Second,
		EnableHTTP2: false,
	})
	require.NoError(t, err)

	return NewNotifier(Config{
		BotToken: "test-token",
		ChatID:   "-1001",
		APIBase:  apiBase,
	}, client)
}

func testAlert() domain.Alert {
	return domain.Alert{
		Finding: domain.Finding{
			NodeName:      "gpu-1",
			Severity:      domain.SeverityWarning,
			Kind:          domain.KindHighCPU,
			MeasuredValue: 95,
			Detail:        "CPU usage is at 95.0% (threshold: 90%)",
		},
		Timestamp: time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC),
	}
}

func TestNotifySendsHTMLMessage(t *testing.T) {
	var captured map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottest-token/sendMessage", r.URL.Path)

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &captured))

		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	notifier := newTestNotifier(t, server.URL)

	err := notifier.Notify(context.Background(), testAlert())
	require.NoError(t, err)

	assert.Equal(t, "-1001", captured["chat_id"])
	assert.Equal(t, "HTML", captured["parse_mode"])
	assert.Contains(t, captured["text"], "gpu-1")
	assert.Contains(t, captured["text"], "high_cpu")
	assert.Contains(t, captured["text"], "WARNING")
}

func TestNotifyReportsAPIFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer server.Close()

	notifier := newTestNotifier(t, server.URL)

	err := notifier.Notify(context.Background(), testAlert())
	require.Error(t, err)
	assert.True(t, common.IsDeliveryFailedError(err), "API errors surface as delivery failures")
	assert.Contains(t, err.Error(), "chat not found")
}

func TestNotifyReportsConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse all connections

	notifier := newTestNotifier(t, server.URL)

	err := notifier.Notify(context.Background(), testAlert())
	require.Error(t, err)
	assert.True(t, common.IsDeliveryFailedError(err))
}

func TestVerifyAcceptsValidCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottest-token/getMe", r.URL.Path)
		w.Write([]byte(`{"ok":true,"result":{"username":"monitor_bot"}}`))
	}))
	defer server.Close()

	notifier := newTestNotifier(t, server.URL)

	assert.NoError(t, notifier.Verify(context.Background()))
}

func TestVerifyRejectsBadTokenWithoutRetrying(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"ok":false,"description":"Unauthorized"}`))
	}))
	defer server.Close()

	notifier := newTestNotifier(t, server.URL)

	err := notifier.Verify(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, calls, "Credential rejection is permanent and must not be retried")
}

func TestSendReportFormatsFleetSummary(t *testing.T) {
	var captured map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &captured)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	notifier := newTestNotifier(t, server.URL)

	report := domain.FleetReport{
		GeneratedAt: time.Now(),
		Nodes: []domain.NodeStatus{
			{NodeName: "worker-1", Reachable: true, ServiceRunning: true, CPUPercent: 20},
			{NodeName: "worker-2", Reachable: false},
		},
	}

	require.NoError(t, notifier.SendReport(context.Background(), report))

	assert.Contains(t, captured["text"], "1/2 healthy")
	assert.Contains(t, captured["text"], "worker-1")
	assert.Contains(t, captured["text"], "unreachable")
}

func TestFormatAlertEscapesHTML(t *testing.T) {
	alert := testAlert()
	alert.Detail = `disk <mount "/data"> full`

	text := formatAlert(alert)

	assert.NotContains(t, text, `<mount`, "Detail must be HTML-escaped")
	assert.True(t, strings.Contains(text, "&lt;mount"))
}
