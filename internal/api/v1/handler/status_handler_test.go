package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabura/gonka-tools/internal/common"
	"github.com/fabura/gonka-tools/internal/features/monitor/domain"
)

// fakeProvider implements domain.Provider for handler tests
type fakeProvider struct {
	report    domain.FleetReport
	reportErr error
}

func (f *fakeProvider) Start(ctx context.Context) error { return nil }
func (f *fakeProvider) Stop()                           {}

func (f *fakeProvider) FleetStatus() domain.FleetReport {
	return f.report
}

func (f *fakeProvider) NodeStatus(nodeName string) (domain.NodeStatus, error) {
	for _, node := range f.report.Nodes {
		if node.NodeName == nodeName {
			return node, nil
		}
	}
	return domain.NodeStatus{}, common.NewNodeNotFoundError(nodeName)
}

func (f *fakeProvider) SendFleetReport(ctx context.Context) error {
	return f.reportErr
}

func newTestRouter(provider *fakeProvider) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	NewStatusHandler(provider, logger).SetupRoutes(router)
	return router
}

func testProvider() *fakeProvider {
	return &fakeProvider{
		report: domain.FleetReport{
			GeneratedAt: time.Now(),
			Nodes: []domain.NodeStatus{
				{NodeName: "worker-1", Reachable: true, ServiceRunning: true, CPUPercent: 21.5},
				{NodeName: "worker-2", Reachable: false, LastError: "connection refused"},
			},
		},
	}
}

func TestGetFleetStatus(t *testing.T) {
	router := newTestRouter(testProvider())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var report domain.FleetReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	require.Len(t, report.Nodes, 2)
	assert.Equal(t, "worker-1", report.Nodes[0].NodeName)
	assert.False(t, report.Nodes[1].Reachable)
}

func TestGetNodeStatus(t *testing.T) {
	router := newTestRouter(testProvider())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status/nodes/worker-1", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var status domain.NodeStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "worker-1", status.NodeName)
	assert.Equal(t, 21.5, status.CPUPercent)
}

func TestGetNodeStatusUnknownNode(t *testing.T) {
	router := newTestRouter(testProvider())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status/nodes/ghost", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "ghost")
}

func TestSendFleetReport(t *testing.T) {
	router := newTestRouter(testProvider())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/report", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSendFleetReportUnsupportedChannel(t *testing.T) {
	provider := testProvider()
	provider.reportErr = common.UnavailableError("channel noop does not support fleet reports")

	router := newTestRouter(provider)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/report", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSendFleetReportDeliveryFailure(t *testing.T) {
	provider := testProvider()
	provider.reportErr = common.NewDeliveryFailedError("telegram", "api returned 502")

	router := newTestRouter(provider)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/report", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}
