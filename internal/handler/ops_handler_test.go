package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/station-compliance-api/internal/service"
)

type notificationFeedMock struct {
	items []service.Notification
}

func (m *notificationFeedMock) List() []service.Notification { return m.items }

func TestNotificationHandlerListWithLimit(t *testing.T) {
	feed := &notificationFeedMock{items: []service.Notification{
		{ID: "3", Title: "Document renewed"},
		{ID: "2", Title: "Document updated"},
		{ID: "1", Title: "Document created"},
	}}
	handler := NewNotificationHandler(feed)

	c, w := newTestContext(http.MethodGet, "/notifications?limit=2", nil)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data       []service.Notification `json:"data"`
		Pagination struct {
			TotalCount int `json:"total_count"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	assert.Equal(t, "3", body.Data[0].ID)
	assert.Equal(t, 3, body.Pagination.TotalCount)

	c, w = newTestContext(http.MethodGet, "/notifications?limit=zero", nil)
	handler.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsHandlerReady(t *testing.T) {
	handler := NewMetricsHandler(service.NewMetricsService(), map[string]ReadinessCheck{
		"database": func(context.Context) error { return nil },
		"cache":    func(context.Context) error { return errors.New("dial tcp: connection refused") },
	})

	c, w := newTestContext(http.MethodGet, "/ready", nil)
	handler.Ready(c)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "not_ready", body.Status)
	assert.Equal(t, "ok", body.Checks["database"])
	assert.Contains(t, body.Checks["cache"], "connection refused")
}

func TestMetricsHandlerSummaryAndPrometheus(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.SetOutboxDepth(2)
	handler := NewMetricsHandler(metrics, nil)

	c, w := newTestContext(http.MethodGet, "/metrics/summary", nil)
	handler.Summary(c)
	require.Equal(t, http.StatusOK, w.Code)
	var env struct {
		Data struct {
			OutboxDepth int64 `json:"outbox_depth"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, int64(2), env.Data.OutboxDepth)

	c, w = newTestContext(http.MethodGet, "/metrics", nil)
	handler.Prometheus(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "statutory_outbox_depth 2")

	c, w = newTestContext(http.MethodGet, "/ready", nil)
	handler.Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)
}
