package services

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestMonitoringSummarize(t *testing.T) {
	ms := NewMonitoringService(100)
	now := time.Now()

	ms.LogRequest(RequestLogEntry{Timestamp: now, Path: "/api/v1/chat", Method: "POST", StatusCode: 200, ResponseTime: 30 * time.Millisecond})
	ms.LogRequest(RequestLogEntry{Timestamp: now, Path: "/api/v1/chat", Method: "POST", StatusCode: 200, ResponseTime: 10 * time.Millisecond})
	ms.LogRequest(RequestLogEntry{Timestamp: now, Path: "/api/v1/chat", Method: "POST", StatusCode: 400, ResponseTime: 5 * time.Millisecond})
	ms.LogRequest(RequestLogEntry{Timestamp: now, Path: "/health", Method: "GET", StatusCode: 500, ResponseTime: 2 * time.Millisecond})
	// 期間外のログは集計に含まれない
	ms.LogRequest(RequestLogEntry{Timestamp: now.Add(-2 * time.Hour), Path: "/health", Method: "GET", StatusCode: 200, ResponseTime: time.Millisecond})

	summary := ms.Summarize(time.Hour)

	assert.Equal(t, 4, summary.TotalRequests)
	assert.Equal(t, 3, summary.Endpoints["/api/v1/chat"])
	assert.Equal(t, 1, summary.Endpoints["/health"])
	assert.Equal(t, 2, summary.StatusClasses["2xx Success"])
	assert.Equal(t, 1, summary.StatusClasses["4xx Client Error"])
	assert.Equal(t, 1, summary.StatusClasses["5xx Server Error"])
	assert.Equal(t, int64(15), summary.AvgResponseTimes["/api/v1/chat"])
	assert.Len(t, summary.RecentErrors, 1)
	assert.Equal(t, "/health", summary.RecentErrors[0].Path)
}

func TestMonitoringLogCap(t *testing.T) {
	ms := NewMonitoringService(3)
	now := time.Now()
	for i := 0; i < 5; i++ {
		ms.LogRequest(RequestLogEntry{Timestamp: now, Path: "/api/v1/chat", StatusCode: 200})
	}

	summary := ms.Summarize(time.Hour)
	assert.Equal(t, 3, summary.TotalRequests)
}

func TestLoggingMiddlewareSkipsAdminPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ms := NewMonitoringService(100)

	r := gin.New()
	r.Use(ms.LoggingMiddleware())
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.POST("/api/v1/chat", ok)
	r.GET("/api/v1/monitoring/logs", ok)
	r.GET("/api/v1/admin/health-status", ok)

	for _, path := range []string{"/api/v1/monitoring/logs", "/api/v1/admin/health-status"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	summary := ms.Summarize(time.Hour)
	assert.Equal(t, 1, summary.TotalRequests)
	assert.Equal(t, 1, summary.Endpoints["/api/v1/chat"])
}
