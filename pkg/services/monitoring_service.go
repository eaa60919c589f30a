package services

import (
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogEntry は単一のリクエストログを表します。
type RequestLogEntry struct {
	Timestamp    time.Time     `json:"timestamp"`
	Path         string        `json:"path"`
	Method       string        `json:"method"`
	StatusCode   int           `json:"status_code"`
	ResponseTime time.Duration `json:"response_time"`
}

// MonitoringService はAPIのリクエストログを保持し集計します。
// メモリー上のリングで保持するため、プロセス再起動でログは消える。
type MonitoringService struct {
	logs    []RequestLogEntry
	maxLogs int
	mu      sync.RWMutex
}

// NewMonitoringService は新しいMonitoringServiceを生成します。
func NewMonitoringService(maxLogs int) *MonitoringService {
	if maxLogs <= 0 {
		maxLogs = 10000
	}
	return &MonitoringService{
		logs:    make([]RequestLogEntry, 0),
		maxLogs: maxLogs,
	}
}

// LogRequest はリクエストを記録します。上限を超えた古いログは捨てる。
func (s *MonitoringService) LogRequest(entry RequestLogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > s.maxLogs {
		s.logs = s.logs[len(s.logs)-s.maxLogs:]
	}
}

// LoggingMiddleware はリクエスト情報を記録するGinミドルウェアです。
// 管理・モニタリング系のパスは記録対象から除外する。
func (s *MonitoringService) LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/v1/admin") || strings.HasPrefix(path, "/api/v1/monitoring") {
			return
		}

		s.LogRequest(RequestLogEntry{
			Timestamp:    start,
			Path:         path,
			Method:       c.Request.Method,
			StatusCode:   c.Writer.Status(),
			ResponseTime: time.Since(start),
		})
	}
}

// RequestSummary は指定期間のリクエストログの集計結果です。
type RequestSummary struct {
	TotalRequests    int               `json:"total_requests"`
	Endpoints        map[string]int    `json:"endpoints"`
	StatusClasses    map[string]int    `json:"status_classes"`
	AvgResponseTimes map[string]int64  `json:"avg_response_times_ms"`
	RecentErrors     []RequestLogEntry `json:"recent_errors"`
}

// Summarize は指定された期間のログを集計して返します。
func (s *MonitoringService) Summarize(period time.Duration) RequestSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	since := time.Now().Add(-period)

	filtered := make([]RequestLogEntry, 0)
	for _, entry := range s.logs {
		if entry.Timestamp.After(since) {
			filtered = append(filtered, entry)
		}
	}

	endpoints := make(map[string]int)
	statusClasses := map[string]int{
		"2xx Success":      0,
		"4xx Client Error": 0,
		"5xx Server Error": 0,
	}
	responseTimeSum := make(map[string]time.Duration)
	for _, entry := range filtered {
		endpoints[entry.Path]++
		switch {
		case entry.StatusCode >= 200 && entry.StatusCode < 300:
			statusClasses["2xx Success"]++
		case entry.StatusCode >= 400 && entry.StatusCode < 500:
			statusClasses["4xx Client Error"]++
		case entry.StatusCode >= 500:
			statusClasses["5xx Server Error"]++
		}
		responseTimeSum[entry.Path] += entry.ResponseTime
	}

	avgResponseTimes := make(map[string]int64)
	for path, totalTime := range responseTimeSum {
		avgResponseTimes[path] = totalTime.Milliseconds() / int64(endpoints[path])
	}

	// 直近のサーバーエラーを新しい順に最大10件
	recentErrors := make([]RequestLogEntry, 0)
	for i := len(filtered) - 1; i >= 0; i-- {
		if filtered[i].StatusCode >= 500 {
			recentErrors = append(recentErrors, filtered[i])
			if len(recentErrors) >= 10 {
				break
			}
		}
	}

	return RequestSummary{
		TotalRequests:    len(filtered),
		Endpoints:        endpoints,
		StatusClasses:    statusClasses,
		AvgResponseTimes: avgResponseTimes,
		RecentErrors:     recentErrors,
	}
}
