package services

import (
	"strings"
	"sync"
	"time"

	"cbm-estimator-api/pkg/models"

	"github.com/gin-gonic/gin"
)

// maxLogEntries caps the in-memory request log.
const maxLogEntries = 10000

// LogEntry is a single recorded request.
type LogEntry struct {
	Timestamp    time.Time     `json:"timestamp"`
	Path         string        `json:"path"`
	Method       string        `json:"method"`
	StatusCode   int           `json:"status_code"`
	ResponseTime time.Duration `json:"response_time"`
}

// MonitoringService keeps request logs and running estimation statistics in memory.
type MonitoringService struct {
	mu         sync.RWMutex
	logs       []LogEntry
	batches    int
	rows       int
	confidence map[models.Confidence]int
	now        func() time.Time
}

// NewMonitoringService creates an empty MonitoringService.
func NewMonitoringService() *MonitoringService {
	return &MonitoringService{
		logs:       make([]LogEntry, 0),
		confidence: make(map[models.Confidence]int),
		now:        time.Now,
	}
}

// LogRequest records a request, dropping the oldest entry once the log is full.
func (s *MonitoringService) LogRequest(entry LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.logs) >= maxLogEntries {
		s.logs = s.logs[1:]
	}
	s.logs = append(s.logs, entry)
}

// RecordBatch adds a finished batch's confidence histogram to the running totals.
func (s *MonitoringService) RecordBatch(summary models.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches++
	for c, n := range summary.ConfidenceLevels {
		s.confidence[c] += n
		s.rows += n
	}
}

// LoggingMiddleware records every request except admin and monitoring calls.
func (s *MonitoringService) LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := s.now()

		c.Next()

		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/v1/admin") || strings.HasPrefix(path, "/api/v1/monitoring") {
			return
		}

		s.LogRequest(LogEntry{
			Timestamp:    start,
			Path:         path,
			Method:       c.Request.Method,
			StatusCode:   c.Writer.Status(),
			ResponseTime: s.now().Sub(start),
		})
	}
}

// EstimationStats summarises every batch estimated since start.
type EstimationStats struct {
	Batches          int                       `json:"batches"`
	Rows             int                       `json:"rows"`
	ConfidenceLevels map[models.Confidence]int `json:"confidence_levels"`
}

// DashboardData is the aggregated monitoring view.
type DashboardData struct {
	Requests         int              `json:"requests"`
	Endpoints        map[string]int   `json:"endpoints"`
	StatusCodes      map[string]int   `json:"statusCodes"`
	AvgResponseTimes map[string]int64 `json:"avgResponseTimes"` // milliseconds per path
	RecentErrors     []LogEntry       `json:"recentErrors"`
	Estimation       EstimationStats  `json:"estimation"`
}

// GetDashboardData aggregates the requests of the last periodHours.
func (s *MonitoringService) GetDashboardData(periodHours int) DashboardData {
	s.mu.RLock()
	defer s.mu.RUnlock()

	since := s.now().Add(-time.Duration(periodHours) * time.Hour)

	data := DashboardData{
		Endpoints: make(map[string]int),
		StatusCodes: map[string]int{
			"2xx Success":      0,
			"4xx Client Error": 0,
			"5xx Server Error": 0,
		},
		AvgResponseTimes: make(map[string]int64),
		RecentErrors:     make([]LogEntry, 0),
		Estimation: EstimationStats{
			Batches:          s.batches,
			Rows:             s.rows,
			ConfidenceLevels: make(map[models.Confidence]int, len(s.confidence)),
		},
	}
	for c, n := range s.confidence {
		data.Estimation.ConfidenceLevels[c] = n
	}

	totals := make(map[string]time.Duration)
	for _, entry := range s.logs {
		if entry.Timestamp.Before(since) {
			continue
		}
		data.Requests++
		data.Endpoints[entry.Path]++
		totals[entry.Path] += entry.ResponseTime

		switch {
		case entry.StatusCode >= 200 && entry.StatusCode < 300:
			data.StatusCodes["2xx Success"]++
		case entry.StatusCode >= 400 && entry.StatusCode < 500:
			data.StatusCodes["4xx Client Error"]++
		case entry.StatusCode >= 500:
			data.StatusCodes["5xx Server Error"]++
		}
	}
	for path, total := range totals {
		data.AvgResponseTimes[path] = total.Milliseconds() / int64(data.Endpoints[path])
	}

	// newest first, at most 10
	for i := len(s.logs) - 1; i >= 0 && len(data.RecentErrors) < 10; i-- {
		if s.logs[i].StatusCode >= 500 && !s.logs[i].Timestamp.Before(since) {
			data.RecentErrors = append(data.RecentErrors, s.logs[i])
		}
	}

	return data
}
