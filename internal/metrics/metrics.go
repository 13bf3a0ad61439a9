package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	JobsRun          int64
	Published        int64
	NoFreshNews      int64
	RewriteFailures  int64
	DeliveryFailures int64
	MissedFires      int64
	ReportsSent      int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) IncrementJobsRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.JobsRun++
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) IncrementPublished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published++
}

func (m *Metrics) IncrementNoFreshNews() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NoFreshNews++
}

func (m *Metrics) IncrementRewriteFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RewriteFailures++
}

func (m *Metrics) IncrementDeliveryFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeliveryFailures++
}

func (m *Metrics) IncrementMissedFires() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MissedFires++
}

func (m *Metrics) IncrementReportsSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReportsSent++
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"jobs_run":          m.JobsRun,
		"published":         m.Published,
		"no_fresh_news":     m.NoFreshNews,
		"rewrite_failures":  m.RewriteFailures,
		"delivery_failures": m.DeliveryFailures,
		"missed_fires":      m.MissedFires,
		"reports_sent":      m.ReportsSent,
		"last_run_time":     m.LastRunTime.Format(time.RFC3339),
		"last_error_time":   m.LastErrorTime.Format(time.RFC3339),
		"last_error":        m.LastError,
		"is_healthy":        m.IsHealthy,
	}
}
