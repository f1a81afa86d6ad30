package monitoring

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Monitor struct {
	mu             sync.RWMutex
	logger         *zap.Logger
	lastRunSuccess bool
	lastRunTime    time.Time
	lastSummary    string
	lastError      string
	runs           int
	failures       int
	now            func() time.Time
}

func NewMonitor(logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{logger: logger, now: time.Now}
}

func (m *Monitor) RecordSuccess(summary string, duration time.Duration) {
	m.mu.Lock()
	m.lastRunSuccess = true
	m.lastRunTime = m.now()
	m.lastSummary = summary
	m.lastError = ""
	m.runs++
	m.mu.Unlock()

	m.logger.Info("✅ run completed successfully", zap.String("summary", summary), zap.Duration("duration", duration))
}

// RecordPartialFailure logs the problem without changing health status.
func (m *Monitor) RecordPartialFailure(err error, duration time.Duration) {
	m.logger.Warn("⚠️ partial failure", zap.Error(err), zap.Duration("duration", duration))
}

func (m *Monitor) RecordCriticalFailure(err error, duration time.Duration) {
	m.mu.Lock()
	m.lastRunSuccess = false
	m.lastRunTime = m.now()
	m.lastError = err.Error()
	m.runs++
	m.failures++
	m.mu.Unlock()

	m.logger.Error("🚨 critical failure", zap.Error(err), zap.Duration("duration", duration))
}

func (m *Monitor) IsHealthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.lastRunTime.IsZero() {
		return true // no runs yet
	}
	return m.lastRunSuccess
}

func (m *Monitor) GetStatusSummary() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.lastRunTime.IsZero() {
		return "No runs yet"
	}

	if m.lastRunSuccess {
		return fmt.Sprintf("✅ Last run: %s (%s) [%d runs, %d failed]",
			m.lastRunTime.Format("Jan 2 15:04"), m.lastSummary, m.runs, m.failures)
	}
	return fmt.Sprintf("❌ Last run failed: %s (%s) [%d runs, %d failed]",
		m.lastRunTime.Format("Jan 2 15:04"), m.lastError, m.runs, m.failures)
}
