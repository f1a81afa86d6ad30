package weeklyreview

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"progress-dashboard/shared/config"
	"progress-dashboard/shared/scheduler"
	"progress-dashboard/shared/slack"
	"progress-dashboard/shared/storage"
)

func testConfig(t *testing.T, webhook string) *config.Config {
	t.Helper()
	for _, key := range []string{"DATABASE_URL", "SLACK_WEBHOOK_URL", "GEMINI_API_KEY", "GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET"} {
		t.Setenv(key, "")
	}

	dir := t.TempDir()
	yaml := fmt.Sprintf(`
database:
  driver: sqlite
  dsn: %s
slack:
  webhook_url: %q
  timeout_seconds: 2
review:
  timezone: Asia/Tokyo
data_dir: %s
`, filepath.Join(dir, "dashboard.db"), webhook, filepath.Join(dir, "data"))

	cfg, err := config.Parse([]byte(yaml))
	require.NoError(t, err)
	return cfg
}

type recordedEvents struct {
	successes []scheduler.Metrics
	partial   []error
	critical  []error
}

func (r *recordedEvents) events(runID string) *scheduler.AgentEvents {
	return &scheduler.AgentEvents{
		RunID:             runID,
		OnSuccess:         func(m scheduler.Metrics, d time.Duration) { r.successes = append(r.successes, m) },
		OnPartialFailure:  func(err error, d time.Duration) { r.partial = append(r.partial, err) },
		OnCriticalFailure: func(err error, d time.Duration) { r.critical = append(r.critical, err) },
	}
}

func newTestAgent(t *testing.T, cfg *config.Config, sender Sender) *WeeklyReviewAgent {
	t.Helper()
	ledger, err := storage.NewDeliveryLedger(cfg.DataDir, ledgerRetention)
	require.NoError(t, err)

	agent := NewWeeklyReviewAgent(cfg, zaptest.NewLogger(t))
	agent.now = func() time.Time { return fixedNow }
	agent.ledger = ledger
	agent.service = NewService(newTestAggregator(&fakeEpisodes{}, &fakeTasks{}), sender, nil, zaptest.NewLogger(t))
	require.NoError(t, agent.Initialize(context.Background()))
	return agent
}

func TestAgentSkipsWeekAlreadyDelivered(t *testing.T) {
	cfg := testConfig(t, "")
	sender := &recordingSender{target: slack.Webhook("https://hooks.example.com/team")}
	agent := newTestAgent(t, cfg, sender)
	rec := &recordedEvents{}

	require.NoError(t, agent.RunOnce(context.Background(), rec.events("run-1")))
	require.NoError(t, agent.RunOnce(context.Background(), rec.events("run-2")))

	assert.Len(t, sender.sent, 1)
	require.Len(t, rec.successes, 2)

	first := rec.successes[0].(ReviewMetrics)
	assert.Equal(t, "run-1", first.RunID)
	assert.Equal(t, "2026-10-19", first.WeekStart)
	assert.True(t, first.Delivered)
	assert.Contains(t, first.GetSummary(), "sent")

	second := rec.successes[1].(ReviewMetrics)
	assert.True(t, second.Skipped)
	assert.Contains(t, second.GetSummary(), "already delivered")

	// a restarted agent reads the same ledger
	restarted := newTestAgent(t, cfg, sender)
	require.NoError(t, restarted.RunOnce(context.Background(), nil))
	assert.Len(t, sender.sent, 1)
}

func TestAgentTestModeDoesNotMarkLedger(t *testing.T) {
	cfg := testConfig(t, "")
	sender := &recordingSender{target: slack.Disabled}
	agent := newTestAgent(t, cfg, sender)
	rec := &recordedEvents{}

	require.NoError(t, agent.RunOnce(context.Background(), rec.events("a")))
	require.NoError(t, agent.RunOnce(context.Background(), rec.events("b")))

	assert.Len(t, sender.sent, 2)
	assert.Equal(t, 0, agent.ledger.Count())
	assert.Contains(t, rec.successes[0].GetSummary(), "test mode")
}

func TestAgentReportsCriticalFailure(t *testing.T) {
	cfg := testConfig(t, "")
	sender := &recordingSender{
		target: slack.Webhook("https://hooks.example.com/team"),
		err:    &slack.DeliveryError{StatusCode: http.StatusServiceUnavailable, Body: "unavailable"},
	}
	agent := newTestAgent(t, cfg, sender)
	rec := &recordedEvents{}

	err := agent.RunOnce(context.Background(), rec.events("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	require.Len(t, rec.critical, 1)
	assert.Empty(t, rec.successes)
	assert.False(t, agent.ledger.IsDelivered(time.Date(2026, 10, 19, 0, 0, 0, 0, tokyo)))
}

func TestAgentInitializeFromConfig(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	agent := NewWeeklyReviewAgent(cfg, zaptest.NewLogger(t))
	agent.now = func() time.Time { return fixedNow }
	require.NoError(t, agent.Initialize(context.Background()))
	defer agent.Close()

	// the database has no tables yet, so both reads degrade to empty
	result := agent.Service().SendWeeklyReview(context.Background())
	require.True(t, result.Success, result.Message)
	assert.Equal(t, 0, result.Stats.TotalEpisodes)
	assert.Equal(t, int32(1), hits.Load())

	require.NoError(t, agent.RunOnce(context.Background(), nil))
	assert.Equal(t, int32(2), hits.Load())
	require.NoError(t, agent.RunOnce(context.Background(), nil))
	assert.Equal(t, int32(2), hits.Load())
}

func TestAgentInitializeFailsOnBadDatabase(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Database.DSN = filepath.Join(t.TempDir(), "missing", "dir", "db.sqlite")

	agent := NewWeeklyReviewAgent(cfg, nil)
	err := agent.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open database")
}
