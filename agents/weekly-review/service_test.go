package weeklyreview

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"progress-dashboard/internal/models"
	"progress-dashboard/shared/slack"
)

type recordingSender struct {
	target slack.Target
	err    error
	sent   []slack.Message
}

func (s *recordingSender) Send(ctx context.Context, msg slack.Message) error {
	s.sent = append(s.sent, msg)
	return s.err
}

func (s *recordingSender) Target() slack.Target { return s.target }

type fakeCommenter struct {
	text string
	err  error
}

func (c fakeCommenter) Comment(ctx context.Context, review *models.WeeklyReview) (string, error) {
	return c.text, c.err
}

type panickingGenerator struct{}

func (panickingGenerator) Generate(ctx context.Context) (*models.WeeklyReview, error) {
	panic("nil map write")
}

type failingGenerator struct{}

func (failingGenerator) Generate(ctx context.Context) (*models.WeeklyReview, error) {
	return nil, errors.New("context deadline exceeded")
}

func TestSendWeeklyReviewEmptyDataTestMode(t *testing.T) {
	agg := newTestAggregator(&fakeEpisodes{}, &fakeTasks{})
	notifier := slack.NewNotifier(slack.Disabled, time.Second, zaptest.NewLogger(t))

	result := NewService(agg, notifier, nil, zaptest.NewLogger(t)).SendWeeklyReview(context.Background())

	require.True(t, result.Success, result.Message)
	assert.Contains(t, result.Message, "test mode")
	require.NotNil(t, result.Stats)
	assert.Equal(t, models.ReviewStats{}, *result.Stats)
}

func TestSendWeeklyReviewWebhook503(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	agg := newTestAggregator(&fakeEpisodes{}, &fakeTasks{})
	notifier := slack.NewNotifier(slack.Webhook(server.URL), time.Second, zaptest.NewLogger(t))

	result := NewService(agg, notifier, nil, zaptest.NewLogger(t)).SendWeeklyReview(context.Background())

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "503")
	assert.Nil(t, result.Stats)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSendWeeklyReviewDelivers(t *testing.T) {
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	episodes := &fakeEpisodes{episodes: []models.Episode{
		{EpisodeID: "PL-010", Title: "北海道ロケ", Status: "編集中", DueDate: day(-2)},
		{EpisodeID: "LIB-002", Title: "対談", Status: "完パケ納品", UpdatedAt: fixedNow.Add(-time.Hour)},
	}}
	agg := newTestAggregator(episodes, &fakeTasks{})
	notifier := slack.NewNotifier(slack.Webhook(server.URL), time.Second, zaptest.NewLogger(t))
	svc := NewService(agg, notifier, fakeCommenter{text: "納品が1件ありました。"}, zaptest.NewLogger(t))

	result := svc.SendWeeklyReview(context.Background())

	require.True(t, result.Success, result.Message)
	assert.Equal(t, "Weekly review sent to Slack", result.Message)
	assert.Equal(t, models.ReviewStats{TotalEpisodes: 2, OverdueCount: 1, CompletedEpisodes: 1}, *result.Stats)
	assert.Contains(t, string(body), "PL-010")
	assert.Contains(t, string(body), "納品が1件ありました。")
	assert.True(t, svc.Delivered())
}

func TestSendWeeklyReviewCommentaryFailureIsIgnored(t *testing.T) {
	sender := &recordingSender{target: slack.Disabled}
	agg := newTestAggregator(&fakeEpisodes{}, &fakeTasks{})
	svc := NewService(agg, sender, fakeCommenter{err: errors.New("quota exceeded")}, zaptest.NewLogger(t))

	result := svc.SendWeeklyReview(context.Background())

	require.True(t, result.Success)
	require.Len(t, sender.sent, 1)
	assert.NotContains(t, sectionKinds(sender.sent[0]), slack.SectionCommentary)
}

func TestSendWeeklyReviewRecoversPanic(t *testing.T) {
	sender := &recordingSender{target: slack.Disabled}
	result := NewService(panickingGenerator{}, sender, nil, zaptest.NewLogger(t)).SendWeeklyReview(context.Background())

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "unexpected error")
	assert.Contains(t, result.Message, "nil map write")
	assert.Empty(t, sender.sent)
}

func TestSendWeeklyReviewGenerateError(t *testing.T) {
	sender := &recordingSender{target: slack.Disabled}
	result := NewService(failingGenerator{}, sender, nil, nil).SendWeeklyReview(context.Background())

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "failed to generate weekly review")
	assert.Empty(t, sender.sent)
}

func TestSendWeeklyReviewDeliveryError(t *testing.T) {
	sender := &recordingSender{
		target: slack.Webhook("https://hooks.example.com/x"),
		err:    &slack.DeliveryError{Err: errors.New("dial tcp: connection refused")},
	}
	agg := newTestAggregator(&fakeEpisodes{}, &fakeTasks{})

	result := NewService(agg, sender, nil, zaptest.NewLogger(t)).SendWeeklyReview(context.Background())

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "connection refused")
}

func TestPreviewDoesNotSend(t *testing.T) {
	sender := &recordingSender{target: slack.Webhook("https://hooks.example.com/x")}
	agg := newTestAggregator(&fakeEpisodes{episodes: []models.Episode{{EpisodeID: "a", Status: "編集中"}}})

	review, msg, err := NewService(agg, sender, nil, nil).Preview(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, review.Progress.TotalEpisodes)
	assert.NotEmpty(t, msg.Sections)
	assert.Empty(t, sender.sent)
}
