package slack

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type failingTransport struct {
	t *testing.T
}

func (f failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	f.t.Fatal("network I/O performed in test mode")
	return nil, errors.New("unreachable")
}

func sampleMessage() Message {
	return Message{
		Text: "Weekly Episode Progress Review",
		Sections: []Section{
			{Kind: SectionHeader, Text: "📊 Weekly Episode Progress Review"},
			{Kind: SectionSummary, Text: "*📈 今週の活動*"},
		},
	}
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		enabled bool
	}{
		{name: "empty", url: "", enabled: false},
		{name: "whitespace", url: "   ", enabled: false},
		{name: "placeholder", url: "your-slack-webhook-url", enabled: false},
		{name: "placeholder url", url: "https://hooks.slack.com/services/YOUR/WEBHOOK/URL", enabled: false},
		{name: "real", url: "https://hooks.slack.com/services/T000/B000/abc", enabled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.enabled, ParseTarget(tt.url).Enabled())
		})
	}
}

func TestSendTestModeNeverCallsNetwork(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewNotifier(Disabled, time.Second, zap.New(core)).
		WithHTTPClient(&http.Client{Transport: failingTransport{t: t}})

	for i := 0; i < 3; i++ {
		require.NoError(t, n.Send(context.Background(), sampleMessage()))
	}

	entries := logs.FilterMessageSnippet("test mode").All()
	require.Len(t, entries, 3)
	assert.Contains(t, entries[0].ContextMap()["payload"], "Weekly Episode Progress Review")
}

func TestSendPostsBlocks(t *testing.T) {
	var got Payload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	n := NewNotifier(Webhook(server.URL), time.Second, zap.NewNop())
	require.NoError(t, n.Send(context.Background(), sampleMessage()))

	require.Len(t, got.Blocks, 2)
	assert.Equal(t, "header", got.Blocks[0].Type)
	assert.Equal(t, "plain_text", got.Blocks[0].Text.Type)
	assert.Equal(t, "section", got.Blocks[1].Type)
	assert.Equal(t, "mrkdwn", got.Blocks[1].Text.Type)
	assert.Equal(t, "Weekly Episode Progress Review", got.Text)
}

func TestSendNon2xxIsDeliveryError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("service unavailable\n"))
	}))
	defer server.Close()

	n := NewNotifier(Webhook(server.URL), time.Second, zap.NewNop())
	err := n.Send(context.Background(), sampleMessage())
	require.Error(t, err)

	var deliveryErr *DeliveryError
	require.ErrorAs(t, err, &deliveryErr)
	assert.Equal(t, http.StatusServiceUnavailable, deliveryErr.StatusCode)
	assert.Equal(t, "service unavailable", deliveryErr.Body)
	assert.Contains(t, err.Error(), "503")
}

func TestSendTransportFailureIsDeliveryError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	n := NewNotifier(Webhook(url), time.Second, zap.NewNop())
	err := n.Send(context.Background(), sampleMessage())

	var deliveryErr *DeliveryError
	require.ErrorAs(t, err, &deliveryErr)
	assert.Zero(t, deliveryErr.StatusCode)
	assert.Error(t, deliveryErr.Err)
}
