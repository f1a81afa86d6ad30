package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const userAgent = "progress-dashboard/weekly-review"

// placeholderWebhooks are values shipped in sample env files. They mean
// "not configured".
var placeholderWebhooks = map[string]bool{
	"your-slack-webhook-url":                                        true,
	"your_slack_webhook_url":                                        true,
	"https://hooks.slack.com/services/YOUR/WEBHOOK/URL":             true,
	"https://hooks.slack.com/services/YOUR_WEBHOOK_URL":             true,
	"https://hooks.slack.com/services/XXXXXXXXX/XXXXXXXXX/XXXXXXXX": true,
}

// Target is where messages go: nowhere (test mode) or a webhook URL. It is
// resolved once when the notifier is built.
type Target struct {
	webhookURL string
}

// Disabled is the test-mode target.
var Disabled = Target{}

// ParseTarget maps a configured webhook URL onto a Target.
func ParseTarget(webhookURL string) Target {
	webhookURL = strings.TrimSpace(webhookURL)
	if webhookURL == "" || placeholderWebhooks[webhookURL] {
		return Disabled
	}
	return Target{webhookURL: webhookURL}
}

func Webhook(url string) Target {
	return Target{webhookURL: url}
}

func (t Target) Enabled() bool {
	return t.webhookURL != ""
}

func (t Target) URL() string {
	return t.webhookURL
}

// DeliveryError is returned when the webhook call fails or answers non-2xx.
type DeliveryError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("slack webhook request failed: %v", e.Err)
	}
	return fmt.Sprintf("slack webhook returned status %d: %s", e.StatusCode, e.Body)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Notifier posts messages to the configured target.
type Notifier struct {
	target Target
	client *http.Client
	logger *zap.Logger
}

func NewNotifier(target Target, timeout time.Duration, logger *zap.Logger) *Notifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		target: target,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// WithHTTPClient replaces the HTTP client used for webhook calls.
func (n *Notifier) WithHTTPClient(client *http.Client) *Notifier {
	n.client = client
	return n
}

func (n *Notifier) Target() Target {
	return n.target
}

// Send delivers the message. With a disabled target the payload is only
// logged and no network call is made.
func (n *Notifier) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg.Payload())
	if err != nil {
		return fmt.Errorf("failed to encode slack payload: %w", err)
	}

	if !n.target.Enabled() {
		n.logger.Info("slack webhook not configured, logging payload instead (test mode)",
			zap.ByteString("payload", body))
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.target.webhookURL, bytes.NewReader(body))
	if err != nil {
		return &DeliveryError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := n.client.Do(req)
	if err != nil {
		return &DeliveryError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &DeliveryError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	n.logger.Info("slack message delivered", zap.Int("status", resp.StatusCode), zap.Int("blocks", len(msg.Sections)))
	return nil
}
