package notify

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"wg-access-bot/internal/constants"
)

// Event is the JSON payload posted to the ops webhook
type Event struct {
	Kind      string    `json:"kind"`
	Operation string    `json:"operation,omitempty"`
	PeerID    string    `json:"peerId,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier posts operational events to a configured webhook. A notifier
// with an empty URL is valid and drops every event.
type Notifier struct {
	client *resty.Client
	url    string
	logger *logrus.Logger
}

// NewNotifier creates a webhook notifier; url may be empty to disable it
func NewNotifier(url string, logger *logrus.Logger) *Notifier {
	client := resty.New().
		SetTimeout(constants.WebhookTimeout).
		SetRetryCount(constants.WebhookRetryCount).
		SetRetryWaitTime(constants.WebhookRetryWaitTime)

	return &Notifier{
		client: client,
		url:    url,
		logger: logger,
	}
}

// Enabled reports whether a webhook URL is configured
func (n *Notifier) Enabled() bool {
	return n.url != ""
}

// ProvisionFailure reports a failed peer tool invocation. Delivery is
// best-effort; failures are logged and never block the caller's reply.
func (n *Notifier) ProvisionFailure(ctx context.Context, operation, peerID, detail string) {
	n.post(ctx, Event{
		Kind:      "provision_failure",
		Operation: operation,
		PeerID:    peerID,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	})
}

// SweepFailure reports a failed enforcement sweep
func (n *Notifier) SweepFailure(ctx context.Context, detail string) {
	n.post(ctx, Event{
		Kind:      "sweep_failure",
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	})
}

func (n *Notifier) post(ctx context.Context, event Event) {
	if !n.Enabled() {
		return
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(event).
		Post(n.url)
	if err != nil {
		n.logger.Errorf("Webhook delivery failed: %v", err)
		return
	}

	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusNoContent {
		n.logger.Errorf("Webhook returned status %d: %s", resp.StatusCode(), resp.Body())
	}
}
