package notify

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// WebhookNotifier POSTs alerts as JSON to a configured endpoint. Delivery is
// best effort; failures are logged and dropped.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger *logrus.Logger
}

func NewWebhookNotifier(url string, logger *logrus.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

type webhookPayload struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Severity string `json:"severity"`
	SentAt   string `json:"sent_at"`
}

func (n *WebhookNotifier) Send(title, body string, severity Severity) {
	payload, err := json.Marshal(webhookPayload{
		Title:    title,
		Body:     body,
		Severity: string(severity),
		SentAt:   time.Now().Format(time.RFC3339),
	})
	if err != nil {
		n.logger.WithError(err).Warn("encode webhook payload")
		return
	}

	resp, err := n.client.Post(n.url, "application/json", bytes.NewReader(payload))
	if err != nil {
		n.logger.WithError(err).WithField("notification", title).Warn("deliver webhook")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.logger.WithField("status", resp.StatusCode).WithField("notification", title).Warn("webhook rejected")
	}
}

var _ Notifier = (*WebhookNotifier)(nil)
