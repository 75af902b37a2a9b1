package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/astroserve/astroserve/internal/config"
	"github.com/astroserve/astroserve/internal/store"
)

// Sink receives a subject's notification after it has been durably recorded.
// Implementations must not block for long and must never panic into the
// caller.
type Sink interface {
	Deliver(subject string, n store.Notification)
}

// Webhook delivers notifications to the configured HTTP targets. Targets can
// be swapped at runtime when the config file is reloaded.
type Webhook struct {
	mu      sync.RWMutex
	targets []config.WebhookConfig
	client  *http.Client
}

// NewWebhook creates a Webhook sink for the given targets. An empty target
// list is valid; Deliver becomes a no-op.
func NewWebhook(targets []config.WebhookConfig) *Webhook {
	return &Webhook{
		targets: targets,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// SetTargets replaces the delivery targets. Called on config reload.
func (w *Webhook) SetTargets(targets []config.WebhookConfig) {
	w.mu.Lock()
	w.targets = targets
	w.mu.Unlock()
}

// Deliver posts the notification to every target. Errors are logged but do
// not affect the caller.
func (w *Webhook) Deliver(subject string, n store.Notification) {
	w.mu.RLock()
	targets := w.targets
	w.mu.RUnlock()

	for _, wh := range targets {
		url := wh.URL()
		if url == "" {
			continue
		}

		var err error
		switch wh.Type {
		case "slack":
			err = w.sendSlack(url, n)
		case "http":
			err = w.sendHTTP(url, subject, n)
		default:
			slog.Warn("notify: unknown webhook type, skipping", "type", wh.Type)
			continue
		}

		if err != nil {
			slog.Error("notify: webhook delivery failed",
				"type", wh.Type,
				"kind", n.Kind,
				"err", err,
			)
		} else {
			slog.Debug("notify: webhook delivered",
				"type", wh.Type,
				"kind", n.Kind,
			)
		}
	}
}

func (w *Webhook) sendSlack(url string, n store.Notification) error {
	body, _ := json.Marshal(map[string]string{
		"text": fmt.Sprintf("*%s* %s: %s", kindLabel(n.Kind), n.Title, n.Message),
	})
	return w.post(url, body)
}

func (w *Webhook) sendHTTP(url, subject string, n store.Notification) error {
	body, _ := json.Marshal(map[string]any{
		"subject":      subject,
		"notification": n,
	})
	return w.post(url, body)
}

func (w *Webhook) post(url string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func kindLabel(kind string) string {
	if kind == store.KindError {
		return "[ERROR]"
	}
	return "[OK]"
}
