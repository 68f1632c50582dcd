package trigger

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/psysupport/psysupport-api/pkg/httpclient"
	"github.com/psysupport/psysupport-api/pkg/logger"
	"go.uber.org/zap"
)

// Event is the payload posted to a webhook when a session changes
type Event struct {
	Type       string    `json:"type"`
	SessionID  string    `json:"session_id"`
	Status     string    `json:"status,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Event types
const (
	SessionBooked        = "session.booked"
	SessionStatusChanged = "session.status_changed"
)

// Notifier posts session events to configured webhook URLs
type Notifier struct {
	client httpclient.Client
	urls   map[string]string
}

// NewNotifier maps event types to URLs. Events without a URL are dropped.
func NewNotifier(client httpclient.Client, urls map[string]string) *Notifier {
	return &Notifier{client: client, urls: urls}
}

// NotifyAsync posts the event in the background.
// Failures are logged but don't block the caller.
func (n *Notifier) NotifyAsync(event Event) {
	if n == nil {
		return
	}
	targetURL := n.urls[event.Type]
	if targetURL == "" {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	go n.post(targetURL, event)
}

func (n *Notifier) post(targetURL string, event Event) {
	fields := []zap.Field{
		zap.String("url", targetURL),
		zap.String("event", event.Type),
		zap.String("session_id", event.SessionID),
	}

	body, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to encode trigger event", append(fields, zap.Error(err))...)
		return
	}

	resp, err := n.client.Post(targetURL, "application/json", bytes.NewReader(body))
	if err != nil {
		logger.Error("Failed to call trigger URL", append(fields, zap.Error(err))...)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		logger.Info("Trigger URL called successfully", append(fields, zap.Int("status_code", resp.StatusCode))...)
	} else {
		logger.Warn("Trigger URL returned non-success status", append(fields, zap.Int("status_code", resp.StatusCode))...)
	}
}
