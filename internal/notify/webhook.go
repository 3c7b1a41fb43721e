package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/example/transit-assist/internal/models"
)

// Notifier is implemented by anything that can tell a rider their complaint
// moved. The complaint service calls it best-effort after a status update.
type Notifier interface {
	StatusChanged(ctx context.Context, c models.Complaint, entry models.StatusEntry) error
}

// WebhookNotifier posts status-change events to an external messaging gateway
// (the gateway decides between SMS and email from the channels field).
type WebhookNotifier struct {
	Endpoint string
	Key      string
	Client   *http.Client
}

func NewWebhookNotifier(endpoint, key string) *WebhookNotifier {
	return &WebhookNotifier{Endpoint: endpoint, Key: key, Client: &http.Client{Timeout: 3 * time.Second}}
}

func (n *WebhookNotifier) StatusChanged(ctx context.Context, c models.Complaint, entry models.StatusEntry) error {
	channels := make([]string, 0, 2)
	if c.NotifySMS && c.ContactPhone != "" {
		channels = append(channels, "sms")
	}
	if c.NotifyEmail && c.ContactEmail != "" {
		channels = append(channels, "email")
	}
	if len(channels) == 0 {
		return nil
	}
	body := map[string]interface{}{
		"complaintId": c.ComplaintID,
		"status":      entry.Status,
		"message":     entry.Message,
		"timestamp":   entry.Timestamp,
		"channels":    channels,
		"contact": map[string]string{
			"name":  c.ContactName,
			"phone": c.ContactPhone,
			"email": c.ContactEmail,
		},
	}
	b, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.Endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if n.Key != "" {
		req.Header.Set("Authorization", "Bearer "+n.Key)
	}
	resp, err := n.Client.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification gateway returned %s", resp.Status)
	}
	return nil
}
