package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/transit-assist/internal/models"
)

func optedInComplaint() models.Complaint {
	return models.Complaint{
		ComplaintID:  "AMTS-AB12CD34",
		NotifySMS:    true,
		ContactName:  "Asha",
		ContactPhone: "9900112233",
	}
}

func TestStatusChangedPostsToGateway(t *testing.T) {
	var body map[string]interface{}
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, "secret")
	entry := models.StatusEntry{Status: "resolved", Message: "fixed"}
	if err := n.StatusChanged(context.Background(), optedInComplaint(), entry); err != nil {
		t.Fatal(err)
	}
	if auth != "Bearer secret" {
		t.Fatalf("unexpected auth header %q", auth)
	}
	if body["complaintId"] != "AMTS-AB12CD34" || body["status"] != "resolved" {
		t.Fatalf("unexpected payload %v", body)
	}
	channels, _ := body["channels"].([]interface{})
	if len(channels) != 1 || channels[0] != "sms" {
		t.Fatalf("unexpected channels %v", channels)
	}
}

func TestStatusChangedGatewayErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, "")
	err := n.StatusChanged(context.Background(), optedInComplaint(), models.StatusEntry{Status: "resolved"})
	if err == nil {
		t.Fatal("expected error for non-2xx gateway response")
	}
}

func TestStatusChangedSkipsWithoutOptIn(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, "")
	c := models.Complaint{ComplaintID: "AMTS-00000000"}
	if err := n.StatusChanged(context.Background(), c, models.StatusEntry{Status: "resolved"}); err != nil {
		t.Fatal(err)
	}
	if calls != 0 {
		t.Fatalf("expected no gateway call without opt-in, got %d", calls)
	}
}
