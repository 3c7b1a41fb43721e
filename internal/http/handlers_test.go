package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/transit-assist/internal/config"
	"github.com/example/transit-assist/internal/storage"
)

func testServer(t *testing.T, mapsKey string) *Server {
	t.Helper()
	cfg := config.ServerConfig{
		GoogleMapsAPIKey: mapsKey,
		DefaultSpeedMps:  8,
		StripeCurrency:   "inr",
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(cfg, storage.NewMemoryStore(), logger)
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON response %q: %v", w.Body.String(), err)
	}
	return w, out
}

func TestHealth(t *testing.T) {
	s := testServer(t, "key")
	w, out := doJSON(t, s, "GET", "/api/v1/health", nil)
	if w.Code != http.StatusOK || out["status"] != "ok" {
		t.Fatalf("unexpected health response %d %v", w.Code, out)
	}
}

func TestBookingCreateAndFetch(t *testing.T) {
	s := testServer(t, "key")
	w, out := doJSON(t, s, "POST", "/api/v1/ticket-booking", map[string]interface{}{
		"route": "15", "from": "Station", "to": "Airport", "passengers": 2, "fare": 50,
	})
	if w.Code != http.StatusOK || out["success"] != true {
		t.Fatalf("create failed: %d %v", w.Code, out)
	}
	id, _ := out["bookingId"].(string)
	if id == "" {
		t.Fatal("no bookingId in response")
	}

	w, out = doJSON(t, s, "GET", "/api/v1/ticket-booking/"+id, nil)
	if w.Code != http.StatusOK || out["success"] != true {
		t.Fatalf("fetch failed: %d %v", w.Code, out)
	}
	b, _ := out["booking"].(map[string]interface{})
	if b["status"] != "confirmed" || b["route"] != "15" {
		t.Fatalf("unexpected booking %v", b)
	}
}

func TestBookingNotFound(t *testing.T) {
	s := testServer(t, "key")
	w, out := doJSON(t, s, "GET", "/api/v1/ticket-booking/AMTS000000", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if out["success"] != false || out["error"] != "Booking not found" {
		t.Fatalf("unexpected body %v", out)
	}
}

func TestComplaintStatusFlow(t *testing.T) {
	s := testServer(t, "key")
	_, out := doJSON(t, s, "POST", "/api/v1/complaint", map[string]interface{}{
		"busId": "B42", "routeNumber": "42", "category": "delay", "description": "late again",
	})
	id, _ := out["complaintId"].(string)
	if id == "" {
		t.Fatal("no complaintId in response")
	}

	w, out := doJSON(t, s, "PUT", "/api/v1/complaint/"+id+"/status", map[string]string{
		"status": "under review", "message": "assigned to depot",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update failed: %d %v", w.Code, out)
	}
	c, _ := out["complaint"].(map[string]interface{})
	hist, _ := c["statusHistory"].([]interface{})
	if c["status"] != "under review" || len(hist) != 2 {
		t.Fatalf("unexpected complaint after update: %v", c)
	}

	w, _ = doJSON(t, s, "PUT", "/api/v1/complaint/"+id+"/status", map[string]string{
		"status": "escalated", "message": "nope",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", w.Code)
	}

	w, _ = doJSON(t, s, "PUT", "/api/v1/complaint/AMTS-000000/status", map[string]string{
		"status": "resolved", "message": "done",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing complaint, got %d", w.Code)
	}
}

func TestBusTrackingRequiresMapsKey(t *testing.T) {
	s := testServer(t, "")
	w, out := doJSON(t, s, "GET", "/api/v1/bus-tracking", nil)
	if w.Code != http.StatusInternalServerError || out["success"] != false {
		t.Fatalf("expected 500 without maps key, got %d %v", w.Code, out)
	}
}

func TestBusLocationValidation(t *testing.T) {
	s := testServer(t, "key")
	w, out := doJSON(t, s, "POST", "/api/v1/bus-location", map[string]string{"routeNumber": "1"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing busId, got %d", w.Code)
	}
	if out["error"] != "Bus ID is required" {
		t.Fatalf("unexpected error %v", out["error"])
	}
}

func TestBatchThenTracking(t *testing.T) {
	s := testServer(t, "key")
	w, out := doJSON(t, s, "POST", "/api/v1/bus-locations-batch", map[string]interface{}{
		"buses": []map[string]interface{}{
			{"busId": "B1", "routeNumber": "1"},
			{"busId": "B2", "routeNumber": "42"},
		},
	})
	if w.Code != http.StatusOK || out["count"] != float64(2) {
		t.Fatalf("batch failed: %d %v", w.Code, out)
	}

	w, out = doJSON(t, s, "GET", "/api/v1/bus-tracking?route=1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("tracking failed: %d", w.Code)
	}
	if out["count"] != float64(1) {
		t.Fatalf("expected 1 bus on route 1, got %v", out["count"])
	}

	w, out = doJSON(t, s, "POST", "/api/v1/bus-locations-batch", map[string]interface{}{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing buses array, got %d %v", w.Code, out)
	}
}

func TestRouteView(t *testing.T) {
	s := testServer(t, "key")
	_, _ = doJSON(t, s, "POST", "/api/v1/bus-location", map[string]interface{}{
		"busId": "B7", "routeNumber": "7",
	})

	w, out := doJSON(t, s, "GET", "/api/v1/route/7", nil)
	if w.Code != http.StatusOK || out["success"] != true {
		t.Fatalf("route view failed: %d %v", w.Code, out)
	}
	if out["routeNumber"] != "7" || out["activeBusCount"] != float64(1) {
		t.Fatalf("unexpected route view %v", out)
	}
	if out["routeDetails"] != nil {
		t.Fatalf("expected null routeDetails, got %v", out["routeDetails"])
	}
}
