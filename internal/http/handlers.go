package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/transit-assist/internal/booking"
	"github.com/example/transit-assist/internal/complaint"
	"github.com/example/transit-assist/internal/config"
	"github.com/example/transit-assist/internal/dispatch"
	"github.com/example/transit-assist/internal/eta"
	"github.com/example/transit-assist/internal/ingest"
	"github.com/example/transit-assist/internal/models"
	"github.com/example/transit-assist/internal/notify"
	"github.com/example/transit-assist/internal/observability"
	"github.com/example/transit-assist/internal/payments"
	"github.com/example/transit-assist/internal/storage"
	"github.com/example/transit-assist/internal/tracking"
)

const basePath = "/api/v1"

type Server struct {
	Bookings   *booking.Service
	Complaints *complaint.Service
	Tracking   *tracking.Service
	WSReg      *dispatch.WSRegistry

	mapsAPIKey string
	logger     *slog.Logger
	mux        *mux.Router
}

// NewServer wires services onto the router. The store is injected so tests
// can run against the in-memory implementation.
func NewServer(cfg config.ServerConfig, store storage.Store, logger *slog.Logger) *Server {
	wsreg := dispatch.NewWSRegistry(logger)

	var producer tracking.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		producer = ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	}

	var etaClient eta.Client
	var etaCache *eta.Cache
	if cfg.OSRMEndpoint != "" {
		etaClient = eta.NewOSRMClient(cfg.OSRMEndpoint)
		etaCache = eta.NewCache(30 * time.Second)
	}

	var holder booking.PaymentHolder
	if payments.Configured() {
		holder = payments.NewStripeClient()
	}

	var notifier notify.Notifier
	if cfg.NotifyWebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.NotifyWebhookURL, cfg.NotifyWebhookKey)
	}

	s := &Server{
		Bookings:   &booking.Service{Store: store, Payments: holder, Currency: cfg.StripeCurrency, Logger: logger},
		Complaints: &complaint.Service{Store: store, Notifier: notifier, Logger: logger},
		Tracking: &tracking.Service{
			Store: store, Producer: producer, Live: wsreg,
			ETAClient: etaClient, ETACache: etaCache,
			SpeedMps: cfg.DefaultSpeedMps, Logger: logger,
		},
		WSReg:      wsreg,
		mapsAPIKey: cfg.GoogleMapsAPIKey,
		logger:     logger,
		mux:        mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.mux.PathPrefix(basePath).Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	api.HandleFunc("/ticket-booking", s.handleCreateBooking).Methods("POST")
	api.HandleFunc("/ticket-bookings", s.handleListBookings).Methods("GET")
	api.HandleFunc("/ticket-booking/{id}", s.handleGetBooking).Methods("GET")

	api.HandleFunc("/complaint", s.handleCreateComplaint).Methods("POST")
	api.HandleFunc("/complaints", s.handleListComplaints).Methods("GET")
	api.HandleFunc("/complaint/{id}", s.handleGetComplaint).Methods("GET")
	api.HandleFunc("/complaint/{id}/status", s.handleUpdateComplaintStatus).Methods("PUT")

	api.HandleFunc("/bus-tracking", s.handleBusTracking).Methods("GET")
	api.HandleFunc("/bus-location", s.handleUpsertLocation).Methods("POST")
	api.HandleFunc("/bus-locations-batch", s.handleBatchUpsertLocations).Methods("POST")
	api.HandleFunc("/route/{routeNumber}", s.handleRoute).Methods("GET")

	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws/bus-tracking", s.handleWS)

	// preflight requests match here; the CORS middleware answers them
	s.mux.PathPrefix("/").Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ============ ticket booking ============

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var payload models.Booking
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		fail(w, http.StatusBadRequest, fmt.Sprintf("Invalid booking payload: %v", err))
		return
	}
	b, err := s.Bookings.Create(r.Context(), payload)
	if err != nil {
		fail(w, http.StatusInternalServerError, fmt.Sprintf("Failed to save ticket booking: %v", err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"bookingId": b.BookingID,
		"booking":   b,
	})
}

func (s *Server) handleListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.Bookings.List(r.Context())
	if err != nil {
		fail(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve ticket bookings: %v", err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "bookings": bookings})
}

func (s *Server) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	b, err := s.Bookings.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		fail(w, http.StatusNotFound, "Booking not found")
		return
	}
	if err != nil {
		fail(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve ticket booking: %v", err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "booking": b})
}

// ============ complaints ============

func (s *Server) handleCreateComplaint(w http.ResponseWriter, r *http.Request) {
	var payload models.Complaint
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		fail(w, http.StatusBadRequest, fmt.Sprintf("Invalid complaint payload: %v", err))
		return
	}
	c, err := s.Complaints.Create(r.Context(), payload)
	if err != nil {
		fail(w, http.StatusInternalServerError, fmt.Sprintf("Failed to save complaint: %v", err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"complaintId": c.ComplaintID,
		"complaint":   c,
	})
}

func (s *Server) handleListComplaints(w http.ResponseWriter, r *http.Request) {
	complaints, err := s.Complaints.List(r.Context())
	if err != nil {
		fail(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve complaints: %v", err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "complaints": complaints})
}

func (s *Server) handleGetComplaint(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	c, err := s.Complaints.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		fail(w, http.StatusNotFound, "Complaint not found")
		return
	}
	if err != nil {
		fail(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve complaint: %v", err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "complaint": c})
}

func (s *Server) handleUpdateComplaintStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		fail(w, http.StatusBadRequest, fmt.Sprintf("Invalid status payload: %v", err))
		return
	}
	c, err := s.Complaints.UpdateStatus(r.Context(), id, body.Status, body.Message)
	switch {
	case errors.Is(err, complaint.ErrUnknownStatus):
		fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		fail(w, http.StatusNotFound, "Complaint not found")
	case err != nil:
		fail(w, http.StatusInternalServerError, fmt.Sprintf("Failed to update complaint status: %v", err))
	default:
		respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "complaint": c})
	}
}

// ============ bus tracking ============

func (s *Server) handleBusTracking(w http.ResponseWriter, r *http.Request) {
	if s.mapsAPIKey == "" {
		fail(w, http.StatusInternalServerError, "Google Maps API key not configured. Please add your API key.")
		return
	}
	route := r.URL.Query().Get("route")
	rider := riderFromQuery(r)
	buses, err := s.Tracking.List(r.Context(), route, rider)
	if err != nil {
		fail(w, http.StatusInternalServerError, fmt.Sprintf("Failed to fetch bus tracking data: %v", err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"buses":     buses,
		"count":     len(buses),
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleUpsertLocation(w http.ResponseWriter, r *http.Request) {
	var payload models.BusLocation
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		fail(w, http.StatusBadRequest, fmt.Sprintf("Invalid bus location payload: %v", err))
		return
	}
	b, err := s.Tracking.Upsert(r.Context(), payload)
	if errors.Is(err, tracking.ErrMissingBusID) {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		fail(w, http.StatusInternalServerError, fmt.Sprintf("Failed to update bus location: %v", err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "bus": b})
}

func (s *Server) handleBatchUpsertLocations(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Buses []models.BusLocation `json:"buses"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		fail(w, http.StatusBadRequest, tracking.ErrEmptyBatch.Error())
		return
	}
	count, ts, err := s.Tracking.UpsertBatch(r.Context(), body.Buses)
	switch {
	case errors.Is(err, tracking.ErrEmptyBatch), errors.Is(err, tracking.ErrMissingBusID):
		fail(w, http.StatusBadRequest, err.Error())
	case err != nil:
		fail(w, http.StatusInternalServerError, fmt.Sprintf("Failed to batch update bus locations: %v", err))
	default:
		respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "count": count, "timestamp": ts})
	}
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	routeNumber := mux.Vars(r)["routeNumber"]
	details, buses, err := s.Tracking.Route(r.Context(), routeNumber)
	if err != nil {
		fail(w, http.StatusInternalServerError, fmt.Sprintf("Failed to fetch route information: %v", err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"routeNumber":    routeNumber,
		"routeDetails":   details,
		"buses":          buses,
		"activeBusCount": len(buses),
	})
}

// ============ live tracking websocket ============

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	route := r.URL.Query().Get("route")
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	id := s.WSReg.Add(conn, route)
	observability.TrackingSubscribers.Inc()
	// subscribers never send; the read loop only detects disconnects
	go func() {
		defer func() {
			s.WSReg.Remove(id)
			observability.TrackingSubscribers.Dec()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// ============ helpers ============

func riderFromQuery(r *http.Request) *tracking.Rider {
	latStr, lonStr := r.URL.Query().Get("lat"), r.URL.Query().Get("lon")
	if latStr == "" || lonStr == "" {
		return nil
	}
	lat, err1 := strconv.ParseFloat(latStr, 64)
	lon, err2 := strconv.ParseFloat(lonStr, 64)
	if err1 != nil || err2 != nil {
		return nil
	}
	return &tracking.Rider{Lat: lat, Lon: lon}
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func fail(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]interface{}{"success": false, "error": msg})
}

func newID() string { b := make([]byte, 8); _, _ = rand.Read(b); return hex.EncodeToString(b) }
