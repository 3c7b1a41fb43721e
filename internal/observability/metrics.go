package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsCreated         = promauto.NewCounter(prometheus.CounterOpts{Namespace: "transit_assist", Name: "bookings_created_total", Help: "Total ticket bookings saved"})
	ComplaintsCreated       = promauto.NewCounter(prometheus.CounterOpts{Namespace: "transit_assist", Name: "complaints_created_total", Help: "Total complaints saved"})
	ComplaintStatusUpdates  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "transit_assist", Name: "complaint_status_updates_total", Help: "Total complaint status updates applied"})
	BusLocationUpdates      = promauto.NewCounter(prometheus.CounterOpts{Namespace: "transit_assist", Name: "bus_location_updates_total", Help: "Total bus location records written (single and batch)"})
	TrackingSubscribers     = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "transit_assist", Name: "tracking_ws_subscribers", Help: "Connected live-tracking websocket sessions"})
	PaymentHolds            = promauto.NewCounter(prometheus.CounterOpts{Namespace: "transit_assist", Name: "payment_holds_total", Help: "Total fare holds created via Stripe"})
	NotificationDispatchErr = promauto.NewCounter(prometheus.CounterOpts{Namespace: "transit_assist", Name: "notification_dispatch_errors_total", Help: "Failed complaint status notifications"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "transit_assist", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "transit_assist",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
