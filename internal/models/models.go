package models

import "time"

// Booking is a confirmed ticket purchase, stored under "ticket:<bookingId>".
// Journey and contact fields come straight from the client; the server assigns
// BookingID, Timestamp and Status.
type Booking struct {
	BookingID     string    `json:"bookingId"`
	Route         string    `json:"route,omitempty"`
	RouteName     string    `json:"routeName,omitempty"`
	From          string    `json:"from,omitempty"`
	To            string    `json:"to,omitempty"`
	Date          string    `json:"date,omitempty"`
	Passengers    int       `json:"passengers,omitempty"`
	PassengerType string    `json:"passengerType,omitempty"` // adult, student, senior
	Fare          float64   `json:"fare,omitempty"`
	PaymentMethod string    `json:"paymentMethod,omitempty"`
	PaymentIntent string    `json:"paymentIntentId,omitempty"`
	Name          string    `json:"name,omitempty"`
	Email         string    `json:"email,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Status        string    `json:"status"` // always "confirmed"
}

// StatusEntry is one step in a complaint's audit trail.
type StatusEntry struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// Complaint is a rider-submitted issue report, stored under
// "complaint:<complaintId>". StatusHistory is append-only: one entry at
// creation and one per status update.
type Complaint struct {
	ComplaintID   string        `json:"complaintId"`
	BusID         string        `json:"busId,omitempty"`
	RouteNumber   string        `json:"routeNumber,omitempty"`
	Category      string        `json:"category,omitempty"`
	Description   string        `json:"description,omitempty"`
	ContactName   string        `json:"contactName,omitempty"`
	ContactPhone  string        `json:"contactPhone,omitempty"`
	ContactEmail  string        `json:"contactEmail,omitempty"`
	NotifySMS     bool          `json:"notifySMS"`
	NotifyEmail   bool          `json:"notifyEmail"`
	HasImage      bool          `json:"hasImage"`
	Image         string        `json:"image,omitempty"` // base64 photo payload
	Timestamp     time.Time     `json:"timestamp"`
	Status        string        `json:"status"`
	StatusHistory []StatusEntry `json:"statusHistory"`
}

// Complaint statuses. Transitions are unrestricted; a resolved complaint may
// be reopened by a later update.
const (
	StatusSubmitted   = "submitted"
	StatusUnderReview = "under review"
	StatusResolved    = "resolved"
	StatusRejected    = "rejected"
)

// KnownComplaintStatus reports whether s is one of the recognized statuses.
func KnownComplaintStatus(s string) bool {
	switch s {
	case StatusSubmitted, StatusUnderReview, StatusResolved, StatusRejected:
		return true
	}
	return false
}

// BusLocation is the live position record for one bus, stored under
// "bus:<busId>". Each write fully replaces the previous record.
type BusLocation struct {
	BusID       string    `json:"busId"`
	RouteNumber string    `json:"routeNumber,omitempty"`
	Latitude    float64   `json:"latitude,omitempty"`
	Longitude   float64   `json:"longitude,omitempty"`
	CurrentStop string    `json:"currentStop,omitempty"`
	NextStop    string    `json:"nextStop,omitempty"`
	ETA         int       `json:"eta,omitempty"` // minutes to next stop
	Occupancy   string    `json:"occupancy,omitempty"`
	IsDelayed   bool      `json:"isDelayed,omitempty"`
	LastUpdated time.Time `json:"lastUpdated"`

	// Set only on proximity-annotated queries; never persisted.
	DistanceMeters float64 `json:"distanceMeters,omitempty"`
	ETASeconds     float64 `json:"etaSeconds,omitempty"`
}

// RouteDetails is optional route metadata stored under "route:<routeNumber>".
// Nothing in this API surface writes these records; they are seeded out of
// band, so callers must tolerate their absence.
type RouteDetails struct {
	RouteNumber string   `json:"routeNumber"`
	Name        string   `json:"name,omitempty"`
	From        string   `json:"from,omitempty"`
	To          string   `json:"to,omitempty"`
	Stops       []string `json:"stops,omitempty"`
	Frequency   string   `json:"frequency,omitempty"`
	FirstBus    string   `json:"firstBus,omitempty"`
	LastBus     string   `json:"lastBus,omitempty"`
}
