package booking

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/example/transit-assist/internal/models"
	"github.com/example/transit-assist/internal/observability"
	"github.com/example/transit-assist/internal/storage"
)

const keyPrefix = "ticket:"

// PaymentHolder places and releases holds on the fare amount for online bookings.
type PaymentHolder interface {
	Hold(ctx context.Context, amount int64, currency, customerID string) (string, error)
	Cancel(ctx context.Context, paymentIntentID string) error
}

// Service owns ticket-booking persistence. Bookings are immutable after
// creation; there is no update or delete path.
type Service struct {
	Store    storage.Store
	Payments PaymentHolder // optional; nil when no Stripe key is configured
	Currency string
	Logger   *slog.Logger
}

// Create assigns an ID and creation time, fixes status to "confirmed" and
// persists the booking. When the rider chose online payment and a payment
// backend is wired, the fare is held before the record is written.
func (s *Service) Create(ctx context.Context, b models.Booking) (models.Booking, error) {
	b.BookingID = "AMTS" + newSuffix()
	b.Timestamp = time.Now().UTC()
	b.Status = "confirmed"

	if s.Payments != nil && strings.EqualFold(b.PaymentMethod, "online") && b.Fare > 0 {
		// fare is in rupees; Stripe wants the smallest currency unit
		amount := int64(math.Round(b.Fare * 100))
		piID, err := s.Payments.Hold(ctx, amount, s.Currency, "")
		if err != nil {
			return models.Booking{}, fmt.Errorf("fare hold: %w", err)
		}
		b.PaymentIntent = piID
		observability.PaymentHolds.Inc()
	}

	raw, err := json.Marshal(b)
	if err != nil {
		s.releaseHold(ctx, b.PaymentIntent)
		return models.Booking{}, err
	}
	if err := s.Store.Set(ctx, keyPrefix+b.BookingID, raw); err != nil {
		s.releaseHold(ctx, b.PaymentIntent)
		return models.Booking{}, err
	}
	observability.BookingsCreated.Inc()
	if s.Logger != nil {
		s.Logger.Info("ticket booking saved", "bookingId", b.BookingID, "route", b.Route)
	}
	return b, nil
}

// List returns all bookings, most recent first.
func (s *Service) List(ctx context.Context) ([]models.Booking, error) {
	raws, err := s.Store.GetByPrefix(ctx, keyPrefix)
	if err != nil {
		return nil, err
	}
	out := make([]models.Booking, 0, len(raws))
	for _, raw := range raws {
		var b models.Booking
		if err := json.Unmarshal(raw, &b); err != nil {
			if s.Logger != nil {
				s.Logger.Warn("skipping malformed booking record", "error", err)
			}
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// Get performs a point lookup; storage.ErrNotFound passes through untouched.
func (s *Service) Get(ctx context.Context, id string) (models.Booking, error) {
	raw, err := s.Store.Get(ctx, keyPrefix+id)
	if err != nil {
		return models.Booking{}, err
	}
	var b models.Booking
	if err := json.Unmarshal(raw, &b); err != nil {
		return models.Booking{}, err
	}
	return b, nil
}

// releaseHold cancels a fare hold for a booking that was never persisted, so
// a failed write does not leave the rider's funds authorized with no record.
func (s *Service) releaseHold(ctx context.Context, piID string) {
	if s.Payments == nil || piID == "" {
		return
	}
	if err := s.Payments.Cancel(ctx, piID); err != nil && s.Logger != nil {
		s.Logger.Warn("failed to release fare hold", "paymentIntent", piID, "error", err)
	}
}

// newSuffix returns 8 uppercase hex chars from crypto/rand. The legacy system
// used the last six digits of a millisecond clock, which can collide; the
// textual AMTS prefix is kept for continuity with stored records.
func newSuffix() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return strings.ToUpper(hex.EncodeToString(b))
}
