package booking

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/transit-assist/internal/models"
	"github.com/example/transit-assist/internal/storage"
)

type fakeHolder struct {
	amount    int64
	currency  string
	calls     int
	cancels   int
	cancelled string
}

func (f *fakeHolder) Hold(ctx context.Context, amount int64, currency, customerID string) (string, error) {
	f.calls++
	f.amount = amount
	f.currency = currency
	return "pi_test_123", nil
}

func (f *fakeHolder) Cancel(ctx context.Context, paymentIntentID string) error {
	f.cancels++
	f.cancelled = paymentIntentID
	return nil
}

// failingStore rejects every write
type failingStore struct {
	storage.Store
}

func (f *failingStore) Set(ctx context.Context, key string, value []byte) error {
	return errors.New("write failed")
}

func TestCreateRoundTrip(t *testing.T) {
	svc := &Service{Store: storage.NewMemoryStore()}
	in := models.Booking{
		Route: "15", RouteName: "Station - Airport",
		From: "Station", To: "Airport", Date: "2026-09-01",
		Passengers: 2, PassengerType: "adult", Fare: 50,
		Name: "Asha", Email: "asha@example.com", Phone: "9900112233",
	}
	created, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(created.BookingID, "AMTS") {
		t.Fatalf("bookingId %q missing AMTS prefix", created.BookingID)
	}
	if created.Status != "confirmed" {
		t.Fatalf("expected status confirmed, got %q", created.Status)
	}
	if created.Timestamp.IsZero() {
		t.Fatal("timestamp not stamped")
	}

	got, err := svc.Get(context.Background(), created.BookingID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Timestamp.Equal(created.Timestamp) {
		t.Fatalf("timestamp mismatch: got %v want %v", got.Timestamp, created.Timestamp)
	}
	got.Timestamp, created.Timestamp = time.Time{}, time.Time{}
	if got != created {
		t.Fatalf("round-trip mismatch:\n got %+v\nwant %+v", got, created)
	}
}

func TestListSortedDescending(t *testing.T) {
	svc := &Service{Store: storage.NewMemoryStore()}
	for i := 0; i < 3; i++ {
		if _, err := svc.Create(context.Background(), models.Booking{Route: "1"}); err != nil {
			t.Fatal(err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	list, err := svc.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 bookings, got %d", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i].Timestamp.After(list[i-1].Timestamp) {
			t.Fatalf("list not sorted descending at index %d", i)
		}
	}
}

func TestListEmpty(t *testing.T) {
	svc := &Service{Store: storage.NewMemoryStore()}
	list, err := svc.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %d", len(list))
	}
}

func TestGetNotFound(t *testing.T) {
	svc := &Service{Store: storage.NewMemoryStore()}
	_, err := svc.Get(context.Background(), "AMTS000000")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOnlinePaymentHold(t *testing.T) {
	holder := &fakeHolder{}
	svc := &Service{Store: storage.NewMemoryStore(), Payments: holder, Currency: "inr"}

	created, err := svc.Create(context.Background(), models.Booking{PaymentMethod: "online", Fare: 25.5})
	if err != nil {
		t.Fatal(err)
	}
	if holder.calls != 1 {
		t.Fatalf("expected 1 hold, got %d", holder.calls)
	}
	if holder.amount != 2550 || holder.currency != "inr" {
		t.Fatalf("unexpected hold %d %s", holder.amount, holder.currency)
	}
	if created.PaymentIntent != "pi_test_123" {
		t.Fatalf("payment intent not stored: %+v", created)
	}
}

func TestFailedWriteReleasesHold(t *testing.T) {
	holder := &fakeHolder{}
	svc := &Service{Store: &failingStore{Store: storage.NewMemoryStore()}, Payments: holder, Currency: "inr"}

	_, err := svc.Create(context.Background(), models.Booking{PaymentMethod: "online", Fare: 25.5})
	if err == nil {
		t.Fatal("expected error from failing store")
	}
	if holder.calls != 1 {
		t.Fatalf("expected 1 hold, got %d", holder.calls)
	}
	if holder.cancels != 1 || holder.cancelled != "pi_test_123" {
		t.Fatalf("hold not released after failed write: cancels=%d id=%q", holder.cancels, holder.cancelled)
	}
}

func TestCashBookingSkipsPayment(t *testing.T) {
	holder := &fakeHolder{}
	svc := &Service{Store: storage.NewMemoryStore(), Payments: holder, Currency: "inr"}
	if _, err := svc.Create(context.Background(), models.Booking{PaymentMethod: "cash", Fare: 25}); err != nil {
		t.Fatal(err)
	}
	if holder.calls != 0 {
		t.Fatalf("expected no hold for cash booking, got %d", holder.calls)
	}
}
