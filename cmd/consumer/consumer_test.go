package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/transit-assist/internal/models"
)

// fakeWriter implements LocationWriter for tests
type fakeWriter struct {
	fail  int // number of times to fail before succeeding
	calls int
	key   string
	value []byte
}

func (f *fakeWriter) Set(ctx context.Context, key string, value []byte) error {
	f.calls++
	if f.calls <= f.fail {
		return errors.New("store fail")
	}
	f.key = key
	f.value = value
	return nil
}

func TestApplyWithRetry_SucceedsAfterRetries(t *testing.T) {
	f := &fakeWriter{fail: 2}
	b := &models.BusLocation{BusID: "B1", RouteNumber: "1", Latitude: 23.03, Longitude: 72.58}
	start := time.Now()
	if err := applyWithRetry(context.Background(), f, b, 3, 10*time.Millisecond); err != nil {
		t.Fatalf("expected success, got err=%v", err)
	}
	if f.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", f.calls)
	}
	if f.key != "bus:B1" {
		t.Fatalf("unexpected key %q", f.key)
	}
	if b.LastUpdated.IsZero() {
		t.Fatal("lastUpdated not stamped")
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Fatal("expected at least one backoff")
	}
}

func TestApplyWithRetry_FailsWhenExhausted(t *testing.T) {
	f := &fakeWriter{fail: 5}
	b := &models.BusLocation{BusID: "B1"}
	if err := applyWithRetry(context.Background(), f, b, 3, 5*time.Millisecond); err == nil {
		t.Fatal("expected error after retries")
	}
}
