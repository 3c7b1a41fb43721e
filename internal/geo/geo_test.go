package geo

import (
	"testing"

	"github.com/example/transit-assist/internal/models"
)

func TestHaversineZero(t *testing.T) {
	d := Haversine(0, 0, 0, 0)
	if d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// one degree of latitude is ~111 km
	d := Haversine(23.0, 72.5, 24.0, 72.5)
	if d < 110000 || d > 112000 {
		t.Fatalf("expected ~111km, got %f", d)
	}
}

func TestNearestOrdersAndSkipsUnlocated(t *testing.T) {
	buses := []models.BusLocation{
		{BusID: "far", Latitude: 23.2, Longitude: 72.9},
		{BusID: "ghost"}, // no coordinates
		{BusID: "near", Latitude: 23.03, Longitude: 72.58},
	}
	out := Nearest(buses, 23.03, 72.58, 0)
	if len(out) != 2 {
		t.Fatalf("expected unlocated bus skipped, got %d results", len(out))
	}
	if out[0].BusID != "near" || out[1].BusID != "far" {
		t.Fatalf("wrong order: %s, %s", out[0].BusID, out[1].BusID)
	}
	if out[0].DistanceMeters >= out[1].DistanceMeters {
		t.Fatal("distances not ascending")
	}
}

func TestNearestLimit(t *testing.T) {
	buses := []models.BusLocation{
		{BusID: "a", Latitude: 23.01, Longitude: 72.5},
		{BusID: "b", Latitude: 23.02, Longitude: 72.5},
		{BusID: "c", Latitude: 23.03, Longitude: 72.5},
	}
	out := Nearest(buses, 23.0, 72.5, 2)
	if len(out) != 2 {
		t.Fatalf("expected 2, got %d", len(out))
	}
	if out[0].BusID != "a" {
		t.Fatalf("expected a first, got %s", out[0].BusID)
	}
}
