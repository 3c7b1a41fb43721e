package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/example/transit-assist/internal/eta"
	"github.com/example/transit-assist/internal/geo"
	"github.com/example/transit-assist/internal/models"
	"github.com/example/transit-assist/internal/observability"
	"github.com/example/transit-assist/internal/storage"
)

const (
	busKeyPrefix   = "bus:"
	routeKeyPrefix = "route:"
)

var (
	// ErrMissingBusID rejects location writes without a bus identifier before
	// any side effect happens.
	ErrMissingBusID = errors.New("Bus ID is required")
	// ErrEmptyBatch rejects batch writes with no records.
	ErrEmptyBatch = errors.New("Buses array is required")
)

// Publisher pushes accepted location writes onto the feed topic.
type Publisher interface {
	PublishLocation(b models.BusLocation) error
}

// Broadcaster fans accepted location writes out to live subscribers.
type Broadcaster interface {
	Broadcast(b models.BusLocation)
}

// Rider is an optional query position used to annotate tracking responses
// with distance and arrival estimates.
type Rider struct {
	Lat float64
	Lon float64
}

// Service owns live bus-location records. Writes are upserts: each write for a
// bus fully replaces the previous record, no merge and no history.
type Service struct {
	Store     storage.Store
	Producer  Publisher   // optional
	Live      Broadcaster // optional
	ETAClient eta.Client  // optional routing engine
	ETACache  *eta.Cache  // optional
	SpeedMps  float64
	Logger    *slog.Logger
}

// Upsert validates, stamps lastUpdated and replaces the record for the bus.
func (s *Service) Upsert(ctx context.Context, b models.BusLocation) (models.BusLocation, error) {
	if b.BusID == "" {
		return models.BusLocation{}, ErrMissingBusID
	}
	b.LastUpdated = time.Now().UTC()
	clearAnnotations(&b)

	raw, err := json.Marshal(b)
	if err != nil {
		return models.BusLocation{}, err
	}
	if err := s.Store.Set(ctx, busKeyPrefix+b.BusID, raw); err != nil {
		return models.BusLocation{}, err
	}
	observability.BusLocationUpdates.Inc()
	s.fanOut(b)
	if s.Logger != nil {
		s.Logger.Info("bus location updated", "busId", b.BusID, "route", b.RouteNumber)
	}
	return b, nil
}

// UpsertBatch writes all records with one shared timestamp through the store's
// atomic multi-set, so a subsequent list sees either none or all of them.
func (s *Service) UpsertBatch(ctx context.Context, buses []models.BusLocation) (int, time.Time, error) {
	if len(buses) == 0 {
		return 0, time.Time{}, ErrEmptyBatch
	}
	now := time.Now().UTC()
	pairs := make(map[string][]byte, len(buses))
	for i := range buses {
		if buses[i].BusID == "" {
			return 0, time.Time{}, ErrMissingBusID
		}
		buses[i].LastUpdated = now
		clearAnnotations(&buses[i])
		raw, err := json.Marshal(buses[i])
		if err != nil {
			return 0, time.Time{}, err
		}
		pairs[busKeyPrefix+buses[i].BusID] = raw
	}
	if err := s.Store.SetMulti(ctx, pairs); err != nil {
		return 0, time.Time{}, err
	}
	observability.BusLocationUpdates.Add(float64(len(buses)))
	for _, b := range buses {
		s.fanOut(b)
	}
	if s.Logger != nil {
		s.Logger.Info("batch updated bus locations", "count", len(buses))
	}
	return len(buses), now, nil
}

// List scans all bus records, optionally filtered to one route (exact,
// case-sensitive match). A rider position turns the result into a
// nearest-first list annotated with distance and arrival estimates.
func (s *Service) List(ctx context.Context, route string, rider *Rider) ([]models.BusLocation, error) {
	raws, err := s.Store.GetByPrefix(ctx, busKeyPrefix)
	if err != nil {
		return nil, err
	}
	buses := make([]models.BusLocation, 0, len(raws))
	for _, raw := range raws {
		var b models.BusLocation
		if err := json.Unmarshal(raw, &b); err != nil {
			if s.Logger != nil {
				s.Logger.Warn("skipping malformed bus record", "error", err)
			}
			continue
		}
		if route != "" && b.RouteNumber != route {
			continue
		}
		buses = append(buses, b)
	}
	if rider != nil {
		buses = s.annotate(buses, *rider)
	}
	return buses, nil
}

// Route combines the buses currently on a route with its optional metadata
// record. The metadata is seeded out of band; details is nil when absent.
func (s *Service) Route(ctx context.Context, routeNumber string) (*models.RouteDetails, []models.BusLocation, error) {
	buses, err := s.List(ctx, routeNumber, nil)
	if err != nil {
		return nil, nil, err
	}
	raw, err := s.Store.Get(ctx, routeKeyPrefix+routeNumber)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, buses, nil
	}
	if err != nil {
		return nil, nil, err
	}
	var details models.RouteDetails
	if err := json.Unmarshal(raw, &details); err != nil {
		return nil, nil, err
	}
	return &details, buses, nil
}

func (s *Service) fanOut(b models.BusLocation) {
	if s.Producer != nil {
		if err := s.Producer.PublishLocation(b); err != nil && s.Logger != nil {
			s.Logger.Warn("feed publish failed", "busId", b.BusID, "error", err)
		}
	}
	if s.Live != nil {
		s.Live.Broadcast(b)
	}
}

// annotate orders buses nearest-first relative to the rider and fills in
// distanceMeters plus an etaSeconds estimate (routing engine when configured,
// distance over default speed otherwise). Buses that have not reported
// coordinates yet stay in the response, after the ordered ones, unannotated.
func (s *Service) annotate(buses []models.BusLocation, r Rider) []models.BusLocation {
	ordered := geo.Nearest(buses, r.Lat, r.Lon, 0)
	for i := range ordered {
		b := &ordered[i]
		if s.ETACache != nil {
			if v, ok := s.ETACache.Get(b.Latitude, b.Longitude, r.Lat, r.Lon); ok {
				b.ETASeconds = v
				continue
			}
		}
		if s.ETAClient != nil {
			if v, err := s.ETAClient.EstimateSeconds(b.Latitude, b.Longitude, r.Lat, r.Lon); err == nil {
				b.ETASeconds = v
				if s.ETACache != nil {
					s.ETACache.Set(b.Latitude, b.Longitude, r.Lat, r.Lon, v)
				}
				continue
			}
		}
		b.ETASeconds = eta.EstimateSeconds(b.Latitude, b.Longitude, r.Lat, r.Lon, s.SpeedMps)
	}
	for _, b := range buses {
		if b.Latitude == 0 && b.Longitude == 0 {
			ordered = append(ordered, b)
		}
	}
	return ordered
}

func clearAnnotations(b *models.BusLocation) {
	b.DistanceMeters = 0
	b.ETASeconds = 0
}
