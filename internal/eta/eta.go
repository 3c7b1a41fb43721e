package eta

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Client is the interface used by the tracking service to estimate how long a
// bus takes to reach the rider's position.
type Client interface {
	EstimateSeconds(fromLat, fromLon, toLat, toLon float64) (float64, error)
}

// Cache is a tiny in-memory cache for ETA lookups keyed by coords.
type Cache struct {
	mu    sync.RWMutex
	store map[string]cacheEntry
	ttl   time.Duration
}

type cacheEntry struct {
	v  float64
	ts time.Time
}

// NewCache creates a cache with the provided TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{store: make(map[string]cacheEntry), ttl: ttl}
}

func keyFor(aLat, aLon, bLat, bLon float64) string {
	return fmt.Sprintf("%.6f,%.6f->%.6f,%.6f", aLat, aLon, bLat, bLon)
}

// Get returns cached value and true if present and not expired.
func (c *Cache) Get(aLat, aLon, bLat, bLon float64) (float64, bool) {
	k := keyFor(aLat, aLon, bLat, bLon)
	c.mu.RLock()
	e, ok := c.store[k]
	c.mu.RUnlock()
	if !ok {
		return 0, false
	}
	if time.Since(e.ts) > c.ttl {
		c.mu.Lock()
		delete(c.store, k)
		c.mu.Unlock()
		return 0, false
	}
	return e.v, true
}

// Set stores a value in the cache.
func (c *Cache) Set(aLat, aLon, bLat, bLon float64, v float64) {
	k := keyFor(aLat, aLon, bLat, bLon)
	c.mu.Lock()
	c.store[k] = cacheEntry{v: v, ts: time.Now()}
	c.mu.Unlock()
}

// Naive ETA: distance / speed_mps. In prod use a routing engine.
func EstimateSeconds(fromLat, fromLon, toLat, toLon, speedMps float64) float64 {
	if speedMps <= 0 {
		speedMps = 8.0 // ~28.8 km/h default city bus speed
	}
	d := haversine(fromLat, fromLon, toLat, toLon)
	return d / speedMps
}

// local haversine to avoid an import cycle with internal/geo
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371000.0
	toRad := func(deg float64) float64 { return deg * math.Pi / 180.0 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}
