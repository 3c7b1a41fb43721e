package geo

import (
	"math"

	"github.com/example/transit-assist/internal/models"
)

// Haversine distance in meters
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371000.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}

// Nearest annotates each bus with its distance from (lat, lon) and returns the
// closest limit buses, nearest first. Buses without coordinates are skipped.
func Nearest(buses []models.BusLocation, lat, lon float64, limit int) []models.BusLocation {
	type pair struct {
		b    models.BusLocation
		dist float64
	}
	arr := make([]pair, 0, len(buses))
	for _, b := range buses {
		if b.Latitude == 0 && b.Longitude == 0 {
			continue
		}
		dist := Haversine(lat, lon, b.Latitude, b.Longitude)
		b.DistanceMeters = dist
		arr = append(arr, pair{b, dist})
	}
	// partial selection sort for top-N
	n := limit
	if n <= 0 || n > len(arr) {
		n = len(arr)
	}
	for i := 0; i < n; i++ {
		minIdx := i
		for j := i + 1; j < len(arr); j++ {
			if arr[j].dist < arr[minIdx].dist {
				minIdx = j
			}
		}
		arr[i], arr[minIdx] = arr[minIdx], arr[i]
	}
	out := make([]models.BusLocation, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, arr[i].b)
	}
	return out
}
