// Package geo holds pure coordinate math shared by display and routing code.
package geo

import (
	"errors"
	"math"

	"github.com/twpayne/go-polyline"

	"routepilot/internal/model"
)

// EarthRadiusM is the mean earth radius used for great-circle math.
const EarthRadiusM = 6371000.0

// HaversineMeters returns the great-circle distance between two coordinates.
// Display-only proximity hints use this; it is not a routing cost.
func HaversineMeters(a, b model.Coordinate) float64 {
	if a == b {
		return 0
	}
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLng := (b.Longitude - a.Longitude) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusM * c
}

// Valid reports whether the coordinate lies in the WGS84 envelope.
func Valid(c model.Coordinate) bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// ErrBadPolyline is returned when an encoded path cannot be decoded.
var ErrBadPolyline = errors.New("malformed encoded polyline")

// DecodePolyline expands a provider-encoded overview path into coordinates.
func DecodePolyline(encoded string) ([]model.Coordinate, error) {
	if encoded == "" {
		return nil, nil
	}
	coords, rest, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil || len(rest) != 0 {
		return nil, ErrBadPolyline
	}
	out := make([]model.Coordinate, len(coords))
	for i, c := range coords {
		out[i] = model.Coordinate{Latitude: c[0], Longitude: c[1]}
	}
	return out, nil
}

// EncodePolyline is the inverse of DecodePolyline, used by tests and by the
// manual-order fallback when a cached geometry is replayed.
func EncodePolyline(coords []model.Coordinate) string {
	if len(coords) == 0 {
		return ""
	}
	raw := make([][]float64, len(coords))
	for i, c := range coords {
		raw[i] = []float64{c.Latitude, c.Longitude}
	}
	return string(polyline.EncodeCoords(raw))
}

// PathMeters sums haversine distances along a coordinate sequence.
func PathMeters(coords []model.Coordinate) float64 {
	total := 0.0
	for i := 0; i+1 < len(coords); i++ {
		total += HaversineMeters(coords[i], coords[i+1])
	}
	return total
}
