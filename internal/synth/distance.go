package synth

import (
	"math"

	"github.com/jogardn/flashfood-datagen/internal/money"
	"github.com/jogardn/flashfood-datagen/pkg/models"
)

const (
	EarthRadiusKm   = 6371.0
	DefaultDistance = 1.0
)

// Haversine returns the great-circle distance between a and b in km.
func Haversine(a, b models.Location) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Distance is the haversine distance rounded to one decimal, or
// DefaultDistance when either side has no location. (0,0) is a real point.
func Distance(a, b *models.Location) float64 {
	if a == nil || b == nil {
		return DefaultDistance
	}
	return money.Round(Haversine(*a, *b), 1)
}
