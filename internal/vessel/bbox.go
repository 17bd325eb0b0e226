package vessel

import (
	"fmt"
	"math"
)

// BoundingBox is a rectangular latitude/longitude region.
type BoundingBox struct {
	MinLat float64 `json:"minLat" yaml:"min_lat"`
	MaxLat float64 `json:"maxLat" yaml:"max_lat"`
	MinLon float64 `json:"minLon" yaml:"min_lon"`
	MaxLon float64 `json:"maxLon" yaml:"max_lon"`
}

// Globe covers every valid coordinate.
var Globe = BoundingBox{MinLat: -90, MaxLat: 90, MinLon: -180, MaxLon: 180}

// Validate checks ordering and range of both axes.
func (b BoundingBox) Validate() error {
	for _, v := range []float64{b.MinLat, b.MaxLat, b.MinLon, b.MaxLon} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite coordinate", ErrInvalidBoundingBox)
		}
	}
	if !(-90 <= b.MinLat && b.MinLat <= b.MaxLat && b.MaxLat <= 90) {
		return fmt.Errorf("%w: latitude range must satisfy -90 <= min_lat (%g) <= max_lat (%g) <= 90",
			ErrInvalidBoundingBox, b.MinLat, b.MaxLat)
	}
	if !(-180 <= b.MinLon && b.MinLon <= b.MaxLon && b.MaxLon <= 180) {
		return fmt.Errorf("%w: longitude range must satisfy -180 <= min_lon (%g) <= max_lon (%g) <= 180",
			ErrInvalidBoundingBox, b.MinLon, b.MaxLon)
	}
	return nil
}

// Contains reports whether the point lies inside the box, edges included.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}
