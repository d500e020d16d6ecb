package globe

import (
	"errors"
	"fmt"
	"math"

	"github.com/Zachkp/globe-portfolio/internal/geo"
)

// Category classifies a place on the map.
type Category string

const (
	Lived   Category = "lived"
	Current Category = "current"
	Want    Category = "want"
)

// ErrInvalidMarker is returned for markers that cannot be drawn.
var ErrInvalidMarker = errors.New("invalid marker")

// Marker is a labelled place. Weight is the time spent there, in years.
type Marker struct {
	Label     string   `json:"label"`
	Longitude float64  `json:"longitude"`
	Latitude  float64  `json:"latitude"`
	Category  Category `json:"category"`
	Weight    float64  `json:"weight"`
}

// DefaultMarkers are the places shown when none are configured.
func DefaultMarkers() []Marker {
	return []Marker{
		{Label: "New York, NY", Longitude: -74.0060, Latitude: 40.7128, Category: Lived, Weight: 14},
		{Label: "Boston, MA", Longitude: -71.0589, Latitude: 42.3601, Category: Lived, Weight: 3},
		{Label: "Los Angeles, CA", Longitude: -118.2437, Latitude: 34.0522, Category: Current, Weight: 2},
		{Label: "San Francisco, CA", Longitude: -122.4194, Latitude: 37.7749, Category: Want, Weight: 1},
		{Label: "Farmington, UT", Longitude: -111.8874, Latitude: 40.9805, Category: Lived, Weight: 1},
	}
}

// minWeight is the smallest weight with a non-negative radius.
var minWeight = 1 / math.E

// Validate checks that the marker has a known category, a weight of at
// least 1/e and a latitude on the sphere.
func (m Marker) Validate() error {
	switch m.Category {
	case Lived, Current, Want:
	default:
		return fmt.Errorf("%w: %q has unknown category %q", ErrInvalidMarker, m.Label, m.Category)
	}
	if !(m.Weight >= minWeight) {
		return fmt.Errorf("%w: %q has weight %v below 1/e", ErrInvalidMarker, m.Label, m.Weight)
	}
	if m.Latitude < -90 || m.Latitude > 90 {
		return fmt.Errorf("%w: %q has latitude %v", ErrInvalidMarker, m.Label, m.Latitude)
	}
	return nil
}

const (
	radiusPerLog = 12
	wantBonus    = 8
	labelGap     = 8
)

// Radius is the drawn circle radius. It grows with the log of the weight;
// markers for places the owner wants to go get a fixed bonus.
func (m Marker) Radius() float64 {
	r := (math.Log(m.Weight) + 1) * radiusPerLog
	if m.Category == Want {
		r += wantBonus
	}
	return r
}

// Position returns the marker's coordinates.
func (m Marker) Position() geo.Position {
	return geo.Position{m.Longitude, m.Latitude}
}

// MarkerView is a marker as drawn for one projection state.
type MarkerView struct {
	Marker
	X, Y        float64
	Radius      float64
	Distance    float64 // great-circle radians from the hemisphere centre
	Visible     bool
	Fill        string
	Stroke      string
	StrokeWidth float64
}

// LabelX is where the marker's label starts.
func (v MarkerView) LabelX() float64 {
	return v.X + v.Radius + labelGap
}

// view styles m for the given projection. A marker further than threshold
// from centre is suppressed entirely rather than faded.
func view(m Marker, proj geo.Orthographic, centre geo.Position, threshold float64) MarkerView {
	pt := proj.FromLatLng(m.Position().LatLng())
	v := MarkerView{
		Marker:      m,
		X:           pt.X,
		Y:           pt.Y,
		Radius:      m.Radius(),
		Distance:    geo.Distance(m.Position(), centre),
		Fill:        colorNone,
		Stroke:      colorNone,
		StrokeWidth: 0.5,
	}
	if m.Category == Want {
		v.StrokeWidth = 8
	}
	v.Visible = v.Distance <= threshold
	if !v.Visible {
		return v
	}

	v.Fill = colorWhite
	if m.Category == Current {
		v.Fill = colorAccent
	}
	if m.Category == Want {
		v.Stroke = colorAccent
	}
	return v
}
