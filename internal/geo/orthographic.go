package geo

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/golang/geo/s2"
)

var _ s2.Projection = Orthographic{}

// Orthographic projects the sphere as seen from infinitely far away.
// Scale is the globe radius in pixels and the translate pair is the screen
// position of the hemisphere centre.
type Orthographic struct {
	Rotate     Rotation
	Scale      float64
	TranslateX float64
	TranslateY float64
}

// Project returns the screen position of a point on the sphere. Points on
// the far hemisphere are projected too; use Visible to tell them apart.
func (p Orthographic) Project(pt s2.Point) r2.Point {
	return p.screen(newRotator(p.Rotate).forward(pt.Vector))
}

// Unproject maps a screen position back onto the sphere. Positions outside
// the disc land on the horizon.
func (p Orthographic) Unproject(pt r2.Point) s2.Point {
	v, _ := p.unscreen(pt)
	return s2.Point{Vector: newRotator(p.Rotate).invert(v)}
}

// FromLatLng projects ll to the screen.
func (p Orthographic) FromLatLng(ll s2.LatLng) r2.Point {
	return p.Project(s2.PointFromLatLng(ll))
}

// ToLatLng is Unproject returning a LatLng.
func (p Orthographic) ToLatLng(pt r2.Point) s2.LatLng {
	return s2.LatLngFromPoint(p.Unproject(pt))
}

// Interpolate moves linearly on the screen from a to b.
func (p Orthographic) Interpolate(f float64, a, b r2.Point) r2.Point {
	return a.Mul(1 - f).Add(b.Mul(f))
}

// WrapDistance is zero: the screen does not wrap along either axis.
func (p Orthographic) WrapDistance() r2.Point {
	return r2.Point{}
}

// Visible reports whether pt lies on the hemisphere facing the viewer.
func (p Orthographic) Visible(pt s2.Point) bool {
	return newRotator(p.Rotate).forward(pt.Vector).X > 0
}

// Invert maps a screen position back to longitude and latitude. ok is false
// when the position falls outside the globe's disc.
func (p Orthographic) Invert(x, y float64) (lon, lat float64, ok bool) {
	v, ok := p.unscreen(r2.Point{X: x, Y: y})
	if !ok {
		return 0, 0, false
	}
	pos := PositionOf(s2.LatLngFromPoint(s2.Point{Vector: newRotator(p.Rotate).invert(v)}))
	return pos[0], pos[1], true
}

// Center returns the geographic point currently facing the viewer.
func (p Orthographic) Center() Position {
	return PositionOf(p.ToLatLng(r2.Point{X: p.TranslateX, Y: p.TranslateY}))
}

func (p Orthographic) screen(v r3.Vector) r2.Point {
	return r2.Point{X: p.TranslateX + p.Scale*v.Y, Y: p.TranslateY - p.Scale*v.Z}
}

// unscreen lifts a screen position into view space. Outside the disc the
// result is clamped to the horizon and ok is false.
func (p Orthographic) unscreen(pt r2.Point) (v r3.Vector, ok bool) {
	if p.Scale == 0 {
		return r3.Vector{X: 1}, false
	}
	vy := (pt.X - p.TranslateX) / p.Scale
	vz := (p.TranslateY - pt.Y) / p.Scale
	rho := vy*vy + vz*vz
	if rho > 1 {
		return r3.Vector{Y: vy, Z: vz}.Normalize(), false
	}
	return r3.Vector{X: math.Sqrt(1 - rho), Y: vy, Z: vz}, true
}

// Distance returns the great-circle distance in radians between two
// positions given in degrees.
func Distance(a, b Position) float64 {
	return a.LatLng().Distance(b.LatLng()).Radians()
}
