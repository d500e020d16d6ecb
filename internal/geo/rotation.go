// Package geo holds the spherical math behind the globe: rotations,
// the orthographic projection, great-circle distance, the graticule and
// horizon-clipped SVG path generation.
package geo

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

const tau = 2 * math.Pi

// Position is a [longitude, latitude] pair in degrees.
type Position [2]float64

// LatLng returns p as an s2 LatLng.
func (p Position) LatLng() s2.LatLng {
	return s2.LatLngFromDegrees(p[1], p[0])
}

// Point returns the unit vector for p.
func (p Position) Point() s2.Point {
	return s2.PointFromLatLng(p.LatLng())
}

// PositionOf converts an s2 LatLng back to [longitude, latitude] degrees.
func PositionOf(ll s2.LatLng) Position {
	return Position{ll.Lng.Degrees(), ll.Lat.Degrees()}
}

// Rotation holds the three Euler angles, in degrees, applied before
// projecting: a shift in longitude (Lambda), a tilt towards the viewer
// (Phi) and a roll around the view axis (Gamma).
type Rotation struct {
	Lambda float64 `json:"lambda"`
	Phi    float64 `json:"phi"`
	Gamma  float64 `json:"gamma"`
}

// Wrapped returns r with Lambda folded into (-180, 180].
func (r Rotation) Wrapped() Rotation {
	r.Lambda = wrapDegrees(r.Lambda)
	return r
}

func wrapDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d > 180 {
		d -= 360
	} else if d <= -180 {
		d += 360
	}
	return d
}

// rotator applies a Rotation to unit vectors. The x axis of the result
// points at the viewer, y to the right and z up.
type rotator struct {
	cosL, sinL float64
	cosP, sinP float64
	cosG, sinG float64
}

func newRotator(r Rotation) rotator {
	l := (s1.Angle(r.Lambda) * s1.Degree).Radians()
	p := (s1.Angle(r.Phi) * s1.Degree).Radians()
	g := (s1.Angle(r.Gamma) * s1.Degree).Radians()
	return rotator{
		cosL: math.Cos(l), sinL: math.Sin(l),
		cosP: math.Cos(p), sinP: math.Sin(p),
		cosG: math.Cos(g), sinG: math.Sin(g),
	}
}

func (t rotator) forward(v r3.Vector) r3.Vector {
	x := v.X*t.cosL - v.Y*t.sinL
	y := v.X*t.sinL + v.Y*t.cosL
	z := v.Z
	k := z*t.cosP + x*t.sinP
	return r3.Vector{
		X: x*t.cosP - z*t.sinP,
		Y: y*t.cosG - k*t.sinG,
		Z: k*t.cosG + y*t.sinG,
	}
}

func (t rotator) invert(v r3.Vector) r3.Vector {
	y := v.Y*t.cosG + v.Z*t.sinG
	k := v.Z*t.cosG - v.Y*t.sinG
	x := v.X*t.cosP + k*t.sinP
	z := k*t.cosP - v.X*t.sinP
	return r3.Vector{
		X: x*t.cosL + y*t.sinL,
		Y: y*t.cosL - x*t.sinL,
		Z: z,
	}
}

// Rotate applies r to a geographic position and returns the rotated
// longitude and latitude in degrees.
func (r Rotation) Rotate(lon, lat float64) (float64, float64) {
	v := newRotator(r).forward(Position{lon, lat}.Point().Vector)
	p := PositionOf(s2.LatLngFromPoint(s2.Point{Vector: v}))
	return p[0], p[1]
}

// Invert undoes Rotate.
func (r Rotation) Invert(lon, lat float64) (float64, float64) {
	v := newRotator(r).invert(Position{lon, lat}.Point().Vector)
	p := PositionOf(s2.LatLngFromPoint(s2.Point{Vector: v}))
	return p[0], p[1]
}
