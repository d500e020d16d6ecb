package geo

import "math"

// Line is an open sequence of positions.
type Line []Position

const (
	graticuleStep      = 10.0
	graticuleMajorStep = 90.0
	graticuleMinorLat  = 80.0
	graticulePrecision = 2.5
	poleEpsilon        = 1e-6
)

// Graticule returns the latitude/longitude grid: meridians and parallels
// every 10 degrees up to 80 degrees of latitude, plus the four major
// meridians which run all the way to the poles.
func Graticule() []Line {
	var lines []Line

	for x := -180.0; x < 180; x += graticuleStep {
		if math.Mod(x, graticuleMajorStep) == 0 {
			lines = append(lines, meridian(x, -90+poleEpsilon, 90-poleEpsilon))
			continue
		}
		lines = append(lines, meridian(x, -graticuleMinorLat-poleEpsilon, graticuleMinorLat+poleEpsilon))
	}
	for y := -graticuleMinorLat; y <= graticuleMinorLat; y += graticuleStep {
		lines = append(lines, parallel(y, -180, 180))
	}
	return lines
}

func meridian(x, y0, y1 float64) Line {
	var l Line
	for y := y0; y < y1; y += graticulePrecision {
		l = append(l, Position{x, y})
	}
	return append(l, Position{x, y1})
}

func parallel(y, x0, x1 float64) Line {
	var l Line
	for x := x0; x < x1; x += graticulePrecision {
		l = append(l, Position{x, y})
	}
	return append(l, Position{x1, y})
}
