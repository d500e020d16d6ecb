package geo

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/s2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProjection() Orthographic {
	return Orthographic{
		Rotate:     Rotation{Lambda: 98, Phi: 10},
		Scale:      800,
		TranslateX: 500,
		TranslateY: 1040,
	}
}

func TestOrthographic_ProjectMatchesReference(t *testing.T) {
	p := testProjection()

	tests := []struct {
		name     string
		lon, lat float64
		x, y     float64
		visible  bool
	}{
		{"san francisco", -122.4194, 37.7749, 238.58309336714143, 457.41449047002675, true},
		{"new york", -74.006, 40.7128, 746.5833904938055, 429.91371313570266, true},
		{"paris", 2.35, 48.85, 1017.8604086891942, 463.1834467832382, false},
		{"beijing", 116.4, 39.9, 153.2616024374979, 622.5715478201425, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pt := Position{tt.lon, tt.lat}
			xy := p.Project(pt.Point())
			assert.InDelta(t, tt.x, xy.X, 1e-6)
			assert.InDelta(t, tt.y, xy.Y, 1e-6)
			assert.Equal(t, xy, p.FromLatLng(pt.LatLng()))
			assert.Equal(t, tt.visible, p.Visible(pt.Point()))
		})
	}
}

func TestOrthographic_ProjectWithGamma(t *testing.T) {
	p := Orthographic{Rotate: Rotation{Lambda: 30, Phi: -20, Gamma: 15}, Scale: 100}
	xy := p.FromLatLng(s2.LatLngFromDegrees(20, 10))
	assert.InDelta(t, 56.39801095332236, xy.X, 1e-9)
	assert.InDelta(t, -22.89623633380685, xy.Y, 1e-9)
}

func TestOrthographic_CenterIsAntipodeOfRotation(t *testing.T) {
	c := testProjection().Center()
	assert.InDelta(t, -98.0, c[0], 1e-9)
	assert.InDelta(t, -10.0, c[1], 1e-9)
}

func TestOrthographic_InvertRoundTrip(t *testing.T) {
	p := testProjection()
	xy := p.FromLatLng(s2.LatLngFromDegrees(40.7128, -74.006))

	lon, lat, ok := p.Invert(xy.X, xy.Y)
	require.True(t, ok)
	assert.InDelta(t, -74.006, lon, 1e-9)
	assert.InDelta(t, 40.7128, lat, 1e-9)

	ll := p.ToLatLng(xy)
	assert.InDelta(t, -74.006, ll.Lng.Degrees(), 1e-9)
	assert.InDelta(t, 40.7128, ll.Lat.Degrees(), 1e-9)
	assert.InDelta(t, 0, p.Unproject(xy).Distance(Position{-74.006, 40.7128}.Point()).Radians(), 1e-12)
}

func TestOrthographic_UnprojectClampsToHorizon(t *testing.T) {
	p := frontProjection()
	pt := p.Unproject(r2.Point{X: p.TranslateX + 2*p.Scale, Y: p.TranslateY})

	assert.InDelta(t, 1, pt.Norm(), 1e-12)
	ll := s2.LatLngFromPoint(pt)
	assert.InDelta(t, 90, ll.Lng.Degrees(), 1e-9)
	assert.InDelta(t, 0, ll.Lat.Degrees(), 1e-9)
}

func TestOrthographic_ScreenInterpolationIsLinear(t *testing.T) {
	p := frontProjection()
	a, b := r2.Point{X: 0, Y: 10}, r2.Point{X: 10, Y: 30}

	assert.Equal(t, r2.Point{X: 5, Y: 20}, p.Interpolate(0.5, a, b))
	assert.Equal(t, r2.Point{}, p.WrapDistance())
}

func TestOrthographic_InvertOutsideDisc(t *testing.T) {
	p := testProjection()
	_, _, ok := p.Invert(p.TranslateX+p.Scale+1, p.TranslateY)
	assert.False(t, ok)

	_, _, ok = Orthographic{}.Invert(0, 0)
	assert.False(t, ok)
}

func TestRotation_InvertUndoesRotate(t *testing.T) {
	r := Rotation{Lambda: 98, Phi: 10, Gamma: -7}
	lon, lat := r.Rotate(-118.2437, 34.0522)
	lon, lat = r.Invert(lon, lat)
	assert.InDelta(t, -118.2437, lon, 1e-9)
	assert.InDelta(t, 34.0522, lat, 1e-9)
}

func TestRotation_Wrapped(t *testing.T) {
	assert.InDelta(t, -170.0, Rotation{Lambda: 190}.Wrapped().Lambda, 1e-9)
	assert.InDelta(t, 180.0, Rotation{Lambda: -180}.Wrapped().Lambda, 1e-9)
	assert.InDelta(t, 98.0, Rotation{Lambda: 98 + 720}.Wrapped().Lambda, 1e-9)
	assert.InDelta(t, 10.0, Rotation{Lambda: 5, Phi: 10}.Wrapped().Phi, 1e-9)
}

func TestDistance(t *testing.T) {
	center := Position{-98, -10}

	assert.InDelta(t, 0.9242781199704967, Distance(Position{-122.4194, 37.7749}, center), 1e-12)
	assert.InDelta(t, 1.8205670528101894, Distance(Position{2.35, 48.85}, center), 1e-12)
	assert.InDelta(t, math.Pi/2, Distance(Position{0, 0}, Position{90, 0}), 1e-12)
	assert.InDelta(t, math.Pi, Distance(Position{0, 0}, Position{180, 0}), 1e-12)
	assert.Zero(t, Distance(center, center))
}

func TestGraticule(t *testing.T) {
	lines := Graticule()
	// 36 meridians and 17 parallels.
	require.Len(t, lines, 53)

	// Major meridians reach the poles, minor ones stop at 80 degrees.
	assert.InDelta(t, -90, lines[0][0][1], 1e-5)
	assert.InDelta(t, -80, lines[1][0][1], 1e-5)

	last := lines[len(lines)-1]
	assert.InDelta(t, 80, last[0][1], 1e-9)
	assert.InDelta(t, 180, last[len(last)-1][0], 1e-9)
}
