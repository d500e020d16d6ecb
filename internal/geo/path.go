package geo

import (
	"math"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"github.com/peterstace/simplefeatures/geom"
)

// Ring is a closed sequence of positions. The closing position may or may
// not repeat the first one. Exterior rings wind clockwise, holes
// counter-clockwise, so the interior is always on the right-hand side.
type Ring []Position

// maxEdge is the longest great-circle edge projected without being
// subdivided.
const maxEdge = s1.Angle(graticulePrecision) * s1.Degree

// PathGenerator renders geographic shapes as SVG path data under an
// orthographic projection, clipping at the horizon.
type PathGenerator struct {
	proj Orthographic
	rot  rotator
}

// Path returns a generator for the current state of p.
func (p Orthographic) Path() *PathGenerator {
	return &PathGenerator{proj: p, rot: newRotator(p.Rotate)}
}

// Polygon renders a polygon given as exterior ring followed by holes.
func (g *PathGenerator) Polygon(rings []Ring) string {
	var b strings.Builder
	for _, r := range rings {
		g.ring(&b, r)
	}
	return b.String()
}

// MultiPolygon renders a simplefeatures multipolygon.
func (g *PathGenerator) MultiPolygon(mp geom.MultiPolygon) string {
	var b strings.Builder
	for i := 0; i < mp.NumPolygons(); i++ {
		poly := mp.PolygonN(i)
		if poly.IsEmpty() {
			continue
		}
		g.ring(&b, ringOf(poly.ExteriorRing()))
		for j := 0; j < poly.NumInteriorRings(); j++ {
			g.ring(&b, ringOf(poly.InteriorRingN(j)))
		}
	}
	return b.String()
}

// Lines renders open polylines such as the graticule.
func (g *PathGenerator) Lines(lines []Line) string {
	var b strings.Builder
	for _, l := range lines {
		g.line(&b, l)
	}
	return b.String()
}

func ringOf(ls geom.LineString) Ring {
	seq := ls.Coordinates()
	r := make(Ring, seq.Length())
	for i := range r {
		xy := seq.GetXY(i)
		r[i] = Position{xy.X, xy.Y}
	}
	return r
}

// rotated densifies the positions along great circles and rotates them
// into view space.
func (g *PathGenerator) rotated(ps []Position, closed bool) []r3.Vector {
	if len(ps) == 0 {
		return nil
	}
	in := make([]s2.Point, len(ps))
	for i, p := range ps {
		in[i] = p.Point()
	}
	if closed && len(in) > 1 && in[0] == in[len(in)-1] {
		in = in[:len(in)-1]
	}

	out := make([]r3.Vector, 0, len(in))
	n := len(in)
	edges := n - 1
	if closed {
		edges = n
	}
	for i := 0; i < n; i++ {
		out = append(out, g.rot.forward(in[i].Vector))
		if i >= edges {
			continue
		}
		for _, v := range subdivide(in[i], in[(i+1)%n]) {
			out = append(out, g.rot.forward(v.Vector))
		}
	}
	return out
}

// subdivide returns the interior points of the great-circle arc from a
// to b so that no piece is longer than maxEdge. Antipodal pairs have no
// unique arc and are left alone.
func subdivide(a, b s2.Point) []s2.Point {
	omega := a.Distance(b)
	if omega <= maxEdge || math.Pi-omega.Radians() < 1e-9 {
		return nil
	}
	steps := int(math.Ceil(float64(omega / maxEdge)))
	pts := make([]s2.Point, 0, steps-1)
	for s := 1; s < steps; s++ {
		pts = append(pts, s2.Interpolate(float64(s)/float64(steps), a, b))
	}
	return pts
}

// horizon returns the point where the great circle from a (visible) to b
// (hidden) crosses the clip circle.
func horizon(a, b r3.Vector) r3.Vector {
	p := a.Add(b.Sub(a).Mul(a.X / (a.X - b.X)))
	p.X = 0
	return p.Normalize()
}

func visible(v r3.Vector) bool { return v.X > 0 }

type run struct {
	pts      []r3.Vector
	entry    float64
	exit     float64
	consumed bool
}

func angleOf(v r3.Vector) float64 { return math.Atan2(v.Z, v.Y) }

func (g *PathGenerator) ring(b *strings.Builder, r Ring) {
	pts := g.rotated(r, true)
	n := len(pts)
	if n < 3 {
		return
	}

	hidden := 0
	for _, p := range pts {
		if !visible(p) {
			hidden++
		}
	}
	switch hidden {
	case 0:
		g.moveTo(b, pts[0])
		for _, p := range pts[1:] {
			g.lineTo(b, p)
		}
		b.WriteByte('Z')
		return
	case n:
		// Entirely on the far side.
		return
	}

	start := 0
	for i := 0; i < n; i++ {
		if visible(pts[i]) && !visible(pts[(i+n-1)%n]) {
			start = i
			break
		}
	}

	// Walking from an entry, the point before it is hidden, so every run
	// is closed by the time the walk wraps around.
	var runs []*run
	var cur *run
	for k := 0; k < n; k++ {
		i := (start + k) % n
		prev := pts[(i+n-1)%n]
		p := pts[i]
		switch {
		case visible(p) && !visible(prev):
			e := horizon(p, prev)
			cur = &run{pts: []r3.Vector{e, p}, entry: angleOf(e)}
		case visible(p):
			cur.pts = append(cur.pts, p)
		case visible(prev):
			e := horizon(prev, p)
			cur.pts = append(cur.pts, e)
			cur.exit = angleOf(e)
			runs = append(runs, cur)
			cur = nil
		}
	}

	g.rejoin(b, runs)
}

// rejoin stitches clipped runs together along the horizon. Walking from a
// run's exit the clip circle is followed clockwise, which keeps the
// polygon interior on the right, until the next run's entry.
func (g *PathGenerator) rejoin(b *strings.Builder, runs []*run) {
	for _, first := range runs {
		if first.consumed {
			continue
		}
		r := first
		g.moveTo(b, r.pts[0])
		for {
			r.consumed = true
			for _, p := range r.pts[1:] {
				g.lineTo(b, p)
			}
			next := nextEntry(runs, r.exit)
			g.arcTo(b, r.exit, next.entry)
			if next.consumed {
				break
			}
			r = next
		}
		b.WriteByte('Z')
	}
}

func nextEntry(runs []*run, from float64) *run {
	var best *run
	bestSpan := math.Inf(1)
	for _, r := range runs {
		span := clockwiseSpan(from, r.entry)
		if span < bestSpan {
			best, bestSpan = r, span
		}
	}
	return best
}

// clockwiseSpan is the angle swept walking clockwise from a to b, in [0, 2π).
func clockwiseSpan(a, b float64) float64 {
	d := math.Mod(a-b, tau)
	if d < 0 {
		d += tau
	}
	return d
}

func (g *PathGenerator) line(b *strings.Builder, l Line) {
	pts := g.rotated(l, false)
	drawing := false
	for i, p := range pts {
		switch {
		case visible(p) && !drawing:
			if i > 0 {
				g.moveTo(b, horizon(p, pts[i-1]))
				g.lineTo(b, p)
			} else {
				g.moveTo(b, p)
			}
			drawing = true
		case visible(p):
			g.lineTo(b, p)
		case drawing:
			g.lineTo(b, horizon(pts[i-1], p))
			drawing = false
		}
	}
}

func (g *PathGenerator) moveTo(b *strings.Builder, v r3.Vector) {
	pt := g.proj.screen(v)
	b.WriteByte('M')
	writePoint(b, pt.X, pt.Y)
}

func (g *PathGenerator) lineTo(b *strings.Builder, v r3.Vector) {
	pt := g.proj.screen(v)
	b.WriteByte('L')
	writePoint(b, pt.X, pt.Y)
}

// arcTo follows the horizon clockwise between two view-space angles.
// Clockwise on screen is the positive-angle direction in SVG, so the sweep
// flag is 1.
func (g *PathGenerator) arcTo(b *strings.Builder, from, to float64) {
	span := clockwiseSpan(from, to)
	x := g.proj.TranslateX + g.proj.Scale*math.Cos(to)
	y := g.proj.TranslateY - g.proj.Scale*math.Sin(to)
	if span < 1e-9 {
		b.WriteByte('L')
		writePoint(b, x, y)
		return
	}
	large := "0"
	if span > math.Pi {
		large = "1"
	}
	r := formatCoord(g.proj.Scale)
	b.WriteString("A" + r + "," + r + ",0," + large + ",1,")
	writePoint(b, x, y)
}

func writePoint(b *strings.Builder, x, y float64) {
	b.WriteString(formatCoord(x))
	b.WriteByte(',')
	b.WriteString(formatCoord(y))
}

func formatCoord(v float64) string {
	v = math.Round(v*1000) / 1000
	if v == 0 {
		v = 0 // drop negative zero
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
