// Package topology decodes the bundled world dataset, stored in the TopoJSON
// exchange format, into simplefeatures geometries.
package topology

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/peterstace/simplefeatures/geom"
)

var (
	// ErrNotTopology is returned when the document is not a TopoJSON topology.
	ErrNotTopology = errors.New("document is not a TopoJSON topology")
	// ErrUnsupportedGeometry is returned for geometry types the globe cannot draw.
	ErrUnsupportedGeometry = errors.New("unsupported topology geometry")
	// ErrObjectNotFound is returned when a named object is missing.
	ErrObjectNotFound = errors.New("topology object not found")
	// ErrArcIndex is returned when a geometry references a missing arc.
	ErrArcIndex = errors.New("arc index out of range")
)

// Topology is a decoded TopoJSON document. Arcs are already dequantized.
type Topology struct {
	Objects map[string]Object
	arcs    [][][2]float64
}

// Object is one named geometry (usually a GeometryCollection) of a topology.
type Object struct {
	Type       string                     `json:"type"`
	ID         json.RawMessage            `json:"id,omitempty"`
	Properties map[string]json.RawMessage `json:"properties,omitempty"`
	Arcs       json.RawMessage            `json:"arcs,omitempty"`
	Geometries []Object                   `json:"geometries,omitempty"`
}

type document struct {
	Type      string            `json:"type"`
	Transform *transform        `json:"transform"`
	Objects   map[string]Object `json:"objects"`
	Arcs      [][][]float64     `json:"arcs"`
}

type transform struct {
	Scale     [2]float64 `json:"scale"`
	Translate [2]float64 `json:"translate"`
}

// Decode reads a TopoJSON document.
func Decode(r io.Reader) (*Topology, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode topology: %w", err)
	}
	if doc.Type != "Topology" {
		return nil, fmt.Errorf("%w: type %q", ErrNotTopology, doc.Type)
	}

	t := &Topology{Objects: doc.Objects, arcs: make([][][2]float64, len(doc.Arcs))}
	for i, arc := range doc.Arcs {
		t.arcs[i] = decodeArc(arc, doc.Transform)
	}
	return t, nil
}

// Load decodes the TopoJSON file at path.
func Load(path string) (*Topology, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open topology: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// decodeArc dequantizes a delta-encoded arc. Without a transform the
// positions are absolute.
func decodeArc(arc [][]float64, tr *transform) [][2]float64 {
	out := make([][2]float64, 0, len(arc))
	var x, y float64
	for _, p := range arc {
		if len(p) < 2 {
			continue
		}
		if tr == nil {
			out = append(out, [2]float64{p[0], p[1]})
			continue
		}
		x += p[0]
		y += p[1]
		out = append(out, [2]float64{
			x*tr.Scale[0] + tr.Translate[0],
			y*tr.Scale[1] + tr.Translate[1],
		})
	}
	return out
}

// Arc returns the positions of arc i. Negative indices follow the TopoJSON
// convention: ^i is arc i reversed.
func (t *Topology) Arc(i int) ([][2]float64, error) {
	reversed := i < 0
	if reversed {
		i = ^i
	}
	if i >= len(t.arcs) {
		return nil, fmt.Errorf("%w: %d", ErrArcIndex, i)
	}
	arc := t.arcs[i]
	if !reversed {
		return arc, nil
	}
	out := make([][2]float64, len(arc))
	for j, p := range arc {
		out[len(arc)-1-j] = p
	}
	return out, nil
}

// ring stitches arcs into one closed ring. The first point of every arc
// after the first repeats the previous arc's last point and is dropped.
func (t *Topology) ring(indices []int) (geom.LineString, error) {
	var flat []float64
	for n, idx := range indices {
		arc, err := t.Arc(idx)
		if err != nil {
			return geom.LineString{}, err
		}
		start := 0
		if n > 0 {
			start = 1
		}
		for _, p := range arc[start:] {
			flat = append(flat, p[0], p[1])
		}
	}
	ls, err := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	if err != nil {
		return geom.LineString{}, fmt.Errorf("%w: ring %v: %v", ErrUnsupportedGeometry, indices, err)
	}
	return ls, nil
}

func (t *Topology) polygon(rings [][]int) (geom.Polygon, error) {
	lss := make([]geom.LineString, 0, len(rings))
	for _, r := range rings {
		ls, err := t.ring(r)
		if err != nil {
			return geom.Polygon{}, err
		}
		lss = append(lss, ls)
	}
	p, err := geom.NewPolygon(lss)
	if err != nil {
		return geom.Polygon{}, fmt.Errorf("%w: polygon: %v", ErrUnsupportedGeometry, err)
	}
	return p, nil
}

// MultiPolygon flattens an object, recursing through collections, into a
// single multipolygon. Null geometries contribute nothing.
func (t *Topology) MultiPolygon(o Object) (geom.MultiPolygon, error) {
	var polys []geom.Polygon
	if err := t.collect(o, &polys); err != nil {
		return geom.MultiPolygon{}, err
	}
	mp, err := geom.NewMultiPolygon(polys)
	if err != nil {
		return geom.MultiPolygon{}, fmt.Errorf("%w: multipolygon: %v", ErrUnsupportedGeometry, err)
	}
	return mp, nil
}

func (t *Topology) collect(o Object, polys *[]geom.Polygon) error {
	switch o.Type {
	case "", "null":
		return nil
	case "GeometryCollection":
		for _, g := range o.Geometries {
			if err := t.collect(g, polys); err != nil {
				return err
			}
		}
		return nil
	case "Polygon":
		var rings [][]int
		if err := json.Unmarshal(o.Arcs, &rings); err != nil {
			return fmt.Errorf("polygon arcs: %w", err)
		}
		p, err := t.polygon(rings)
		if err != nil {
			return err
		}
		*polys = append(*polys, p)
		return nil
	case "MultiPolygon":
		var parts [][][]int
		if err := json.Unmarshal(o.Arcs, &parts); err != nil {
			return fmt.Errorf("multipolygon arcs: %w", err)
		}
		for _, rings := range parts {
			p, err := t.polygon(rings)
			if err != nil {
				return err
			}
			*polys = append(*polys, p)
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedGeometry, o.Type)
	}
}
