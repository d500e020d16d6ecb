package topology

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/peterstace/simplefeatures/geom"
)

//go:embed data/countries-110m.json
var bundled []byte

// Feature is one country outline.
type Feature struct {
	ID       string
	Name     string
	Geometry geom.MultiPolygon
}

// World is the read-only geometry drawn on the globe.
type World struct {
	Countries []Feature
	Land      geom.MultiPolygon
}

const (
	countriesObject = "countries"
	landObject      = "land"
)

// World extracts the countries and land objects. The land mask is optional.
func (t *Topology) World() (*World, error) {
	countries, ok := t.Objects[countriesObject]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, countriesObject)
	}

	w := &World{}
	geoms := countries.Geometries
	if countries.Type != "GeometryCollection" {
		geoms = []Object{countries}
	}
	for _, g := range geoms {
		mp, err := t.MultiPolygon(g)
		if err != nil {
			return nil, fmt.Errorf("country %s: %w", rawString(g.ID), err)
		}
		w.Countries = append(w.Countries, Feature{
			ID:       rawString(g.ID),
			Name:     rawString(g.Properties["name"]),
			Geometry: mp,
		})
	}

	if land, ok := t.Objects[landObject]; ok {
		mp, err := t.MultiPolygon(land)
		if err != nil {
			return nil, fmt.Errorf("land: %w", err)
		}
		w.Land = mp
	}
	return w, nil
}

// rawString renders a JSON id or name, which may be a string or a number.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return string(raw)
}

var (
	bundledOnce  sync.Once
	bundledWorld *World
	bundledErr   error
)

// Bundled returns the world embedded in the binary. It is decoded once.
func Bundled() (*World, error) {
	bundledOnce.Do(func() {
		t, err := Decode(bytes.NewReader(bundled))
		if err != nil {
			bundledErr = err
			return
		}
		bundledWorld, bundledErr = t.World()
	})
	return bundledWorld, bundledErr
}

// LoadWorld returns the world from the TopoJSON file at path, or the
// bundled world when path is empty.
func LoadWorld(path string) (*World, error) {
	if path == "" {
		return Bundled()
	}
	t, err := Load(path)
	if err != nil {
		return nil, err
	}
	return t.World()
}

// Layer names accepted by GeoJSON.
const (
	LayerCountries = "countries"
	LayerLand      = "land"
)

// GeoJSON exports a layer as a feature collection.
func (w *World) GeoJSON(layer string) (geom.GeoJSONFeatureCollection, error) {
	switch layer {
	case LayerCountries, "":
		fc := make(geom.GeoJSONFeatureCollection, 0, len(w.Countries))
		for _, c := range w.Countries {
			f := geom.GeoJSONFeature{
				Geometry:   c.Geometry.AsGeometry(),
				Properties: map[string]interface{}{"name": c.Name},
			}
			// Disputed areas have no ISO code.
			if c.ID != "" {
				f.ID = c.ID
			}
			fc = append(fc, f)
		}
		return fc, nil
	case LayerLand:
		return geom.GeoJSONFeatureCollection{{
			Geometry:   w.Land.AsGeometry(),
			Properties: map[string]interface{}{},
		}}, nil
	default:
		return nil, fmt.Errorf("%w: layer %q", ErrObjectNotFound, layer)
	}
}
