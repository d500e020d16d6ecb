// Package globe implements the rotating globe widget: an orthographic view
// of the world that wobbles on a timer, turns under pointer drags and marks
// places the site's owner has lived in or wants to visit.
package globe

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/Zachkp/globe-portfolio/internal/geo"
	"github.com/Zachkp/globe-portfolio/internal/surface"
	"github.com/Zachkp/globe-portfolio/internal/topology"
)

var (
	// ErrViewportUnavailable is returned when mounting without a usable
	// viewport. The widget stays unmounted and may be mounted later.
	ErrViewportUnavailable = errors.New("viewport not available")
	// ErrAlreadyMounted is returned when mounting a mounted widget.
	ErrAlreadyMounted = errors.New("widget already mounted")
	// ErrNotMounted is returned when driving a widget that is not mounted.
	ErrNotMounted = errors.New("widget not mounted")
)

const (
	colorBackground = "#010D12"
	colorCountry    = "#243E54"
	colorGraticule  = "#cccccc"
	colorWhite      = "white"
	colorAccent     = "orange"
	colorNone       = "none"
)

// Element IDs of the static layers.
const (
	idBackground = "background"
	idOcean      = "ocean"
	idCountries  = "countries"
	idGraticule  = "graticule"
	idHighlight  = "highlight"
	idShading    = "shading"
	idMarkers    = "markers"
	idLabels     = "labels"

	classCountry = "country"
	classMarker  = "marker"
	classLabel   = "marker-label"
)

// Options tune a widget.
type Options struct {
	ScaleZoom           float64
	Sensitivity         float64
	InitialRotation     geo.Rotation
	TickInterval        time.Duration
	VisibilityThreshold float64
	Graticule           bool
	Markers             []Marker
}

// DefaultOptions returns the tuning the site ships with.
func DefaultOptions() Options {
	return Options{
		ScaleZoom:           0.8,
		Sensitivity:         50,
		InitialRotation:     geo.Rotation{Lambda: 98, Phi: 10},
		TickInterval:        200 * time.Millisecond,
		VisibilityThreshold: math.Pi / 2,
		Graticule:           true,
		Markers:             DefaultMarkers(),
	}
}

func (o Options) validate() error {
	if o.ScaleZoom <= 0 || o.Sensitivity <= 0 || o.TickInterval <= 0 {
		return fmt.Errorf("scale zoom, sensitivity and tick interval must be positive")
	}
	if o.VisibilityThreshold <= 0 {
		return fmt.Errorf("visibility threshold must be positive")
	}
	for _, m := range o.Markers {
		if err := m.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Viewport is the size of the browser window the globe is drawn into.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ProjectionState is the mutable part of the projection.
type ProjectionState struct {
	Rotation   geo.Rotation `json:"rotation"`
	Scale      float64      `json:"scale"`
	TranslateX float64      `json:"translateX"`
	TranslateY float64      `json:"translateY"`
}

// Projection returns the orthographic projection for the state.
func (s ProjectionState) Projection() geo.Orthographic {
	return geo.Orthographic{
		Rotate:     s.Rotation,
		Scale:      s.Scale,
		TranslateX: s.TranslateX,
		TranslateY: s.TranslateY,
	}
}

// Widget owns one projection state and the surface it is drawn on. It is
// not safe for concurrent use; a Session serializes access to it.
type Widget struct {
	world     *topology.World
	opts      Options
	graticule []geo.Line

	mounted bool
	state   ProjectionState
	surf    *surface.Surface
	// last elapsed time folded into the rotation by Tick
	lastTick time.Duration
}

// NewWidget creates an unmounted widget.
func NewWidget(world *topology.World, opts Options) (*Widget, error) {
	if world == nil {
		return nil, errors.New("globe: nil world")
	}
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("globe options: %w", err)
	}
	w := &Widget{world: world, opts: opts}
	if opts.Graticule {
		w.graticule = geo.Graticule()
	}
	return w, nil
}

// Mount sizes the globe to vp and draws it. It succeeds at most once until
// Unmount; a zero-sized viewport leaves the widget unmounted.
func (w *Widget) Mount(vp Viewport) error {
	if w.mounted {
		return ErrAlreadyMounted
	}
	if !(vp.Width > 0) || !(vp.Height > 0) {
		return ErrViewportUnavailable
	}

	// The offsets are fixed for the lifetime of the mount.
	scale := w.opts.ScaleZoom * vp.Width
	w.state = ProjectionState{
		Rotation:   w.opts.InitialRotation.Wrapped(),
		Scale:      scale,
		TranslateX: vp.Width / 2,
		TranslateY: 0.3*vp.Height + scale,
	}
	w.lastTick = 0
	w.surf = surface.New(vp.Width, vp.Height)
	w.drawStatic()
	w.redraw()
	w.mounted = true
	return nil
}

// Mounted reports whether the widget is mounted.
func (w *Widget) Mounted() bool { return w.mounted }

// State returns the current projection state.
func (w *Widget) State() ProjectionState { return w.state }

// Offsets returns the screen position of the globe's centre.
func (w *Widget) Offsets() (x, y float64) { return w.state.TranslateX, w.state.TranslateY }

// Surface returns the drawing surface, or nil when unmounted.
func (w *Widget) Surface() *surface.Surface { return w.surf }

// Drag turns the globe by a pointer movement of (dx, dy) pixels.
func (w *Widget) Drag(dx, dy float64) error {
	if !w.mounted {
		return ErrNotMounted
	}
	k := w.opts.Sensitivity / w.state.Scale
	w.state.Rotation.Lambda += dx * k
	w.state.Rotation.Phi -= dy * k
	w.state.Rotation = w.state.Rotation.Wrapped()
	w.redraw()
	return nil
}

// Tick advances the auto-rotation to elapsed time since the timer started.
// The wobble is a function of elapsed time alone, so ticking twice at the
// same time changes nothing and late ticks catch up.
func (w *Widget) Tick(elapsed time.Duration) error {
	if !w.mounted {
		return ErrNotMounted
	}
	prev := w.lastTick
	w.lastTick = elapsed
	if elapsed == prev {
		return nil
	}
	interval := ms(w.opts.TickInterval)
	w.state.Rotation.Lambda += wobbleLambda(ms(elapsed), interval) - wobbleLambda(ms(prev), interval)
	w.state.Rotation.Phi += wobblePhi(ms(elapsed), interval) - wobblePhi(ms(prev), interval)
	w.state.Rotation = w.state.Rotation.Wrapped()
	w.redraw()
	return nil
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

// wobbleLambda and wobblePhi integrate the per-tick nudges 0.04*sin(t/2000)
// and 0.01*sin(t/1500) over ticks interval milliseconds apart.
func wobbleLambda(t, interval float64) float64 {
	return 0.04 * (2000 / interval) * (1 - math.Cos(t/2000))
}

func wobblePhi(t, interval float64) float64 {
	return 0.01 * (1500 / interval) * (1 - math.Cos(t/1500))
}

// Unmount tears the surface down. The widget may be mounted again.
func (w *Widget) Unmount() {
	w.mounted = false
	w.surf = nil
	w.lastTick = 0
}

// MarkerViews returns the markers as currently drawn.
func (w *Widget) MarkerViews() []MarkerView {
	proj := w.state.Projection()
	centre := proj.Center()

	views := make([]MarkerView, len(w.opts.Markers))
	for i, m := range w.opts.Markers {
		views[i] = view(m, proj, centre, w.opts.VisibilityThreshold)
	}
	return views
}

func (w *Widget) drawStatic() {
	s := w.surf
	cx, cy, r := w.state.TranslateX, w.state.TranslateY, w.state.Scale

	s.MustAppend(surface.Root, "rect", idBackground).
		SetFloat("width", s.Width).
		SetFloat("height", s.Height).
		Set("fill", colorBackground)

	s.MustAppend(surface.Root, "circle", idOcean).
		Set("fill", colorBackground).
		Set("stroke", colorWhite).
		Set("stroke-width", "0.2").
		SetFloat("cx", cx).
		SetFloat("cy", cy).
		SetFloat("r", r)

	s.MustAppend(surface.Root, "g", idCountries).Set("class", "countries")

	if w.opts.Graticule {
		s.MustAppend(surface.Root, "path", idGraticule).
			Set("class", "graticule").
			Set("fill", colorNone).
			Set("stroke", colorGraticule).
			Set("stroke-width", "0.1px")
	}

	for _, layer := range []struct{ id, gradient string }{
		{idHighlight, "globe_highlight"},
		{idShading, "globe_shading"},
	} {
		s.MustAppend(surface.Root, "circle", layer.id).
			SetFloat("cx", cx).
			SetFloat("cy", cy).
			SetFloat("r", r).
			Set("style", "fill: url(#"+layer.gradient+")")
	}

	s.MustAppend(surface.Root, "g", idMarkers)
	s.MustAppend(surface.Root, "g", idLabels)
}

// redraw re-projects every path and marker for the current state.
func (w *Widget) redraw() {
	proj := w.state.Projection()
	path := proj.Path()

	keys := make([]string, len(w.world.Countries))
	for i := range keys {
		keys[i] = strconv.Itoa(i)
	}
	// Keys are indices into a fixed slice, so Join cannot fail here.
	_ = w.surf.Join(idCountries, classCountry, "path", keys, func(e *surface.Element, i int) {
		c := w.world.Countries[i]
		e.Set("d", path.MultiPolygon(c.Geometry)).
			Set("stroke", colorWhite).
			Set("stroke-width", "0.5").
			Set("fill", colorCountry)
		if c.Name != "" {
			e.Set("data-name", c.Name)
		}
	})

	if w.opts.Graticule {
		if g, ok := w.surf.Get(idGraticule); ok {
			g.Set("d", path.Lines(w.graticule))
		}
	}

	w.drawMarkers()
}

func (w *Widget) drawMarkers() {
	views := w.MarkerViews()
	keys := make([]string, len(views))
	var visible []string
	var labelled []MarkerView
	for i, v := range views {
		keys[i] = strconv.Itoa(i)
		if v.Visible {
			visible = append(visible, keys[i])
			labelled = append(labelled, v)
		}
	}

	_ = w.surf.Join(idMarkers, classMarker, "circle", keys, func(e *surface.Element, i int) {
		v := views[i]
		e.SetFloat("cx", v.X).
			SetFloat("cy", v.Y).
			Set("fill", v.Fill).
			Set("stroke", v.Stroke).
			SetFloat("stroke-width", v.StrokeWidth).
			Set("opacity", "0.6").
			SetFloat("r", v.Radius)
	})

	// Labels of suppressed markers are removed, not hidden.
	_ = w.surf.Join(idLabels, classLabel, "text", visible, func(e *surface.Element, i int) {
		v := labelled[i]
		e.SetText(v.Label)
		e.SetFloat("x", v.LabelX()).
			SetFloat("y", v.Y).
			Set("fill", colorWhite).
			Set("opacity", "0.5").
			Set("dominant-baseline", "middle")
	})
}
