package globe

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/Zachkp/globe-portfolio/internal/observability"
	"github.com/Zachkp/globe-portfolio/internal/surface"
)

// ErrSessionClosed is returned when using a session after its widget was
// unmounted.
var ErrSessionClosed = errors.New("globe session closed")

// Unmount reasons.
const (
	ReasonClient   = "client"
	ReasonIdle     = "idle"
	ReasonStream   = "stream"
	ReasonShutdown = "shutdown"
)

type dragEvent struct{ dx, dy float64 }

// SessionSummary describes a session once it has ended.
type SessionSummary struct {
	ID         string
	ClientHash string
	Viewport   Viewport
	Started    time.Time
	Ended      time.Time
	Drags      int64
	Ticks      int64
	Reason     string
}

// Session runs one mounted widget. All widget mutations happen on the Run
// goroutine; readers take mu to look at the surface between them.
type Session struct {
	ID         string
	ClientHash string

	widget   *Widget
	viewport Viewport
	clock    clockwork.Clock
	metrics  *observability.Metrics
	logger   zerolog.Logger
	interval time.Duration

	mu     sync.Mutex
	drags  chan dragEvent
	notify chan struct{}
	done   chan struct{}
	cancel context.CancelFunc
	onEnd  func(*Session)

	started    time.Time
	lastActive atomic.Int64
	dragCount  atomic.Int64
	tickCount  atomic.Int64
	reason     string
	ended      time.Time
}

func newSession(id, clientHash string, w *Widget, vp Viewport, clock clockwork.Clock, metrics *observability.Metrics, logger zerolog.Logger) *Session {
	s := &Session{
		ID:         id,
		ClientHash: clientHash,
		widget:     w,
		viewport:   vp,
		clock:      clock,
		metrics:    metrics,
		logger:     logger.With().Str("session", id).Logger(),
		interval:   w.opts.TickInterval,
		drags:      make(chan dragEvent, 64),
		notify:     make(chan struct{}, 1),
		done:       make(chan struct{}),
		started:    clock.Now(),
	}
	s.touch()
	return s
}

// Run drives the auto-rotate timer and applies drags until ctx is
// cancelled, then unmounts the widget.
func (s *Session) Run(ctx context.Context) {
	defer s.unmount()
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	start := s.clock.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			elapsed := s.clock.Since(start)
			s.tickCount.Add(1)
			s.apply("tick", func(w *Widget) error { return w.Tick(elapsed) })
		case d := <-s.drags:
			s.dragCount.Add(1)
			s.metrics.DragEvents.Inc()
			s.apply("drag", func(w *Widget) error { return w.Drag(d.dx, d.dy) })
		}
	}
}

func (s *Session) apply(cause string, fn func(*Widget) error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	begin := time.Now()
	if err := fn(s.widget); err != nil {
		s.logger.Warn().Err(err).Str("cause", cause).Msg("redraw skipped")
		return
	}
	s.metrics.RedrawDuration.Observe(time.Since(begin).Seconds())
	s.metrics.Redraws.WithLabelValues(cause).Inc()

	if s.widget.Surface().Pending() {
		select {
		case s.notify <- struct{}{}:
		default:
		}
	}
}

func (s *Session) unmount() {
	s.mu.Lock()
	s.widget.Unmount()
	s.ended = s.clock.Now()
	s.mu.Unlock()
	if s.onEnd != nil {
		s.onEnd(s)
	}
	close(s.done)
}

// Drag queues a pointer movement for the Run goroutine.
func (s *Session) Drag(ctx context.Context, dx, dy float64) error {
	s.touch()
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	select {
	case s.drags <- dragEvent{dx, dy}:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next waits for the next redraw and returns its patches. Patches of
// redraws that happened while nobody was waiting are coalesced.
func (s *Session) Next(ctx context.Context) ([]surface.Patch, error) {
	for {
		s.mu.Lock()
		if !s.widget.Mounted() {
			s.mu.Unlock()
			return nil, ErrSessionClosed
		}
		if surf := s.widget.Surface(); surf.Pending() {
			patches := surf.Flush()
			s.mu.Unlock()
			s.touch()
			s.metrics.PatchesSent.Add(float64(len(patches)))
			return patches, nil
		}
		s.mu.Unlock()

		select {
		case <-s.notify:
		case <-s.done:
			return nil, ErrSessionClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Snapshot writes the whole surface as SVG. It does not consume pending
// patches, so a stream opened after the snapshot may repeat changes the
// snapshot already shows.
func (s *Session) Snapshot(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.widget.Mounted() {
		return ErrSessionClosed
	}
	return s.widget.Surface().WriteSVG(w)
}

// State returns the current projection state.
func (s *Session) State() ProjectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.widget.State()
}

// Markers returns the markers as currently drawn.
func (s *Session) Markers() []MarkerView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.widget.MarkerViews()
}

// Done is closed once the widget is unmounted.
func (s *Session) Done() <-chan struct{} { return s.done }

// Close unmounts the widget and waits until the session has ended.
func (s *Session) Close(reason string) {
	s.setReason(reason)
	s.cancel()
	<-s.done
}

// setReason records why the session ended; the first reason wins.
func (s *Session) setReason(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reason == "" {
		s.reason = reason
	}
}

func (s *Session) touch() { s.lastActive.Store(s.clock.Now().UnixNano()) }

// LastActive is the time of the last client request.
func (s *Session) LastActive() time.Time { return time.Unix(0, s.lastActive.Load()) }

// Summary describes the session. Ended is zero while it is running.
func (s *Session) Summary() SessionSummary {
	s.mu.Lock()
	ended, reason := s.ended, s.reason
	s.mu.Unlock()
	return SessionSummary{
		ID:         s.ID,
		ClientHash: s.ClientHash,
		Viewport:   s.viewport,
		Started:    s.started,
		Ended:      ended,
		Drags:      s.dragCount.Load(),
		Ticks:      s.tickCount.Load(),
		Reason:     reason,
	}
}
