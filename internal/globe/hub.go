package globe

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/Zachkp/globe-portfolio/internal/observability"
	"github.com/Zachkp/globe-portfolio/internal/topology"
)

var (
	// ErrSessionNotFound is returned for unknown or ended session IDs.
	ErrSessionNotFound = errors.New("globe session not found")
	// ErrTooManySessions is returned when the hub is full.
	ErrTooManySessions = errors.New("too many globe sessions")
)

// HubConfig configures a Hub.
type HubConfig struct {
	Options     Options
	MaxSessions int
	IdleTimeout time.Duration
	Clock       clockwork.Clock
}

// Hub keeps the mounted widgets of all connected browsers.
type Hub struct {
	world   *topology.World
	cfg     HubConfig
	clock   clockwork.Clock
	metrics *observability.Metrics
	logger  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	closed    bool
	sessions  map[string]*Session
	onUnmount []func(SessionSummary)
	wg        sync.WaitGroup
}

// NewHub creates a hub drawing world with the given configuration.
func NewHub(world *topology.World, cfg HubConfig, metrics *observability.Metrics, logger zerolog.Logger) (*Hub, error) {
	if _, err := NewWidget(world, cfg.Options); err != nil {
		return nil, err
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		world:    world,
		cfg:      cfg,
		clock:    cfg.Clock,
		metrics:  metrics,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
	}, nil
}

// OnUnmount registers fn to receive the summary of every ended session.
// It must be called before sessions are mounted.
func (h *Hub) OnUnmount(fn func(SessionSummary)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onUnmount = append(h.onUnmount, fn)
}

// Mount creates a widget for vp and starts its session.
func (h *Hub) Mount(vp Viewport, clientHash string) (*Session, error) {
	w, err := NewWidget(h.world, h.cfg.Options)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if h.cfg.MaxSessions > 0 && len(h.sessions) >= h.cfg.MaxSessions {
		h.mu.Unlock()
		h.metrics.Mounts.WithLabelValues("full").Inc()
		return nil, ErrTooManySessions
	}
	if err := w.Mount(vp); err != nil {
		h.mu.Unlock()
		h.metrics.Mounts.WithLabelValues("unavailable").Inc()
		return nil, err
	}
	// The client receives the mounted surface as a snapshot.
	w.Surface().Discard()
	s := newSession(uuid.NewString(), clientHash, w, vp, h.clock, h.metrics, h.logger)
	ctx, cancel := context.WithCancel(h.ctx)
	s.cancel = cancel
	s.onEnd = h.ended
	h.sessions[s.ID] = s
	h.wg.Add(1)
	h.mu.Unlock()

	h.metrics.Mounts.WithLabelValues("mounted").Inc()
	h.metrics.Redraws.WithLabelValues("mount").Inc()
	h.metrics.SessionsActive.Inc()
	s.logger.Debug().Float64("width", vp.Width).Float64("height", vp.Height).Msg("globe mounted")

	go func() {
		defer h.wg.Done()
		s.Run(ctx)
	}()
	return s, nil
}

func (h *Hub) ended(s *Session) {
	s.setReason(ReasonShutdown)
	h.mu.Lock()
	delete(h.sessions, s.ID)
	hooks := append([]func(SessionSummary){}, h.onUnmount...)
	h.mu.Unlock()

	h.metrics.SessionsActive.Dec()
	sum := s.Summary()
	h.metrics.Unmounts.WithLabelValues(sum.Reason).Inc()
	s.logger.Debug().
		Str("reason", sum.Reason).
		Int64("drags", sum.Drags).
		Int64("ticks", sum.Ticks).
		Dur("lifetime", sum.Ended.Sub(sum.Started)).
		Msg("globe unmounted")
	for _, fn := range hooks {
		fn(sum)
	}
}

// Get returns the running session with the given ID.
func (h *Hub) Get(id string) (*Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Unmount ends a session and waits for its timer to stop.
func (h *Hub) Unmount(id, reason string) error {
	s, err := h.Get(id)
	if err != nil {
		return err
	}
	s.Close(reason)
	return nil
}

// Len returns the number of mounted widgets.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// RunReaper unmounts sessions idle for longer than the idle timeout, checking
// every half timeout, until ctx is cancelled.
func (h *Hub) RunReaper(ctx context.Context) {
	if h.cfg.IdleTimeout <= 0 {
		return
	}
	ticker := h.clock.NewTicker(h.cfg.IdleTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			h.reap()
		}
	}
}

func (h *Hub) reap() {
	cutoff := h.clock.Now().Add(-h.cfg.IdleTimeout)
	h.mu.Lock()
	var idle []*Session
	for _, s := range h.sessions {
		if s.LastActive().Before(cutoff) {
			idle = append(idle, s)
		}
	}
	h.mu.Unlock()

	for _, s := range idle {
		s.Close(ReasonIdle)
	}
	if len(idle) > 0 {
		h.logger.Info().Int("sessions", len(idle)).Msg("reaped idle globe sessions")
	}
}

// Close unmounts every widget and waits for their sessions to end.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	h.cancel()
	h.wg.Wait()
}
