package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Zachkp/globe-portfolio/internal/config"
	"github.com/Zachkp/globe-portfolio/internal/geo"
	"github.com/Zachkp/globe-portfolio/internal/globe"
	"github.com/Zachkp/globe-portfolio/internal/observability"
	"github.com/Zachkp/globe-portfolio/internal/topology"
)

// app holds what the handlers share.
type app struct {
	cfg   *config.Config
	db    *sql.DB
	world *topology.World
	hub   *globe.Hub
	keys  *adminKeys
	clock clockwork.Clock
	send  mailer

	bg sync.WaitGroup
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	log.Logger = observability.NewLogger(cfg.Log.Level, cfg.Log.Format)
	gin.SetMode(cfg.Server.GinMode)

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config) error {
	db, err := openDB(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	world, err := topology.LoadWorld(cfg.Globe.WorldDataPath)
	if err != nil {
		return err
	}
	log.Info().Int("countries", len(world.Countries)).Msg("world geometry loaded")

	a, err := newApp(cfg, db, world, observability.NewMetrics(), clockwork.NewRealClock(), log.Logger)
	if err != nil {
		return err
	}
	defer a.close()
	a.startupCleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go a.hub.RunReaper(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           a.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	// Open patch streams only end once their sessions do.
	go a.hub.Close()
	return srv.Shutdown(shutdownCtx)
}

func newApp(cfg *config.Config, db *sql.DB, world *topology.World, metrics *observability.Metrics, clock clockwork.Clock, logger zerolog.Logger) (*app, error) {
	keys, err := newAdminKeys()
	if err != nil {
		return nil, err
	}
	hub, err := globe.NewHub(world, globe.HubConfig{
		Options:     globeOptions(cfg.Globe),
		MaxSessions: cfg.Globe.MaxSessions,
		IdleTimeout: cfg.Globe.IdleTimeout,
		Clock:       clock,
	}, metrics, logger)
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:   cfg,
		db:    db,
		world: world,
		hub:   hub,
		keys:  keys,
		clock: clock,
		send:  sendContactEmail,
	}
	hub.OnUnmount(a.recordGlobeSession)
	return a, nil
}

// close unmounts every globe, recording their sessions, and waits for
// background writes.
func (a *app) close() {
	a.hub.Close()
	a.bg.Wait()
}

// background runs fn outside the request.
func (a *app) background(fn func()) {
	a.bg.Add(1)
	go func() {
		defer a.bg.Done()
		fn()
	}()
}

func globeOptions(g config.GlobeConfig) globe.Options {
	opts := globe.Options{
		ScaleZoom:           g.ScaleZoom,
		Sensitivity:         g.Sensitivity,
		InitialRotation:     geo.Rotation{Lambda: g.Rotation[0], Phi: g.Rotation[1], Gamma: g.Rotation[2]},
		TickInterval:        g.TickInterval,
		VisibilityThreshold: g.VisibilityThreshold,
		Graticule:           g.Graticule,
		Markers:             globe.DefaultMarkers(),
	}
	if len(g.Markers) > 0 {
		opts.Markers = make([]globe.Marker, len(g.Markers))
		for i, m := range g.Markers {
			opts.Markers[i] = globe.Marker{
				Label:     m.Label,
				Longitude: m.Longitude,
				Latitude:  m.Latitude,
				Category:  globe.Category(m.Category),
				Weight:    m.Weight,
			}
		}
	}
	return opts
}

func (a *app) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.LoadHTMLGlob("templates/*")

	r.Static("/images", "./images")
	r.Static("/static", "./static")

	r.Use(a.visitorTrackingMiddleware())

	// Home page route
	r.GET("/", func(c *gin.Context) {
		c.HTML(http.StatusOK, "index.html", gin.H{
			"timeOfDay":      timeOfDay(a.clock.Now()),
			"legend":         Legend,
			"aboutMeContent": AboutMe,
			"projects":       Projects,
		})
	})

	// HTMX Contact form endpoint - returns just the form HTML
	r.GET("/contact-form", func(c *gin.Context) {
		c.HTML(http.StatusOK, "contact.html", gin.H{
			"title": "Contact Me",
		})
	})

	r.GET("/work-content", func(c *gin.Context) {
		c.HTML(http.StatusOK, "work-content.html", gin.H{
			"entries": Experience,
		})
	})

	r.GET("/education-content", func(c *gin.Context) {
		c.HTML(http.StatusOK, "education-content.html", gin.H{
			"entries": Education,
		})
	})

	// Handle contact form submission with HTMX
	r.POST("/contact", func(c *gin.Context) {
		msg := contactMessage{
			Name:    c.PostForm("fullName"),
			Email:   c.PostForm("email"),
			Message: c.PostForm("message"),
		}
		if !msg.valid() {
			c.HTML(http.StatusOK, "contact-error.html", gin.H{
				"error": "Please fill in your name, a valid email and a message.",
			})
			return
		}

		if err := a.send(a.cfg.SMTP, msg); err != nil {
			log.Error().Err(err).Msg("error sending contact email")
			c.HTML(http.StatusOK, "contact-error.html", gin.H{
				"error": "Sorry, there was an error sending your message. Please try again later.",
			})
			return
		}

		c.HTML(http.StatusOK, "contact-success.html", gin.H{
			"success": "Thank you for your message! I'll get back to you soon.",
		})
	})

	a.setupGlobeRoutes(r)
	a.setupAdminRoutes(r)

	r.GET("/healthz", func(c *gin.Context) {
		if err := a.db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "globes": a.hub.Len()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// requestLogger logs each request through zerolog.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
