package main

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Zachkp/globe-portfolio/internal/globe"
	"github.com/Zachkp/globe-portfolio/internal/topology"
)

type dragRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

type mountResponse struct {
	ID  string `json:"id"`
	SVG string `json:"svg"`
}

func (a *app) setupGlobeRoutes(r *gin.Engine) {
	g := r.Group("/globe")

	g.GET("/world.geojson", func(c *gin.Context) {
		fc, err := a.world.GeoJSON(c.DefaultQuery("layer", topology.LayerCountries))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.Header("Cache-Control", "public, max-age=86400")
		c.JSON(http.StatusOK, fc)
	})

	g.POST("/mount", func(c *gin.Context) {
		var vp globe.Viewport
		if err := c.ShouldBindJSON(&vp); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid viewport"})
			return
		}

		s, err := a.hub.Mount(vp, a.hashIP(c.ClientIP()))
		switch {
		case errors.Is(err, globe.ErrViewportUnavailable):
			// Nothing to draw into; the page works without the globe.
			c.Status(http.StatusNoContent)
			return
		case errors.Is(err, globe.ErrTooManySessions), errors.Is(err, globe.ErrSessionClosed):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		case err != nil:
			log.Error().Err(err).Msg("globe mount failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "mount failed"})
			return
		}

		var svg bytes.Buffer
		if err := s.Snapshot(&svg); err != nil {
			c.JSON(http.StatusGone, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, mountResponse{ID: s.ID, SVG: svg.String()})
	})

	g.GET("/:id/stream", func(c *gin.Context) {
		s, ok := a.session(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()

		c.Header("Cache-Control", "no-cache")
		c.Header("X-Accel-Buffering", "no")
		c.SSEvent("ready", s.ID)
		c.Writer.Flush()

		c.Stream(func(w io.Writer) bool {
			patches, err := s.Next(ctx)
			if err != nil {
				return false
			}
			c.SSEvent("patch", patches)
			return true
		})

		// A closed stream means the page is gone.
		if err := a.hub.Unmount(s.ID, globe.ReasonStream); err != nil && !errors.Is(err, globe.ErrSessionNotFound) {
			log.Warn().Err(err).Str("session", s.ID).Msg("unmount after stream")
		}
	})

	g.POST("/:id/drag", func(c *gin.Context) {
		s, ok := a.session(c)
		if !ok {
			return
		}
		var req dragRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid drag"})
			return
		}
		if err := s.Drag(c.Request.Context(), req.DX, req.DY); err != nil {
			if errors.Is(err, globe.ErrSessionClosed) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusAccepted)
	})

	g.POST("/:id/unmount", func(c *gin.Context) {
		if err := a.hub.Unmount(c.Param("id"), globe.ReasonClient); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	})

	g.GET("/:id/svg", func(c *gin.Context) {
		s, ok := a.session(c)
		if !ok {
			return
		}
		var svg bytes.Buffer
		if err := s.Snapshot(&svg); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "image/svg+xml", svg.Bytes())
	})

	g.GET("/:id/state", func(c *gin.Context) {
		s, ok := a.session(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"projection": s.State(),
			"markers":    s.Markers(),
		})
	})
}

// session looks up the :id session, answering 404 when it is gone.
func (a *app) session(c *gin.Context) (*globe.Session, bool) {
	s, err := a.hub.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return nil, false
	}
	return s, true
}
