// admin.go - privacy-conscious analytics for the portfolio and its globe
package main

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// VisitorMetric is one tracked page view.
type VisitorMetric struct {
	ID        int       `json:"id"`
	HashedIP  string    `json:"hashed_ip"` // Hashed instead of raw IP for privacy
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

// GlobeSessionStat is one ended globe widget session.
type GlobeSessionStat struct {
	ID           string    `json:"id"`
	HashedClient string    `json:"hashed_client"`
	Width        float64   `json:"width"`
	Height       float64   `json:"height"`
	StartedAt    time.Time `json:"started_at"`
	EndedAt      time.Time `json:"ended_at"`
	Drags        int64     `json:"drags"`
	Ticks        int64     `json:"ticks"`
	Reason       string    `json:"reason"`
}

// Seconds is how long the globe stayed mounted.
func (s GlobeSessionStat) Seconds() float64 {
	return s.EndedAt.Sub(s.StartedAt).Seconds()
}

type AdminStats struct {
	TotalVisitors    int64              `json:"total_visitors"`
	UniqueVisitors   int64              `json:"unique_visitors"`
	VisitorsToday    int64              `json:"visitors_today"`
	VisitorsThisWeek int64              `json:"visitors_this_week"`
	GlobeSessions    int64              `json:"globe_sessions"`
	ActiveGlobes     int                `json:"active_globes"`
	TotalDrags       int64              `json:"total_drags"`
	AvgGlobeSeconds  float64            `json:"avg_globe_seconds"`
	RecentVisitors   []VisitorMetric    `json:"recent_visitors"`
	RecentSessions   []GlobeSessionStat `json:"recent_sessions"`
}

// adminKeys are regenerated on every start, which logs everyone out.
type adminKeys struct {
	token string
	salt  string
}

func newAdminKeys() (*adminKeys, error) {
	token, err := generateAdminToken()
	if err != nil {
		return nil, err
	}
	salt, err := generateAdminToken()
	if err != nil {
		return nil, err
	}
	return &adminKeys{token: token, salt: salt}, nil
}

func generateAdminToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate admin token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// Hash IP address for privacy compliance (consistent per IP until restart)
func (a *app) hashIP(ip string) string {
	hash := sha256.New()
	hash.Write([]byte(ip + a.keys.salt))
	return hex.EncodeToString(hash.Sum(nil))[:16]
}

// Middleware to check admin authentication
func (a *app) adminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie("admin_token")
		if err != nil || subtle.ConstantTimeCompare([]byte(token), []byte(a.keys.token)) != 1 {
			c.Redirect(http.StatusFound, "/admin/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

var untrackedPrefixes = []string{
	"/static/", "/images/", "/admin/", "/favicon", "/privacy",
	"/globe/", "/healthz", "/metrics",
}

// Privacy-conscious visitor tracking middleware
func (a *app) visitorTrackingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, prefix := range untrackedPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		// Respect Do Not Track header
		if c.GetHeader("DNT") == "1" {
			c.Next()
			return
		}

		ip, ua := c.ClientIP(), c.GetHeader("User-Agent")
		a.background(func() { a.trackVisitor(ip, ua, path) })
		c.Next()
	}
}

func (a *app) getAdminStats(ctx context.Context) (*AdminStats, error) {
	stats := &AdminStats{ActiveGlobes: a.hub.Len()}
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	counts := []struct {
		dst   *int64
		query string
		args  []any
	}{
		{&stats.TotalVisitors, `SELECT COUNT(*) FROM visitors`, nil},
		{&stats.UniqueVisitors, `SELECT COUNT(DISTINCT hashed_ip) FROM visitors`, nil},
		{&stats.VisitorsToday, `SELECT COUNT(*) FROM visitors WHERE timestamp >= ?`, []any{today}},
		{&stats.VisitorsThisWeek, `SELECT COUNT(*) FROM visitors WHERE timestamp >= ?`, []any{now.AddDate(0, 0, -7)}},
		{&stats.GlobeSessions, `SELECT COUNT(*) FROM globe_sessions`, nil},
		{&stats.TotalDrags, `SELECT COALESCE(SUM(drags), 0) FROM globe_sessions`, nil},
	}
	for _, q := range counts {
		if err := a.db.QueryRowContext(ctx, q.query, q.args...).Scan(q.dst); err != nil {
			return nil, fmt.Errorf("admin stats: %w", err)
		}
	}

	var err error
	if stats.RecentVisitors, err = a.recentVisitors(ctx, 50); err != nil {
		return nil, err
	}
	if stats.RecentSessions, err = a.recentGlobeSessions(ctx, 50); err != nil {
		return nil, err
	}
	if len(stats.RecentSessions) > 0 {
		var total float64
		for _, s := range stats.RecentSessions {
			total += s.Seconds()
		}
		stats.AvgGlobeSeconds = total / float64(len(stats.RecentSessions))
	}
	return stats, nil
}

func (a *app) recentVisitors(ctx context.Context, limit int) ([]VisitorMetric, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, hashed_ip, COALESCE(user_agent, ''), COALESCE(path, ''), timestamp
		FROM visitors
		ORDER BY timestamp DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent visitors: %w", err)
	}
	defer rows.Close()

	var visitors []VisitorMetric
	for rows.Next() {
		var v VisitorMetric
		if err := rows.Scan(&v.ID, &v.HashedIP, &v.UserAgent, &v.Path, &v.Timestamp); err != nil {
			continue
		}
		visitors = append(visitors, v)
	}
	return visitors, rows.Err()
}

func (a *app) recentGlobeSessions(ctx context.Context, limit int) ([]GlobeSessionStat, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, COALESCE(hashed_client, ''), width, height, started_at, ended_at, drags, ticks, COALESCE(reason, '')
		FROM globe_sessions
		ORDER BY ended_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent globe sessions: %w", err)
	}
	defer rows.Close()

	var sessions []GlobeSessionStat
	for rows.Next() {
		var s GlobeSessionStat
		if err := rows.Scan(&s.ID, &s.HashedClient, &s.Width, &s.Height, &s.StartedAt, &s.EndedAt, &s.Drags, &s.Ticks, &s.Reason); err != nil {
			continue
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Setup all admin routes
func (a *app) setupAdminRoutes(r *gin.Engine) {
	r.GET("/privacy", func(c *gin.Context) {
		c.HTML(http.StatusOK, "privacy.html", gin.H{
			"title": "Privacy Policy",
		})
	})

	r.GET("/admin/login", func(c *gin.Context) {
		c.HTML(http.StatusOK, "admin-login.html", gin.H{
			"title": "Admin Login",
		})
	})

	r.POST("/admin/login", func(c *gin.Context) {
		username := c.PostForm("username")
		password := c.PostForm("password")

		creds := a.cfg.Admin
		userOK := subtle.ConstantTimeCompare([]byte(username), []byte(creds.Username)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(password), []byte(creds.Password)) == 1
		if userOK && passOK {
			c.SetCookie("admin_token", a.keys.token, 3600*24, "/admin", "", false, true)
			log.Info().Str("client", a.hashIP(c.ClientIP())).Msg("admin login successful")
			c.Redirect(http.StatusFound, "/admin/dashboard")
			return
		}
		log.Warn().Str("client", a.hashIP(c.ClientIP())).Msg("failed admin login attempt")
		c.HTML(http.StatusUnauthorized, "admin-login.html", gin.H{
			"title": "Admin Login",
			"error": "Invalid credentials",
		})
	})

	r.GET("/admin/logout", func(c *gin.Context) {
		c.SetCookie("admin_token", "", -1, "/admin", "", false, true)
		c.Redirect(http.StatusFound, "/admin/login")
	})

	adminGroup := r.Group("/admin")
	adminGroup.Use(a.adminAuthMiddleware())

	adminGroup.GET("/dashboard", func(c *gin.Context) {
		stats, err := a.getAdminStats(c.Request.Context())
		if err != nil {
			log.Error().Err(err).Msg("error loading admin stats")
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{
				"error": "Failed to load statistics",
			})
			return
		}
		c.HTML(http.StatusOK, "admin-dashboard.html", gin.H{
			"stats": stats,
		})
	})

	adminGroup.GET("/api/stats", func(c *gin.Context) {
		stats, err := a.getAdminStats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	adminGroup.GET("/visitors", func(c *gin.Context) {
		visitors, err := a.recentVisitors(c.Request.Context(), 200)
		if err != nil {
			log.Error().Err(err).Msg("error loading visitors")
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{
				"error": "Failed to load visitors",
			})
			return
		}
		c.HTML(http.StatusOK, "admin-visitors.html", gin.H{
			"visitors": visitors,
		})
	})

	adminGroup.GET("/sessions", func(c *gin.Context) {
		sessions, err := a.recentGlobeSessions(c.Request.Context(), 200)
		if err != nil {
			log.Error().Err(err).Msg("error loading globe sessions")
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{
				"error": "Failed to load globe sessions",
			})
			return
		}
		c.HTML(http.StatusOK, "admin-sessions.html", gin.H{
			"sessions": sessions,
			"active":   a.hub.Len(),
		})
	})

	adminGroup.POST("/privacy/delete-visitor-data", func(c *gin.Context) {
		n, err := a.cleanupOldData(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Privacy cleanup failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Privacy cleanup complete", "removed": n})
	})

	adminGroup.GET("/export/stats", func(c *gin.Context) {
		stats, err := a.getAdminStats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Header("Content-Disposition", "attachment; filename=admin-stats.json")
		log.Info().Str("client", a.hashIP(c.ClientIP())).Msg("admin stats exported")
		c.JSON(http.StatusOK, stats)
	})
}
