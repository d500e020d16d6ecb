package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zachkp/globe-portfolio/internal/config"
	"github.com/Zachkp/globe-portfolio/internal/observability"
	"github.com/Zachkp/globe-portfolio/internal/surface"
	"github.com/Zachkp/globe-portfolio/internal/topology"
)

func TestMain(m *testing.M) {
	log.Logger = zerolog.Nop()
	os.Exit(m.Run())
}

type sentMail struct {
	calls []contactMessage
	err   error
}

func (m *sentMail) send(_ config.SMTPConfig, msg contactMessage) error {
	m.calls = append(m.calls, msg)
	return m.err
}

type testApp struct {
	*app
	engine *gin.Engine
	mail   *sentMail
}

func newTestApp(t *testing.T, configure ...func(*config.Config)) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("GIN_MODE", gin.TestMode)

	cfg, err := config.LoadFile("")
	require.NoError(t, err)
	cfg.DB.Path = filepath.Join(t.TempDir(), "test.db")
	for _, fn := range configure {
		fn(cfg)
	}

	db, err := openDB(cfg.DB.Path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	world, err := topology.Bundled()
	require.NoError(t, err)

	clock := clockwork.NewFakeClockAt(time.Date(2026, 1, 2, 9, 30, 0, 0, time.UTC))
	a, err := newApp(cfg, db, world, observability.NewMetricsForTesting(), clock, zerolog.Nop())
	require.NoError(t, err)
	mail := &sentMail{}
	a.send = mail.send
	t.Cleanup(a.close)

	return &testApp{app: a, engine: a.router(), mail: mail}
}

func (ta *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ta.engine.ServeHTTP(w, req)
	return w
}

func (ta *testApp) postJSON(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return ta.do(req)
}

func (ta *testApp) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return ta.do(req)
}

func (ta *testApp) mount(t *testing.T) mountResponse {
	t.Helper()
	w := ta.postJSON("/globe/mount", `{"width":1000,"height":800}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp mountResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	return resp
}

func (ta *testApp) count(t *testing.T, query string) int {
	t.Helper()
	var n int
	require.NoError(t, ta.db.QueryRow(query).Scan(&n))
	return n
}

func TestHome(t *testing.T) {
	ta := newTestApp(t)

	w := ta.do(httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Good morning!")
	assert.Contains(t, body, "where I want to be this summer")
	assert.Contains(t, body, "Terminal Mail")
	assert.Contains(t, body, `/static/globe.js`)

	// Every section the page is documented to have.
	for _, want := range []string{
		`id="globe"`,
		"Notable places in my life",
		"About me",
		`hx-get="/work-content"`,
		`hx-get="/education-content"`,
		`hx-get="/contact-form"`,
	} {
		assert.Contains(t, body, want)
	}
	for _, p := range Projects {
		assert.Contains(t, body, p.Title)
	}
}

func TestTimeOfDay(t *testing.T) {
	day := func(h int) time.Time { return time.Date(2026, 1, 2, h, 0, 0, 0, time.UTC) }
	assert.Equal(t, "morning", timeOfDay(day(0)))
	assert.Equal(t, "morning", timeOfDay(day(11)))
	assert.Equal(t, "afternoon", timeOfDay(day(12)))
	assert.Equal(t, "afternoon", timeOfDay(day(17)))
	assert.Equal(t, "evening", timeOfDay(day(18)))
}

func TestContentTabs(t *testing.T) {
	ta := newTestApp(t)

	w := ta.do(httptest.NewRequest(http.MethodGet, "/work-content", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Presentation Expert")

	w = ta.do(httptest.NewRequest(http.MethodGet, "/education-content", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Western Governors University")
}

func TestGlobe_Mount(t *testing.T) {
	ta := newTestApp(t)

	resp := ta.mount(t)

	assert.Contains(t, resp.SVG, `<svg xmlns="http://www.w3.org/2000/svg" width="1000" height="800"`)
	assert.Contains(t, resp.SVG, `id="globe_highlight"`)
	assert.Contains(t, resp.SVG, `data-id="marker-3"`)
	assert.Equal(t, 1, ta.hub.Len())
}

func TestGlobe_MountWithoutViewport(t *testing.T) {
	ta := newTestApp(t)

	w := ta.postJSON("/globe/mount", `{"width":0,"height":800}`)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ta.postJSON("/globe/mount", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, ta.hub.Len())
}

func TestGlobe_MountFull(t *testing.T) {
	ta := newTestApp(t, func(cfg *config.Config) { cfg.Globe.MaxSessions = 1 })

	ta.mount(t)
	w := ta.postJSON("/globe/mount", `{"width":1000,"height":800}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGlobe_Drag(t *testing.T) {
	ta := newTestApp(t)
	id := ta.mount(t).ID
	s, err := ta.hub.Get(id)
	require.NoError(t, err)
	before := s.State().Rotation.Lambda

	w := ta.postJSON("/globe/"+id+"/drag", `{"dx":16,"dy":0}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
	require.Eventually(t, func() bool {
		return s.State().Rotation.Lambda-before > 0.999
	}, time.Second, 5*time.Millisecond)

	w = ta.postJSON("/globe/"+id+"/drag", `{"dx":"left"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ta.postJSON("/globe/unknown/drag", `{"dx":1,"dy":1}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGlobe_SnapshotAndState(t *testing.T) {
	ta := newTestApp(t)
	id := ta.mount(t).ID

	w := ta.do(httptest.NewRequest(http.MethodGet, "/globe/"+id+"/svg", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "<svg"))

	w = ta.do(httptest.NewRequest(http.MethodGet, "/globe/"+id+"/state", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	var state struct {
		Projection struct {
			Scale      float64 `json:"scale"`
			TranslateX float64 `json:"translateX"`
			TranslateY float64 `json:"translateY"`
		} `json:"projection"`
		Markers []struct {
			Label   string `json:"label"`
			Visible bool
		} `json:"markers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.InDelta(t, 800, state.Projection.Scale, 1e-9)
	assert.InDelta(t, 500, state.Projection.TranslateX, 1e-9)
	assert.InDelta(t, 1040, state.Projection.TranslateY, 1e-9)
	assert.Len(t, state.Markers, 5)

	w = ta.do(httptest.NewRequest(http.MethodGet, "/globe/unknown/svg", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGlobe_UnmountRecordsSession(t *testing.T) {
	ta := newTestApp(t)
	id := ta.mount(t).ID

	w := ta.postJSON("/globe/"+id+"/unmount", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, ta.hub.Len())

	w = ta.postJSON("/globe/"+id+"/unmount", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	var reason string
	var width float64
	require.NoError(t, ta.db.QueryRow(`SELECT reason, width FROM globe_sessions WHERE id = ?`, id).Scan(&reason, &width))
	assert.Equal(t, "client", reason)
	assert.InDelta(t, 1000, width, 1e-9)
}

func TestGlobe_Stream(t *testing.T) {
	ta := newTestApp(t)
	srv := httptest.NewServer(ta.engine)
	defer srv.Close()

	id := ta.mount(t).ID
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/globe/"+id+"/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	lines := bufio.NewScanner(resp.Body)
	lines.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	next := func(prefix string) string {
		for lines.Scan() {
			if line := lines.Text(); strings.HasPrefix(line, prefix) {
				return strings.TrimPrefix(line, prefix)
			}
		}
		t.Fatalf("stream ended before %q: %v", prefix, lines.Err())
		return ""
	}
	assert.Equal(t, "ready", next("event:"))
	assert.Equal(t, id, next("data:"))

	w := ta.postJSON("/globe/"+id+"/drag", `{"dx":0,"dy":40}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	assert.Equal(t, "patch", next("event:"))
	var patches []surface.Patch
	require.NoError(t, json.Unmarshal([]byte(next("data:")), &patches))
	require.NotEmpty(t, patches)
	for _, p := range patches {
		assert.NotEqual(t, surface.OpCreate, p.Op, p.ID)
	}

	// Leaving the page ends the stream and the session with it.
	cancel()
	require.Eventually(t, func() bool { return ta.hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return ta.count(t, `SELECT COUNT(*) FROM globe_sessions WHERE reason = 'stream'`) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestGlobe_WorldGeoJSON(t *testing.T) {
	ta := newTestApp(t)

	w := ta.do(httptest.NewRequest(http.MethodGet, "/globe/world.geojson", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	var fc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	assert.Len(t, fc.Features, len(ta.world.Countries))

	w = ta.do(httptest.NewRequest(http.MethodGet, "/globe/world.geojson?layer=land", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = ta.do(httptest.NewRequest(http.MethodGet, "/globe/world.geojson?layer=rivers", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestContact(t *testing.T) {
	ta := newTestApp(t)
	form := url.Values{
		"fullName": {"Ada Lovelace"},
		"email":    {"ada@example.com"},
		"message":  {"Hello!"},
	}

	w := ta.postForm("/contact", form)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Thank you for your message!")
	require.Len(t, ta.mail.calls, 1)
	assert.Equal(t, "Ada Lovelace", ta.mail.calls[0].Name)

	ta.mail.err = errors.New("smtp down")
	w = ta.postForm("/contact", form)
	assert.Contains(t, w.Body.String(), "there was an error sending your message")

	form.Set("email", "not-an-email")
	w = ta.postForm("/contact", form)
	assert.Contains(t, w.Body.String(), "valid email")
	assert.Len(t, ta.mail.calls, 2)
}

func TestSendContactEmail_NotConfigured(t *testing.T) {
	err := sendContactEmail(config.SMTPConfig{Host: "smtp.gmail.com", Port: "587"}, contactMessage{Name: "a"})
	assert.ErrorIs(t, err, errSMTPNotConfigured)
}

func TestHeaderSafe(t *testing.T) {
	assert.Equal(t, "evilBcc: x@example.com", headerSafe("evil\r\nBcc: x@example.com"))
}

func TestHealthz(t *testing.T) {
	ta := newTestApp(t)

	w := ta.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","globes":0}`, w.Body.String())
}

func TestVisitorTracking(t *testing.T) {
	ta := newTestApp(t)

	ta.do(httptest.NewRequest(http.MethodGet, "/", nil))
	dnt := httptest.NewRequest(http.MethodGet, "/", nil)
	dnt.Header.Set("DNT", "1")
	ta.do(dnt)
	ta.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	ta.mount(t)
	ta.bg.Wait()

	assert.Equal(t, 1, ta.count(t, `SELECT COUNT(*) FROM visitors`))
	var hashed, path string
	require.NoError(t, ta.db.QueryRow(`SELECT hashed_ip, path FROM visitors`).Scan(&hashed, &path))
	assert.Equal(t, "/", path)
	assert.Len(t, hashed, 16)
	assert.NotContains(t, hashed, "192.0.2.1")
}

func TestAdmin_RequiresLogin(t *testing.T) {
	ta := newTestApp(t)

	w := ta.do(httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/login", w.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodGet, "/admin/api/stats", nil)
	req.AddCookie(&http.Cookie{Name: "admin_token", Value: "forged"})
	w = ta.do(req)
	assert.Equal(t, http.StatusFound, w.Code)

	w = ta.postForm("/admin/login", url.Values{"username": {"admin"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid credentials")
}

func TestAdmin_Dashboard(t *testing.T) {
	ta := newTestApp(t, func(cfg *config.Config) {
		cfg.Admin.Username = "zach"
		cfg.Admin.Password = "s3cret"
	})

	ta.do(httptest.NewRequest(http.MethodGet, "/", nil))
	id := ta.mount(t).ID
	require.Equal(t, http.StatusAccepted, ta.postJSON("/globe/"+id+"/drag", `{"dx":3,"dy":4}`).Code)
	s, err := ta.hub.Get(id)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.Summary().Drags == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, http.StatusNoContent, ta.postJSON("/globe/"+id+"/unmount", "").Code)
	ta.mount(t)
	ta.bg.Wait()

	w := ta.postForm("/admin/login", url.Values{"username": {"zach"}, "password": {"s3cret"}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/dashboard", w.Header().Get("Location"))
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	authed := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		return ta.do(req)
	}

	w = authed("/admin/dashboard")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Globe sessions")

	w = authed("/admin/api/stats")
	require.Equal(t, http.StatusOK, w.Code)
	var stats AdminStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.TotalVisitors)
	assert.Equal(t, int64(1), stats.UniqueVisitors)
	assert.Equal(t, int64(1), stats.GlobeSessions)
	assert.Equal(t, 1, stats.ActiveGlobes)
	assert.Equal(t, int64(1), stats.TotalDrags)
	require.Len(t, stats.RecentSessions, 1)
	assert.Equal(t, "client", stats.RecentSessions[0].Reason)

	w = authed("/admin/sessions")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Globes open now: 1")

	w = authed("/admin/visitors")
	assert.Equal(t, http.StatusOK, w.Code)

	w = authed("/admin/export/stats")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "admin-stats.json")
}

func TestCleanupOldData(t *testing.T) {
	ta := newTestApp(t)
	old := time.Now().UTC().AddDate(-2, 0, 0)
	_, err := ta.db.Exec(`INSERT INTO visitors (hashed_ip, path, timestamp) VALUES ('abc', '/', ?)`, old)
	require.NoError(t, err)
	_, err = ta.db.Exec(`INSERT INTO visitors (hashed_ip, path, timestamp) VALUES ('def', '/', ?)`, time.Now().UTC())
	require.NoError(t, err)

	n, err := ta.cleanupOldData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, ta.count(t, `SELECT COUNT(*) FROM visitors`))
}

func TestStartupCleanup(t *testing.T) {
	ta := newTestApp(t)
	_, err := ta.db.Exec(`INSERT INTO visitors (hashed_ip, path, timestamp) VALUES ('abc', '/', ?)`, time.Now().UTC().AddDate(-2, 0, 0))
	require.NoError(t, err)
	_, err = ta.db.Exec(`INSERT INTO globe_sessions (id, hashed_client, width, height, started_at, ended_at, drags, ticks, reason)
		VALUES ('old', 'abc', 1000, 800, ?, ?, 0, 0, 'client')`, time.Now().UTC().AddDate(-2, 0, 0), time.Now().UTC().AddDate(-2, 0, 0))
	require.NoError(t, err)

	ta.startupCleanup()
	ta.bg.Wait()

	assert.Zero(t, ta.count(t, `SELECT COUNT(*) FROM visitors`))
	assert.Zero(t, ta.count(t, `SELECT COUNT(*) FROM globe_sessions`))
}

func TestGlobeOptions_Markers(t *testing.T) {
	t.Setenv("GIN_MODE", gin.TestMode)
	cfg, err := config.LoadFile("")
	require.NoError(t, err)
	assert.Len(t, globeOptions(cfg.Globe).Markers, 5)

	cfg.Globe.Markers = []config.MarkerConfig{{Label: "Oslo", Longitude: 10.75, Latitude: 59.91, Category: "want", Weight: 1}}
	opts := globeOptions(cfg.Globe)
	require.Len(t, opts.Markers, 1)
	assert.Equal(t, "Oslo", opts.Markers[0].Label)
	assert.InDelta(t, 98, opts.InitialRotation.Lambda, 1e-12)
}
