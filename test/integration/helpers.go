//go:build integration
// +build integration

package integration

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/ytcollage/internal/api"
	"github.com/stwalsh4118/ytcollage/internal/config"
	"github.com/stwalsh4118/ytcollage/internal/db"
	"github.com/stwalsh4118/ytcollage/internal/server"
)

// migrationsPath returns the migrations directory relative to this file so
// tests work regardless of working directory
func migrationsPath(t *testing.T) string {
	t.Helper()

	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "Failed to get current file path")

	testDir := filepath.Dir(filename)              // test/integration
	rootDir := filepath.Dir(filepath.Dir(testDir)) // module root
	return "file://" + filepath.Join(rootDir, "migrations")
}

// thumbnailHost is a fake image host. Ids can be made missing or held back
// until released.
type thumbnailHost struct {
	*httptest.Server

	mu      sync.Mutex
	missing map[string]bool
	holds   map[string]chan struct{}
	hits    map[string]int
}

func newThumbnailHost(t *testing.T) *thumbnailHost {
	t.Helper()

	host := &thumbnailHost{
		missing: make(map[string]bool),
		holds:   make(map[string]chan struct{}),
		hits:    make(map[string]int),
	}
	host.Server = httptest.NewServer(http.HandlerFunc(host.serve))
	t.Cleanup(host.Close)
	return host
}

func (h *thumbnailHost) serve(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[0] != "vi" || parts[2] != "hqdefault.jpg" {
		http.NotFound(w, r)
		return
	}
	id := parts[1]

	h.mu.Lock()
	h.hits[id]++
	missing := h.missing[id]
	hold := h.holds[id]
	h.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-r.Context().Done():
			return
		}
	}
	if missing {
		http.NotFound(w, r)
		return
	}

	img := image.NewRGBA(image.Rect(0, 0, 480, 360))
	c := color.RGBA{R: id[0], G: id[len(id)-1], B: 128, A: 255}
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)

	w.Header().Set("Content-Type", "image/jpeg")
	_ = jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
}

func (h *thumbnailHost) markMissing(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.missing[id] = true
}

// hold blocks requests for id until the returned channel is closed
func (h *thumbnailHost) hold(id string) chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan struct{})
	h.holds[id] = ch
	return ch
}

// testConfig returns a valid configuration using a temp database
func testConfig(t *testing.T, thumbnailBaseURL string) *config.Config {
	t.Helper()
	return &config.Config{
		Server:   config.ServerConfig{Host: "127.0.0.1", Port: 8080, ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second},
		Database: config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "integration.db"), ConnectionTimeout: time.Second, EnableWAL: true},
		Logging:  config.LoggingConfig{Level: "error"},
		Collage: config.CollageConfig{
			CellSize:         150,
			PlaylistMinIDs:   2,
			IdleTimeout:      time.Hour,
			CleanupInterval:  time.Hour,
			SessionRetention: 24 * time.Hour,
		},
		Thumbnail: config.ThumbnailConfig{
			BaseURL:           thumbnailBaseURL,
			FetchTimeout:      2 * time.Second,
			MaxBytes:          2 << 20,
			RequestsPerSecond: 1000,
			Burst:             100,
			BreakerThreshold:  3,
			BreakerReset:      time.Minute,
		},
	}
}

// startServer runs the full application stack against a temp database
func startServer(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()

	database, err := db.Open(cfg.Database.Path, db.Options{EnableWAL: cfg.Database.EnableWAL, ConnectionTimeout: cfg.Database.ConnectionTimeout})
	require.NoError(t, err, "Failed to open database")
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, db.RunMigrations(database, migrationsPath(t)), "Failed to run migrations")

	app := server.New(cfg, database)
	ts := httptest.NewServer(app.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// client wraps JSON calls against the API
type client struct {
	t    *testing.T
	base string
}

func (c *client) do(method, path string, body interface{}) *http.Response {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	c.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (c *client) board(method, path string, body interface{}, wantStatus int) api.BoardResponse {
	c.t.Helper()

	resp := c.do(method, path, body)
	require.Equal(c.t, wantStatus, resp.StatusCode)

	var board api.BoardResponse
	require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&board))
	return board
}

// waitFor polls the board until cond holds
func (c *client) waitFor(id string, cond func(api.BoardResponse) bool) api.BoardResponse {
	c.t.Helper()

	var last api.BoardResponse
	require.Eventually(c.t, func() bool {
		last = c.board(http.MethodGet, "/api/boards/"+id, nil, http.StatusOK)
		return cond(last)
	}, 5*time.Second, 20*time.Millisecond)
	return last
}

func noPending(b api.BoardResponse) bool {
	for _, slot := range b.Slots {
		if slot.State == "pending" {
			return false
		}
	}
	return true
}
