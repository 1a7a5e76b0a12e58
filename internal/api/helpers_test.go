package api

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/ytcollage/internal/collage"
	"github.com/stwalsh4118/ytcollage/internal/db"
	"github.com/stwalsh4118/ytcollage/internal/thumbnail"
)

const testCellSize = 20

// setupTestDB creates a migrated test database in a temp directory
func setupTestDB(t *testing.T) (*db.DB, *db.Repositories) {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	err = db.RunMigrations(database, "file://../../migrations")
	require.NoError(t, err)

	return database, db.NewRepositories(database)
}

// newThumbnailServer serves a solid PNG for every /vi/<id>/hqdefault.jpg
// except the ids listed in missing, which get a 404
func newThumbnailServer(t *testing.T, missing ...string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 3 || parts[0] != "vi" {
			http.NotFound(w, r)
			return
		}
		for _, id := range missing {
			if parts[1] == id {
				http.NotFound(w, r)
				return
			}
		}

		img := image.NewRGBA(image.Rect(0, 0, 48, 36))
		shade := uint8(len(parts[1]) * int(parts[1][len(parts[1])-1]))
		draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: shade, G: 80, B: 160, A: 255}}, image.Point{}, draw.Src)

		w.Header().Set("Content-Type", "image/png")
		_ = png.Encode(w, img)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// newTestManager builds a manager backed by repos that fetches from srv
func newTestManager(t *testing.T, repos *db.Repositories, srv *httptest.Server) *collage.Manager {
	t.Helper()

	opts := thumbnail.DefaultOptions()
	opts.Timeout = 2 * time.Second
	opts.RequestsPerSecond = 1000
	opts.Burst = 100
	fetcher := thumbnail.NewHTTPFetcher(srv.Client(), opts)

	manager := collage.NewManager(
		repos.Sessions,
		collage.NewCoordinator(fetcher, srv.URL),
		collage.NewCompositor(testCellSize),
		collage.ManagerConfig{
			PlaylistMin:     2,
			IdleTimeout:     time.Hour,
			CleanupInterval: time.Hour,
		},
	)
	t.Cleanup(manager.Stop)
	return manager
}

// setupTestRouter creates a test Gin router with board routes
func setupTestRouter(manager *collage.Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	apiGroup := router.Group("/api")
	SetupBoardRoutes(apiGroup, manager)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBoard(t *testing.T, w *httptest.ResponseRecorder) BoardResponse {
	t.Helper()
	var resp BoardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func createBoard(t *testing.T, router *gin.Engine) BoardResponse {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/boards", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	return decodeBoard(t, w)
}

func testInputs() []string {
	return []string{
		"https://www.youtube.com/watch?v=aaaaaaaaaa1",
		"https://youtu.be/aaaaaaaaaa2",
		"https://www.youtube.com/embed/aaaaaaaaaa3",
		"https://www.youtube.com/shorts/aaaaaaaaaa4",
		"youtube.com/watch?v=aaaaaaaaaa5",
		"https://m.youtube.com/watch?v=aaaaaaaaaa6",
		"https://www.youtube.com/watch?v=aaaaaaaaaa7&t=42",
		"https://www.youtube.com/v/aaaaaaaaaa8",
		"https://www.youtube.com/watch?v=aaaaaaaaaa9",
	}
}

// waitSettled polls the board until no slot is pending
func waitSettled(t *testing.T, router *gin.Engine, id string) BoardResponse {
	t.Helper()

	var board BoardResponse
	require.Eventually(t, func() bool {
		w := doJSON(t, router, http.MethodGet, "/api/boards/"+id, nil)
		if w.Code != http.StatusOK {
			return false
		}
		board = decodeBoard(t, w)
		for _, slot := range board.Slots {
			if slot.State == "pending" {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond)
	return board
}
