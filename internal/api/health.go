package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/ytcollage/internal/collage"
	"github.com/stwalsh4118/ytcollage/internal/db"
	"github.com/stwalsh4118/ytcollage/internal/thumbnail"
)

// HealthResponse represents the response from the health check endpoint
type HealthResponse struct {
	Status        string                 `json:"status"`
	Database      string                 `json:"database"`
	ThumbnailHost string                 `json:"thumbnail_host,omitempty"`
	Time          string                 `json:"time"`
	Details       map[string]interface{} `json:"details,omitempty"`
}

// HealthHandler handles health check requests
type HealthHandler struct {
	db       *db.DB
	sessions *db.SessionRepository
	manager  *collage.Manager
	breaker  *thumbnail.Breaker
}

// NewHealthHandler creates a new health check handler. manager and breaker
// are optional.
func NewHealthHandler(database *db.DB, manager *collage.Manager, breaker *thumbnail.Breaker) *HealthHandler {
	return &HealthHandler{
		db:       database,
		sessions: db.NewSessionRepository(database),
		manager:  manager,
		breaker:  breaker,
	}
}

// Check handles the health check endpoint
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:  "ok",
		Time:    time.Now().UTC().Format(time.RFC3339),
		Details: make(map[string]interface{}),
	}

	if h.manager != nil {
		response.Details["active_boards"] = h.manager.Count()
	}

	// An open breaker means thumbnails fail fast; the API itself still works
	if h.breaker != nil {
		state := h.breaker.State()
		response.ThumbnailHost = state.String()
		if state == thumbnail.StateOpen {
			response.Status = "degraded"
			response.Details["thumbnail_failures"] = h.breaker.Failures()
		}
	}

	// Check database connectivity
	if err := h.db.Health(ctx); err != nil {
		response.Status = "degraded"
		response.Database = "unhealthy"
		response.Details["database_error"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	response.Database = "healthy"

	if count, err := h.sessions.Count(ctx); err == nil {
		response.Details["stored_sessions"] = count
	}

	c.JSON(http.StatusOK, response)
}

// SetupHealthRoutes registers health check routes
func SetupHealthRoutes(apiGroup *gin.RouterGroup, database *db.DB, manager *collage.Manager, breaker *thumbnail.Breaker) {
	handler := NewHealthHandler(database, manager, breaker)
	apiGroup.GET("/health", handler.Check)
}
