package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stwalsh4118/ytcollage/internal/collage"
	"github.com/stwalsh4118/ytcollage/internal/logger"
)

const requestTimeout = 5 * time.Second

// Request/Response DTOs

// SetSlotsRequest replaces all nine inputs
type SetSlotsRequest struct {
	Inputs []string `json:"inputs" binding:"required,len=9"`
}

// SetSlotRequest replaces one input; an empty string clears the slot
type SetSlotRequest struct {
	Input *string `json:"input" binding:"required"`
}

// ReorderRequest swaps two slots
type ReorderRequest struct {
	From *int `json:"from" binding:"required"`
	To   *int `json:"to" binding:"required"`
}

// DragRequest names the slot a drag starts from or drops on
type DragRequest struct {
	Index *int `json:"index" binding:"required"`
}

// SlotResponse represents one slot in API responses
type SlotResponse struct {
	Index        int    `json:"index"`
	Input        string `json:"input"`
	VideoID      string `json:"video_id,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	State        string `json:"state"`
	Error        string `json:"error,omitempty"`
}

// BoardResponse represents a board snapshot in API responses
type BoardResponse struct {
	ID          string         `json:"id"`
	Cycle       uint64         `json:"cycle"`
	Slots       []SlotResponse `json:"slots"`
	Completed   int            `json:"completed"`
	Progress    float64        `json:"progress"`
	Ready       bool           `json:"ready"`
	HasArtifact bool           `json:"has_artifact"`
	DragSource  *int           `json:"drag_source,omitempty"`
	PlaylistURL string         `json:"playlist_url,omitempty"`
}

// PlaylistResponse carries the playlist link
type PlaylistResponse struct {
	URL string `json:"url"`
}

// DataURIResponse carries the collage as a data: URI
type DataURIResponse struct {
	DataURI string `json:"data_uri"`
}

// BoardHandler handles board-related API requests
type BoardHandler struct {
	manager *collage.Manager
}

// NewBoardHandler creates a new board handler instance
func NewBoardHandler(manager *collage.Manager) *BoardHandler {
	return &BoardHandler{manager: manager}
}

// toBoardResponse converts a board snapshot to API response format
func toBoardResponse(snap collage.Snapshot) *BoardResponse {
	resp := &BoardResponse{
		ID:          snap.ID.String(),
		Cycle:       snap.Cycle,
		Slots:       make([]SlotResponse, len(snap.Slots)),
		Completed:   snap.Completed,
		Progress:    snap.Progress,
		Ready:       snap.Ready,
		HasArtifact: snap.HasArtifact,
		DragSource:  snap.DragSource,
	}
	if snap.HasPlaylist {
		resp.PlaylistURL = snap.PlaylistURL
	}
	for i, slot := range snap.Slots {
		resp.Slots[i] = SlotResponse{
			Index:        slot.Index,
			Input:        slot.Input,
			VideoID:      slot.VideoID,
			ThumbnailURL: slot.ThumbnailURL,
			State:        slot.State.String(),
			Error:        slot.Error,
		}
	}
	return resp
}

// loadBoard resolves the :id parameter to a live board, writing the error
// response itself when it cannot
func (h *BoardHandler) loadBoard(c *gin.Context) (*collage.Board, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "Invalid board ID format",
		})
		return nil, false
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	board, err := h.manager.Get(ctx, id)
	if err != nil {
		respondBoardError(c, err, "query_failed", "Failed to retrieve board")
		return nil, false
	}
	return board, true
}

// save persists the board's inputs, writing the error response on failure
func (h *BoardHandler) save(c *gin.Context, board *collage.Board) bool {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.manager.Save(ctx, board); err != nil {
		respondBoardError(c, err, "save_failed", "Failed to save board inputs")
		return false
	}
	return true
}

// bindJSON decodes the request body, writing a 400 on failure
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body: " + err.Error(),
		})
		return false
	}
	return true
}

// CreateBoard handles POST /api/boards
func (h *BoardHandler) CreateBoard(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	board, err := h.manager.Create(ctx)
	if err != nil {
		respondBoardError(c, err, "create_failed", "Failed to create board")
		return
	}

	c.JSON(http.StatusCreated, toBoardResponse(board.Snapshot()))
}

// GetBoard handles GET /api/boards/:id
func (h *BoardHandler) GetBoard(c *gin.Context) {
	board, ok := h.loadBoard(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toBoardResponse(board.Snapshot()))
}

// DeleteBoard handles DELETE /api/boards/:id
func (h *BoardHandler) DeleteBoard(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "Invalid board ID format",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.manager.Delete(ctx, id); err != nil {
		respondBoardError(c, err, "delete_failed", "Failed to delete board")
		return
	}

	c.Status(http.StatusNoContent)
}

// SetSlots handles PUT /api/boards/:id/slots
func (h *BoardHandler) SetSlots(c *gin.Context) {
	var req SetSlotsRequest
	if !bindJSON(c, &req) {
		return
	}

	board, ok := h.loadBoard(c)
	if !ok {
		return
	}

	var inputs [collage.SlotCount]string
	copy(inputs[:], req.Inputs)
	board.SetInputs(inputs)

	if !h.save(c, board) {
		return
	}
	c.JSON(http.StatusOK, toBoardResponse(board.Snapshot()))
}

// SetSlot handles PUT /api/boards/:id/slots/:index
func (h *BoardHandler) SetSlot(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_index",
			Message: "Slot index must be an integer",
		})
		return
	}

	var req SetSlotRequest
	if !bindJSON(c, &req) {
		return
	}

	board, ok := h.loadBoard(c)
	if !ok {
		return
	}

	if err := board.SetInput(index, *req.Input); err != nil {
		respondBoardError(c, err, "update_failed", "Failed to update slot")
		return
	}

	if !h.save(c, board) {
		return
	}
	c.JSON(http.StatusOK, toBoardResponse(board.Snapshot()))
}

// Preview handles POST /api/boards/:id/preview. It starts a new load cycle
// and returns immediately; clients poll the board for progress.
func (h *BoardHandler) Preview(c *gin.Context) {
	board, ok := h.loadBoard(c)
	if !ok {
		return
	}

	cycle := board.Preview()

	logger.Log.Debug().
		Str("board_id", board.ID.String()).
		Uint64("cycle", cycle.Number).
		Msg("Preview requested")

	c.JSON(http.StatusAccepted, toBoardResponse(board.Snapshot()))
}

// Reorder handles POST /api/boards/:id/reorder
func (h *BoardHandler) Reorder(c *gin.Context) {
	var req ReorderRequest
	if !bindJSON(c, &req) {
		return
	}

	board, ok := h.loadBoard(c)
	if !ok {
		return
	}

	if err := board.Reorder(*req.From, *req.To); err != nil {
		respondBoardError(c, err, "reorder_failed", "Failed to reorder slots")
		return
	}

	if !h.save(c, board) {
		return
	}
	c.JSON(http.StatusOK, toBoardResponse(board.Snapshot()))
}

// DragStart handles POST /api/boards/:id/drag/start
func (h *BoardHandler) DragStart(c *gin.Context) {
	var req DragRequest
	if !bindJSON(c, &req) {
		return
	}

	board, ok := h.loadBoard(c)
	if !ok {
		return
	}

	if err := board.DragStart(*req.Index); err != nil {
		respondBoardError(c, err, "drag_failed", "Failed to start drag")
		return
	}
	c.JSON(http.StatusOK, toBoardResponse(board.Snapshot()))
}

// DragDrop handles POST /api/boards/:id/drag/drop
func (h *BoardHandler) DragDrop(c *gin.Context) {
	var req DragRequest
	if !bindJSON(c, &req) {
		return
	}

	board, ok := h.loadBoard(c)
	if !ok {
		return
	}

	moved, err := board.DragDrop(*req.Index)
	if err != nil {
		respondBoardError(c, err, "drag_failed", "Failed to drop slot")
		return
	}

	if moved && !h.save(c, board) {
		return
	}
	c.JSON(http.StatusOK, toBoardResponse(board.Snapshot()))
}

// DragEnd handles POST /api/boards/:id/drag/end
func (h *BoardHandler) DragEnd(c *gin.Context) {
	board, ok := h.loadBoard(c)
	if !ok {
		return
	}

	board.DragEnd()
	c.JSON(http.StatusOK, toBoardResponse(board.Snapshot()))
}

// GetCollage handles GET /api/boards/:id/collage. The PNG is sent as a
// download unless ?disposition=inline; ?format=datauri returns it as JSON.
func (h *BoardHandler) GetCollage(c *gin.Context) {
	board, ok := h.loadBoard(c)
	if !ok {
		return
	}

	artifact, err := board.Artifact()
	if err != nil {
		if errors.Is(err, collage.ErrExportFailed) {
			logger.Log.Error().
				Err(err).
				Str("board_id", board.ID.String()).
				Msg("Failed to export collage")

			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "export_failed",
				Message: "Failed to export collage, try again",
			})
			return
		}
		respondBoardError(c, err, "export_failed", "Failed to export collage")
		return
	}

	if c.Query("format") == "datauri" {
		c.JSON(http.StatusOK, DataURIResponse{DataURI: artifact.DataURI()})
		return
	}

	disposition := "attachment"
	if c.Query("disposition") == "inline" {
		disposition = "inline"
	}

	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, collage.ArtifactFilename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, collage.ArtifactContentType, artifact.PNG)

	logger.Log.Info().
		Str("board_id", board.ID.String()).
		Uint64("cycle", artifact.Cycle).
		Int("bytes", len(artifact.PNG)).
		Str("disposition", disposition).
		Msg("Collage exported")
}

// GetPlaylist handles GET /api/boards/:id/playlist
func (h *BoardHandler) GetPlaylist(c *gin.Context) {
	board, ok := h.loadBoard(c)
	if !ok {
		return
	}

	url, ok := board.Playlist()
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "playlist_unavailable",
			Message: "Not enough valid video links for a playlist",
		})
		return
	}

	c.JSON(http.StatusOK, PlaylistResponse{URL: url})
}

// SetupBoardRoutes registers board routes
func SetupBoardRoutes(apiGroup *gin.RouterGroup, manager *collage.Manager) {
	handler := NewBoardHandler(manager)

	apiGroup.POST("/boards", handler.CreateBoard)
	apiGroup.GET("/boards/:id", handler.GetBoard)
	apiGroup.DELETE("/boards/:id", handler.DeleteBoard)

	// Slot inputs
	apiGroup.PUT("/boards/:id/slots", handler.SetSlots)
	apiGroup.PUT("/boards/:id/slots/:index", handler.SetSlot)

	// Load cycle and ordering
	apiGroup.POST("/boards/:id/preview", handler.Preview)
	apiGroup.POST("/boards/:id/reorder", handler.Reorder)
	apiGroup.POST("/boards/:id/drag/start", handler.DragStart)
	apiGroup.POST("/boards/:id/drag/drop", handler.DragDrop)
	apiGroup.POST("/boards/:id/drag/end", handler.DragEnd)

	// Outputs
	apiGroup.GET("/boards/:id/collage", handler.GetCollage)
	apiGroup.GET("/boards/:id/playlist", handler.GetPlaylist)
}
