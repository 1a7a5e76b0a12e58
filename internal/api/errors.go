package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/ytcollage/internal/collage"
	"github.com/stwalsh4118/ytcollage/internal/logger"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// respondBoardError maps collage errors onto status codes and stable error codes.
// Anything unrecognised is logged and reported as fallbackCode.
func respondBoardError(c *gin.Context, err error, fallbackCode, fallbackMessage string) {
	switch {
	case collage.IsBoardNotFound(err):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Board not found",
		})
	case collage.IsInvalidSlotIndex(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_index",
			Message: "Slot index must be between 0 and 8",
		})
	case errors.Is(err, collage.ErrNotDragging):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "not_dragging",
			Message: "No drag in progress",
		})
	case collage.IsNotReady(err):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "not_ready",
			Message: "All 9 thumbnails must load before the collage can be exported",
		})
	case errors.Is(err, collage.ErrManagerStopped):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "shutting_down",
			Message: "Server is shutting down",
		})
	default:
		logger.Log.Error().
			Err(err).
			Str("board_id", c.Param("id")).
			Str("error_code", fallbackCode).
			Msg(fallbackMessage)

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   fallbackCode,
			Message: fallbackMessage,
		})
	}
}
