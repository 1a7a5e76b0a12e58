package collage

import "errors"

// Collage errors
var (
	// ErrInvalidSlotIndex indicates a slot index outside 0..8
	ErrInvalidSlotIndex = errors.New("slot index must be between 0 and 8")

	// ErrNotReady indicates not every slot holds a loaded thumbnail
	ErrNotReady = errors.New("collage not ready: all 9 thumbnails must be loaded")

	// ErrNotDragging indicates a drop or end without a preceding drag start
	ErrNotDragging = errors.New("no drag in progress")

	// ErrBoardNotFound indicates the board session does not exist
	ErrBoardNotFound = errors.New("board not found")

	// ErrManagerStopped indicates the board manager has been shut down
	ErrManagerStopped = errors.New("board manager has been stopped")

	// ErrExportFailed indicates the collage could not be encoded
	ErrExportFailed = errors.New("collage export failed")
)

// IsInvalidSlotIndex checks if the error is an invalid slot index error
func IsInvalidSlotIndex(err error) bool {
	return errors.Is(err, ErrInvalidSlotIndex)
}

// IsNotReady checks if the error is a readiness gate error
func IsNotReady(err error) bool {
	return errors.Is(err, ErrNotReady)
}

// IsBoardNotFound checks if the error is a board not found error
func IsBoardNotFound(err error) bool {
	return errors.Is(err, ErrBoardNotFound)
}
