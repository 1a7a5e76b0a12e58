// Package collage holds the nine-slot board: slot state, the thumbnail load
// coordinator, drag-and-drop reordering, and the PNG compositor.
package collage

import (
	"image"

	"github.com/stwalsh4118/ytcollage/internal/youtube"
)

const (
	// GridSize is the number of cells per collage row and column
	GridSize = 3
	// SlotCount is the fixed number of slots on a board
	SlotCount = GridSize * GridSize
)

// LoadState is the thumbnail state of one slot
type LoadState int

const (
	// StateEmpty means no video id, or no thumbnail requested for the current id
	StateEmpty LoadState = iota
	// StatePending means a fetch is outstanding in the current cycle
	StatePending
	// StateLoaded means the thumbnail arrived and decoded
	StateLoaded
	// StateFailed means the fetch failed; it stays failed until the next cycle
	StateFailed
)

// String returns the string representation of LoadState
func (s LoadState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePending:
		return "pending"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (s LoadState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Slot is one grid position
type Slot struct {
	RawInput     string
	VideoID      string
	ThumbnailURL string
	State        LoadState
	Image        image.Image
	LastError    string

	// token identifies the outstanding fetch; it moves with the slot on reorder
	token uint64
}

// clearThumbnail drops everything derived from a fetch
func (s *Slot) clearThumbnail() {
	s.ThumbnailURL = ""
	s.State = StateEmpty
	s.Image = nil
	s.LastError = ""
	s.token = 0
}

// SlotSet is the ordered board, row-major. Position defines raster order.
type SlotSet [SlotCount]Slot

// NewSlotSet builds a slot set from raw inputs with ids derived and nothing loaded
func NewSlotSet(inputs [SlotCount]string) SlotSet {
	var set SlotSet
	for i, raw := range inputs {
		_, _ = set.SetInput(i, raw)
	}
	return set
}

// ValidIndex reports whether i names a slot
func ValidIndex(i int) bool {
	return i >= 0 && i < SlotCount
}

// SetInput replaces the raw input of slot i. When the derived id changes the
// slot's thumbnail is cleared and it returns to Empty. It reports whether the id changed.
func (s *SlotSet) SetInput(i int, raw string) (bool, error) {
	if !ValidIndex(i) {
		return false, ErrInvalidSlotIndex
	}

	slot := &s[i]
	slot.RawInput = raw

	id, _ := youtube.ExtractVideoID(raw)
	if id == slot.VideoID {
		return false, nil
	}

	slot.VideoID = id
	slot.clearThumbnail()
	return true, nil
}

// Inputs returns the raw inputs in slot order
func (s *SlotSet) Inputs() [SlotCount]string {
	var inputs [SlotCount]string
	for i := range s {
		inputs[i] = s[i].RawInput
	}
	return inputs
}

// VideoIDs returns the valid ids in slot order, duplicates kept
func (s *SlotSet) VideoIDs() []string {
	ids := make([]string, 0, SlotCount)
	for i := range s {
		if s[i].VideoID != "" {
			ids = append(ids, s[i].VideoID)
		}
	}
	return ids
}

// Count returns how many slots are in state
func (s *SlotSet) Count(state LoadState) int {
	n := 0
	for i := range s {
		if s[i].State == state {
			n++
		}
	}
	return n
}

// AllLoaded reports whether every slot holds a loaded thumbnail
func (s *SlotSet) AllLoaded() bool {
	return s.Count(StateLoaded) == SlotCount
}

// CellOrigin returns the grid column and row of slot i
func CellOrigin(i int) (col, row int) {
	return i % GridSize, i / GridSize
}
