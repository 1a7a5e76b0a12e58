package collage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stwalsh4118/ytcollage/internal/logger"
	"github.com/stwalsh4118/ytcollage/internal/youtube"
)

// SlotView is the exported, image-free view of a slot
type SlotView struct {
	Index        int
	Input        string
	VideoID      string
	ThumbnailURL string
	State        LoadState
	Error        string
}

// Snapshot is a consistent view of a board at one instant
type Snapshot struct {
	ID          uuid.UUID
	Cycle       uint64
	Slots       [SlotCount]SlotView
	Completed   int
	Progress    float64
	Ready       bool
	DragSource  *int
	PlaylistURL string
	HasPlaylist bool
	HasArtifact bool
}

// Board owns one SlotSet and serializes every mutation of it: input edits,
// preview cycles and their completions, and swaps.
type Board struct {
	ID uuid.UUID

	coordinator *Coordinator
	compositor  *Compositor
	playlistMin int
	baseCtx     context.Context
	log         zerolog.Logger

	mu         sync.Mutex
	slots      SlotSet
	drag       DragTracker
	cycleSeq   uint64
	cycle      *Cycle
	artifact   *Artifact
	lastAccess time.Time
}

// BoardOptions holds the collaborators shared by all boards
type BoardOptions struct {
	Coordinator *Coordinator
	Compositor  *Compositor
	PlaylistMin int
	// Context bounds every fetch the board issues; cancelling it aborts outstanding cycles
	Context context.Context
}

// NewBoard creates a board with the given raw inputs and nothing loaded
func NewBoard(id uuid.UUID, inputs [SlotCount]string, opts BoardOptions) *Board {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	return &Board{
		ID:          id,
		coordinator: opts.Coordinator,
		compositor:  opts.Compositor,
		playlistMin: opts.PlaylistMin,
		baseCtx:     ctx,
		log:         logger.Component("board").With().Str("board_id", id.String()).Logger(),
		slots:       NewSlotSet(inputs),
		lastAccess:  time.Now(),
	}
}

// SetInput replaces the raw input of slot i
func (b *Board) SetInput(i int, raw string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.touchLocked()

	changed, err := b.slots.SetInput(i, raw)
	if err != nil {
		return err
	}
	if changed {
		b.artifact = nil
	}
	return nil
}

// SetInputs replaces all nine raw inputs
func (b *Board) SetInputs(inputs [SlotCount]string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.touchLocked()

	for i, raw := range inputs {
		if changed, _ := b.slots.SetInput(i, raw); changed {
			b.artifact = nil
		}
	}
}

// Inputs returns the raw inputs in slot order
func (b *Board) Inputs() [SlotCount]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.slots.Inputs()
}

// Preview starts a new cycle. Outstanding fetches of the previous cycle are
// cancelled and their late results ignored. It returns without waiting.
func (b *Board) Preview() *Cycle {
	b.mu.Lock()
	b.touchLocked()

	if b.cycle != nil {
		b.cycle.supersede()
	}

	b.cycleSeq++
	ctx, cancel := context.WithCancel(b.baseCtx)
	reqs := b.coordinator.Begin(&b.slots, b.cycleSeq)
	cycle := newCycle(b.cycleSeq, len(reqs), cancel)
	b.cycle = cycle
	b.artifact = nil

	if len(reqs) == 0 {
		cycle.settle()
	}
	b.mu.Unlock()

	b.log.Info().
		Uint64("cycle", cycle.Number).
		Int("requested", len(reqs)).
		Int("empty", SlotCount-len(reqs)).
		Msg("Preview cycle started")

	b.coordinator.Run(ctx, reqs, b.handleResult)
	return cycle
}

// handleResult folds one fetch completion into the board
func (b *Board) handleResult(res FetchResult) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cycle := b.cycle
	if cycle == nil || cycle.superseded || res.Cycle != cycle.Number {
		b.log.Debug().
			Uint64("cycle", res.Cycle).
			Int("slot", res.Slot).
			Msg("Ignoring result from superseded cycle")
		return
	}
	cycle.reported++

	idx, applied := Apply(&b.slots, cycle.Number, res)
	if applied {
		cycle.completed++
		event := b.log.Debug()
		if res.Err != nil {
			event = b.log.Warn().Err(res.Err)
		}
		event.
			Uint64("cycle", cycle.Number).
			Int("slot", idx).
			Str("video_id", res.VideoID).
			Str("state", b.slots[idx].State.String()).
			Int("completed", cycle.completed).
			Msg("Thumbnail completed")
	}

	if applied && b.slots.AllLoaded() && cycle.fireReady() {
		b.log.Info().Uint64("cycle", cycle.Number).Msg("All thumbnails loaded")
		b.renderLocked()
	}

	if cycle.reported >= cycle.requested {
		cycle.settle()
	}
}

// renderLocked regenerates the artifact; failures leave it nil so a later
// export request can try again
func (b *Board) renderLocked() {
	var cycle uint64
	if b.cycle != nil {
		cycle = b.cycle.Number
	}

	artifact, err := b.compositor.Composite(&b.slots, cycle)
	if err != nil {
		b.artifact = nil
		b.log.Error().Err(err).Uint64("cycle", cycle).Msg("Failed to render collage")
		return
	}
	b.artifact = artifact
}

// Reorder swaps slots from and to against the current slot set
func (b *Board) Reorder(from, to int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.touchLocked()
	return b.reorderLocked(from, to)
}

func (b *Board) reorderLocked(from, to int) error {
	next, err := Reorder(b.slots, from, to)
	if err != nil {
		return err
	}
	if from == to {
		return nil
	}
	b.slots = next
	b.artifact = nil

	b.log.Debug().Int("from", from).Int("to", to).Msg("Slots swapped")

	if b.slots.AllLoaded() {
		b.renderLocked()
	}
	return nil
}

// DragStart picks up slot i
func (b *Board) DragStart(i int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.touchLocked()
	return b.drag.Start(i)
}

// DragDrop drops the picked-up slot on target and reports whether slots moved
func (b *Board) DragDrop(target int) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.touchLocked()

	from, to, ok, err := b.drag.Drop(target)
	if err != nil || !ok {
		return false, err
	}
	if err := b.reorderLocked(from, to); err != nil {
		return false, err
	}
	return true, nil
}

// DragEnd abandons a drag without moving anything
func (b *Board) DragEnd() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.touchLocked()
	b.drag.End()
}

// Artifact returns the current collage, rendering it if it is missing.
// ErrNotReady is returned while any slot is not Loaded.
func (b *Board) Artifact() (*Artifact, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.touchLocked()

	if !b.slots.AllLoaded() {
		return nil, ErrNotReady
	}
	if b.artifact == nil {
		var cycle uint64
		if b.cycle != nil {
			cycle = b.cycle.Number
		}
		artifact, err := b.compositor.Composite(&b.slots, cycle)
		if err != nil {
			return nil, err
		}
		b.artifact = artifact
	}
	return b.artifact, nil
}

// Playlist returns the playlist link for the current inputs
func (b *Board) Playlist() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.touchLocked()
	return youtube.PlaylistURL(b.slots.VideoIDs(), b.playlistMin)
}

// Snapshot returns a consistent view of the board
func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.touchLocked()

	snap := Snapshot{
		ID:          b.ID,
		Ready:       b.slots.AllLoaded(),
		HasArtifact: b.artifact != nil,
	}
	if b.cycle != nil {
		snap.Cycle = b.cycle.Number
		snap.Completed = b.cycle.completed
		snap.Progress = float64(b.cycle.completed) / float64(SlotCount)
	}
	for i := range b.slots {
		s := &b.slots[i]
		snap.Slots[i] = SlotView{
			Index:        i,
			Input:        s.RawInput,
			VideoID:      s.VideoID,
			ThumbnailURL: s.ThumbnailURL,
			State:        s.State,
			Error:        s.LastError,
		}
	}
	if src, ok := b.drag.Source(); ok {
		snap.DragSource = &src
	}
	snap.PlaylistURL, snap.HasPlaylist = youtube.PlaylistURL(b.slots.VideoIDs(), b.playlistMin)
	return snap
}

// Cancel aborts the current cycle's outstanding fetches
func (b *Board) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cycle != nil {
		b.cycle.supersede()
	}
}

// IdleDuration returns how long the board has gone without a request
func (b *Board) IdleDuration() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return time.Since(b.lastAccess)
}

func (b *Board) touchLocked() {
	b.lastAccess = time.Now()
}
