package collage

// Reorder returns set with slots from and to swapped. Every field of a slot
// moves together: input, id, thumbnail, state, and any outstanding fetch.
func Reorder(set SlotSet, from, to int) (SlotSet, error) {
	if !ValidIndex(from) || !ValidIndex(to) {
		return set, ErrInvalidSlotIndex
	}
	if from == to {
		return set, nil
	}
	set[from], set[to] = set[to], set[from]
	return set, nil
}

// DragState is the state of a drag gesture
type DragState int

const (
	// DragIdle means no drag in progress
	DragIdle DragState = iota
	// DragDragging means a slot has been picked up
	DragDragging
)

// String returns the string representation of DragState
func (s DragState) String() string {
	switch s {
	case DragIdle:
		return "idle"
	case DragDragging:
		return "dragging"
	default:
		return "unknown"
	}
}

// DragTracker follows one drag gesture: Idle -> Dragging(source) -> Idle
type DragTracker struct {
	state  DragState
	source int
}

// Start picks up slot i. Starting again while dragging replaces the source.
func (d *DragTracker) Start(i int) error {
	if !ValidIndex(i) {
		return ErrInvalidSlotIndex
	}
	d.state = DragDragging
	d.source = i
	return nil
}

// Drop ends the drag on target. ok is false when nothing should move: the
// drop landed on the source itself.
func (d *DragTracker) Drop(target int) (from, to int, ok bool, err error) {
	if !ValidIndex(target) {
		return 0, 0, false, ErrInvalidSlotIndex
	}
	if d.state != DragDragging {
		return 0, 0, false, ErrNotDragging
	}

	from = d.source
	d.End()

	if from == target {
		return from, target, false, nil
	}
	return from, target, true, nil
}

// End abandons the drag without moving anything
func (d *DragTracker) End() {
	d.state = DragIdle
	d.source = 0
}

// Source returns the picked-up slot while dragging
func (d *DragTracker) Source() (int, bool) {
	if d.state != DragDragging {
		return 0, false
	}
	return d.source, true
}

// State returns the current drag state
func (d *DragTracker) State() DragState {
	return d.state
}
