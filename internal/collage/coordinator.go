package collage

import (
	"context"
	"image"
	"sync"
	"sync/atomic"

	"github.com/stwalsh4118/ytcollage/internal/thumbnail"
	"github.com/stwalsh4118/ytcollage/internal/youtube"
)

// FetchRequest is one thumbnail fetch issued for a cycle
type FetchRequest struct {
	Cycle   uint64
	Token   uint64
	Slot    int
	VideoID string
	URL     string
}

// FetchResult reports the completion of a FetchRequest
type FetchResult struct {
	FetchRequest
	Image image.Image
	Err   error
}

// Coordinator resolves slots to thumbnail addresses and fans fetches out and
// back in. It holds no board state; callers pass the SlotSet explicitly and
// serialize access to it.
type Coordinator struct {
	fetcher thumbnail.Fetcher
	baseURL string
	tokens  atomic.Uint64
}

// NewCoordinator creates a coordinator fetching from baseURL through fetcher
func NewCoordinator(fetcher thumbnail.Fetcher, baseURL string) *Coordinator {
	return &Coordinator{
		fetcher: fetcher,
		baseURL: baseURL,
	}
}

// Begin resets every slot for a new cycle and returns the fetches to issue.
// Slots without a valid id become Empty; the rest become Pending with a
// fresh token.
func (c *Coordinator) Begin(set *SlotSet, cycle uint64) []FetchRequest {
	reqs := make([]FetchRequest, 0, SlotCount)

	for i := range set {
		slot := &set[i]
		slot.clearThumbnail()

		id, ok := youtube.ExtractVideoID(slot.RawInput)
		if !ok {
			slot.VideoID = ""
			continue
		}

		slot.VideoID = id
		slot.ThumbnailURL = youtube.ThumbnailURL(c.baseURL, id)
		slot.State = StatePending
		slot.token = c.tokens.Add(1)

		reqs = append(reqs, FetchRequest{
			Cycle:   cycle,
			Token:   slot.token,
			Slot:    i,
			VideoID: id,
			URL:     slot.ThumbnailURL,
		})
	}

	return reqs
}

// Run issues every request concurrently and returns without waiting. report
// is called exactly once per request, in completion order.
func (c *Coordinator) Run(ctx context.Context, reqs []FetchRequest, report func(FetchResult)) *sync.WaitGroup {
	var wg sync.WaitGroup
	for _, req := range reqs {
		wg.Add(1)
		go func(req FetchRequest) {
			defer wg.Done()
			img, err := c.fetcher.Fetch(ctx, req.URL)
			report(FetchResult{FetchRequest: req, Image: img, Err: err})
		}(req)
	}
	return &wg
}

// Apply records res on set if it belongs to the current cycle and a slot still
// carries its token. The slot is found by token, not by the index at issue
// time, so a swap during the fetch is honoured. It returns the slot updated.
func Apply(set *SlotSet, current uint64, res FetchResult) (int, bool) {
	if res.Cycle != current || res.Token == 0 {
		return -1, false
	}

	for i := range set {
		slot := &set[i]
		if slot.token != res.Token || slot.State != StatePending {
			continue
		}

		if res.Err != nil || res.Image == nil {
			slot.State = StateFailed
			slot.Image = nil
			if res.Err != nil {
				slot.LastError = res.Err.Error()
			}
		} else {
			slot.State = StateLoaded
			slot.Image = res.Image
			slot.LastError = ""
		}
		return i, true
	}

	return -1, false
}

// Cycle is one preview run. Ready is closed at most once, when all nine slots
// have loaded; Settled is closed when every issued fetch has reported or the
// cycle was superseded.
type Cycle struct {
	Number uint64

	requested  int
	reported   int
	completed  int
	readyFired bool
	settled    bool
	superseded bool

	ready      chan struct{}
	settledCh  chan struct{}
	cancelFunc context.CancelFunc
}

func newCycle(number uint64, requested int, cancel context.CancelFunc) *Cycle {
	return &Cycle{
		Number:     number,
		requested:  requested,
		ready:      make(chan struct{}),
		settledCh:  make(chan struct{}),
		cancelFunc: cancel,
	}
}

// Ready is closed when the cycle's thumbnails are all loaded
func (c *Cycle) Ready() <-chan struct{} {
	return c.ready
}

// Settled is closed when no fetch of the cycle is outstanding any more
func (c *Cycle) Settled() <-chan struct{} {
	return c.settledCh
}

// fireReady must be called with the owning board locked
func (c *Cycle) fireReady() bool {
	if c.readyFired {
		return false
	}
	c.readyFired = true
	close(c.ready)
	return true
}

// settle must be called with the owning board locked
func (c *Cycle) settle() {
	if c.settled {
		return
	}
	c.settled = true
	close(c.settledCh)
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
}

// supersede must be called with the owning board locked
func (c *Cycle) supersede() {
	c.superseded = true
	c.settle()
}
