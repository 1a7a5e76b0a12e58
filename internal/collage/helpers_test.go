package collage

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stwalsh4118/ytcollage/internal/db"
	"github.com/stwalsh4118/ytcollage/internal/models"
)

const testBaseURL = "http://thumbs.test"

// testVideoID returns a valid, distinct 11-character id for n
func testVideoID(n int) string {
	return fmt.Sprintf("video_%05d", n)
}

func watchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// fullInputs returns nine watch links with distinct ids
func fullInputs() [SlotCount]string {
	var inputs [SlotCount]string
	for i := range inputs {
		inputs[i] = watchURL(testVideoID(i))
	}
	return inputs
}

// colorFor returns a distinct opaque color per id
func colorFor(id string) color.RGBA {
	sum := uint32(2166136261)
	for _, r := range id {
		sum ^= uint32(r)
		sum *= 16777619
	}
	return color.RGBA{R: uint8(sum), G: uint8(sum >> 8), B: uint8(sum >> 16), A: 255}
}

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

// idFromURL pulls the id out of .../vi/<id>/hqdefault.jpg
func idFromURL(url string) string {
	parts := strings.Split(url, "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-2]
}

// fakeFetcher serves a solid image per id. Ids can be made to fail or to
// block until their gate is closed.
type fakeFetcher struct {
	mu       sync.Mutex
	failures map[string]error
	gates    map[string]chan struct{}
	calls    map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		failures: make(map[string]error),
		gates:    make(map[string]chan struct{}),
		calls:    make(map[string]int),
	}
}

func (f *fakeFetcher) fail(id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[id] = err
}

func (f *fakeFetcher) gate(id string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[id] = ch
	return ch
}

func (f *fakeFetcher) callCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (image.Image, error) {
	id := idFromURL(url)

	f.mu.Lock()
	f.calls[id]++
	gate := f.gates[id]
	err := f.failures[id]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return solidImage(48, 36, colorFor(id)), nil
}

func newTestBoard(t *testing.T, fetcher *fakeFetcher, inputs [SlotCount]string) *Board {
	t.Helper()
	return NewBoard(uuid.New(), inputs, BoardOptions{
		Coordinator: NewCoordinator(fetcher, testBaseURL),
		Compositor:  NewCompositor(30),
		PlaylistMin: 2,
	})
}

// waitClosed fails the test if ch is not closed within a second
func waitClosed(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

// loadedSet returns a slot set with every slot loaded in its own color
func loadedSet() SlotSet {
	set := NewSlotSet(fullInputs())
	for i := range set {
		set[i].State = StateLoaded
		set[i].Image = solidImage(48, 36, colorFor(set[i].VideoID))
	}
	return set
}

// memStore is an in-memory SessionStore
type memStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]models.Session
	pruned   int
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[uuid.UUID]models.Session)}
}

func (s *memStore) Create(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; ok {
		return db.ErrDuplicate
	}
	s.sessions[session.ID] = *session
	return nil
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &session, nil
}

func (s *memStore) SaveInputs(_ context.Context, id uuid.UUID, inputs models.SlotInputs) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session := s.sessions[id]
	session.ID = id
	session.Inputs = inputs
	session.UpdatedAt = time.Now()
	s.sessions[id] = session
	return nil
}

func (s *memStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return db.ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *memStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, session := range s.sessions {
		if session.UpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	s.pruned += int(n)
	return n, nil
}

func (s *memStore) get(id uuid.UUID) (models.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	return session, ok
}
