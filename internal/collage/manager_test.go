package collage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/ytcollage/internal/models"
)

func newTestManager(t *testing.T, store SessionStore, cfg ManagerConfig) *Manager {
	t.Helper()
	if cfg.PlaylistMin == 0 {
		cfg.PlaylistMin = 2
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = time.Hour
	}
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = time.Hour
	}
	m := NewManager(store, NewCoordinator(newFakeFetcher(), testBaseURL), NewCompositor(30), cfg)
	t.Cleanup(m.Stop)
	return m
}

func TestManager_CreatePersistsSession(t *testing.T) {
	store := newMemStore()
	m := newTestManager(t, store, ManagerConfig{})

	board, err := m.Create(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, board.ID)
	assert.Equal(t, 1, m.Count())

	session, ok := store.get(board.ID)
	require.True(t, ok)
	assert.Equal(t, models.SlotInputs{}, session.Inputs)

	got, err := m.Get(context.Background(), board.ID)
	require.NoError(t, err)
	assert.Same(t, board, got)
}

func TestManager_GetUnknownBoard(t *testing.T) {
	m := newTestManager(t, newMemStore(), ManagerConfig{})

	_, err := m.Get(context.Background(), uuid.New())
	assert.True(t, IsBoardNotFound(err))
}

func TestManager_SaveAndRestoreAfterEviction(t *testing.T) {
	store := newMemStore()
	m := newTestManager(t, store, ManagerConfig{IdleTimeout: time.Nanosecond})
	ctx := context.Background()

	board, err := m.Create(ctx)
	require.NoError(t, err)
	board.SetInputs(fullInputs())
	require.NoError(t, m.Save(ctx, board))

	time.Sleep(time.Millisecond)
	m.performCleanup()
	assert.Equal(t, 0, m.Count())

	restored, err := m.Get(ctx, board.ID)
	require.NoError(t, err)
	assert.NotSame(t, board, restored)
	assert.Equal(t, fullInputs(), restored.Inputs())
	assert.Equal(t, StateEmpty, restored.Snapshot().Slots[0].State, "restored boards need a new preview")
	assert.Equal(t, 1, m.Count())
}

func TestManager_CleanupKeepsActiveBoards(t *testing.T) {
	m := newTestManager(t, newMemStore(), ManagerConfig{IdleTimeout: time.Hour})

	_, err := m.Create(context.Background())
	require.NoError(t, err)

	m.performCleanup()
	assert.Equal(t, 1, m.Count())
}

func TestManager_CleanupPrunesExpiredSessions(t *testing.T) {
	store := newMemStore()
	m := newTestManager(t, store, ManagerConfig{SessionRetention: time.Hour})

	stale := models.NewSession(models.SlotInputs{})
	stale.UpdatedAt = time.Now().Add(-2 * time.Hour)
	require.NoError(t, store.Create(context.Background(), stale))

	fresh, err := m.Create(context.Background())
	require.NoError(t, err)

	m.performCleanup()

	_, ok := store.get(stale.ID)
	assert.False(t, ok)
	_, ok = store.get(fresh.ID)
	assert.True(t, ok)
	assert.Equal(t, 1, store.pruned)
}

func TestManager_SaveRecreatesPrunedSession(t *testing.T) {
	store := newMemStore()
	m := newTestManager(t, store, ManagerConfig{})
	ctx := context.Background()

	board, err := m.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, board.ID))

	require.NoError(t, board.SetInput(0, watchURL("dQw4w9WgXcQ")))
	require.NoError(t, m.Save(ctx, board))

	session, ok := store.get(board.ID)
	require.True(t, ok)
	assert.Equal(t, watchURL("dQw4w9WgXcQ"), session.Inputs[0])
}

func TestManager_Delete(t *testing.T) {
	store := newMemStore()
	m := newTestManager(t, store, ManagerConfig{})
	ctx := context.Background()

	board, err := m.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, board.ID))
	assert.Equal(t, 0, m.Count())
	_, ok := store.get(board.ID)
	assert.False(t, ok)

	assert.True(t, IsBoardNotFound(m.Delete(ctx, board.ID)))

	_, err = m.Get(ctx, board.ID)
	assert.True(t, IsBoardNotFound(err))
}

func TestManager_SaveAfterDeleteDoesNotRecreateSession(t *testing.T) {
	store := newMemStore()
	m := newTestManager(t, store, ManagerConfig{})
	ctx := context.Background()

	board, err := m.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, board.SetInput(0, watchURL("dQw4w9WgXcQ")))

	require.NoError(t, m.Delete(ctx, board.ID))

	err = m.Save(ctx, board)
	assert.True(t, IsBoardNotFound(err))
	_, ok := store.get(board.ID)
	assert.False(t, ok)
}

func TestManager_PolledBoardSurvivesCleanup(t *testing.T) {
	m := newTestManager(t, newMemStore(), ManagerConfig{IdleTimeout: time.Minute})

	board, err := m.Create(context.Background())
	require.NoError(t, err)

	board.mu.Lock()
	board.lastAccess = time.Now().Add(-time.Hour)
	board.mu.Unlock()

	board.Snapshot()
	m.performCleanup()
	assert.Equal(t, 1, m.Count())
}

func TestManager_StartAndStop(t *testing.T) {
	m := newTestManager(t, newMemStore(), ManagerConfig{CleanupInterval: 10 * time.Millisecond})

	require.NoError(t, m.Start())
	board, err := m.Create(context.Background())
	require.NoError(t, err)

	m.Stop()
	m.Stop()

	assert.Equal(t, 0, m.Count())
	assert.ErrorIs(t, m.Start(), ErrManagerStopped)

	_, err = m.Create(context.Background())
	assert.ErrorIs(t, err, ErrManagerStopped)
	_, err = m.Get(context.Background(), board.ID)
	assert.ErrorIs(t, err, ErrManagerStopped)
}

func TestManager_StopAbortsOutstandingFetches(t *testing.T) {
	fetcher := newFakeFetcher()
	gate := fetcher.gate(testVideoID(0))
	defer close(gate)

	store := newMemStore()
	m := NewManager(store, NewCoordinator(fetcher, testBaseURL), NewCompositor(30), ManagerConfig{
		PlaylistMin:     2,
		IdleTimeout:     time.Hour,
		CleanupInterval: time.Hour,
	})

	board, err := m.Create(context.Background())
	require.NoError(t, err)
	board.SetInputs(fullInputs())
	cycle := board.Preview()

	m.Stop()
	waitClosed(t, cycle.Settled(), "settled")
	assertNotClosed(t, cycle.Ready(), "ready")
}
