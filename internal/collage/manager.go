package collage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stwalsh4118/ytcollage/internal/db"
	"github.com/stwalsh4118/ytcollage/internal/logger"
	"github.com/stwalsh4118/ytcollage/internal/models"
)

// SessionStore persists the raw inputs of each board
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	SaveInputs(ctx context.Context, id uuid.UUID, inputs models.SlotInputs) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ManagerConfig holds the manager's timing and board settings
type ManagerConfig struct {
	PlaylistMin      int
	IdleTimeout      time.Duration
	CleanupInterval  time.Duration
	SessionRetention time.Duration
}

// Manager keeps live boards in memory, backed by the session store
type Manager struct {
	store       SessionStore
	coordinator *Coordinator
	compositor  *Compositor
	config      ManagerConfig

	ctx    context.Context
	cancel context.CancelFunc

	boards map[uuid.UUID]*Board
	// persistMu orders restores, saves and deletes so a save never
	// writes back a session that a delete already removed
	persistMu     sync.Mutex
	cleanupTicker *time.Ticker
	stopChan      chan struct{}
	cleanupDone   chan struct{}
	mu            sync.RWMutex
	stopped       bool
}

// NewManager creates a new board manager
func NewManager(store SessionStore, coordinator *Coordinator, compositor *Compositor, cfg ManagerConfig) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		store:       store,
		coordinator: coordinator,
		compositor:  compositor,
		config:      cfg,
		ctx:         ctx,
		cancel:      cancel,
		boards:      make(map[uuid.UUID]*Board),
		stopChan:    make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Start begins the background cleanup of idle boards
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return ErrManagerStopped
	}

	m.cleanupTicker = time.NewTicker(m.config.CleanupInterval)
	go m.runCleanupLoop()

	logger.Log.Info().
		Dur("cleanup_interval", m.config.CleanupInterval).
		Dur("idle_timeout", m.config.IdleTimeout).
		Dur("session_retention", m.config.SessionRetention).
		Msg("Board manager started")

	return nil
}

// Stop halts cleanup and aborts every board's outstanding fetches
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	ticker := m.cleanupTicker
	m.mu.Unlock()

	logger.Log.Info().Msg("Stopping board manager...")

	close(m.stopChan)
	if ticker != nil {
		<-m.cleanupDone
		ticker.Stop()
	}

	m.cancel()

	m.mu.Lock()
	count := len(m.boards)
	for id, board := range m.boards {
		board.Cancel()
		delete(m.boards, id)
	}
	m.mu.Unlock()

	logger.Log.Info().
		Int("released_boards", count).
		Msg("Board manager stopped")
}

// Create persists a new session with nine empty inputs and returns its board
func (m *Manager) Create(ctx context.Context) (*Board, error) {
	if m.isStopped() {
		return nil, ErrManagerStopped
	}

	session := models.NewSession(models.SlotInputs{})
	if err := m.store.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create board session: %w", err)
	}

	board := m.register(session.ID, [SlotCount]string(session.Inputs))

	logger.Log.Info().
		Str("board_id", session.ID.String()).
		Msg("Board created")

	return board, nil
}

// Get returns the live board for id, restoring it from the session store
// with its saved inputs when it is not in memory
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*Board, error) {
	m.mu.RLock()
	stopped := m.stopped
	board, ok := m.boards[id]
	m.mu.RUnlock()

	if stopped {
		return nil, ErrManagerStopped
	}
	if ok {
		return board, nil
	}

	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	session, err := m.store.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrBoardNotFound
		}
		return nil, fmt.Errorf("failed to load board session: %w", err)
	}

	board = m.register(id, [SlotCount]string(session.Inputs))

	logger.Log.Info().
		Str("board_id", id.String()).
		Msg("Board restored from session")

	return board, nil
}

// Save persists the board's current inputs. A board that is no longer
// registered was deleted or released and is not written back.
func (m *Manager) Save(ctx context.Context, board *Board) error {
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	m.mu.RLock()
	stopped := m.stopped
	current := m.boards[board.ID]
	m.mu.RUnlock()

	if stopped {
		return ErrManagerStopped
	}
	if current != board {
		return ErrBoardNotFound
	}

	if err := m.store.SaveInputs(ctx, board.ID, models.SlotInputs(board.Inputs())); err != nil {
		return fmt.Errorf("failed to save board inputs: %w", err)
	}
	return nil
}

// Delete releases the live board and removes its session
func (m *Manager) Delete(ctx context.Context, id uuid.UUID) error {
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	m.mu.Lock()
	board, live := m.boards[id]
	delete(m.boards, id)
	m.mu.Unlock()

	if live {
		board.Cancel()
	}

	if err := m.store.Delete(ctx, id); err != nil {
		if db.IsNotFound(err) {
			if live {
				return nil
			}
			return ErrBoardNotFound
		}
		return fmt.Errorf("failed to delete board session: %w", err)
	}

	logger.Log.Info().
		Str("board_id", id.String()).
		Msg("Board deleted")

	return nil
}

// Count returns the number of boards held in memory
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.boards)
}

// register adds a board for id unless a concurrent restore got there first
func (m *Manager) register(id uuid.UUID, inputs [SlotCount]string) *Board {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.boards[id]; ok {
		return existing
	}

	board := NewBoard(id, inputs, BoardOptions{
		Coordinator: m.coordinator,
		Compositor:  m.compositor,
		PlaylistMin: m.config.PlaylistMin,
		Context:     m.ctx,
	})
	m.boards[id] = board
	return board
}

func (m *Manager) isStopped() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stopped
}

// runCleanupLoop runs periodic eviction of idle boards
func (m *Manager) runCleanupLoop() {
	defer close(m.cleanupDone)

	logger.Log.Debug().Msg("Cleanup loop started")

	for {
		select {
		case <-m.stopChan:
			logger.Log.Debug().Msg("Cleanup loop stopping")
			return
		case <-m.cleanupTicker.C:
			m.performCleanup()
		}
	}
}

// performCleanup evicts boards idle past the timeout and prunes expired sessions.
// Evicted boards keep their session row and are restored on the next request.
func (m *Manager) performCleanup() {
	m.mu.Lock()
	evicted := 0
	for id, board := range m.boards {
		idle := board.IdleDuration()
		if idle < m.config.IdleTimeout {
			continue
		}
		board.Cancel()
		delete(m.boards, id)
		evicted++

		logger.Log.Info().
			Str("board_id", id.String()).
			Dur("idle_duration", idle).
			Msg("Evicted idle board")
	}
	active := len(m.boards)
	m.mu.Unlock()

	if evicted > 0 {
		logger.Log.Info().
			Int("evicted_count", evicted).
			Int("active_count", active).
			Msg("Cleanup cycle completed")
	}

	if m.config.SessionRetention <= 0 {
		return
	}

	cutoff := time.Now().Add(-m.config.SessionRetention)
	pruned, err := m.store.DeleteOlderThan(m.ctx, cutoff)
	if err != nil {
		logger.Log.Warn().
			Err(err).
			Msg("Failed to prune expired sessions")
		return
	}
	if pruned > 0 {
		logger.Log.Info().
			Int64("pruned_count", pruned).
			Time("cutoff", cutoff).
			Msg("Pruned expired sessions")
	}
}
