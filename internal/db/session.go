package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stwalsh4118/ytcollage/internal/models"
	"gorm.io/gorm"
)

// SessionRepository handles database operations for board sessions
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session into the database
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	result := r.db.WithContext(ctx).Create(session)
	if result.Error != nil {
		return fmt.Errorf("failed to create session: %w", MapGormError(result.Error))
	}
	return nil
}

// GetByID retrieves a session by its UUID
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	var session models.Session
	result := r.db.WithContext(ctx).Where("id = ?", id.String()).First(&session)
	if result.Error != nil {
		return nil, MapGormError(result.Error)
	}
	return &session, nil
}

// SaveInputs stores the inputs of session id, recreating the row when it was
// pruned while the board was still live
func (r *SessionRepository) SaveInputs(ctx context.Context, id uuid.UUID, inputs models.SlotInputs) error {
	now := time.Now().UTC()
	return r.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		result := tx.Model(&models.Session{}).
			Where("id = ?", id.String()).
			Updates(map[string]interface{}{
				"inputs":     inputs,
				"updated_at": now,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update session inputs: %w", MapGormError(result.Error))
		}
		if result.RowsAffected > 0 {
			return nil
		}

		session := &models.Session{ID: id, Inputs: inputs, CreatedAt: now, UpdatedAt: now}
		if err := tx.Create(session).Error; err != nil {
			return fmt.Errorf("failed to recreate session: %w", MapGormError(err))
		}
		return nil
	})
}

// Delete deletes a session by its UUID
func (r *SessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id.String()).Delete(&models.Session{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete session: %w", MapGormError(result.Error))
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteOlderThan removes sessions not updated since cutoff and returns how many went
func (r *SessionRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("updated_at < ?", cutoff.UTC()).Delete(&models.Session{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune sessions: %w", MapGormError(result.Error))
	}
	return result.RowsAffected, nil
}

// Count returns the total number of sessions
func (r *SessionRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.Session{}).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", MapGormError(result.Error))
	}
	return count, nil
}
