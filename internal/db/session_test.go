package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/ytcollage/internal/models"
)

// setupTestDB creates a migrated database in a temp directory
func setupTestDB(t *testing.T) (*DB, *Repositories) {
	t.Helper()

	database, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, RunMigrations(database, "file://../../migrations"))

	return database, NewRepositories(database)
}

func sampleInputs() models.SlotInputs {
	return models.SlotInputs{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://youtu.be/9bZkp7q19f0",
		"",
		"not a link",
	}
}

func TestSessionRepository_CreateAndGet(t *testing.T) {
	_, repos := setupTestDB(t)
	ctx := context.Background()

	session := models.NewSession(sampleInputs())
	require.NoError(t, repos.Sessions.Create(ctx, session))

	got, err := repos.Sessions.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, sampleInputs(), got.Inputs)
	assert.WithinDuration(t, session.CreatedAt, got.CreatedAt, time.Second)
}

func TestSessionRepository_CreateDuplicate(t *testing.T) {
	_, repos := setupTestDB(t)
	ctx := context.Background()

	session := models.NewSession(models.SlotInputs{})
	require.NoError(t, repos.Sessions.Create(ctx, session))

	err := repos.Sessions.Create(ctx, session)
	assert.True(t, IsDuplicate(err))
}

func TestSessionRepository_GetMissing(t *testing.T) {
	_, repos := setupTestDB(t)

	_, err := repos.Sessions.GetByID(context.Background(), uuid.New())
	assert.True(t, IsNotFound(err))
}

func TestSessionRepository_SaveInputs(t *testing.T) {
	_, repos := setupTestDB(t)
	ctx := context.Background()

	session := models.NewSession(models.SlotInputs{})
	require.NoError(t, repos.Sessions.Create(ctx, session))

	require.NoError(t, repos.Sessions.SaveInputs(ctx, session.ID, sampleInputs()))

	got, err := repos.Sessions.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, sampleInputs(), got.Inputs)
	assert.False(t, got.UpdatedAt.Before(session.UpdatedAt))

	count, err := repos.Sessions.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSessionRepository_SaveInputsRecreatesMissingRow(t *testing.T) {
	_, repos := setupTestDB(t)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, repos.Sessions.SaveInputs(ctx, id, sampleInputs()))

	got, err := repos.Sessions.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, sampleInputs(), got.Inputs)
}

func TestSessionRepository_Delete(t *testing.T) {
	_, repos := setupTestDB(t)
	ctx := context.Background()

	session := models.NewSession(models.SlotInputs{})
	require.NoError(t, repos.Sessions.Create(ctx, session))

	require.NoError(t, repos.Sessions.Delete(ctx, session.ID))
	assert.True(t, IsNotFound(repos.Sessions.Delete(ctx, session.ID)))

	_, err := repos.Sessions.GetByID(ctx, session.ID)
	assert.True(t, IsNotFound(err))
}

func TestSessionRepository_DeleteOlderThan(t *testing.T) {
	_, repos := setupTestDB(t)
	ctx := context.Background()

	old := models.NewSession(models.SlotInputs{})
	old.CreatedAt = time.Now().UTC().Add(-48 * time.Hour)
	old.UpdatedAt = old.CreatedAt
	require.NoError(t, repos.Sessions.Create(ctx, old))

	fresh := models.NewSession(models.SlotInputs{})
	require.NoError(t, repos.Sessions.Create(ctx, fresh))

	pruned, err := repos.Sessions.DeleteOlderThan(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	_, err = repos.Sessions.GetByID(ctx, old.ID)
	assert.True(t, IsNotFound(err))
	_, err = repos.Sessions.GetByID(ctx, fresh.ID)
	assert.NoError(t, err)
}

func TestDB_Health(t *testing.T) {
	database, _ := setupTestDB(t)
	assert.NoError(t, database.Health(context.Background()))
}

func TestMapGormError(t *testing.T) {
	assert.Nil(t, MapGormError(nil))
	assert.ErrorIs(t, MapGormError(ErrInvalidInput), ErrInvalidInput)
}
