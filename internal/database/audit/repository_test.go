package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/cookbook/internal/entities"
)

func setupTestDB(t *testing.T) *Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "audit.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.AuditEvent{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return NewRepository(db)
}

func TestRepository_LogEvent(t *testing.T) {
	repo := setupTestDB(t)

	event := &entities.AuditEvent{
		UserID:      1,
		EventType:   entities.AuditEventAuth,
		Action:      "login",
		Description: "User alice logged in",
		Status:      entities.AuditStatusSuccess,
	}

	require.NoError(t, repo.LogEvent(context.Background(), event))
	assert.NotZero(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())
}

func TestRepository_GetEvents(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		require.NoError(t, repo.LogEvent(ctx, &entities.AuditEvent{
			UserID:    1,
			EventType: entities.AuditEventCreate,
			Action:    "recipe_create",
			Status:    entities.AuditStatusSuccess,
			CreatedAt: time.Now().Add(time.Duration(-i) * time.Hour),
		}))
	}
	require.NoError(t, repo.LogEvent(ctx, &entities.AuditEvent{
		UserID:    2,
		EventType: entities.AuditEventAuth,
		Action:    "login",
		Status:    entities.AuditStatusFailed,
	}))

	events, total, err := repo.GetEvents(ctx, 1, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(15), total)
	assert.Len(t, events, 10)
	assert.True(t, events[0].CreatedAt.After(events[9].CreatedAt))

	events, total, err = repo.GetEvents(ctx, 1, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(15), total)
	assert.Len(t, events, 5)

	_, total, err = repo.GetEvents(ctx, 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(16), total)

	events, total, err = repo.GetEventsByType(ctx, entities.AuditEventAuth, 0, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, entities.AuditStatusFailed, events[0].Status)
}

func TestRepository_GetEventsForEntity(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	recipeID := uint(7)

	require.NoError(t, repo.LogEvent(ctx, &entities.AuditEvent{
		UserID: 1, EventType: entities.AuditEventCreate, Action: "recipe_create",
		EntityType: "recipe", EntityID: &recipeID, Status: entities.AuditStatusSuccess,
	}))
	require.NoError(t, repo.LogEvent(ctx, &entities.AuditEvent{
		UserID: 1, EventType: entities.AuditEventAuth, Action: "login", Status: entities.AuditStatusSuccess,
	}))

	events, err := repo.GetEventsForEntity(ctx, "recipe", recipeID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "recipe_create", events[0].Action)
}

func TestRepository_DeleteOldEvents(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.LogEvent(ctx, &entities.AuditEvent{
		EventType: entities.AuditEventAuth, Action: "old", CreatedAt: time.Now().Add(-40 * 24 * time.Hour),
	}))
	require.NoError(t, repo.LogEvent(ctx, &entities.AuditEvent{
		EventType: entities.AuditEventAuth, Action: "new",
	}))

	deleted, err := repo.DeleteOldEvents(ctx, time.Now().Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	events, total, err := repo.GetEvents(ctx, 0, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "new", events[0].Action)
}
