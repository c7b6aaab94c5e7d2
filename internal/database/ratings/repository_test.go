package ratings

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/cookbook/internal/entities"
)

func setupTestDB(t *testing.T) (*gorm.DB, *Repository, *entities.Recipe) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "ratings.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.Recipe{}, &entities.Rating{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	recipe := &entities.Recipe{Title: "Soup", Ingredients: "water", AuthorID: 1}
	require.NoError(t, db.Create(recipe).Error)
	return db, NewRepository(db), recipe
}

func TestRepository_Upsert(t *testing.T) {
	db, repo, recipe := setupTestDB(t)
	ctx := context.Background()

	summary, err := repo.Upsert(ctx, 1, recipe.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, Summary{Average: 5, Count: 1}, summary)

	summary, err = repo.Upsert(ctx, 2, recipe.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, Summary{Average: 4.5, Count: 2}, summary)

	summary, err = repo.Upsert(ctx, 3, recipe.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, Summary{Average: 4.3, Count: 3}, summary)

	t.Run("second rating by same user replaces the first", func(t *testing.T) {
		summary, err := repo.Upsert(ctx, 1, recipe.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, Summary{Average: 3, Count: 3}, summary)

		value, ok, err := repo.GetUserRating(ctx, 1, recipe.ID)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 1, value)
	})

	var stored entities.Recipe
	require.NoError(t, db.First(&stored, recipe.ID).Error)
	assert.Equal(t, 3.0, stored.Rating)
	assert.Equal(t, 3, stored.RatingCount)
}

func TestRepository_GetUserRatingMissing(t *testing.T) {
	_, repo, recipe := setupTestDB(t)

	_, ok, err := repo.GetUserRating(context.Background(), 42, recipe.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepository_Recount(t *testing.T) {
	db, repo, recipe := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&entities.Rating{UserID: 1, RecipeID: recipe.ID, Value: 2}).Error)
	require.NoError(t, db.Create(&entities.Rating{UserID: 2, RecipeID: recipe.ID, Value: 3}).Error)

	summary, err := repo.Recount(ctx, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, Summary{Average: 2.5, Count: 2}, summary)

	empty, err := repo.Recount(ctx, 999)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, empty)
}
