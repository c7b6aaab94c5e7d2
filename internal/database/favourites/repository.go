// Package favourites provides database operations for users' favourite recipes.
//
// # Usage
//
//	repo := favourites.NewRepository(db)
//	added, err := repo.Toggle(ctx, userID, recipeID)
package favourites

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/cookbook/internal/entities"
)

// Repository handles all favourites database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new favourites repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Add marks a recipe as favourite. Adding an existing favourite is a no-op.
func (r *Repository) Add(ctx context.Context, userID, recipeID uint) error {
	fav := &entities.Favorite{UserID: userID, RecipeID: recipeID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(fav).Error
}

// Remove deletes a favourite and reports whether one existed.
func (r *Repository) Remove(ctx context.Context, userID, recipeID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(&entities.Favorite{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Toggle flips the favourite state and returns the new state.
func (r *Repository) Toggle(ctx context.Context, userID, recipeID uint) (bool, error) {
	var favourite bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("user_id = ? AND recipe_id = ?", userID, recipeID).Delete(&entities.Favorite{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			return nil
		}
		favourite = true
		return tx.Create(&entities.Favorite{UserID: userID, RecipeID: recipeID}).Error
	})
	return favourite, err
}

// IsFavorite reports whether the user has favourited the recipe.
func (r *Repository) IsFavorite(ctx context.Context, userID, recipeID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Favorite{}).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Count(&count).Error
	return count > 0, err
}

// ListRecipeIDs returns the ids of the user's favourite recipes, most recent first.
func (r *Repository) ListRecipeIDs(ctx context.Context, userID uint) ([]uint, error) {
	ids := []uint{}
	err := r.db.WithContext(ctx).Model(&entities.Favorite{}).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Pluck("recipe_id", &ids).Error
	return ids, err
}

// ListRecipes returns the user's favourite recipes, most recently favourited first.
func (r *Repository) ListRecipes(ctx context.Context, userID uint) ([]entities.Recipe, error) {
	recipes := []entities.Recipe{}
	err := r.db.WithContext(ctx).
		Joins("JOIN favorites ON favorites.recipe_id = recipes.id").
		Where("favorites.user_id = ?", userID).
		Order("favorites.created_at DESC, favorites.id DESC").
		Find(&recipes).Error
	return recipes, err
}

// CountForUser returns how many recipes the user has favourited.
func (r *Repository) CountForUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Favorite{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// CountForRecipe returns how many users have favourited the recipe.
func (r *Repository) CountForRecipe(ctx context.Context, recipeID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Favorite{}).Where("recipe_id = ?", recipeID).Count(&count).Error
	return count, err
}
