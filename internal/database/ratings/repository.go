// Package ratings stores per-user recipe ratings and keeps the recipe's
// average and count aggregates consistent with them.
package ratings

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/cookbook/internal/entities"
)

// Summary is a recipe's rating aggregate.
type Summary struct {
	Average float64 `json:"rating"`
	Count   int     `json:"rating_count"`
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Upsert records the user's rating for a recipe, replacing any earlier one,
// and recomputes the recipe aggregate in the same transaction.
func (r *Repository) Upsert(ctx context.Context, userID, recipeID uint, value int) (Summary, error) {
	var summary Summary
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rating := &entities.Rating{UserID: userID, RecipeID: recipeID, Value: value}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "recipe_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rating", "updated_at"}),
		}).Create(rating).Error
		if err != nil {
			return fmt.Errorf("upsert rating: %w", err)
		}

		summary, err = recount(tx, recipeID)
		return err
	})
	return summary, err
}

// Recount recomputes a recipe's aggregate from its stored ratings.
func (r *Repository) Recount(ctx context.Context, recipeID uint) (Summary, error) {
	var summary Summary
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		summary, err = recount(tx, recipeID)
		return err
	})
	return summary, err
}

// GetUserRating returns the user's rating for a recipe and whether one exists.
func (r *Repository) GetUserRating(ctx context.Context, userID, recipeID uint) (int, bool, error) {
	var rating entities.Rating
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		First(&rating).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return rating.Value, true, nil
}

func recount(tx *gorm.DB, recipeID uint) (Summary, error) {
	var row struct {
		Average float64
		Count   int
	}
	err := tx.Model(&entities.Rating{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count").
		Where("recipe_id = ?", recipeID).
		Scan(&row).Error
	if err != nil {
		return Summary{}, fmt.Errorf("aggregate ratings: %w", err)
	}

	summary := Summary{Average: entities.RoundRating(row.Average), Count: row.Count}
	err = tx.Model(&entities.Recipe{}).
		Where("id = ?", recipeID).
		UpdateColumns(map[string]any{"rating": summary.Average, "rating_count": summary.Count}).Error
	if err != nil {
		return Summary{}, fmt.Errorf("update recipe rating: %w", err)
	}
	return summary, nil
}
