// Package comments provides database operations for recipe comments. Adding
// and deleting a comment keep the recipe's comments_count in step.
package comments

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/cookbook/internal/entities"
)

var ErrCommentNotFound = errors.New("comment not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Add stores a comment and increments the recipe's comment counter.
func (r *Repository) Add(ctx context.Context, comment *entities.Comment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return fmt.Errorf("insert comment: %w", err)
		}
		return tx.Model(&entities.Recipe{}).
			Where("id = ?", comment.RecipeID).
			UpdateColumn("comments_count", gorm.Expr("comments_count + 1")).Error
	})
}

// Get loads a comment with its author.
func (r *Repository) Get(ctx context.Context, id uint) (*entities.Comment, error) {
	var comment entities.Comment
	err := r.db.WithContext(ctx).Preload("User").First(&comment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	return &comment, nil
}

// ListForRecipe returns a recipe's comments with their authors, newest first.
func (r *Repository) ListForRecipe(ctx context.Context, recipeID uint) ([]entities.Comment, error) {
	comments := []entities.Comment{}
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("recipe_id = ?", recipeID).
		Order("created_at DESC, id DESC").
		Find(&comments).Error
	return comments, err
}

// Delete removes a comment and decrements the recipe's counter, never below zero.
func (r *Repository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment entities.Comment
		if err := tx.First(&comment, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCommentNotFound
			}
			return err
		}
		if err := tx.Delete(&comment).Error; err != nil {
			return fmt.Errorf("delete comment: %w", err)
		}
		return tx.Model(&entities.Recipe{}).
			Where("id = ?", comment.RecipeID).
			UpdateColumn("comments_count",
				gorm.Expr("CASE WHEN comments_count > 0 THEN comments_count - 1 ELSE 0 END")).Error
	})
}
