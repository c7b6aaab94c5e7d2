// Package recipes provides database operations for recipes and their step
// images.
//
// # Usage
//
//	repo := recipes.NewRepository(db)
//	recipe, err := repo.GetRecipe(ctx, id)
//	popular, err := repo.Popular(ctx, 5)
package recipes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/cookbook/internal/entities"
)

var ErrRecipeNotFound = errors.New("recipe not found")

// DefaultTopLimit is the number of recipes returned by Popular and MostLiked
// when no positive limit is given.
const DefaultTopLimit = 5

// Filter narrows a recipe listing. Zero values are ignored.
type Filter struct {
	Category       string
	Difficulty     string
	MaxCookingTime int
	// Include lists ingredient fragments that must all appear.
	Include []string
	// Exclude lists ingredient fragments none of which may appear.
	Exclude []string
}

// Update holds a partial recipe update. Nil fields are left untouched.
type Update struct {
	Title        *string
	Ingredients  *string
	Instructions *string
	CookingTime  *int
	Category     *string
	Difficulty   *string
	Servings     *int
	// ImageURL replaces the main image; an empty string removes it.
	ImageURL *string
	// StepImages, when non-nil, replaces every step image of the recipe.
	StepImages *[]entities.RecipeStepImage
}

// Repository handles all recipe database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new recipes repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a recipe together with its step images.
func (r *Repository) Create(ctx context.Context, recipe *entities.Recipe) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(recipe).Error; err != nil {
			return fmt.Errorf("insert recipe: %w", err)
		}
		return nil
	})
}

// GetRecipe loads a recipe with its step images ordered by step.
func (r *Repository) GetRecipe(ctx context.Context, id uint) (*entities.Recipe, error) {
	var recipe entities.Recipe
	err := r.db.WithContext(ctx).
		Preload("StepImages", func(db *gorm.DB) *gorm.DB {
			return db.Order("step_index ASC, id ASC")
		}).
		First(&recipe, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, err
	}
	return &recipe, nil
}

// IncrementViews bumps the view counter of a recipe.
func (r *Repository) IncrementViews(ctx context.Context, id uint) error {
	return r.increment(ctx, id, "views")
}

// IncrementLikes bumps the like counter of a recipe.
func (r *Repository) IncrementLikes(ctx context.Context, id uint) error {
	return r.increment(ctx, id, "likes")
}

func (r *Repository) increment(ctx context.Context, id uint, column string) error {
	result := r.db.WithContext(ctx).Model(&entities.Recipe{}).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecipeNotFound
	}
	return nil
}

// List returns every recipe, newest first.
func (r *Repository) List(ctx context.Context) ([]entities.Recipe, error) {
	return r.find(r.db.WithContext(ctx))
}

// ListByAuthor returns the recipes written by a user, newest first.
func (r *Repository) ListByAuthor(ctx context.Context, authorID uint) ([]entities.Recipe, error) {
	return r.find(r.db.WithContext(ctx).Where("author_id = ?", authorID))
}

// CountByAuthor returns how many recipes a user has written.
func (r *Repository) CountByAuthor(ctx context.Context, authorID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Recipe{}).Where("author_id = ?", authorID).Count(&count).Error
	return count, err
}

// Search matches query case-insensitively against recipe titles. Matching
// runs in Go because SQLite's LOWER only folds ASCII.
func (r *Repository) Search(ctx context.Context, query string) ([]entities.Recipe, error) {
	query = strings.TrimSpace(query)
	all, err := r.List(ctx)
	if err != nil || query == "" {
		return all, err
	}
	needle := fold(query)
	return keep(all, func(recipe entities.Recipe) bool {
		return strings.Contains(fold(recipe.Title), needle)
	}), nil
}

// Filter returns recipes matching every criterion set in f, newest first.
// Ingredient fragments are matched case-insensitively in Go.
func (r *Repository) Filter(ctx context.Context, f Filter) ([]entities.Recipe, error) {
	q := r.db.WithContext(ctx)
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Difficulty != "" {
		q = q.Where("difficulty = ?", f.Difficulty)
	}
	if f.MaxCookingTime > 0 {
		q = q.Where("cooking_time <= ?", f.MaxCookingTime)
	}
	found, err := r.find(q)
	if err != nil {
		return nil, err
	}

	include, exclude := foldTerms(f.Include), foldTerms(f.Exclude)
	if len(include) == 0 && len(exclude) == 0 {
		return found, nil
	}
	return keep(found, func(recipe entities.Recipe) bool {
		ingredients := fold(recipe.Ingredients)
		for _, term := range include {
			if !strings.Contains(ingredients, term) {
				return false
			}
		}
		for _, term := range exclude {
			if strings.Contains(ingredients, term) {
				return false
			}
		}
		return true
	}), nil
}

// Popular returns the most viewed recipes.
func (r *Repository) Popular(ctx context.Context, limit int) ([]entities.Recipe, error) {
	return r.top(ctx, "views", limit)
}

// MostLiked returns the most liked recipes.
func (r *Repository) MostLiked(ctx context.Context, limit int) ([]entities.Recipe, error) {
	return r.top(ctx, "likes", limit)
}

func (r *Repository) top(ctx context.Context, column string, limit int) ([]entities.Recipe, error) {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	recipes := []entities.Recipe{}
	err := r.db.WithContext(ctx).
		Order(column + " DESC").
		Order("created_at DESC").
		Limit(limit).
		Find(&recipes).Error
	return recipes, err
}

// Categories returns the distinct non-empty categories in alphabetical order.
func (r *Repository) Categories(ctx context.Context) ([]string, error) {
	categories := []string{}
	err := r.db.WithContext(ctx).Model(&entities.Recipe{}).
		Where("category <> ''").
		Distinct().
		Order("category ASC").
		Pluck("category", &categories).Error
	return categories, err
}

// Update applies upd to the recipe and returns the updated recipe together
// with the image URLs that are no longer referenced by it.
func (r *Repository) Update(ctx context.Context, id uint, upd Update) (*entities.Recipe, []string, error) {
	var replaced []string

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current entities.Recipe
		if err := tx.Preload("StepImages").First(&current, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecipeNotFound
			}
			return err
		}

		updates := map[string]any{}
		setIf(updates, "title", upd.Title)
		setIf(updates, "ingredients", upd.Ingredients)
		setIf(updates, "instructions", upd.Instructions)
		setIf(updates, "category", upd.Category)
		setIf(updates, "difficulty", upd.Difficulty)
		setIf(updates, "cooking_time", upd.CookingTime)
		setIf(updates, "servings", upd.Servings)
		if upd.ImageURL != nil {
			updates["image_url"] = *upd.ImageURL
			if current.ImageURL != "" && current.ImageURL != *upd.ImageURL {
				replaced = append(replaced, current.ImageURL)
			}
		}

		if len(updates) > 0 {
			if err := tx.Model(&current).Updates(updates).Error; err != nil {
				return fmt.Errorf("update recipe: %w", err)
			}
		}

		if upd.StepImages != nil {
			for _, img := range current.StepImages {
				replaced = append(replaced, img.ImageURL)
			}
			if err := replaceStepImages(tx, id, *upd.StepImages); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	recipe, err := r.GetRecipe(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return recipe, replaced, nil
}

// Delete removes a recipe with its step images, comments, ratings and
// favourites, returning the image URLs the recipe referenced.
func (r *Repository) Delete(ctx context.Context, id uint) ([]string, error) {
	var urls []string

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var recipe entities.Recipe
		if err := tx.Preload("StepImages").First(&recipe, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecipeNotFound
			}
			return err
		}
		urls = recipe.ImageURLs()

		children := []any{
			&entities.RecipeStepImage{},
			&entities.Comment{},
			&entities.Rating{},
			&entities.Favorite{},
		}
		for _, model := range children {
			if err := tx.Where("recipe_id = ?", id).Delete(model).Error; err != nil {
				return fmt.Errorf("delete recipe children: %w", err)
			}
		}
		return tx.Delete(&entities.Recipe{}, id).Error
	})
	if err != nil {
		return nil, err
	}
	return urls, nil
}

// Referenced returns the subset of urls still stored on a recipe, a step
// image or a user avatar.
func (r *Repository) Referenced(ctx context.Context, urls []string) (map[string]struct{}, error) {
	refs := make(map[string]struct{})
	if len(urls) == 0 {
		return refs, nil
	}

	sources := []struct {
		model  any
		column string
	}{
		{&entities.Recipe{}, "image_url"},
		{&entities.RecipeStepImage{}, "image_url"},
		{&entities.User{}, "avatar_url"},
	}
	for _, src := range sources {
		var found []string
		err := r.db.WithContext(ctx).Model(src.model).
			Where(src.column+" IN ?", urls).
			Distinct().
			Pluck(src.column, &found).Error
		if err != nil {
			return nil, fmt.Errorf("check %s references: %w", src.column, err)
		}
		for _, u := range found {
			refs[u] = struct{}{}
		}
	}
	return refs, nil
}

func replaceStepImages(tx *gorm.DB, recipeID uint, images []entities.RecipeStepImage) error {
	if err := tx.Where("recipe_id = ?", recipeID).Delete(&entities.RecipeStepImage{}).Error; err != nil {
		return fmt.Errorf("delete step images: %w", err)
	}
	if len(images) == 0 {
		return nil
	}
	for i := range images {
		images[i].ID = 0
		images[i].RecipeID = recipeID
	}
	if err := tx.Create(&images).Error; err != nil {
		return fmt.Errorf("insert step images: %w", err)
	}
	return nil
}

func (r *Repository) find(q *gorm.DB) ([]entities.Recipe, error) {
	recipes := []entities.Recipe{}
	err := q.Order("created_at DESC").Order("id DESC").Find(&recipes).Error
	return recipes, err
}

func setIf[T any](updates map[string]any, column string, value *T) {
	if value != nil {
		updates[column] = *value
	}
}

func fold(s string) string {
	return strings.ToLower(s)
}

func foldTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		if term = strings.TrimSpace(term); term != "" {
			out = append(out, fold(term))
		}
	}
	return out
}

func keep(recipes []entities.Recipe, match func(entities.Recipe) bool) []entities.Recipe {
	out := []entities.Recipe{}
	for _, recipe := range recipes {
		if match(recipe) {
			out = append(out, recipe)
		}
	}
	return out
}
