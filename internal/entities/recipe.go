package entities

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"

	DefaultServings = 6
)

type Recipe struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	Title         string            `gorm:"size:200;not null;index" json:"title"`
	Ingredients   string            `gorm:"type:text;not null" json:"-"`
	Instructions  string            `gorm:"type:text" json:"-"`
	CookingTime   int               `gorm:"default:0" json:"cooking_time"`
	Category      string            `gorm:"size:100;index" json:"category"`
	Difficulty    string            `gorm:"size:50;default:'easy'" json:"difficulty"`
	ImageURL      string            `gorm:"size:500" json:"image_url"`
	Author        string            `gorm:"size:100" json:"author"`
	AuthorID      uint              `gorm:"index" json:"author_id"`
	Servings      int               `gorm:"default:6" json:"servings"`
	Rating        float64           `gorm:"default:0" json:"-"`
	RatingCount   int               `gorm:"default:0" json:"rating_count"`
	Views         int               `gorm:"default:0" json:"views"`
	Likes         int               `gorm:"default:0" json:"likes"`
	CommentsCount int               `gorm:"default:0" json:"comments_count"`
	StepImages    []RecipeStepImage `gorm:"foreignKey:RecipeID" json:"step_images"`
	CreatedAt     time.Time         `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// RecipeStepImage is an illustration attached to one instruction step.
type RecipeStepImage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RecipeID  uint      `gorm:"index;not null" json:"recipe_id"`
	StepIndex int       `gorm:"not null" json:"step_index"`
	ImageURL  string    `gorm:"size:500;not null" json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}

// MarshalJSON emits ingredients and instructions as structured JSON when they
// were stored as a JSON array or object, and as plain strings otherwise.
func (r Recipe) MarshalJSON() ([]byte, error) {
	type recipe Recipe
	if r.StepImages == nil {
		r.StepImages = []RecipeStepImage{}
	}
	return json.Marshal(struct {
		recipe
		Ingredients  json.RawMessage `json:"ingredients"`
		Instructions json.RawMessage `json:"instructions"`
		Rating       float64         `json:"rating"`
	}{
		recipe:       recipe(r),
		Ingredients:  StructuredText(r.Ingredients),
		Instructions: StructuredText(r.Instructions),
		Rating:       RoundRating(r.Rating),
	})
}

// ImageURLs returns the main image and every step image of the recipe.
func (r *Recipe) ImageURLs() []string {
	var urls []string
	if r.ImageURL != "" {
		urls = append(urls, r.ImageURL)
	}
	for _, img := range r.StepImages {
		if img.ImageURL != "" {
			urls = append(urls, img.ImageURL)
		}
	}
	return urls
}

// StructuredText returns s as raw JSON if it holds a JSON array or object,
// or as a JSON string literal otherwise.
func StructuredText(s string) json.RawMessage {
	trimmed := strings.TrimSpace(s)
	if (strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{")) && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	encoded, _ := json.Marshal(s)
	return encoded
}

// RoundRating rounds an average rating to one decimal place.
func RoundRating(v float64) float64 {
	return math.Round(v*10) / 10
}
