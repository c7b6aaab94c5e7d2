package entities

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

// Rating is one user's score for one recipe.
type Rating struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_recipe_rating" json:"user_id"`
	RecipeID  uint      `gorm:"not null;uniqueIndex:idx_user_recipe_rating;index" json:"recipe_id"`
	Value     int       `gorm:"column:rating;not null" json:"rating"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
