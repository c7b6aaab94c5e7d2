package entities

import "time"

type Favorite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_recipe_favorite" json:"user_id"`
	RecipeID  uint      `gorm:"not null;uniqueIndex:idx_user_recipe_favorite;index" json:"recipe_id"`
	CreatedAt time.Time `json:"created_at"`
}
