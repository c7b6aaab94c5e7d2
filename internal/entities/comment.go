package entities

import (
	"encoding/json"
	"time"
)

type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RecipeID  uint      `gorm:"index;not null" json:"recipe_id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"-"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// AuthorName returns the commenter's username, or "Unknown" when the user
// record was not loaded or no longer exists.
func (c *Comment) AuthorName() string {
	if c.User == nil || c.User.Username == "" {
		return "Unknown"
	}
	return c.User.Username
}

// MarshalJSON adds the commenter's username to the serialized comment.
func (c Comment) MarshalJSON() ([]byte, error) {
	type comment Comment
	return json.Marshal(struct {
		comment
		Username string `json:"username"`
	}{
		comment:  comment(c),
		Username: c.AuthorName(),
	})
}
