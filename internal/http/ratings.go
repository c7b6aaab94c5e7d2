package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/cookbook/internal/recipes"
)

type ratingRequest struct {
	Rating int `json:"rating" binding:"required,min=1,max=5"`
}

type RatingsController struct {
	service *recipes.Service
}

func NewRatingsController(service *recipes.Service) *RatingsController {
	return &RatingsController{service: service}
}

// Rate handles POST /api/recipes/:id/rating. The rating is recorded for the
// authenticated user, replacing any earlier rating of theirs.
func (rc *RatingsController) Rate(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req ratingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, recipes.ErrInvalidRating.Error())
		return
	}

	summary, err := rc.service.Rate(c.Request.Context(), user, id, req.Rating)
	if err != nil {
		respondRecipeError(c, err, "rate recipe")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      "Rating added successfully",
		"rating":       summary.Average,
		"rating_count": summary.Count,
	})
}

// Mine handles GET /api/recipes/:id/rating, returning 0 when not rated.
func (rc *RatingsController) Mine(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	value, err := rc.service.UserRating(c.Request.Context(), user, id)
	if err != nil {
		respondInternalError(c, err, "get user rating")
		return
	}
	c.JSON(http.StatusOK, gin.H{"rating": value})
}
