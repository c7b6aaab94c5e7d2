package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/cookbook/internal/recipes"
)

type commentRequest struct {
	Text string `json:"text" binding:"required"`
}

type CommentsController struct {
	service *recipes.Service
}

func NewCommentsController(service *recipes.Service) *CommentsController {
	return &CommentsController{service: service}
}

// List handles GET /api/recipes/:id/comments
func (cc *CommentsController) List(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	comments, err := cc.service.Comments(c.Request.Context(), id)
	if err != nil {
		respondInternalError(c, err, "list comments")
		return
	}
	c.JSON(http.StatusOK, comments)
}

// Add handles POST /api/recipes/:id/comments
func (cc *CommentsController) Add(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, recipes.ErrCommentTextRequired.Error())
		return
	}

	comment, err := cc.service.AddComment(c.Request.Context(), user, id, req.Text)
	if err != nil {
		respondRecipeError(c, err, "add comment")
		return
	}
	respondCreated(c, comment)
}

// Delete handles DELETE /api/comments/:id
func (cc *CommentsController) Delete(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := cc.service.DeleteComment(c.Request.Context(), user, id); err != nil {
		respondRecipeError(c, err, "delete comment")
		return
	}
	respondSuccess(c, "Comment deleted successfully")
}
