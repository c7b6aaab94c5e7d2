package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/cookbook/internal/auth"
	"github.com/mrlokans/cookbook/internal/profiles"
	"github.com/mrlokans/cookbook/internal/uploads"
)

// profileRequest is the JSON or multipart body of PUT /api/users/:id.
type profileRequest struct {
	Email           *string `json:"email" form:"email"`
	Bio             *string `json:"bio" form:"bio"`
	CurrentPassword string  `json:"current_password" form:"current_password"`
	NewPassword     string  `json:"new_password" form:"new_password"`
}

type UsersController struct {
	service *profiles.Service
}

func NewUsersController(service *profiles.Service) *UsersController {
	return &UsersController{service: service}
}

// Get handles GET /api/users/:id
func (uc *UsersController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	profile, err := uc.service.Get(c.Request.Context(), id)
	if err != nil {
		respondProfileError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// Update handles PUT /api/users/:id. Only the user themselves may edit it.
func (uc *UsersController) Update(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req profileRequest
	changes := profiles.Changes{}
	if isMultipart(c) {
		if err := c.ShouldBind(&req); err != nil {
			respondBadRequest(c, "invalid form data")
			return
		}
		if fh, err := c.FormFile("avatar"); err == nil && fh.Filename != "" {
			file, err := fh.Open()
			if err != nil {
				respondInternalError(c, err, "open avatar")
				return
			}
			defer file.Close()
			changes.Avatar = &profiles.Avatar{Filename: fh.Filename, Body: file}
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	changes.Email = req.Email
	changes.Bio = req.Bio
	changes.CurrentPassword = req.CurrentPassword
	changes.NewPassword = req.NewPassword

	updated, err := uc.service.Update(c.Request.Context(), user, id, changes)
	if err != nil {
		respondProfileError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"user":    updated,
	})
}

func respondProfileError(c *gin.Context, err error) {
	var policy *auth.PasswordPolicyError
	switch {
	case errors.Is(err, profiles.ErrNotFound):
		respondNotFound(c, "User")
	case errors.Is(err, profiles.ErrForbidden):
		respondForbidden(c, err.Error())
	case errors.Is(err, auth.ErrEmailTaken):
		respondConflict(c, err.Error())
	case errors.As(err, &policy),
		errors.Is(err, auth.ErrEmailRequired),
		errors.Is(err, auth.ErrEmailInvalid),
		errors.Is(err, auth.ErrWrongPassword),
		errors.Is(err, auth.ErrEmptyPassword),
		errors.Is(err, profiles.ErrPasswordChangeIncomplete),
		errors.Is(err, uploads.ErrUnsupportedType):
		respondBadRequest(c, rootMessage(err))
	default:
		respondInternalError(c, err, "update profile")
	}
}
