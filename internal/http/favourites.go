package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/cookbook/internal/entities"
	"github.com/mrlokans/cookbook/internal/recipes"
)

// FavoriteStore is the favourites persistence used by the controller.
type FavoriteStore interface {
	Add(ctx context.Context, userID, recipeID uint) error
	Remove(ctx context.Context, userID, recipeID uint) (bool, error)
	Toggle(ctx context.Context, userID, recipeID uint) (bool, error)
	ListRecipeIDs(ctx context.Context, userID uint) ([]uint, error)
	ListRecipes(ctx context.Context, userID uint) ([]entities.Recipe, error)
}

type favoriteRequest struct {
	RecipeID uint `json:"recipe_id" binding:"required"`
}

type FavouritesController struct {
	store   FavoriteStore
	recipes *recipes.Service
}

func NewFavouritesController(store FavoriteStore, svc *recipes.Service) *FavouritesController {
	return &FavouritesController{store: store, recipes: svc}
}

// List handles GET /api/auth/favorites
func (fc *FavouritesController) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	ids, err := fc.store.ListRecipeIDs(c.Request.Context(), user.ID)
	if err != nil {
		respondInternalError(c, err, "list favorites")
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorites": ids})
}

// Recipes handles GET /api/auth/favorite-recipes
func (fc *FavouritesController) Recipes(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	list, err := fc.store.ListRecipes(c.Request.Context(), user.ID)
	if err != nil {
		respondInternalError(c, err, "list favorite recipes")
		return
	}
	c.JSON(http.StatusOK, list)
}

// Add handles POST /api/auth/favorites
func (fc *FavouritesController) Add(c *gin.Context) {
	user, recipeID, ok := fc.bind(c, true)
	if !ok {
		return
	}
	if err := fc.store.Add(c.Request.Context(), user.ID, recipeID); err != nil {
		respondInternalError(c, err, "add favorite")
		return
	}
	respondSuccess(c, "Recipe added to favorites")
}

// Remove handles POST /api/auth/favorites/remove
func (fc *FavouritesController) Remove(c *gin.Context) {
	user, recipeID, ok := fc.bind(c, false)
	if !ok {
		return
	}
	removed, err := fc.store.Remove(c.Request.Context(), user.ID, recipeID)
	if err != nil {
		respondInternalError(c, err, "remove favorite")
		return
	}
	if !removed {
		respondBadRequest(c, "Recipe is not in favorites")
		return
	}
	respondSuccess(c, "Recipe removed from favorites")
}

// Toggle handles POST /api/auth/favorites/toggle
func (fc *FavouritesController) Toggle(c *gin.Context) {
	user, recipeID, ok := fc.bind(c, true)
	if !ok {
		return
	}
	favorite, err := fc.store.Toggle(c.Request.Context(), user.ID, recipeID)
	if err != nil {
		respondInternalError(c, err, "toggle favorite")
		return
	}
	message := "Recipe removed from favorites"
	if favorite {
		message = "Recipe added to favorites"
	}
	c.JSON(http.StatusOK, gin.H{"message": message, "is_favorite": favorite})
}

// bind reads the acting user and recipe id. With mustExist the recipe is
// looked up first so favourites never point at missing recipes.
func (fc *FavouritesController) bind(c *gin.Context, mustExist bool) (*entities.User, uint, bool) {
	user, ok := currentUser(c)
	if !ok {
		return nil, 0, false
	}
	var req favoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Recipe ID is required")
		return nil, 0, false
	}
	if mustExist {
		exists, err := fc.recipes.Exists(c.Request.Context(), req.RecipeID)
		if err != nil {
			respondInternalError(c, err, "check recipe")
			return nil, 0, false
		}
		if !exists {
			respondNotFound(c, "Recipe")
			return nil, 0, false
		}
	}
	return user, req.RecipeID, true
}
