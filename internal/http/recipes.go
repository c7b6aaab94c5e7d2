package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	recipesdb "github.com/mrlokans/cookbook/internal/database/recipes"
	"github.com/mrlokans/cookbook/internal/recipes"
	"github.com/mrlokans/cookbook/internal/uploads"
)

// maxStepImages bounds the step_images_N fields read from one request.
const maxStepImages = 100

// recipeRequest is the JSON body of create and update requests.
// Ingredients and instructions may be plain strings or JSON arrays/objects;
// structured values are stored verbatim as JSON text.
type recipeRequest struct {
	Title           *string         `json:"title"`
	Ingredients     json.RawMessage `json:"ingredients"`
	Instructions    json.RawMessage `json:"instructions"`
	CookingTime     *int            `json:"cooking_time" binding:"omitempty,min=0"`
	Category        *string         `json:"category"`
	Difficulty      *string         `json:"difficulty" binding:"omitempty,difficulty"`
	Servings        *int            `json:"servings" binding:"omitempty,min=0"`
	ImageURL        *string         `json:"image_url"`
	RemoveMainImage bool            `json:"remove_main_image"`
}

// recipeForm is the multipart counterpart of recipeRequest.
type recipeForm struct {
	Title           *string `form:"title"`
	Ingredients     *string `form:"ingredients"`
	Instructions    *string `form:"instructions"`
	CookingTime     *int    `form:"cooking_time" binding:"omitempty,min=0"`
	Category        *string `form:"category"`
	Difficulty      *string `form:"difficulty" binding:"omitempty,difficulty"`
	Servings        *int    `form:"servings" binding:"omitempty,min=0"`
	RemoveMainImage string  `form:"remove_main_image"`
}

type RecipesController struct {
	service *recipes.Service
}

func NewRecipesController(service *recipes.Service) *RecipesController {
	return &RecipesController{service: service}
}

// List handles GET /api/recipes
func (rc *RecipesController) List(c *gin.Context) {
	list, err := rc.service.List(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "list recipes")
		return
	}
	c.JSON(http.StatusOK, list)
}

// Get handles GET /api/recipes/:id and counts a view.
func (rc *RecipesController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	recipe, err := rc.service.Get(c.Request.Context(), id)
	if err != nil {
		respondRecipeError(c, err, "get recipe")
		return
	}
	c.JSON(http.StatusOK, recipe)
}

// Search handles GET /api/recipes/search?q=
func (rc *RecipesController) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		respondBadRequest(c, `Query parameter "q" is required`)
		return
	}
	list, err := rc.service.Search(c.Request.Context(), q)
	if err != nil {
		respondInternalError(c, err, "search recipes")
		return
	}
	c.JSON(http.StatusOK, list)
}

// Filter handles GET /api/recipes/filter
func (rc *RecipesController) Filter(c *gin.Context) {
	f := recipesdb.Filter{
		Category: strings.TrimSpace(c.Query("category")),
		Include:  splitQuery(c.Query("ingredients")),
		Exclude:  splitQuery(c.Query("exclude_ingredients")),
	}
	if d := c.Query("difficulty"); d != "" {
		difficulty, err := recipes.NormalizeDifficulty(d)
		if err != nil {
			respondBadRequest(c, err.Error())
			return
		}
		f.Difficulty = difficulty
	}
	if raw := c.Query("max_cooking_time"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondBadRequest(c, "max_cooking_time must be a non-negative integer")
			return
		}
		f.MaxCookingTime = n
	}

	list, err := rc.service.Filter(c.Request.Context(), f)
	if err != nil {
		respondInternalError(c, err, "filter recipes")
		return
	}
	c.JSON(http.StatusOK, list)
}

// Popular handles GET /api/recipes/popular
func (rc *RecipesController) Popular(c *gin.Context) {
	list, err := rc.service.Popular(c.Request.Context(), parseLimit(c))
	if err != nil {
		respondInternalError(c, err, "popular recipes")
		return
	}
	c.JSON(http.StatusOK, list)
}

// MostLiked handles GET /api/recipes/most-liked
func (rc *RecipesController) MostLiked(c *gin.Context) {
	list, err := rc.service.MostLiked(c.Request.Context(), parseLimit(c))
	if err != nil {
		respondInternalError(c, err, "most liked recipes")
		return
	}
	c.JSON(http.StatusOK, list)
}

// Categories handles GET /api/recipes/categories
func (rc *RecipesController) Categories(c *gin.Context) {
	list, err := rc.service.Categories(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "list categories")
		return
	}
	c.JSON(http.StatusOK, list)
}

// ByUser handles GET /api/recipes/user/:user_id
func (rc *RecipesController) ByUser(c *gin.Context) {
	userID, ok := parseIDParam(c, "user_id")
	if !ok {
		return
	}
	list, err := rc.service.ListByAuthor(c.Request.Context(), userID)
	if err != nil {
		respondInternalError(c, err, "list user recipes")
		return
	}
	c.JSON(http.StatusOK, list)
}

// Mine handles GET /api/recipes/my
func (rc *RecipesController) Mine(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	list, err := rc.service.ListByAuthor(c.Request.Context(), user.ID)
	if err != nil {
		respondInternalError(c, err, "list own recipes")
		return
	}
	c.JSON(http.StatusOK, list)
}

// Like handles POST /api/recipes/:id/like
func (rc *RecipesController) Like(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	likes, err := rc.service.Like(c.Request.Context(), id)
	if err != nil {
		respondRecipeError(c, err, "like recipe")
		return
	}
	c.JSON(http.StatusOK, gin.H{"likes": likes})
}

// Create handles POST /api/recipes with a JSON or multipart body.
func (rc *RecipesController) Create(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var in recipes.Input
	if isMultipart(c) {
		var form recipeForm
		if err := c.ShouldBind(&form); err != nil {
			respondBadRequest(c, bindingError(err))
			return
		}
		files, err := readRecipeFiles(c)
		if err != nil {
			respondRecipeError(c, err, "read recipe images")
			return
		}
		defer files.close()

		in = recipes.Input{
			Title:        deref(form.Title),
			Ingredients:  deref(form.Ingredients),
			Instructions: deref(form.Instructions),
			CookingTime:  deref(form.CookingTime),
			Category:     deref(form.Category),
			Difficulty:   deref(form.Difficulty),
			Servings:     deref(form.Servings),
			MainImage:    files.main,
			StepImages:   files.steps,
		}
	} else {
		var req recipeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, bindingError(err))
			return
		}
		in = recipes.Input{
			Title:        deref(req.Title),
			Ingredients:  deref(rawText(req.Ingredients)),
			Instructions: deref(rawText(req.Instructions)),
			CookingTime:  deref(req.CookingTime),
			Category:     deref(req.Category),
			Difficulty:   deref(req.Difficulty),
			Servings:     deref(req.Servings),
			ImageURL:     deref(req.ImageURL),
		}
	}

	recipe, err := rc.service.Create(c.Request.Context(), user, in)
	if err != nil {
		respondRecipeError(c, err, "create recipe")
		return
	}
	respondCreated(c, recipe)
}

// Update handles PATCH /api/recipes/:id with a JSON or multipart body.
// Multipart requests replace the step images only when at least one
// step_images_N file is sent.
func (rc *RecipesController) Update(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var patch recipes.Patch
	if isMultipart(c) {
		var form recipeForm
		if err := c.ShouldBind(&form); err != nil {
			respondBadRequest(c, bindingError(err))
			return
		}
		files, err := readRecipeFiles(c)
		if err != nil {
			respondRecipeError(c, err, "read recipe images")
			return
		}
		defer files.close()

		patch = recipes.Patch{
			Title:           form.Title,
			Ingredients:     form.Ingredients,
			Instructions:    form.Instructions,
			CookingTime:     form.CookingTime,
			Category:        form.Category,
			Difficulty:      form.Difficulty,
			Servings:        form.Servings,
			RemoveMainImage: strings.EqualFold(form.RemoveMainImage, "true"),
			MainImage:       files.main,
			StepImages:      files.steps,
		}
	} else {
		var req recipeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, bindingError(err))
			return
		}
		patch = recipes.Patch{
			Title:           req.Title,
			Ingredients:     rawText(req.Ingredients),
			Instructions:    rawText(req.Instructions),
			CookingTime:     req.CookingTime,
			Category:        req.Category,
			Difficulty:      req.Difficulty,
			Servings:        req.Servings,
			ImageURL:        req.ImageURL,
			RemoveMainImage: req.RemoveMainImage,
		}
	}

	recipe, err := rc.service.Update(c.Request.Context(), user, id, patch)
	if err != nil {
		respondRecipeError(c, err, "update recipe")
		return
	}
	c.JSON(http.StatusOK, recipe)
}

// Delete handles DELETE /api/recipes/:id
func (rc *RecipesController) Delete(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := rc.service.Delete(c.Request.Context(), user, id); err != nil {
		respondRecipeError(c, err, "delete recipe")
		return
	}
	respondSuccess(c, "Recipe deleted successfully")
}

// respondRecipeError maps recipe service errors to HTTP responses.
func respondRecipeError(c *gin.Context, err error, context string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, recipes.ErrNotFound):
		respondNotFound(c, "Recipe")
	case errors.Is(err, recipes.ErrCommentNotFound):
		respondNotFound(c, "Comment")
	case errors.Is(err, recipes.ErrForbidden):
		respondForbidden(c, err.Error())
	case errors.Is(err, recipes.ErrTitleRequired),
		errors.Is(err, recipes.ErrInvalidDifficulty),
		errors.Is(err, recipes.ErrInvalidRating),
		errors.Is(err, recipes.ErrCommentTextRequired),
		errors.Is(err, recipes.ErrNothingToUpdate),
		errors.Is(err, uploads.ErrUnsupportedType):
		respondBadRequest(c, rootMessage(err))
	case errors.As(err, &tooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "request body too large"})
	default:
		respondInternalError(c, err, context)
	}
}

// rootMessage returns the message of the innermost wrapped error, so clients
// see "unsupported image type" rather than the wrapping context.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

func isMultipart(c *gin.Context) bool {
	return c.ContentType() == "multipart/form-data"
}

// recipeFiles holds the images of a multipart recipe request.
type recipeFiles struct {
	main    *recipes.Upload
	steps   []recipes.Upload
	closers []io.Closer
}

func (f *recipeFiles) close() {
	for _, cl := range f.closers {
		_ = cl.Close()
	}
}

func (f *recipeFiles) open(fh *multipart.FileHeader) (*recipes.Upload, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	f.closers = append(f.closers, file)
	return &recipes.Upload{Filename: fh.Filename, Body: file}, nil
}

// readRecipeFiles collects main_image (or image) and step_images_0..N.
// Step fields are read in order until the first missing index; empty file
// fields are skipped. steps stays nil when no step field is present.
func readRecipeFiles(c *gin.Context) (*recipeFiles, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}
	files := &recipeFiles{}

	for _, field := range []string{"main_image", "image"} {
		if fh := firstFile(form, field); fh != nil {
			up, err := files.open(fh)
			if err != nil {
				files.close()
				return nil, err
			}
			files.main = up
			break
		}
	}

	for i := 0; i < maxStepImages; i++ {
		headers, present := form.File["step_images_"+strconv.Itoa(i)]
		if !present {
			break
		}
		if files.steps == nil {
			files.steps = []recipes.Upload{}
		}
		if len(headers) == 0 || headers[0].Filename == "" {
			continue
		}
		up, err := files.open(headers[0])
		if err != nil {
			files.close()
			return nil, err
		}
		files.steps = append(files.steps, *up)
	}
	return files, nil
}

func firstFile(form *multipart.Form, field string) *multipart.FileHeader {
	headers := form.File[field]
	if len(headers) == 0 || headers[0].Filename == "" {
		return nil
	}
	return headers[0]
}

// rawText converts a JSON value into stored text: strings are unquoted,
// arrays and objects are kept as compact JSON. Absent and null values
// return nil.
func rawText(raw json.RawMessage) *string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	var s string
	if trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return &s
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		s = string(trimmed)
		return &s
	}
	s = buf.String()
	return &s
}

// splitQuery splits a comma separated query value, dropping blanks.
func splitQuery(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
