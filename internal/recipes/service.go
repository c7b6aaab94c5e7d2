// Package recipes implements recipe, comment and rating use cases on top of
// the database repositories. It enforces ownership, stores uploaded images
// and hands files that are no longer referenced to a FileRemover.
package recipes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mrlokans/cookbook/internal/auth"
	"github.com/mrlokans/cookbook/internal/database/comments"
	"github.com/mrlokans/cookbook/internal/database/ratings"
	recipesdb "github.com/mrlokans/cookbook/internal/database/recipes"
	"github.com/mrlokans/cookbook/internal/entities"
	"github.com/mrlokans/cookbook/internal/logger"
	"github.com/mrlokans/cookbook/internal/metrics"
	"github.com/mrlokans/cookbook/internal/uploads"
)

var (
	ErrNotFound            = recipesdb.ErrRecipeNotFound
	ErrCommentNotFound     = comments.ErrCommentNotFound
	ErrForbidden           = errors.New("not allowed to modify this resource")
	ErrTitleRequired       = errors.New("title is required")
	ErrInvalidDifficulty   = errors.New("difficulty must be one of: easy, medium, hard")
	ErrInvalidRating       = errors.New("rating must be between 1 and 5")
	ErrCommentTextRequired = errors.New("comment text is required")
	ErrNothingToUpdate     = errors.New("no data provided for update")
)

// RecipeStore is the persistence the service needs for recipes.
type RecipeStore interface {
	Create(ctx context.Context, recipe *entities.Recipe) error
	GetRecipe(ctx context.Context, id uint) (*entities.Recipe, error)
	IncrementViews(ctx context.Context, id uint) error
	IncrementLikes(ctx context.Context, id uint) error
	List(ctx context.Context) ([]entities.Recipe, error)
	ListByAuthor(ctx context.Context, authorID uint) ([]entities.Recipe, error)
	Search(ctx context.Context, query string) ([]entities.Recipe, error)
	Filter(ctx context.Context, f recipesdb.Filter) ([]entities.Recipe, error)
	Popular(ctx context.Context, limit int) ([]entities.Recipe, error)
	MostLiked(ctx context.Context, limit int) ([]entities.Recipe, error)
	Categories(ctx context.Context) ([]string, error)
	Update(ctx context.Context, id uint, upd recipesdb.Update) (*entities.Recipe, []string, error)
	Delete(ctx context.Context, id uint) ([]string, error)
	Referenced(ctx context.Context, urls []string) (map[string]struct{}, error)
}

type CommentStore interface {
	Add(ctx context.Context, comment *entities.Comment) error
	Get(ctx context.Context, id uint) (*entities.Comment, error)
	ListForRecipe(ctx context.Context, recipeID uint) ([]entities.Comment, error)
	Delete(ctx context.Context, id uint) error
}

type RatingStore interface {
	Upsert(ctx context.Context, userID, recipeID uint, value int) (ratings.Summary, error)
	GetUserRating(ctx context.Context, userID, recipeID uint) (int, bool, error)
}

// FileRemover deletes stored images once nothing references them.
type FileRemover interface {
	RemoveFiles(ctx context.Context, urls []string) error
}

// AuditRecorder receives audit events for recipe and comment changes.
type AuditRecorder interface {
	LogCreate(userID uint, entityType string, entityID uint, entityName string)
	LogUpdate(userID uint, entityType string, entityID uint, entityName string)
	LogDelete(userID uint, entityType string, entityID uint, entityName string, privileged bool)
}

// Upload is an image file received from a client.
type Upload struct {
	Filename string
	Body     io.Reader
}

// Input describes a new recipe.
type Input struct {
	Title        string
	Ingredients  string
	Instructions string
	CookingTime  int
	Category     string
	Difficulty   string
	Servings     int
	// ImageURL is used when no MainImage is uploaded.
	ImageURL   string
	MainImage  *Upload
	StepImages []Upload
}

// Patch describes a partial recipe update. Nil fields are left untouched.
type Patch struct {
	Title        *string
	Ingredients  *string
	Instructions *string
	CookingTime  *int
	Category     *string
	Difficulty   *string
	Servings     *int
	ImageURL     *string
	// RemoveMainImage clears the main image unless MainImage is set.
	RemoveMainImage bool
	MainImage       *Upload
	// StepImages, when non-nil, replaces every step image. An empty non-nil
	// slice removes them all.
	StepImages []Upload
}

func (p Patch) empty() bool {
	return p.Title == nil && p.Ingredients == nil && p.Instructions == nil &&
		p.CookingTime == nil && p.Category == nil && p.Difficulty == nil &&
		p.Servings == nil && p.ImageURL == nil && !p.RemoveMainImage &&
		p.MainImage == nil && p.StepImages == nil
}

// Deps groups the collaborators of a Service.
type Deps struct {
	Recipes    RecipeStore
	Comments   CommentStore
	Ratings    RatingStore
	Storage    uploads.Storage
	Remover    FileRemover
	Authorizer *auth.Authorizer
	Audit      AuditRecorder
}

type Service struct {
	recipes  RecipeStore
	comments CommentStore
	ratings  RatingStore
	storage  uploads.Storage
	remover  FileRemover
	authz    *auth.Authorizer
	audit    AuditRecorder
	log      zerolog.Logger
}

func NewService(deps Deps) *Service {
	remover := deps.Remover
	if remover == nil && deps.Storage != nil {
		remover = uploads.NewSyncRemover(deps.Storage)
	}
	authz := deps.Authorizer
	if authz == nil {
		authz = auth.NewAuthorizer(nil)
	}
	return &Service{
		recipes:  deps.Recipes,
		comments: deps.Comments,
		ratings:  deps.Ratings,
		storage:  deps.Storage,
		remover:  remover,
		authz:    authz,
		audit:    deps.Audit,
		log:      logger.Component("recipes"),
	}
}

// NormalizeDifficulty lower-cases d and checks it is a known level. An
// empty value is returned unchanged.
func NormalizeDifficulty(d string) (string, error) {
	d = strings.ToLower(strings.TrimSpace(d))
	switch d {
	case "", entities.DifficultyEasy, entities.DifficultyMedium, entities.DifficultyHard:
		return d, nil
	}
	return "", ErrInvalidDifficulty
}

func (s *Service) List(ctx context.Context) ([]entities.Recipe, error) {
	return s.recipes.List(ctx)
}

// Get returns a recipe and counts the view.
func (s *Service) Get(ctx context.Context, id uint) (*entities.Recipe, error) {
	if err := s.recipes.IncrementViews(ctx, id); err != nil {
		return nil, err
	}
	return s.recipes.GetRecipe(ctx, id)
}

// Exists reports whether a recipe exists without counting a view.
func (s *Service) Exists(ctx context.Context, id uint) (bool, error) {
	_, err := s.recipes.GetRecipe(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *Service) ListByAuthor(ctx context.Context, authorID uint) ([]entities.Recipe, error) {
	return s.recipes.ListByAuthor(ctx, authorID)
}

func (s *Service) Search(ctx context.Context, query string) ([]entities.Recipe, error) {
	return s.recipes.Search(ctx, query)
}

func (s *Service) Filter(ctx context.Context, f recipesdb.Filter) ([]entities.Recipe, error) {
	return s.recipes.Filter(ctx, f)
}

func (s *Service) Popular(ctx context.Context, limit int) ([]entities.Recipe, error) {
	return s.recipes.Popular(ctx, limit)
}

func (s *Service) MostLiked(ctx context.Context, limit int) ([]entities.Recipe, error) {
	return s.recipes.MostLiked(ctx, limit)
}

func (s *Service) Categories(ctx context.Context) ([]string, error) {
	return s.recipes.Categories(ctx)
}

// Like increments the like counter and returns the new total.
func (s *Service) Like(ctx context.Context, id uint) (int, error) {
	if err := s.recipes.IncrementLikes(ctx, id); err != nil {
		return 0, err
	}
	recipe, err := s.recipes.GetRecipe(ctx, id)
	if err != nil {
		return 0, err
	}
	metrics.RecipeMutationsTotal.WithLabelValues("like").Inc()
	return recipe.Likes, nil
}

// Create stores a recipe written by user, saving any uploaded images first.
func (s *Service) Create(ctx context.Context, user *entities.User, in Input) (*entities.Recipe, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	difficulty, err := NormalizeDifficulty(in.Difficulty)
	if err != nil {
		return nil, err
	}
	if difficulty == "" {
		difficulty = entities.DifficultyEasy
	}
	servings := in.Servings
	if servings <= 0 {
		servings = entities.DefaultServings
	}

	recipe := &entities.Recipe{
		Title:        title,
		Ingredients:  in.Ingredients,
		Instructions: in.Instructions,
		CookingTime:  in.CookingTime,
		Category:     strings.TrimSpace(in.Category),
		Difficulty:   difficulty,
		ImageURL:     in.ImageURL,
		Author:       user.Username,
		AuthorID:     user.ID,
		Servings:     servings,
	}

	var saved []string
	if in.MainImage != nil {
		url, err := s.save(ctx, *in.MainImage)
		if err != nil {
			return nil, err
		}
		saved = append(saved, url)
		recipe.ImageURL = url
	}
	steps, stepURLs, err := s.saveSteps(ctx, in.StepImages)
	saved = append(saved, stepURLs...)
	if err != nil {
		s.discard(ctx, saved)
		return nil, err
	}
	recipe.StepImages = steps

	if err := s.recipes.Create(ctx, recipe); err != nil {
		s.discard(ctx, saved)
		return nil, fmt.Errorf("create recipe: %w", err)
	}

	metrics.RecipeMutationsTotal.WithLabelValues("create").Inc()
	if s.audit != nil {
		s.audit.LogCreate(user.ID, "recipe", recipe.ID, recipe.Title)
	}
	return s.recipes.GetRecipe(ctx, recipe.ID)
}

// Update applies a partial update on behalf of user.
func (s *Service) Update(ctx context.Context, user *entities.User, id uint, p Patch) (*entities.Recipe, error) {
	current, err := s.recipes.GetRecipe(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.authz.CanMutate(user, current.AuthorID) {
		return nil, ErrForbidden
	}
	if p.empty() {
		return nil, ErrNothingToUpdate
	}

	upd := recipesdb.Update{
		Ingredients:  p.Ingredients,
		Instructions: p.Instructions,
		CookingTime:  p.CookingTime,
		Servings:     p.Servings,
		ImageURL:     p.ImageURL,
	}
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		upd.Title = &title
	}
	if p.Category != nil {
		category := strings.TrimSpace(*p.Category)
		upd.Category = &category
	}
	if p.Difficulty != nil {
		difficulty, err := NormalizeDifficulty(*p.Difficulty)
		if err != nil {
			return nil, err
		}
		if difficulty == "" {
			difficulty = entities.DifficultyEasy
		}
		upd.Difficulty = &difficulty
	}
	if p.RemoveMainImage && p.MainImage == nil {
		empty := ""
		upd.ImageURL = &empty
	}

	var saved []string
	if p.MainImage != nil {
		url, err := s.save(ctx, *p.MainImage)
		if err != nil {
			return nil, err
		}
		saved = append(saved, url)
		upd.ImageURL = &url
	}
	if p.StepImages != nil {
		steps, stepURLs, err := s.saveSteps(ctx, p.StepImages)
		saved = append(saved, stepURLs...)
		if err != nil {
			s.discard(ctx, saved)
			return nil, err
		}
		upd.StepImages = &steps
	}

	updated, replaced, err := s.recipes.Update(ctx, id, upd)
	if err != nil {
		s.discard(ctx, saved)
		return nil, err
	}
	s.release(ctx, replaced)

	metrics.RecipeMutationsTotal.WithLabelValues("update").Inc()
	if s.audit != nil {
		s.audit.LogUpdate(user.ID, "recipe", updated.ID, updated.Title)
	}
	return updated, nil
}

// Delete removes a recipe with everything attached to it.
func (s *Service) Delete(ctx context.Context, user *entities.User, id uint) error {
	recipe, err := s.recipes.GetRecipe(ctx, id)
	if err != nil {
		return err
	}
	if !s.authz.CanMutate(user, recipe.AuthorID) {
		return ErrForbidden
	}

	urls, err := s.recipes.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.release(ctx, urls)

	metrics.RecipeMutationsTotal.WithLabelValues("delete").Inc()
	if s.audit != nil {
		s.audit.LogDelete(user.ID, "recipe", recipe.ID, recipe.Title, user.ID != recipe.AuthorID)
	}
	return nil
}

func (s *Service) Comments(ctx context.Context, recipeID uint) ([]entities.Comment, error) {
	return s.comments.ListForRecipe(ctx, recipeID)
}

// AddComment posts a comment by user on a recipe.
func (s *Service) AddComment(ctx context.Context, user *entities.User, recipeID uint, text string) (*entities.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrCommentTextRequired
	}
	if _, err := s.recipes.GetRecipe(ctx, recipeID); err != nil {
		return nil, err
	}

	comment := &entities.Comment{RecipeID: recipeID, UserID: user.ID, Text: text}
	if err := s.comments.Add(ctx, comment); err != nil {
		return nil, fmt.Errorf("add comment: %w", err)
	}

	metrics.RecipeMutationsTotal.WithLabelValues("comment").Inc()
	if s.audit != nil {
		s.audit.LogCreate(user.ID, "comment", comment.ID, "")
	}
	return s.comments.Get(ctx, comment.ID)
}

// DeleteComment removes a comment if user wrote it or is privileged.
func (s *Service) DeleteComment(ctx context.Context, user *entities.User, commentID uint) error {
	comment, err := s.comments.Get(ctx, commentID)
	if err != nil {
		return err
	}
	if !s.authz.CanMutate(user, comment.UserID) {
		return ErrForbidden
	}
	if err := s.comments.Delete(ctx, commentID); err != nil {
		return err
	}

	metrics.RecipeMutationsTotal.WithLabelValues("comment_delete").Inc()
	if s.audit != nil {
		s.audit.LogDelete(user.ID, "comment", commentID, "", user.ID != comment.UserID)
	}
	return nil
}

// Rate records user's rating for a recipe and returns the new aggregate.
func (s *Service) Rate(ctx context.Context, user *entities.User, recipeID uint, value int) (ratings.Summary, error) {
	if value < entities.MinRating || value > entities.MaxRating {
		return ratings.Summary{}, ErrInvalidRating
	}
	if _, err := s.recipes.GetRecipe(ctx, recipeID); err != nil {
		return ratings.Summary{}, err
	}

	summary, err := s.ratings.Upsert(ctx, user.ID, recipeID, value)
	if err != nil {
		return ratings.Summary{}, fmt.Errorf("rate recipe: %w", err)
	}
	metrics.RecipeMutationsTotal.WithLabelValues("rate").Inc()
	return summary, nil
}

// UserRating returns user's rating for a recipe, or 0 when not rated.
func (s *Service) UserRating(ctx context.Context, user *entities.User, recipeID uint) (int, error) {
	value, _, err := s.ratings.GetUserRating(ctx, user.ID, recipeID)
	return value, err
}

func (s *Service) save(ctx context.Context, up Upload) (string, error) {
	if s.storage == nil {
		return "", errors.New("image uploads are not configured")
	}
	return s.storage.Save(ctx, uploads.KindRecipes, up.Filename, up.Body)
}

// saveSteps stores step images in order. On failure it returns the URLs
// saved so far so the caller can discard them.
func (s *Service) saveSteps(ctx context.Context, files []Upload) ([]entities.RecipeStepImage, []string, error) {
	steps := make([]entities.RecipeStepImage, 0, len(files))
	var urls []string
	for i, f := range files {
		url, err := s.save(ctx, f)
		if err != nil {
			return nil, urls, fmt.Errorf("step %d image: %w", i, err)
		}
		urls = append(urls, url)
		steps = append(steps, entities.RecipeStepImage{StepIndex: i, ImageURL: url})
	}
	return steps, urls, nil
}

// release discards the urls a recipe stopped using, keeping any that another
// recipe, step image or avatar still points at. Image URLs are client
// supplied, so a recipe may reference a file it did not upload.
func (s *Service) release(ctx context.Context, urls []string) {
	if len(urls) == 0 || s.remover == nil {
		return
	}
	refs, err := s.recipes.Referenced(ctx, urls)
	if err != nil {
		s.log.Warn().Err(err).Strs("urls", urls).Msg("skipping image removal, reference check failed")
		return
	}
	unused := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := refs[u]; !ok {
			unused = append(unused, u)
		}
	}
	s.discard(ctx, unused)
}

// discard hands urls to the remover. Failures are logged, not returned:
// the database change has already been made.
func (s *Service) discard(ctx context.Context, urls []string) {
	if len(urls) == 0 || s.remover == nil {
		return
	}
	if err := s.remover.RemoveFiles(ctx, urls); err != nil {
		s.log.Warn().Err(err).Strs("urls", urls).Msg("failed to remove image files")
	}
}
