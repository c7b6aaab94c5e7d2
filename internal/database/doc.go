// Package database provides the data access layer for the cookbook server.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, migrations, upload references
//	├── users/           # Accounts and profiles
//	├── recipes/         # Recipes, step images, search and filters
//	├── comments/        # Recipe comments and the comments counter
//	├── ratings/         # Per-user ratings and the recipe average
//	├── favourites/      # Per-user favourite recipes
//	└── audit/           # Audit trail
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase("./cookbook.db")
//
//	usersRepo := users.NewRepository(db.DB)
//	recipesRepo := recipes.NewRepository(db.DB)
//
//	recipe, err := recipesRepo.GetRecipe(ctx, 42)
//
// # Interface Implementations
//
//   - users.Repository: implements auth.UserStore and profiles.UserStore
//   - recipes.Repository: implements recipes.RecipeStore and profiles.Counter
//   - comments.Repository: implements recipes.CommentStore
//   - ratings.Repository: implements recipes.RatingStore
//   - Database: implements uploads.ReferenceSource and http.Pinger
//   - favourites.Repository: implements http.FavoriteStore and profiles.FavoriteCounter
//
// See internal/interfaces/checks.go for the compile-time verification.
package database
