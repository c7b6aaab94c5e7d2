// Package interfaces documents the core abstractions used throughout the application.
//
// # Interface Categories
//
// ## Data Access Interfaces
//
//   - auth.UserStore: Accounts and password hashes (internal/auth/service.go)
//   - recipes.RecipeStore: Recipes and step images (internal/recipes/service.go)
//   - recipes.CommentStore, recipes.RatingStore: Recipe feedback (internal/recipes/service.go)
//   - http.FavoriteStore: Favourite tracking (internal/http/favourites.go)
//   - uploads.ReferenceSource: Upload URLs still in use (internal/uploads/sweep.go)
//
// ## Infrastructure Interfaces
//
//   - sessions.Store: Opaque session id to user id, memory, Redis or SQLite (internal/sessions/store.go)
//   - uploads.Storage: Image persistence, local disk or S3 (internal/uploads/storage.go)
//   - recipes.FileRemover: Deferred or inline image deletion (internal/recipes/service.go)
//   - http.Pinger: Health checks (internal/http/health.go)
//
// # Adding a New Session Backend
//
// Implement sessions.Store in internal/sessions/:
//
//	type MemcachedStore struct {
//		client *memcache.Client
//	}
//
//	func (s *MemcachedStore) Create(ctx context.Context, userID uint) (string, error)
//	func (s *MemcachedStore) Resolve(ctx context.Context, id string) (uint, bool, error)
//	func (s *MemcachedStore) Revoke(ctx context.Context, id string) error
//
//	var _ Store = (*MemcachedStore)(nil)
//
// Add a config.SessionBackend value and select it in entrypoint.go. Implement
// Ping(ctx) error to have it reported by /health.
//
// # Adding a New Upload Backend
//
// Implement uploads.Storage (Save, Delete, List). Save must return the public
// URL that is stored on the recipe or user row. Select it in
// entrypoint.OpenStorage.
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for the full list.
package interfaces
