package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/cookbook/internal/audit"
	"github.com/mrlokans/cookbook/internal/auth"
	"github.com/mrlokans/cookbook/internal/database"
	"github.com/mrlokans/cookbook/internal/database/comments"
	"github.com/mrlokans/cookbook/internal/database/favourites"
	"github.com/mrlokans/cookbook/internal/database/ratings"
	recipesdb "github.com/mrlokans/cookbook/internal/database/recipes"
	"github.com/mrlokans/cookbook/internal/database/users"
	"github.com/mrlokans/cookbook/internal/http"
	"github.com/mrlokans/cookbook/internal/profiles"
	"github.com/mrlokans/cookbook/internal/recipes"
	"github.com/mrlokans/cookbook/internal/scheduler"
	"github.com/mrlokans/cookbook/internal/sessions"
	"github.com/mrlokans/cookbook/internal/tasks"
	"github.com/mrlokans/cookbook/internal/uploads"
)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ auth.UserStore = (*users.Repository)(nil)
var _ profiles.UserStore = (*users.Repository)(nil)

var _ recipes.RecipeStore = (*recipesdb.Repository)(nil)
var _ profiles.Counter = (*recipesdb.Repository)(nil)
var _ recipes.CommentStore = (*comments.Repository)(nil)
var _ recipes.RatingStore = (*ratings.Repository)(nil)

var _ http.FavoriteStore = (*favourites.Repository)(nil)
var _ profiles.FavoriteCounter = (*favourites.Repository)(nil)

var _ uploads.ReferenceSource = (*database.Database)(nil)
var _ http.Pinger = (*database.Database)(nil)

// =============================================================================
// Sessions
// =============================================================================

var _ sessions.Store = (*sessions.MemoryStore)(nil)
var _ sessions.Store = (*sessions.RedisStore)(nil)
var _ sessions.Store = (*sessions.SQLiteStore)(nil)
var _ http.Pinger = (*sessions.RedisStore)(nil)
var _ http.Pinger = (*sessions.SQLiteStore)(nil)

// =============================================================================
// Upload Storage
// =============================================================================

var _ uploads.Storage = (*uploads.LocalStorage)(nil)
var _ uploads.Storage = (*uploads.S3Storage)(nil)

var _ recipes.FileRemover = (*uploads.SyncRemover)(nil)
var _ recipes.FileRemover = (*tasks.UploadRemover)(nil)

// =============================================================================
// Audit Trail
// =============================================================================

var _ recipes.AuditRecorder = (*audit.Service)(nil)
var _ profiles.AuditRecorder = (*audit.Service)(nil)
var _ auth.AuditLogger = (*audit.Service)(nil)
var _ http.AuditReader = (*audit.Service)(nil)
var _ scheduler.MaintenanceAuditor = (*audit.Service)(nil)
var _ tasks.AuditEventCleaner = (*audit.Service)(nil)

// =============================================================================
// Background Work
// =============================================================================

var _ profiles.PasswordChanger = (*auth.Service)(nil)
var _ scheduler.Sweeper = (*uploads.Sweeper)(nil)
var _ http.SweepRunner = (*scheduler.UploadSweepScheduler)(nil)
var _ http.TaskQueue = (*tasks.Client)(nil)
