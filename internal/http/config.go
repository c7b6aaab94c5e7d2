package http

import (
	"github.com/mrlokans/cookbook/internal/audit"
	"github.com/mrlokans/cookbook/internal/auth"
	"github.com/mrlokans/cookbook/internal/config"
	"github.com/mrlokans/cookbook/internal/profiles"
	"github.com/mrlokans/cookbook/internal/recipes"
	"github.com/mrlokans/cookbook/internal/tasks"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core services
	Recipes   *recipes.Service
	Profiles  *profiles.Service
	Favorites FavoriteStore
	Audit     *audit.Service

	// Authentication
	AuthService    *auth.Service
	AuthMiddleware *auth.Middleware
	AuthConfig     config.Auth

	// Task queue; cleanup_audit_events is unavailable when nil.
	TaskClient         *tasks.Client
	AuditRetentionDays int
	// Sweeper backs the sweep_uploads admin task; nil disables it.
	Sweeper SweepRunner

	// Health checks by name, e.g. "database", "sessions".
	HealthChecks map[string]Pinger

	// UploadDir is served under /uploads when the local backend is used.
	// Leave empty for remote backends.
	UploadDir string

	HTTP    config.HTTP
	Version string
}
