package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mrlokans/cookbook/internal/auth"
	"github.com/mrlokans/cookbook/internal/uploads"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	RegisterValidators()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger())
	router.Use(RequestMetrics())
	router.Use(CORS(cfg.HTTP.CORSAllowedOrigins))
	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.AuthConfig.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware())
	}
	router.Use(MaxBodySize(cfg.HTTP.MaxUploadBytes))
	router.MaxMultipartMemory = 8 << 20

	authMW := cfg.AuthMiddleware
	router.Use(authMW.Handler())
	requireAuth := authMW.RequireAuth()

	// Health and metrics
	health := NewHealthController(cfg.HealthChecks, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.UploadDir != "" {
		router.Static(uploads.URLPrefix, cfg.UploadDir)
	}

	api := router.Group("/api")

	// Authentication
	var authAudit auth.AuditLogger
	if cfg.Audit != nil {
		authAudit = cfg.Audit
	}
	auth.NewAuthController(cfg.AuthService, authAudit, cfg.AuthConfig).RegisterRoutes(api.Group("/auth"))

	// Favourites
	favourites := NewFavouritesController(cfg.Favorites, cfg.Recipes)
	favGroup := api.Group("/auth", requireAuth)
	favGroup.GET("/favorites", favourites.List)
	favGroup.POST("/favorites", favourites.Add)
	favGroup.POST("/favorites/remove", favourites.Remove)
	favGroup.POST("/favorites/toggle", favourites.Toggle)
	favGroup.GET("/favorite-recipes", favourites.Recipes)

	// Recipes
	recipesCtl := NewRecipesController(cfg.Recipes)
	comments := NewCommentsController(cfg.Recipes)
	ratings := NewRatingsController(cfg.Recipes)

	r := api.Group("/recipes")
	r.GET("", recipesCtl.List)
	r.GET("/search", recipesCtl.Search)
	r.GET("/filter", recipesCtl.Filter)
	r.GET("/popular", recipesCtl.Popular)
	r.GET("/most-liked", recipesCtl.MostLiked)
	r.GET("/categories", recipesCtl.Categories)
	r.GET("/user/:user_id", recipesCtl.ByUser)
	r.GET("/my", requireAuth, recipesCtl.Mine)
	r.POST("", requireAuth, recipesCtl.Create)
	r.POST("/with-steps", requireAuth, recipesCtl.Create)
	r.GET("/:id", recipesCtl.Get)
	r.PATCH("/:id", requireAuth, recipesCtl.Update)
	r.PATCH("/:id/update-with-steps", requireAuth, recipesCtl.Update)
	r.DELETE("/:id", requireAuth, recipesCtl.Delete)
	r.POST("/:id/like", recipesCtl.Like)
	r.GET("/:id/comments", comments.List)
	r.POST("/:id/comments", requireAuth, comments.Add)
	r.GET("/:id/rating", requireAuth, ratings.Mine)
	r.POST("/:id/rating", requireAuth, ratings.Rate)

	api.DELETE("/comments/:id", requireAuth, comments.Delete)

	// Profiles
	users := NewUsersController(cfg.Profiles)
	api.GET("/users/:id", users.Get)
	api.PUT("/users/:id", requireAuth, users.Update)

	// Admin
	admin := api.Group("/admin", authMW.RequirePrivileged())
	if cfg.Audit != nil {
		admin.GET("/audit", NewAuditController(cfg.Audit).GetAuditEvents)
	}
	var queue TaskQueue
	if cfg.TaskClient != nil {
		queue = cfg.TaskClient
	}
	tasksCtl := NewTasksController(queue, cfg.Sweeper, cfg.AuditRetentionDays)
	admin.GET("/tasks/types", tasksCtl.ListTaskTypes)
	admin.GET("/tasks/:id", tasksCtl.GetTaskStatus)
	admin.POST("/tasks/:type/run", tasksCtl.RunTask)
	admin.GET("/uploads/sweep", tasksCtl.SweepStatus)

	return router
}
