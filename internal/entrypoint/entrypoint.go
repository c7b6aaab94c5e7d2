package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/mrlokans/cookbook/internal/audit"
	"github.com/mrlokans/cookbook/internal/auth"
	"github.com/mrlokans/cookbook/internal/config"
	"github.com/mrlokans/cookbook/internal/database"
	auditdb "github.com/mrlokans/cookbook/internal/database/audit"
	"github.com/mrlokans/cookbook/internal/database/comments"
	"github.com/mrlokans/cookbook/internal/database/favourites"
	"github.com/mrlokans/cookbook/internal/database/ratings"
	recipesdb "github.com/mrlokans/cookbook/internal/database/recipes"
	"github.com/mrlokans/cookbook/internal/database/users"
	http_controllers "github.com/mrlokans/cookbook/internal/http"
	"github.com/mrlokans/cookbook/internal/logger"
	"github.com/mrlokans/cookbook/internal/profiles"
	"github.com/mrlokans/cookbook/internal/recipes"
	"github.com/mrlokans/cookbook/internal/scheduler"
	"github.com/mrlokans/cookbook/internal/sessions"
	"github.com/mrlokans/cookbook/internal/tasks"
	"github.com/mrlokans/cookbook/internal/uploads"
)

// App holds the wired application and the resources Shutdown releases.
type App struct {
	Router    *gin.Engine
	DB        *database.Database
	Audit     *audit.Service
	Auth      *auth.Service
	Storage   uploads.Storage
	Tasks     *tasks.Client
	Scheduler *scheduler.UploadSweepScheduler

	redis  *redis.Client
	cancel context.CancelFunc
}

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// NewApp opens every backing store named in cfg and builds the router.
// Background workers (task queue, upload sweep) are started when enabled.
func NewApp(ctx context.Context, cfg *config.Config, version string) (*App, error) {
	log := logger.Component("entrypoint")
	app := &App{}
	ctx, app.cancel = context.WithCancel(ctx)

	fail := func(err error) (*App, error) {
		app.Shutdown(context.Background())
		return nil, err
	}

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return fail(fmt.Errorf("initialize database: %w", err))
	}
	app.DB = db
	log.Info().Str("path", cfg.Database.Path).Msg("database ready")

	healthChecks := map[string]http_controllers.Pinger{"database": db}

	sessionStore, err := app.openSessions(ctx, cfg.Sessions, db)
	if err != nil {
		return fail(err)
	}
	if pinger, ok := sessionStore.(http_controllers.Pinger); ok {
		healthChecks["sessions"] = pinger
	}

	storage, uploadDir, err := OpenStorage(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	app.Storage = storage

	app.Audit = audit.NewService(auditdb.NewRepository(db.DB))

	userRepo := users.NewRepository(db.DB)
	recipeRepo := recipesdb.NewRepository(db.DB)
	favRepo := favourites.NewRepository(db.DB)

	authorizer := auth.NewAuthorizer(cfg.Auth.PrivilegedUsernames)
	hasher := auth.NewHasher(cfg.Auth.BcryptCost, cfg.Auth.LegacySHA256)
	app.Auth = auth.NewService(userRepo, sessionStore, hasher)
	authMiddleware := auth.NewMiddleware(app.Auth, authorizer, cfg.Auth)

	var remover recipes.FileRemover = uploads.NewSyncRemover(storage)
	if cfg.Tasks.Enabled {
		client, err := tasks.NewClient(cfg.Database.Path, tasks.ConfigFrom(cfg.Tasks))
		if err != nil {
			return fail(fmt.Errorf("initialize task queue: %w", err))
		}
		app.Tasks = client
		client.Register(
			tasks.NewDeleteUploadFilesQueue(storage),
			tasks.NewCleanupAuditEventsQueue(app.Audit),
		)
		client.Start(ctx)
		remover = tasks.NewUploadRemover(client)

		if cfg.Audit.RetentionDays > 0 {
			if _, err := client.Add(tasks.CleanupAuditEventsTask{RetentionDays: cfg.Audit.RetentionDays}).Save(); err != nil {
				log.Warn().Err(err).Msg("failed to enqueue audit cleanup")
			}
		}
	} else {
		log.Info().Msg("task queue disabled, image deletion runs inline")
	}

	routerCfg := http_controllers.RouterConfig{
		Recipes: recipes.NewService(recipes.Deps{
			Recipes:    recipeRepo,
			Comments:   comments.NewRepository(db.DB),
			Ratings:    ratings.NewRepository(db.DB),
			Storage:    storage,
			Remover:    remover,
			Authorizer: authorizer,
			Audit:      app.Audit,
		}),
		Profiles: profiles.NewService(profiles.Deps{
			Users:     userRepo,
			Recipes:   recipeRepo,
			Favorites: favRepo,
			Passwords: app.Auth,
			Storage:   storage,
			Audit:     app.Audit,
		}),
		Favorites:          favRepo,
		Audit:              app.Audit,
		AuthService:        app.Auth,
		AuthMiddleware:     authMiddleware,
		AuthConfig:         cfg.Auth,
		TaskClient:         app.Tasks,
		AuditRetentionDays: cfg.Audit.RetentionDays,
		HealthChecks:       healthChecks,
		UploadDir:          uploadDir,
		HTTP:               cfg.HTTP,
		Version:            version,
	}

	if cfg.UploadSweep.Enabled {
		sweeper := uploads.NewSweeper(storage, db, cfg.UploadSweep.MinAge)
		sched := scheduler.NewUploadSweepScheduler(sweeper, app.Audit, cfg.UploadSweep.Schedule)
		if err := sched.Start(ctx); err != nil {
			return fail(fmt.Errorf("start upload sweep: %w", err))
		}
		app.Scheduler = sched
		routerCfg.Sweeper = sched
	}

	app.Router = http_controllers.NewRouter(routerCfg)
	return app, nil
}

func (app *App) openSessions(ctx context.Context, cfg config.Sessions, db *database.Database) (sessions.Store, error) {
	switch cfg.Backend {
	case config.SessionBackendMemory, "":
		return sessions.NewMemoryStore(), nil
	case config.SessionBackendRedis:
		client, err := sessions.NewRedisClient(ctx, sessions.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("connect session store: %w", err)
		}
		app.redis = client
		logger.Component("entrypoint").Info().Str("addr", cfg.RedisAddr).Msg("redis session store ready")
		return sessions.NewRedisStore(client, cfg.KeyPrefix), nil
	case config.SessionBackendSQLite:
		sqlDB, err := db.DB.DB()
		if err != nil {
			return nil, fmt.Errorf("open session store: %w", err)
		}
		store, err := sessions.NewSQLiteStore(sqlDB)
		if err != nil {
			return nil, fmt.Errorf("open session store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Backend)
	}
}

// OpenStorage returns the upload backend and, for local storage, the
// directory the router serves under /uploads.
func OpenStorage(ctx context.Context, cfg *config.Config) (uploads.Storage, string, error) {
	switch cfg.Uploads.Backend {
	case config.UploadBackendLocal, "":
		local, err := uploads.NewLocalStorage(cfg.Uploads.Dir)
		if err != nil {
			return nil, "", fmt.Errorf("initialize upload dir: %w", err)
		}
		return local, local.Dir(), nil
	case config.UploadBackendS3:
		s3Storage, err := uploads.NewS3Storage(ctx, cfg.S3)
		if err != nil {
			return nil, "", fmt.Errorf("initialize s3 storage: %w", err)
		}
		return s3Storage, "", nil
	default:
		return nil, "", fmt.Errorf("unknown upload backend %q", cfg.Uploads.Backend)
	}
}

// Shutdown stops background workers and closes every store. Safe to call on
// a partially built App.
func (app *App) Shutdown(ctx context.Context) {
	log := logger.Component("entrypoint")

	if app.Scheduler != nil {
		app.Scheduler.Stop()
	}
	if app.Tasks != nil {
		app.Tasks.Stop(ctx)
		if err := app.Tasks.Close(); err != nil {
			log.Error().Err(err).Msg("error closing task client")
		}
	}
	if app.cancel != nil {
		app.cancel()
	}
	if app.Audit != nil {
		app.Audit.Wait()
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis client")
		}
	}
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			log.Error().Err(err).Msg("error closing database")
		}
	}
}

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	log := logger.Component("server")
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	// kill (no param) sends SIGTERM, kill -2 is SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Dur("timeout", timeout).Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}

	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Info().Msg("server exiting")
}

func Run(cfg *config.Config, version string) {
	logger.Init(logger.Options{Level: cfg.Logging.Level, Pretty: cfg.Logging.Pretty})
	log := logger.Component("entrypoint")
	log.Info().Str("version", version).Msg("starting cookbook")

	app, err := NewApp(context.Background(), cfg, version)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start")
	}

	Serve(app.Router, cfg, app.Shutdown)
}
