package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mrlokans/cookbook/internal/entities"
	"github.com/mrlokans/cookbook/internal/logger"
)

// Models lists every entity managed by AutoMigrate.
func Models() []any {
	return []any{
		&entities.User{},
		&entities.Recipe{},
		&entities.RecipeStepImage{},
		&entities.Comment{},
		&entities.Rating{},
		&entities.Favorite{},
		&entities.AuditEvent{},
	}
}

type Database struct {
	DB *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	log := logger.Component("database")

	db, err := gorm.Open(sqlite.Open(dsn(dbPath)), &gorm.Config{
		Logger: gormlogger.New(gormWriter{log: log}, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("database initialized")

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks connectivity of the underlying connection pool.
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// ReferencedUploads returns every upload URL still referenced by a recipe,
// a recipe step or a user avatar.
func (d *Database) ReferencedUploads(ctx context.Context) (map[string]struct{}, error) {
	refs := make(map[string]struct{})

	queries := []struct {
		model  any
		column string
	}{
		{&entities.Recipe{}, "image_url"},
		{&entities.RecipeStepImage{}, "image_url"},
		{&entities.User{}, "avatar_url"},
	}

	for _, q := range queries {
		var urls []string
		err := d.DB.WithContext(ctx).Model(q.model).
			Where(q.column+" IS NOT NULL AND "+q.column+" <> ''").
			Pluck(q.column, &urls).Error
		if err != nil {
			return nil, fmt.Errorf("collect %s references: %w", q.column, err)
		}
		for _, u := range urls {
			refs[u] = struct{}{}
		}
	}

	return refs, nil
}

// dsn enables WAL and a busy timeout so background writers (audit events,
// task workers) wait for the lock instead of failing.
func dsn(path string) string {
	if path == ":memory:" || strings.Contains(path, "?") {
		return path
	}
	return path + "?_journal=WAL&_busy_timeout=5000"
}

// gormWriter routes gorm's own log output through zerolog.
type gormWriter struct {
	log zerolog.Logger
}

func (w gormWriter) Printf(format string, args ...any) {
	w.log.Warn().Msgf(format, args...)
}
