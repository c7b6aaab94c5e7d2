package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type SessionBackend string

const (
	SessionBackendMemory SessionBackend = "memory" // Process-local map, lost on restart (default)
	SessionBackendRedis  SessionBackend = "redis"  // Shared Redis keys without TTL
	SessionBackendSQLite SessionBackend = "sqlite" // sessions table in the application database
)

type UploadBackend string

const (
	UploadBackendLocal UploadBackend = "local" // Files under UPLOAD_DIR served by the app (default)
	UploadBackendS3    UploadBackend = "s3"    // S3-compatible bucket
)

type (
	Config struct {
		HTTP
		Global
		Database
		Auth
		Sessions
		Uploads
		S3
		Tasks
		UploadSweep
		Audit
		Logging
	}

	HTTP struct {
		Port               int32
		Host               string
		MaxUploadBytes     int64
		CORSAllowedOrigins []string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Auth struct {
		BcryptCost          int
		SecureCookies       bool // Set to false for local dev without HTTPS
		CookieName          string
		PrivilegedUsernames []string
		LegacySHA256        bool // Accept unsalted sha256 hex digests from imported user tables
	}
	Sessions struct {
		Backend       SessionBackend
		RedisAddr     string
		RedisPassword string
		RedisDB       int
		KeyPrefix     string
	}
	Uploads struct {
		Backend UploadBackend
		Dir     string
	}
	S3 struct {
		Bucket        string
		Region        string
		Endpoint      string // Custom endpoint for MinIO and other S3-compatible stores
		AccessKey     string
		SecretKey     string
		PublicBaseURL string
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	UploadSweep struct {
		Enabled  bool
		Schedule string // Cron format: "0 3 * * *" = nightly at 03:00
		MinAge   time.Duration
	}
	Audit struct {
		RetentionDays int // Days to keep audit events (default: 30)
	}
	Logging struct {
		Level  string
		Pretty bool
	}
)

// splitList parses a comma separated env value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("max_upload_bytes", DefaultMaxUploadBytes)
	v.SetDefault("cors_allowed_origins", "http://localhost:3000")
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("audit_retention_days", 30)

	// Auth defaults
	v.SetDefault("auth_bcrypt_cost", 12)
	v.SetDefault("auth_secure_cookies", false)
	v.SetDefault("auth_cookie_name", "session_id")
	v.SetDefault("auth_privileged_usernames", "admin")
	v.SetDefault("auth_legacy_sha256", false)

	// Session store defaults
	v.SetDefault("session_store", string(SessionBackendMemory))
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_db", 0)
	v.SetDefault("session_key_prefix", "cookbook:session:")

	// Upload defaults
	v.SetDefault("upload_backend", string(UploadBackendLocal))
	v.SetDefault("upload_dir", DefaultUploadDir)
	v.SetDefault("s3_region", "us-east-1")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	// Orphaned upload sweep
	v.SetDefault("upload_sweep_enabled", true)
	v.SetDefault("upload_sweep_schedule", "0 3 * * *")
	v.SetDefault("upload_sweep_min_age", "1h")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)

	return &Config{
		HTTP: HTTP{
			Port:               v.GetInt32("PORT"),
			Host:               v.GetString("HOST"),
			MaxUploadBytes:     v.GetInt64("MAX_UPLOAD_BYTES"),
			CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Auth: Auth{
			BcryptCost:          v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:       v.GetBool("AUTH_SECURE_COOKIES"),
			CookieName:          v.GetString("AUTH_COOKIE_NAME"),
			PrivilegedUsernames: splitList(v.GetString("AUTH_PRIVILEGED_USERNAMES")),
			LegacySHA256:        v.GetBool("AUTH_LEGACY_SHA256"),
		},
		Sessions: Sessions{
			Backend:       SessionBackend(v.GetString("SESSION_STORE")),
			RedisAddr:     v.GetString("REDIS_ADDR"),
			RedisPassword: v.GetString("REDIS_PASSWORD"),
			RedisDB:       v.GetInt("REDIS_DB"),
			KeyPrefix:     v.GetString("SESSION_KEY_PREFIX"),
		},
		Uploads: Uploads{
			Backend: UploadBackend(v.GetString("UPLOAD_BACKEND")),
			Dir:     v.GetString("UPLOAD_DIR"),
		},
		S3: S3{
			Bucket:        v.GetString("S3_BUCKET"),
			Region:        v.GetString("S3_REGION"),
			Endpoint:      v.GetString("S3_ENDPOINT"),
			AccessKey:     v.GetString("S3_ACCESS_KEY"),
			SecretKey:     v.GetString("S3_SECRET_KEY"),
			PublicBaseURL: v.GetString("S3_PUBLIC_BASE_URL"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		UploadSweep: UploadSweep{
			Enabled:  v.GetBool("UPLOAD_SWEEP_ENABLED"),
			Schedule: v.GetString("UPLOAD_SWEEP_SCHEDULE"),
			MinAge:   v.GetDuration("UPLOAD_SWEEP_MIN_AGE"),
		},
		Audit: Audit{
			RetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
		},
		Logging: Logging{
			Level:  v.GetString("LOG_LEVEL"),
			Pretty: v.GetBool("LOG_PRETTY"),
		},
	}
}
