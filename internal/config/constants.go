package config

// Default paths for on-disk state
const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./cookbook.db"

	// DefaultUploadDir is where the local upload backend stores images
	DefaultUploadDir = "./uploads"

	// DefaultMaxUploadBytes mirrors the 16MB request body limit of the upload endpoints
	DefaultMaxUploadBytes = 16 << 20
)
