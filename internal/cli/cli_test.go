package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/cookbook/internal/config"
	"github.com/mrlokans/cookbook/internal/database"
	recipesdb "github.com/mrlokans/cookbook/internal/database/recipes"
	"github.com/mrlokans/cookbook/internal/database/users"
	"github.com/mrlokans/cookbook/internal/entities"
	"github.com/mrlokans/cookbook/internal/uploads"
)

func TestCreateAdminCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cookbook.db")

	cmd := NewCreateAdminCommand()
	var out bytes.Buffer
	cmd.out = &out
	require.NoError(t, cmd.ParseFlags([]string{
		"-email", "root@example.com",
		"-password", "secret123",
		"-db", dbPath,
		"-bcrypt-cost", "4",
	}))
	assert.Equal(t, "admin", cmd.Username)

	require.NoError(t, cmd.Run(context.Background()))
	assert.Contains(t, out.String(), `Created admin "admin"`)

	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)
	defer db.Close()

	user, err := users.NewRepository(db.DB).GetUserByUsername(context.Background(), "admin")
	require.NoError(t, err)
	assert.Equal(t, entities.UserRoleAdmin, user.Role)
	assert.Equal(t, "root@example.com", user.Email)

	// A second run with the same username fails.
	db.Close()
	err = cmd.Run(context.Background())
	assert.Error(t, err)
}

func TestCreateAdminCommand_RequiredFlags(t *testing.T) {
	err := NewCreateAdminCommand().ParseFlags([]string{"-password", "secret123"})
	assert.EqualError(t, err, "required flag -email not provided")

	err = NewCreateAdminCommand().ParseFlags([]string{"-email", "a@example.com"})
	assert.EqualError(t, err, "required flag -password not provided")
}

func TestCreateAdminCommand_RejectsWeakPassword(t *testing.T) {
	cmd := NewCreateAdminCommand()
	cmd.out = &bytes.Buffer{}
	require.NoError(t, cmd.ParseFlags([]string{
		"-email", "root@example.com",
		"-password", "short",
		"-db", filepath.Join(t.TempDir(), "cookbook.db"),
		"-bcrypt-cost", "4",
	}))
	assert.Error(t, cmd.Run(context.Background()))
}

func TestSweepUploadsCommand(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "cookbook.db")
	uploadDir := filepath.Join(dir, "uploads")

	storage, err := uploads.NewLocalStorage(uploadDir)
	require.NoError(t, err)
	kept, err := storage.Save(ctx, uploads.KindRecipes, "kept.png", strings.NewReader("a"))
	require.NoError(t, err)
	orphan, err := storage.Save(ctx, uploads.KindRecipes, "orphan.png", strings.NewReader("b"))
	require.NoError(t, err)

	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)
	author := &entities.User{Username: "chef", Email: "chef@example.com", PasswordHash: "x"}
	require.NoError(t, users.NewRepository(db.DB).CreateUser(ctx, author))
	require.NoError(t, recipesdb.NewRepository(db.DB).Create(ctx, &entities.Recipe{
		Title:       "Bread",
		Ingredients: `["flour"]`,
		AuthorID:    author.ID,
		ImageURL:    kept,
	}))
	require.NoError(t, db.Close())

	cfg := &config.Config{
		Database: config.Database{Path: dbPath},
		Uploads:  config.Uploads{Backend: config.UploadBackendLocal, Dir: uploadDir},
	}

	run := func(args ...string) string {
		t.Helper()
		cmd := NewSweepUploadsCommand(cfg)
		var out bytes.Buffer
		cmd.out = &out
		require.NoError(t, cmd.ParseFlags(args))
		require.NoError(t, cmd.Run(ctx))
		return out.String()
	}

	out := run("-dry-run", "-verbose")
	assert.Contains(t, out, "DRY RUN MODE")
	assert.Contains(t, out, "orphaned: "+orphan)
	assert.Contains(t, out, "Scanned 2 files, 1 orphaned, 0 deleted, 0 failed")
	assert.FileExists(t, localPath(uploadDir, orphan))

	out = run()
	assert.Contains(t, out, "Scanned 2 files, 1 orphaned, 1 deleted, 0 failed")
	assert.NoFileExists(t, localPath(uploadDir, orphan))
	assert.FileExists(t, localPath(uploadDir, kept))

	out = run("-min-age", "24h")
	assert.Contains(t, out, "Scanned 1 files, 0 orphaned")
}

// localPath maps an /uploads/<kind>/<name> URL to its file on disk.
func localPath(dir, url string) string {
	return filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(url, uploads.URLPrefix+"/")))
}
