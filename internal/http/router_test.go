package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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
	"github.com/mrlokans/cookbook/internal/entities"
	"github.com/mrlokans/cookbook/internal/profiles"
	"github.com/mrlokans/cookbook/internal/recipes"
	"github.com/mrlokans/cookbook/internal/sessions"
	"github.com/mrlokans/cookbook/internal/uploads"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testPassword = "secret123"

type testEnv struct {
	router   *gin.Engine
	db       *database.Database
	auth     *auth.Service
	audit    *audit.Service
	storage  *uploads.LocalStorage
	recipes  *recipes.Service
	sessions *sessions.MemoryStore
}

type envOption func(*RouterConfig)

func setupTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "cookbook.db"))
	require.NoError(t, err)
	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	storage, err := uploads.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	store := sessions.NewMemoryStore()
	userRepo := users.NewRepository(db.DB)
	recipeRepo := recipesdb.NewRepository(db.DB)
	favRepo := favourites.NewRepository(db.DB)
	auditSvc := audit.NewService(auditdb.NewRepository(db.DB))

	authCfg := config.Auth{CookieName: auth.DefaultCookieName, PrivilegedUsernames: []string{"admin"}}
	authorizer := auth.NewAuthorizer(authCfg.PrivilegedUsernames)
	authSvc := auth.NewService(userRepo, store, auth.NewHasher(4, false))

	recipeSvc := recipes.NewService(recipes.Deps{
		Recipes:    recipeRepo,
		Comments:   comments.NewRepository(db.DB),
		Ratings:    ratings.NewRepository(db.DB),
		Storage:    storage,
		Authorizer: authorizer,
		Audit:      auditSvc,
	})
	profileSvc := profiles.NewService(profiles.Deps{
		Users:     userRepo,
		Recipes:   recipeRepo,
		Favorites: favRepo,
		Passwords: authSvc,
		Storage:   storage,
		Audit:     auditSvc,
	})

	cfg := RouterConfig{
		Recipes:        recipeSvc,
		Profiles:       profileSvc,
		Favorites:      favRepo,
		Audit:          auditSvc,
		AuthService:    authSvc,
		AuthMiddleware: auth.NewMiddleware(authSvc, authorizer, authCfg),
		AuthConfig:     authCfg,
		HealthChecks:   map[string]Pinger{"database": db},
		UploadDir:      storage.Dir(),
		HTTP: config.HTTP{
			MaxUploadBytes:     config.DefaultMaxUploadBytes,
			CORSAllowedOrigins: []string{"http://localhost:3000"},
		},
		Version: "test",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	t.Cleanup(func() {
		auditSvc.Wait()
		db.Close()
	})

	return &testEnv{
		router:   NewRouter(cfg),
		db:       db,
		auth:     authSvc,
		audit:    auditSvc,
		storage:  storage,
		recipes:  recipeSvc,
		sessions: store,
	}
}

// register creates a user and returns it with a session cookie.
func (env *testEnv) register(t *testing.T, username string) (*entities.User, *http.Cookie) {
	t.Helper()
	user, sessionID, err := env.auth.Register(context.Background(), username, username+"@example.com", testPassword)
	require.NoError(t, err)
	return user, &http.Cookie{Name: auth.DefaultCookieName, Value: sessionID}
}

func (env *testEnv) createRecipe(t *testing.T, author *entities.User, title string) *entities.Recipe {
	t.Helper()
	r, err := env.recipes.Create(context.Background(), author, recipes.Input{
		Title:       title,
		Ingredients: `["flour","water"]`,
		Category:    "Baking",
	})
	require.NoError(t, err)
	return r
}

func (env *testEnv) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

type multipartFile struct {
	field, name, content string
}

func (env *testEnv) doMultipart(t *testing.T, method, path string, fields map[string]string, files []multipartFile, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealth(t *testing.T) {
	t.Run("healthy when every check passes", func(t *testing.T) {
		env := setupTestEnv(t)
		w := env.do(http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusOK, w.Code)

		resp := decode[HealthResponse](t, w)
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, "test", resp.Version)
		assert.Equal(t, "ok", resp.Checks["database"])
		assert.NotEmpty(t, resp.Time)
	})

	t.Run("unhealthy when a check fails", func(t *testing.T) {
		env := setupTestEnv(t, func(cfg *RouterConfig) {
			cfg.HealthChecks["sessions"] = failingPinger{}
			cfg.HealthChecks["cache"] = nil
		})
		w := env.do(http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		resp := decode[HealthResponse](t, w)
		assert.Equal(t, "unhealthy", resp.Status)
		assert.Equal(t, "ok", resp.Checks["database"])
		assert.Equal(t, "error: connection refused", resp.Checks["sessions"])
		assert.Equal(t, "not configured", resp.Checks["cache"])
	})
}

func TestPingAndMetrics(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())

	w = env.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cookbook_http_request_duration_seconds")
}

func TestAuthFlowThroughRouter(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(http.MethodPost, "/api/auth/register",
		`{"username":"alice","email":"alice@example.com","password":"secret123"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.DefaultCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)

	w = env.do(http.MethodGet, "/api/auth/me", "", cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"alice"`)

	w = env.do(http.MethodGet, "/api/auth/me", "")
	assert.JSONEq(t, `{"user":null}`, w.Body.String())

	w = env.do(http.MethodPost, "/api/auth/logout", "", cookie)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/api/recipes/my", "", cookie)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCORS(t *testing.T) {
	env := setupTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/recipes", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/api/recipes", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Values("Vary"), "Origin")

	req = httptest.NewRequest(http.MethodGet, "/api/recipes", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/recipes", nil)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORS_Wildcard(t *testing.T) {
	router := gin.New()
	router.Use(CORS([]string{"*"}))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://any.example")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_NoOrigins(t *testing.T) {
	router := gin.New()
	router.Use(CORS([]string{"localhost:3000"}))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMaxBodySize(t *testing.T) {
	router := gin.New()
	router.Use(MaxBodySize(10))
	router.POST("/echo", func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.Status(http.StatusRequestEntityTooLarge)
				return
			}
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"a":"0123456789"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestUploadsServed(t *testing.T) {
	env := setupTestEnv(t)

	url, err := env.storage.Save(context.Background(), uploads.KindRecipes, "cake.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)

	w := env.do(http.MethodGet, url, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "png-bytes", w.Body.String())
}
