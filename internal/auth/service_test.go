package auth

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/cookbook/internal/database/users"
	"github.com/mrlokans/cookbook/internal/entities"
	"github.com/mrlokans/cookbook/internal/sessions"
)

type testEnv struct {
	db       *gorm.DB
	users    *users.Repository
	sessions *sessions.MemoryStore
	service  *Service
}

func setupTestEnv(t *testing.T, legacy bool) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "auth.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.User{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	repo := users.NewRepository(db)
	store := sessions.NewMemoryStore()
	return &testEnv{
		db:       db,
		users:    repo,
		sessions: store,
		service:  NewService(repo, store, NewHasher(bcrypt.MinCost, legacy)),
	}
}

func TestService_RegisterThenLogin(t *testing.T) {
	env := setupTestEnv(t, false)
	ctx := context.Background()

	triples := []struct{ username, email, password string }{
		{"alice", "alice@example.com", "secret123"},
		{"bob_the_cook", "bob@cook.org", "Borscht2024"},
		{"вася", "vasya@example.ru", "пирожки42"},
	}

	for _, tr := range triples {
		t.Run(tr.username, func(t *testing.T) {
			user, sessionID, err := env.service.Register(ctx, tr.username, tr.email, tr.password)
			require.NoError(t, err)
			assert.NotZero(t, user.ID)
			assert.NotEmpty(t, sessionID)
			assert.Equal(t, entities.UserRoleMember, user.Role)
			assert.NotEqual(t, tr.password, user.PasswordHash)

			current, err := env.service.CurrentUser(ctx, sessionID)
			require.NoError(t, err)
			require.NotNil(t, current)
			assert.Equal(t, user.ID, current.ID)

			loggedIn, loginSession, err := env.service.Login(ctx, tr.username, tr.password)
			require.NoError(t, err)
			assert.Equal(t, user.ID, loggedIn.ID)
			assert.NotEqual(t, sessionID, loginSession)
		})
	}
}

func TestService_RegisterRejectsBlacklistedPassword(t *testing.T) {
	env := setupTestEnv(t, false)

	_, _, err := env.service.Register(context.Background(), "admin", "a@a.com", "password")

	var policy *PasswordPolicyError
	require.True(t, errors.As(err, &policy))
	assert.Contains(t, policy.Violations, "password is too common")
	assert.Zero(t, env.sessions.Len())
}

func TestService_RegisterRejectsShortPassword(t *testing.T) {
	env := setupTestEnv(t, false)

	_, _, err := env.service.Register(context.Background(), "u", "u@u.com", "abc")

	var policy *PasswordPolicyError
	require.True(t, errors.As(err, &policy))
	assert.Equal(t, []string{
		"password must be at least 8 characters",
		"password must contain at least one digit",
	}, policy.Violations)

	exists, err := env.users.UsernameExists(context.Background(), "u")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestService_RegisterValidation(t *testing.T) {
	env := setupTestEnv(t, false)
	ctx := context.Background()

	_, _, err := env.service.Register(ctx, "alice", "alice@example.com", "secret123")
	require.NoError(t, err)

	tests := []struct {
		name     string
		username string
		email    string
		password string
		wantErr  error
	}{
		{"missing username", "", "x@example.com", "secret123", ErrUsernameRequired},
		{"missing email", "carol", "", "secret123", ErrEmailRequired},
		{"missing password", "carol", "carol@example.com", "", ErrPasswordRequired},
		{"bad email", "carol", "not-an-email", "secret123", ErrEmailInvalid},
		{"username taken", "alice", "other@example.com", "secret123", ErrUsernameTaken},
		{"email taken", "carol", "alice@example.com", "secret123", ErrEmailTaken},
		{"username checked before email", "alice", "alice@example.com", "secret123", ErrUsernameTaken},
		{"conflict reported before weak password", "alice", "new@example.com", "abc", ErrUsernameTaken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := env.service.Register(ctx, tt.username, tt.email, tt.password)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestService_RegisterFailureSurfacesGenericError(t *testing.T) {
	env := setupTestEnv(t, false)
	sqlDB, err := env.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, _, err = env.service.Register(context.Background(), "alice", "alice@example.com", "secret123")
	assert.ErrorIs(t, err, ErrRegistrationFailed)
}

func TestService_Login(t *testing.T) {
	env := setupTestEnv(t, false)
	ctx := context.Background()
	_, _, err := env.service.Register(ctx, "alice", "alice@example.com", "secret123")
	require.NoError(t, err)

	_, _, err = env.service.Login(ctx, "alice", "wrong-password1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, "invalid username or password", err.Error())

	_, _, err = env.service.Login(ctx, "nobody", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_LogoutEndsSession(t *testing.T) {
	env := setupTestEnv(t, false)
	ctx := context.Background()
	_, sessionID, err := env.service.Register(ctx, "alice", "alice@example.com", "secret123")
	require.NoError(t, err)

	require.NoError(t, env.service.Logout(ctx, sessionID))

	user, err := env.service.CurrentUser(ctx, sessionID)
	require.NoError(t, err)
	assert.Nil(t, user)

	assert.NoError(t, env.service.Logout(ctx, sessionID))
	assert.NoError(t, env.service.Logout(ctx, ""))
}

func TestService_TwoLoginsAreIndependent(t *testing.T) {
	env := setupTestEnv(t, false)
	ctx := context.Background()
	registered, _, err := env.service.Register(ctx, "alice", "alice@example.com", "secret123")
	require.NoError(t, err)

	_, first, err := env.service.Login(ctx, "alice", "secret123")
	require.NoError(t, err)
	_, second, err := env.service.Login(ctx, "alice", "secret123")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	for _, sid := range []string{first, second} {
		user, err := env.service.CurrentUser(ctx, sid)
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, registered.ID, user.ID)
	}

	require.NoError(t, env.service.Logout(ctx, first))
	user, err := env.service.CurrentUser(ctx, first)
	require.NoError(t, err)
	assert.Nil(t, user)

	user, err = env.service.CurrentUser(ctx, second)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, registered.ID, user.ID)
}

func TestService_CurrentUserAbsent(t *testing.T) {
	env := setupTestEnv(t, false)
	ctx := context.Background()

	user, err := env.service.CurrentUser(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, user)

	user, err = env.service.CurrentUser(ctx, "unknown-session")
	require.NoError(t, err)
	assert.Nil(t, user)

	t.Run("session of a deleted user", func(t *testing.T) {
		registered, sid, err := env.service.Register(ctx, "ghost", "ghost@example.com", "secret123")
		require.NoError(t, err)
		require.NoError(t, env.db.Delete(&entities.User{}, registered.ID).Error)

		user, err := env.service.CurrentUser(ctx, sid)
		require.NoError(t, err)
		assert.Nil(t, user)
	})
}

func TestService_LegacyHashUpgradedOnLogin(t *testing.T) {
	env := setupTestEnv(t, true)
	ctx := context.Background()

	legacy := &entities.User{
		Username:     "imported",
		Email:        "imported@example.com",
		PasswordHash: LegacySHA256("oldsecret1"),
	}
	require.NoError(t, env.users.CreateUser(ctx, legacy))

	_, _, err := env.service.Login(ctx, "imported", "oldsecret1")
	require.NoError(t, err)

	stored, err := env.users.GetUserByID(ctx, legacy.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.PasswordHash, "$2"))

	_, _, err = env.service.Login(ctx, "imported", "oldsecret1")
	assert.NoError(t, err)
}

func TestService_LegacyHashRejectedWhenDisabled(t *testing.T) {
	env := setupTestEnv(t, false)
	ctx := context.Background()

	require.NoError(t, env.users.CreateUser(ctx, &entities.User{
		Username:     "imported",
		Email:        "imported@example.com",
		PasswordHash: LegacySHA256("oldsecret1"),
	}))

	_, _, err := env.service.Login(ctx, "imported", "oldsecret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_ChangePassword(t *testing.T) {
	env := setupTestEnv(t, false)
	ctx := context.Background()
	user, _, err := env.service.Register(ctx, "alice", "alice@example.com", "secret123")
	require.NoError(t, err)

	assert.ErrorIs(t, env.service.ChangePassword(ctx, user.ID, "wrong1234", "newsecret1"), ErrWrongPassword)

	var policy *PasswordPolicyError
	assert.True(t, errors.As(env.service.ChangePassword(ctx, user.ID, "secret123", "short"), &policy))

	require.NoError(t, env.service.ChangePassword(ctx, user.ID, "secret123", "newsecret1"))
	_, _, err = env.service.Login(ctx, "alice", "newsecret1")
	assert.NoError(t, err)
}

// staleUserStore reports every username and email as free, as a registration
// racing another one would see before the other insert commits.
type staleUserStore struct {
	*users.Repository
	created []entities.User
}

func (s *staleUserStore) UsernameExists(context.Context, string) (bool, error) { return false, nil }
func (s *staleUserStore) EmailExists(context.Context, string) (bool, error) { return false, nil }

func (s *staleUserStore) CreateUser(ctx context.Context, user *entities.User) error {
	s.created = append(s.created, *user)
	return s.Repository.CreateUser(ctx, user)
}

func TestService_RegisterConflictFromInsert(t *testing.T) {
	env := setupTestEnv(t, false)
	ctx := context.Background()
	_, _, err := env.service.Register(ctx, "alice", "alice@example.com", "secret123")
	require.NoError(t, err)

	stale := &staleUserStore{Repository: env.users}
	svc := NewService(stale, env.sessions, NewHasher(bcrypt.MinCost, false))

	_, _, err = svc.Register(ctx, "alice", "other@example.com", "secret123")
	assert.ErrorIs(t, err, ErrUsernameTaken)
	assert.NotErrorIs(t, err, ErrRegistrationFailed)

	_, _, err = svc.Register(ctx, "carol", "alice@example.com", "secret123")
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Equal(t, "conflict", failureReason(err))
}

func TestService_CreatePrivilegedUser(t *testing.T) {
	env := setupTestEnv(t, false)
	ctx := context.Background()

	store := &staleUserStore{Repository: env.users}
	svc := NewService(store, env.sessions, NewHasher(bcrypt.MinCost, false))

	user, err := svc.CreatePrivilegedUser(ctx, "root", "root@example.com", "rootpass1")
	require.NoError(t, err)
	assert.Equal(t, entities.UserRoleAdmin, user.Role)
	assert.Zero(t, env.sessions.Len())

	require.Len(t, store.created, 1)
	assert.Equal(t, entities.UserRoleAdmin, store.created[0].Role)

	stored, err := env.users.GetUserByUsername(ctx, "root")
	require.NoError(t, err)
	assert.True(t, stored.IsAdmin())
}

func TestFailureReason(t *testing.T) {
	assert.Equal(t, "invalid_credentials", failureReason(ErrInvalidCredentials))
	assert.Equal(t, "conflict", failureReason(ErrEmailTaken))
	assert.Equal(t, "weak_password", failureReason(&PasswordPolicyError{Violations: []string{"x"}}))
	assert.Equal(t, "invalid_input", failureReason(ErrEmailInvalid))
	assert.Equal(t, "error", failureReason(errors.New("boom")))
}
