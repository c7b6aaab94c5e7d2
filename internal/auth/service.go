package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mrlokans/cookbook/internal/database/users"
	"github.com/mrlokans/cookbook/internal/entities"
	"github.com/mrlokans/cookbook/internal/logger"
	"github.com/mrlokans/cookbook/internal/metrics"
	"github.com/mrlokans/cookbook/internal/sessions"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

var (
	ErrUsernameRequired   = errors.New("username is required")
	ErrEmailRequired      = errors.New("email is required")
	ErrPasswordRequired   = errors.New("password is required")
	ErrEmailInvalid       = errors.New("invalid email format")
	ErrUsernameTaken      = users.ErrUsernameTaken
	ErrEmailTaken         = users.ErrEmailTaken
	ErrRegistrationFailed = errors.New("registration failed")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrWrongPassword      = errors.New("current password is incorrect")
)

// UserStore is the persistence the auth service needs.
type UserStore interface {
	CreateUser(ctx context.Context, user *entities.User) error
	GetUserByID(ctx context.Context, id uint) (*entities.User, error)
	GetUserByUsername(ctx context.Context, username string) (*entities.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdatePasswordHash(ctx context.Context, id uint, hash string) error
}

// Service handles registration, login and session lookup.
type Service struct {
	users    UserStore
	sessions sessions.Store
	hasher   *Hasher
	log      zerolog.Logger
}

// NewService creates a new authentication service.
func NewService(store UserStore, sessionStore sessions.Store, hasher *Hasher) *Service {
	return &Service{
		users:    store,
		sessions: sessionStore,
		hasher:   hasher,
		log:      logger.Component("auth"),
	}
}

// Register validates the input, stores a new member account and opens a
// session for it.
func (s *Service) Register(ctx context.Context, username, email, password string) (*entities.User, string, error) {
	user, err := s.register(ctx, username, email, password, entities.UserRoleMember)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("register", failureReason(err)).Inc()
		return nil, "", err
	}

	sessionID, err := s.openSession(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	metrics.AuthAttemptsTotal.WithLabelValues("register", "success").Inc()
	s.log.Info().Uint("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	return user, sessionID, nil
}

func (s *Service) register(ctx context.Context, username, email, password string, role entities.UserRole) (*entities.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	switch {
	case username == "":
		return nil, ErrUsernameRequired
	case email == "":
		return nil, ErrEmailRequired
	case password == "":
		return nil, ErrPasswordRequired
	}

	if !ValidEmail(email) {
		return nil, ErrEmailInvalid
	}

	taken, err := s.users.UsernameExists(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRegistrationFailed, err)
	}
	if taken {
		return nil, ErrUsernameTaken
	}
	taken, err = s.users.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRegistrationFailed, err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRegistrationFailed, err)
	}

	user := &entities.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		// Lost a race with a concurrent registration after the checks above.
		if errors.Is(err, ErrUsernameTaken) || errors.Is(err, ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrRegistrationFailed, err)
	}
	return user, nil
}

// Login verifies credentials and opens a new session. Each call yields a
// distinct session. Hashes in an outdated format are upgraded in place.
func (s *Service) Login(ctx context.Context, username, password string) (*entities.User, string, error) {
	user, err := s.authenticate(ctx, username, password)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("login", failureReason(err)).Inc()
		return nil, "", err
	}

	sessionID, err := s.openSession(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	metrics.AuthAttemptsTotal.WithLabelValues("login", "success").Inc()
	return user, sessionID, nil
}

func (s *Service) authenticate(ctx context.Context, username, password string) (*entities.User, error) {
	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, users.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		s.log.Warn().Err(err).Uint("user_id", user.ID).Msg("unreadable password hash")
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		s.upgradeHash(ctx, user, password)
	}
	return user, nil
}

// upgradeHash rehashes the password with the current parameters. Failure
// is logged and does not fail the login.
func (s *Service) upgradeHash(ctx context.Context, user *entities.User, password string) {
	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.users.UpdatePasswordHash(ctx, user.ID, hash)
	}
	if err != nil {
		s.log.Warn().Err(err).Uint("user_id", user.ID).Msg("password hash upgrade failed")
		return
	}
	user.PasswordHash = hash
	s.log.Info().Uint("user_id", user.ID).Msg("password hash upgraded")
}

// Logout revokes the session. Unknown sessions are ignored.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	metrics.SessionsRevokedTotal.Inc()
	metrics.AuthAttemptsTotal.WithLabelValues("logout", "success").Inc()
	return nil
}

// CurrentUser resolves a session to its user. It returns nil without an
// error when the session is unknown or its user no longer exists.
func (s *Service) CurrentUser(ctx context.Context, sessionID string) (*entities.User, error) {
	if sessionID == "" {
		return nil, nil
	}
	userID, found, err := s.sessions.Resolve(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}
	if !found {
		return nil, nil
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, users.ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ValidEmail reports whether email is a plausible address.
func ValidEmail(email string) bool {
	// RFC 5321 limit is 254
	return len(email) <= 254 && emailPattern.MatchString(email)
}

// ChangePassword replaces a user's password after checking the current one
// and the policy for the new one.
func (s *Service) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := s.hasher.Verify(current, user.PasswordHash)
	if err != nil || !ok {
		return ErrWrongPassword
	}
	if err := ValidatePassword(next); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	return s.users.UpdatePasswordHash(ctx, userID, hash)
}

// CreatePrivilegedUser stores an admin account without opening a session.
// Used by the create-admin command.
func (s *Service) CreatePrivilegedUser(ctx context.Context, username, email, password string) (*entities.User, error) {
	return s.register(ctx, username, email, password, entities.UserRoleAdmin)
}

func (s *Service) openSession(ctx context.Context, userID uint) (string, error) {
	sessionID, err := s.sessions.Create(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	metrics.SessionsOpenedTotal.Inc()
	return sessionID, nil
}

// failureReason maps an auth error to a metric label.
func failureReason(err error) string {
	var policy *PasswordPolicyError
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrUsernameTaken), errors.Is(err, ErrEmailTaken):
		return "conflict"
	case errors.As(err, &policy):
		return "weak_password"
	case errors.Is(err, ErrUsernameRequired), errors.Is(err, ErrEmailRequired),
		errors.Is(err, ErrPasswordRequired), errors.Is(err, ErrEmailInvalid):
		return "invalid_input"
	default:
		return "error"
	}
}
