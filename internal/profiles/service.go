// Package profiles serves public user profiles and lets users edit their own.
package profiles

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mrlokans/cookbook/internal/auth"
	"github.com/mrlokans/cookbook/internal/database/users"
	"github.com/mrlokans/cookbook/internal/entities"
	"github.com/mrlokans/cookbook/internal/logger"
	"github.com/mrlokans/cookbook/internal/uploads"
)

var (
	ErrNotFound                 = users.ErrUserNotFound
	ErrForbidden                = errors.New("users may only edit their own profile")
	ErrPasswordChangeIncomplete = errors.New("both current_password and new_password are required to change the password")
)

type UserStore interface {
	GetUserByID(ctx context.Context, id uint) (*entities.User, error)
	EmailTakenByOther(ctx context.Context, email string, userID uint) (bool, error)
	UpdateProfile(ctx context.Context, id uint, upd users.ProfileUpdate) (*entities.User, error)
}

// Counter reports per-user totals shown on a profile.
type Counter interface {
	CountByAuthor(ctx context.Context, authorID uint) (int64, error)
}

type FavoriteCounter interface {
	CountForUser(ctx context.Context, userID uint) (int64, error)
}

type PasswordChanger interface {
	ChangePassword(ctx context.Context, userID uint, current, next string) error
}

type AuditRecorder interface {
	LogProfile(userID uint, action, description string)
}

// Profile is a user together with their activity totals.
type Profile struct {
	*entities.User
	RecipesCount   int64 `json:"recipes_count"`
	FavoritesCount int64 `json:"favorites_count"`
}

// Avatar is an uploaded profile image.
type Avatar struct {
	Filename string
	Body     io.Reader
}

// Changes lists the profile edits requested. Nil fields stay untouched.
type Changes struct {
	Email           *string
	Bio             *string
	CurrentPassword string
	NewPassword     string
	Avatar          *Avatar
}

type Deps struct {
	Users     UserStore
	Recipes   Counter
	Favorites FavoriteCounter
	Passwords PasswordChanger
	Storage   uploads.Storage
	Audit     AuditRecorder
}

type Service struct {
	deps Deps
	log  zerolog.Logger
}

func NewService(deps Deps) *Service {
	return &Service{deps: deps, log: logger.Component("profiles")}
}

// Get returns the public profile of a user.
func (s *Service) Get(ctx context.Context, id uint) (*Profile, error) {
	user, err := s.deps.Users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	recipes, err := s.deps.Recipes.CountByAuthor(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("count recipes: %w", err)
	}
	favorites, err := s.deps.Favorites.CountForUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("count favorites: %w", err)
	}
	return &Profile{User: user, RecipesCount: recipes, FavoritesCount: favorites}, nil
}

// Update edits the profile of user id on behalf of actor.
func (s *Service) Update(ctx context.Context, actor *entities.User, id uint, ch Changes) (*entities.User, error) {
	if actor == nil || actor.ID != id {
		return nil, ErrForbidden
	}
	current, err := s.deps.Users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var upd users.ProfileUpdate
	if ch.Email != nil {
		email := strings.TrimSpace(*ch.Email)
		if email == "" {
			return nil, auth.ErrEmailRequired
		}
		if !auth.ValidEmail(email) {
			return nil, auth.ErrEmailInvalid
		}
		taken, err := s.deps.Users.EmailTakenByOther(ctx, email, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, auth.ErrEmailTaken
		}
		upd.Email = &email
	}
	upd.Bio = ch.Bio

	if ch.CurrentPassword != "" || ch.NewPassword != "" {
		if ch.CurrentPassword == "" || ch.NewPassword == "" {
			return nil, ErrPasswordChangeIncomplete
		}
		if err := s.deps.Passwords.ChangePassword(ctx, id, ch.CurrentPassword, ch.NewPassword); err != nil {
			return nil, err
		}
		if s.deps.Audit != nil {
			s.deps.Audit.LogProfile(id, "password_change", "password changed")
		}
	}

	oldAvatar := current.AvatarURL
	if ch.Avatar != nil {
		if s.deps.Storage == nil {
			return nil, errors.New("image uploads are not configured")
		}
		url, err := s.deps.Storage.Save(ctx, uploads.KindAvatars, ch.Avatar.Filename, ch.Avatar.Body)
		if err != nil {
			return nil, err
		}
		upd.AvatarURL = &url
	}

	user, err := s.deps.Users.UpdateProfile(ctx, id, upd)
	if err != nil {
		if upd.AvatarURL != nil {
			s.removeAvatar(ctx, *upd.AvatarURL)
		}
		return nil, err
	}
	if upd.AvatarURL != nil && oldAvatar != "" && oldAvatar != *upd.AvatarURL {
		s.removeAvatar(ctx, oldAvatar)
	}

	if s.deps.Audit != nil && (upd.Email != nil || upd.Bio != nil || upd.AvatarURL != nil) {
		s.deps.Audit.LogProfile(id, "profile_update", changedFields(upd))
	}
	return user, nil
}

func (s *Service) removeAvatar(ctx context.Context, url string) {
	if err := s.deps.Storage.Delete(ctx, url); err != nil {
		s.log.Warn().Err(err).Str("url", url).Msg("failed to remove avatar")
	}
}

func changedFields(upd users.ProfileUpdate) string {
	var fields []string
	if upd.Email != nil {
		fields = append(fields, "email")
	}
	if upd.Bio != nil {
		fields = append(fields, "bio")
	}
	if upd.AvatarURL != nil {
		fields = append(fields, "avatar")
	}
	return "updated " + strings.Join(fields, ", ")
}
