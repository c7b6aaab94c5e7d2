package auth

import (
	"strings"

	"github.com/mrlokans/cookbook/internal/entities"
)

// DefaultPrivilegedUsername is granted privileges when none are configured.
const DefaultPrivilegedUsername = "admin"

// Authorizer decides whether a user may change a resource.
type Authorizer struct {
	privileged map[string]struct{}
}

// NewAuthorizer builds an Authorizer. Users whose role is admin are always
// privileged; usernames lists additional privileged accounts.
func NewAuthorizer(usernames []string) *Authorizer {
	if len(usernames) == 0 {
		usernames = []string{DefaultPrivilegedUsername}
	}
	set := make(map[string]struct{}, len(usernames))
	for _, name := range usernames {
		if name = strings.TrimSpace(name); name != "" {
			set[name] = struct{}{}
		}
	}
	return &Authorizer{privileged: set}
}

// IsPrivileged reports whether user may act on any resource.
func (a *Authorizer) IsPrivileged(user *entities.User) bool {
	if user == nil {
		return false
	}
	if user.IsAdmin() {
		return true
	}
	_, ok := a.privileged[user.Username]
	return ok
}

// CanMutate reports whether user may modify or delete a resource owned by ownerID.
func (a *Authorizer) CanMutate(user *entities.User, ownerID uint) bool {
	if user == nil {
		return false
	}
	return user.ID == ownerID || a.IsPrivileged(user)
}
