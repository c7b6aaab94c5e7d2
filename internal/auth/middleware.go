package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mrlokans/cookbook/internal/config"
	"github.com/mrlokans/cookbook/internal/entities"
	"github.com/mrlokans/cookbook/internal/logger"
)

// Context keys for user data
const (
	ContextKeyUserID     = "auth_user_id"
	ContextKeyUsername   = "auth_username"
	ContextKeyRole       = "auth_role"
	ContextKeyUser       = "auth_user"
	ContextKeySessionID  = "auth_session_id"
	ContextKeyPrivileged = "auth_privileged"
)

// DefaultCookieName is the session cookie used when none is configured.
const DefaultCookieName = "session_id"

// AnonymousUserID is reported for requests without a valid session.
const AnonymousUserID = uint(0)

// Middleware resolves the session cookie to a user for every request.
type Middleware struct {
	service    *Service
	authorizer *Authorizer
	cookieName string
	log        zerolog.Logger
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(service *Service, authorizer *Authorizer, cfg config.Auth) *Middleware {
	cookieName := cfg.CookieName
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &Middleware{
		service:    service,
		authorizer: authorizer,
		cookieName: cookieName,
		log:        logger.Component("auth"),
	}
}

// Handler returns a Gin middleware that loads the current user, if any.
// Requests without a valid session continue anonymously; use RequireAuth on
// routes that need a user.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(m.cookieName)
		if err != nil || sessionID == "" {
			c.Next()
			return
		}
		c.Set(ContextKeySessionID, sessionID)

		user, err := m.service.CurrentUser(c.Request.Context(), sessionID)
		if err != nil {
			m.log.Error().Err(err).Msg("session lookup failed")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "session store unavailable",
			})
			return
		}
		if user != nil {
			m.setUserContext(c, user)
		}
		c.Next()
	}
}

// setUserContext stores user information in the Gin context.
func (m *Middleware) setUserContext(c *gin.Context, user *entities.User) {
	c.Set(ContextKeyUserID, user.ID)
	c.Set(ContextKeyUsername, user.Username)
	c.Set(ContextKeyRole, user.Role)
	c.Set(ContextKeyUser, user)
	c.Set(ContextKeyPrivileged, m.authorizer.IsPrivileged(user))
}

// RequireAuth returns a middleware that rejects anonymous requests with 401.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Not authenticated",
			})
			return
		}
		c.Next()
	}
}

// RequirePrivileged returns a middleware that admits only privileged users.
func (m *Middleware) RequirePrivileged() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}
		if !IsPrivileged(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			return
		}
		c.Next()
	}
}

// Helper functions to extract auth data from Gin context

// GetUserID retrieves the authenticated user's ID from the context.
// Returns AnonymousUserID (0) if not authenticated.
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextKeyUserID); exists {
		if userID, ok := id.(uint); ok {
			return userID
		}
	}
	return AnonymousUserID
}

// GetUsername retrieves the authenticated user's username from the context.
func GetUsername(c *gin.Context) string {
	return c.GetString(ContextKeyUsername)
}

// GetUserRole retrieves the authenticated user's role from the context.
func GetUserRole(c *gin.Context) entities.UserRole {
	if r, exists := c.Get(ContextKeyRole); exists {
		if role, ok := r.(entities.UserRole); ok {
			return role
		}
	}
	return ""
}

// GetUser returns the authenticated user, or nil.
func GetUser(c *gin.Context) *entities.User {
	if u, exists := c.Get(ContextKeyUser); exists {
		if user, ok := u.(*entities.User); ok {
			return user
		}
	}
	return nil
}

// GetSessionID returns the session id presented by the client, valid or not.
func GetSessionID(c *gin.Context) string {
	return c.GetString(ContextKeySessionID)
}

// IsPrivileged reports whether the authenticated user is privileged.
func IsPrivileged(c *gin.Context) bool {
	return c.GetBool(ContextKeyPrivileged)
}

// IsAuthenticated returns true if the request carries a valid session.
func IsAuthenticated(c *gin.Context) bool {
	return GetUser(c) != nil
}
