package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mrlokans/cookbook/internal/config"
	"github.com/mrlokans/cookbook/internal/logger"
)

// AuditLogger receives authentication outcomes.
type AuditLogger interface {
	LogAuth(userID uint, action, ipAddr, userAgent string, success bool)
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthController handles the JSON authentication endpoints.
type AuthController struct {
	service *Service
	audit   AuditLogger
	config  config.Auth
	log     zerolog.Logger
}

// NewAuthController creates a new authentication controller. audit may be nil.
func NewAuthController(service *Service, audit AuditLogger, cfg config.Auth) *AuthController {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	return &AuthController{
		service: service,
		audit:   audit,
		config:  cfg,
		log:     logger.Component("auth"),
	}
}

// RegisterRoutes registers authentication routes on the group.
func (ac *AuthController) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/register", ac.Register)
	group.POST("/login", ac.Login)
	group.POST("/logout", ac.Logout)
	group.GET("/me", ac.Me)
}

// Register creates an account and logs it in.
func (ac *AuthController) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, sessionID, err := ac.service.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		ac.logAuth(c, 0, "register", false)

		var policy *PasswordPolicyError
		switch {
		case errors.Is(err, ErrUsernameTaken), errors.Is(err, ErrEmailTaken):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.As(err, &policy),
			errors.Is(err, ErrUsernameRequired),
			errors.Is(err, ErrEmailRequired),
			errors.Is(err, ErrPasswordRequired),
			errors.Is(err, ErrEmailInvalid):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			ac.log.Error().Err(err).Str("username", req.Username).Msg("registration failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": ErrRegistrationFailed.Error()})
		}
		return
	}

	ac.logAuth(c, user.ID, "register", true)
	ac.setSessionCookie(c, sessionID)
	c.JSON(http.StatusCreated, gin.H{
		"message":    "User registered successfully",
		"user":       user,
		"session_id": sessionID,
	})
}

// Login verifies credentials and opens a session.
func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}

	user, sessionID, err := ac.service.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		ac.logAuth(c, 0, "login", false)
		if errors.Is(err, ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		ac.log.Error().Err(err).Msg("login failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	ac.logAuth(c, user.ID, "login", true)
	ac.setSessionCookie(c, sessionID)
	c.JSON(http.StatusOK, gin.H{
		"message":    "Login successful",
		"user":       user,
		"session_id": sessionID,
	})
}

// Logout revokes the presented session, if any, and clears the cookie.
func (ac *AuthController) Logout(c *gin.Context) {
	sessionID, _ := c.Cookie(ac.config.CookieName)
	if err := ac.service.Logout(c.Request.Context(), sessionID); err != nil {
		ac.log.Error().Err(err).Msg("logout failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
		return
	}
	if sessionID != "" {
		ac.logAuth(c, GetUserID(c), "logout", true)
	}

	ac.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

// Me returns the current user, or {"user": null} for anonymous requests.
func (ac *AuthController) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": GetUser(c)})
}

func (ac *AuthController) setSessionCookie(c *gin.Context, sessionID string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     ac.config.CookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   ac.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (ac *AuthController) clearSessionCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     ac.config.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   ac.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (ac *AuthController) logAuth(c *gin.Context, userID uint, action string, success bool) {
	if ac.audit == nil {
		return
	}
	ac.audit.LogAuth(userID, action, c.ClientIP(), c.Request.UserAgent(), success)
}
