// Package auth provides session-based authentication and ownership checks.
//
// Accounts are created with Register and authenticated with Login; both open
// a session in the configured sessions.Store and hand its opaque identifier
// to the client as the session_id cookie. Sessions never expire and end only
// on Logout.
//
// # Configuration
//
//	AUTH_BCRYPT_COST=12                 # bcrypt cost factor
//	AUTH_PRIVILEGED_USERNAMES=admin     # comma list of accounts that may edit anything
//	AUTH_LEGACY_SHA256=false            # accept unsalted sha256 hashes from imported users
//	AUTH_SECURE_COOKIES=false           # HTTPS-only cookies
//	AUTH_COOKIE_NAME=session_id
//
// Accounts carrying a legacy hash are rehashed with bcrypt on their next
// successful login.
//
// # Usage
//
//	hasher := auth.NewHasher(cfg.Auth.BcryptCost, cfg.Auth.LegacySHA256)
//	service := auth.NewService(usersRepo, sessionStore, hasher)
//	authorizer := auth.NewAuthorizer(cfg.Auth.PrivilegedUsernames)
//	router.Use(auth.NewMiddleware(service, authorizer, cfg.Auth).Handler())
//
// Extract the user in handlers:
//
//	user := auth.GetUser(c) // nil for anonymous requests
//	if !authorizer.CanMutate(user, recipe.AuthorID) { ... }
package auth
