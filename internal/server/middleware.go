package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roostd-dev/roostd/internal/auth"
	"github.com/roostd-dev/roostd/internal/gate"
	"github.com/roostd-dev/roostd/internal/models"
)

const (
	authContextKey = "authContext"
	gatedUserKey   = "gatedUser"
)

// GetAuthContext returns the per-request auth context set by the resolver
// middleware. Absent context means anonymous.
func GetAuthContext(c *gin.Context) auth.AuthContext {
	value, exists := c.Get(authContextKey)
	if !exists {
		return auth.Anonymous()
	}

	authCtx, ok := value.(auth.AuthContext)
	if !ok {
		return auth.Anonymous()
	}
	return authCtx
}

// GetGatedUser returns the user attached by the access-gate middleware.
func GetGatedUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(gatedUserKey)
	if !exists {
		return nil, false
	}

	user, ok := value.(*models.User)
	return user, ok
}

// authContextMiddleware resolves the session cookies into an AuthContext on
// every request. Pure cookie verification, no I/O: missing or corrupt
// cookies yield the anonymous context, never an error.
func (s *Server) authContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authCtx := auth.Anonymous()

		userID, idErr := c.Cookie(cookieUserID)
		token, tokenErr := c.Cookie(cookieLoggedIn)
		if idErr == nil && tokenErr == nil {
			if claims, ok := s.tokens.Verify(userID, token); ok {
				authCtx = auth.AuthContext{
					Authenticated: true,
					UserID:        userID,
					TokenVersion:  claims.TokenVersion,
				}
			}
		}

		c.Set(authContextKey, authCtx)
		c.Next()
	}
}

// requireUser gates protected routes. The cookie is not trusted alone: the
// gate re-fetches the user so every gated handler observes a currently-real
// account. Denied and Indeterminate both redirect to the login page; the
// store failure behind an Indeterminate is logged rather than surfaced.
func (s *Server) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		resolution := s.gate.Resolve(c.Request.Context(), GetAuthContext(c))

		switch resolution.Outcome {
		case gate.Allowed:
			c.Set(gatedUserKey, resolution.User)
			c.Next()
		case gate.Indeterminate:
			s.logger.Error().Err(resolution.Cause).
				Msg("Store unavailable during access check - treating as logged out")
			redirectToLogin(c)
		default:
			redirectToLogin(c)
		}
	}
}

func redirectToLogin(c *gin.Context) {
	c.Redirect(http.StatusFound, "/login")
	c.Abort()
}

// methodOverride lets an HTML form tunnel DELETE through POST via a _method
// query parameter. It must wrap the router, not run inside it: gin matches
// the route before middleware runs.
func methodOverride(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			switch r.URL.Query().Get("_method") {
			case http.MethodDelete:
				r.Method = http.MethodDelete
			case http.MethodPut:
				r.Method = http.MethodPut
			case http.MethodPatch:
				r.Method = http.MethodPatch
			}
		}
		next.ServeHTTP(w, r)
	})
}
