package server

import (
	"errors"
	"fmt"
	"html"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/roostd-dev/roostd/internal/credentials"
)

const (
	// cookieLoggedIn carries the signed session token.
	cookieLoggedIn = "loggedIn"
	// cookieUserID carries the plaintext user id. Not itself secret; its
	// pairing with the token is what verification checks.
	cookieUserID = "userId"
)

// setSessionCookies sets the authenticated cookie pair on the response.
func (s *Server) setSessionCookies(c *gin.Context, userID, token string) {
	maxAge := int(s.config.Session.TokenTTL.Seconds())
	secure := s.config.Session.CookieSecure

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cookieLoggedIn, token, maxAge, "/", "", secure, true)
	c.SetCookie(cookieUserID, userID, maxAge, "/", "", secure, true)
}

// clearSessionCookies expires both cookies. Safe to call with no session.
func (s *Server) clearSessionCookies(c *gin.Context) {
	secure := s.config.Session.CookieSecure

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cookieLoggedIn, "", -1, "/", "", secure, true)
	c.SetCookie(cookieUserID, "", -1, "/", "", secure, true)
}

func renderPage(c *gin.Context, status int, body string) {
	page := fmt.Sprintf("<html><body>%s</body></html>", body)
	c.Data(status, "text/html; charset=utf-8", []byte(page))
}

// GET / - content varies with the auth context, no gate
func (s *Server) home(c *gin.Context) {
	if GetAuthContext(c).Authenticated {
		renderPage(c, http.StatusOK, `<h1>Hello!</h1>
<div>
  <a href="/dashboard">dashboard</a>
  <form method="POST" action="/logout?_method=DELETE"><input type="submit" value="logout"/></form>
</div>`)
		return
	}

	renderPage(c, http.StatusOK, `<h1>Hello!</h1>
<div>
  <a href="/login">login</a>
  <a href="/signup">signup</a>
</div>`)
}

// GET /signup
func (s *Server) showSignup(c *gin.Context) {
	if GetAuthContext(c).Authenticated {
		c.Redirect(http.StatusFound, "/")
		return
	}

	renderPage(c, http.StatusOK, `<h1>Sign Up!</h1>
<form method="POST" action="/signup">
  <label>email</label><input name="email"/>
  <label>password</label><input name="password" type="password"/>
  <input type="submit"/>
</form>`)
}

// POST /signup
func (s *Server) signup(c *gin.Context) {
	if GetAuthContext(c).Authenticated {
		c.Redirect(http.StatusFound, "/")
		return
	}

	email := c.PostForm("email")
	password := c.PostForm("password")

	_, err := s.credentials.Register(c.Request.Context(), email, password)
	switch {
	case err == nil:
		// No auto-issued session: the account holder proves the password
		// once more on the login page.
		c.Redirect(http.StatusFound, "/login")
	case errors.Is(err, credentials.ErrValidation),
		errors.Is(err, credentials.ErrDuplicateEmail):
		c.Redirect(http.StatusFound, "/signup")
	default:
		s.logger.Error().Err(err).Msg("Signup failed")
		renderPage(c, http.StatusInternalServerError, "<h1>Whoops, error.</h1>")
	}
}

// GET /login
func (s *Server) showLogin(c *gin.Context) {
	if GetAuthContext(c).Authenticated {
		c.Redirect(http.StatusFound, "/")
		return
	}

	renderPage(c, http.StatusOK, `<h1>Login!</h1>
<form method="POST" action="/login">
  <label>email</label><input name="email"/>
  <label>password</label><input name="password" type="password"/>
  <input type="submit"/>
</form>`)
}

// POST /login
func (s *Server) login(c *gin.Context) {
	if GetAuthContext(c).Authenticated {
		c.Redirect(http.StatusFound, "/")
		return
	}

	ip := c.ClientIP()
	if retryAfter := s.limiter.RetryAfter(ip); retryAfter > 0 {
		c.Header("Retry-After", strconv.FormatInt(int64(retryAfter.Seconds()), 10))
		renderPage(c, http.StatusTooManyRequests, "<h1>Too many attempts. Try again later.</h1>")
		return
	}

	email := c.PostForm("email")
	password := c.PostForm("password")

	user, err := s.credentials.Login(c.Request.Context(), email, password)
	if err != nil {
		if errors.Is(err, credentials.ErrInvalidCredentials) {
			s.limiter.RecordFailure(ip)
			renderPage(c, http.StatusForbidden, "<h1>not successful</h1>")
			return
		}
		s.logger.Error().Err(err).Msg("Login failed")
		renderPage(c, http.StatusInternalServerError, "<h1>Whoops, error.</h1>")
		return
	}

	cookieID, token, err := s.tokens.Issue(user.ID, user.TokenVersion)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to issue session token")
		renderPage(c, http.StatusInternalServerError, "<h1>Whoops, error.</h1>")
		return
	}

	s.limiter.Reset(ip)
	s.setSessionCookies(c, cookieID, token)
	s.logger.Info().Str("user_id", user.ID).Msg("User logged in")

	c.Redirect(http.StatusFound, "/")
}

// DELETE /logout - idempotent, clears cookies regardless of auth state
func (s *Server) logout(c *gin.Context) {
	if s.userCache != nil {
		if claimedID, err := c.Cookie(cookieUserID); err == nil && claimedID != "" {
			s.userCache.Invalidate(claimedID)
		}
	}

	s.clearSessionCookies(c)
	c.Redirect(http.StatusFound, "/login")
}

// DELETE /logout/all - gated; revokes every outstanding token for the user
// by bumping the stored token version, then ends this session too.
func (s *Server) logoutAll(c *gin.Context) {
	user, ok := GetGatedUser(c)
	if !ok {
		redirectToLogin(c)
		return
	}

	if err := s.users.BumpTokenVersion(c.Request.Context(), user.ID); err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to revoke sessions")
		renderPage(c, http.StatusInternalServerError, "<h1>Whoops, error.</h1>")
		return
	}

	s.clearSessionCookies(c)
	s.logger.Info().Str("user_id", user.ID).Msg("All sessions revoked")

	c.Redirect(http.StatusFound, "/login")
}

// GET /dashboard - gated
func (s *Server) dashboard(c *gin.Context) {
	user, ok := GetGatedUser(c)
	if !ok {
		redirectToLogin(c)
		return
	}

	body := fmt.Sprintf(`<h1>Dashboard!</h1>
<h2>Welcome: %s</h2>
<form method="POST" action="/logout/all?_method=DELETE"><input type="submit" value="logout everywhere"/></form>`,
		html.EscapeString(user.Email))
	renderPage(c, http.StatusOK, body)
}
