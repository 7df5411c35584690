package middleware

import (
	"net/http"

	"bitwise74/seed-swap/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	UserIDKey          = "userID"
	IsAuthenticatedKey = "isAuthenticated"

	loginPath = "/login"
)

// NewSessionMiddleware loads the session of every request. Authenticated
// requests get userID set, templates use isAuthenticated.
func NewSessionMiddleware(m *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := m.Load(c)
		if err != nil {
			// Treat the request as anonymous, protected routes send it to
			// the login page
			zap.L().Error("Failed to load session", zap.Error(err), zap.String("requestID", c.GetString(RequestIDKey)))
		}

		authenticated := s != nil && s.UserID != ""
		if authenticated {
			c.Set(UserIDKey, s.UserID)
		}

		c.Set(IsAuthenticatedKey, authenticated)
		c.Next()
	}
}

// RequireAuth lets only requests with a user bound session through and
// sends everyone else to the login page
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(UserIDKey) == "" {
			c.Redirect(http.StatusSeeOther, loginPath)
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireAuthJSON is RequireAuth for API routes
func RequireAuthJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(UserIDKey) == "" {
			JSONReject(c, http.StatusUnauthorized, "Not logged in")
			return
		}

		c.Next()
	}
}
