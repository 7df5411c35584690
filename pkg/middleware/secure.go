package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// SecurityHeaders sets the headers every HTML response should carry
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Cross-Origin-Opener-Policy", "same-origin")

		c.Next()
	}
}

// HTTPSRedirect sends plain HTTP requests that came through a TLS
// terminating proxy to the HTTPS version of the same URL
func HTTPSRedirect() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "http") {
			c.Next()
			return
		}

		u := *c.Request.URL
		u.Scheme = "https"
		u.Host = c.Request.Host

		c.Redirect(http.StatusMovedPermanently, u.String())
		c.Abort()
	}
}
