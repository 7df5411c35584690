package middleware

import (
	"github.com/gin-gonic/gin"
)

// RejectFunc writes the response for a request a middleware refuses and
// aborts the chain. The HTML routes render an error page, everything else
// gets JSON.
type RejectFunc func(c *gin.Context, status int, msg string)

// JSONReject is the default RejectFunc
func JSONReject(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":     msg,
		"requestID": c.GetString(RequestIDKey),
	})
}

func orJSON(r RejectFunc) RejectFunc {
	if r == nil {
		return JSONReject
	}

	return r
}
