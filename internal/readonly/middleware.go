// Package readonly blocks mutating API requests when the instance is served
// as a read-only mirror of a link store.
package readonly

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Middleware rejects writes in read-only mode.
// GET, HEAD and OPTIONS always pass.
type Middleware struct {
	enabled bool
}

func NewMiddleware(enabled bool) *Middleware {
	return &Middleware{enabled: enabled}
}

func (m *Middleware) IsEnabled() bool {
	return m.enabled
}

func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.enabled {
			c.Next()
			return
		}

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":     "This action is disabled in read-only mode",
			"code":      "read_only",
			"read_only": true,
		})
	}
}
