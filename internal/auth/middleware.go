package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Middleware requires a static Bearer token on API requests.
type Middleware struct {
	token       string
	publicPaths map[string]bool
}

// NewMiddleware returns a middleware that lets everything through when token is empty.
func NewMiddleware(token string, publicPaths ...string) *Middleware {
	paths := map[string]bool{
		"/health":  true,
		"/ping":    true,
		"/metrics": true,
	}
	for _, p := range publicPaths {
		paths[p] = true
	}
	return &Middleware{token: token, publicPaths: paths}
}

func (m *Middleware) Enabled() bool {
	return m.token != ""
}

func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.Enabled() || m.publicPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		if !m.validBearer(c.GetHeader("Authorization")) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}
		c.Next()
	}
}

func (m *Middleware) validBearer(header string) bool {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(parts[1])), []byte(m.token)) == 1
}
