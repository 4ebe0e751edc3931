// Package auth gates the webhook surface behind shared keys.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// callerCtxKey is the Gin context key used to store the authenticated webhook caller.
const callerCtxKey = "webhook_caller"

// Gate maps shared webhook keys to caller names. A Gate with no keys lets
// every request through.
type Gate struct {
	keys   map[string]string
	logger zerolog.Logger
}

// NewGate creates a gate over keys (key → caller name).
func NewGate(keys map[string]string, logger zerolog.Logger) *Gate {
	return &Gate{
		keys:   keys,
		logger: logger.With().Str("component", "webhook-auth").Logger(),
	}
}

// Enabled reports whether any key is configured.
func (g *Gate) Enabled() bool {
	return len(g.keys) > 0
}

// Middleware rejects requests that do not present a known key, either as
// X-API-Key or as an Authorization bearer token.
func (g *Gate) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !g.Enabled() {
			c.Next()
			return
		}
		caller, ok := g.lookup(presentedKey(c))
		if !ok {
			g.logger.Warn().Str("path", c.FullPath()).Str("ip", c.ClientIP()).Msg("Rejected webhook without a valid key.")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(callerCtxKey, caller)
		c.Next()
	}
}

// lookup compares against every key so timing does not reveal a prefix match.
func (g *Gate) lookup(key string) (string, bool) {
	if key == "" {
		return "", false
	}
	var (
		caller string
		found  bool
	)
	for k, name := range g.keys {
		if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
			caller, found = name, true
		}
	}
	return caller, found
}

func presentedKey(c *gin.Context) string {
	if key := strings.TrimSpace(c.GetHeader("X-API-Key")); key != "" {
		return key
	}
	authz := strings.TrimSpace(c.GetHeader("Authorization"))
	if token, ok := strings.CutPrefix(authz, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// Caller returns the authenticated webhook caller, "" when the gate is off.
func Caller(c *gin.Context) string {
	v, _ := c.Get(callerCtxKey)
	s, _ := v.(string)
	return s
}
