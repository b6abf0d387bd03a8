package middleware

import (
	"crypto/subtle"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AuthGuard accepts requests whose bearer token matches one of the
// configured secrets (constant-time compare). With no secrets configured
// the guarded surface is disabled outright; there is no open fallback.
func AuthGuard(secrets ...string) gin.HandlerFunc {
	configured := make([]string, 0, len(secrets))
	for _, secret := range secrets {
		if secret != "" {
			configured = append(configured, secret)
		}
	}

	return func(c *gin.Context) {
		if len(configured) == 0 {
			log.Println("[AUTH] no secret configured, surface disabled")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "disabled"})
			return
		}

		raw := strings.TrimSpace(c.GetHeader("Authorization"))
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		parts := strings.Split(raw, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		for _, secret := range configured {
			if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(secret)) == 1 {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
}

// confirmToken is the double-confirmation header value required on
// destructive super-admin edits.
const confirmToken = "CONFIRM_DB_EDIT"

// RequireConfirmToken rejects edit requests missing the confirmation
// header, guarding against accidental submissions.
func RequireConfirmToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-Confirm-Token") != confirmToken {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing confirmation token"})
			return
		}
		c.Next()
	}
}
