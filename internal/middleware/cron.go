package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/poppacare/poppa-backend/internal/logger"
)

type CronMiddleware struct {
	log    *logger.Logger
	secret string
}

// NewCronMiddleware guards the scheduler-only endpoints with a shared
// bearer secret. An empty secret disables the check, which is the local
// development default.
func NewCronMiddleware(log *logger.Logger, secret string) *CronMiddleware {
	return &CronMiddleware{
		log:    log.With("Middleware", "CronMiddleware"),
		secret: secret,
	}
}

func (cm *CronMiddleware) RequireSecret() gin.HandlerFunc {
	return func(c *gin.Context) {
		if cm.secret == "" {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		if len(header) <= 7 || !strings.EqualFold(header[:7], "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token := header[7:]
		if subtle.ConstantTimeCompare([]byte(token), []byte(cm.secret)) != 1 {
			cm.log.Warn("Rejected cron call with bad secret")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Next()
	}
}
