package middleware

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/poppacare/poppa-backend/internal/clients/twilio"
	"github.com/poppacare/poppa-backend/internal/logger"
)

type TwilioMiddleware struct {
	log         *logger.Logger
	twilio      twilio.Client
	callbackURL string
	enforce     bool
}

// NewTwilioMiddleware builds the webhook signature gate. Enforcement is
// production-only: local tunnels and curl never carry a valid signature.
func NewTwilioMiddleware(log *logger.Logger, tw twilio.Client, callbackURL string, appEnv string) *TwilioMiddleware {
	return &TwilioMiddleware{
		log:         log.With("Middleware", "TwilioMiddleware"),
		twilio:      tw,
		callbackURL: callbackURL,
		enforce:     appEnv == "production",
	}
}

func (tm *TwilioMiddleware) RequireSignature() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !tm.enforce {
			c.Next()
			return
		}
		signature := c.GetHeader("X-Twilio-Signature")
		if signature == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing signature"})
			return
		}
		if err := c.Request.ParseForm(); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
			return
		}
		params := url.Values{}
		for name, values := range c.Request.PostForm {
			for _, v := range values {
				params.Add(name, v)
			}
		}
		if !tm.twilio.ValidateSignature(tm.callbackURL, params, signature) {
			tm.log.Warn("Rejected webhook with invalid signature")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
		c.Next()
	}
}
