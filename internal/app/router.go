package app

import (
	"github.com/gin-gonic/gin"

	"github.com/poppacare/poppa-backend/internal/server"
)

func wireRouter(cfg Config, handlerset Handlers, mw Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		UserHandler:         handlerset.User,
		MedicationHandler:   handlerset.Medication,
		NotificationHandler: handlerset.Notification,
		WebhookHandler:      handlerset.Webhook,
		TwilioMiddleware:    mw.Twilio,
		CronMiddleware:      mw.Cron,
		AllowOrigins:        cfg.AllowOrigins,
		ServiceName:         cfg.ServiceName,
	})
}
