package app

import (
	"github.com/poppacare/poppa-backend/internal/logger"
	"github.com/poppacare/poppa-backend/internal/middleware"
)

type Middleware struct {
	Twilio *middleware.TwilioMiddleware
	Cron   *middleware.CronMiddleware
}

func wireMiddleware(log *logger.Logger, cfg Config, clients Clients) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Twilio: middleware.NewTwilioMiddleware(log, clients.Twilio, cfg.WebhookPublicURL, cfg.AppEnv),
		Cron:   middleware.NewCronMiddleware(log, cfg.CronSecret),
	}
}
