package app

import (
	"github.com/poppacare/poppa-backend/internal/handlers"
	"github.com/poppacare/poppa-backend/internal/logger"
)

type Handlers struct {
	User         *handlers.UserHandler
	Medication   *handlers.MedicationHandler
	Notification *handlers.NotificationHandler
	Webhook      *handlers.WebhookHandler
}

func wireHandlers(log *logger.Logger, cfg Config, serviceset Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		User:         handlers.NewUserHandler(serviceset.User),
		Medication:   handlers.NewMedicationHandler(serviceset.Medication),
		Notification: handlers.NewNotificationHandler(serviceset.Notification, cfg.ReminderLookAhead),
		Webhook:      handlers.NewWebhookHandler(serviceset.Webhook),
	}
}
