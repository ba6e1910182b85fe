package app

import (
	"github.com/poppacare/poppa-backend/internal/logger"
	"github.com/poppacare/poppa-backend/internal/services"
)

type Services struct {
	User         services.UserService
	Medication   services.MedicationService
	Notification services.NotificationService
	Webhook      services.WebhookService
}

func wireServices(log *logger.Logger, cfg Config, clients Clients, reposet Repos) Services {
	log.Info("Wiring services...")
	templates := services.TemplatesFromEnv(log)
	return Services{
		User:       services.NewUserService(log, reposet.User),
		Medication: services.NewMedicationService(log, reposet.Medication, reposet.User),
		Notification: services.NewNotificationService(
			log, reposet.Medication, clients.Memory, clients.Twilio, templates, cfg.ReminderLocation),
		Webhook: services.NewWebhookService(
			log, reposet.User, reposet.Conversation, clients.Memory, clients.Agent, clients.Twilio),
	}
}
