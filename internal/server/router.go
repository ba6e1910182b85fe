package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/poppacare/poppa-backend/internal/handlers"
	"github.com/poppacare/poppa-backend/internal/middleware"
)

type RouterConfig struct {
	UserHandler         *handlers.UserHandler
	MedicationHandler   *handlers.MedicationHandler
	NotificationHandler *handlers.NotificationHandler
	WebhookHandler      *handlers.WebhookHandler
	TwilioMiddleware    *middleware.TwilioMiddleware
	CronMiddleware      *middleware.CronMiddleware
	AllowOrigins        []string
	ServiceName         string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(otelgin.Middleware(cfg.ServiceName))

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Twilio-Signature"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		// Users
		api.POST("/users", cfg.UserHandler.Create)
		api.GET("/users/:id", cfg.UserHandler.Get)
		api.PATCH("/users/:id", cfg.UserHandler.Update)
		api.DELETE("/users/:id", cfg.UserHandler.Delete)
		api.GET("/users/by-phone/:phone/metadata", cfg.UserHandler.Metadata)
		api.GET("/users/:id/elders", cfg.UserHandler.Elders)
		api.POST("/users/:id/cares-for", cfg.UserHandler.CaresFor)

		// Medications
		api.POST("/medications", cfg.MedicationHandler.Add)
		api.GET("/medications/search", cfg.MedicationHandler.Search)
		api.GET("/users/:id/medications", cfg.MedicationHandler.List)
		api.GET("/users/:id/elders/:elderId/medications", cfg.MedicationHandler.ListForElder)
		api.PUT("/users/:id/medications/:medId", cfg.MedicationHandler.UpdateSchedule)
		api.DELETE("/users/:id/medications/:medId", cfg.MedicationHandler.Remove)
		api.POST("/users/:id/medications/:medId/intake", cfg.MedicationHandler.RecordIntake)

		// Conversations
		api.GET("/users/:id/conversations", cfg.WebhookHandler.ConversationHistory)

		// Notifications: the reminder pair is scheduler-only
		cron := api.Group("/notifications")
		cron.Use(cfg.CronMiddleware.RequireSecret())
		cron.GET("/medications", cfg.NotificationHandler.MedicationReminders)
		cron.GET("/confirmation", cfg.NotificationHandler.Confirmations)

		api.POST("/notifications/welcome-elder", cfg.NotificationHandler.WelcomeElder)
		api.POST("/notifications/welcome-caretaker", cfg.NotificationHandler.WelcomeCaretaker)

		// Webhook + agent relay
		api.POST("/webhook/twilio", cfg.TwilioMiddleware.RequireSignature(), cfg.WebhookHandler.Twilio)
		api.POST("/agent", cfg.WebhookHandler.Agent)
	}

	return router
}
