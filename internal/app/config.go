package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/poppacare/poppa-backend/internal/logger"
	"github.com/poppacare/poppa-backend/internal/utils"
)

type Config struct {
	AppEnv            string
	Port              string
	ServiceName       string
	Version           string
	AllowOrigins      []string
	WebhookPublicURL  string
	CronSecret        string
	ReminderLocation  *time.Location
	ReminderLookAhead time.Duration
}

func LoadConfig(log *logger.Logger) (Config, error) {
	appEnv := utils.GetEnv("APP_ENV", "development", log)
	port := utils.GetEnv("PORT", "8080", log)

	tzName := utils.GetEnv("REMINDER_TIMEZONE", "UTC", log)
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return Config{}, fmt.Errorf("load REMINDER_TIMEZONE %q: %w", tzName, err)
	}

	lookAheadMinutes := utils.GetEnvAsInt("REMINDER_LOOKAHEAD_MINUTES", 15, log)
	if lookAheadMinutes <= 0 {
		lookAheadMinutes = 15
	}

	// Webhook signature checks compute the HMAC over this URL, so an empty
	// value would reject every correctly signed production request.
	webhookURL := utils.GetEnv("WEBHOOK_PUBLIC_URL", "", log)
	if appEnv == "production" && webhookURL == "" {
		return Config{}, fmt.Errorf("WEBHOOK_PUBLIC_URL is required when APP_ENV=production")
	}

	var origins []string
	for _, o := range strings.Split(utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000", log), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return Config{
		AppEnv:            appEnv,
		Port:              port,
		ServiceName:       utils.GetEnv("SERVICE_NAME", "poppa-backend", log),
		Version:           utils.GetEnv("SERVICE_VERSION", "dev", log),
		AllowOrigins:      origins,
		WebhookPublicURL:  webhookURL,
		CronSecret:        utils.GetEnv("CRON_SECRET", "", log),
		ReminderLocation:  loc,
		ReminderLookAhead: time.Duration(lookAheadMinutes) * time.Minute,
	}, nil
}
