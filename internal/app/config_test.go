package app

import (
	"strings"
	"testing"
	"time"

	"github.com/poppacare/poppa-backend/internal/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func TestLoadConfigRequiresWebhookURLInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("WEBHOOK_PUBLIC_URL", "")

	_, err := LoadConfig(testLogger(t))
	if err == nil || !strings.Contains(err.Error(), "WEBHOOK_PUBLIC_URL") {
		t.Fatalf("expected missing WEBHOOK_PUBLIC_URL error, got %v", err)
	}
}

func TestLoadConfigProductionWithWebhookURL(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("WEBHOOK_PUBLIC_URL", "https://api.poppacare.com/api/webhook/twilio")

	cfg, err := LoadConfig(testLogger(t))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.WebhookPublicURL != "https://api.poppacare.com/api/webhook/twilio" {
		t.Fatalf("got webhook URL %q", cfg.WebhookPublicURL)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("WEBHOOK_PUBLIC_URL", "")
	t.Setenv("REMINDER_TIMEZONE", "")
	t.Setenv("REMINDER_LOOKAHEAD_MINUTES", "")

	cfg, err := LoadConfig(testLogger(t))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.AppEnv != "development" {
		t.Fatalf("got app env %q", cfg.AppEnv)
	}
	if cfg.Port != "8080" {
		t.Fatalf("got port %q", cfg.Port)
	}
	if cfg.ReminderLookAhead != 15*time.Minute {
		t.Fatalf("got lookahead %v", cfg.ReminderLookAhead)
	}
	if cfg.ReminderLocation == nil || cfg.ReminderLocation.String() != "UTC" {
		t.Fatalf("got location %v", cfg.ReminderLocation)
	}
}

func TestLoadConfigRejectsBadTimezone(t *testing.T) {
	t.Setenv("REMINDER_TIMEZONE", "Mars/Olympus")

	if _, err := LoadConfig(testLogger(t)); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}
