package services

import (
	"github.com/poppacare/poppa-backend/internal/logger"
	"github.com/poppacare/poppa-backend/internal/utils"
)

// Free-text messages sent outside the template system.
const (
	UnregisteredUserMessage = "Hey, I'm Poppa! Visit https://poppacare.com to get started"
	InviteFamilyFirst       = "Great! Forward the following message to the person you want to invite"
	InviteFamilySecond      = "https://wa.me/13057605575?text=Hello,%20Send%20this%20to%20get%20started%20with%20Poppa"
)

// Templates holds the approved WhatsApp content SIDs. Twilio rejects
// business-initiated messages outside a 24h session unless they reference
// one of these.
type Templates struct {
	MedicationReminder string
	WelcomeElder       string
	WelcomeCaretaker   string
	MedsConfirmationAM string
	MedsConfirmationPM string
}

func TemplatesFromEnv(log *logger.Logger) Templates {
	return Templates{
		MedicationReminder: utils.GetEnv("TWILIO_MEDICATION_CONTENT_SID", "", log),
		WelcomeElder:       utils.GetEnv("TWILIO_WELCOME_ELDER_CONTENT_SID", "", log),
		WelcomeCaretaker:   utils.GetEnv("TWILIO_WELCOME_CARETAKER_CONTENT_SID", "", log),
		MedsConfirmationAM: utils.GetEnv("TWILIO_MED_CONFIRMATION_AM_SID", "", log),
		MedsConfirmationPM: utils.GetEnv("TWILIO_MED_CONFIRMATION_PM_SID", "", log),
	}
}
