package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/poppacare/poppa-backend/internal/services"
)

type NotificationHandler struct {
	notificationService services.NotificationService
	defaultLookAhead    time.Duration
}

func NewNotificationHandler(notificationService services.NotificationService, defaultLookAhead time.Duration) *NotificationHandler {
	if defaultLookAhead <= 0 {
		defaultLookAhead = 15 * time.Minute
	}
	return &NotificationHandler{
		notificationService: notificationService,
		defaultLookAhead:    defaultLookAhead,
	}
}

// MedicationReminders is the cron target: every dose due inside the
// look-ahead window gets one grouped WhatsApp reminder per user.
func (nh *NotificationHandler) MedicationReminders(c *gin.Context) {
	lookAhead := nh.defaultLookAhead
	if raw := c.Query("lookahead"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 {
			RespondError(c, http.StatusBadRequest, "INVALID_LOOKAHEAD", fmt.Errorf("lookahead must be a positive minute count"))
			return
		}
		lookAhead = time.Duration(minutes) * time.Minute
	}

	results, err := nh.notificationService.SendMedicationReminders(c.Request.Context(), lookAhead)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "REMINDERS_FAILED", err)
		return
	}
	RespondOK(c, gin.H{"success": true, "results": results})
}

// Confirmations fires the twice-daily did-you-take-them templates. The
// test=true&time=HH:MM pair forces the evaluated clock for manual checks.
func (nh *NotificationHandler) Confirmations(c *gin.Context) {
	override := ""
	if c.Query("test") == "true" {
		override = c.Query("time")
		if override == "" {
			RespondError(c, http.StatusBadRequest, "INVALID_OVERRIDE", fmt.Errorf("test=true requires time=HH:MM"))
			return
		}
	}

	results, err := nh.notificationService.SendConfirmations(c.Request.Context(), override)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "CONFIRMATIONS_FAILED", err)
		return
	}
	RespondOK(c, gin.H{"success": true, "results": results})
}

type welcomeRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	UserName    string `json:"userName"`
}

func (nh *NotificationHandler) WelcomeElder(c *gin.Context) {
	nh.welcome(c, nh.notificationService.SendWelcomeElder)
}

func (nh *NotificationHandler) WelcomeCaretaker(c *gin.Context) {
	nh.welcome(c, nh.notificationService.SendWelcomeCaretaker)
}

func (nh *NotificationHandler) welcome(c *gin.Context, send func(ctx context.Context, phone, userName string) (string, error)) {
	var req welcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", err)
		return
	}
	if req.PhoneNumber == "" || req.UserName == "" {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", fmt.Errorf("phoneNumber and userName are required"))
		return
	}
	messageID, err := send(c.Request.Context(), req.PhoneNumber, req.UserName)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "WELCOME_FAILED", err)
		return
	}
	RespondOK(c, gin.H{"success": true, "messageId": messageID})
}
