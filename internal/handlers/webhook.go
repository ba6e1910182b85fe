package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/poppacare/poppa-backend/internal/services"
)

type WebhookHandler struct {
	webhookService services.WebhookService
}

func NewWebhookHandler(webhookService services.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookService: webhookService}
}

// Twilio receives WhatsApp deliveries. Signature validation happens in
// middleware so an unauthenticated request never reaches this point in
// production.
func (wh *WebhookHandler) Twilio(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_FORM", err)
		return
	}
	msg := services.InboundMessage{
		From:          c.Request.PostFormValue("From"),
		Body:          c.Request.PostFormValue("Body"),
		ButtonText:    c.Request.PostFormValue("ButtonText"),
		ButtonPayload: c.Request.PostFormValue("ButtonPayload"),
		TemplateName:  c.Request.PostFormValue("TemplateName"),
	}
	if msg.From == "" {
		RespondError(c, http.StatusBadRequest, "INVALID_FORM", fmt.Errorf("From is required"))
		return
	}
	if err := wh.webhookService.HandleIncoming(c.Request.Context(), msg); err != nil {
		RespondError(c, http.StatusInternalServerError, "WEBHOOK_FAILED", err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}

func (wh *WebhookHandler) ConversationHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			RespondError(c, http.StatusBadRequest, "INVALID_LIMIT", fmt.Errorf("limit must be a positive integer"))
			return
		}
		limit = n
	}
	history, err := wh.webhookService.History(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "HISTORY_FAILED", err)
		return
	}
	RespondOK(c, gin.H{"conversations": history})
}

type agentRequest struct {
	Message         string `json:"message"`
	PhoneNumber     string `json:"phoneNumber"`
	TemplateContext string `json:"templateContext"`
}

// Agent is the dashboard's direct-chat path: same relay as the webhook but
// the reply comes back in the HTTP response instead of a WhatsApp send.
func (wh *WebhookHandler) Agent(c *gin.Context) {
	var req agentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", err)
		return
	}
	if req.Message == "" || req.PhoneNumber == "" {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", fmt.Errorf("message and phoneNumber are required"))
		return
	}
	reply, err := wh.webhookService.RelayToAgent(c.Request.Context(), req.Message, req.PhoneNumber, req.TemplateContext)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "AGENT_FAILED", err)
		return
	}
	RespondOK(c, gin.H{
		"success":  true,
		"response": reply.Response,
		"metadata": gin.H{
			"userFound":     reply.UserFound,
			"historyLength": reply.HistoryLength,
		},
	})
}
