package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/poppacare/poppa-backend/internal/services"
	"github.com/poppacare/poppa-backend/internal/types"
)

type fakeNotificationService struct {
	results       []types.NotificationResult
	err           error
	lastLookAhead time.Duration
	lastOverride  string
}

func (f *fakeNotificationService) SendMedicationReminders(ctx context.Context, lookAhead time.Duration) ([]types.NotificationResult, error) {
	f.lastLookAhead = lookAhead
	return f.results, f.err
}

func (f *fakeNotificationService) SendConfirmations(ctx context.Context, override string) ([]types.NotificationResult, error) {
	f.lastOverride = override
	return f.results, f.err
}

func (f *fakeNotificationService) SendWelcomeElder(ctx context.Context, phone, userName string) (string, error) {
	return "SM123", f.err
}

func (f *fakeNotificationService) SendWelcomeCaretaker(ctx context.Context, phone, userName string) (string, error) {
	return "SM456", f.err
}

type fakeWebhookService struct {
	lastInbound services.InboundMessage
	reply       *services.AgentReply
	err         error
}

func (f *fakeWebhookService) HandleIncoming(ctx context.Context, msg services.InboundMessage) error {
	f.lastInbound = msg
	return f.err
}

func (f *fakeWebhookService) RelayToAgent(ctx context.Context, message, phone, templateContext string) (*services.AgentReply, error) {
	return f.reply, f.err
}

func (f *fakeWebhookService) History(ctx context.Context, userID string, limit int) ([]types.Conversation, error) {
	return nil, nil
}

func serveJSON(t *testing.T, method, path, body string, register func(*gin.Engine)) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	register(r)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMedicationRemindersLookaheadParsing(t *testing.T) {
	svc := &fakeNotificationService{results: []types.NotificationResult{}}
	nh := NewNotificationHandler(svc, 15*time.Minute)

	w := serveJSON(t, http.MethodGet, "/api/notifications/medications?lookahead=30", "", func(r *gin.Engine) {
		r.GET("/api/notifications/medications", nh.MedicationReminders)
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if svc.lastLookAhead != 30*time.Minute {
		t.Fatalf("expected 30m lookahead, got %s", svc.lastLookAhead)
	}

	var resp struct {
		Success bool                       `json:"success"`
		Results []types.NotificationResult `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Results == nil {
		t.Fatalf("expected success envelope with results array: %s", w.Body.String())
	}
}

func TestMedicationRemindersRejectsBadLookahead(t *testing.T) {
	nh := NewNotificationHandler(&fakeNotificationService{}, 15*time.Minute)

	for _, q := range []string{"lookahead=abc", "lookahead=-5", "lookahead=0"} {
		w := serveJSON(t, http.MethodGet, "/api/notifications/medications?"+q, "", func(r *gin.Engine) {
			r.GET("/api/notifications/medications", nh.MedicationReminders)
		})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", q, w.Code)
		}
	}
}

func TestConfirmationsOverridePlumbing(t *testing.T) {
	svc := &fakeNotificationService{results: []types.NotificationResult{}}
	nh := NewNotificationHandler(svc, 15*time.Minute)

	w := serveJSON(t, http.MethodGet, "/api/notifications/confirmation?test=true&time=11:59", "", func(r *gin.Engine) {
		r.GET("/api/notifications/confirmation", nh.Confirmations)
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if svc.lastOverride != "11:59" {
		t.Fatalf("expected override forwarded, got %q", svc.lastOverride)
	}

	w = serveJSON(t, http.MethodGet, "/api/notifications/confirmation?test=true", "", func(r *gin.Engine) {
		r.GET("/api/notifications/confirmation", nh.Confirmations)
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("test=true without time should 400, got %d", w.Code)
	}
}

func TestWelcomeValidation(t *testing.T) {
	nh := NewNotificationHandler(&fakeNotificationService{}, 15*time.Minute)
	register := func(r *gin.Engine) {
		r.POST("/api/notifications/welcome-elder", nh.WelcomeElder)
	}

	w := serveJSON(t, http.MethodPost, "/api/notifications/welcome-elder", `{"phoneNumber":"+13055550100"}`, register)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing userName should 400, got %d", w.Code)
	}

	w = serveJSON(t, http.MethodPost, "/api/notifications/welcome-elder", `{"phoneNumber":"+13055550100","userName":"Rosa"}`, register)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		MessageID string `json:"messageId"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.MessageID != "SM123" {
		t.Fatalf("expected message id in response, got %q", resp.MessageID)
	}
}

func TestWebhookFormDecoding(t *testing.T) {
	svc := &fakeWebhookService{}
	wh := NewWebhookHandler(svc)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/webhook/twilio", wh.Twilio)

	form := "From=whatsapp%3A%2B13055550100&Body=hello&ButtonText=Done&TemplateName=medication_reminder"
	req := httptest.NewRequest(http.MethodPost, "/api/webhook/twilio", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if svc.lastInbound.From != "whatsapp:+13055550100" || svc.lastInbound.Body != "hello" {
		t.Fatalf("form not decoded: %+v", svc.lastInbound)
	}
	if svc.lastInbound.ButtonText != "Done" || svc.lastInbound.TemplateName != "medication_reminder" {
		t.Fatalf("button/template fields not decoded: %+v", svc.lastInbound)
	}
}

func TestWebhookRequiresSender(t *testing.T) {
	wh := NewWebhookHandler(&fakeWebhookService{})
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/webhook/twilio", wh.Twilio)

	req := httptest.NewRequest(http.MethodPost, "/api/webhook/twilio", strings.NewReader("Body=hi"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing From, got %d", w.Code)
	}
}

func TestAgentEndpoint(t *testing.T) {
	svc := &fakeWebhookService{reply: &services.AgentReply{Response: "hola", UserFound: true, HistoryLength: 4}}
	wh := NewWebhookHandler(svc)
	register := func(r *gin.Engine) {
		r.POST("/api/agent", wh.Agent)
	}

	w := serveJSON(t, http.MethodPost, "/api/agent", `{"message":"hi","phoneNumber":"+13055550100"}`, register)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Success  bool   `json:"success"`
		Response string `json:"response"`
		Metadata struct {
			UserFound     bool `json:"userFound"`
			HistoryLength int  `json:"historyLength"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Response != "hola" || !resp.Metadata.UserFound || resp.Metadata.HistoryLength != 4 {
		t.Fatalf("unexpected envelope: %s", w.Body.String())
	}

	w = serveJSON(t, http.MethodPost, "/api/agent", `{"message":"hi"}`, register)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing phoneNumber should 400, got %d", w.Code)
	}
}
