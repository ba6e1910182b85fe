package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/poppacare/poppa-backend/internal/logger"
	"github.com/poppacare/poppa-backend/internal/pkg/ctxutil"
	"github.com/poppacare/poppa-backend/internal/pkg/httpx"
	"github.com/poppacare/poppa-backend/internal/utils"
)

// Client sends WhatsApp messages through Twilio's Messages API: free-text
// bodies and content-template sends addressed by ContentSid with positional
// string variables.
type Client interface {
	SendText(ctx context.Context, to string, body string) (*Message, error)
	SendTemplate(ctx context.Context, to string, contentSID string, variables map[string]string) (*Message, error)
	ValidateSignature(callbackURL string, params url.Values, signature string) bool
}

type Config struct {
	AccountSID          string
	AuthToken           string
	BaseURL             string
	FromNumber          string
	MessagingServiceSID string
	Timeout             time.Duration
	MaxRetries          int
}

func ConfigFromEnv(log *logger.Logger) Config {
	return Config{
		AccountSID:          strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID")),
		AuthToken:           strings.TrimSpace(os.Getenv("TWILIO_AUTH_TOKEN")),
		BaseURL:             strings.TrimSpace(os.Getenv("TWILIO_BASE_URL")),
		FromNumber:          strings.TrimSpace(os.Getenv("TWILIO_FROM_NUMBER")),
		MessagingServiceSID: strings.TrimSpace(os.Getenv("TWILIO_MESSAGING_SERVICE_SID")),
		Timeout:             time.Duration(utils.GetEnvAsInt("TWILIO_TIMEOUT_SECONDS", 30, log)) * time.Second,
		MaxRetries:          utils.GetEnvAsInt("TWILIO_MAX_RETRIES", 4, log),
	}
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv(log))
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.AccountSID == "" {
		return nil, fmt.Errorf("missing TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		return nil, fmt.Errorf("missing TWILIO_AUTH_TOKEN")
	}
	if cfg.FromNumber == "" {
		return nil, fmt.Errorf("missing TWILIO_FROM_NUMBER")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.twilio.com/2010-04-01"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 4
	}

	return &client{
		log:        log.With("client", "TwilioClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

type Message struct {
	SID          string  `json:"sid,omitempty"`
	AccountSID   string  `json:"account_sid,omitempty"`
	To           string  `json:"to,omitempty"`
	From         string  `json:"from,omitempty"`
	Body         string  `json:"body,omitempty"`
	Status       string  `json:"status,omitempty"`
	ErrorCode    *int    `json:"error_code,omitempty"`
	ErrorMessage *string `json:"error_message,omitempty"`
	DateCreated  string  `json:"date_created,omitempty"`
}

// WhatsAppAddress prefixes a phone number for the WhatsApp channel,
// idempotently.
func WhatsAppAddress(phone string) string {
	phone = strings.TrimSpace(phone)
	if strings.HasPrefix(phone, "whatsapp:") {
		return phone
	}
	return "whatsapp:" + phone
}

// StripWhatsApp removes the channel prefix from an inbound From value.
func StripWhatsApp(addr string) string {
	return strings.TrimPrefix(strings.TrimSpace(addr), "whatsapp:")
}

func (c *client) SendText(ctx context.Context, to string, body string) (*Message, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("twilio: body required")
	}
	form := c.baseForm(to)
	form.Set("Body", body)
	return c.send(ctx, form)
}

func (c *client) SendTemplate(ctx context.Context, to string, contentSID string, variables map[string]string) (*Message, error) {
	contentSID = strings.TrimSpace(contentSID)
	if contentSID == "" {
		return nil, fmt.Errorf("twilio: content SID required")
	}
	form := c.baseForm(to)
	form.Set("ContentSid", contentSID)
	if len(variables) > 0 {
		raw, err := json.Marshal(variables)
		if err != nil {
			return nil, fmt.Errorf("twilio: marshal content variables: %w", err)
		}
		form.Set("ContentVariables", string(raw))
	}
	return c.send(ctx, form)
}

func (c *client) baseForm(to string) url.Values {
	form := url.Values{}
	form.Set("To", WhatsAppAddress(to))
	form.Set("From", WhatsAppAddress(c.cfg.FromNumber))
	if c.cfg.MessagingServiceSID != "" {
		form.Set("MessagingServiceSid", c.cfg.MessagingServiceSID)
	}
	return form
}

func (c *client) send(ctx context.Context, form url.Values) (*Message, error) {
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("twilio client unavailable")
	}
	if strings.TrimSpace(form.Get("To")) == "whatsapp:" {
		return nil, fmt.Errorf("twilio: To required")
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", c.cfg.BaseURL, c.cfg.AccountSID)
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		msg, resp, err := c.sendOnce(ctx, endpoint, form)
		if err == nil {
			return msg, nil
		}
		if !httpx.IsRetryableError(err) || attempt == c.cfg.MaxRetries {
			return nil, err
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("Twilio request retrying",
			"attempt", attempt+1,
			"max_retries", c.cfg.MaxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		time.Sleep(sleepFor)
		backoff *= 2
	}

	return nil, fmt.Errorf("unreachable retry loop")
}

func (c *client) sendOnce(ctx context.Context, endpoint string, form url.Values) (*Message, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, resp, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, resp, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var ae apiError
		if json.Unmarshal(raw, &ae) == nil && strings.TrimSpace(ae.Message) != "" {
			return nil, resp, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw), APIError: &ae}
		}
		return nil, resp, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var msg Message
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, resp, fmt.Errorf("twilio decode error: %w", err)
		}
	}
	return &msg, resp, nil
}

type apiError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

type HTTPError struct {
	StatusCode int
	Body       string
	APIError   *apiError
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "twilio: <nil error>"
	}
	if e.APIError != nil && strings.TrimSpace(e.APIError.Message) != "" {
		if e.APIError.Code != 0 {
			return fmt.Sprintf("twilio http %d: %s (code=%d)", e.StatusCode, e.APIError.Message, e.APIError.Code)
		}
		return fmt.Sprintf("twilio http %d: %s", e.StatusCode, e.APIError.Message)
	}
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 4000 {
		msg = msg[:4000] + "..."
	}
	return fmt.Sprintf("twilio http %d: %s", e.StatusCode, msg)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}
