package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/poppacare/poppa-backend/internal/logger"
	"github.com/poppacare/poppa-backend/internal/pkg/ctxutil"
	"github.com/poppacare/poppa-backend/internal/pkg/httpx"
	"github.com/poppacare/poppa-backend/internal/types"
	"github.com/poppacare/poppa-backend/internal/utils"
)

// FallbackReply is returned when the agent answers with an empty or
// unrecognized payload, so users always get some response.
const FallbackReply = "I'm sorry, I couldn't process that message."

// Client talks to the external LLM agent service.
type Client interface {
	Ask(ctx context.Context, req AskRequest) (string, error)
}

// AskRequest carries the inbound text plus the context the agent needs: the
// user's metadata bundle, any template the message replied to, and the
// recent conversation, chronological.
type AskRequest struct {
	Text                string
	User                *types.UserMetadata
	TemplateContext     string
	ConversationHistory []types.ChatMessage
	Language            string
}

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv(log *logger.Logger) Config {
	return Config{
		BaseURL:    utils.GetEnv("AGENT_URL", "http://localhost:8000", log),
		Timeout:    time.Duration(utils.GetEnvAsInt("AGENT_TIMEOUT_SECONDS", 60, log)) * time.Second,
		MaxRetries: utils.GetEnvAsInt("AGENT_MAX_RETRIES", 2, log),
	}
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv(log))
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("missing AGENT_URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &client{
		log:        log.With("client", "AgentClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

type askPayload struct {
	Text     string      `json:"text"`
	Metadata askMetadata `json:"metadata"`
}

type askMetadata struct {
	User                *types.UserMetadata `json:"user"`
	TemplateContext     string              `json:"templateContext,omitempty"`
	ConversationHistory []types.ChatMessage `json:"conversationHistory"`
	Language            string              `json:"language,omitempty"`
}

type askResponse struct {
	Responses []string `json:"responses"`
	Response  string   `json:"response"`
}

// Ask posts to {base}/ask and extracts the reply: responses[0] when present,
// else the single response field, else the fallback apology.
func (c *client) Ask(ctx context.Context, req AskRequest) (string, error) {
	payload := askPayload{
		Text: req.Text,
		Metadata: askMetadata{
			User:                req.User,
			TemplateContext:     req.TemplateContext,
			ConversationHistory: req.ConversationHistory,
			Language:            req.Language,
		},
	}
	if payload.Metadata.ConversationHistory == nil {
		payload.Metadata.ConversationHistory = []types.ChatMessage{}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("agent: marshal request: %w", err)
	}

	endpoint := c.cfg.BaseURL + "/ask"
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		reply, resp, err := c.askOnce(ctx, endpoint, body)
		if err == nil {
			return reply, nil
		}
		if !httpx.IsRetryableError(err) || attempt == c.cfg.MaxRetries {
			return "", err
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("Agent request retrying",
			"attempt", attempt+1,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		time.Sleep(sleepFor)
		backoff *= 2
	}

	return "", fmt.Errorf("unreachable retry loop")
}

func (c *client) askOnce(ctx context.Context, endpoint string, body []byte) (string, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", resp, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return "", resp, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", resp, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out askResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", resp, fmt.Errorf("agent decode error: %w", err)
	}
	return extractReply(out), resp, nil
}

func extractReply(out askResponse) string {
	if len(out.Responses) > 0 && strings.TrimSpace(out.Responses[0]) != "" {
		return out.Responses[0]
	}
	if strings.TrimSpace(out.Response) != "" {
		return out.Response
	}
	return FallbackReply
}

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "agent: <nil error>"
	}
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 2000 {
		msg = msg[:2000] + "..."
	}
	return fmt.Sprintf("agent http %d: %s", e.StatusCode, msg)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}
