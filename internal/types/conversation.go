package types

// Conversation is one audit-trail entry linked to a User via
// HAS_CONVERSATION. Purely additive; nothing updates or deletes these.
type Conversation struct {
	ID              string `json:"id"`
	Timestamp       string `json:"timestamp"`
	Message         string `json:"message"`
	IsTemplate      bool   `json:"isTemplate"`
	TemplateType    string `json:"templateType,omitempty"`
	TemplateContent string `json:"templateContent,omitempty"`
	Response        string `json:"response,omitempty"`
	ButtonText      string `json:"buttonText,omitempty"`
	ButtonPayload   string `json:"buttonPayload,omitempty"`
}

// ChatMessage is the cache-side conversation unit: one {role, content} pair
// appended under a derived session key.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	ChatRoleUser  = "user"
	ChatRoleAgent = "agent"
)

// NotificationResult is the per-user outcome slot in a dispatcher batch.
type NotificationResult struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

const (
	NotificationSuccess = "success"
	NotificationError   = "error"
)
