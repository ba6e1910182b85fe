package repos

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/poppacare/poppa-backend/internal/db"
	"github.com/poppacare/poppa-backend/internal/logger"
	"github.com/poppacare/poppa-backend/internal/types"
)

// ConversationRepo is the durable side of the chat memory; the Redis cache
// holds the rolling window, the graph holds everything.
type ConversationRepo interface {
	Store(ctx context.Context, phone string, conv types.Conversation) error
	History(ctx context.Context, userID string, limit int) ([]types.Conversation, error)
}

type conversationRepo struct {
	client *db.Neo4jClient
	log    *logger.Logger
}

func NewConversationRepo(client *db.Neo4jClient, baseLog *logger.Logger) ConversationRepo {
	return &conversationRepo{client: client, log: baseLog.With("repo", "ConversationRepo")}
}

// Store appends one exchange to the user's conversation log, keyed by phone
// since the webhook only knows the sender's number.
func (r *conversationRepo) Store(ctx context.Context, phone string, conv types.Conversation) error {
	if phone == "" {
		return fmt.Errorf("phone required")
	}
	cypher := `
MATCH (u:User {phone: $phone})
CREATE (u)-[:HAS_CONVERSATION]->(c:Conversation {
	id: randomUUID(),
	timestamp: datetime(),
	message: $message,
	isTemplate: $isTemplate,
	templateType: $templateType,
	templateContent: $templateContent,
	response: $response,
	buttonText: $buttonText,
	buttonPayload: $buttonPayload
})
RETURN c.id AS id
`
	session := r.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: r.client.Database,
	})
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, map[string]any{
			"phone":           phone,
			"message":         conv.Message,
			"isTemplate":      conv.IsTemplate,
			"templateType":    conv.TemplateType,
			"templateContent": conv.TemplateContent,
			"response":        conv.Response,
			"buttonText":      conv.ButtonText,
			"buttonPayload":   conv.ButtonPayload,
		})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		return len(records) > 0, nil
	})
	if err != nil {
		return fmt.Errorf("store conversation: %w", err)
	}
	if ok, _ := result.(bool); !ok {
		return fmt.Errorf("no user with phone on record")
	}
	return nil
}

// History returns the latest exchanges in ascending timestamp order. The
// query fetches newest-first for the LIMIT, then the slice is reversed so
// callers always read oldest to newest.
func (r *conversationRepo) History(ctx context.Context, userID string, limit int) ([]types.Conversation, error) {
	if limit <= 0 {
		limit = 50
	}
	cypher := `
MATCH (u:User {id: $userId})-[:HAS_CONVERSATION]->(c:Conversation)
RETURN c.id AS id, toString(c.timestamp) AS timestamp, c.message AS message,
	coalesce(c.isTemplate, false) AS isTemplate,
	coalesce(c.templateType, '') AS templateType,
	coalesce(c.templateContent, '') AS templateContent,
	coalesce(c.response, '') AS response,
	coalesce(c.buttonText, '') AS buttonText,
	coalesce(c.buttonPayload, '') AS buttonPayload
ORDER BY c.timestamp DESC
LIMIT $limit
`
	session := r.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: r.client.Database,
	})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, map[string]any{
			"userId": userID,
			"limit":  limit,
		})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("conversation history: %w", err)
	}

	records := result.([]*neo4j.Record)
	out := make([]types.Conversation, 0, len(records))
	for _, rec := range records {
		get := func(key string) string {
			v, _ := rec.Get(key)
			s, _ := v.(string)
			return s
		}
		isTemplateRaw, _ := rec.Get("isTemplate")
		isTemplate, _ := isTemplateRaw.(bool)
		out = append(out, types.Conversation{
			ID:              get("id"),
			Timestamp:       get("timestamp"),
			Message:         get("message"),
			IsTemplate:      isTemplate,
			TemplateType:    get("templateType"),
			TemplateContent: get("templateContent"),
			Response:        get("response"),
			ButtonText:      get("buttonText"),
			ButtonPayload:   get("buttonPayload"),
		})
	}
	// newest-first from the store, ascending for callers
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
