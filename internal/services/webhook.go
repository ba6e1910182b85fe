package services

import (
	"context"
	"strings"

	"github.com/poppacare/poppa-backend/internal/clients/agent"
	redisclient "github.com/poppacare/poppa-backend/internal/clients/redis"
	"github.com/poppacare/poppa-backend/internal/clients/twilio"
	"github.com/poppacare/poppa-backend/internal/logger"
	"github.com/poppacare/poppa-backend/internal/repos"
	"github.com/poppacare/poppa-backend/internal/types"
)

// InboundMessage is one decoded WhatsApp webhook delivery.
type InboundMessage struct {
	From          string
	Body          string
	ButtonText    string
	ButtonPayload string
	TemplateName  string
}

// AgentReply is what the direct-chat relay hands back to the dashboard.
type AgentReply struct {
	Response      string
	UserFound     bool
	HistoryLength int
}

type WebhookService interface {
	HandleIncoming(ctx context.Context, msg InboundMessage) error
	RelayToAgent(ctx context.Context, message, phone, templateContext string) (*AgentReply, error)
	History(ctx context.Context, userID string, limit int) ([]types.Conversation, error)
}

type webhookService struct {
	log    *logger.Logger
	users  repos.UserRepo
	convos repos.ConversationRepo
	memory redisclient.Memory
	agent  agent.Client
	twilio twilio.Client
}

func NewWebhookService(log *logger.Logger, users repos.UserRepo, convos repos.ConversationRepo, memory redisclient.Memory, ag agent.Client, tw twilio.Client) WebhookService {
	return &webhookService{
		log:    log.With("service", "WebhookService"),
		users:  users,
		convos: convos,
		memory: memory,
		agent:  ag,
		twilio: tw,
	}
}

// HandleIncoming runs the full inbound flow: unregistered users get the
// signup pointer, a "yes" runs the invite-family handoff, anything else is
// relayed to the agent and the exchange is persisted both to the graph and
// the rolling cache.
func (s *webhookService) HandleIncoming(ctx context.Context, msg InboundMessage) error {
	phone := twilio.StripWhatsApp(msg.From)
	if phone == "" {
		s.log.Warn("Webhook with empty sender")
		return nil
	}

	user, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		return err
	}
	if user == nil {
		s.log.Info("Message from unregistered number", "phone", phone)
		_, err := s.twilio.SendText(ctx, twilio.WhatsAppAddress(phone), UnregisteredUserMessage)
		return err
	}

	if strings.Contains(strings.ToLower(msg.Body), "yes") {
		return s.sendInviteFlow(ctx, phone)
	}

	metadata, err := s.users.GetMetadataByPhone(ctx, phone)
	if err != nil {
		s.log.Warn("Metadata lookup failed, relaying without it", "error", err)
	}

	key := redisclient.SessionKey{Phone: phone, UserID: user.ID}
	history, err := s.memory.Load(ctx, key, redisclient.DefaultHistoryLimit)
	if err != nil {
		s.log.Warn("History load failed, relaying without it", "error", err)
	}

	reply, err := s.agent.Ask(ctx, agent.AskRequest{
		Text:                msg.Body,
		User:                metadata,
		TemplateContext:     msg.TemplateName,
		ConversationHistory: history,
		Language:            user.Language,
	})
	if err != nil {
		s.log.Error("Agent call failed", "user_id", user.ID, "error", err)
		reply = agent.FallbackReply
	}

	if err := s.convos.Store(ctx, phone, types.Conversation{
		Message:       msg.Body,
		Response:      reply,
		IsTemplate:    msg.TemplateName != "",
		TemplateType:  msg.TemplateName,
		ButtonText:    msg.ButtonText,
		ButtonPayload: msg.ButtonPayload,
	}); err != nil {
		s.log.Warn("Failed to store conversation", "user_id", user.ID, "error", err)
	}
	if err := s.memory.Save(ctx, key, []types.ChatMessage{
		{Role: types.ChatRoleUser, Content: msg.Body},
		{Role: types.ChatRoleAgent, Content: reply},
	}); err != nil {
		s.log.Warn("Failed to cache exchange", "user_id", user.ID, "error", err)
	}

	_, err = s.twilio.SendText(ctx, twilio.WhatsAppAddress(phone), reply)
	return err
}

func (s *webhookService) sendInviteFlow(ctx context.Context, phone string) error {
	to := twilio.WhatsAppAddress(phone)
	if _, err := s.twilio.SendText(ctx, to, InviteFamilyFirst); err != nil {
		return err
	}
	_, err := s.twilio.SendText(ctx, to, InviteFamilySecond)
	return err
}

// History reads the durable conversation log, oldest first.
func (s *webhookService) History(ctx context.Context, userID string, limit int) ([]types.Conversation, error) {
	return s.convos.History(ctx, userID, limit)
}

// RelayToAgent is the dashboard's direct line to the agent. No WhatsApp
// send; the caller renders the reply itself.
func (s *webhookService) RelayToAgent(ctx context.Context, message, phone, templateContext string) (*AgentReply, error) {
	metadata, err := s.users.GetMetadataByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}

	var history []types.ChatMessage
	if metadata != nil {
		history, err = s.memory.Load(ctx, redisclient.SessionKey{Phone: phone}, redisclient.DefaultHistoryLimit)
		if err != nil {
			s.log.Warn("History load failed", "error", err)
		}
	}

	language := ""
	if metadata != nil {
		language = metadata.Profile.Language
	}
	reply, err := s.agent.Ask(ctx, agent.AskRequest{
		Text:                message,
		User:                metadata,
		TemplateContext:     templateContext,
		ConversationHistory: history,
		Language:            language,
	})
	if err != nil {
		return nil, err
	}
	return &AgentReply{
		Response:      reply,
		UserFound:     metadata != nil,
		HistoryLength: len(history),
	}, nil
}
