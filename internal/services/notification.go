package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	redisclient "github.com/poppacare/poppa-backend/internal/clients/redis"
	"github.com/poppacare/poppa-backend/internal/clients/twilio"
	"github.com/poppacare/poppa-backend/internal/logger"
	"github.com/poppacare/poppa-backend/internal/repos"
	"github.com/poppacare/poppa-backend/internal/schedule"
	"github.com/poppacare/poppa-backend/internal/types"
)

const ReminderPrompt = "Hey, did you take your vitamins today?"

type NotificationService interface {
	SendMedicationReminders(ctx context.Context, lookAhead time.Duration) ([]types.NotificationResult, error)
	SendConfirmations(ctx context.Context, override string) ([]types.NotificationResult, error)
	SendWelcomeElder(ctx context.Context, phone, userName string) (string, error)
	SendWelcomeCaretaker(ctx context.Context, phone, userName string) (string, error)
}

type notificationService struct {
	log       *logger.Logger
	medRepo   repos.MedicationRepo
	memory    redisclient.Memory
	twilio    twilio.Client
	templates Templates
	location  *time.Location
	now       func() time.Time
}

func NewNotificationService(log *logger.Logger, medRepo repos.MedicationRepo, memory redisclient.Memory, tw twilio.Client, templates Templates, loc *time.Location) NotificationService {
	if loc == nil {
		loc = time.UTC
	}
	return &notificationService{
		log:       log.With("service", "NotificationService"),
		medRepo:   medRepo,
		memory:    memory,
		twilio:    tw,
		templates: templates,
		location:  loc,
		now:       time.Now,
	}
}

type userBatch struct {
	phone       string
	medications []string
}

// SendMedicationReminders finds every dose due inside the look-ahead window,
// groups rows per user, and fans the sends out concurrently. One user's
// failure lands in their result slot and never aborts the batch.
func (s *notificationService) SendMedicationReminders(ctx context.Context, lookAhead time.Duration) ([]types.NotificationResult, error) {
	now := s.now().In(s.location)
	due, err := s.medRepo.Due(ctx, schedule.DueWindow(now, lookAhead))
	if err != nil {
		return nil, err
	}
	if len(due) == 0 {
		s.log.Info("No medications due", "look_ahead", lookAhead.String())
		return []types.NotificationResult{}, nil
	}

	batches := make(map[string]*userBatch)
	var order []string
	for _, row := range due {
		b, ok := batches[row.UserID]
		if !ok {
			b = &userBatch{phone: row.Phone}
			batches[row.UserID] = b
			order = append(order, row.UserID)
		}
		b.medications = append(b.medications, row.MedicationName)
	}

	results := make([]types.NotificationResult, len(order))
	g, gctx := errgroup.WithContext(ctx)
	for i, userID := range order {
		batch := batches[userID]
		g.Go(func() error {
			results[i] = s.remindUser(gctx, userID, batch)
			return nil
		})
	}
	g.Wait()

	success := 0
	for _, r := range results {
		if r.Status == types.NotificationSuccess {
			success++
		}
	}
	s.log.Info("Reminder batch complete", "total", len(results), "success", success, "errors", len(results)-success)
	return results, nil
}

// remindUser stores the synthetic reminder in the conversation cache first
// so a "yes I took them" reply has context, then sends the template. A cache
// failure is logged but does not block the send.
func (s *notificationService) remindUser(ctx context.Context, userID string, batch *userBatch) types.NotificationResult {
	formatted := strings.Join(batch.medications, "\n")

	reminder := types.ChatMessage{
		Role:    types.ChatRoleAgent,
		Content: ReminderPrompt + "\n" + formatted,
	}
	key := redisclient.SessionKey{Phone: batch.phone}
	if err := s.memory.Save(ctx, key, []types.ChatMessage{reminder}); err != nil {
		s.log.Warn("Failed to cache reminder", "user_id", userID, "error", err)
	}

	_, err := s.twilio.SendTemplate(ctx, twilio.WhatsAppAddress(batch.phone), s.templates.MedicationReminder, map[string]string{"1": formatted})
	if err != nil {
		s.log.Error("Reminder send failed", "user_id", userID, "error", err)
		return types.NotificationResult{UserID: userID, Status: types.NotificationError, Error: err.Error()}
	}
	return types.NotificationResult{UserID: userID, Status: types.NotificationSuccess}
}

// SendConfirmations is the twice-daily did-you-take-them pass. It only fires
// on its two gate times unless override (an "HH:MM" test value) forces the
// evaluated clock.
func (s *notificationService) SendConfirmations(ctx context.Context, override string) ([]types.NotificationResult, error) {
	now := s.now().In(s.location)
	var cp schedule.Checkpoint
	if override != "" {
		min, err := types.ParseClockMinutes(override)
		if err != nil {
			return nil, fmt.Errorf("invalid time override: %w", err)
		}
		cp = schedule.At(min/60, min%60)
	} else {
		cp = schedule.CheckpointFor(now)
	}
	if cp == schedule.CheckpointNone {
		s.log.Info("Outside confirmation checkpoint", "time", now.Format("15:04"))
		return []types.NotificationResult{}, nil
	}

	afterMin, beforeMin, _ := schedule.HalfDayBounds(cp)
	users, err := s.medRepo.UsersWithDoseInHalfDay(ctx, schedule.DayAbbrev(now.Weekday()), afterMin, beforeMin)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return []types.NotificationResult{}, nil
	}

	contentSID := s.templates.MedsConfirmationAM
	if cp == schedule.CheckpointPM {
		contentSID = s.templates.MedsConfirmationPM
	}

	results := make([]types.NotificationResult, len(users))
	g, gctx := errgroup.WithContext(ctx)
	for i, user := range users {
		g.Go(func() error {
			results[i] = s.confirmUser(gctx, user, contentSID)
			return nil
		})
	}
	g.Wait()
	return results, nil
}

func (s *notificationService) confirmUser(ctx context.Context, user types.RelatedUser, contentSID string) types.NotificationResult {
	meds, err := s.medRepo.ListForUser(ctx, user.ID)
	if err != nil {
		return types.NotificationResult{UserID: user.ID, Status: types.NotificationError, Error: err.Error()}
	}
	names := make([]string, 0, len(meds))
	for _, m := range meds {
		names = append(names, m.Name)
	}
	sort.Strings(names)

	// The confirmation cache entry numbers the doses so the agent can refer
	// to "number 2" in a follow-up.
	lines := make([]string, 0, len(names))
	for i, name := range names {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, name))
	}
	reminder := types.ChatMessage{
		Role:    types.ChatRoleAgent,
		Content: ReminderPrompt + "\n" + strings.Join(lines, "\n"),
	}
	if err := s.memory.Save(ctx, redisclient.SessionKey{Phone: user.Phone}, []types.ChatMessage{reminder}); err != nil {
		s.log.Warn("Failed to cache confirmation", "user_id", user.ID, "error", err)
	}

	_, err = s.twilio.SendTemplate(ctx, twilio.WhatsAppAddress(user.Phone), contentSID, map[string]string{"1": user.FirstName})
	if err != nil {
		return types.NotificationResult{UserID: user.ID, Status: types.NotificationError, Error: err.Error()}
	}
	return types.NotificationResult{UserID: user.ID, Status: types.NotificationSuccess}
}

func (s *notificationService) SendWelcomeElder(ctx context.Context, phone, userName string) (string, error) {
	return s.sendWelcome(ctx, phone, userName, s.templates.WelcomeElder)
}

func (s *notificationService) SendWelcomeCaretaker(ctx context.Context, phone, userName string) (string, error) {
	return s.sendWelcome(ctx, phone, userName, s.templates.WelcomeCaretaker)
}

func (s *notificationService) sendWelcome(ctx context.Context, phone, userName, contentSID string) (string, error) {
	if phone == "" || userName == "" {
		return "", fmt.Errorf("phone number and user name required")
	}
	msg, err := s.twilio.SendTemplate(ctx, twilio.WhatsAppAddress(phone), contentSID, map[string]string{"1": userName})
	if err != nil {
		return "", err
	}
	s.log.Info("Welcome message sent", "phone", phone)
	return msg.SID, nil
}
