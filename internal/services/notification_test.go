package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	redisclient "github.com/poppacare/poppa-backend/internal/clients/redis"
	"github.com/poppacare/poppa-backend/internal/clients/twilio"
	"github.com/poppacare/poppa-backend/internal/logger"
	"github.com/poppacare/poppa-backend/internal/schedule"
	"github.com/poppacare/poppa-backend/internal/types"
)

type fakeMedRepo struct {
	due          []types.MedicationDue
	dueErr       error
	dueSegments  [][]schedule.Segment
	halfDay      []types.RelatedUser
	halfDayCalls int
	lists        map[string][]types.MedicationSchedule
}

func (f *fakeMedRepo) Create(ctx context.Context, name, brandName, genericName string) (*types.Medication, error) {
	return &types.Medication{ID: "med-" + name, Name: name}, nil
}

func (f *fakeMedRepo) Link(ctx context.Context, userID, medicationID string, sched types.Schedule) error {
	return nil
}

func (f *fakeMedRepo) ListForUser(ctx context.Context, userID string) ([]types.MedicationSchedule, error) {
	return f.lists[userID], nil
}

func (f *fakeMedRepo) UpdateSchedule(ctx context.Context, userID, medicationID string, sched types.Schedule) error {
	return nil
}

func (f *fakeMedRepo) Delete(ctx context.Context, userID, medicationID string) error { return nil }

func (f *fakeMedRepo) Search(ctx context.Context, query string) ([]types.DrugResult, error) {
	return nil, nil
}

func (f *fakeMedRepo) RecordIntake(ctx context.Context, userID, medicationID, date, scheduledTime, actualTime, status string) error {
	return nil
}

func (f *fakeMedRepo) Due(ctx context.Context, segments []schedule.Segment) ([]types.MedicationDue, error) {
	f.dueSegments = append(f.dueSegments, segments)
	return f.due, f.dueErr
}

func (f *fakeMedRepo) UsersWithDoseInHalfDay(ctx context.Context, day string, afterMin, beforeMin int) ([]types.RelatedUser, error) {
	f.halfDayCalls++
	return f.halfDay, nil
}

type fakeMemory struct {
	saved   map[string][]types.ChatMessage
	history []types.ChatMessage
	saveErr error
}

func newFakeMemory() *fakeMemory {
	return &fakeMemory{saved: make(map[string][]types.ChatMessage)}
}

func (f *fakeMemory) Save(ctx context.Context, key redisclient.SessionKey, msgs []types.ChatMessage) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	k := key.Derive()
	f.saved[k] = append(f.saved[k], msgs...)
	return nil
}

func (f *fakeMemory) Load(ctx context.Context, key redisclient.SessionKey, limit int) ([]types.ChatMessage, error) {
	return f.history, nil
}

func (f *fakeMemory) Clear(ctx context.Context, key redisclient.SessionKey) error { return nil }

func (f *fakeMemory) TTL(ctx context.Context, key redisclient.SessionKey) (time.Duration, error) {
	return 0, nil
}

func (f *fakeMemory) Close() error { return nil }

type sentMessage struct {
	to         string
	body       string
	contentSID string
	variables  map[string]string
}

type fakeTwilio struct {
	sent    []sentMessage
	failFor map[string]bool
}

func newFakeTwilio() *fakeTwilio {
	return &fakeTwilio{failFor: make(map[string]bool)}
}

func (f *fakeTwilio) SendText(ctx context.Context, to, body string) (*twilio.Message, error) {
	if f.failFor[to] {
		return nil, fmt.Errorf("send failed for %s", to)
	}
	f.sent = append(f.sent, sentMessage{to: to, body: body})
	return &twilio.Message{SID: "SM1"}, nil
}

func (f *fakeTwilio) SendTemplate(ctx context.Context, to, contentSID string, variables map[string]string) (*twilio.Message, error) {
	if f.failFor[to] {
		return nil, fmt.Errorf("send failed for %s", to)
	}
	f.sent = append(f.sent, sentMessage{to: to, contentSID: contentSID, variables: variables})
	return &twilio.Message{SID: "SM1"}, nil
}

func (f *fakeTwilio) ValidateSignature(callbackURL string, params url.Values, signature string) bool {
	return true
}

func testTemplates() Templates {
	return Templates{
		MedicationReminder: "HX_reminder",
		WelcomeElder:       "HX_welcome_elder",
		WelcomeCaretaker:   "HX_welcome_caretaker",
		MedsConfirmationAM: "HX_confirm_am",
		MedsConfirmationPM: "HX_confirm_pm",
	}
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func newTestNotificationService(t *testing.T, med *fakeMedRepo, mem *fakeMemory, tw *fakeTwilio, now time.Time) *notificationService {
	return &notificationService{
		log:       testLogger(t),
		medRepo:   med,
		memory:    mem,
		twilio:    tw,
		templates: testTemplates(),
		location:  time.UTC,
		now:       func() time.Time { return now },
	}
}

func TestSendMedicationRemindersGroupsPerUser(t *testing.T) {
	med := &fakeMedRepo{due: []types.MedicationDue{
		{UserID: "u1", MedicationName: "Lisinopril", Phone: "+13055550100", ScheduledTime: "08:00"},
		{UserID: "u1", MedicationName: "Metformin", Phone: "+13055550100", ScheduledTime: "08:00"},
		{UserID: "u2", MedicationName: "Aspirin", Phone: "+13055550101", ScheduledTime: "08:05"},
	}}
	mem := newFakeMemory()
	tw := newFakeTwilio()
	svc := newTestNotificationService(t, med, mem, tw, time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC))

	results, err := svc.SendMedicationReminders(context.Background(), 15*time.Minute)
	if err != nil {
		t.Fatalf("SendMedicationReminders: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Status != types.NotificationSuccess {
			t.Fatalf("user %s: expected success, got %s (%s)", r.UserID, r.Status, r.Error)
		}
	}
	if len(tw.sent) != 2 {
		t.Fatalf("expected 2 template sends, got %d", len(tw.sent))
	}
	var u1 *sentMessage
	for i := range tw.sent {
		if tw.sent[i].to == "whatsapp:+13055550100" {
			u1 = &tw.sent[i]
		}
	}
	if u1 == nil {
		t.Fatalf("no send for u1's phone, sent: %+v", tw.sent)
	}
	if u1.contentSID != "HX_reminder" {
		t.Fatalf("wrong content sid %q", u1.contentSID)
	}
	if got := u1.variables["1"]; got != "Lisinopril\nMetformin" {
		t.Fatalf("expected newline-joined names, got %q", got)
	}

	cached := mem.saved["chat:phone:13055550100"]
	if len(cached) != 1 {
		t.Fatalf("expected 1 cached reminder, got %d", len(cached))
	}
	if cached[0].Role != types.ChatRoleAgent || !strings.HasPrefix(cached[0].Content, ReminderPrompt) {
		t.Fatalf("unexpected cached reminder: %+v", cached[0])
	}
}

func TestSendMedicationRemindersIsolatesFailures(t *testing.T) {
	med := &fakeMedRepo{due: []types.MedicationDue{
		{UserID: "u1", MedicationName: "Lisinopril", Phone: "+13055550100", ScheduledTime: "08:00"},
		{UserID: "u2", MedicationName: "Aspirin", Phone: "+13055550101", ScheduledTime: "08:05"},
	}}
	tw := newFakeTwilio()
	tw.failFor["whatsapp:+13055550101"] = true
	svc := newTestNotificationService(t, med, newFakeMemory(), tw, time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC))

	results, err := svc.SendMedicationReminders(context.Background(), 15*time.Minute)
	if err != nil {
		t.Fatalf("SendMedicationReminders: %v", err)
	}
	byUser := map[string]types.NotificationResult{}
	for _, r := range results {
		byUser[r.UserID] = r
	}
	if byUser["u1"].Status != types.NotificationSuccess {
		t.Fatalf("u1 should succeed despite u2 failing: %+v", byUser["u1"])
	}
	if byUser["u2"].Status != types.NotificationError || byUser["u2"].Error == "" {
		t.Fatalf("u2 should carry the error: %+v", byUser["u2"])
	}
}

func TestSendMedicationRemindersCacheFailureDoesNotBlockSend(t *testing.T) {
	med := &fakeMedRepo{due: []types.MedicationDue{
		{UserID: "u1", MedicationName: "Aspirin", Phone: "+13055550100", ScheduledTime: "08:00"},
	}}
	mem := newFakeMemory()
	mem.saveErr = fmt.Errorf("redis down")
	tw := newFakeTwilio()
	svc := newTestNotificationService(t, med, mem, tw, time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC))

	results, err := svc.SendMedicationReminders(context.Background(), 15*time.Minute)
	if err != nil {
		t.Fatalf("SendMedicationReminders: %v", err)
	}
	if results[0].Status != types.NotificationSuccess {
		t.Fatalf("send should succeed when only the cache fails: %+v", results[0])
	}
	if len(tw.sent) != 1 {
		t.Fatalf("expected the template send to happen, got %d sends", len(tw.sent))
	}
}

func TestSendConfirmationsOutsideGate(t *testing.T) {
	med := &fakeMedRepo{halfDay: []types.RelatedUser{{ID: "u1", FirstName: "Rosa", Phone: "+13055550100"}}}
	tw := newFakeTwilio()
	svc := newTestNotificationService(t, med, newFakeMemory(), tw, time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC))

	results, err := svc.SendConfirmations(context.Background(), "")
	if err != nil {
		t.Fatalf("SendConfirmations: %v", err)
	}
	if len(results) != 0 || len(tw.sent) != 0 || med.halfDayCalls != 0 {
		t.Fatalf("nothing should happen outside the gate: results=%d sends=%d queries=%d",
			len(results), len(tw.sent), med.halfDayCalls)
	}
}

func TestSendConfirmationsAMOverride(t *testing.T) {
	med := &fakeMedRepo{
		halfDay: []types.RelatedUser{{ID: "u1", FirstName: "Rosa", Phone: "+13055550100"}},
		lists: map[string][]types.MedicationSchedule{
			"u1": {{Name: "Lisinopril"}, {Name: "Aspirin"}},
		},
	}
	tw := newFakeTwilio()
	svc := newTestNotificationService(t, med, newFakeMemory(), tw, time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC))

	results, err := svc.SendConfirmations(context.Background(), "11:59")
	if err != nil {
		t.Fatalf("SendConfirmations: %v", err)
	}
	if len(results) != 1 || results[0].Status != types.NotificationSuccess {
		t.Fatalf("unexpected results: %+v", results)
	}
	if len(tw.sent) != 1 {
		t.Fatalf("expected 1 send, got %d", len(tw.sent))
	}
	if tw.sent[0].contentSID != "HX_confirm_am" {
		t.Fatalf("expected AM template, got %q", tw.sent[0].contentSID)
	}
	if tw.sent[0].variables["1"] != "Rosa" {
		t.Fatalf("expected first name variable, got %q", tw.sent[0].variables["1"])
	}
}

func TestSendConfirmationsPMGate(t *testing.T) {
	med := &fakeMedRepo{halfDay: []types.RelatedUser{{ID: "u1", FirstName: "Rosa", Phone: "+13055550100"}}}
	tw := newFakeTwilio()
	svc := newTestNotificationService(t, med, newFakeMemory(), tw, time.Date(2025, 6, 2, 22, 0, 0, 0, time.UTC))

	results, err := svc.SendConfirmations(context.Background(), "")
	if err != nil {
		t.Fatalf("SendConfirmations: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if tw.sent[0].contentSID != "HX_confirm_pm" {
		t.Fatalf("expected PM template, got %q", tw.sent[0].contentSID)
	}
}

func TestSendConfirmationsBadOverride(t *testing.T) {
	svc := newTestNotificationService(t, &fakeMedRepo{}, newFakeMemory(), newFakeTwilio(),
		time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC))
	if _, err := svc.SendConfirmations(context.Background(), "25:99"); err == nil {
		t.Fatalf("expected error for invalid time override")
	}
}

func TestSendWelcomeElder(t *testing.T) {
	tw := newFakeTwilio()
	svc := newTestNotificationService(t, &fakeMedRepo{}, newFakeMemory(), tw,
		time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC))

	sid, err := svc.SendWelcomeElder(context.Background(), "+13055550100", "Rosa")
	if err != nil {
		t.Fatalf("SendWelcomeElder: %v", err)
	}
	if sid == "" {
		t.Fatalf("expected message sid")
	}
	if tw.sent[0].contentSID != "HX_welcome_elder" || tw.sent[0].variables["1"] != "Rosa" {
		t.Fatalf("unexpected send: %+v", tw.sent[0])
	}

	if _, err := svc.SendWelcomeCaretaker(context.Background(), "", "Rosa"); err == nil {
		t.Fatalf("expected error for missing phone")
	}
}
