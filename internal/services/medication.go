package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/poppacare/poppa-backend/internal/logger"
	"github.com/poppacare/poppa-backend/internal/repos"
	"github.com/poppacare/poppa-backend/internal/types"
)

type MedicationService interface {
	Add(ctx context.Context, userID, name, brandName, genericName string, sched types.Schedule) (*types.Medication, error)
	List(ctx context.Context, userID string) ([]types.MedicationSchedule, error)
	ListForElder(ctx context.Context, caretakerID, elderID string) ([]types.MedicationSchedule, error)
	UpdateSchedule(ctx context.Context, userID, medicationID string, sched types.Schedule) error
	Remove(ctx context.Context, userID, medicationID string) error
	Search(ctx context.Context, query string) ([]types.DrugResult, error)
	RecordIntake(ctx context.Context, userID, medicationID, scheduledTime, status string) error
}

type medicationService struct {
	log     *logger.Logger
	medRepo repos.MedicationRepo
	users   repos.UserRepo
}

func NewMedicationService(log *logger.Logger, medRepo repos.MedicationRepo, users repos.UserRepo) MedicationService {
	return &medicationService{
		log:     log.With("service", "MedicationService"),
		medRepo: medRepo,
		users:   users,
	}
}

// Add creates (or reuses) the medication node and links it to the user in
// one call. Validation happens before anything touches the store.
func (s *medicationService) Add(ctx context.Context, userID, name, brandName, genericName string, sched types.Schedule) (*types.Medication, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("medication name required")
	}
	if err := sched.Validate(); err != nil {
		return nil, err
	}
	med, err := s.medRepo.Create(ctx, strings.TrimSpace(name), brandName, genericName)
	if err != nil {
		return nil, err
	}
	if err := s.medRepo.Link(ctx, userID, med.ID, sched); err != nil {
		return nil, err
	}
	s.log.Info("Medication linked", "user_id", userID, "medication", med.Name)
	return med, nil
}

func (s *medicationService) List(ctx context.Context, userID string) ([]types.MedicationSchedule, error) {
	return s.medRepo.ListForUser(ctx, userID)
}

// ListForElder is the caretaker view: the caller must actually care for the
// elder before the list is returned.
func (s *medicationService) ListForElder(ctx context.Context, caretakerID, elderID string) ([]types.MedicationSchedule, error) {
	elders, err := s.users.GetCaretakerElders(ctx, caretakerID)
	if err != nil {
		return nil, err
	}
	linked := false
	for _, e := range elders {
		if e.ID == elderID {
			linked = true
			break
		}
	}
	if !linked {
		return nil, fmt.Errorf("caretaker does not care for this elder")
	}
	return s.medRepo.ListForUser(ctx, elderID)
}

func (s *medicationService) UpdateSchedule(ctx context.Context, userID, medicationID string, sched types.Schedule) error {
	if err := sched.Validate(); err != nil {
		return err
	}
	return s.medRepo.UpdateSchedule(ctx, userID, medicationID, sched)
}

func (s *medicationService) Remove(ctx context.Context, userID, medicationID string) error {
	return s.medRepo.Delete(ctx, userID, medicationID)
}

func (s *medicationService) Search(ctx context.Context, query string) ([]types.DrugResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []types.DrugResult{}, nil
	}
	return s.medRepo.Search(ctx, query)
}

func (s *medicationService) RecordIntake(ctx context.Context, userID, medicationID, scheduledTime, status string) error {
	now := time.Now().UTC()
	return s.medRepo.RecordIntake(ctx, userID, medicationID,
		now.Format("2006-01-02"), scheduledTime, now.Format("15:04"), status)
}
